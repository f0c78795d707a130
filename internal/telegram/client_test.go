package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeHTTP struct {
	lastURL     string
	lastPayload any
	status      int
	body        string
	err         error
}

func (f *fakeHTTP) PostJSON(ctx context.Context, url string, payload any) (int, []byte, error) {
	f.lastURL = url
	f.lastPayload = payload
	if f.err != nil {
		return 0, nil, f.err
	}
	return f.status, []byte(f.body), nil
}

func TestClient_SendMessage(t *testing.T) {
	fake := &fakeHTTP{status: http.StatusOK, body: `{"ok":true,"result":{"message_id":42,"chat":{"id":7}}}`}
	client := NewClient(fake, "https://api.telegram.org", "token-1")

	msg, err := client.SendMessage(context.Background(), SendMessageRequest{ChatID: 7, Text: "hello"})

	assert.NoError(t, err)
	assert.Equal(t, int64(42), msg.MessageID)
	assert.Equal(t, "https://api.telegram.org/bottoken-1/sendMessage", fake.lastURL)

	req, ok := fake.lastPayload.(SendMessageRequest)
	assert.True(t, ok)
	assert.Equal(t, int64(7), req.ChatID)
	assert.Equal(t, "hello", req.Text)
}

func TestClient_APIRejection(t *testing.T) {
	fake := &fakeHTTP{status: http.StatusBadRequest, body: `{"ok":false,"description":"chat not found"}`}
	client := NewClient(fake, "https://api.telegram.org", "token-1")

	_, err := client.SendMessage(context.Background(), SendMessageRequest{ChatID: 7, Text: "hello"})

	assert.ErrorIs(t, err, ErrAPIRequest)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestClient_TransportError(t *testing.T) {
	fake := &fakeHTTP{err: errors.New("connection refused")}
	client := NewClient(fake, "https://api.telegram.org", "token-1")

	_, err := client.SendMessage(context.Background(), SendMessageRequest{ChatID: 7, Text: "hello"})

	assert.Error(t, err)
}

func TestClient_GetChatMember(t *testing.T) {
	fake := &fakeHTTP{status: http.StatusOK, body: `{"ok":true,"result":{"status":"member"}}`}
	client := NewClient(fake, "https://api.telegram.org", "token-1")

	status, err := client.GetChatMember(context.Background(), "@exchange_channel", 7)

	assert.NoError(t, err)
	assert.Equal(t, "member", status)
}

func TestClient_GetUpdates(t *testing.T) {
	body := `{"ok":true,"result":[
		{"update_id":100,"message":{"message_id":1,"chat":{"id":7},"text":"/start"}},
		{"update_id":101,"callback_query":{"id":"cb-1","from":{"id":7},"data":"currency:USDT"}}
	]}`
	fake := &fakeHTTP{status: http.StatusOK, body: body}
	client := NewClient(fake, "https://api.telegram.org", "token-1")

	updates, err := client.GetUpdates(context.Background(), 100, 30)

	assert.NoError(t, err)
	assert.Len(t, updates, 2)
	assert.Equal(t, int64(100), updates[0].UpdateID)
	assert.Equal(t, "/start", updates[0].Message.Text)
	assert.Equal(t, "currency:USDT", updates[1].CallbackQuery.Data)

	raw, err := json.Marshal(fake.lastPayload)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"offset":100,"timeout":30}`, string(raw))
}
