package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

var ErrAPIRequest = errors.New("telegram api request failed")

// HTTPClient is the transport the client posts through.
type HTTPClient interface {
	PostJSON(ctx context.Context, url string, payload any) (statusCode int, respBody []byte, err error)
}

type Client struct {
	http   HTTPClient
	apiURL string
	token  string
}

func NewClient(httpClient HTTPClient, apiURL, token string) *Client {
	return &Client{
		http:   httpClient,
		apiURL: apiURL,
		token:  token,
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	url := fmt.Sprintf("%s/bot%s/%s", c.apiURL, c.token, method)

	status, body, err := c.http.PostJSON(ctx, url, payload)
	if err != nil {
		zap.L().Error("can't reach telegram api", zap.String("method", method), zap.Error(err))
		return err
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		zap.L().Error("can't decode telegram response", zap.String("method", method), zap.Error(err))
		return err
	}
	if !resp.OK || status != http.StatusOK {
		zap.L().Warn("telegram api rejected the call",
			zap.String("method", method),
			zap.Int("status", status),
			zap.String("description", resp.Description),
		)
		return fmt.Errorf("%w: %s: %s", ErrAPIRequest, method, resp.Description)
	}

	if out != nil {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			zap.L().Error("can't decode telegram result", zap.String("method", method), zap.Error(err))
			return err
		}
	}
	return nil
}

type SendMessageRequest struct {
	ChatID      int64  `json:"chat_id"`
	Text        string `json:"text"`
	ParseMode   string `json:"parse_mode,omitempty"`
	ReplyMarkup any    `json:"reply_markup,omitempty"`
}

func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	var msg Message
	if err := c.call(ctx, "sendMessage", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

type SendPhotoRequest struct {
	ChatID      int64  `json:"chat_id"`
	Photo       string `json:"photo"`
	Caption     string `json:"caption,omitempty"`
	ParseMode   string `json:"parse_mode,omitempty"`
	ReplyMarkup any    `json:"reply_markup,omitempty"`
}

func (c *Client) SendPhoto(ctx context.Context, req SendPhotoRequest) (*Message, error) {
	var msg Message
	if err := c.call(ctx, "sendPhoto", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

type EditMessageTextRequest struct {
	ChatID      int64  `json:"chat_id"`
	MessageID   int64  `json:"message_id"`
	Text        string `json:"text"`
	ParseMode   string `json:"parse_mode,omitempty"`
	ReplyMarkup any    `json:"reply_markup,omitempty"`
}

func (c *Client) EditMessageText(ctx context.Context, req EditMessageTextRequest) error {
	return c.call(ctx, "editMessageText", req, nil)
}

type EditMessageCaptionRequest struct {
	ChatID      int64  `json:"chat_id"`
	MessageID   int64  `json:"message_id"`
	Caption     string `json:"caption"`
	ParseMode   string `json:"parse_mode,omitempty"`
	ReplyMarkup any    `json:"reply_markup,omitempty"`
}

func (c *Client) EditMessageCaption(ctx context.Context, req EditMessageCaptionRequest) error {
	return c.call(ctx, "editMessageCaption", req, nil)
}

type answerCallbackRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
	ShowAlert       bool   `json:"show_alert,omitempty"`
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	return c.call(ctx, "answerCallbackQuery", answerCallbackRequest{
		CallbackQueryID: callbackID,
		Text:            text,
	}, nil)
}

type deleteMessageRequest struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id"`
}

func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	return c.call(ctx, "deleteMessage", deleteMessageRequest{
		ChatID:    chatID,
		MessageID: messageID,
	}, nil)
}

type getChatMemberRequest struct {
	ChatID string `json:"chat_id"`
	UserID int64  `json:"user_id"`
}

type chatMember struct {
	Status string `json:"status"`
}

// GetChatMember returns the membership status of the user in the channel:
// one of creator, administrator, member, restricted, left, kicked.
func (c *Client) GetChatMember(ctx context.Context, chatID string, userID int64) (string, error) {
	var member chatMember
	err := c.call(ctx, "getChatMember", getChatMemberRequest{
		ChatID: chatID,
		UserID: userID,
	}, &member)
	if err != nil {
		return "", err
	}
	return member.Status, nil
}

type getUpdatesRequest struct {
	Offset  int64 `json:"offset"`
	Timeout int   `json:"timeout"`
}

// GetUpdates long-polls for up to timeoutSec seconds. The caller advances
// offset past the highest update id it has consumed.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	var updates []Update
	err := c.call(ctx, "getUpdates", getUpdatesRequest{
		Offset:  offset,
		Timeout: timeoutSec,
	}, &updates)
	if err != nil {
		return nil, err
	}
	return updates, nil
}
