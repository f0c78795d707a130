package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/otabekdev/exchangebot/internal/broadcast"
	"github.com/otabekdev/exchangebot/internal/config"
	"github.com/otabekdev/exchangebot/internal/domain"
	orderservice "github.com/otabekdev/exchangebot/internal/service/orderservice"
	reviewservice "github.com/otabekdev/exchangebot/internal/service/reviewservice"
	"github.com/otabekdev/exchangebot/internal/telegram"
)

const adminID int64 = 99

type fakeTransport struct {
	mu            sync.Mutex
	sent          []telegram.SendMessageRequest
	photos        []telegram.SendPhotoRequest
	captionEdits  []telegram.EditMessageCaptionRequest
	textEdits     []telegram.EditMessageTextRequest
	answers       []string
	memberStatus  string
	nextMessageID int64
}

func (f *fakeTransport) SendMessage(_ context.Context, req telegram.SendMessageRequest) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	f.nextMessageID++
	return &telegram.Message{MessageID: f.nextMessageID, Chat: telegram.Chat{ID: req.ChatID}}, nil
}

func (f *fakeTransport) SendPhoto(_ context.Context, req telegram.SendPhotoRequest) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, req)
	f.nextMessageID++
	return &telegram.Message{MessageID: f.nextMessageID, Chat: telegram.Chat{ID: req.ChatID}}, nil
}

func (f *fakeTransport) EditMessageText(_ context.Context, req telegram.EditMessageTextRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textEdits = append(f.textEdits, req)
	return nil
}

func (f *fakeTransport) EditMessageCaption(_ context.Context, req telegram.EditMessageCaptionRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captionEdits = append(f.captionEdits, req)
	return nil
}

func (f *fakeTransport) AnswerCallbackQuery(_ context.Context, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeTransport) GetChatMember(_ context.Context, _ string, _ int64) (string, error) {
	return f.memberStatus, nil
}

func (f *fakeTransport) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	texts := make([]string, 0, len(f.sent))
	for _, req := range f.sent {
		texts = append(texts, req.Text)
	}
	return texts
}

type fakeAccounts struct {
	account       *domain.Account
	subscribedSet []bool
	currencySet   []string
	methodSet     []string
	ids           []int64
	recent        []domain.Account
	count         int
}

func (f *fakeAccounts) Upsert(_ context.Context, account *domain.Account) (*domain.Account, error) {
	if f.account == nil {
		f.account = account
	}
	return f.account, nil
}

func (f *fakeAccounts) FindByID(_ context.Context, _ int64) (*domain.Account, error) {
	return f.account, nil
}

func (f *fakeAccounts) SetSubscribed(_ context.Context, _ int64, subscribed bool) error {
	f.subscribedSet = append(f.subscribedSet, subscribed)
	return nil
}

func (f *fakeAccounts) SetSelectedCurrency(_ context.Context, _ int64, currency string) error {
	f.currencySet = append(f.currencySet, currency)
	return nil
}

func (f *fakeAccounts) SetSelectedMethod(_ context.Context, _ int64, method string) error {
	f.methodSet = append(f.methodSet, method)
	return nil
}

func (f *fakeAccounts) ListIDs(_ context.Context) ([]int64, error) { return f.ids, nil }

func (f *fakeAccounts) ListRecent(_ context.Context, _ int) ([]domain.Account, error) {
	return f.recent, nil
}

func (f *fakeAccounts) Count(_ context.Context) (int, error) { return f.count, nil }

type fakeOrders struct {
	created      *domain.Order
	createErr    error
	createCalls  int
	lastMethod   string
	lastCurrency string
	lastAmount   float64

	claimed  *domain.Order
	claimErr error

	decided   *domain.Order
	decideErr error

	reviewSet [][2]int64
	byAccount []domain.Order
}

func (f *fakeOrders) Create(_ context.Context, _ int64, payInMethod, payOutCurrency string, amount float64) (*domain.Order, error) {
	f.createCalls++
	f.lastMethod = payInMethod
	f.lastCurrency = payOutCurrency
	f.lastAmount = amount
	return f.created, f.createErr
}

func (f *fakeOrders) AttachProof(_ context.Context, _ int64, _ string) (*domain.Order, error) {
	return f.claimed, f.claimErr
}

func (f *fakeOrders) SetReviewMessage(_ context.Context, orderID, messageID int64) error {
	f.reviewSet = append(f.reviewSet, [2]int64{orderID, messageID})
	return nil
}

func (f *fakeOrders) Decide(_ context.Context, _ int64, _ bool) (*domain.Order, error) {
	return f.decided, f.decideErr
}

func (f *fakeOrders) Get(_ context.Context, _ int64) (*domain.Order, error) {
	return f.decided, f.decideErr
}

func (f *fakeOrders) ListByAccount(_ context.Context, _ int64, _ int) ([]domain.Order, error) {
	return f.byAccount, nil
}

type fakeReview struct {
	pending []domain.Order
	stats   *reviewservice.Stats
}

func (f *fakeReview) PendingOrders(_ context.Context, _ int) ([]domain.Order, error) {
	return f.pending, nil
}

func (f *fakeReview) Stats(_ context.Context, _ time.Time) (*reviewservice.Stats, error) {
	return f.stats, nil
}

type fakeBroadcast struct {
	mu         sync.Mutex
	recipients []int64
	payload    broadcast.Payload
	runs       int
}

func (f *fakeBroadcast) Run(ctx context.Context, recipients []int64, payload broadcast.Payload, send broadcast.SendFunc, progress broadcast.ProgressFunc) broadcast.Report {
	f.mu.Lock()
	f.recipients = recipients
	f.payload = payload
	f.runs++
	f.mu.Unlock()

	var report broadcast.Report
	for _, recipient := range recipients {
		if err := send(ctx, recipient, payload); err != nil {
			report.Failed++
		} else {
			report.Sent++
		}
	}
	if progress != nil {
		progress(len(recipients), report.Sent, report.Failed)
	}
	return report
}

func newTestHandler(tg *fakeTransport, accounts *fakeAccounts, orders *fakeOrders, review *fakeReview, dispatcher *fakeBroadcast) *Handler {
	cfg := &config.Config{AdminID: adminID, Exchange: config.DefaultExchange()}
	return NewHandler(tg, accounts, orders, review, dispatcher, cfg)
}

func userMessage(text string) telegram.Update {
	return telegram.Update{Message: &telegram.Message{
		MessageID: 1,
		From:      &telegram.User{ID: 7, Username: "johndoe", FirstName: "John"},
		Chat:      telegram.Chat{ID: 7},
		Text:      text,
	}}
}

func adminMessage(text string) telegram.Update {
	return telegram.Update{Message: &telegram.Message{
		MessageID: 1,
		From:      &telegram.User{ID: adminID},
		Chat:      telegram.Chat{ID: adminID},
		Text:      text,
	}}
}

func TestStartSubscribedUser(t *testing.T) {
	tg := &fakeTransport{memberStatus: "member"}
	accounts := &fakeAccounts{}
	h := newTestHandler(tg, accounts, &fakeOrders{}, &fakeReview{}, &fakeBroadcast{})

	h.HandleUpdate(context.Background(), userMessage("/start"))

	texts := tg.sentTexts()
	assert.Equal(t, []string{textWelcome}, texts)
	assert.Equal(t, []bool{true}, accounts.subscribedSet)
}

func TestStartUnsubscribedUserIsGated(t *testing.T) {
	tg := &fakeTransport{memberStatus: "left"}
	accounts := &fakeAccounts{}
	h := newTestHandler(tg, accounts, &fakeOrders{}, &fakeReview{}, &fakeBroadcast{})

	h.HandleUpdate(context.Background(), userMessage("/start"))

	assert.Equal(t, []string{textSubscriptionGate}, tg.sentTexts())
	assert.Empty(t, accounts.subscribedSet)
}

func TestAmountCreatesOrder(t *testing.T) {
	currency := "USDT"
	method := "HUMO Card"
	tg := &fakeTransport{memberStatus: "member"}
	accounts := &fakeAccounts{account: &domain.Account{
		ID: 7, Subscribed: true, SelectedCurrency: &currency, SelectedMethod: &method,
	}}
	orders := &fakeOrders{created: &domain.Order{
		ID: 1, AccountID: 7, Amount: 25000, Fee: 5000, TotalPayable: 30000,
		PaymentDetails: "9860 1234 5678 9012 (John Doe)",
	}}
	h := newTestHandler(tg, accounts, orders, &fakeReview{}, &fakeBroadcast{})

	h.HandleUpdate(context.Background(), userMessage("25 000"))

	assert.Equal(t, 1, orders.createCalls)
	assert.Equal(t, "HUMO Card", orders.lastMethod)
	assert.Equal(t, "USDT", orders.lastCurrency)
	assert.Equal(t, 25000.0, orders.lastAmount)

	texts := tg.sentTexts()
	assert.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Order #1")
	assert.Contains(t, texts[0], "25 000")
	assert.Contains(t, texts[0], "30 000")
	assert.Contains(t, texts[0], "9860 1234 5678 9012")
}

func TestAmountBelowMinimum(t *testing.T) {
	currency := "USDT"
	method := "HUMO Card"
	tg := &fakeTransport{memberStatus: "member"}
	accounts := &fakeAccounts{account: &domain.Account{
		ID: 7, Subscribed: true, SelectedCurrency: &currency, SelectedMethod: &method,
	}}
	orders := &fakeOrders{createErr: orderservice.ErrBelowMinimum}
	h := newTestHandler(tg, accounts, orders, &fakeReview{}, &fakeBroadcast{})

	h.HandleUpdate(context.Background(), userMessage("15000"))

	texts := tg.sentTexts()
	assert.Len(t, texts, 1)
	assert.Contains(t, texts[0], "20 000")
}

func TestAmountWithoutSelection(t *testing.T) {
	tg := &fakeTransport{memberStatus: "member"}
	accounts := &fakeAccounts{account: &domain.Account{ID: 7, Subscribed: true}}
	orders := &fakeOrders{}
	h := newTestHandler(tg, accounts, orders, &fakeReview{}, &fakeBroadcast{})

	h.HandleUpdate(context.Background(), userMessage("25000"))

	assert.Equal(t, 0, orders.createCalls)
	texts := tg.sentTexts()
	assert.Len(t, texts, 1)
	assert.Contains(t, texts[0], buttonExchange)
}

func TestInvalidAmount(t *testing.T) {
	currency := "USDT"
	method := "HUMO Card"
	tg := &fakeTransport{memberStatus: "member"}
	accounts := &fakeAccounts{account: &domain.Account{
		ID: 7, Subscribed: true, SelectedCurrency: &currency, SelectedMethod: &method,
	}}
	orders := &fakeOrders{}
	h := newTestHandler(tg, accounts, orders, &fakeReview{}, &fakeBroadcast{})

	h.HandleUpdate(context.Background(), userMessage("lots of money"))

	assert.Equal(t, 0, orders.createCalls)
	assert.Equal(t, []string{textInvalidAmount}, tg.sentTexts())
}

func TestProofForwardedForReview(t *testing.T) {
	tg := &fakeTransport{memberStatus: "member"}
	accounts := &fakeAccounts{account: &domain.Account{ID: 7, Subscribed: true}}
	orders := &fakeOrders{claimed: &domain.Order{ID: 1, AccountID: 7, Amount: 25000}}
	h := newTestHandler(tg, accounts, orders, &fakeReview{}, &fakeBroadcast{})

	upd := userMessage("")
	upd.Message.Photo = []telegram.PhotoSize{{FileID: "small"}, {FileID: "full"}}
	h.HandleUpdate(context.Background(), upd)

	texts := tg.sentTexts()
	assert.Len(t, texts, 1)
	assert.Contains(t, texts[0], "#1")

	assert.Len(t, tg.photos, 1)
	assert.Equal(t, adminID, tg.photos[0].ChatID)
	assert.Equal(t, "full", tg.photos[0].Photo)

	assert.Len(t, orders.reviewSet, 1)
	assert.Equal(t, int64(1), orders.reviewSet[0][0])
}

func TestProofWithoutOpenOrder(t *testing.T) {
	tg := &fakeTransport{memberStatus: "member"}
	accounts := &fakeAccounts{account: &domain.Account{ID: 7, Subscribed: true}}
	orders := &fakeOrders{claimErr: orderservice.ErrNoPendingOrder}
	h := newTestHandler(tg, accounts, orders, &fakeReview{}, &fakeBroadcast{})

	upd := userMessage("")
	upd.Message.Photo = []telegram.PhotoSize{{FileID: "full"}}
	h.HandleUpdate(context.Background(), upd)

	assert.Equal(t, []string{textProofUnmatched}, tg.sentTexts())
	assert.Empty(t, tg.photos)
}

func reviewCallback(data string) telegram.Update {
	return telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:   "cb-1",
		From: telegram.User{ID: adminID},
		Message: &telegram.Message{
			MessageID: 5,
			Chat:      telegram.Chat{ID: adminID},
		},
		Data: data,
	}}
}

func TestApproveNotifiesUser(t *testing.T) {
	tg := &fakeTransport{}
	orders := &fakeOrders{decided: &domain.Order{
		ID: 1, AccountID: 7, Amount: 25000, PayOutCurrency: "USDT", Status: "approved",
	}}
	h := newTestHandler(tg, &fakeAccounts{}, orders, &fakeReview{}, &fakeBroadcast{})

	h.HandleUpdate(context.Background(), reviewCallback("approve:1"))

	assert.Equal(t, []string{"✔️"}, tg.answers)

	assert.Len(t, tg.captionEdits, 1)
	assert.Equal(t, int64(5), tg.captionEdits[0].MessageID)
	assert.Contains(t, tg.captionEdits[0].Caption, "approved")

	texts := tg.sentTexts()
	assert.Len(t, texts, 1)
	assert.Contains(t, texts[0], "approved")
	assert.Equal(t, int64(7), tg.sent[0].ChatID)
}

func TestRepeatedDecisionReported(t *testing.T) {
	tg := &fakeTransport{}
	orders := &fakeOrders{
		decided:   &domain.Order{ID: 1, AccountID: 7, Status: "approved"},
		decideErr: orderservice.ErrAlreadyDecided,
	}
	h := newTestHandler(tg, &fakeAccounts{}, orders, &fakeReview{}, &fakeBroadcast{})

	h.HandleUpdate(context.Background(), reviewCallback("approve:1"))

	assert.Len(t, tg.answers, 1)
	assert.Contains(t, tg.answers[0], "already")
	assert.Empty(t, tg.sent)
	assert.Empty(t, tg.captionEdits)
}

func TestSelectionCallbacks(t *testing.T) {
	tg := &fakeTransport{}
	accounts := &fakeAccounts{}
	h := newTestHandler(tg, accounts, &fakeOrders{}, &fakeReview{}, &fakeBroadcast{})

	h.HandleUpdate(context.Background(), telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID: "cb-1", From: telegram.User{ID: 7}, Data: "currency:USDT",
	}})
	h.HandleUpdate(context.Background(), telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID: "cb-2", From: telegram.User{ID: 7}, Data: "method:HUMO Card",
	}})

	assert.Equal(t, []string{"USDT"}, accounts.currencySet)
	assert.Equal(t, []string{"HUMO Card"}, accounts.methodSet)

	texts := tg.sentTexts()
	assert.Len(t, texts, 2)
	assert.Equal(t, textPickMethod, texts[0])
	assert.Contains(t, texts[1], "20 000")
}

func TestAnnouncementFlow(t *testing.T) {
	tg := &fakeTransport{}
	accounts := &fakeAccounts{ids: []int64{7, 8, 9}}
	dispatcher := &fakeBroadcast{}
	h := newTestHandler(tg, accounts, &fakeOrders{}, &fakeReview{}, dispatcher)

	h.HandleUpdate(context.Background(), adminMessage(buttonAnnouncement))
	assert.Equal(t, StepAwaitAnnouncementText, h.sessions.Get(adminID).Step)

	h.HandleUpdate(context.Background(), adminMessage("big news"))
	assert.Equal(t, StepNone, h.sessions.Get(adminID).Step)

	assert.Eventually(t, func() bool {
		dispatcher.mu.Lock()
		defer dispatcher.mu.Unlock()
		return dispatcher.runs == 1
	}, time.Second, 10*time.Millisecond)

	dispatcher.mu.Lock()
	assert.Equal(t, []int64{7, 8, 9}, dispatcher.recipients)
	assert.Equal(t, "big news", dispatcher.payload.Text)
	dispatcher.mu.Unlock()

	assert.Eventually(t, func() bool {
		for _, text := range tg.sentTexts() {
			if strings.Contains(text, "finished") {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestAnnouncementCancelled(t *testing.T) {
	tg := &fakeTransport{}
	dispatcher := &fakeBroadcast{}
	h := newTestHandler(tg, &fakeAccounts{}, &fakeOrders{}, &fakeReview{}, dispatcher)

	h.HandleUpdate(context.Background(), adminMessage(buttonAnnouncement))
	h.HandleUpdate(context.Background(), adminMessage(buttonCancel))

	assert.Equal(t, StepNone, h.sessions.Get(adminID).Step)
	assert.Equal(t, 0, dispatcher.runs)
}

func TestPendingListForAdmin(t *testing.T) {
	tg := &fakeTransport{}
	review := &fakeReview{pending: []domain.Order{
		{ID: 1, AccountID: 7, Amount: 25000},
		{ID: 2, AccountID: 8, Amount: 60000},
	}}
	h := newTestHandler(tg, &fakeAccounts{}, &fakeOrders{}, review, &fakeBroadcast{})

	h.HandleUpdate(context.Background(), adminMessage(buttonPending))

	texts := tg.sentTexts()
	assert.Len(t, texts, 2)
	assert.Contains(t, texts[0], "Order #1")
	assert.Contains(t, texts[1], "Order #2")
}

func TestStatsForAdmin(t *testing.T) {
	tg := &fakeTransport{}
	accounts := &fakeAccounts{count: 42}
	review := &fakeReview{stats: &reviewservice.Stats{
		TodayTotal: 3, TodayApproved: 2, TodayAmount: 75000,
		WeekTotal: 10, WeekApproved: 8, WeekAmount: 450000,
	}}
	h := newTestHandler(tg, accounts, &fakeOrders{}, review, &fakeBroadcast{})

	h.HandleUpdate(context.Background(), adminMessage(buttonStats))

	texts := tg.sentTexts()
	assert.Len(t, texts, 1)
	assert.Contains(t, texts[0], "42")
	assert.Contains(t, texts[0], "450 000")
}
