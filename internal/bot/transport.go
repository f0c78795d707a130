package bot

import (
	"context"
	"time"

	"github.com/otabekdev/exchangebot/internal/broadcast"
	"github.com/otabekdev/exchangebot/internal/domain"
	reviewservice "github.com/otabekdev/exchangebot/internal/service/reviewservice"
	"github.com/otabekdev/exchangebot/internal/telegram"
)

// Transport is the slice of the bot API the handler talks through.
type Transport interface {
	SendMessage(ctx context.Context, req telegram.SendMessageRequest) (*telegram.Message, error)
	SendPhoto(ctx context.Context, req telegram.SendPhotoRequest) (*telegram.Message, error)
	EditMessageText(ctx context.Context, req telegram.EditMessageTextRequest) error
	EditMessageCaption(ctx context.Context, req telegram.EditMessageCaptionRequest) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
	GetChatMember(ctx context.Context, chatID string, userID int64) (string, error)
}

type OrderService interface {
	Create(ctx context.Context, accountID int64, payInMethod, payOutCurrency string, amount float64) (*domain.Order, error)
	AttachProof(ctx context.Context, accountID int64, proofRef string) (*domain.Order, error)
	SetReviewMessage(ctx context.Context, orderID, messageID int64) error
	Decide(ctx context.Context, orderID int64, approve bool) (*domain.Order, error)
	Get(ctx context.Context, orderID int64) (*domain.Order, error)
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]domain.Order, error)
}

type ReviewService interface {
	PendingOrders(ctx context.Context, limit int) ([]domain.Order, error)
	Stats(ctx context.Context, now time.Time) (*reviewservice.Stats, error)
}

type AccountRepo interface {
	Upsert(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindByID(ctx context.Context, accountID int64) (*domain.Account, error)
	SetSubscribed(ctx context.Context, accountID int64, subscribed bool) error
	SetSelectedCurrency(ctx context.Context, accountID int64, currency string) error
	SetSelectedMethod(ctx context.Context, accountID int64, method string) error
	ListIDs(ctx context.Context) ([]int64, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Account, error)
	Count(ctx context.Context) (int, error)
}

type Broadcaster interface {
	Run(ctx context.Context, recipients []int64, payload broadcast.Payload, send broadcast.SendFunc, progress broadcast.ProgressFunc) broadcast.Report
}
