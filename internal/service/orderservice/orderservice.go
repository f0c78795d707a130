package orderservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/otabekdev/exchangebot/internal/config"
	"github.com/otabekdev/exchangebot/internal/domain"
	"go.uber.org/zap"
)

type Repo interface {
	Save(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, orderID int64) (*domain.Order, error)
	FindByAccountID(ctx context.Context, accountID int64, limit int) ([]domain.Order, error)
	FindPending(ctx context.Context, limit int) ([]domain.Order, error)
	ClaimForProof(ctx context.Context, accountID int64, proofRef string) (*domain.Order, error)
	SetReviewMessageID(ctx context.Context, orderID, messageID int64) error
	Decide(ctx context.Context, orderID int64, status string) (order *domain.Order, applied bool, err error)
}

type AccountRepo interface {
	ClearSelection(ctx context.Context, accountID int64) error
}

type FeeCalculator interface {
	Fee(amount float64, currency string) (float64, error)
}

const (
	// PendingStatus order awaits the operator's decision;
	PendingStatus string = "pending"
	// ApprovedStatus terminal, the payout amount has been credited;
	ApprovedStatus string = "approved"
	// RejectedStatus terminal, no balance change.
	RejectedStatus string = "rejected"
)

var (
	ErrBelowMinimum   = errors.New("amount below minimum")
	ErrUnknownMethod  = errors.New("unknown payment method")
	ErrOrderNotFound  = errors.New("order not found")
	ErrAlreadyDecided = errors.New("order already decided")
	ErrNoPendingOrder = errors.New("no pending order without proof")
)

type Service struct {
	repo     Repo
	accounts AccountRepo
	fees     FeeCalculator

	minAmount float64
	methods   map[string]config.PaymentMethod
}

func New(repo Repo, accounts AccountRepo, fees FeeCalculator, cfg config.Exchange) *Service {
	return &Service{
		repo:      repo,
		accounts:  accounts,
		fees:      fees,
		minAmount: cfg.MinAmount,
		methods:   cfg.PaymentMethods,
	}
}

// Create validates the requested payout amount, computes the fee, snapshots
// the payment channel's details and persists a pending order. The account's
// currency+method selection is cleared so the next numeric message is not
// interpreted as another order.
func (s *Service) Create(ctx context.Context, accountID int64, payInMethod, payOutCurrency string, amount float64) (*domain.Order, error) {
	if amount < s.minAmount {
		return nil, ErrBelowMinimum
	}

	method, ok := s.methods[payInMethod]
	if !ok {
		zap.L().Warn("order for unknown payment method", zap.String("method", payInMethod))
		return nil, ErrUnknownMethod
	}

	fee, err := s.fees.Fee(amount, payOutCurrency)
	if err != nil {
		zap.L().Error("can't compute fee", zap.String("currency", payOutCurrency), zap.Error(err))
		return nil, err
	}

	details := method.Details
	if method.Owner != "" {
		details = fmt.Sprintf("%s (%s)", method.Details, method.Owner)
	}

	order := &domain.Order{
		AccountID:      accountID,
		PayInMethod:    payInMethod,
		PayOutCurrency: payOutCurrency,
		Amount:         amount,
		Fee:            fee,
		TotalPayable:   amount + fee,
		PaymentDetails: details,
		Status:         PendingStatus,
		CreatedAt:      time.Now(),
	}

	if err := s.repo.Save(ctx, order); err != nil {
		zap.L().Error("can't save order", zap.Error(err))
		return nil, err
	}

	if err := s.accounts.ClearSelection(ctx, accountID); err != nil {
		zap.L().Error("can't clear account selection", zap.Int64("accountID", accountID), zap.Error(err))
	}

	return order, nil
}

// AttachProof claims the account's oldest pending order that has no proof yet
// and records the payment evidence on it. The claim is a single conditional
// update, so two submissions in quick succession land on two distinct orders.
func (s *Service) AttachProof(ctx context.Context, accountID int64, proofRef string) (*domain.Order, error) {
	order, err := s.repo.ClaimForProof(ctx, accountID, proofRef)
	if err != nil {
		zap.L().Error("can't attach proof", zap.Int64("accountID", accountID), zap.Error(err))
		return nil, err
	}
	if order == nil {
		zap.L().Info("proof without matching order dropped", zap.Int64("accountID", accountID))
		return nil, ErrNoPendingOrder
	}
	return order, nil
}

func (s *Service) SetReviewMessage(ctx context.Context, orderID, messageID int64) error {
	return s.repo.SetReviewMessageID(ctx, orderID, messageID)
}

// Decide applies the terminal operator decision. Approval flips the status
// and credits the account balance in one transaction; the conditional update
// guarantees a duplicate or concurrent call observes ErrAlreadyDecided and
// leaves the balance alone.
func (s *Service) Decide(ctx context.Context, orderID int64, approve bool) (*domain.Order, error) {
	status := RejectedStatus
	if approve {
		status = ApprovedStatus
	}

	order, applied, err := s.repo.Decide(ctx, orderID, status)
	if err != nil {
		zap.L().Error("can't decide order", zap.Int64("orderID", orderID), zap.Error(err))
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !applied {
		zap.L().Info("repeated decision ignored", zap.Int64("orderID", orderID), zap.String("status", order.Status))
		return order, ErrAlreadyDecided
	}

	zap.L().Info("order decided",
		zap.Int64("orderID", orderID),
		zap.String("status", status),
		zap.Float64("amount", order.Amount),
	)
	return order, nil
}

func (s *Service) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) ListByAccount(ctx context.Context, accountID int64, limit int) ([]domain.Order, error) {
	return s.repo.FindByAccountID(ctx, accountID, limit)
}

func (s *Service) ListPending(ctx context.Context, limit int) ([]domain.Order, error) {
	return s.repo.FindPending(ctx, limit)
}
