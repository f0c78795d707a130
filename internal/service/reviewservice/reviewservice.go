package reviewservice

import (
	"context"
	"time"

	"github.com/otabekdev/exchangebot/internal/domain"
	"github.com/otabekdev/exchangebot/internal/service/orderservice"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultPendingLimit = 20

type OrderRepo interface {
	FindPending(ctx context.Context, limit int) ([]domain.Order, error)
	CountAll(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status string) (int, error)
	CountInWindow(ctx context.Context, status string, since, until time.Time) (int, error)
	SumAmountInWindow(ctx context.Context, status string, since, until time.Time) (float64, error)
}

// Service is the operator-facing read side over the order store: the triage
// backlog and the counters behind the stats screen. It never writes.
type Service struct {
	repo OrderRepo
}

func New(repo OrderRepo) *Service {
	return &Service{repo: repo}
}

// PendingOrders returns the review backlog oldest first, so operators work
// through it FIFO. A non-positive limit falls back to the default page size.
func (s *Service) PendingOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = defaultPendingLimit
	}
	orders, err := s.repo.FindPending(ctx, limit)
	if err != nil {
		zap.L().Error("failed to list pending orders", zap.Error(err))
		return nil, err
	}
	return orders, nil
}

func (s *Service) CountAll(ctx context.Context) (int, error) {
	return s.repo.CountAll(ctx)
}

func (s *Service) CountByStatus(ctx context.Context, status string) (int, error) {
	return s.repo.CountByStatus(ctx, status)
}

func (s *Service) CountInWindow(ctx context.Context, status string, since, until time.Time) (int, error) {
	return s.repo.CountInWindow(ctx, status, since, until)
}

type Stats struct {
	TodayTotal    int
	TodayApproved int
	TodayAmount   float64
	WeekTotal     int
	WeekApproved  int
	WeekAmount    float64
}

// Stats gathers today's and the trailing week's counters. The windows are
// computed here from the passed clock value; the repository itself performs
// no calendar logic.
func (s *Service) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := now.AddDate(0, 0, -7)

	var stats Stats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.repo.CountInWindow(gctx, "", dayStart, now)
		stats.TodayTotal = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountInWindow(gctx, orderservice.ApprovedStatus, dayStart, now)
		stats.TodayApproved = n
		return err
	})
	g.Go(func() error {
		sum, err := s.repo.SumAmountInWindow(gctx, orderservice.ApprovedStatus, dayStart, now)
		stats.TodayAmount = sum
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountInWindow(gctx, "", weekStart, now)
		stats.WeekTotal = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountInWindow(gctx, orderservice.ApprovedStatus, weekStart, now)
		stats.WeekApproved = n
		return err
	})
	g.Go(func() error {
		sum, err := s.repo.SumAmountInWindow(gctx, orderservice.ApprovedStatus, weekStart, now)
		stats.WeekAmount = sum
		return err
	})

	if err := g.Wait(); err != nil {
		zap.L().Error("failed to gather stats", zap.Error(err))
		return nil, err
	}
	return &stats, nil
}
