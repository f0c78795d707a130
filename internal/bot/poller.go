package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/otabekdev/exchangebot/internal/telegram"
)

const pollRetryDelay = 3 * time.Second

type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]telegram.Update, error)
}

type DedupStore interface {
	FirstSeen(ctx context.Context, updateID int64) (bool, error)
}

// Poller pulls updates off the long-poll endpoint and feeds them to the
// handler one at a time. The dedup store is optional: without it a
// redelivered update is processed again, which the handlers tolerate.
type Poller struct {
	source  UpdateSource
	handler *Handler
	dedup   DedupStore
	timeout int
}

func NewPoller(source UpdateSource, handler *Handler, dedup DedupStore, timeoutSec int) *Poller {
	return &Poller{
		source:  source,
		handler: handler,
		dedup:   dedup,
		timeout: timeoutSec,
	}
}

func (p *Poller) Run(ctx context.Context) error {
	zap.L().Info("poller started", zap.Int("timeoutSec", p.timeout))

	var offset int64
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("poller stopped")
			return nil
		default:
		}

		updates, err := p.source.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				zap.L().Info("poller stopped")
				return nil
			}
			zap.L().Error("can't poll updates", zap.Error(err))
			time.Sleep(pollRetryDelay)
			continue
		}

		for _, upd := range updates {
			offset = upd.UpdateID + 1

			if p.dedup != nil {
				first, err := p.dedup.FirstSeen(ctx, upd.UpdateID)
				if err != nil {
					// degraded dedup is not worth dropping the update
					zap.L().Warn("dedup check failed", zap.Int64("updateID", upd.UpdateID), zap.Error(err))
				} else if !first {
					zap.L().Debug("duplicate update skipped", zap.Int64("updateID", upd.UpdateID))
					continue
				}
			}

			p.handler.HandleUpdate(ctx, upd)
		}
	}
}
