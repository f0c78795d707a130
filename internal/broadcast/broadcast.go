package broadcast

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// snapshotEvery controls how often progress is reported and the pacing delay
// applied. Pacing only at snapshot boundaries bounds the added latency to
// len(recipients)/snapshotEvery * pace.
const snapshotEvery = 10

type Payload struct {
	Text     string
	ImageRef string
}

type SendFunc func(ctx context.Context, recipient int64, payload Payload) error

type ProgressFunc func(processed, sent, failed int)

type Report struct {
	Sent   int
	Failed int
}

// Dispatcher fans a payload out to a recipient list in input order. A failed
// send counts the recipient as failed and moves on: blocked and deleted chats
// are expected, never fatal to the run.
type Dispatcher struct {
	pace time.Duration
}

func New(pace time.Duration) *Dispatcher {
	return &Dispatcher{pace: pace}
}

func (d *Dispatcher) Run(ctx context.Context, recipients []int64, payload Payload, send SendFunc, progress ProgressFunc) Report {
	runID := uuid.NewString()
	zap.L().Info("broadcast started", zap.String("runID", runID), zap.Int("recipients", len(recipients)))

	var report Report
	for i, recipient := range recipients {
		if ctx.Err() != nil {
			zap.L().Warn("broadcast interrupted by shutdown", zap.String("runID", runID), zap.Int("processed", i))
			break
		}

		if err := send(ctx, recipient, payload); err != nil {
			report.Failed++
			zap.L().Warn("broadcast send failed", zap.String("runID", runID), zap.Int64("recipient", recipient), zap.Error(err))
		} else {
			report.Sent++
		}

		processed := i + 1
		if processed%snapshotEvery == 0 || processed == len(recipients) {
			if progress != nil {
				progress(processed, report.Sent, report.Failed)
			}
			if processed < len(recipients) {
				time.Sleep(d.pace)
			}
		}
	}

	zap.L().Info("broadcast finished",
		zap.String("runID", runID),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
	)
	return report
}
