package feed

import (
	"context"
	"time"

	"github.com/leobui/alertflow/internal/domain"
	"go.uber.org/zap"
)

// Ingestor is the evaluator-side sink for feed ticks.
type Ingestor interface {
	Ingest(ctx context.Context, change domain.StateChange) error
}

// Runner keeps one feed connection alive, reconnecting with backoff
// when the stream drops, and forwards every tick to the ingestor.
type Runner struct {
	factory       domain.FeedFactory
	ingestor      Ingestor
	symbols       []string
	reconnectWait time.Duration
	logger        *zap.Logger
}

func NewRunner(factory domain.FeedFactory, ingestor Ingestor, symbols []string, reconnectWait time.Duration, logger *zap.Logger) *Runner {
	if reconnectWait <= 0 {
		reconnectWait = time.Second
	}
	return &Runner{
		factory:       factory,
		ingestor:      ingestor,
		symbols:       symbols,
		reconnectWait: reconnectWait,
		logger:        logger,
	}
}

// Run blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	if len(r.symbols) == 0 {
		r.logger.Info("feed runner idle, no symbols configured")
		<-ctx.Done()
		return
	}

	wait := r.reconnectWait
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := r.runOnce(ctx); err != nil {
			r.logger.Error("feed stream ended", zap.Error(err), zap.Duration("retry_in", wait))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		wait *= 2
		if wait > time.Minute {
			wait = time.Minute
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) error {
	client, err := r.factory.Connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	go func() {
		<-ctx.Done()
		_ = client.Close()
	}()

	if err := client.Subscribe(ctx, r.symbols); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		change, err := client.Receive(ctx)
		if err != nil {
			return err
		}
		if change == nil {
			continue
		}
		if err := r.ingestor.Ingest(ctx, *change); err != nil {
			r.logger.Warn("tick ingest failed", zap.String("symbol", change.Symbol), zap.Error(err))
		}
	}
}
