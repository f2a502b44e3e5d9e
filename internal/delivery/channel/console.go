package channel

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/leobui/alertflow/internal/domain"
	"go.uber.org/zap"
)

// ConsoleAdapter logs deliveries instead of sending them. It stands in
// for provider-backed channels in development and returns a synthetic
// provider id so the audit path stays realistic.
type ConsoleAdapter struct {
	logger *zap.Logger
}

func NewConsoleAdapter(logger *zap.Logger) *ConsoleAdapter {
	return &ConsoleAdapter{logger: logger}
}

func (a *ConsoleAdapter) Send(ctx context.Context, payload domain.DispatchPayload) (string, error) {
	a.logger.Info("console delivery",
		zap.String("channel", string(payload.Channel)),
		zap.String("destination", payload.Destination),
		zap.String("content", payload.RenderedContent))
	return fmt.Sprintf(`{"mock_id":%q}`, uuid.NewString()), nil
}
