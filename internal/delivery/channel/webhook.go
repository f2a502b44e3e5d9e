package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leobui/alertflow/internal/domain"
	"go.uber.org/zap"
)

const maxResponseBytes = 4 << 10

// WebhookAdapter posts rendered content to the destination URL carried
// by the payload. 4xx responses are permanent, everything else transient.
type WebhookAdapter struct {
	client *http.Client
	logger *zap.Logger
}

func NewWebhookAdapter(timeout time.Duration, logger *zap.Logger) *WebhookAdapter {
	return &WebhookAdapter{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (a *WebhookAdapter) Send(ctx context.Context, payload domain.DispatchPayload) (string, error) {
	destination := strings.TrimSpace(payload.Destination)
	if !strings.HasPrefix(destination, "http://") && !strings.HasPrefix(destination, "https://") {
		return "", &PermanentError{Err: fmt.Errorf("invalid webhook destination %q", destination)}
	}

	body, err := json.Marshal(map[string]string{
		"occurrence": payload.Occurrence.String(),
		"content":    payload.RenderedContent,
	})
	if err != nil {
		return "", &PermanentError{Err: err}
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(body))
	if err != nil {
		return "", &PermanentError{Err: err}
	}
	request.Header.Set("Content-Type", "application/json")

	start := time.Now()
	response, err := a.client.Do(request)
	if err != nil {
		a.logger.Warn("webhook send failed", zap.String("destination", destination), zap.Error(err))
		return "", err
	}
	defer response.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	a.logger.Info("webhook send complete",
		zap.String("destination", destination),
		zap.Int("status", response.StatusCode),
		zap.Duration("duration", time.Since(start)))

	switch {
	case response.StatusCode >= 200 && response.StatusCode < 300:
		return string(raw), nil
	case response.StatusCode >= 400 && response.StatusCode < 500:
		return string(raw), &PermanentError{Err: fmt.Errorf("webhook rejected: status %d", response.StatusCode)}
	default:
		return string(raw), fmt.Errorf("webhook error: status %d", response.StatusCode)
	}
}
