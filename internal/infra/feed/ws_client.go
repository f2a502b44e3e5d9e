package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/leobui/alertflow/internal/domain"
	"go.uber.org/zap"
)

type WSFactory struct {
	url         string
	dialer      *websocket.Dialer
	readTimeout time.Duration
	logger      *zap.Logger
}

func NewWSFactory(url string, readTimeout time.Duration, logger *zap.Logger) *WSFactory {
	return &WSFactory{
		url: url,
		dialer: &websocket.Dialer{
			Proxy: http.ProxyFromEnvironment,
		},
		readTimeout: readTimeout,
		logger:      logger,
	}
}

func (f *WSFactory) Connect(ctx context.Context) (domain.FeedClient, error) {
	f.logger.Info("feed connect start", zap.String("url", f.url))
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		f.logger.Error("feed connect failed", zap.String("url", f.url), zap.Error(err))
		return nil, err
	}
	f.logger.Info("feed connect success", zap.String("url", f.url))
	return &WSClient{conn: conn, readTimeout: f.readTimeout, logger: f.logger}, nil
}

type WSClient struct {
	conn        *websocket.Conn
	readTimeout time.Duration
	logger      *zap.Logger
}

func (c *WSClient) Subscribe(ctx context.Context, symbols []string) error {
	payload := map[string]any{
		"type":    "subscribe",
		"symbols": symbols,
	}
	c.logger.Info("feed subscribe", zap.Strings("symbols", symbols))
	if err := c.conn.WriteJSON(payload); err != nil {
		c.logger.Error("feed subscribe failed", zap.Error(err))
		return err
	}
	return nil
}

func (c *WSClient) Receive(ctx context.Context) (*domain.StateChange, error) {
	if c.readTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	change, err := decodeTick(data)
	if err != nil {
		c.logger.Debug("feed message ignored", zap.Error(err))
		return nil, nil
	}
	return change, nil
}

func (c *WSClient) Close() error {
	c.logger.Info("feed close")
	return c.conn.Close()
}

func decodeTick(data []byte) (*domain.StateChange, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty message")
	}

	var payload tickMessage
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, fmt.Errorf("decode feed message: %w", err)
	}
	if payload.EventType != "tick" || payload.Symbol == "" || !payload.Price.Valid {
		return nil, fmt.Errorf("not a tick")
	}

	observedAt := time.Now()
	if payload.ObservedAt != nil {
		observedAt = *payload.ObservedAt
	}
	return &domain.StateChange{
		Symbol:     payload.Symbol,
		Value:      payload.Price.Decimal,
		ObservedAt: observedAt,
	}, nil
}
