package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Instrument struct {
	ID        int64
	TenantID  *TenantID // nil for globally visible instruments
	Symbol    string
	Name      string
	Type      string
	Sector    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MarketState is the single current snapshot for one symbol,
// last-write-wins. History is an external collaborator's concern.
type MarketState struct {
	Symbol      string
	Price       decimal.Decimal
	LastUpdated time.Time
}

// StateChange is one tick from the ingestion feed.
type StateChange struct {
	Symbol     string
	Value      decimal.Decimal
	ObservedAt time.Time
}

type FeedClient interface {
	Subscribe(ctx context.Context, symbols []string) error
	Receive(ctx context.Context) (*StateChange, error)
	Close() error
}

type FeedFactory interface {
	Connect(ctx context.Context) (FeedClient, error)
}
