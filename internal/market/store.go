// Package market holds the last-write-wins snapshot of every monitored
// symbol. High-frequency updates overwrite in place; historization is an
// external collaborator's concern.
package market

import (
	"context"
	"sync"

	"github.com/leobui/alertflow/internal/domain"
)

type Store struct {
	mu     sync.RWMutex
	states map[string]domain.MarketState
}

func NewStore() *Store {
	return &Store{states: make(map[string]domain.MarketState)}
}

func (s *Store) Set(ctx context.Context, state domain.MarketState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.Symbol] = state
	return nil
}

func (s *Store) Get(ctx context.Context, symbol string) (*domain.MarketState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[symbol]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}
