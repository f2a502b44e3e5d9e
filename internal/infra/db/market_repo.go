package db

import (
	"context"
	"fmt"

	"github.com/leobui/alertflow/internal/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MarketStateRepository persists the per-symbol snapshot. Last write
// wins; there is no history.
type MarketStateRepository struct {
	db *gorm.DB
}

func NewMarketStateRepository(db *gorm.DB) *MarketStateRepository {
	return &MarketStateRepository{db: db}
}

func (r *MarketStateRepository) Set(ctx context.Context, state domain.MarketState) error {
	model := marketStateModel{
		Symbol:      state.Symbol,
		Price:       state.Price.String(),
		LastUpdated: state.LastUpdated,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{"price", "last_updated"}),
		}).
		Create(&model).Error
}

func (r *MarketStateRepository) Get(ctx context.Context, symbol string) (*domain.MarketState, error) {
	var model marketStateModel
	if err := r.db.WithContext(ctx).First(&model, "symbol = ?", symbol).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	price, err := decimal.NewFromString(model.Price)
	if err != nil {
		return nil, fmt.Errorf("stored snapshot %s: %w", symbol, err)
	}
	return &domain.MarketState{
		Symbol:      model.Symbol,
		Price:       price,
		LastUpdated: model.LastUpdated,
	}, nil
}
