package db

import (
	"context"

	"github.com/leobui/alertflow/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InstrumentRepository struct {
	db *gorm.DB
}

func NewInstrumentRepository(db *gorm.DB) *InstrumentRepository {
	return &InstrumentRepository{db: db}
}

func (r *InstrumentRepository) Upsert(ctx context.Context, tenant domain.TenantID, instrument *domain.Instrument) error {
	if err := domain.RequireTenant(tenant); err != nil {
		return err
	}
	tenantID := tenant
	model := instrumentModel{
		TenantID: &tenantID,
		Symbol:   instrument.Symbol,
		Name:     instrument.Name,
		Type:     instrument.Type,
		Sector:   instrument.Sector,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "type", "sector", "updated_at"}),
		}).
		Create(&model).Error; err != nil {
		return err
	}
	instrument.ID = model.ID
	instrument.TenantID = model.TenantID
	return nil
}

func (r *InstrumentRepository) GetBySymbol(ctx context.Context, tenant domain.TenantID, symbol string) (*domain.Instrument, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		return nil, err
	}
	var model instrumentModel
	// Tenant-private instruments take precedence over global ones.
	if err := r.db.WithContext(ctx).
		Where("symbol = ? AND (tenant_id = ? OR tenant_id IS NULL)", symbol, tenant).
		Order("tenant_id NULLS LAST").
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &domain.Instrument{
		ID:        model.ID,
		TenantID:  model.TenantID,
		Symbol:    model.Symbol,
		Name:      model.Name,
		Type:      model.Type,
		Sector:    model.Sector,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}
