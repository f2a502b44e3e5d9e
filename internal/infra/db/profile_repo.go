package db

import (
	"context"

	"github.com/leobui/alertflow/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Get(ctx context.Context, tenant domain.TenantID, profileID string) (*domain.Profile, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		return nil, err
	}
	var model profileModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND profile_id = ?", tenant, profileID).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return mapProfileToDomain(model), nil
}

func (r *ProfileRepository) Upsert(ctx context.Context, tenant domain.TenantID, profile *domain.Profile) error {
	if err := domain.RequireTenant(tenant); err != nil {
		return err
	}

	// The rolling history is append-only; an upsert that would shrink it
	// is rejected before anything is written.
	existing, err := r.Get(ctx, tenant, profile.ProfileID)
	if err != nil && err != domain.ErrNotFound {
		return err
	}
	if existing != nil {
		if err := domain.GuardAppendOnly(existing.History, profile.History); err != nil {
			return err
		}
	}

	model := mapProfileToModel(tenant, *profile)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "profile_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"first_name", "last_name", "email", "channels", "history", "updated_at",
			}),
		}).
		Create(&model).Error; err != nil {
		return err
	}
	profile.CreatedAt = model.CreatedAt
	profile.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *ProfileRepository) AppendHistory(ctx context.Context, tenant domain.TenantID, profileID string, events []domain.BehavioralEvent) error {
	if err := domain.RequireTenant(tenant); err != nil {
		return err
	}

	profile, err := r.Get(ctx, tenant, profileID)
	if err != nil {
		return err
	}
	updated := append(profile.History, events...)
	if err := domain.GuardAppendOnly(profile.History, updated); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&profileModel{}).
		Where("tenant_id = ? AND profile_id = ?", tenant, profileID).
		Update("history", updated).Error
}

func mapProfileToDomain(model profileModel) *domain.Profile {
	return &domain.Profile{
		ProfileID: model.ProfileID,
		TenantID:  model.TenantID,
		FirstName: model.FirstName,
		LastName:  model.LastName,
		Email:     model.Email,
		Channels:  model.Channels,
		History:   model.History,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func mapProfileToModel(tenant domain.TenantID, profile domain.Profile) profileModel {
	return profileModel{
		TenantID:  tenant,
		ProfileID: profile.ProfileID,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Email:     profile.Email,
		Channels:  profile.Channels,
		History:   profile.History,
	}
}
