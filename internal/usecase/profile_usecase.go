package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/leobui/alertflow/internal/domain"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileUsecase struct {
	tenants  domain.TenantRepository
	profiles domain.ProfileRepository
}

func NewProfileUsecase(tenants domain.TenantRepository, profiles domain.ProfileRepository) *ProfileUsecase {
	return &ProfileUsecase{tenants: tenants, profiles: profiles}
}

// OnboardTenant creates a tenant with an immutable identity.
func (u *ProfileUsecase) OnboardTenant(ctx context.Context, name string) (*domain.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("tenant name is required")
	}
	tenant := &domain.Tenant{
		ID:     uuid.New(),
		Name:   name,
		Status: domain.TenantActive,
	}
	if err := u.tenants.Create(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

func (u *ProfileUsecase) UpsertProfile(ctx context.Context, tenant domain.TenantID, profile *domain.Profile) error {
	if err := domain.RequireTenant(tenant); err != nil {
		return err
	}
	profile.TenantID = tenant
	return u.profiles.Upsert(ctx, tenant, profile)
}

// SetConsent toggles a channel in the profile's consented set. The
// dispatcher only ever sees jobs for consented channels, built at
// candidate-emission time.
func (u *ProfileUsecase) SetConsent(ctx context.Context, tenant domain.TenantID, profileID string, ch domain.Channel, allowed bool) error {
	if err := domain.RequireTenant(tenant); err != nil {
		return err
	}

	profile, err := u.profiles.Get(ctx, tenant, profileID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrProfileNotFound
		}
		return err
	}

	channels := make([]domain.Channel, 0, len(profile.Channels)+1)
	for _, existing := range profile.Channels {
		if existing != ch {
			channels = append(channels, existing)
		}
	}
	if allowed {
		channels = append(channels, ch)
	}
	profile.Channels = channels
	return u.profiles.Upsert(ctx, tenant, profile)
}
