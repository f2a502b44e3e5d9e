package memory

import (
	"context"
	"sync"
	"time"

	"github.com/leobui/alertflow/internal/domain"
)

type profileKey struct {
	tenant    domain.TenantID
	profileID string
}

type ProfileRepository struct {
	mu       sync.RWMutex
	profiles map[profileKey]domain.Profile
}

func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{profiles: make(map[profileKey]domain.Profile)}
}

func (r *ProfileRepository) Get(ctx context.Context, tenant domain.TenantID, profileID string) (*domain.Profile, error) {
	if err := domain.RequireTenant(tenant); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[profileKey{tenant: tenant, profileID: profileID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := profile
	clone.Channels = append([]domain.Channel(nil), profile.Channels...)
	clone.History = append([]domain.BehavioralEvent(nil), profile.History...)
	return &clone, nil
}

func (r *ProfileRepository) Upsert(ctx context.Context, tenant domain.TenantID, profile *domain.Profile) error {
	if err := domain.RequireTenant(tenant); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := profileKey{tenant: tenant, profileID: profile.ProfileID}
	now := time.Now()
	if existing, ok := r.profiles[key]; ok {
		if err := domain.GuardAppendOnly(existing.History, profile.History); err != nil {
			return err
		}
		profile.CreatedAt = existing.CreatedAt
	} else {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	profile.TenantID = tenant
	r.profiles[key] = *profile
	return nil
}

func (r *ProfileRepository) AppendHistory(ctx context.Context, tenant domain.TenantID, profileID string, events []domain.BehavioralEvent) error {
	if err := domain.RequireTenant(tenant); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := profileKey{tenant: tenant, profileID: profileID}
	profile, ok := r.profiles[key]
	if !ok {
		return domain.ErrNotFound
	}
	updated := append(append([]domain.BehavioralEvent(nil), profile.History...), events...)
	if err := domain.GuardAppendOnly(profile.History, updated); err != nil {
		return err
	}
	profile.History = updated
	profile.UpdatedAt = time.Now()
	r.profiles[key] = profile
	return nil
}
