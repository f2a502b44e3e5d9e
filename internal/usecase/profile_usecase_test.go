package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/leobui/alertflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnboardTenant(t *testing.T) {
	env := newTestEnv(t)
	uc := NewProfileUsecase(env.tenants, env.profiles)

	tenant, err := uc.OnboardTenant(context.Background(), "  acme corp  ")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, tenant.ID)
	assert.Equal(t, "acme corp", tenant.Name)
	assert.Equal(t, domain.TenantActive, tenant.Status)

	_, err = uc.OnboardTenant(context.Background(), "   ")
	assert.Error(t, err)
}

func TestSetConsent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.addProfile(t, "profile-1", domain.ChannelEmail)
	uc := NewProfileUsecase(env.tenants, env.profiles)

	require.NoError(t, uc.SetConsent(ctx, env.tenant, "profile-1", domain.ChannelWebhook, true))
	profile, err := env.profiles.Get(ctx, env.tenant, "profile-1")
	require.NoError(t, err)
	assert.True(t, profile.Consented(domain.ChannelEmail))
	assert.True(t, profile.Consented(domain.ChannelWebhook))

	require.NoError(t, uc.SetConsent(ctx, env.tenant, "profile-1", domain.ChannelEmail, false))
	profile, err = env.profiles.Get(ctx, env.tenant, "profile-1")
	require.NoError(t, err)
	assert.False(t, profile.Consented(domain.ChannelEmail))
	assert.True(t, profile.Consented(domain.ChannelWebhook))

	// revoking twice is harmless
	require.NoError(t, uc.SetConsent(ctx, env.tenant, "profile-1", domain.ChannelEmail, false))

	assert.ErrorIs(t, uc.SetConsent(ctx, env.tenant, "nobody", domain.ChannelEmail, true), ErrProfileNotFound)
	assert.ErrorIs(t, uc.SetConsent(ctx, uuid.Nil, "profile-1", domain.ChannelEmail, true), domain.ErrTenantRequired)
}
