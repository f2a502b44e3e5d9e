package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGuardAppendOnly(t *testing.T) {
	event := func(id string) BehavioralEvent {
		return BehavioralEvent{EventType: "viewed", EntityType: "asset", EntityID: id, OccurredAt: time.Now()}
	}

	old := []BehavioralEvent{event("a"), event("b")}

	assert.NoError(t, GuardAppendOnly(old, []BehavioralEvent{event("a"), event("b"), event("c")}))
	assert.NoError(t, GuardAppendOnly(old, old))
	assert.NoError(t, GuardAppendOnly(nil, old))
	assert.ErrorIs(t, GuardAppendOnly(old, []BehavioralEvent{event("a")}), ErrHistoryShrink)
	assert.ErrorIs(t, GuardAppendOnly(old, nil), ErrHistoryShrink)
}

func TestProfileConsented(t *testing.T) {
	profile := Profile{Channels: []Channel{ChannelEmail, ChannelWebhook}}

	assert.True(t, profile.Consented(ChannelEmail))
	assert.True(t, profile.Consented(ChannelWebhook))
	assert.False(t, profile.Consented(ChannelWebPush))
}
