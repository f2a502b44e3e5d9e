package domain

import (
	"errors"
	"time"
)

var ErrHistoryShrink = errors.New("append-only history cannot shrink")

type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelWebPush Channel = "web_push"
	ChannelWebhook Channel = "webhook"
)

// BehavioralEvent is one entry in a profile's rolling history.
type BehavioralEvent struct {
	EventType  string
	EntityType string
	EntityID   string
	Sentiment  int
	OccurredAt time.Time
}

type Profile struct {
	ProfileID string
	TenantID  TenantID
	FirstName string
	LastName  string
	Email     string
	// Channels holds the channels the profile has consented to.
	Channels  []Channel
	History   []BehavioralEvent
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Profile) Consented(channel Channel) bool {
	for _, c := range p.Channels {
		if c == channel {
			return true
		}
	}
	return false
}

// GuardAppendOnly rejects any update that would shrink a historical
// collection. Repositories call it before replacing a stored history.
func GuardAppendOnly(old, updated []BehavioralEvent) error {
	if len(updated) < len(old) {
		return ErrHistoryShrink
	}
	return nil
}
