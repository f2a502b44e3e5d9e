package domain

import (
	"fmt"
	"time"
)

type DeliveryStatus string

const (
	// DeliveryAttempted is the durable-intent state written before the
	// external channel call. A record stuck here means the process died
	// mid-dispatch and is picked up by the recovery sweep.
	DeliveryAttempted       DeliveryStatus = "ATTEMPTED"
	DeliverySent            DeliveryStatus = "SENT"
	DeliverySkipped         DeliveryStatus = "SKIPPED"
	DeliveryFailed          DeliveryStatus = "FAILED"
	DeliveryFailedPermanent DeliveryStatus = "FAILED_PERMANENT"
)

// Terminal reports whether the status is final for its record.
func (s DeliveryStatus) Terminal() bool {
	return s != DeliveryAttempted
}

// Delivered reports whether the occurrence reached the profile, which is
// what the dedupe check cares about: failed attempts may be retried as
// new rows, delivered ones must never be resent.
func (s DeliveryStatus) Delivered() bool {
	return s == DeliverySent || s == DeliverySkipped
}

// OccurrenceKey identifies one logical notification opportunity.
type OccurrenceKey struct {
	SourceID  string  `json:"source_id"` // rule or event identity
	ProfileID string  `json:"profile_id"`
	Channel   Channel `json:"channel"`
}

func (k OccurrenceKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.SourceID, k.ProfileID, k.Channel)
}

// DeliveryRecord is append-only: a retry or correction is a new row,
// never an edit of history. Each record is updated exactly once, from
// ATTEMPTED to its final status.
type DeliveryRecord struct {
	ID               int64
	TenantID         TenantID
	Occurrence       OccurrenceKey
	Status           DeliveryStatus
	ProviderResponse string
	AttemptedAt      time.Time
	CompletedAt      *time.Time
}

// DispatchPayload is the unit handed to channel adapters.
type DispatchPayload struct {
	TenantID        TenantID      `json:"tenant_id"`
	Occurrence      OccurrenceKey `json:"occurrence"`
	ProfileID       string        `json:"profile_id"`
	Channel         Channel       `json:"channel"`
	Destination     string        `json:"destination"`
	RenderedContent string        `json:"rendered_content"`
}
