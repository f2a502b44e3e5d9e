package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TenantID is the isolation boundary for every scoped operation.
type TenantID = uuid.UUID

var (
	ErrTenantRequired = errors.New("tenant context required")
	ErrNotFound       = errors.New("not found")
)

type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
)

type Tenant struct {
	ID        TenantID
	Name      string
	Status    TenantStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RequireTenant fails closed: scoped reads and writes must never fall
// through to cross-tenant data when the caller supplies no tenant.
func RequireTenant(id TenantID) error {
	if id == uuid.Nil {
		return ErrTenantRequired
	}
	return nil
}
