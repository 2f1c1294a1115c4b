// internal/domain/organization.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrganizationStatus defines the lifecycle state of a fleet organization.
type OrganizationStatus string

const (
	OrganizationStatusActive    OrganizationStatus = "ACTIVE"
	OrganizationStatusSuspended OrganizationStatus = "SUSPENDED"
	OrganizationStatusClosed    OrganizationStatus = "CLOSED"
)

// Organization owns a prepaid balance and a set of fuel cards.
type Organization struct {
	ID        uuid.UUID          `db:"id" json:"id"`
	Name      string             `db:"name" json:"name"`
	Status    OrganizationStatus `db:"status" json:"status"`
	Timezone  *string            `db:"timezone" json:"timezone,omitempty"` // IANA name, drives period keys
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt time.Time          `db:"updated_at" json:"updated_at"`
}

// NewOrganization creates a new active Organization instance.
func NewOrganization(name, timezone string) *Organization {
	now := time.Now().UTC()
	org := &Organization{
		ID:        uuid.New(),
		Name:      name,
		Status:    OrganizationStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if timezone != "" {
		org.Timezone = &timezone
	}
	return org
}

// TimezoneName returns the organization's timezone, or UTC when none is set.
func (o *Organization) TimezoneName() string {
	if o.Timezone == nil || *o.Timezone == "" {
		return DefaultTimezone
	}
	return *o.Timezone
}

// IsActive reports whether cards of this organization may transact.
func (o *Organization) IsActive() bool {
	return o.Status == OrganizationStatusActive
}
