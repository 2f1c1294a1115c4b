// internal/repository/organization_repo.go
package repository

import (
	"context"

	"fleetfuel/internal/domain"

	"github.com/google/uuid"
)

// OrganizationRepository defines the interface for organization data operations.
type OrganizationRepository interface {
	// CreateOrganization adds a new organization using the provided DBExecutor.
	CreateOrganization(ctx context.Context, q DBExecutor, org *domain.Organization) error
	// GetOrganizationByID retrieves an organization by its ID.
	GetOrganizationByID(ctx context.Context, q DBExecutor, id uuid.UUID) (*domain.Organization, error)
}
