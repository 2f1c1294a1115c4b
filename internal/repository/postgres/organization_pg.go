// internal/repository/postgres/organization_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fleetfuel/internal/domain"
	"fleetfuel/internal/repository"
	"fleetfuel/internal/util"

	"github.com/google/uuid"
)

// OrganizationRepository implements repository.OrganizationRepository for PostgreSQL.
type OrganizationRepository struct{}

// NewOrganizationRepository creates a new OrganizationRepository.
func NewOrganizationRepository() repository.OrganizationRepository {
	return &OrganizationRepository{}
}

// CreateOrganization inserts a new organization using the provided DBExecutor.
func (r *OrganizationRepository) CreateOrganization(ctx context.Context, q repository.DBExecutor, org *domain.Organization) error {
	query := `INSERT INTO organizations (id, name, status, timezone, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := q.ExecContext(ctx, query, org.ID, org.Name, org.Status, org.Timezone, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return util.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

// GetOrganizationByID retrieves an organization by its ID using the provided DBExecutor.
func (r *OrganizationRepository) GetOrganizationByID(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Organization, error) {
	var org domain.Organization
	query := `SELECT id, name, status, timezone, created_at, updated_at FROM organizations WHERE id = $1`
	err := q.GetContext(ctx, &org, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get organization by ID %s: %w", id, err)
	}
	return &org, nil
}
