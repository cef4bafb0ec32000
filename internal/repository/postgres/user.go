package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ansar30/pulse/internal/models"
)

type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userColumns = `id, tenant_id, email, display_name, role, password_hash, created_at`

func (s *UserStore) Create(ctx context.Context, tenantID uuid.UUID, email, displayName, passwordHash string, role models.TenantRole) (*models.User, error) {
	query := `
		INSERT INTO users (tenant_id, email, display_name, role, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING ` + userColumns

	var u models.User
	err := s.pool.QueryRow(ctx, query, tenantID, email, displayName, role, passwordHash).Scan(
		&u.ID, &u.TenantID, &u.Email, &u.DisplayName, &u.Role, &u.PasswordHash, &u.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

func (s *UserStore) GetByID(ctx context.Context, tenantID, userID uuid.UUID) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 AND tenant_id = $2`

	var u models.User
	err := s.pool.QueryRow(ctx, query, userID, tenantID).Scan(
		&u.ID, &u.TenantID, &u.Email, &u.DisplayName, &u.Role, &u.PasswordHash, &u.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetByEmail is global, not tenant-scoped: login happens before we know the
// tenant.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`

	var u models.User
	err := s.pool.QueryRow(ctx, query, email).Scan(
		&u.ID, &u.TenantID, &u.Email, &u.DisplayName, &u.Role, &u.PasswordHash, &u.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

// AllInTenant reports whether every id in the batch belongs to the tenant.
// One count query instead of a lookup per user.
func (s *UserStore) AllInTenant(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID) (bool, error) {
	if len(userIDs) == 0 {
		return true, nil
	}

	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT id) FROM users
		WHERE tenant_id = $1 AND id = ANY($2::uuid[])`,
		tenantID, userIDs,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count tenant users: %w", err)
	}

	distinct := make(map[uuid.UUID]struct{}, len(userIDs))
	for _, id := range userIDs {
		distinct[id] = struct{}{}
	}
	return count == len(distinct), nil
}
