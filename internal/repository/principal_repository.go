package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/fleet-auth/internal/domain"
)

// ErrPrincipalNotFound is returned when no principal matches the lookup.
var ErrPrincipalNotFound = errors.New("principal not found")

// PrincipalRepository defines read access to the issuer's principals.
type PrincipalRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.Principal, error)
}

type principalRepository struct {
	pool *pgxpool.Pool
}

// NewPrincipalRepository returns a Postgres-backed implementation.
func NewPrincipalRepository(pool *pgxpool.Pool) PrincipalRepository {
	return &principalRepository{pool: pool}
}

func (r *principalRepository) GetByUsername(ctx context.Context, username string) (*domain.Principal, error) {
	if r.pool == nil {
		return nil, errors.New("principal store not configured")
	}

	const query = `
        SELECT id, username, password_hash, role, active, created_at, updated_at
        FROM principals WHERE LOWER(username)=LOWER($1)`

	var principal domain.Principal
	if err := r.pool.QueryRow(ctx, query, username).Scan(
		&principal.ID,
		&principal.Username,
		&principal.PasswordHash,
		&principal.Role,
		&principal.Active,
		&principal.CreatedAt,
		&principal.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}
	return &principal, nil
}
