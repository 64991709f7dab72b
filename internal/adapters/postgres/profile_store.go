package postgres

// Package postgres provides the pgx-backed profile store.

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commercekit/storefront-identity/internal/domain/identity"
	apperrors "github.com/commercekit/storefront-identity/internal/errors"
	"github.com/commercekit/storefront-identity/internal/ports"
)

// Compile-time conformance to the port.
var _ ports.ProfileStore = (*ProfileStore)(nil)

// ProfileStore reads and creates profile rows in Postgres.
type ProfileStore struct {
	pool *pgxpool.Pool
}

// NewProfileStore creates a new ProfileStore.
func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

const fetchProfileQuery = `
SELECT id, email, full_name, phone, role, created_at, updated_at
FROM profiles
WHERE id = $1`

// FetchByUserID returns the profile for the identity, or a not_found error
// when no row exists (first login after signup).
func (s *ProfileStore) FetchByUserID(ctx context.Context, id string) (*identity.Profile, error) {
	if id == "" {
		return nil, apperrors.Validation("user id is required")
	}

	var p identity.Profile
	err := s.pool.QueryRow(ctx, fetchProfileQuery, id).Scan(
		&p.ID, &p.Email, &p.FullName, &p.Phone, &p.Role, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("profile %s not found", id)
		}
		return nil, mapQueryErr(err, "fetch profile")
	}
	return &p, nil
}

const insertProfileQuery = `
INSERT INTO profiles (id, email, full_name, phone, role, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, now(), now())
RETURNING id, email, full_name, phone, role, created_at, updated_at`

// Insert creates the profile row synthesized on first login and returns it as
// stored. A duplicate key (race with another client writing the same profile)
// surfaces as a conflict error.
func (s *ProfileStore) Insert(ctx context.Context, draft identity.ProfileDraft) (*identity.Profile, error) {
	if draft.ID == "" {
		return nil, apperrors.Validation("profile id is required")
	}
	role := draft.Role
	if role == "" {
		role = identity.RoleCustomer
	}

	var p identity.Profile
	err := s.pool.QueryRow(ctx, insertProfileQuery,
		draft.ID, draft.Email, nullable(draft.FullName), nullable(draft.Phone), role,
	).Scan(
		&p.ID, &p.Email, &p.FullName, &p.Phone, &p.Role, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeConflict, "profile already exists")
		}
		return nil, mapQueryErr(err, "insert profile")
	}
	return &p, nil
}

// nullable maps empty provider metadata to NULL instead of an empty string.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// mapQueryErr normalizes transport-level failures so the retry policy can
// classify them: context deadline and connection errors become timeout /
// unavailable codes.
func mapQueryErr(err error, verb string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.ErrCodeTimeout, verb+" timed out")
	}
	return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, fmt.Sprintf("%s failed", verb))
}
