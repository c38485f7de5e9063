package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"facepay/internal/registry/models"
	"facepay/pkg/domain"
	"facepay/pkg/platform/sentinel"
	txcontext "facepay/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists profiles. The unique indices on fingerprint_digest
// and owner_address are the authoritative enforcement of the registry's
// uniqueness invariants: two concurrent registrations racing for the same
// fingerprint serialize on the index, and the loser gets a conflict.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the profiles table. Idempotent; called at startup.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS profiles (
    id                 UUID PRIMARY KEY,
    owner_address      TEXT NOT NULL UNIQUE,
    fingerprint        TEXT NOT NULL,
    fingerprint_digest TEXT NOT NULL UNIQUE,
    storage_ref        TEXT NOT NULL DEFAULT '',
    preferred_asset    TEXT NOT NULL,
    display_name       TEXT NOT NULL DEFAULT '',
    verified           BOOLEAN NOT NULL DEFAULT FALSE,
    payment_count      BIGINT NOT NULL DEFAULT 0,
    created_at         TIMESTAMPTZ NOT NULL,
    updated_at         TIMESTAMPTZ NOT NULL
)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure profiles schema: %w", err)
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, profile *models.Profile) error {
	const query = `
INSERT INTO profiles (
    id, owner_address, fingerprint, fingerprint_digest, storage_ref,
    preferred_asset, display_name, verified, payment_count, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(profile.ID),
		profile.OwnerAddress.String(),
		profile.Fingerprint.String(),
		profile.Fingerprint.Digest(),
		profile.StorageRef,
		profile.PreferredAsset.String(),
		profile.DisplayName,
		profile.Verified,
		profile.PaymentCount,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

const selectProfile = `
SELECT id, owner_address, fingerprint, storage_ref, preferred_asset,
       display_name, verified, payment_count, created_at, updated_at
FROM profiles `

func (s *PostgresStore) FindByID(ctx context.Context, id domain.ProfileID) (*models.Profile, error) {
	row := s.execer(ctx).QueryRowContext(ctx, selectProfile+`WHERE id = $1`, uuid.UUID(id))
	return scanProfile(row)
}

func (s *PostgresStore) FindByFingerprintDigest(ctx context.Context, digest string) (*models.Profile, error) {
	row := s.execer(ctx).QueryRowContext(ctx, selectProfile+`WHERE fingerprint_digest = $1`, digest)
	return scanProfile(row)
}

func (s *PostgresStore) FindByAddress(ctx context.Context, addr domain.Address) (*models.Profile, error) {
	row := s.execer(ctx).QueryRowContext(ctx, selectProfile+`WHERE owner_address = $1`, addr.String())
	return scanProfile(row)
}

// Execute runs validate-then-mutate under FOR UPDATE within one transaction.
// If the caller already opened a transaction (pkg/platform/tx), the row lock
// joins it; otherwise a local transaction is used.
func (s *PostgresStore) Execute(ctx context.Context, id domain.ProfileID,
	validate func(*models.Profile) error,
	mutate func(*models.Profile)) (*models.Profile, error) {

	if tx, ok := txcontext.From(ctx); ok {
		return s.executeIn(ctx, tx, id, validate, mutate)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin profile update: %w", err)
	}
	profile, err := s.executeIn(ctx, tx, id, validate, mutate)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit profile update: %w", err)
	}
	return profile, nil
}

func (s *PostgresStore) executeIn(ctx context.Context, tx *sql.Tx, id domain.ProfileID,
	validate func(*models.Profile) error,
	mutate func(*models.Profile)) (*models.Profile, error) {

	row := tx.QueryRowContext(ctx, selectProfile+`WHERE id = $1 FOR UPDATE`, uuid.UUID(id))
	profile, err := scanProfile(row)
	if err != nil {
		return nil, err
	}

	if validate != nil {
		if err := validate(profile); err != nil {
			return nil, err
		}
	}
	mutate(profile)

	const update = `
UPDATE profiles
SET preferred_asset = $2, display_name = $3, verified = $4,
    payment_count = $5, updated_at = $6
WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update,
		uuid.UUID(profile.ID),
		profile.PreferredAsset.String(),
		profile.DisplayName,
		profile.Verified,
		profile.PaymentCount,
		profile.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return profile, nil
}

func (s *PostgresStore) Count(ctx context.Context) (uint64, error) {
	var count uint64
	row := s.execer(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return count, nil
}

func scanProfile(row *sql.Row) (*models.Profile, error) {
	var (
		profile     models.Profile
		id          uuid.UUID
		owner       string
		fingerprint string
		asset       string
	)
	err := row.Scan(
		&id, &owner, &fingerprint, &profile.StorageRef, &asset,
		&profile.DisplayName, &profile.Verified, &profile.PaymentCount,
		&profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	profile.ID = domain.ProfileID(id)
	profile.OwnerAddress = domain.Address(owner)
	profile.Fingerprint = domain.Fingerprint(fingerprint)
	profile.PreferredAsset = domain.Asset(asset)
	return &profile, nil
}
