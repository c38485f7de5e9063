// Package store provides the registry's persistence implementations: an
// in-memory store for tests and broker-less runs, and a PostgreSQL store
// whose unique indices enforce the one-profile-per-fingerprint and
// one-profile-per-address invariants under concurrent writers.
package store

import (
	"context"

	"facepay/internal/registry/models"
	"facepay/pkg/domain"
)

// Store is the registry service's persistence port. Implementations return
// sentinel errors (pkg/platform/sentinel); the service translates them into
// domain errors.
type Store interface {
	// Create inserts a profile. Returns sentinel.ErrConflict when the
	// fingerprint digest or owner address is already indexed.
	Create(ctx context.Context, profile *models.Profile) error

	// FindByID returns the profile or sentinel.ErrNotFound.
	FindByID(ctx context.Context, id domain.ProfileID) (*models.Profile, error)

	// FindByFingerprintDigest resolves the digest index.
	FindByFingerprintDigest(ctx context.Context, digest string) (*models.Profile, error)

	// FindByAddress resolves the owner-address index.
	FindByAddress(ctx context.Context, addr domain.Address) (*models.Profile, error)

	// Execute atomically runs validate then mutate against the stored profile,
	// holding the store's lock (mutex or row lock) across both. The mutated
	// profile is persisted and returned.
	Execute(ctx context.Context, id domain.ProfileID,
		validate func(*models.Profile) error,
		mutate func(*models.Profile)) (*models.Profile, error)

	// Count returns the number of registered profiles.
	Count(ctx context.Context) (uint64, error)
}
