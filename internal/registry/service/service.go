// Package service implements the identity registry: the fingerprint→profile
// and address→profile indices and every operation that mutates a profile.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"facepay/internal/events"
	"facepay/internal/registry/cache"
	regmetrics "facepay/internal/registry/metrics"
	"facepay/internal/registry/models"
	"facepay/internal/registry/store"
	"facepay/pkg/domain"
	dErrors "facepay/pkg/domain-errors"
	"facepay/pkg/platform/sentinel"
	"facepay/pkg/requestcontext"
)

// Service owns the registry invariants: one profile per fingerprint, one per
// address, admin-only verification, monotonic payment counts.
type Service struct {
	profiles  store.Store
	publisher events.Publisher
	cache     *cache.LookupCache
	metrics   *regmetrics.Metrics
	logger    *slog.Logger
	adminCap  domain.AdminCap
}

// Option configures the Service.
type Option func(*Service)

// WithPublisher sets the notification sink. Defaults to a memory sink.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithCache enables the Redis lookup cache for fingerprint resolution.
func WithCache(c *cache.LookupCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *regmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New binds the registry to its store and the minted admin capability.
// Verification operations reject any other capability.
func New(profiles store.Store, adminCap domain.AdminCap, opts ...Option) *Service {
	s := &Service{
		profiles:  profiles,
		publisher: events.NewMemorySink(),
		adminCap:  adminCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterParams carries everything a registration needs. Requester is the
// already-authenticated address from the token layer.
type RegisterParams struct {
	Requester      domain.Address
	Fingerprint    domain.Fingerprint
	StorageRef     string
	PreferredAsset domain.Asset
	DisplayName    string
}

// Register creates a profile for a fingerprint that has never been seen.
// A duplicate fingerprint or duplicate requester address fails with
// duplicate_identity and leaves the registry unchanged. The store's unique
// indices are the authority under concurrency; the pre-checks below exist to
// give precise failure reasons on the common path.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.Profile, error) {
	if params.Fingerprint.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "fingerprint is required")
	}
	if params.Requester.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "requester address is required")
	}
	if params.PreferredAsset.IsZero() {
		params.PreferredAsset = domain.DefaultAsset
	}

	if _, err := s.profiles.FindByFingerprintDigest(ctx, params.Fingerprint.Digest()); err == nil {
		return nil, dErrors.New(dErrors.CodeDuplicateIdentity, "fingerprint is already registered")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check fingerprint index")
	}
	if _, err := s.profiles.FindByAddress(ctx, params.Requester); err == nil {
		return nil, dErrors.New(dErrors.CodeDuplicateIdentity, "address already has a registered profile")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check address index")
	}

	now := requestcontext.Now(ctx)
	profile, err := models.NewProfile(
		domain.NewProfileID(),
		params.Requester,
		params.Fingerprint,
		params.StorageRef,
		params.PreferredAsset,
		params.DisplayName,
		now,
	)
	if err != nil {
		return nil, err
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost the race to a concurrent registration.
			return nil, dErrors.New(dErrors.CodeDuplicateIdentity, "identity is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create profile")
	}

	if s.cache != nil {
		s.cache.Put(ctx, params.Fingerprint.Digest(), profile.ID)
	}
	s.emit(ctx, events.Registered{
		ProfileID:      profile.ID,
		OwnerAddress:   profile.OwnerAddress,
		DisplayName:    profile.DisplayName,
		PreferredAsset: profile.PreferredAsset,
		Timestamp:      now,
	})
	if s.metrics != nil {
		s.metrics.IncrementProfilesRegistered()
	}
	return profile, nil
}

// LookupByFingerprint resolves a profile by exact fingerprint equality.
// There is no fuzzy matching here: canonicalizing near-duplicate biometric
// reads into one fingerprint string is the capture pipeline's job.
func (s *Service) LookupByFingerprint(ctx context.Context, fp domain.Fingerprint) (*models.Profile, error) {
	if fp.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "fingerprint is required")
	}
	start := time.Now()
	defer s.observeLookup("fingerprint", start)

	digest := fp.Digest()
	if s.cache != nil {
		if id, ok := s.cache.Get(ctx, digest); ok {
			profile, err := s.profiles.FindByID(ctx, id)
			if err == nil {
				return profile, nil
			}
			if !errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
			}
			s.cache.Invalidate(ctx, digest)
		}
	}

	profile, err := s.profiles.FindByFingerprintDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeIdentityNotFound, "no profile registered for fingerprint")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "fingerprint lookup failed")
	}
	if s.cache != nil {
		s.cache.Put(ctx, digest, profile.ID)
	}
	return profile, nil
}

// LookupByAddress resolves a profile by owner address.
func (s *Service) LookupByAddress(ctx context.Context, addr domain.Address) (*models.Profile, error) {
	if addr.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}
	start := time.Now()
	defer s.observeLookup("address", start)

	profile, err := s.profiles.FindByAddress(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeIdentityNotFound, "no profile registered for address")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "address lookup failed")
	}
	return profile, nil
}

// FindByID loads a profile by its identifier.
func (s *Service) FindByID(ctx context.Context, id domain.ProfileID) (*models.Profile, error) {
	profile, err := s.profiles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeIdentityNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return profile, nil
}

// VerifyMatch is the exact-equality guard the ledger runs before moving any
// value. Lookup already guarantees the match by construction; this catches
// callers holding a stale or mismatched profile handle.
func (s *Service) VerifyMatch(profile *models.Profile, fp domain.Fingerprint) bool {
	if profile == nil {
		return false
	}
	return profile.Fingerprint.Matches(fp)
}

// UpdatePreferences changes the preferred asset and display name. Only the
// profile owner may do this.
func (s *Service) UpdatePreferences(ctx context.Context, profileID domain.ProfileID,
	requester domain.Address, preferredAsset domain.Asset, displayName string) (*models.Profile, error) {

	now := requestcontext.Now(ctx)
	profile, err := s.profiles.Execute(ctx, profileID,
		func(p *models.Profile) error {
			return p.CanUpdatePreferences(requester)
		},
		func(p *models.Profile) {
			p.ApplyPreferences(preferredAsset, displayName, now)
		},
	)
	if err != nil {
		return nil, wrapProfileErr(err)
	}

	s.emit(ctx, events.PreferencesUpdated{
		ProfileID:      profile.ID,
		PreferredAsset: profile.PreferredAsset,
		DisplayName:    profile.DisplayName,
		Timestamp:      now,
	})
	return profile, nil
}

// SetVerified flips the verified flag. Authorization is possession of the
// capability minted at wiring time; there is no role check anywhere.
func (s *Service) SetVerified(ctx context.Context, cap domain.AdminCap,
	profileID domain.ProfileID, verified bool) (*models.Profile, error) {

	if !s.adminCap.Grants(cap) {
		return nil, dErrors.New(dErrors.CodeNotAuthorized, "admin capability required")
	}

	now := requestcontext.Now(ctx)
	profile, err := s.profiles.Execute(ctx, profileID, nil,
		func(p *models.Profile) {
			p.ApplyVerification(verified, now)
		},
	)
	if err != nil {
		return nil, wrapProfileErr(err)
	}

	s.emit(ctx, events.VerificationUpdated{
		ProfileID: profile.ID,
		Verified:  profile.Verified,
		Timestamp: now,
	})
	return profile, nil
}

// RecordPayment bumps a profile's monotonic payment counter. The ledger calls
// this inside its payment transaction so the counter and the transfer commit
// together.
func (s *Service) RecordPayment(ctx context.Context, profileID domain.ProfileID) error {
	now := requestcontext.Now(ctx)
	_, err := s.profiles.Execute(ctx, profileID, nil,
		func(p *models.Profile) {
			p.ApplyPaymentReceived(now)
		},
	)
	if err != nil {
		return wrapProfileErr(err)
	}
	return nil
}

// Count returns the number of registered profiles.
func (s *Service) Count(ctx context.Context) (uint64, error) {
	count, err := s.profiles.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count profiles")
	}
	return count, nil
}

func (s *Service) emit(ctx context.Context, n events.Notification) {
	if err := s.publisher.Publish(ctx, n); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "registry notification failed",
			"kind", string(n.Kind()),
			"key", n.Key(),
			"error", err,
		)
	}
}

func (s *Service) observeLookup(index string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveLookupDuration(index, time.Since(start).Seconds())
	}
}

func wrapProfileErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeIdentityNotFound, "profile not found")
	}
	if dErrors.Is(err) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "profile operation failed")
}
