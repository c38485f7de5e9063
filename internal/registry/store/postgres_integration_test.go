//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"facepay/internal/registry/models"
	"facepay/internal/registry/store"
	"facepay/pkg/domain"
	"facepay/pkg/platform/sentinel"
	"facepay/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgresStore(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(s.ctx))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "profiles"))
}

func (s *PostgresStoreSuite) newProfile(owner domain.Address, fp domain.Fingerprint) *models.Profile {
	profile, err := models.NewProfile(domain.NewProfileID(), owner, fp, "walrus://blob/1",
		domain.DefaultAsset, "Test User", time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return profile
}

func (s *PostgresStoreSuite) TestCreateAndLookups() {
	p := s.newProfile("0xA", "fp-1")
	s.Require().NoError(s.store.Create(s.ctx, p))

	byID, err := s.store.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.OwnerAddress, byID.OwnerAddress)
	s.Equal(p.Fingerprint, byID.Fingerprint)

	byDigest, err := s.store.FindByFingerprintDigest(s.ctx, domain.Fingerprint("fp-1").Digest())
	s.Require().NoError(err)
	s.Equal(p.ID, byDigest.ID)

	byAddr, err := s.store.FindByAddress(s.ctx, "0xA")
	s.Require().NoError(err)
	s.Equal(p.ID, byAddr.ID)

	_, err = s.store.FindByID(s.ctx, domain.NewProfileID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUniqueIndicesEnforceInvariants() {
	p := s.newProfile("0xA", "fp-1")
	s.Require().NoError(s.store.Create(s.ctx, p))

	sameFingerprint := s.newProfile("0xB", "fp-1")
	s.ErrorIs(s.store.Create(s.ctx, sameFingerprint), sentinel.ErrConflict)

	sameAddress := s.newProfile("0xA", "fp-2")
	s.ErrorIs(s.store.Create(s.ctx, sameAddress), sentinel.ErrConflict)

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(1), count)
}

func (s *PostgresStoreSuite) TestExecute() {
	p := s.newProfile("0xA", "fp-1")
	s.Require().NoError(s.store.Create(s.ctx, p))

	s.Run("validate failure rolls back", func() {
		_, err := s.store.Execute(s.ctx, p.ID,
			func(prof *models.Profile) error {
				return prof.CanUpdatePreferences("0xOTHER")
			},
			func(prof *models.Profile) {
				prof.ApplyPreferences("USDC", "Hijacked", time.Now())
			},
		)
		s.Require().Error(err)

		got, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal("Test User", got.DisplayName)
	})

	s.Run("mutation commits", func() {
		updated, err := s.store.Execute(s.ctx, p.ID, nil,
			func(prof *models.Profile) {
				prof.ApplyPaymentReceived(time.Now().UTC())
			},
		)
		s.Require().NoError(err)
		s.Equal(uint64(1), updated.PaymentCount)

		got, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(uint64(1), got.PaymentCount)
	})
}

func (s *PostgresStoreSuite) TestConcurrentPaymentCounts() {
	p := s.newProfile("0xA", "fp-1")
	s.Require().NoError(s.store.Create(s.ctx, p))

	const workers = 16
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := s.store.Execute(s.ctx, p.ID, nil,
				func(prof *models.Profile) { prof.ApplyPaymentReceived(time.Now().UTC()) },
			)
			errs <- err
		}()
	}
	for i := 0; i < workers; i++ {
		s.NoError(<-errs)
	}

	got, err := s.store.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(uint64(workers), got.PaymentCount)
}
