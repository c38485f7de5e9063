//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"facepay/internal/ledger/models"
	"facepay/internal/ledger/store"
	"facepay/pkg/domain"
	dErrors "facepay/pkg/domain-errors"
	"facepay/pkg/platform/sentinel"
	"facepay/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	ctx      context.Context
	now      time.Time
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.ctx = context.Background()
	s.now = time.Now().UTC().Truncate(time.Microsecond)
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresLedgerSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "receipts", "balances", "ledger_system"))
	s.Require().NoError(s.store.EnsureSchema(s.ctx, models.NewSystem(s.now)))
}

func (s *PostgresLedgerSuite) TestSeedIsIdempotent() {
	// A second EnsureSchema with different seed values must not overwrite.
	_, err := s.store.ExecuteSystem(s.ctx, nil, func(sys *models.System) {
		sys.ApplyPayment(1_000, 3, s.now)
	})
	s.Require().NoError(err)

	s.Require().NoError(s.store.EnsureSchema(s.ctx, models.NewSystem(s.now)))

	sys, err := s.store.System(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(1), sys.TotalPayments)
}

func (s *PostgresLedgerSuite) TestSystemRoundTrip() {
	sys, err := s.store.System(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(models.DefaultFeeRateBps), sys.FeeRateBps)
	s.True(sys.Supports(domain.DefaultAsset))

	_, err = s.store.ExecuteSystem(s.ctx, nil, func(sys *models.System) {
		sys.ApplyAsset("USDC", 500, s.now)
		sys.ApplyFeeRate(100, s.now)
	})
	s.Require().NoError(err)

	sys, err = s.store.System(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(100), sys.FeeRateBps)
	s.Equal(uint64(500), sys.MinimumFor("USDC"))
}

func (s *PostgresLedgerSuite) TestExecuteSystemValidateFailureRollsBack() {
	_, err := s.store.ExecuteSystem(s.ctx,
		func(sys *models.System) error {
			return dErrors.New(dErrors.CodeFeeRateTooHigh, "too high")
		},
		func(sys *models.System) { sys.ApplyFeeRate(9_999, s.now) },
	)
	s.Require().Error(err)

	sys, err := s.store.System(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(models.DefaultFeeRateBps), sys.FeeRateBps)
}

func (s *PostgresLedgerSuite) TestBalancesUpsert() {
	s.Require().NoError(s.store.Credit(s.ctx, "0xA", domain.DefaultAsset, 100))
	s.Require().NoError(s.store.Credit(s.ctx, "0xA", domain.DefaultAsset, 50))
	s.Require().NoError(s.store.Credit(s.ctx, "0xA", "USDC", 7))

	balance, err := s.store.Balance(s.ctx, "0xA", domain.DefaultAsset)
	s.Require().NoError(err)
	s.Equal(uint64(150), balance)

	balance, err = s.store.Balance(s.ctx, "0xB", domain.DefaultAsset)
	s.Require().NoError(err)
	s.Zero(balance)
}

func (s *PostgresLedgerSuite) newReceipt(sender domain.Address, at time.Time) *models.Receipt {
	return models.NewCompletedReceipt(sender, domain.NewProfileID(), "digest", "0xR",
		domain.DefaultAsset, 1_000, 3, 997, at)
}

func (s *PostgresLedgerSuite) TestReceipts() {
	first := s.newReceipt("0xA", s.now)
	second := models.NewFailedSwapReceipt("0xA", domain.NewProfileID(), "digest", "0xR",
		"USDC", 5_000, "cross-asset swap is not available", s.now.Add(time.Minute))
	other := s.newReceipt("0xB", s.now)

	for _, r := range []*models.Receipt{first, second, other} {
		s.Require().NoError(s.store.CreateReceipt(s.ctx, r))
	}

	got, err := s.store.Receipt(s.ctx, second.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusFailed, got.Status)
	s.Equal("cross-asset swap is not available", got.FailureReason)

	_, err = s.store.Receipt(s.ctx, domain.NewReceiptID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	listed, err := s.store.ReceiptsBySender(s.ctx, "0xA", nil)
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal(second.ID, listed[0].ID)

	failedOnly, err := s.store.ReceiptsBySender(s.ctx, "0xA",
		[]models.ReceiptStatus{models.StatusFailed})
	s.Require().NoError(err)
	s.Require().Len(failedOnly, 1)
	s.Equal(second.ID, failedOnly[0].ID)
}

func (s *PostgresLedgerSuite) TestSQLTxRollsBackEverything() {
	tx := store.NewSQLTx(s.postgres.DB)

	wantErr := dErrors.New(dErrors.CodeInternal, "forced failure")
	err := tx.RunInTx(s.ctx, func(txCtx context.Context) error {
		if _, err := s.store.ExecuteSystem(txCtx, nil, func(sys *models.System) {
			sys.ApplyPayment(1_000, 3, s.now)
		}); err != nil {
			return err
		}
		if err := s.store.Credit(txCtx, "0xA", domain.DefaultAsset, 997); err != nil {
			return err
		}
		return wantErr
	})
	s.ErrorIs(err, wantErr)

	sys, err := s.store.System(s.ctx)
	s.Require().NoError(err)
	s.Zero(sys.TotalPayments)

	balance, err := s.store.Balance(s.ctx, "0xA", domain.DefaultAsset)
	s.Require().NoError(err)
	s.Zero(balance)
}

func (s *PostgresLedgerSuite) TestSQLTxCommitsEverything() {
	tx := store.NewSQLTx(s.postgres.DB)

	receipt := s.newReceipt("0xA", s.now)
	err := tx.RunInTx(s.ctx, func(txCtx context.Context) error {
		if _, err := s.store.ExecuteSystem(txCtx, nil, func(sys *models.System) {
			sys.ApplyPayment(1_000, 3, s.now)
		}); err != nil {
			return err
		}
		if err := s.store.Credit(txCtx, "0xR", domain.DefaultAsset, 997); err != nil {
			return err
		}
		return s.store.CreateReceipt(txCtx, receipt)
	})
	s.Require().NoError(err)

	sys, err := s.store.System(s.ctx)
	s.Require().NoError(err)
	s.Equal(uint64(1), sys.TotalPayments)
	s.Equal(uint64(3), sys.FeeBalance)

	balance, err := s.store.Balance(s.ctx, "0xR", domain.DefaultAsset)
	s.Require().NoError(err)
	s.Equal(uint64(997), balance)

	got, err := s.store.Receipt(s.ctx, receipt.ID)
	s.Require().NoError(err)
	s.Equal(receipt.ID, got.ID)
}
