package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"facepay/internal/ledger/models"
	"facepay/pkg/domain"
	"facepay/pkg/platform/sentinel"
)

type MemoryLedgerSuite struct {
	suite.Suite
	store *MemoryStore
	ctx   context.Context
	now   time.Time
}

func TestMemoryLedgerSuite(t *testing.T) {
	suite.Run(t, new(MemoryLedgerSuite))
}

func (s *MemoryLedgerSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s.store = NewMemoryStore(models.NewSystem(s.now))
	s.ctx = context.Background()
}

func (s *MemoryLedgerSuite) TestSystemHandsOutClones() {
	sys, err := s.store.System(s.ctx)
	s.Require().NoError(err)

	sys.FeeBalance = 999
	sys.Assets["HACK"] = 1

	again, err := s.store.System(s.ctx)
	s.Require().NoError(err)
	s.Zero(again.FeeBalance)
	s.False(again.Supports("HACK"))
}

func (s *MemoryLedgerSuite) TestExecuteSystem() {
	s.Run("validate failure discards the working copy", func() {
		wantErr := errors.New("rejected")
		_, err := s.store.ExecuteSystem(s.ctx,
			func(sys *models.System) error {
				sys.FeeBalance = 123
				return wantErr
			},
			func(sys *models.System) { sys.FeeBalance = 456 },
		)
		s.ErrorIs(err, wantErr)

		sys, err := s.store.System(s.ctx)
		s.Require().NoError(err)
		s.Zero(sys.FeeBalance)
	})

	s.Run("mutation persists", func() {
		updated, err := s.store.ExecuteSystem(s.ctx, nil,
			func(sys *models.System) { sys.ApplyPayment(1_000, 3, s.now) },
		)
		s.Require().NoError(err)
		s.Equal(uint64(3), updated.FeeBalance)

		sys, err := s.store.System(s.ctx)
		s.Require().NoError(err)
		s.Equal(uint64(1), sys.TotalPayments)
	})
}

func (s *MemoryLedgerSuite) TestBalances() {
	s.Require().NoError(s.store.Credit(s.ctx, "0xA", domain.DefaultAsset, 100))
	s.Require().NoError(s.store.Credit(s.ctx, "0xA", domain.DefaultAsset, 50))
	s.Require().NoError(s.store.Credit(s.ctx, "0xA", "USDC", 7))

	balance, err := s.store.Balance(s.ctx, "0xA", domain.DefaultAsset)
	s.Require().NoError(err)
	s.Equal(uint64(150), balance)

	// Balances are keyed per asset, not per address alone.
	balance, err = s.store.Balance(s.ctx, "0xA", "USDC")
	s.Require().NoError(err)
	s.Equal(uint64(7), balance)

	balance, err = s.store.Balance(s.ctx, "0xB", domain.DefaultAsset)
	s.Require().NoError(err)
	s.Zero(balance)
}

func (s *MemoryLedgerSuite) newReceipt(sender domain.Address, status models.ReceiptStatus, at time.Time) *models.Receipt {
	r := models.NewCompletedReceipt(sender, domain.NewProfileID(), "digest", "0xR",
		domain.DefaultAsset, 1_000, 3, 997, at)
	r.Status = status
	return r
}

func (s *MemoryLedgerSuite) TestReceipts() {
	first := s.newReceipt("0xA", models.StatusCompleted, s.now)
	second := s.newReceipt("0xA", models.StatusFailed, s.now.Add(time.Minute))
	other := s.newReceipt("0xB", models.StatusCompleted, s.now)

	for _, r := range []*models.Receipt{first, second, other} {
		s.Require().NoError(s.store.CreateReceipt(s.ctx, r))
	}

	s.Run("duplicate id conflicts", func() {
		s.ErrorIs(s.store.CreateReceipt(s.ctx, first), sentinel.ErrConflict)
	})

	s.Run("lookup by id", func() {
		got, err := s.store.Receipt(s.ctx, first.ID)
		s.Require().NoError(err)
		s.Equal(first.ID, got.ID)

		_, err = s.store.Receipt(s.ctx, domain.NewReceiptID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("sender listing is newest first", func() {
		got, err := s.store.ReceiptsBySender(s.ctx, "0xA", nil)
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal(second.ID, got[0].ID)
		s.Equal(first.ID, got[1].ID)
	})

	s.Run("status filter applies", func() {
		got, err := s.store.ReceiptsBySender(s.ctx, "0xA",
			[]models.ReceiptStatus{models.StatusFailed})
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(second.ID, got[0].ID)
	})

	s.Run("senders are isolated", func() {
		got, err := s.store.ReceiptsBySender(s.ctx, "0xB", nil)
		s.Require().NoError(err)
		s.Len(got, 1)
	})
}

func (s *MemoryLedgerSuite) TestMemoryTxSerializes() {
	tx := NewMemoryTx()
	counter := 0

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = tx.RunInTx(s.ctx, func(context.Context) error {
			counter++
			return nil
		})
	}()
	_ = tx.RunInTx(s.ctx, func(context.Context) error {
		counter++
		return nil
	})
	<-done

	s.Equal(2, counter)
}
