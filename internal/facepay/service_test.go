package facepay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"facepay/internal/events"
	"facepay/internal/facepay/mocks"
	ledgermodels "facepay/internal/ledger/models"
	ledgerservice "facepay/internal/ledger/service"
	registrymodels "facepay/internal/registry/models"
	"facepay/pkg/domain"
	dErrors "facepay/pkg/domain-errors"
	"facepay/pkg/requestcontext"
)

func newRecipient(t *testing.T) *registrymodels.Profile {
	t.Helper()
	profile, err := registrymodels.NewProfile(domain.NewProfileID(), "0xRECIPIENT", "f1",
		"walrus://blob/1", "USDC", "Recipient", time.Now().UTC())
	require.NoError(t, err)
	return profile
}

func payerContext(addr domain.Address) context.Context {
	return requestcontext.WithPayer(context.Background(), addr)
}

func TestPayByFingerprint(t *testing.T) {
	t.Run("happy path emits an enriched completion", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		registry := mocks.NewMockRegistry(ctrl)
		ledger := mocks.NewMockLedger(ctrl)
		sink := events.NewMemorySink()
		svc := New(registry, ledger, WithPublisher(sink))

		profile := newRecipient(t)
		receipt := ledgermodels.NewCompletedReceipt("0xSENDER", profile.ID, domain.Fingerprint("f1").Digest(),
			profile.OwnerAddress, domain.DefaultAsset, 1_000_000, 3_000, 997_000, time.Now().UTC())

		registry.EXPECT().LookupByFingerprint(gomock.Any(), domain.Fingerprint("f1")).Return(profile, nil)
		registry.EXPECT().VerifyMatch(profile, domain.Fingerprint("f1")).Return(true)
		ledger.EXPECT().Pay(gomock.Any(), ledgerservice.PayParams{
			Sender:               "0xSENDER",
			RecipientProfile:     profile,
			RecipientFingerprint: "f1",
			Funds:                domain.Funds{Asset: domain.DefaultAsset, Amount: 1_000_000},
		}).Return(receipt, nil)

		ctx := requestcontext.WithClientMetadata(payerContext("0xSENDER"), "1.2.3.4", "ua", "Chrome on Linux")
		got, err := svc.PayByFingerprint(ctx, "f1", domain.Funds{Asset: domain.DefaultAsset, Amount: 1_000_000})
		require.NoError(t, err)
		assert.Equal(t, receipt.ID, got.ID)

		// The notification carries its own kind; the ledger's completion
		// event is not duplicated through this sink.
		assert.Empty(t, sink.OfKind(events.KindPaymentCompleted))
		enriched := sink.OfKind(events.KindPaymentNotification)
		require.Len(t, enriched, 1)
		n := enriched[0].(events.PaymentNotification)
		assert.Equal(t, receipt.ID, n.ReceiptID)
		assert.Equal(t, domain.Asset("USDC"), n.PreferredAsset)
		assert.Equal(t, "Chrome on Linux", n.Device)
	})

	t.Run("missing payer is unauthorized before any lookup", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := New(mocks.NewMockRegistry(ctrl), mocks.NewMockLedger(ctrl))

		_, err := svc.PayByFingerprint(context.Background(), "f1",
			domain.Funds{Asset: domain.DefaultAsset, Amount: 100})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("lookup failure propagates", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		registry := mocks.NewMockRegistry(ctrl)
		svc := New(registry, mocks.NewMockLedger(ctrl))

		registry.EXPECT().LookupByFingerprint(gomock.Any(), domain.Fingerprint("f1")).
			Return(nil, dErrors.New(dErrors.CodeIdentityNotFound, "no profile registered for fingerprint"))

		_, err := svc.PayByFingerprint(payerContext("0xSENDER"), "f1",
			domain.Funds{Asset: domain.DefaultAsset, Amount: 100})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeIdentityNotFound))
	})

	t.Run("mismatch blocks the transfer", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		registry := mocks.NewMockRegistry(ctrl)
		ledger := mocks.NewMockLedger(ctrl)
		svc := New(registry, ledger)

		profile := newRecipient(t)
		registry.EXPECT().LookupByFingerprint(gomock.Any(), domain.Fingerprint("f1")).Return(profile, nil)
		registry.EXPECT().VerifyMatch(profile, domain.Fingerprint("f1")).Return(false)

		_, err := svc.PayByFingerprint(payerContext("0xSENDER"), "f1",
			domain.Funds{Asset: domain.DefaultAsset, Amount: 100})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeFingerprintMismatch))
	})
}

func TestPayByFingerprintWithSwap(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockRegistry(ctrl)
	ledger := mocks.NewMockLedger(ctrl)
	svc := New(registry, ledger)

	profile := newRecipient(t)
	deadline := time.Now().Add(time.Minute)
	failed := ledgermodels.NewFailedSwapReceipt("0xSENDER", profile.ID, domain.Fingerprint("f1").Digest(),
		profile.OwnerAddress, "USDC", 5_000, "cross-asset swap is not available", time.Now().UTC())

	registry.EXPECT().LookupByFingerprint(gomock.Any(), domain.Fingerprint("f1")).Return(profile, nil)
	registry.EXPECT().VerifyMatch(profile, domain.Fingerprint("f1")).Return(true)
	ledger.EXPECT().PayWithSwap(gomock.Any(), ledgerservice.SwapParams{
		PayParams: ledgerservice.PayParams{
			Sender:               "0xSENDER",
			RecipientProfile:     profile,
			RecipientFingerprint: "f1",
			Funds:                domain.Funds{Asset: "USDC", Amount: 5_000},
		},
		SlippageBps: 100,
		Deadline:    deadline,
	}).Return(failed, nil)

	got, err := svc.PayByFingerprintWithSwap(payerContext("0xSENDER"), "f1",
		domain.Funds{Asset: "USDC", Amount: 5_000}, 100, deadline)
	require.NoError(t, err)
	assert.Equal(t, ledgermodels.StatusFailed, got.Status)
}
