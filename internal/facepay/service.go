// Package facepay is the orchestration layer: it composes the registry
// lookup and the ledger transfer into the single "pay by fingerprint"
// operation external callers use, and enriches the completed-payment
// notification for off-chain indexers. It holds no state of its own.
package facepay

import (
	"context"
	"log/slog"
	"time"

	"facepay/internal/events"
	ledgermodels "facepay/internal/ledger/models"
	ledgerservice "facepay/internal/ledger/service"
	registrymodels "facepay/internal/registry/models"
	"facepay/pkg/domain"
	dErrors "facepay/pkg/domain-errors"
	"facepay/pkg/requestcontext"
)

// Registry is the slice of the identity registry the facade needs.
type Registry interface {
	LookupByFingerprint(ctx context.Context, fp domain.Fingerprint) (*registrymodels.Profile, error)
	VerifyMatch(profile *registrymodels.Profile, fp domain.Fingerprint) bool
}

// Ledger is the slice of the payment ledger the facade needs.
type Ledger interface {
	Pay(ctx context.Context, params ledgerservice.PayParams) (*ledgermodels.Receipt, error)
	PayWithSwap(ctx context.Context, params ledgerservice.SwapParams) (*ledgermodels.Receipt, error)
}

// Service wires the two lower components so callers do not sequence them
// themselves.
type Service struct {
	registry  Registry
	ledger    Ledger
	publisher events.Publisher
	logger    *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithPublisher sets the sink for the enriched completion notification.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(registry Registry, ledger Ledger, opts ...Option) *Service {
	s := &Service{
		registry:  registry,
		ledger:    ledger,
		publisher: events.NewMemorySink(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PayByFingerprint resolves the recipient from a fingerprint and executes the
// payment. The sender comes from the authenticated request context.
func (s *Service) PayByFingerprint(ctx context.Context, fp domain.Fingerprint, funds domain.Funds) (*ledgermodels.Receipt, error) {
	sender := requestcontext.Payer(ctx)
	if sender.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authenticated sender is required")
	}

	profile, err := s.registry.LookupByFingerprint(ctx, fp)
	if err != nil {
		return nil, err
	}
	if !s.registry.VerifyMatch(profile, fp) {
		return nil, dErrors.New(dErrors.CodeFingerprintMismatch, "fingerprint does not match resolved profile")
	}

	receipt, err := s.ledger.Pay(ctx, ledgerservice.PayParams{
		Sender:               sender,
		RecipientProfile:     profile,
		RecipientFingerprint: fp,
		Funds:                funds,
	})
	if err != nil {
		return nil, err
	}

	s.emitEnriched(ctx, receipt, profile)
	return receipt, nil
}

// PayByFingerprintWithSwap is the swap-enabled variant. The conversion is
// unimplemented downstream; this passes the parameters through and reports
// the refund outcome.
func (s *Service) PayByFingerprintWithSwap(ctx context.Context, fp domain.Fingerprint,
	funds domain.Funds, slippageBps uint64, deadline time.Time) (*ledgermodels.Receipt, error) {

	sender := requestcontext.Payer(ctx)
	if sender.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authenticated sender is required")
	}

	profile, err := s.registry.LookupByFingerprint(ctx, fp)
	if err != nil {
		return nil, err
	}
	if !s.registry.VerifyMatch(profile, fp) {
		return nil, dErrors.New(dErrors.CodeFingerprintMismatch, "fingerprint does not match resolved profile")
	}

	return s.ledger.PayWithSwap(ctx, ledgerservice.SwapParams{
		PayParams: ledgerservice.PayParams{
			Sender:               sender,
			RecipientProfile:     profile,
			RecipientFingerprint: fp,
			Funds:                funds,
		},
		SlippageBps: slippageBps,
		Deadline:    deadline,
	})
}

// emitEnriched publishes the notification record external subscribers consume,
// carrying both the payer-facing amount and the recipient's preferred asset
// plus client device metadata when the transport captured it. It is a
// separate kind from the ledger's completion event so consumers of either can
// filter without deduplicating on the receipt key.
func (s *Service) emitEnriched(ctx context.Context, receipt *ledgermodels.Receipt, profile *registrymodels.Profile) {
	n := events.PaymentNotification{
		ReceiptID:        receipt.ID,
		Sender:           receipt.Sender,
		RecipientAddress: receipt.RecipientAddress,
		ProfileID:        receipt.ProfileID,
		Asset:            receipt.Asset,
		Amount:           receipt.Amount,
		Fee:              receipt.Fee,
		NetAmount:        receipt.NetAmount,
		PreferredAsset:   profile.PreferredAsset,
		Device:           requestcontext.Device(ctx),
		Timestamp:        receipt.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, n); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "enriched payment notification failed",
			"receipt_id", receipt.ID.String(),
			"error", err,
		)
	}
}
