// Package service implements the payment ledger: fee configuration, the
// supported-asset allow-list, balance movement, and receipt minting.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"facepay/internal/events"
	ledgermetrics "facepay/internal/ledger/metrics"
	"facepay/internal/ledger/models"
	"facepay/internal/ledger/store"
	registrymodels "facepay/internal/registry/models"
	"facepay/pkg/domain"
	dErrors "facepay/pkg/domain-errors"
	"facepay/pkg/platform/sentinel"
	"facepay/pkg/requestcontext"
)

// Profiles is the slice of the registry the ledger needs. FindByID confirms
// the recipient still exists before any ledger state moves, and RecordPayment
// must commit inside the payment transaction.
type Profiles interface {
	FindByID(ctx context.Context, profileID domain.ProfileID) (*registrymodels.Profile, error)
	RecordPayment(ctx context.Context, profileID domain.ProfileID) error
}

// Service executes payments against the shared ledger state. Every payment
// is all-or-nothing: no counter, balance, or table changes unless every
// precondition passes.
type Service struct {
	ledger    store.Store
	tx        store.Tx
	profiles  Profiles
	publisher events.Publisher
	metrics   *ledgermetrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
	adminCap  domain.AdminCap
}

// Option configures the Service.
type Option func(*Service)

// WithPublisher sets the notification sink. Defaults to a memory sink.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *ledgermetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New binds the ledger to its store, transaction runner, the registry's
// payment-count port, and the minted admin capability.
func New(ledger store.Store, tx store.Tx, profiles Profiles, adminCap domain.AdminCap, opts ...Option) *Service {
	s := &Service{
		ledger:    ledger,
		tx:        tx,
		profiles:  profiles,
		publisher: events.NewMemorySink(),
		tracer:    otel.Tracer("facepay/ledger"),
		adminCap:  adminCap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PayParams carries one payment attempt. Sender is the authenticated payer;
// RecipientFingerprint is the candidate the capture layer produced, checked
// against the profile before any value moves.
type PayParams struct {
	Sender               domain.Address
	RecipientProfile     *registrymodels.Profile
	RecipientFingerprint domain.Fingerprint
	Funds                domain.Funds
}

// Pay executes the transfer: match check, self-payment check, allow-list and
// minimum checks, fee split, balance credits, counters, receipt, events.
//
// Event order is part of the contract: PaymentInitiated then PaymentCompleted,
// both carrying the same receipt ID. Events are published after commit and
// never roll a payment back.
func (s *Service) Pay(ctx context.Context, params PayParams) (*models.Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.pay")
	defer span.End()
	start := time.Now()

	receipt, err := s.executePay(ctx, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		s.recordFailed(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("receipt_id", receipt.ID.String()),
		attribute.String("asset", receipt.Asset.String()),
		attribute.Int64("amount", int64(receipt.Amount)),
	)
	if s.metrics != nil {
		s.metrics.RecordCompleted(receipt.Amount, receipt.Fee)
		s.metrics.ObservePaymentDuration(time.Since(start).Seconds())
	}

	now := receipt.CreatedAt
	s.emit(ctx, events.PaymentInitiated{
		ReceiptID: receipt.ID,
		Sender:    receipt.Sender,
		ProfileID: receipt.ProfileID,
		Asset:     receipt.Asset,
		Amount:    receipt.Amount,
		Timestamp: now,
	})
	s.emit(ctx, events.PaymentCompleted{
		ReceiptID:        receipt.ID,
		Sender:           receipt.Sender,
		RecipientAddress: receipt.RecipientAddress,
		ProfileID:        receipt.ProfileID,
		Asset:            receipt.Asset,
		Amount:           receipt.Amount,
		Fee:              receipt.Fee,
		NetAmount:        receipt.NetAmount,
		Timestamp:        now,
	})
	return receipt, nil
}

func (s *Service) executePay(ctx context.Context, params PayParams) (*models.Receipt, error) {
	profile := params.RecipientProfile
	if profile == nil {
		return nil, dErrors.New(dErrors.CodeIdentityNotFound, "recipient profile is required")
	}
	if params.Sender.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "sender address is required")
	}

	// Guard against stale handles: the profile the caller resolved must still
	// carry the fingerprint the capture layer produced.
	if !profile.Fingerprint.Matches(params.RecipientFingerprint) {
		return nil, dErrors.New(dErrors.CodeFingerprintMismatch, "fingerprint does not match recipient profile")
	}
	if params.Sender == profile.OwnerAddress {
		return nil, dErrors.New(dErrors.CodeSelfPaymentNotAllowed, "sender and recipient are the same address")
	}
	if params.Funds.Amount == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "payment amount must be positive")
	}

	now := requestcontext.Now(ctx)
	var receipt *models.Receipt

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		// The handle the caller resolved may be stale. Every fallible step runs
		// before the first write so a failure leaves the ledger untouched.
		if _, err := s.profiles.FindByID(txCtx, profile.ID); err != nil {
			return err
		}

		var fee, net uint64
		_, err := s.ledger.ExecuteSystem(txCtx,
			func(sys *models.System) error {
				if !sys.Supports(params.Funds.Asset) {
					return dErrors.Newf(dErrors.CodeUnsupportedAsset, "asset %s is not supported", params.Funds.Asset)
				}
				if min := sys.MinimumFor(params.Funds.Asset); params.Funds.Amount < min {
					return dErrors.Newf(dErrors.CodeBelowMinimum, "amount %d is below the minimum of %d", params.Funds.Amount, min)
				}
				fee, net = sys.SplitFee(params.Funds.Amount)
				return nil
			},
			func(sys *models.System) {
				sys.ApplyPayment(params.Funds.Amount, fee, now)
			},
		)
		if err != nil {
			return wrapLedgerErr(err)
		}

		if err := s.ledger.Credit(txCtx, profile.OwnerAddress, params.Funds.Asset, net); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to credit recipient")
		}
		if err := s.profiles.RecordPayment(txCtx, profile.ID); err != nil {
			return err
		}

		receipt = models.NewCompletedReceipt(
			params.Sender,
			profile.ID,
			params.RecipientFingerprint.Digest(),
			profile.OwnerAddress,
			params.Funds.Asset,
			params.Funds.Amount, fee, net,
			now,
		)
		if err := s.ledger.CreateReceipt(txCtx, receipt); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store receipt")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// SwapParams extends PayParams with the cross-asset conversion inputs.
type SwapParams struct {
	PayParams
	SlippageBps uint64
	Deadline    time.Time
}

// PayWithSwap accepts funds of an arbitrary asset for conversion into the
// recipient's preferred asset. The conversion itself is intentionally
// unimplemented: after validating the request, the full input is refunded to
// the sender and a failed receipt is recorded. The sender's balance nets to
// zero. Completing the swap changes the audited contract surface and is out
// of scope here.
func (s *Service) PayWithSwap(ctx context.Context, params SwapParams) (*models.Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.pay_with_swap")
	defer span.End()

	profile := params.RecipientProfile
	if profile == nil {
		return nil, dErrors.New(dErrors.CodeIdentityNotFound, "recipient profile is required")
	}
	if params.Sender.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "sender address is required")
	}
	if !profile.Fingerprint.Matches(params.RecipientFingerprint) {
		return nil, dErrors.New(dErrors.CodeFingerprintMismatch, "fingerprint does not match recipient profile")
	}
	if params.Sender == profile.OwnerAddress {
		return nil, dErrors.New(dErrors.CodeSelfPaymentNotAllowed, "sender and recipient are the same address")
	}
	if params.Funds.Amount == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "payment amount must be positive")
	}

	now := requestcontext.Now(ctx)
	if params.Deadline.IsZero() || params.Deadline.Before(now) {
		return nil, dErrors.New(dErrors.CodeInvalidSwapParameters, "swap deadline is missing or already passed")
	}
	if params.SlippageBps > 10_000 {
		return nil, dErrors.New(dErrors.CodeInvalidSwapParameters, "slippage cannot exceed 10000 bps")
	}

	const reason = "cross-asset swap is not available"
	var receipt *models.Receipt
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		// Fail-safe refund: route the full input back to the sender.
		if err := s.ledger.Credit(txCtx, params.Sender, params.Funds.Asset, params.Funds.Amount); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to refund sender")
		}
		receipt = models.NewFailedSwapReceipt(
			params.Sender,
			profile.ID,
			params.RecipientFingerprint.Digest(),
			profile.OwnerAddress,
			params.Funds.Asset,
			params.Funds.Amount,
			reason,
			now,
		)
		if err := s.ledger.CreateReceipt(txCtx, receipt); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store receipt")
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordFailed("swap_unavailable")
	}
	s.emit(ctx, events.PaymentFailed{
		ReceiptID: receipt.ID,
		Sender:    receipt.Sender,
		Asset:     receipt.Asset,
		Refunded:  receipt.Amount,
		Reason:    reason,
		Timestamp: now,
	})
	return receipt, nil
}

// AddSupportedAsset puts an asset on the allow-list with a minimum payment
// threshold. Capability-gated.
func (s *Service) AddSupportedAsset(ctx context.Context, cap domain.AdminCap, asset domain.Asset, minimum uint64) error {
	if err := s.requireCap(cap); err != nil {
		return err
	}
	if asset.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "asset is required")
	}
	now := requestcontext.Now(ctx)
	_, err := s.ledger.ExecuteSystem(ctx, nil, func(sys *models.System) {
		sys.ApplyAsset(asset, minimum, now)
	})
	return wrapLedgerErr(err)
}

// RemoveSupportedAsset drops an asset from the allow-list. The default asset
// cannot be removed.
func (s *Service) RemoveSupportedAsset(ctx context.Context, cap domain.AdminCap, asset domain.Asset) error {
	if err := s.requireCap(cap); err != nil {
		return err
	}
	now := requestcontext.Now(ctx)
	_, err := s.ledger.ExecuteSystem(ctx,
		func(sys *models.System) error {
			return sys.CanRemoveAsset(asset)
		},
		func(sys *models.System) {
			sys.ApplyRemoveAsset(asset, now)
		},
	)
	return wrapLedgerErr(err)
}

// SetFeeRate changes the protocol fee rate, capped at the system ceiling.
// On rejection the rate is unchanged.
func (s *Service) SetFeeRate(ctx context.Context, cap domain.AdminCap, bps uint64) error {
	if err := s.requireCap(cap); err != nil {
		return err
	}
	now := requestcontext.Now(ctx)
	_, err := s.ledger.ExecuteSystem(ctx,
		func(sys *models.System) error {
			return sys.CanSetFeeRate(bps)
		},
		func(sys *models.System) {
			sys.ApplyFeeRate(bps, now)
		},
	)
	return wrapLedgerErr(err)
}

// WithdrawFees drains accumulated fees to the given address.
func (s *Service) WithdrawFees(ctx context.Context, cap domain.AdminCap, to domain.Address, amount uint64) error {
	if err := s.requireCap(cap); err != nil {
		return err
	}
	if to.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "destination address is required")
	}
	now := requestcontext.Now(ctx)
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var asset domain.Asset
		_, err := s.ledger.ExecuteSystem(txCtx,
			func(sys *models.System) error {
				asset = domain.DefaultAsset
				return sys.CanWithdrawFees(amount)
			},
			func(sys *models.System) {
				sys.ApplyWithdrawFees(amount, now)
			},
		)
		if err != nil {
			return wrapLedgerErr(err)
		}
		if err := s.ledger.Credit(txCtx, to, asset, amount); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to credit withdrawal")
		}
		return nil
	})
}

// Receipt loads one receipt.
func (s *Service) Receipt(ctx context.Context, id domain.ReceiptID) (*models.Receipt, error) {
	receipt, err := s.ledger.Receipt(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "receipt not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load receipt")
	}
	return receipt, nil
}

// ReceiptsBySender lists a sender's receipts, newest first.
func (s *Service) ReceiptsBySender(ctx context.Context, sender domain.Address,
	statuses []models.ReceiptStatus) ([]*models.Receipt, error) {

	for _, st := range statuses {
		if !st.Valid() {
			return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown receipt status %q", st)
		}
	}
	receipts, err := s.ledger.ReceiptsBySender(ctx, sender, statuses)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list receipts")
	}
	return receipts, nil
}

// Balance reads an account balance.
func (s *Service) Balance(ctx context.Context, addr domain.Address, asset domain.Asset) (uint64, error) {
	amount, err := s.ledger.Balance(ctx, addr, asset)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read balance")
	}
	return amount, nil
}

// Stats returns a snapshot of the shared ledger state.
func (s *Service) Stats(ctx context.Context) (*models.System, error) {
	system, err := s.ledger.System(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ledger state")
	}
	return system, nil
}

func (s *Service) requireCap(cap domain.AdminCap) error {
	if !s.adminCap.Grants(cap) {
		return dErrors.New(dErrors.CodeNotAuthorized, "admin capability required")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, n events.Notification) {
	if err := s.publisher.Publish(ctx, n); err != nil {
		if s.metrics != nil {
			s.metrics.RecordPublishFailure()
		}
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "payment notification failed",
				"kind", string(n.Kind()),
				"key", n.Key(),
				"error", err,
			)
		}
	}
}

func (s *Service) recordFailed(err error) {
	if s.metrics != nil {
		s.metrics.RecordFailed(string(dErrors.CodeOf(err)))
	}
}

func wrapLedgerErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeInternal, "ledger state is missing")
	}
	if dErrors.Is(err) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "ledger operation failed")
}
