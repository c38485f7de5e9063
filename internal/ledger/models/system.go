package models

import (
	"math/bits"
	"time"

	"facepay/pkg/domain"
	dErrors "facepay/pkg/domain-errors"
)

// Fee rates are expressed in basis points (1/100th of a percent).
const (
	// DefaultFeeRateBps is 0.3%.
	DefaultFeeRateBps = 30
	// MaxFeeRateBps caps the admin-settable rate at 10%.
	MaxFeeRateBps = 1000
	// bpsDenominator converts basis points to a fraction.
	bpsDenominator = 10_000
)

// System is the shared configuration and accumulator state for payment
// processing: fee rate, accumulated fees, the supported-asset allow-list with
// per-asset minimums, and aggregate counters. Created once; mutated only
// through payments and capability-gated admin operations.
type System struct {
	FeeRateBps    uint64                  `json:"fee_rate_bps"`
	FeeBalance    uint64                  `json:"fee_balance"`
	Assets        map[domain.Asset]uint64 `json:"assets"`
	TotalPayments uint64                  `json:"total_payments"`
	TotalVolume   uint64                  `json:"total_volume"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// NewSystem creates the ledger state with the default fee rate and the
// default asset on the allow-list with no minimum.
func NewSystem(now time.Time) *System {
	return &System{
		FeeRateBps: DefaultFeeRateBps,
		Assets: map[domain.Asset]uint64{
			domain.DefaultAsset: 0,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Supports reports whether an asset is on the allow-list.
func (s *System) Supports(asset domain.Asset) bool {
	_, ok := s.Assets[asset]
	return ok
}

// MinimumFor returns the minimum payment amount for an asset. Zero for
// unlisted assets; callers must check Supports first.
func (s *System) MinimumFor(asset domain.Asset) uint64 {
	return s.Assets[asset]
}

// SplitFee computes fee = floor(amount * rate / 10000) and net = amount - fee.
// The product goes through a 128-bit intermediate so the floor is exact for
// any uint64 amount; fee + net == amount always holds.
func (s *System) SplitFee(amount uint64) (fee, net uint64) {
	hi, lo := bits.Mul64(amount, s.FeeRateBps)
	fee, _ = bits.Div64(hi, lo, bpsDenominator)
	return fee, amount - fee
}

// CanSetFeeRate validates a new fee rate against the ceiling.
func (s *System) CanSetFeeRate(bps uint64) error {
	if bps > MaxFeeRateBps {
		return dErrors.Newf(dErrors.CodeFeeRateTooHigh, "fee rate %d exceeds ceiling of %d bps", bps, MaxFeeRateBps)
	}
	return nil
}

// ApplyFeeRate sets the rate. Call CanSetFeeRate first.
func (s *System) ApplyFeeRate(bps uint64, now time.Time) {
	s.FeeRateBps = bps
	s.UpdatedAt = now
}

// ApplyAsset adds or updates an allow-list entry.
func (s *System) ApplyAsset(asset domain.Asset, minimum uint64, now time.Time) {
	if s.Assets == nil {
		s.Assets = make(map[domain.Asset]uint64)
	}
	s.Assets[asset] = minimum
	s.UpdatedAt = now
}

// CanRemoveAsset rejects removing the default asset or an unlisted one.
func (s *System) CanRemoveAsset(asset domain.Asset) error {
	if asset == domain.DefaultAsset {
		return dErrors.New(dErrors.CodeValidation, "default asset cannot be removed")
	}
	if !s.Supports(asset) {
		return dErrors.New(dErrors.CodeUnsupportedAsset, "asset is not on the allow-list")
	}
	return nil
}

// ApplyRemoveAsset drops an allow-list entry. Call CanRemoveAsset first.
func (s *System) ApplyRemoveAsset(asset domain.Asset, now time.Time) {
	delete(s.Assets, asset)
	s.UpdatedAt = now
}

// CanWithdrawFees validates a withdrawal against the accumulated balance.
func (s *System) CanWithdrawFees(amount uint64) error {
	if amount == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "withdrawal amount must be positive")
	}
	if amount > s.FeeBalance {
		return dErrors.Newf(dErrors.CodeInsufficientFeeBalance,
			"withdrawal of %d exceeds accumulated fees of %d", amount, s.FeeBalance)
	}
	return nil
}

// ApplyWithdrawFees drains fees. Call CanWithdrawFees first.
func (s *System) ApplyWithdrawFees(amount uint64, now time.Time) {
	s.FeeBalance -= amount
	s.UpdatedAt = now
}

// ApplyPayment accrues the fee and bumps the aggregate counters.
func (s *System) ApplyPayment(amount, fee uint64, now time.Time) {
	s.FeeBalance += fee
	s.TotalPayments++
	s.TotalVolume += amount
	s.UpdatedAt = now
}

// Clone returns a deep copy, including the asset map.
func (s *System) Clone() *System {
	cp := *s
	cp.Assets = make(map[domain.Asset]uint64, len(s.Assets))
	for k, v := range s.Assets {
		cp.Assets[k] = v
	}
	return &cp
}
