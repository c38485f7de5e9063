package models

import (
	"time"

	"facepay/pkg/domain"
)

// ReceiptStatus tags a receipt's outcome. Receipts are minted with their
// final status; StatusPending is part of the status vocabulary off-chain
// consumers parse but is never used as an intermediate state — it is reserved
// for a future asynchronous settlement path.
type ReceiptStatus string

const (
	StatusPending   ReceiptStatus = "pending"
	StatusCompleted ReceiptStatus = "completed"
	StatusFailed    ReceiptStatus = "failed"
)

// Valid reports whether s is a known status tag.
func (s ReceiptStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Receipt is the immutable record of one payment attempt. Nothing mutates a
// receipt after creation.
type Receipt struct {
	ID                domain.ReceiptID `json:"id"`
	Sender            domain.Address   `json:"sender"`
	ProfileID         domain.ProfileID `json:"profile_id"`
	FingerprintDigest string           `json:"fingerprint_digest"`
	RecipientAddress  domain.Address   `json:"recipient_address"`
	Asset             domain.Asset     `json:"asset"`
	Amount            uint64           `json:"amount"`
	Fee               uint64           `json:"fee"`
	NetAmount         uint64           `json:"net_amount"`
	SwapRequested     bool             `json:"swap_requested"`
	Status            ReceiptStatus    `json:"status"`
	FailureReason     string           `json:"failure_reason,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}

// NewCompletedReceipt mints the record of a successful transfer.
func NewCompletedReceipt(
	sender domain.Address,
	profile domain.ProfileID,
	fingerprintDigest string,
	recipient domain.Address,
	asset domain.Asset,
	amount, fee, net uint64,
	now time.Time,
) *Receipt {
	return &Receipt{
		ID:                domain.NewReceiptID(),
		Sender:            sender,
		ProfileID:         profile,
		FingerprintDigest: fingerprintDigest,
		RecipientAddress:  recipient,
		Asset:             asset,
		Amount:            amount,
		Fee:               fee,
		NetAmount:         net,
		Status:            StatusCompleted,
		CreatedAt:         now,
	}
}

// NewFailedSwapReceipt mints the record of a swap attempt that was refunded
// in full. No fee is taken and no value reaches the recipient.
func NewFailedSwapReceipt(
	sender domain.Address,
	profile domain.ProfileID,
	fingerprintDigest string,
	recipient domain.Address,
	asset domain.Asset,
	amount uint64,
	reason string,
	now time.Time,
) *Receipt {
	return &Receipt{
		ID:                domain.NewReceiptID(),
		Sender:            sender,
		ProfileID:         profile,
		FingerprintDigest: fingerprintDigest,
		RecipientAddress:  recipient,
		Asset:             asset,
		Amount:            amount,
		SwapRequested:     true,
		Status:            StatusFailed,
		FailureReason:     reason,
		CreatedAt:         now,
	}
}

// Clone returns a copy. Memory stores hand out clones to keep receipts
// immutable in practice, not just by convention.
func (r *Receipt) Clone() *Receipt {
	cp := *r
	return &cp
}
