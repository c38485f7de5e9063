// Package events defines the durable notification records the core emits for
// off-chain observers (indexers, notification services). Field names are part
// of the external contract; changing them breaks existing consumers.
package events

import (
	"time"

	"facepay/pkg/domain"
)

// Kind names a notification type. Kinds double as Kafka record headers and
// memory-sink filters.
type Kind string

const (
	KindRegistered          Kind = "registered"
	KindPreferencesUpdated  Kind = "preferences_updated"
	KindVerificationUpdated Kind = "verification_updated"
	KindPaymentInitiated    Kind = "payment_initiated"
	KindPaymentCompleted    Kind = "payment_completed"
	KindPaymentNotification Kind = "payment_notification"
	KindPaymentFailed       Kind = "payment_failed"
)

// Notification is one emitted record. Key groups records for partitioning:
// registry events key on the profile, payment events on the receipt.
type Notification interface {
	Kind() Kind
	Key() string
	OccurredAt() time.Time
}

// Registered is emitted once per successful profile registration.
type Registered struct {
	ProfileID      domain.ProfileID `json:"profile_id"`
	OwnerAddress   domain.Address   `json:"owner_address"`
	DisplayName    string           `json:"display_name"`
	PreferredAsset domain.Asset     `json:"preferred_asset"`
	Timestamp      time.Time        `json:"timestamp"`
}

func (e Registered) Kind() Kind            { return KindRegistered }
func (e Registered) Key() string           { return e.ProfileID.String() }
func (e Registered) OccurredAt() time.Time { return e.Timestamp }

// PreferencesUpdated is emitted when a profile owner changes preferred asset
// or display name.
type PreferencesUpdated struct {
	ProfileID      domain.ProfileID `json:"profile_id"`
	PreferredAsset domain.Asset     `json:"preferred_asset"`
	DisplayName    string           `json:"display_name"`
	Timestamp      time.Time        `json:"timestamp"`
}

func (e PreferencesUpdated) Kind() Kind            { return KindPreferencesUpdated }
func (e PreferencesUpdated) Key() string           { return e.ProfileID.String() }
func (e PreferencesUpdated) OccurredAt() time.Time { return e.Timestamp }

// VerificationUpdated is emitted on admin verify/unverify.
type VerificationUpdated struct {
	ProfileID domain.ProfileID `json:"profile_id"`
	Verified  bool             `json:"verified"`
	Timestamp time.Time        `json:"timestamp"`
}

func (e VerificationUpdated) Kind() Kind            { return KindVerificationUpdated }
func (e VerificationUpdated) Key() string           { return e.ProfileID.String() }
func (e VerificationUpdated) OccurredAt() time.Time { return e.Timestamp }

// PaymentInitiated is emitted before PaymentCompleted for the same receipt,
// in that order, within one payment.
type PaymentInitiated struct {
	ReceiptID domain.ReceiptID `json:"receipt_id"`
	Sender    domain.Address   `json:"sender"`
	ProfileID domain.ProfileID `json:"profile_id"`
	Asset     domain.Asset     `json:"asset"`
	Amount    uint64           `json:"amount"`
	Timestamp time.Time        `json:"timestamp"`
}

func (e PaymentInitiated) Kind() Kind            { return KindPaymentInitiated }
func (e PaymentInitiated) Key() string           { return e.ReceiptID.String() }
func (e PaymentInitiated) OccurredAt() time.Time { return e.Timestamp }

// PaymentCompleted records the full outcome of a successful payment, emitted
// by the ledger after commit.
type PaymentCompleted struct {
	ReceiptID        domain.ReceiptID `json:"receipt_id"`
	Sender           domain.Address   `json:"sender"`
	RecipientAddress domain.Address   `json:"recipient_address"`
	ProfileID        domain.ProfileID `json:"profile_id"`
	Asset            domain.Asset     `json:"asset"`
	Amount           uint64           `json:"amount"`
	Fee              uint64           `json:"fee"`
	NetAmount        uint64           `json:"net_amount"`
	Timestamp        time.Time        `json:"timestamp"`
}

func (e PaymentCompleted) Kind() Kind            { return KindPaymentCompleted }
func (e PaymentCompleted) Key() string           { return e.ReceiptID.String() }
func (e PaymentCompleted) OccurredAt() time.Time { return e.Timestamp }

// PaymentNotification is the enriched completion record the orchestration
// layer publishes for subscriber-facing consumers. It carries its own kind so
// indexers can tell it apart from the ledger's PaymentCompleted for the same
// receipt. PreferredAsset and Device are informational and omitted when
// unknown.
type PaymentNotification struct {
	ReceiptID        domain.ReceiptID `json:"receipt_id"`
	Sender           domain.Address   `json:"sender"`
	RecipientAddress domain.Address   `json:"recipient_address"`
	ProfileID        domain.ProfileID `json:"profile_id"`
	Asset            domain.Asset     `json:"asset"`
	Amount           uint64           `json:"amount"`
	Fee              uint64           `json:"fee"`
	NetAmount        uint64           `json:"net_amount"`
	PreferredAsset   domain.Asset     `json:"preferred_asset,omitempty"`
	Device           string           `json:"device,omitempty"`
	Timestamp        time.Time        `json:"timestamp"`
}

func (e PaymentNotification) Kind() Kind            { return KindPaymentNotification }
func (e PaymentNotification) Key() string           { return e.ReceiptID.String() }
func (e PaymentNotification) OccurredAt() time.Time { return e.Timestamp }

// PaymentFailed records a payment attempt that minted a failed receipt (the
// swap path). Refunded is the full input amount routed back to the sender.
type PaymentFailed struct {
	ReceiptID domain.ReceiptID `json:"receipt_id"`
	Sender    domain.Address   `json:"sender"`
	Asset     domain.Asset     `json:"asset"`
	Refunded  uint64           `json:"refunded"`
	Reason    string           `json:"reason"`
	Timestamp time.Time        `json:"timestamp"`
}

func (e PaymentFailed) Kind() Kind            { return KindPaymentFailed }
func (e PaymentFailed) Key() string           { return e.ReceiptID.String() }
func (e PaymentFailed) OccurredAt() time.Time { return e.Timestamp }
