// Package domain holds the shared value objects of the facepay core: typed
// identifiers, addresses, fingerprints, assets, and the admin capability.
// Keeping them in one leaf package lets every layer share vocabulary without
// import cycles.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "facepay/pkg/domain-errors"
)

// Typed IDs prevent cross-type assignment at compile time. A ReceiptID can
// never be passed where a ProfileID is expected.
type (
	// ProfileID identifies a registered profile.
	ProfileID uuid.UUID

	// ReceiptID identifies a payment receipt.
	ReceiptID uuid.UUID
)

// NewProfileID mints a random profile identifier.
func NewProfileID() ProfileID { return ProfileID(uuid.New()) }

// NewReceiptID mints a random receipt identifier.
func NewReceiptID() ReceiptID { return ReceiptID(uuid.New()) }

func (id ProfileID) String() string { return uuid.UUID(id).String() }
func (id ProfileID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ReceiptID) String() string { return uuid.UUID(id).String() }
func (id ReceiptID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText implementations keep IDs stable in JSON payloads and event
// records without exposing the uuid dependency to consumers.
func (id ProfileID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *ProfileID) UnmarshalText(b []byte) error {
	parsed, err := ParseProfileID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ReceiptID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *ReceiptID) UnmarshalText(b []byte) error {
	parsed, err := ParseReceiptID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseProfileID validates and converts an external string into a ProfileID.
// IDs must be valid, non-nil UUIDs; anything else is rejected at the trust
// boundary.
func ParseProfileID(s string) (ProfileID, error) {
	u, err := parseUUID(s, "profile id")
	if err != nil {
		return ProfileID{}, err
	}
	return ProfileID(u), nil
}

// ParseReceiptID validates and converts an external string into a ReceiptID.
func ParseReceiptID(s string) (ReceiptID, error) {
	u, err := parseUUID(s, "receipt id")
	if err != nil {
		return ReceiptID{}, err
	}
	return ReceiptID(u), nil
}

func parseUUID(s, what string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be nil")
	}
	return u, nil
}

// Address is the opaque identifier of a controlling account. It is assigned
// by the external authentication provider; the core only requires it to be
// non-empty and treats it as already verified.
type Address string

// ParseAddress validates an externally supplied address string.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}
	return Address(s), nil
}

func (a Address) String() string { return string(a) }
func (a Address) IsZero() bool   { return a == "" }
