package domain

import "github.com/google/uuid"

// AdminCap is an unforgeable capability: possession of the value minted at
// system initialization is what authorizes privileged operations, never a
// role flag on a caller. The identity is unexported so other packages cannot
// fabricate a cap with a chosen identity; they can only hold one handed to
// them by the wiring layer.
type AdminCap struct {
	id uuid.UUID
}

// MintAdminCap creates a fresh capability. Call once at wiring time and bind
// the result to the registry and ledger at construction; any other cap will
// be rejected by those components.
func MintAdminCap() AdminCap {
	return AdminCap{id: uuid.New()}
}

// Grants reports whether two capabilities are the same minted value.
func (c AdminCap) Grants(other AdminCap) bool {
	return c.id != uuid.Nil && c.id == other.id
}

// IsZero reports whether the capability was never minted.
func (c AdminCap) IsZero() bool { return c.id == uuid.Nil }
