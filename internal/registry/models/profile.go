package models

import (
	"time"

	"facepay/pkg/domain"
	dErrors "facepay/pkg/domain-errors"
)

// Profile is the canonical identity record linking a fingerprint to a payable
// address and preferences.
//
// Invariants:
//   - Fingerprint maps to at most one Profile
//   - OwnerAddress maps to at most one Profile
//   - PaymentCount only increases
//   - Verified changes only through the admin capability path
//   - CreatedAt is immutable after construction
type Profile struct {
	ID             domain.ProfileID   `json:"id"`
	OwnerAddress   domain.Address     `json:"owner_address"`
	Fingerprint    domain.Fingerprint `json:"-"`
	StorageRef     string             `json:"storage_ref"`
	PreferredAsset domain.Asset       `json:"preferred_asset"`
	DisplayName    string             `json:"display_name"`
	Verified       bool               `json:"verified"`
	PaymentCount   uint64             `json:"payment_count"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// NewProfile constructs a profile, enforcing construction invariants.
func NewProfile(
	id domain.ProfileID,
	owner domain.Address,
	fingerprint domain.Fingerprint,
	storageRef string,
	preferredAsset domain.Asset,
	displayName string,
	now time.Time,
) (*Profile, error) {
	if owner.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "owner address cannot be empty")
	}
	if fingerprint.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "fingerprint cannot be empty")
	}
	if preferredAsset.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "preferred asset cannot be empty")
	}
	if len(displayName) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "display name must be 128 characters or less")
	}
	return &Profile{
		ID:             id,
		OwnerAddress:   owner,
		Fingerprint:    fingerprint,
		StorageRef:     storageRef,
		PreferredAsset: preferredAsset,
		DisplayName:    displayName,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// CanUpdatePreferences checks that the requester owns the profile.
// Use with ApplyPreferences in Execute callbacks.
func (p *Profile) CanUpdatePreferences(requester domain.Address) error {
	if requester != p.OwnerAddress {
		return dErrors.New(dErrors.CodeNotAuthorized, "only the profile owner can update preferences")
	}
	return nil
}

// ApplyPreferences updates the mutable preference fields and the timestamp.
// Call CanUpdatePreferences first.
func (p *Profile) ApplyPreferences(preferredAsset domain.Asset, displayName string, now time.Time) {
	if !preferredAsset.IsZero() {
		p.PreferredAsset = preferredAsset
	}
	if displayName != "" {
		p.DisplayName = displayName
	}
	p.UpdatedAt = now
}

// ApplyVerification flips the verified flag. Authorization happens at the
// service layer via the admin capability; the model only records the change.
func (p *Profile) ApplyVerification(verified bool, now time.Time) {
	p.Verified = verified
	p.UpdatedAt = now
}

// ApplyPaymentReceived bumps the monotonic payment counter.
func (p *Profile) ApplyPaymentReceived(now time.Time) {
	p.PaymentCount++
	p.UpdatedAt = now
}

// Clone returns a deep copy. Memory stores hand out clones so callers cannot
// mutate indexed state behind the store's lock.
func (p *Profile) Clone() *Profile {
	cp := *p
	return &cp
}
