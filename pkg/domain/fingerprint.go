package domain

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"

	dErrors "facepay/pkg/domain-errors"
)

// Fingerprint is the opaque string the off-chain recognition pipeline derives
// from a biometric sample. It is a lookup key, not a biometric: the core never
// interprets it, never compares it partially, and never canonicalizes it.
// Near-duplicate reads are the capture layer's problem.
type Fingerprint string

// ParseFingerprint validates an externally supplied fingerprint string.
func ParseFingerprint(s string) (Fingerprint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "fingerprint is required")
	}
	return Fingerprint(s), nil
}

func (f Fingerprint) String() string { return string(f) }
func (f Fingerprint) IsZero() bool   { return f == "" }

// Matches is an exact equality check. Used before any transfer to guard
// against stale profile handles.
func (f Fingerprint) Matches(candidate Fingerprint) bool { return f == candidate }

// Digest returns the hex-encoded blake2b-256 digest of the fingerprint.
// Persistent indices key on the digest so raw fingerprint strings never land
// in store indices or event payloads.
func (f Fingerprint) Digest() string {
	sum := blake2b.Sum256([]byte(f))
	return hex.EncodeToString(sum[:])
}
