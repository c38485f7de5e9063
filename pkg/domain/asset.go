package domain

import (
	"strings"

	dErrors "facepay/pkg/domain-errors"
)

// Asset is an asset-type symbol ("SUI", "USDC"). Symbols are stored
// uppercase; comparison is exact.
type Asset string

// DefaultAsset is the asset every ledger supports from creation. It cannot be
// removed from the allow-list.
const DefaultAsset Asset = "SUI"

// ParseAsset validates and normalizes an asset symbol.
func ParseAsset(s string) (Asset, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "asset is required")
	}
	if len(s) > 16 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "asset symbol must be 16 characters or less")
	}
	return Asset(s), nil
}

func (a Asset) String() string { return string(a) }
func (a Asset) IsZero() bool   { return a == "" }

// Funds is a quantity of one asset, in minor units. It is a value object:
// funds presented to the ledger are assumed to exist (the submission layer
// guarantees that), the core only splits and routes them.
type Funds struct {
	Asset  Asset  `json:"asset"`
	Amount uint64 `json:"amount"`
}

// NewFunds builds a Funds value, rejecting zero amounts.
func NewFunds(asset Asset, amount uint64) (Funds, error) {
	if asset.IsZero() {
		return Funds{}, dErrors.New(dErrors.CodeInvalidInput, "asset is required")
	}
	if amount == 0 {
		return Funds{}, dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}
	return Funds{Asset: asset, Amount: amount}, nil
}
