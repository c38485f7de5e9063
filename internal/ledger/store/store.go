// Package store provides the ledger's persistence implementations. The
// ledger state is one System row, per-(address,asset) balances, and an
// append-only receipts table.
package store

import (
	"context"

	"facepay/internal/ledger/models"
	"facepay/pkg/domain"
)

// Store is the ledger service's persistence port. Implementations return
// sentinel errors; the service translates them.
type Store interface {
	// System returns the singleton ledger state.
	System(ctx context.Context) (*models.System, error)

	// ExecuteSystem atomically runs validate then mutate against the system
	// state, holding the store's lock across both.
	ExecuteSystem(ctx context.Context,
		validate func(*models.System) error,
		mutate func(*models.System)) (*models.System, error)

	// Credit adds value to an account balance, creating it at zero first.
	Credit(ctx context.Context, addr domain.Address, asset domain.Asset, amount uint64) error

	// Balance reads an account balance. Unknown accounts read as zero.
	Balance(ctx context.Context, addr domain.Address, asset domain.Asset) (uint64, error)

	// CreateReceipt appends an immutable receipt.
	CreateReceipt(ctx context.Context, receipt *models.Receipt) error

	// Receipt returns a receipt or sentinel.ErrNotFound.
	Receipt(ctx context.Context, id domain.ReceiptID) (*models.Receipt, error)

	// ReceiptsBySender lists a sender's receipts, newest first, optionally
	// filtered to the given statuses.
	ReceiptsBySender(ctx context.Context, sender domain.Address,
		statuses []models.ReceiptStatus) ([]*models.Receipt, error)
}

// Tx runs a function atomically with respect to the store: either every
// write inside fn commits, or none do. The SQL implementation opens a
// transaction and threads it through context; the memory implementation
// serializes callers so checks-then-writes sequences observe no interleaving.
type Tx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
