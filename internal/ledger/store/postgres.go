package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"facepay/internal/ledger/models"
	"facepay/pkg/domain"
	"facepay/pkg/platform/sentinel"
	txcontext "facepay/pkg/platform/tx"
)

// PostgresStore persists the ledger: a single system row, per-account
// balances, and an append-only receipts table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the ledger tables and seeds the system row if absent.
func (s *PostgresStore) EnsureSchema(ctx context.Context, seed *models.System) error {
	const schema = `
CREATE TABLE IF NOT EXISTS ledger_system (
    id             SMALLINT PRIMARY KEY CHECK (id = 1),
    fee_rate_bps   BIGINT NOT NULL,
    fee_balance    BIGINT NOT NULL,
    assets         JSONB NOT NULL,
    total_payments BIGINT NOT NULL,
    total_volume   BIGINT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL,
    updated_at     TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS balances (
    address TEXT NOT NULL,
    asset   TEXT NOT NULL,
    amount  BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (address, asset)
);
CREATE TABLE IF NOT EXISTS receipts (
    id                 UUID PRIMARY KEY,
    sender             TEXT NOT NULL,
    profile_id         UUID NOT NULL,
    fingerprint_digest TEXT NOT NULL,
    recipient_address  TEXT NOT NULL,
    asset              TEXT NOT NULL,
    amount             BIGINT NOT NULL,
    fee                BIGINT NOT NULL,
    net_amount         BIGINT NOT NULL,
    swap_requested     BOOLEAN NOT NULL,
    status             TEXT NOT NULL,
    failure_reason     TEXT NOT NULL DEFAULT '',
    created_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS receipts_sender_idx ON receipts (sender, created_at DESC)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}

	assets, err := json.Marshal(seed.Assets)
	if err != nil {
		return fmt.Errorf("marshal seed assets: %w", err)
	}
	const seedQuery = `
INSERT INTO ledger_system (id, fee_rate_bps, fee_balance, assets, total_payments, total_volume, created_at, updated_at)
VALUES (1, $1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING`
	_, err = s.db.ExecContext(ctx, seedQuery,
		seed.FeeRateBps, seed.FeeBalance, assets,
		seed.TotalPayments, seed.TotalVolume, seed.CreatedAt, seed.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("seed ledger system: %w", err)
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const selectSystem = `
SELECT fee_rate_bps, fee_balance, assets, total_payments, total_volume, created_at, updated_at
FROM ledger_system WHERE id = 1`

func (s *PostgresStore) System(ctx context.Context) (*models.System, error) {
	return scanSystem(s.execer(ctx).QueryRowContext(ctx, selectSystem))
}

// ExecuteSystem locks the system row FOR UPDATE for the validate-then-mutate
// sequence. Joins a caller transaction when one is in context.
func (s *PostgresStore) ExecuteSystem(ctx context.Context,
	validate func(*models.System) error,
	mutate func(*models.System)) (*models.System, error) {

	if tx, ok := txcontext.From(ctx); ok {
		return s.executeSystemIn(ctx, tx, validate, mutate)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin system update: %w", err)
	}
	system, err := s.executeSystemIn(ctx, tx, validate, mutate)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit system update: %w", err)
	}
	return system, nil
}

func (s *PostgresStore) executeSystemIn(ctx context.Context, tx *sql.Tx,
	validate func(*models.System) error,
	mutate func(*models.System)) (*models.System, error) {

	system, err := scanSystem(tx.QueryRowContext(ctx, selectSystem+` FOR UPDATE`))
	if err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(system); err != nil {
			return nil, err
		}
	}
	mutate(system)

	assets, err := json.Marshal(system.Assets)
	if err != nil {
		return nil, fmt.Errorf("marshal assets: %w", err)
	}
	const update = `
UPDATE ledger_system
SET fee_rate_bps = $1, fee_balance = $2, assets = $3,
    total_payments = $4, total_volume = $5, updated_at = $6
WHERE id = 1`
	if _, err := tx.ExecContext(ctx, update,
		system.FeeRateBps, system.FeeBalance, assets,
		system.TotalPayments, system.TotalVolume, system.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("update system: %w", err)
	}
	return system, nil
}

func (s *PostgresStore) Credit(ctx context.Context, addr domain.Address, asset domain.Asset, amount uint64) error {
	const query = `
INSERT INTO balances (address, asset, amount) VALUES ($1, $2, $3)
ON CONFLICT (address, asset) DO UPDATE SET amount = balances.amount + EXCLUDED.amount`
	if _, err := s.execer(ctx).ExecContext(ctx, query, addr.String(), asset.String(), amount); err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	return nil
}

func (s *PostgresStore) Balance(ctx context.Context, addr domain.Address, asset domain.Asset) (uint64, error) {
	var amount uint64
	const query = `SELECT COALESCE(
    (SELECT amount FROM balances WHERE address = $1 AND asset = $2), 0)`
	row := s.execer(ctx).QueryRowContext(ctx, query, addr.String(), asset.String())
	if err := row.Scan(&amount); err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return amount, nil
}

func (s *PostgresStore) CreateReceipt(ctx context.Context, receipt *models.Receipt) error {
	const query = `
INSERT INTO receipts (
    id, sender, profile_id, fingerprint_digest, recipient_address, asset,
    amount, fee, net_amount, swap_requested, status, failure_reason, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(receipt.ID),
		receipt.Sender.String(),
		uuid.UUID(receipt.ProfileID),
		receipt.FingerprintDigest,
		receipt.RecipientAddress.String(),
		receipt.Asset.String(),
		receipt.Amount,
		receipt.Fee,
		receipt.NetAmount,
		receipt.SwapRequested,
		string(receipt.Status),
		receipt.FailureReason,
		receipt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

const selectReceipt = `
SELECT id, sender, profile_id, fingerprint_digest, recipient_address, asset,
       amount, fee, net_amount, swap_requested, status, failure_reason, created_at
FROM receipts `

func (s *PostgresStore) Receipt(ctx context.Context, id domain.ReceiptID) (*models.Receipt, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, selectReceipt+`WHERE id = $1`, uuid.UUID(id))
	if err != nil {
		return nil, fmt.Errorf("query receipt: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query receipt: %w", err)
		}
		return nil, sentinel.ErrNotFound
	}
	return scanReceipt(rows)
}

func (s *PostgresStore) ReceiptsBySender(ctx context.Context, sender domain.Address,
	statuses []models.ReceiptStatus) ([]*models.Receipt, error) {

	filter := make([]string, 0, len(statuses))
	for _, st := range statuses {
		filter = append(filter, string(st))
	}

	query := selectReceipt + `WHERE sender = $1`
	args := []any{sender.String()}
	if len(filter) > 0 {
		query += ` AND status = ANY($2)`
		args = append(args, pq.Array(filter))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer rows.Close()

	var out []*models.Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return out, nil
}

// SQLTx implements Tx with real database transactions threaded through
// context, so every store touched inside fn joins the same commit.
type SQLTx struct {
	db *sql.DB
}

func NewSQLTx(db *sql.DB) *SQLTx {
	return &SQLTx{db: db}
}

func (t *SQLTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txcontext.From(ctx); ok {
		// Already inside a transaction; join it.
		return fn(ctx)
	}
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func scanSystem(row *sql.Row) (*models.System, error) {
	var (
		system models.System
		assets []byte
	)
	err := row.Scan(
		&system.FeeRateBps, &system.FeeBalance, &assets,
		&system.TotalPayments, &system.TotalVolume,
		&system.CreatedAt, &system.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan system: %w", err)
	}
	if err := json.Unmarshal(assets, &system.Assets); err != nil {
		return nil, fmt.Errorf("unmarshal assets: %w", err)
	}
	return &system, nil
}

func scanReceipt(rows *sql.Rows) (*models.Receipt, error) {
	var (
		receipt   models.Receipt
		id        uuid.UUID
		profileID uuid.UUID
		sender    string
		recipient string
		asset     string
		status    string
	)
	err := rows.Scan(
		&id, &sender, &profileID, &receipt.FingerprintDigest, &recipient, &asset,
		&receipt.Amount, &receipt.Fee, &receipt.NetAmount, &receipt.SwapRequested,
		&status, &receipt.FailureReason, &receipt.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan receipt: %w", err)
	}
	receipt.ID = domain.ReceiptID(id)
	receipt.ProfileID = domain.ProfileID(profileID)
	receipt.Sender = domain.Address(sender)
	receipt.RecipientAddress = domain.Address(recipient)
	receipt.Asset = domain.Asset(asset)
	receipt.Status = models.ReceiptStatus(status)
	return &receipt, nil
}
