package store

import (
	"context"
	"sort"
	"sync"

	"facepay/internal/ledger/models"
	"facepay/pkg/domain"
	"facepay/pkg/platform/sentinel"
)

type balanceKey struct {
	addr  domain.Address
	asset domain.Asset
}

// MemoryStore keeps the ledger state behind one mutex.
type MemoryStore struct {
	mu       sync.RWMutex
	system   *models.System
	balances map[balanceKey]uint64
	receipts map[domain.ReceiptID]*models.Receipt
	order    []domain.ReceiptID
}

// NewMemoryStore creates a memory ledger seeded with the given system state.
func NewMemoryStore(system *models.System) *MemoryStore {
	return &MemoryStore{
		system:   system.Clone(),
		balances: make(map[balanceKey]uint64),
		receipts: make(map[domain.ReceiptID]*models.Receipt),
	}
}

func (s *MemoryStore) System(_ context.Context) (*models.System, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.system.Clone(), nil
}

func (s *MemoryStore) ExecuteSystem(_ context.Context,
	validate func(*models.System) error,
	mutate func(*models.System)) (*models.System, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.system.Clone()
	if validate != nil {
		if err := validate(working); err != nil {
			return nil, err
		}
	}
	mutate(working)
	s.system = working
	return working.Clone(), nil
}

func (s *MemoryStore) Credit(_ context.Context, addr domain.Address, asset domain.Asset, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[balanceKey{addr: addr, asset: asset}] += amount
	return nil
}

func (s *MemoryStore) Balance(_ context.Context, addr domain.Address, asset domain.Asset) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[balanceKey{addr: addr, asset: asset}], nil
}

func (s *MemoryStore) CreateReceipt(_ context.Context, receipt *models.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.receipts[receipt.ID]; exists {
		return sentinel.ErrConflict
	}
	s.receipts[receipt.ID] = receipt.Clone()
	s.order = append(s.order, receipt.ID)
	return nil
}

func (s *MemoryStore) Receipt(_ context.Context, id domain.ReceiptID) (*models.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	receipt, ok := s.receipts[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return receipt.Clone(), nil
}

func (s *MemoryStore) ReceiptsBySender(_ context.Context, sender domain.Address,
	statuses []models.ReceiptStatus) ([]*models.Receipt, error) {

	wanted := make(map[models.ReceiptStatus]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Receipt
	for _, id := range s.order {
		r := s.receipts[id]
		if r.Sender != sender {
			continue
		}
		if len(wanted) > 0 && !wanted[r.Status] {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// MemoryTx serializes transactional sections with one mutex. It cannot roll
// back, so callers must order every fallible step before the first write;
// serialized execution then keeps failed operations from leaving partial
// state.
type MemoryTx struct {
	mu sync.Mutex
}

func NewMemoryTx() *MemoryTx {
	return &MemoryTx{}
}

func (t *MemoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}
