package store

import (
	"context"
	"sync"

	"facepay/internal/registry/models"
	"facepay/pkg/domain"
	"facepay/pkg/platform/sentinel"
)

// MemoryStore keeps profiles behind one mutex. All reads hand out clones so
// indexed state cannot be mutated outside Execute.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[domain.ProfileID]*models.Profile
	byDigest   map[string]domain.ProfileID
	byAddress  map[domain.Address]domain.ProfileID
	registered uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:      make(map[domain.ProfileID]*models.Profile),
		byDigest:  make(map[string]domain.ProfileID),
		byAddress: make(map[domain.Address]domain.ProfileID),
	}
}

func (s *MemoryStore) Create(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	digest := profile.Fingerprint.Digest()
	if _, exists := s.byDigest[digest]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byAddress[profile.OwnerAddress]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byID[profile.ID]; exists {
		return sentinel.ErrConflict
	}

	s.byID[profile.ID] = profile.Clone()
	s.byDigest[digest] = profile.ID
	s.byAddress[profile.OwnerAddress] = profile.ID
	s.registered++
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id domain.ProfileID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return profile.Clone(), nil
}

func (s *MemoryStore) FindByFingerprintDigest(_ context.Context, digest string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byDigest[digest]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *MemoryStore) FindByAddress(_ context.Context, addr domain.Address) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byAddress[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

// Execute holds the write lock across validate and mutate so the
// validate-then-mutate sequence is atomic with respect to other writers.
func (s *MemoryStore) Execute(_ context.Context, id domain.ProfileID,
	validate func(*models.Profile) error,
	mutate func(*models.Profile)) (*models.Profile, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := profile.Clone()
	if validate != nil {
		if err := validate(working); err != nil {
			return nil, err
		}
	}
	mutate(working)
	s.byID[id] = working
	return working.Clone(), nil
}

func (s *MemoryStore) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registered, nil
}
