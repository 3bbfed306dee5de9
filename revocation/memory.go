package revocation

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"
)

// MemoryStore is a map-backed Store for tests and single-process demos.
// Expired records are dropped lazily on Verify and eagerly by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)
var _ Sweeper = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock uses now as the store's time source for lazy
// expiry and sweeping. Fixtures that freeze the engine clock must hand the
// same clock here, or records minted under frozen time expire against the
// wall clock.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		records: make(map[string]Record),
		now:     now,
	}
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ChainID] = rec
	return nil
}

func (s *MemoryStore) Verify(_ context.Context, userID, chainID, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[chainID]
	if !ok {
		return ErrNotFound
	}
	if !rec.ExpiresAt.After(s.now()) {
		delete(s.records, chainID)
		return ErrNotFound
	}
	if rec.UserID != userID {
		return ErrNotFound
	}
	if subtle.ConstantTimeCompare([]byte(rec.TokenHash), []byte(tokenHash)) != 1 {
		return ErrHashMismatch
	}
	return nil
}

func (s *MemoryStore) Revoke(_ context.Context, userID, chainID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[chainID]
	if !ok {
		return nil
	}
	if rec.UserID != userID {
		return ErrNotFound
	}
	delete(s.records, chainID)
	return nil
}

// Sweep drops every expired record and reports the count.
func (s *MemoryStore) Sweep(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var swept int64
	for chainID, rec := range s.records {
		if !rec.ExpiresAt.After(now) {
			delete(s.records, chainID)
			swept++
		}
	}
	return swept, nil
}

// Len reports the number of live plus not-yet-swept records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
