package usage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
)

// MemoryStore is an in-process Store for tests and single instance setups.
// Users must be registered with Add before their counters can change.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[uuid.UUID]entitlement.UsageCounters
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[uuid.UUID]entitlement.UsageCounters)}
}

// Add registers a user with initial counters, replacing any existing entry.
func (s *MemoryStore) Add(userID uuid.UUID, c entitlement.UsageCounters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[userID] = c
}

func (s *MemoryStore) Counters(_ context.Context, userID uuid.UUID) (entitlement.UsageCounters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[userID]
	if !ok {
		return entitlement.UsageCounters{}, entitlement.ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) IncrementPDF(_ context.Context, userID uuid.UUID, period string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[userID]
	if !ok {
		return 0, entitlement.ErrNotFound
	}
	if c.UsagePeriod != period {
		c.UsagePeriod = period
		c.PDFDownloadsUsed = 0
	}
	c.PDFDownloadsUsed++
	s.counters[userID] = c
	return c.PDFDownloadsUsed, nil
}

func (s *MemoryStore) IncrementAICredits(_ context.Context, userID uuid.UUID, n int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[userID]
	if !ok {
		return 0, entitlement.ErrNotFound
	}
	c.AICreditsUsed += n
	s.counters[userID] = c
	return c.AICreditsUsed, nil
}

func (s *MemoryStore) IncrementPDFWithin(_ context.Context, userID uuid.UUID, period string, limit int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[userID]
	if !ok {
		return 0, entitlement.ErrNotFound
	}
	if c.UsagePeriod != period {
		c.UsagePeriod = period
		c.PDFDownloadsUsed = 0
	}
	if c.PDFDownloadsUsed >= limit {
		return 0, ErrLimitReached
	}
	c.PDFDownloadsUsed++
	s.counters[userID] = c
	return c.PDFDownloadsUsed, nil
}

func (s *MemoryStore) IncrementAICreditsWithin(_ context.Context, userID uuid.UUID, n, total int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[userID]
	if !ok {
		return 0, entitlement.ErrNotFound
	}
	if c.AICreditsUsed+n > total {
		return 0, ErrLimitReached
	}
	c.AICreditsUsed += n
	s.counters[userID] = c
	return c.AICreditsUsed, nil
}
