package reconcile

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
)

// MemoryStore is an in-process Store. A unit of work holds the store lock
// and works on copies that are swapped in on success.
type MemoryStore struct {
	mu     sync.Mutex
	state  memState
	failTx error // returned by the next InTx, for tests
}

type memState struct {
	events map[string]Record
	order  []string
	users  map[uuid.UUID]entitlement.SubscriptionFacts
	ledger map[string]LedgerEntry
}

func (s memState) clone() memState {
	users := make(map[uuid.UUID]entitlement.SubscriptionFacts, len(s.users))
	for id, f := range s.users {
		users[id] = f.Clone()
	}
	return memState{
		events: maps.Clone(s.events),
		order:  append([]string(nil), s.order...),
		users:  users,
		ledger: maps.Clone(s.ledger),
	}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memState{
		events: make(map[string]Record),
		users:  make(map[uuid.UUID]entitlement.SubscriptionFacts),
		ledger: make(map[string]LedgerEntry),
	}}
}

// AddUser registers a user with the given facts.
func (s *MemoryStore) AddUser(id uuid.UUID, facts entitlement.SubscriptionFacts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.users[id] = facts.Clone()
}

// Facts returns the stored facts of a user.
func (s *MemoryStore) Facts(id uuid.UUID) (entitlement.SubscriptionFacts, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.state.users[id]
	return f.Clone(), ok
}

// Event returns the stored event record.
func (s *MemoryStore) Event(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.state.events[id]
	return rec, ok
}

// Ledger returns all ledger entries.
func (s *MemoryStore) Ledger() []LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LedgerEntry, 0, len(s.state.ledger))
	for _, e := range s.state.ledger {
		out = append(out, e)
	}
	return out
}

// FailNextTx makes the next unit of work fail with err before committing.
func (s *MemoryStore) FailNextTx(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failTx = err
}

func (s *MemoryStore) RecordEvent(_ context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.state.events[rec.ExternalEventID]; ok {
		return existing, nil
	}
	rec.Processed = false
	s.state.events[rec.ExternalEventID] = rec
	s.state.order = append(s.state.order, rec.ExternalEventID)
	return rec, nil
}

func (s *MemoryStore) RecordFailure(_ context.Context, eventID, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.state.events[eventID]
	if !ok {
		return entitlement.ErrNotFound
	}
	rec.Attempts++
	rec.LastError = cause
	s.state.events[eventID] = rec
	return nil
}

func (s *MemoryStore) PendingEvents(_ context.Context, limit, maxAttempts int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, id := range s.state.order {
		if limit > 0 && len(out) >= limit {
			break
		}
		rec := s.state.events[id]
		if rec.Processed || (maxAttempts > 0 && rec.Attempts >= maxAttempts) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{state: s.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if s.failTx != nil {
		err := s.failTx
		s.failTx = nil
		return err
	}
	s.state = tx.state
	return nil
}

type memTx struct {
	state memState
}

func (t *memTx) LockEvent(_ context.Context, eventID string) (Record, error) {
	rec, ok := t.state.events[eventID]
	if !ok {
		return Record{}, entitlement.ErrNotFound
	}
	return rec, nil
}

func (t *memTx) LockUser(_ context.Context, ref UserRef) (uuid.UUID, entitlement.SubscriptionFacts, error) {
	if ref.UserID != uuid.Nil {
		if f, ok := t.state.users[ref.UserID]; ok {
			return ref.UserID, f.Clone(), nil
		}
	}
	if ref.SubscriptionID != "" {
		for id, f := range t.state.users {
			if f.ExternalSubscriptionID == ref.SubscriptionID {
				return id, f.Clone(), nil
			}
		}
	}
	if ref.CustomerID != "" {
		for id, f := range t.state.users {
			if f.ExternalCustomerID == ref.CustomerID {
				return id, f.Clone(), nil
			}
		}
	}
	return uuid.Nil, entitlement.SubscriptionFacts{}, entitlement.ErrNotFound
}

func (t *memTx) SaveFacts(_ context.Context, userID uuid.UUID, facts entitlement.SubscriptionFacts) error {
	if _, ok := t.state.users[userID]; !ok {
		return entitlement.ErrNotFound
	}
	t.state.users[userID] = facts.Clone()
	return nil
}

func (t *memTx) InsertLedgerEntry(_ context.Context, entry LedgerEntry) (bool, error) {
	if _, ok := t.state.ledger[entry.ExternalEventID]; ok {
		return false, nil
	}
	t.state.ledger[entry.ExternalEventID] = entry
	return true, nil
}

func (t *memTx) MarkProcessed(_ context.Context, eventID string, outcome Outcome, at time.Time) error {
	rec, ok := t.state.events[eventID]
	if !ok {
		return entitlement.ErrNotFound
	}
	rec.Processed = true
	rec.Outcome = outcome
	rec.ProcessedAt = &at
	t.state.events[eventID] = rec
	return nil
}
