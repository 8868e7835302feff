/*
Package memstore provides an in-memory ledger.Store, grounded on the
teacher engine's generic/store/memory.go: a mutex-guarded map plus a
sorted-insert history slice per key, sized for tests and local development
rather than production traffic.
*/
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/loyalty-engine/ledger"
)

// Store is an in-memory, process-safe implementation of ledger.Store.
type Store struct {
	mu        sync.RWMutex
	consumers map[ledger.ConsumerID]ledger.Consumer
	history   map[ledger.ConsumerID][]ledger.HistoryEvent
	eventIDs  map[ledger.EventID]bool
	audit     []ledger.AuditEntry
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		consumers: make(map[ledger.ConsumerID]ledger.Consumer),
		history:   make(map[ledger.ConsumerID][]ledger.HistoryEvent),
		eventIDs:  make(map[ledger.EventID]bool),
	}
}

// SeedConsumer installs a consumer profile for tests that need a non-zero
// birth date / VIP flag / tags before the first event arrives.
func (s *Store) SeedConsumer(c ledger.Consumer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumers[c.ConsumerID] = c
}

func (s *Store) GetConsumer(_ context.Context, id ledger.ConsumerID) (ledger.Consumer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.consumers[id]; ok {
		return c, nil
	}
	return ledger.Consumer{ConsumerID: id}, nil
}

func (s *Store) GetBalance(_ context.Context, id ledger.ConsumerID) (ledger.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.consumers[id].Balance, nil
}

func (s *Store) UpdateBalance(_ context.Context, id ledger.ConsumerID, balance ledger.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.consumers[id]
	if !ok {
		c = ledger.Consumer{ConsumerID: id}
	}
	c.Balance = balance
	s.consumers[id] = c
	return nil
}

func (s *Store) EventExists(_ context.Context, eventID ledger.EventID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventIDs[eventID], nil
}

func (s *Store) AppendHistory(_ context.Context, event ledger.HistoryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.eventIDs[event.EventID] {
		return &ledger.DuplicateEventError{EventID: event.EventID}
	}

	events := s.history[event.ConsumerID]
	i := sort.Search(len(events), func(i int) bool {
		return events[i].Timestamp.After(event.Timestamp)
	})
	events = append(events, ledger.HistoryEvent{})
	copy(events[i+1:], events[i:])
	events[i] = event
	s.history[event.ConsumerID] = events
	s.eventIDs[event.EventID] = true
	return nil
}

func (s *Store) HistoryRange(_ context.Context, id ledger.ConsumerID, from, to time.Time) ([]ledger.HistoryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ledger.HistoryEvent
	for _, e := range s.history[id] {
		if !e.Timestamp.Before(from) && !e.Timestamp.After(to) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *Store) PurchaseCount(_ context.Context, id ledger.ConsumerID, asOf time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.history[id] {
		if e.EventType == ledger.EventPurchase && e.Timestamp.Before(asOf) {
			count++
		}
	}
	return count, nil
}

func (s *Store) FirstPurchaseTimestamp(_ context.Context, id ledger.ConsumerID, asOf time.Time) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var first *time.Time
	for _, e := range s.history[id] {
		if e.EventType != ledger.EventPurchase || !e.Timestamp.Before(asOf) {
			continue
		}
		if first == nil || e.Timestamp.Before(*first) {
			t := e.Timestamp
			first = &t
		}
	}
	return first, nil
}

func (s *Store) Append(_ context.Context, entry ledger.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, entry)
	return nil
}

func (s *Store) Query(_ context.Context, filter ledger.AuditFilter) ([]ledger.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ledger.AuditEntry
	for _, e := range s.audit {
		if filter.ConsumerID != nil && e.ConsumerID != *filter.ConsumerID {
			continue
		}
		if filter.ActorID != nil && e.ActorID != *filter.ActorID {
			continue
		}
		if len(filter.Actions) > 0 && !containsAction(filter.Actions, e.Action) {
			continue
		}
		if filter.From != nil && e.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.Timestamp.After(*filter.To) {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func containsAction(actions []ledger.AuditAction, a ledger.AuditAction) bool {
	for _, candidate := range actions {
		if candidate == a {
			return true
		}
	}
	return false
}

var _ ledger.Store = (*Store)(nil)
