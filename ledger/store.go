/*
store.go - Persistence interface for consumers, balances and history.

Mirrors the teacher engine's generic.Store shape (append-only, idempotency
key enforced) but scoped to this domain: one balance per consumer (not one
per entity+policy), and a single append-only history stream per consumer
rather than a generic transaction ledger.

IMPLEMENTATIONS:
  - memstore.Store:    in-memory, for tests and local development
  - store/sqlite.Store: SQLite-backed, for production

FAILURE CONTRACT (SPEC_FULL.md §4.1):
  A read for an unknown consumer returns a freshly zeroed Consumer, not an
  error. A write to an unknown consumer implicitly creates it.
*/
package ledger

import (
	"context"
	"time"
)

// Store is the persistence capability the event processor depends on.
// All operations on a single consumer must be externally serialized by the
// caller via a LockTable (lock.go); Store implementations are not required to
// add their own per-consumer locking. Store embeds AuditLog, the same split
// the teacher keeps between its transaction Store and its AuditLog, so one
// implementation backs both without a second constructor argument.
type Store interface {
	AuditLog

	// GetConsumer returns the consumer's profile, or a Consumer carrying only
	// the ID (empty Market, zero Balance) if none exists yet.
	GetConsumer(ctx context.Context, id ConsumerID) (Consumer, error)

	// GetBalance returns the consumer's balance, zeroed if none exists yet.
	GetBalance(ctx context.Context, id ConsumerID) (Balance, error)

	// UpdateBalance atomically replaces the stored balance.
	UpdateBalance(ctx context.Context, id ConsumerID, balance Balance) error

	// EventExists reports whether eventID has already been recorded.
	EventExists(ctx context.Context, eventID EventID) (bool, error)

	// AppendHistory appends an immutable history record. Returns
	// ErrDuplicateEvent if the event ID already exists.
	AppendHistory(ctx context.Context, event HistoryEvent) error

	// HistoryRange returns history events for a consumer within [from, to],
	// ordered by timestamp ascending.
	HistoryRange(ctx context.Context, id ConsumerID, from, to time.Time) ([]HistoryEvent, error)

	// PurchaseCount returns the number of PURCHASE history events recorded
	// for the consumer strictly before asOf.
	PurchaseCount(ctx context.Context, id ConsumerID, asOf time.Time) (int, error)

	// FirstPurchaseTimestamp returns the timestamp of the consumer's
	// earliest PURCHASE event strictly before asOf, if any.
	FirstPurchaseTimestamp(ctx context.Context, id ConsumerID, asOf time.Time) (*time.Time, error)
}
