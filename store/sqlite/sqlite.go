/*
Package sqlite provides a SQLite-backed implementation of ledger.Store.

PURPOSE:
  Persists consumers, their point balances, and their append-only event
  history. Adapted from the teacher engine's store/sqlite package: same WAL
  setup, same append-only discipline, same auto-migrated schema-on-New()
  approach, re-keyed around one balance per consumer instead of one
  transaction ledger per entity+policy.

KEY TABLES:
  consumers: profile fields (market, birth date, VIP flag, tags)
  balances:  current (total, available, used, version, tx count) per consumer
  history:   immutable append-only event log, one row per processed event

APPEND-ONLY ENFORCEMENT:
  history has no UPDATE/DELETE path in this package. balances IS mutated in
  place (UPSERT) because it is a derived, not ledger, quantity — its
  authoritative source of truth is the history table's running total, the
  same relationship the teacher's balance_snapshots bears to its
  transactions table.

WAL MODE:
  Opened with WAL for concurrent readers while one writer commits, same as
  the teacher's store.

SEE ALSO:
  - ledger/store.go: interface definition
  - ledger/memstore: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/loyalty-engine/ledger"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite-backed store at dbPath. Use ":memory:" for an
// in-memory database (handy for tests that still want to exercise real SQL).
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS consumers (
		id         TEXT PRIMARY KEY,
		market     TEXT NOT NULL,
		birth_date TEXT,
		is_vip     BOOLEAN NOT NULL DEFAULT 0,
		tags_json  TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS balances (
		consumer_id       TEXT PRIMARY KEY REFERENCES consumers(id),
		total             INTEGER NOT NULL DEFAULT 0,
		available         INTEGER NOT NULL DEFAULT 0,
		used              INTEGER NOT NULL DEFAULT 0,
		account_version   INTEGER NOT NULL DEFAULT 0,
		transaction_count INTEGER NOT NULL DEFAULT 0,
		updated_at        TEXT NOT NULL
	);

	-- Append-only event history. No UPDATE/DELETE statement against this
	-- table exists anywhere in this package.
	CREATE TABLE IF NOT EXISTS history (
		event_id             TEXT PRIMARY KEY,
		consumer_id          TEXT NOT NULL,
		event_type           TEXT NOT NULL,
		timestamp             TEXT NOT NULL,
		market               TEXT NOT NULL,
		channel              TEXT,
		product_line         TEXT,
		total_points_awarded INTEGER NOT NULL,
		breakdown_json       TEXT NOT NULL,
		resulting_balance_json TEXT NOT NULL,
		created_at           TEXT NOT NULL
	);

	-- Hot path: purchaseCount / daysSinceFirstPurchase / history listing.
	CREATE INDEX IF NOT EXISTS idx_history_consumer_timestamp
		ON history(consumer_id, timestamp);

	-- Hot path: purchaseCount / firstPurchaseTimestamp filter by event type.
	CREATE INDEX IF NOT EXISTS idx_history_consumer_type_timestamp
		ON history(consumer_id, event_type, timestamp);

	-- Audit trail, separate from history: who did what, not what the
	-- consumer's balance became. Append-only, same as history.
	CREATE TABLE IF NOT EXISTS audit_log (
		id          TEXT PRIMARY KEY,
		timestamp   TEXT NOT NULL,
		actor_id    TEXT NOT NULL,
		action      TEXT NOT NULL,
		consumer_id TEXT NOT NULL,
		event_id    TEXT NOT NULL,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_consumer_timestamp
		ON audit_log(consumer_id, timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CONSUMER / BALANCE
// =============================================================================

func (s *Store) GetConsumer(ctx context.Context, id ledger.ConsumerID) (ledger.Consumer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT market, birth_date, is_vip, tags_json FROM consumers WHERE id = ?`, id)

	var market string
	var birthDate, tagsJSON sql.NullString
	var isVIP bool
	if err := row.Scan(&market, &birthDate, &isVIP, &tagsJSON); err != nil {
		if err == sql.ErrNoRows {
			return ledger.Consumer{ConsumerID: id}, nil
		}
		return ledger.Consumer{}, &ledger.StoreError{Op: "GetConsumer", Err: err}
	}

	c := ledger.Consumer{
		ConsumerID: id,
		Market:     ledger.Market(market),
		IsVIP:      isVIP,
	}
	if birthDate.Valid && birthDate.String != "" {
		t, err := time.Parse(time.RFC3339, birthDate.String)
		if err == nil {
			c.BirthDate = &t
		}
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		_ = json.Unmarshal([]byte(tagsJSON.String), &c.Tags)
	}

	balance, err := s.getBalanceLocked(ctx, id)
	if err != nil {
		return ledger.Consumer{}, err
	}
	c.Balance = balance
	return c, nil
}

func (s *Store) GetBalance(ctx context.Context, id ledger.ConsumerID) (ledger.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getBalanceLocked(ctx, id)
}

func (s *Store) getBalanceLocked(ctx context.Context, id ledger.ConsumerID) (ledger.Balance, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT total, available, used, account_version, transaction_count
		FROM balances WHERE consumer_id = ?`, id)

	var b ledger.Balance
	if err := row.Scan(&b.Total, &b.Available, &b.Used, &b.AccountVersion, &b.TransactionCount); err != nil {
		if err == sql.ErrNoRows {
			return ledger.Balance{}, nil
		}
		return ledger.Balance{}, &ledger.StoreError{Op: "GetBalance", Err: err}
	}
	return b, nil
}

func (s *Store) UpdateBalance(ctx context.Context, id ledger.ConsumerID, balance ledger.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO consumers (id, market, is_vip, created_at)
		VALUES (?, '', 0, ?)
		ON CONFLICT(id) DO NOTHING`,
		id, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return &ledger.StoreError{Op: "UpdateBalance(ensure consumer)", Err: err}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO balances (consumer_id, total, available, used, account_version, transaction_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(consumer_id) DO UPDATE SET
			total = excluded.total,
			available = excluded.available,
			used = excluded.used,
			account_version = excluded.account_version,
			transaction_count = excluded.transaction_count,
			updated_at = excluded.updated_at`,
		id, balance.Total, balance.Available, balance.Used,
		balance.AccountVersion, balance.TransactionCount,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return &ledger.StoreError{Op: "UpdateBalance", Err: err}
	}
	return nil
}

// =============================================================================
// HISTORY
// =============================================================================

func (s *Store) EventExists(ctx context.Context, eventID ledger.EventID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM history WHERE event_id = ?`, eventID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &ledger.StoreError{Op: "EventExists", Err: err}
	}
	return true, nil
}

func (s *Store) AppendHistory(ctx context.Context, event ledger.HistoryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	breakdownJSON, err := json.Marshal(event.PointBreakdown)
	if err != nil {
		return &ledger.StoreError{Op: "AppendHistory(marshal breakdown)", Err: err}
	}
	balanceJSON, err := json.Marshal(event.ResultingBalance)
	if err != nil {
		return &ledger.StoreError{Op: "AppendHistory(marshal balance)", Err: err}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO history
		(event_id, consumer_id, event_type, timestamp, market, channel, product_line,
		 total_points_awarded, breakdown_json, resulting_balance_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.EventID, event.ConsumerID, event.EventType,
		event.Timestamp.UTC().Format(time.RFC3339), event.Market, event.Channel, event.ProductLine,
		event.TotalPointsAwarded, string(breakdownJSON), string(balanceJSON),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return &ledger.DuplicateEventError{EventID: event.EventID}
		}
		return &ledger.StoreError{Op: "AppendHistory", Err: err}
	}
	return nil
}

func (s *Store) HistoryRange(ctx context.Context, id ledger.ConsumerID, from, to time.Time) ([]ledger.HistoryEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, consumer_id, event_type, timestamp, market, channel, product_line,
		       total_points_awarded, breakdown_json, resulting_balance_json, created_at
		FROM history
		WHERE consumer_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC`,
		id, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, &ledger.StoreError{Op: "HistoryRange", Err: err}
	}
	defer rows.Close()

	return scanHistory(rows)
}

func (s *Store) PurchaseCount(ctx context.Context, id ledger.ConsumerID, asOf time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM history
		WHERE consumer_id = ? AND event_type = ? AND timestamp < ?`,
		id, ledger.EventPurchase, asOf.UTC().Format(time.RFC3339)).Scan(&count)
	if err != nil {
		return 0, &ledger.StoreError{Op: "PurchaseCount", Err: err}
	}
	return count, nil
}

func (s *Store) FirstPurchaseTimestamp(ctx context.Context, id ledger.ConsumerID, asOf time.Time) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ts sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT MIN(timestamp) FROM history
		WHERE consumer_id = ? AND event_type = ? AND timestamp < ?`,
		id, ledger.EventPurchase, asOf.UTC().Format(time.RFC3339)).Scan(&ts)
	if err != nil {
		return nil, &ledger.StoreError{Op: "FirstPurchaseTimestamp", Err: err}
	}
	if !ts.Valid || ts.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, ts.String)
	if err != nil {
		return nil, &ledger.StoreError{Op: "FirstPurchaseTimestamp(parse)", Err: err}
	}
	return &t, nil
}

func scanHistory(rows *sql.Rows) ([]ledger.HistoryEvent, error) {
	var result []ledger.HistoryEvent
	for rows.Next() {
		var e ledger.HistoryEvent
		var tsStr, createdAtStr, breakdownJSON, balanceJSON string
		if err := rows.Scan(&e.EventID, &e.ConsumerID, &e.EventType, &tsStr, &e.Market,
			&e.Channel, &e.ProductLine, &e.TotalPointsAwarded, &breakdownJSON, &balanceJSON,
			&createdAtStr); err != nil {
			return nil, &ledger.StoreError{Op: "HistoryRange(scan)", Err: err}
		}

		ts, err := time.Parse(time.RFC3339, tsStr)
		if err != nil {
			return nil, &ledger.StoreError{Op: "HistoryRange(parse timestamp)", Err: err}
		}
		e.Timestamp = ts
		if createdAtStr != "" {
			if created, err := time.Parse(time.RFC3339, createdAtStr); err == nil {
				e.CreatedAt = created
			}
		}
		if err := json.Unmarshal([]byte(breakdownJSON), &e.PointBreakdown); err != nil {
			return nil, &ledger.StoreError{Op: "HistoryRange(unmarshal breakdown)", Err: err}
		}
		if err := json.Unmarshal([]byte(balanceJSON), &e.ResultingBalance); err != nil {
			return nil, &ledger.StoreError{Op: "HistoryRange(unmarshal balance)", Err: err}
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.StoreError{Op: "HistoryRange(rows)", Err: err}
	}
	return result, nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (s *Store) Append(ctx context.Context, entry ledger.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payloadJSON, err := json.Marshal(entry.Payload)
	if err != nil {
		return &ledger.StoreError{Op: "Append(audit, marshal payload)", Err: err}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, timestamp, actor_id, action, consumer_id, event_id, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp.UTC().Format(time.RFC3339), entry.ActorID, entry.Action,
		entry.ConsumerID, entry.EventID, string(payloadJSON))
	if err != nil {
		return &ledger.StoreError{Op: "Append(audit)", Err: err}
	}
	return nil
}

func (s *Store) Query(ctx context.Context, filter ledger.AuditFilter) ([]ledger.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, timestamp, actor_id, action, consumer_id, event_id, payload_json FROM audit_log WHERE 1=1`
	var args []any
	if filter.ConsumerID != nil {
		query += ` AND consumer_id = ?`
		args = append(args, *filter.ConsumerID)
	}
	if filter.ActorID != nil {
		query += ` AND actor_id = ?`
		args = append(args, *filter.ActorID)
	}
	if filter.From != nil {
		query += ` AND timestamp >= ?`
		args = append(args, filter.From.UTC().Format(time.RFC3339))
	}
	if filter.To != nil {
		query += ` AND timestamp <= ?`
		args = append(args, filter.To.UTC().Format(time.RFC3339))
	}
	query += ` ORDER BY timestamp ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &ledger.StoreError{Op: "Query(audit)", Err: err}
	}
	defer rows.Close()

	var result []ledger.AuditEntry
	for rows.Next() {
		var e ledger.AuditEntry
		var tsStr, action, payloadJSON string
		if err := rows.Scan(&e.ID, &tsStr, &e.ActorID, &action, &e.ConsumerID, &e.EventID, &payloadJSON); err != nil {
			return nil, &ledger.StoreError{Op: "Query(audit, scan)", Err: err}
		}
		ts, err := time.Parse(time.RFC3339, tsStr)
		if err != nil {
			return nil, &ledger.StoreError{Op: "Query(audit, parse timestamp)", Err: err}
		}
		e.Timestamp = ts
		e.Action = ledger.AuditAction(action)
		if payloadJSON != "" {
			if err := json.Unmarshal([]byte(payloadJSON), &e.Payload); err != nil {
				return nil, &ledger.StoreError{Op: "Query(audit, unmarshal payload)", Err: err}
			}
		}
		if !containsAction(filter.Actions, e.Action) && len(filter.Actions) > 0 {
			continue
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.StoreError{Op: "Query(audit, rows)", Err: err}
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

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ ledger.Store = (*Store)(nil)
