/*
Package ledger provides the consumer balance service: the (total, available,
used) ledger for consumer loyalty points and the append-only history of
processed events it is derived from.

PURPOSE:
  Tracks, per consumer, a running point balance and the immutable event
  history it was built from. Unlike a generic timed-resource ledger, this
  balance has no periods, no accrual schedules, and no carryover: every
  mutation is driven directly by a processed event (§4.1, §4.5 of
  SPEC_FULL.md).

KEY CONCEPTS:
  Balance:      {Total, Available, Used, AccountVersion, TransactionCount}
  HistoryEvent: immutable record appended once per processed EventInput
  Store:        append-only persistence capability (memstore, sqlite)

DESIGN PRINCIPLES:
  1. Integer points: a Balance only ever holds points the rewards package
     has already floored to int64 (rewards/formulas.go does the
     decimal.Decimal math and floors before a point ever reaches here).
  2. Append-only history: no Update/Delete on HistoryEvent, ever.
  3. Per-consumer serialization: callers acquire a consumer lock (lock.go)
     before reading a balance snapshot and mutating it.

SEE ALSO:
  - store.go: Store interface
  - balance.go: ApplyReward (the accrual/redemption transition, §4.5 step 9)
  - lock.go: per-consumer mutex table
*/
package ledger

import "time"

// ConsumerID identifies a consumer. A distinct type (rather than bare
// string) keeps it from being swapped accidentally with an EventID at a
// call site, mirroring the teacher engine's EntityID/PolicyID split.
type ConsumerID string

// EventID identifies a submitted event; also its idempotency key.
type EventID string

// Market is the enum of markets this engine serves.
type Market string

const (
	MarketJP Market = "JP"
	MarketHK Market = "HK"
	MarketTW Market = "TW"
)

// EventType is the enum of business events the engine accepts.
type EventType string

const (
	EventPurchase     EventType = "PURCHASE"
	EventRegistration EventType = "REGISTRATION"
	EventRecycle      EventType = "RECYCLE"
	EventConsultation EventType = "CONSULTATION"
	EventAdjustment   EventType = "ADJUSTMENT"
	EventRedemption   EventType = "REDEMPTION"
)

// Balance is the per-consumer point ledger. Invariant: Available+Used==Total
// after every non-redemption mutation (SPEC_FULL.md §3 invariant 1).
type Balance struct {
	Total            int64
	Available        int64
	Used             int64
	AccountVersion   int64
	TransactionCount int64
}

// Consumer is a loyalty program member's profile, as read from the store.
type Consumer struct {
	ConsumerID ConsumerID
	Market     Market
	BirthDate  *time.Time
	IsVIP      bool
	Tags       []string
	Balance    Balance
}

// BreakdownEntry is a per-matched-rule contribution to the reward total.
// Populated by the rewards package; stored verbatim on the HistoryEvent so
// the response (§4.5 step 12) and the ledger agree on what happened.
type BreakdownEntry struct {
	RuleName       string         `json:"ruleName"`
	Priority       int            `json:"priority"`
	Type           string         `json:"type"`
	Category       string         `json:"category"`
	Points         int64          `json:"points"`
	Description    string         `json:"description"`
	Computation    Computation    `json:"computation"`
	CampaignDetail map[string]any `json:"campaignDetails,omitempty"`
}

// Computation documents how a BreakdownEntry's points were derived.
type Computation struct {
	CalculationType string         `json:"calculationType"`
	Formula         string         `json:"formula"`
	Inputs          map[string]any `json:"inputs,omitempty"`
	Result          int64          `json:"result"`
}

// HistoryEvent is the immutable record appended once per processed input
// (SPEC_FULL.md §3). It is never mutated after Append.
type HistoryEvent struct {
	ConsumerID         ConsumerID
	EventID            EventID
	EventType          EventType
	Timestamp          time.Time
	Market             Market
	Channel            string
	ProductLine        string
	TotalPointsAwarded int64
	PointBreakdown     []BreakdownEntry
	ResultingBalance   Balance
	CreatedAt          time.Time
}
