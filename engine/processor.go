/*
Package engine implements the event processor: the orchestration that
drives the facts engine, rule engine, and reward calculator against one
event, then mutates and persists the consumer balance (SPEC_FULL.md §4.5),
grounded on the teacher engine's request-processing pipeline
(generic/request.go / generic/engine_test.go) generalized from a period-
scoped accrual request to a single stateless event.
*/
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/warp/loyalty-engine/catalog"
	"github.com/warp/loyalty-engine/events"
	"github.com/warp/loyalty-engine/facts"
	"github.com/warp/loyalty-engine/ledger"
	"github.com/warp/loyalty-engine/loyaltyerrors"
	"github.com/warp/loyalty-engine/rewards"
	"github.com/warp/loyalty-engine/rules"
)

// EventResponse is the processor's single return shape (SPEC_FULL.md §4.5
// step 12), returned on both outright success and partial (soft-error)
// success.
type EventResponse struct {
	ConsumerID         ledger.ConsumerID        `json:"consumerId"`
	EventID            ledger.EventID           `json:"eventId"`
	EventType          ledger.EventType         `json:"eventType"`
	TotalPointsAwarded int64                    `json:"totalPointsAwarded"`
	PointBreakdown     []ledger.BreakdownEntry  `json:"pointBreakdown"`
	Errors             []*loyaltyerrors.RuleError `json:"errors"`
	ResultingBalance   ledger.Balance           `json:"resultingBalance"`
}

// Processor wires the store, lock table, fact registry, and rule catalog
// together behind the single ProcessEvent operation.
type Processor struct {
	store    ledger.Store
	locks    *ledger.LockTable
	registry *facts.Registry
	catalog  *catalog.Catalog
	now      func() time.Time
	log      *slog.Logger
}

// storeFailure wraps a ledger.Store error for the processor's own §7 error
// taxonomy. A *ledger.StoreError's Op, when present, is more specific than
// the caller's op name (e.g. it names which sub-step of AppendHistory
// failed), so it takes precedence.
func storeFailure(op string, err error) *loyaltyerrors.StoreFailureError {
	var storeErr *ledger.StoreError
	if errors.As(err, &storeErr) && storeErr.Op != "" {
		op = storeErr.Op
	}
	return &loyaltyerrors.StoreFailureError{Op: op, Err: err}
}

// adminID reads the operator identity an ADJUSTMENT event's context
// supplies, per SPEC_FULL.md §10. Absent or non-string, it's simply
// unknown — admin attribution is an audit nicety, not a gate on the event.
func adminID(in events.Input) string {
	id, _ := in.Ctx("adminId").(string)
	return id
}

// New builds a Processor. log defaults to slog.Default() if nil. The clock
// used for the "not later than now+24h" validation and for CreatedAt stamps
// is always time.Now; New takes no clock argument.
func New(store ledger.Store, locks *ledger.LockTable, registry *facts.Registry, cat *catalog.Catalog, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{store: store, locks: locks, registry: registry, catalog: cat, now: time.Now, log: log}
}

// ProcessEvent runs the twelve steps of SPEC_FULL.md §4.5 for one input.
func (p *Processor) ProcessEvent(ctx context.Context, in events.Input) (EventResponse, error) {
	log := p.log.With("eventId", in.EventID, "consumerId", in.ConsumerID, "eventType", in.EventType)

	// Step 1: validate.
	if err := in.Validate(p.now()); err != nil {
		log.Warn("validation failed", "error", err)
		return EventResponse{}, err
	}

	// Step 2: reject duplicate, ahead of acquiring the per-consumer lock so
	// a resubmission storm can't serialize behind real traffic.
	exists, err := p.store.EventExists(ctx, in.EventID)
	if err != nil {
		return EventResponse{}, storeFailure("EventExists", err)
	}
	if exists {
		return EventResponse{}, &loyaltyerrors.DuplicateEventError{EventID: string(in.EventID)}
	}

	if err := ctx.Err(); err != nil {
		return EventResponse{}, &loyaltyerrors.TimeoutErr{Stage: "lock acquisition"}
	}

	// Step 3: acquire per-consumer lock.
	unlock, err := p.locks.Lock(ctx, in.ConsumerID)
	if err != nil {
		if errors.Is(err, ledger.ErrConsumerLockTimeout) {
			log.Warn("consumer lock not acquired before deadline", "error", err)
		}
		return EventResponse{}, &loyaltyerrors.TimeoutErr{Stage: "lock acquisition"}
	}
	defer unlock()

	// Step 4: read balance snapshot pre-mutation.
	preBalance, err := p.store.GetBalance(ctx, in.ConsumerID)
	if err != nil {
		return EventResponse{}, storeFailure("GetBalance", err)
	}

	// Step 5: load rules applicable to {market, eventType}.
	ruleSet := p.catalog.RulesFor(in.Market, in.EventType)

	// Step 6: bind facts engine to the event.
	bindings := p.registry.Bind(in, p.store)

	// Step 7: run rule engine.
	runEngine := rules.NewEngine(ruleSet)
	matches, ruleErrors := runEngine.Run(ctx, string(in.Market), in.Channel, in.ProductLine, bindings)

	// Step 8: calculate rewards, sum signed points.
	breakdown := make([]ledger.BreakdownEntry, 0, len(matches))
	var total int64
	for _, m := range matches {
		entry, calcErr := rewards.Calculate(m, in)
		breakdown = append(breakdown, entry)
		total += entry.Points
		if calcErr != nil {
			ruleErrors = append(ruleErrors, calcErr)
		}
	}

	if err := ctx.Err(); err != nil {
		return EventResponse{}, &loyaltyerrors.TimeoutErr{Stage: "persist"}
	}

	// Step 9: compute new balance.
	nextBalance := ledger.ApplyReward(preBalance, total)

	// Step 10: persist history event and updated balance.
	historyEvent := ledger.HistoryEvent{
		ConsumerID:         in.ConsumerID,
		EventID:            in.EventID,
		EventType:          in.EventType,
		Timestamp:          in.Timestamp,
		Market:             in.Market,
		Channel:            in.Channel,
		ProductLine:        in.ProductLine,
		TotalPointsAwarded: total,
		PointBreakdown:     breakdown,
		ResultingBalance:   nextBalance,
		CreatedAt:          p.now(),
	}
	if err := p.store.AppendHistory(ctx, historyEvent); err != nil {
		if ledger.IsDuplicate(err) {
			return EventResponse{}, &loyaltyerrors.DuplicateEventError{EventID: string(in.EventID)}
		}
		return EventResponse{}, storeFailure("AppendHistory", err)
	}
	if err := p.store.UpdateBalance(ctx, in.ConsumerID, nextBalance); err != nil {
		return EventResponse{}, storeFailure("UpdateBalance", err)
	}

	// Manual adjustments additionally leave an audit trail entry, separate
	// from the balance-affecting history record above (SPEC_FULL.md §10).
	// A failure here is logged, not surfaced: the balance mutation already
	// committed, and the audit trail is a supplementary record of it, not
	// the record of truth.
	if in.EventType == ledger.EventAdjustment {
		entry := ledger.AuditEntry{
			ID:         string(in.EventID),
			Timestamp:  p.now(),
			ActorID:    adminID(in),
			Action:     ledger.AuditManualAdjust,
			ConsumerID: in.ConsumerID,
			EventID:    in.EventID,
			Payload:    map[string]any{"pointsAdjusted": total},
		}
		if err := p.store.Append(ctx, entry); err != nil {
			log.Error("audit log append failed", "error", err)
		}
	}

	log.Info("event processed", "totalPointsAwarded", total, "matchedRules", len(matches), "ruleErrors", len(ruleErrors))

	// Step 11 (unlock) happens via the deferred unlock above.
	// Step 12: return response.
	return EventResponse{
		ConsumerID:         in.ConsumerID,
		EventID:            in.EventID,
		EventType:          in.EventType,
		TotalPointsAwarded: total,
		PointBreakdown:     breakdown,
		Errors:             ruleErrors,
		ResultingBalance:   nextBalance,
	}, nil
}
