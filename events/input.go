/*
Package events defines EventInput, the external request shape the event
processor accepts (SPEC_FULL.md §3), and its validation (SPEC_FULL.md §4.5
step 1, §7).
*/
package events

import (
	"time"

	"github.com/warp/loyalty-engine/ledger"
	"github.com/warp/loyalty-engine/loyaltyerrors"
)

// Input is the external business event submitted for processing.
type Input struct {
	EventID     ledger.EventID    `json:"eventId"`
	EventType   ledger.EventType  `json:"eventType"`
	Timestamp   time.Time         `json:"timestamp"`
	Market      ledger.Market     `json:"market"`
	Channel     string            `json:"channel"`
	ProductLine string            `json:"productLine"`
	ConsumerID  ledger.ConsumerID `json:"consumerId"`
	Context     map[string]any    `json:"context"`
	Attributes  map[string]any    `json:"attributes"`
}

// validEventTypes and validMarkets back the enum checks in Validate.
var (
	validEventTypes = map[ledger.EventType]bool{
		ledger.EventPurchase:     true,
		ledger.EventRegistration: true,
		ledger.EventRecycle:      true,
		ledger.EventConsultation: true,
		ledger.EventAdjustment:   true,
		ledger.EventRedemption:   true,
	}
	validMarkets = map[ledger.Market]bool{
		ledger.MarketJP: true,
		ledger.MarketHK: true,
		ledger.MarketTW: true,
	}
)

// Attr returns an attribute value as `any`, or nil if absent. A tiny
// helper so fact resolvers don't repeat map[string]any nil-checks.
func (in Input) Attr(key string) any {
	if in.Attributes == nil {
		return nil
	}
	return in.Attributes[key]
}

// Ctx returns a context value as `any`, or nil if absent.
func (in Input) Ctx(key string) any {
	if in.Context == nil {
		return nil
	}
	return in.Context[key]
}

// Validate checks the required-field and enum-membership rules of
// SPEC_FULL.md §4.5 step 1. now is injected so validation stays a pure
// function of its arguments rather than reading the wall clock directly.
func (in Input) Validate(now time.Time) error {
	if in.EventID == "" {
		return &loyaltyerrors.ValidationError{Field: "eventId", Reason: "must not be empty"}
	}
	if !validEventTypes[in.EventType] {
		return &loyaltyerrors.ValidationError{Field: "eventType", Reason: "must be one of PURCHASE, REGISTRATION, RECYCLE, CONSULTATION, ADJUSTMENT, REDEMPTION"}
	}
	if !validMarkets[in.Market] {
		return &loyaltyerrors.ValidationError{Field: "market", Reason: "must be one of JP, HK, TW"}
	}
	if in.Timestamp.IsZero() {
		return &loyaltyerrors.ValidationError{Field: "timestamp", Reason: "must be a valid instant"}
	}
	if in.Timestamp.After(now.Add(24 * time.Hour)) {
		return &loyaltyerrors.ValidationError{Field: "timestamp", Reason: "must not be more than 24h in the future"}
	}
	if l := len(in.ConsumerID); l < 1 || l > 100 {
		return &loyaltyerrors.ValidationError{Field: "consumerId", Reason: "must be 1..100 characters"}
	}
	return nil
}
