/*
Package api is the HTTP surface over engine.Processor and catalog.Catalog
(SPEC_FULL.md §6), grounded on the teacher engine's chi-based api package:
same router/middleware stack and handler/DTO split, new routes and payload
shapes for the loyalty domain.
*/
package api

import (
	"time"

	"github.com/warp/loyalty-engine/ledger"
)

// processEventRequest is the wire shape of POST /api/events/process,
// mirroring events.Input field-for-field so the transport layer stays a
// thin decode step.
type processEventRequest struct {
	EventID     string         `json:"eventId"`
	EventType   string         `json:"eventType"`
	Timestamp   time.Time      `json:"timestamp"`
	Market      string         `json:"market"`
	Channel     string         `json:"channel"`
	ProductLine string         `json:"productLine"`
	ConsumerID  string         `json:"consumerId"`
	Context     map[string]any `json:"context"`
	Attributes  map[string]any `json:"attributes"`
}

// errorResponse is the uniform JSON error body for non-2xx responses. TraceID
// lets a caller correlate a failed response with server-side log lines.
type errorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"traceId"`
}

// balanceResponse is the GET /api/consumers/{id}/balance payload.
type balanceResponse struct {
	ConsumerID ledger.ConsumerID `json:"consumerId"`
	Balance    ledger.Balance    `json:"balance"`
}

// historyResponse is the GET /api/consumers/{id}/history payload.
type historyResponse struct {
	ConsumerID ledger.ConsumerID     `json:"consumerId"`
	Events     []ledger.HistoryEvent `json:"events"`
}
