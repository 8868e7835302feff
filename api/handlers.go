package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/loyalty-engine/catalog"
	"github.com/warp/loyalty-engine/engine"
	"github.com/warp/loyalty-engine/events"
	"github.com/warp/loyalty-engine/ledger"
	"github.com/warp/loyalty-engine/loyaltyerrors"
)

// Handler holds the dependencies HTTP handlers need: the processor for the
// write path, the store for the read-only projections, and the catalog for
// reload/defaults.
type Handler struct {
	processor *engine.Processor
	store     ledger.Store
	catalog   *catalog.Catalog
	log       *slog.Logger
}

// NewHandler builds a Handler. log defaults to slog.Default() if nil.
func NewHandler(processor *engine.Processor, store ledger.Store, cat *catalog.Catalog, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{processor: processor, store: store, catalog: cat, log: log}
}

// ProcessEvent handles POST /api/events/process (SPEC_FULL.md §6).
func (h *Handler) ProcessEvent(w http.ResponseWriter, r *http.Request) {
	var req processEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	in := events.Input{
		EventID:     ledger.EventID(req.EventID),
		EventType:   ledger.EventType(req.EventType),
		Timestamp:   req.Timestamp,
		Market:      ledger.Market(req.Market),
		Channel:     req.Channel,
		ProductLine: req.ProductLine,
		ConsumerID:  ledger.ConsumerID(req.ConsumerID),
		Context:     req.Context,
		Attributes:  req.Attributes,
	}

	resp, err := h.processor.ProcessEvent(r.Context(), in)
	if err != nil {
		h.writeProcessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeProcessError(w http.ResponseWriter, err error) {
	switch {
	case isValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case isDuplicate(err):
		writeError(w, http.StatusConflict, err.Error())
	case isTimeout(err):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		traceID := uuid.NewString()
		h.log.Error("event processing failed", "error", err, "traceId", traceID)
		writeErrorWithTrace(w, http.StatusInternalServerError, "internal error", traceID)
	}
}

// GetBalance handles GET /api/consumers/{id}/balance.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := ledger.ConsumerID(chi.URLParam(r, "id"))
	balance, err := h.store.GetBalance(r.Context(), id)
	if err != nil {
		traceID := uuid.NewString()
		h.log.Error("get balance failed", "error", err, "traceId", traceID)
		writeErrorWithTrace(w, http.StatusInternalServerError, "internal error", traceID)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{ConsumerID: id, Balance: balance})
}

// GetHistory handles GET /api/consumers/{id}/history.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := ledger.ConsumerID(chi.URLParam(r, "id"))
	from := time.Unix(0, 0)
	to := time.Now().Add(24 * time.Hour)
	hist, err := h.store.HistoryRange(r.Context(), id, from, to)
	if err != nil {
		traceID := uuid.NewString()
		h.log.Error("get history failed", "error", err, "traceId", traceID)
		writeErrorWithTrace(w, http.StatusInternalServerError, "internal error", traceID)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{ConsumerID: id, Events: hist})
}

// ListDefaultRules handles GET /api/rules/defaults: a read-only projection
// over the active catalog snapshot.
func (h *Handler) ListDefaultRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.All())
}

// ListCampaigns handles GET /api/campaigns: the subset of the catalog whose
// rule event type participates in a campaign-style bonus.
func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	var campaigns []any
	for _, rule := range h.catalog.All() {
		switch rule.Event.Type {
		case "FLEXIBLE_CAMPAIGN_BONUS", "FLEXIBLE_BASKET_AMOUNT", "FLEXIBLE_COMBO_PRODUCT_MULTIPLIER":
			campaigns = append(campaigns, rule)
		}
	}
	writeJSON(w, http.StatusOK, campaigns)
}

// ReloadRules handles POST /api/rules/reload: triggers Catalog.Reload.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Reload(); err != nil {
		traceID := uuid.NewString()
		h.log.Error("rule reload failed", "error", err, "traceId", traceID)
		writeErrorWithTrace(w, http.StatusInternalServerError, "reload failed", traceID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeErrorWithTrace attaches a correlation ID already logged server-side,
// so an operator can grep the structured log for the request that failed.
func writeErrorWithTrace(w http.ResponseWriter, status int, message, traceID string) {
	writeJSON(w, status, errorResponse{Error: message, TraceID: traceID})
}

func isValidation(err error) bool {
	var target *loyaltyerrors.ValidationError
	return errors.As(err, &target)
}

func isDuplicate(err error) bool {
	var target *loyaltyerrors.DuplicateEventError
	return errors.As(err, &target)
}

func isTimeout(err error) bool {
	var target *loyaltyerrors.TimeoutErr
	return errors.As(err, &target)
}
