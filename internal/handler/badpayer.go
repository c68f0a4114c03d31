package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/tradeslink/internal/auth"
	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/service"
)

// BadPayerHandler serves the bad-payer register and its disputes.
type BadPayerHandler struct {
	badPayers service.BadPayerService
	logger    *slog.Logger
}

// NewBadPayerHandler creates a new BadPayerHandler.
func NewBadPayerHandler(badPayers service.BadPayerService, logger *slog.Logger) *BadPayerHandler {
	return &BadPayerHandler{badPayers: badPayers, logger: logger}
}

// RegisterRoutes registers bad-payer routes. The published register is public.
func (h *BadPayerHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /bad-payers", h.ListPublic)
	mux.HandleFunc("GET /bad-payers/{id}", h.Get)

	mux.Handle("POST /bad-payers", requireUser(http.HandlerFunc(h.Create)))
	mux.Handle("GET /account/bad-payers", requireUser(http.HandlerFunc(h.ListMine)))
	mux.Handle("POST /bad-payers/{id}/publish", requireUser(http.HandlerFunc(h.Publish)))
	mux.Handle("POST /bad-payers/{id}/dispute", requireUser(http.HandlerFunc(h.FileDispute)))
}

type pageQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// ListPublic returns published reports.
func (h *BadPayerHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	const op = "handler.bad_payer.list_public"

	var page pageQuery
	if err := decodeQuery(r, op, &page); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	reports, err := h.badPayers.ListPublic(r.Context(), page.Limit, page.Offset)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// ListMine returns the caller's own reports, drafts included.
func (h *BadPayerHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	reports, err := h.badPayers.ListMine(r.Context(), auth.FromRequest(r))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// Get returns a report. Drafts are only visible to their reporter.
func (h *BadPayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handler.bad_payer.get"

	id, err := pathID(r, op, "id", "bad_payer_report")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	report, err := h.badPayers.Get(r.Context(), auth.FromRequest(r), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Create drafts a report.
func (h *BadPayerHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handler.bad_payer.create"

	var params domain.CreateBadPayerParams
	if err := decodeJSON(r, op, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	report, err := h.badPayers.Create(r.Context(), auth.FromRequest(r), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// Publish makes a draft public.
func (h *BadPayerHandler) Publish(w http.ResponseWriter, r *http.Request) {
	const op = "handler.bad_payer.publish"

	id, err := pathID(r, op, "id", "bad_payer_report")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	report, err := h.badPayers.Publish(r.Context(), auth.FromRequest(r), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// FileDispute contests a published report.
func (h *BadPayerHandler) FileDispute(w http.ResponseWriter, r *http.Request) {
	const op = "handler.bad_payer.dispute"

	id, err := pathID(r, op, "id", "bad_payer_report")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var params domain.FileDisputeParams
	if err := decodeJSON(r, op, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	dispute, err := h.badPayers.FileDispute(r.Context(), auth.FromRequest(r), id, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dispute)
}
