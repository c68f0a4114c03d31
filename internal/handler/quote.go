package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/tradeslink/internal/auth"
	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/service"
)

// QuoteHandler serves quote requests.
type QuoteHandler struct {
	quotes service.QuoteService
	logger *slog.Logger
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(quotes service.QuoteService, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{quotes: quotes, logger: logger}
}

// RegisterRoutes registers quote routes. Requesting a quote is open to
// anonymous visitors.
func (h *QuoteHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /profiles/{id}/quotes", h.Create)

	mux.Handle("GET /quotes/received", requireUser(http.HandlerFunc(h.ListReceived)))
	mux.Handle("GET /quotes/sent", requireUser(http.HandlerFunc(h.ListSent)))
	mux.Handle("GET /quotes/{id}", requireUser(http.HandlerFunc(h.Get)))
	mux.Handle("POST /quotes/{id}/respond", requireUser(http.HandlerFunc(h.Respond)))
	mux.Handle("PATCH /quotes/{id}", requireUser(http.HandlerFunc(h.Decide)))
}

// Create sends a quote request to a tradesperson.
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handler.quote.create"

	profileID, err := pathID(r, op, "id", "profile")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var params domain.CreateQuoteParams
	if err := decodeJSON(r, op, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	quote, err := h.quotes.Create(r.Context(), auth.FromRequest(r), profileID, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, quote)
}

// Get returns a quote to its sender or recipient.
func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handler.quote.get"

	id, err := pathID(r, op, "id", "quote")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	quote, err := h.quotes.Get(r.Context(), auth.FromRequest(r), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// ListReceived returns the quotes sent to the caller's profile.
func (h *QuoteHandler) ListReceived(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.quotes.ListReceived(r.Context(), auth.FromRequest(r))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

// ListSent returns the quotes the caller requested.
func (h *QuoteHandler) ListSent(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.quotes.ListSent(r.Context(), auth.FromRequest(r))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

// Respond records the tradesperson's answer to a quote.
func (h *QuoteHandler) Respond(w http.ResponseWriter, r *http.Request) {
	const op = "handler.quote.respond"

	id, err := pathID(r, op, "id", "quote")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var params domain.RespondQuoteParams
	if err := decodeJSON(r, op, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	quote, err := h.quotes.Respond(r.Context(), auth.FromRequest(r), id, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// Decide accepts or declines a responded quote on behalf of its sender.
func (h *QuoteHandler) Decide(w http.ResponseWriter, r *http.Request) {
	const op = "handler.quote.decide"

	id, err := pathID(r, op, "id", "quote")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var req actionRequest
	if err := decodeJSON(r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	quote, err := h.quotes.Decide(r.Context(), auth.FromRequest(r), id, domain.QuoteAction(req.Action))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}
