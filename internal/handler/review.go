package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/tradeslink/internal/auth"
	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/service"
)

// ReviewHandler serves customer reviews.
type ReviewHandler struct {
	reviews service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviews service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, logger: logger}
}

// RegisterRoutes registers review routes.
func (h *ReviewHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /profiles/{id}/reviews", requireUser(http.HandlerFunc(h.Create)))
	mux.Handle("GET /reviews/{id}", requireUser(http.HandlerFunc(h.Get)))
	mux.Handle("POST /reviews/{id}/response", requireUser(http.HandlerFunc(h.Respond)))
}

// Create submits a review for moderation.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handler.review.create"

	profileID, err := pathID(r, op, "id", "profile")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var params domain.CreateReviewParams
	if err := decodeJSON(r, op, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	review, err := h.reviews.Create(r.Context(), auth.FromRequest(r), profileID, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// Get returns a single review.
func (h *ReviewHandler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handler.review.get"

	id, err := pathID(r, op, "id", "review")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	review, err := h.reviews.Get(r.Context(), auth.FromRequest(r), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// Respond attaches the profile owner's public reply.
func (h *ReviewHandler) Respond(w http.ResponseWriter, r *http.Request) {
	const op = "handler.review.respond"

	id, err := pathID(r, op, "id", "review")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var params domain.ReviewResponseParams
	if err := decodeJSON(r, op, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	review, err := h.reviews.Respond(r.Context(), auth.FromRequest(r), id, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}
