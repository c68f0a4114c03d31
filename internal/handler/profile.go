package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/DukeRupert/tradeslink/internal/auth"
	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/service"
)

// ProfileHandler serves tradesperson profiles and their public sub-resources.
type ProfileHandler struct {
	profiles service.ProfileService
	reviews  service.ReviewService
	usage    service.UsageService
	logger   *slog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profiles service.ProfileService, reviews service.ReviewService, usage service.UsageService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		reviews:  reviews,
		usage:    usage,
		logger:   logger,
	}
}

// RegisterRoutes registers profile routes. Reads are public; the services
// decide what an anonymous caller may see.
func (h *ProfileHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /trades", h.ListTrades)
	mux.HandleFunc("GET /profiles/{id}", h.Get)
	mux.HandleFunc("GET /profiles/{id}/reviews", h.ListReviews)
	mux.HandleFunc("GET /profiles/{id}/portfolio", h.ListPortfolio)

	mux.Handle("POST /profiles", requireUser(http.HandlerFunc(h.Create)))
	mux.Handle("GET /profiles/me", requireUser(http.HandlerFunc(h.GetOwn)))
	mux.Handle("PATCH /profiles/{id}", requireUser(http.HandlerFunc(h.Update)))
	mux.Handle("PUT /profiles/{id}/trades", requireUser(http.HandlerFunc(h.SetTrades)))
	mux.Handle("POST /profiles/{id}/portfolio", requireUser(http.HandlerFunc(h.AddPortfolioItem)))
	mux.Handle("GET /profiles/{id}/usage", requireUser(http.HandlerFunc(h.Usage)))
}

// ListTrades returns the trade catalogue.
func (h *ProfileHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.profiles.ListTrades(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

// Get returns a profile. Inactive profiles are only visible to their owner
// and admins.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handler.profile.get"

	id, err := pathID(r, op, "id", "profile")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	profile, err := h.profiles.Get(r.Context(), auth.FromRequest(r), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// GetOwn returns the caller's own profile.
func (h *ProfileHandler) GetOwn(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.GetOwn(r.Context(), auth.FromRequest(r))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Create registers the caller's trades profile.
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handler.profile.create"

	var params domain.CreateProfileParams
	if err := decodeJSON(r, op, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	profile, err := h.profiles.Create(r.Context(), auth.FromRequest(r), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

// Update edits profile details.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "handler.profile.update"

	id, err := pathID(r, op, "id", "profile")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var params domain.UpdateProfileParams
	if err := decodeJSON(r, op, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	profile, err := h.profiles.Update(r.Context(), auth.FromRequest(r), id, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type setTradesRequest struct {
	TradeIDs []uuid.UUID `json:"trade_ids"`
}

// SetTrades replaces the trades a profile offers.
func (h *ProfileHandler) SetTrades(w http.ResponseWriter, r *http.Request) {
	const op = "handler.profile.set_trades"

	id, err := pathID(r, op, "id", "profile")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var req setTradesRequest
	if err := decodeJSON(r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	trades, err := h.profiles.SetTrades(r.Context(), auth.FromRequest(r), id, req.TradeIDs)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

// AddPortfolioItem uploads a portfolio photo from the "photo" form field.
func (h *ProfileHandler) AddPortfolioItem(w http.ResponseWriter, r *http.Request) {
	const op = "handler.profile.add_portfolio_item"

	id, err := pathID(r, op, "id", "profile")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	file, err := readUpload(w, r, op, "photo", service.MaxPortfolioImageBytes)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	item, err := h.profiles.AddPortfolioItem(r.Context(), auth.FromRequest(r), domain.AddPortfolioItemParams{
		ProfileID:   id,
		Title:       r.FormValue("title"),
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Data:        file.Data,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// ListPortfolio returns a profile's portfolio.
func (h *ProfileHandler) ListPortfolio(w http.ResponseWriter, r *http.Request) {
	const op = "handler.profile.list_portfolio"

	id, err := pathID(r, op, "id", "profile")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	items, err := h.profiles.ListPortfolio(r.Context(), auth.FromRequest(r), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// ListReviews returns the approved reviews of a profile.
func (h *ProfileHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	const op = "handler.profile.list_reviews"

	id, err := pathID(r, op, "id", "profile")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if _, err := h.profiles.Get(r.Context(), auth.FromRequest(r), id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	reviews, err := h.reviews.ListPublic(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// Usage reports the monthly allowance of a profile to its owner or an admin.
func (h *ProfileHandler) Usage(w http.ResponseWriter, r *http.Request) {
	const op = "handler.profile.usage"

	id, err := pathID(r, op, "id", "profile")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	ac := auth.FromRequest(r)
	profile, err := h.profiles.Get(r.Context(), ac, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if !ac.IsAdmin() {
		if err := domain.Authorize(ac, profile.Resource(), domain.OpManage).Err(op, profile.Resource()); err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
	}
	summary, err := h.usage.Usage(r.Context(), profile)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
