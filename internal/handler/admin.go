package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/tradeslink/internal/auth"
	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/service"
)

// AdminHandler serves the moderation queues. Every route sits behind
// RequireRole(admin); the services check the role again.
type AdminHandler struct {
	reviews       service.ReviewService
	moderation    service.ModerationService
	verifications service.VerificationService
	badPayers     service.BadPayerService
	profiles      service.ProfileService
	logger        *slog.Logger
}

// AdminServices groups the services the admin surface drives.
type AdminServices struct {
	Reviews       service.ReviewService
	Moderation    service.ModerationService
	Verifications service.VerificationService
	BadPayers     service.BadPayerService
	Profiles      service.ProfileService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc AdminServices, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		reviews:       svc.Reviews,
		moderation:    svc.Moderation,
		verifications: svc.Verifications,
		badPayers:     svc.BadPayers,
		profiles:      svc.Profiles,
		logger:        logger,
	}
}

// RegisterRoutes registers admin routes wrapped in requireAdmin.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin func(http.Handler) http.Handler) {
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, requireAdmin(fn))
	}

	handle("GET /admin/reviews", h.ListReviews)
	handle("PATCH /admin/reviews/{id}", h.ModerateReview)
	handle("POST /admin/profiles/{id}/rating", h.RecomputeRating)

	handle("GET /admin/reports", h.ListReports)
	handle("PATCH /admin/reports/{id}", h.ModerateReport)

	handle("GET /admin/verifications", h.ListVerifications)
	handle("GET /admin/verifications/{id}/document", h.VerificationDocument)
	handle("PATCH /admin/verifications/{id}", h.ModerateVerification)

	handle("GET /admin/disputes", h.ListDisputes)
	handle("PATCH /admin/disputes/{id}", h.ResolveDispute)
	handle("DELETE /admin/bad-payers/{id}", h.RemoveBadPayer)

	handle("POST /admin/trades", h.CreateTrade)
}

type reviewQueueQuery struct {
	Status domain.ReviewStatus `form:"status"`
	Limit  int                 `form:"limit"`
	Offset int                 `form:"offset"`
}

// ListReviews returns the review moderation queue, PENDING by default.
func (h *AdminHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.list_reviews"

	var q reviewQueueQuery
	if err := decodeQuery(r, op, &q); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	reviews, err := h.reviews.ListQueue(r.Context(), auth.FromRequest(r), q.Status, q.Limit, q.Offset)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// ModerateReview approves, rejects or flags a review.
func (h *AdminHandler) ModerateReview(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.moderate_review"

	id, err := pathID(r, op, "id", "review")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var params domain.ModerateReviewParams
	if err := decodeJSON(r, op, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	review, err := h.reviews.Moderate(r.Context(), auth.FromRequest(r), id, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// RecomputeRating rebuilds a profile's rating from its approved reviews.
func (h *AdminHandler) RecomputeRating(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.recompute_rating"

	id, err := pathID(r, op, "id", "profile")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	profile, err := h.reviews.RecomputeRating(r.Context(), auth.FromRequest(r), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// ListReports returns content reports filtered by ?status=.
func (h *AdminHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.list_reports"

	var filter domain.ReportFilter
	if err := decodeQuery(r, op, &filter); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	reports, err := h.moderation.ListReports(r.Context(), auth.FromRequest(r), filter)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// ModerateReport investigates, resolves or dismisses a report, applying the
// content action in the same transaction.
func (h *AdminHandler) ModerateReport(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.moderate_report"

	id, err := pathID(r, op, "id", "report")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var payload domain.ModerationPayload
	if err := decodeJSON(r, op, &payload); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	report, err := h.moderation.ApplyModeration(r.Context(), auth.FromRequest(r), id, payload)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ListVerifications returns pending verifications.
func (h *AdminHandler) ListVerifications(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.list_verifications"

	var page pageQuery
	if err := decodeQuery(r, op, &page); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	list, err := h.verifications.ListPending(r.Context(), auth.FromRequest(r), page.Limit, page.Offset)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// VerificationDocument redirects to a short-lived link to the document.
func (h *AdminHandler) VerificationDocument(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.verification_document"

	id, err := pathID(r, op, "id", "verification")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	url, err := h.verifications.DocumentURL(r.Context(), auth.FromRequest(r), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// ModerateVerification approves or rejects a verification.
func (h *AdminHandler) ModerateVerification(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.moderate_verification"

	id, err := pathID(r, op, "id", "verification")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var params domain.ModerateVerificationParams
	if err := decodeJSON(r, op, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	v, err := h.verifications.Moderate(r.Context(), auth.FromRequest(r), id, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ListDisputes returns disputes awaiting a decision.
func (h *AdminHandler) ListDisputes(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.list_disputes"

	var page pageQuery
	if err := decodeQuery(r, op, &page); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	disputes, err := h.badPayers.ListPendingDisputes(r.Context(), auth.FromRequest(r), page.Limit, page.Offset)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, disputes)
}

// ResolveDispute upholds or dismisses a dispute.
func (h *AdminHandler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.resolve_dispute"

	id, err := pathID(r, op, "id", "dispute")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var params domain.ResolveDisputeParams
	if err := decodeJSON(r, op, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	dispute, err := h.badPayers.ResolveDispute(r.Context(), auth.FromRequest(r), id, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dispute)
}

// RemoveBadPayer takes a report off the public register.
func (h *AdminHandler) RemoveBadPayer(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.remove_bad_payer"

	id, err := pathID(r, op, "id", "bad_payer_report")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	report, err := h.badPayers.Remove(r.Context(), auth.FromRequest(r), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type createTradeRequest struct {
	Name string `json:"name"`
}

// CreateTrade adds a trade to the catalogue.
func (h *AdminHandler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	const op = "handler.admin.create_trade"

	var req createTradeRequest
	if err := decodeJSON(r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	trade, err := h.profiles.CreateTrade(r.Context(), auth.FromRequest(r), req.Name)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, trade)
}
