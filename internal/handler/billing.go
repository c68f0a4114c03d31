package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/tradeslink/internal/auth"
	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/service"
)

// maxWebhookBytes caps Stripe webhook payloads.
const maxWebhookBytes = 65536

// BillingHandler serves subscription checkout, the billing portal and the
// Stripe webhook.
type BillingHandler struct {
	billing service.BillingService
	logger  *slog.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(billing service.BillingService, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{billing: billing, logger: logger}
}

// RegisterRoutes registers billing routes. The webhook is public and
// authenticated by its signature.
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /billing/checkout", requireUser(http.HandlerFunc(h.Checkout)))
	mux.Handle("POST /billing/portal", requireUser(http.HandlerFunc(h.Portal)))
	mux.HandleFunc("POST /webhooks/stripe", h.Webhook)
}

type checkoutRequest struct {
	Tier domain.SubscriptionTier `json:"tier"`
}

type redirectResponse struct {
	URL string `json:"url"`
}

// Checkout starts a subscription checkout for the requested tier.
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	const op = "handler.billing.checkout"

	var req checkoutRequest
	if err := decodeJSON(r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	url, err := h.billing.Checkout(r.Context(), auth.FromRequest(r), req.Tier)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, redirectResponse{URL: url})
}

// Portal opens the provider's self-service billing portal.
func (h *BillingHandler) Portal(w http.ResponseWriter, r *http.Request) {
	url, err := h.billing.Portal(r.Context(), auth.FromRequest(r))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, redirectResponse{URL: url})
}

// Webhook applies subscription changes pushed by Stripe.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	const op = "handler.billing.webhook"

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "failed to read body"))
		return
	}
	if err := h.billing.HandleWebhook(r.Context(), body, r.Header.Get("Stripe-Signature")); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
