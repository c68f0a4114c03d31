package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/tradeslink/internal/auth"
	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/service"
)

// VerificationHandler serves verification document submissions.
type VerificationHandler struct {
	verifications service.VerificationService
	logger        *slog.Logger
}

// NewVerificationHandler creates a new VerificationHandler.
func NewVerificationHandler(verifications service.VerificationService, logger *slog.Logger) *VerificationHandler {
	return &VerificationHandler{verifications: verifications, logger: logger}
}

// RegisterRoutes registers verification routes.
func (h *VerificationHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /verifications", requireUser(http.HandlerFunc(h.Submit)))
	mux.Handle("GET /verifications", requireUser(http.HandlerFunc(h.ListMine)))
}

// Submit uploads a verification document from the "document" form field.
// The "type" field names the verification kind.
func (h *VerificationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	const op = "handler.verification.submit"

	file, err := readUpload(w, r, op, "document", service.MaxVerificationDocumentBytes)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	v, err := h.verifications.Submit(r.Context(), auth.FromRequest(r), domain.SubmitVerificationParams{
		Type:        domain.VerificationType(r.FormValue("type")),
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Data:        file.Data,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// ListMine returns the caller's verifications.
func (h *VerificationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.verifications.ListMine(r.Context(), auth.FromRequest(r))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
