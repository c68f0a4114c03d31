package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/tradeslink/internal/auth"
	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/service"
)

// ReportHandler serves content reports and private messages, the two
// user-facing inputs of moderation.
type ReportHandler struct {
	moderation service.ModerationService
	messages   service.MessageService
	logger     *slog.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(moderation service.ModerationService, messages service.MessageService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{moderation: moderation, messages: messages, logger: logger}
}

// RegisterRoutes registers report and message routes.
func (h *ReportHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /reports", requireUser(http.HandlerFunc(h.FileReport)))
	mux.Handle("GET /reports/{id}", requireUser(http.HandlerFunc(h.GetReport)))

	mux.Handle("POST /messages", requireUser(http.HandlerFunc(h.SendMessage)))
	mux.Handle("GET /messages", requireUser(http.HandlerFunc(h.ListMessages)))
	mux.Handle("GET /messages/{id}", requireUser(http.HandlerFunc(h.GetMessage)))
	mux.Handle("DELETE /messages/{id}", requireUser(http.HandlerFunc(h.DeleteMessage)))
}

// FileReport flags a review, profile or message for moderation.
func (h *ReportHandler) FileReport(w http.ResponseWriter, r *http.Request) {
	const op = "handler.report.file"

	var params domain.FileReportParams
	if err := decodeJSON(r, op, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	report, err := h.moderation.FileReport(r.Context(), auth.FromRequest(r), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// GetReport returns a report to its reporter or an admin.
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	const op = "handler.report.get"

	id, err := pathID(r, op, "id", "report")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	report, err := h.moderation.GetReport(r.Context(), auth.FromRequest(r), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// SendMessage delivers a private message.
func (h *ReportHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	const op = "handler.message.send"

	var params domain.SendMessageParams
	if err := decodeJSON(r, op, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	msg, err := h.messages.Send(r.Context(), auth.FromRequest(r), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// ListMessages returns the caller's conversation history.
func (h *ReportHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.messages.List(r.Context(), auth.FromRequest(r))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// GetMessage returns one message to a participant.
func (h *ReportHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	const op = "handler.message.get"

	id, err := pathID(r, op, "id", "message")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	msg, err := h.messages.Get(r.Context(), auth.FromRequest(r), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// DeleteMessage removes a message sent by the caller.
func (h *ReportHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	const op = "handler.message.delete"

	id, err := pathID(r, op, "id", "message")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if err := h.messages.Delete(r.Context(), auth.FromRequest(r), id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
