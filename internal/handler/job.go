package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/DukeRupert/tradeslink/internal/auth"
	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/service"
)

// LoginPath is where anonymous visitors of owner-only pages are sent.
const LoginPath = "/login"

// JobHandler serves jobs and the applications made to them.
type JobHandler struct {
	jobs         service.JobService
	applications service.ApplicationService
	logger       *slog.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobs service.JobService, applications service.ApplicationService, logger *slog.Logger) *JobHandler {
	return &JobHandler{
		jobs:         jobs,
		applications: applications,
		logger:       logger,
	}
}

// RegisterRoutes registers job and application routes.
func (h *JobHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	// The account page does its own redirect for anonymous visitors.
	mux.HandleFunc("GET /account/jobs/{id}", h.AccountJob)

	mux.Handle("GET /jobs/{id}", requireUser(http.HandlerFunc(h.Get)))
	mux.Handle("POST /jobs", requireUser(http.HandlerFunc(h.Create)))
	mux.Handle("GET /jobs", requireUser(http.HandlerFunc(h.List)))
	mux.Handle("PATCH /jobs/{id}", requireUser(http.HandlerFunc(h.Transition)))
	mux.Handle("GET /account/jobs", requireUser(http.HandlerFunc(h.ListMine)))

	mux.Handle("POST /jobs/{id}/apply", requireUser(http.HandlerFunc(h.Apply)))
	mux.Handle("GET /jobs/{id}/applications", requireUser(http.HandlerFunc(h.ListApplications)))
	mux.Handle("PATCH /jobs/{id}/applications/{appID}", requireUser(http.HandlerFunc(h.TransitionApplication)))
	mux.Handle("GET /account/applications", requireUser(http.HandlerFunc(h.ListMyApplications)))
}

// Create posts a new job for the calling customer.
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handler.job.create"

	var params domain.CreateJobParams
	if err := decodeJSON(r, op, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	job, err := h.jobs.Create(r.Context(), auth.FromRequest(r), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// List returns the open jobs matching the caller's trades. Filters come
// from the query string, e.g. ?trade=<id>&location=Leeds&limit=20.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handler.job.list"

	var filter domain.JobFilter
	if err := decodeQuery(r, op, &filter); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	jobs, err := h.jobs.ListOpenForProfile(r.Context(), auth.FromRequest(r), filter)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// ListMine returns the calling customer's jobs.
func (h *JobHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.ListMine(r.Context(), auth.FromRequest(r))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// Get returns a job to its owner, an admin, or a tradesperson while open.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handler.job.get"

	id, err := pathID(r, op, "id", "job")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	job, err := h.jobs.Get(r.Context(), auth.FromRequest(r), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// AccountJob is the owner-only job page. Anonymous visitors are redirected
// to sign in and brought back afterwards; everyone else who is not the
// owner gets a 404.
func (h *JobHandler) AccountJob(w http.ResponseWriter, r *http.Request) {
	const op = "handler.job.account"

	ac := auth.FromRequest(r)
	if ac.IsAnonymous() {
		http.Redirect(w, r, loginRedirect(r), http.StatusSeeOther)
		return
	}

	id, err := pathID(r, op, "id", "job")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	job, err := h.jobs.GetOwned(r.Context(), ac, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// loginRedirect builds the sign-in URL that returns to the current page.
func loginRedirect(r *http.Request) string {
	callback := r.URL.Path
	if r.URL.RawQuery != "" {
		callback += "?" + r.URL.RawQuery
	}
	return LoginPath + "?callbackUrl=" + url.QueryEscape(callback)
}

// Transition closes or completes a job.
func (h *JobHandler) Transition(w http.ResponseWriter, r *http.Request) {
	const op = "handler.job.transition"

	id, err := pathID(r, op, "id", "job")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var req actionRequest
	if err := decodeJSON(r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	job, err := h.jobs.Transition(r.Context(), auth.FromRequest(r), id, domain.JobAction(req.Action))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Apply submits the calling tradesperson's application to a job.
func (h *JobHandler) Apply(w http.ResponseWriter, r *http.Request) {
	const op = "handler.application.apply"

	jobID, err := pathID(r, op, "id", "job")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var params domain.ApplyParams
	if err := decodeJSON(r, op, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	app, err := h.applications.Apply(r.Context(), auth.FromRequest(r), jobID, params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// ListApplications returns a job's applications to its owner.
func (h *JobHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	const op = "handler.application.list"

	jobID, err := pathID(r, op, "id", "job")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	apps, err := h.applications.ListForJob(r.Context(), auth.FromRequest(r), jobID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

// ListMyApplications returns the calling tradesperson's applications.
func (h *JobHandler) ListMyApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.applications.ListMine(r.Context(), auth.FromRequest(r))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

// TransitionApplication shortlists, declines or accepts an application on
// behalf of the job owner, or withdraws it on behalf of the applicant.
func (h *JobHandler) TransitionApplication(w http.ResponseWriter, r *http.Request) {
	const op = "handler.application.transition"

	jobID, err := pathID(r, op, "id", "job")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	appID, err := pathID(r, op, "appID", "application")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	var req actionRequest
	if err := decodeJSON(r, op, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	ac := auth.FromRequest(r)
	action := domain.ApplicationAction(req.Action)
	var app *domain.JobApplication
	if action == domain.ApplicationActionWithdraw {
		app, err = h.applications.Withdraw(r.Context(), ac, appID)
	} else {
		app, err = h.applications.Transition(r.Context(), ac, jobID, appID, action)
	}
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}
