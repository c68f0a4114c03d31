package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/email"
	"github.com/DukeRupert/tradeslink/internal/metrics"
	"github.com/DukeRupert/tradeslink/internal/repository"
	"github.com/DukeRupert/tradeslink/internal/validator"
)

// =============================================================================
// Interface Definition
// =============================================================================

// ApplicationService manages tradespeople's applications to jobs.
type ApplicationService interface {
	// Apply submits the caller's profile to an open job, subject to the
	// monthly application allowance. A profile applies to a job once.
	Apply(ctx context.Context, ac domain.AuthContext, jobID uuid.UUID, params domain.ApplyParams) (*domain.JobApplication, error)

	// ListForJob returns a job's applications to its customer. Pending
	// applications become VIEWED on this first read.
	ListForJob(ctx context.Context, ac domain.AuthContext, jobID uuid.UUID) ([]domain.JobApplication, error)

	// ListMine returns the applications sent by the caller's profile.
	ListMine(ctx context.Context, ac domain.AuthContext) ([]domain.JobApplication, error)

	// Transition applies a customer action (shortlist, decline, accept).
	// Accepting starts the job; sibling applications are left alone.
	Transition(ctx context.Context, ac domain.AuthContext, jobID, applicationID uuid.UUID, action domain.ApplicationAction) (*domain.JobApplication, error)

	// Withdraw lets the applying tradesperson pull an undecided application.
	Withdraw(ctx context.Context, ac domain.AuthContext, applicationID uuid.UUID) (*domain.JobApplication, error)
}

// =============================================================================
// Implementation
// =============================================================================

type applicationService struct {
	store    repository.Store
	notifier email.EmailService
	logger   *slog.Logger
}

// NewApplicationService creates a new ApplicationService.
func NewApplicationService(store repository.Store, notifier email.EmailService, logger *slog.Logger) ApplicationService {
	return &applicationService{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Apply submits an application. The quota count, the job state check and
// the insert run in one transaction holding the profile lock, so two
// concurrent submissions cannot both take the last slot.
func (s *applicationService) Apply(ctx context.Context, ac domain.AuthContext, jobID uuid.UUID, params domain.ApplyParams) (*domain.JobApplication, error) {
	const op = "application.apply"

	if err := requireRole(op, ac, domain.RoleTradesperson); err != nil {
		return nil, err
	}
	params.CoverLetter = strings.TrimSpace(params.CoverLetter)
	if err := validator.Struct(op, params); err != nil {
		return nil, err
	}

	profile, err := profileForUser(ctx, s.store, op, ac.UserID)
	if err != nil {
		return nil, err
	}
	if !profile.IsActive {
		return nil, domain.Forbidden(op, "Your profile is not active")
	}

	var (
		job *domain.Job
		app *domain.JobApplication
	)
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		if err := q.LockProfile(ctx, profile.ID); err != nil {
			return domain.Internal(err, op, "failed to lock profile")
		}

		var err error
		job, err = q.GetJobByID(ctx, jobID)
		if err != nil {
			return lookupError(err, op, "job", jobID)
		}
		if !job.IsOpen() || job.IsLapsed(timeNow()) {
			return domain.InvalidTransition(op, &domain.TransitionError{
				Entity: "job_application",
				From:   string(job.Status),
				Action: "apply",
				Actor:  domain.ActorTradesperson,
			})
		}

		trades, err := q.ListProfileTrades(ctx, profile.ID)
		if err != nil {
			return domain.Internal(err, op, "failed to load trades")
		}
		profile.Trades = trades
		if !profile.HasTrade(job.TradeID) {
			return domain.Invalid(op, "This job is outside the trades on your profile")
		}

		if err := checkQuota(ctx, q, s.logger, op, profile, domain.UsageApplication); err != nil {
			return err
		}

		now := timeNow()
		app = &domain.JobApplication{
			ID:                uuid.New(),
			JobID:             job.ID,
			ProfileID:         profile.ID,
			Status:            domain.ApplicationPending,
			CoverLetter:       params.CoverLetter,
			ProposedBudget:    params.ProposedBudget,
			ProposedStartDate: params.ProposedStartDate,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := q.CreateApplication(ctx, app); err != nil {
			return writeError(err, op, "You have already applied to this job", "failed to create application")
		}
		return nil
	})
	if err != nil {
		return nil, passThrough(err, op, "failed to submit application")
	}

	metrics.ApplicationsSubmitted.Inc()
	s.logger.Info("application submitted", "application_id", app.ID, "job_id", job.ID, "profile_id", profile.ID)

	if customer, err := s.store.GetUserByID(ctx, job.CustomerID); err == nil {
		notify(ctx, s.logger, s.notifier, "application_received", func(ctx context.Context, n email.EmailService) error {
			return n.SendApplicationReceivedEmail(ctx, customer.Email, customer.DisplayName(), job.Title)
		})
	}
	return app, nil
}

// ListForJob returns applications oldest first and marks pending ones viewed.
func (s *applicationService) ListForJob(ctx context.Context, ac domain.AuthContext, jobID uuid.UUID) ([]domain.JobApplication, error) {
	const op = "application.list_for_job"

	job, err := s.ownedJob(ctx, s.store, op, ac, jobID)
	if err != nil {
		return nil, err
	}
	apps, err := s.store.ListApplicationsByJob(ctx, job.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list applications")
	}

	now := timeNow()
	for i := range apps {
		to, err := domain.ApplicationMachine.Next(apps[i].Status, domain.ApplicationActionView, domain.ActorSystem)
		if err != nil {
			continue
		}
		err = s.store.UpdateApplicationStatus(ctx, domain.StatusChange[domain.ApplicationStatus]{
			ID: apps[i].ID, From: apps[i].Status, To: to, At: now,
		})
		if err != nil {
			if !errors.Is(err, repository.ErrStale) {
				s.logger.Warn("failed to mark application viewed", "application_id", apps[i].ID, "error", err)
			}
			continue
		}
		metrics.TransitionApplied("job_application", string(domain.ApplicationActionView))
		apps[i].Status = to
		apps[i].ViewedAt = &now
		apps[i].UpdatedAt = now
	}
	return apps, nil
}

// ListMine returns the caller's applications.
func (s *applicationService) ListMine(ctx context.Context, ac domain.AuthContext) ([]domain.JobApplication, error) {
	const op = "application.list_mine"

	if err := requireRole(op, ac, domain.RoleTradesperson); err != nil {
		return nil, err
	}
	profile, err := profileForUser(ctx, s.store, op, ac.UserID)
	if err != nil {
		return nil, err
	}
	apps, err := s.store.ListApplicationsByProfile(ctx, profile.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list applications")
	}
	return apps, nil
}

// Transition applies the customer's decision. Accepting also moves the job
// from OPEN to IN_PROGRESS in the same transaction; if the job can no
// longer start, the application is left unchanged.
func (s *applicationService) Transition(ctx context.Context, ac domain.AuthContext, jobID, applicationID uuid.UUID, action domain.ApplicationAction) (*domain.JobApplication, error) {
	const op = "application.transition"

	var app *domain.JobApplication
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		job, err := s.ownedJob(ctx, q, op, ac, jobID)
		if err != nil {
			return err
		}
		app, err = q.GetApplicationByID(ctx, applicationID)
		if err != nil {
			return lookupError(err, op, "application", applicationID)
		}
		if app.JobID != job.ID {
			return domain.NotFound(op, "application", applicationID.String())
		}

		to, err := next(domain.ApplicationMachine, op, app.Status, action, domain.ActorCustomer)
		if err != nil {
			return err
		}

		now := timeNow()
		if err := q.UpdateApplicationStatus(ctx, domain.StatusChange[domain.ApplicationStatus]{
			ID: app.ID, From: app.Status, To: to, At: now,
		}); err != nil {
			return statusError(err, op, "job_application", app.Status, string(action), domain.ActorCustomer)
		}

		if action == domain.ApplicationActionAccept {
			jobTo, err := next(domain.JobMachine, op, job.Status, domain.JobActionStart, domain.ActorSystem)
			if err != nil {
				return err
			}
			if err := q.UpdateJobStatus(ctx, domain.StatusChange[domain.JobStatus]{
				ID: job.ID, From: job.Status, To: jobTo, At: now,
			}); err != nil {
				return statusError(err, op, "job", job.Status, string(domain.JobActionStart), domain.ActorSystem)
			}
		}

		app.Status = to
		app.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, passThrough(err, op, "failed to update application")
	}

	metrics.TransitionApplied("job_application", string(action))
	if action == domain.ApplicationActionAccept {
		metrics.TransitionApplied("job", string(domain.JobActionStart))
	}
	s.logger.Info("application transitioned", "application_id", app.ID, "job_id", jobID, "action", action, "to", app.Status)
	return app, nil
}

// Withdraw pulls the caller's application.
func (s *applicationService) Withdraw(ctx context.Context, ac domain.AuthContext, applicationID uuid.UUID) (*domain.JobApplication, error) {
	const op = "application.withdraw"

	if ac.IsAnonymous() {
		return nil, domain.Unauthorized(op, "Authentication required")
	}
	app, err := s.store.GetApplicationByID(ctx, applicationID)
	if err != nil {
		return nil, lookupError(err, op, "application", applicationID)
	}
	profile, err := s.store.GetProfileByID(ctx, app.ProfileID)
	if err != nil {
		return nil, lookupError(err, op, "profile", app.ProfileID)
	}
	if profile.UserID != ac.UserID {
		return nil, domain.NotFound(op, "application", applicationID.String())
	}

	action := domain.ApplicationActionWithdraw
	to, err := next(domain.ApplicationMachine, op, app.Status, action, domain.ActorTradesperson)
	if err != nil {
		return nil, err
	}
	now := timeNow()
	if err := s.store.UpdateApplicationStatus(ctx, domain.StatusChange[domain.ApplicationStatus]{
		ID: app.ID, From: app.Status, To: to, At: now,
	}); err != nil {
		return nil, statusError(err, op, "job_application", app.Status, string(action), domain.ActorTradesperson)
	}

	metrics.TransitionApplied("job_application", string(action))
	s.logger.Info("application withdrawn", "application_id", app.ID)
	app.Status = to
	app.UpdatedAt = now
	return app, nil
}

// ownedJob loads a job through q and hides it from anyone but its customer.
func (s *applicationService) ownedJob(ctx context.Context, q repository.Querier, op string, ac domain.AuthContext, jobID uuid.UUID) (*domain.Job, error) {
	if ac.IsAnonymous() {
		return nil, domain.Unauthorized(op, "Authentication required")
	}
	job, err := q.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, lookupError(err, op, "job", jobID)
	}
	res := job.Resource()
	if err := domain.Authorize(ac, res, domain.OpManage).Err(op, res); err != nil {
		return nil, err
	}
	return job, nil
}
