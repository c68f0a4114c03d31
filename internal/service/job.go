package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/metrics"
	"github.com/DukeRupert/tradeslink/internal/repository"
	"github.com/DukeRupert/tradeslink/internal/validator"
)

// =============================================================================
// Interface Definition
// =============================================================================

// JobService manages jobs posted by customers.
type JobService interface {
	// Create posts a new OPEN job. Customers only.
	Create(ctx context.Context, ac domain.AuthContext, params domain.CreateJobParams) (*domain.Job, error)

	// Get returns a job the caller may read: its customer, an admin, or any
	// tradesperson while the job is open. Tradesperson reads count as views.
	Get(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (*domain.Job, error)

	// GetOwned returns a job only to its customer. Anonymous callers get
	// EUNAUTHORIZED and everyone else ENOTFOUND.
	GetOwned(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (*domain.Job, error)

	// ListMine returns the caller's own jobs.
	ListMine(ctx context.Context, ac domain.AuthContext) ([]domain.Job, error)

	// ListOpenForProfile returns open jobs in the trades the caller's
	// profile lists.
	ListOpenForProfile(ctx context.Context, ac domain.AuthContext, filter domain.JobFilter) ([]domain.Job, error)

	// Transition applies a customer action (close, complete) to a job.
	Transition(ctx context.Context, ac domain.AuthContext, id uuid.UUID, action domain.JobAction) (*domain.Job, error)

	// RecordView bumps a job's view counter.
	RecordView(ctx context.Context, id uuid.UUID) error
}

// =============================================================================
// Implementation
// =============================================================================

type jobService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewJobService creates a new JobService.
func NewJobService(store repository.Store, logger *slog.Logger) JobService {
	return &jobService{
		store:  store,
		logger: logger,
	}
}

// Create posts a job.
func (s *jobService) Create(ctx context.Context, ac domain.AuthContext, params domain.CreateJobParams) (*domain.Job, error) {
	const op = "job.create"

	if err := requireRole(op, ac, domain.RoleCustomer); err != nil {
		return nil, err
	}
	params.Title = strings.TrimSpace(params.Title)
	params.Description = strings.TrimSpace(params.Description)
	params.Location = strings.TrimSpace(params.Location)
	if err := validator.Struct(op, params); err != nil {
		return nil, err
	}
	if params.BudgetMin != nil && params.BudgetMax != nil && *params.BudgetMin > *params.BudgetMax {
		return nil, domain.NewValidationError(op, "budget_max", "budget max must not be less than budget min")
	}
	if _, err := s.store.GetTradeByID(ctx, params.TradeID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewValidationError(op, "trade_id", "trade id is not a known trade")
		}
		return nil, domain.Internal(err, op, "failed to load trade")
	}

	now := timeNow()
	expires := now.Add(domain.DefaultJobLifetime)
	job := &domain.Job{
		ID:          uuid.New(),
		CustomerID:  ac.UserID,
		TradeID:     params.TradeID,
		Title:       params.Title,
		Description: params.Description,
		Location:    params.Location,
		BudgetMin:   params.BudgetMin,
		BudgetMax:   params.BudgetMax,
		Timeframe:   params.Timeframe,
		Status:      domain.JobOpen,
		ExpiresAt:   &expires,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, domain.Internal(err, op, "failed to create job")
	}

	metrics.JobsPosted.Inc()
	s.logger.Info("job posted", "job_id", job.ID, "customer_id", ac.UserID, "trade_id", job.TradeID)
	return job, nil
}

// Get returns a readable job.
func (s *jobService) Get(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (*domain.Job, error) {
	const op = "job.get"

	job, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	res := job.Resource()
	if err := domain.Authorize(ac, res, domain.OpRead).Err(op, res); err != nil {
		return nil, err
	}

	if ac.Is(domain.RoleTradesperson) {
		if err := s.RecordView(ctx, job.ID); err != nil {
			s.logger.Warn("failed to record job view", "job_id", job.ID, "error", err)
		} else {
			job.ViewCount++
		}
	}
	return job, nil
}

// GetOwned returns a job to its customer only.
func (s *jobService) GetOwned(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (*domain.Job, error) {
	const op = "job.get_owned"

	if ac.IsAnonymous() {
		return nil, domain.Unauthorized(op, "Authentication required")
	}
	job, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	res := job.Resource()
	if err := domain.Authorize(ac, res, domain.OpManage).Err(op, res); err != nil {
		return nil, err
	}
	return job, nil
}

// ListMine returns the caller's jobs, newest first.
func (s *jobService) ListMine(ctx context.Context, ac domain.AuthContext) ([]domain.Job, error) {
	const op = "job.list_mine"

	if err := requireRole(op, ac, domain.RoleCustomer); err != nil {
		return nil, err
	}
	jobs, err := s.store.ListJobsByCustomer(ctx, ac.UserID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list jobs")
	}
	now := timeNow()
	for i := range jobs {
		if jobs[i].IsLapsed(now) {
			s.expire(ctx, &jobs[i])
		}
	}
	return jobs, nil
}

// ListOpenForProfile matches open jobs to the caller's trades.
func (s *jobService) ListOpenForProfile(ctx context.Context, ac domain.AuthContext, filter domain.JobFilter) ([]domain.Job, error) {
	const op = "job.list_open"

	if err := requireRole(op, ac, domain.RoleTradesperson); err != nil {
		return nil, err
	}
	profile, err := profileForUser(ctx, s.store, op, ac.UserID)
	if err != nil {
		return nil, err
	}
	trades, err := s.store.ListProfileTrades(ctx, profile.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load trades")
	}
	profile.Trades = trades
	if len(trades) == 0 {
		return []domain.Job{}, nil
	}
	if filter.TradeID != nil && !profile.HasTrade(*filter.TradeID) {
		return []domain.Job{}, nil
	}

	filter.Normalize()
	jobs, err := s.store.ListOpenJobs(ctx, profile.TradeIDs(), filter)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list jobs")
	}
	return jobs, nil
}

// Transition applies a customer action.
func (s *jobService) Transition(ctx context.Context, ac domain.AuthContext, id uuid.UUID, action domain.JobAction) (*domain.Job, error) {
	const op = "job.transition"

	job, err := s.GetOwned(ctx, ac, id)
	if err != nil {
		return nil, err
	}
	actor, _ := job.ActorFor(ac)

	to, err := next(domain.JobMachine, op, job.Status, action, actor)
	if err != nil {
		return nil, err
	}

	now := timeNow()
	if err := s.store.UpdateJobStatus(ctx, domain.StatusChange[domain.JobStatus]{
		ID: job.ID, From: job.Status, To: to, At: now,
	}); err != nil {
		return nil, statusError(err, op, "job", job.Status, string(action), actor)
	}

	metrics.TransitionApplied("job", string(action))
	s.logger.Info("job transitioned", "job_id", job.ID, "from", job.Status, "to", to, "action", action)

	job.Status = to
	job.UpdatedAt = now
	return job, nil
}

// RecordView bumps the view counter.
func (s *jobService) RecordView(ctx context.Context, id uuid.UUID) error {
	const op = "job.record_view"

	if err := s.store.IncrementJobViews(ctx, id); err != nil {
		return domain.Internal(err, op, "failed to record view")
	}
	return nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// load fetches a job and expires it if its lifetime has passed.
func (s *jobService) load(ctx context.Context, op string, id uuid.UUID) (*domain.Job, error) {
	job, err := s.store.GetJobByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, op, "job", id)
	}
	if job.IsLapsed(timeNow()) {
		s.expire(ctx, job)
	}
	return job, nil
}

// expire moves a lapsed job to EXPIRED. A concurrent change wins.
func (s *jobService) expire(ctx context.Context, job *domain.Job) {
	to, err := domain.JobMachine.Next(job.Status, domain.JobActionExpire, domain.ActorSystem)
	if err != nil {
		return
	}
	err = s.store.UpdateJobStatus(ctx, domain.StatusChange[domain.JobStatus]{
		ID: job.ID, From: job.Status, To: to, At: timeNow(),
	})
	if err != nil {
		if !errors.Is(err, repository.ErrStale) {
			s.logger.Warn("failed to expire job", "job_id", job.ID, "error", err)
		}
		return
	}
	metrics.TransitionApplied("job", string(domain.JobActionExpire))
	job.Status = to
}
