package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/DukeRupert/tradeslink/internal/domain"
)

// =============================================================================
// Jobs
// =============================================================================

var jobColumns = []string{
	"id", "customer_id", "trade_id", "title", "description", "location",
	"budget_min", "budget_max", "timeframe", "status", "view_count", "expires_at",
	"created_at", "updated_at",
}

func (q *Queries) CreateJob(ctx context.Context, j *domain.Job) error {
	_, err := q.exec(ctx, psql().Insert("jobs").
		Columns(jobColumns...).
		Values(j.ID, j.CustomerID, j.TradeID, j.Title, j.Description, j.Location,
			j.BudgetMin, j.BudgetMax, j.Timeframe, j.Status, j.ViewCount, j.ExpiresAt,
			j.CreatedAt, j.UpdatedAt))
	return err
}

func (q *Queries) GetJobByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	j := new(domain.Job)
	if err := q.get(ctx, j, psql().Select(jobColumns...).From("jobs").Where(sq.Eq{"id": id})); err != nil {
		return nil, err
	}
	return j, nil
}

func (q *Queries) ListOpenJobs(ctx context.Context, tradeIDs []uuid.UUID, filter domain.JobFilter) ([]domain.Job, error) {
	filter.Normalize()
	b := psql().Select(jobColumns...).From("jobs").
		Where(sq.Eq{"status": domain.JobOpen, "trade_id": tradeIDs}).
		Where(sq.Or{sq.Eq{"expires_at": nil}, sq.Gt{"expires_at": time.Now().UTC()}})
	if filter.TradeID != nil {
		b = b.Where(sq.Eq{"trade_id": *filter.TradeID})
	}
	if filter.Location != "" {
		b = b.Where(sq.ILike{"location": "%" + filter.Location + "%"})
	}
	if filter.MinBudget != nil {
		b = b.Where(sq.GtOrEq{"budget_max": *filter.MinBudget})
	}
	b = b.OrderBy("created_at DESC").Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))

	var jobs []domain.Job
	err := q.selectAll(ctx, &jobs, b)
	return jobs, err
}

func (q *Queries) ListJobsByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Job, error) {
	var jobs []domain.Job
	err := q.selectAll(ctx, &jobs, psql().Select(jobColumns...).From("jobs").
		Where(sq.Eq{"customer_id": customerID}).
		OrderBy("created_at DESC"))
	return jobs, err
}

func (q *Queries) UpdateJobStatus(ctx context.Context, arg domain.StatusChange[domain.JobStatus]) error {
	return q.execOne(ctx, psql().Update("jobs").
		Set("status", arg.To).
		Set("updated_at", arg.At).
		Where(sq.Eq{"id": arg.ID, "status": arg.From}))
}

func (q *Queries) IncrementJobViews(ctx context.Context, id uuid.UUID) error {
	_, err := q.exec(ctx, psql().Update("jobs").
		Set("view_count", sq.Expr("view_count + 1")).
		Where(sq.Eq{"id": id}))
	return err
}

// =============================================================================
// Job applications
// =============================================================================

var applicationColumns = []string{
	"id", "job_id", "profile_id", "status", "cover_letter", "proposed_budget",
	"proposed_start_date", "viewed_at", "created_at", "updated_at",
}

func (q *Queries) CreateApplication(ctx context.Context, a *domain.JobApplication) error {
	_, err := q.exec(ctx, psql().Insert("job_applications").
		Columns(applicationColumns...).
		Values(a.ID, a.JobID, a.ProfileID, a.Status, a.CoverLetter, a.ProposedBudget,
			a.ProposedStartDate, a.ViewedAt, a.CreatedAt, a.UpdatedAt))
	return err
}

func (q *Queries) GetApplicationByID(ctx context.Context, id uuid.UUID) (*domain.JobApplication, error) {
	a := new(domain.JobApplication)
	if err := q.get(ctx, a, psql().Select(applicationColumns...).From("job_applications").Where(sq.Eq{"id": id})); err != nil {
		return nil, err
	}
	return a, nil
}

func (q *Queries) ListApplicationsByJob(ctx context.Context, jobID uuid.UUID) ([]domain.JobApplication, error) {
	var apps []domain.JobApplication
	err := q.selectAll(ctx, &apps, psql().Select(applicationColumns...).From("job_applications").
		Where(sq.Eq{"job_id": jobID}).
		OrderBy("created_at"))
	return apps, err
}

func (q *Queries) ListApplicationsByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.JobApplication, error) {
	var apps []domain.JobApplication
	err := q.selectAll(ctx, &apps, psql().Select(applicationColumns...).From("job_applications").
		Where(sq.Eq{"profile_id": profileID}).
		OrderBy("created_at DESC"))
	return apps, err
}

func (q *Queries) UpdateApplicationStatus(ctx context.Context, arg domain.StatusChange[domain.ApplicationStatus]) error {
	b := psql().Update("job_applications").
		Set("status", arg.To).
		Set("updated_at", arg.At).
		Where(sq.Eq{"id": arg.ID, "status": arg.From})
	if arg.To == domain.ApplicationViewed {
		b = b.Set("viewed_at", arg.At)
	}
	return q.execOne(ctx, b)
}

func (q *Queries) CountApplicationsSince(ctx context.Context, profileID uuid.UUID, since time.Time) (int, error) {
	return q.count(ctx, psql().Select("COUNT(*)").From("job_applications").
		Where(sq.Eq{"profile_id": profileID}).
		Where(sq.GtOrEq{"created_at": since}))
}
