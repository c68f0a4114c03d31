package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/DukeRupert/tradeslink/internal/domain"
)

// =============================================================================
// Reports
// =============================================================================

var reportColumns = []string{
	"id", "reporter_id", "target_type", "target_id", "reason", "details", "status",
	"resolution", "content_action", "handled_by", "handled_at", "created_at", "updated_at",
}

func (q *Queries) CreateReport(ctx context.Context, r *domain.Report) error {
	_, err := q.exec(ctx, psql().Insert("reports").
		Columns(reportColumns...).
		Values(r.ID, r.ReporterID, r.TargetType, r.TargetID, r.Reason, r.Details, r.Status,
			r.Resolution, r.ContentAction, r.HandledBy, r.HandledAt, r.CreatedAt, r.UpdatedAt))
	return err
}

func (q *Queries) GetReportByID(ctx context.Context, id uuid.UUID) (*domain.Report, error) {
	r := new(domain.Report)
	if err := q.get(ctx, r, psql().Select(reportColumns...).From("reports").Where(sq.Eq{"id": id})); err != nil {
		return nil, err
	}
	return r, nil
}

func (q *Queries) ListReports(ctx context.Context, filter domain.ReportFilter) ([]domain.Report, error) {
	b := psql().Select(reportColumns...).From("reports")
	if filter.Status != "" {
		b = b.Where(sq.Eq{"status": filter.Status})
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	b = b.OrderBy("created_at").Limit(uint64(limit))
	if filter.Offset > 0 {
		b = b.Offset(uint64(filter.Offset))
	}
	var reports []domain.Report
	err := q.selectAll(ctx, &reports, b)
	return reports, err
}

func (q *Queries) UpdateReportStatus(ctx context.Context, arg UpdateReportParams) error {
	return q.execOne(ctx, psql().Update("reports").
		Set("status", arg.To).
		Set("resolution", arg.Resolution).
		Set("content_action", arg.ContentAction).
		Set("handled_by", arg.HandledBy).
		Set("handled_at", arg.At).
		Set("updated_at", arg.At).
		Where(sq.Eq{"id": arg.ID, "status": arg.From}))
}

// =============================================================================
// Messages
// =============================================================================

var messageColumns = []string{"id", "sender_id", "recipient_id", "body", "deleted_at", "created_at"}

func (q *Queries) CreateMessage(ctx context.Context, m *domain.Message) error {
	_, err := q.exec(ctx, psql().Insert("messages").
		Columns(messageColumns...).
		Values(m.ID, m.SenderID, m.RecipientID, m.Body, m.DeletedAt, m.CreatedAt))
	return err
}

func (q *Queries) GetMessageByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	m := new(domain.Message)
	if err := q.get(ctx, m, psql().Select(messageColumns...).From("messages").Where(sq.Eq{"id": id})); err != nil {
		return nil, err
	}
	return m, nil
}

func (q *Queries) ListMessagesForUser(ctx context.Context, userID uuid.UUID) ([]domain.Message, error) {
	var msgs []domain.Message
	err := q.selectAll(ctx, &msgs, psql().Select(messageColumns...).From("messages").
		Where(sq.Or{sq.Eq{"sender_id": userID}, sq.Eq{"recipient_id": userID}}).
		Where(sq.Eq{"deleted_at": nil}).
		OrderBy("created_at DESC"))
	return msgs, err
}

// DeleteMessage soft-deletes a message. Deleting twice is a no-op.
func (q *Queries) DeleteMessage(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := q.exec(ctx, psql().Update("messages").
		Set("deleted_at", at).
		Where(sq.Eq{"id": id, "deleted_at": nil}))
	return err
}

// =============================================================================
// Bad payer reports
// =============================================================================

var badPayerColumns = []string{
	"id", "reference", "reporter_profile_id", "customer_name", "location",
	"agreed_amount", "amount_owed", "description", "status", "is_public",
	"published_at", "created_at", "updated_at",
}

func (q *Queries) CreateBadPayerReport(ctx context.Context, b *domain.BadPayerReport) error {
	_, err := q.exec(ctx, psql().Insert("bad_payer_reports").
		Columns(badPayerColumns...).
		Values(b.ID, b.Reference, b.ReporterProfileID, b.CustomerName, b.Location,
			b.AgreedAmount, b.AmountOwed, b.Description, b.Status, b.IsPublic,
			b.PublishedAt, b.CreatedAt, b.UpdatedAt))
	return err
}

func (q *Queries) GetBadPayerReportByID(ctx context.Context, id uuid.UUID) (*domain.BadPayerReport, error) {
	b := new(domain.BadPayerReport)
	if err := q.get(ctx, b, psql().Select(badPayerColumns...).From("bad_payer_reports").Where(sq.Eq{"id": id})); err != nil {
		return nil, err
	}
	return b, nil
}

func (q *Queries) ListPublicBadPayerReports(ctx context.Context, limit, offset int) ([]domain.BadPayerReport, error) {
	var reports []domain.BadPayerReport
	err := q.selectAll(ctx, &reports, psql().Select(badPayerColumns...).From("bad_payer_reports").
		Where(sq.Eq{"is_public": true}).
		OrderBy("published_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)))
	return reports, err
}

func (q *Queries) ListBadPayerReportsByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.BadPayerReport, error) {
	var reports []domain.BadPayerReport
	err := q.selectAll(ctx, &reports, psql().Select(badPayerColumns...).From("bad_payer_reports").
		Where(sq.Eq{"reporter_profile_id": profileID}).
		OrderBy("created_at DESC"))
	return reports, err
}

// UpdateBadPayerStatus moves a report and keeps is_public in step with the
// new status. published_at is stamped on first publication only.
func (q *Queries) UpdateBadPayerStatus(ctx context.Context, arg domain.StatusChange[domain.BadPayerStatus]) error {
	b := psql().Update("bad_payer_reports").
		Set("status", arg.To).
		Set("is_public", arg.To.IsPublic()).
		Set("updated_at", arg.At).
		Where(sq.Eq{"id": arg.ID, "status": arg.From})
	if arg.To == domain.BadPayerPublished {
		b = b.Set("published_at", sq.Expr("COALESCE(published_at, ?)", arg.At))
	}
	return q.execOne(ctx, b)
}

// =============================================================================
// Disputes
// =============================================================================

var disputeColumns = []string{
	"id", "report_id", "disputant_id", "reason", "status", "resolution",
	"resolved_by", "resolved_at", "created_at",
}

func (q *Queries) CreateDispute(ctx context.Context, d *domain.Dispute) error {
	_, err := q.exec(ctx, psql().Insert("disputes").
		Columns(disputeColumns...).
		Values(d.ID, d.ReportID, d.DisputantID, d.Reason, d.Status, d.Resolution,
			d.ResolvedBy, d.ResolvedAt, d.CreatedAt))
	return err
}

func (q *Queries) GetDisputeByID(ctx context.Context, id uuid.UUID) (*domain.Dispute, error) {
	d := new(domain.Dispute)
	if err := q.get(ctx, d, psql().Select(disputeColumns...).From("disputes").Where(sq.Eq{"id": id})); err != nil {
		return nil, err
	}
	return d, nil
}

func (q *Queries) ListDisputesByReport(ctx context.Context, reportID uuid.UUID) ([]domain.Dispute, error) {
	var ds []domain.Dispute
	err := q.selectAll(ctx, &ds, psql().Select(disputeColumns...).From("disputes").
		Where(sq.Eq{"report_id": reportID}).
		OrderBy("created_at"))
	return ds, err
}

func (q *Queries) ListPendingDisputes(ctx context.Context, limit, offset int) ([]domain.Dispute, error) {
	var ds []domain.Dispute
	err := q.selectAll(ctx, &ds, psql().Select(disputeColumns...).From("disputes").
		Where(sq.Eq{"status": domain.DisputePending}).
		OrderBy("created_at").
		Limit(uint64(limit)).
		Offset(uint64(offset)))
	return ds, err
}

func (q *Queries) ResolveDispute(ctx context.Context, arg ResolveDisputeParams) error {
	return q.execOne(ctx, psql().Update("disputes").
		Set("status", arg.To).
		Set("resolution", arg.Resolution).
		Set("resolved_by", arg.ResolvedBy).
		Set("resolved_at", arg.At).
		Where(sq.Eq{"id": arg.ID, "status": arg.From}))
}
