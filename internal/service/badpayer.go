package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/metrics"
	"github.com/DukeRupert/tradeslink/internal/repository"
	"github.com/DukeRupert/tradeslink/internal/validator"
)

const defaultBadPayerPageSize = 50

// =============================================================================
// Interface Definition
// =============================================================================

// BadPayerService manages bad payer reports and disputes against them.
type BadPayerService interface {
	// Create drafts a report on the caller's trades profile.
	Create(ctx context.Context, ac domain.AuthContext, params domain.CreateBadPayerParams) (*domain.BadPayerReport, error)

	// Get returns a report the caller may see.
	Get(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (*domain.BadPayerReport, error)

	// Publish makes the caller's draft public.
	Publish(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (*domain.BadPayerReport, error)

	// ListPublic returns published and disputed reports.
	ListPublic(ctx context.Context, limit, offset int) ([]domain.BadPayerReport, error)

	// ListMine returns the caller's reports in every status.
	ListMine(ctx context.Context, ac domain.AuthContext) ([]domain.BadPayerReport, error)

	// Remove takes a published report down.
	Remove(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (*domain.BadPayerReport, error)

	// FileDispute contests a published report and marks it disputed.
	FileDispute(ctx context.Context, ac domain.AuthContext, reportID uuid.UUID, params domain.FileDisputeParams) (*domain.Dispute, error)

	// ListPendingDisputes returns the admin dispute queue.
	ListPendingDisputes(ctx context.Context, ac domain.AuthContext, limit, offset int) ([]domain.Dispute, error)

	// ResolveDispute applies an admin ruling. Upholding removes the report;
	// dismissing puts it back to published.
	ResolveDispute(ctx context.Context, ac domain.AuthContext, id uuid.UUID, params domain.ResolveDisputeParams) (*domain.Dispute, error)
}

// =============================================================================
// Implementation
// =============================================================================

type badPayerService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewBadPayerService creates a new BadPayerService.
func NewBadPayerService(store repository.Store, logger *slog.Logger) BadPayerService {
	return &badPayerService{
		store:  store,
		logger: logger,
	}
}

// Create drafts a report.
func (s *badPayerService) Create(ctx context.Context, ac domain.AuthContext, params domain.CreateBadPayerParams) (*domain.BadPayerReport, error) {
	const op = "bad_payer.create"

	if err := requireRole(op, ac, domain.RoleTradesperson); err != nil {
		return nil, err
	}
	params.CustomerName = strings.TrimSpace(params.CustomerName)
	params.Location = strings.TrimSpace(params.Location)
	params.Description = strings.TrimSpace(params.Description)
	if err := validator.Struct(op, params); err != nil {
		return nil, err
	}
	profile, err := profileForUser(ctx, s.store, op, ac.UserID)
	if err != nil {
		return nil, err
	}

	reference, err := newReference(badPayerReferencePrefix)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to generate reference")
	}
	now := timeNow()
	report := &domain.BadPayerReport{
		ID:                uuid.New(),
		Reference:         reference,
		ReporterProfileID: profile.ID,
		CustomerName:      params.CustomerName,
		Location:          params.Location,
		AgreedAmount:      params.AgreedAmount,
		AmountOwed:        params.AmountOwed,
		Description:       params.Description,
		Status:            domain.BadPayerDraft,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.store.CreateBadPayerReport(ctx, report); err != nil {
		return nil, writeError(err, op, "Please try again", "failed to create report")
	}

	s.logger.Info("bad payer report drafted", "report_id", report.ID, "reference", report.Reference, "profile_id", profile.ID)
	return report, nil
}

// Get returns a report the caller may see.
func (s *badPayerService) Get(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (*domain.BadPayerReport, error) {
	const op = "bad_payer.get"

	report, reporterID, err := s.load(ctx, s.store, op, id)
	if err != nil {
		return nil, err
	}
	res := report.Resource(reporterID)
	if err := domain.Authorize(ac, res, domain.OpRead).Err(op, res); err != nil {
		return nil, err
	}
	return report, nil
}

// Publish makes a draft public.
func (s *badPayerService) Publish(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (*domain.BadPayerReport, error) {
	const op = "bad_payer.publish"

	if ac.IsAnonymous() {
		return nil, domain.Unauthorized(op, "Authentication required")
	}
	report, reporterID, err := s.load(ctx, s.store, op, id)
	if err != nil {
		return nil, err
	}
	if ac.UserID != reporterID {
		return nil, domain.NotFound(op, "bad_payer_report", id.String())
	}
	if err := s.transition(ctx, s.store, op, report, domain.BadPayerActionPublish, domain.ActorTradesperson); err != nil {
		return nil, err
	}
	s.logger.Info("bad payer report published", "report_id", report.ID)
	return report, nil
}

// ListPublic returns published and disputed reports.
func (s *badPayerService) ListPublic(ctx context.Context, limit, offset int) ([]domain.BadPayerReport, error) {
	const op = "bad_payer.list_public"

	if limit <= 0 || limit > defaultBadPayerPageSize {
		limit = defaultBadPayerPageSize
	}
	if offset < 0 {
		offset = 0
	}
	reports, err := s.store.ListPublicBadPayerReports(ctx, limit, offset)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list reports")
	}
	return reports, nil
}

// ListMine returns the caller's reports.
func (s *badPayerService) ListMine(ctx context.Context, ac domain.AuthContext) ([]domain.BadPayerReport, error) {
	const op = "bad_payer.list_mine"

	if err := requireRole(op, ac, domain.RoleTradesperson); err != nil {
		return nil, err
	}
	profile, err := profileForUser(ctx, s.store, op, ac.UserID)
	if err != nil {
		return nil, err
	}
	reports, err := s.store.ListBadPayerReportsByProfile(ctx, profile.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list reports")
	}
	return reports, nil
}

// Remove takes a published report down.
func (s *badPayerService) Remove(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (*domain.BadPayerReport, error) {
	const op = "bad_payer.remove"

	if err := requireRole(op, ac, domain.RoleAdmin); err != nil {
		return nil, err
	}
	report, _, err := s.load(ctx, s.store, op, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, s.store, op, report, domain.BadPayerActionRemove, domain.ActorAdmin); err != nil {
		return nil, err
	}
	s.logger.Info("bad payer report removed", "report_id", report.ID, "admin_id", ac.UserID)
	return report, nil
}

// FileDispute contests a published report.
func (s *badPayerService) FileDispute(ctx context.Context, ac domain.AuthContext, reportID uuid.UUID, params domain.FileDisputeParams) (*domain.Dispute, error) {
	const op = "dispute.file"

	if ac.IsAnonymous() {
		return nil, domain.Unauthorized(op, "Authentication required")
	}
	params.Reason = strings.TrimSpace(params.Reason)
	if err := validator.Struct(op, params); err != nil {
		return nil, err
	}

	var dispute *domain.Dispute
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		report, reporterID, err := s.load(ctx, q, op, reportID)
		if err != nil {
			return err
		}
		if !report.IsPublic {
			return domain.NotFound(op, "bad_payer_report", reportID.String())
		}
		if reporterID == ac.UserID {
			return domain.Invalid(op, "You cannot dispute your own report")
		}
		if err := s.transition(ctx, q, op, report, domain.BadPayerActionDispute, domain.ActorSystem); err != nil {
			return err
		}

		now := timeNow()
		dispute = &domain.Dispute{
			ID:          uuid.New(),
			ReportID:    report.ID,
			DisputantID: ac.UserID,
			Reason:      params.Reason,
			Status:      domain.DisputePending,
			CreatedAt:   now,
		}
		if err := q.CreateDispute(ctx, dispute); err != nil {
			return writeError(err, op, "This report is already disputed", "failed to create dispute")
		}
		return nil
	})
	if err != nil {
		return nil, passThrough(err, op, "failed to file dispute")
	}

	s.logger.Info("dispute filed", "dispute_id", dispute.ID, "report_id", reportID)
	return dispute, nil
}

// ListPendingDisputes returns the admin dispute queue.
func (s *badPayerService) ListPendingDisputes(ctx context.Context, ac domain.AuthContext, limit, offset int) ([]domain.Dispute, error) {
	const op = "dispute.list_pending"

	if err := requireRole(op, ac, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > defaultBadPayerPageSize {
		limit = defaultBadPayerPageSize
	}
	if offset < 0 {
		offset = 0
	}
	disputes, err := s.store.ListPendingDisputes(ctx, limit, offset)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list disputes")
	}
	return disputes, nil
}

// ResolveDispute applies an admin ruling.
func (s *badPayerService) ResolveDispute(ctx context.Context, ac domain.AuthContext, id uuid.UUID, params domain.ResolveDisputeParams) (*domain.Dispute, error) {
	const op = "dispute.resolve"

	if err := requireRole(op, ac, domain.RoleAdmin); err != nil {
		return nil, err
	}
	params.Resolution = strings.TrimSpace(params.Resolution)
	if err := validator.Struct(op, params); err != nil {
		return nil, err
	}

	var dispute *domain.Dispute
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		dispute, err = q.GetDisputeByID(ctx, id)
		if err != nil {
			return lookupError(err, op, "dispute", id)
		}
		from := dispute.Status
		to, err := next(domain.DisputeMachine, op, from, params.Action, domain.ActorAdmin)
		if err != nil {
			return err
		}
		now := timeNow()
		if err := q.ResolveDispute(ctx, repository.ResolveDisputeParams{
			ID:         dispute.ID,
			From:       from,
			To:         to,
			Resolution: params.Resolution,
			ResolvedBy: ac.UserID,
			At:         now,
		}); err != nil {
			return statusError(err, op, "dispute", from, string(params.Action), domain.ActorAdmin)
		}

		report, _, err := s.load(ctx, q, op, dispute.ReportID)
		if err != nil {
			return err
		}
		follow := domain.BadPayerActionReinstate
		if to == domain.DisputeUpheld {
			follow = domain.BadPayerActionRemove
		}
		if err := s.transition(ctx, q, op, report, follow, domain.ActorSystem); err != nil {
			return err
		}

		resolver := ac.UserID
		dispute.Status = to
		dispute.Resolution = params.Resolution
		dispute.ResolvedBy = &resolver
		dispute.ResolvedAt = &now
		return nil
	})
	if err != nil {
		return nil, passThrough(err, op, "failed to resolve dispute")
	}

	metrics.TransitionApplied("dispute", string(params.Action))
	s.logger.Info("dispute resolved", "dispute_id", dispute.ID, "status", dispute.Status, "admin_id", ac.UserID)
	return dispute, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// load fetches a report and the user id of the reporting tradesperson.
func (s *badPayerService) load(ctx context.Context, q repository.Querier, op string, id uuid.UUID) (*domain.BadPayerReport, uuid.UUID, error) {
	report, err := q.GetBadPayerReportByID(ctx, id)
	if err != nil {
		return nil, uuid.Nil, lookupError(err, op, "bad_payer_report", id)
	}
	profile, err := q.GetProfileByID(ctx, report.ReporterProfileID)
	if err != nil {
		return nil, uuid.Nil, lookupError(err, op, "profile", report.ReporterProfileID)
	}
	return report, profile.UserID, nil
}

// transition applies a bad payer edge and updates the report in place.
func (s *badPayerService) transition(ctx context.Context, q repository.Querier, op string, report *domain.BadPayerReport, action domain.BadPayerAction, actor domain.Actor) error {
	from := report.Status
	to, err := next(domain.BadPayerMachine, op, from, action, actor)
	if err != nil {
		return err
	}
	now := timeNow()
	if err := q.UpdateBadPayerStatus(ctx, domain.StatusChange[domain.BadPayerStatus]{
		ID: report.ID, From: from, To: to, At: now,
	}); err != nil {
		return statusError(err, op, "bad_payer_report", from, string(action), actor)
	}
	metrics.TransitionApplied("bad_payer_report", string(action))

	report.Status = to
	report.IsPublic = to.IsPublic()
	report.UpdatedAt = now
	if to == domain.BadPayerPublished && report.PublishedAt == nil {
		report.PublishedAt = &now
	}
	return nil
}
