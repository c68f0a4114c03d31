package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/email"
	"github.com/DukeRupert/tradeslink/internal/metrics"
	"github.com/DukeRupert/tradeslink/internal/repository"
	"github.com/DukeRupert/tradeslink/internal/validator"
)

const defaultReportQueueSize = 50

// =============================================================================
// Interface Definition
// =============================================================================

// ModerationService handles user reports and the admin actions on them.
type ModerationService interface {
	// FileReport records a complaint about a review, profile or message.
	FileReport(ctx context.Context, ac domain.AuthContext, params domain.FileReportParams) (*domain.Report, error)

	// GetReport returns a report to an admin.
	GetReport(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (*domain.Report, error)

	// ListReports returns the admin report queue.
	ListReports(ctx context.Context, ac domain.AuthContext, filter domain.ReportFilter) ([]domain.Report, error)

	// ApplyModeration moves a report to investigating, resolved or dismissed.
	// A resolve with a content action applies it to the target in the same
	// transaction as the report update.
	ApplyModeration(ctx context.Context, ac domain.AuthContext, id uuid.UUID, payload domain.ModerationPayload) (*domain.Report, error)
}

// =============================================================================
// Implementation
// =============================================================================

type moderationService struct {
	store    repository.Store
	notifier email.EmailService
	logger   *slog.Logger
}

// NewModerationService creates a new ModerationService.
func NewModerationService(store repository.Store, notifier email.EmailService, logger *slog.Logger) ModerationService {
	return &moderationService{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// FileReport records a complaint.
func (s *moderationService) FileReport(ctx context.Context, ac domain.AuthContext, params domain.FileReportParams) (*domain.Report, error) {
	const op = "report.file"

	if ac.IsAnonymous() {
		return nil, domain.Unauthorized(op, "Authentication required")
	}
	params.Details = strings.TrimSpace(params.Details)
	if err := validator.Struct(op, params); err != nil {
		return nil, err
	}
	if err := s.targetExists(ctx, op, ac, params.TargetType, params.TargetID); err != nil {
		return nil, err
	}

	now := timeNow()
	report := &domain.Report{
		ID:         uuid.New(),
		ReporterID: ac.UserID,
		TargetType: params.TargetType,
		TargetID:   params.TargetID,
		Reason:     params.Reason,
		Details:    params.Details,
		Status:     domain.ReportPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, writeError(err, op, "You have already reported this", "failed to create report")
	}

	s.logger.Info("report filed", "report_id", report.ID, "target_type", report.TargetType, "target_id", report.TargetID)
	return report, nil
}

// GetReport returns a report to an admin.
func (s *moderationService) GetReport(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (*domain.Report, error) {
	const op = "report.get"

	if err := requireRole(op, ac, domain.RoleAdmin); err != nil {
		return nil, err
	}
	report, err := s.store.GetReportByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, op, "report", id)
	}
	return report, nil
}

// ListReports returns the admin report queue.
func (s *moderationService) ListReports(ctx context.Context, ac domain.AuthContext, filter domain.ReportFilter) ([]domain.Report, error) {
	const op = "report.list"

	if err := requireRole(op, ac, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, domain.NewValidationError(op, "status", "status must be one of: PENDING INVESTIGATING RESOLVED DISMISSED")
	}
	if filter.Limit <= 0 || filter.Limit > defaultReportQueueSize {
		filter.Limit = defaultReportQueueSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	reports, err := s.store.ListReports(ctx, filter)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list reports")
	}
	return reports, nil
}

// ApplyModeration dispatches an admin action on a report.
func (s *moderationService) ApplyModeration(ctx context.Context, ac domain.AuthContext, id uuid.UUID, payload domain.ModerationPayload) (*domain.Report, error) {
	const op = "report.moderate"

	if err := requireRole(op, ac, domain.RoleAdmin); err != nil {
		return nil, err
	}
	payload.Resolution = strings.TrimSpace(payload.Resolution)
	if err := validator.Struct(op, payload); err != nil {
		return nil, err
	}
	switch payload.Action {
	case domain.ModerationResolve:
		fields := map[string]string{}
		if payload.Resolution == "" {
			fields["resolution"] = "resolution is required to resolve a report"
		}
		if payload.ContentAction == "" {
			fields["content_action"] = "content_action is required to resolve a report; use none to leave the content"
		}
		if len(fields) > 0 {
			return nil, &domain.ValidationError{Op: op, Fields: fields}
		}
	case domain.ModerationDismiss:
		if payload.Resolution == "" {
			payload.Resolution = domain.DefaultDismissResolution
		}
		payload.ContentAction = domain.ContentActionNone
	case domain.ModerationInvestigate:
		payload.ContentAction = domain.ContentActionNone
	}

	var report *domain.Report
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		report, err = q.GetReportByID(ctx, id)
		if err != nil {
			return lookupError(err, op, "report", id)
		}
		if !payload.ContentAction.AppliesTo(report.TargetType) {
			return domain.NewValidationError(op, "content_action",
				"content_action "+string(payload.ContentAction)+" does not apply to "+string(report.TargetType))
		}

		from := report.Status
		to, err := next(domain.ReportMachine, op, from, payload.Action, domain.ActorAdmin)
		if err != nil {
			return err
		}
		now := timeNow()
		arg := repository.UpdateReportParams{
			ID:            report.ID,
			From:          from,
			To:            to,
			Resolution:    payload.Resolution,
			ContentAction: payload.ContentAction,
			HandledBy:     ac.UserID,
			At:            now,
		}
		if err := q.UpdateReportStatus(ctx, arg); err != nil {
			return statusError(err, op, "report", from, string(payload.Action), domain.ActorAdmin)
		}

		if err := applyContentAction(ctx, q, op, report, payload.ContentAction, payload.Resolution); err != nil {
			return err
		}

		handler := ac.UserID
		report.Status = to
		report.Resolution = arg.Resolution
		report.ContentAction = arg.ContentAction
		report.HandledBy = &handler
		report.HandledAt = &now
		report.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, passThrough(err, op, "failed to apply moderation")
	}

	metrics.TransitionApplied("report", string(payload.Action))
	metrics.ModerationActions.WithLabelValues(string(payload.Action), string(payload.ContentAction)).Inc()
	s.logger.Info("report moderated",
		"report_id", report.ID,
		"action", payload.Action,
		"content_action", payload.ContentAction,
		"admin_id", ac.UserID,
	)

	if report.Status == domain.ReportResolved || report.Status == domain.ReportDismissed {
		if reporter, err := s.store.GetUserByID(ctx, report.ReporterID); err == nil {
			notify(ctx, s.logger, s.notifier, "report_resolved", func(ctx context.Context, n email.EmailService) error {
				return n.SendReportResolvedEmail(ctx, reporter.Email, reporter.DisplayName(), report.Resolution)
			})
		}
	}
	return report, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// applyContentAction executes the side effect of a resolve on the reported
// content. It runs inside the caller's transaction.
func applyContentAction(ctx context.Context, q repository.Querier, op string, report *domain.Report, action domain.ContentAction, reason string) error {
	switch action {
	case domain.ContentActionNone:
		return nil

	case domain.ContentActionReject:
		review, err := q.GetReviewByID(ctx, report.TargetID)
		if err != nil {
			return lookupError(err, op, "review", report.TargetID)
		}
		if review.Status == domain.ReviewRejected {
			return nil
		}
		_, err = moderateReview(ctx, q, op, review, domain.ReviewActionReject, reason)
		return err

	case domain.ContentActionDeactivate:
		if err := q.SetProfileActive(ctx, report.TargetID, false); err != nil {
			return lookupError(err, op, "profile", report.TargetID)
		}
		return nil

	case domain.ContentActionDelete:
		if err := q.DeleteMessage(ctx, report.TargetID, timeNow()); err != nil {
			return lookupError(err, op, "message", report.TargetID)
		}
		return nil
	}
	return domain.NewValidationError(op, "content_action", "unknown content_action")
}

// targetExists checks that the reported content exists and is visible to
// the reporter.
func (s *moderationService) targetExists(ctx context.Context, op string, ac domain.AuthContext, kind domain.ReportTargetType, id uuid.UUID) error {
	switch kind {
	case domain.TargetReview:
		review, err := s.store.GetReviewByID(ctx, id)
		if err != nil {
			return lookupError(err, op, "review", id)
		}
		if review.Status == domain.ReviewRejected {
			return domain.NotFound(op, "review", id.String())
		}
	case domain.TargetProfile:
		profile, err := s.store.GetProfileByID(ctx, id)
		if err != nil {
			return lookupError(err, op, "profile", id)
		}
		if !profile.IsActive {
			return domain.NotFound(op, "profile", id.String())
		}
	case domain.TargetMessage:
		msg, err := s.store.GetMessageByID(ctx, id)
		if err != nil {
			return lookupError(err, op, "message", id)
		}
		res := msg.Resource()
		if msg.IsDeleted() {
			return domain.NotFound(op, "message", id.String())
		}
		if err := domain.Authorize(ac, res, domain.OpRead).Err(op, res); err != nil {
			return err
		}
	}
	return nil
}
