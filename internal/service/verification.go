package service

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/metrics"
	"github.com/DukeRupert/tradeslink/internal/repository"
	"github.com/DukeRupert/tradeslink/internal/storage"
	"github.com/DukeRupert/tradeslink/internal/validator"
)

const (
	// MaxVerificationDocumentBytes caps a single verification upload.
	MaxVerificationDocumentBytes = 20 << 20

	// verificationURLExpiry bounds the signed link an admin opens a document with.
	verificationURLExpiry = 15 * time.Minute

	defaultVerificationQueueSize = 50
)

// =============================================================================
// Interface Definition
// =============================================================================

// VerificationService manages credential documents and badge approval.
type VerificationService interface {
	// Submit uploads a document for review. Pending and current badges
	// together may not exceed the tier's badge cap.
	Submit(ctx context.Context, ac domain.AuthContext, params domain.SubmitVerificationParams) (*domain.Verification, error)

	// ListMine returns the caller's verifications.
	ListMine(ctx context.Context, ac domain.AuthContext) ([]domain.Verification, error)

	// ListPending returns the admin review queue.
	ListPending(ctx context.Context, ac domain.AuthContext, limit, offset int) ([]domain.Verification, error)

	// DocumentURL returns a short-lived link to the submitted document.
	DocumentURL(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (string, error)

	// Moderate approves or rejects a verification and refreshes the
	// profile's verified flag.
	Moderate(ctx context.Context, ac domain.AuthContext, id uuid.UUID, params domain.ModerateVerificationParams) (*domain.Verification, error)
}

// =============================================================================
// Implementation
// =============================================================================

type verificationService struct {
	store   repository.Store
	storage storage.Storage
	logger  *slog.Logger
}

// NewVerificationService creates a new VerificationService.
func NewVerificationService(store repository.Store, files storage.Storage, logger *slog.Logger) VerificationService {
	return &verificationService{
		store:   store,
		storage: files,
		logger:  logger,
	}
}

// Submit uploads a verification document.
func (s *verificationService) Submit(ctx context.Context, ac domain.AuthContext, params domain.SubmitVerificationParams) (*domain.Verification, error) {
	const op = "verification.submit"

	if err := requireRole(op, ac, domain.RoleTradesperson); err != nil {
		return nil, err
	}
	if !params.Type.IsValid() {
		return nil, domain.NewValidationError(op, "type", "type must be one of: IDENTITY INSURANCE LICENSE QUALIFICATION")
	}
	if len(params.Data) == 0 {
		return nil, domain.NewValidationError(op, "file", "file is required")
	}
	if len(params.Data) > MaxVerificationDocumentBytes {
		return nil, domain.Errorf(domain.ETOOLARGE, op, "Documents must be smaller than %d MB", MaxVerificationDocumentBytes>>20)
	}
	contentType := storage.DetectContentType(params.ContentType, params.Filename, bytes.NewReader(params.Data))
	if !storage.IsDocument(contentType) && !storage.IsAllowedImageType(contentType) {
		return nil, domain.NewValidationError(op, "file", "file must be a PDF, Word document or image")
	}

	profile, err := profileForUser(ctx, s.store, op, ac.UserID)
	if err != nil {
		return nil, err
	}

	now := timeNow()
	v := &domain.Verification{
		ID:          uuid.New(),
		ProfileID:   profile.ID,
		Type:        params.Type,
		Status:      domain.VerificationPending,
		DocumentKey: storage.VerificationDocumentKey(profile.ID, params.Filename),
		CreatedAt:   now,
	}

	uploaded := false
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		if err := q.LockProfile(ctx, profile.ID); err != nil {
			return domain.Internal(err, op, "failed to lock profile")
		}
		active, err := q.CountActiveVerifications(ctx, profile.ID, now)
		if err != nil {
			return domain.Internal(err, op, "failed to count verifications")
		}
		limit := profile.Limits().MaxVerificationBadges
		if !domain.Allows(limit, active) {
			return domain.Errorf(domain.EQUOTA, op,
				"Your plan allows %d verification badges. Upgrade your plan to add more.", limit)
		}

		if err := s.storage.Put(ctx, v.DocumentKey, bytes.NewReader(params.Data), storage.PutOptions{
			ContentType: contentType,
			MaxSize:     MaxVerificationDocumentBytes,
		}); err != nil {
			return domain.External(err, op, "failed to store document")
		}
		uploaded = true
		metrics.StorageUploadBytes.WithLabelValues("verification").Add(float64(len(params.Data)))

		return q.CreateVerification(ctx, v)
	})
	if err != nil {
		if uploaded {
			if derr := s.storage.Delete(ctx, v.DocumentKey); derr != nil {
				s.logger.Warn("failed to remove orphaned upload", "key", v.DocumentKey, "error", derr)
			}
		}
		return nil, passThrough(err, op, "failed to submit verification")
	}

	s.logger.Info("verification submitted", "verification_id", v.ID, "profile_id", profile.ID, "type", v.Type)
	return v, nil
}

// ListMine returns the caller's verifications.
func (s *verificationService) ListMine(ctx context.Context, ac domain.AuthContext) ([]domain.Verification, error) {
	const op = "verification.list_mine"

	if err := requireRole(op, ac, domain.RoleTradesperson); err != nil {
		return nil, err
	}
	profile, err := profileForUser(ctx, s.store, op, ac.UserID)
	if err != nil {
		return nil, err
	}
	list, err := s.store.ListVerificationsByProfile(ctx, profile.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list verifications")
	}
	return list, nil
}

// ListPending returns the admin review queue.
func (s *verificationService) ListPending(ctx context.Context, ac domain.AuthContext, limit, offset int) ([]domain.Verification, error) {
	const op = "verification.list_pending"

	if err := requireRole(op, ac, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > defaultVerificationQueueSize {
		limit = defaultVerificationQueueSize
	}
	if offset < 0 {
		offset = 0
	}
	list, err := s.store.ListVerificationsByStatus(ctx, domain.VerificationPending, limit, offset)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list verifications")
	}
	return list, nil
}

// DocumentURL returns a signed link for the admin or the submitting owner.
func (s *verificationService) DocumentURL(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (string, error) {
	const op = "verification.document_url"

	v, err := s.store.GetVerificationByID(ctx, id)
	if err != nil {
		return "", lookupError(err, op, "verification", id)
	}
	profile, err := s.store.GetProfileByID(ctx, v.ProfileID)
	if err != nil {
		return "", lookupError(err, op, "profile", v.ProfileID)
	}
	res := domain.Resource{Kind: "verification", ID: v.ID, OwnerIDs: []uuid.UUID{profile.UserID}, Private: true}
	if err := domain.Authorize(ac, res, domain.OpRead).Err(op, res); err != nil {
		return "", err
	}
	url, err := s.storage.URL(ctx, v.DocumentKey, verificationURLExpiry)
	if err != nil {
		return "", domain.External(err, op, "failed to sign document link")
	}
	return url, nil
}

// Moderate approves or rejects a verification.
func (s *verificationService) Moderate(ctx context.Context, ac domain.AuthContext, id uuid.UUID, params domain.ModerateVerificationParams) (*domain.Verification, error) {
	const op = "verification.moderate"

	if err := requireRole(op, ac, domain.RoleAdmin); err != nil {
		return nil, err
	}
	params.Reason = strings.TrimSpace(params.Reason)
	params.Notes = strings.TrimSpace(params.Notes)
	if err := validator.Struct(op, params); err != nil {
		return nil, err
	}
	now := timeNow()
	if params.Action == domain.VerificationActionApprove && params.ExpiresAt != nil && !params.ExpiresAt.After(now) {
		return nil, domain.NewValidationError(op, "expires_at", "expires_at must be in the future")
	}

	var v *domain.Verification
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		v, err = q.GetVerificationByID(ctx, id)
		if err != nil {
			return lookupError(err, op, "verification", id)
		}
		from := v.Status
		to, err := next(domain.VerificationMachine, op, from, params.Action, domain.ActorAdmin)
		if err != nil {
			return err
		}

		arg := repository.ReviewVerificationParams{
			ID:         v.ID,
			From:       from,
			To:         to,
			Notes:      params.Notes,
			ReviewerID: ac.UserID,
			At:         now,
		}
		if to == domain.VerificationApproved {
			arg.ExpiresAt = params.ExpiresAt
		} else {
			arg.Reason = params.Reason
		}
		if err := q.ReviewVerification(ctx, arg); err != nil {
			return statusError(err, op, "verification", from, string(params.Action), domain.ActorAdmin)
		}

		current, err := q.CountCurrentApprovedVerifications(ctx, v.ProfileID, now)
		if err != nil {
			return domain.Internal(err, op, "failed to count verifications")
		}
		if err := q.SetProfileVerified(ctx, v.ProfileID, current > 0); err != nil {
			return lookupError(err, op, "profile", v.ProfileID)
		}

		reviewer := ac.UserID
		v.Status = to
		v.ExpiresAt = arg.ExpiresAt
		v.Notes = arg.Notes
		v.RejectionReason = arg.Reason
		v.ReviewedBy = &reviewer
		v.ReviewedAt = &now
		return nil
	})
	if err != nil {
		return nil, passThrough(err, op, "failed to moderate verification")
	}

	metrics.TransitionApplied("verification", string(params.Action))
	s.logger.Info("verification moderated", "verification_id", v.ID, "status", v.Status, "admin_id", ac.UserID)
	return v, nil
}
