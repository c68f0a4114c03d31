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

// QuoteService manages quote requests sent to tradespeople.
type QuoteService interface {
	// Create sends a quote request to an active profile. Anonymous visitors
	// may send one. The recipient's monthly quote allowance is enforced.
	Create(ctx context.Context, ac domain.AuthContext, profileID uuid.UUID, params domain.CreateQuoteParams) (*domain.QuoteRequest, error)

	// Get returns a quote to its recipient or sender. The recipient's first
	// read marks it VIEWED.
	Get(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (*domain.QuoteRequest, error)

	// ListReceived returns the quotes sent to the caller's profile, marking
	// pending ones VIEWED.
	ListReceived(ctx context.Context, ac domain.AuthContext) ([]domain.QuoteRequest, error)

	// ListSent returns the quotes the calling customer sent.
	ListSent(ctx context.Context, ac domain.AuthContext) ([]domain.QuoteRequest, error)

	// Respond records the recipient's answer.
	Respond(ctx context.Context, ac domain.AuthContext, id uuid.UUID, params domain.RespondQuoteParams) (*domain.QuoteRequest, error)

	// Decide applies accept or decline. The customer decides on a response;
	// the recipient may decline before responding.
	Decide(ctx context.Context, ac domain.AuthContext, id uuid.UUID, action domain.QuoteAction) (*domain.QuoteRequest, error)
}

// =============================================================================
// Implementation
// =============================================================================

type quoteService struct {
	store    repository.Store
	notifier email.EmailService
	logger   *slog.Logger
}

// NewQuoteService creates a new QuoteService.
func NewQuoteService(store repository.Store, notifier email.EmailService, logger *slog.Logger) QuoteService {
	return &quoteService{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Create sends a quote request.
func (s *quoteService) Create(ctx context.Context, ac domain.AuthContext, profileID uuid.UUID, params domain.CreateQuoteParams) (*domain.QuoteRequest, error) {
	const op = "quote.create"

	params.ContactName = strings.TrimSpace(params.ContactName)
	params.ContactEmail = strings.ToLower(strings.TrimSpace(params.ContactEmail))
	params.Description = strings.TrimSpace(params.Description)
	if err := validator.Struct(op, params); err != nil {
		return nil, err
	}

	profile, err := s.store.GetProfileByID(ctx, profileID)
	if err != nil {
		return nil, lookupError(err, op, "profile", profileID)
	}
	if !profile.IsActive {
		return nil, domain.NotFound(op, "profile", profileID.String())
	}
	if !ac.IsAnonymous() && ac.UserID == profile.UserID {
		return nil, domain.Invalid(op, "You cannot request a quote from your own profile")
	}

	reference, err := newReference(quoteReferencePrefix)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to generate reference")
	}

	now := timeNow()
	quote := &domain.QuoteRequest{
		ID:           uuid.New(),
		Reference:    reference,
		ProfileID:    profile.ID,
		ContactName:  params.ContactName,
		ContactEmail: params.ContactEmail,
		TradeType:    params.TradeType,
		Description:  params.Description,
		BudgetRange:  params.BudgetRange,
		Timeframe:    params.Timeframe,
		Status:       domain.QuotePending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	sender := "anonymous"
	if !ac.IsAnonymous() {
		id := ac.UserID
		quote.CustomerID = &id
		sender = "customer"
	}

	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		if err := q.LockProfile(ctx, profile.ID); err != nil {
			return domain.Internal(err, op, "failed to lock profile")
		}
		if err := checkQuota(ctx, q, s.logger, op, profile, domain.UsageQuote); err != nil {
			var de *domain.Error
			if errors.As(err, &de) && de.Code == domain.EQUOTA {
				de.Message = "This tradesperson cannot take new quote requests this month."
			}
			return err
		}
		if err := q.CreateQuote(ctx, quote); err != nil {
			return writeError(err, op, "Please try again", "failed to create quote request")
		}
		return nil
	})
	if err != nil {
		return nil, passThrough(err, op, "failed to create quote request")
	}

	metrics.QuotesRequested.WithLabelValues(sender).Inc()
	s.logger.Info("quote requested", "quote_id", quote.ID, "reference", quote.Reference, "profile_id", profile.ID, "sender", sender)

	if owner, err := s.store.GetUserByID(ctx, profile.UserID); err == nil {
		notify(ctx, s.logger, s.notifier, "quote_received", func(ctx context.Context, n email.EmailService) error {
			return n.SendQuoteReceivedEmail(ctx, owner.Email, owner.DisplayName(), quote.Reference)
		})
	}
	return quote, nil
}

// Get returns a quote to its recipient or sender.
func (s *quoteService) Get(ctx context.Context, ac domain.AuthContext, id uuid.UUID) (*domain.QuoteRequest, error) {
	const op = "quote.get"

	quote, ownerID, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	res := quote.Resource(ownerID)
	if err := domain.Authorize(ac, res, domain.OpRead).Err(op, res); err != nil {
		return nil, err
	}
	if !ac.IsAnonymous() && ac.UserID == ownerID {
		s.markViewed(ctx, quote)
	}
	return quote, nil
}

// ListReceived returns the caller's incoming quotes.
func (s *quoteService) ListReceived(ctx context.Context, ac domain.AuthContext) ([]domain.QuoteRequest, error) {
	const op = "quote.list_received"

	if err := requireRole(op, ac, domain.RoleTradesperson); err != nil {
		return nil, err
	}
	profile, err := profileForUser(ctx, s.store, op, ac.UserID)
	if err != nil {
		return nil, err
	}
	quotes, err := s.store.ListQuotesByProfile(ctx, profile.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list quote requests")
	}
	for i := range quotes {
		s.markViewed(ctx, &quotes[i])
	}
	return quotes, nil
}

// ListSent returns the caller's outgoing quotes.
func (s *quoteService) ListSent(ctx context.Context, ac domain.AuthContext) ([]domain.QuoteRequest, error) {
	const op = "quote.list_sent"

	if ac.IsAnonymous() {
		return nil, domain.Unauthorized(op, "Authentication required")
	}
	quotes, err := s.store.ListQuotesByCustomer(ctx, ac.UserID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list quote requests")
	}
	return quotes, nil
}

// Respond records the tradesperson's answer.
func (s *quoteService) Respond(ctx context.Context, ac domain.AuthContext, id uuid.UUID, params domain.RespondQuoteParams) (*domain.QuoteRequest, error) {
	const op = "quote.respond"

	params.Response = strings.TrimSpace(params.Response)
	if err := validator.Struct(op, params); err != nil {
		return nil, err
	}
	quote, actor, err := s.forActor(ctx, op, ac, id)
	if err != nil {
		return nil, err
	}

	action := domain.QuoteActionRespond
	to, err := next(domain.QuoteMachine, op, quote.Status, action, actor)
	if err != nil {
		return nil, err
	}

	now := timeNow()
	if err := s.store.RespondToQuote(ctx, repository.RespondToQuoteParams{
		ID:           quote.ID,
		From:         quote.Status,
		Response:     params.Response,
		QuotedAmount: params.QuotedAmount,
		At:           now,
	}); err != nil {
		return nil, statusError(err, op, "quote_request", quote.Status, string(action), actor)
	}

	metrics.TransitionApplied("quote_request", string(action))
	s.logger.Info("quote responded", "quote_id", quote.ID)

	quote.Status = to
	quote.Response = params.Response
	quote.QuotedAmount = params.QuotedAmount
	quote.RespondedAt = &now
	quote.UpdatedAt = now
	return quote, nil
}

// Decide applies accept or decline.
func (s *quoteService) Decide(ctx context.Context, ac domain.AuthContext, id uuid.UUID, action domain.QuoteAction) (*domain.QuoteRequest, error) {
	const op = "quote.decide"

	if action != domain.QuoteActionAccept && action != domain.QuoteActionDecline {
		return nil, domain.NewValidationError(op, "action", "action must be one of: accept decline")
	}
	quote, actor, err := s.forActor(ctx, op, ac, id)
	if err != nil {
		return nil, err
	}

	to, err := next(domain.QuoteMachine, op, quote.Status, action, actor)
	if err != nil {
		return nil, err
	}
	now := timeNow()
	if err := s.store.UpdateQuoteStatus(ctx, domain.StatusChange[domain.QuoteStatus]{
		ID: quote.ID, From: quote.Status, To: to, At: now,
	}); err != nil {
		return nil, statusError(err, op, "quote_request", quote.Status, string(action), actor)
	}

	metrics.TransitionApplied("quote_request", string(action))
	s.logger.Info("quote decided", "quote_id", quote.ID, "action", action, "actor", actor)

	quote.Status = to
	quote.UpdatedAt = now
	return quote, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// load fetches a quote and the user id owning its recipient profile.
func (s *quoteService) load(ctx context.Context, op string, id uuid.UUID) (*domain.QuoteRequest, uuid.UUID, error) {
	quote, err := s.store.GetQuoteByID(ctx, id)
	if err != nil {
		return nil, uuid.Nil, lookupError(err, op, "quote_request", id)
	}
	profile, err := s.store.GetProfileByID(ctx, quote.ProfileID)
	if err != nil {
		return nil, uuid.Nil, lookupError(err, op, "profile", quote.ProfileID)
	}
	return quote, profile.UserID, nil
}

// forActor loads a quote and resolves the caller's role on it. Callers
// with no role on the quote get not-found.
func (s *quoteService) forActor(ctx context.Context, op string, ac domain.AuthContext, id uuid.UUID) (*domain.QuoteRequest, domain.Actor, error) {
	if ac.IsAnonymous() {
		return nil, "", domain.Unauthorized(op, "Authentication required")
	}
	quote, ownerID, err := s.load(ctx, op, id)
	if err != nil {
		return nil, "", err
	}
	actor, ok := quote.ActorFor(ac, ownerID)
	if !ok {
		return nil, "", domain.NotFound(op, "quote_request", id.String())
	}
	return quote, actor, nil
}

// markViewed applies the system view edge on the recipient's first read.
func (s *quoteService) markViewed(ctx context.Context, quote *domain.QuoteRequest) {
	to, err := domain.QuoteMachine.Next(quote.Status, domain.QuoteActionView, domain.ActorSystem)
	if err != nil {
		return
	}
	now := timeNow()
	err = s.store.UpdateQuoteStatus(ctx, domain.StatusChange[domain.QuoteStatus]{
		ID: quote.ID, From: quote.Status, To: to, At: now,
	})
	if err != nil {
		if !errors.Is(err, repository.ErrStale) {
			s.logger.Warn("failed to mark quote viewed", "quote_id", quote.ID, "error", err)
		}
		return
	}
	metrics.TransitionApplied("quote_request", string(domain.QuoteActionView))
	quote.Status = to
	quote.ViewedAt = &now
	quote.UpdatedAt = now
}
