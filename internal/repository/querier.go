package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/tradeslink/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("repository: not found")
	// ErrUniqueViolation is returned when an insert breaks a unique constraint.
	ErrUniqueViolation = errors.New("repository: unique violation")
	// ErrStale is returned when a conditional update finds the row no longer
	// in the expected state.
	ErrStale = errors.New("repository: row changed concurrently")
)

// Querier lists every typed query the services run. Both the Postgres store
// and the in-memory store used by tests implement it.
type Querier interface {
	// Users and sessions
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateSession(ctx context.Context, s *domain.Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	DeleteSession(ctx context.Context, tokenHash string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	// Trades
	CreateTrade(ctx context.Context, t *domain.Trade) error
	GetTradeByID(ctx context.Context, id uuid.UUID) (*domain.Trade, error)
	ListTrades(ctx context.Context) ([]domain.Trade, error)
	SetProfileTrades(ctx context.Context, profileID uuid.UUID, tradeIDs []uuid.UUID) error
	ListProfileTrades(ctx context.Context, profileID uuid.UUID) ([]domain.Trade, error)

	// Profiles
	CreateProfile(ctx context.Context, p *domain.TradesProfile) error
	GetProfileByID(ctx context.Context, id uuid.UUID) (*domain.TradesProfile, error)
	GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*domain.TradesProfile, error)
	GetProfileByStripeCustomerID(ctx context.Context, customerID string) (*domain.TradesProfile, error)
	LockProfile(ctx context.Context, id uuid.UUID) error
	UpdateProfileDetails(ctx context.Context, p *domain.TradesProfile) error
	UpdateProfileSubscription(ctx context.Context, arg UpdateSubscriptionParams) error
	SetProfileActive(ctx context.Context, id uuid.UUID, active bool) error
	SetProfileVerified(ctx context.Context, id uuid.UUID, verified bool) error
	UpdateProfileRating(ctx context.Context, id uuid.UUID, average float64, count int) error

	// Portfolio
	CreatePortfolioItem(ctx context.Context, item *domain.PortfolioItem) error
	CountPortfolioItems(ctx context.Context, profileID uuid.UUID) (int, error)
	ListPortfolioItems(ctx context.Context, profileID uuid.UUID) ([]domain.PortfolioItem, error)

	// Jobs
	CreateJob(ctx context.Context, j *domain.Job) error
	GetJobByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	ListOpenJobs(ctx context.Context, tradeIDs []uuid.UUID, filter domain.JobFilter) ([]domain.Job, error)
	ListJobsByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Job, error)
	UpdateJobStatus(ctx context.Context, arg domain.StatusChange[domain.JobStatus]) error
	IncrementJobViews(ctx context.Context, id uuid.UUID) error

	// Job applications
	CreateApplication(ctx context.Context, a *domain.JobApplication) error
	GetApplicationByID(ctx context.Context, id uuid.UUID) (*domain.JobApplication, error)
	ListApplicationsByJob(ctx context.Context, jobID uuid.UUID) ([]domain.JobApplication, error)
	ListApplicationsByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.JobApplication, error)
	UpdateApplicationStatus(ctx context.Context, arg domain.StatusChange[domain.ApplicationStatus]) error
	CountApplicationsSince(ctx context.Context, profileID uuid.UUID, since time.Time) (int, error)

	// Quote requests
	CreateQuote(ctx context.Context, q *domain.QuoteRequest) error
	GetQuoteByID(ctx context.Context, id uuid.UUID) (*domain.QuoteRequest, error)
	ListQuotesByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.QuoteRequest, error)
	ListQuotesByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.QuoteRequest, error)
	UpdateQuoteStatus(ctx context.Context, arg domain.StatusChange[domain.QuoteStatus]) error
	RespondToQuote(ctx context.Context, arg RespondToQuoteParams) error
	CountQuotesSince(ctx context.Context, profileID uuid.UUID, since time.Time) (int, error)

	// Reviews
	CreateReview(ctx context.Context, r *domain.Review) error
	GetReviewByID(ctx context.Context, id uuid.UUID) (*domain.Review, error)
	GetReviewByAuthorAndProfile(ctx context.Context, authorID, profileID uuid.UUID) (*domain.Review, error)
	ListReviewsByProfile(ctx context.Context, profileID uuid.UUID, statuses ...domain.ReviewStatus) ([]domain.Review, error)
	ListReviewsByStatus(ctx context.Context, status domain.ReviewStatus, limit, offset int) ([]domain.Review, error)
	ModerateReview(ctx context.Context, arg ModerateReviewParams) error
	SetReviewResponse(ctx context.Context, id uuid.UUID, response string, at time.Time) error

	// Verifications
	CreateVerification(ctx context.Context, v *domain.Verification) error
	GetVerificationByID(ctx context.Context, id uuid.UUID) (*domain.Verification, error)
	ListVerificationsByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.Verification, error)
	ListVerificationsByStatus(ctx context.Context, status domain.VerificationStatus, limit, offset int) ([]domain.Verification, error)
	ReviewVerification(ctx context.Context, arg ReviewVerificationParams) error
	CountActiveVerifications(ctx context.Context, profileID uuid.UUID, now time.Time) (int, error)
	CountCurrentApprovedVerifications(ctx context.Context, profileID uuid.UUID, now time.Time) (int, error)

	// Reports
	CreateReport(ctx context.Context, r *domain.Report) error
	GetReportByID(ctx context.Context, id uuid.UUID) (*domain.Report, error)
	ListReports(ctx context.Context, filter domain.ReportFilter) ([]domain.Report, error)
	UpdateReportStatus(ctx context.Context, arg UpdateReportParams) error

	// Messages
	CreateMessage(ctx context.Context, m *domain.Message) error
	GetMessageByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	ListMessagesForUser(ctx context.Context, userID uuid.UUID) ([]domain.Message, error)
	DeleteMessage(ctx context.Context, id uuid.UUID, at time.Time) error

	// Bad payer reports and disputes
	CreateBadPayerReport(ctx context.Context, b *domain.BadPayerReport) error
	GetBadPayerReportByID(ctx context.Context, id uuid.UUID) (*domain.BadPayerReport, error)
	ListPublicBadPayerReports(ctx context.Context, limit, offset int) ([]domain.BadPayerReport, error)
	ListBadPayerReportsByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.BadPayerReport, error)
	UpdateBadPayerStatus(ctx context.Context, arg domain.StatusChange[domain.BadPayerStatus]) error
	CreateDispute(ctx context.Context, d *domain.Dispute) error
	GetDisputeByID(ctx context.Context, id uuid.UUID) (*domain.Dispute, error)
	ListDisputesByReport(ctx context.Context, reportID uuid.UUID) ([]domain.Dispute, error)
	ListPendingDisputes(ctx context.Context, limit, offset int) ([]domain.Dispute, error)
	ResolveDispute(ctx context.Context, arg ResolveDisputeParams) error
}

// Store is a Querier that can also run a function inside one transaction.
// If fn returns an error nothing it did through the Querier is kept.
type Store interface {
	Querier
	ExecTx(ctx context.Context, fn func(Querier) error) error
}

// UpdateSubscriptionParams sets the billing state of a profile.
type UpdateSubscriptionParams struct {
	ProfileID        uuid.UUID
	Tier             domain.SubscriptionTier
	SubscriptionID   string
	StripeCustomerID string
	At               time.Time
}

// RespondToQuoteParams records a tradesperson's response.
type RespondToQuoteParams struct {
	ID           uuid.UUID
	From         domain.QuoteStatus
	Response     string
	QuotedAmount *int64
	At           time.Time
}

// ModerateReviewParams records an admin's review decision.
type ModerateReviewParams struct {
	ID     uuid.UUID
	From   domain.ReviewStatus
	To     domain.ReviewStatus
	Reason string
	At     time.Time
}

// ReviewVerificationParams records an admin's verification decision.
type ReviewVerificationParams struct {
	ID         uuid.UUID
	From       domain.VerificationStatus
	To         domain.VerificationStatus
	ExpiresAt  *time.Time
	Notes      string
	Reason     string
	ReviewerID uuid.UUID
	At         time.Time
}

// UpdateReportParams records a moderation step on a report.
type UpdateReportParams struct {
	ID            uuid.UUID
	From          domain.ReportStatus
	To            domain.ReportStatus
	Resolution    string
	ContentAction domain.ContentAction
	HandledBy     uuid.UUID
	At            time.Time
}

// ResolveDisputeParams records an admin's ruling on a dispute.
type ResolveDisputeParams struct {
	ID         uuid.UUID
	From       domain.DisputeStatus
	To         domain.DisputeStatus
	Resolution string
	ResolvedBy uuid.UUID
	At         time.Time
}
