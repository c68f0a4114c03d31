// Package memstore is an in-memory repository.Store for tests.
//
// It keeps the unique constraints and conditional updates of the Postgres
// schema so service behaviour under conflicts can be exercised without a
// database. ExecTx runs against a copy of the data that replaces the live
// copy only when fn succeeds, and holds the store lock for the duration, so
// transactions are serialized the way row locks serialize them in Postgres.
package memstore

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/repository"
)

type data struct {
	users         map[uuid.UUID]domain.User
	sessions      map[string]domain.Session
	trades        map[uuid.UUID]domain.Trade
	profileTrades map[uuid.UUID][]uuid.UUID
	profiles      map[uuid.UUID]domain.TradesProfile
	portfolio     map[uuid.UUID]domain.PortfolioItem
	jobs          map[uuid.UUID]domain.Job
	applications  map[uuid.UUID]domain.JobApplication
	quotes        map[uuid.UUID]domain.QuoteRequest
	reviews       map[uuid.UUID]domain.Review
	verifications map[uuid.UUID]domain.Verification
	reports       map[uuid.UUID]domain.Report
	messages      map[uuid.UUID]domain.Message
	badPayers     map[uuid.UUID]domain.BadPayerReport
	disputes      map[uuid.UUID]domain.Dispute
}

func newData() *data {
	return &data{
		users:         map[uuid.UUID]domain.User{},
		sessions:      map[string]domain.Session{},
		trades:        map[uuid.UUID]domain.Trade{},
		profileTrades: map[uuid.UUID][]uuid.UUID{},
		profiles:      map[uuid.UUID]domain.TradesProfile{},
		portfolio:     map[uuid.UUID]domain.PortfolioItem{},
		jobs:          map[uuid.UUID]domain.Job{},
		applications:  map[uuid.UUID]domain.JobApplication{},
		quotes:        map[uuid.UUID]domain.QuoteRequest{},
		reviews:       map[uuid.UUID]domain.Review{},
		verifications: map[uuid.UUID]domain.Verification{},
		reports:       map[uuid.UUID]domain.Report{},
		messages:      map[uuid.UUID]domain.Message{},
		badPayers:     map[uuid.UUID]domain.BadPayerReport{},
		disputes:      map[uuid.UUID]domain.Dispute{},
	}
}

// clone copies every table. Rows are values and slices are replaced rather
// than mutated, so a shallow copy per table is enough.
func (d *data) clone() *data {
	return &data{
		users:         maps.Clone(d.users),
		sessions:      maps.Clone(d.sessions),
		trades:        maps.Clone(d.trades),
		profileTrades: maps.Clone(d.profileTrades),
		profiles:      maps.Clone(d.profiles),
		portfolio:     maps.Clone(d.portfolio),
		jobs:          maps.Clone(d.jobs),
		applications:  maps.Clone(d.applications),
		quotes:        maps.Clone(d.quotes),
		reviews:       maps.Clone(d.reviews),
		verifications: maps.Clone(d.verifications),
		reports:       maps.Clone(d.reports),
		messages:      maps.Clone(d.messages),
		badPayers:     maps.Clone(d.badPayers),
		disputes:      maps.Clone(d.disputes),
	}
}

// Store is a concurrency-safe in-memory repository.Store.
type Store struct {
	*view

	mu     sync.Mutex
	db     *data
	faults map[string]error
}

// New returns an empty Store.
func New() *Store {
	s := &Store{db: newData(), faults: map[string]error{}}
	s.view = &view{store: s}
	return s
}

var _ repository.Store = (*Store)(nil)

// FailOn makes every later call of the named Querier method return err.
// A nil err clears the fault.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, method)
		return
	}
	s.faults[method] = err
}

// ExecTx runs fn against a private copy of the data and publishes the copy
// only if fn returns nil.
func (s *Store) ExecTx(ctx context.Context, fn func(repository.Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.db.clone()
	if err := fn(&view{store: s, tx: tx}); err != nil {
		return err
	}
	s.db = tx
	return nil
}

// view implements repository.Querier either against the live data, taking
// the store lock per call, or against a transaction copy whose lock is
// already held by ExecTx.
type view struct {
	store *Store
	tx    *data
}

func (v *view) begin(method string) (*data, func(), error) {
	if v.tx != nil {
		return v.tx, func() {}, v.store.faults[method]
	}
	v.store.mu.Lock()
	return v.store.db, v.store.mu.Unlock, v.store.faults[method]
}

func page[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func newestFirst(a, b time.Time) int { return b.Compare(a) }

func collect[T any](m map[uuid.UUID]T, keep func(T) bool) []T {
	var out []T
	for _, row := range m {
		if keep(row) {
			out = append(out, row)
		}
	}
	return out
}

// =============================================================================
// Users and sessions
// =============================================================================

func (v *view) CreateUser(ctx context.Context, u *domain.User) error {
	d, done, err := v.begin("CreateUser")
	defer done()
	if err != nil {
		return err
	}
	email := strings.ToLower(u.Email)
	for _, existing := range d.users {
		if existing.Email == email {
			return repository.ErrUniqueViolation
		}
	}
	row := *u
	row.Email = email
	d.users[u.ID] = row
	return nil
}

func (v *view) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	d, done, err := v.begin("GetUserByID")
	defer done()
	if err != nil {
		return nil, err
	}
	u, ok := d.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (v *view) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	d, done, err := v.begin("GetUserByEmail")
	defer done()
	if err != nil {
		return nil, err
	}
	email = strings.ToLower(email)
	for _, u := range d.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (v *view) CreateSession(ctx context.Context, s *domain.Session) error {
	d, done, err := v.begin("CreateSession")
	defer done()
	if err != nil {
		return err
	}
	if _, ok := d.sessions[s.TokenHash]; ok {
		return repository.ErrUniqueViolation
	}
	d.sessions[s.TokenHash] = *s
	return nil
}

func (v *view) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	d, done, err := v.begin("GetSessionByTokenHash")
	defer done()
	if err != nil {
		return nil, err
	}
	s, ok := d.sessions[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (v *view) DeleteSession(ctx context.Context, tokenHash string) error {
	d, done, err := v.begin("DeleteSession")
	defer done()
	if err != nil {
		return err
	}
	delete(d.sessions, tokenHash)
	return nil
}

func (v *view) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	d, done, err := v.begin("DeleteExpiredSessions")
	defer done()
	if err != nil {
		return 0, err
	}
	var n int64
	for hash, s := range d.sessions {
		if !s.ExpiresAt.After(now) {
			delete(d.sessions, hash)
			n++
		}
	}
	return n, nil
}

// =============================================================================
// Trades
// =============================================================================

func (v *view) CreateTrade(ctx context.Context, t *domain.Trade) error {
	d, done, err := v.begin("CreateTrade")
	defer done()
	if err != nil {
		return err
	}
	for _, existing := range d.trades {
		if existing.Slug == t.Slug {
			return repository.ErrUniqueViolation
		}
	}
	d.trades[t.ID] = *t
	return nil
}

func (v *view) GetTradeByID(ctx context.Context, id uuid.UUID) (*domain.Trade, error) {
	d, done, err := v.begin("GetTradeByID")
	defer done()
	if err != nil {
		return nil, err
	}
	t, ok := d.trades[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (v *view) ListTrades(ctx context.Context) ([]domain.Trade, error) {
	d, done, err := v.begin("ListTrades")
	defer done()
	if err != nil {
		return nil, err
	}
	trades := slices.Collect(maps.Values(d.trades))
	slices.SortFunc(trades, func(a, b domain.Trade) int { return cmp.Compare(a.Name, b.Name) })
	return trades, nil
}

func (v *view) SetProfileTrades(ctx context.Context, profileID uuid.UUID, tradeIDs []uuid.UUID) error {
	d, done, err := v.begin("SetProfileTrades")
	defer done()
	if err != nil {
		return err
	}
	ids := slices.Clone(tradeIDs)
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return cmp.Compare(a.String(), b.String()) })
	d.profileTrades[profileID] = slices.Compact(ids)
	return nil
}

func (v *view) ListProfileTrades(ctx context.Context, profileID uuid.UUID) ([]domain.Trade, error) {
	d, done, err := v.begin("ListProfileTrades")
	defer done()
	if err != nil {
		return nil, err
	}
	var trades []domain.Trade
	for _, id := range d.profileTrades[profileID] {
		if t, ok := d.trades[id]; ok {
			trades = append(trades, t)
		}
	}
	slices.SortFunc(trades, func(a, b domain.Trade) int { return cmp.Compare(a.Name, b.Name) })
	return trades, nil
}

// =============================================================================
// Profiles
// =============================================================================

func (v *view) CreateProfile(ctx context.Context, p *domain.TradesProfile) error {
	d, done, err := v.begin("CreateProfile")
	defer done()
	if err != nil {
		return err
	}
	for _, existing := range d.profiles {
		if existing.UserID == p.UserID {
			return repository.ErrUniqueViolation
		}
	}
	row := *p
	row.Trades = nil
	d.profiles[p.ID] = row
	return nil
}

func (v *view) findProfile(method string, match func(domain.TradesProfile) bool) (*domain.TradesProfile, error) {
	d, done, err := v.begin(method)
	defer done()
	if err != nil {
		return nil, err
	}
	for _, p := range d.profiles {
		if match(p) {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (v *view) GetProfileByID(ctx context.Context, id uuid.UUID) (*domain.TradesProfile, error) {
	return v.findProfile("GetProfileByID", func(p domain.TradesProfile) bool { return p.ID == id })
}

func (v *view) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*domain.TradesProfile, error) {
	return v.findProfile("GetProfileByUserID", func(p domain.TradesProfile) bool { return p.UserID == userID })
}

func (v *view) GetProfileByStripeCustomerID(ctx context.Context, customerID string) (*domain.TradesProfile, error) {
	return v.findProfile("GetProfileByStripeCustomerID", func(p domain.TradesProfile) bool {
		return customerID != "" && p.StripeCustomerID == customerID
	})
}

// LockProfile only checks existence; ExecTx already serializes transactions.
func (v *view) LockProfile(ctx context.Context, id uuid.UUID) error {
	d, done, err := v.begin("LockProfile")
	defer done()
	if err != nil {
		return err
	}
	if _, ok := d.profiles[id]; !ok {
		return repository.ErrNotFound
	}
	return nil
}

func (v *view) updateProfile(method string, id uuid.UUID, fn func(*domain.TradesProfile)) error {
	d, done, err := v.begin(method)
	defer done()
	if err != nil {
		return err
	}
	p, ok := d.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&p)
	d.profiles[id] = p
	return nil
}

func (v *view) UpdateProfileDetails(ctx context.Context, p *domain.TradesProfile) error {
	return v.updateProfile("UpdateProfileDetails", p.ID, func(row *domain.TradesProfile) {
		row.BusinessName = p.BusinessName
		row.Bio = p.Bio
		row.Location = p.Location
		row.CoverageRadius = p.CoverageRadius
		row.UpdatedAt = p.UpdatedAt
	})
}

func (v *view) UpdateProfileSubscription(ctx context.Context, arg repository.UpdateSubscriptionParams) error {
	return v.updateProfile("UpdateProfileSubscription", arg.ProfileID, func(row *domain.TradesProfile) {
		row.SubscriptionTier = arg.Tier
		row.SubscriptionID = arg.SubscriptionID
		if arg.StripeCustomerID != "" {
			row.StripeCustomerID = arg.StripeCustomerID
		}
		row.UpdatedAt = arg.At
	})
}

func (v *view) SetProfileActive(ctx context.Context, id uuid.UUID, active bool) error {
	return v.updateProfile("SetProfileActive", id, func(row *domain.TradesProfile) {
		row.IsActive = active
		row.UpdatedAt = time.Now().UTC()
	})
}

func (v *view) SetProfileVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	return v.updateProfile("SetProfileVerified", id, func(row *domain.TradesProfile) {
		row.IsVerified = verified
		row.UpdatedAt = time.Now().UTC()
	})
}

func (v *view) UpdateProfileRating(ctx context.Context, id uuid.UUID, average float64, count int) error {
	return v.updateProfile("UpdateProfileRating", id, func(row *domain.TradesProfile) {
		row.AverageRating = average
		row.ReviewCount = count
	})
}

// =============================================================================
// Portfolio
// =============================================================================

func (v *view) CreatePortfolioItem(ctx context.Context, item *domain.PortfolioItem) error {
	d, done, err := v.begin("CreatePortfolioItem")
	defer done()
	if err != nil {
		return err
	}
	row := *item
	row.ImageURL, row.ThumbnailURL = "", ""
	d.portfolio[item.ID] = row
	return nil
}

func (v *view) CountPortfolioItems(ctx context.Context, profileID uuid.UUID) (int, error) {
	d, done, err := v.begin("CountPortfolioItems")
	defer done()
	if err != nil {
		return 0, err
	}
	return len(collect(d.portfolio, func(i domain.PortfolioItem) bool { return i.ProfileID == profileID })), nil
}

func (v *view) ListPortfolioItems(ctx context.Context, profileID uuid.UUID) ([]domain.PortfolioItem, error) {
	d, done, err := v.begin("ListPortfolioItems")
	defer done()
	if err != nil {
		return nil, err
	}
	items := collect(d.portfolio, func(i domain.PortfolioItem) bool { return i.ProfileID == profileID })
	slices.SortFunc(items, func(a, b domain.PortfolioItem) int { return newestFirst(a.CreatedAt, b.CreatedAt) })
	return items, nil
}

// =============================================================================
// Jobs
// =============================================================================

func (v *view) CreateJob(ctx context.Context, j *domain.Job) error {
	d, done, err := v.begin("CreateJob")
	defer done()
	if err != nil {
		return err
	}
	d.jobs[j.ID] = *j
	return nil
}

func (v *view) GetJobByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	d, done, err := v.begin("GetJobByID")
	defer done()
	if err != nil {
		return nil, err
	}
	j, ok := d.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &j, nil
}

func (v *view) ListOpenJobs(ctx context.Context, tradeIDs []uuid.UUID, filter domain.JobFilter) ([]domain.Job, error) {
	d, done, err := v.begin("ListOpenJobs")
	defer done()
	if err != nil {
		return nil, err
	}
	filter.Normalize()
	now := time.Now().UTC()
	jobs := collect(d.jobs, func(j domain.Job) bool {
		switch {
		case j.Status != domain.JobOpen || j.IsLapsed(now):
			return false
		case !slices.Contains(tradeIDs, j.TradeID):
			return false
		case filter.TradeID != nil && j.TradeID != *filter.TradeID:
			return false
		case filter.Location != "" && !strings.Contains(strings.ToLower(j.Location), strings.ToLower(filter.Location)):
			return false
		case filter.MinBudget != nil && (j.BudgetMax == nil || *j.BudgetMax < *filter.MinBudget):
			return false
		}
		return true
	})
	slices.SortFunc(jobs, func(a, b domain.Job) int { return newestFirst(a.CreatedAt, b.CreatedAt) })
	return page(jobs, filter.Limit, filter.Offset), nil
}

func (v *view) ListJobsByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Job, error) {
	d, done, err := v.begin("ListJobsByCustomer")
	defer done()
	if err != nil {
		return nil, err
	}
	jobs := collect(d.jobs, func(j domain.Job) bool { return j.CustomerID == customerID })
	slices.SortFunc(jobs, func(a, b domain.Job) int { return newestFirst(a.CreatedAt, b.CreatedAt) })
	return jobs, nil
}

func (v *view) UpdateJobStatus(ctx context.Context, arg domain.StatusChange[domain.JobStatus]) error {
	d, done, err := v.begin("UpdateJobStatus")
	defer done()
	if err != nil {
		return err
	}
	j, ok := d.jobs[arg.ID]
	if !ok || j.Status != arg.From {
		return repository.ErrStale
	}
	j.Status = arg.To
	j.UpdatedAt = arg.At
	d.jobs[arg.ID] = j
	return nil
}

func (v *view) IncrementJobViews(ctx context.Context, id uuid.UUID) error {
	d, done, err := v.begin("IncrementJobViews")
	defer done()
	if err != nil {
		return err
	}
	if j, ok := d.jobs[id]; ok {
		j.ViewCount++
		d.jobs[id] = j
	}
	return nil
}

// =============================================================================
// Job applications
// =============================================================================

func (v *view) CreateApplication(ctx context.Context, a *domain.JobApplication) error {
	d, done, err := v.begin("CreateApplication")
	defer done()
	if err != nil {
		return err
	}
	for _, existing := range d.applications {
		if existing.JobID == a.JobID && existing.ProfileID == a.ProfileID {
			return repository.ErrUniqueViolation
		}
	}
	d.applications[a.ID] = *a
	return nil
}

func (v *view) GetApplicationByID(ctx context.Context, id uuid.UUID) (*domain.JobApplication, error) {
	d, done, err := v.begin("GetApplicationByID")
	defer done()
	if err != nil {
		return nil, err
	}
	a, ok := d.applications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (v *view) ListApplicationsByJob(ctx context.Context, jobID uuid.UUID) ([]domain.JobApplication, error) {
	d, done, err := v.begin("ListApplicationsByJob")
	defer done()
	if err != nil {
		return nil, err
	}
	apps := collect(d.applications, func(a domain.JobApplication) bool { return a.JobID == jobID })
	slices.SortFunc(apps, func(a, b domain.JobApplication) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return apps, nil
}

func (v *view) ListApplicationsByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.JobApplication, error) {
	d, done, err := v.begin("ListApplicationsByProfile")
	defer done()
	if err != nil {
		return nil, err
	}
	apps := collect(d.applications, func(a domain.JobApplication) bool { return a.ProfileID == profileID })
	slices.SortFunc(apps, func(a, b domain.JobApplication) int { return newestFirst(a.CreatedAt, b.CreatedAt) })
	return apps, nil
}

func (v *view) UpdateApplicationStatus(ctx context.Context, arg domain.StatusChange[domain.ApplicationStatus]) error {
	d, done, err := v.begin("UpdateApplicationStatus")
	defer done()
	if err != nil {
		return err
	}
	a, ok := d.applications[arg.ID]
	if !ok || a.Status != arg.From {
		return repository.ErrStale
	}
	a.Status = arg.To
	a.UpdatedAt = arg.At
	if arg.To == domain.ApplicationViewed {
		at := arg.At
		a.ViewedAt = &at
	}
	d.applications[arg.ID] = a
	return nil
}

func (v *view) CountApplicationsSince(ctx context.Context, profileID uuid.UUID, since time.Time) (int, error) {
	d, done, err := v.begin("CountApplicationsSince")
	defer done()
	if err != nil {
		return 0, err
	}
	return len(collect(d.applications, func(a domain.JobApplication) bool {
		return a.ProfileID == profileID && !a.CreatedAt.Before(since)
	})), nil
}

// =============================================================================
// Quote requests
// =============================================================================

func (v *view) CreateQuote(ctx context.Context, q *domain.QuoteRequest) error {
	d, done, err := v.begin("CreateQuote")
	defer done()
	if err != nil {
		return err
	}
	for _, existing := range d.quotes {
		if existing.Reference == q.Reference {
			return repository.ErrUniqueViolation
		}
	}
	d.quotes[q.ID] = *q
	return nil
}

func (v *view) GetQuoteByID(ctx context.Context, id uuid.UUID) (*domain.QuoteRequest, error) {
	d, done, err := v.begin("GetQuoteByID")
	defer done()
	if err != nil {
		return nil, err
	}
	q, ok := d.quotes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (v *view) ListQuotesByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.QuoteRequest, error) {
	d, done, err := v.begin("ListQuotesByProfile")
	defer done()
	if err != nil {
		return nil, err
	}
	quotes := collect(d.quotes, func(q domain.QuoteRequest) bool { return q.ProfileID == profileID })
	slices.SortFunc(quotes, func(a, b domain.QuoteRequest) int { return newestFirst(a.CreatedAt, b.CreatedAt) })
	return quotes, nil
}

func (v *view) ListQuotesByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.QuoteRequest, error) {
	d, done, err := v.begin("ListQuotesByCustomer")
	defer done()
	if err != nil {
		return nil, err
	}
	quotes := collect(d.quotes, func(q domain.QuoteRequest) bool {
		return q.CustomerID != nil && *q.CustomerID == customerID
	})
	slices.SortFunc(quotes, func(a, b domain.QuoteRequest) int { return newestFirst(a.CreatedAt, b.CreatedAt) })
	return quotes, nil
}

func (v *view) UpdateQuoteStatus(ctx context.Context, arg domain.StatusChange[domain.QuoteStatus]) error {
	d, done, err := v.begin("UpdateQuoteStatus")
	defer done()
	if err != nil {
		return err
	}
	q, ok := d.quotes[arg.ID]
	if !ok || q.Status != arg.From {
		return repository.ErrStale
	}
	q.Status = arg.To
	q.UpdatedAt = arg.At
	if arg.To == domain.QuoteViewed {
		at := arg.At
		q.ViewedAt = &at
	}
	d.quotes[arg.ID] = q
	return nil
}

func (v *view) RespondToQuote(ctx context.Context, arg repository.RespondToQuoteParams) error {
	d, done, err := v.begin("RespondToQuote")
	defer done()
	if err != nil {
		return err
	}
	q, ok := d.quotes[arg.ID]
	if !ok || q.Status != arg.From {
		return repository.ErrStale
	}
	at := arg.At
	q.Status = domain.QuoteResponded
	q.Response = arg.Response
	q.QuotedAmount = arg.QuotedAmount
	q.RespondedAt = &at
	q.UpdatedAt = at
	d.quotes[arg.ID] = q
	return nil
}

func (v *view) CountQuotesSince(ctx context.Context, profileID uuid.UUID, since time.Time) (int, error) {
	d, done, err := v.begin("CountQuotesSince")
	defer done()
	if err != nil {
		return 0, err
	}
	return len(collect(d.quotes, func(q domain.QuoteRequest) bool {
		return q.ProfileID == profileID && !q.CreatedAt.Before(since)
	})), nil
}

// =============================================================================
// Reviews
// =============================================================================

func (v *view) CreateReview(ctx context.Context, r *domain.Review) error {
	d, done, err := v.begin("CreateReview")
	defer done()
	if err != nil {
		return err
	}
	for _, existing := range d.reviews {
		if existing.AuthorID == r.AuthorID && existing.ProfileID == r.ProfileID {
			return repository.ErrUniqueViolation
		}
	}
	d.reviews[r.ID] = *r
	return nil
}

func (v *view) GetReviewByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	d, done, err := v.begin("GetReviewByID")
	defer done()
	if err != nil {
		return nil, err
	}
	r, ok := d.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (v *view) GetReviewByAuthorAndProfile(ctx context.Context, authorID, profileID uuid.UUID) (*domain.Review, error) {
	d, done, err := v.begin("GetReviewByAuthorAndProfile")
	defer done()
	if err != nil {
		return nil, err
	}
	for _, r := range d.reviews {
		if r.AuthorID == authorID && r.ProfileID == profileID {
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (v *view) ListReviewsByProfile(ctx context.Context, profileID uuid.UUID, statuses ...domain.ReviewStatus) ([]domain.Review, error) {
	d, done, err := v.begin("ListReviewsByProfile")
	defer done()
	if err != nil {
		return nil, err
	}
	reviews := collect(d.reviews, func(r domain.Review) bool {
		return r.ProfileID == profileID && (len(statuses) == 0 || slices.Contains(statuses, r.Status))
	})
	slices.SortFunc(reviews, func(a, b domain.Review) int { return newestFirst(a.CreatedAt, b.CreatedAt) })
	return reviews, nil
}

func (v *view) ListReviewsByStatus(ctx context.Context, status domain.ReviewStatus, limit, offset int) ([]domain.Review, error) {
	d, done, err := v.begin("ListReviewsByStatus")
	defer done()
	if err != nil {
		return nil, err
	}
	reviews := collect(d.reviews, func(r domain.Review) bool { return r.Status == status })
	slices.SortFunc(reviews, func(a, b domain.Review) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return page(reviews, limit, offset), nil
}

func (v *view) ModerateReview(ctx context.Context, arg repository.ModerateReviewParams) error {
	d, done, err := v.begin("ModerateReview")
	defer done()
	if err != nil {
		return err
	}
	r, ok := d.reviews[arg.ID]
	if !ok || r.Status != arg.From {
		return repository.ErrStale
	}
	at := arg.At
	r.Status = arg.To
	r.RejectionReason = arg.Reason
	r.ModeratedAt = &at
	r.UpdatedAt = at
	d.reviews[arg.ID] = r
	return nil
}

func (v *view) SetReviewResponse(ctx context.Context, id uuid.UUID, response string, at time.Time) error {
	d, done, err := v.begin("SetReviewResponse")
	defer done()
	if err != nil {
		return err
	}
	r, ok := d.reviews[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.Response = response
	r.RespondedAt = &at
	r.UpdatedAt = at
	d.reviews[id] = r
	return nil
}

// =============================================================================
// Verifications
// =============================================================================

func (v *view) CreateVerification(ctx context.Context, ver *domain.Verification) error {
	d, done, err := v.begin("CreateVerification")
	defer done()
	if err != nil {
		return err
	}
	d.verifications[ver.ID] = *ver
	return nil
}

func (v *view) GetVerificationByID(ctx context.Context, id uuid.UUID) (*domain.Verification, error) {
	d, done, err := v.begin("GetVerificationByID")
	defer done()
	if err != nil {
		return nil, err
	}
	ver, ok := d.verifications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &ver, nil
}

func (v *view) ListVerificationsByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.Verification, error) {
	d, done, err := v.begin("ListVerificationsByProfile")
	defer done()
	if err != nil {
		return nil, err
	}
	vs := collect(d.verifications, func(ver domain.Verification) bool { return ver.ProfileID == profileID })
	slices.SortFunc(vs, func(a, b domain.Verification) int { return newestFirst(a.CreatedAt, b.CreatedAt) })
	return vs, nil
}

func (v *view) ListVerificationsByStatus(ctx context.Context, status domain.VerificationStatus, limit, offset int) ([]domain.Verification, error) {
	d, done, err := v.begin("ListVerificationsByStatus")
	defer done()
	if err != nil {
		return nil, err
	}
	vs := collect(d.verifications, func(ver domain.Verification) bool { return ver.Status == status })
	slices.SortFunc(vs, func(a, b domain.Verification) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return page(vs, limit, offset), nil
}

func (v *view) ReviewVerification(ctx context.Context, arg repository.ReviewVerificationParams) error {
	d, done, err := v.begin("ReviewVerification")
	defer done()
	if err != nil {
		return err
	}
	ver, ok := d.verifications[arg.ID]
	if !ok || ver.Status != arg.From {
		return repository.ErrStale
	}
	at, reviewer := arg.At, arg.ReviewerID
	ver.Status = arg.To
	ver.ExpiresAt = arg.ExpiresAt
	ver.Notes = arg.Notes
	ver.RejectionReason = arg.Reason
	ver.ReviewedBy = &reviewer
	ver.ReviewedAt = &at
	d.verifications[arg.ID] = ver
	return nil
}

func (v *view) CountActiveVerifications(ctx context.Context, profileID uuid.UUID, now time.Time) (int, error) {
	d, done, err := v.begin("CountActiveVerifications")
	defer done()
	if err != nil {
		return 0, err
	}
	return len(collect(d.verifications, func(ver domain.Verification) bool {
		return ver.ProfileID == profileID && (ver.Status == domain.VerificationPending || ver.IsCurrent(now))
	})), nil
}

func (v *view) CountCurrentApprovedVerifications(ctx context.Context, profileID uuid.UUID, now time.Time) (int, error) {
	d, done, err := v.begin("CountCurrentApprovedVerifications")
	defer done()
	if err != nil {
		return 0, err
	}
	return len(collect(d.verifications, func(ver domain.Verification) bool {
		return ver.ProfileID == profileID && ver.IsCurrent(now)
	})), nil
}

// =============================================================================
// Reports
// =============================================================================

func (v *view) CreateReport(ctx context.Context, r *domain.Report) error {
	d, done, err := v.begin("CreateReport")
	defer done()
	if err != nil {
		return err
	}
	d.reports[r.ID] = *r
	return nil
}

func (v *view) GetReportByID(ctx context.Context, id uuid.UUID) (*domain.Report, error) {
	d, done, err := v.begin("GetReportByID")
	defer done()
	if err != nil {
		return nil, err
	}
	r, ok := d.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (v *view) ListReports(ctx context.Context, filter domain.ReportFilter) ([]domain.Report, error) {
	d, done, err := v.begin("ListReports")
	defer done()
	if err != nil {
		return nil, err
	}
	reports := collect(d.reports, func(r domain.Report) bool {
		return filter.Status == "" || r.Status == filter.Status
	})
	slices.SortFunc(reports, func(a, b domain.Report) int { return a.CreatedAt.Compare(b.CreatedAt) })
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return page(reports, limit, max(filter.Offset, 0)), nil
}

func (v *view) UpdateReportStatus(ctx context.Context, arg repository.UpdateReportParams) error {
	d, done, err := v.begin("UpdateReportStatus")
	defer done()
	if err != nil {
		return err
	}
	r, ok := d.reports[arg.ID]
	if !ok || r.Status != arg.From {
		return repository.ErrStale
	}
	at, by := arg.At, arg.HandledBy
	r.Status = arg.To
	r.Resolution = arg.Resolution
	r.ContentAction = arg.ContentAction
	r.HandledBy = &by
	r.HandledAt = &at
	r.UpdatedAt = at
	d.reports[arg.ID] = r
	return nil
}

// =============================================================================
// Messages
// =============================================================================

func (v *view) CreateMessage(ctx context.Context, m *domain.Message) error {
	d, done, err := v.begin("CreateMessage")
	defer done()
	if err != nil {
		return err
	}
	d.messages[m.ID] = *m
	return nil
}

func (v *view) GetMessageByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	d, done, err := v.begin("GetMessageByID")
	defer done()
	if err != nil {
		return nil, err
	}
	m, ok := d.messages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (v *view) ListMessagesForUser(ctx context.Context, userID uuid.UUID) ([]domain.Message, error) {
	d, done, err := v.begin("ListMessagesForUser")
	defer done()
	if err != nil {
		return nil, err
	}
	msgs := collect(d.messages, func(m domain.Message) bool {
		return !m.IsDeleted() && (m.SenderID == userID || m.RecipientID == userID)
	})
	slices.SortFunc(msgs, func(a, b domain.Message) int { return newestFirst(a.CreatedAt, b.CreatedAt) })
	return msgs, nil
}

func (v *view) DeleteMessage(ctx context.Context, id uuid.UUID, at time.Time) error {
	d, done, err := v.begin("DeleteMessage")
	defer done()
	if err != nil {
		return err
	}
	m, ok := d.messages[id]
	if !ok || m.IsDeleted() {
		return nil
	}
	m.DeletedAt = &at
	d.messages[id] = m
	return nil
}

// =============================================================================
// Bad payer reports and disputes
// =============================================================================

func (v *view) CreateBadPayerReport(ctx context.Context, b *domain.BadPayerReport) error {
	d, done, err := v.begin("CreateBadPayerReport")
	defer done()
	if err != nil {
		return err
	}
	for _, existing := range d.badPayers {
		if existing.Reference == b.Reference {
			return repository.ErrUniqueViolation
		}
	}
	d.badPayers[b.ID] = *b
	return nil
}

func (v *view) GetBadPayerReportByID(ctx context.Context, id uuid.UUID) (*domain.BadPayerReport, error) {
	d, done, err := v.begin("GetBadPayerReportByID")
	defer done()
	if err != nil {
		return nil, err
	}
	b, ok := d.badPayers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (v *view) ListPublicBadPayerReports(ctx context.Context, limit, offset int) ([]domain.BadPayerReport, error) {
	d, done, err := v.begin("ListPublicBadPayerReports")
	defer done()
	if err != nil {
		return nil, err
	}
	reports := collect(d.badPayers, func(b domain.BadPayerReport) bool { return b.IsPublic })
	slices.SortFunc(reports, func(a, b domain.BadPayerReport) int {
		return newestFirst(*a.PublishedAt, *b.PublishedAt)
	})
	return page(reports, limit, offset), nil
}

func (v *view) ListBadPayerReportsByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.BadPayerReport, error) {
	d, done, err := v.begin("ListBadPayerReportsByProfile")
	defer done()
	if err != nil {
		return nil, err
	}
	reports := collect(d.badPayers, func(b domain.BadPayerReport) bool { return b.ReporterProfileID == profileID })
	slices.SortFunc(reports, func(a, b domain.BadPayerReport) int { return newestFirst(a.CreatedAt, b.CreatedAt) })
	return reports, nil
}

func (v *view) UpdateBadPayerStatus(ctx context.Context, arg domain.StatusChange[domain.BadPayerStatus]) error {
	d, done, err := v.begin("UpdateBadPayerStatus")
	defer done()
	if err != nil {
		return err
	}
	b, ok := d.badPayers[arg.ID]
	if !ok || b.Status != arg.From {
		return repository.ErrStale
	}
	b.Status = arg.To
	b.IsPublic = arg.To.IsPublic()
	b.UpdatedAt = arg.At
	if arg.To == domain.BadPayerPublished && b.PublishedAt == nil {
		at := arg.At
		b.PublishedAt = &at
	}
	d.badPayers[arg.ID] = b
	return nil
}

func (v *view) CreateDispute(ctx context.Context, dsp *domain.Dispute) error {
	d, done, err := v.begin("CreateDispute")
	defer done()
	if err != nil {
		return err
	}
	d.disputes[dsp.ID] = *dsp
	return nil
}

func (v *view) GetDisputeByID(ctx context.Context, id uuid.UUID) (*domain.Dispute, error) {
	d, done, err := v.begin("GetDisputeByID")
	defer done()
	if err != nil {
		return nil, err
	}
	dsp, ok := d.disputes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &dsp, nil
}

func (v *view) ListDisputesByReport(ctx context.Context, reportID uuid.UUID) ([]domain.Dispute, error) {
	d, done, err := v.begin("ListDisputesByReport")
	defer done()
	if err != nil {
		return nil, err
	}
	ds := collect(d.disputes, func(dsp domain.Dispute) bool { return dsp.ReportID == reportID })
	slices.SortFunc(ds, func(a, b domain.Dispute) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return ds, nil
}

func (v *view) ListPendingDisputes(ctx context.Context, limit, offset int) ([]domain.Dispute, error) {
	d, done, err := v.begin("ListPendingDisputes")
	defer done()
	if err != nil {
		return nil, err
	}
	ds := collect(d.disputes, func(dsp domain.Dispute) bool { return dsp.Status == domain.DisputePending })
	slices.SortFunc(ds, func(a, b domain.Dispute) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return page(ds, limit, offset), nil
}

func (v *view) ResolveDispute(ctx context.Context, arg repository.ResolveDisputeParams) error {
	d, done, err := v.begin("ResolveDispute")
	defer done()
	if err != nil {
		return err
	}
	dsp, ok := d.disputes[arg.ID]
	if !ok || dsp.Status != arg.From {
		return repository.ErrStale
	}
	at, by := arg.At, arg.ResolvedBy
	dsp.Status = arg.To
	dsp.Resolution = arg.Resolution
	dsp.ResolvedBy = &by
	dsp.ResolvedAt = &at
	d.disputes[arg.ID] = dsp
	return nil
}
