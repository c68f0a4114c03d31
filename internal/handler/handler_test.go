package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/tradeslink/internal/auth"
	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/repository/memstore"
	"github.com/DukeRupert/tradeslink/internal/service"
	"github.com/DukeRupert/tradeslink/internal/session"
)

// testRequireUser stands in for middleware.AuthMiddleware.RequireUser.
func testRequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			UnauthorizedResponse(w, r, testLogger())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func testRequireAdmin(next http.Handler) http.Handler {
	return testRequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()).Role != domain.RoleAdmin {
			ForbiddenResponse(w, r, testLogger())
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func passThrough(next http.Handler) http.Handler { return next }

type fixture struct {
	store   *memstore.Store
	mux     *http.ServeMux
	users   service.UserService
	cookies *session.Codec
	trade   domain.Trade
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	logger := testLogger()

	users := service.NewUserService(store, service.UserServiceConfig{}, logger)
	profiles := service.NewProfileService(store, nil, nil, logger)
	reviews := service.NewReviewService(store, nil, logger)
	moderation := service.NewModerationService(store, nil, logger)
	badPayers := service.NewBadPayerService(store, logger)
	verifications := service.NewVerificationService(store, nil, logger)
	cookies := session.NewCodec(nil, nil, time.Hour, false)

	mux := http.NewServeMux()
	NewAuthHandler(users, cookies, nil, logger).RegisterRoutes(mux, passThrough, passThrough, testRequireUser)
	NewProfileHandler(profiles, reviews, service.NewUsageService(store, logger), logger).RegisterRoutes(mux, testRequireUser)
	NewJobHandler(service.NewJobService(store, logger), service.NewApplicationService(store, nil, logger), logger).RegisterRoutes(mux, testRequireUser)
	NewQuoteHandler(service.NewQuoteService(store, nil, logger), logger).RegisterRoutes(mux, testRequireUser)
	NewReviewHandler(reviews, logger).RegisterRoutes(mux, testRequireUser)
	NewVerificationHandler(verifications, logger).RegisterRoutes(mux, testRequireUser)
	NewReportHandler(moderation, service.NewMessageService(store, logger), logger).RegisterRoutes(mux, testRequireUser)
	NewBadPayerHandler(badPayers, logger).RegisterRoutes(mux, testRequireUser)
	NewBillingHandler(service.NewBillingService(store, nil, profiles, service.BillingURLs{}, logger), logger).RegisterRoutes(mux, testRequireUser)
	NewAdminHandler(AdminServices{
		Reviews:       reviews,
		Moderation:    moderation,
		Verifications: verifications,
		BadPayers:     badPayers,
		Profiles:      profiles,
	}, logger).RegisterRoutes(mux, testRequireAdmin)
	NewHealthHandler(nil, logger).RegisterRoutes(mux)

	trade := domain.Trade{ID: uuid.New(), Name: "Plumbing", Slug: "plumbing"}
	require.NoError(t, store.CreateTrade(context.Background(), &trade))

	return &fixture{store: store, mux: mux, users: users, cookies: cookies, trade: trade}
}

func (f *fixture) user(t *testing.T, role domain.Role) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := &domain.User{
		ID:        uuid.New(),
		Email:     uuid.NewString() + "@example.com",
		Name:      string(role),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u
}

func (f *fixture) tradesperson(t *testing.T, tier domain.SubscriptionTier) (*domain.User, *domain.TradesProfile) {
	t.Helper()
	ctx := context.Background()
	u := f.user(t, domain.RoleTradesperson)
	now := time.Now().UTC()
	p := &domain.TradesProfile{
		ID:               uuid.New(),
		UserID:           u.ID,
		BusinessName:     "Ace Plumbing",
		Location:         "Leeds",
		SubscriptionTier: tier,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, f.store.CreateProfile(ctx, p))
	require.NoError(t, f.store.SetProfileTrades(ctx, p.ID, []uuid.UUID{f.trade.ID}))
	return u, p
}

func (f *fixture) job(t *testing.T, customer *domain.User) *domain.Job {
	t.Helper()
	now := time.Now().UTC()
	j := &domain.Job{
		ID:          uuid.New(),
		CustomerID:  customer.ID,
		TradeID:     f.trade.ID,
		Title:       "Replace boiler",
		Description: "Old combi boiler needs replacing before winter.",
		Location:    "Leeds",
		Timeframe:   "WITHIN_MONTH",
		Status:      domain.JobOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, f.store.CreateJob(context.Background(), j))
	return j
}

// do serves a request as user (nil for anonymous) with an optional JSON body.
func (f *fixture) do(t *testing.T, user *domain.User, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return f.serve(req, user)
}

func (f *fixture) serve(req *http.Request, user *domain.User) *httptest.ResponseRecorder {
	if user != nil {
		req = req.WithContext(auth.SetUser(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v), "body: %s", rec.Body.String())
}

const coverLetter = "I have fitted dozens of boilers like this one around Leeds."

func TestAuthHandler_RegisterLoginLogout(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, nil, http.MethodPost, "/register", map[string]string{
		"email": "sam@example.com", "password": "boiler-fitter-42", "name": "Sam", "role": "CUSTOMER",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	rec = f.do(t, nil, http.MethodPost, "/login", map[string]string{
		"email": "sam@example.com", "password": "boiler-fitter-42",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sessionCookie *http.Cookie
	var csrfSet bool
	for _, c := range rec.Result().Cookies() {
		switch c.Name {
		case session.CookieName:
			sessionCookie = c
		case "csrf_token":
			csrfSet = true
		}
	}
	require.NotNil(t, sessionCookie)
	assert.True(t, sessionCookie.HttpOnly)
	assert.True(t, csrfSet)

	token, err := f.cookies.Decode(sessionCookie.Value)
	require.NoError(t, err)
	_, err = f.users.GetBySessionToken(context.Background(), token)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(sessionCookie)
	rec = f.serve(req, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err = f.users.GetBySessionToken(context.Background(), token)
	assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
}

func TestAuthHandler_BadCredentials(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, nil, http.MethodPost, "/login", map[string]string{"email": "nobody@example.com", "password": "whatever-123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	f := newFixture(t)
	customer := f.user(t, domain.RoleCustomer)

	rec := f.do(t, customer, http.MethodPost, "/jobs", map[string]any{"title": "x", "colour": "red"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "colour")
}

func TestJobHandler_AccountPage(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, domain.RoleCustomer)
	job := f.job(t, owner)
	target := "/account/jobs/" + job.ID.String()

	t.Run("anonymous is sent to login with a callback", func(t *testing.T) {
		rec := f.do(t, nil, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login?callbackUrl="+url.QueryEscape(target), rec.Header().Get("Location"))
	})

	t.Run("another customer gets 404", func(t *testing.T) {
		rec := f.do(t, f.user(t, domain.RoleCustomer), http.MethodGet, target, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, domain.ENOTFOUND, decodeError(t, rec).Code)
	})

	t.Run("a tradesperson gets 404", func(t *testing.T) {
		u, _ := f.tradesperson(t, domain.TierFree)
		rec := f.do(t, u, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("owner sees the job", func(t *testing.T) {
		rec := f.do(t, owner, http.MethodGet, target, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got domain.Job
		decodeInto(t, rec, &got)
		assert.Equal(t, job.ID, got.ID)
	})

	t.Run("malformed id is 404", func(t *testing.T) {
		rec := f.do(t, owner, http.MethodGet, "/account/jobs/not-a-uuid", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestJobHandler_ListFiltersByTrade(t *testing.T) {
	f := newFixture(t)
	customer := f.user(t, domain.RoleCustomer)
	job := f.job(t, customer)
	tp, _ := f.tradesperson(t, domain.TierFree)

	rec := f.do(t, tp, http.MethodGet, "/jobs?trade="+f.trade.ID.String()+"&limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var jobs []domain.Job
	decodeInto(t, rec, &jobs)
	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)

	rec = f.do(t, tp, http.MethodGet, "/jobs?trade=not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, nil, http.MethodGet, "/jobs", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJobHandler_ApplyQuotaReturns402(t *testing.T) {
	f := newFixture(t)
	customer := f.user(t, domain.RoleCustomer)
	tp, _ := f.tradesperson(t, domain.TierFree)
	limit := domain.LimitsFor(domain.TierFree).MonthlyLimit(domain.UsageApplication)

	for i := 0; i < limit; i++ {
		job := f.job(t, customer)
		rec := f.do(t, tp, http.MethodPost, "/jobs/"+job.ID.String()+"/apply", map[string]any{"cover_letter": coverLetter})
		require.Equal(t, http.StatusCreated, rec.Code, "application %d: %s", i+1, rec.Body.String())
	}

	job := f.job(t, customer)
	rec := f.do(t, tp, http.MethodPost, "/jobs/"+job.ID.String()+"/apply", map[string]any{"cover_letter": coverLetter})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, domain.EQUOTA, body.Code)
	assert.Equal(t, UpgradePath, body.UpgradeURL)
	assert.Contains(t, body.Error, fmt.Sprintf("%d of %d", limit, limit))
}

func TestJobHandler_AcceptApplication(t *testing.T) {
	f := newFixture(t)
	customer := f.user(t, domain.RoleCustomer)
	job := f.job(t, customer)
	tp, _ := f.tradesperson(t, domain.TierPro)

	rec := f.do(t, tp, http.MethodPost, "/jobs/"+job.ID.String()+"/apply", map[string]any{"cover_letter": coverLetter})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var app domain.JobApplication
	decodeInto(t, rec, &app)

	rec = f.do(t, tp, http.MethodPost, "/jobs/"+job.ID.String()+"/apply", map[string]any{"cover_letter": coverLetter})
	assert.Equal(t, http.StatusConflict, rec.Code, "second application to the same job")

	appPath := "/jobs/" + job.ID.String() + "/applications/" + app.ID.String()
	rec = f.do(t, tp, http.MethodPatch, appPath, map[string]string{"action": "accept"})
	assert.Equal(t, http.StatusNotFound, rec.Code, "applicant cannot accept")

	rec = f.do(t, customer, http.MethodPatch, appPath, map[string]string{"action": "accept"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeInto(t, rec, &app)
	assert.Equal(t, domain.ApplicationAccepted, app.Status)

	got, err := f.store.GetJobByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobInProgress, got.Status)

	rec = f.do(t, customer, http.MethodPatch, appPath, map[string]string{"action": "accept"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.ETRANSITION, decodeError(t, rec).Code)
}

func TestQuoteHandler_AnonymousRequest(t *testing.T) {
	f := newFixture(t)
	_, profile := f.tradesperson(t, domain.TierFree)

	rec := f.do(t, nil, http.MethodPost, "/profiles/"+profile.ID.String()+"/quotes", map[string]string{
		"contact_name":  "Jo",
		"contact_email": "jo@example.com",
		"trade_type":    "Plumbing",
		"description":   "Leaking radiator valve in the back bedroom.",
		"timeframe":     "ASAP",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var quote domain.QuoteRequest
	decodeInto(t, rec, &quote)
	assert.Regexp(t, `^QR-[23456789A-HJ-NP-Z]{8}$`, quote.Reference)
	assert.Nil(t, quote.CustomerID)

	rec = f.do(t, nil, http.MethodGet, "/quotes/"+quote.ID.String(), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminHandler_ModerateReportCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, profile := f.tradesperson(t, domain.TierFree)
	author := f.user(t, domain.RoleCustomer)
	admin := f.user(t, domain.RoleAdmin)

	now := time.Now().UTC()
	review := &domain.Review{
		ID:            uuid.New(),
		ProfileID:     profile.ID,
		AuthorID:      author.ID,
		Status:        domain.ReviewApproved,
		OverallRating: 1,
		Title:         "Awful",
		Content:       "Turned up late, left a mess, and the leak came back the same evening.",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, f.store.CreateReview(ctx, review))

	reporter := f.user(t, domain.RoleCustomer)
	rec := f.do(t, reporter, http.MethodPost, "/reports", map[string]string{
		"target_type": "REVIEW", "target_id": review.ID.String(), "reason": "FAKE",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var report domain.Report
	decodeInto(t, rec, &report)

	target := "/admin/reports/" + report.ID.String()
	payload := map[string]string{"action": "resolve", "resolution": "Fake review", "content_action": "reject"}

	rec = f.do(t, reporter, http.MethodPatch, target, payload)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, admin, http.MethodPatch, target, payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeInto(t, rec, &report)
	assert.Equal(t, domain.ReportResolved, report.Status)

	got, err := f.store.GetReviewByID(ctx, review.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewRejected, got.Status)
}

func TestAdminHandler_ResolveWithoutTextIs400(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, domain.RoleAdmin)
	_, profile := f.tradesperson(t, domain.TierFree)
	reporter := f.user(t, domain.RoleCustomer)

	rec := f.do(t, reporter, http.MethodPost, "/reports", map[string]string{
		"target_type": "PROFILE", "target_id": profile.ID.String(), "reason": "SPAM",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var report domain.Report
	decodeInto(t, rec, &report)

	rec = f.do(t, admin, http.MethodPatch, "/admin/reports/"+report.ID.String(), map[string]string{"action": "resolve"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Fields, "resolution")
}

func TestVerificationHandler_MissingDocument(t *testing.T) {
	f := newFixture(t)
	tp, _ := f.tradesperson(t, domain.TierFree)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("type", "INSURANCE"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/verifications", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := f.serve(req, tp)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Fields, "document")
}

func TestBillingHandler_UnconfiguredProviderIs502(t *testing.T) {
	f := newFixture(t)
	tp, _ := f.tradesperson(t, domain.TierFree)

	rec := f.do(t, tp, http.MethodPost, "/billing/checkout", map[string]string{"tier": "PRO"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, domain.EEXTERNAL, decodeError(t, rec).Code)

	rec = f.do(t, nil, http.MethodPost, "/webhooks/stripe", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, nil, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return fmt.Errorf("connection refused") }

func TestHealthHandler_DatabaseDown(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(failingPinger{}, testLogger()).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
