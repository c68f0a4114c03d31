package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/tradeslink/internal/auth"
	"github.com/DukeRupert/tradeslink/internal/domain"
	"github.com/DukeRupert/tradeslink/internal/repository/memstore"
	"github.com/DukeRupert/tradeslink/internal/service"
	"github.com/DukeRupert/tradeslink/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type authFixture struct {
	mw      *AuthMiddleware
	users   service.UserService
	cookies *session.Codec
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := service.NewUserService(memstore.New(), service.UserServiceConfig{}, testLogger())
	cookies := session.NewCodec(nil, nil, time.Hour, false)
	return &authFixture{
		mw:      NewAuthMiddleware(users, cookies, testLogger()),
		users:   users,
		cookies: cookies,
	}
}

// login registers a user and returns the encoded session cookie value.
func (f *authFixture) login(t *testing.T, role domain.Role) (*domain.User, string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.users.Register(ctx, domain.RegisterParams{
		Email:    string(role) + "@example.com",
		Password: "boiler-fitter-42",
		Name:     "Sam",
		Role:     role,
	})
	require.NoError(t, err)
	result, err := f.users.Login(ctx, string(role)+"@example.com", "boiler-fitter-42")
	require.NoError(t, err)
	value, err := f.cookies.Encode(result.Token)
	require.NoError(t, err)
	return result.User, value
}

func captureUser(got **domain.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = auth.GetUser(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestWithUser_NoCookie_ContinuesAnonymous(t *testing.T) {
	f := newAuthFixture(t)

	var got *domain.User
	called := false
	h := f.mw.WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		got = auth.GetUser(r.Context())
		assert.True(t, auth.FromRequest(r).IsAnonymous())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, called)
	assert.Nil(t, got)
}

func TestWithUser_ValidCookie_SetsUser(t *testing.T) {
	f := newAuthFixture(t)
	user, value := f.login(t, domain.RoleCustomer)

	var got *domain.User
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: value})
	f.mw.WithUser(captureUser(&got)).ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, domain.RoleCustomer, got.Role)
}

func TestWithUser_TamperedCookie_ClearsAndContinues(t *testing.T) {
	f := newAuthFixture(t)

	var got *domain.User
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "not-a-signed-value"})
	rec := httptest.NewRecorder()
	f.mw.WithUser(captureUser(&got)).ServeHTTP(rec, req)

	assert.Nil(t, got)
	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestWithUser_LoggedOutSession_IsAnonymous(t *testing.T) {
	f := newAuthFixture(t)
	_, value := f.login(t, domain.RoleCustomer)
	token, err := f.cookies.Decode(value)
	require.NoError(t, err)
	require.NoError(t, f.users.Logout(context.Background(), token))

	var got *domain.User
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: value})
	f.mw.WithUser(captureUser(&got)).ServeHTTP(httptest.NewRecorder(), req)

	assert.Nil(t, got)
}

func TestRequireUser(t *testing.T) {
	f := newAuthFixture(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("anonymous gets 401 json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.mw.RequireUser(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, domain.EUNAUTHORIZED, body["code"])
		assert.NotEmpty(t, body["error"])
	})

	t.Run("user continues", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
		req = req.WithContext(auth.SetUser(req.Context(), &domain.User{Role: domain.RoleCustomer}))
		rec := httptest.NewRecorder()
		f.mw.RequireUser(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTeapot, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	f := newAuthFixture(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	requireAdmin := f.mw.RequireRole(domain.RoleAdmin)

	tests := []struct {
		name string
		user *domain.User
		want int
	}{
		{name: "anonymous", user: nil, want: http.StatusUnauthorized},
		{name: "customer", user: &domain.User{Role: domain.RoleCustomer}, want: http.StatusForbidden},
		{name: "tradesperson", user: &domain.User{Role: domain.RoleTradesperson}, want: http.StatusForbidden},
		{name: "admin", user: &domain.User{Role: domain.RoleAdmin}, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/admin/reviews/x", nil)
			if tt.user != nil {
				req = req.WithContext(auth.SetUser(req.Context(), tt.user))
			}
			rec := httptest.NewRecorder()
			requireAdmin(next).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestStack_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Stack(mark("a"), mark("b"), mark("c"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b", "c", "handler"}, order)
}
