package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/tradeslink/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.EQUOTA, http.StatusPaymentRequired},
		{domain.EPAYMENT, http.StatusPaymentRequired},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.ETRANSITION, http.StatusConflict},
		{domain.ETOOLARGE, http.StatusRequestEntityTooLarge},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EEXTERNAL, http.StatusBadGateway},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{"something-else", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCodeToHTTPStatus(tt.code))
		})
	}
}

func TestErrorResponse_Body(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorResponse(rec, httptest.NewRequest(http.MethodGet, "/jobs/x", nil), testLogger(),
		domain.NotFound("job.get", "job", "x"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, domain.ENOTFOUND, body.Code)
	assert.NotEmpty(t, body.Error)
	assert.Empty(t, body.UpgradeURL)
}

func TestErrorResponse_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	err := domain.Internal(errors.New("pq: relation \"jobs\" does not exist"), "job.create", "failed to create job")
	ErrorResponse(rec, httptest.NewRequest(http.MethodPost, "/jobs", nil), testLogger(), err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.NotContains(t, body.Error, "relation")
	assert.NotContains(t, body.Error, "job.create")
}

func TestErrorResponse_ExternalIs502(t *testing.T) {
	rec := httptest.NewRecorder()
	err := domain.External(errors.New("stripe: card_declined"), "billing.checkout", "checkout failed")
	ErrorResponse(rec, httptest.NewRequest(http.MethodPost, "/billing/checkout", nil), testLogger(), err)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, domain.EEXTERNAL, body.Code)
	assert.NotContains(t, body.Error, "stripe")
}

func TestErrorResponse_QuotaCarriesUpgradeURL(t *testing.T) {
	rec := httptest.NewRecorder()
	err := domain.QuotaExceeded("application.apply", domain.TierFree, domain.UsageApplication, 5, 5)
	ErrorResponse(rec, httptest.NewRequest(http.MethodPost, "/jobs/x/apply", nil), testLogger(), err)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, domain.EQUOTA, body.Code)
	assert.Equal(t, UpgradePath, body.UpgradeURL)
	assert.Contains(t, body.Error, "5 of 5")
}

func TestErrorResponse_ValidationFields(t *testing.T) {
	rec := httptest.NewRecorder()
	err := domain.NewValidationError("review.create", "content", "content must be at least 50 characters")
	ErrorResponse(rec, httptest.NewRequest(http.MethodPost, "/profiles/x/reviews", nil), testLogger(), err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, domain.EINVALID, body.Code)
	assert.Equal(t, "content must be at least 50 characters", body.Error)
	assert.Equal(t, map[string]string{"content": "content must be at least 50 characters"}, body.Fields)
	assert.NotContains(t, rec.Body.String(), "review.create")
}

func TestErrorResponse_InvalidTransitionIs409(t *testing.T) {
	rec := httptest.NewRecorder()
	err := domain.InvalidTransition("job.transition", &domain.TransitionError{
		Entity: "job", From: "COMPLETED", Action: "close", Actor: "customer",
	})
	ErrorResponse(rec, httptest.NewRequest(http.MethodPatch, "/jobs/x", nil), testLogger(), err)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.ETRANSITION, decodeError(t, rec).Code)
}
