package csrf

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)

	assert.Len(t, a, 44)
	assert.NotEqual(t, a, b)
}

func TestValidateToken(t *testing.T) {
	assert.True(t, ValidateToken("abc", "abc"))
	assert.False(t, ValidateToken("abc", "abd"))
	assert.False(t, ValidateToken("", ""))
	assert.False(t, ValidateToken("abc", ""))
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		header string
		form   string
		want   bool
	}{
		{name: "header matches", cookie: "tok", header: "tok", want: true},
		{name: "form matches", cookie: "tok", form: "tok", want: true},
		{name: "header wins over form", cookie: "tok", header: "bad", form: "tok", want: false},
		{name: "no cookie", header: "tok", want: false},
		{name: "mismatch", cookie: "tok", header: "other", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body string
			if tt.form != "" {
				body = FormFieldName + "=" + tt.form
			}
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				r.Header.Set(HeaderName, tt.header)
			}
			assert.Equal(t, tt.want, ValidateRequest(r))
		})
	}
}

func TestRefreshToken_SetsCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	token := RefreshToken(rec, true)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, token, cookies[0].Value)
	assert.False(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
}
