// Package csrf provides CSRF protection using the double-submit cookie pattern.
//
// The token lives in a cookie readable by the client, which echoes it back in
// the X-CSRF-Token header. A cross-site attacker can make the browser send
// the cookie but cannot read it, so it cannot forge the header.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
)

const (
	// CookieName is the name of the CSRF token cookie.
	CookieName = "csrf_token"

	// HeaderName carries the echoed token on API requests.
	HeaderName = "X-CSRF-Token"

	// FormFieldName is accepted for plain form posts.
	FormFieldName = "csrf_token"

	// TokenLength is the number of random bytes in a token.
	TokenLength = 32

	// CookieMaxAge matches the longest session lifetime.
	CookieMaxAge = 30 * 24 * 60 * 60
)

// GenerateToken returns 32 random bytes, base64 URL-encoded.
func GenerateToken() (string, error) {
	b := make([]byte, TokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// MustGenerateToken generates a token or panics.
func MustGenerateToken() string {
	token, err := GenerateToken()
	if err != nil {
		panic("csrf: failed to generate token: " + err.Error())
	}
	return token
}

// ValidateToken compares two tokens in constant time.
func ValidateToken(cookieToken, requestToken string) bool {
	if cookieToken == "" || requestToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(requestToken)) == 1
}

// ValidateRequest checks the request token against the cookie. The header
// wins over the form field.
func ValidateRequest(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	token := r.Header.Get(HeaderName)
	if token == "" {
		token = r.PostFormValue(FormFieldName)
	}
	return ValidateToken(cookie.Value, token)
}

// SetCookie sets the CSRF token cookie. It is not HttpOnly so the client can
// read it back.
func SetCookie(w http.ResponseWriter, token string, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		HttpOnly: false,
		Secure:   isSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// RefreshToken issues a new token, e.g. at login.
func RefreshToken(w http.ResponseWriter, isSecure bool) string {
	token, err := GenerateToken()
	if err != nil {
		token = MustGenerateToken()
	}
	SetCookie(w, token, isSecure)
	return token
}
