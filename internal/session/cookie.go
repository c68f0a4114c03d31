package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// Codec signs and encrypts session tokens before they are handed to the
// browser.
type Codec struct {
	sc       *securecookie.SecureCookie
	maxAge   int
	isSecure bool
}

// NewCodec builds a codec from the configured keys. A nil hash key gets a
// random one, which invalidates sessions on every restart; that is only
// acceptable in development.
func NewCodec(hashKey, blockKey []byte, maxAge time.Duration, isSecure bool) *Codec {
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
	}
	if len(blockKey) == 0 {
		blockKey = nil
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(maxAge.Seconds()))
	return &Codec{sc: sc, maxAge: int(maxAge.Seconds()), isSecure: isSecure}
}

// Encode wraps a raw session token into a cookie value.
func (c *Codec) Encode(token string) (string, error) {
	v, err := c.sc.Encode(CookieName, token)
	if err != nil {
		return "", fmt.Errorf("encode session cookie: %w", err)
	}
	return v, nil
}

// Decode unwraps a cookie value. Tampered or expired values are rejected.
func (c *Codec) Decode(value string) (string, error) {
	var token string
	if err := c.sc.Decode(CookieName, value, &token); err != nil {
		return "", fmt.Errorf("decode session cookie: %w", err)
	}
	return token, nil
}

// SetCookie writes the session cookie for a freshly issued token.
func (c *Codec) SetCookie(w http.ResponseWriter, token string) error {
	value, err := c.Encode(token)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     CookiePath,
		MaxAge:   c.maxAge,
		HttpOnly: true,
		Secure:   c.isSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie tells the browser to drop the session cookie.
func (c *Codec) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     CookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// IsSecure reports whether cookies carry the Secure flag.
func (c *Codec) IsSecure() bool {
	return c.isSecure
}
