// Package session provides the session cookie shared by the handler and
// middleware packages.
package session

const (
	// CookieName is the name of the cookie that stores the session token.
	CookieName = "tradeslink_session"

	// CookiePath ensures the cookie is sent with all requests.
	CookiePath = "/"
)
