// Package auth identifies browser sessions. There are no user accounts: a
// browser session is a random id in a signed cookie, and the database
// credentials bound to it live only in server memory.
package auth

import (
	"crypto/sha256"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

// SessionName is the name of the browser session cookie.
const SessionName = "listing-explorer"

// SessionKeyID is the session value holding the browser session id.
const SessionKeyID = "sid"

// BrowserSessions issues and reads browser session ids.
type BrowserSessions struct {
	store *sessions.CookieStore
}

// NewBrowserSessions creates the cookie-based session store.
//
// The secret is used to sign session cookies. It can be any passphrase; it
// is SHA-256 hashed to derive a 32-byte key. With an empty secret a random
// key is generated, so cookies do not survive a restart.
//
// Security settings:
// - HttpOnly: true (inaccessible to JavaScript)
// - Secure: from settings
// - SameSite: Lax (the dashboard is reached by top-level navigation)
// - No Max-Age: the cookie ends with the browser session
func NewBrowserSessions(secret string, settings CookieSettings) *BrowserSessions {
	var key []byte
	if secret == "" {
		key = securecookie.GenerateRandomKey(32)
	} else {
		sum := sha256.Sum256([]byte(secret))
		key = sum[:]
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   settings.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &BrowserSessions{store: store}
}

// ID returns the browser session id from the request, issuing a new id and
// setting the cookie when there is none or it fails verification.
func (b *BrowserSessions) ID(w http.ResponseWriter, r *http.Request) (string, error) {
	// A cookie signed with another key yields an error and a fresh session.
	session, _ := b.store.Get(r, SessionName)

	if id, ok := session.Values[SessionKeyID].(string); ok && id != "" {
		return id, nil
	}

	id := uuid.NewString()
	session.Values[SessionKeyID] = id
	if err := session.Save(r, w); err != nil {
		return "", err
	}
	return id, nil
}

// Peek returns the browser session id without issuing one.
func (b *BrowserSessions) Peek(r *http.Request) (string, bool) {
	session, err := b.store.Get(r, SessionName)
	if err != nil {
		return "", false
	}
	id, ok := session.Values[SessionKeyID].(string)
	return id, ok && id != ""
}

// ErrNoSession is returned by Clear when the request carries no session.
var ErrNoSession = errors.New("no browser session")

// Clear expires the session cookie and returns the id it carried.
func (b *BrowserSessions) Clear(w http.ResponseWriter, r *http.Request) (string, error) {
	session, err := b.store.Get(r, SessionName)
	if err != nil {
		return "", ErrNoSession
	}
	id, _ := session.Values[SessionKeyID].(string)
	if id == "" {
		return "", ErrNoSession
	}

	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return "", err
	}
	return id, nil
}
