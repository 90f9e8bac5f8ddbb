package auth

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// DefaultTTL is the session idle expiry: a session not touched for
// this long is gone.
const DefaultTTL = 30 * time.Minute

// CookieName is the session cookie; it carries only the opaque token,
// the session state itself lives server-side.
const CookieName = "memberhub_session"

var ErrSessionNotFound = errors.New("session not found")

// Session is the server-side record of an authenticated browser
type Session struct {
	UserID    int       `json:"userId"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

var _ Store = (*RedisStore)(nil)
var _ Store = (*MemStore)(nil)

type Store interface {
	Create(ctx context.Context, session Session) (token string, err error)
	// Get returns the session for the token and refreshes its idle expiry
	Get(ctx context.Context, token string) (*Session, error)
	Destroy(ctx context.Context, token string) error
}

func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:   CookieName,
		Value:  token,
		Path:   "/",
		MaxAge: int(DefaultTTL.Seconds()),
	})
}

func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

func TokenFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

type sessionContextKey struct{}

func SessionToContext(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(*Session)
	return session, ok
}
