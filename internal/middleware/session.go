package middleware

import (
	"errors"
	"net/http"

	"github.com/2beens/memberhub/internal/auth"
	"github.com/2beens/memberhub/pkg"

	log "github.com/sirupsen/logrus"
)

// SessionMiddleware resolves the session cookie against the session
// store and gates routes on it
type SessionMiddleware struct {
	sessions auth.Store
}

func NewSessionMiddleware(sessions auth.Store) *SessionMiddleware {
	return &SessionMiddleware{
		sessions: sessions,
	}
}

// RequireLogin redirects to /login when there is no valid session;
// otherwise the session is put on the request context
func (m *SessionMiddleware) RequireLogin() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := m.resolveSession(r)
			if !ok {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.SessionToContext(r.Context(), session)))
		})
	}
}

// RequireAdmin responds with an inline 403 when there is no valid
// session or the session lacks the admin flag. Unlike RequireLogin it
// does not redirect, the admin area is not meant to be discoverable.
func (m *SessionMiddleware) RequireAdmin() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := m.resolveSession(r)
			if !ok || !session.IsAdmin {
				log.Tracef("[admin guard] forbidden => %s [%s]", r.URL.Path, pkg.ReadUserIP(r))
				pkg.WriteResponse(w, pkg.ContentType.Text, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.SessionToContext(r.Context(), session)))
		})
	}
}

func (m *SessionMiddleware) resolveSession(r *http.Request) (*auth.Session, bool) {
	token, ok := auth.TokenFromRequest(r)
	if !ok {
		return nil, false
	}

	session, err := m.sessions.Get(r.Context(), token)
	if err != nil {
		if !errors.Is(err, auth.ErrSessionNotFound) {
			log.Errorf("[session middleware] get session: %s", err)
		}
		return nil, false
	}

	return session, true
}
