package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/qbduel/pkg/logger"
)

// SessionCookie is the name of the anonymous session cookie.
const SessionCookie = "qb_session_id"

const sessionMaxAge = 365 * 24 * time.Hour

type sessionKey struct{}

// SessionMiddleware attaches an anonymous session to every request,
// issuing a new cookie when the client has none or an unknown one.
type SessionMiddleware struct {
	deps   Dependencies
	secure bool
	logger logger.Logger
}

// NewSessionMiddleware creates the session middleware.
func NewSessionMiddleware(deps Dependencies, secure bool, log logger.Logger) *SessionMiddleware {
	return &SessionMiddleware{deps: deps, secure: secure, logger: log}
}

// Handler wraps next with session resolution.
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var current string
		if c, err := r.Cookie(SessionCookie); err == nil {
			current = c.Value
		}
		id, issued, err := m.deps.EnsureSession(r.Context(), current)
		if err != nil {
			writeEngineError(r.Context(), w, m.logger, "api.session", err)
			return
		}
		if issued {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(sessionMaxAge.Seconds()),
				Expires:  time.Now().Add(sessionMaxAge),
				HttpOnly: true,
				Secure:   m.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}

// SessionFrom returns the session attached by SessionMiddleware.
func SessionFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionKey{}).(string)
	return id, ok && id != ""
}
