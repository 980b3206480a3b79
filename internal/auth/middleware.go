package auth

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

type ctxKey string

const sessionKey ctxKey = "session"

// Authorize resolves the caller from a session cookie or, when tokens are
// enabled, a bearer token.
func (s *Store) Authorize(r *http.Request) (Session, bool) {
	if sess, ok := s.GetSession(r); ok {
		return sess, true
	}
	if s.tokens.Enabled() {
		if tok := BearerToken(r); tok != "" {
			if sess, err := s.tokens.Validate(tok); err == nil {
				return sess, true
			}
		}
	}
	return Session{}, false
}

// RequireAdmin rejects requests without a valid session or token.
func (s *Store) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, ok := s.Authorize(c.Request())
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]any{"success": false, "message": "unauthorized"})
		}
		ctx := context.WithValue(c.Request().Context(), sessionKey, sess)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionKey).(Session)
	return sess, ok
}
