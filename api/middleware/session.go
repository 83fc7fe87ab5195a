package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lightbikeshop/storefront-backend/pkg/logger"
)

const (
	sessionIDHeader = "X-Session-Id"
	sessionCookie   = "lb_session"
)

// Session resolves the anonymous cart session identifier from the
// X-Session-Id header or the session cookie, minting a fresh one when
// neither is present. The identifier is echoed back on both so browser
// and API clients can hold on to their guest cart.
func Session(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(sessionIDHeader))
			if sessionID == "" {
				if cookie, err := r.Cookie(sessionCookie); err == nil {
					sessionID = strings.TrimSpace(cookie.Value)
				}
			}
			if _, err := uuid.Parse(sessionID); err != nil {
				sessionID = uuid.NewString()
			}

			w.Header().Set(sessionIDHeader, sessionID)
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    sessionID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})

			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
