package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wallcraft/storefront-backend/pkg/logger"
)

// GuestSessionCookie names the cookie that keys a guest cart in Redis.
const GuestSessionCookie = "guest_session"

// GuestSession reads the guest cart cookie. Anonymous requests without one get
// a fresh session id and cookie; authenticated requests keep whatever cookie
// they carry so the guest cart can be merged after login.
func GuestSession(ttl time.Duration, secure bool, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if cookie, err := r.Cookie(GuestSessionCookie); err == nil {
				if parsed, parseErr := uuid.Parse(strings.TrimSpace(cookie.Value)); parseErr == nil {
					sessionID = parsed.String()
				}
			}

			if sessionID == "" && UserIDFromContext(r.Context()) == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     GuestSessionCookie,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   int(ttl.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			if sessionID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithGuestSession(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithGuestSession(ctx, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
