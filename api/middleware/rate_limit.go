package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wallcraft/storefront-backend/api/responses"
	pkgerrors "github.com/wallcraft/storefront-backend/pkg/errors"
	"github.com/wallcraft/storefront-backend/pkg/logger"
	pkgredis "github.com/wallcraft/storefront-backend/pkg/redis"
)

type counterStore interface {
	IncrWithTTL(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimitPolicy is a fixed window shared by two counters: one per client
// address and one per owner (signed-in user or guest session). A zero limit
// disables that counter.
type RateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int64
	ownerLimit int64
}

func NewRateLimitPolicy(name string, window time.Duration, ipLimit, ownerLimit int) RateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "default"
	}
	return RateLimitPolicy{name: name, window: window, ipLimit: int64(ipLimit), ownerLimit: int64(ownerLimit)}
}

// counter is one check a request must pass.
type counter struct {
	kind    string
	subject string
	limit   int64
}

func (p RateLimitPolicy) counters(r *http.Request) []counter {
	var out []counter
	if p.ipLimit > 0 {
		if ip := remoteIP(r); ip != "" {
			out = append(out, counter{kind: "ip", subject: ip, limit: p.ipLimit})
		}
	}
	if p.ownerLimit > 0 {
		if owner := ownerIdentity(r.Context()); owner != "" {
			sum := sha256.Sum256([]byte(owner))
			out = append(out, counter{kind: "owner", subject: hex.EncodeToString(sum[:]), limit: p.ownerLimit})
		}
	}
	return out
}

// RateLimit rejects requests over policy with 429 and a Retry-After of one
// window. The client address comes from r.RemoteAddr, so chi's RealIP must
// run earlier when behind a proxy.
func RateLimit(policy RateLimitPolicy, store counterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || policy.window <= 0 || (policy.ipLimit <= 0 && policy.ownerLimit <= 0) {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			for _, c := range policy.counters(r) {
				n, err := store.IncrWithTTL(ctx, pkgredis.RateLimitKey(policy.name, c.kind, c.subject), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limit counter"))
					return
				}
				if n <= c.limit {
					continue
				}
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"policy":   policy.name,
						"scope":    c.kind,
						"subject":  c.subject,
						"attempts": n,
						"limit":    c.limit,
					}), "rate_limit.blocked")
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ownerIdentity(ctx context.Context) string {
	if id := UserIDFromContext(ctx); id != "" {
		return "user:" + id
	}
	if id := GuestSessionFromContext(ctx); id != "" {
		return "guest:" + id
	}
	return ""
}

func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
