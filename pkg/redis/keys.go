package redis

import "strings"

const namespace = "sf"

// key joins namespace, kind and the non-empty parts with ":".
func key(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(namespace)
	b.WriteByte(':')
	b.WriteString(kind)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}

func GuestSessionKey(sessionID string) string { return key("guest", sessionID) }

// RateLimitKey names one fixed-window counter, e.g. policy, "ip", address.
func RateLimitKey(parts ...string) string { return key("rate_limit", parts...) }

// IdempotencyKey is a method so stores can be swapped in tests.
func (c *Client) IdempotencyKey(scope, id string) string { return key("idempotency", scope, id) }

func (c *Client) LockKey(name string) string { return key("lock", name) }
