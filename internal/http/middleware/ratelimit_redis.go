package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agendai/agendai-platform/pkg/logging"
)

// WebhookRateLimiter is a fixed-window limiter backed by Redis, keyed by the
// inbound sender phone so one chatty client cannot drown the webhook for
// everyone behind the same proxy IP.
type WebhookRateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	logger *logging.Logger
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// NewWebhookRateLimiter builds a limiter allowing limit requests per window per key.
func NewWebhookRateLimiter(rdb *redis.Client, limit int, window time.Duration, logger *logging.Logger) *WebhookRateLimiter {
	if limit <= 0 {
		limit = 20
	}
	if window <= 0 {
		window = time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookRateLimiter{rdb: rdb, limit: limit, window: window, logger: logger}
}

// Allow reports whether the given key is still inside its window budget.
// Redis failures fail open: dropping real messages is worse than letting a
// burst through.
func (rl *WebhookRateLimiter) Allow(ctx context.Context, key string) bool {
	if rl == nil || rl.rdb == nil {
		return true
	}
	key = "webhook_rl:" + strings.TrimSpace(key)
	res, err := fixedWindowScript.Run(ctx, rl.rdb, []string{key}, rl.window.Milliseconds()).Int64()
	if err != nil {
		rl.logger.Warn("webhook rate limiter unavailable", "error", err)
		return true
	}
	return res <= int64(rl.limit)
}

// Middleware applies the limiter to a handler using keyFn to derive the key.
func (rl *WebhookRateLimiter) Middleware(keyFn func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if key != "" && !rl.Allow(r.Context(), key) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
