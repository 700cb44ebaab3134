package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dns-automate/zone-manager/internal/auth"
)

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	Max          int           // Maximum requests per window
	Window       time.Duration // Fixed window length
	Prefix       string        // Counter key prefix
	KeyGenerator func(*fiber.Ctx) string
}

// DefaultRateLimitConfig limits by client IP.
var DefaultRateLimitConfig = RateLimitConfig{
	Max:    60,
	Window: time.Hour,
	Prefix: "ratelimit",
	KeyGenerator: func(c *fiber.Ctx) string {
		return c.IP()
	},
}

// RateLimit counts requests in store and rejects those over the limit with
// 429. Store failures are logged and the request is let through.
func RateLimit(store auth.Store, config ...RateLimitConfig) fiber.Handler {
	cfg := DefaultRateLimitConfig
	if len(config) > 0 {
		cfg = config[0]
		if cfg.KeyGenerator == nil {
			cfg.KeyGenerator = DefaultRateLimitConfig.KeyGenerator
		}
	}

	return func(c *fiber.Ctx) error {
		key := cfg.Prefix + ":" + cfg.KeyGenerator(c)

		count, exceeded, err := store.IncrementRateLimit(c.UserContext(), key, cfg.Max, cfg.Window)
		if err != nil {
			LogAction(c, "rate_limit_error", err.Error(), "middleware:ratelimit")
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(max(cfg.Max-count, 0)))

		if exceeded {
			LogAction(c, "rate_limited", "too many requests for "+key, "middleware:ratelimit")
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(cfg.Window/time.Second)))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many requests",
			})
		}

		return c.Next()
	}
}

// LoginRateLimit limits login attempts per client IP.
func LoginRateLimit(store auth.Store, limit int, window time.Duration) fiber.Handler {
	return RateLimit(store, RateLimitConfig{
		Max:    limit,
		Window: window,
		Prefix: "login",
	})
}
