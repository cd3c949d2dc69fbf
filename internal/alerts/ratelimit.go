package alerts

import (
	"sync"
	"time"

	"github.com/aegis-labs/aegis/internal/domain"
)

// rateLimiter enforces a per-minute and per-hour cap on alerts forwarded
// to notification channels. Each window resets the first time it is
// checked after its boundary has elapsed, rather than on a fixed clock
// tick.
type rateLimiter struct {
	config domain.RateLimitConfig

	mu          sync.Mutex
	minuteStart time.Time
	minuteCount int
	hourStart   time.Time
	hourCount   int
}

func newRateLimiter(config domain.RateLimitConfig) *rateLimiter {
	now := time.Now()
	return &rateLimiter{
		config:      config,
		minuteStart: now,
		hourStart:   now,
	}
}

// allow reports whether another alert may be forwarded this instant,
// incrementing both window counters if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	if now.Sub(r.minuteStart) >= time.Minute {
		r.minuteStart = now
		r.minuteCount = 0
	}
	if r.minuteCount >= r.config.AlertsPerMinute+r.config.BurstAllowance {
		return false
	}

	if now.Sub(r.hourStart) >= time.Hour {
		r.hourStart = now
		r.hourCount = 0
	}
	if r.hourCount >= r.config.AlertsPerHour+r.config.BurstAllowance {
		return false
	}

	r.minuteCount++
	r.hourCount++
	return true
}
