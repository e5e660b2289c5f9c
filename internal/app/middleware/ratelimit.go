package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/app/common"
	"github.com/FACorreiaa/go-voyage/internal/app/models"
)

// RateLimiter is a sliding-window limiter keyed by client. It throttles
// bursts only; the lifetime anonymous allowance lives in the usage ledger.
type RateLimiter struct {
	clients map[string]*clientWindow
	mu      sync.Mutex
	logger  *zap.Logger
	now     func() time.Time

	maxRequests int
	window      time.Duration
}

type clientWindow struct {
	requests []time.Time
	lastSeen time.Time
}

// NewRateLimiter creates a limiter and starts evicting idle clients until ctx
// is done. maxRequests <= 0 disables limiting.
func NewRateLimiter(ctx context.Context, maxRequests int, window time.Duration, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		clients:     make(map[string]*clientWindow),
		logger:      logger,
		now:         time.Now,
		maxRequests: maxRequests,
		window:      window,
	}
	if maxRequests > 0 && window > 0 {
		go rl.cleanup(ctx, window*2)
	}
	return rl
}

func (rl *RateLimiter) cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for id, cw := range rl.clients {
		if now.Sub(cw.lastSeen) > rl.window*2 {
			delete(rl.clients, id)
		}
	}
}

// clientID prefers the account over the address so users behind one NAT do
// not share a window.
func clientID(c *gin.Context) string {
	if id, ok := common.UserID(c); ok {
		return "user:" + id.String()
	}
	return "ip:" + common.ClientIP(c)
}

// Allow records a request for id and reports whether it fits in the window.
func (rl *RateLimiter) Allow(id string) bool {
	if rl.maxRequests <= 0 || rl.window <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cw, ok := rl.clients[id]
	if !ok {
		cw = &clientWindow{requests: make([]time.Time, 0, rl.maxRequests)}
		rl.clients[id] = cw
	}
	cw.lastSeen = now

	cutoff := now.Add(-rl.window)
	kept := cw.requests[:0]
	for _, t := range cw.requests {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	cw.requests = kept

	if len(cw.requests) >= rl.maxRequests {
		rl.logger.Warn("Rate limit exceeded",
			zap.String("client_id", id),
			zap.Int("max_requests", rl.maxRequests),
			zap.Duration("window", rl.window))
		return false
	}
	cw.requests = append(cw.requests, now)
	return true
}

// RateLimit returns a Gin middleware answering 429 when the caller exceeds
// the limiter. Place it after OptionalAuth.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(clientID(c)) {
			common.RespondError(c, rl.logger, models.ErrRateLimited)
			return
		}
		c.Next()
	}
}
