package server

import (
	"sync"
	"time"

	"github.com/zeusync/planetwalk/internal/core/observability/log"
)

// RateLimiter caps the number of input messages each client may send per
// window. A limit of zero disables it.
type RateLimiter struct {
	logger  log.Log
	limit   int
	window  time.Duration
	clients sync.Map // client ID -> *clientRateLimit
}

type clientRateLimit struct {
	count  int
	window time.Time
	mu     sync.Mutex
}

func NewRateLimiter(limit int, window time.Duration, logger log.Log) *RateLimiter {
	return &RateLimiter{logger: logger, limit: limit, window: window}
}

// Allow counts one message from clientID and reports whether it is within the limit.
func (m *RateLimiter) Allow(clientID string, now time.Time) bool {
	if m.limit <= 0 {
		return true
	}
	clientLimit := m.get(clientID, now)

	clientLimit.mu.Lock()
	defer clientLimit.mu.Unlock()

	if now.Sub(clientLimit.window) >= m.window {
		clientLimit.count = 0
		clientLimit.window = now
	}
	if clientLimit.count >= m.limit {
		if clientLimit.count == m.limit {
			m.logger.Warn("Rate limit exceeded",
				log.String("client_id", clientID),
				log.Int("limit", m.limit),
				log.Duration("window", m.window))
		}
		clientLimit.count++
		return false
	}
	clientLimit.count++
	return true
}

// Forget drops the state kept for clientID.
func (m *RateLimiter) Forget(clientID string) {
	m.clients.Delete(clientID)
}

func (m *RateLimiter) get(clientID string, now time.Time) *clientRateLimit {
	if limit, exists := m.clients.Load(clientID); exists {
		return limit.(*clientRateLimit)
	}
	limit, _ := m.clients.LoadOrStore(clientID, &clientRateLimit{window: now})
	return limit.(*clientRateLimit)
}
