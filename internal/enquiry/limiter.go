package enquiry

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ClientLimiter rate limits submissions per client key.
type ClientLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idle    time.Duration
	clients map[string]*client
	now     func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter allows perMinute submissions per client with the given
// burst. Clients unseen for an hour are forgotten.
func NewClientLimiter(perMinute float64, burst int) *ClientLimiter {
	return &ClientLimiter{
		limit:   rate.Limit(perMinute / 60),
		burst:   burst,
		idle:    time.Hour,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

// Allow reports whether key may submit now and spends a token if so.
func (l *ClientLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (l *ClientLimiter) prune(now time.Time) {
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > l.idle {
			delete(l.clients, key)
		}
	}
}
