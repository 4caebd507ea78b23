package conversation

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// userLimiters throttles inbound events per user. Idle entries are pruned
// opportunistically on access, at most once per idle interval.
type userLimiters struct {
	mu        sync.Mutex
	limiters  map[string]*userLimiter
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastPrune time.Time
	now       func() time.Time
}

func newUserLimiters(perMinute int, now func() time.Time) *userLimiters {
	return &userLimiters{
		limiters: make(map[string]*userLimiter),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		idle:     10 * time.Minute,
		now:      now,
	}
}

// Allow reports whether userID may send another event now.
func (l *userLimiters) Allow(userID string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastPrune) > l.idle {
		for id, ul := range l.limiters {
			if now.Sub(ul.lastAccess) > l.idle {
				delete(l.limiters, id)
			}
		}
		l.lastPrune = now
	}
	ul, ok := l.limiters[userID]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = ul
	}
	ul.lastAccess = now
	l.mu.Unlock()

	return ul.limiter.AllowN(now, 1)
}

func (l *userLimiters) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
