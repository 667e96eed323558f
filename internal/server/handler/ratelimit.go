package handler

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// sourceLimiter rate-limits webhook ingestion per source repository so a
// single noisy repository cannot crowd out the rest. Idle limiters age
// out of the table.
type sourceLimiter struct {
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

func newSourceLimiter(requestsPerMin int) *sourceLimiter {
	burst := requestsPerMin / 10
	if burst < 1 {
		burst = 1
	}
	return &sourceLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](1000, nil, 5*time.Minute),
		rate:     rate.Limit(float64(requestsPerMin) / 60.0),
		burst:    burst,
	}
}

func (l *sourceLimiter) allow(source string) bool {
	limiter, ok := l.limiters.Get(source)
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters.Add(source, limiter)
	}
	return limiter.Allow()
}
