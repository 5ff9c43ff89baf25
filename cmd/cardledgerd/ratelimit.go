package main

import (
	"sync"

	"golang.org/x/time/rate"
)

// perCallerLimiters holds one token-bucket limiter per caller address,
// created lazily on first use. This is the burst-smoothing layer in front of
// the coarser per-epoch quota.Store check.
type perCallerLimiters struct {
	mu       sync.Mutex
	limiters map[[20]byte]*rate.Limiter
	r        rate.Limit
	burst    int
}

func newPerCallerLimiters(r rate.Limit, burst int) *perCallerLimiters {
	return &perCallerLimiters{limiters: make(map[[20]byte]*rate.Limiter), r: r, burst: burst}
}

func (p *perCallerLimiters) allow(caller [20]byte) bool {
	p.mu.Lock()
	limiter, ok := p.limiters[caller]
	if !ok {
		limiter = rate.NewLimiter(p.r, p.burst)
		p.limiters[caller] = limiter
	}
	p.mu.Unlock()
	return limiter.Allow()
}
