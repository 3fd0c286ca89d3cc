package safety

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiterStore hands out one token bucket per client key. Buckets that
// stay unused for the idle window are evicted.
type RateLimiterStore struct {
	limiters     *cache.Cache
	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int
}

func NewRateLimiterStore(defaultRate rate.Limit, defaultBurst int) *RateLimiterStore {
	return NewRateLimiterStoreWithIdle(defaultRate, defaultBurst, 10*time.Minute)
}

func NewRateLimiterStoreWithIdle(defaultRate rate.Limit, defaultBurst int, idle time.Duration) *RateLimiterStore {
	return &RateLimiterStore{
		limiters:     cache.New(idle, idle),
		defaultRate:  defaultRate,
		defaultBurst: defaultBurst,
	}
}

func (s *RateLimiterStore) GetLimiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.limiters.Get(key); ok {
		limiter := v.(*rate.Limiter)
		s.limiters.SetDefault(key, limiter)
		return limiter
	}
	limiter := rate.NewLimiter(s.defaultRate, s.defaultBurst)
	s.limiters.SetDefault(key, limiter)
	return limiter
}

func (s *RateLimiterStore) SetLimiter(key string, r rate.Limit, burst int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiters.SetDefault(key, rate.NewLimiter(r, burst))
}

func (s *RateLimiterStore) Allow(key string) bool {
	return s.GetLimiter(key).Allow()
}

func (s *RateLimiterStore) Len() int {
	return s.limiters.ItemCount()
}
