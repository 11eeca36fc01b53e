package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ceyewan/tablegen/clog"
	"github.com/ceyewan/tablegen/metrics"
	"github.com/ceyewan/tablegen/xerrors"
)

const (
	MetricRequestsTotal = "ratelimit_requests_total"

	LabelKey     = "key"
	LabelOutcome = "outcome"
)

type bucket struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	limit    Limit
	lastSeen time.Time
}

type standaloneLimiter struct {
	cfg      *Config
	logger   clog.Logger
	requests metrics.Counter

	buckets   sync.Map // map[string]*bucket
	stopCh    chan struct{}
	closeOnce sync.Once
}

func newStandalone(cfg *Config, o *options) (*standaloneLimiter, error) {
	requests, err := o.meter.Counter(MetricRequestsTotal, "Rate limit decisions.")
	if err != nil {
		return nil, err
	}
	l := &standaloneLimiter{
		cfg:      cfg,
		logger:   o.logger,
		requests: requests,
		stopCh:   make(chan struct{}),
	}
	go l.cleanup()
	return l, nil
}

func (l *standaloneLimiter) Allow(ctx context.Context, key string, limit Limit) (bool, error) {
	return l.AllowN(ctx, key, limit, 1)
}

func (l *standaloneLimiter) AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error) {
	switch {
	case key == "":
		return false, ErrKeyEmpty
	case !limit.Valid():
		return false, ErrInvalidLimit
	case n <= 0:
		return false, xerrors.Wrapf(xerrors.ErrInvalidInput, "ratelimit: n must be positive, got %d", n)
	}

	b := l.bucket(key, limit)
	now := time.Now()
	b.mu.Lock()
	allowed := b.limiter.AllowN(now, n)
	b.lastSeen = now
	b.mu.Unlock()

	outcome := "allowed"
	if !allowed {
		outcome = "denied"
		l.logger.DebugContext(ctx, "rate limit exceeded", clog.String("key", key), clog.Int("requested", n))
	}
	l.requests.Inc(ctx, metrics.L(LabelKey, key), metrics.L(LabelOutcome, outcome))
	return allowed, nil
}

// bucket 规则变化时原地调整速率与容量
func (l *standaloneLimiter) bucket(key string, limit Limit) *bucket {
	val, ok := l.buckets.Load(key)
	if !ok {
		val, _ = l.buckets.LoadOrStore(key, &bucket{
			limiter:  rate.NewLimiter(rate.Limit(limit.Rate), limit.Burst),
			limit:    limit,
			lastSeen: time.Now(),
		})
	}
	b := val.(*bucket)
	b.mu.Lock()
	if b.limit != limit {
		b.limiter.SetLimit(rate.Limit(limit.Rate))
		b.limiter.SetBurst(limit.Burst)
		b.limit = limit
	}
	b.mu.Unlock()
	return b
}

func (l *standaloneLimiter) cleanup() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case now := <-ticker.C:
			l.buckets.Range(func(key, val any) bool {
				b := val.(*bucket)
				b.mu.Lock()
				idle := now.Sub(b.lastSeen) > l.cfg.IdleTimeout
				b.mu.Unlock()
				if idle {
					l.buckets.Delete(key)
				}
				return true
			})
		}
	}
}

func (l *standaloneLimiter) Close() {
	l.closeOnce.Do(func() { close(l.stopCh) })
}
