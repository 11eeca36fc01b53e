// Package ratelimit 基于 golang.org/x/time/rate 的单机令牌桶限流，按 key 隔离。
//
//	limiter, _ := ratelimit.New(&ratelimit.Config{}, ratelimit.WithLogger(logger))
//	defer limiter.Close()
//	r.Use(ratelimit.GinMiddleware(limiter, func(c *gin.Context) string { return c.Param("entity") },
//		func(*gin.Context) ratelimit.Limit { return ratelimit.Limit{Rate: 100, Burst: 200} }))
package ratelimit

import (
	"context"
	"time"

	"github.com/ceyewan/tablegen/xerrors"
)

// Limit 令牌桶规则
type Limit struct {
	Rate  float64 `mapstructure:"rate"`  // 每秒生成的令牌数
	Burst int     `mapstructure:"burst"` // 桶容量
}

// Valid Rate 与 Burst 均为正时规则有效
func (l Limit) Valid() bool { return l.Rate > 0 && l.Burst > 0 }

// Limiter 限流器
type Limiter interface {
	// Allow 尝试获取 1 个令牌，不阻塞
	Allow(ctx context.Context, key string, limit Limit) (bool, error)

	// AllowN 尝试获取 n 个令牌，不阻塞
	AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error)

	// Close 停止后台清理
	Close()
}

// Config 限流器配置
type Config struct {
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"` // 默认 1m
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`     // 默认 5m
}

func (c *Config) setDefaults() {
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = time.Minute
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Minute
	}
}

var (
	ErrKeyEmpty     = xerrors.Wrap(xerrors.ErrInvalidInput, "ratelimit: key is empty")
	ErrInvalidLimit = xerrors.Wrap(xerrors.ErrInvalidInput, "ratelimit: invalid limit")
)

// New 创建单机限流器，cfg 为 nil 时使用默认配置
func New(cfg *Config, opts ...Option) (Limiter, error) {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c.setDefaults()
	return newStandalone(&c, applyOptions(opts))
}
