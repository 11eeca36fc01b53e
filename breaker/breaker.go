// Package breaker 基于 gobreaker 提供按 key 隔离的熔断器。
//
// idgen 用它保护段存储的刷新调用：存储持续失败时快速返回错误，
// 超时后进入半开状态放行少量探测请求。
//
//	brk, _ := breaker.New(&breaker.Config{FailureRatio: 0.5, MinimumRequests: 5}, breaker.WithLogger(logger))
//	err := brk.Execute(ctx, "hibernate_sequences", func() error {
//		return refill(ctx)
//	})
package breaker

import (
	"context"
	"time"

	"github.com/ceyewan/tablegen/xerrors"
)

// Breaker 熔断器
type Breaker interface {
	// Execute 在 key 对应的熔断器保护下执行 fn，熔断打开时返回 ErrOpenState
	Execute(ctx context.Context, key string, fn func() error) error

	// State 返回 key 的当前状态，从未执行过的 key 视为闭合
	State(key string) State
}

// State 熔断器状态
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Config 熔断器配置
//
//	breaker:
//	  max_requests: 1
//	  timeout: 30s
//	  failure_ratio: 0.6
//	  minimum_requests: 10
type Config struct {
	// MaxRequests 半开状态下允许通过的请求数，默认 1
	MaxRequests uint32 `mapstructure:"max_requests"`

	// Interval 闭合状态下清空计数的周期，0 表示不清空
	Interval time.Duration `mapstructure:"interval"`

	// Timeout 打开状态持续时间，默认 60s
	Timeout time.Duration `mapstructure:"timeout"`

	// FailureRatio 触发熔断的失败率，默认 0.6
	FailureRatio float64 `mapstructure:"failure_ratio"`

	// MinimumRequests 计算失败率所需的最少请求数，默认 10
	MinimumRequests uint32 `mapstructure:"minimum_requests"`
}

func (c *Config) setDefaults() {
	if c.MaxRequests == 0 {
		c.MaxRequests = 1
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.FailureRatio == 0 {
		c.FailureRatio = 0.6
	}
	if c.MinimumRequests == 0 {
		c.MinimumRequests = 10
	}
}

func (c *Config) validate() error {
	if c.FailureRatio < 0 || c.FailureRatio > 1 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "failure_ratio must be in [0, 1], got %v", c.FailureRatio)
	}
	if c.Timeout < 0 || c.Interval < 0 {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "timeout and interval must not be negative")
	}
	return nil
}

// New 创建熔断器，cfg 为 nil 时返回 ErrConfigNil
func New(cfg *Config, opts ...Option) (Breaker, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	c := *cfg
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return newCircuitBreaker(&c, applyOptions(opts))
}
