package breaker

import (
	"github.com/ceyewan/tablegen/clog"
	"github.com/ceyewan/tablegen/metrics"
)

// Option 熔断器选项
type Option func(*options)

type options struct {
	logger    clog.Logger
	meter     metrics.Meter
	isFailure func(error) bool
}

// WithLogger 设置日志记录器，自动追加 "breaker" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("breaker")
		}
	}
}

// WithMeter 设置指标收集器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithFailurePredicate 决定哪些错误计入失败，默认所有非 nil 错误都计入
func WithFailurePredicate(fn func(error) bool) Option {
	return func(o *options) {
		if fn != nil {
			o.isFailure = fn
		}
	}
}

func applyOptions(opts []Option) *options {
	o := &options{
		logger:    clog.Discard(),
		meter:     metrics.Discard(),
		isFailure: func(err error) bool { return err != nil },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
