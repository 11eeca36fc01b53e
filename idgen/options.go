package idgen

import (
	"database/sql"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/tablegen/breaker"
	"github.com/ceyewan/tablegen/clog"
	"github.com/ceyewan/tablegen/dialect"
	"github.com/ceyewan/tablegen/metrics"
)

// Option 生成器初始化选项
type Option func(*options)

type options struct {
	logger         clog.Logger
	meter          metrics.Meter
	tracerProvider trace.TracerProvider
	txOptions      *sql.TxOptions
	dialect        dialect.Dialect
	breaker        *breaker.Config
}

// WithLogger 设置 Logger，自动追加 "idgen" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("idgen")
		}
	}
}

// WithMeter 设置 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithTracerProvider 设置 TracerProvider，默认使用全局 Provider
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// WithTxOptions 设置刷新事务的隔离级别，默认使用驱动的默认级别
func WithTxOptions(txOptions *sql.TxOptions) Option {
	return func(o *options) {
		o.txOptions = txOptions
	}
}

// WithDialect 覆盖按驱动名称推断出的方言
func WithDialect(d dialect.Dialect) Option {
	return func(o *options) {
		o.dialect = d
	}
}

// WithBreaker 用熔断器保护段存储刷新，存储持续失败时 Generate 快速返回 ErrStoreFailure
func WithBreaker(cfg *breaker.Config) Option {
	return func(o *options) {
		o.breaker = cfg
	}
}

func applyOptions(opts []Option) *options {
	o := &options{
		logger:         clog.Discard(),
		meter:          metrics.Discard(),
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
