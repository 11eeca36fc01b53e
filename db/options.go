package db

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/tablegen/clog"
)

// KeyGenerator 分表主键生成器，idgen 的生成器满足该接口
type KeyGenerator interface {
	Generate(ctx context.Context) (int64, error)
}

// Option 配置 DB 实例的选项
type Option func(*options)

type options struct {
	logger         clog.Logger
	tracerProvider trace.TracerProvider
	keyGenerator   KeyGenerator
	silentMode     bool
}

// WithLogger 注入日志记录器，自动追加 "db" 命名空间
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("db")
		}
	}
}

// WithTracer 注入 TracerProvider，通过 otelgorm 为每条语句创建 Span
func WithTracer(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithKeyGenerator 指定分表主键生成器
func WithKeyGenerator(gen KeyGenerator) Option {
	return func(o *options) {
		o.keyGenerator = gen
	}
}

// WithSilentMode 禁用 SQL 日志
func WithSilentMode() Option {
	return func(o *options) {
		o.silentMode = true
	}
}

func applyOptions(opts []Option) *options {
	o := &options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
