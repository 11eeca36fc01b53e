package connector

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/tablegen/clog"
	"github.com/ceyewan/tablegen/metrics"
)

// Option 配置连接器的选项
type Option func(*options)

type options struct {
	logger         clog.Logger
	meter          metrics.Meter
	tracerProvider trace.TracerProvider
}

// WithLogger 设置日志记录器，自动追加 "connector" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("connector")
		}
	}
}

// WithMeter 设置指标收集器，记录连接尝试次数
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithTracerProvider 为支持的客户端（Redis）安装链路追踪
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
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

// connectRecorder 记录 connector_connect_total{connector,name,outcome}
type connectRecorder struct {
	counter metrics.Counter
	kind    string
	name    string
}

func newConnectRecorder(o *options, kind, name string) *connectRecorder {
	counter, err := o.meter.Counter("connector_connect_total", "Number of connection attempts by outcome")
	if err != nil {
		o.logger.Warn("create connect counter failed", clog.Error(err))
		counter, _ = metrics.Discard().Counter("", "")
	}
	return &connectRecorder{counter: counter, kind: kind, name: name}
}

func (r *connectRecorder) record(ctx context.Context, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	r.counter.Inc(ctx,
		metrics.L("connector", r.kind),
		metrics.L("name", r.name),
		metrics.L("outcome", outcome),
	)
}
