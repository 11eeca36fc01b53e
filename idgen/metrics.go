package idgen

import (
	"context"
	"time"

	"github.com/ceyewan/tablegen/metrics"
	"github.com/ceyewan/tablegen/xerrors"
)

// 指标名称
const (
	MetricGenerated      = "idgen_generated_total"
	MetricRefill         = "idgen_refill_total"
	MetricRefillRetries  = "idgen_refill_retries_total"
	MetricRefillDuration = "idgen_refill_duration_seconds"
)

// 指标标签
const (
	LabelSegment  = "segment"
	LabelStrategy = "strategy"
	LabelOutcome  = "outcome"

	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

type instruments struct {
	generated      metrics.Counter
	refills        metrics.Counter
	retries        metrics.Counter
	refillDuration metrics.Histogram
}

func newInstruments(meter metrics.Meter) (*instruments, error) {
	generated, err := meter.Counter(MetricGenerated, "Identifiers handed out to callers")
	if err != nil {
		return nil, xerrors.Wrap(err, "create generated counter")
	}
	refills, err := meter.Counter(MetricRefill, "Segment store refills by outcome")
	if err != nil {
		return nil, xerrors.Wrap(err, "create refill counter")
	}
	retries, err := meter.Counter(MetricRefillRetries, "Compare-and-swap updates that matched no row and were retried")
	if err != nil {
		return nil, xerrors.Wrap(err, "create retries counter")
	}
	duration, err := meter.Histogram(MetricRefillDuration, "Duration of segment store refills",
		metrics.WithUnit("s"),
		metrics.WithBuckets([]float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}),
	)
	if err != nil {
		return nil, xerrors.Wrap(err, "create refill duration histogram")
	}
	return &instruments{
		generated:      generated,
		refills:        refills,
		retries:        retries,
		refillDuration: duration,
	}, nil
}

func (m *instruments) observeGenerated(ctx context.Context, segment string, strategy Strategy) {
	m.generated.Inc(ctx, metrics.L(LabelSegment, segment), metrics.L(LabelStrategy, string(strategy)))
}

func (m *instruments) observeRefill(ctx context.Context, segment string, d time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.refills.Inc(ctx, metrics.L(LabelSegment, segment), metrics.L(LabelOutcome, outcome))
	m.refillDuration.Record(ctx, d.Seconds(), metrics.L(LabelSegment, segment))
}

func (m *instruments) observeRetry(ctx context.Context, segment string) {
	m.retries.Inc(ctx, metrics.L(LabelSegment, segment))
}
