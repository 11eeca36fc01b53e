package breaker

import (
	"context"
	"sync"

	"github.com/sony/gobreaker/v2"

	"github.com/ceyewan/tablegen/clog"
	"github.com/ceyewan/tablegen/metrics"
	"github.com/ceyewan/tablegen/xerrors"
)

type circuitBreaker struct {
	cfg       *Config
	logger    clog.Logger
	isFailure func(error) bool

	requests     metrics.Counter
	stateChanges metrics.Counter

	breakers sync.Map // map[string]*gobreaker.CircuitBreaker[struct{}]
}

func newCircuitBreaker(cfg *Config, o *options) (*circuitBreaker, error) {
	requests, err := o.meter.Counter(MetricRequestsTotal, "Requests executed through the circuit breaker.")
	if err != nil {
		return nil, err
	}
	stateChanges, err := o.meter.Counter(MetricStateChanges, "Circuit breaker state transitions.")
	if err != nil {
		return nil, err
	}
	return &circuitBreaker{
		cfg:          cfg,
		logger:       o.logger,
		isFailure:    o.isFailure,
		requests:     requests,
		stateChanges: stateChanges,
	}, nil
}

func (cb *circuitBreaker) Execute(ctx context.Context, key string, fn func() error) error {
	if key == "" {
		return ErrKeyEmpty
	}

	// fn 的原始错误在 gobreaker 外部保存，避免被 IsSuccessful 判定吞掉
	var callErr error
	_, err := cb.get(key).Execute(func() (struct{}, error) {
		callErr = fn()
		return struct{}{}, callErr
	})

	switch {
	case xerrors.Is(err, gobreaker.ErrOpenState), xerrors.Is(err, gobreaker.ErrTooManyRequests):
		cb.requests.Inc(ctx, metrics.L(LabelKey, key), metrics.L(LabelResult, ResultRejected))
		cb.logger.WarnContext(ctx, "request rejected by circuit breaker", clog.String("key", key))
		return xerrors.Wrapf(ErrOpenState, "key %s", key)
	case callErr != nil && cb.isFailure(callErr):
		cb.requests.Inc(ctx, metrics.L(LabelKey, key), metrics.L(LabelResult, ResultFailure))
	default:
		cb.requests.Inc(ctx, metrics.L(LabelKey, key), metrics.L(LabelResult, ResultSuccess))
	}
	return callErr
}

func (cb *circuitBreaker) State(key string) State {
	val, ok := cb.breakers.Load(key)
	if !ok {
		return StateClosed
	}
	return fromGobreaker(val.(*gobreaker.CircuitBreaker[struct{}]).State())
}

func (cb *circuitBreaker) get(key string) *gobreaker.CircuitBreaker[struct{}] {
	if val, ok := cb.breakers.Load(key); ok {
		return val.(*gobreaker.CircuitBreaker[struct{}])
	}
	b := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:          key,
		MaxRequests:   cb.cfg.MaxRequests,
		Interval:      cb.cfg.Interval,
		Timeout:       cb.cfg.Timeout,
		ReadyToTrip:   cb.readyToTrip,
		OnStateChange: cb.onStateChange,
		IsSuccessful:  func(err error) bool { return !cb.isFailure(err) },
	})
	actual, _ := cb.breakers.LoadOrStore(key, b)
	return actual.(*gobreaker.CircuitBreaker[struct{}])
}

func (cb *circuitBreaker) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < cb.cfg.MinimumRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= cb.cfg.FailureRatio
}

func (cb *circuitBreaker) onStateChange(name string, from, to gobreaker.State) {
	cb.logger.Warn("circuit breaker state changed",
		clog.String("key", name),
		clog.String("from", fromGobreaker(from).String()),
		clog.String("to", fromGobreaker(to).String()))
	cb.stateChanges.Inc(context.Background(),
		metrics.L(LabelKey, name),
		metrics.L(LabelFromState, fromGobreaker(from).String()),
		metrics.L(LabelToState, fromGobreaker(to).String()))
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}
