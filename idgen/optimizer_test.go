package idgen

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/tablegen/xerrors"
)

// sequenceCallback 依次返回 values 中的值，并记录调用次数
type sequenceCallback struct {
	values []int64
	calls  int
}

func (c *sequenceCallback) next(context.Context) (int64, error) {
	v := c.values[c.calls]
	c.calls++
	return v, nil
}

// counterCallback 模拟一个计数器，每次推进 step 并返回推进前的值
func counterCallback(start, step int64) (AccessCallback, *atomic.Int64) {
	var counter atomic.Int64
	counter.Store(start)
	var calls atomic.Int64
	return func(context.Context) (int64, error) {
		calls.Add(1)
		return counter.Add(step) - step, nil
	}, &calls
}

func generateN(t *testing.T, o Optimizer, cb AccessCallback, n int) []int64 {
	t.Helper()
	out := make([]int64, 0, n)
	for range n {
		v, err := o.Generate(context.Background(), cb)
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func TestNewOptimizer(t *testing.T) {
	tests := []struct {
		strategy  Strategy
		increment int64
		wantErr   bool
	}{
		{StrategyNone, 1, false},
		{StrategyNone, 0, false},
		{StrategyHiLo, 10, false},
		{StrategyHiLo, 0, true},
		{StrategyPooled, 1, false},
		{StrategyPooled, 0, true},
		{StrategyPooledLo, 5, false},
		{StrategyPooledLo, -1, true},
		{Strategy("legacy-hilo"), 5, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			o, err := NewOptimizer(tt.strategy, tt.increment)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, o.Strategy())
			assert.Equal(t, int64(-1), o.LastSourceValue())
		})
	}
}

func TestNoneOptimizer(t *testing.T) {
	o, err := NewOptimizer(StrategyNone, 1)
	require.NoError(t, err)
	assert.False(t, o.AppliesIncrementToSourceValues())
	assert.Equal(t, int64(1), o.IncrementSize())

	cb, calls := counterCallback(1, 1)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, generateN(t, o, cb, 5))
	assert.Equal(t, int64(5), calls.Load())
	assert.Equal(t, int64(5), o.LastSourceValue())
}

func TestHiLoOptimizer(t *testing.T) {
	t.Run("expands each hi value", func(t *testing.T) {
		o, err := NewOptimizer(StrategyHiLo, 3)
		require.NoError(t, err)
		assert.False(t, o.AppliesIncrementToSourceValues())

		cb := &sequenceCallback{values: []int64{1, 2}}
		assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, generateN(t, o, cb.next, 6))
		assert.Equal(t, 2, cb.calls)
		assert.Equal(t, int64(2), o.LastSourceValue())
	})

	t.Run("skips non-positive hi values", func(t *testing.T) {
		o, err := NewOptimizer(StrategyHiLo, 3)
		require.NoError(t, err)

		cb := &sequenceCallback{values: []int64{-1, 0, 1}}
		assert.Equal(t, []int64{1, 2, 3}, generateN(t, o, cb.next, 3))
		assert.Equal(t, 3, cb.calls)
	})

	t.Run("recomputes range when hi jumps", func(t *testing.T) {
		o, err := NewOptimizer(StrategyHiLo, 3)
		require.NoError(t, err)

		// 其他进程在两次刷新之间取走了 hi=2..4
		cb := &sequenceCallback{values: []int64{1, 5}}
		assert.Equal(t, []int64{1, 2, 3, 13, 14, 15}, generateN(t, o, cb.next, 6))
	})
}

func TestPooledOptimizer(t *testing.T) {
	o, err := NewOptimizer(StrategyPooled, 10)
	require.NoError(t, err)
	assert.True(t, o.AppliesIncrementToSourceValues())

	cb, calls := counterCallback(1, 10)
	ids := generateN(t, o, cb, 10)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, ids)
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, int64(11), o.LastSourceValue())

	v, err := o.Generate(context.Background(), cb)
	require.NoError(t, err)
	assert.Equal(t, int64(11), v)
	assert.Equal(t, int64(2), calls.Load())
	assert.Equal(t, int64(21), o.LastSourceValue())
}

func TestPooledLoOptimizer(t *testing.T) {
	o, err := NewOptimizer(StrategyPooledLo, 4)
	require.NoError(t, err)
	assert.True(t, o.AppliesIncrementToSourceValues())

	cb, calls := counterCallback(1, 4)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, generateN(t, o, cb, 6))
	assert.Equal(t, int64(2), calls.Load())
	assert.Equal(t, int64(5), o.LastSourceValue())
}

func TestOptimizerMisuse(t *testing.T) {
	tests := []struct {
		strategy Strategy
		values   []int64
	}{
		{StrategyNone, []int64{5, 5}},
		{StrategyHiLo, []int64{2, 1}},
		{StrategyPooled, []int64{1, 5}},
		{StrategyPooledLo, []int64{1, 5}},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			o, err := NewOptimizer(tt.strategy, 10)
			require.NoError(t, err)

			cb := &sequenceCallback{values: tt.values}
			// 用尽第一个区间，迫使第二次刷新
			for range o.IncrementSize() {
				_, err := o.Generate(context.Background(), cb.next)
				require.NoError(t, err)
				if cb.calls == 1 && tt.strategy == StrategyNone {
					break
				}
			}
			before := o.LastSourceValue()

			_, err = o.Generate(context.Background(), cb.next)
			assert.ErrorIs(t, err, ErrOptimizerMisuse)
			assert.Equal(t, before, o.LastSourceValue(), "state must not change on misuse")
		})
	}
}

func TestOptimizerCallbackErrorKeepsState(t *testing.T) {
	for _, strategy := range []Strategy{StrategyNone, StrategyHiLo, StrategyPooled, StrategyPooledLo} {
		t.Run(string(strategy), func(t *testing.T) {
			o, err := NewOptimizer(strategy, 5)
			require.NoError(t, err)

			boom := errors.New("connection reset")
			_, err = o.Generate(context.Background(), func(context.Context) (int64, error) { return 0, boom })
			assert.ErrorIs(t, err, boom)
			assert.Equal(t, int64(-1), o.LastSourceValue())

			v, err := o.Generate(context.Background(), func(context.Context) (int64, error) { return 1, nil })
			require.NoError(t, err)
			assert.Equal(t, int64(1), v)
		})
	}
}

func TestOptimizerOverflow(t *testing.T) {
	o, err := NewOptimizer(StrategyPooled, 10)
	require.NoError(t, err)
	_, err = o.Generate(context.Background(), func(context.Context) (int64, error) { return 1<<63 - 5, nil })
	assert.ErrorIs(t, err, ErrIdentifierOverflow)
	assert.Equal(t, int64(-1), o.LastSourceValue())
}

func TestOptimizerConcurrentUniqueness(t *testing.T) {
	for _, strategy := range []Strategy{StrategyNone, StrategyHiLo, StrategyPooled, StrategyPooledLo} {
		t.Run(string(strategy), func(t *testing.T) {
			o, err := NewOptimizer(strategy, 7)
			require.NoError(t, err)
			step := int64(1)
			if o.AppliesIncrementToSourceValues() {
				step = o.IncrementSize()
			}
			cb, _ := counterCallback(1, step)

			const workers, perWorker = 16, 200
			var (
				mu   sync.Mutex
				seen = make(map[int64]struct{}, workers*perWorker)
				wg   sync.WaitGroup
			)
			for range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for range perWorker {
						v, err := o.Generate(context.Background(), cb)
						if !assert.NoError(t, err) {
							return
						}
						mu.Lock()
						seen[v] = struct{}{}
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			assert.Len(t, seen, workers*perWorker)
		})
	}
}

func TestParseStrategy(t *testing.T) {
	tests := map[string]Strategy{
		"none":      StrategyNone,
		"HILO":      StrategyHiLo,
		"pooled":    StrategyPooled,
		"pool":      StrategyPooled,
		"pooled-lo": StrategyPooledLo,
		"pooled_lo": StrategyPooledLo,
		"pool-lo":   StrategyPooledLo,
	}
	for name, want := range tests {
		got, err := ParseStrategy(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseStrategy("legacy")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, CodeUnknownOptimizer, xerrors.GetCode(err))
}

func TestResolveStrategy(t *testing.T) {
	tests := []struct {
		name      string
		params    Params
		increment int64
		want      Strategy
	}{
		{name: "increment 1 defaults to none", params: Params{}, increment: 1, want: StrategyNone},
		{name: "increment 0 defaults to none", params: Params{}, increment: 0, want: StrategyNone},
		{name: "increment above 1 defaults to pooled", params: Params{}, increment: 10, want: StrategyPooled},
		{name: "prefer pooled-lo", params: Params{ParamPreferPooledLo: "true"}, increment: 10, want: StrategyPooledLo},
		{name: "prefer pooled-lo ignored for increment 1", params: Params{ParamPreferPooledLo: true}, increment: 1, want: StrategyNone},
		{name: "explicit pooled wins over increment 1", params: Params{ParamOptimizer: "pooled"}, increment: 1, want: StrategyPooled},
		{name: "explicit none wins over increment 10", params: Params{ParamOptimizer: "none"}, increment: 10, want: StrategyNone},
		{name: "explicit hilo", params: Params{ParamOptimizer: "hilo"}, increment: 10, want: StrategyHiLo},
		{name: "empty optimizer falls back", params: Params{ParamOptimizer: ""}, increment: 10, want: StrategyPooled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveStrategy(tt.params, tt.increment)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ResolveStrategy(Params{ParamPreferPooledLo: "maybe"}, 10)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
