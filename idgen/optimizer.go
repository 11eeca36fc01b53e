package idgen

import (
	"context"
	"math"
	"sync"

	"github.com/ceyewan/tablegen/xerrors"
)

// AccessCallback 访问段存储，返回本次刷新得到的原始值
type AccessCallback func(ctx context.Context) (int64, error)

// Optimizer 决定多少次逻辑请求对应一次存储访问，以及返回给调用方的值
//
// 每个实现用自己的互斥锁保护"检查缓存并刷新"，同一实例同时最多一次刷新。
// 回调失败时内部状态保持不变。
type Optimizer interface {
	Generate(ctx context.Context, next AccessCallback) (int64, error)

	// AppliesIncrementToSourceValues 为 true 时每次刷新把存储计数器推进 IncrementSize，否则推进 1
	AppliesIncrementToSourceValues() bool

	IncrementSize() int64

	// LastSourceValue 最近一次刷新得到的源值，刷新前为 -1
	LastSourceValue() int64

	Strategy() Strategy
}

// NewOptimizer 按策略创建优化器
func NewOptimizer(strategy Strategy, incrementSize int64) (Optimizer, error) {
	if strategy != StrategyNone && incrementSize < 1 {
		return nil, configError(CodeInvalidParam, "optimizer %s requires increment_size >= 1, got %d", strategy, incrementSize)
	}
	switch strategy {
	case StrategyNone:
		return &noneOptimizer{}, nil
	case StrategyHiLo:
		return &hiloOptimizer{increment: incrementSize}, nil
	case StrategyPooled:
		return &pooledOptimizer{increment: incrementSize}, nil
	case StrategyPooledLo:
		return &pooledLoOptimizer{increment: incrementSize}, nil
	default:
		return nil, configError(CodeUnknownOptimizer, "unknown optimizer %q", strategy)
	}
}

func misuse(strategy Strategy, format string, args ...any) error {
	return xerrors.Wrapf(ErrOptimizerMisuse, "%s: "+format, append([]any{strategy}, args...)...)
}

// ========================================
// none
// ========================================

// noneOptimizer 每次调用访问一次存储，原样返回
type noneOptimizer struct {
	mu      sync.Mutex
	started bool
	last    int64
}

func (o *noneOptimizer) Generate(ctx context.Context, next AccessCallback) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	v, err := next(ctx)
	if err != nil {
		return 0, err
	}
	if o.started && v <= o.last {
		return 0, misuse(StrategyNone, "source value %d not greater than %d", v, o.last)
	}
	o.started = true
	o.last = v
	return v, nil
}

func (o *noneOptimizer) AppliesIncrementToSourceValues() bool { return false }
func (o *noneOptimizer) IncrementSize() int64                 { return 1 }
func (o *noneOptimizer) Strategy() Strategy                   { return StrategyNone }

func (o *noneOptimizer) LastSourceValue() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.started {
		return -1
	}
	return o.last
}

// ========================================
// hilo
// ========================================

// hiloOptimizer 存储只保存 hi，每个 hi 在本地展开为 (hi-1)*inc+1 .. hi*inc
type hiloOptimizer struct {
	mu        sync.Mutex
	increment int64
	hi        int64 // 0 表示尚未刷新
	value     int64
	upper     int64 // 不含
}

func (o *hiloOptimizer) Generate(ctx context.Context, next AccessCallback) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.hi == 0 || o.value >= o.upper {
		hi, err := next(ctx)
		if err != nil {
			return 0, err
		}
		// 计数器从 0 或负数起步时，非正的 hi 无法展开出正值区间
		for hi <= 0 {
			if hi, err = next(ctx); err != nil {
				return 0, err
			}
		}
		if o.hi != 0 && hi <= o.hi {
			return 0, misuse(StrategyHiLo, "hi value %d not greater than %d", hi, o.hi)
		}
		if hi > (math.MaxInt64-1)/o.increment {
			return 0, xerrors.Wrapf(ErrIdentifierOverflow, "hilo: hi value %d with increment %d", hi, o.increment)
		}
		o.hi = hi
		o.upper = hi*o.increment + 1
		o.value = o.upper - o.increment
	}

	v := o.value
	o.value++
	return v, nil
}

func (o *hiloOptimizer) AppliesIncrementToSourceValues() bool { return false }
func (o *hiloOptimizer) IncrementSize() int64                 { return o.increment }
func (o *hiloOptimizer) Strategy() Strategy                   { return StrategyHiLo }

func (o *hiloOptimizer) LastSourceValue() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.hi == 0 {
		return -1
	}
	return o.hi
}

// ========================================
// pooled
// ========================================

// pooledOptimizer 存储计数器即下一个未分配的值，刷新后计数器 hi 为区间的开上界
type pooledOptimizer struct {
	mu        sync.Mutex
	increment int64
	started   bool
	value     int64
	hi        int64
}

func (o *pooledOptimizer) Generate(ctx context.Context, next AccessCallback) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.started || o.value >= o.hi {
		raw, err := next(ctx)
		if err != nil {
			return 0, err
		}
		if o.started && raw < o.hi {
			return 0, misuse(StrategyPooled, "block starting at %d overlaps previous block ending at %d", raw, o.hi)
		}
		if raw > math.MaxInt64-o.increment {
			return 0, xerrors.Wrapf(ErrIdentifierOverflow, "pooled: source value %d with increment %d", raw, o.increment)
		}
		o.started = true
		o.hi = raw + o.increment
		o.value = o.hi - o.increment
	}

	v := o.value
	o.value++
	return v, nil
}

func (o *pooledOptimizer) AppliesIncrementToSourceValues() bool { return true }
func (o *pooledOptimizer) IncrementSize() int64                 { return o.increment }
func (o *pooledOptimizer) Strategy() Strategy                   { return StrategyPooled }

// LastSourceValue 返回当前区间的开上界，与刷新后存储中的计数器一致
func (o *pooledOptimizer) LastSourceValue() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.started {
		return -1
	}
	return o.hi
}

// ========================================
// pooled-lo
// ========================================

// pooledLoOptimizer 刷新得到的原始值本身就是区间内第一个可用值
type pooledLoOptimizer struct {
	mu        sync.Mutex
	increment int64
	started   bool
	lo        int64
	value     int64
	upper     int64 // 不含
}

func (o *pooledLoOptimizer) Generate(ctx context.Context, next AccessCallback) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.started || o.value >= o.upper {
		lo, err := next(ctx)
		if err != nil {
			return 0, err
		}
		if o.started && lo < o.upper {
			return 0, misuse(StrategyPooledLo, "block starting at %d overlaps previous block ending at %d", lo, o.upper)
		}
		if lo > math.MaxInt64-o.increment {
			return 0, xerrors.Wrapf(ErrIdentifierOverflow, "pooled-lo: source value %d with increment %d", lo, o.increment)
		}
		o.started = true
		o.lo = lo
		o.value = lo
		o.upper = lo + o.increment
	}

	v := o.value
	o.value++
	return v, nil
}

func (o *pooledLoOptimizer) AppliesIncrementToSourceValues() bool { return true }
func (o *pooledLoOptimizer) IncrementSize() int64                 { return o.increment }
func (o *pooledLoOptimizer) Strategy() Strategy                   { return StrategyPooledLo }

func (o *pooledLoOptimizer) LastSourceValue() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.started {
		return -1
	}
	return o.lo
}
