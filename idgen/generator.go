package idgen

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/tablegen/breaker"
	"github.com/ceyewan/tablegen/clog"
	"github.com/ceyewan/tablegen/connector"
	"github.com/ceyewan/tablegen/xerrors"
)

const tracerName = "github.com/ceyewan/tablegen/idgen"

// core 优化器与段存储的组合，各种生成器共用
type core struct {
	cfg       *TableConfig
	store     SegmentStore
	optimizer Optimizer
	step      int64
	logger    clog.Logger
	metrics   *instruments
	tracer    trace.Tracer
	breaker   breaker.Breaker // 可选
}

func newCore(cfg *TableConfig, o *options, m *instruments) (*core, error) {
	optimizer, err := NewOptimizer(cfg.Strategy, cfg.IncrementSize)
	if err != nil {
		return nil, err
	}
	step := int64(1)
	if optimizer.AppliesIncrementToSourceValues() {
		step = cfg.IncrementSize
	}
	c := &core{
		cfg:       cfg,
		optimizer: optimizer,
		step:      step,
		logger:    o.logger,
		metrics:   m,
		tracer:    o.tracerProvider.Tracer(tracerName),
	}
	if o.breaker != nil {
		c.breaker, err = breaker.New(o.breaker,
			breaker.WithLogger(o.logger),
			breaker.WithMeter(o.meter),
			breaker.WithFailurePredicate(isStoreFailure))
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// isStoreFailure 只有存储本身的故障计入熔断，调用方取消不算
func isStoreFailure(err error) bool {
	return errors.Is(err, ErrStoreFailure) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func (c *core) generate(ctx context.Context) (int64, error) {
	v, err := c.optimizer.Generate(ctx, c.refill)
	if err != nil {
		return 0, err
	}
	if err := c.cfg.IdentifierType.Check(v); err != nil {
		return 0, xerrors.Wrapf(err, "segment %s", c.cfg.SegmentValue)
	}
	c.metrics.observeGenerated(ctx, c.cfg.SegmentValue, c.cfg.Strategy)
	return v, nil
}

// refill 优化器的访问回调
func (c *core) refill(ctx context.Context) (int64, error) {
	ctx, span := c.tracer.Start(ctx, "idgen.refill", trace.WithAttributes(
		attribute.String("idgen.table", c.cfg.TableName),
		attribute.String("idgen.segment", c.cfg.SegmentValue),
		attribute.String("idgen.strategy", string(c.cfg.Strategy)),
		attribute.Int64("idgen.step", c.step),
	))
	defer span.End()

	start := time.Now()
	v, err := c.nextValue(ctx)
	c.metrics.observeRefill(ctx, c.cfg.SegmentValue, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.ErrorContext(ctx, "segment refill failed",
			clog.String("table", c.cfg.TableName),
			clog.String("segment", c.cfg.SegmentValue),
			clog.Error(err),
		)
		return 0, err
	}

	span.SetAttributes(attribute.Int64("idgen.source_value", v))
	c.logger.DebugContext(ctx, "segment refilled",
		clog.String("segment", c.cfg.SegmentValue),
		clog.Int64("source_value", v),
		clog.Int64("step", c.step),
	)
	return v, nil
}

func (c *core) nextValue(ctx context.Context) (int64, error) {
	if c.breaker == nil {
		return c.store.NextValue(ctx, c.step)
	}
	var v int64
	err := c.breaker.Execute(ctx, c.cfg.TableName+"/"+c.cfg.SegmentValue, func() error {
		var err error
		v, err = c.store.NextValue(ctx, c.step)
		return err
	})
	if errors.Is(err, breaker.ErrOpenState) {
		return 0, storeError(c.cfg.SegmentValue, err)
	}
	return v, err
}

// ========================================
// SegmentGenerator
// ========================================

// SegmentGenerator 以 etcd 或 Redis 作为段存储的生成器
//
// 语义与 TableGenerator 相同：table_name 与 segment_value 组成 key，
// 列名相关的参数被忽略。
type SegmentGenerator struct {
	core *core
	key  string
}

// NewEtcdGenerator 创建 etcd 段生成器，key 为 /<table_name>/<segment_value>
func NewEtcdGenerator(conn connector.EtcdConnector, idType IdentifierType, params Params, opts ...Option) (*SegmentGenerator, error) {
	if conn == nil || conn.GetClient() == nil {
		return nil, ErrConnectorNil
	}
	c, _, err := prepare(idType, params, opts)
	if err != nil {
		return nil, err
	}
	key := etcdKey(c.cfg)
	c.store = &etcdStore{
		client:  conn.GetClient(),
		key:     key,
		cfg:     c.cfg,
		logger:  c.logger,
		metrics: c.metrics,
	}
	return &SegmentGenerator{core: c, key: key}, nil
}

// NewRedisGenerator 创建 Redis 段生成器，key 为 <table_name>:<segment_value>
func NewRedisGenerator(conn connector.RedisConnector, idType IdentifierType, params Params, opts ...Option) (*SegmentGenerator, error) {
	if conn == nil || conn.GetClient() == nil {
		return nil, ErrConnectorNil
	}
	c, _, err := prepare(idType, params, opts)
	if err != nil {
		return nil, err
	}
	key := redisKey(c.cfg)
	c.store = &redisStore{
		client:  conn.GetClient(),
		key:     key,
		cfg:     c.cfg,
		logger:  c.logger,
		metrics: c.metrics,
	}
	return &SegmentGenerator{core: c, key: key}, nil
}

// prepare 解析参数并创建不含存储的 core，由调用方补上 store
func prepare(idType IdentifierType, params Params, opts []Option) (*core, *options, error) {
	cfg, err := ResolveTableConfig(idType, params)
	if err != nil {
		return nil, nil, err
	}
	o := applyOptions(opts)
	m, err := newInstruments(o.meter)
	if err != nil {
		return nil, nil, err
	}
	c, err := newCore(cfg, o, m)
	if err != nil {
		return nil, nil, err
	}
	return c, o, nil
}

// Generate 返回下一个标识符
func (g *SegmentGenerator) Generate(ctx context.Context) (int64, error) {
	return g.core.generate(ctx)
}

// Config 返回解析后的配置副本
func (g *SegmentGenerator) Config() TableConfig { return *g.core.cfg }

// AccessCount 成功刷新的次数
func (g *SegmentGenerator) AccessCount() int64 { return g.core.store.AccessCount() }

func (g *SegmentGenerator) Optimizer() Optimizer { return g.core.optimizer }

// GeneratorKey 段计数器所在的 key
func (g *SegmentGenerator) GeneratorKey() string { return g.key }
