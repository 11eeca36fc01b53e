package connector

import (
	"context"
	"sync/atomic"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"

	"github.com/ceyewan/tablegen/clog"
	"github.com/ceyewan/tablegen/xerrors"
)

type redisConnector struct {
	cfg      *RedisConfig
	client   *redis.Client
	logger   clog.Logger
	recorder *connectRecorder
	healthy  atomic.Bool
	closed   atomic.Bool
}

// NewRedis 创建 Redis 连接器
//
// 客户端立即创建，Connect 负责 Ping 校验连通性。
// cfg.EnableTracing 为 true 时通过 redisotel 安装链路追踪。
func NewRedis(cfg *RedisConfig, opts ...Option) (RedisConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "redis config is nil")
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	c := &redisConnector{
		cfg:      cfg,
		logger:   o.logger.With(clog.String("connector", "redis"), clog.String("name", cfg.Name)),
		recorder: newConnectRecorder(o, "redis", cfg.Name),
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	})

	if cfg.EnableTracing {
		if err := redisotel.InstrumentTracing(c.client, redisotel.WithTracerProvider(o.tracerProvider)); err != nil {
			_ = c.client.Close()
			return nil, xerrors.Wrapf(err, "redis connector[%s]: instrument tracing", cfg.Name)
		}
	}
	return c, nil
}

func (c *redisConnector) Connect(ctx context.Context) error {
	if c.healthy.Load() {
		return nil
	}
	c.logger.Info("attempting to connect to redis", clog.String("addr", c.cfg.Addr))

	err := c.client.Ping(ctx).Err()
	c.recorder.record(ctx, err)
	if err != nil {
		c.logger.Error("failed to connect to redis", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "redis connector[%s]: %v", c.cfg.Name, err)
	}

	c.healthy.Store(true)
	c.logger.Info("successfully connected to redis", clog.String("addr", c.cfg.Addr))
	return nil
}

func (c *redisConnector) Close() error {
	c.healthy.Store(false)
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := c.client.Close(); err != nil {
		c.logger.Error("failed to close redis connection", clog.Error(err))
		return err
	}
	c.logger.Info("redis connection closed")
	return nil
}

func (c *redisConnector) HealthCheck(ctx context.Context) error {
	if c.closed.Load() {
		return xerrors.Wrapf(ErrClientNil, "redis connector[%s]", c.cfg.Name)
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("redis health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "redis connector[%s]: %v", c.cfg.Name, err)
	}
	c.healthy.Store(true)
	return nil
}

func (c *redisConnector) IsHealthy() bool { return c.healthy.Load() }

func (c *redisConnector) Name() string { return c.cfg.Name }

func (c *redisConnector) GetClient() *redis.Client {
	if c.closed.Load() {
		return nil
	}
	return c.client
}
