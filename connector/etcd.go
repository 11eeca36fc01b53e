package connector

import (
	"context"
	"sync"
	"sync/atomic"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/tablegen/clog"
	"github.com/ceyewan/tablegen/xerrors"
)

type etcdConnector struct {
	cfg      *EtcdConfig
	logger   clog.Logger
	recorder *connectRecorder

	mu      sync.RWMutex
	client  *clientv3.Client
	healthy atomic.Bool
}

// NewEtcd 创建 Etcd 连接器，实际连接在 Connect 时建立
func NewEtcd(cfg *EtcdConfig, opts ...Option) (EtcdConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "etcd config is nil")
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	return &etcdConnector{
		cfg:      cfg,
		logger:   o.logger.With(clog.String("connector", "etcd"), clog.String("name", cfg.Name)),
		recorder: newConnectRecorder(o, "etcd", cfg.Name),
	}, nil
}

func (c *etcdConnector) Connect(ctx context.Context) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}
	defer func() { c.recorder.record(ctx, err) }()

	c.logger.Info("attempting to connect to etcd", clog.Any("endpoints", c.cfg.Endpoints))

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   c.cfg.Endpoints,
		DialTimeout: c.cfg.DialTimeout,
		Username:    c.cfg.Username,
		Password:    c.cfg.Password,
		Context:     context.WithoutCancel(ctx),
	})
	if err != nil {
		return xerrors.Wrapf(ErrConnection, "etcd connector[%s]: %v", c.cfg.Name, err)
	}

	// clientv3.New 不会主动探测，Status 用于确认至少一个端点可用
	statusCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	if _, err := client.Status(statusCtx, c.cfg.Endpoints[0]); err != nil {
		_ = client.Close()
		c.logger.Error("failed to connect to etcd", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "etcd connector[%s]: %v", c.cfg.Name, err)
	}

	c.client = client
	c.healthy.Store(true)
	c.logger.Info("successfully connected to etcd")
	return nil
}

func (c *etcdConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	if err != nil {
		c.logger.Error("failed to close etcd connection", clog.Error(err))
		return err
	}
	c.logger.Info("etcd connection closed")
	return nil
}

func (c *etcdConnector) HealthCheck(ctx context.Context) error {
	client := c.GetClient()
	if client == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrClientNil, "etcd connector[%s]", c.cfg.Name)
	}

	checkCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	if _, err := client.Status(checkCtx, c.cfg.Endpoints[0]); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("etcd health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "etcd connector[%s]: %v", c.cfg.Name, err)
	}
	c.healthy.Store(true)
	return nil
}

func (c *etcdConnector) IsHealthy() bool { return c.healthy.Load() }

func (c *etcdConnector) Name() string { return c.cfg.Name }

func (c *etcdConnector) GetClient() *clientv3.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}
