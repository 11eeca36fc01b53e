package connector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ceyewan/tablegen/clog"
	"github.com/ceyewan/tablegen/xerrors"
)

// gormConnector MySQL、PostgreSQL、SQLite 共用的 GORM 连接器
type gormConnector struct {
	name      string
	driver    string
	dialector func() gorm.Dialector
	pool      func(db *gorm.DB) error

	logger   clog.Logger
	recorder *connectRecorder

	mu      sync.RWMutex
	db      *gorm.DB
	healthy atomic.Bool
}

func newGormConnector(name, driver string, dialector func() gorm.Dialector, pool func(*gorm.DB) error, o *options) *gormConnector {
	return &gormConnector{
		name:      name,
		driver:    driver,
		dialector: dialector,
		pool:      pool,
		logger:    o.logger.With(clog.String("connector", driver), clog.String("name", name)),
		recorder:  newConnectRecorder(o, driver, name),
	}
}

func (c *gormConnector) Connect(ctx context.Context) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return nil
	}
	defer func() { c.recorder.record(ctx, err) }()

	c.logger.Info("attempting to connect")

	// SQL 日志由 db 组件统一接管
	db, err := gorm.Open(c.dialector(), &gorm.Config{
		Logger:  gormlogger.Discard,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		c.logger.Error("failed to open database", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "%s connector[%s]: %v", c.driver, c.name, err)
	}

	if c.pool != nil {
		if err := c.pool(db); err != nil {
			return xerrors.Wrapf(ErrConnection, "%s connector[%s]: configure pool: %v", c.driver, c.name, err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return xerrors.Wrapf(ErrConnection, "%s connector[%s]: %v", c.driver, c.name, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		c.logger.Error("failed to ping database", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "%s connector[%s]: ping failed: %v", c.driver, c.name, err)
	}

	c.db = db
	c.healthy.Store(true)
	c.logger.Info("successfully connected")
	return nil
}

func (c *gormConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	if c.db == nil {
		return nil
	}

	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	c.db = nil
	if err := sqlDB.Close(); err != nil {
		c.logger.Error("failed to close database", clog.Error(err))
		return err
	}
	c.logger.Info("connection closed")
	return nil
}

func (c *gormConnector) HealthCheck(ctx context.Context) error {
	db := c.GetClient()
	if db == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrClientNil, "%s connector[%s]", c.driver, c.name)
	}

	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.healthy.Store(false)
		c.logger.Warn("health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "%s connector[%s]: %v", c.driver, c.name, err)
	}

	c.healthy.Store(true)
	return nil
}

func (c *gormConnector) IsHealthy() bool { return c.healthy.Load() }

func (c *gormConnector) Name() string { return c.name }

func (c *gormConnector) Driver() string { return c.driver }

func (c *gormConnector) GetClient() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

func poolConfigurer(p PoolConfig) func(*gorm.DB) error {
	return func(db *gorm.DB) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		sqlDB.SetMaxIdleConns(p.MaxIdleConns)
		sqlDB.SetMaxOpenConns(p.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(p.ConnMaxLifetime)
		return nil
	}
}
