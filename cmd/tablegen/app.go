package main

import (
	"context"

	"go.opentelemetry.io/otel"

	"github.com/ceyewan/tablegen/clog"
	"github.com/ceyewan/tablegen/connector"
	"github.com/ceyewan/tablegen/db"
	"github.com/ceyewan/tablegen/idgen"
	"github.com/ceyewan/tablegen/metrics"
	"github.com/ceyewan/tablegen/xerrors"
)

// app 持有进程内的所有组件
type app struct {
	cfg      *AppConfig
	logger   clog.Logger
	meter    metrics.Meter
	conn     connector.Connector
	database db.DB // 键值存储时为 nil
	registry *idgen.Registry

	closers []func(context.Context) error
}

// newApp 连接段存储并为每个实体创建生成器，失败时释放已创建的资源
func newApp(ctx context.Context, cfg *AppConfig, logger clog.Logger, meter metrics.Meter) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger, meter: meter}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	tp := otel.GetTracerProvider()
	connOpts := []connector.Option{
		connector.WithLogger(logger),
		connector.WithMeter(meter),
		connector.WithTracerProvider(tp),
	}
	genOpts := []idgen.Option{
		idgen.WithLogger(logger),
		idgen.WithMeter(meter),
		idgen.WithTracerProvider(tp),
	}
	if cfg.Breaker != nil {
		genOpts = append(genOpts, idgen.WithBreaker(cfg.Breaker))
	}

	store := &cfg.Store
	switch store.Driver {
	case StoreEtcd:
		err = a.openEtcd(ctx, store, connOpts, genOpts)
	case StoreRedis:
		err = a.openRedis(ctx, store, connOpts, genOpts)
	default:
		err = a.openDatabase(ctx, store, connOpts, genOpts)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("generators ready",
		clog.String("store", store.Driver),
		clog.Any("entities", a.registry.Names()))
	return a, nil
}

func (a *app) openEtcd(ctx context.Context, store *StoreConfig, connOpts []connector.Option, genOpts []idgen.Option) error {
	conn, err := connector.NewEtcd(&store.Etcd, connOpts...)
	if err != nil {
		return err
	}
	if err := a.connect(ctx, conn); err != nil {
		return err
	}
	a.registry, err = idgen.NewEtcdRegistry(conn, a.cfg.Generators, genOpts...)
	return err
}

func (a *app) openRedis(ctx context.Context, store *StoreConfig, connOpts []connector.Option, genOpts []idgen.Option) error {
	conn, err := connector.NewRedis(&store.Redis, connOpts...)
	if err != nil {
		return err
	}
	if err := a.connect(ctx, conn); err != nil {
		return err
	}
	a.registry, err = idgen.NewRedisRegistry(conn, a.cfg.Generators, genOpts...)
	return err
}

func (a *app) openDatabase(ctx context.Context, store *StoreConfig, connOpts []connector.Option, genOpts []idgen.Option) error {
	conn, err := newDatabaseConnector(store, connOpts)
	if err != nil {
		return err
	}
	if err := a.connect(ctx, conn); err != nil {
		return err
	}
	a.database, err = db.New(conn, &store.DB, db.WithLogger(a.logger), db.WithTracer(otel.GetTracerProvider()))
	if err != nil {
		return err
	}
	a.registry, err = idgen.NewTableRegistry(a.database, a.cfg.Generators, genOpts...)
	return err
}

func newDatabaseConnector(store *StoreConfig, opts []connector.Option) (connector.DatabaseConnector, error) {
	switch store.Driver {
	case StoreMySQL:
		return connector.NewMySQL(&store.MySQL, opts...)
	case StorePostgreSQL:
		return connector.NewPostgreSQL(&store.PostgreSQL, opts...)
	case StoreSQLite:
		return connector.NewSQLite(&store.SQLite, opts...)
	}
	return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "unsupported store driver %q", store.Driver)
}

func (a *app) connect(ctx context.Context, conn connector.Connector) error {
	a.conn = conn
	a.closers = append(a.closers, func(context.Context) error { return conn.Close() })
	return conn.Connect(ctx)
}

// HealthCheck 检查段存储连接
func (a *app) HealthCheck(ctx context.Context) error {
	if a.conn == nil {
		return xerrors.ErrUnavailable
	}
	return a.conn.HealthCheck(ctx)
}

// EnsureSchema 为关系数据库创建缺失的段表
func (a *app) EnsureSchema(ctx context.Context) error {
	if a.database == nil {
		return nil
	}
	return a.registry.EnsureSchema(ctx)
}

// Close 按创建的逆序释放资源
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return xerrors.Combine(errs...)
}
