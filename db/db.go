// Package db 在 GORM 连接之上提供事务、SQL 日志、链路追踪与分表能力。
//
// db 组件借用连接器的 *gorm.DB，不负责连接的生命周期：
//
//	conn, _ := connector.NewMySQL(&cfg.MySQL, connector.WithLogger(logger))
//	defer conn.Close()
//	_ = conn.Connect(ctx)
//
//	database, _ := db.New(conn, &db.Config{}, db.WithLogger(logger))
//	err := database.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
//		return tx.Exec("update ...").Error
//	})
//
// 分表规则通过 Config.Sharding 配置，主键由 WithKeyGenerator 注入的
// 生成器分配，未注入时使用 gorm.io/sharding 自带的雪花算法。
package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
	"gorm.io/sharding"

	"github.com/ceyewan/tablegen/clog"
	"github.com/ceyewan/tablegen/connector"
	"github.com/ceyewan/tablegen/xerrors"
)

// DB 数据库组件
type DB interface {
	// DB 返回绑定 ctx 的 *gorm.DB
	DB(ctx context.Context) *gorm.DB

	// Transaction 在独立事务中执行 fn，fn 返回错误时回滚
	//
	// opts 可指定隔离级别，不传时使用驱动默认值。
	Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error, opts ...*sql.TxOptions) error

	// Driver 返回驱动名称：mysql、postgres 或 sqlite
	Driver() string

	// Close 组件不持有连接，Close 只做清理
	Close() error
}

type database struct {
	client *gorm.DB
	driver string
	logger clog.Logger
}

// New 创建数据库组件
func New(conn connector.DatabaseConnector, cfg *Config, opts ...Option) (DB, error) {
	if conn == nil {
		return nil, ErrConnectorRequired
	}
	client := conn.GetClient()
	if client == nil {
		return nil, xerrors.Wrapf(connector.ErrClientNil, "db: connector %s is not connected", conn.Name())
	}
	return newDatabase(client, conn.Driver(), cfg, opts...)
}

func newDatabase(client *gorm.DB, driver string, cfg *Config, opts ...Option) (DB, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrap(err, "invalid db config")
	}

	o := applyOptions(opts)

	gormDB := client.Session(&gorm.Session{
		Logger: newGormLogger(o.logger.WithNamespace("sql"), cfg.SlowThreshold, o.silentMode),
	})

	if o.tracerProvider != nil {
		plugin := otelgorm.NewPlugin(
			otelgorm.WithTracerProvider(o.tracerProvider),
			otelgorm.WithDBName(driver),
		)
		if err := useOnce(gormDB, plugin); err != nil {
			return nil, xerrors.Wrap(err, "register otelgorm plugin")
		}
	}

	if cfg.EnableSharding {
		if err := useOnce(gormDB, newShardingMiddleware(cfg.Sharding, o)); err != nil {
			return nil, xerrors.Wrap(err, "register sharding middleware")
		}
		if o.keyGenerator != nil {
			if err := useOnce(gormDB, keyErrorPlugin{}); err != nil {
				return nil, xerrors.Wrap(err, "register sharding key error plugin")
			}
		}
	}

	return &database{client: gormDB, driver: driver, logger: o.logger}, nil
}

// useOnce 同一个连接上重复注册插件视为成功，多个组件可共享同一连接器
func useOnce(db *gorm.DB, plugin gorm.Plugin) error {
	if err := db.Use(plugin); err != nil && !errors.Is(err, gorm.ErrRegistered) {
		return err
	}
	return nil
}

func newShardingMiddleware(rule ShardingRule, o *options) *sharding.Sharding {
	tables := make([]any, len(rule.Tables))
	for i, v := range rule.Tables {
		tables[i] = v
	}

	shardingCfg := sharding.Config{
		ShardingKey:         rule.ShardingKey,
		NumberOfShards:      rule.NumberOfShards,
		PrimaryKeyGenerator: sharding.PKSnowflake,
	}
	if o.keyGenerator != nil {
		shardingCfg.PrimaryKeyGenerator = sharding.PKCustom
		shardingCfg.PrimaryKeyGeneratorFn = primaryKeyFn(o.keyGenerator, o.logger, rule.Tables)
	}
	return sharding.Register(shardingCfg, tables...)
}

// primaryKeyFn sharding 的主键回调没有错误返回值，分配失败时 panic 中止本次写入，
// 由 keyErrorPlugin 恢复为语句错误
func primaryKeyFn(gen KeyGenerator, logger clog.Logger, tables []string) func(int64) int64 {
	return func(tableIdx int64) int64 {
		id, err := gen.Generate(context.Background())
		if err != nil {
			logger.Error("allocate sharded primary key failed",
				clog.Any("tables", tables),
				clog.Int64("table_idx", tableIdx),
				clog.Error(err),
			)
			panic(keyAllocError{err: xerrors.Wrap(err, "db: allocate sharded primary key")})
		}
		return id
	}
}

func (d *database) DB(ctx context.Context) *gorm.DB {
	return d.client.WithContext(ctx)
}

func (d *database) Transaction(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	return d.client.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, tx)
	}, opts...)
}

func (d *database) Driver() string {
	return d.driver
}

func (d *database) Close() error {
	return nil
}
