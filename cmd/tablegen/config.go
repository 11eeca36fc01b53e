package main

import (
	"context"
	"time"

	"github.com/ceyewan/tablegen/breaker"
	"github.com/ceyewan/tablegen/clog"
	"github.com/ceyewan/tablegen/config"
	"github.com/ceyewan/tablegen/connector"
	"github.com/ceyewan/tablegen/db"
	"github.com/ceyewan/tablegen/idgen"
	"github.com/ceyewan/tablegen/metrics"
	"github.com/ceyewan/tablegen/ratelimit"
	"github.com/ceyewan/tablegen/trace"
	"github.com/ceyewan/tablegen/xerrors"
)

const serviceName = "tablegen"

// 段存储驱动
const (
	StoreMySQL      = "mysql"
	StorePostgreSQL = "postgres"
	StoreSQLite     = "sqlite"
	StoreEtcd       = "etcd"
	StoreRedis      = "redis"
)

// AppConfig 服务配置
//
//	store:
//	  driver: mysql
//	  mysql: {host: 127.0.0.1, username: root, database: app}
//	generators:
//	  orders: {prefer_entity_table_as_segment_value: true, increment_size: 50}
//	  users:  {optimizer: hilo, increment_size: 10, identifier_type: int32}
//
// viper 把 map 的 key 转成小写，generators 下的实体名因此总是小写，
// 由实体名推导的 target_table 与段值也随之小写。需要保留大小写时显式配置
// target_table 或 segment_value，参数值本身不受影响。
type AppConfig struct {
	Log        clog.Config             `mapstructure:"log"`
	Store      StoreConfig             `mapstructure:"store"`
	Generators map[string]idgen.Params `mapstructure:"generators"`
	Breaker    *breaker.Config         `mapstructure:"breaker"` // nil 表示不启用
	Metrics    metrics.Config          `mapstructure:"metrics"`
	Trace      trace.Config            `mapstructure:"trace"`
	Server     ServerConfig            `mapstructure:"server"`
}

// StoreConfig 段存储配置，只有 Driver 对应的子配置生效
type StoreConfig struct {
	Driver     string                     `mapstructure:"driver"`
	DB         db.Config                  `mapstructure:"db"`
	MySQL      connector.MySQLConfig      `mapstructure:"mysql"`
	PostgreSQL connector.PostgreSQLConfig `mapstructure:"postgresql"`
	SQLite     connector.SQLiteConfig     `mapstructure:"sqlite"`
	Etcd       connector.EtcdConfig       `mapstructure:"etcd"`
	Redis      connector.RedisConfig      `mapstructure:"redis"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`             // 默认 :8080
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"` // 默认 10s
	EnsureSchema    *bool         `mapstructure:"ensure_schema"`    // 默认 true

	// RateLimit 每个实体的请求配额，零值表示不限流
	RateLimit ratelimit.Limit `mapstructure:"rate_limit"`
}

func (c *AppConfig) setDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = StoreSQLite
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.EnsureSchema == nil {
		ensure := true
		c.Server.EnsureSchema = &ensure
	}
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = serviceName
	}
	if c.Trace.ServiceName == "" {
		c.Trace.ServiceName = serviceName
	}
}

func (c *AppConfig) validate() error {
	switch c.Store.Driver {
	case StoreMySQL, StorePostgreSQL, StoreSQLite, StoreEtcd, StoreRedis:
	default:
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "unsupported store driver %q", c.Store.Driver)
	}
	if len(c.Generators) == 0 {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "at least one generator is required")
	}
	return nil
}

// relational 段存储是否为关系数据库
func (c *StoreConfig) relational() bool {
	return c.Driver != StoreEtcd && c.Driver != StoreRedis
}

// loadConfig 从 dir 加载 tablegen.yaml，环境变量前缀 TABLEGEN
func loadConfig(ctx context.Context, dir string, logger clog.Logger) (*AppConfig, config.Loader, error) {
	cfg := &config.Config{Name: serviceName, EnvPrefix: "TABLEGEN"}
	if dir != "" {
		cfg.Paths = []string{dir}
	}
	loader, err := config.New(cfg, config.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	if err := loader.Load(ctx); err != nil {
		return nil, nil, err
	}

	app := &AppConfig{}
	if err := loader.Unmarshal(app); err != nil {
		return nil, nil, xerrors.Wrap(err, "decode config")
	}
	app.setDefaults()
	if err := app.validate(); err != nil {
		return nil, nil, err
	}
	return app, loader, nil
}
