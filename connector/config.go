package connector

import (
	"fmt"
	"time"

	"github.com/ceyewan/tablegen/xerrors"
)

// PoolConfig database/sql 连接池参数，MySQL 与 PostgreSQL 共用
type PoolConfig struct {
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 默认 10
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 默认 100
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 默认 1h
}

func (p *PoolConfig) setDefaults() {
	if p.MaxIdleConns == 0 {
		p.MaxIdleConns = 10
	}
	if p.MaxOpenConns == 0 {
		p.MaxOpenConns = 100
	}
	if p.ConnMaxLifetime == 0 {
		p.ConnMaxLifetime = time.Hour
	}
}

// MySQLConfig MySQL 连接配置，DSN 非空时忽略 Host 等字段
type MySQLConfig struct {
	Name     string `mapstructure:"name"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"` // 默认 3306
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Charset  string `mapstructure:"charset"` // 默认 utf8mb4

	PoolConfig `mapstructure:",squash"`
}

func (c *MySQLConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Port == 0 {
		c.Port = 3306
	}
	if c.Charset == "" {
		c.Charset = "utf8mb4"
	}
	c.PoolConfig.setDefaults()
}

func (c *MySQLConfig) validate() error {
	if c.DSN != "" {
		return nil
	}
	switch {
	case c.Host == "":
		return xerrors.Wrap(ErrConfig, "mysql host is required")
	case c.Username == "":
		return xerrors.Wrap(ErrConfig, "mysql username is required")
	case c.Database == "":
		return xerrors.Wrap(ErrConfig, "mysql database is required")
	}
	return nil
}

func (c *MySQLConfig) dsn() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// PostgreSQLConfig PostgreSQL 连接配置，DSN 非空时忽略 Host 等字段
type PostgreSQLConfig struct {
	Name     string `mapstructure:"name"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"` // 默认 5432
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"` // 默认 disable
	TimeZone string `mapstructure:"timezone"` // 默认 UTC

	PoolConfig `mapstructure:",squash"`
}

func (c *PostgreSQLConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.TimeZone == "" {
		c.TimeZone = "UTC"
	}
	c.PoolConfig.setDefaults()
}

func (c *PostgreSQLConfig) validate() error {
	if c.DSN != "" {
		return nil
	}
	switch {
	case c.Host == "":
		return xerrors.Wrap(ErrConfig, "postgresql host is required")
	case c.Username == "":
		return xerrors.Wrap(ErrConfig, "postgresql username is required")
	case c.Database == "":
		return xerrors.Wrap(ErrConfig, "postgresql database is required")
	}
	return nil
}

func (c *PostgreSQLConfig) dsn() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode, c.TimeZone)
}

// SQLiteConfig SQLite 连接配置
//
// Path 可以是文件路径或 "file:xxx?mode=memory&cache=shared" 形式的内存库。
// 多个 goroutine 共享内存库时建议 MaxOpenConns=1。
type SQLiteConfig struct {
	Name         string `mapstructure:"name"`
	Path         string `mapstructure:"path"`
	MaxOpenConns int    `mapstructure:"max_open_conns"` // 0 表示不限制
}

func (c *SQLiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
}

func (c *SQLiteConfig) validate() error {
	if c.Path == "" {
		return xerrors.Wrap(ErrConfig, "sqlite path is required")
	}
	if c.MaxOpenConns < 0 {
		return xerrors.Wrap(ErrConfig, "sqlite max_open_conns must not be negative")
	}
	return nil
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Name          string        `mapstructure:"name"`
	Addr          string        `mapstructure:"addr"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	PoolSize      int           `mapstructure:"pool_size"`     // 默认 10
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`  // 默认 5s
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`  // 默认 3s
	WriteTimeout  time.Duration `mapstructure:"write_timeout"` // 默认 3s
	EnableTracing bool          `mapstructure:"enable_tracing"`
}

func (c *RedisConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

func (c *RedisConfig) validate() error {
	if c.Addr == "" {
		return xerrors.Wrap(ErrConfig, "redis addr is required")
	}
	if c.DB < 0 {
		return xerrors.Wrap(ErrConfig, "redis db must not be negative")
	}
	return nil
}

// EtcdConfig Etcd 连接配置
type EtcdConfig struct {
	Name        string        `mapstructure:"name"`
	Endpoints   []string      `mapstructure:"endpoints"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"` // 默认 5s
}

func (c *EtcdConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
}

func (c *EtcdConfig) validate() error {
	if len(c.Endpoints) == 0 {
		return xerrors.Wrap(ErrConfig, "etcd endpoints are required")
	}
	return nil
}
