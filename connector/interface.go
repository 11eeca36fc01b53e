// Package connector 管理外部存储的连接生命周期。
//
// NewXXX 只做配置校验并构造连接器，Connect 时才真正建立连接（幂等）。
// 连接器拥有底层客户端，由创建者负责 Close；db、idgen 等组件只借用客户端。
//
//	conn, err := connector.NewMySQL(&connector.MySQLConfig{Host: "127.0.0.1", Username: "root", Database: "app"})
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//	if err := conn.Connect(ctx); err != nil {
//		return err
//	}
//	gormDB := conn.GetClient()
package connector

import (
	"context"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
	"gorm.io/gorm"
)

// Connector 所有连接器的通用行为，方法均并发安全
type Connector interface {
	// Connect 建立连接，重复调用直接返回 nil
	Connect(ctx context.Context) error

	// Close 关闭连接，之后 HealthCheck 返回 ErrClientNil
	Close() error

	// HealthCheck 实时检查并刷新 IsHealthy 的缓存结果
	HealthCheck(ctx context.Context) error
	IsHealthy() bool

	// Name 连接器实例名称，用于日志和指标
	Name() string
}

// TypedConnector 提供类型安全的客户端访问，Connect 之前可能返回 nil
type TypedConnector[T any] interface {
	Connector
	GetClient() T
}

// DatabaseConnector 基于 GORM 的关系数据库连接器
type DatabaseConnector interface {
	TypedConnector[*gorm.DB]

	// Driver 返回驱动名称：mysql、postgres 或 sqlite
	Driver() string
}

type (
	MySQLConnector      = DatabaseConnector
	PostgreSQLConnector = DatabaseConnector
	SQLiteConnector     = DatabaseConnector
)

// RedisConnector Redis 连接器
type RedisConnector interface {
	TypedConnector[*redis.Client]
}

// EtcdConnector Etcd 连接器
type EtcdConnector interface {
	TypedConnector[*clientv3.Client]
}
