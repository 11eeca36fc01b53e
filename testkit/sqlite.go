package testkit

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/tablegen/connector"
)

// NewSQLiteConfig 返回独立的共享缓存内存数据库配置
//
// 单连接池保证同一数据库上的并发事务串行执行，这也是 SQLite 本身的写模型。
func NewSQLiteConfig() *connector.SQLiteConfig {
	return &connector.SQLiteConfig{
		Name:         "test-sqlite",
		Path:         fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
	}
}

// NewSQLiteConnector 获取已连接的 SQLite 连接器，生命周期由 t.Cleanup 管理
func NewSQLiteConnector(t testing.TB) connector.SQLiteConnector {
	t.Helper()
	return connectSQLite(t, NewSQLiteConfig())
}

// NewSQLiteConnectorAt 返回连到同一个内存库的新连接器，用于模拟多个进程
func NewSQLiteConnectorAt(t testing.TB, cfg *connector.SQLiteConfig) connector.SQLiteConnector {
	t.Helper()
	clone := *cfg
	return connectSQLite(t, &clone)
}

// NewPersistentSQLiteConfig 数据库文件位于 t.TempDir()
//
// 事务以 BEGIN IMMEDIATE 开启，多个连接器并发写入时在 busy_timeout 内排队，
// 而不是在升级写锁时直接返回 SQLITE_BUSY。
func NewPersistentSQLiteConfig(t *testing.T) *connector.SQLiteConfig {
	t.Helper()
	return &connector.SQLiteConfig{
		Name:         "test-sqlite-file",
		Path:         t.TempDir() + "/tablegen.db?_busy_timeout=10000&_txlock=immediate",
		MaxOpenConns: 1,
	}
}

func connectSQLite(t testing.TB, cfg *connector.SQLiteConfig) connector.SQLiteConnector {
	conn, err := connector.NewSQLite(cfg, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create sqlite connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to sqlite")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
