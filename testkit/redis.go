package testkit

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/ceyewan/tablegen/connector"
)

// NewRedisContainerConfig 启动 Redis 容器并返回连接配置
func NewRedisContainerConfig(t *testing.T) *connector.RedisConfig {
	t.Helper()
	RequireContainers(t)
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start Redis container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return &connector.RedisConfig{
		Name:     "testcontainer-redis",
		Addr:     fmt.Sprintf("%s:%s", host, mappedPort.Port()),
		PoolSize: 10,
	}
}

// NewRedisConnector 获取已连接的 Redis 连接器
func NewRedisConnector(t *testing.T) connector.RedisConnector {
	t.Helper()
	conn, err := connector.NewRedis(NewRedisContainerConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create redis connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to redis")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
