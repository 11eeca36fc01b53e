package testkit

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ceyewan/tablegen/connector"
)

// NewPostgreSQLContainerConfig 启动 PostgreSQL 容器并返回连接配置
func NewPostgreSQLContainerConfig(t *testing.T) *connector.PostgreSQLConfig {
	t.Helper()
	RequireContainers(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:17-alpine",
		postgres.WithDatabase("tablegen_db"),
		postgres.WithUsername("tablegen_user"),
		postgres.WithPassword("tablegen_password"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	port, err := strconv.Atoi(mappedPort.Port())
	require.NoError(t, err)

	return &connector.PostgreSQLConfig{
		Name:     "testcontainer-postgresql",
		Host:     host,
		Port:     port,
		Username: "tablegen_user",
		Password: "tablegen_password",
		Database: "tablegen_db",
		SSLMode:  "disable",
		PoolConfig: connector.PoolConfig{
			MaxIdleConns:    4,
			MaxOpenConns:    16,
			ConnMaxLifetime: time.Hour,
		},
	}
}

// NewPostgreSQLConnector 获取已连接的 PostgreSQL 连接器
func NewPostgreSQLConnector(t *testing.T) connector.PostgreSQLConnector {
	t.Helper()
	conn, err := connector.NewPostgreSQL(NewPostgreSQLContainerConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create postgresql connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to postgresql")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
