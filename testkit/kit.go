// Package testkit 提供测试用的日志、上下文与连接器工厂。
//
// 需要容器的工厂（MySQL、PostgreSQL、Redis、Etcd）在 -short 模式或没有可用的
// 容器运行时时跳过测试；SQLite 工厂每次返回独立的内存数据库。
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"

	"github.com/ceyewan/tablegen/clog"
)

// NewLogger 返回测试 logger，仅输出 warn 及以上级别
func NewLogger() clog.Logger {
	logger, err := clog.New(&clog.Config{Level: "warn", Format: "console", Output: "stderr"})
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewContext 返回一个带超时的上下文，测试结束时自动取消
func NewContext(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// NewID 返回 UUID v4 的前 8 位，用于生成互不冲突的表名、段名、Key 前缀
func NewID() string {
	return uuid.New().String()[0:8]
}

// RequireContainers 在 -short 模式或容器运行时不可用时跳过测试
func RequireContainers(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}
