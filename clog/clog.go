// Package clog 提供基于 slog 的结构化日志组件。
//
// 支持层级命名空间、Context 字段提取与运行时级别调整。
// 组件通过 WithNamespace 派生自己的子 Logger，例如 idgen 使用 "idgen"，
// 分配器落库的 SQL 语句使用 "idgen.sql"。
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{Level: "info", Format: "console"})
//	logger.Info("segment refilled", clog.String("segment", "orders"))
package clog

import "github.com/ceyewan/tablegen/xerrors"

// New 创建一个新的 Logger 实例
//
// config 为 nil 时使用开发环境默认配置。
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewDevDefaultConfig()
	}

	if err := config.validate(); err != nil {
		return nil, xerrors.Wrap(err, "invalid config")
	}

	return newLogger(config, applyOptions(opts...))
}
