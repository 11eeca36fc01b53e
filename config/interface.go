// Package config 基于 Viper 提供配置加载能力。
//
// 配置优先级：环境变量 > .env > 环境特定配置（config.<env>.yaml）> 基础配置。
// 环境由 <PREFIX>_ENV 指定。Load 之后会监听配置文件变化，并通过 Watch 通知订阅者。
//
//	loader, _ := config.New(&config.Config{Name: "tablegen", EnvPrefix: "TABLEGEN"})
//	if err := loader.Load(ctx); err != nil {
//		return err
//	}
//	var app AppConfig
//	_ = loader.Unmarshal(&app)
package config

import (
	"context"
	"time"
)

// Loader 加载、解析并监听配置
type Loader interface {
	Load(ctx context.Context) error
	Get(key string) any
	Unmarshal(v any) error
	UnmarshalKey(key string, v any) error

	// Watch 监听 key 的变化，ctx 取消后通道关闭
	Watch(ctx context.Context, key string) (<-chan Event, error)

	// ConfigFileUsed 返回实际加载的配置文件路径，未找到时为空
	ConfigFileUsed() string
}

// Event 配置变更事件
type Event struct {
	Key       string
	Value     any
	OldValue  any
	Source    string // "file"
	Timestamp time.Time
}
