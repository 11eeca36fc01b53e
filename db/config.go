package db

import (
	"time"

	"github.com/ceyewan/tablegen/xerrors"
)

// Config DB 组件配置
type Config struct {
	// SlowThreshold 超过该耗时的语句以 warn 级别记录，默认 200ms
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`

	// EnableSharding 开启后按 Sharding 规则分表
	//
	// gorm 插件按名称去重，同一个连接上只能注册一套分表规则。
	EnableSharding bool         `mapstructure:"enable_sharding"`
	Sharding       ShardingRule `mapstructure:"sharding"`
}

// ShardingRule 分表规则
type ShardingRule struct {
	ShardingKey    string   `mapstructure:"sharding_key"`     // 例如 "user_id"
	NumberOfShards uint     `mapstructure:"number_of_shards"` // 例如 64
	Tables         []string `mapstructure:"tables"`           // 逻辑表名
}

func (c *Config) setDefaults() {
	if c.SlowThreshold == 0 {
		c.SlowThreshold = 200 * time.Millisecond
	}
}

func (c *Config) validate() error {
	if c.SlowThreshold < 0 {
		return xerrors.Wrap(ErrInvalidConfig, "slow_threshold must not be negative")
	}
	if !c.EnableSharding {
		return nil
	}
	rule := c.Sharding
	if rule.ShardingKey == "" {
		return xerrors.Wrap(ErrInvalidConfig, "sharding key cannot be empty")
	}
	if rule.NumberOfShards == 0 {
		return xerrors.Wrap(ErrInvalidConfig, "number of shards must be greater than 0")
	}
	if len(rule.Tables) == 0 {
		return xerrors.Wrap(ErrInvalidConfig, "sharding tables cannot be empty")
	}
	for _, table := range rule.Tables {
		if table == "" {
			return xerrors.Wrap(ErrInvalidConfig, "sharding table name cannot be empty")
		}
	}
	return nil
}
