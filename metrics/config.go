package metrics

import (
	"strings"

	"github.com/ceyewan/tablegen/xerrors"
)

// Config 指标系统配置
//
//	metrics:
//	  enabled: true
//	  service_name: "tablegen"
//	  version: "v0.1.0"
//	  port: 9090        # 大于 0 时单独启动 Prometheus HTTP 服务器
//	  path: "/metrics"
type Config struct {
	// Enabled 为 false 时 New 返回 noop Meter
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	Version     string `mapstructure:"version"`
	Port        int    `mapstructure:"port"`
	Path        string `mapstructure:"path"`
}

func (c *Config) setDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "tablegen"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
}

func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "port out of range: %d", c.Port)
	}
	if !strings.HasPrefix(c.Path, "/") {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "path must start with '/': %q", c.Path)
	}
	return nil
}
