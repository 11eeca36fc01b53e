package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ceyewan/tablegen/clog"
	"github.com/ceyewan/tablegen/config"
	"github.com/ceyewan/tablegen/metrics"
)

type rootFlags struct {
	configDir string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	cmd := &cobra.Command{
		Use:           "tablegen",
		Short:         "Table-backed identifier allocator",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configDir, "config", "c", "", "directory containing tablegen.yaml")

	cmd.AddCommand(
		newServeCmd(flags),
		newNextCmd(flags),
		newSchemaCmd(flags),
	)
	return cmd
}

// bootstrap 加载配置并创建组件，CLI 子命令不启用指标导出
type bootstrap struct {
	cfg    *AppConfig
	loader config.Loader
	logger clog.Logger
	app    *app
}

func newBootstrap(ctx context.Context, flags *rootFlags, withMetrics bool) (*bootstrap, error) {
	cfg, loader, err := loadConfig(ctx, flags.configDir, clog.Discard())
	if err != nil {
		return nil, err
	}
	logger, err := clog.New(&cfg.Log, clog.WithNamespace(serviceName))
	if err != nil {
		return nil, err
	}

	meter := metrics.Discard()
	if withMetrics {
		if meter, err = metrics.New(&cfg.Metrics, metrics.WithLogger(logger)); err != nil {
			return nil, err
		}
	}

	a, err := newApp(ctx, cfg, logger, meter)
	if err != nil {
		return nil, err
	}
	return &bootstrap{cfg: cfg, loader: loader, logger: logger, app: a}, nil
}

func (b *bootstrap) Close(ctx context.Context) error {
	err := b.app.Close(ctx)
	_ = b.app.meter.Shutdown(ctx)
	b.logger.Flush()
	return err
}
