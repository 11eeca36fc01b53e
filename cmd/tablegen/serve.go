package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ceyewan/tablegen/clog"
	"github.com/ceyewan/tablegen/ratelimit"
	"github.com/ceyewan/tablegen/trace"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve identifiers over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, flags)
		},
	}
}

func runServe(ctx context.Context, flags *rootFlags) error {
	b, err := newBootstrap(ctx, flags, true)
	if err != nil {
		return err
	}
	cfg, logger := b.cfg, b.logger

	shutdownTrace, err := trace.Init(&cfg.Trace)
	if err != nil {
		_ = b.Close(context.Background())
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTrace(shutdownCtx); err != nil {
			logger.Warn("trace shutdown failed", clog.Error(err))
		}
		if err := b.Close(shutdownCtx); err != nil {
			logger.Warn("close components failed", clog.Error(err))
		}
	}()

	if *cfg.Server.EnsureSchema {
		if err := b.app.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	limiter, err := ratelimit.New(nil, ratelimit.WithLogger(logger), ratelimit.WithMeter(b.app.meter))
	if err != nil {
		return err
	}
	defer limiter.Close()

	gin.SetMode(gin.ReleaseMode)
	router, err := newRouter(b.app, limiter)
	if err != nil {
		return err
	}
	srv := newHTTPServer(cfg.Server, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", clog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return watchGenerators(ctx, b)
	})
	return g.Wait()
}

// watchGenerators 生成器参数在运行期不可变，配置文件变化时只提示重启
func watchGenerators(ctx context.Context, b *bootstrap) error {
	events, err := b.loader.Watch(ctx, "generators")
	if err != nil {
		return err
	}
	for event := range events {
		b.logger.Warn("generator settings changed, restart to apply",
			clog.String("key", event.Key),
			clog.String("source", event.Source))
	}
	return nil
}
