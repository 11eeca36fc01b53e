package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/tablegen/clog"
	"github.com/ceyewan/tablegen/idgen"
	"github.com/ceyewan/tablegen/metrics"
	"github.com/ceyewan/tablegen/ratelimit"
	"github.com/ceyewan/tablegen/trace"
	"github.com/ceyewan/tablegen/xerrors"
)

// idsResponse GET /v1/ids/:entity 的响应
type idsResponse struct {
	Entity string  `json:"entity"`
	IDs    []int64 `json:"ids"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// newRouter 注册 HTTP 路由
//
//	GET /v1/ids/:entity?count=n
//	GET /healthz
//	GET /metrics
func newRouter(a *app, limiter ratelimit.Limiter) (*gin.Engine, error) {
	httpMetrics, err := metrics.NewHTTPServerMetrics(a.meter)
	if err != nil {
		return nil, err
	}
	quota := a.cfg.Server.RateLimit

	r := gin.New()
	r.Use(gin.Recovery(), trace.GinMiddleware(serviceName), metrics.GinHTTPMiddleware(httpMetrics))

	r.GET("/healthz", func(c *gin.Context) {
		if err := a.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(a.meter.Handler()))

	v1 := r.Group("/v1")
	// 配额按 id 计数，?count=n 消耗 n 个令牌
	v1.GET("/ids/:entity",
		ratelimit.GinMiddlewareN(limiter,
			func(c *gin.Context) string {
				// 未知实体不建桶，直接交给 handler 返回 404
				if _, err := a.registry.Get(c.Param("entity")); err != nil {
					return ""
				}
				return c.Param("entity")
			},
			func(*gin.Context) ratelimit.Limit { return quota },
			func(c *gin.Context) int {
				// 非法的 count 由 handler 拒绝，这里按 1 计
				n, err := parseCount(c)
				if err != nil {
					return 1
				}
				return n
			}),
		handleGenerate(a))
	return r, nil
}

func handleGenerate(a *app) gin.HandlerFunc {
	logger := a.logger.WithNamespace("http")
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		entity := c.Param("entity")

		count, err := parseCount(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "count must be an integer"})
			return
		}

		ids, err := a.registry.GenerateN(ctx, entity, count)
		if err != nil {
			status := httpStatus(err)
			if status >= http.StatusInternalServerError {
				logger.ErrorContext(ctx, "generate failed",
					clog.String("entity", entity),
					clog.Int("count", count),
					clog.Error(err))
			}
			c.JSON(status, errorResponse{Error: err.Error(), Code: xerrors.GetCode(err)})
			return
		}
		c.JSON(http.StatusOK, idsResponse{Entity: entity, IDs: ids})
	}
}

func parseCount(c *gin.Context) (int, error) {
	raw := c.Query("count")
	if raw == "" {
		return 1, nil
	}
	return strconv.Atoi(raw)
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, idgen.ErrUnknownEntity):
		return http.StatusNotFound
	case errors.Is(err, xerrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, idgen.ErrIdentifierOverflow):
		return http.StatusConflict
	case errors.Is(err, xerrors.ErrUnavailable),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// newHTTPServer 包装 gin 路由
func newHTTPServer(cfg ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
