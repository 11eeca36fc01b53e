package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/tablegen/xerrors"
)

const (
	MetricHTTPServerRequestTotal    = "http_server_requests_total"
	MetricHTTPServerDurationSeconds = "http_server_request_duration_seconds"

	LabelMethod      = "method"
	LabelRoute       = "route"
	LabelStatusClass = "status_class"
	LabelOutcome     = "outcome"

	OutcomeSuccess = "success"
	OutcomeError   = "error"

	// UnknownRoute 未命中路由时的统一标签值
	UnknownRoute = "unknown"
)

var defaultHTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// HTTPServerMetrics HTTP 服务器 RED 指标集
type HTTPServerMetrics struct {
	requestTotal Counter
	duration     Histogram
}

// NewHTTPServerMetrics 在 m 上创建请求计数与耗时直方图
func NewHTTPServerMetrics(m Meter) (*HTTPServerMetrics, error) {
	if m == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "meter is nil")
	}
	counter, err := m.Counter(MetricHTTPServerRequestTotal, "Total number of HTTP requests.")
	if err != nil {
		return nil, err
	}
	duration, err := m.Histogram(MetricHTTPServerDurationSeconds, "HTTP request duration in seconds.",
		WithUnit("s"), WithBuckets(defaultHTTPDurationBuckets))
	if err != nil {
		return nil, err
	}
	return &HTTPServerMetrics{requestTotal: counter, duration: duration}, nil
}

// Observe 记录一次请求
func (m *HTTPServerMetrics) Observe(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = UnknownRoute
	}
	labels := []Label{
		L(LabelMethod, strings.ToUpper(method)),
		L(LabelRoute, route),
		L(LabelStatusClass, HTTPStatusClass(status)),
		L(LabelOutcome, HTTPOutcome(status)),
	}
	m.requestTotal.Inc(ctx, labels...)
	m.duration.Record(ctx, d.Seconds(), labels...)
}

// GinHTTPMiddleware 返回记录 HTTP RED 指标的 gin 中间件
//
// 路由标签取 c.FullPath()，避免原始 URL 造成高基数。
func GinHTTPMiddleware(m *HTTPServerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.Observe(c.Request.Context(), c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// HTTPStatusClass 返回 1xx/2xx/3xx/4xx/5xx/unknown
func HTTPStatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// HTTPOutcome 2xx/3xx 视为成功
func HTTPOutcome(status int) string {
	if status >= http.StatusOK && status < http.StatusBadRequest {
		return OutcomeSuccess
	}
	return OutcomeError
}
