package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/tablegen/breaker"
	"github.com/ceyewan/tablegen/idgen"
	"github.com/ceyewan/tablegen/metrics"
	"github.com/ceyewan/tablegen/ratelimit"
	"github.com/ceyewan/tablegen/testkit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tablegen.yaml"), []byte(content), 0o600))
	return dir
}

func newTestApp(t *testing.T, mutate ...func(*AppConfig)) *app {
	t.Helper()
	cfg := &AppConfig{
		Store: StoreConfig{Driver: StoreSQLite, SQLite: *testkit.NewSQLiteConfig()},
		Generators: map[string]idgen.Params{
			"orders": {idgen.ParamPreferSegmentTable: true},
			"users":  {idgen.ParamPreferSegmentTable: true, idgen.ParamIncrementSize: 10},
		},
	}
	for _, fn := range mutate {
		fn(cfg)
	}
	cfg.setDefaults()
	require.NoError(t, cfg.validate())

	meter, err := metrics.New(&metrics.Config{Enabled: true})
	require.NoError(t, err)
	a, err := newApp(context.Background(), cfg, testkit.NewLogger(), meter)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	require.NoError(t, a.EnsureSchema(context.Background()))
	return a
}

func TestLoadConfig(t *testing.T) {
	dir := writeConfig(t, `
store:
  driver: sqlite
  sqlite:
    path: "file::memory:"
generators:
  orders:
    increment_size: 50
    optimizer: pooled-lo
  Invoices:
    target_table: Invoices
server:
  addr: ":8080"
`)
	t.Setenv("TABLEGEN_SERVER_ADDR", ":9999")

	cfg, loader, err := loadConfig(context.Background(), dir, testkit.NewLogger())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tablegen.yaml"), loader.ConfigFileUsed())

	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.True(t, *cfg.Server.EnsureSchema)
	assert.Equal(t, serviceName, cfg.Metrics.ServiceName)

	orders := cfg.Generators["orders"]
	size, err := orders.Int64(idgen.ParamIncrementSize, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(50), size)
	optimizer, err := orders.String(idgen.ParamOptimizer, "")
	require.NoError(t, err)
	assert.Equal(t, "pooled-lo", optimizer)

	// 实体名被小写，参数值保持原样
	require.NotContains(t, cfg.Generators, "Invoices")
	target, err := cfg.Generators["invoices"].String(idgen.ParamTargetTable, "")
	require.NoError(t, err)
	assert.Equal(t, "Invoices", target)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "no generators", content: "store:\n  driver: sqlite\n"},
		{name: "unknown driver", content: "store:\n  driver: oracle\ngenerators:\n  orders:\n    optimizer: none\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := loadConfig(context.Background(), writeConfig(t, tt.content), testkit.NewLogger())
			assert.Error(t, err)
		})
	}
}

func newTestRouter(t *testing.T, a *app) func(path string) *httptest.ResponseRecorder {
	t.Helper()
	limiter, err := ratelimit.New(nil)
	require.NoError(t, err)
	t.Cleanup(limiter.Close)
	router, err := newRouter(a, limiter)
	require.NoError(t, err)

	return func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}
}

func TestRouter(t *testing.T) {
	get := newTestRouter(t, newTestApp(t))

	w := get("/v1/ids/orders?count=3")
	require.Equal(t, http.StatusOK, w.Code)
	var resp idsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, idsResponse{Entity: "orders", IDs: []int64{1, 2, 3}}, resp)

	w = get("/v1/ids/users")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []int64{1}, resp.IDs)

	assert.Equal(t, http.StatusNotFound, get("/v1/ids/missing").Code)
	assert.Equal(t, http.StatusBadRequest, get("/v1/ids/orders?count=0").Code)
	assert.Equal(t, http.StatusBadRequest, get("/v1/ids/orders?count=abc").Code)
	assert.Equal(t, http.StatusBadRequest, get("/v1/ids/orders?count=1001").Code)

	assert.Equal(t, http.StatusOK, get("/healthz").Code)

	w = get("/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "idgen_generated")
	assert.Contains(t, w.Body.String(), "http_server_requests")
}

func TestRouter_RateLimit(t *testing.T) {
	get := newTestRouter(t, newTestApp(t, func(cfg *AppConfig) {
		cfg.Server.RateLimit = ratelimit.Limit{Rate: 0.001, Burst: 2}
	}))

	assert.Equal(t, http.StatusOK, get("/v1/ids/orders").Code)
	assert.Equal(t, http.StatusOK, get("/v1/ids/orders").Code)
	assert.Equal(t, http.StatusTooManyRequests, get("/v1/ids/orders").Code)
	assert.Equal(t, http.StatusOK, get("/v1/ids/users").Code)
	assert.Equal(t, http.StatusOK, get("/healthz").Code)
}

func TestRouter_RateLimitCountsIDs(t *testing.T) {
	get := newTestRouter(t, newTestApp(t, func(cfg *AppConfig) {
		cfg.Server.RateLimit = ratelimit.Limit{Rate: 0.001, Burst: 10}
	}))

	assert.Equal(t, http.StatusOK, get("/v1/ids/orders?count=8").Code)
	assert.Equal(t, http.StatusTooManyRequests, get("/v1/ids/orders?count=3").Code)
	assert.Equal(t, http.StatusOK, get("/v1/ids/orders?count=2").Code)
	assert.Equal(t, http.StatusTooManyRequests, get("/v1/ids/orders").Code)
	assert.Equal(t, http.StatusTooManyRequests, get("/v1/ids/users?count=11").Code)
}

func TestRouter_BreakerOpen(t *testing.T) {
	a := newTestApp(t, func(cfg *AppConfig) {
		cfg.Breaker = &breaker.Config{MinimumRequests: 1, FailureRatio: 0.5, Timeout: time.Hour}
	})
	get := newTestRouter(t, a)
	require.NoError(t, runSchema(context.Background(), a, "drop", true, &bytes.Buffer{}))

	assert.Equal(t, http.StatusInternalServerError, get("/v1/ids/orders").Code)
	w := get("/v1/ids/orders")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "circuit breaker is open")
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, httpStatus(idgen.ErrUnknownEntity))
	assert.Equal(t, http.StatusBadRequest, httpStatus(idgen.ErrInvalidConfig))
	assert.Equal(t, http.StatusConflict, httpStatus(idgen.ErrIdentifierOverflow))
	assert.Equal(t, http.StatusServiceUnavailable, httpStatus(context.Canceled))
	assert.Equal(t, http.StatusInternalServerError, httpStatus(idgen.ErrStoreFailure))
}

func TestRunSchema(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, runSchema(ctx, a, "create", false, &out))
	assert.Equal(t,
		"create table hibernate_sequences (sequence_name varchar(255) not null, next_val bigint, primary key (sequence_name));\n",
		out.String())

	out.Reset()
	require.NoError(t, runSchema(ctx, a, "drop", false, &out))
	assert.Equal(t, "drop table if exists hibernate_sequences;\n", out.String())

	require.NoError(t, runSchema(ctx, a, "drop", true, &out))
	assert.False(t, a.database.DB(ctx).Migrator().HasTable("hibernate_sequences"))

	require.NoError(t, runSchema(ctx, a, "create", true, &out))
	assert.True(t, a.database.DB(ctx).Migrator().HasTable("hibernate_sequences"))
}

func TestNextCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ids.db")
	dir := writeConfig(t, `
log:
  level: error
store:
  driver: sqlite
  sqlite:
    path: "`+dbPath+`"
generators:
  orders:
    prefer_entity_table_as_segment_value: true
`)

	run := func(args ...string) string {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(append([]string{"--config", dir}, args...))
		require.NoError(t, cmd.Execute())
		return out.String()
	}

	assert.Equal(t, "1\n2\n3\n", run("next", "orders", "-n", "3"))
	// 计数器持久化在段表中，新进程从已分配的位置继续
	assert.Equal(t, "4\n", run("next", "orders"))
}

func TestNextCommand_UnknownEntity(t *testing.T) {
	dir := writeConfig(t, `
log:
  level: error
store:
  driver: sqlite
  sqlite:
    path: "`+filepath.Join(t.TempDir(), "ids.db")+`"
generators:
  orders:
    optimizer: none
`)
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", dir, "next", "users"})
	assert.ErrorIs(t, cmd.Execute(), idgen.ErrUnknownEntity)
}
