package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/tablegen/xerrors"
)

func newLimiter(t *testing.T) Limiter {
	t.Helper()
	l, err := New(nil)
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l
}

func TestAllow(t *testing.T) {
	l := newLimiter(t)
	ctx := context.Background()
	limit := Limit{Rate: 0.001, Burst: 2}

	for range 2 {
		ok, err := l.Allow(ctx, "orders", limit)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "orders", limit)
	require.NoError(t, err)
	assert.False(t, ok)

	// 不同 key 互不影响
	ok, err = l.Allow(ctx, "users", limit)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllowN(t *testing.T) {
	l := newLimiter(t)
	ctx := context.Background()

	ok, err := l.AllowN(ctx, "orders", Limit{Rate: 0.001, Burst: 5}, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l.AllowN(ctx, "orders", Limit{Rate: 0.001, Burst: 5}, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllow_InvalidInput(t *testing.T) {
	l := newLimiter(t)
	ctx := context.Background()

	_, err := l.Allow(ctx, "", Limit{Rate: 1, Burst: 1})
	assert.ErrorIs(t, err, ErrKeyEmpty)
	_, err = l.Allow(ctx, "k", Limit{})
	assert.ErrorIs(t, err, ErrInvalidLimit)
	_, err = l.AllowN(ctx, "k", Limit{Rate: 1, Burst: 1}, 0)
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := newLimiter(t)

	r := gin.New()
	r.GET("/v1/ids/:entity",
		GinMiddleware(l, func(c *gin.Context) string { return c.Param("entity") },
			func(c *gin.Context) Limit {
				if c.Param("entity") == "free" {
					return Limit{}
				}
				return Limit{Rate: 0.001, Burst: 1}
			}),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(path string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}
	assert.Equal(t, http.StatusOK, get("/v1/ids/orders"))
	assert.Equal(t, http.StatusTooManyRequests, get("/v1/ids/orders"))
	assert.Equal(t, http.StatusOK, get("/v1/ids/users"))
	for range 3 {
		assert.Equal(t, http.StatusOK, get("/v1/ids/free"))
	}
}

func TestGinMiddlewareN(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := newLimiter(t)

	r := gin.New()
	r.GET("/v1/ids/:entity",
		GinMiddlewareN(l, func(c *gin.Context) string { return c.Param("entity") },
			func(*gin.Context) Limit { return Limit{Rate: 0.001, Burst: 5} },
			func(c *gin.Context) int {
				n, _ := strconv.Atoi(c.Query("count"))
				return n
			}),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(path string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}
	assert.Equal(t, http.StatusOK, get("/v1/ids/orders?count=3"))
	assert.Equal(t, http.StatusTooManyRequests, get("/v1/ids/orders?count=3"))
	assert.Equal(t, http.StatusOK, get("/v1/ids/orders"))
	assert.Equal(t, http.StatusOK, get("/v1/ids/orders?count=0"))
	assert.Equal(t, http.StatusTooManyRequests, get("/v1/ids/orders"))
	assert.Equal(t, http.StatusTooManyRequests, get("/v1/ids/users?count=6"))
}
