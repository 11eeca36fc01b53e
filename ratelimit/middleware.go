package ratelimit

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinMiddleware 返回 gin 限流中间件
//
// keyFunc 为 nil 时按客户端 IP 限流；key 为空或规则无效时放行。
// 限流器自身出错时同样放行，被限流的请求返回 429。
func GinMiddleware(limiter Limiter, keyFunc func(*gin.Context) string, limitFunc func(*gin.Context) Limit) gin.HandlerFunc {
	return GinMiddlewareN(limiter, keyFunc, limitFunc, nil)
}

// GinMiddlewareN 与 GinMiddleware 相同，每个请求消耗 costFunc 返回的令牌数
//
// costFunc 为 nil 或返回值小于 1 时按 1 计。消耗超过 Burst 的请求总是被拒绝。
func GinMiddlewareN(limiter Limiter, keyFunc func(*gin.Context) string, limitFunc func(*gin.Context) Limit, costFunc func(*gin.Context) int) gin.HandlerFunc {
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	return func(c *gin.Context) {
		key := keyFunc(c)
		limit := limitFunc(c)
		if key == "" || !limit.Valid() {
			c.Next()
			return
		}
		n := 1
		if costFunc != nil {
			n = max(costFunc(c), 1)
		}
		allowed, err := limiter.AllowN(c.Request.Context(), key, limit, n)
		if err == nil && !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
