package middleware

import (
	"time"

	"github.com/bilalalisyed0184/todo-app-phase2/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics 记录请求数、耗时与并发数。路由使用模板路径，避免 ID 造成标签爆炸。
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.HTTPInFlight.Inc()
		defer metrics.HTTPInFlight.Dec()

		c.Next()

		metrics.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
