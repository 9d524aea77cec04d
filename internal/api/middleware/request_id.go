package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderRequestID 请求 ID 头。
	HeaderRequestID = "X-Request-ID"
	// ContextRequestID 请求 ID 在 gin 上下文中的键。
	ContextRequestID = "requestID"

	maxRequestIDLen = 128
)

// RequestID 为每个请求分配 ID。客户端传入的 ID 会被沿用。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		c.Set(ContextRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestIDFrom 返回当前请求的 ID。
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(ContextRequestID)
}
