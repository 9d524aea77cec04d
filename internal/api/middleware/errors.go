package middleware

import (
	"net/http"

	"github.com/bilalalisyed0184/todo-app-phase2/internal/apperr"

	"github.com/gin-gonic/gin"
)

// StatusOf 将错误类别映射为 HTTP 状态码。
func StatusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteError 按错误类别写出 {"error": "..."}。
func WriteError(c *gin.Context, err error) {
	status := StatusOf(err)
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": apperr.MessageOf(err)})
}

// AbortWithError 写出错误并中止后续处理。
func AbortWithError(c *gin.Context, err error) {
	WriteError(c, err)
	c.Abort()
}

// WriteBindError 请求体解析失败时返回统一的 400，解析细节只写入日志。
func WriteBindError(c *gin.Context, op string, err error) {
	appErr := apperr.Validation(op, "invalid request body")
	appErr.Err = err
	WriteError(c, appErr)
}
