package middleware

import (
	"context"
	"strconv"
	"strings"

	"github.com/bilalalisyed0184/todo-app-phase2/internal/apperr"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/service"

	"github.com/gin-gonic/gin"
)

// 上下文键。
const (
	ContextUserID = "userID"
	ContextEmail  = "email"
)

// Authenticator 将 bearer 令牌解析为调用方身份。
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (service.Identity, error)
}

// AuthMiddleware 校验 Authorization 头并将 userID / email 写入上下文。
func AuthMiddleware(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		const op = "middleware.Auth"
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			AbortWithError(c, apperr.Unauthenticated(op, "missing authorization"))
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, apperr.Unauthenticated(op, "invalid authorization header"))
			return
		}

		identity, err := authn.Authenticate(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(ContextUserID, identity.UserID)
		c.Set(ContextEmail, identity.Email)
		c.Next()
	}
}

// RequireOwner 要求路径参数 param 与已认证用户一致。
//
// 参数不是合法的无符号整数返回 400，与身份不符返回 403。
func RequireOwner(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const op = "middleware.RequireOwner"
		pathID, err := strconv.ParseUint(c.Param(param), 10, 64)
		if err != nil {
			AbortWithError(c, apperr.Validation(op, "invalid "+param))
			return
		}
		userID, ok := UserIDFrom(c)
		if !ok {
			AbortWithError(c, apperr.Unauthenticated(op, "could not validate credentials"))
			return
		}
		if uint64(userID) != pathID {
			AbortWithError(c, apperr.Forbidden(op, "not authorized to access this user's tasks"))
			return
		}
		c.Next()
	}
}

// UserIDFrom 读取 AuthMiddleware 写入的用户 ID。
func UserIDFrom(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}
