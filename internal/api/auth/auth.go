package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/bilalalisyed0184/todo-app-phase2/internal/api/middleware"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/apperr"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/model"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/service"

	"github.com/gin-gonic/gin"
)

// Service 是 Handler 依赖的认证服务。
type Service interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	CurrentUser(ctx context.Context, userID uint) (*model.User, error)
}

var _ Service = (*service.AuthService)(nil)

// Handler 提供注册、登录、注销与当前用户接口。
type Handler struct {
	svc    Service
	logger *slog.Logger
}

// NewHandler 创建 Auth Handler。
func NewHandler(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type registerRequest struct {
	Email    string  `json:"email" binding:"required,email,max=255"`
	Name     *string `json:"name" binding:"omitempty,max=255"`
	Password string  `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token     string         `json:"token"`
	TokenType string         `json:"token_type"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      model.UserView `json:"user"`
}

// Register 创建新用户，返回 201 与用户信息（不含密码）。
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.WriteBindError(c, "auth.Register", err)
		return
	}

	user, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user.View())
}

// Login 校验用户并返回 JWT。
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.WriteBindError(c, "auth.Login", err)
		return
	}

	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{
		Token:     res.Token.Token,
		TokenType: "bearer",
		ExpiresAt: res.Token.ExpiresAt,
		User:      res.User.View(),
	})
}

// Logout 处理注销请求（令牌无状态，客户端丢弃即可）。
func (h *Handler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me 返回当前登录用户。
func (h *Handler) Me(c *gin.Context) {
	userID, ok := middleware.UserIDFrom(c)
	if !ok {
		middleware.WriteError(c, apperr.Unauthenticated("auth.Me", "could not validate credentials"))
		return
	}
	user, err := h.svc.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		if h.logger != nil && apperr.Is(err, apperr.KindInternal) {
			h.logger.Error("load current user failed", slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
		}
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, user.View())
}
