package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bilalalisyed0184/todo-app-phase2/internal/api/auth"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/api/middleware"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/config"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/model"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/pkg/password"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/pkg/token"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/service"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、认证与任务服务以及 Gin 路由引擎。
type Server struct {
	cfg         *config.Config
	logger      *slog.Logger
	db          *gorm.DB
	router      *gin.Engine
	auth        *auth.Handler
	authn       middleware.Authenticator
	registrar   Registrar
	taskService TaskService
	health      func(ctx context.Context) error
}

// TaskService 是任务接口依赖的业务服务。
type TaskService interface {
	ListTasks(ctx context.Context, userID uint, opts service.ListOptions) ([]model.Task, error)
	GetTask(ctx context.Context, userID, taskID uint) (*model.Task, error)
	CreateTask(ctx context.Context, userID uint, in service.CreateTaskInput) (*model.Task, error)
	UpdateTask(ctx context.Context, userID, taskID uint, in service.UpdateTaskInput) (*model.Task, error)
	DeleteTask(ctx context.Context, userID, taskID uint) error
	ToggleTask(ctx context.Context, userID, taskID uint) (*model.Task, error)
}

// Registrar 创建用户，用于初始化演示数据。
type Registrar interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
}

var (
	_ TaskService = (*service.TaskService)(nil)
	_ Registrar   = (*service.AuthService)(nil)
)

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 基于已打开的数据库构建存储与业务服务
// 2. 初始化令牌服务与密码哈希
// 3. 初始化 Gin 路由引擎
func NewServer(cfg *config.Config, logger *slog.Logger, db *gorm.DB) (*Server, error) {
	tokens, err := token.NewService(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("init token service: %w", err)
	}
	hasher := password.NewHasher(cfg.Security.BcryptCost)

	authService := service.NewAuthService(store.NewUserStore(db), hasher, tokens, logger)
	taskService := service.NewTaskService(store.NewTaskStore(db), logger)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	s := &Server{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		router:      r,
		auth:        auth.NewHandler(authService, logger),
		authn:       authService,
		registrar:   authService,
		taskService: taskService,
		health: func(ctx context.Context) error {
			return store.Ping(ctx, db)
		},
	}
	s.registerRoutes()
	return s, nil
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// Close 关闭数据库连接。
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return store.Close(s.db)
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestLogger(s.logger))
	s.router.Use(middleware.Metrics())
	s.router.Use(middleware.CORS(s.cfg.CORS.AllowedOrigins))

	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/healthz", s.handleHealthz)

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	api := s.router.Group(s.cfg.App.APIPrefix)
	guard := middleware.AuthMiddleware(s.authn)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", s.auth.Register)
	authGroup.POST("/login", s.auth.Login)
	authGroup.POST("/logout", s.auth.Logout)
	authGroup.GET("/me", guard, s.auth.Me)

	tasks := api.Group("/:user_id/tasks")
	tasks.Use(guard, middleware.RequireOwner("user_id"))
	tasks.GET("", s.handleListTasks)
	tasks.POST("", s.handleCreateTask)
	tasks.GET("/:task_id", s.handleGetTask)
	tasks.PUT("/:task_id", s.handleUpdateTask)
	tasks.PATCH("/:task_id/toggle", s.handleToggleTask)
	tasks.DELETE("/:task_id", s.handleDeleteTask)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.health == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if err := s.health(ctx); err != nil {
		if s.logger != nil {
			s.logger.Warn("health check failed", slog.String("error", err.Error()))
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
