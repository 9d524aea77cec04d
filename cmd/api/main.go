package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bilalalisyed0184/todo-app-phase2/internal/api"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/config"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/pkg/logger"
	"github.com/bilalalisyed0184/todo-app-phase2/internal/store"
)

// main 是 API 服务的入口函数。
//
// 它负责：
// 1. 加载并校验配置
// 2. 初始化日志
// 3. 连接数据库并执行迁移
// 4. 启动 HTTP 服务并在收到信号后优雅退出
func main() {
	configPath := flag.String("config", "configs/config.json", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	appLogger := logger.New(logger.Options{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
		File:   cfg.App.LogFile,
	})
	if cfg.Security.JWTSecret == config.DefaultJWTSecret {
		appLogger.Warn("using default jwt secret, set JWT_SECRET outside local development")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.Database, appLogger)
	if err != nil {
		appLogger.Error("open database failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := api.NewServer(cfg, appLogger, db)
	if err != nil {
		appLogger.Error("init server failed", slog.String("error", err.Error()))
		_ = store.Close(db)
		os.Exit(1)
	}

	if cfg.App.SeedDemo {
		if err := srv.SeedDemoData(ctx); err != nil {
			appLogger.Error("seed demo data failed", slog.String("error", err.Error()))
			_ = srv.Close()
			os.Exit(1)
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("api server listening", slog.String("addr", cfg.App.HTTPAddr), slog.String("env", cfg.App.Env))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("server run failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info("shutting down api server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("http shutdown failed", slog.String("error", err.Error()))
	}
	if err := srv.Close(); err != nil {
		appLogger.Error("close resources failed", slog.String("error", err.Error()))
	}
}
