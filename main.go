package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/rto-dispatch-api/config"
	"github.com/kendall-kelly/rto-dispatch-api/middleware"
	"github.com/kendall-kelly/rto-dispatch-api/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	slog.Info("starting RTO dispatch API server", "env", cfg.GoEnv)

	conn := config.NewConnector(cfg.DatabaseURL)
	db, err := conn.DB()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := config.Migrate(db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	slog.Info("database migration completed successfully")

	a, err := server.New(context.Background(), cfg, conn)
	if err != nil {
		slog.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := a.Router(middleware.EnsureValidToken(cfg))

	addr := ":" + cfg.Port
	slog.Info("server is running", "addr", addr)
	if err := router.Run(addr); err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}
