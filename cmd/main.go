// cmd/main.go
package main

import (
	"context"
	"go-task-api/app"
	"go-task-api/config"
	"go-task-api/logger"
	"os"
	"os/signal"
	"syscall"
)

// @title           Go-Task API
// @version         1.0
// @description     Task and project management API with rotating refresh tokens.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT

// @host      localhost:8000
// @BasePath  /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Error loading configuration: %v", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	logger.Log.Info("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("Error starting application: %v", err)
	}

	if err := a.Run(ctx); err != nil {
		logger.Log.WithError(err).Error("Server stopped with error")
		os.Exit(1)
	}
}
