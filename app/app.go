// File: app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"go-task-api/config"
	"go-task-api/db"
	"go-task-api/handler"
	"go-task-api/logger"
	"go-task-api/repository"
	"go-task-api/router"
	"go-task-api/service"
	"go-task-api/storage"
	"go-task-api/telemetry"
	"net"
	"net/http"
	"time"
)

const limiterCleanupInterval = 5 * time.Minute

// Repositories groups the stores the services are built on.
type Repositories struct {
	Users    repository.IUserRepository
	Projects repository.IProjectRepository
	Tasks    repository.ITaskRepository
}

// App owns the HTTP server and every resource opened for it.
type App struct {
	cfg     *config.Config
	Router  http.Handler
	server  *http.Server
	limiter *handler.RateLimiter
	checks  map[string]handler.Pinger
	closers []func(context.Context) error
}

// New connects the configured stores and wires all layers together.
func New(ctx context.Context, cfg *config.Config) (a *App, err error) {
	var closers []func(context.Context) error
	defer func() {
		if err != nil {
			closeAll(context.Background(), closers)
		}
	}()

	checks := map[string]handler.Pinger{}
	var repos Repositories

	switch cfg.Database.Driver {
	case config.DriverMongo:
		client, database, err := db.ConnectMongo(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		closers = append(closers, client.Disconnect)
		if err := repository.EnsureMongoIndexes(ctx, database); err != nil {
			return nil, err
		}
		checks["database"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		repos = Repositories{
			Users:    repository.NewMongoUserRepository(database),
			Projects: repository.NewMongoProjectRepository(database),
			Tasks:    repository.NewMongoTaskRepository(database),
		}
	default:
		database, err := db.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func(context.Context) error { return database.Close() })
		if err := db.ApplyMigrations(database); err != nil {
			return nil, err
		}
		checks["database"] = database.PingContext
		repos = Repositories{
			Users:    repository.NewUserRepository(database),
			Projects: repository.NewProjectRepository(database),
			Tasks:    repository.NewTaskRepository(database),
		}
	}

	// Both stay nil interfaces when disabled; the services test for nil.
	var cache service.ICacheClient
	if cfg.Redis.Enabled {
		client, err := db.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		closers = append(closers, func(context.Context) error { return client.Close() })
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		cache = client
	}

	var avatars service.IAvatarStore
	if cfg.Storage.Enabled {
		store, err := storage.NewAvatarStore(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		avatars = store
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	closers = append(closers, shutdownTracing)

	a = newApp(cfg, repos, cache, avatars, checks)
	a.closers = closers
	return a, nil
}

// NewWithRepositories builds an App on already opened stores. cache and
// avatars may be nil.
func NewWithRepositories(cfg *config.Config, repos Repositories, cache service.ICacheClient, avatars service.IAvatarStore) *App {
	return newApp(cfg, repos, cache, avatars, nil)
}

func newApp(cfg *config.Config, repos Repositories, cache service.ICacheClient, avatars service.IAvatarStore, checks map[string]handler.Pinger) *App {
	a := &App{
		cfg:     cfg,
		limiter: handler.NewRateLimiter(cfg.RateLimit),
		checks:  checks,
	}
	a.Router = a.buildRouter(repos, cache, avatars)
	a.server = &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      a.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return a
}

func (a *App) buildRouter(repos Repositories, cache service.ICacheClient, avatars service.IAvatarStore) http.Handler {
	authService := service.NewAuthService(repos.Users, a.cfg.JWT, a.cfg.Auth)
	userService := service.NewUserService(repos.Users, authService, avatars)
	projectService := service.NewProjectService(repos.Projects, repos.Tasks, cache)
	taskService := service.NewTaskService(repos.Tasks, repos.Projects, repos.Users, cache)

	return router.NewRouter(router.Options{
		Users:          handler.NewUserHandler(userService, authService, handler.NewCookieOptions(a.cfg)),
		Projects:       handler.NewProjectHandler(projectService),
		Tasks:          handler.NewTaskHandler(taskService),
		Health:         handler.NewHealthHandler(a.checks),
		Verifier:       authService,
		RefreshLimiter: a.limiter,
		CORSOrigins:    a.cfg.Server.CORSOrigins,
		ServiceName:    a.cfg.Telemetry.ServiceName,
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go a.limiter.RunCleanup(cleanupCtx, limiterCleanupInterval)

	serveErr := make(chan error, 1)
	go func() {
		logger.Log.Infof("Server starting on %s", ln.Addr())
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")
	}

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Shutdown drains the HTTP server, then releases stores and the tracer.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}
	err = errors.Join(err, closeAll(ctx, a.closers))
	a.closers = nil
	if err == nil {
		logger.Log.Info("Server exited properly")
	}
	return err
}

func closeAll(ctx context.Context, closers []func(context.Context) error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
