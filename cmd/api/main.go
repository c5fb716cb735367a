// Package main is the entry point for the floodwatch API server.
//
// It loads configuration, opens the database, wires the decision engine and
// runs three things side by side until SIGINT or SIGTERM: the HTTP server,
// the per-user recurring scheduler and, when a bot token is configured, the
// Telegram bot listener.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"floodwatch/internal/api/handlers"
	"floodwatch/internal/app"
	"floodwatch/internal/cache"
	"floodwatch/internal/config"
	"floodwatch/internal/core"
	"floodwatch/internal/db"
	ncore "floodwatch/internal/notifications/core"
	"floodwatch/internal/scheduler"
	"floodwatch/internal/telegrambot"
	"floodwatch/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.SlogLevel())
	logger.Info("floodwatch API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return fmt.Errorf("migrating database: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deliveryMetrics, err := newDeliveryMetrics(ctx, cfg, reg, logger)
	if err != nil {
		pool.Close()
		return err
	}

	engine, err := app.Build(ctx, cfg, pool, app.Options{Metrics: deliveryMetrics, Logger: logger})
	if err != nil {
		pool.Close()
		return fmt.Errorf("building engine: %w", err)
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		pool.Close()
		return fmt.Errorf("connecting to redis: %w", err)
	}

	var guard scheduler.TickGuard = engine.Repos.TickLocks
	if redisClient != nil {
		guard = cache.NewTickGuard(redisClient)
	}
	sched := scheduler.New(scheduler.Config{
		Settings:        engine.Repos.Settings,
		Check:           scheduler.CheckFunc(engine.Service.RunCycle),
		Guard:           guard,
		GuardTTL:        cfg.Redis.GuardTTL,
		Owner:           instanceID(),
		DefaultInterval: cfg.Scheduler.DefaultInterval,
		CycleTimeout:    cfg.Scheduler.CycleTimeout,
		Logger:          logger,
	})

	srv, err := buildServer(cfg, logger, serverDeps{
		Checker:       engine.Service,
		Locations:     engine.Repos.Locations,
		Scheduler:     sched,
		Profiles:      engine.Repos.Profiles,
		TelegramUsers: engine.Repos.TelegramUsers,
		Registry:      reg,
		Probes:        healthProbes(pool.Ping, redisClient),
	})
	if err != nil {
		pool.Close()
		return err
	}
	if redisClient != nil {
		srv.RateLimitStore = cache.NewRateLimiter(redisClient)
		srv.Closers = append(srv.Closers, redisClient)
	}
	srv.Closers = append(srv.Closers, closerFunc(func() error { pool.Close(); return nil }))

	if cfg.Scheduler.Enabled {
		if err := sched.Start(ctx); err != nil {
			logger.Error("scheduler failed to start; on-demand checks still served", "error", err)
		}
	}

	listenerDone := make(chan struct{})
	if tg := engine.Clients.Telegram; tg != nil && cfg.Telegram.ListenerEnabled {
		listener := telegrambot.New(telegrambot.Config{
			Source:      tg.Bot(),
			Sender:      tg,
			Profiles:    engine.Repos.Profiles,
			Chats:       engine.Repos.TelegramUsers,
			PollTimeout: cfg.Telegram.PollTimeout,
			Logger:      logger,
		})
		go func() {
			defer close(listenerDone)
			if err := listener.Run(ctx); err != nil {
				logger.Error("telegram listener stopped", "error", err)
			}
		}()
	} else {
		close(listenerDone)
	}

	err = runHTTPServer(ctx, srv, cfg, logger)

	sched.Stop()
	stop()
	<-listenerDone
	return err
}

// serverDeps are the collaborators the HTTP surface needs.
type serverDeps struct {
	Checker       handlers.AlertChecker
	Locations     handlers.LocationLister
	Scheduler     handlers.SchedulerControl
	Profiles      handlers.TelegramProfiles
	TelegramUsers handlers.TelegramChats
	Registry      *prometheus.Registry
	Probes        []core.HealthProbe
}

// buildServer creates the chassis, mounts every handler and returns the
// server ready to serve.
func buildServer(cfg *config.Config, logger *slog.Logger, d serverDeps) (*core.Server, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	if d.Registry != nil {
		srv.Metrics = core.NewHTTPMetrics(d.Registry)
		srv.MetricsHandler = promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{Registry: d.Registry})
	}
	srv.HealthProbes = d.Probes

	alertsHandler := handlers.NewAlertsHandler(d.Checker, srv.Validator, logger)
	locationsHandler := handlers.NewLocationsHandler(d.Locations, srv.Validator)
	schedulerHandler := handlers.NewSchedulerHandler(d.Scheduler, srv.Validator, logger)
	telegramHandler := handlers.NewTelegramHandler(d.Profiles, d.TelegramUsers, srv.Validator, logger)
	rainfallHandler := handlers.NewRainfallHandler(srv.Validator, types.RealClock{})

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		alertsHandler.RegisterRoutes,
		locationsHandler.RegisterRoutes,
		schedulerHandler.RegisterRoutes,
		telegramHandler.RegisterRoutes,
		rainfallHandler.RegisterRoutes,
	)
	srv.MountRoutes()
	return srv, nil
}

func healthProbes(dbPing func(context.Context) error, rdb *redis.Client) []core.HealthProbe {
	probes := []core.HealthProbe{core.ProbeFunc{ProbeName: "database", Fn: dbPing}}
	if rdb != nil {
		probes = append(probes, core.ProbeFunc{ProbeName: "redis", Fn: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	return probes
}

// newDeliveryMetrics picks CloudWatch when configured, else Prometheus on reg.
func newDeliveryMetrics(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (ncore.NotificationMetrics, error) {
	if !cfg.Metrics.CloudWatch {
		return ncore.NewPrometheusMetrics(reg), nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	client := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})
	return ncore.NewCloudWatchMetrics(client, cfg.Metrics.Namespace, types.NewSlogLogger(logger)), nil
}

// runHTTPServer serves until ctx is cancelled or the listener fails, then
// drains connections and releases server resources.
func runHTTPServer(ctx context.Context, srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return errors.Join(runErr, fmt.Errorf("server shutdown: %w", err))
	}

	logger.Info("server stopped cleanly")
	return runErr
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// instanceID names this replica in tick guard claims.
func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "floodwatch"
	}
	return host + "-" + uuid.NewString()[:8]
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var _ io.Closer = closerFunc(nil)
