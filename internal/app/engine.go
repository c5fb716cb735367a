// Package app assembles the alert decision engine from configuration. The
// API server and both Lambda entry points share this wiring so a check
// behaves the same wherever it is triggered.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"floodwatch/internal/alerts"
	"floodwatch/internal/config"
	"floodwatch/internal/db"
	"floodwatch/internal/external"
	ncore "floodwatch/internal/notifications/core"
	"floodwatch/internal/notifications/email"
	"floodwatch/internal/notifications/telegram"
	"floodwatch/internal/retry"
	"floodwatch/internal/sensors"
	"floodwatch/internal/types"
)

// Repositories groups the stores built over one connection.
type Repositories struct {
	Accounts      *db.AccountRepository
	Profiles      *db.ProfileRepository
	Settings      *db.SettingsRepository
	Locations     *db.LocationRepository
	Sensors       *db.SensorRepository
	AlertLogs     *db.AlertLogRepository
	TelegramUsers *db.TelegramUserRepository
	TickLocks     *db.TickLockRepository
}

// NewRepositories builds every repository over conn.
func NewRepositories(conn db.DBTX) *Repositories {
	return &Repositories{
		Accounts:      db.NewAccountRepository(conn),
		Profiles:      db.NewProfileRepository(conn),
		Settings:      db.NewSettingsRepository(conn),
		Locations:     db.NewLocationRepository(conn),
		Sensors:       db.NewSensorRepository(conn),
		AlertLogs:     db.NewAlertLogRepository(conn),
		TelegramUsers: db.NewTelegramUserRepository(conn),
		TickLocks:     db.NewTickLockRepository(conn),
	}
}

// Engine is the assembled decision engine.
type Engine struct {
	Repos      *Repositories
	Clients    *external.Clients
	Aggregator *sensors.Aggregator
	Analyzer   *alerts.Analyzer
	Dispatcher *alerts.Dispatcher
	Service    *alerts.Service
}

// Options carries the pieces that differ between entry points.
type Options struct {
	// Metrics records delivery outcomes. Nil disables them.
	Metrics ncore.NotificationMetrics
	Clock   types.Clock
	Logger  *slog.Logger
}

// NewEngine wires the engine over conn using clients built from cfg.
func NewEngine(cfg *config.Config, conn db.DBTX, clients *external.Clients, opts Options) (*Engine, error) {
	if cfg == nil || conn == nil || clients == nil {
		return nil, fmt.Errorf("app: config, connection and clients are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	typed := types.NewSlogLogger(logger)
	repos := NewRepositories(conn)
	repos.Sensors.WithLogger(logger)

	aggregator := sensors.NewAggregator(sensors.AggregatorConfig{
		Live:    repos.Sensors,
		Zones:   repos.Sensors,
		Catalog: sensors.NewCachedCatalog(sensors.FileCatalog{Path: cfg.Catalog.Path}),
		Logger:  logger,
		Clock:   clock,
	})

	analyzer := alerts.NewAnalyzer(alerts.AnalyzerConfig{
		Settings:  repos.Settings,
		Profiles:  repos.Profiles,
		Locations: repos.Locations,
		Identity:  repos.Accounts,
		Sensors:   aggregator,
		Clock:     clock,
		Logger:    logger,
	})

	renderer, err := email.NewRenderer(email.RendererConfig{AppURL: cfg.Email.AppURL})
	if err != nil {
		return nil, err
	}

	dcfg := alerts.DispatcherConfig{
		Email: email.NewChannel(email.ChannelConfig{
			Provider: clients.Email,
			Renderer: renderer,
			Logger:   typed,
		}),
		Logs:      repos.AlertLogs,
		Locations: repos.Locations,
		Metrics:   opts.Metrics,
		Clock:     clock,
		Logger:    logger,
	}
	// Typed nil clients must not reach the interfaces.
	if clients.Content != nil {
		dcfg.Content = clients.Content
	}
	if clients.Telegram != nil {
		dcfg.Telegram = telegram.NewChannel(telegram.ChannelConfig{
			Sender: clients.Telegram,
			Logger: typed,
			Clock:  clock,
		})
		dcfg.Links = telegram.NewLinks(repos.Profiles, repos.TelegramUsers, retry.DefaultPolicy(), typed)
	}
	dispatcher := alerts.NewDispatcher(dcfg)

	return &Engine{
		Repos:      repos,
		Clients:    clients,
		Aggregator: aggregator,
		Analyzer:   analyzer,
		Dispatcher: dispatcher,
		Service:    alerts.NewService(analyzer, dispatcher, repos.Settings, repos.Settings, logger),
	}, nil
}

// Build builds the vendor clients from cfg and wires the engine over conn.
func Build(ctx context.Context, cfg *config.Config, conn db.DBTX, opts Options) (*Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clients, err := external.NewClients(cfg, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("app: build clients: %w", err)
	}
	return NewEngine(cfg, conn, clients, opts)
}
