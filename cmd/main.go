// @title                      Incubator Dashboard API
// @version                    1.0
// @description                Telemetry, commands and batch tracking for an MQTT egg incubator.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "controlling_incubator/docs"
	"controlling_incubator/internal/broker"
	"controlling_incubator/internal/command"
	"controlling_incubator/internal/config"
	"controlling_incubator/internal/handlers"
	"controlling_incubator/internal/history"
	"controlling_incubator/internal/incubation"
	"controlling_incubator/internal/logger"
	"controlling_incubator/internal/metrics"
	"controlling_incubator/internal/models"
	"controlling_incubator/internal/repository"
	"controlling_incubator/internal/repository/db"
	"controlling_incubator/internal/server"
	"controlling_incubator/internal/service"
	"controlling_incubator/internal/telemetry"
)

const (
	configDir       = "configs"
	shutdownTimeout = 10 * time.Second
)

func main() {
	// load config.yml, .env and INCUBATOR_* overrides
	cfg, err := config.Load(configDir)
	if err != nil {
		logger.Get(logger.InfoLevel, logger.FormatConsole).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	// open DB
	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	if cfg.Auth.SigningKey == "" {
		log.Warnw("auth.signing_key is empty; sign-in will fail until INCUBATOR_AUTH_SIGNING_KEY is set")
	}
	if cfg.Credentials.Secret == "" {
		log.Warnw("credentials.secret is empty; remembered broker passwords are sealed with an empty key")
	}

	repos := repository.NewRepository(sqlDB, cfg.Incubation.Path, cfg.Credentials.Secret)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := service.NewEventLogService(repos.EventRepo, log.Named("events"))
	stopRetention, err := events.StartRetention(cfg.Events.PruneSchedule, cfg.Events.Retention)
	if err != nil {
		log.Fatalw("invalid events.prune_schedule", "schedule", cfg.Events.PruneSchedule, "err", err)
	}
	defer stopRetention()

	mgr := service.NewConnectionManager(managerConfig(cfg), stationDeps(ctx, cfg, repos, events, log))
	go mgr.Run(ctx)

	services := service.NewService(repos, mgr, events, service.Options{
		SigningKey: cfg.Auth.SigningKey,
		TokenTTL:   cfg.Auth.TokenTTL,
		Log:        log,
	})

	if cfg.MQTT.AutoConnect {
		fallback := models.Credentials{Username: cfg.MQTT.Username, Password: cfg.MQTT.Password}
		if _, err := services.AutoConnect(ctx, fallback, log.Named("startup")); err != nil {
			log.Warnw("auto connect failed", "err", err)
		}
	}

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, handlers.NewHandler(services, log.Named("http")), log)

	// graceful shutdown
	waitForShutdown(cancel, srv, mgr, log)
}

func managerConfig(cfg *config.Config) service.ManagerConfig {
	return service.ManagerConfig{
		Broker: broker.Options{
			Host:           cfg.MQTT.Host,
			Port:           cfg.MQTT.Port,
			KeepAlive:      cfg.MQTT.KeepAlive,
			ConnectTimeout: cfg.MQTT.ConnectTimeout,
			PublishTimeout: cfg.MQTT.PublishTimeout,
		},
		ClientIDPrefix:    cfg.MQTT.ClientIDPrefix,
		StatusTopic:       cfg.MQTT.StatusTopic,
		CommandTopic:      cfg.MQTT.CommandTopic,
		QoS:               byte(cfg.MQTT.QoS),
		HealthInterval:    cfg.Schedule.HealthInterval,
		RefreshInterval:   cfg.Schedule.RefreshInterval,
		MilestoneInterval: cfg.Schedule.MilestoneInterval,
		MaxAttempts:       cfg.Schedule.MaxAttempts,
		StaleAfter:        cfg.Schedule.StaleAfter,
	}
}

// stationDeps builds the loop-owned components. The metrics pusher is
// started here when enabled.
func stationDeps(ctx context.Context, cfg *config.Config, repos *repository.Repository, events *service.EventLogService, log *logger.Logger) service.Deps {
	catalog := command.NewCatalog(command.DefaultProfiles...)
	if cfg.Profiles.Path != "" {
		loaded, err := command.LoadCatalog(cfg.Profiles.Path)
		if err != nil {
			log.Warnw("profile catalog not loaded; using built-in profiles", "path", cfg.Profiles.Path, "err", err)
		} else {
			catalog = loaded
		}
	}

	buf := history.NewBuffer(cfg.History.MaxPoints)
	deps := service.Deps{
		History: buf,
		Processor: telemetry.NewProcessor(buf, telemetry.Options{
			TemperatureDelta: cfg.History.TemperatureDelta,
			HumidityDelta:    cfg.History.HumidityDelta,
		}, log.Named("telemetry")),
		Tracker: incubation.New(repos.Incubation, cfg.Device.TotalDays, log.Named("incubation")),
		Catalog: catalog,
		Targets: models.TargetSettings{
			TargetTemperature: cfg.Device.TargetTemperature,
			TargetHumidity:    cfg.Device.TargetHumidity,
			RelayOnTime:       cfg.Device.RelayOnTime,
			RelayInterval:     cfg.Device.RelayInterval,
			Buzzer:            models.BuzzerState(strings.ToUpper(cfg.Device.Buzzer)),
		},
		Recorder: events,
		Log:      log.Named("station"),
	}

	if cfg.Metrics.Enabled {
		pusher, err := metrics.New(metrics.Config{
			URL:          cfg.Metrics.URL,
			Username:     cfg.Metrics.Username,
			Password:     cfg.Metrics.Password,
			Job:          cfg.Metrics.Job,
			PushInterval: cfg.Metrics.PushInterval,
			BatchSize:    cfg.Metrics.BatchSize,
			BufferSize:   cfg.Metrics.BufferSize,
		}, log.Named("metrics"))
		if err != nil {
			log.Fatalw("failed to init metrics pusher", "err", err)
		}
		go pusher.Run(ctx)
		deps.Sink = pusher
	}
	return deps
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, mgr *service.ConnectionManager, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// allow in-flight requests to complete
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}

	// stop the station loop and background goroutines
	cancel()
	select {
	case <-mgr.Done():
	case <-ctx.Done():
		log.Warnw("station loop did not stop in time")
	}
}
