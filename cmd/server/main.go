// The main file of Wanna.

package main

import (
	"Wanna/internal/broadcast"
	"Wanna/internal/config"
	"Wanna/internal/gateway"
	"Wanna/internal/item"
	"Wanna/internal/list"
	"Wanna/internal/metrics"
	"Wanna/internal/notifier"
	"Wanna/internal/registry"
	"Wanna/internal/user"
	"Wanna/pkg/cleanup"
	"Wanna/pkg/db"
	"Wanna/pkg/globalcontext"
	"Wanna/pkg/log"
	"Wanna/pkg/middlewares"
	"Wanna/pkg/validation"
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// Indicates the current version of Wanna.
var Version = "1.0.0"

func main() {
	ctx := context.Background()
	// Development environment variables live in config/dev.env
	if os.Getenv("ENV") == "" || os.Getenv("ENV") == "DEV" {
		if err := config.LoadDevConfig("config/dev.env"); err != nil {
			log.New(Version).Warn().Err(err).Msg("Couldn't load dev.env, using the process environment")
		}
	}
	cfg, err := config.Load()
	if err != nil {
		log.New(Version).Fatal().Err(err).Msg("Couldn't load Wanna configuration")
	}
	logger := log.New(cfg.Version)
	logger.Info().Msgf("Welcome to Wanna: v%s", cfg.Version)
	logger.Info().Msgf("Wanna Environment: %s", cfg.Env)

	dbConn, err := db.NewDbConnection(ctx, logger, db.Options{
		Addr:         cfg.RedisURL(),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDBNumber,
		TxMaxRetries: cfg.RedisTxMaxRetries,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Couldn't create redis client")
	}
	// Sending a PING request to DB for connection status check.
	if err := dbConn.CheckDbConnection(ctx, logger); err != nil {
		logger.Fatal().Err(err).Msg("Redis client couldn't PING the redis-server.")
	}

	// Registering custom validations used by govalidator all over Wanna.
	validation.RegisterCustomValidations()

	// This is the preferred mode used by gin server in DEV environment.
	if cfg.Env == "DEV" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Data layer
	userRepo := user.NewRepository(dbConn)
	listRepo := list.NewRepository(dbConn)
	itemRepo := item.NewRepository(dbConn)
	metricsRepo := metrics.NewRepository(dbConn)
	presenceRepo := gateway.NewRepository(dbConn)

	userService := user.NewService(userRepo, logger)
	listService := list.NewService(listRepo, userRepo, itemRepo, logger)
	itemService := item.NewService(itemRepo, listService, logger)

	// Realtime update coordination
	reg := registry.New()
	collector := metrics.NewCollector()
	collector.TrackGauges(reg)
	hub := gateway.NewHub(cfg.AllowedOrigin, logger)
	router := broadcast.NewRouter(listService, reg, hub, logger, collector)
	ntf := notifier.New(router, logger, notifier.WithWindow(cfg.DebounceWindow), notifier.WithMetrics(collector))
	gw := gateway.New(userService, listService, itemService, reg, ntf, hub, presenceRepo, logger)
	metricsService := metrics.NewService(collector, metricsRepo, cfg.MetricsPersistInterval, logger)

	// Connections don't survive a restart, neither does presence.
	if err := presenceRepo.ResetClients(ctx, logger); err != nil {
		logger.Warn().Err(err).Msg("Couldn't reset websocket presence")
	}
	go metricsService.Run(ctx)

	// Initializing the gin server.
	server := gin.New()
	// Forcing gin to use custom Logger instead of the default one.
	server.Use(log.LoggerGinExtension(logger))
	server.Use(gin.Recovery())
	server.Use(middlewares.CORSMiddleware(cfg.AllowedOrigin))
	server.Use(globalcontext.UniqueIDMiddleware(logger))
	server.Use(middlewares.CorrelationMiddleware(logger))

	// Running Router() which routes all of the REST API groups and paths.
	Router(server, services{
		users:   userService,
		lists:   listService,
		items:   itemService,
		metrics: metricsService,
		hub:     hub,
		gateway: gw,
	}, logger)

	// Running the server with defined addr and port.
	srv := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: server,
	}

	// ListenAndServe is a blocking operation, putting it a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Gin server stopped unexpectedly")
		}
	}()
	logger.Info().Str("addr", cfg.ListenAddr()).Msg("Wanna is listening")

	// Graceful shutdown of Wanna server triggered due to system interruptions.
	// Connections close first, pending list updates are drained next, redis goes last.
	wait := cleanup.GracefulShutdown(ctx, logger, cfg.ShutdownTimeout,
		cleanup.Stage{
			"Gin": func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
			"Websocket-hub": func(ctx context.Context) error {
				return hub.Close(ctx)
			},
		},
		cleanup.Stage{
			"Notifier": func(ctx context.Context) error {
				return ntf.Shutdown(ctx)
			},
			"Metrics": func(ctx context.Context) error {
				return metricsService.Stop(ctx)
			},
		},
		cleanup.Stage{
			"Redis-server": func(ctx context.Context) error {
				return dbConn.CloseDbConnection(ctx)
			},
		},
	)
	<-wait
}
