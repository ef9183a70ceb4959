package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fleetpulse/fleet-alerting/internal/api"
	"github.com/fleetpulse/fleet-alerting/internal/core/ports"
	"github.com/fleetpulse/fleet-alerting/internal/core/service"
	"github.com/fleetpulse/fleet-alerting/internal/infrastructure/config"
	mongodb "github.com/fleetpulse/fleet-alerting/internal/infrastructure/db/mongo"
	postgresdb "github.com/fleetpulse/fleet-alerting/internal/infrastructure/db/postgres"
	redisdb "github.com/fleetpulse/fleet-alerting/internal/infrastructure/db/redis"
	"github.com/fleetpulse/fleet-alerting/internal/infrastructure/notify"
	"github.com/fleetpulse/fleet-alerting/internal/infrastructure/queue"
	"github.com/fleetpulse/fleet-alerting/internal/infrastructure/speedlimit"
	"github.com/fleetpulse/fleet-alerting/internal/provider"
	"github.com/fleetpulse/fleet-alerting/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	pool, err := postgresdb.Connect(ctx, postgresdb.Config{URI: cfg.Postgres.URI})
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pool.Close()

	// --- Repositories ---
	alertRepo := mongodb.NewAlertRepository(db)
	tripRepo := mongodb.NewTripRepository(db)
	fleetConfigRepo := mongodb.NewFleetConfigRepository(db)
	sampleWriter := postgresdb.NewBatchWriter(postgresdb.NewTelemetryRepository(pool), log)
	dedup := redisdb.NewAlertDedup(rdb)

	for _, idx := range []interface {
		EnsureIndexes(context.Context) error
	}{alertRepo, tripRepo} {
		if err := idx.EnsureIndexes(ctx); err != nil {
			log.Fatal().Err(err).Msg("index creation failed")
		}
	}

	// --- Notification channels ---
	channels := []ports.NotificationChannel{
		notify.NewWebhookChannel(),
		notify.NewEmailChannel(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}),
		notify.NewSMSChannel(notify.SMSConfig{
			GatewayURL: cfg.SMS.GatewayURL,
			APIKey:     cfg.SMS.APIKey,
			Sender:     cfg.SMS.Sender,
		}),
	}

	// --- Core services ---
	store := service.NewStateStore()
	tracker := service.NewGeofenceTracker(store)
	segmenter := service.NewTripSegmenter(store, tripRepo, cfg.Pipeline.TripGrace, log)
	resolver := service.NewSpeedLimitResolver(speedlimit.NewClient(cfg.SpeedLimitURL, cfg.SpeedLimitKey), log)
	evaluator := service.NewRuleEvaluator(resolver, log)
	alerts := service.NewAlertService(dedup, alertRepo, channels, cfg.Pipeline.DedupWindow, log)

	snapshots := service.NewSnapshotHolder(fleetConfigRepo, log)
	if err := snapshots.Reload(ctx); err != nil {
		log.Fatal().Err(err).Msg("initial config load failed")
	}

	pipeline := service.NewPipeline(store, tracker, segmenter, evaluator, alerts, snapshots, sampleWriter, cfg.Pipeline.HistoryWarmup, log)

	// --- Background workers ---
	dispatcher := queue.NewDispatcher(cfg.Pipeline.Workers, pipeline, log)
	dispatcher.Start(ctx)

	sweeper := service.NewSweeper(pipeline, cfg.Pipeline.SweepInterval, log)
	go sweeper.Run(ctx)
	go resolver.RunEviction(ctx)
	go sampleWriter.Run(ctx)

	registry := provider.DefaultRegistry()
	log.Info().Strs("providers", registry.Kinds()).Msg("provider adapters registered")

	if cfg.Kafka.Enabled {
		consumer := queue.NewConsumer(queue.ConsumerConfig{
			Brokers:         strings.Split(cfg.Kafka.Brokers, ","),
			Topic:           cfg.Kafka.Topic,
			GroupID:         cfg.Kafka.GroupID,
			DefaultProvider: cfg.Kafka.DefaultProvider,
		}, registry, dispatcher, log)
		defer func() { _ = consumer.Close() }()
		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Error().Err(err).Msg("kafka consumer stopped")
			}
		}()
	}

	// SIGHUP reloads geofences, rules, and maintenance records without a
	// restart; the next event picks up the new snapshot.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			if err := pipeline.ReloadConfig(ctx); err != nil {
				log.Error().Err(err).Msg("config reload failed")
				continue
			}
			log.Info().Msg("configuration reloaded")
		}
	}()

	// --- HTTP server ---
	e := api.NewRouter(api.Deps{
		Mongo:      db,
		Redis:      rdb,
		Postgres:   pool,
		Registry:   registry,
		Dispatcher: dispatcher,
		Reloader:   pipeline,
		States:     store,
		JWTSecret:  cfg.JWTSecret,
		Log:        log,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server start failed")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("fleet alerting service started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
