package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slotbook/internal/audit"
	"slotbook/internal/cache"
	"slotbook/internal/config"
	"slotbook/internal/database"
	"slotbook/internal/events"
	"slotbook/internal/grpcapi"
	"slotbook/internal/metrics"
	"slotbook/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default $SLOTBOOK_CONFIG or configs/config.yaml)")
	exportPath := flag.String("export", "", "write an xlsx export of all tables to this file and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootstrap := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
		bootstrap.Fatal().Err(err).Msg("failed to load config")
	}

	logger := newLogger(cfg.Logging)
	dbLogger := component(logger, "database")
	cacheLogger := component(logger, "cache")
	serviceLogger := component(logger, "service")
	apiLogger := component(logger, "grpc")

	db, err := database.NewDB(cfg.Database.Path, database.Options{
		MaxOpenConns:  cfg.Database.MaxOpenConns,
		BusyTimeoutMS: cfg.Database.BusyTimeoutMS,
	}, &dbLogger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *exportPath != "" {
		if err := audit.NewExporter(db, &logger).ExportToFile(ctx, *exportPath); err != nil {
			logger.Fatal().Err(err).Msg("export failed")
		}
		return
	}

	bus := events.NewEventBus(&logger)

	var (
		rdb          *redis.Client
		availability *cache.AvailabilityCache
	)
	if cfg.Redis.Address != "" && cfg.Redis.CacheTTLSeconds > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		availability = cache.NewAvailabilityCache(rdb, cfg.CacheTTL(), &cacheLogger)
		availability.SubscribeTo(bus)
		logger.Info().Str("address", cfg.Redis.Address).Msg("Availability cache enabled")
	}

	var svc *service.ReservationService
	if availability != nil {
		svc = service.NewReservationService(db, bus, availability, &serviceLogger)
	} else {
		svc = service.NewReservationService(db, bus, nil, &serviceLogger)
	}

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	backups := database.NewBackupService(db, cfg.Backup, &dbLogger)
	go backups.Start(ctx)

	grpcServer := grpcapi.NewGRPCServer(grpcapi.NewServer(svc, &apiLogger), grpcapi.ServerOptions{
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		RequestTimeout: cfg.RequestTimeout(),
	}, &apiLogger)

	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.Server.Addr).Msg("listen error")
	}

	go func() {
		<-ctx.Done()
		logger.Info().Msg("Shutting down")
		done := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			grpcServer.Stop()
		}
	}()

	logger.Info().Str("addr", lis.Addr().String()).Msg("Reservation server started")
	if err := grpcServer.Serve(lis); err != nil {
		logger.Error().Err(err).Msg("grpc server error")
	}
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	if cfg.Format == "json" {
		out = os.Stdout
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	serve(ctx, port, mux, "health", logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	serve(ctx, port, mux, "metrics", logger)
}

func serve(ctx context.Context, port int, handler http.Handler, name string, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msgf("%s server error", name)
	}
}
