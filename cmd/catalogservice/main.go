// catalog-service/cmd/catalogservice/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAPI "catalog-service/internal/api"
	"catalog-service/internal/cache"
	"catalog-service/internal/config"
	"catalog-service/internal/domain"
	"catalog-service/internal/events"
	grpcServer "catalog-service/internal/grpc"
	"catalog-service/internal/seed"
	"catalog-service/internal/store"
	"catalog-service/pkg/auth"

	"google.golang.org/grpc"
)

const devJWTSecret = "catalog-dev-only-secret-do-not-use-in-production"

func main() {
	if err := run(); err != nil {
		slog.Error("Catalog service stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	connectCtx, cancelConnect := context.WithTimeout(ctx, 15*time.Second)
	backend, err := store.Open(connectCtx, cfg.DB.Driver, cfg.DB.URL, cfg.DB.MongoDatabase, logger)
	cancelConnect()
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := backend.Close(closeCtx); err != nil {
			logger.Error("Failed to close storage backend", slog.String("error", err.Error()))
		}
	}()

	if cfg.DB.Driver == store.DriverMemory && cfg.Seed.AdminPassword != "" {
		if _, err := seed.EnsureAdmin(ctx, backend.Users, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword, logger); err != nil {
			return err
		}
	}

	movies := backend.Movies
	if cfg.Redis.Addr != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		movies = cache.NewCachedMovieStore(movies, redisClient, cfg.Redis.StatsTTL, logger)
		logger.Info("Stats cache enabled", slog.String("addr", cfg.Redis.Addr), slog.Duration("ttl", cfg.Redis.StatsTTL))
	}

	var publisher events.Publisher = events.Discard{}
	if cfg.AMQP.URL != "" {
		rabbit, err := events.NewRabbitPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err != nil {
			return err
		}
		defer rabbit.Close()
		publisher = rabbit
	}

	// --- Auth ---
	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = devJWTSecret
		logger.Warn("JWT_SECRET not set, using the development key. Do not run like this outside local development.")
	}
	tokenManager, err := auth.NewTokenManager(jwtSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to create token manager: %w", err)
	}

	// --- gRPC ---
	var grpcSrv *grpc.Server
	if cfg.GRPC.Enabled {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPC.Port))
		if err != nil {
			return fmt.Errorf("failed to listen for gRPC on port %d: %w", cfg.GRPC.Port, err)
		}
		grpcSrv = grpcServer.NewGRPCServer(grpcServer.NewServer(backend.Movies, logger), logger)
		go func() {
			logger.Info("Catalog gRPC server starting", slog.Int("port", cfg.GRPC.Port))
			if err := grpcSrv.Serve(lis); err != nil {
				logger.Error("Catalog gRPC server Serve() failed", slog.String("error", err.Error()))
			}
		}()
	}

	// --- HTTP ---
	validator := domain.NewValidator()
	metrics := httpAPI.NewMetrics()
	router := httpAPI.NewRouter(
		httpAPI.NewMovieHandler(movies, logger, validator, publisher, metrics),
		httpAPI.NewAuthHandler(backend.Users, logger, validator, tokenManager),
		httpAPI.NewGate(backend.Users, tokenManager, logger),
		logger,
		httpAPI.RouterOptions{
			AllowedOrigins:   cfg.HTTP.AllowedOrigins,
			MaxBodyBytes:     cfg.HTTP.MaxBodyBytes,
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimitRPS:     cfg.RateLimit.RPS,
			RateLimitBurst:   cfg.RateLimit.Burst,
			Metrics:          metrics,
		},
	)
	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	logger.Info("Catalog HTTP server starting", slog.Int("port", cfg.HTTP.Port), slog.String("driver", cfg.DB.Driver))
	err = serveHTTP(ctx, httpSrv, logger)

	if grpcSrv != nil {
		grpcSrv.GracefulStop()
		logger.Info("Catalog gRPC server gracefully stopped.")
	}
	return err
}

// serveHTTP runs srv until ctx is cancelled or the listener fails, then shuts
// it down. A listener failure is returned.
func serveHTTP(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var failed error
	select {
	case <-ctx.Done():
		logger.Info("Catalog service shutting down...")
	case err := <-serveErr:
		logger.Error("Catalog HTTP server ListenAndServe() failed", slog.String("error", err.Error()))
		failed = fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Catalog HTTP server shutdown failed", slog.String("error", err.Error()))
	} else {
		logger.Info("Catalog HTTP server gracefully stopped.")
	}
	return failed
}
