// catalog-service/cmd/catalogseed/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"catalog-service/internal/config"
	"catalog-service/internal/domain"
	"catalog-service/internal/seed"
	"catalog-service/internal/store"
)

func main() {
	var (
		reset      bool
		skipAdmin  bool
		skipMovies bool
	)
	flag.BoolVar(&reset, "reset", false, "Delete every movie before inserting the sample catalogue")
	flag.BoolVar(&skipAdmin, "skip-admin", false, "Do not create the admin account")
	flag.BoolVar(&skipMovies, "skip-movies", false, "Do not insert sample movies")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if err := run(logger, reset, skipAdmin, skipMovies); err != nil {
		logger.Error("Seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, reset, skipAdmin, skipMovies bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DB.Driver == store.DriverMemory {
		return fmt.Errorf("DB_DRIVER=memory keeps nothing between runs; point the seeder at postgres, sqlite3 or mongodb")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	backend, err := store.Open(ctx, cfg.DB.Driver, cfg.DB.URL, cfg.DB.MongoDatabase, logger)
	if err != nil {
		return err
	}
	defer backend.Close(ctx) //nolint:errcheck

	if !skipAdmin {
		if cfg.Seed.AdminPassword == "" {
			return fmt.Errorf("ADMIN_PASSWORD is required to create the admin account")
		}
		if _, err := seed.EnsureAdmin(ctx, backend.Users, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword, logger); err != nil {
			return err
		}
	}

	if skipMovies {
		return nil
	}
	if reset {
		if _, err := seed.Reset(ctx, backend.Movies, logger); err != nil {
			return err
		}
	}
	reqs, err := seed.SampleMovies()
	if err != nil {
		return err
	}
	_, err = seed.Movies(ctx, backend.Movies, domain.NewValidator(), reqs, logger)
	return err
}
