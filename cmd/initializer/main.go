package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/leafsii/journal-backend/cmd/initializer/pkg"
	"github.com/leafsii/journal-backend/internal/config"
	gdb "github.com/leafsii/journal-backend/internal/db"
	"github.com/leafsii/journal-backend/internal/log"
)

func main() {
	path := flag.String("file", "cmd/initializer/categories.json", "JSON file with the categories to seed")
	writeDefault := flag.Bool("write-default", false, "write the built-in categories to -file when it does not exist")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewSugar(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	seed, err := pkg.ReadConfig(*path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		seed = pkg.FromCategories(gdb.DefaultCategories)
		if *writeDefault {
			if err := pkg.WriteConfig(*path, seed); err != nil {
				logger.Fatalw("Failed to write seed file", "path", *path, "error", err)
			}
			logger.Infow("Seed file written", "path", *path)
		} else {
			logger.Infow("Seed file not found, using built-in categories", "path", *path)
		}
	case err != nil:
		logger.Fatalw("Failed to read seed file", "path", *path, "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := gdb.NewDatabase(&gdb.Config{
		Type:         cfg.Database.Type,
		DSN:          cfg.Database.PostgresDSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		logger.Fatalw("Failed to create database", "error", err)
	}
	if err := gdb.ConnectAndMigrate(ctx, db, cfg.Database.AutoMigrate); err != nil {
		logger.Fatalw("Failed to initialize database", "error", err)
	}
	defer db.Disconnect(context.Background())

	categories := seed.NewCategories()
	created, err := gdb.SeedCategories(ctx, db, categories)
	if err != nil {
		logger.Fatalw("Failed to seed categories", "created", created, "error", err)
	}
	logger.Infow("Categories seeded", "created", created, "total", len(categories))
}
