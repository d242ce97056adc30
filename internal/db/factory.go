package db

import (
	"context"
	"fmt"
	"log"

	"github.com/leafsii/journal-backend/internal/db/backends/memory"
	"github.com/leafsii/journal-backend/internal/db/backends/postgres"
	"github.com/leafsii/journal-backend/internal/db/interfaces"
)

// Config holds database configuration
type Config struct {
	Type         string // "memory", "postgres"
	DSN          string // Data Source Name / Connection String
	MaxOpenConns int    // Maximum open connections (for SQL backends)
	MaxIdleConns int    // Maximum idle connections (for SQL backends)
	AutoMigrate  bool   // Apply migrations on start
}

// NewDatabase creates a new database instance based on configuration
func NewDatabase(config *Config) (interfaces.Database, error) {
	if config == nil {
		config = &Config{Type: "memory"}
	}

	switch config.Type {
	case "memory", "":
		log.Println("Using in-memory database")
		return memory.NewDatabase(), nil
	case "postgres":
		if config.DSN == "" {
			return nil, fmt.Errorf("postgres database requires a DSN")
		}
		log.Println("Using postgres database")
		return postgres.NewDatabase(postgres.Config{
			DSN:          config.DSN,
			MaxOpenConns: config.MaxOpenConns,
			MaxIdleConns: config.MaxIdleConns,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}
}

// MustNewDatabase creates a new database instance and panics on error
func MustNewDatabase(config *Config) interfaces.Database {
	db, err := NewDatabase(config)
	if err != nil {
		panic(fmt.Sprintf("failed to create database: %v", err))
	}
	return db
}

// NewInMemoryDatabase creates a new in-memory database instance
func NewInMemoryDatabase() interfaces.Database {
	return memory.NewDatabase()
}

// ConnectAndMigrate connects to the database and, when migrate is set, applies the schema
func ConnectAndMigrate(ctx context.Context, db interfaces.Database, migrate bool) error {
	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if !db.IsHealthy(ctx) {
		return fmt.Errorf("database health check failed")
	}

	if !migrate {
		return nil
	}
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}
