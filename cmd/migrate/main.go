package main

import (
	"database/sql"
	"flag"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/leafsii/journal-backend/internal/config"
	"github.com/leafsii/journal-backend/internal/db/migrations"
)

var (
	flags = flag.NewFlagSet("migrate", flag.ExitOnError)
	dsn   = flags.String("dsn", "", "postgres connection string (defaults to JOURNAL_POSTGRES_DSN)")
)

func main() {
	flags.Parse(os.Args[1:])
	args := flags.Args()

	if len(args) < 1 {
		log.Fatal("Usage: migrate [-dsn DSN] COMMAND\n\nCommands:\n  up\n  down\n  status")
	}

	target := *dsn
	if target == "" {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		target = cfg.Database.PostgresDSN
	}

	db, err := sql.Open("pgx", target)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := args[0]
	switch command {
	case "up":
		if err := migrations.Up(db); err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
	case "down":
		if err := migrations.Down(db); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
	case "status":
		if err := migrations.Status(db); err != nil {
			log.Fatalf("Migration status failed: %v", err)
		}
	default:
		log.Fatalf("Unknown command: %s", command)
	}
}
