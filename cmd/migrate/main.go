package main

import (
	"flag"
	"log"

	migrate "github.com/rubenv/sql-migrate"
	"go.uber.org/zap"

	"github.com/johnquangdev/meetcore/internal/infrastructure/database"
	"github.com/johnquangdev/meetcore/pkg/config"
)

func main() {
	direction := flag.String("direction", "up", "up or down")
	max := flag.Int("max", 0, "maximum number of migrations to apply, 0 for all")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	var dir migrate.MigrationDirection
	switch *direction {
	case "up":
		dir = migrate.Up
	case "down":
		dir = migrate.Down
		if *max == 0 {
			// rolling back everything must be asked for explicitly
			*max = 1
		}
	default:
		logger.Fatal("Unknown direction", zap.String("direction", *direction))
	}

	db, err := database.NewPostgresDB(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	n, err := database.Migrate(db, dir, *max, logger)
	if err != nil {
		logger.Fatal("Migration failed", zap.Int("applied", n), zap.Error(err))
	}
	logger.Info("✅ Done", zap.String("direction", *direction), zap.Int("count", n))
}
