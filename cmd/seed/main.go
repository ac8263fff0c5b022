package main

import (
	"context"
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/johnquangdev/meetcore/internal/adapter/repository"
	"github.com/johnquangdev/meetcore/internal/domain/entities"
	"github.com/johnquangdev/meetcore/internal/infrastructure/database"
	"github.com/johnquangdev/meetcore/pkg/config"
	pkgjwt "github.com/johnquangdev/meetcore/pkg/jwt"
)

func main() {
	// Load configuration from .env
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.NewPostgresDB(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	profiles := repository.NewProfileRepository(db)
	jwtManager := pkgjwt.NewManager(cfg.JWT.AccessSecret, cfg.JWT.AccessExpiry)

	testUsers := []entities.UserProfile{
		{UserID: "alice", Name: "Alice", Role: "Product Manager", Activity: "Presenting"},
		{UserID: "bob", Name: "Bob", Role: "Backend Engineer", Activity: "Listening"},
		{UserID: "charlie", Name: "Charlie", Role: "Designer", Activity: "Taking notes"},
		{UserID: "diana", Name: "Diana", Role: "QA Engineer", Activity: "Listening"},
		{UserID: "eve", Name: "Eve", Role: "Engineering Manager", Activity: "Observing"},
	}

	ctx := context.Background()
	for i := range testUsers {
		u := &testUsers[i]
		if err := profiles.UpsertProfile(ctx, u); err != nil {
			logger.Error("❌ Failed to store profile", zap.String("user_id", u.UserID), zap.Error(err))
			continue
		}

		token, err := jwtManager.GenerateAccessToken(u.UserID, u.Name)
		if err != nil {
			logger.Error("❌ Failed to generate access token", zap.String("user_id", u.UserID), zap.Error(err))
			continue
		}

		fmt.Printf("═══════════════════════════════════════════════════════════════\n")
		fmt.Printf("🟢 User %d: %s (%s)\n", i+1, u.Name, u.Role)
		fmt.Printf("User ID:      %s\n", u.UserID)
		fmt.Printf("\n📋 Access Token (expires in %v):\n", cfg.JWT.AccessExpiry)
		fmt.Printf("%s\n", token)
		fmt.Printf("\n🔗 Websocket: ws://%s:%s/v1/ws?token=%s\n", cfg.Server.Host, cfg.Server.Port, token)
	}

	logger.Info("✅ Test profiles seeded", zap.Int("count", len(testUsers)))
	if !cfg.JWT.Enabled {
		logger.Warn("⚠️  JWT_ENABLED is false, the server ignores these tokens and trusts join-room userId")
	}
}
