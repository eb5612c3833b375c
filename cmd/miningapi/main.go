package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/cointap/mining-api/internal/ads"
	"github.com/cointap/mining-api/internal/api"
	"github.com/cointap/mining-api/internal/auth"
	"github.com/cointap/mining-api/internal/clock"
	"github.com/cointap/mining-api/internal/config"
	"github.com/cointap/mining-api/internal/db"
	"github.com/cointap/mining-api/internal/leaderboard"
	"github.com/cointap/mining-api/internal/mining"
	"github.com/cointap/mining-api/internal/websocket"
	"github.com/cointap/mining-api/pkg/logger"
)

func main() {
	// .env is optional; real deployments set env vars directly
	_ = godotenv.Load()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger.SetLevel(logger.INFO)
	if err := logger.EnableFileLogging(cfg.Server.LogDir); err != nil {
		log.Fatalf("Failed to enable file logging: %v", err)
	}

	logger.Info("Mining API starting...")

	// Initialize database
	store, err := db.NewStore(db.DefaultOperations{}, cfg.Database.DSN(), cfg.Database.MigrationsPath)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize WebSocket manager
	wsManager := websocket.NewManager()
	go wsManager.Run()

	// Wire the services
	clk := clock.System{}
	rules := cfg.Game.Rules()
	cache := leaderboard.NewCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CacheTTL)
	defer cache.Close()

	miningSvc := mining.NewService(store, rules, clk)
	adsSvc := ads.NewService(store, rules, clk)
	leaderboardSvc := leaderboard.NewService(store, cache, clk)
	tokens := auth.NewTokenManager(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL, clk)

	handler := api.NewHandler(
		store,
		miningSvc,
		adsSvc,
		leaderboardSvc,
		tokens,
		wsManager,
		clk,
		cfg.Telegram.BotToken,
	)

	// Periodically push a fresh leaderboard to websocket clients
	go broadcastLeaderboard(leaderboardSvc, wsManager)

	r := api.SetupRouter(handler)
	if err := r.Run(cfg.Server.Addr); err != nil {
		logger.Fatal("Failed to run server: %v", err)
	}
}

func broadcastLeaderboard(svc *leaderboard.Service, wsManager *websocket.Manager) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		entries, err := svc.Get(leaderboard.TimeframeDaily, leaderboard.DefaultLimit)
		if err != nil {
			logger.Error("Failed to get leaderboard: %v", err)
			continue
		}
		if err := wsManager.BroadcastLeaderboardUpdate(leaderboard.TimeframeDaily, entries); err != nil {
			logger.LogError(err)
		}
	}
}
