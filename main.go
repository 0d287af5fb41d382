package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"venuehubgo/internal/auth"
	"venuehubgo/internal/config"
	"venuehubgo/internal/database/db_client"
	"venuehubgo/internal/http/http_server"
	"venuehubgo/internal/redis/eventbridge"
	"venuehubgo/internal/redis/redis_client"
	"venuehubgo/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	var err error
	var cfg *config.Config
	var redisClient *redis.Client

	// 1. Load configuration
	cfg, err = config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis
	redisClient, err = redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()
	Log.Debug("Redis client created successfully")

	// 4. Postgres db client
	pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()

	// 5. Token verifier (Redis session cache, Postgres fallback)
	verifier := auth.NewSessionVerifier(redisClient, pgDb, cfg.SessionKeyPrefix)

	// 6. Hub + liveness sweep
	hub := ws.NewHub(cfg.SendQueueSize)
	go hub.RunSweeper(ctx, cfg.SweepInterval, cfg.IdleTimeout)
	defer hub.Close()

	// 7. Server-internal publish API + venue event bridge
	publisher := ws.NewPublisher(hub)
	go eventbridge.Run(ctx, redisClient, publisher)

	// 8. Initialize the WS server
	wsSrv := ws.NewWsServer(hub, verifier)

	// 9. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, publisher)
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
