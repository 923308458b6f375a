package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KirkDiggler/tabletop/internal/common/clock"
	"github.com/KirkDiggler/tabletop/internal/common/keylock"
	"github.com/KirkDiggler/tabletop/internal/common/logging"
	"github.com/KirkDiggler/tabletop/internal/common/uuid"
	"github.com/KirkDiggler/tabletop/internal/config"
	"github.com/KirkDiggler/tabletop/internal/handlers/discord"
	"github.com/KirkDiggler/tabletop/internal/repositories/gamedef"
	"github.com/KirkDiggler/tabletop/internal/repositories/player"
	"github.com/KirkDiggler/tabletop/internal/repositories/session"
	"github.com/KirkDiggler/tabletop/internal/schema"
	gameService "github.com/KirkDiggler/tabletop/internal/services/game"
	playerService "github.com/KirkDiggler/tabletop/internal/services/player"
	sessionService "github.com/KirkDiggler/tabletop/internal/services/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("bot exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	db, err := gamedef.Open(cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to open game database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	gameRepo, err := gamedef.NewSQLite(&gamedef.Config{
		DB: db,
	})
	if err != nil {
		return fmt.Errorf("failed to create game repository: %w", err)
	}

	sessionRepo, err := session.NewRedis(&session.Config{
		RedisClient: redisClient,
	})
	if err != nil {
		return fmt.Errorf("failed to create session repository: %w", err)
	}

	playerRepo, err := player.NewRedis(&player.Config{
		RedisClient: redisClient,
	})
	if err != nil {
		return fmt.Errorf("failed to create player repository: %w", err)
	}

	clk := clock.New()
	ids := uuid.New()

	// Initialize services
	sessionSvc, err := sessionService.New(&sessionService.Config{
		SessionRepo:     sessionRepo,
		GameRepo:        gameRepo,
		PlayerRepo:      playerRepo,
		Validator:       schema.New(),
		Clock:           clk,
		UUIDGenerator:   ids,
		Locker:          keylock.New(),
		ConflictRetries: cfg.ConflictRetries,
		Logger:          logger.Named("session"),
	})
	if err != nil {
		return fmt.Errorf("failed to create session service: %w", err)
	}

	gameSvc, err := gameService.New(&gameService.Config{
		GameRepo:       gameRepo,
		SessionService: sessionSvc,
		Clock:          clk,
		UUIDGenerator:  ids,
		Logger:         logger.Named("game"),
	})
	if err != nil {
		return fmt.Errorf("failed to create game service: %w", err)
	}

	playerSvc, err := playerService.New(&playerService.Config{
		PlayerRepo:    playerRepo,
		Clock:         clk,
		UUIDGenerator: ids,
		Logger:        logger.Named("player"),
	})
	if err != nil {
		return fmt.Errorf("failed to create player service: %w", err)
	}

	sweeper, err := sessionService.NewSweeper(&sessionService.SweeperConfig{
		Service:  sessionSvc,
		Clock:    clk,
		Interval: cfg.CleanupInterval,
		MaxAge:   cfg.CleanupMaxAge,
		Logger:   logger.Named("sweeper"),
	})
	if err != nil {
		return fmt.Errorf("failed to create sweeper: %w", err)
	}

	tableCmd, err := discord.NewTableCommand(&discord.TableCommandConfig{
		SessionService: sessionSvc,
		GameService:    gameSvc,
		PlayerService:  playerSvc,
		Logger:         logger.Named("discord"),
	})
	if err != nil {
		return fmt.Errorf("failed to create table command: %w", err)
	}

	bot, err := discord.New(&discord.Config{
		Token:         cfg.DiscordToken,
		ApplicationID: cfg.ApplicationID,
		GuildID:       cfg.GuildID,
		Commands:      []discord.CommandHandler{tableCmd},
		Logger:        logger.Named("discord"),
	})
	if err != nil {
		return fmt.Errorf("failed to create Discord bot: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	go sweeper.Run(ctx)

	if err := bot.Start(); err != nil {
		return fmt.Errorf("failed to start Discord bot: %w", err)
	}

	logger.Info("tabletop is running, press CTRL-C to exit")
	<-ctx.Done()

	if err := bot.Stop(); err != nil {
		logger.Warn("error stopping bot", zap.Error(err))
	}

	logger.Info("bot has been shut down")
	return nil
}
