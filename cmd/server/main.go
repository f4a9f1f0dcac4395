package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OmarAlex24/impostor-game/internal/config"
	"github.com/OmarAlex24/impostor-game/internal/handlers"
	httpx "github.com/OmarAlex24/impostor-game/internal/http"
	"github.com/OmarAlex24/impostor-game/internal/logger"
	"github.com/OmarAlex24/impostor-game/internal/repo"
	"github.com/OmarAlex24/impostor-game/internal/scheduler"
	"github.com/OmarAlex24/impostor-game/internal/service"
	"github.com/OmarAlex24/impostor-game/internal/words"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Setup("info", logger.FormatConsole)
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)

	bank := words.Default()
	if cfg.WordsFile != "" {
		if bank, err = words.LoadFile(cfg.WordsFile); err != nil {
			log.Fatal().Err(err).Str("path", cfg.WordsFile).Msg("load word lists")
		}
	}

	store, closeStore := openStore(cfg)
	defer closeStore()

	svc := service.NewRoomService(store, bank, service.Options{
		IdleTimeout:     cfg.RoomIdleTimeout,
		TurnDuration:    cfg.TurnDuration(),
		VotingWindow:    cfg.VotingWindow(),
		RoundsPerVoting: cfg.RoundsPerVoting,
	})
	hub := handlers.NewHub(svc, cfg.AllowedOrigins)
	svc.SetNotifier(hub)
	sched := scheduler.New(svc, scheduler.NewTickerCreator(), cfg.TurnTick, cfg.SweepInterval)
	svc.SetTurnScheduler(sched)

	router := httpx.NewRouter(handlers.NewRoomHandler(svc), hub, cfg.AllowedOrigins)
	srv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sched.Run(ctx)
	go func() {
		log.Info().Str("addr", cfg.APIAddr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("server stopped")
}

// openStore connects to Redis when an address is configured and otherwise
// keeps rooms in process memory.
func openStore(cfg config.Config) (repo.RoomRepo, func()) {
	if cfg.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR not set, rooms are kept in memory")
		return repo.NewMemoryRoomRepo(), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("connect to redis")
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")
	return repo.NewRedisRoomRepo(rdb), func() { _ = rdb.Close() }
}
