package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"streamvault/internal/api"
	"streamvault/internal/auth"
	"streamvault/internal/cachemgr"
	"streamvault/internal/config"
	"streamvault/internal/db"
	"streamvault/internal/indexer"
	"streamvault/internal/jobs"
	"streamvault/internal/metadata"
	"streamvault/internal/protocolclient"
	"streamvault/internal/repository"
	"streamvault/internal/streamer"
	"streamvault/internal/transcoder"
)

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()
	logger.Info("streamvault starting")

	database, err := db.Connect(cfg.DatabasePath)
	if err != nil {
		logger.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		logger.Error("migration failed", "err", err)
		os.Exit(1)
	}
	cfg.MergeFromDB(database.DB, logger)

	userRepo := repository.NewUserRepository(database.DB)
	mediaRepo := repository.NewMediaRepository(database.DB)
	tvRepo := repository.NewTVRepository(database.DB)
	sourceRepo := repository.NewSourceRepository(database.DB)
	subtitleRepo := repository.NewSubtitleRepository(database.DB)
	watchRepo := repository.NewWatchRepository(database.DB)
	settingsRepo := repository.NewSettingsRepository(database.DB)

	pool := protocolclient.NewPool(cfg.ServerSecret)

	cache := cachemgr.New(cfg.CacheRoot, cfg.CacheSizeCapBytes, cfg.CacheTTL, logger)
	cache.StartSweeps()
	defer cache.Stop()

	queue := jobs.NewQueue(cfg.RedisAddr)
	defer queue.Stop()

	provider := metadata.NewProvider(cfg.MetadataProviderKey, cfg.MetadataLanguage)
	enricher := metadata.NewEnricher(provider, mediaRepo, tvRepo)
	queue.RegisterHandler(jobs.TaskMetadataEnrich, jobs.NewEnrichHandler(enricher, logger))

	queueCtx, cancelQueue := context.WithCancel(context.Background())
	defer cancelQueue()
	go func() {
		if err := queue.Start(queueCtx); err != nil {
			logger.Error("job queue worker stopped", "err", err)
		}
	}()

	idx := indexer.New(pool, cfg.FFprobePath, mediaRepo, tvRepo, subtitleRepo, queue, cfg.AutoEnrich, logger)

	transcode := transcoder.New(cfg.FFmpegPath, cfg.CacheRoot, logger, cache)
	strm := streamer.New(mediaRepo, sourceRepo, pool, transcode)

	issuer := auth.NewTokenIssuer(cfg.ServerSecret, cfg.CredentialExpiry)
	middleware := auth.NewMiddleware(issuer, userRepo)

	server := api.NewServer(cfg, userRepo, mediaRepo, tvRepo, sourceRepo, subtitleRepo,
		watchRepo, settingsRepo, pool, idx, transcode, strm, cache, enricher, issuer, middleware, logger)

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // streaming responses run far longer than a fixed write deadline allows
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(ctx)
	pool.CloseAll()
}
