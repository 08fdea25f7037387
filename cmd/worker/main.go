package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fhuszti/media-pipeline-go/internal/archive"
	"github.com/fhuszti/media-pipeline-go/internal/cache"
	"github.com/fhuszti/media-pipeline-go/internal/config"
	"github.com/fhuszti/media-pipeline-go/internal/db"
	"github.com/fhuszti/media-pipeline-go/internal/dispatcher"
	"github.com/fhuszti/media-pipeline-go/internal/download"
	workerHandler "github.com/fhuszti/media-pipeline-go/internal/handler/worker"
	"github.com/fhuszti/media-pipeline-go/internal/pipeline"
	"github.com/fhuszti/media-pipeline-go/internal/port"
	"github.com/fhuszti/media-pipeline-go/internal/repository/mariadb"
	"github.com/fhuszti/media-pipeline-go/internal/site"
	"github.com/fhuszti/media-pipeline-go/internal/site/bilibili"
	"github.com/fhuszti/media-pipeline-go/internal/site/douyin"
	"github.com/fhuszti/media-pipeline-go/internal/site/twitter"
	"github.com/fhuszti/media-pipeline-go/internal/site/xhs"
	"github.com/fhuszti/media-pipeline-go/internal/storage"
	"github.com/fhuszti/media-pipeline-go/internal/task"
	"github.com/hibiken/asynq"

	"github.com/fhuszti/media-pipeline-go/internal/logger"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf(ctx, "❌  Configuration error: %v", err)
		os.Exit(1)
	}
	if cfg.RedisAddr == "" {
		logger.Error(ctx, "⚠️  REDIS_ADDR must be set to run the worker")
		os.Exit(1)
	}

	logger.Init()

	database := initDb(cfg)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Warnf(ctx, "DB close error: %v", err)
		}
	}()

	processor := initPipeline(ctx, cfg, database)

	mux := asynq.NewServeMux()
	mux.HandleFunc(task.TypeProcessReference, func(ctx context.Context, t *asynq.Task) error {
		p, err := task.ParseProcessReferencePayload(t)
		if err != nil {
			return err
		}
		return workerHandler.ProcessReferenceHandler(ctx, p, processor)
	})

	runWorker(ctx, mux, cfg)
}

func initDb(cfg *config.Settings) *db.Database {
	ctx := context.Background()
	logger.Info(ctx, "initialising database...")

	database, err := db.New(cfg.MariaDBDSN, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime)
	if err != nil {
		logger.Errorf(ctx, "❌  Failed to connect to db: %v", err)
		os.Exit(1)
	}
	return database
}

func initPipeline(ctx context.Context, cfg *config.Settings, database *db.Database) port.ReferenceProcessor {
	fetch := site.FetchOptions{
		Attempts: cfg.Retries,
		Timeout:  cfg.RequestTimeout,
	}

	handlers := []site.Handler{
		bilibili.New(bilibili.Options{Fetch: fetch, Destination: cfg.BilibiliFilePath, Filename: cfg.BilibiliFileName}),
		twitter.New(twitter.Options{Fetch: fetch, Destination: cfg.TwitterFilePath, Filename: cfg.TwitterFileName}),
		douyin.New(douyin.Options{Fetch: fetch, Endpoint: cfg.DouyinAPI, Destination: cfg.DouyinFilePath, Filename: cfg.DouyinFileName}),
	}
	if cfg.XhsAPI != "" {
		handlers = append(handlers, xhs.New(xhs.Options{Fetch: fetch, Endpoint: cfg.XhsAPI, Cookie: cfg.XhsCookie, Destination: cfg.XhsFilePath, Filename: cfg.XhsFileName}))
	} else {
		logger.Warn(ctx, "⚠️  XHS_API not configured — xiaohongshu references will be dropped")
	}
	registry := dispatcher.NewRegistry(handlers...)

	dl := download.NewDownloader(nil, cfg.Retries, cfg.RequestTimeout, cfg.MaxParallelDownload)

	var uploader storage.ArchiveUploader
	if cfg.ArchiveURL != "" {
		uploader = archive.NewUploader(archive.NewClient(cfg.ArchiveURL, cfg.ArchiveUsername, cfg.ArchiveAPIKey, cfg.RequestTimeout))
		logger.Info(ctx, "✅  Archive upload enabled")
	} else {
		logger.Warn(ctx, "⚠️  ARCHIVE_URL not configured — archive upload is disabled")
	}

	disks := []storage.Disk{storage.NewLocalDisk(cfg.LocalDir)}
	if cfg.MinioEndpoint != "" {
		minioDisk, err := storage.NewMinioDisk(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			logger.Errorf(ctx, "❌  Failed to initialize MinIO client: %v", err)
			os.Exit(1)
		}
		disks = append(disks, minioDisk)
	}
	manager := storage.NewManager(uploader, disks...)

	docRepo := mariadb.NewDocumentRepository(database.DB)
	seen := cache.NewSeenCache(cfg.RedisAddr, cfg.RedisPassword, cfg.SeenTTL)

	return pipeline.New(registry, dl, manager, docRepo, seen)
}

func runWorker(ctx context.Context, mux *asynq.ServeMux, cfg *config.Settings) {
	srv := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}, asynq.Config{Concurrency: 10})

	// Run server in background
	go func() {
		if err := srv.Run(mux); err != nil {
			logger.Errorf(context.Background(), "❌  Worker failed: %v", err)
			os.Exit(1)
		}
	}()
	logger.Info(ctx, "🚀 Worker started")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	logger.Info(ctx, "🛑 Shutdown signal received, exiting…")

	// Give Asynq up to 30 sec to finish tasks
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	srv.Shutdown()       // stop accepting new tasks, finish in-flight
	<-shutdownCtx.Done() // either timeout or done

	logger.Info(ctx, "✅  Worker gracefully stopped")
}
