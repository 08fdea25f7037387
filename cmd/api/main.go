package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fhuszti/media-pipeline-go/internal/archive"
	"github.com/fhuszti/media-pipeline-go/internal/cache"
	"github.com/fhuszti/media-pipeline-go/internal/config"
	"github.com/fhuszti/media-pipeline-go/internal/db"
	"github.com/fhuszti/media-pipeline-go/internal/dispatcher"
	"github.com/fhuszti/media-pipeline-go/internal/download"
	"github.com/fhuszti/media-pipeline-go/internal/handler"
	"github.com/fhuszti/media-pipeline-go/internal/handler/api"
	"github.com/fhuszti/media-pipeline-go/internal/logger"
	cMiddleware "github.com/fhuszti/media-pipeline-go/internal/middleware"
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
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf(ctx, "❌  Configuration error: %v", err)
		os.Exit(1)
	}

	logger.Init()

	database := initDb(ctx, cfg)

	r := initRouter(ctx, cfg.JWTPublicKey)

	docRepo := mariadb.NewDocumentRepository(database.DB)
	var taskDispatcher port.TaskDispatcher
	if cfg.RedisAddr != "" {
		taskDispatcher = task.NewDispatcher(cfg.RedisAddr, cfg.RedisPassword)
		logger.Info(ctx, "✅  Redis queue enabled")
	} else {
		// no queue available, process references in the request goroutine
		taskDispatcher = task.NewInlineDispatcher(initPipeline(ctx, cfg, docRepo))
		logger.Warn(ctx, "⚠️  Redis not configured — references are processed inline")
	}

	r.Post("/references", api.SubmitReferenceHandler(taskDispatcher))

	r.With(cMiddleware.WithDocumentRef()).
		Get("/documents/{collection}/{id}", api.GetDocumentHandler(docRepo))

	listenRouter(ctx, r, cfg, database)
}

func initDb(ctx context.Context, cfg *config.Settings) *db.Database {
	logger.Info(ctx, "initialising database...")

	database, err := db.New(cfg.MariaDBDSN, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime)
	if err != nil {
		logger.Errorf(ctx, "❌  Failed to connect to db: %v", err)
		os.Exit(1)
	}

	return database
}

func initPipeline(ctx context.Context, cfg *config.Settings, docRepo port.DocumentRepository) port.ReferenceProcessor {
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
	}
	registry := dispatcher.NewRegistry(handlers...)

	dl := download.NewDownloader(nil, cfg.Retries, cfg.RequestTimeout, cfg.MaxParallelDownload)

	var uploader storage.ArchiveUploader
	if cfg.ArchiveURL != "" {
		uploader = archive.NewUploader(archive.NewClient(cfg.ArchiveURL, cfg.ArchiveUsername, cfg.ArchiveAPIKey, cfg.RequestTimeout))
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

	return pipeline.New(registry, dl, manager, docRepo, cache.NewNoop())
}

func initRouter(ctx context.Context, jwtKey string) *chi.Mux {
	logger.Info(ctx, "initialising router...")

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(cMiddleware.WithAuth(jwtKey))

	r.NotFound(handler.NotFoundHandler())
	r.MethodNotAllowed(api.MethodNotAllowedHandler())

	return r
}

func listenRouter(ctx context.Context, r *chi.Mux, cfg *config.Settings, database *db.Database) {
	srv := &http.Server{Addr: ":" + strconv.Itoa(cfg.ServerPort), Handler: r}

	// start serving
	go func() {
		logger.Infof(ctx, "🚀 API listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf(ctx, "❌  Listen error: %v", err)
			os.Exit(1)
		}
	}()

	// block until we get SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "🛑 Shutdown signal received, exiting…")

	// graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "❌  Server shutdown failed: %v", err)
		os.Exit(1)
	}
	logger.Info(ctx, "✅  Server gracefully stopped")

	if err := database.Close(); err != nil {
		logger.Errorf(ctx, "DB close error: %v", err)
		os.Exit(1)
	}
}
