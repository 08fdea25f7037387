package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fhuszti/media-pipeline-go/internal/archive"
	"github.com/fhuszti/media-pipeline-go/internal/cache"
	"github.com/fhuszti/media-pipeline-go/internal/config"
	"github.com/fhuszti/media-pipeline-go/internal/db"
	"github.com/fhuszti/media-pipeline-go/internal/dispatcher"
	"github.com/fhuszti/media-pipeline-go/internal/download"
	"github.com/fhuszti/media-pipeline-go/internal/logger"
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
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf(ctx, "❌  Configuration error: %v", err)
		os.Exit(1)
	}
	if cfg.BotToken == "" {
		logger.Error(ctx, "⚠️  BOT_TOKEN must be set to run the bot")
		os.Exit(1)
	}

	logger.Init()

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Errorf(ctx, "❌  Failed to start bot: %v", err)
		os.Exit(1)
	}
	logger.Infof(ctx, "🚀 Bot authorised as @%s", bot.Self.UserName)

	var taskDispatcher port.TaskDispatcher
	if cfg.RedisAddr != "" {
		taskDispatcher = task.NewDispatcher(cfg.RedisAddr, cfg.RedisPassword)
		logger.Info(ctx, "✅  Redis queue enabled")
	} else {
		// no queue available, run the whole pipeline in this process
		database := initDb(cfg)
		defer func() {
			if err := database.Close(); err != nil {
				logger.Warnf(ctx, "DB close error: %v", err)
			}
		}()
		taskDispatcher = task.NewInlineDispatcher(initPipeline(ctx, cfg, database))
		logger.Warn(ctx, "⚠️  Redis not configured — references are processed inline")
	}

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 60
	updates := bot.GetUpdatesChan(updateCfg)

	// stop polling on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info(ctx, "🛑 Shutdown signal received, exiting…")
		bot.StopReceivingUpdates()
	}()

	for update := range updates {
		handleUpdate(ctx, bot, taskDispatcher, cfg.BotAdminIDs, update)
	}
	logger.Info(ctx, "✅  Bot gracefully stopped")
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

	docRepo := mariadb.NewDocumentRepository(database.DB)

	return pipeline.New(registry, dl, manager, docRepo, cache.NewNoop())
}

func handleUpdate(ctx context.Context, bot *tgbotapi.BotAPI, taskDispatcher port.TaskDispatcher, adminIDs []int64, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" {
		return
	}
	if !isAdmin(adminIDs, msg.From) {
		logger.Warnf(ctx, "⚠️  Ignoring message from unauthorised user #%d", msg.From.ID)
		return
	}

	refs := extractRefs(msg)
	if len(refs) == 0 {
		reply(bot, msg, "Send me a post link to archive")
		return
	}

	for _, ref := range refs {
		if err := taskDispatcher.EnqueueProcessReference(ctx, ref); err != nil {
			logger.Errorf(ctx, "❌  Failed to process reference %q: %v", ref, err)
			reply(bot, msg, "Could not process "+ref)
			continue
		}
		logger.Infof(ctx, "✅  Successfully handled reference %q", ref)
		reply(bot, msg, "Queued 👌")
	}
}

// extractRefs pulls URLs out of the message entities, falling back to the
// whole text when Telegram reported none.
func extractRefs(msg *tgbotapi.Message) []string {
	var refs []string
	text := []rune(msg.Text)
	for _, e := range msg.Entities {
		switch e.Type {
		case "url":
			if e.Offset+e.Length <= len(text) {
				refs = append(refs, string(text[e.Offset:e.Offset+e.Length]))
			}
		case "text_link":
			refs = append(refs, e.URL)
		}
	}
	if len(refs) == 0 && msg.Text != "" {
		refs = append(refs, msg.Text)
	}
	return refs
}

func isAdmin(adminIDs []int64, from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	// an empty admin list means the bot is open to everyone
	if len(adminIDs) == 0 {
		return true
	}
	for _, id := range adminIDs {
		if id == from.ID {
			return true
		}
	}
	return false
}

func reply(bot *tgbotapi.BotAPI, to *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(to.Chat.ID, text)
	out.ReplyToMessageID = to.MessageID
	if _, err := bot.Send(out); err != nil {
		logger.Warnf(context.Background(), "⚠️  Failed to send reply: %v", err)
	}
}
