package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Tushar2380/docuAi/internal/ai"
	"github.com/Tushar2380/docuAi/internal/app"
	"github.com/Tushar2380/docuAi/internal/cache"
	"github.com/Tushar2380/docuAi/internal/config"
	"github.com/Tushar2380/docuAi/internal/index"
	"github.com/Tushar2380/docuAi/internal/model"
	"github.com/Tushar2380/docuAi/internal/pkg/extract"
	mysqlplatform "github.com/Tushar2380/docuAi/internal/platform/mysql"
	rabbitplatform "github.com/Tushar2380/docuAi/internal/platform/rabbitmq"
	redisplatform "github.com/Tushar2380/docuAi/internal/platform/redis"
	"github.com/Tushar2380/docuAi/internal/repository"
	transporthttp "github.com/Tushar2380/docuAi/internal/transport/http"
	"github.com/Tushar2380/docuAi/internal/transport/http/handler"
	"github.com/Tushar2380/docuAi/internal/watcher"
	"github.com/Tushar2380/docuAi/internal/worker"
)

// App wires the whole service: config, stores, index, provider client,
// services, background machinery and the HTTP server.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Server *transporthttp.Server

	db      *gorm.DB
	redis   *redisv9.Client
	rabbit  *amqp.Connection
	pgIndex *index.PG
	resync  *worker.IndexResyncWorker
	cron    *cron.Cron
	watch   *watcher.Watcher
	cancel  context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	logger, err := newLogger(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("build logger failed: %w", err)
	}

	a := &App{Config: cfg, Logger: logger}
	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	fail := func(err error) (*App, error) {
		a.Close()
		return nil, err
	}

	// Storage.
	db, err := mysqlplatform.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return fail(err)
	}
	a.db = db
	if err := db.AutoMigrate(
		&model.File{}, &model.Chunk{}, &model.Session{}, &model.Message{},
	); err != nil {
		return fail(fmt.Errorf("auto migrate failed: %w", err))
	}

	redisClient, err := redisplatform.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fail(err)
	}
	a.redis = redisClient

	rabbitConn, err := rabbitplatform.New(cfg.RabbitMQ.URL)
	if err != nil {
		return fail(err)
	}
	a.rabbit = rabbitConn

	fileRepo := repository.NewFileRepository(db)
	chunkRepo := repository.NewChunkRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	// Vector index.
	var idx index.Index
	switch cfg.Index.Driver {
	case "pgvector":
		pg, err := index.NewPG(ctx, cfg.Index.PostgresDSN)
		if err != nil {
			return fail(fmt.Errorf("open pgvector index failed: %w", err))
		}
		a.pgIndex = pg
		idx = pg
	default:
		mem := index.NewMemory()
		idx = mem
		users, err := chunkRepo.ListUserIDs()
		if err != nil {
			return fail(fmt.Errorf("list tenants for rehydration failed: %w", err))
		}
		for _, userID := range users {
			if err := worker.RebuildNamespace(ctx, chunkRepo, mem, userID); err != nil {
				logger.Error("rehydrate tenant namespace failed",
					zap.String("user_id", userID), zap.Error(err))
			}
		}
		logger.Info("memory index rehydrated", zap.Int("tenants", len(users)))
	}

	// Provider client and caches.
	client := ai.NewOpenAICompatibleClient()
	embedder := ai.BindEmbedder(client, ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
	})
	embedder = cache.WrapLRUEmbedder(embedder,
		cfg.LLM.EmbedCacheSize,
		time.Duration(cfg.LLM.EmbedCacheTTLSec)*time.Second)
	completer := ai.BindCompleter(client, ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})
	historyCache := cache.NewHistoryCache(redisClient,
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second)

	resyncPub := rabbitplatform.NewResyncPublisher(rabbitConn, cfg.Index.ResyncQueue)

	// Services.
	docService := app.NewDocumentService(
		fileRepo, chunkRepo, sessionRepo, messageRepo, historyCache,
		idx, extract.NewRegistry(), embedder, resyncPub,
		logger, cfg.Ingest,
	)
	chatService := app.NewChatService(
		sessionRepo, messageRepo, fileRepo, chunkRepo, historyCache,
		idx, embedder, completer,
		logger, cfg.LLM, cfg.Ingest.TitleMaxRunes,
	)

	// Background machinery.
	a.resync = worker.NewIndexResyncWorker(rabbitConn, cfg.Index.ResyncQueue, chunkRepo, idx, logger)
	if err := a.resync.Start(runCtx); err != nil {
		return fail(fmt.Errorf("start resync worker failed: %w", err))
	}

	a.cron = cron.New()
	sweeper := worker.NewSweeper(chunkRepo, resyncPub, logger)
	if _, err := a.cron.AddJob(cfg.Index.SweepCronSpec, sweeper); err != nil {
		return fail(fmt.Errorf("schedule index sweep failed: %w", err))
	}
	a.cron.Start()

	if cfg.Watcher.Enabled {
		w, err := watcher.New(cfg.Watcher.Dir, docService, logger)
		if err != nil {
			return fail(fmt.Errorf("start watcher failed: %w", err))
		}
		a.watch = w
		w.Start(runCtx)
	}

	// HTTP.
	handlers := transporthttp.Handlers{
		Health:  handler.NewHealthHandler(a.healthChecks()),
		File:    handler.NewFileHandler(docService),
		Session: handler.NewSessionHandler(chatService),
		Ask:     handler.NewAskHandler(chatService),
	}
	a.Server = transporthttp.NewServer(cfg, logger, handlers)

	return a, nil
}

func (a *App) healthChecks() map[string]handler.Pinger {
	checks := map[string]handler.Pinger{
		"mysql": func(ctx context.Context) error {
			sqlDB, err := a.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		},
		"rabbitmq": func(ctx context.Context) error {
			if a.rabbit.IsClosed() {
				return fmt.Errorf("rabbitmq connection closed")
			}
			return nil
		},
	}
	return checks
}

// Close tears everything down in reverse dependency order. Safe to call on a
// partially built App.
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.watch != nil {
		a.watch.Close()
	}
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if a.resync != nil {
		a.resync.Close()
	}
	if a.rabbit != nil {
		_ = a.rabbit.Close()
	}
	if a.pgIndex != nil {
		a.pgIndex.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "prod" || env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
