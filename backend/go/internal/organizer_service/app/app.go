// Package app 根据配置组装整理服务：存储、向量索引、模型客户端、流水线和 HTTP 路由。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"file-organizer/backend/go/internal/config"
	kafkadb "file-organizer/backend/go/internal/database/kafka"
	milvusdb "file-organizer/backend/go/internal/database/milvus"
	miniodb "file-organizer/backend/go/internal/database/minio"
	"file-organizer/backend/go/internal/database/mysql"
	redisdb "file-organizer/backend/go/internal/database/redis"
	"file-organizer/backend/go/internal/embedding"
	"file-organizer/backend/go/internal/llm"
	"file-organizer/backend/go/internal/organizer_service/api"
	"file-organizer/backend/go/internal/organizer_service/blob"
	"file-organizer/backend/go/internal/organizer_service/events"
	"file-organizer/backend/go/internal/organizer_service/rag/assembler"
	"file-organizer/backend/go/internal/organizer_service/rag/extractor"
	"file-organizer/backend/go/internal/organizer_service/rag/pipeline"
	"file-organizer/backend/go/internal/organizer_service/rag/vectorstore"
	"file-organizer/backend/go/internal/organizer_service/service"
	"file-organizer/backend/go/internal/organizer_service/store"
	"file-organizer/backend/go/internal/organizer_service/suggestions"
	httpserver "file-organizer/backend/go/pkg/http"
	"file-organizer/backend/go/pkg/logger"
	"file-organizer/backend/go/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// rateLimiterIdleTTL 之后未再访问的客户端限流器会被清理。
const rateLimiterIdleTTL = 10 * time.Minute

type closer struct {
	name string
	fn   func() error
}

// App 持有组装好的服务及其需要释放的资源。
type App struct {
	Config   *config.AppConfig
	DB       *gorm.DB
	Store    *store.Store
	Pipeline *pipeline.Pipeline
	Service  *service.Service
	Router   *gin.Engine

	log     *logger.Logger
	closers []closer
}

// New 按配置创建所有依赖。任何一步失败都会释放已创建的资源。
func New(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, log: log}
	ready := false
	defer func() {
		if !ready {
			_ = a.Close()
		}
	}()

	db, err := OpenDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.onClose("database", func() error { return mysql.Close(db) })
	a.Store = store.New(db)

	blobs, err := a.newBlobStorage(ctx)
	if err != nil {
		return nil, err
	}

	embedder, err := embedding.New(ctx, cfg.Embedding, cfg.Middleware.CircuitBreaker)
	if err != nil {
		return nil, fmt.Errorf("初始化 embedding 客户端失败: %w", err)
	}
	if c, ok := embedder.(io.Closer); ok {
		a.onClose("embedding", c.Close)
	}

	index, err := a.newVectorIndex(ctx)
	if err != nil {
		return nil, err
	}

	sugg, err := a.newSuggestionStore(ctx)
	if err != nil {
		return nil, err
	}

	pub := a.newPublisher()

	var ocr extractor.OCR
	if cfg.Pipeline.OCRBinary != "off" {
		ocr = extractor.TesseractOCR{Binary: cfg.Pipeline.OCRBinary}
	}
	var truncator assembler.Truncator
	if cfg.Pipeline.MaxContextTokens > 0 {
		truncator = assembler.NewTokenTruncator(cfg.Pipeline.MaxContextTokens)
	}

	a.Pipeline = pipeline.New(pipeline.Deps{
		Files:     a.Store,
		Blobs:     blobs,
		Extractor: extractor.New(ocr, log.WithField("component", "extractor")),
		Embedder:  embedder,
		Index:     index,
		Assembler: assembler.New(truncator),
		Models:    llm.NewClient(cfg.Models, cfg.Middleware.CircuitBreaker),
	}, pipeline.Options{
		Collection:           cfg.VectorIndex.Collection,
		TopK:                 cfg.VectorIndex.TopK,
		Concurrency:          cfg.Pipeline.Concurrency,
		AnalyzeBatchPayloads: cfg.Pipeline.AnalyzeBatchPayloads,
	}, log.WithField("component", "pipeline"))

	a.Service = service.NewService(a.Store, blobs, a.Pipeline, sugg, pub, service.Options{
		DefaultUser:    cfg.App.DefaultUser,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, log.WithField("component", "service"))

	limiter, err := newRateLimiter(cfg.Middleware.RateLimiter)
	if err != nil {
		return nil, err
	}
	a.Router = api.SetupRouter(api.NewHandler(a.Service, log), log.WithField("component", "http"), limiter)

	log.WithFields(map[string]interface{}{
		"database":     cfg.Database.Driver,
		"storage":      cfg.Storage.Backend,
		"embedding":    cfg.Embedding.Provider,
		"vector_index": cfg.VectorIndex.Backend,
		"suggestions":  cfg.Suggestions.Backend,
		"events":       cfg.Events.Enabled,
	}).Info("依赖注入完成")
	ready = true
	return a, nil
}

// Server 用路由创建 HTTP 服务。
func (a *App) Server() *httpserver.Server {
	return httpserver.NewServer(a.Config.Server, a.Router)
}

// Close 按创建的逆序释放资源。
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.log.WithError(err).WithField("resource", c.name).Warn("释放资源失败")
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// OpenDatabase 打开数据库并执行迁移。
func OpenDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := mysql.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := mysql.Migrate(db); err != nil {
		_ = mysql.Close(db)
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	return db, nil
}

func (a *App) newBlobStorage(ctx context.Context) (blob.Storage, error) {
	cfg := a.Config.Storage
	switch cfg.Backend {
	case "minio":
		client, err := miniodb.Connect(ctx, cfg.MinIO)
		if err != nil {
			return nil, err
		}
		return blob.NewMinIOStorage(client, cfg.MinIO.Bucket, cfg.UploadDir), nil
	default:
		return blob.NewLocalStorage(cfg.UploadDir)
	}
}

func (a *App) newVectorIndex(ctx context.Context) (vectorstore.Index, error) {
	cfg := a.Config.VectorIndex
	switch cfg.Backend {
	case "chroma":
		return vectorstore.NewChromaIndex(cfg.Chroma.URL, config.Duration(cfg.Timeout, 10*time.Second), a.Config.Middleware.CircuitBreaker), nil
	case "milvus":
		c, err := milvusdb.Connect(ctx, cfg.Milvus)
		if err != nil {
			return nil, err
		}
		a.onClose("milvus", c.Close)
		if err := milvusdb.EnsureCollection(ctx, c, cfg.Collection, cfg.Milvus); err != nil {
			return nil, err
		}
		return vectorstore.NewMilvusIndex(c, cfg.Milvus, a.log.WithField("component", "milvus")), nil
	default:
		return vectorstore.NewMemoryIndex(), nil
	}
}

func (a *App) newSuggestionStore(ctx context.Context) (suggestions.Store, error) {
	cfg := a.Config.Suggestions
	ttl := config.Duration(cfg.TTL, 24*time.Hour)
	switch cfg.Backend {
	case "redis":
		rdb, err := redisdb.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.onClose("redis", rdb.Close)
		return suggestions.NewRedisStore(rdb, ttl), nil
	default:
		return suggestions.NewMemoryStore(cfg.Capacity, ttl)
	}
}

// newPublisher 在启用事件时返回 Kafka 发布器。主题创建失败不阻止启动，
// broker 开启了自动建主题时仍可写入。
func (a *App) newPublisher() events.Publisher {
	cfg := a.Config.Events
	if !cfg.Enabled {
		return events.Nop{}
	}
	if err := kafkadb.EnsureTopic(cfg.Kafka); err != nil {
		a.log.WithError(err).WithField("topic", cfg.Kafka.Topic).Warn("无法确认 Kafka 主题")
	}
	pub := events.NewKafkaPublisher(kafkadb.NewWriter(cfg.Kafka), cfg.Kafka.Topic, a.log.WithField("component", "events"))
	a.onClose("kafka", pub.Close)
	return pub
}

// newRateLimiter 在关闭限流时返回 nil 接口，路由据此跳过限流中间件。
func newRateLimiter(cfg config.RateLimiterConfig) (ratelimiter.KeyedRateLimiter, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	factory, err := ratelimiter.FactoryFor(cfg.Algorithm, cfg.Rate, cfg.Capacity)
	if err != nil {
		return nil, fmt.Errorf("初始化限流器失败: %w", err)
	}
	return ratelimiter.NewKeyed(factory, rateLimiterIdleTTL), nil
}
