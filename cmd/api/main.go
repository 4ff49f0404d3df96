package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/api/handlers"
	rediscache "github.com/souroshsepehri/zimmer-chatbot-sub000/internal/cache/redis"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/chat"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/escalation"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/index"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/intent"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/llm"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/metrics"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/middleware/ratelimit"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/middleware/security"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/middleware/validation"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/policy"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/ranking"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/retrieval"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/sitescope"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/storage/sqlite"
	milvusindex "github.com/souroshsepehri/zimmer-chatbot-sub000/internal/vector/milvus"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/pkg/config"
	appLogger "github.com/souroshsepehri/zimmer-chatbot-sub000/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Zimmer FAQ answering service")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var redisClient *rediscache.Client
	if cfg.Redis.Enabled {
		redisClient, err = rediscache.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, running without cache", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.Escalation.Model,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		cfg.LLM.TimeoutSec,
	)

	var milvusClient *milvusindex.Client
	if cfg.Milvus.Enabled {
		milvusClient, err = milvusindex.NewClient(cfg.Milvus.Endpoint, cfg.Milvus.CollectionName, cfg.Milvus.VectorDim)
		if err != nil {
			appLogger.Warn("Milvus unavailable, semantic search uses the in-memory snapshot", zap.Error(err))
			milvusClient = nil
		} else {
			defer milvusClient.Close()
		}
	}

	faqIndex := index.New(sqliteClient, llmClient, sqliteClient)
	if err := faqIndex.Rebuild(context.Background()); err != nil {
		appLogger.Fatal("Failed to build FAQ index", zap.Error(err))
	}
	metrics.SnapshotSize.Set(float64(faqIndex.Load().Len()))

	if milvusClient != nil {
		if err := milvusClient.ReplaceAll(context.Background(), faqIndex.Load().Records()); err != nil {
			appLogger.Warn("Failed to mirror FAQ embeddings into Milvus", zap.Error(err))
		}
	}

	cacheTTL := time.Duration(cfg.Redis.ResponseTTL) * time.Second

	var embeddingCache llm.EmbeddingCache
	if redisClient != nil {
		embeddingCache = redisClient
	}
	embedder := llm.NewCachedEmbedder(llmClient, embeddingCache, cacheTTL)

	resolver := sitescope.NewResolver(sqliteClient)
	classifier := intent.NewClassifier(llmClient, cfg.Intent.KeywordBoost, cfg.Intent.TimeoutSec)

	var semanticIndex retrieval.SemanticIndex
	if milvusClient != nil {
		semanticIndex = milvusClient
	}
	retriever := retrieval.NewRetriever(retrieval.Config{
		LexicalWeight:  cfg.Retrieval.LexicalWeight,
		SemanticWeight: cfg.Retrieval.SemanticWeight,
		MinLexical:     cfg.Retrieval.MinLexical,
		MinSemantic:    cfg.Retrieval.MinSemantic,
		TopK:           cfg.Retrieval.TopK,
	}, embedder, semanticIndex)

	ranker := ranking.NewRanker(ranking.Config{
		RetrievalWeight: cfg.Ranking.RetrievalWeight,
		IntentWeight:    cfg.Ranking.IntentWeight,
	})

	policyEngine := policy.NewEngine(cfg.Fallback.AcceptThreshold, cfg.Fallback.Message)

	gate := escalation.NewGate(
		cfg.Escalation.Enabled,
		[]policy.Source{policy.SourceFAQ},
		cfg.Escalation.MaxConfidence,
		cfg.Escalation.TimeoutSec,
		llmClient,
	)

	var responseCache chat.ResponseCache
	if redisClient != nil {
		responseCache = redisClient
	}
	orchestrator := chat.NewOrchestrator(
		resolver,
		classifier,
		retriever,
		ranker,
		policyEngine,
		gate,
		faqIndex,
		sqliteClient,
		responseCache,
		cacheTTL,
	)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	rateLimiter := ratelimit.New(ratelimit.Config{Logger: appLogger.GetLogger()})
	defer rateLimiter.Stop()

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-User-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(rateLimiter.Middleware())
	app.Use(validation.Middleware(validation.Config{Logger: appLogger.GetLogger()}))

	chatHandler := handlers.NewChatHandler(orchestrator, sqliteClient)

	var mirror handlers.VectorMirror
	if milvusClient != nil {
		mirror = milvusClient
	}
	var invalidator handlers.CacheInvalidator
	if redisClient != nil {
		invalidator = redisClient
	}
	adminHandler := handlers.NewAdminHandler(faqIndex, mirror, invalidator)
	wsHandler := handlers.NewWebSocketHandler(orchestrator)

	api := app.Group("/api/v1")

	api.Post("/chat", chatHandler.HandleChat)
	api.Get("/chat/history", chatHandler.GetChatHistory)
	api.Post("/admin/reindex", adminHandler.Reindex)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":        "ready",
			"snapshot_size": faqIndex.Load().Len(),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
