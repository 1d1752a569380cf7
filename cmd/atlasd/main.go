// Command atlasd runs the context graph service: the HTTP API plus the
// four background consumers that turn appended events into projected
// graph state, derived attributes, extracted preferences, and
// consolidated long-term structure.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ctxatlas/atlas/pkg/api"
	"github.com/ctxatlas/atlas/pkg/config"
	"github.com/ctxatlas/atlas/pkg/consumers"
	"github.com/ctxatlas/atlas/pkg/consumers/consolidation"
	"github.com/ctxatlas/atlas/pkg/consumers/enrichment"
	"github.com/ctxatlas/atlas/pkg/consumers/extraction"
	"github.com/ctxatlas/atlas/pkg/consumers/projection"
	"github.com/ctxatlas/atlas/pkg/database"
	"github.com/ctxatlas/atlas/pkg/embedding"
	"github.com/ctxatlas/atlas/pkg/eventstore"
	"github.com/ctxatlas/atlas/pkg/graphstore"
	"github.com/ctxatlas/atlas/pkg/llm"
	"github.com/ctxatlas/atlas/pkg/metrics"
	"github.com/ctxatlas/atlas/pkg/payloadstore"
	"github.com/ctxatlas/atlas/pkg/retrieval"
	"github.com/ctxatlas/atlas/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func podID() string {
	if id := os.Getenv("POD_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "atlasd-0"
}

// loadRedisOptions builds a *redis.Options from ATLAS_REDIS_URL if set,
// otherwise from ATLAS_REDIS_HOST/ATLAS_REDIS_PORT with no auth.
func loadRedisOptions() (*redis.Options, error) {
	if url := os.Getenv("ATLAS_REDIS_URL"); url != "" {
		return redis.ParseURL(url)
	}
	return &redis.Options{
		Addr:     fmt.Sprintf("%s:%s", getEnv("ATLAS_REDIS_HOST", "localhost"), getEnv("ATLAS_REDIS_PORT", "6379")),
		Password: os.Getenv("ATLAS_REDIS_PASSWORD"),
	}, nil
}

// newEmbeddingClient picks the HTTP-backed embedding adapter when a
// service URL is configured, falling back to the deterministic local
// adapter for environments with no embedding service deployed.
func newEmbeddingClient(cfg *config.EmbeddingConfig) *embedding.Client {
	if url := os.Getenv("EMBEDDING_SERVICE_URL"); url != "" {
		return embedding.NewHTTP(url, cfg)
	}
	return embedding.NewLocal(cfg)
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("no .env file at %s, continuing with existing environment", envPath)
	}

	httpAddr := ":" + getEnv("HTTP_PORT", "8080")
	metricsAddr := ":" + getEnv("METRICS_PORT", "9090")

	slog.Info("starting atlasd", "version", version.Full(), "pod_id", podID())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer dbClient.Close()
	slog.Info("connected to postgres", "host", dbConfig.Host, "database", dbConfig.Database)

	redisOpts, err := loadRedisOptions()
	if err != nil {
		log.Fatalf("failed to load redis config: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	slog.Info("connected to redis", "addr", redisOpts.Addr)

	events := eventstore.New(dbClient.Pool, rdb, cfg.EventStore)
	graph := graphstore.New(dbClient.Pool, cfg.GraphStore)
	payloads := payloadstore.New(dbClient.Pool, config.DefaultPayloadStoreConfig())

	embedClient := newEmbeddingClient(cfg.Embedding)

	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		log.Fatalf("failed to build llm client: %v", err)
	}

	registry := prometheus.NewRegistry()
	mx := metrics.New(registry)

	access := retrieval.NewAccessUpdater(graph, events, 1024)
	access.Start()
	defer access.Stop()

	retrievalSvc := retrieval.NewService(graph, events, embedClient, llmClient, access, cfg.Scoring, cfg.Intent, cfg.GraphStore)

	reflection := consumers.NewReflectionTrigger()
	id := podID()

	projectionPool := consumers.New("projection", id, cfg.Queue.ProjectionWorkers, events,
		projection.NewHandler(graph, events, payloads), cfg.Queue)
	extractionPool := consumers.New("extraction", id, cfg.Queue.ExtractionWorkers, events,
		extraction.NewHandler(graph, events, payloads, llmClient, embedClient, cfg.LLM, cfg.Embedding, cfg.Queue), cfg.Queue)
	enrichmentPool := consumers.New("enrichment", id, cfg.Queue.EnrichmentWorkers, events,
		enrichment.NewHandler(graph, events, payloads, embedClient, cfg.Embedding, reflection, cfg.Queue), cfg.Queue)

	pools := []*consumers.Pool{projectionPool, extractionPool, enrichmentPool}
	for _, p := range pools {
		if err := p.Start(ctx); err != nil {
			log.Fatalf("failed to start consumer pool: %v", err)
		}
	}
	defer func() {
		for _, p := range pools {
			p.Stop()
		}
	}()

	consolidationHandler := consolidation.NewHandler(graph, events, llmClient, mx, cfg.Retention, cfg.Queue)
	consolidationTask := func(ctx context.Context) {
		if err := consolidationHandler.Run(ctx); err != nil {
			slog.Error("consolidation pass failed", "error", err)
		}
	}
	scheduler := consumers.NewScheduler("consolidation", cfg.Queue.ConsolidationInterval, reflection, consolidationTask)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	server := api.NewServer(cfg, events, graph, retrievalSvc)
	server.SetPayloadStore(payloads)
	server.SetAdmin(consolidationHandler)
	if err := server.ValidateWiring(); err != nil {
		log.Fatalf("server wiring incomplete: %v", err)
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: metricsAddr, Handler: metricsMux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		slog.Info("metrics server listening", "addr", metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, draining")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.GracefulShutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("http server listening", "addr", httpAddr)
	if err := server.Start(httpAddr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("http server stopped: %v", err)
	}
	fmt.Println("atlasd stopped")
}
