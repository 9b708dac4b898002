// Package main implements the research-artifact production pipeline orchestrator.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/WessleyAI/wessley-mvp/engine/api"
	"github.com/WessleyAI/wessley-mvp/engine/domain"
	"github.com/WessleyAI/wessley-mvp/engine/graph"
	"github.com/WessleyAI/wessley-mvp/engine/jobstore"
	"github.com/WessleyAI/wessley-mvp/engine/registry"
	eruntime "github.com/WessleyAI/wessley-mvp/engine/runtime"
	"github.com/WessleyAI/wessley-mvp/engine/semantic"
	"github.com/WessleyAI/wessley-mvp/engine/stages"
	"github.com/WessleyAI/wessley-mvp/pkg/metrics"
	"github.com/WessleyAI/wessley-mvp/pkg/mid"
	"github.com/WessleyAI/wessley-mvp/pkg/resilience"
	"github.com/WessleyAI/wessley-mvp/pkg/transport"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/automaxprocs/maxprocs"
)

// Config holds all environment-based configuration.
type Config struct {
	Port             string
	LogicServerURL   string
	DraftServerURL   string
	EmbedServerURL   string
	ExtractURL       string
	Neo4jURL         string
	Neo4jUser        string
	Neo4jPass        string
	QdrantURL        string
	QdrantCollection string
	NatsURL          string
	WorkerPoolSize   int
	SubmitQueueSize  int
	StageDeadline    time.Duration
	JobDeadline      time.Duration
	ArtifactRoot     string
	UploadDir        string
	DefaultRigor     domain.RigorLevel
	CORSOrigin       string
	ToneMode         eruntime.ToneMode
}

func loadConfig() Config {
	return Config{
		Port:             envOr("PORT", "8080"),
		LogicServerURL:   envOr("LOGIC_SERVER_URL", "http://localhost:9001"),
		DraftServerURL:   envOr("DRAFT_SERVER_URL", "http://localhost:9002"),
		EmbedServerURL:   envOr("EMBED_SERVER_URL", "http://localhost:9003"),
		ExtractURL:       envOr("EXTRACT_SERVER_URL", "http://localhost:9004"),
		Neo4jURL:         envOr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser:        envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:        envOr("NEO4J_PASS", "password"),
		QdrantURL:        envOr("QDRANT_URL", "localhost:6334"),
		QdrantCollection: envOr("QDRANT_COLLECTION", "research_claims"),
		NatsURL:          envOr("NATS_URL", nats.DefaultURL),
		WorkerPoolSize:   envOrInt("WORKER_POOL_SIZE", 0),
		SubmitQueueSize:  envOrInt("SUBMIT_QUEUE_SIZE", 256),
		StageDeadline:    envOrDuration("STAGE_DEADLINE", 10*time.Minute),
		JobDeadline:      envOrDuration("JOB_DEADLINE", 24*time.Hour),
		ArtifactRoot:     envOr("ARTIFACT_ROOT", "/tmp/research-artifacts"),
		UploadDir:        envOr("UPLOAD_DIR", "/tmp/research-uploads"),
		DefaultRigor:     domain.RigorLevel(envOr("DEFAULT_RIGOR", string(domain.RigorExploratory))),
		CORSOrigin:       envOr("CORS_ORIGIN", "*"),
		ToneMode:         eruntime.ToneMode(envOr("TONE_MODE", string(eruntime.ToneModePreserve))),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

const (
	exitMisconfigured        = 64
	exitUpstreamUnavailable  = 69
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if _, err := maxprocs.Set(maxprocs.Logger(func(fmt string, args ...any) { logger.Info("maxprocs", "msg", fmt, "args", args) })); err != nil {
		logger.Warn("maxprocs: could not set GOMAXPROCS", "err", err)
	}

	cfg := loadConfig()
	if !domain.ValidRigorLevels[cfg.DefaultRigor] {
		logger.Error("invalid DEFAULT_RIGOR", "value", cfg.DefaultRigor)
		os.Exit(exitMisconfigured)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("orchestrator exited with error", "err", err)
		if err == errUpstreamUnavailable {
			os.Exit(exitUpstreamUnavailable)
		}
		os.Exit(1)
	}
}

var errUpstreamUnavailable = fmt.Errorf("upstream dependency unavailable at startup")

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	neo4jDriver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer neo4jDriver.Close(ctx)
	if err := neo4jDriver.VerifyConnectivity(ctx); err != nil {
		logger.Error("neo4j unreachable at startup", "err", err)
		return errUpstreamUnavailable
	}
	graphStore := graph.New(neo4jDriver)

	vectorStore, err := semantic.New(cfg.QdrantURL, cfg.QdrantCollection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()
	if err := vectorStore.EnsureCollection(ctx, semantic.ClaimEmbeddingDims); err != nil {
		logger.Error("qdrant unreachable at startup", "err", err)
		return errUpstreamUnavailable
	}

	nc, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		logger.Warn("nats unavailable, job updates will not fan out across processes", "err", err)
		nc = nil
	} else {
		defer nc.Close()
	}

	limiter := resilience.NewLimiter(resilience.LimiterOpts{Rate: 20, Burst: 40})
	logicClient := transport.NewLogicClient(cfg.LogicServerURL, limiter)
	draftClient := transport.NewDraftClient(cfg.DraftServerURL, limiter)
	embedClient := transport.NewEmbedClient(cfg.EmbedServerURL, limiter)
	extractClient := transport.NewExtractClient(cfg.ExtractURL, limiter)

	metricsRegistry := metrics.New()

	jobStore := jobstore.New(graphStore, nc)
	reg := registry.New(graphStore)

	deps := eruntime.Deps{
		Logic:        logicClient,
		Draft:        draftClient,
		Embed:        embedClient,
		Graph:        graphStore,
		Vector:       vectorStore,
		Nats:         nc,
		Metrics:      metricsRegistry,
		ArtifactRoot: cfg.ArtifactRoot,
		DefaultRigor: cfg.DefaultRigor,
		ToneMode:     cfg.ToneMode,
	}

	pipeline := []eruntime.Stage{
		stages.NewIngestPDFStage(adaptExtractor(extractClient)),
		stages.CartographerStage,
		stages.VerifierStage,
		stages.CriticStage,
		stages.DrafterStage,
		stages.SaverStage,
	}

	workers := cfg.WorkerPoolSize
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
		if workers > 4 {
			workers = 4
		}
	}

	rt := eruntime.New(deps, pipeline, jobStore, workers, cfg.SubmitQueueSize, logger)
	go rt.Start(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /workflow/submit", api.NewSubmitHandler(reg, graphStore, jobStore, rt, cfg.UploadDir))
	mux.HandleFunc("GET /workflow/status/{job_id}", api.NewStatusHandler(jobStore))
	mux.HandleFunc("GET /workflow/status/{job_id}/stream", api.NewStatusStreamHandler(jobStore))
	mux.HandleFunc("GET /workflow/result/{job_id}", api.NewResultHandler(jobStore))
	mux.HandleFunc("POST /api/projects", api.NewCreateProjectHandler(reg))
	mux.HandleFunc("GET /api/projects", api.NewListProjectsHandler(reg))
	mux.HandleFunc("GET /api/projects/{id}", api.NewGetProjectHandler(reg))
	mux.HandleFunc("PATCH /api/projects/{id}", api.NewUpdateProjectHandler(reg))
	mux.HandleFunc("GET /api/projects/{project_id}/ingest/{ingestion_id}/status", api.NewIngestionStatusHandler(graphStore))
	mux.HandleFunc("GET /health", api.NewHealthHandler(api.HealthDeps{
		Neo4j: neo4jDriver,
		Nats:  nc,
		Logic: logicClient,
		Draft: draftClient,
		Embed: embedClient,
	}))
	mux.Handle("GET /metrics", metricsRegistry.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("research-orchestrator"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // long enough for the status-stream endpoint
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("orchestrator starting", "port", cfg.Port, "workers", workers)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func adaptExtractor(c *transport.ExtractClient) stages.PDFExtractor {
	return func(ctx context.Context, data []byte) (string, []stages.PageMap, []stages.ImageRef, error) {
		markdown, pages, images, err := c.Extract(ctx, data)
		if err != nil {
			return "", nil, nil, err
		}
		pageMaps := make([]stages.PageMap, len(pages))
		for i, p := range pages {
			pageMaps[i] = stages.PageMap{Page: p.Page, Text: p.Text}
		}
		imageRefs := make([]stages.ImageRef, len(images))
		for i, im := range images {
			imageRefs[i] = stages.ImageRef{Page: im.Page, Path: im.Path, Caption: im.Caption}
		}
		return markdown, pageMaps, imageRefs, nil
	}
}
