package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"

	"github.com/jonhill90/vibes-sub001/internal/chunker"
	"github.com/jonhill90/vibes-sub001/internal/config"
	"github.com/jonhill90/vibes-sub001/internal/crawler"
	"github.com/jonhill90/vibes-sub001/internal/embedding"
	"github.com/jonhill90/vibes-sub001/internal/ingest"
	"github.com/jonhill90/vibes-sub001/internal/log"
	"github.com/jonhill90/vibes-sub001/internal/parser"
	"github.com/jonhill90/vibes-sub001/internal/search"
	"github.com/jonhill90/vibes-sub001/internal/store"
	"github.com/jonhill90/vibes-sub001/internal/vectorstore"
)

// app holds the wired service graph for one command invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	pool  *pgxpool.Pool
	qconn *grpc.ClientConn

	store        *store.Store
	manager      *vectorstore.Manager
	orchestrator *ingest.Orchestrator
	engine       *search.Engine
}

// newApp loads configuration and wires every component. Callers must
// Close the returned app.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger := log.New(log.Config{Level: parseLevel(cfg.LogLevel), JSON: cfg.LogJSON})
	slog.SetDefault(logger)

	pool, err := store.NewPool(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	st := store.New(pool, logger.With("component", "store"))

	qconn, err := vectorstore.Dial(cfg.QdrantAddr())
	if err != nil {
		pool.Close()
		return nil, err
	}
	collections := qdrant.NewCollectionsClient(qconn)
	points := qdrant.NewPointsClient(qconn)
	vlogger := logger.With("component", "vectorstore")
	manager := vectorstore.NewManager(collections, points, vlogger)
	vectors := vectorstore.NewStore(points, vlogger)

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	provider := embedding.NewGenkitProvider(googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel))
	embedSvc := embedding.NewService(provider, st, embedding.Config{
		Model:     cfg.EmbedderModel,
		Dimension: cfg.EmbedderDimension,
		BatchSize: cfg.EmbedderBatchSize,
	}, logger.With("component", "embedding"))

	crawlSvc := crawler.New(crawler.Config{
		MaxConcurrent:  cfg.Crawler.MaxConcurrent,
		RateLimit:      time.Duration(cfg.Crawler.RateLimitDelayMs) * time.Millisecond,
		AttemptTimeout: time.Duration(cfg.Crawler.AttemptTimeoutMs) * time.Millisecond,
		MaxRetries:     cfg.Crawler.MaxRetries,
		UserAgent:      cfg.Crawler.UserAgent,
	}, st, logger.With("component", "crawler"))

	orchestrator := ingest.New(
		parser.New(logger.With("component", "parser")),
		chunker.New(chunker.DefaultMaxTokens, chunker.DefaultOverlapTokens),
		embedSvc,
		vectors,
		st,
		crawlSvc,
		logger.With("component", "ingest"),
	)

	engine := search.New(embedSvc, vectors, st, search.Config{
		VectorWeight:        cfg.Search.VectorWeight,
		TextWeight:          cfg.Search.TextWeight,
		CandidateMultiplier: cfg.Search.CandidateMultiplier,
		LexicalTimeout:      time.Duration(cfg.Search.LexicalTimeoutMs) * time.Millisecond,
	}, logger.With("component", "search"))

	return &app{
		cfg:          cfg,
		logger:       logger,
		pool:         pool,
		qconn:        qconn,
		store:        st,
		manager:      manager,
		orchestrator: orchestrator,
		engine:       engine,
	}, nil
}

// Close releases the app's connections.
func (a *app) Close() {
	a.pool.Close()
	if err := a.qconn.Close(); err != nil {
		a.logger.Warn("failed to close qdrant connection", "error", err)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
