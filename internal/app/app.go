package app

import (
	"context"
	"fmt"

	"github.com/mnandhu/learningpath/internal/storage"
	"github.com/mnandhu/learningpath/internal/util"
	"github.com/mnandhu/learningpath/pkg/cache"
	"github.com/mnandhu/learningpath/pkg/config"
	"github.com/mnandhu/learningpath/pkg/embeddings"
	ollamaembed "github.com/mnandhu/learningpath/pkg/embeddings/ollama"
	openaiembed "github.com/mnandhu/learningpath/pkg/embeddings/openai"
	"github.com/mnandhu/learningpath/pkg/enrich"
	"github.com/mnandhu/learningpath/pkg/logger"
	"github.com/mnandhu/learningpath/pkg/pipeline"
	"github.com/mnandhu/learningpath/pkg/ratelimit"
	"github.com/mnandhu/learningpath/pkg/store"
	storepgx "github.com/mnandhu/learningpath/pkg/store/pgx"
	"github.com/mnandhu/learningpath/pkg/wikidata"
	"github.com/mnandhu/learningpath/pkg/wikipedia"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// NewCache returns a Redis-backed cache when REDIS_ADDR is configured and
// reachable, and an in-memory cache otherwise.
func NewCache(ctx context.Context, cfg config.Config) cache.Cache {
	if cfg.RedisAddr == "" {
		logger.Info("No Redis address configured, using in-memory cache")
		return cache.NewMemoryCache()
	}
	redisCache, err := cache.NewRedisCache(ctx, cache.NewRedisCacheParams{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Warn("Redis unreachable, falling back to in-memory cache", "addr", cfg.RedisAddr, "err", err)
		return cache.NewMemoryCache()
	}
	logger.Info("Using Redis cache", "addr", cfg.RedisAddr)
	return redisCache
}

// NewEmbedder builds the embedding client selected by AI_ADAPTER. The
// default adapter is OpenAI-compatible; "ollama" selects a local Ollama
// server.
func NewEmbedder(cfg config.Config) (embeddings.Embedder, error) {
	adapter := util.GetEnvString("AI_ADAPTER", "openai")
	switch adapter {
	case "ollama":
		return ollamaembed.NewEmbeddingClient(ollamaembed.NewEmbeddingClientParams{
			Model:                 util.GetEnv("AI_EMBED_MODEL"),
			BaseURL:               util.GetEnv("AI_EMBED_URL"),
			APIKey:                util.GetEnv("AI_EMBED_KEY"),
			Dimensions:            util.GetEnvInt("AI_EMBED_DIM", 1536),
			MaxConcurrentRequests: int64(cfg.ParallelRequests),
		})
	case "openai":
		return openaiembed.NewEmbeddingClient(openaiembed.NewEmbeddingClientParams{
			Model:                 util.GetEnv("AI_EMBED_MODEL"),
			BaseURL:               util.GetEnv("AI_EMBED_URL"),
			APIKey:                util.GetEnv("AI_EMBED_KEY"),
			Dimensions:            util.GetEnvInt("AI_EMBED_DIM", 1536),
			MaxConcurrentRequests: int64(cfg.ParallelRequests),
		}), nil
	default:
		return nil, fmt.Errorf("unknown AI adapter: %s", adapter)
	}
}

// NewTopicStore connects to the database named by DATABASE_URL, registers
// pgvector types, runs pending migrations, and returns the store together
// with a close function. An empty DATABASE_URL returns a nil store.
func NewTopicStore(ctx context.Context) (store.TopicStore, func(), error) {
	databaseURL := util.GetEnv("DATABASE_URL")
	if databaseURL == "" {
		return nil, func() {}, nil
	}

	if err := storepgx.RunMigrations(databaseURL); err != nil {
		return nil, nil, fmt.Errorf("migrations failed: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, nil, err
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, err
	}

	return storepgx.NewTopicDBStoreWithConnection(pool), pool.Close, nil
}

// BuildPipeline wires the full generation pipeline for the given
// configuration. Sinks are attached based on what the environment provides:
// files always, S3 when a bucket is configured, and the topic store plus
// embeddings when a database is configured.
func BuildPipeline(ctx context.Context, cfg config.Config) (*pipeline.Pipeline, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	domainCfg := config.Domains[cfg.Domain]

	limiter, err := ratelimit.NewLimiter(map[string]ratelimit.ServiceLimit{
		wikidata.Service:  {Rate: cfg.WikidataRate, Burst: cfg.WikidataBurst},
		wikipedia.Service: {Rate: cfg.WikipediaRate, Burst: cfg.WikipediaBurst},
	})
	if err != nil {
		return nil, nil, err
	}

	runCache := NewCache(ctx, cfg)

	wikidataClient := wikidata.NewClient(wikidata.NewClientParams{
		Config:  cfg,
		Limiter: limiter,
		Cache:   runCache,
	})
	wikipediaClient := wikipedia.NewClient(wikipedia.NewClientParams{
		Config:  cfg,
		Limiter: limiter,
	})
	resolver := wikipedia.NewResolver(wikipedia.NewResolverParams{
		Client:    wikipediaClient,
		HintTerms: domainCfg.HintTerms,
	})
	enricher := enrich.NewEnricher(enrich.NewEnricherParams{
		Config:     cfg,
		Properties: wikidataClient,
		Resolver:   resolver,
		Pages:      wikipediaClient,
		Cache:      runCache,
	})

	sinks := []pipeline.Sink{&pipeline.FileSink{Dir: cfg.OutputDir}}

	if util.GetEnv("AWS_BUCKET") != "" {
		if s3Client := storage.NewS3Client(ctx); s3Client != nil {
			sinks = append(sinks, &pipeline.S3Sink{Client: s3Client})
		} else {
			logger.Warn("S3 configuration invalid, skipping S3 sink")
		}
	}

	topicStore, closeStore, err := NewTopicStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if topicStore != nil {
		sinks = append(sinks, &pipeline.StoreSink{Store: topicStore})

		embedder, err := NewEmbedder(cfg)
		if err != nil {
			closeStore()
			return nil, nil, err
		}
		sinks = append(sinks, &pipeline.EmbeddingSink{
			Store:         topicStore,
			Embedder:      embedder,
			Encoder:       cfg.TokenEncoder,
			ChunkTokens:   cfg.MaxEmbedTokens,
			OverlapTokens: util.GetEnvInt("KG_CHUNK_OVERLAP", 200),
		})
	}

	p := pipeline.NewPipeline(pipeline.NewPipelineParams{
		Config:   cfg,
		Source:   wikidataClient,
		Enricher: enricher,
		Sinks:    sinks,
	})
	return p, closeStore, nil
}
