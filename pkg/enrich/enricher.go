package enrich

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mnandhu/learningpath/pkg/cache"
	"github.com/mnandhu/learningpath/pkg/config"
	"github.com/mnandhu/learningpath/pkg/graph"
	"github.com/mnandhu/learningpath/pkg/logger"
	"github.com/mnandhu/learningpath/pkg/wikipedia"

	"golang.org/x/sync/errgroup"
)

// OutcomeKind tags the result of enriching one candidate.
type OutcomeKind int

const (
	// Resolved means the candidate was matched to an encyclopedia page and
	// all text fields were populated.
	Resolved OutcomeKind = iota
	// PartiallyResolved means the candidate terminated in an unresolved or
	// not-found state; the topic keeps its structured fields and empty text
	// fields.
	PartiallyResolved
	// Failed means an error interrupted enrichment; the topic carries
	// whatever fields were populated before the failure.
	Failed
)

// Outcome is the tagged per-candidate result. The enricher reduces outcomes
// into Topics uniformly, so no candidate is ever dropped.
type Outcome struct {
	Kind   OutcomeKind
	Topic  graph.Topic
	Reason string
}

// PropertyFetcher populates a topic's structured properties and references.
type PropertyFetcher interface {
	FetchProperties(ctx context.Context, topic *graph.Topic) error
}

// PageResolver maps a candidate title to a canonical encyclopedia page.
type PageResolver interface {
	Resolve(ctx context.Context, title, description, topicType string) (wikipedia.Resolution, error)
}

// PageFetcher retrieves page content beyond the lookup summary.
type PageFetcher interface {
	Content(ctx context.Context, title string) (string, error)
	Sections(ctx context.Context, title string) ([]string, error)
}

// Enricher orchestrates resolution and content fetch for batches of
// candidates. Candidates within a batch proceed concurrently up to the
// configured parallelism; the next batch starts only after the current one
// has drained.
type Enricher struct {
	properties PropertyFetcher
	resolver   PageResolver
	pages      PageFetcher
	cache      cache.Cache

	batchSize      int
	parallel       int
	cacheTTL       time.Duration
	tokenEncoder   string
	maxEmbedTokens int
}

// NewEnricherParams defines the configuration for creating an Enricher.
type NewEnricherParams struct {
	Config     config.Config
	Properties PropertyFetcher
	Resolver   PageResolver
	Pages      PageFetcher
	Cache      cache.Cache
}

// NewEnricher creates an Enricher.
func NewEnricher(params NewEnricherParams) *Enricher {
	return &Enricher{
		properties:     params.Properties,
		resolver:       params.Resolver,
		pages:          params.Pages,
		cache:          params.Cache,
		batchSize:      params.Config.BatchSize,
		parallel:       params.Config.ParallelRequests,
		cacheTTL:       params.Config.CacheTTL,
		tokenEncoder:   params.Config.TokenEncoder,
		maxEmbedTokens: params.Config.MaxEmbedTokens,
	}
}

// cachedPage is the enrichment payload cached per candidate title.
type cachedPage struct {
	URL                 string   `json:"url"`
	Summary             string   `json:"summary"`
	Categories          []string `json:"categories"`
	Sections            []string `json:"sections"`
	Content             string   `json:"content"`
	ContentForEmbedding string   `json:"content_for_embedding"`
}

// Enrich processes candidates in bounded batches and returns exactly one
// topic per input candidate, in input order. Per-candidate failures are
// contained: the corresponding topic keeps whatever fields were populated.
// When ctx is canceled no new batch starts and the topics enriched so far
// are returned together with ctx.Err().
func (e *Enricher) Enrich(ctx context.Context, candidates []graph.Topic) ([]graph.Topic, error) {
	topics := make([]graph.Topic, len(candidates))
	copy(topics, candidates)

	batches := (len(candidates) + e.batchSize - 1) / e.batchSize
	for b := 0; b < batches; b++ {
		if ctx.Err() != nil {
			logger.Warn("Enrichment canceled, keeping completed batches", "completed_batches", b)
			return topics, ctx.Err()
		}

		start := b * e.batchSize
		end := start + e.batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		logger.Info("Enriching batch", "batch", b+1, "batches", batches, "size", end-start)

		eg, gCtx := errgroup.WithContext(ctx)
		eg.SetLimit(e.parallel)
		for i := start; i < end; i++ {
			idx := i
			eg.Go(func() error {
				select {
				case <-gCtx.Done():
					return nil
				default:
					outcome := e.enrichOne(gCtx, topics[idx])
					topics[idx] = outcome.Topic
					switch outcome.Kind {
					case PartiallyResolved:
						logger.Debug("Candidate partially resolved", "id", outcome.Topic.ID, "reason", outcome.Reason)
					case Failed:
						logger.Warn("Candidate enrichment failed", "id", outcome.Topic.ID, "reason", outcome.Reason)
					}
					return nil
				}
			})
		}
		// Workers never return errors; Wait only synchronizes the batch.
		_ = eg.Wait()
	}

	return topics, nil
}

// enrichOne runs the full enrichment for a single candidate. It always
// returns an outcome carrying a topic, never an error.
func (e *Enricher) enrichOne(ctx context.Context, topic graph.Topic) Outcome {
	if err := e.properties.FetchProperties(ctx, &topic); err != nil {
		logger.Debug("Property fetch failed", "id", topic.ID, "err", err)
		// Structured properties are an enrichment too; keep going with the
		// encyclopedia lookup.
	}

	key := cache.Fingerprint(wikipedia.Service, topic.Title, "page")
	if data, ok := e.cache.Get(ctx, key); ok {
		var page cachedPage
		if err := json.Unmarshal(data, &page); err == nil {
			applyPage(&topic, page)
			return Outcome{Kind: Resolved, Topic: topic}
		}
		logger.Warn("Invalid cached page data, refetching", "title", topic.Title)
	}

	resolution, err := e.resolver.Resolve(ctx, topic.Title, topic.Description, topic.TopicType)
	if err != nil {
		return Outcome{Kind: Failed, Topic: topic, Reason: err.Error()}
	}
	if resolution.State != wikipedia.StateResolved {
		return Outcome{Kind: PartiallyResolved, Topic: topic, Reason: resolution.Reason}
	}

	page := cachedPage{
		URL:        resolution.Page.URL,
		Summary:    StripCitations(resolution.Page.Summary),
		Categories: resolution.Page.Categories,
	}

	content, err := e.pages.Content(ctx, resolution.Page.Title)
	if err != nil {
		applyPage(&topic, page)
		return Outcome{Kind: Failed, Topic: topic, Reason: err.Error()}
	}
	page.Content = StripCitations(content)
	page.ContentForEmbedding = EmbeddingText(content, e.tokenEncoder, e.maxEmbedTokens)

	sections, err := e.pages.Sections(ctx, resolution.Page.Title)
	if err != nil {
		logger.Debug("Section fetch failed", "title", resolution.Page.Title, "err", err)
	} else {
		page.Sections = sections
	}

	applyPage(&topic, page)

	if data, err := json.Marshal(page); err == nil {
		e.cache.Set(ctx, key, data, e.cacheTTL)
	}
	return Outcome{Kind: Resolved, Topic: topic}
}

func applyPage(topic *graph.Topic, page cachedPage) {
	topic.URL = page.URL
	topic.Summary = page.Summary
	topic.Categories = page.Categories
	topic.Sections = page.Sections
	topic.Content = page.Content
	topic.ContentForEmbedding = page.ContentForEmbedding
}
