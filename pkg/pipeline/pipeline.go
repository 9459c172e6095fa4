package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mnandhu/learningpath/pkg/config"
	"github.com/mnandhu/learningpath/pkg/graph"
	"github.com/mnandhu/learningpath/pkg/logger"
	"github.com/mnandhu/learningpath/pkg/wikidata"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// CandidateSource yields candidate topics for a domain.
type CandidateSource interface {
	FetchTopics(ctx context.Context, domainKey string, limit int) ([]graph.Topic, error)
}

// TopicEnricher resolves and enriches candidates, one output topic per input.
type TopicEnricher interface {
	Enrich(ctx context.Context, candidates []graph.Topic) ([]graph.Topic, error)
}

// Sink receives the assembled snapshot of one run. Sink failures do not
// abort the run; every sink sees the snapshot.
type Sink interface {
	Name() string
	Write(ctx context.Context, result *Result) error
}

// Result is the outcome of one pipeline run.
type Result struct {
	RunID         string
	Domain        string
	Snapshot      *graph.Snapshot
	Partial       bool
	EnrichedCount int
}

// Pipeline drives a full generation run: query candidates, enrich them,
// assemble the snapshot, and fan it out to the configured sinks.
type Pipeline struct {
	cfg      config.Config
	source   CandidateSource
	enricher TopicEnricher
	sinks    []Sink
}

// NewPipelineParams defines the configuration for creating a Pipeline.
type NewPipelineParams struct {
	Config   config.Config
	Source   CandidateSource
	Enricher TopicEnricher
	Sinks    []Sink
}

// NewPipeline creates a Pipeline.
func NewPipeline(params NewPipelineParams) *Pipeline {
	return &Pipeline{
		cfg:      params.Config,
		source:   params.Source,
		enricher: params.Enricher,
		sinks:    params.Sinks,
	}
}

// Run executes one generation run. A failed query page or a cancellation
// mid-enrichment produces a partial snapshot from the work completed so far;
// a run with no candidates at all fails.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	domainCfg, ok := config.Domains[p.cfg.Domain]
	if !ok {
		return nil, fmt.Errorf("unknown domain: %s", p.cfg.Domain)
	}

	logger.Info("Starting generation run", "run", runID, "domain", p.cfg.Domain, "limit", p.cfg.Limit)

	partial := false
	candidates, err := p.source.FetchTopics(ctx, p.cfg.Domain, p.cfg.Limit)
	if err != nil {
		var queryErr *wikidata.QueryFailedError
		if errors.As(err, &queryErr) && len(candidates) > 0 {
			logger.Warn("Candidate query failed partway, continuing with partial results",
				"run", runID, "candidates", len(candidates), "err", err)
			partial = true
		} else {
			return nil, fmt.Errorf("candidate query failed: %w", err)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates found for domain %s", p.cfg.Domain)
	}
	logger.Info("Candidates fetched", "run", runID, "count", len(candidates))

	topics, err := p.enricher.Enrich(ctx, candidates)
	if err != nil {
		if len(topics) == 0 {
			return nil, fmt.Errorf("enrichment failed: %w", err)
		}
		logger.Warn("Enrichment interrupted, assembling partial snapshot", "run", runID, "err", err)
		partial = true
	}

	edges := graph.EdgesFromReferences(topics)
	snap := graph.Assemble(topics, edges, graph.AssembleParams{
		Domain:      p.cfg.Domain,
		DomainName:  domainCfg.Name,
		GeneratedAt: time.Now(),
	})

	enriched := 0
	for _, t := range snap.Topics {
		if t.Enriched() {
			enriched++
		}
	}
	result := &Result{
		RunID:         runID,
		Domain:        p.cfg.Domain,
		Snapshot:      snap,
		Partial:       partial,
		EnrichedCount: enriched,
	}
	logger.Info("Snapshot assembled",
		"run", runID,
		"topics", snap.Metadata.TopicCount,
		"edges", snap.Metadata.EdgeCount,
		"enriched", enriched,
		"partial", partial,
	)

	var sinkErrs []error
	for _, sink := range p.sinks {
		if err := sink.Write(ctx, result); err != nil {
			logger.Error("Sink write failed", "run", runID, "sink", sink.Name(), "err", err)
			sinkErrs = append(sinkErrs, fmt.Errorf("%s: %w", sink.Name(), err))
			continue
		}
		logger.Info("Snapshot written", "run", runID, "sink", sink.Name())
	}

	return result, errors.Join(sinkErrs...)
}
