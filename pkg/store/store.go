package store

import (
	"context"

	"github.com/mnandhu/learningpath/pkg/embeddings"
	"github.com/mnandhu/learningpath/pkg/graph"
)

// TopicStore persists enriched topics, graph edges, and content embeddings.
// Implementations key topics by (public id, domain), so the same Wikidata
// entity can live in several domain graphs independently.
type TopicStore interface {
	// SaveTopics upserts topics by (id, domain). Re-running a generation
	// updates existing rows instead of duplicating them.
	SaveTopics(ctx context.Context, domain string, topics []graph.Topic) error

	// SaveEdges replaces the edge set of a domain with the given edges.
	SaveEdges(ctx context.Context, domain string, edges []graph.Edge) error

	// LoadTopics returns all topics of a domain ordered by id.
	LoadTopics(ctx context.Context, domain string) ([]graph.Topic, error)

	// SaveEmbeddings replaces the embedding chunks of one topic.
	SaveEmbeddings(ctx context.Context, domain, topicID string, chunks []embeddings.Chunk, vectors [][]float32) error

	// SimilarTopics returns up to topK topic ids of the domain ordered by
	// cosine similarity of their chunks to the given vector.
	SimilarTopics(ctx context.Context, domain string, vector []float32, topK int) ([]SimilarTopic, error)

	// SaveRun records the outcome of one generation run.
	SaveRun(ctx context.Context, run RunRecord) error
}

// RunRecord summarizes one completed generation run.
type RunRecord struct {
	RunID       string
	Domain      string
	TopicCount  int
	EdgeCount   int
	Partial     bool
	GeneratedAt string
}

// SimilarTopic is one similarity search hit.
type SimilarTopic struct {
	TopicID    string
	Title      string
	Similarity float64
}

// ChunkRange invokes fn over [start, end) windows covering total elements.
func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}
