package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mnandhu/learningpath/internal/storage"
	"github.com/mnandhu/learningpath/pkg/embeddings"
	"github.com/mnandhu/learningpath/pkg/graph"
	"github.com/mnandhu/learningpath/pkg/logger"
	"github.com/mnandhu/learningpath/pkg/store"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// FileSink writes the snapshot files into a timestamped subdirectory of the
// configured output directory, so successive runs never overwrite each
// other.
type FileSink struct {
	Dir string
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(ctx context.Context, result *Result) error {
	runDir := filepath.Join(s.Dir, time.Now().Format("20060102_150405"))
	path, err := graph.WriteSnapshotFiles(runDir, result.Domain, result.Snapshot)
	if err != nil {
		return err
	}
	logger.Debug("Snapshot files written", "path", path)
	return nil
}

// S3Sink uploads the snapshot documents to object storage under a per-run
// prefix.
type S3Sink struct {
	Client *s3.Client
}

func (s *S3Sink) Name() string { return "s3" }

func (s *S3Sink) Write(ctx context.Context, result *Result) error {
	snapshotData, err := graph.MarshalSnapshot(result.Snapshot)
	if err != nil {
		return err
	}
	topicsData, err := graph.MarshalTopics(result.Snapshot.Topics)
	if err != nil {
		return err
	}

	prefix := fmt.Sprintf("snapshots/%s/%s", result.Domain, result.RunID)
	key := fmt.Sprintf("%s/%s_knowledge_graph.json", prefix, result.Domain)
	if _, err := storage.PutJSON(ctx, s.Client, key, snapshotData); err != nil {
		return err
	}
	key = fmt.Sprintf("%s/enriched_%s_topics.json", prefix, result.Domain)
	_, err = storage.PutJSON(ctx, s.Client, key, topicsData)
	return err
}

// StoreSink upserts the snapshot's topics and edges into the topic store.
type StoreSink struct {
	Store store.TopicStore
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Write(ctx context.Context, result *Result) error {
	if err := s.Store.SaveTopics(ctx, result.Domain, result.Snapshot.Topics); err != nil {
		return err
	}
	if err := s.Store.SaveEdges(ctx, result.Domain, result.Snapshot.Edges); err != nil {
		return err
	}
	return s.Store.SaveRun(ctx, store.RunRecord{
		RunID:       result.RunID,
		Domain:      result.Domain,
		TopicCount:  result.Snapshot.Metadata.TopicCount,
		EdgeCount:   result.Snapshot.Metadata.EdgeCount,
		Partial:     result.Partial,
		GeneratedAt: result.Snapshot.Metadata.GeneratedAt,
	})
}

// EmbeddingSink chunks each enriched topic's content, embeds the chunks, and
// stores the vectors. Topics without content are skipped. It must run after
// a StoreSink over the same store, as embeddings attach to stored topics.
type EmbeddingSink struct {
	Store    store.TopicStore
	Embedder embeddings.Embedder

	Encoder       string
	ChunkTokens   int
	OverlapTokens int
}

func (s *EmbeddingSink) Name() string { return "embeddings" }

func (s *EmbeddingSink) Write(ctx context.Context, result *Result) error {
	for _, topic := range result.Snapshot.Topics {
		if topic.Content == "" {
			continue
		}
		chunks := embeddings.ChunkText(topic.Content, s.Encoder, s.ChunkTokens, s.OverlapTokens)
		if len(chunks) == 0 {
			continue
		}
		vectors, err := embeddings.EmbedChunks(ctx, s.Embedder, chunks)
		if err != nil {
			return fmt.Errorf("embedding topic %s: %w", topic.ID, err)
		}
		if err := s.Store.SaveEmbeddings(ctx, result.Domain, topic.ID, chunks, vectors); err != nil {
			return fmt.Errorf("storing embeddings for topic %s: %w", topic.ID, err)
		}
		logger.Debug("Topic embedded", "id", topic.ID, "chunks", len(chunks))
	}
	return nil
}
