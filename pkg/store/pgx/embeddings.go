package pgx

import (
	"context"
	"fmt"

	"github.com/mnandhu/learningpath/pkg/embeddings"
	"github.com/mnandhu/learningpath/pkg/logger"
	"github.com/mnandhu/learningpath/pkg/store"

	"github.com/pgvector/pgvector-go"
)

// SaveEmbeddings replaces the embedding chunks of one topic. Vectors must be
// parallel to chunks.
func (s *TopicDBStore) SaveEmbeddings(
	ctx context.Context,
	domain, topicID string,
	chunks []embeddings.Chunk,
	vectors [][]float32,
) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk and vector counts differ: %d vs %d", len(chunks), len(vectors))
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var rowID int64
	err = tx.QueryRow(ctx,
		`SELECT id FROM topics WHERE public_id = $1 AND domain = $2`,
		topicID, domain,
	).Scan(&rowID)
	if err != nil {
		return fmt.Errorf("topic %s not stored for domain %s: %w", topicID, domain, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM topic_embeddings WHERE topic_id = $1`, rowID); err != nil {
		return err
	}

	logger.Debug("[Store][SaveEmbeddings] Inserting chunks", "topic", topicID, "chunks", len(chunks))
	for i, chunk := range chunks {
		_, err := tx.Exec(ctx, `
			INSERT INTO topic_embeddings (topic_id, chunk_index, chunk_text, token_count, embedding)
			VALUES ($1, $2, $3, $4, $5)`,
			rowID, chunk.Index, chunk.Text, chunk.TokenCount, pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// SimilarTopics returns the topK topics of a domain whose best chunk is most
// similar to the given vector, by cosine similarity.
func (s *TopicDBStore) SimilarTopics(
	ctx context.Context,
	domain string,
	vector []float32,
	topK int,
) ([]store.SimilarTopic, error) {
	if topK <= 0 {
		return nil, nil
	}

	rows, err := s.conn.Query(ctx, `
		SELECT t.public_id, t.title, MAX(1 - (e.embedding <=> $2)) AS similarity
		FROM topic_embeddings e
		JOIN topics t ON t.id = e.topic_id
		WHERE t.domain = $1
		GROUP BY t.public_id, t.title
		ORDER BY similarity DESC
		LIMIT $3`,
		domain, pgvector.NewVector(vector), topK,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]store.SimilarTopic, 0, topK)
	for rows.Next() {
		var hit store.SimilarTopic
		if err := rows.Scan(&hit.TopicID, &hit.Title, &hit.Similarity); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}
