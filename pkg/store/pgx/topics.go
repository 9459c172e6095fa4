package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mnandhu/learningpath/pkg/graph"
	"github.com/mnandhu/learningpath/pkg/logger"
	"github.com/mnandhu/learningpath/pkg/store"
)

const topicChunk = 250

const upsertTopicSQL = `
INSERT INTO topics (
	public_id, domain, title, wikidata_url, description, topic_type,
	properties, reference_ids, url, summary, categories, sections,
	content, content_for_embedding, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())
ON CONFLICT (public_id, domain) DO UPDATE SET
	title = EXCLUDED.title,
	wikidata_url = EXCLUDED.wikidata_url,
	description = EXCLUDED.description,
	topic_type = EXCLUDED.topic_type,
	properties = EXCLUDED.properties,
	reference_ids = EXCLUDED.reference_ids,
	url = EXCLUDED.url,
	summary = EXCLUDED.summary,
	categories = EXCLUDED.categories,
	sections = EXCLUDED.sections,
	content = EXCLUDED.content,
	content_for_embedding = EXCLUDED.content_for_embedding,
	updated_at = now()`

// SaveTopics upserts topics by (public_id, domain) in chunked transactions.
func (s *TopicDBStore) SaveTopics(ctx context.Context, domain string, topics []graph.Topic) error {
	if len(topics) == 0 {
		return nil
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	return store.ChunkRange(len(topics), topicChunk, func(start, end int) error {
		part := topics[start:end]
		logger.Debug("[Store][SaveTopics] Saving chunk", "topics", len(part))

		tx, err := s.conn.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		for _, topic := range part {
			if topic.ID == "" {
				return fmt.Errorf("topic id is empty")
			}
			properties, err := json.Marshal(topic.Properties)
			if err != nil {
				return err
			}
			references, err := json.Marshal(topic.References)
			if err != nil {
				return err
			}
			categories, err := json.Marshal(topic.Categories)
			if err != nil {
				return err
			}
			sections, err := json.Marshal(topic.Sections)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, upsertTopicSQL,
				topic.ID, domain, topic.Title, topic.WikidataURL, topic.Description,
				topic.TopicType, properties, references, topic.URL, topic.Summary,
				categories, sections, topic.Content, topic.ContentForEmbedding,
			)
			if err != nil {
				return err
			}
		}

		return tx.Commit(ctx)
	})
}

// SaveEdges replaces the edge set of a domain.
func (s *TopicDBStore) SaveEdges(ctx context.Context, domain string, edges []graph.Edge) error {
	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM edges WHERE domain = $1`, domain); err != nil {
		return err
	}
	for _, edge := range edges {
		_, err := tx.Exec(ctx,
			`INSERT INTO edges (domain, source, target) VALUES ($1, $2, $3)
			 ON CONFLICT (domain, source, target) DO NOTHING`,
			domain, edge.Source, edge.Target,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// SaveRun records the outcome of one generation run.
func (s *TopicDBStore) SaveRun(ctx context.Context, run store.RunRecord) error {
	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	_, err := s.conn.Exec(ctx, `
		INSERT INTO runs (run_id, domain, topic_count, edge_count, partial, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.RunID, run.Domain, run.TopicCount, run.EdgeCount, run.Partial, run.GeneratedAt,
	)
	return err
}

// LoadTopics returns all topics of a domain ordered by public id.
func (s *TopicDBStore) LoadTopics(ctx context.Context, domain string) ([]graph.Topic, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT public_id, title, wikidata_url, description, topic_type,
		       properties, reference_ids, url, summary, categories, sections,
		       content, content_for_embedding
		FROM topics WHERE domain = $1 ORDER BY public_id`, domain)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	topics := make([]graph.Topic, 0)
	for rows.Next() {
		var (
			topic      graph.Topic
			properties []byte
			references []byte
			categories []byte
			sections   []byte
		)
		err := rows.Scan(
			&topic.ID, &topic.Title, &topic.WikidataURL, &topic.Description,
			&topic.TopicType, &properties, &references, &topic.URL,
			&topic.Summary, &categories, &sections, &topic.Content,
			&topic.ContentForEmbedding,
		)
		if err != nil {
			return nil, err
		}
		topic.Domain = domain
		if err := json.Unmarshal(properties, &topic.Properties); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(references, &topic.References); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(categories, &topic.Categories); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(sections, &topic.Sections); err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}
