package graph

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestMarshalSnapshotSchema(t *testing.T) {
	topics := []Topic{
		{
			ID:         "Q2005",
			Title:      "Python",
			TopicType:  "programming_language",
			Properties: map[string][]PropertyValue{"influenced by": {{Label: "ABC", URL: "https://www.wikidata.org/entity/Q287016", ID: "Q287016"}}},
			References: []string{"Q28865"},
			URL:        "https://en.wikipedia.org/wiki/Python_(programming_language)",
			Summary:    "Python is a programming language.",
		},
		{ID: "Q28865", Title: "Guido van Rossum"},
	}
	snap := Assemble(topics, EdgesFromReferences(topics), testParams())

	data, err := MarshalSnapshot(snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	for _, key := range []string{"topics", "edges", "metadata"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("document missing %q", key)
		}
	}

	var meta struct {
		GeneratedAt string `json:"generated_at"`
		TopicCount  int    `json:"topic_count"`
		EdgeCount   int    `json:"edge_count"`
	}
	if err := json.Unmarshal(doc["metadata"], &meta); err != nil {
		t.Fatalf("metadata malformed: %v", err)
	}
	if meta.TopicCount != 2 || meta.EdgeCount != 1 {
		t.Errorf("got counts %d/%d, want 2/1", meta.TopicCount, meta.EdgeCount)
	}
	if meta.GeneratedAt == "" {
		t.Error("generated_at is empty")
	}
}

func TestWriteSnapshotFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	snap := Assemble([]Topic{{ID: "Q1", Title: "Go"}}, nil, testParams())

	path, err := WriteSnapshotFiles(dir, "programming", snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "programming_knowledge_graph.json" {
		t.Errorf("unexpected graph filename %q", path)
	}

	for _, name := range []string{"programming_knowledge_graph.json", "enriched_programming_topics.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
}
