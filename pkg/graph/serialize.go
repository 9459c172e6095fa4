package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// MarshalSnapshot renders a snapshot as the indented JSON document consumed
// by downstream tooling.
func MarshalSnapshot(snap *Snapshot) ([]byte, error) {
	if snap == nil {
		return nil, fmt.Errorf("nil snapshot")
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// MarshalTopics renders the enriched topic list emitted alongside the graph
// document.
func MarshalTopics(topics []Topic) ([]byte, error) {
	data, err := json.MarshalIndent(topics, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal topics: %w", err)
	}
	return data, nil
}

// WriteSnapshotFiles writes the graph document and the enriched topic list
// into dir, creating it if needed. It returns the path of the graph file.
func WriteSnapshotFiles(dir string, domain string, snap *Snapshot) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	graphData, err := MarshalSnapshot(snap)
	if err != nil {
		return "", err
	}
	graphPath := filepath.Join(dir, fmt.Sprintf("%s_knowledge_graph.json", domain))
	if err := os.WriteFile(graphPath, graphData, 0o644); err != nil {
		return "", fmt.Errorf("failed to write graph file: %w", err)
	}

	topicsData, err := MarshalTopics(snap.Topics)
	if err != nil {
		return "", err
	}
	topicsPath := filepath.Join(dir, fmt.Sprintf("enriched_%s_topics.json", domain))
	if err := os.WriteFile(topicsPath, topicsData, 0o644); err != nil {
		return "", fmt.Errorf("failed to write topics file: %w", err)
	}

	return graphPath, nil
}
