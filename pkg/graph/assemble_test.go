package graph

import (
	"reflect"
	"testing"
	"time"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testParams() AssembleParams {
	return AssembleParams{
		Domain:      "programming",
		DomainName:  "Programming",
		GeneratedAt: testTime,
	}
}

func TestAssembleDropsDanglingEdges(t *testing.T) {
	topics := []Topic{
		{ID: "Q2005", Title: "Python", References: []string{"Q80228", "Q28865"}},
		{ID: "Q28865", Title: "Guido van Rossum"},
	}
	snap := Assemble(topics, EdgesFromReferences(topics), testParams())

	want := []Edge{{Source: "Q2005", Target: "Q28865"}}
	if !reflect.DeepEqual(snap.Edges, want) {
		t.Errorf("got edges %v, want %v", snap.Edges, want)
	}
	if snap.Metadata.TopicCount != 2 {
		t.Errorf("got topic_count %d, want 2", snap.Metadata.TopicCount)
	}
	if snap.Metadata.EdgeCount != 1 {
		t.Errorf("got edge_count %d, want 1", snap.Metadata.EdgeCount)
	}
}

func TestAssembleExcludesSelfLoops(t *testing.T) {
	topics := []Topic{
		{ID: "Q1", References: []string{"Q1", "Q2"}},
		{ID: "Q2"},
	}
	snap := Assemble(topics, EdgesFromReferences(topics), testParams())
	want := []Edge{{Source: "Q1", Target: "Q2"}}
	if !reflect.DeepEqual(snap.Edges, want) {
		t.Errorf("got edges %v, want %v", snap.Edges, want)
	}
}

func TestAssembleDedupesTopicsLastWins(t *testing.T) {
	topics := []Topic{
		{ID: "Q1", Title: "First pass"},
		{ID: "Q1", Title: "Second pass", URL: "https://en.wikipedia.org/wiki/First"},
	}
	snap := Assemble(topics, nil, testParams())
	if len(snap.Topics) != 1 {
		t.Fatalf("got %d topics, want 1", len(snap.Topics))
	}
	if snap.Topics[0].Title != "Second pass" {
		t.Errorf("got title %q, want the later duplicate to win", snap.Topics[0].Title)
	}
}

func TestAssembleDedupesDirectedEdges(t *testing.T) {
	topics := []Topic{{ID: "Q1"}, {ID: "Q2"}}
	raw := []Edge{
		{Source: "Q1", Target: "Q2"},
		{Source: "Q1", Target: "Q2"},
		{Source: "Q2", Target: "Q1"},
	}
	snap := Assemble(topics, raw, testParams())

	// Opposite directions are distinct edges; exact duplicates collapse.
	want := []Edge{
		{Source: "Q1", Target: "Q2"},
		{Source: "Q2", Target: "Q1"},
	}
	if !reflect.DeepEqual(snap.Edges, want) {
		t.Errorf("got edges %v, want %v", snap.Edges, want)
	}
}

func TestAssembleIsPure(t *testing.T) {
	topics := []Topic{
		{ID: "Q3", References: []string{"Q1"}},
		{ID: "Q1", References: []string{"Q3", "Q2"}},
		{ID: "Q2"},
	}
	raw := EdgesFromReferences(topics)

	first := Assemble(topics, raw, testParams())
	second := Assemble(topics, raw, testParams())
	if !reflect.DeepEqual(first, second) {
		t.Error("same inputs produced different snapshots")
	}
}

func TestAssembleIdempotentOnOwnOutput(t *testing.T) {
	topics := []Topic{
		{ID: "Q1", References: []string{"Q2", "Q404"}},
		{ID: "Q2", References: []string{"Q1"}},
	}
	first := Assemble(topics, EdgesFromReferences(topics), testParams())
	second := Assemble(first.Topics, first.Edges, testParams())
	if !reflect.DeepEqual(first, second) {
		t.Error("assembling the snapshot's own output changed it")
	}
}

func TestAssembleEdgeClosure(t *testing.T) {
	topics := []Topic{
		{ID: "Q1", References: []string{"Q2", "Q3", "Q999"}},
		{ID: "Q2", References: []string{"Q888"}},
		{ID: "Q3"},
	}
	snap := Assemble(topics, EdgesFromReferences(topics), testParams())

	ids := make(map[string]bool)
	for _, topic := range snap.Topics {
		ids[topic.ID] = true
	}
	for _, e := range snap.Edges {
		if !ids[e.Source] || !ids[e.Target] {
			t.Errorf("edge %v references an id outside the topic set", e)
		}
	}
}

func TestAssembleMetadata(t *testing.T) {
	snap := Assemble([]Topic{{ID: "Q1"}}, nil, testParams())
	if snap.Metadata.GeneratedAt != "2025-06-01 12:00:00" {
		t.Errorf("got generated_at %q", snap.Metadata.GeneratedAt)
	}
	if snap.Metadata.Domain != "programming" || snap.Metadata.DomainName != "Programming" {
		t.Errorf("domain metadata not carried: %+v", snap.Metadata)
	}
}
