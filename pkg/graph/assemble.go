package graph

import (
	"sort"
	"time"
)

// timestampLayout matches the generated_at format of the emitted JSON document.
const timestampLayout = "2006-01-02 15:04:05"

// AssembleParams configures one assembly pass.
type AssembleParams struct {
	Domain     string
	DomainName string
	// GeneratedAt stamps the snapshot metadata. Assembly is a pure function
	// of its parameters, so the clock is passed in rather than read.
	GeneratedAt time.Time
}

// EdgesFromReferences builds the raw edge set from each topic's references.
// Dangling references are kept; Assemble filters them against the final node
// set.
func EdgesFromReferences(topics []Topic) []Edge {
	var edges []Edge
	for _, t := range topics {
		for _, ref := range t.References {
			edges = append(edges, Edge{Source: t.ID, Target: ref})
		}
	}
	return edges
}

// Assemble produces the immutable graph snapshot from enriched topics and
// raw edges. Topics are deduplicated by ID with the last occurrence winning,
// since later batches may carry more complete enrichment. Edges are kept
// only when both endpoints are in the node set, self-loops are excluded,
// and duplicate (source, target) pairs collapse to one directed edge.
// Assemble performs no I/O.
func Assemble(topics []Topic, rawEdges []Edge, params AssembleParams) *Snapshot {
	byID := make(map[string]Topic, len(topics))
	for _, t := range topics {
		byID[t.ID] = t
	}

	nodes := make([]Topic, 0, len(byID))
	for _, t := range byID {
		nodes = append(nodes, t)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	seen := make(map[Edge]struct{}, len(rawEdges))
	edges := make([]Edge, 0, len(rawEdges))
	for _, e := range rawEdges {
		if e.Source == e.Target {
			continue
		}
		if _, ok := byID[e.Source]; !ok {
			continue
		}
		if _, ok := byID[e.Target]; !ok {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})

	return &Snapshot{
		Topics: nodes,
		Edges:  edges,
		Metadata: Metadata{
			GeneratedAt: params.GeneratedAt.Format(timestampLayout),
			Domain:      params.Domain,
			DomainName:  params.DomainName,
			TopicCount:  len(nodes),
			EdgeCount:   len(edges),
		},
	}
}
