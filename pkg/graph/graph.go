package graph

// PropertyValue is one value of a structured-source property. Values that
// point at another Wikidata entity carry its ID.
type PropertyValue struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	ID    string `json:"id,omitempty"`
}

// Topic is a node in the knowledge graph. It is created as a partial record
// from a structured-query candidate and enriched in place: the ID is
// immutable and the remaining fields are only ever filled in, never cleared.
type Topic struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	WikidataURL string `json:"wikidata_url,omitempty"`
	Description string `json:"description"`
	TopicType   string `json:"topic_type"`
	Domain      string `json:"domain,omitempty"`

	Properties map[string][]PropertyValue `json:"properties"`

	// References holds the Wikidata IDs of topics this topic structurally
	// relates to. They may point at entities outside the candidate set;
	// assembly drops edges whose target was never resolved.
	References []string `json:"references"`

	URL                 string   `json:"url"`
	Summary             string   `json:"summary"`
	Categories          []string `json:"categories,omitempty"`
	Sections            []string `json:"sections,omitempty"`
	Content             string   `json:"content"`
	ContentForEmbedding string   `json:"content_for_embedding"`
}

// Enriched reports whether encyclopedia enrichment succeeded for this topic.
func (t Topic) Enriched() bool {
	return t.URL != ""
}

// Edge is a directed relation between two topics, identified by their IDs.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Metadata describes one assembled snapshot. It is computed once at assembly
// time and never mutated afterward.
type Metadata struct {
	GeneratedAt string `json:"generated_at"`
	Domain      string `json:"domain,omitempty"`
	DomainName  string `json:"domain_name,omitempty"`
	TopicCount  int    `json:"topic_count"`
	EdgeCount   int    `json:"edge_count"`
}

// Snapshot is the complete, immutable output graph for one pipeline run.
// Topics are ordered by ID and edges by (source, target) so identical inputs
// serialize identically.
type Snapshot struct {
	Topics   []Topic  `json:"topics"`
	Edges    []Edge   `json:"edges"`
	Metadata Metadata `json:"metadata"`
}
