package wikidata

import (
	"fmt"
	"strings"

	"github.com/mnandhu/learningpath/pkg/config"
)

// TopicProperty is one structured property the pipeline extracts per topic.
type TopicProperty struct {
	ID          string
	Description string
}

// TopicProperties is the whitelist of Wikidata properties fetched for every
// topic, across all domains.
var TopicProperties = []TopicProperty{
	{ID: "P31", Description: "instance of"},
	{ID: "P279", Description: "subclass of"},
	{ID: "P361", Description: "part of"},
	{ID: "P366", Description: "has use"},
	{ID: "P527", Description: "has part"},
	{ID: "P737", Description: "influenced by"},
	{ID: "P1535", Description: "used by"},
	{ID: "P144", Description: "based on"},
	{ID: "P1963", Description: "properties for this type"},
	{ID: "P138", Description: "named after"},
	{ID: "P170", Description: "creator"},
	{ID: "P178", Description: "developer"},
	{ID: "P571", Description: "inception/creation date"},
	{ID: "P856", Description: "official website"},
}

// TopicQuery builds the SPARQL query selecting one page of topic candidates
// for a domain. Results are ordered by entity IRI so that paging with
// LIMIT/OFFSET is stable.
func TopicQuery(domain config.DomainConfig, limit, offset int) string {
	blocks := make([]string, 0, len(domain.Topics))
	for _, tc := range domain.Topics {
		blocks = append(blocks, fmt.Sprintf(`  {
    ?topic wdt:P31/wdt:P279* wd:%s.
    BIND("%s" AS ?topicType)
  }`, tc.EntityID, tc.Type))
	}

	var b strings.Builder
	b.WriteString("SELECT DISTINCT ?topic ?topicLabel ?description ?topicType\nWHERE {\n")
	b.WriteString(strings.Join(blocks, " UNION "))
	b.WriteString("\n\n  OPTIONAL { ?topic schema:description ?description FILTER(LANG(?description) = \"en\"). }\n\n")
	b.WriteString("  SERVICE wikibase:label { bd:serviceParam wikibase:language \"en\". }\n}\n")
	b.WriteString(fmt.Sprintf("ORDER BY ?topic\nLIMIT %d OFFSET %d", limit, offset))
	return b.String()
}

// PropertiesQuery builds the SPARQL query selecting the whitelisted
// properties of a single topic.
func PropertiesQuery(topicID string) string {
	ids := make([]string, len(TopicProperties))
	for i, p := range TopicProperties {
		ids[i] = "wdt:" + p.ID
	}

	return fmt.Sprintf(`SELECT ?property ?propertyLabel ?value ?valueLabel
WHERE {
  wd:%s ?prop ?value .
  ?property wikibase:directClaim ?prop .

  FILTER(?prop IN (
    %s
  ))

  SERVICE wikibase:label { bd:serviceParam wikibase:language "en". }
}`, topicID, strings.Join(ids, ", "))
}
