package config

// DefaultDomain is used when no domain is selected or an unknown one is given.
const DefaultDomain = "programming"

// TopicClass maps a Wikidata entity class to a topic type tag.
type TopicClass struct {
	EntityID    string
	Type        string
	Description string
}

// DomainConfig describes one knowledge domain: which Wikidata classes its
// topics belong to and which hint terms help disambiguate encyclopedia pages.
type DomainConfig struct {
	Name   string
	Topics []TopicClass
	// HintTerms bias disambiguation scoring and page-not-found searches
	// towards the domain.
	HintTerms []string
}

// Domains lists the supported knowledge domains.
var Domains = map[string]DomainConfig{
	"programming": {
		Name: "Programming",
		Topics: []TopicClass{
			{EntityID: "Q9143", Type: "programming_language", Description: "programming languages"},
			{EntityID: "Q188267", Type: "programming_paradigm", Description: "programming paradigms"},
			{EntityID: "Q1936517", Type: "programming_concept", Description: "programming concepts"},
			{EntityID: "Q271680", Type: "software_framework", Description: "software frameworks"},
			{EntityID: "Q638608", Type: "software_development", Description: "software development processes"},
		},
		HintTerms: []string{"programming", "programming language", "computer science", "software", "computing"},
	},
	"mathematics": {
		Name: "Mathematics",
		Topics: []TopicClass{
			{EntityID: "Q2754677", Type: "mathematical_concept", Description: "mathematical concepts"},
			{EntityID: "Q65943", Type: "mathematical_theorem", Description: "mathematical theorems"},
			{EntityID: "Q1936384", Type: "mathematical_field", Description: "branches of mathematics"},
			{EntityID: "Q246672", Type: "mathematical_object", Description: "mathematical objects"},
		},
		HintTerms: []string{"mathematics", "mathematical", "geometry", "algebra"},
	},
}
