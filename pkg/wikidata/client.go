package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mnandhu/learningpath/internal/util"
	"github.com/mnandhu/learningpath/pkg/cache"
	"github.com/mnandhu/learningpath/pkg/config"
	"github.com/mnandhu/learningpath/pkg/graph"
	"github.com/mnandhu/learningpath/pkg/logger"
	"github.com/mnandhu/learningpath/pkg/ratelimit"
)

// Service is the rate-limiter key for all Wikidata calls.
const Service = "wikidata"

// QueryFailedError reports a structured-query failure after retries were
// exhausted. PartialCount is the number of records already yielded; callers
// decide whether to keep them.
type QueryFailedError struct {
	PartialCount int
	Err          error
}

func (e *QueryFailedError) Error() string {
	return fmt.Sprintf("query failed after %d records: %v", e.PartialCount, e.Err)
}

func (e *QueryFailedError) Unwrap() error {
	return e.Err
}

// Client executes SPARQL queries against the Wikidata endpoint. It pages
// through large result sets, retries transient failures with backoff, and
// caches per-topic property queries.
type Client struct {
	endpoint   string
	userAgent  string
	pageSize   int
	maxRetries int
	cacheTTL   time.Duration

	httpClient *http.Client
	limiter    *ratelimit.Limiter
	cache      cache.Cache
}

// NewClientParams defines the configuration for creating a Client.
type NewClientParams struct {
	Config  config.Config
	Limiter *ratelimit.Limiter
	Cache   cache.Cache
}

// NewClient creates a Wikidata SPARQL client.
func NewClient(params NewClientParams) *Client {
	return &Client{
		endpoint:   params.Config.WikidataEndpoint,
		userAgent:  params.Config.WikidataUserAgent,
		pageSize:   params.Config.PageSize,
		maxRetries: params.Config.MaxRetries,
		cacheTTL:   params.Config.CacheTTL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    params.Limiter,
		cache:      params.Cache,
	}
}

type sparqlValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sparqlResults struct {
	Results struct {
		Bindings []map[string]sparqlValue `json:"bindings"`
	} `json:"results"`
}

// FetchTopics pages through the domain topic query and returns candidate
// topics as partial records (text fields empty). When a page fails after
// retries, the topics fetched so far are returned together with a
// *QueryFailedError carrying their count.
func (c *Client) FetchTopics(ctx context.Context, domainKey string, limit int) ([]graph.Topic, error) {
	domain, ok := config.Domains[domainKey]
	if !ok {
		return nil, fmt.Errorf("unknown domain %q", domainKey)
	}

	logger.Info("Fetching topics from Wikidata", "domain", domainKey, "limit", limit)

	seen := make(map[string]struct{})
	topics := make([]graph.Topic, 0, limit)

	for offset := 0; len(topics) < limit; {
		pageLimit := c.pageSize
		if remaining := limit - len(topics); remaining < pageLimit {
			pageLimit = remaining
		}

		query := TopicQuery(domain, pageLimit, offset)
		results, err := c.runQuery(ctx, query)
		if err != nil {
			return topics, &QueryFailedError{PartialCount: len(topics), Err: err}
		}

		for _, binding := range results.Results.Bindings {
			id := entityID(binding["topic"].Value)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			topics = append(topics, graph.Topic{
				ID:          id,
				Title:       binding["topicLabel"].Value,
				WikidataURL: binding["topic"].Value,
				Description: binding["description"].Value,
				TopicType:   binding["topicType"].Value,
				Domain:      domainKey,
				Properties:  map[string][]graph.PropertyValue{},
			})
			if len(topics) == limit {
				break
			}
		}

		// A short page means the result set is exhausted.
		if len(results.Results.Bindings) < pageLimit {
			break
		}
		// Advance by the rows actually requested, not the configured page
		// size: a trimmed page must not skip upstream rows it never saw.
		offset += pageLimit
	}

	logger.Info("Fetched topic candidates", "count", len(topics))
	return topics, nil
}

// FetchProperties populates the topic's structured properties, serving from
// the cache when possible. The property set is also used to derive the
// topic's references.
func (c *Client) FetchProperties(ctx context.Context, topic *graph.Topic) error {
	key := cache.Fingerprint(Service, topic.Domain, topic.ID, "properties")
	if data, ok := c.cache.Get(ctx, key); ok {
		var props map[string][]graph.PropertyValue
		if err := json.Unmarshal(data, &props); err == nil {
			topic.Properties = props
			deriveReferences(topic)
			return nil
		}
		logger.Warn("Invalid cached properties, refetching", "topic", topic.ID)
	}

	results, err := c.runQuery(ctx, PropertiesQuery(topic.ID))
	if err != nil {
		return fmt.Errorf("failed to fetch properties for %s: %w", topic.ID, err)
	}

	if topic.Properties == nil {
		topic.Properties = map[string][]graph.PropertyValue{}
	}
	for _, binding := range results.Results.Bindings {
		label := binding["propertyLabel"].Value
		if label == "" {
			continue
		}
		value := graph.PropertyValue{
			Label: binding["valueLabel"].Value,
			URL:   binding["value"].Value,
		}
		if strings.Contains(value.URL, "wikidata.org/entity/") {
			value.ID = entityID(value.URL)
		}

		exists := false
		for _, v := range topic.Properties[label] {
			if v.Label == value.Label {
				exists = true
				break
			}
		}
		if !exists {
			topic.Properties[label] = append(topic.Properties[label], value)
		}
	}

	deriveReferences(topic)

	if data, err := json.Marshal(topic.Properties); err == nil {
		c.cache.Set(ctx, key, data, c.cacheTTL)
	}
	return nil
}

func (c *Client) runQuery(ctx context.Context, query string) (*sparqlResults, error) {
	return util.RetryBackoff(ctx, util.BackoffParams{
		MaxTries:  c.maxRetries,
		BaseDelay: time.Second,
	}, func(ctx context.Context) (*sparqlResults, error) {
		if err := c.limiter.Acquire(ctx, Service); err != nil {
			return nil, err
		}

		form := url.Values{"query": {query}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/sparql-results+json")
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("sparql request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			return nil, fmt.Errorf("sparql query failed with status %d", resp.StatusCode)
		}

		results := new(sparqlResults)
		if err := json.NewDecoder(resp.Body).Decode(results); err != nil {
			return nil, fmt.Errorf("failed to decode sparql response: %w", err)
		}
		return results, nil
	})
}

// deriveReferences collects the Wikidata IDs mentioned in property values.
// The result is sorted so enrichment output is deterministic.
func deriveReferences(topic *graph.Topic) {
	seen := make(map[string]struct{})
	for _, values := range topic.Properties {
		for _, v := range values {
			if v.ID != "" && strings.HasPrefix(v.ID, "Q") {
				seen[v.ID] = struct{}{}
			}
		}
	}
	refs := make([]string, 0, len(seen))
	for id := range seen {
		refs = append(refs, id)
	}
	sort.Strings(refs)
	topic.References = refs
}

func entityID(iri string) string {
	idx := strings.LastIndex(iri, "/")
	if idx == -1 || idx == len(iri)-1 {
		return ""
	}
	return iri[idx+1:]
}
