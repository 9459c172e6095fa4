package wikidata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mnandhu/learningpath/pkg/cache"
	"github.com/mnandhu/learningpath/pkg/config"
	"github.com/mnandhu/learningpath/pkg/graph"
	"github.com/mnandhu/learningpath/pkg/ratelimit"
)

func testLimiter(t *testing.T) *ratelimit.Limiter {
	t.Helper()
	l, err := ratelimit.NewLimiter(map[string]ratelimit.ServiceLimit{
		Service: {Rate: 1000, Burst: 100},
	})
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	return l
}

func testClient(t *testing.T, endpoint string, pageSize int) *Client {
	t.Helper()
	cfg := config.DefaultsFromEnv()
	cfg.WikidataEndpoint = endpoint
	cfg.PageSize = pageSize
	cfg.MaxRetries = 2
	cfg.CacheTTL = time.Minute
	return NewClient(NewClientParams{
		Config:  cfg,
		Limiter: testLimiter(t),
		Cache:   cache.NewMemoryCache(),
	})
}

func topicBinding(id, label, topicType string) string {
	return fmt.Sprintf(`{
		"topic": {"type": "uri", "value": "http://www.wikidata.org/entity/%s"},
		"topicLabel": {"type": "literal", "value": "%s"},
		"topicType": {"type": "literal", "value": "%s"}
	}`, id, label, topicType)
}

func sparqlDoc(bindings ...string) string {
	return fmt.Sprintf(`{"results": {"bindings": [%s]}}`, strings.Join(bindings, ","))
}

func TestFetchTopicsSinglePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "LearningPathGenerator") {
			t.Errorf("missing user agent, got %q", ua)
		}
		fmt.Fprint(w, sparqlDoc(
			topicBinding("Q2005", "Python", "programming_language"),
			topicBinding("Q2005", "Python", "programming_language"),
			topicBinding("Q28865", "Guido van Rossum", "programming_concept"),
		))
	}))
	defer server.Close()

	c := testClient(t, server.URL, 10)
	topics, err := c.FetchTopics(context.Background(), "programming", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(topics) != 2 {
		t.Fatalf("got %d topics, want 2 (duplicate binding must collapse)", len(topics))
	}
	if topics[0].ID != "Q2005" || topics[0].Title != "Python" {
		t.Errorf("unexpected first topic: %+v", topics[0])
	}
	if topics[0].TopicType != "programming_language" {
		t.Errorf("got topic_type %q", topics[0].TopicType)
	}
}

func TestFetchTopicsPagination(t *testing.T) {
	pages := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		switch pages {
		case 1:
			fmt.Fprint(w, sparqlDoc(
				topicBinding("Q1", "One", "programming_concept"),
				topicBinding("Q2", "Two", "programming_concept"),
			))
		default:
			fmt.Fprint(w, sparqlDoc(topicBinding("Q3", "Three", "programming_concept")))
		}
	}))
	defer server.Close()

	c := testClient(t, server.URL, 2)
	topics, err := c.FetchTopics(context.Background(), "programming", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(topics) != 3 {
		t.Fatalf("got %d topics, want 3", len(topics))
	}
	if pages != 2 {
		t.Errorf("got %d page requests, want 2", pages)
	}
}

func TestFetchTopicsDuplicateCollapseDoesNotSkipRows(t *testing.T) {
	// One entity matching several topic classes yields duplicate bindings,
	// so a page can collapse to fewer topics than rows. The next request
	// must continue from the rows already consumed.
	rows := []string{
		topicBinding("Q1", "One", "programming_language"),
		topicBinding("Q1", "One", "programming_concept"),
		topicBinding("Q2", "Two", "programming_concept"),
		topicBinding("Q3", "Three", "programming_concept"),
	}
	pageRE := regexp.MustCompile(`LIMIT (\d+) OFFSET (\d+)`)
	var offsets []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := pageRE.FindStringSubmatch(r.FormValue("query"))
		if m == nil {
			t.Errorf("query carries no LIMIT/OFFSET clause")
			return
		}
		pageLimit, _ := strconv.Atoi(m[1])
		offset, _ := strconv.Atoi(m[2])
		offsets = append(offsets, offset)

		start := min(offset, len(rows))
		end := min(start+pageLimit, len(rows))
		fmt.Fprint(w, sparqlDoc(rows[start:end]...))
	}))
	defer server.Close()

	c := testClient(t, server.URL, 4)
	topics, err := c.FetchTopics(context.Background(), "programming", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := make([]string, len(topics))
	for i, topic := range topics {
		ids[i] = topic.ID
	}
	if !reflect.DeepEqual(ids, []string{"Q1", "Q2"}) {
		t.Fatalf("got topics %v, want [Q1 Q2]", ids)
	}
	if !reflect.DeepEqual(offsets, []int{0, 2}) {
		t.Errorf("got offsets %v, want [0 2]: offset must advance by rows requested", offsets)
	}
}

func TestFetchTopicsSecondPageFailureCarriesPartialCount(t *testing.T) {
	pages := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		if pages == 1 {
			bindings := make([]string, 50)
			for i := range bindings {
				bindings[i] = topicBinding(fmt.Sprintf("Q%d", i+1), fmt.Sprintf("Topic %d", i+1), "programming_concept")
			}
			fmt.Fprint(w, sparqlDoc(bindings...))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := testClient(t, server.URL, 50)
	topics, err := c.FetchTopics(context.Background(), "programming", 100)

	var qf *QueryFailedError
	if !errors.As(err, &qf) {
		t.Fatalf("got error %v, want QueryFailedError", err)
	}
	if qf.PartialCount != 50 {
		t.Errorf("got partial_count %d, want 50", qf.PartialCount)
	}
	if len(topics) != 50 {
		t.Errorf("got %d partial topics, want 50", len(topics))
	}
}

func TestFetchTopicsUnknownDomain(t *testing.T) {
	c := testClient(t, "http://127.0.0.1:0", 10)
	if _, err := c.FetchTopics(context.Background(), "alchemy", 10); err == nil {
		t.Fatal("expected error for unknown domain")
	}
}

func TestFetchPropertiesParsesAndCaches(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, `{"results": {"bindings": [
			{
				"property": {"type": "uri", "value": "http://www.wikidata.org/entity/P737"},
				"propertyLabel": {"type": "literal", "value": "influenced by"},
				"value": {"type": "uri", "value": "http://www.wikidata.org/entity/Q287016"},
				"valueLabel": {"type": "literal", "value": "ABC"}
			},
			{
				"property": {"type": "uri", "value": "http://www.wikidata.org/entity/P856"},
				"propertyLabel": {"type": "literal", "value": "official website"},
				"value": {"type": "uri", "value": "https://www.python.org"},
				"valueLabel": {"type": "literal", "value": "https://www.python.org"}
			}
		]}}`)
	}))
	defer server.Close()

	c := testClient(t, server.URL, 10)
	topic := &graph.Topic{ID: "Q2005", Title: "Python", Domain: "programming"}
	if err := c.FetchProperties(context.Background(), topic); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string][]graph.PropertyValue{
		"influenced by":    {{Label: "ABC", URL: "http://www.wikidata.org/entity/Q287016", ID: "Q287016"}},
		"official website": {{Label: "https://www.python.org", URL: "https://www.python.org"}},
	}
	if !reflect.DeepEqual(topic.Properties, want) {
		t.Errorf("got properties %+v, want %+v", topic.Properties, want)
	}
	if !reflect.DeepEqual(topic.References, []string{"Q287016"}) {
		t.Errorf("got references %v, want [Q287016]", topic.References)
	}

	// Second fetch must be served from cache.
	second := &graph.Topic{ID: "Q2005", Title: "Python", Domain: "programming"}
	if err := c.FetchProperties(context.Background(), second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if requests != 1 {
		t.Errorf("got %d upstream requests, want 1 (cache hit expected)", requests)
	}
	if !reflect.DeepEqual(second.Properties, want) {
		t.Errorf("cached properties differ: %+v", second.Properties)
	}
}

func TestTopicQueryContainsDomainClasses(t *testing.T) {
	q := TopicQuery(config.Domains["programming"], 10, 20)
	for _, tc := range config.Domains["programming"].Topics {
		if !strings.Contains(q, tc.EntityID) {
			t.Errorf("query missing entity class %s", tc.EntityID)
		}
	}
	if !strings.Contains(q, "LIMIT 10 OFFSET 20") {
		t.Error("query missing paging clause")
	}
}
