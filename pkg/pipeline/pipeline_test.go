package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mnandhu/learningpath/pkg/config"
	"github.com/mnandhu/learningpath/pkg/graph"
	"github.com/mnandhu/learningpath/pkg/wikidata"
)

type fakeSource struct {
	topics []graph.Topic
	err    error
}

func (f *fakeSource) FetchTopics(_ context.Context, _ string, _ int) ([]graph.Topic, error) {
	return f.topics, f.err
}

type fakeEnricher struct {
	err error
}

func (f *fakeEnricher) Enrich(_ context.Context, candidates []graph.Topic) ([]graph.Topic, error) {
	out := make([]graph.Topic, len(candidates))
	copy(out, candidates)
	for i := range out {
		out[i].URL = "https://en.wikipedia.org/wiki/" + out[i].Title
		out[i].Summary = out[i].Title + " summary"
	}
	return out, f.err
}

type recordingSink struct {
	name   string
	err    error
	result *Result
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Write(_ context.Context, result *Result) error {
	s.result = result
	return s.err
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultsFromEnv()
	cfg.Domain = "programming"
	cfg.Limit = 10
	return cfg
}

func candidateTopics() []graph.Topic {
	return []graph.Topic{
		{ID: "Q28865", Title: "Python", References: []string{"Q2005"}},
		{ID: "Q2005", Title: "JavaScript"},
	}
}

func TestRunAssemblesAndFansOut(t *testing.T) {
	sinkA := &recordingSink{name: "a"}
	sinkB := &recordingSink{name: "b"}
	p := NewPipeline(NewPipelineParams{
		Config:   testConfig(t),
		Source:   &fakeSource{topics: candidateTopics()},
		Enricher: &fakeEnricher{},
		Sinks:    []Sink{sinkA, sinkB},
	})

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.RunID == "" {
		t.Error("run id not assigned")
	}
	if result.Partial {
		t.Error("clean run marked partial")
	}
	if result.Snapshot.Metadata.TopicCount != 2 {
		t.Errorf("got %d topics, want 2", result.Snapshot.Metadata.TopicCount)
	}
	if result.Snapshot.Metadata.EdgeCount != 1 {
		t.Errorf("got %d edges, want 1", result.Snapshot.Metadata.EdgeCount)
	}
	if result.EnrichedCount != 2 {
		t.Errorf("got %d enriched, want 2", result.EnrichedCount)
	}
	if sinkA.result != result || sinkB.result != result {
		t.Error("sinks did not receive the run result")
	}
}

func TestRunPartialQueryContinues(t *testing.T) {
	source := &fakeSource{
		topics: candidateTopics(),
		err:    &wikidata.QueryFailedError{PartialCount: 2, Err: errors.New("page 3 failed")},
	}
	p := NewPipeline(NewPipelineParams{
		Config:   testConfig(t),
		Source:   source,
		Enricher: &fakeEnricher{},
	})

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Partial {
		t.Error("partial query run not marked partial")
	}
	if result.Snapshot.Metadata.TopicCount != 2 {
		t.Errorf("got %d topics, want 2", result.Snapshot.Metadata.TopicCount)
	}
}

func TestRunQueryFailureWithoutPartialsAborts(t *testing.T) {
	p := NewPipeline(NewPipelineParams{
		Config:   testConfig(t),
		Source:   &fakeSource{err: errors.New("endpoint down")},
		Enricher: &fakeEnricher{},
	})

	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected error for failed query with no candidates")
	}
}

func TestRunEnrichmentInterruptedMarksPartial(t *testing.T) {
	p := NewPipeline(NewPipelineParams{
		Config:   testConfig(t),
		Source:   &fakeSource{topics: candidateTopics()},
		Enricher: &fakeEnricher{err: context.Canceled},
	})

	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Partial {
		t.Error("interrupted run not marked partial")
	}
}

func TestRunSinkFailureDoesNotBlockOtherSinks(t *testing.T) {
	failing := &recordingSink{name: "failing", err: errors.New("disk full")}
	working := &recordingSink{name: "working"}
	p := NewPipeline(NewPipelineParams{
		Config:   testConfig(t),
		Source:   &fakeSource{topics: candidateTopics()},
		Enricher: &fakeEnricher{},
		Sinks:    []Sink{failing, working},
	})

	result, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected sink error to surface")
	}
	if !strings.Contains(err.Error(), "failing") {
		t.Errorf("error does not name the failing sink: %v", err)
	}
	if working.result != result {
		t.Error("later sink skipped after earlier sink failure")
	}
}

func TestRunUnknownDomain(t *testing.T) {
	cfg := testConfig(t)
	cfg.Domain = "alchemy"
	p := NewPipeline(NewPipelineParams{
		Config:   cfg,
		Source:   &fakeSource{topics: candidateTopics()},
		Enricher: &fakeEnricher{},
	})

	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected error for unknown domain")
	}
}

func TestFileSinkWritesSnapshotFiles(t *testing.T) {
	dir := t.TempDir()
	sink := &FileSink{Dir: dir}
	p := NewPipeline(NewPipelineParams{
		Config:   testConfig(t),
		Source:   &fakeSource{topics: candidateTopics()},
		Enricher: &fakeEnricher{},
		Sinks:    []Sink{sink},
	})

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, name := range []string{"programming_knowledge_graph.json", "enriched_programming_topics.json"} {
		matches, err := filepath.Glob(filepath.Join(dir, "*", name))
		if err != nil {
			t.Fatalf("glob: %v", err)
		}
		if len(matches) != 1 {
			t.Errorf("expected one %s under a run directory, found %v", name, matches)
		}
	}
}
