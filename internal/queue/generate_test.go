package queue

import (
	"context"
	"errors"
	"testing"
)

type fakeRunner struct {
	domain string
	limit  int
	err    error
	called bool
}

func (f *fakeRunner) Run(_ context.Context, domain string, limit int) error {
	f.called = true
	f.domain = domain
	f.limit = limit
	return f.err
}

func TestProcessGenerateMessage(t *testing.T) {
	runner := &fakeRunner{}
	err := ProcessGenerateMessage(context.Background(), runner, `{"domain":"mathematics","limit":25}`)
	if err != nil {
		t.Fatalf("ProcessGenerateMessage: %v", err)
	}
	if runner.domain != "mathematics" || runner.limit != 25 {
		t.Errorf("runner got (%s, %d), want (mathematics, 25)", runner.domain, runner.limit)
	}
}

func TestProcessGenerateMessageDefaultsDomain(t *testing.T) {
	runner := &fakeRunner{}
	if err := ProcessGenerateMessage(context.Background(), runner, `{"limit":5}`); err != nil {
		t.Fatalf("ProcessGenerateMessage: %v", err)
	}
	if runner.domain != "programming" {
		t.Errorf("got domain %s, want programming", runner.domain)
	}
}

func TestProcessGenerateMessageInvalidBody(t *testing.T) {
	runner := &fakeRunner{}
	if err := ProcessGenerateMessage(context.Background(), runner, `not json`); err == nil {
		t.Fatal("expected error for invalid body")
	}
	if runner.called {
		t.Error("runner called for invalid body")
	}
}

func TestProcessGenerateMessageUnknownDomain(t *testing.T) {
	runner := &fakeRunner{}
	if err := ProcessGenerateMessage(context.Background(), runner, `{"domain":"alchemy"}`); err == nil {
		t.Fatal("expected error for unknown domain")
	}
	if runner.called {
		t.Error("runner called for unknown domain")
	}
}

func TestProcessGenerateMessagePropagatesRunError(t *testing.T) {
	want := errors.New("run failed")
	runner := &fakeRunner{err: want}
	err := ProcessGenerateMessage(context.Background(), runner, `{"domain":"programming"}`)
	if !errors.Is(err, want) {
		t.Fatalf("got %v, want %v", err, want)
	}
}
