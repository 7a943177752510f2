package scheduler

import (
	"context"
	"sync"
	"testing"

	"github.com/LJTian/NewsDigest/internal/feed"
	"github.com/LJTian/NewsDigest/internal/pipeline"
)

type fakeRunner struct {
	mu      sync.Mutex
	queries []feed.Query
}

func (f *fakeRunner) Run(_ context.Context, q feed.Query) []pipeline.DisplayRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return []pipeline.DisplayRecord{{Title: "warmed " + q.String(), SourceURL: "https://example.com/story"}}
}

func TestNewRejectsInvalidCronSpec(t *testing.T) {
	if _, err := New("not a cron spec", nil, nil, 10); err == nil {
		t.Fatalf("expected error for invalid cron spec")
	}
}

func TestNewAcceptsStandardSpec(t *testing.T) {
	s, err := New("*/30 * * * *", nil, nil, 10)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if s == nil {
		t.Fatalf("scheduler should not be nil")
	}
}

func TestRunOnceWarmsTrendingAndEveryCategory(t *testing.T) {
	runner := &fakeRunner{}
	s, err := New("*/30 * * * *", runner, nil, 10)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	s.RunOnce()

	want := []feed.Query{{Category: feed.CategoryTrending}}
	for _, c := range feed.Categories() {
		want = append(want, feed.Query{Category: c})
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.queries) != len(want) {
		t.Fatalf("warmed %d queries, want %d", len(runner.queries), len(want))
	}
	seen := make(map[string]int, len(runner.queries))
	for _, q := range runner.queries {
		seen[q.String()]++
	}
	for _, q := range want {
		if seen[q.String()] != 1 {
			t.Fatalf("query %s warmed %d times, want exactly once", q, seen[q.String()])
		}
	}
}
