package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Top stories</title>
<item><title>First story</title><link>https://example.com/a</link><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate></item>
<item><title>Second story</title><link>https://example.com/b</link></item>
<item><title></title><link>https://example.com/no-title</link></item>
<item><title>Third story</title><link>https://example.com/c</link></item>
</channel>
</rss>`

func newTestFetcher(baseURL string) *Fetcher {
	f := NewFetcher(2 * time.Second)
	f.BaseURL = baseURL
	f.RetryDelay = 10 * time.Millisecond
	return f
}

func TestFetchPreservesFeedOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, sampleRSS)
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	entries, err := f.Fetch(context.Background(), Query{Category: CategoryTrending})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	// 空标题的条目被丢弃，其余保持源站顺序
	want := []string{"First story", "Second story", "Third story"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, w := range want {
		if entries[i].Title != w {
			t.Fatalf("entries[%d].Title = %q, want %q", i, entries[i].Title, w)
		}
	}
	if entries[0].PublishedAt == nil {
		t.Fatalf("first entry should carry its pubDate")
	}
	if entries[1].PublishedAt != nil {
		t.Fatalf("second entry has no pubDate, PublishedAt should be nil")
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, sampleRSS)
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	entries, err := f.Fetch(context.Background(), Query{Category: CategoryWorld})
	if err != nil {
		t.Fatalf("Fetch should succeed on the third attempt: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected entries after retry")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

// Fetcher 会被预热任务并发使用，-race 下必须干净
func TestFetchConcurrentOnSharedFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, sampleRSS)
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	queries := []Query{
		{Category: CategoryTrending},
		{Category: CategoryWorld},
		{Topic: "golang"},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(queries))
	counts := make([]int, len(queries))
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q Query) {
			defer wg.Done()
			entries, err := f.Fetch(context.Background(), q)
			errs[i] = err
			counts[i] = len(entries)
		}(i, q)
	}
	wg.Wait()

	for i := range queries {
		if errs[i] != nil {
			t.Fatalf("Fetch(%s) error: %v", queries[i], errs[i])
		}
		if counts[i] != 3 {
			t.Fatalf("Fetch(%s) got %d entries, want 3", queries[i], counts[i])
		}
	}
}

func TestFetchMalformedFeedIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "this is not xml")
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	entries, err := f.Fetch(context.Background(), Query{Topic: "golang"})
	if !errors.Is(err, ErrFeedUnavailable) {
		t.Fatalf("err = %v, want ErrFeedUnavailable", err)
	}
	if entries != nil {
		t.Fatalf("entries should be nil on failure, got %v", entries)
	}
}

func TestFeedURLVariants(t *testing.T) {
	f := newTestFetcher("https://news.google.com")

	cases := []struct {
		q    Query
		want string
	}{
		{Query{Category: CategoryTrending}, "https://news.google.com/news/rss"},
		{Query{}, "https://news.google.com/news/rss"},
		{Query{Category: CategoryTechnology}, "https://news.google.com/news/rss/headlines/section/topic/TECHNOLOGY"},
		{Query{Topic: "climate change"}, "https://news.google.com/rss/search?q=climate+change"},
	}
	for _, c := range cases {
		if got := f.feedURL(c.q); got != c.want {
			t.Fatalf("feedURL(%+v) = %q, want %q", c.q, got, c.want)
		}
	}
}

func TestParseCategory(t *testing.T) {
	if c, ok := ParseCategory("Technology"); !ok || c != CategoryTechnology {
		t.Fatalf("ParseCategory(Technology) = %q, %v", c, ok)
	}
	if c, ok := ParseCategory(" TRENDING "); !ok || c != CategoryTrending {
		t.Fatalf("ParseCategory(TRENDING) = %q, %v", c, ok)
	}
	if _, ok := ParseCategory("weather"); ok {
		t.Fatalf("ParseCategory(weather) should not match")
	}
}
