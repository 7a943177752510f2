package pipeline

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/LJTian/NewsDigest/internal/feed"
	"github.com/LJTian/NewsDigest/internal/scraper"
	"github.com/LJTian/NewsDigest/internal/sentiment"
	"github.com/LJTian/NewsDigest/internal/summary"
)

// DisplayRecord 交给展示层的最终结构。
// ImageURL 永远非空：抓不到配图时填充占位图。
type DisplayRecord struct {
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	ImageURL    string     `json:"imageUrl"`
	SourceURL   string     `json:"sourceUrl"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Sentiment   string     `json:"sentiment"`
}

// FeedFetcher / Resolver / Scraper 抽象三个网络阶段，便于测试替换
type FeedFetcher interface {
	Fetch(ctx context.Context, q feed.Query) ([]feed.Entry, error)
}

type Resolver interface {
	Resolve(ctx context.Context, link string) (string, error)
}

type Scraper interface {
	Scrape(ctx context.Context, url string) (*scraper.Article, error)
}

type Options struct {
	// Workers 为 1 时退化为逐条串行处理
	Workers          int
	MaxEntries       int
	SummaryMaxChars  int
	FallbackImageURL string
	// 单个条目 resolve+scrape 的总时限，防止慢源拖垮整批
	EntryTimeout time.Duration
}

type Pipeline struct {
	fetcher  FeedFetcher
	resolver Resolver
	scraper  Scraper
	opts     Options
}

func New(f FeedFetcher, r Resolver, s Scraper, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.SummaryMaxChars <= 0 {
		opts.SummaryMaxChars = 300
	}
	if opts.EntryTimeout <= 0 {
		opts.EntryTimeout = 20 * time.Second
	}
	return &Pipeline{fetcher: f, resolver: r, scraper: s, opts: opts}
}

// Run 执行一次完整的 feed → resolve → scrape → summarize 流程。
// feed 整体失败时返回空列表；单个条目失败只跳过该条目，互不影响；
// 输出顺序与 feed 顺序一致。
func (p *Pipeline) Run(ctx context.Context, q feed.Query) []DisplayRecord {
	entries, err := p.fetcher.Fetch(ctx, q)
	if err != nil {
		log.Printf("pipeline: fetch feed for %s failed: %v", q, err)
		return []DisplayRecord{}
	}
	if len(entries) == 0 {
		return []DisplayRecord{}
	}
	if p.opts.MaxEntries > 0 && len(entries) > p.opts.MaxEntries {
		entries = entries[:p.opts.MaxEntries]
	}

	type indexedRecord struct {
		idx int
		rec DisplayRecord
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, p.opts.Workers)
		out = make([]indexedRecord, 0, len(entries))
	)

	for i, e := range entries {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, entry feed.Entry) {
			defer wg.Done()
			defer func() { <-sem }()

			rec, err := p.processEntry(ctx, entry)
			if err != nil {
				log.Printf("pipeline: skip entry %q: %v", entry.Title, err)
				return
			}

			mu.Lock()
			out = append(out, indexedRecord{idx: idx, rec: rec})
			mu.Unlock()
		}(i, e)
	}
	wg.Wait()

	// 结果带序号回收，重排回 feed 顺序
	sort.Slice(out, func(a, b int) bool { return out[a].idx < out[b].idx })

	records := make([]DisplayRecord, 0, len(out))
	for _, ir := range out {
		records = append(records, ir.rec)
	}
	return records
}

func (p *Pipeline) processEntry(ctx context.Context, entry feed.Entry) (DisplayRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.EntryTimeout)
	defer cancel()

	finalURL, err := p.resolver.Resolve(ctx, entry.Link)
	if err != nil {
		return DisplayRecord{}, err
	}

	art, err := p.scraper.Scrape(ctx, finalURL)
	if err != nil {
		return DisplayRecord{}, err
	}

	sum := summary.Summarize(art.Text, p.opts.SummaryMaxChars)

	image := art.ImageURL
	if image == "" {
		image = p.opts.FallbackImageURL
	}

	title := entry.Title
	if title == "" {
		title = art.Title
	}

	return DisplayRecord{
		Title:       title,
		Summary:     sum,
		ImageURL:    image,
		SourceURL:   art.FinalURL,
		PublishedAt: entry.PublishedAt,
		Sentiment:   string(sentiment.Classify(sum)),
	}, nil
}
