package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// ErrFeedUnavailable 表示源站不可达或返回了无法解析的 feed。
// 调用方在该错误下拿到的条目列表一定为空，不会出现半截解析结果。
var ErrFeedUnavailable = errors.New("feed: source unavailable")

// Category Google News 的栏目标识
type Category string

const (
	CategoryTrending      Category = "trending"
	CategoryWorld         Category = "world"
	CategoryNation        Category = "nation"
	CategoryBusiness      Category = "business"
	CategoryTechnology    Category = "technology"
	CategoryEntertainment Category = "entertainment"
	CategorySports        Category = "sports"
	CategoryScience       Category = "science"
	CategoryHealth        Category = "health"
)

// Categories 返回除 trending 以外的全部栏目，顺序固定
func Categories() []Category {
	return []Category{
		CategoryWorld,
		CategoryNation,
		CategoryBusiness,
		CategoryTechnology,
		CategoryEntertainment,
		CategorySports,
		CategoryScience,
		CategoryHealth,
	}
}

// ParseCategory 大小写不敏感地识别栏目标识
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == CategoryTrending {
		return c, true
	}
	for _, known := range Categories() {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Query 描述一次请求：栏目或自由搜索词，二选一（Topic 优先）
type Query struct {
	Category Category
	Topic    string
}

func (q Query) String() string {
	if q.Topic != "" {
		return "topic:" + q.Topic
	}
	if q.Category == "" {
		return "category:" + string(CategoryTrending)
	}
	return "category:" + string(q.Category)
}

// Entry 一条 feed 条目，保持源站顺序，只读
type Entry struct {
	Title       string
	Link        string
	PublishedAt *time.Time
}

// Fetcher 从 Google News RSS 拉取条目列表
type Fetcher struct {
	// BaseURL 默认指向 news.google.com，测试时可替换为本地服务
	BaseURL string
	// Attempts / RetryDelay 对齐源站偶发抖动：最多 3 次，间隔 1.5s
	Attempts   int
	RetryDelay time.Duration

	parser *gofeed.Parser
}

const defaultBaseURL = "https://news.google.com"

func NewFetcher(timeout time.Duration) *Fetcher {
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: timeout}
	p.UserAgent = "Mozilla/5.0 (compatible; NewsDigestBot/1.0)"
	// parser 会被并发的 Fetch 共用，而 Parse 首次调用时才懒加载 translator，
	// 这里提前装好，保证 Fetch 并发安全
	p.RSSTranslator = &gofeed.DefaultRSSTranslator{}
	p.AtomTranslator = &gofeed.DefaultAtomTranslator{}
	p.JSONTranslator = &gofeed.DefaultJSONTranslator{}

	return &Fetcher{
		BaseURL:    defaultBaseURL,
		Attempts:   3,
		RetryDelay: 1500 * time.Millisecond,
		parser:     p,
	}
}

// Fetch 拉取并解析 feed，保持源站条目顺序。
// 任何失败都归为 ErrFeedUnavailable，且不返回部分结果。
func (f *Fetcher) Fetch(ctx context.Context, q Query) ([]Entry, error) {
	feedURL := f.feedURL(q)

	var (
		parsed *gofeed.Feed
		err    error
	)
	for attempt := 0; attempt < f.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(f.RetryDelay):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, ctx.Err())
			}
		}
		parsed, err = f.parser.ParseURLWithContext(feedURL, ctx)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" || item.Link == "" {
			continue
		}
		entries = append(entries, Entry{
			Title:       title,
			Link:        item.Link,
			PublishedAt: item.PublishedParsed,
		})
	}
	return entries, nil
}

// feedURL 按查询类型拼出 RSS 地址，与源站三类入口一一对应
func (f *Fetcher) feedURL(q Query) string {
	base := f.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	switch {
	case q.Topic != "":
		return base + "/rss/search?q=" + url.QueryEscape(q.Topic)
	case q.Category == "" || q.Category == CategoryTrending:
		return base + "/news/rss"
	default:
		return base + "/news/rss/headlines/section/topic/" + strings.ToUpper(string(q.Category))
	}
}
