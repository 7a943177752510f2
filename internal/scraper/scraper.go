package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"
)

// ErrScrapeFailed 表示页面下载或解析失败（非 HTML、4xx/5xx、空正文）。
// 该错误只导致当前条目被丢弃，不会重试。
var ErrScrapeFailed = errors.New("scraper: scrape failed")

// Article 一篇抓取成功的文章。ImageURL 可能为空：没有配图是合法结果，不是错误。
type Article struct {
	FinalURL string
	Title    string
	Text     string
	ImageURL string
}

// Scraper 下载文章页面并抽取正文与配图
type Scraper struct {
	timeout   time.Duration
	userAgent string
}

func New(timeout time.Duration) *Scraper {
	return &Scraper{
		timeout:   timeout,
		userAgent: "Mozilla/5.0 (compatible; NewsDigestBot/1.0)",
	}
}

// Scrape 抓取单个页面。ctx 到期即返回，正在进行的下载由采集器的超时收尾。
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (*Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScrapeFailed, err)
	}

	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", ErrScrapeFailed, pageURL)
	}

	c := colly.NewCollector(
		colly.UserAgent(s.userAgent),
	)
	c.SetRequestTimeout(s.timeout)

	var (
		body     []byte
		fetchErr error
	)

	c.OnResponse(func(resp *colly.Response) {
		ct := strings.ToLower(resp.Headers.Get("Content-Type"))
		if ct != "" && !strings.Contains(ct, "html") {
			fetchErr = fmt.Errorf("unexpected content type %q", ct)
			return
		}
		body = resp.Body
	})
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	// Visit 本身不接受 context，放到 goroutine 里等，
	// ctx 先到期就立刻放弃该条目；请求本身由采集器的超时兜底
	done := make(chan error, 1)
	go func() {
		done <- c.Visit(u.String())
	}()
	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrScrapeFailed, err)
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrScrapeFailed, ctx.Err())
	}
	if fetchErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrScrapeFailed, fetchErr)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body from %s", ErrScrapeFailed, pageURL)
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScrapeFailed, err)
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, fmt.Errorf("%w: no readable text in %s", ErrScrapeFailed, pageURL)
	}

	image := extractImage(body, u)
	if image == "" {
		image = strings.TrimSpace(article.Image)
	}

	return &Article{
		FinalURL: u.String(),
		Title:    strings.TrimSpace(article.Title),
		Text:     text,
		ImageURL: image,
	}, nil
}

// extractImage 优先取 og:image / twitter:image，再退回正文首图。
// 找不到配图时返回空串，由上层决定是否套用占位图。
func extractImage(body []byte, base *url.URL) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	selectors := []struct {
		query string
		attr  string
	}{
		{`meta[property="og:image"]`, "content"},
		{`meta[name="twitter:image"]`, "content"},
		{`article img`, "src"},
		{`img`, "src"},
	}
	for _, sel := range selectors {
		if v, ok := doc.Find(sel.query).First().Attr(sel.attr); ok {
			if img := absoluteURL(base, strings.TrimSpace(v)); img != "" {
				return img
			}
		}
	}
	return ""
}

// absoluteURL 把相对地址补全为绝对地址，非法地址返回空串
func absoluteURL(base *url.URL, raw string) string {
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}
