package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrResolutionFailed 表示跳转层数超限或目标不可达，是条目级错误，不影响整个批次
var ErrResolutionFailed = errors.New("resolver: resolution failed")

var errTooManyRedirects = errors.New("too many redirects")

const (
	// feed 里的链接多为跳转/统计包装，最多跟 5 跳
	maxRedirects = 5

	userAgent = "Mozilla/5.0 (compatible; NewsDigestBot/1.0)"

	maxDiscardBytes = 1 << 20 // 1MB
)

// Resolver 把 feed 条目链接还原为文章的最终地址
type Resolver struct {
	client *http.Client

	// 可选：browser-resolver 旁路服务，处理需要执行 JS 才发生跳转的包装页
	browserURL    string
	browserClient *http.Client
}

func New(timeout time.Duration, browserURL string) *Resolver {
	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// via 含初始请求，跟第 n 跳时 len(via)==n，用 > 才允许满 5 跳
			if len(via) > maxRedirects {
				return errTooManyRedirects
			}
			return nil
		},
	}

	return &Resolver{
		client:        client,
		browserURL:    browserURL,
		browserClient: &http.Client{Timeout: timeout + 20*time.Second},
	}
}

// Resolve 跟随 HTTP 跳转获得最终地址。
// 若解析后仍停留在 news.google.com 的包装页且配置了旁路服务，再交给浏览器解析一次。
func (r *Resolver) Resolve(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, errTooManyRedirects) {
			return "", fmt.Errorf("%w: more than %d redirects for %s", ErrResolutionFailed, maxRedirects, link)
		}
		return "", fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}
	// 复用连接需要读完响应体
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDiscardBytes))
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: status %d for %s", ErrResolutionFailed, resp.StatusCode, link)
	}

	final := resp.Request.URL.String()
	if r.browserURL != "" && isWrapper(final) {
		if resolved, err := r.resolveViaBrowser(ctx, final); err == nil {
			return resolved, nil
		}
		// 旁路失败时退回 HTTP 解析结果，后续抓取失败再丢弃该条目
	}
	return final, nil
}

// isWrapper 判断地址是否仍然是 Google News 的跳转包装页
func isWrapper(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Hostname() == "news.google.com"
}

type browserResolveRequest struct {
	URL string `json:"url"`
}

type browserResolveResponse struct {
	OK       bool   `json:"ok"`
	FinalURL string `json:"finalUrl,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (r *Resolver) resolveViaBrowser(ctx context.Context, wrapperURL string) (string, error) {
	payload, err := json.Marshal(browserResolveRequest{URL: wrapperURL})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.browserURL+"/resolve", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.browserClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out browserResolveResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDiscardBytes)).Decode(&out); err != nil {
		return "", err
	}
	if !out.OK || out.FinalURL == "" {
		return "", fmt.Errorf("browser resolve failed: %s", out.Error)
	}
	return out.FinalURL, nil
}
