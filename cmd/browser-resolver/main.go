package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/chromedp/chromedp"
)

// Google News 的部分条目链接是需要执行 JS 才会跳转的包装页，
// 纯 HTTP 客户端拿不到最终地址。这个旁路服务用 headless 浏览器
// 打开包装页，等跳转完成后把落地地址返回给主服务。

type resolveRequest struct {
	URL       string `json:"url"`
	TimeoutMs int    `json:"timeoutMs"`
}

type resolveResponse struct {
	OK       bool   `json:"ok"`
	FinalURL string `json:"finalUrl,omitempty"`
	Error    string `json:"error,omitempty"`
}

func main() {
	// 创建浏览器执行器与顶层上下文，整个进程复用一个 headless 实例
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// 预热浏览器，避免首个请求耗时过长
	if err := chromedp.Run(browserCtx); err != nil {
		log.Printf("warn: warmup chromedp failed: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/resolve", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req resolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, resolveResponse{OK: false, Error: "invalid json"})
			return
		}
		if req.URL == "" {
			writeJSON(w, http.StatusBadRequest, resolveResponse{OK: false, Error: "url is required"})
			return
		}
		timeout := time.Duration(req.TimeoutMs) * time.Millisecond
		if timeout <= 0 || timeout > 60*time.Second {
			timeout = 20 * time.Second
		}

		// 每个请求用独立的超时上下文，复用同一个 browserCtx
		ctx, cancel := context.WithTimeout(browserCtx, timeout)
		defer cancel()

		var finalURL string
		err := chromedp.Run(ctx,
			chromedp.Navigate(req.URL),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Location(&finalURL),
		)
		if err != nil {
			log.Printf("resolve error: %v (url=%s)", err, req.URL)
			writeJSON(w, http.StatusOK, resolveResponse{OK: false, Error: err.Error()})
			return
		}

		if !isArticleURL(req.URL, finalURL) {
			writeJSON(w, http.StatusOK, resolveResponse{OK: false, Error: "page did not leave the wrapper"})
			return
		}

		writeJSON(w, http.StatusOK, resolveResponse{OK: true, FinalURL: finalURL})
	})

	addr := ":" + getEnv("PORT", "4100")
	log.Printf("browser-resolver listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("http server error: %v", err)
	}
}

// isArticleURL 判断浏览器最终停在的地址是否已经离开包装页
func isArticleURL(wrapperURL, finalURL string) bool {
	if finalURL == "" || finalURL == wrapperURL {
		return false
	}
	u, err := url.Parse(finalURL)
	if err != nil {
		return false
	}
	return u.Hostname() != "" && u.Hostname() != "news.google.com"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
