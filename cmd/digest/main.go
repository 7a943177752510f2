package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"

	"github.com/LJTian/NewsDigest/internal/config"
	"github.com/LJTian/NewsDigest/internal/feed"
	"github.com/LJTian/NewsDigest/internal/pipeline"
	"github.com/LJTian/NewsDigest/internal/resolver"
	"github.com/LJTian/NewsDigest/internal/scraper"
)

// 一个仅执行一次流水线的命令行入口：参数是栏目标识或搜索词，结果以 JSON 输出。
// 例如：digest technology / digest "climate change"
func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <category|topic>", os.Args[0])
	}
	arg := strings.TrimSpace(strings.Join(os.Args[1:], " "))

	q := feed.Query{Topic: arg}
	if cat, ok := feed.ParseCategory(arg); ok {
		q = feed.Query{Category: cat}
	}

	cfg := config.Load()

	pipe := pipeline.New(
		feed.NewFetcher(cfg.HTTPTimeout),
		resolver.New(cfg.HTTPTimeout, cfg.BrowserResolverURL),
		scraper.New(cfg.HTTPTimeout),
		pipeline.Options{
			Workers:          cfg.PipelineWorkers,
			MaxEntries:       cfg.MaxEntries,
			SummaryMaxChars:  cfg.SummaryMaxChars,
			FallbackImageURL: cfg.FallbackImageURL,
			EntryTimeout:     cfg.EntryTimeout,
		},
	)

	records := pipe.Run(context.Background(), q)
	log.Printf("%s done, %d records", q, len(records))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		log.Fatalf("encode records failed: %v", err)
	}
}
