package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LJTian/NewsDigest/internal/cache"
	"github.com/LJTian/NewsDigest/internal/feed"
	"github.com/LJTian/NewsDigest/internal/pipeline"
)

// 同时预热的查询数上限，避免一轮预热把源站打满
const warmConcurrency = 3

// Runner 跑一次完整流水线，生产实现是 *pipeline.Pipeline
type Runner interface {
	Run(ctx context.Context, q feed.Query) []pipeline.DisplayRecord
}

// Scheduler 定时跑一遍热门与各栏目的流水线并刷新缓存，
// 让用户请求大概率命中缓存而不用现场抓取。
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	cache  *cache.Cache
	limit  int
}

func New(spec string, runner Runner, c *cache.Cache, limit int) (*Scheduler, error) {
	cr := cron.New()

	s := &Scheduler{
		cron:   cr,
		runner: runner,
		cache:  c,
		limit:  limit,
	}

	if _, err := cr.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// 延迟执行首轮预热，避免与用户首次打开页面的请求争抢资源
	const startupDelay = 15 * time.Second
	time.AfterFunc(startupDelay, func() {
		go s.runOnce()
	})
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发预热
func (s *Scheduler) RunOnce() {
	s.runOnce()
}

func (s *Scheduler) runOnce() {
	log.Println("start warm job...")

	queries := []feed.Query{{Category: feed.CategoryTrending}}
	for _, c := range feed.Categories() {
		queries = append(queries, feed.Query{Category: c})
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, warmConcurrency)

	for _, q := range queries {
		query := q
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			records := s.runner.Run(ctx, query)
			if len(records) == 0 {
				log.Printf("warm %s got 0 records", query)
				return
			}
			s.cache.SetRecords(ctx, cache.Key(query, s.limit), records)
			log.Printf("warm %s done, cached %d records", query, len(records))
		}()
	}

	wg.Wait()
	log.Println("warm job done (all queries)")
}
