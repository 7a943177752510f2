package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/NewsDigest/internal/cache"
	"github.com/LJTian/NewsDigest/internal/config"
	"github.com/LJTian/NewsDigest/internal/feed"
	"github.com/LJTian/NewsDigest/internal/pipeline"
)

// Runner 抽象流水线入口，方便测试替换
type Runner interface {
	Run(ctx context.Context, q feed.Query) []pipeline.DisplayRecord
}

type Server struct {
	runner Runner
	cache  *cache.Cache
	cfg    *config.Config
}

func NewServer(runner Runner, c *cache.Cache, cfg *config.Config) *Server {
	return &Server{runner: runner, cache: c, cfg: cfg}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/categories", s.listCategories)
		v1.GET("/news", s.listNews)
		v1.GET("/news/export", s.exportNews)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listCategories(c *gin.Context) {
	cats := []string{string(feed.CategoryTrending)}
	for _, cat := range feed.Categories() {
		cats = append(cats, string(cat))
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    cats,
	})
}

// parseQuery 解析 category / topic / limit 三个参数。
// topic 优先于 category；category 必须是已知栏目；都没给则默认热门。
func (s *Server) parseQuery(c *gin.Context) (feed.Query, int, bool) {
	maxLimit := s.cfg.MaxEntries
	limit := maxLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "bad_request",
				"message": "limit must be a positive integer",
			})
			return feed.Query{}, 0, false
		}
		if n < limit {
			limit = n
		}
	}

	if topic := strings.TrimSpace(c.Query("topic")); topic != "" {
		return feed.Query{Topic: topic}, limit, true
	}

	raw := c.DefaultQuery("category", string(feed.CategoryTrending))
	cat, ok := feed.ParseCategory(raw)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "bad_request",
			"message": "unknown category: " + raw,
		})
		return feed.Query{}, 0, false
	}
	return feed.Query{Category: cat}, limit, true
}

// fetchRecords 先查缓存，未命中再跑流水线并回填。
// feed 整体失败表现为空列表，不向展示层抛错。
func (s *Server) fetchRecords(c *gin.Context, q feed.Query, limit int) []pipeline.DisplayRecord {
	ctx := c.Request.Context()
	key := cache.Key(q, limit)

	if records, ok := s.cache.GetRecords(ctx, key); ok {
		return records
	}

	records := s.runner.Run(ctx, q)
	if len(records) > limit {
		records = records[:limit]
	}
	s.cache.SetRecords(ctx, key, records)
	return records
}

func (s *Server) listNews(c *gin.Context) {
	q, limit, ok := s.parseQuery(c)
	if !ok {
		return
	}

	records := s.fetchRecords(c, q, limit)
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    records,
	})
}

func (s *Server) exportNews(c *gin.Context) {
	q, limit, ok := s.parseQuery(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "json" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "bad_request",
			"message": "format must be csv or json",
		})
		return
	}

	records := s.fetchRecords(c, q, limit)
	name := exportName(q)

	if format == "json" {
		bs, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "internal_error",
				"message": "internal server error",
			})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+name+`.json"`)
		c.Data(http.StatusOK, "application/json", bs)
		return
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write([]string{"title", "summary", "imageUrl", "sourceUrl", "publishedAt", "sentiment"})
	for _, r := range records {
		published := ""
		if r.PublishedAt != nil {
			published = r.PublishedAt.UTC().Format("2006-01-02 15:04:05")
		}
		_ = w.Write([]string{r.Title, r.Summary, r.ImageURL, r.SourceURL, published, r.Sentiment})
	}
	w.Flush()

	c.Header("Content-Disposition", `attachment; filename="`+name+`.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(sb.String()))
}

// exportName 以查询内容生成下载文件名，搜索词里的空白替换成下划线
func exportName(q feed.Query) string {
	if q.Topic != "" {
		return "news-" + strings.Join(strings.Fields(q.Topic), "_")
	}
	if q.Category == "" {
		return "news-" + string(feed.CategoryTrending)
	}
	return "news-" + string(q.Category)
}
