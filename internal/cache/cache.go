package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LJTian/NewsDigest/internal/feed"
	"github.com/LJTian/NewsDigest/internal/pipeline"
)

// Cache 用 Redis 缓存整组展示结果，TTL 对齐源站的更新节奏（默认 5 分钟）。
// Redis 不可用时全部退化为未命中，绝不把缓存故障暴露给调用方。
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(addr string, ttl time.Duration) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}

	return &Cache{rdb: rdb, ttl: ttl}
}

// Key 生成请求对应的缓存键。topic 可能包含任意字符，统一做哈希
func Key(q feed.Query, limit int) string {
	h := sha1.Sum([]byte(q.String()))
	return fmt.Sprintf("newsdigest:news:%s:%d", hex.EncodeToString(h[:]), limit)
}

// GetRecords 读取缓存，未命中或任何错误都返回 false
func (c *Cache) GetRecords(ctx context.Context, key string) ([]pipeline.DisplayRecord, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	bs, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var records []pipeline.DisplayRecord
	if err := json.Unmarshal(bs, &records); err != nil {
		return nil, false
	}
	return records, true
}

// SetRecords 写入缓存，失败只记日志
func (c *Cache) SetRecords(ctx context.Context, key string, records []pipeline.DisplayRecord) {
	if c == nil || c.rdb == nil || len(records) == 0 {
		return
	}
	bs, err := json.Marshal(records)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, bs, c.ttl).Err(); err != nil {
		log.Printf("warn: cache set %s failed: %v", key, err)
	}
}
