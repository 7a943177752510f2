package cache

import (
	"context"
	"testing"

	"github.com/LJTian/NewsDigest/internal/feed"
)

func TestKeyDeterministicAndDistinct(t *testing.T) {
	q1 := feed.Query{Category: feed.CategoryWorld}
	q2 := feed.Query{Topic: "world"}

	k1a := Key(q1, 10)
	k1b := Key(q1, 10)
	k2 := Key(q2, 10)
	k3 := Key(q1, 20)

	if k1a != k1b {
		t.Fatalf("Key not deterministic: %q vs %q", k1a, k1b)
	}
	// 同名栏目与搜索词不能撞 key，limit 也参与区分
	if k1a == k2 {
		t.Fatalf("category and topic queries should not share a key: %q", k1a)
	}
	if k1a == k3 {
		t.Fatalf("different limits should not share a key: %q", k1a)
	}
}

func TestNilCacheIsAlwaysMiss(t *testing.T) {
	var c *Cache
	if _, ok := c.GetRecords(context.Background(), "whatever"); ok {
		t.Fatalf("nil cache should report a miss")
	}
	// SetRecords 在 nil 接收者上也必须安全
	c.SetRecords(context.Background(), "whatever", nil)
}
