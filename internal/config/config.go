package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppPort string

	RedisAddr string
	CacheTTL  time.Duration

	CronSpec string

	BasicAuthUser string
	BasicAuthPass string
	WebRoot       string

	// 抓不到配图时使用的占位图
	FallbackImageURL string
	// 可选的 browser-resolver 旁路服务地址，用于解析需要执行 JS 的跳转页
	BrowserResolverURL string

	MaxEntries      int
	SummaryMaxChars int
	PipelineWorkers int

	HTTPTimeout  time.Duration
	EntryTimeout time.Duration
}

func Load() *Config {
	cfg := &Config{
		AppPort:   getEnv("APP_PORT", "9100"),
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		CacheTTL:  time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)) * time.Second,

		CronSpec: getEnv("CRON_SPEC", "*/30 * * * *"),

		BasicAuthUser: getEnv("APP_BASIC_USER", ""),
		BasicAuthPass: getEnv("APP_BASIC_PASS", ""),
		WebRoot:       getEnv("WEB_ROOT", ""),

		FallbackImageURL:   getEnv("FALLBACK_IMAGE_URL", "https://via.placeholder.com/300x200?text=No+Image"),
		BrowserResolverURL: getEnv("BROWSER_RESOLVER_URL", ""),

		MaxEntries:      getEnvInt("MAX_ENTRIES", 10),
		SummaryMaxChars: getEnvInt("SUMMARY_MAX_CHARS", 300),
		PipelineWorkers: getEnvInt("PIPELINE_WORKERS", 4),

		HTTPTimeout:  time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 10)) * time.Second,
		EntryTimeout: time.Duration(getEnvInt("ENTRY_TIMEOUT_SECONDS", 20)) * time.Second,
	}

	log.Printf("config loaded: port=%s cron=%s workers=%d", cfg.AppPort, cfg.CronSpec, cfg.PipelineWorkers)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("warn: invalid %s=%q, using default %d", key, v, def)
		return def
	}
	return n
}
