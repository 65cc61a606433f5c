package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultSourceURL 默认的新闻列表页
const DefaultSourceURL = "https://finance.yahoo.com/quote/PLTR/?tab=news"

type Config struct {
	AppPort string
	// 可选：为只读 API 启用 Basic Auth
	BasicAuthUser string
	BasicAuthPass string

	// SupabaseURL 托管 Postgres 的连接地址（不含密码），SupabaseServiceKey 作为密码使用
	SupabaseURL        string
	SupabaseServiceKey string
	RedisAddr          string

	SourceURLs    []string
	Location      *time.Location
	RetentionDays int

	CronSpec        string
	CleanupCronSpec string
}

// Load 从环境变量读取配置；缺少存储地址或凭证时返回错误，调用方应直接退出
func Load() (*Config, error) {
	cfg := &Config{
		AppPort:            getEnv("APP_PORT", "9000"),
		BasicAuthUser:      os.Getenv("APP_BASIC_USER"),
		BasicAuthPass:      os.Getenv("APP_BASIC_PASS"),
		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_KEY"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		SourceURLs:         splitList(getEnv("SOURCE_URLS", DefaultSourceURL)),
		RetentionDays:      getEnvInt("RETENTION_DAYS", 30),
		CronSpec:           getEnv("CRON_SPEC", "0 * * * *"),
		CleanupCronSpec:    getEnv("CLEANUP_CRON_SPEC", "30 3 * * *"),
	}

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		return nil, errors.New("SUPABASE_URL and SUPABASE_SERVICE_KEY environment variables must be set")
	}

	tz := getEnv("TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}
	cfg.Location = loc

	log.Printf("config loaded: port=%s sources=%d tz=%s cron=%s", cfg.AppPort, len(cfg.SourceURLs), tz, cfg.CronSpec)
	return cfg, nil
}

// DSN 把服务凭证作为密码拼进连接串
func (c *Config) DSN() (string, error) {
	u, err := url.Parse(c.SupabaseURL)
	if err != nil {
		return "", fmt.Errorf("parse SUPABASE_URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("SUPABASE_URL must be a postgres:// url, got scheme %q", u.Scheme)
	}
	user := "postgres"
	if u.User != nil && u.User.Username() != "" {
		user = u.User.Username()
	}
	u.User = url.UserPassword(user, c.SupabaseServiceKey)
	return u.String(), nil
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
		log.Printf("warn: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Now returns current time, 方便后续做可测试封装
func Now() time.Time {
	return time.Now()
}
