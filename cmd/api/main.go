package main

import (
	"crypto/subtle"
	"log"
	"net/http"
	"os"

	"github.com/LJTian/SentimentHub/internal/api"
	"github.com/LJTian/SentimentHub/internal/collector"
	"github.com/LJTian/SentimentHub/internal/config"
	"github.com/LJTian/SentimentHub/internal/processor"
	"github.com/LJTian/SentimentHub/internal/scheduler"
	"github.com/LJTian/SentimentHub/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// 常驻模式：提供只读 API，并在进程内按 CRON_SPEC 采集、按 CLEANUP_CRON_SPEC 清理
func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warn: load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	dsn, err := cfg.DSN()
	if err != nil {
		log.Fatalf("build dsn failed: %v", err)
	}

	store, err := storage.NewStore(dsn, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}
	gw := store.Gateway(cfg.Location)

	p := processor.NewSentimentProcessor(processor.NewVaderAnalyzer())
	s := scheduler.New(collector.NewYahooFinanceFetcher(cfg.SourceURLs), p, gw)
	if err := s.Schedule(cfg.CronSpec, cfg.CleanupCronSpec, cfg.RetentionDays); err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start()
	defer s.Stop()

	r := gin.Default()
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	api.NewServer(gw, store.Redis).RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}

// basicAuthMiddleware 为整个站点增加一个简单的 Basic Auth 访问密码。
// /health 不做认证，便于健康检查。
func basicAuthMiddleware(user, pass string) gin.HandlerFunc {
	const realm = "Restricted"
	uBytes := []byte(user)
	pBytes := []byte(pass)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
