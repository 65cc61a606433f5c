package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/LJTian/SentimentHub/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// 汇总接口的缓存时间，依赖短 TTL 自然过期，入库时不主动失效
const summaryCacheTTL = 5 * time.Minute

type Server struct {
	gateway *storage.Gateway
	redis   *redis.Client
}

// NewServer rdb 可以为 nil，此时不做缓存
func NewServer(gw *storage.Gateway, rdb *redis.Client) *Server {
	return &Server{gateway: gw, redis: rdb}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1/sentiment")
	{
		v1.GET("/recent", s.recent)
		v1.GET("/summary", s.summary)
		v1.GET("/daily", s.daily)
	}
}

func (s *Server) health(c *gin.Context) {
	h := s.gateway.GetHealthStatus(c.Request.Context())
	code := http.StatusOK
	if h.Status != storage.StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, h)
}

func (s *Server) recent(c *gin.Context) {
	hours := queryInt(c, "hours", storage.DefaultRecentHours)
	ok(c, s.gateway.GetRecentData(c.Request.Context(), hours))
}

func (s *Server) daily(c *gin.Context) {
	days := queryInt(c, "days", storage.DefaultSummaryDays)
	ok(c, s.gateway.GetDailySummaries(c.Request.Context(), days))
}

func (s *Server) summary(c *gin.Context) {
	ctx := c.Request.Context()
	hours := queryInt(c, "hours", storage.DefaultSummaryHours)
	cacheKey := fmt.Sprintf("sentiment:summary:%d", hours)

	if cached, hit := s.cachedSummary(ctx, cacheKey); hit {
		ok(c, cached)
		return
	}

	summary := s.gateway.GetLatestSummary(ctx, hours)
	if !summary.OK() {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "no_data",
			"message": summary.Error,
			"data":    summary,
		})
		return
	}

	// 没有数据的结果不缓存，下一轮采集后可以立即看到
	if s.redis != nil {
		if bs, err := json.Marshal(summary); err == nil {
			_ = s.redis.Set(ctx, cacheKey, bs, summaryCacheTTL).Err()
		}
	}
	ok(c, summary)
}

func (s *Server) cachedSummary(ctx context.Context, key string) (storage.Summary, bool) {
	var cached storage.Summary
	if s.redis == nil {
		return cached, false
	}
	bs, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return cached, false
	}
	if err := json.Unmarshal(bs, &cached); err != nil {
		return cached, false
	}
	return cached, true
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

// queryInt 非法或非正数时使用默认值
func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(def)))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
