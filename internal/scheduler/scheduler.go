package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/LJTian/SentimentHub/internal/collector"
	"github.com/LJTian/SentimentHub/internal/processor"
	"github.com/LJTian/SentimentHub/internal/storage"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// summaryLogHours 每轮结束后打印最近 1 小时的平均情绪
const summaryLogHours = 1

type Scheduler struct {
	cron      *cron.Cron
	fetcher   collector.Fetcher
	processor *processor.SentimentProcessor
	gateway   *storage.Gateway
}

func New(fetcher collector.Fetcher, p *processor.SentimentProcessor, gw *storage.Gateway) *Scheduler {
	// 上一轮还没结束时跳过本轮，保证任意时刻只有一个采集在跑
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	return &Scheduler{
		cron:      c,
		fetcher:   fetcher,
		processor: p,
		gateway:   gw,
	}
}

// Schedule 注册定时采集与定时清理，常驻模式使用
func (s *Scheduler) Schedule(runSpec, cleanupSpec string, retentionDays int) error {
	if _, err := s.cron.AddFunc(runSpec, func() {
		// 错误已在 RunOnce 内记录，常驻进程继续等待下一轮
		_ = s.RunOnce(context.Background())
	}); err != nil {
		return fmt.Errorf("add run job %q: %w", runSpec, err)
	}
	if _, err := s.cron.AddFunc(cleanupSpec, func() {
		s.gateway.CleanupOldData(context.Background(), retentionDays)
	}); err != nil {
		return fmt.Errorf("add cleanup job %q: %w", cleanupSpec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce 完整执行一轮：采集 -> 打分 -> 入库 -> 日汇总。
// 没有采集到或打分后为空都算正常结束；返回的 error 由调用方决定是否以失败退出。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	runID := uuid.NewString()
	log.Printf("start sentiment run %s...", runID)

	if err := s.run(ctx); err != nil {
		log.Printf("sentiment run %s failed: %v", runID, err)
		return err
	}
	log.Printf("sentiment run %s done", runID)
	return nil
}

func (s *Scheduler) run(ctx context.Context) error {
	name := s.fetcher.Name()
	headlines, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", name, err)
	}
	if len(headlines) == 0 {
		log.Printf("fetch %s got 0 headlines, skipping analysis", name)
		return nil
	}
	log.Printf("fetch %s got %d unique headlines", name, len(headlines))

	results := s.processor.Process(headlines)
	if len(results) == 0 {
		log.Println("no valid sentiment results, skipping save")
		return nil
	}

	saved, err := s.gateway.SaveSentimentData(ctx, results)
	if err != nil {
		return fmt.Errorf("save sentiment data: %w", err)
	}

	s.gateway.CreateDailySummary(ctx, time.Time{})

	avg := "N/A"
	if summary := s.gateway.GetLatestSummary(ctx, summaryLogHours); summary.OK() {
		avg = fmt.Sprintf("%.4f", summary.AverageSentiment)
	}
	log.Printf("%s done, fetched=%d analyzed=%d saved=%d avg_sentiment_1h=%s", name, len(headlines), len(results), saved, avg)
	return nil
}
