package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/LJTian/SentimentHub/internal/collector"
	"github.com/LJTian/SentimentHub/internal/config"
	"github.com/LJTian/SentimentHub/internal/processor"
	"github.com/LJTian/SentimentHub/internal/scheduler"
	"github.com/LJTian/SentimentHub/internal/storage"
	"github.com/joho/godotenv"
)

// 执行一轮采集后退出：由外部定时任务触发，退出码非 0 表示本轮失败
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

	store, err := storage.NewStore(dsn, "")
	if err != nil {
		log.Fatalf("init store failed: %v", err)
	}

	p := processor.NewSentimentProcessor(processor.NewVaderAnalyzer())
	s := scheduler.New(collector.NewYahooFinanceFetcher(cfg.SourceURLs), p, store.Gateway(cfg.Location))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	runErr := s.RunOnce(ctx)
	stop()

	if err := store.Close(); err != nil {
		log.Printf("warn: close store: %v", err)
	}
	if runErr != nil {
		log.Fatalf("sentiment run failed: %v", runErr)
	}
}
