package main

import (
	"context"
	"log"
	"os"

	"github.com/LJTian/SentimentHub/internal/config"
	"github.com/LJTian/SentimentHub/internal/storage"
	"github.com/joho/godotenv"
)

// 清理过期数据：明细保留 RETENTION_DAYS 天，日汇总固定保留 90 天
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
	defer store.Close()

	store.Gateway(cfg.Location).CleanupOldData(context.Background(), cfg.RetentionDays)
}
