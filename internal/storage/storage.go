package storage

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client

	Records   *GormTable[SentimentRecord]
	Summaries *GormTable[DailySummary]
}

// NewStore 连接托管 Postgres 并建表；redisAddr 为空时不启用缓存
func NewStore(dsn, redisAddr string) (*Store, error) {
	// Supabase 的连接池工作在事务模式下，不支持服务端预编译语句
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&SentimentRecord{}, &DailySummary{}); err != nil {
		return nil, err
	}
	log.Println("store initialized")

	s := &Store{
		DB:        db,
		Records:   NewGormTable[SentimentRecord](db),
		Summaries: NewGormTable[DailySummary](db),
	}

	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("warn: redis ping failed: %v", err)
		}
		s.Redis = rdb
	}

	return s, nil
}

// Gateway 基于当前连接构造持久化网关
func (s *Store) Gateway(loc *time.Location) *Gateway {
	return NewGateway(s.Records, s.Summaries, loc)
}

func (s *Store) Close() error {
	var errs []error
	if s.Redis != nil {
		errs = append(errs, s.Redis.Close())
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	} else {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// truncateRunesDB 按 rune 数截断字符串，确保不会超过数据库字段长度
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
