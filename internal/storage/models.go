package storage

import (
	"time"

	"gorm.io/datatypes"
)

// 列名，Filter 中使用
const (
	ColID        = "id"
	ColHeadline  = "headline"
	ColScrapedAt = "scraped_at"
	ColDate      = "date"
)

// SentimentRecord 对应 sentiment_analysis 表的一行，写入后不再修改
type SentimentRecord struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Headline          string    `gorm:"size:1000;index" json:"headline"`
	Source            string    `gorm:"size:64" json:"source"`
	SourceURL         string    `gorm:"column:source_url;size:1024" json:"source_url"`
	ScrapedAt         time.Time `gorm:"index" json:"scraped_at"`
	SentimentCompound float64   `json:"sentiment_compound"`
	SentimentPositive float64   `json:"sentiment_positive"`
	SentimentNegative float64   `json:"sentiment_negative"`
	SentimentNeutral  float64   `json:"sentiment_neutral"`
	Classification    string    `gorm:"size:16;index" json:"classification"`

	CreatedAt time.Time `json:"created_at"`
}

func (SentimentRecord) TableName() string {
	return "sentiment_analysis"
}

// DailySummary 每个自然日最多一行，只创建不更新
type DailySummary struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	Date                 datatypes.Date `gorm:"uniqueIndex" json:"date"`
	TotalHeadlines       int            `json:"total_headlines"`
	PositiveCount        int            `json:"positive_count"`
	NegativeCount        int            `json:"negative_count"`
	NeutralCount         int            `json:"neutral_count"`
	AvgSentiment         float64        `json:"avg_sentiment"`
	MostPositiveHeadline string         `gorm:"size:500" json:"most_positive_headline"`
	MostNegativeHeadline string         `gorm:"size:500" json:"most_negative_headline"`
	MostPositiveScore    float64        `json:"most_positive_score"`
	MostNegativeScore    float64        `json:"most_negative_score"`

	CreatedAt time.Time `json:"created_at"`
}

func (DailySummary) TableName() string {
	return "daily_summaries"
}
