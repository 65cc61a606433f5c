package storage

import (
	"math"
	"time"

	"github.com/LJTian/SentimentHub/internal/processor"
)

const (
	StatusHealthy = "healthy"
	StatusError   = "error"
)

type Distribution struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

type Percentages struct {
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
}

// Summary 最近一段时间的情绪汇总；Error 非空表示没有数据或查询失败，调用方据此判断而不是依赖 error
type Summary struct {
	Error string `json:"error,omitempty"`

	Timestamp            time.Time    `json:"timestamp"`
	PeriodHours          int          `json:"period_hours"`
	TotalHeadlines       int          `json:"total_headlines"`
	Distribution         Distribution `json:"sentiment_distribution"`
	Percentages          Percentages  `json:"sentiment_percentages"`
	AverageSentiment     float64      `json:"average_sentiment"`
	MostPositiveHeadline string       `json:"most_positive_headline"`
	MostNegativeHeadline string       `json:"most_negative_headline"`
	MostPositiveScore    float64      `json:"most_positive_score"`
	MostNegativeScore    float64      `json:"most_negative_score"`
}

func (s Summary) OK() bool {
	return s.Error == ""
}

type HealthStatus struct {
	Status             string     `json:"status"`
	Error              string     `json:"error,omitempty"`
	LastUpdate         *time.Time `json:"last_update"`
	TotalHeadlines     int64      `json:"total_headlines"`
	DailySummaries     int64      `json:"daily_summaries"`
	RecentHeadlines24h int        `json:"recent_headlines_24h"`
	Timestamp          time.Time  `json:"timestamp"`
}

type aggregation struct {
	total, positive, negative, neutral int
	average                            float64
	mostPositive, mostNegative         SentimentRecord
}

// aggregate 要求 rows 非空；并列的极值取先出现的那一条
func aggregate(rows []SentimentRecord) aggregation {
	a := aggregation{total: len(rows), mostPositive: rows[0], mostNegative: rows[0]}
	var sum float64
	for _, r := range rows {
		switch processor.Classification(r.Classification) {
		case processor.Positive:
			a.positive++
		case processor.Negative:
			a.negative++
		}
		sum += r.SentimentCompound
		if r.SentimentCompound > a.mostPositive.SentimentCompound {
			a.mostPositive = r
		}
		if r.SentimentCompound < a.mostNegative.SentimentCompound {
			a.mostNegative = r
		}
	}
	a.neutral = a.total - a.positive - a.negative
	a.average = sum / float64(a.total)
	return a
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return round(float64(n)/float64(total)*100, 1)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
