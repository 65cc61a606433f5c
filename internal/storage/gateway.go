package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/LJTian/SentimentHub/internal/collector"
	"github.com/LJTian/SentimentHub/internal/processor"
	"gorm.io/datatypes"
)

const (
	insertBatchSize = 100
	// 同一标题在该窗口内已入库则跳过
	dedupeWindow = 24 * time.Hour

	maxHeadlineRunes        = 1000
	maxSourceURLRunes       = 1024
	maxSummaryHeadlineRunes = 500

	DefaultRecentHours   = 24
	DefaultSummaryHours  = 5
	DefaultSummaryDays   = 7
	DefaultRetentionDays = 30
	// 日汇总固定保留 90 天，不随明细保留天数变化
	summaryRetentionDays = 90
)

// Gateway 封装对两张表的读写，除 SaveSentimentData 外均不向上抛错，用零值/错误标记代替
type Gateway struct {
	records   Table[SentimentRecord]
	summaries Table[DailySummary]
	loc       *time.Location
	now       func() time.Time
}

func NewGateway(records Table[SentimentRecord], summaries Table[DailySummary], loc *time.Location) *Gateway {
	if loc == nil {
		loc = time.UTC
	}
	return &Gateway{
		records:   records,
		summaries: summaries,
		loc:       loc,
		now:       time.Now,
	}
}

// SetClock 替换时间来源，测试使用
func (g *Gateway) SetClock(now func() time.Time) {
	g.now = now
}

// SaveSentimentData 写入新结果并返回实际插入条数。
// 24 小时内已有相同标题的跳过；查重失败视为整体失败返回 error，单个批次写入失败只记录日志。
func (g *Gateway) SaveSentimentData(ctx context.Context, results []processor.Result) (int, error) {
	if len(results) == 0 {
		log.Println("warn: no results to save")
		return 0, nil
	}

	since := g.now().Add(-dedupeWindow)
	rows := make([]SentimentRecord, 0, len(results))
	pending := make(map[string]struct{}, len(results))

	for _, r := range results {
		row := newSentimentRecord(r)
		if _, ok := pending[row.Headline]; ok {
			continue
		}
		n, err := g.records.Count(ctx, Where(Eq(ColHeadline, row.Headline), Gte(ColScrapedAt, since)))
		if err != nil {
			return 0, fmt.Errorf("check duplicate headline: %w", err)
		}
		if n > 0 {
			log.Printf("skip duplicate headline: %.50s", row.Headline)
			continue
		}
		pending[row.Headline] = struct{}{}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		log.Println("all headlines were duplicates, nothing to save")
		return 0, nil
	}

	total := 0
	for i := 0; i < len(rows); i += insertBatchSize {
		end := min(i+insertBatchSize, len(rows))
		batch := i/insertBatchSize + 1
		n, err := g.records.Insert(ctx, rows[i:end])
		if err != nil {
			log.Printf("insert batch %d failed: %v", batch, err)
			continue
		}
		total += n
		log.Printf("inserted batch %d: %d records", batch, n)
	}

	log.Printf("saved %d new records", total)
	return total, nil
}

func newSentimentRecord(r processor.Result) SentimentRecord {
	source := r.Source
	if source == "" {
		source = collector.SourceYahooFinance
	}
	return SentimentRecord{
		Headline:          truncateRunesDB(toValidUTF8(r.Text), maxHeadlineRunes),
		Source:            source,
		SourceURL:         truncateRunesDB(toValidUTF8(r.SourceURL), maxSourceURLRunes),
		ScrapedAt:         r.Timestamp,
		SentimentCompound: r.Sentiment.Compound,
		SentimentPositive: r.Sentiment.Positive,
		SentimentNegative: r.Sentiment.Negative,
		SentimentNeutral:  r.Sentiment.Neutral,
		Classification:    string(r.Sentiment.Classification),
	}
}

// GetRecentData 返回最近 hours 小时的记录（时间倒序），失败时返回空列表
func (g *Gateway) GetRecentData(ctx context.Context, hours int) []SentimentRecord {
	if hours <= 0 {
		hours = DefaultRecentHours
	}
	start := g.now().Add(-time.Duration(hours) * time.Hour)
	rows, err := g.records.Select(ctx, Where(Gte(ColScrapedAt, start)).Order(ColScrapedAt, true))
	if err != nil {
		log.Printf("get recent data error: %v", err)
		return []SentimentRecord{}
	}
	if rows == nil {
		rows = []SentimentRecord{}
	}
	return rows
}

// GetLatestSummary 汇总最近 hours 小时；没有数据时返回 Error 非空的 Summary
func (g *Gateway) GetLatestSummary(ctx context.Context, hours int) Summary {
	if hours <= 0 {
		hours = DefaultSummaryHours
	}
	data := g.GetRecentData(ctx, hours)
	if len(data) == 0 {
		return Summary{Error: "no recent data found", Timestamp: g.now(), PeriodHours: hours}
	}

	a := aggregate(data)
	return Summary{
		Timestamp:      g.now(),
		PeriodHours:    hours,
		TotalHeadlines: a.total,
		Distribution: Distribution{
			Positive: a.positive,
			Negative: a.negative,
			Neutral:  a.neutral,
		},
		Percentages: Percentages{
			Positive: percent(a.positive, a.total),
			Negative: percent(a.negative, a.total),
			Neutral:  percent(a.neutral, a.total),
		},
		AverageSentiment:     round(a.average, 4),
		MostPositiveHeadline: a.mostPositive.Headline,
		MostNegativeHeadline: a.mostNegative.Headline,
		MostPositiveScore:    round(a.mostPositive.SentimentCompound, 4),
		MostNegativeScore:    round(a.mostNegative.SentimentCompound, 4),
	}
}

// CreateDailySummary 为 day 所在自然日（零值表示今天）生成汇总。
// 当天已有汇总、当天没有数据或任何失败都返回 nil，已有的汇总永远不会被覆盖。
func (g *Gateway) CreateDailySummary(ctx context.Context, day time.Time) *DailySummary {
	if day.IsZero() {
		day = g.now()
	}
	start := startOfDay(day, g.loc)
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	dateKey := datatypes.Date(start)
	label := start.Format(time.DateOnly)

	n, err := g.summaries.Count(ctx, Where(Eq(ColDate, dateKey)))
	if err != nil {
		log.Printf("create daily summary %s: check existing error: %v", label, err)
		return nil
	}
	if n > 0 {
		log.Printf("daily summary for %s already exists", label)
		return nil
	}

	data, err := g.records.Select(ctx, Where(Gte(ColScrapedAt, start), Lte(ColScrapedAt, end)))
	if err != nil {
		log.Printf("create daily summary %s: load records error: %v", label, err)
		return nil
	}
	if len(data) == 0 {
		log.Printf("no data found for %s", label)
		return nil
	}

	a := aggregate(data)
	rows := []DailySummary{{
		Date:                 dateKey,
		TotalHeadlines:       a.total,
		PositiveCount:        a.positive,
		NegativeCount:        a.negative,
		NeutralCount:         a.neutral,
		AvgSentiment:         round(a.average, 4),
		MostPositiveHeadline: truncateRunesDB(a.mostPositive.Headline, maxSummaryHeadlineRunes),
		MostNegativeHeadline: truncateRunesDB(a.mostNegative.Headline, maxSummaryHeadlineRunes),
		MostPositiveScore:    round(a.mostPositive.SentimentCompound, 4),
		MostNegativeScore:    round(a.mostNegative.SentimentCompound, 4),
	}}

	inserted, err := g.summaries.Insert(ctx, rows)
	if err != nil || inserted == 0 {
		log.Printf("failed to create daily summary for %s: %v", label, err)
		return nil
	}
	log.Printf("created daily summary for %s (%d headlines)", label, a.total)
	return &rows[0]
}

// GetDailySummaries 返回最近 days 天的日汇总（日期倒序），失败时返回空列表
func (g *Gateway) GetDailySummaries(ctx context.Context, days int) []DailySummary {
	if days <= 0 {
		days = DefaultSummaryDays
	}
	from := startOfDay(g.now(), g.loc).AddDate(0, 0, -days)
	rows, err := g.summaries.Select(ctx, Where(Gte(ColDate, datatypes.Date(from))).Order(ColDate, true))
	if err != nil {
		log.Printf("get daily summaries error: %v", err)
		return []DailySummary{}
	}
	if rows == nil {
		rows = []DailySummary{}
	}
	return rows
}

// CleanupOldData 删除超过 days 天的明细，以及超过 90 天的日汇总；尽力而为，只记录错误
func (g *Gateway) CleanupOldData(ctx context.Context, days int) {
	if days <= 0 {
		days = DefaultRetentionDays
	}
	cutoff := g.now().AddDate(0, 0, -days)
	if n, err := g.records.Delete(ctx, Where(Lt(ColScrapedAt, cutoff))); err != nil {
		log.Printf("cleanup sentiment data error: %v", err)
	} else {
		log.Printf("cleaned up %d sentiment records older than %d days", n, days)
	}

	summaryCutoff := startOfDay(g.now(), g.loc).AddDate(0, 0, -summaryRetentionDays)
	if n, err := g.summaries.Delete(ctx, Where(Lt(ColDate, datatypes.Date(summaryCutoff)))); err != nil {
		log.Printf("cleanup daily summaries error: %v", err)
	} else {
		log.Printf("cleaned up %d daily summaries older than %d days", n, summaryRetentionDays)
	}
}

// GetHealthStatus 失败时返回 Status 为 error 的结果而不是 error
func (g *Gateway) GetHealthStatus(ctx context.Context) HealthStatus {
	recent := g.GetRecentData(ctx, 24)

	var lastUpdate *time.Time
	for i := range recent {
		if lastUpdate == nil || recent[i].ScrapedAt.After(*lastUpdate) {
			t := recent[i].ScrapedAt
			lastUpdate = &t
		}
	}

	headlines, err := g.records.Count(ctx, Filter{})
	if err != nil {
		log.Printf("health: count sentiment records error: %v", err)
		return HealthStatus{Status: StatusError, Error: err.Error(), Timestamp: g.now()}
	}
	summaries, err := g.summaries.Count(ctx, Filter{})
	if err != nil {
		log.Printf("health: count daily summaries error: %v", err)
		return HealthStatus{Status: StatusError, Error: err.Error(), Timestamp: g.now()}
	}

	return HealthStatus{
		Status:             StatusHealthy,
		LastUpdate:         lastUpdate,
		TotalHeadlines:     headlines,
		DailySummaries:     summaries,
		RecentHeadlines24h: len(recent),
		Timestamp:          g.now(),
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
