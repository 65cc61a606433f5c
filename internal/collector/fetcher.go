package collector

import (
	"context"
	"time"
)

// SourceYahooFinance 目前唯一的数据源标识
const SourceYahooFinance = "yahoo_finance"

// Headline 一条采集到的新闻标题
type Headline struct {
	Text      string
	Timestamp time.Time
	Source    string
	SourceURL string
}

// Fetcher 抽象每一个数据源
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]Headline, error)
}

// dedupeByText 按标题原文去重，保留首次出现的顺序
func dedupeByText(items []Headline) []Headline {
	out := make([]Headline, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.Text]; ok {
			continue
		}
		seen[it.Text] = struct{}{}
		out = append(out, it)
	}
	return out
}
