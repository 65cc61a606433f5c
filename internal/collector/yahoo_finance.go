package collector

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const (
	yahooRequestTimeout = 30 * time.Second
	// 被限流后暂停一段时间再处理下一个地址，当前地址本轮不再重试
	yahooRateLimitPause = 30 * time.Second
	yahooHeadlineSel    = "div.stream-item h3"
	minHeadlineChars    = 10
)

// 公司名、代码、产品线和 CEO，小写后做子串匹配
var headlineKeywords = []string{"palantir", "pltr", "karp", "foundry", "gotham", "aip"}

// YahooFinanceFetcher 抓取 Yahoo Finance 个股新闻列表页里的相关标题
type YahooFinanceFetcher struct {
	URLs []string

	// Sleep / Now / pick 为空时使用真实实现，测试中可替换
	Sleep func(ctx context.Context, d time.Duration)
	Now   func() time.Time
	pick  func(n int) int
}

func NewYahooFinanceFetcher(urls []string) *YahooFinanceFetcher {
	return &YahooFinanceFetcher{URLs: urls}
}

func (y *YahooFinanceFetcher) Name() string {
	return SourceYahooFinance
}

// Fetch 依次抓取每个地址；单个地址失败只记录日志，不影响其它地址。
// 没有任何结果不算错误，只有 ctx 被取消时才返回 error。
func (y *YahooFinanceFetcher) Fetch(ctx context.Context) ([]Headline, error) {
	all := make([]Headline, 0, 32)
	for _, u := range y.URLs {
		if err := ctx.Err(); err != nil {
			return dedupeByText(all), err
		}
		log.Printf("yahoo: scraping %s", u)
		items, err := y.scrape(ctx, u)
		if err != nil {
			log.Printf("yahoo: scrape %s error: %v", u, err)
			continue
		}
		log.Printf("yahoo: found %d headlines from %s", len(items), u)
		all = append(all, items...)
	}

	out := dedupeByText(all)
	log.Printf("yahoo: total unique headlines: %d", len(out))
	return out, nil
}

func (y *YahooFinanceFetcher) scrape(ctx context.Context, pageURL string) ([]Headline, error) {
	c := colly.NewCollector(colly.AllowURLRevisit())
	c.SetRequestTimeout(yahooRequestTimeout)

	var (
		status int
		found  []Headline
	)
	now := y.now()

	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		log.Printf("yahoo: response status=%d url=%s bytes=%d", r.StatusCode, r.Request.URL, len(r.Body))
		if final := r.Request.URL.String(); final != pageURL {
			log.Printf("warn: yahoo: redirected from %s to %s", pageURL, final)
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		status = r.StatusCode
	})

	c.OnHTML(yahooHeadlineSel, func(e *colly.HTMLElement) {
		if status != http.StatusOK {
			return
		}
		text := strings.TrimSpace(e.Text)
		if !isRelevantHeadline(text) {
			return
		}
		link := headlineLink(e, pageURL)
		log.Printf("yahoo: match %q -> %s", text, link)
		found = append(found, Headline{
			Text:      text,
			Timestamp: now,
			Source:    SourceYahooFinance,
			SourceURL: link,
		})
	})

	ua := randomHeaders(y.pick)
	log.Printf("yahoo: using user agent %.50s...", ua.Get("User-Agent"))
	err := c.Request(http.MethodGet, pageURL, nil, nil, ua)

	switch {
	case status == http.StatusTooManyRequests:
		log.Printf("warn: yahoo: rate limited by %s, pausing %s", pageURL, yahooRateLimitPause)
		y.sleep(ctx, yahooRateLimitPause)
		return nil, nil
	case status == http.StatusForbidden:
		log.Printf("warn: yahoo: access forbidden for %s, trying next url", pageURL)
		return nil, nil
	case status != 0 && status != http.StatusOK:
		log.Printf("warn: yahoo: unexpected status %d for %s", status, pageURL)
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("request %s: %w", pageURL, err)
	}
	return found, nil
}

func isRelevantHeadline(text string) bool {
	if utf8.RuneCountInString(text) <= minHeadlineChars {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range headlineKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// headlineLink 优先取节点内部的链接，其次取包住节点的 <a>，都没有时退回列表页地址
func headlineLink(e *colly.HTMLElement, pageURL string) string {
	href, ok := anchorOf(e.DOM).Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return pageURL
	}
	if abs := e.Request.AbsoluteURL(href); abs != "" {
		return abs
	}
	return href
}

func anchorOf(sel *goquery.Selection) *goquery.Selection {
	if a := sel.Find("a").First(); a.Length() > 0 {
		return a
	}
	return sel.Closest("a")
}

func (y *YahooFinanceFetcher) now() time.Time {
	if y.Now != nil {
		return y.Now()
	}
	return time.Now()
}

func (y *YahooFinanceFetcher) sleep(ctx context.Context, d time.Duration) {
	if y.Sleep != nil {
		y.Sleep(ctx, d)
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
