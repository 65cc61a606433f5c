package processor

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/LJTian/SentimentHub/internal/collector"
)

// Classification 情绪三分类
type Classification string

const (
	Positive Classification = "positive"
	Negative Classification = "negative"
	Neutral  Classification = "neutral"
)

// compound 超过该阈值才认为有明显倾向
const classifyThreshold = 0.05

// Scores 词典分析器给出的四个分量
type Scores struct {
	Compound float64
	Positive float64
	Negative float64
	Neutral  float64
}

// SentimentScore 附加在标题上的打分结果，生成后不再修改
type SentimentScore struct {
	Scores
	Classification Classification
}

// Result 是写入存储层前的统一结构
type Result struct {
	collector.Headline
	Sentiment SentimentScore
}

// Analyzer 把一段文本映射为情绪分数
type Analyzer interface {
	Analyze(text string) (Scores, error)
}

// SentimentProcessor 对标题逐条打分
type SentimentProcessor struct {
	analyzer Analyzer
}

func NewSentimentProcessor(a Analyzer) *SentimentProcessor {
	return &SentimentProcessor{analyzer: a}
}

// Process 单条失败只丢弃该条，其余保持原顺序
func (p *SentimentProcessor) Process(items []collector.Headline) []Result {
	out := make([]Result, 0, len(items))
	for _, it := range items {
		score, err := p.score(it.Text)
		if err != nil {
			log.Printf("analyze sentiment for %q error: %v", preview(it.Text), err)
			continue
		}
		log.Printf("analyzed %q: %s (compound=%.4f)", preview(it.Text), score.Classification, score.Compound)
		out = append(out, Result{Headline: it, Sentiment: score})
	}
	return out
}

func (p *SentimentProcessor) score(text string) (s SentimentScore, err error) {
	if strings.TrimSpace(text) == "" {
		return s, errors.New("empty text")
	}
	// 第三方分析器对异常输入可能 panic，这里只影响当前这一条
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analyzer panic: %v", r)
		}
	}()

	scores, err := p.analyzer.Analyze(text)
	if err != nil {
		return s, err
	}
	for _, v := range []float64{scores.Compound, scores.Positive, scores.Negative, scores.Neutral} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return s, fmt.Errorf("invalid score %v", v)
		}
	}
	return SentimentScore{Scores: scores, Classification: Classify(scores.Compound)}, nil
}

// Classify compound >= 0.05 为正面，<= -0.05 为负面，其余为中性
func Classify(compound float64) Classification {
	switch {
	case compound >= classifyThreshold:
		return Positive
	case compound <= -classifyThreshold:
		return Negative
	default:
		return Neutral
	}
}

func preview(s string) string {
	rs := []rune(s)
	if len(rs) <= 50 {
		return s
	}
	return string(rs[:50]) + "…"
}
