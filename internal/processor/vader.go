package processor

import "github.com/jonreiter/govader"

// VaderAnalyzer 基于 VADER 词典的分析器，进程内复用同一个实例
type VaderAnalyzer struct {
	sia *govader.SentimentIntensityAnalyzer
}

func NewVaderAnalyzer() *VaderAnalyzer {
	return &VaderAnalyzer{sia: govader.NewSentimentIntensityAnalyzer()}
}

func (v *VaderAnalyzer) Analyze(text string) (Scores, error) {
	s := v.sia.PolarityScores(text)
	return Scores{
		Compound: s.Compound,
		Positive: s.Positive,
		Negative: s.Negative,
		Neutral:  s.Neutral,
	}, nil
}
