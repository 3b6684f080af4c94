package nlp

import (
	"math"
	"strings"
)

// Sentiment is the polarity of a message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// SentimentResult carries polarity and a bounded confidence.
type SentimentResult struct {
	Sentiment  Sentiment `json:"sentiment"`
	Confidence float64   `json:"confidence"`
}

var positiveIndicators = []string{
	"happy", "masaya", "good", "great", "okay", "ayos", "grateful", "salamat", "thank",
	"love", "excited", "proud", "relieved", "calm", "better", "gumaan", "natutuwa", "blessed",
	"maganda", "enjoy",
}

var negativeIndicators = []string{
	"sad", "malungkot", "angry", "galit", "tired", "pagod", "stress", "worried", "anxious",
	"lonely", "depressed", "hopeless", "hate", "ayoko", "iyak", "cry", "takot", "scared",
	"hurt", "sakit", "die", "mamatay", "suicide", "worthless",
}

// SentimentAnalyzer scores text against fixed indicator lists.
type SentimentAnalyzer struct {
	positive []string
	negative []string
}

// NewSentimentAnalyzer returns an analyzer over the built-in indicator lists.
func NewSentimentAnalyzer() *SentimentAnalyzer {
	return &SentimentAnalyzer{positive: positiveIndicators, negative: negativeIndicators}
}

// Analyze never fails; empty input is neutral.
func (a *SentimentAnalyzer) Analyze(text string) SentimentResult {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return SentimentResult{Sentiment: SentimentNeutral, Confidence: 0.5}
	}

	delta := len(matchTokens(lowered, a.positive)) - len(matchTokens(lowered, a.negative))
	confidence := math.Min(0.9, 0.5+0.1*math.Abs(float64(delta)))
	// keep one decimal place so threshold comparisons are exact
	confidence = math.Round(confidence*10) / 10

	switch {
	case delta > 0:
		return SentimentResult{Sentiment: SentimentPositive, Confidence: confidence}
	case delta < 0:
		return SentimentResult{Sentiment: SentimentNegative, Confidence: confidence}
	default:
		return SentimentResult{Sentiment: SentimentNeutral, Confidence: confidence}
	}
}
