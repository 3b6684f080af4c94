package nlp

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// ErrLexiconMissing reports that the lexicon file was absent or unreadable.
var ErrLexiconMissing = errors.New("lexicon missing")

// Severity is the bucket a keyword belongs to.
type Severity string

const (
	SeverityHigh     Severity = "high"
	SeverityModerate Severity = "moderate"
	SeverityLow      Severity = "low"
	SeverityPositive Severity = "positive"
)

// Category labels a keyword flag.
type Category string

const (
	CategorySuicidal        Category = "suicidal"
	CategoryDepression      Category = "depression"
	CategoryStress          Category = "stress"
	CategoryAnxiety         Category = "anxiety"
	CategoryPositiveEmotion Category = "positive_emotion"
)

// KeywordMatch is one bucket hit with every matched token.
type KeywordMatch struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Keywords []string `json:"keywords"`
}

// positiveTokens short-circuit negative matching.
var positiveTokens = []string{
	"happy", "masaya", "natutuwa", "grateful", "thankful", "excited", "blessed",
	"relieved", "feeling good", "feeling great", "feeling better", "proud of myself",
	"gumaan ang loob", "gumaan na", "okay na ako", "ayos na ako", "masarap sa pakiramdam",
}

type lexiconFile struct {
	HighRisk     []string `json:"high_risk"`
	ModerateRisk []string `json:"moderate_risk"`
	LowRisk      []string `json:"low_risk"`
}

// Lexicon holds the three severity buckets. It is immutable after load.
type Lexicon struct {
	high     []string
	moderate []string
	low      []string
}

// NewLexicon builds a lexicon from in-memory buckets.
func NewLexicon(high, moderate, low []string) *Lexicon {
	return &Lexicon{high: normalizeTokens(high), moderate: normalizeTokens(moderate), low: normalizeTokens(low)}
}

// LoadLexicon reads the lexicon file. A missing or malformed file yields empty
// buckets and a single warning.
func LoadLexicon(path string, logger *zap.Logger) *Lexicon {
	if logger == nil {
		logger = zap.NewNop()
	}
	lex, err := readLexicon(path)
	if err != nil {
		logger.Warn("lexicon unavailable, keyword buckets empty", zap.String("path", path), zap.Error(err))
		return NewLexicon(nil, nil, nil)
	}
	logger.Info("lexicon loaded",
		zap.Int("high_risk", len(lex.high)),
		zap.Int("moderate_risk", len(lex.moderate)),
		zap.Int("low_risk", len(lex.low)),
	)
	return lex
}

func readLexicon(path string) (*Lexicon, error) {
	if path == "" {
		return nil, ErrLexiconMissing
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLexiconMissing, err)
	}
	var file lexiconFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrLexiconMissing, err)
	}
	return NewLexicon(file.HighRisk, file.ModerateRisk, file.LowRisk), nil
}

// Size returns the total number of negative-bucket tokens.
func (l *Lexicon) Size() int {
	if l == nil {
		return 0
	}
	return len(l.high) + len(l.moderate) + len(l.low)
}

// Match returns keyword hits for text. A positive token suppresses every
// negative bucket and yields exactly one positive_emotion entry.
func (l *Lexicon) Match(text string) []KeywordMatch {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return nil
	}

	if hits := matchTokens(lowered, positiveTokens); len(hits) > 0 {
		return []KeywordMatch{{Category: CategoryPositiveEmotion, Severity: SeverityPositive, Keywords: hits}}
	}
	if l == nil {
		return nil
	}

	var out []KeywordMatch
	if hits := matchTokens(lowered, l.high); len(hits) > 0 {
		out = append(out, KeywordMatch{Category: CategorySuicidal, Severity: SeverityHigh, Keywords: hits})
	}
	if hits := matchTokens(lowered, l.moderate); len(hits) > 0 {
		out = append(out, KeywordMatch{Category: CategoryDepression, Severity: SeverityModerate, Keywords: hits})
	}
	if hits := matchTokens(lowered, l.low); len(hits) > 0 {
		out = append(out, KeywordMatch{Category: CategoryStress, Severity: SeverityLow, Keywords: hits})
	}
	return out
}

// HighestSeverity picks the most severe bucket present in matches.
func HighestSeverity(matches []KeywordMatch) (Severity, bool) {
	rank := map[Severity]int{SeverityPositive: 1, SeverityLow: 2, SeverityModerate: 3, SeverityHigh: 4}
	var best Severity
	for _, m := range matches {
		if rank[m.Severity] > rank[best] {
			best = m.Severity
		}
	}
	return best, best != ""
}

// Keywords flattens every matched token across matches, deduplicated.
func Keywords(matches []KeywordMatch) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range matches {
		for _, k := range m.Keywords {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

func matchTokens(lowered string, tokens []string) []string {
	var hits []string
	for _, token := range tokens {
		if strings.Contains(lowered, token) {
			hits = append(hits, token)
		}
	}
	return hits
}

func normalizeTokens(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
