package nlp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLexicon() *Lexicon {
	return NewLexicon(
		[]string{"kms", "gusto ko mamatay", "Kill Myself"},
		[]string{"hopeless", "walang gana"},
		[]string{"pagod", "stressed"},
	)
}

func TestLexiconPositiveShortCircuits(t *testing.T) {
	matches := testLexicon().Match("Masaya ako today! pero pagod")
	require.Len(t, matches, 1)
	assert.Equal(t, CategoryPositiveEmotion, matches[0].Category)
	assert.Equal(t, SeverityPositive, matches[0].Severity)
	assert.Equal(t, []string{"masaya"}, matches[0].Keywords)
}

func TestLexiconAccumulatesBuckets(t *testing.T) {
	matches := testLexicon().Match("I feel HOPELESS and want to kill myself, kms")
	require.Len(t, matches, 2)
	assert.Equal(t, SeverityHigh, matches[0].Severity)
	assert.ElementsMatch(t, []string{"kms", "kill myself"}, matches[0].Keywords)
	assert.Equal(t, SeverityModerate, matches[1].Severity)

	sev, ok := HighestSeverity(matches)
	assert.True(t, ok)
	assert.Equal(t, SeverityHigh, sev)
}

func TestLexiconEmptyInput(t *testing.T) {
	assert.Empty(t, testLexicon().Match("   "))
	_, ok := HighestSeverity(nil)
	assert.False(t, ok)
}

func TestKeywordsDeduplicates(t *testing.T) {
	got := Keywords([]KeywordMatch{{Keywords: []string{"kms", "pagod"}}, {Keywords: []string{"pagod"}}})
	assert.Equal(t, []string{"kms", "pagod"}, got)
}

func TestLoadLexiconMissingFileDegrades(t *testing.T) {
	lex := LoadLexicon(filepath.Join(t.TempDir(), "missing.json"), zap.NewNop())
	require.NotNil(t, lex)
	assert.Equal(t, 0, lex.Size())
	assert.Empty(t, lex.Match("gusto ko mamatay"))
}

func TestLoadLexiconFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"high_risk":["kms"],"moderate_risk":[],"low_risk":["pagod"]}`), 0o600))

	lex := LoadLexicon(path, nil)
	assert.Equal(t, 2, lex.Size())
	matches := lex.Match("kms")
	require.Len(t, matches, 1)
	assert.Equal(t, CategorySuicidal, matches[0].Category)
}

func TestSentimentAnalyzer(t *testing.T) {
	a := NewSentimentAnalyzer()

	res := a.Analyze("")
	assert.Equal(t, SentimentNeutral, res.Sentiment)

	res = a.Analyze("masaya ako today!")
	assert.Equal(t, SentimentPositive, res.Sentiment)
	assert.Equal(t, 0.6, res.Confidence)

	res = a.Analyze("happy, grateful and excited")
	assert.Equal(t, SentimentPositive, res.Sentiment)
	assert.Equal(t, 0.8, res.Confidence)

	res = a.Analyze("sad, tired, lonely, hopeless, scared, hurt")
	assert.Equal(t, SentimentNegative, res.Sentiment)
	assert.Equal(t, 0.9, res.Confidence)
}
