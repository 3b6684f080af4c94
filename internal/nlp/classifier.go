package nlp

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrClassifierUnavailable reports a model that failed to load or infer.
// It never leaves this package: Classify recovers by falling back.
var ErrClassifierUnavailable = errors.New("intent classifier unavailable")

// Intent is the risk category attributed to an utterance.
type Intent string

const (
	IntentHighRisk     Intent = "high_risk"
	IntentModerateRisk Intent = "moderate_risk"
	IntentLowRisk      Intent = "low_risk"
	IntentGeneral      Intent = "general"
)

// Intents lists every label the model scores, in severity order.
var Intents = []Intent{IntentHighRisk, IntentModerateRisk, IntentLowRisk, IntentGeneral}

// Method identifies which branch produced a classification.
type Method string

const (
	MethodModel             Method = "model"
	MethodSentimentAnalysis Method = "sentiment_analysis"
	MethodKeywordFallback   Method = "keyword_fallback"
)

const (
	defaultMaxInputRunes = 512
	defaultMinConfidence = 0.3
	positiveShortCircuit = 0.6
)

// Model scores text against the four intent labels.
type Model interface {
	Predict(ctx context.Context, text string) (map[Intent]float64, error)
}

// ModelLoader builds the model on first use.
type ModelLoader func() (Model, error)

// Classification is the outcome of one Classify call.
type Classification struct {
	Intent     Intent             `json:"primary_intent"`
	Confidence float64            `json:"confidence"`
	Scores     map[Intent]float64 `json:"all_scores"`
	Method     Method             `json:"detection_method"`
	Sentiment  SentimentResult    `json:"sentiment"`
	Flags      []KeywordMatch     `json:"flags,omitempty"`
}

// ClassifierOptions tunes preprocessing and the model gate.
type ClassifierOptions struct {
	MaxInputRunes int
	MinConfidence float64
	PoolSize      int
	Logger        *zap.Logger
}

// Classifier is safe for concurrent use. The model is loaded lazily once and
// at most PoolSize inferences run at the same time.
type Classifier struct {
	lexicon  *Lexicon
	analyzer *SentimentAnalyzer
	loader   ModelLoader

	maxRunes      int
	minConfidence float64
	slots         chan struct{}
	logger        *zap.Logger

	loadOnce sync.Once
	model    Model
}

// NewClassifier wires the lexicon, sentiment analyzer and an optional model loader.
func NewClassifier(lexicon *Lexicon, analyzer *SentimentAnalyzer, loader ModelLoader, opts ClassifierOptions) *Classifier {
	if analyzer == nil {
		analyzer = NewSentimentAnalyzer()
	}
	if lexicon == nil {
		lexicon = NewLexicon(nil, nil, nil)
	}
	if opts.MaxInputRunes <= 0 {
		opts.MaxInputRunes = defaultMaxInputRunes
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = defaultMinConfidence
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Classifier{
		lexicon:       lexicon,
		analyzer:      analyzer,
		loader:        loader,
		maxRunes:      opts.MaxInputRunes,
		minConfidence: opts.MinConfidence,
		slots:         make(chan struct{}, opts.PoolSize),
		logger:        opts.Logger,
	}
}

// Lexicon exposes the shared read-only lexicon.
func (c *Classifier) Lexicon() *Lexicon {
	return c.lexicon
}

// Sentiment runs only the sentiment analyzer.
func (c *Classifier) Sentiment(text string) SentimentResult {
	return c.analyzer.Analyze(Preprocess(text, c.maxRunes))
}

// Classify never returns an error; model failures degrade to the fallback.
func (c *Classifier) Classify(ctx context.Context, text string) Classification {
	clean := Preprocess(text, c.maxRunes)
	if clean == "" {
		return Classification{
			Intent:    IntentGeneral,
			Scores:    map[Intent]float64{IntentGeneral: 0},
			Method:    MethodKeywordFallback,
			Sentiment: SentimentResult{Sentiment: SentimentNeutral, Confidence: 0.5},
		}
	}

	flags := c.lexicon.Match(clean)
	sentiment := c.analyzer.Analyze(clean)

	if scores, err := c.predict(ctx, clean); err == nil {
		intent, confidence := argmax(scores)
		if confidence > c.minConfidence {
			return Classification{
				Intent:     intent,
				Confidence: confidence,
				Scores:     scores,
				Method:     MethodModel,
				Sentiment:  sentiment,
				Flags:      flags,
			}
		}
		c.logger.Debug("model confidence below floor, falling back", zap.Float64("confidence", confidence))
	} else if !errors.Is(err, errNoModel) {
		c.logger.Warn("intent model failed, falling back", zap.Error(err))
	}

	result := fallback(sentiment, flags)
	result.Flags = flags
	return result
}

var errNoModel = errors.New("no model configured")

func (c *Classifier) predict(ctx context.Context, text string) (map[Intent]float64, error) {
	model := c.loadModel()
	if model == nil {
		return nil, errNoModel
	}

	select {
	case c.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.slots }()

	scores, err := model.Predict(ctx, text)
	if err != nil {
		return nil, errors.Join(ErrClassifierUnavailable, err)
	}
	if len(scores) == 0 {
		return nil, ErrClassifierUnavailable
	}
	return scores, nil
}

func (c *Classifier) loadModel() Model {
	c.loadOnce.Do(func() {
		if c.loader == nil {
			return
		}
		model, err := c.loader()
		if err != nil {
			c.logger.Warn("intent model failed to load, using fallback only", zap.Error(err))
			return
		}
		c.model = model
	})
	return c.model
}

func fallback(sentiment SentimentResult, flags []KeywordMatch) Classification {
	if sentiment.Sentiment == SentimentPositive && sentiment.Confidence > positiveShortCircuit {
		return single(IntentLowRisk, sentiment.Confidence, MethodSentimentAnalysis, sentiment)
	}

	severity, ok := HighestSeverity(flags)
	if ok {
		switch severity {
		case SeverityHigh:
			return single(IntentHighRisk, 0.85, MethodKeywordFallback, sentiment)
		case SeverityModerate:
			return single(IntentModerateRisk, 0.7, MethodKeywordFallback, sentiment)
		default:
			return single(IntentLowRisk, 0.6, MethodKeywordFallback, sentiment)
		}
	}

	if sentiment.Sentiment == SentimentNeutral {
		return single(IntentGeneral, sentiment.Confidence, MethodKeywordFallback, sentiment)
	}
	return single(IntentModerateRisk, sentiment.Confidence, MethodKeywordFallback, sentiment)
}

func single(intent Intent, confidence float64, method Method, sentiment SentimentResult) Classification {
	return Classification{
		Intent:     intent,
		Confidence: confidence,
		Scores:     map[Intent]float64{intent: confidence},
		Method:     method,
		Sentiment:  sentiment,
	}
}

func argmax(scores map[Intent]float64) (Intent, float64) {
	best, bestScore := IntentGeneral, -1.0
	for _, intent := range Intents {
		if score, ok := scores[intent]; ok && score > bestScore {
			best, bestScore = intent, score
		}
	}
	if bestScore < 0 {
		return IntentGeneral, 0
	}
	return best, bestScore
}

// Preprocess lowercases, collapses whitespace and truncates to maxRunes.
func Preprocess(text string, maxRunes int) string {
	clean := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	if maxRunes > 0 {
		if r := []rune(clean); len(r) > maxRunes {
			clean = strings.TrimSpace(string(r[:maxRunes]))
		}
	}
	return clean
}
