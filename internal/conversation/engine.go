package conversation

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-wellness-api/internal/models"
	"github.com/noah-isme/sma-wellness-api/internal/nlp"
	"github.com/noah-isme/sma-wellness-api/internal/responses"
)

// ErrUnknownStep is returned for a step name neither flow recognises.
var ErrUnknownStep = errors.New("unknown conversation step")

// Step names a state of either guided flow.
type Step string

// Reply is the outcome of one transition.
type Reply struct {
	Response     string           `json:"response"`
	NextStep     Step             `json:"next_step"`
	Options      []string         `json:"options,omitempty"`
	RiskLevel    models.RiskLevel `json:"risk_level,omitempty"`
	AlertCreated bool             `json:"alert_created"`
	Completed    bool             `json:"conversation_completed"`
}

// Classifier is the subset of nlp.Classifier the engine needs.
type Classifier interface {
	Classify(ctx context.Context, text string) nlp.Classification
}

// Sink applies the side effects of a transition to the session store. Errors
// are logged by the engine and never abort a reply.
type Sink interface {
	SetActivity(ctx context.Context, activity string) error
	SetRisk(ctx context.Context, level models.RiskLevel, method nlp.Method, confidence float64) error
	// RaiseHighRisk claims the session's single alert slot and, when the claim
	// succeeds, creates a deduplicated alert. It reports whether a new alert row
	// was written.
	RaiseHighRisk(ctx context.Context, classification nlp.Classification, text string) (bool, error)
	End(ctx context.Context) error
}

// Engine runs the Open-Up and Chat-With-Me state machines. It holds no
// per-session state; every call carries the step the client is on.
type Engine struct {
	classifier Classifier
	library    *responses.Library
	picker     responses.Picker
	logger     *zap.Logger
}

// NewEngine wires the shared read-only collaborators.
func NewEngine(classifier Classifier, library *responses.Library, picker responses.Picker, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if picker == nil {
		picker = responses.NewRandomPicker(1)
	}
	if library == nil {
		library = responses.New(nil, nil, picker)
	}
	return &Engine{classifier: classifier, library: library, picker: picker, logger: logger}
}

func (e *Engine) pick(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[e.picker.Intn(len(list))]
}

func (e *Engine) warn(msg string, err error) {
	if err != nil {
		e.logger.Warn(msg, zap.Error(err))
	}
}

var (
	yesWords = []string{"yes", "yeah", "yep", "yup", "sure", "okay", "ok", "oo", "opo", "sige", "game"}
	noWords  = []string{"no", "nope", "hindi", "ayoko", "wag na", "huwag na", "not really", "nah"}
)

// isYes treats anything that is not clearly affirmative as a no.
func isYes(message string) bool {
	words := " " + strings.Join(strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	}), " ") + " "
	for _, w := range noWords {
		if strings.Contains(words, " "+w+" ") {
			return false
		}
	}
	for _, w := range yesWords {
		if strings.Contains(words, " "+w+" ") {
			return true
		}
	}
	return false
}

func riskLevelFor(intent nlp.Intent) models.RiskLevel {
	switch intent {
	case nlp.IntentHighRisk:
		return models.RiskLevelHigh
	case nlp.IntentModerateRisk:
		return models.RiskLevelModerate
	case nlp.IntentLowRisk:
		return models.RiskLevelLow
	default:
		return models.RiskLevelGeneral
	}
}
