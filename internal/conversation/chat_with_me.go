package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/sma-wellness-api/internal/models"
	"github.com/noah-isme/sma-wellness-api/internal/nlp"
	"github.com/noah-isme/sma-wellness-api/internal/responses"
)

// Chat-With-Me steps.
const (
	StepGreeting                     Step = "greeting"
	StepIntentDetection              Step = "intent_detection"
	StepHighRiskEscalation           Step = "high_risk_escalation"
	StepHighRiskHotline              Step = "high_risk_hotline"
	StepHighRiskSupportive           Step = "high_risk_supportive"
	StepHighRiskFollowUp             Step = "high_risk_follow_up"
	StepModerateRiskSupport          Step = "moderate_risk_support"
	StepModerateRiskListening        Step = "moderate_risk_listening"
	StepModerateRiskEncouragement    Step = "moderate_risk_encouragement"
	StepLowRiskSupport               Step = "low_risk_support"
	StepLowRiskEncouragement         Step = "low_risk_encouragement"
	StepPositiveEmotionSupport       Step = "positive_emotion_support"
	StepPositiveEmotionEncouragement Step = "positive_emotion_encouragement"
)

// Chat-With-Me option labels.
const (
	OptionShareMore          = "Share More"
	OptionTalkMore           = "Talk More"
	OptionSelfCareTips       = "Self-Care Tips"
	OptionWellnessActivities = "Wellness Activities"
)

const positiveSentimentFloor = 0.6

// ChatTurn is one Chat-With-Me request.
type ChatTurn struct {
	Step    Step
	Message string
}

// ChatWithMe advances the risk-triaged flow by one step. Closing loops back to
// greeting; the session stays open until the client ends it.
func (e *Engine) ChatWithMe(ctx context.Context, turn ChatTurn, sink Sink) (Reply, error) {
	step := turn.Step
	if step == "" {
		step = StepGreeting
	}

	switch step {
	case StepGreeting:
		return Reply{
			Response: e.library.GetOr(responses.ListeningFallback, responses.CategoryGeneral, responses.TypeGreeting),
			NextStep: StepIntentDetection,
		}, nil

	case StepIntentDetection:
		return e.detectIntent(ctx, turn.Message, sink), nil

	case StepHighRiskEscalation:
		return e.say(responses.CategoryHighRisk, responses.TypeEscalation, StepHighRiskHotline, models.RiskLevelHigh), nil
	case StepHighRiskHotline:
		return Reply{
			Response:  e.library.Get(responses.CategoryHighRisk, responses.TypeHotline),
			NextStep:  StepHighRiskSupportive,
			RiskLevel: models.RiskLevelHigh,
		}, nil
	case StepHighRiskSupportive:
		return e.say(responses.CategoryHighRisk, responses.TypeSupportive, StepHighRiskFollowUp, models.RiskLevelHigh), nil
	case StepHighRiskFollowUp:
		return e.say(responses.CategoryHighRisk, responses.TypeFollowUp, StepClosing, models.RiskLevelHigh), nil

	case StepModerateRiskSupport:
		if hasOption(turn.Message, OptionSelfCareTips, "self care", "tips", "coping") {
			emotion := DetectEmotion(turn.Message)
			return Reply{
				Response:  e.library.GetOr(responses.ListeningFallback, responses.CategoryModerateRisk, responses.TypeCopingStrategies, emotion),
				NextStep:  StepModerateRiskEncouragement,
				RiskLevel: models.RiskLevelModerate,
			}, nil
		}
		return e.say(responses.CategoryModerateRisk, responses.TypeListening, StepModerateRiskListening, models.RiskLevelModerate), nil
	case StepModerateRiskListening:
		if reply, escalated := e.escalateIfHighRisk(ctx, turn.Message, sink); escalated {
			return reply, nil
		}
		return e.say(responses.CategoryModerateRisk, responses.TypeListening, StepModerateRiskEncouragement, models.RiskLevelModerate), nil
	case StepModerateRiskEncouragement:
		return e.say(responses.CategoryModerateRisk, responses.TypeEncouragement, StepClosing, models.RiskLevelModerate), nil

	case StepLowRiskSupport:
		if reply, escalated := e.escalateIfHighRisk(ctx, turn.Message, sink); escalated {
			return reply, nil
		}
		if hasOption(turn.Message, OptionWellnessActivities, "activities", "activity") {
			return e.say(responses.CategoryLowRisk, responses.TypeActivities, StepLowRiskEncouragement, models.RiskLevelLow), nil
		}
		return e.say(responses.CategoryLowRisk, responses.TypeSupportive, StepLowRiskEncouragement, models.RiskLevelLow), nil
	case StepLowRiskEncouragement:
		return e.say(responses.CategoryLowRisk, responses.TypeEncouragement, StepClosing, models.RiskLevelLow), nil

	case StepPositiveEmotionSupport:
		if hasOption(turn.Message, OptionWellnessActivities, "activities", "activity") {
			return e.say(responses.CategoryPositiveEmotion, responses.TypeActivities, StepPositiveEmotionEncouragement, models.RiskLevelLow), nil
		}
		return e.say(responses.CategoryPositiveEmotion, responses.TypeSupportive, StepPositiveEmotionEncouragement, models.RiskLevelLow), nil
	case StepPositiveEmotionEncouragement:
		return e.say(responses.CategoryPositiveEmotion, responses.TypeEncouragement, StepClosing, models.RiskLevelLow), nil

	case StepClosing:
		return Reply{
			Response: e.library.GetOr("Take care. I'm here whenever you want to talk again.", responses.CategoryGeneral, responses.TypeClosing),
			NextStep: StepGreeting,
		}, nil
	}

	return Reply{}, fmt.Errorf("%w: %q", ErrUnknownStep, step)
}

func (e *Engine) detectIntent(ctx context.Context, message string, sink Sink) Reply {
	if strings.TrimSpace(message) == "" {
		return Reply{Response: e.library.GetOr(responses.ListeningFallback, responses.CategoryGeneral, responses.TypeListening), NextStep: StepIntentDetection}
	}

	c := e.classifier.Classify(ctx, message)
	if c.Sentiment.Sentiment == nlp.SentimentPositive && c.Sentiment.Confidence > positiveSentimentFloor {
		e.warn("set session risk", sink.SetRisk(ctx, models.RiskLevelLow, nlp.MethodSentimentAnalysis, c.Sentiment.Confidence))
		return Reply{
			Response:  e.library.GetOr(responses.ListeningFallback, responses.CategoryPositiveEmotion, responses.TypeInitial),
			NextStep:  StepPositiveEmotionSupport,
			Options:   []string{OptionShareMore, OptionWellnessActivities},
			RiskLevel: models.RiskLevelLow,
		}
	}

	level := riskLevelFor(c.Intent)
	e.warn("set session risk", sink.SetRisk(ctx, level, c.Method, c.Confidence))

	switch c.Intent {
	case nlp.IntentHighRisk:
		return e.highRisk(ctx, c, message, sink)
	case nlp.IntentModerateRisk:
		return Reply{
			Response:  e.library.GetOr(responses.ListeningFallback, responses.CategoryModerateRisk, responses.TypeInitial),
			NextStep:  StepModerateRiskSupport,
			Options:   []string{OptionTalkMore, OptionSelfCareTips},
			RiskLevel: level,
		}
	default:
		return Reply{
			Response:  e.library.GetOr(responses.ListeningFallback, responses.CategoryLowRisk, responses.TypeInitial),
			NextStep:  StepLowRiskSupport,
			Options:   []string{OptionTalkMore, OptionWellnessActivities},
			RiskLevel: level,
		}
	}
}

// escalateIfHighRisk re-checks free text shared in a listening step so a
// disclosure made after triage still reaches the high-risk branch.
func (e *Engine) escalateIfHighRisk(ctx context.Context, message string, sink Sink) (Reply, bool) {
	if strings.TrimSpace(message) == "" || isOption(message) {
		return Reply{}, false
	}
	c := e.classifier.Classify(ctx, message)
	if c.Intent != nlp.IntentHighRisk {
		return Reply{}, false
	}
	e.warn("set session risk", sink.SetRisk(ctx, models.RiskLevelHigh, c.Method, c.Confidence))
	return e.highRisk(ctx, c, message, sink), true
}

func (e *Engine) highRisk(ctx context.Context, c nlp.Classification, message string, sink Sink) Reply {
	created, err := sink.RaiseHighRisk(ctx, c, message)
	e.warn("raise high-risk alert", err)
	return Reply{
		Response:     e.library.GetOr(responses.ListeningFallback, responses.CategoryHighRisk, responses.TypeInitial),
		NextStep:     StepHighRiskEscalation,
		RiskLevel:    models.RiskLevelHigh,
		AlertCreated: created,
	}
}

func (e *Engine) say(category, responseType string, next Step, level models.RiskLevel) Reply {
	return Reply{
		Response:  e.library.GetOr(responses.ListeningFallback, category, responseType),
		NextStep:  next,
		RiskLevel: level,
	}
}

func hasOption(message, option string, aliases ...string) bool {
	lowered := strings.ToLower(message)
	if strings.Contains(lowered, strings.ToLower(option)) {
		return true
	}
	for _, alias := range aliases {
		if strings.Contains(lowered, alias) {
			return true
		}
	}
	return false
}

func isOption(message string) bool {
	trimmed := strings.TrimSpace(message)
	for _, option := range []string{OptionShareMore, OptionTalkMore, OptionSelfCareTips, OptionWellnessActivities} {
		if strings.EqualFold(trimmed, option) {
			return true
		}
	}
	return false
}
