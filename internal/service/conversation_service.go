package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-wellness-api/internal/conversation"
	"github.com/noah-isme/sma-wellness-api/internal/dto"
	"github.com/noah-isme/sma-wellness-api/internal/models"
	"github.com/noah-isme/sma-wellness-api/internal/nlp"
	"github.com/noah-isme/sma-wellness-api/internal/responses"
	appErrors "github.com/noah-isme/sma-wellness-api/pkg/errors"
)

type conversationStore interface {
	Upsert(ctx context.Context, conv *models.Conversation) error
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	End(ctx context.Context, id string, at time.Time) error
}

type keywordFlagStore interface {
	Append(ctx context.Context, flags []models.KeywordFlag) error
}

type moodResolver interface {
	CurrentMood(ctx context.Context, userID string) models.Mood
}

// ConversationService implements the public conversation verbs on top of the
// shared classifier, response library and guided engine.
type ConversationService struct {
	conversations conversationStore
	sessions      *SessionService
	flags         keywordFlagStore
	classifier    conversation.Classifier
	engine        *conversation.Engine
	library       *responses.Library
	moods         moodResolver
	risk          riskScoreSource
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

// ConversationDeps groups the collaborators of ConversationService.
type ConversationDeps struct {
	Conversations conversationStore
	Sessions      *SessionService
	Flags         keywordFlagStore
	Classifier    conversation.Classifier
	Engine        *conversation.Engine
	Library       *responses.Library
	Moods         moodResolver
	Risk          riskScoreSource
	Metrics       *MetricsService
	Validator     *validator.Validate
	Logger        *zap.Logger
}

// NewConversationService constructs the service.
func NewConversationService(deps ConversationDeps) *ConversationService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Library == nil {
		deps.Library = responses.New(nil, nil, nil)
	}
	return &ConversationService{
		conversations: deps.Conversations,
		sessions:      deps.Sessions,
		flags:         deps.Flags,
		classifier:    deps.Classifier,
		engine:        deps.Engine,
		library:       deps.Library,
		moods:         deps.Moods,
		risk:          deps.Risk,
		metrics:       deps.Metrics,
		validator:     deps.Validator,
		logger:        deps.Logger,
		now:           time.Now,
	}
}

// Start binds a session to the caller. A known session id is reused and only
// its type changes; an empty one gets a fresh server-side id.
func (s *ConversationService) Start(ctx context.Context, userID string, req dto.StartConversationRequest) (*dto.StartConversationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid conversation payload")
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conv := &models.Conversation{UserID: userID, SessionID: sessionID, ConversationType: req.ConversationType, StartedAt: s.now().UTC()}
	if err := s.conversations.Upsert(ctx, conv); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "session belongs to another user")
		}
		return nil, appErrors.Internal(err, "failed to start conversation")
	}
	if err := s.sessions.Start(ctx, sessionID, req.ConversationType); err != nil {
		return nil, err
	}
	return &dto.StartConversationResponse{ConversationID: conv.ID, SessionID: sessionID, Message: "Conversation started"}, nil
}

// LogMessage classifies one message, records keyword flags, attempts a
// high-risk alert and returns a contextual reply. The text itself is never
// persisted.
func (s *ConversationService) LogMessage(ctx context.Context, userID string, req dto.LogMessageRequest) (*dto.LogMessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid message payload")
	}
	conv, err := s.owned(ctx, userID, req.ConversationID)
	if err != nil {
		return nil, err
	}
	defer s.sessions.Touch(ctx, conv.SessionID)

	resp := &dto.LogMessageResponse{FlaggedKeywords: []nlp.KeywordMatch{}}
	if req.Sender == "bot" || strings.TrimSpace(req.Content) == "" {
		resp.ContextualResponse = s.library.GetOr(responses.ListeningFallback, responses.CategoryGeneral, responses.TypeListening)
		resp.Detection = nlp.Classification{Intent: nlp.IntentGeneral, Method: nlp.MethodKeywordFallback, Sentiment: nlp.SentimentResult{Sentiment: nlp.SentimentNeutral, Confidence: 0.5}}
		resp.RiskScore = s.score(ctx, userID)
		return resp, nil
	}

	c := s.classifier.Classify(ctx, req.Content)
	s.metrics.RecordClassification(string(c.Method), string(c.Intent))
	resp.Detection = c
	if len(c.Flags) > 0 {
		resp.FlaggedKeywords = c.Flags
		s.appendFlags(ctx, conv.SessionID, c.Flags)
		s.risk.Invalidate(ctx, userID)
	}
	resp.RiskScore = s.score(ctx, userID)

	if err := s.sessions.SetRisk(ctx, conv.SessionID, riskLevel(c.Intent), c.Method, c.Confidence); err != nil {
		s.logger.Warn("session risk not recorded", zap.Error(err))
	}

	if c.Intent == nlp.IntentHighRisk {
		alert := &models.MentalHealthAlert{
			UserID:      userID,
			AlertType:   models.AlertTypeIntentDetected,
			Severity:    models.AlertSeverityHigh,
			Title:       "High-risk intent detected",
			Description: describeDetection(c),
			RiskScore:   resp.RiskScore,
		}
		if c.Method != nlp.MethodModel {
			alert.AlertType = models.AlertTypeKeywordDetected
			alert.Title = "High-risk keywords detected"
			alert.RelatedKeywords = models.NewKeywordSet(nlp.Keywords(c.Flags))
		}
		stored, created, alertErr := s.sessions.RaiseAlert(ctx, conv.SessionID, conv.ConversationType, alert)
		switch {
		case alertErr != nil:
			s.logger.Warn("high-risk alert not recorded", zap.String("conversation_id", conv.ID), zap.Error(alertErr))
		case stored != nil:
			resp.AlertID = &stored.ID
			resp.AlertCreated = created
		}
	}

	resp.ContextualResponse = s.contextualResponse(c)
	return resp, nil
}

// End closes the conversation and its session.
func (s *ConversationService) End(ctx context.Context, userID string, req dto.EndConversationRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Invalid(err, "invalid conversation payload")
	}
	conv, err := s.owned(ctx, userID, req.ConversationID)
	if err != nil {
		return err
	}
	now := s.now()
	if err := s.conversations.End(ctx, conv.ID, now); err != nil {
		return appErrors.Internal(err, "failed to end conversation")
	}
	if err := s.sessions.End(ctx, conv.SessionID); err != nil {
		s.logger.Warn("session end not recorded", zap.Error(err))
	}
	return nil
}

// OpenUp advances the mood-driven flow.
func (s *ConversationService) OpenUp(ctx context.Context, userID string, req dto.GuidedStepRequest) (*dto.OpenUpResponse, error) {
	conv, err := s.guidedConversation(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	turn := conversation.OpenUpTurn{
		Step:    conversation.Step(req.Step),
		Message: req.Message,
		Mood:    s.moods.CurrentMood(ctx, userID),
	}
	if session := s.sessions.Get(ctx, conv.SessionID); session != nil && session.ChosenActivity != nil {
		turn.ChosenActivity = *session.ChosenActivity
	}

	reply, err := s.engine.OpenUp(ctx, turn, s.sessions.Sink(userID, conv))
	if err != nil {
		return nil, stepError(err)
	}
	s.sessions.Touch(ctx, conv.SessionID)
	return &dto.OpenUpResponse{Response: reply.Response, NextStep: reply.NextStep, Options: reply.Options, Completed: reply.Completed}, nil
}

// ChatWithMe advances the risk-triaged flow.
func (s *ConversationService) ChatWithMe(ctx context.Context, userID string, req dto.GuidedStepRequest) (*dto.ChatWithMeResponse, error) {
	conv, err := s.guidedConversation(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	reply, err := s.engine.ChatWithMe(ctx, conversation.ChatTurn{Step: conversation.Step(req.Step), Message: req.Message}, s.sessions.Sink(userID, conv))
	if err != nil {
		return nil, stepError(err)
	}
	s.sessions.Touch(ctx, conv.SessionID)
	if reply.AlertCreated {
		s.risk.Invalidate(ctx, userID)
	}
	return &dto.ChatWithMeResponse{
		Response:     reply.Response,
		NextStep:     reply.NextStep,
		Options:      reply.Options,
		RiskLevel:    reply.RiskLevel,
		AlertCreated: reply.AlertCreated,
		Completed:    reply.Completed,
	}, nil
}

func (s *ConversationService) guidedConversation(ctx context.Context, userID string, req dto.GuidedStepRequest) (*models.Conversation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid conversation step")
	}
	return s.owned(ctx, userID, req.ConversationID)
}

// owned loads a conversation and hides other users' conversations behind 404.
func (s *ConversationService) owned(ctx context.Context, userID, id string) (*models.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "conversation not found")
		}
		return nil, appErrors.Internal(err, "failed to load conversation")
	}
	if conv.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "conversation not found")
	}
	return conv, nil
}

func (s *ConversationService) appendFlags(ctx context.Context, sessionID string, matches []nlp.KeywordMatch) {
	var rows []models.KeywordFlag
	for _, m := range matches {
		for _, k := range m.Keywords {
			rows = append(rows, models.KeywordFlag{Keyword: k, Category: string(m.Category), SessionID: sessionID})
		}
	}
	if err := s.flags.Append(ctx, rows); err != nil {
		s.logger.Warn("keyword flags not recorded", zap.Int("count", len(rows)), zap.Error(err))
	}
}

func (s *ConversationService) score(ctx context.Context, userID string) int {
	score, err := s.risk.Score(ctx, userID)
	if err != nil {
		s.logger.Warn("risk score unavailable", zap.String("user_id", userID), zap.Error(err))
		return 0
	}
	return score
}

func (s *ConversationService) contextualResponse(c nlp.Classification) string {
	switch c.Intent {
	case nlp.IntentHighRisk:
		initial := s.library.Get(responses.CategoryHighRisk, responses.TypeInitial)
		return strings.TrimSpace(initial + " " + s.library.GetOr(responses.DefaultHotline, responses.CategoryHighRisk, responses.TypeHotline))
	case nlp.IntentModerateRisk:
		return s.library.GetOr(responses.ListeningFallback, responses.CategoryModerateRisk, responses.TypeInitial)
	case nlp.IntentLowRisk:
		return s.library.GetOr(responses.ListeningFallback, responses.CategoryLowRisk, responses.TypeInitial)
	default:
		return s.library.GetOr(responses.ListeningFallback, responses.CategoryGeneral, responses.TypeListening)
	}
}

func riskLevel(intent nlp.Intent) models.RiskLevel {
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

func stepError(err error) error {
	if errors.Is(err, conversation.ErrUnknownStep) {
		return appErrors.Invalid(err, "unknown conversation step")
	}
	return appErrors.Internal(err, "conversation step failed")
}
