package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-wellness-api/internal/conversation"
	"github.com/noah-isme/sma-wellness-api/internal/models"
	"github.com/noah-isme/sma-wellness-api/internal/nlp"
	appErrors "github.com/noah-isme/sma-wellness-api/pkg/errors"
)

type sessionStore interface {
	Start(ctx context.Context, sessionID string, conversationType models.ConversationType, at time.Time) error
	Get(ctx context.Context, sessionID string) (*models.SessionMetadata, error)
	Touch(ctx context.Context, sessionID string) error
	MarkAlert(ctx context.Context, sessionID string, conversationType models.ConversationType, at time.Time) (bool, error)
	SetActivity(ctx context.Context, sessionID, activity string) error
	SetRisk(ctx context.Context, sessionID string, level models.RiskLevel, method string, confidence float64) error
	End(ctx context.Context, sessionID string, at time.Time) error
	Sweep(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionService maintains anonymized session telemetry. It never receives
// message text for storage.
type SessionService struct {
	store   sessionStore
	alerts  alertCreator
	idleTTL time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewSessionService constructs the service. idleTTL bounds how long ended
// sessions are kept.
func NewSessionService(store sessionStore, alerts alertCreator, idleTTL time.Duration, logger *zap.Logger) *SessionService {
	if idleTTL <= 0 {
		idleTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{store: store, alerts: alerts, idleTTL: idleTTL, logger: logger, now: time.Now}
}

// Start sweeps stale sessions, then creates or retypes sessionID.
func (s *SessionService) Start(ctx context.Context, sessionID string, conversationType models.ConversationType) error {
	now := s.now()
	if removed, err := s.store.Sweep(ctx, now.Add(-s.idleTTL)); err != nil {
		s.logger.Warn("session sweep failed", zap.Error(err))
	} else if removed > 0 {
		s.logger.Info("swept idle sessions", zap.Int64("removed", removed))
	}
	if err := s.store.Start(ctx, sessionID, conversationType, now); err != nil {
		return appErrors.Internal(err, "failed to start session")
	}
	return nil
}

// Get returns the session row, or nil when it was swept.
func (s *SessionService) Get(ctx context.Context, sessionID string) *models.SessionMetadata {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("session lookup failed", zap.Error(err))
		}
		return nil
	}
	return session
}

// Touch counts one message.
func (s *SessionService) Touch(ctx context.Context, sessionID string) {
	if err := s.store.Touch(ctx, sessionID); err != nil {
		s.logger.Warn("session touch failed", zap.Error(err))
	}
}

// SetRisk stores the latest triage outcome.
func (s *SessionService) SetRisk(ctx context.Context, sessionID string, level models.RiskLevel, method nlp.Method, confidence float64) error {
	return s.store.SetRisk(ctx, sessionID, level, string(method), confidence)
}

// End closes the session.
func (s *SessionService) End(ctx context.Context, sessionID string) error {
	return s.store.End(ctx, sessionID, s.now())
}

// RaiseAlert claims the session's single alert slot and, on success, creates
// a deduplicated alert. A session that already claimed its slot yields
// (nil, false, nil). A swept session is recreated under conversationType.
func (s *SessionService) RaiseAlert(ctx context.Context, sessionID string, conversationType models.ConversationType, alert *models.MentalHealthAlert) (*models.MentalHealthAlert, bool, error) {
	claimed, err := s.store.MarkAlert(ctx, sessionID, conversationType, s.now())
	if err != nil {
		return nil, false, err
	}
	if !claimed {
		return nil, false, nil
	}
	alert.SessionID = &sessionID
	return s.alerts.CreateIfNotDuplicate(ctx, alert)
}

// Sink binds the conversation engine's side effects to one user's session.
func (s *SessionService) Sink(userID string, conv *models.Conversation) conversation.Sink {
	return &sessionSink{svc: s, userID: userID, sessionID: conv.SessionID, kind: conv.ConversationType}
}

type sessionSink struct {
	svc       *SessionService
	userID    string
	sessionID string
	kind      models.ConversationType
}

func (k *sessionSink) SetActivity(ctx context.Context, activity string) error {
	return k.svc.store.SetActivity(ctx, k.sessionID, activity)
}

func (k *sessionSink) SetRisk(ctx context.Context, level models.RiskLevel, method nlp.Method, confidence float64) error {
	return k.svc.SetRisk(ctx, k.sessionID, level, method, confidence)
}

// RaiseHighRisk records the categorical result and a short prefix of the
// message on the counselor-facing alert. Session rows never see the text.
func (k *sessionSink) RaiseHighRisk(ctx context.Context, c nlp.Classification, message string) (bool, error) {
	_, created, err := k.svc.RaiseAlert(ctx, k.sessionID, k.kind, &models.MentalHealthAlert{
		UserID:          k.userID,
		AlertType:       models.AlertTypeIntentDetected,
		Severity:        models.AlertSeverityHigh,
		Title:           "High-risk intent detected in Chat-With-Me",
		Description:     describeDetection(c) + " Input: " + strconv.Quote(inputPrefix(message)),
		RelatedKeywords: models.NewKeywordSet(nlp.Keywords(c.Flags)),
	})
	return created, err
}

func (k *sessionSink) End(ctx context.Context) error {
	return k.svc.End(ctx, k.sessionID)
}

const maxInputPrefix = 100

// inputPrefix returns at most maxInputPrefix runes of the trimmed message.
func inputPrefix(message string) string {
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) <= maxInputPrefix {
		return message
	}
	return string([]rune(message)[:maxInputPrefix])
}

func describeDetection(c nlp.Classification) string {
	desc := fmt.Sprintf("Detected %s via %s with confidence %.2f.", c.Intent, c.Method, c.Confidence)
	if keywords := nlp.Keywords(c.Flags); len(keywords) > 0 {
		desc += " Matched keywords: " + strings.Join(keywords, ", ") + "."
	}
	return desc
}
