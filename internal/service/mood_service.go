package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-wellness-api/internal/dto"
	"github.com/noah-isme/sma-wellness-api/internal/models"
	appErrors "github.com/noah-isme/sma-wellness-api/pkg/errors"
)

type moodStore interface {
	Upsert(ctx context.Context, entry *models.MoodEntry) error
	GetByDate(ctx context.Context, userID string, date time.Time) (*models.MoodEntry, error)
	Latest(ctx context.Context, userID string) (*models.MoodEntry, error)
	List(ctx context.Context, userID string, limit int) ([]models.MoodEntry, error)
}

type patternEvaluator interface {
	Evaluate(ctx context.Context, userID string, today time.Time) (bool, error)
}

const surveyDistressMean = 4.0

var moodRecommendations = map[models.Mood]string{
	models.MoodHappy:   "Keep the good energy going. Share it with a friend or write down what made today great.",
	models.MoodGood:    "Nice! A short walk or some stretching can help you keep this steady feeling.",
	models.MoodNeutral: "An ordinary day is okay. Try a few minutes of journaling to check in with yourself.",
	models.MoodSad:     "It's okay to feel sad. Reach out to someone you trust, or visit the guidance office anytime.",
	models.MoodAngry:   "Try slow breathing: in for four, hold for four, out for four. The guidance office is here if you need to talk.",
}

// MoodServiceConfig carries thresholds for check-in follow-ups.
type MoodServiceConfig struct {
	RiskAlertThreshold int
}

// MoodService records daily check-ins and runs the follow-up detectors.
type MoodService struct {
	moods     moodStore
	patterns  patternEvaluator
	alerts    alertCreator
	risk      riskScoreSource
	validator *validator.Validate
	logger    *zap.Logger
	cfg       MoodServiceConfig
	now       func() time.Time
}

// NewMoodService constructs the service.
func NewMoodService(moods moodStore, patterns patternEvaluator, alerts alertCreator, risk riskScoreSource, validate *validator.Validate, logger *zap.Logger, cfg MoodServiceConfig) *MoodService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RiskAlertThreshold <= 0 {
		cfg.RiskAlertThreshold = 7
	}
	return &MoodService{moods: moods, patterns: patterns, alerts: alerts, risk: risk, validator: validate, logger: logger, cfg: cfg, now: time.Now}
}

// Recommendation returns the check-in advice for mood.
func Recommendation(mood models.Mood) string {
	if r, ok := moodRecommendations[mood]; ok {
		return r
	}
	return moodRecommendations[models.MoodNeutral]
}

// Checkin upserts today's entry and evaluates pattern, distress and risk
// alerts. Alert failures are logged and never fail the check-in.
func (s *MoodService) Checkin(ctx context.Context, userID string, req dto.MoodCheckinRequest) (*dto.MoodCheckinResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid mood check-in")
	}
	answered := 0
	for _, a := range []*int{req.Answer1, req.Answer2, req.Answer3} {
		if a != nil {
			answered++
		}
	}
	if answered != 0 && answered != 3 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "answer all three survey questions or skip the survey")
	}

	today := calendarDate(s.now())
	entry := &models.MoodEntry{
		UserID:         userID,
		EntryDate:      today,
		Mood:           req.Mood,
		Note:           req.Note,
		Answer1:        req.Answer1,
		Answer2:        req.Answer2,
		Answer3:        req.Answer3,
		Recommendation: Recommendation(req.Mood),
	}
	if err := s.moods.Upsert(ctx, entry); err != nil {
		return nil, appErrors.Internal(err, "failed to save mood entry")
	}
	s.risk.Invalidate(ctx, userID)

	resp := &dto.MoodCheckinResponse{Entry: *entry, Recommendation: entry.Recommendation}

	if created, err := s.patterns.Evaluate(ctx, userID, today); err != nil {
		s.logger.Warn("mood pattern evaluation failed", zap.String("user_id", userID), zap.Error(err))
	} else {
		resp.PatternAlert = created
	}

	if answers, ok := entry.Answers(); ok {
		mean := float64(answers[0]+answers[1]+answers[2]) / 3
		if mean >= surveyDistressMean {
			resp.DistressAlert = s.raise(ctx, &models.MentalHealthAlert{
				UserID:      userID,
				AlertType:   models.AlertTypeSurveyHighDistress,
				Severity:    models.AlertSeverityModerate,
				Title:       "High distress reported in daily survey",
				Description: fmt.Sprintf("Survey answers %d/%d/%d (mean %.1f) with mood %s.", answers[0], answers[1], answers[2], mean, entry.Mood),
			})
		}
	}

	s.assessRisk(ctx, userID)
	return resp, nil
}

func (s *MoodService) assessRisk(ctx context.Context, userID string) {
	score, err := s.risk.Score(ctx, userID)
	if err != nil {
		s.logger.Warn("risk score unavailable after check-in", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if score < s.cfg.RiskAlertThreshold {
		return
	}
	severity := models.AlertSeverityModerate
	if score >= 9 {
		severity = models.AlertSeverityHigh
	}
	s.raise(ctx, &models.MentalHealthAlert{
		UserID:      userID,
		AlertType:   models.AlertTypeRiskAssessment,
		Severity:    severity,
		Title:       fmt.Sprintf("Elevated risk score: %d/10", score),
		Description: "Recent moods, keyword flags and survey answers crossed the risk threshold.",
		RiskScore:   score,
	})
}

func (s *MoodService) raise(ctx context.Context, alert *models.MentalHealthAlert) bool {
	_, created, err := s.alerts.CreateIfNotDuplicate(ctx, alert)
	if err != nil {
		s.logger.Warn("check-in alert not created", zap.String("alert_type", string(alert.AlertType)), zap.Error(err))
		return false
	}
	return created
}

// History lists the caller's most recent entries.
func (s *MoodService) History(ctx context.Context, userID string, query dto.MoodHistoryQuery) ([]models.MoodEntry, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Invalid(err, "invalid history query")
	}
	entries, err := s.moods.List(ctx, userID, query.Limit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list mood entries")
	}
	if entries == nil {
		entries = []models.MoodEntry{}
	}
	return entries, nil
}

// Today returns today's entry.
func (s *MoodService) Today(ctx context.Context, userID string) (*models.MoodEntry, error) {
	entry, err := s.moods.GetByDate(ctx, userID, calendarDate(s.now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no check-in today")
		}
		return nil, appErrors.Internal(err, "failed to load mood entry")
	}
	return entry, nil
}

// CurrentMood resolves the mood driving the Open-Up flow: today's check-in,
// else the latest one, else neutral.
func (s *MoodService) CurrentMood(ctx context.Context, userID string) models.Mood {
	if entry, err := s.moods.GetByDate(ctx, userID, calendarDate(s.now())); err == nil {
		return entry.Mood
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("today's mood unavailable", zap.String("user_id", userID), zap.Error(err))
	}
	if entry, err := s.moods.Latest(ctx, userID); err == nil {
		return entry.Mood
	}
	return models.MoodNeutral
}
