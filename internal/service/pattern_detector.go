package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-wellness-api/internal/models"
)

type weeklyMoodSource interface {
	ListBetween(ctx context.Context, userID string, from, to time.Time) ([]models.MoodEntry, error)
}

type patternStore interface {
	Create(ctx context.Context, pattern *models.MentalHealthPattern) error
}

type alertCreator interface {
	CreateIfNotDuplicate(ctx context.Context, alert *models.MentalHealthAlert) (*models.MentalHealthAlert, bool, error)
}

// PatternDetector raises a moderate alert once a user logs enough negative
// moods within the Monday to Sunday week.
type PatternDetector struct {
	moods     weeklyMoodSource
	patterns  patternStore
	alerts    alertCreator
	threshold int
	logger    *zap.Logger
}

// NewPatternDetector constructs the detector. A non-positive threshold uses 3.
func NewPatternDetector(moods weeklyMoodSource, patterns patternStore, alerts alertCreator, threshold int, logger *zap.Logger) *PatternDetector {
	if threshold <= 0 {
		threshold = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatternDetector{moods: moods, patterns: patterns, alerts: alerts, threshold: threshold, logger: logger}
}

// WeekBounds returns the Monday and Sunday of the week containing day.
func WeekBounds(day time.Time) (time.Time, time.Time) {
	d := calendarDate(day)
	offset := (int(d.Weekday()) + 6) % 7
	monday := d.AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 6)
}

// Evaluate checks the week containing today. It reports whether a new
// pattern alert was created; while an active pattern alert exists it is a no-op.
func (d *PatternDetector) Evaluate(ctx context.Context, userID string, today time.Time) (bool, error) {
	from, to := WeekBounds(today)
	entries, err := d.moods.ListBetween(ctx, userID, from, to)
	if err != nil {
		return false, fmt.Errorf("load weekly moods: %w", err)
	}

	var negative []models.MoodEntry
	for _, e := range entries {
		if e.Mood.Negative() {
			negative = append(negative, e)
		}
	}
	count := len(negative)
	if count < d.threshold {
		return false, nil
	}

	_, created, err := d.alerts.CreateIfNotDuplicate(ctx, &models.MentalHealthAlert{
		UserID:      userID,
		AlertType:   models.AlertTypeMoodPattern,
		Severity:    models.AlertSeverityModerate,
		Title:       fmt.Sprintf("Negative mood pattern: %d days this week", count),
		Description: describePattern(negative),
	})
	if err != nil || !created {
		return false, err
	}

	pattern := &models.MentalHealthPattern{
		UserID:          userID,
		PatternType:     models.PatternTypeWeeklyNegativeMood,
		ConsecutiveDays: count,
		StartDate:       calendarDate(negative[0].EntryDate),
		EndDate:         calendarDate(negative[count-1].EntryDate),
		SeverityScore:   0.5 * float64(count),
		AlertCreated:    true,
	}
	if err := d.patterns.Create(ctx, pattern); err != nil {
		d.logger.Warn("pattern row not stored", zap.String("user_id", userID), zap.Error(err))
	}
	d.logger.Info("mood pattern detected", zap.String("user_id", userID), zap.Int("negative_days", count))
	return true, nil
}

func describePattern(entries []models.MoodEntry) string {
	var b strings.Builder
	b.WriteString("Negative moods recorded this week:")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n- %s: %s", e.EntryDate.Format("Mon 2006-01-02"), e.Mood)
		if e.Note != nil && strings.TrimSpace(*e.Note) != "" {
			fmt.Fprintf(&b, " (note: %s)", strings.TrimSpace(*e.Note))
		}
		if answers, ok := e.Answers(); ok {
			fmt.Fprintf(&b, " [survey %d/%d/%d]", answers[0], answers[1], answers[2])
		}
	}
	return b.String()
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
