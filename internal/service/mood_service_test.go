package service

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-wellness-api/internal/dto"
	"github.com/noah-isme/sma-wellness-api/internal/models"
	appErrors "github.com/noah-isme/sma-wellness-api/pkg/errors"
)

type memoryMoods struct {
	entries map[string]map[time.Time]models.MoodEntry
}

func newMemoryMoods() *memoryMoods {
	return &memoryMoods{entries: map[string]map[time.Time]models.MoodEntry{}}
}

func (m *memoryMoods) put(userID string, day time.Time, mood models.Mood) {
	if m.entries[userID] == nil {
		m.entries[userID] = map[time.Time]models.MoodEntry{}
	}
	m.entries[userID][day] = models.MoodEntry{UserID: userID, EntryDate: day, Mood: mood}
}

func (m *memoryMoods) Upsert(ctx context.Context, entry *models.MoodEntry) error {
	if m.entries[entry.UserID] == nil {
		m.entries[entry.UserID] = map[time.Time]models.MoodEntry{}
	}
	m.entries[entry.UserID][entry.EntryDate] = *entry
	return nil
}

func (m *memoryMoods) GetByDate(ctx context.Context, userID string, date time.Time) (*models.MoodEntry, error) {
	e, ok := m.entries[userID][date]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (m *memoryMoods) sorted(userID string) []models.MoodEntry {
	var out []models.MoodEntry
	for _, e := range m.entries[userID] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryDate.Before(out[j].EntryDate) })
	return out
}

func (m *memoryMoods) Latest(ctx context.Context, userID string) (*models.MoodEntry, error) {
	all := m.sorted(userID)
	if len(all) == 0 {
		return nil, sql.ErrNoRows
	}
	return &all[len(all)-1], nil
}

func (m *memoryMoods) List(ctx context.Context, userID string, limit int) ([]models.MoodEntry, error) {
	return m.sorted(userID), nil
}

func (m *memoryMoods) ListBetween(ctx context.Context, userID string, from, to time.Time) ([]models.MoodEntry, error) {
	var out []models.MoodEntry
	for _, e := range m.sorted(userID) {
		if !e.EntryDate.Before(from) && !e.EntryDate.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

type memoryPatterns struct{ rows []*models.MentalHealthPattern }

func (p *memoryPatterns) Create(ctx context.Context, pattern *models.MentalHealthPattern) error {
	p.rows = append(p.rows, pattern)
	return nil
}

// activeOnlyAlerts mimics the store: it dedups by user and type while an
// active alert exists, except for window-typed alerts which it always creates.
type activeOnlyAlerts struct {
	created []*models.MentalHealthAlert
}

func (a *activeOnlyAlerts) CreateIfNotDuplicate(ctx context.Context, alert *models.MentalHealthAlert) (*models.MentalHealthAlert, bool, error) {
	for _, existing := range a.created {
		if existing.UserID == alert.UserID && existing.AlertType == alert.AlertType && existing.Status == models.AlertStatusActive {
			return existing, false, nil
		}
	}
	alert.Status = models.AlertStatusActive
	a.created = append(a.created, alert)
	return alert, true, nil
}

func (a *activeOnlyAlerts) ofType(t models.AlertType) []*models.MentalHealthAlert {
	var out []*models.MentalHealthAlert
	for _, alert := range a.created {
		if alert.AlertType == t {
			out = append(out, alert)
		}
	}
	return out
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func intPtr(v int) *int { return &v }

func TestWeekBoundsAnchorsOnMonday(t *testing.T) {
	tests := []struct{ in, monday string }{
		{"2026-03-02", "2026-03-02"},
		{"2026-03-04", "2026-03-02"},
		{"2026-03-08", "2026-03-02"},
		{"2026-03-09", "2026-03-09"},
	}
	for _, tc := range tests {
		from, to := WeekBounds(day(tc.in))
		assert.Equal(t, day(tc.monday), from, tc.in)
		assert.Equal(t, day(tc.monday).AddDate(0, 0, 6), to, tc.in)
	}
}

func TestPatternDetectorThresholdAndIdempotence(t *testing.T) {
	moods := newMemoryMoods()
	patterns := &memoryPatterns{}
	alerts := &activeOnlyAlerts{}
	detector := NewPatternDetector(moods, patterns, alerts, 3, nil)
	ctx := context.Background()

	moods.put("u1", day("2026-03-02"), models.MoodSad)
	moods.put("u1", day("2026-03-03"), models.MoodSad)
	created, err := detector.Evaluate(ctx, "u1", day("2026-03-03"))
	require.NoError(t, err)
	assert.False(t, created)

	moods.put("u1", day("2026-03-04"), models.MoodAngry)
	created, err = detector.Evaluate(ctx, "u1", day("2026-03-04"))
	require.NoError(t, err)
	assert.True(t, created)

	moods.put("u1", day("2026-03-05"), models.MoodSad)
	created, err = detector.Evaluate(ctx, "u1", day("2026-03-05"))
	require.NoError(t, err)
	assert.False(t, created)

	require.Len(t, alerts.created, 1)
	alert := alerts.created[0]
	assert.Equal(t, models.AlertSeverityModerate, alert.Severity)
	assert.Contains(t, alert.Title, "3")
	assert.Contains(t, alert.Description, "angry")

	require.Len(t, patterns.rows, 1)
	assert.Equal(t, 3, patterns.rows[0].ConsecutiveDays)
	assert.InDelta(t, 1.5, patterns.rows[0].SeverityScore, 1e-9)
	assert.Equal(t, day("2026-03-02"), patterns.rows[0].StartDate)
	assert.Equal(t, day("2026-03-04"), patterns.rows[0].EndDate)
}

func TestPatternDetectorResetsAtWeekBoundary(t *testing.T) {
	moods := newMemoryMoods()
	alerts := &activeOnlyAlerts{}
	detector := NewPatternDetector(moods, &memoryPatterns{}, alerts, 3, nil)

	moods.put("u1", day("2026-03-06"), models.MoodSad)
	moods.put("u1", day("2026-03-07"), models.MoodSad)
	moods.put("u1", day("2026-03-08"), models.MoodSad)
	moods.put("u1", day("2026-03-09"), models.MoodSad)

	created, err := detector.Evaluate(context.Background(), "u1", day("2026-03-09"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Empty(t, alerts.created)
}

func TestPatternDetectorAllowsNewAlertAfterResolution(t *testing.T) {
	moods := newMemoryMoods()
	alerts := &activeOnlyAlerts{}
	detector := NewPatternDetector(moods, &memoryPatterns{}, alerts, 3, nil)
	for _, d := range []string{"2026-03-02", "2026-03-03", "2026-03-04"} {
		moods.put("u1", day(d), models.MoodAngry)
	}

	created, _ := detector.Evaluate(context.Background(), "u1", day("2026-03-04"))
	require.True(t, created)
	alerts.created[0].Status = models.AlertStatusResolved

	created, err := detector.Evaluate(context.Background(), "u1", day("2026-03-04"))
	require.NoError(t, err)
	assert.True(t, created)
}

func newMoodFixture(now time.Time, score int) (*MoodService, *memoryMoods, *activeOnlyAlerts, *fakeRisk) {
	moods := newMemoryMoods()
	alerts := &activeOnlyAlerts{}
	risk := &fakeRisk{score: score}
	detector := NewPatternDetector(moods, &memoryPatterns{}, alerts, 3, nil)
	svc := NewMoodService(moods, detector, alerts, risk, nil, nil, MoodServiceConfig{RiskAlertThreshold: 7})
	svc.now = func() time.Time { return now }
	return svc, moods, alerts, risk
}

func TestMoodCheckinUpsertsToday(t *testing.T) {
	now := time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)
	svc, moods, alerts, risk := newMoodFixture(now, 0)

	resp, err := svc.Checkin(context.Background(), "u1", dto.MoodCheckinRequest{Mood: models.MoodGood})
	require.NoError(t, err)
	assert.Equal(t, day("2026-03-04"), resp.Entry.EntryDate)
	assert.Equal(t, Recommendation(models.MoodGood), resp.Recommendation)

	_, err = svc.Checkin(context.Background(), "u1", dto.MoodCheckinRequest{Mood: models.MoodSad})
	require.NoError(t, err)
	assert.Len(t, moods.entries["u1"], 1)
	assert.Equal(t, models.MoodSad, moods.entries["u1"][day("2026-03-04")].Mood)
	assert.Empty(t, alerts.created)
	assert.Equal(t, []string{"u1", "u1"}, risk.invalidated)
}

func TestMoodCheckinSurveyAnswersAllOrNone(t *testing.T) {
	svc, _, _, _ := newMoodFixture(time.Now(), 0)

	_, err := svc.Checkin(context.Background(), "u1", dto.MoodCheckinRequest{Mood: models.MoodSad, Answer1: intPtr(3)})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Checkin(context.Background(), "u1", dto.MoodCheckinRequest{Mood: models.MoodSad, Answer1: intPtr(6), Answer2: intPtr(1), Answer3: intPtr(1)})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Checkin(context.Background(), "u1", dto.MoodCheckinRequest{Mood: "tired"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestMoodCheckinRaisesDistressAndRiskAlerts(t *testing.T) {
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	svc, _, alerts, _ := newMoodFixture(now, 9)

	resp, err := svc.Checkin(context.Background(), "u1", dto.MoodCheckinRequest{
		Mood: models.MoodSad, Answer1: intPtr(4), Answer2: intPtr(5), Answer3: intPtr(3),
	})
	require.NoError(t, err)
	assert.True(t, resp.DistressAlert)
	assert.False(t, resp.PatternAlert)

	require.Len(t, alerts.ofType(models.AlertTypeSurveyHighDistress), 1)
	risk := alerts.ofType(models.AlertTypeRiskAssessment)
	require.Len(t, risk, 1)
	assert.Equal(t, models.AlertSeverityHigh, risk[0].Severity)
	assert.Equal(t, 9, risk[0].RiskScore)
}

func TestMoodCheckinBelowDistressMean(t *testing.T) {
	svc, _, alerts, _ := newMoodFixture(time.Now(), 2)

	resp, err := svc.Checkin(context.Background(), "u1", dto.MoodCheckinRequest{
		Mood: models.MoodNeutral, Answer1: intPtr(4), Answer2: intPtr(4), Answer3: intPtr(3),
	})
	require.NoError(t, err)
	assert.False(t, resp.DistressAlert)
	assert.Empty(t, alerts.created)
}

func TestCurrentMoodFallbacks(t *testing.T) {
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	svc, moods, _, _ := newMoodFixture(now, 0)
	ctx := context.Background()

	assert.Equal(t, models.MoodNeutral, svc.CurrentMood(ctx, "u1"))

	moods.put("u1", day("2026-03-01"), models.MoodAngry)
	assert.Equal(t, models.MoodAngry, svc.CurrentMood(ctx, "u1"))

	moods.put("u1", day("2026-03-04"), models.MoodHappy)
	assert.Equal(t, models.MoodHappy, svc.CurrentMood(ctx, "u1"))

	_, err := svc.Today(ctx, "u2")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
