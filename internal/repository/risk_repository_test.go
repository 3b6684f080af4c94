package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskSignals(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRiskRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT .* AS negative_moods, .* AS keyword_flags, .* AS survey_distress, .* AS recent_high_risk").
		WithArgs("u1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"negative_moods", "keyword_flags", "survey_distress", "recent_high_risk"}).AddRow(2, 5, 1, true))

	signals, err := repo.Signals(context.Background(), "u1", now.AddDate(0, 0, -7), now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, RiskSignals{NegativeMoods: 2, KeywordFlags: 5, SurveyDistress: 1, RecentHighRisk: true}, *signals)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRiskSignalsIgnorePositiveFlags(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRiskRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("f.detected_at >= $2 AND f.category <> 'positive_emotion') AS keyword_flags")).
		WithArgs("u1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"negative_moods", "keyword_flags", "survey_distress", "recent_high_risk"}).AddRow(0, 0, 0, false))

	signals, err := repo.Signals(context.Background(), "u1", time.Now().AddDate(0, 0, -7), time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, signals.KeywordFlags)
	assert.NoError(t, mock.ExpectationsWereMet())
}
