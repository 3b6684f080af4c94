package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// RiskSignals are the raw counts a risk score is derived from.
type RiskSignals struct {
	NegativeMoods  int  `db:"negative_moods"`
	KeywordFlags   int  `db:"keyword_flags"`
	SurveyDistress int  `db:"survey_distress"`
	RecentHighRisk bool `db:"recent_high_risk"`
}

// RiskRepository reads risk signals in a single round trip.
type RiskRepository struct {
	db *sqlx.DB
}

// NewRiskRepository constructs the repository.
func NewRiskRepository(db *sqlx.DB) *RiskRepository {
	return &RiskRepository{db: db}
}

// Signals counts negative moods, keyword flags and distressed surveys since
// signalSince, and reports whether a high-severity alert exists since alertSince.
// Keyword flags carry no user column and are attributed through conversations;
// positive_emotion hits are stored but never count toward risk.
func (r *RiskRepository) Signals(ctx context.Context, userID string, signalSince, alertSince time.Time) (*RiskSignals, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM mood_entries m WHERE m.user_id = $1 AND m.entry_date >= $2 AND m.mood IN ('sad', 'angry')) AS negative_moods,
	(SELECT COUNT(*) FROM keyword_flags f JOIN conversations c ON c.session_id = f.session_id WHERE c.user_id = $1 AND f.detected_at >= $2 AND f.category <> 'positive_emotion') AS keyword_flags,
	(SELECT COUNT(*) FROM mood_entries m WHERE m.user_id = $1 AND m.entry_date >= $2 AND (m.answer_1 >= 4 OR m.answer_2 >= 4 OR m.answer_3 >= 4)) AS survey_distress,
	EXISTS (SELECT 1 FROM mental_health_alerts a WHERE a.user_id = $1 AND a.severity = 'high' AND a.created_at >= $3) AS recent_high_risk`
	var signals RiskSignals
	if err := r.db.GetContext(ctx, &signals, query, userID, signalSince.UTC(), alertSince.UTC()); err != nil {
		return nil, fmt.Errorf("load risk signals: %w", err)
	}
	return &signals, nil
}
