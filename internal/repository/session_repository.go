package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-wellness-api/internal/models"
)

const sessionColumns = `session_id, conversation_type, risk_level, intent_detection_method, confidence_score, total_messages, chosen_activity, alert_created, started_at, ended_at, interaction_date`

// SessionRepository persists anonymized session metadata. Rows carry no user
// reference and no message text.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Start creates the session row or, for a known session, updates its type and
// reopens it so the idle sweep no longer applies.
func (r *SessionRepository) Start(ctx context.Context, sessionID string, conversationType models.ConversationType, at time.Time) error {
	at = at.UTC()
	const query = `INSERT INTO session_metadata (session_id, conversation_type, risk_level, intent_detection_method, confidence_score, total_messages, alert_created, started_at, interaction_date)
VALUES ($1, $2, 'general', '', 0, 0, FALSE, $3, $4)
ON CONFLICT (session_id) DO UPDATE SET conversation_type = EXCLUDED.conversation_type, ended_at = NULL`
	if _, err := r.db.ExecContext(ctx, query, sessionID, conversationType, at, at.Truncate(24*time.Hour)); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}

// Get returns a session by id.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*models.SessionMetadata, error) {
	query := `SELECT ` + sessionColumns + ` FROM session_metadata WHERE session_id = $1`
	var session models.SessionMetadata
	if err := r.db.GetContext(ctx, &session, query, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &session, nil
}

// Touch increments the message counter.
func (r *SessionRepository) Touch(ctx context.Context, sessionID string) error {
	return r.exec(ctx, "touch session", `UPDATE session_metadata SET total_messages = total_messages + 1 WHERE session_id = $1`, sessionID)
}

// MarkAlert flips alert_created from false to true. It reports whether this
// call performed the transition, so at most one caller per session wins. A
// session row removed by the sweep is recreated already claimed.
func (r *SessionRepository) MarkAlert(ctx context.Context, sessionID string, conversationType models.ConversationType, at time.Time) (bool, error) {
	at = at.UTC()
	const query = `INSERT INTO session_metadata (session_id, conversation_type, risk_level, intent_detection_method, confidence_score, total_messages, alert_created, started_at, interaction_date)
VALUES ($1, $2, 'general', '', 0, 0, TRUE, $3, $4)
ON CONFLICT (session_id) DO UPDATE SET alert_created = TRUE WHERE session_metadata.alert_created = FALSE`
	res, err := r.db.ExecContext(ctx, query, sessionID, conversationType, at, at.Truncate(24*time.Hour))
	if err != nil {
		return false, fmt.Errorf("mark session alert: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark session alert rows: %w", err)
	}
	return affected > 0, nil
}

// SetActivity records the activity chosen in the Open-Up flow.
func (r *SessionRepository) SetActivity(ctx context.Context, sessionID, activity string) error {
	return r.exec(ctx, "set session activity", `UPDATE session_metadata SET chosen_activity = $2 WHERE session_id = $1`, sessionID, activity)
}

// SetRisk records the latest triage outcome.
func (r *SessionRepository) SetRisk(ctx context.Context, sessionID string, level models.RiskLevel, method string, confidence float64) error {
	return r.exec(ctx, "set session risk",
		`UPDATE session_metadata SET risk_level = $2, intent_detection_method = $3, confidence_score = $4 WHERE session_id = $1`,
		sessionID, level, method, confidence)
}

// End closes the session once; ended_at never precedes started_at.
func (r *SessionRepository) End(ctx context.Context, sessionID string, at time.Time) error {
	return r.exec(ctx, "end session",
		`UPDATE session_metadata SET ended_at = GREATEST($2, started_at) WHERE session_id = $1 AND ended_at IS NULL`,
		sessionID, at.UTC())
}

// Sweep deletes ended sessions that closed before cutoff.
func (r *SessionRepository) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM session_metadata WHERE ended_at IS NOT NULL AND ended_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep sessions rows: %w", err)
	}
	return affected, nil
}

func (r *SessionRepository) exec(ctx context.Context, op, query string, args ...interface{}) error {
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
