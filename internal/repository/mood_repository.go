package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-wellness-api/internal/models"
)

const moodColumns = `id, user_id, entry_date, mood, note, answer_1, answer_2, answer_3, recommendation, created_at, updated_at`

// MoodRepository persists daily mood check-ins.
type MoodRepository struct {
	db *sqlx.DB
}

// NewMoodRepository constructs the repository.
func NewMoodRepository(db *sqlx.DB) *MoodRepository {
	return &MoodRepository{db: db}
}

// Upsert stores the entry for (user, date), replacing an earlier check-in on
// the same day.
func (r *MoodRepository) Upsert(ctx context.Context, entry *models.MoodEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	const query = `INSERT INTO mood_entries (` + moodColumns + `)
VALUES (:id, :user_id, :entry_date, :mood, :note, :answer_1, :answer_2, :answer_3, :recommendation, :created_at, :updated_at)
ON CONFLICT (user_id, entry_date) DO UPDATE SET mood = EXCLUDED.mood, note = EXCLUDED.note, answer_1 = EXCLUDED.answer_1,
answer_2 = EXCLUDED.answer_2, answer_3 = EXCLUDED.answer_3, recommendation = EXCLUDED.recommendation, updated_at = EXCLUDED.updated_at
RETURNING id, created_at`
	rows, err := r.db.NamedQueryContext(ctx, query, entry)
	if err != nil {
		return fmt.Errorf("upsert mood entry: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&entry.ID, &entry.CreatedAt); err != nil {
			return fmt.Errorf("scan mood entry: %w", err)
		}
	}
	return rows.Err()
}

// GetByDate returns the user's entry for date.
func (r *MoodRepository) GetByDate(ctx context.Context, userID string, date time.Time) (*models.MoodEntry, error) {
	query := `SELECT ` + moodColumns + ` FROM mood_entries WHERE user_id = $1 AND entry_date = $2`
	var entry models.MoodEntry
	if err := r.db.GetContext(ctx, &entry, query, userID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get mood entry: %w", err)
	}
	return &entry, nil
}

// Latest returns the user's most recent entry.
func (r *MoodRepository) Latest(ctx context.Context, userID string) (*models.MoodEntry, error) {
	query := `SELECT ` + moodColumns + ` FROM mood_entries WHERE user_id = $1 ORDER BY entry_date DESC LIMIT 1`
	var entry models.MoodEntry
	if err := r.db.GetContext(ctx, &entry, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("latest mood entry: %w", err)
	}
	return &entry, nil
}

// List returns the user's most recent entries.
func (r *MoodRepository) List(ctx context.Context, userID string, limit int) ([]models.MoodEntry, error) {
	if limit <= 0 {
		limit = 30
	}
	query := `SELECT ` + moodColumns + ` FROM mood_entries WHERE user_id = $1 ORDER BY entry_date DESC LIMIT $2`
	var entries []models.MoodEntry
	if err := r.db.SelectContext(ctx, &entries, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list mood entries: %w", err)
	}
	return entries, nil
}

// ListBetween returns entries whose date falls in [from, to], oldest first.
func (r *MoodRepository) ListBetween(ctx context.Context, userID string, from, to time.Time) ([]models.MoodEntry, error) {
	query := `SELECT ` + moodColumns + ` FROM mood_entries WHERE user_id = $1 AND entry_date BETWEEN $2 AND $3 ORDER BY entry_date ASC`
	var entries []models.MoodEntry
	if err := r.db.SelectContext(ctx, &entries, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("list mood entries between: %w", err)
	}
	return entries, nil
}
