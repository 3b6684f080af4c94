package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-wellness-api/internal/models"
)

// KeywordFlagRepository appends keyword hits keyed by session only.
type KeywordFlagRepository struct {
	db *sqlx.DB
}

// NewKeywordFlagRepository constructs the repository.
func NewKeywordFlagRepository(db *sqlx.DB) *KeywordFlagRepository {
	return &KeywordFlagRepository{db: db}
}

// Append inserts flags in a single statement.
func (r *KeywordFlagRepository) Append(ctx context.Context, flags []models.KeywordFlag) error {
	if len(flags) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range flags {
		if flags[i].ID == "" {
			flags[i].ID = uuid.NewString()
		}
		if flags[i].DetectedAt.IsZero() {
			flags[i].DetectedAt = now
		}
	}
	const query = `INSERT INTO keyword_flags (id, keyword, category, session_id, detected_at) VALUES (:id, :keyword, :category, :session_id, :detected_at)`
	if _, err := r.db.NamedExecContext(ctx, query, flags); err != nil {
		return fmt.Errorf("append keyword flags: %w", err)
	}
	return nil
}
