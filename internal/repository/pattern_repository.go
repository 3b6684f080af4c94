package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-wellness-api/internal/models"
)

// PatternRepository persists detected mood patterns.
type PatternRepository struct {
	db *sqlx.DB
}

// NewPatternRepository constructs the repository.
func NewPatternRepository(db *sqlx.DB) *PatternRepository {
	return &PatternRepository{db: db}
}

// Create inserts a pattern row.
func (r *PatternRepository) Create(ctx context.Context, pattern *models.MentalHealthPattern) error {
	if pattern.ID == "" {
		pattern.ID = uuid.NewString()
	}
	if pattern.CreatedAt.IsZero() {
		pattern.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO mental_health_patterns (id, user_id, pattern_type, consecutive_days, start_date, end_date, severity_score, alert_created, created_at)
VALUES (:id, :user_id, :pattern_type, :consecutive_days, :start_date, :end_date, :severity_score, :alert_created, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, pattern); err != nil {
		return fmt.Errorf("create pattern: %w", err)
	}
	return nil
}
