package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-wellness-api/internal/models"
)

const exportColumns = `id, format, status_filter, status, result_url, error_message, created_by, created_at, finished_at`

// ExportRepository persists alert export jobs.
type ExportRepository struct {
	db *sqlx.DB
}

// NewExportRepository constructs the repository.
func NewExportRepository(db *sqlx.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Create inserts a queued export job.
func (r *ExportRepository) Create(ctx context.Context, job *models.AlertExport) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO alert_exports (` + exportColumns + `)
VALUES (:id, :format, :status_filter, :status, :result_url, :error_message, :created_by, :created_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create alert export: %w", err)
	}
	return nil
}

// GetByID returns an export job.
func (r *ExportRepository) GetByID(ctx context.Context, id string) (*models.AlertExport, error) {
	query := `SELECT ` + exportColumns + ` FROM alert_exports WHERE id = $1`
	var job models.AlertExport
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get alert export: %w", err)
	}
	return &job, nil
}

// UpdateExportParams defines the mutable fields of an export job.
type UpdateExportParams struct {
	Status       *models.ExportStatus
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes.
func (r *ExportRepository) Update(ctx context.Context, id string, params UpdateExportParams) error {
	var set []string
	var args []interface{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if params.Status != nil {
		add("status", *params.Status)
	}
	if params.ResultURL != nil {
		add("result_url", *params.ResultURL)
	}
	if params.ErrorMessage != nil {
		add("error_message", *params.ErrorMessage)
	}
	if params.FinishedAt != nil {
		add("finished_at", *params.FinishedAt)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE alert_exports SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update alert export: %w", err)
	}
	return nil
}

// ListQueued returns queued jobs for replay after a restart.
func (r *ExportRepository) ListQueued(ctx context.Context, limit int) ([]models.AlertExport, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + exportColumns + ` FROM alert_exports WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1`
	var jobs []models.AlertExport
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list queued alert exports: %w", err)
	}
	return jobs, nil
}
