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
	"github.com/lib/pq"

	"github.com/noah-isme/sma-wellness-api/internal/models"
)

// ErrAlertConflict reports that a concurrent writer inserted the same alert
// first and the dedup index rejected this one.
var ErrAlertConflict = errors.New("alert conflict")

const alertColumns = `id, user_id, counselor_id, alert_type, severity, status, title, description, session_id, related_keywords, dedup_key, dedup_bucket, risk_score, created_at, resolved_at, resolved_by, resolution_notes`

// AlertDedup describes which prior alert suppresses a new one.
type AlertDedup struct {
	// Skip disables deduplication entirely.
	Skip bool
	// Window bounds how far back a prior alert counts. Zero means unbounded.
	Window time.Duration
	// ActiveOnly only counts prior alerts still in the active status.
	ActiveOnly bool
	// MatchKeywords additionally requires an identical keyword set.
	MatchKeywords bool
}

// AlertRepository persists mental-health alerts.
type AlertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository constructs the repository.
func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// CreateIfNotDuplicate inserts alert unless a matching prior alert exists.
// Writers for the same user and alert type are serialized by a transaction
// scoped advisory lock; the unique dedup index backs it up.
func (r *AlertRepository) CreateIfNotDuplicate(ctx context.Context, alert *models.MentalHealthAlert, dedup AlertDedup, now time.Time) (result *models.MentalHealthAlert, created bool, err error) {
	prepareAlert(alert, dedup, now)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin alert transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, alert.UserID+":"+string(alert.AlertType)); err != nil {
		return nil, false, fmt.Errorf("lock alert dedup key: %w", err)
	}

	if !dedup.Skip {
		existing, findErr := findDuplicate(ctx, tx, alert, dedup, now)
		if findErr != nil && !errors.Is(findErr, sql.ErrNoRows) {
			err = findErr
			return nil, false, err
		}
		if existing != nil {
			if err = tx.Commit(); err != nil {
				return nil, false, fmt.Errorf("commit alert dedup: %w", err)
			}
			return existing, false, nil
		}
	}

	const insertQuery = `INSERT INTO mental_health_alerts (` + alertColumns + `)
VALUES (:id, :user_id, :counselor_id, :alert_type, :severity, :status, :title, :description, :session_id, :related_keywords, :dedup_key, :dedup_bucket, :risk_score, :created_at, :resolved_at, :resolved_by, :resolution_notes)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, alert); err != nil {
		if isUniqueViolation(err) {
			err = ErrAlertConflict
			return nil, false, err
		}
		return nil, false, fmt.Errorf("insert alert: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit alert: %w", err)
	}
	return alert, true, nil
}

// FindDuplicate returns the prior alert that would suppress alert, outside any
// transaction. It is used to resolve ErrAlertConflict.
func (r *AlertRepository) FindDuplicate(ctx context.Context, alert *models.MentalHealthAlert, dedup AlertDedup, now time.Time) (*models.MentalHealthAlert, error) {
	prepareAlert(alert, dedup, now)
	return findDuplicate(ctx, r.db, alert, dedup, now)
}

func prepareAlert(alert *models.MentalHealthAlert, dedup AlertDedup, now time.Time) {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.Status == "" {
		alert.Status = models.AlertStatusActive
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now.UTC()
	}
	alert.RelatedKeywords = models.NewKeywordSet(alert.RelatedKeywords)
	alert.DedupKey = ""
	alert.DedupBucket = nil
	if dedup.Skip {
		return
	}
	if dedup.MatchKeywords {
		alert.DedupKey = alert.RelatedKeywords.Signature()
	}
	if seconds := int64(dedup.Window / time.Second); seconds > 0 {
		bucket := alert.CreatedAt.Unix() / seconds
		alert.DedupBucket = &bucket
	}
}

func findDuplicate(ctx context.Context, q sqlx.QueryerContext, alert *models.MentalHealthAlert, dedup AlertDedup, now time.Time) (*models.MentalHealthAlert, error) {
	conditions := []string{"user_id = $1", "alert_type = $2"}
	args := []interface{}{alert.UserID, alert.AlertType}
	if dedup.ActiveOnly {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, models.AlertStatusActive)
	}
	if dedup.Window > 0 {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)+1))
		args = append(args, now.UTC().Add(-dedup.Window))
	}
	if dedup.MatchKeywords {
		conditions = append(conditions, fmt.Sprintf("dedup_key = $%d", len(args)+1))
		args = append(args, alert.DedupKey)
	}

	query := fmt.Sprintf("SELECT %s FROM mental_health_alerts WHERE %s ORDER BY created_at DESC LIMIT 1", alertColumns, strings.Join(conditions, " AND "))
	var existing models.MentalHealthAlert
	if err := sqlx.GetContext(ctx, q, &existing, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find duplicate alert: %w", err)
	}
	return &existing, nil
}

// GetByID returns an alert by identifier.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*models.MentalHealthAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM mental_health_alerts WHERE id = $1`
	var alert models.MentalHealthAlert
	if err := r.db.GetContext(ctx, &alert, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return &alert, nil
}

// List returns alerts matching filter together with the total count. A
// counselor filter limits rows to alerts assigned to that counselor, alerts
// for students under that counselor, and unassigned alerts.
func (r *AlertRepository) List(ctx context.Context, filter models.AlertFilter) ([]models.MentalHealthAlert, int, error) {
	base := ` FROM mental_health_alerts a WHERE 1=1`
	var args []interface{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		base += fmt.Sprintf(" AND a.status = $%d", len(args))
	}
	if filter.CounselorID != "" {
		args = append(args, filter.CounselorID)
		n := len(args)
		base += fmt.Sprintf(" AND (a.counselor_id = $%d OR a.counselor_id IS NULL OR a.user_id IN (SELECT id FROM users WHERE counselor_id = $%d))", n, n)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT a.%s%s ORDER BY a.created_at DESC LIMIT %d OFFSET %d",
		strings.ReplaceAll(alertColumns, ", ", ", a."), base, pageSize, offset)
	var alerts []models.MentalHealthAlert
	if err := r.db.SelectContext(ctx, &alerts, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list alerts: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count alerts: %w", err)
	}
	return alerts, total, nil
}

// ListAll returns every alert with an optional status filter, newest first.
func (r *AlertRepository) ListAll(ctx context.Context, status *models.AlertStatus, limit int) ([]models.MentalHealthAlert, error) {
	if limit <= 0 {
		limit = 5000
	}
	query := `SELECT ` + alertColumns + ` FROM mental_health_alerts`
	args := []interface{}{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit)

	var alerts []models.MentalHealthAlert
	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, fmt.Errorf("list all alerts: %w", err)
	}
	return alerts, nil
}

// Resolve marks an unresolved alert resolved. It reports false when the alert
// was already resolved or does not exist; resolved rows are never rewritten.
func (r *AlertRepository) Resolve(ctx context.Context, id, resolverID, notes string, at time.Time) (bool, error) {
	const query = `UPDATE mental_health_alerts SET status = 'resolved', resolved_at = $2, resolved_by = $3, resolution_notes = $4 WHERE id = $1 AND status <> 'resolved'`
	res, err := r.db.ExecContext(ctx, query, id, at.UTC(), resolverID, notes)
	if err != nil {
		return false, fmt.Errorf("resolve alert: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve alert rows: %w", err)
	}
	return affected > 0, nil
}

// Assign sets the counselor and moves an active alert to pending.
func (r *AlertRepository) Assign(ctx context.Context, id, counselorID string) (bool, error) {
	const query = `UPDATE mental_health_alerts SET counselor_id = $2, status = CASE WHEN status = 'active' THEN 'pending' ELSE status END WHERE id = $1 AND status <> 'resolved'`
	res, err := r.db.ExecContext(ctx, query, id, counselorID)
	if err != nil {
		return false, fmt.Errorf("assign alert: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("assign alert rows: %w", err)
	}
	return affected > 0, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
