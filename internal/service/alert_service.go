package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-wellness-api/internal/dto"
	"github.com/noah-isme/sma-wellness-api/internal/models"
	"github.com/noah-isme/sma-wellness-api/internal/repository"
	appErrors "github.com/noah-isme/sma-wellness-api/pkg/errors"
)

type alertStore interface {
	CreateIfNotDuplicate(ctx context.Context, alert *models.MentalHealthAlert, dedup repository.AlertDedup, now time.Time) (*models.MentalHealthAlert, bool, error)
	FindDuplicate(ctx context.Context, alert *models.MentalHealthAlert, dedup repository.AlertDedup, now time.Time) (*models.MentalHealthAlert, error)
	GetByID(ctx context.Context, id string) (*models.MentalHealthAlert, error)
	List(ctx context.Context, filter models.AlertFilter) ([]models.MentalHealthAlert, int, error)
	Resolve(ctx context.Context, id, resolverID, notes string, at time.Time) (bool, error)
	Assign(ctx context.Context, id, counselorID string) (bool, error)
}

type userDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type riskScoreSource interface {
	Score(ctx context.Context, userID string) (int, error)
	Invalidate(ctx context.Context, userID string)
}

// Actor is the authenticated caller of a counselor operation.
type Actor struct {
	UserID    string
	Role      models.UserRole
	IP        string
	UserAgent string
}

// AlertService creates deduplicated alerts and serves the counselor surface.
type AlertService struct {
	store     alertStore
	users     userDirectory
	risk      riskScoreSource
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	window    time.Duration
	now       func() time.Time
}

// NewAlertService constructs the service. window is the dedup window for
// time-bounded alert types.
func NewAlertService(store alertStore, users userDirectory, risk riskScoreSource, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, window time.Duration) *AlertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if window <= 0 {
		window = 30 * time.Minute
	}
	return &AlertService{store: store, users: users, risk: risk, metrics: metrics, validator: validate, logger: logger, window: window, now: time.Now}
}

// DedupPolicy returns the deduplication rule for an alert type.
func (s *AlertService) DedupPolicy(t models.AlertType) repository.AlertDedup {
	switch {
	case t == models.AlertTypeManualReferral:
		return repository.AlertDedup{Skip: true}
	case t == models.AlertTypeMoodPattern:
		return repository.AlertDedup{ActiveOnly: true}
	case t.KeywordTyped():
		return repository.AlertDedup{Window: s.window, MatchKeywords: true}
	default:
		return repository.AlertDedup{Window: s.window}
	}
}

// CreateIfNotDuplicate stores alert unless a comparable alert already exists,
// in which case the existing alert is returned untouched with created=false.
func (s *AlertService) CreateIfNotDuplicate(ctx context.Context, alert *models.MentalHealthAlert) (*models.MentalHealthAlert, bool, error) {
	now := s.now()
	policy := s.DedupPolicy(alert.AlertType)
	alert.Status = models.AlertStatusActive
	alert.CounselorID = nil

	result, created, err := s.store.CreateIfNotDuplicate(ctx, alert, policy, now)
	if errors.Is(err, repository.ErrAlertConflict) {
		result, err = s.store.FindDuplicate(ctx, alert, policy, now)
		created = false
	}
	if err != nil {
		s.logger.Warn("alert write failed", zap.String("alert_type", string(alert.AlertType)), zap.String("user_id", alert.UserID), zap.Error(err))
		return nil, false, appErrors.Internal(err, "failed to create alert")
	}

	s.metrics.RecordAlert(string(alert.AlertType), created)
	if created {
		if s.risk != nil {
			s.risk.Invalidate(ctx, alert.UserID)
		}
		s.logger.Info("alert created",
			zap.String("alert_id", result.ID),
			zap.String("alert_type", string(result.AlertType)),
			zap.String("severity", string(result.Severity)),
		)
	}
	return result, created, nil
}

// List returns a page of alerts visible to actor.
func (s *AlertService) List(ctx context.Context, actor Actor, query dto.AlertListQuery) ([]dto.AlertResponse, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Invalid(err, "invalid alert filter")
	}
	filter := models.AlertFilter{Page: query.Page, PageSize: query.PageSize}
	if query.Status != "" {
		status := models.AlertStatus(query.Status)
		filter.Status = &status
	}
	if actor.Role == models.RoleCounselor {
		filter.CounselorID = actor.UserID
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	alerts, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list alerts")
	}
	out := make([]dto.AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, dto.NewAlertResponse(a))
	}
	return out, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one alert when actor may see it.
func (s *AlertService) Get(ctx context.Context, actor Actor, id string) (*dto.AlertResponse, error) {
	alert, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureVisible(ctx, actor, alert); err != nil {
		return nil, err
	}
	resp := dto.NewAlertResponse(*alert)
	return &resp, nil
}

// Resolve marks an alert resolved. Resolving an already resolved alert
// succeeds without changing the recorded resolver or timestamp.
func (s *AlertService) Resolve(ctx context.Context, actor Actor, id string, req dto.ResolveAlertRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Invalid(err, "invalid resolve payload")
	}
	alert, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ensureVisible(ctx, actor, alert); err != nil {
		return err
	}
	if alert.Status == models.AlertStatusResolved {
		return nil
	}

	changed, err := s.store.Resolve(ctx, id, actor.UserID, req.Notes, s.now())
	if err != nil {
		return appErrors.Internal(err, "failed to resolve alert")
	}
	if changed {
		s.audit(ctx, actor, models.AuditActionAlertResolve, "mental_health_alert", id, map[string]string{"status": string(models.AlertStatusResolved)})
	}
	return nil
}

// Assign hands an alert to a counselor and moves it from active to pending.
// An empty counselor id assigns the caller.
func (s *AlertService) Assign(ctx context.Context, actor Actor, id string, req dto.AssignAlertRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Invalid(err, "invalid assign payload")
	}
	counselorID := req.CounselorID
	if counselorID == "" {
		counselorID = actor.UserID
	}

	alert, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ensureVisible(ctx, actor, alert); err != nil {
		return err
	}
	if alert.Status == models.AlertStatusResolved {
		return appErrors.Clone(appErrors.ErrConflict, "alert already resolved")
	}

	counselor, err := s.users.FindByID(ctx, counselorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "counselor not found")
		}
		return appErrors.Internal(err, "failed to load counselor")
	}
	if !counselor.Role.ReviewsAlerts() {
		return appErrors.Clone(appErrors.ErrValidation, "assignee is not a counselor")
	}

	changed, err := s.store.Assign(ctx, id, counselorID)
	if err != nil {
		return appErrors.Internal(err, "failed to assign alert")
	}
	if !changed {
		return appErrors.Clone(appErrors.ErrConflict, "alert already resolved")
	}
	s.audit(ctx, actor, models.AuditActionAlertAssign, "mental_health_alert", id, map[string]string{"counselor_id": counselorID})
	return nil
}

// Refer lets a counselor raise a manual referral for a student.
func (s *AlertService) Refer(ctx context.Context, actor Actor, req dto.ReferralRequest) (*dto.AlertResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid referral payload")
	}
	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}

	alert, _, err := s.CreateIfNotDuplicate(ctx, &models.MentalHealthAlert{
		UserID:      req.UserID,
		AlertType:   models.AlertTypeManualReferral,
		Severity:    req.Severity,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actor, models.AuditActionAlertReferral, "mental_health_alert", alert.ID, map[string]string{"user_id": req.UserID, "severity": string(req.Severity)})
	resp := dto.NewAlertResponse(*alert)
	return &resp, nil
}

// RiskScore returns a user's risk score for the counselor surface.
func (s *AlertService) RiskScore(ctx context.Context, actor Actor, userID string) (*dto.RiskScoreResponse, error) {
	if userID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user id is required")
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	score, err := s.risk.Score(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actor, models.AuditActionRiskScoreQuery, "user", userID, nil)
	return &dto.RiskScoreResponse{UserID: userID, RiskScore: score}, nil
}

func (s *AlertService) load(ctx context.Context, id string) (*models.MentalHealthAlert, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "alert id is required")
	}
	alert, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "alert not found")
		}
		return nil, appErrors.Internal(err, "failed to load alert")
	}
	return alert, nil
}

// ensureVisible limits counselors to alerts assigned to them, unassigned
// alerts and alerts about their own students.
func (s *AlertService) ensureVisible(ctx context.Context, actor Actor, alert *models.MentalHealthAlert) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role != models.RoleCounselor {
		return appErrors.Clone(appErrors.ErrForbidden, "counselor access required")
	}
	if alert.CounselorID == nil || *alert.CounselorID == actor.UserID {
		return nil
	}
	student, err := s.users.FindByID(ctx, alert.UserID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Internal(err, "failed to load alert subject")
	}
	if student.CounseledBy(actor.UserID) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "alert belongs to another counselor")
}

func (s *AlertService) audit(ctx context.Context, actor Actor, action, resource, resourceID string, values map[string]string) {
	entry := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}
	if values != nil {
		if raw, err := json.Marshal(values); err == nil {
			entry.NewValues = raw
		}
	}
	if err := s.users.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record alert audit log", zap.String("action", action), zap.Error(err))
	}
}
