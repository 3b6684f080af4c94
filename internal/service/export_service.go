package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-wellness-api/internal/dto"
	"github.com/noah-isme/sma-wellness-api/internal/models"
	"github.com/noah-isme/sma-wellness-api/internal/repository"
	appErrors "github.com/noah-isme/sma-wellness-api/pkg/errors"
	"github.com/noah-isme/sma-wellness-api/pkg/export"
	"github.com/noah-isme/sma-wellness-api/pkg/jobs"
	"github.com/noah-isme/sma-wellness-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-wellness-api/pkg/storage"
)

// AlertExportJobType labels queue jobs produced by the export service.
const AlertExportJobType = "alert_export"

type exportStore interface {
	Create(ctx context.Context, job *models.AlertExport) error
	GetByID(ctx context.Context, id string) (*models.AlertExport, error)
	Update(ctx context.Context, id string, params repository.UpdateExportParams) error
	ListQueued(ctx context.Context, limit int) ([]models.AlertExport, error)
}

type alertSource interface {
	ListAll(ctx context.Context, status *models.AlertStatus, limit int) ([]models.MentalHealthAlert, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRows         int
}

// ExportDownload is a resolved, opened export file.
type ExportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ExportFormat
	ExpiresAt time.Time
}

// ExportService queues alert exports, renders them and serves signed downloads.
type ExportService struct {
	repo      exportStore
	alerts    alertSource
	users     userDirectory
	queue     jobDispatcher
	storage   fileStorage
	signer    *storage.SignedURLSigner
	csv       csvRenderer
	pdf       pdfRenderer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(repo exportStore, alerts alertSource, users userDirectory, queue jobDispatcher, files fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 5000
	}
	return &ExportService{
		repo:      repo,
		alerts:    alerts,
		users:     users,
		queue:     queue,
		storage:   files,
		signer:    signer,
		csv:       &export.CSVExporter{BOM: true},
		pdf:       export.NewPDFExporter(),
		metrics:   metrics,
		validator: validator.New(),
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create persists a queued export and hands it to the worker queue.
func (s *ExportService) Create(ctx context.Context, actor Actor, req dto.AlertExportRequest) (*dto.AlertExportResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid export request")
	}
	job := &models.AlertExport{Format: req.Format, Status: models.ExportStatusQueued, CreatedBy: actor.UserID, CreatedAt: s.now()}
	if req.Status != "" {
		status := req.Status
		job.StatusFilter = &status
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Internal(err, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: AlertExportJobType}); err != nil {
		s.markFailed(ctx, job.ID, "failed to enqueue job")
		return nil, appErrors.Internal(err, "failed to enqueue export job")
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionAlertExport,
		Resource:   "alert_export",
		ResourceID: &job.ID,
		NewValues:  []byte(fmt.Sprintf(`{"format":%q,"request_id":%q}`, job.Format, requestid.FromContext(ctx))),
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record export audit log", zap.Error(err))
	}
	return &dto.AlertExportResponse{ID: job.ID, Status: job.Status}, nil
}

// Status reports job progress. Counselors only see their own exports.
func (s *ExportService) Status(ctx context.Context, actor Actor, id string) (*dto.AlertExportResponse, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && job.CreatedBy != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	resp := &dto.AlertExportResponse{ID: job.ID, Status: job.Status, DownloadURL: job.ResultURL}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates a signed token and opens the stored file.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	grant, err := s.signer.Verify(token)
	if errors.Is(err, storage.ErrTokenExpired) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
	}
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	job, err := s.load(ctx, grant.ExportID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.ExportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.storage.Open(grant.Path)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to open export file")
	}
	return &ExportDownload{File: file, Filename: filepath.Base(grant.Path), Format: job.Format, ExpiresAt: grant.ExpiresAt}, nil
}

// RecoverPending replays queued jobs after a restart.
func (s *ExportService) RecoverPending(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to recover queued exports", zap.Error(err))
		return
	}
	for _, job := range pending {
		err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: AlertExportJobType})
		if err != nil && !errors.Is(err, jobs.ErrDuplicateJob) {
			s.logger.Warn("failed to requeue export", zap.String("export_id", job.ID), zap.Error(err))
		}
	}
}

// StartCleanup purges rendered files older than ResultTTL until ctx ends.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
				if err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
					continue
				}
				if len(removed) > 0 {
					s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
				}
			}
		}
	}()
}

// Handle is the queue handler: it renders one export and records the outcome.
// A failure on the last attempt marks the job failed; earlier failures put it
// back to queued for the retry.
func (s *ExportService) Handle(ctx context.Context, job jobs.Job) error {
	record, err := s.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.ExportStatusProcessing
	if err := s.repo.Update(ctx, job.ID, repository.UpdateExportParams{Status: &processing}); err != nil {
		return err
	}

	url, err := s.generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.LastAttempt() {
			s.markFailed(ctx, job.ID, msg)
			s.metrics.RecordExport(string(models.ExportStatusFailed))
		} else {
			queued := models.ExportStatusQueued
			if updateErr := s.repo.Update(ctx, job.ID, repository.UpdateExportParams{Status: &queued, ErrorMessage: &msg}); updateErr != nil {
				s.logger.Warn("failed to requeue export", zap.String("export_id", job.ID), zap.Error(updateErr))
			}
		}
		return err
	}

	finished := models.ExportStatusFinished
	now := s.now()
	clear := ""
	if err := s.repo.Update(ctx, job.ID, repository.UpdateExportParams{Status: &finished, ResultURL: &url, ErrorMessage: &clear, FinishedAt: &now}); err != nil {
		return err
	}
	s.metrics.RecordExport(string(models.ExportStatusFinished))
	return nil
}

func (s *ExportService) generate(ctx context.Context, job *models.AlertExport) (string, error) {
	var status *models.AlertStatus
	if job.StatusFilter != nil && *job.StatusFilter != "" {
		st := models.AlertStatus(*job.StatusFilter)
		if !st.Valid() {
			return "", fmt.Errorf("unknown status filter %q", st)
		}
		status = &st
	}
	alerts, err := s.alerts.ListAll(ctx, status, s.cfg.MaxRows)
	if err != nil {
		return "", err
	}
	alerts, err = s.visibleTo(ctx, job.CreatedBy, alerts)
	if err != nil {
		return "", err
	}

	dataset := alertDataset(alerts)
	var payload []byte
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, "Mental Health Alerts")
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("alerts_%s_%s.%s", job.ID, s.now().Format("20060102_150405"), job.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return "", err
	}
	token, _, err := s.signer.Issue(job.ID, relPath)
	if err != nil {
		return "", err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/alerts/exports/download?token=%s", prefix, token), nil
}

// visibleTo narrows a counselor's export to the alerts they may read.
func (s *ExportService) visibleTo(ctx context.Context, creatorID string, alerts []models.MentalHealthAlert) ([]models.MentalHealthAlert, error) {
	creator, err := s.users.FindByID(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("load export creator: %w", err)
	}
	if creator.Role == models.RoleAdmin {
		return alerts, nil
	}

	ownStudent := map[string]bool{}
	out := make([]models.MentalHealthAlert, 0, len(alerts))
	for _, a := range alerts {
		if a.CounselorID == nil || *a.CounselorID == creatorID {
			out = append(out, a)
			continue
		}
		mine, seen := ownStudent[a.UserID]
		if !seen {
			student, err := s.users.FindByID(ctx, a.UserID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("load alert subject: %w", err)
			}
			mine = student.CounseledBy(creatorID)
			ownStudent[a.UserID] = mine
		}
		if mine {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *ExportService) load(ctx context.Context, id string) (*models.AlertExport, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
		}
		return nil, appErrors.Internal(err, "failed to load export")
	}
	return job, nil
}

func (s *ExportService) markFailed(ctx context.Context, id, msg string) {
	failed := models.ExportStatusFailed
	now := s.now()
	if err := s.repo.Update(ctx, id, repository.UpdateExportParams{Status: &failed, ErrorMessage: &msg, FinishedAt: &now}); err != nil {
		s.logger.Warn("failed to mark export failed", zap.String("export_id", id), zap.Error(err))
	}
}

var alertExportHeaders = []string{"Alert ID", "Student ID", "Type", "Severity", "Status", "Title", "Keywords", "Risk Score", "Counselor", "Created At", "Resolved At"}

// alertDataset flattens alerts into export rows. Descriptions are left out;
// they are summaries for the detail view only.
func alertDataset(alerts []models.MentalHealthAlert) export.Dataset {
	data := export.NewDataset(alertExportHeaders...)
	for _, a := range alerts {
		_ = data.Append(
			a.ID,
			a.UserID,
			string(a.AlertType),
			string(a.Severity),
			string(a.Status),
			a.Title,
			strings.Join(a.RelatedKeywords, "; "),
			strconv.Itoa(a.RiskScore),
			deref(a.CounselorID),
			a.CreatedAt.UTC().Format(time.RFC3339),
			formatOptionalTime(a.ResolvedAt),
		)
	}
	return *data
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
