package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-wellness-api/internal/dto"
	"github.com/noah-isme/sma-wellness-api/internal/models"
	"github.com/noah-isme/sma-wellness-api/internal/repository"
	appErrors "github.com/noah-isme/sma-wellness-api/pkg/errors"
	"github.com/noah-isme/sma-wellness-api/pkg/jobs"
	"github.com/noah-isme/sma-wellness-api/pkg/storage"
)

type memoryExports struct {
	jobs map[string]*models.AlertExport
	seq  int
}

func newMemoryExports() *memoryExports {
	return &memoryExports{jobs: map[string]*models.AlertExport{}}
}

func (m *memoryExports) Create(ctx context.Context, job *models.AlertExport) error {
	m.seq++
	job.ID = "export-" + string(rune('0'+m.seq))
	stored := *job
	m.jobs[job.ID] = &stored
	return nil
}

func (m *memoryExports) GetByID(ctx context.Context, id string) (*models.AlertExport, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *job
	return &copied, nil
}

func (m *memoryExports) Update(ctx context.Context, id string, params repository.UpdateExportParams) error {
	job := m.jobs[id]
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (m *memoryExports) ListQueued(ctx context.Context, limit int) ([]models.AlertExport, error) {
	var out []models.AlertExport
	for _, job := range m.jobs {
		if job.Status == models.ExportStatusQueued {
			out = append(out, *job)
		}
	}
	return out, nil
}

type staticAlerts struct {
	alerts []models.MentalHealthAlert
	err    error
}

func (s staticAlerts) ListAll(ctx context.Context, status *models.AlertStatus, limit int) ([]models.MentalHealthAlert, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.MentalHealthAlert
	for _, a := range s.alerts {
		if status == nil || a.Status == *status {
			out = append(out, a)
		}
	}
	return out, nil
}

type recordingQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func newExportFixture(t *testing.T, alerts alertSource) (*ExportService, *memoryExports, *recordingQueue, *fakeDirectory) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := newMemoryExports()
	queue := &recordingQueue{}
	dir := newFakeDirectory(
		&models.User{ID: "admin", Role: models.RoleAdmin},
		&models.User{ID: "cA", Role: models.RoleCounselor},
		&models.User{ID: "s1", Role: models.RoleStudent, CounselorID: strPtr("cA")},
		&models.User{ID: "s2", Role: models.RoleStudent, CounselorID: strPtr("cB")},
	)
	svc := NewExportService(repo, alerts, dir, queue, files, storage.NewSignedURLSigner("secret", time.Hour), NewMetricsService(), nil, ExportConfig{APIPrefix: "/api/v1"})
	return svc, repo, queue, dir
}

func sampleAlerts() []models.MentalHealthAlert {
	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return []models.MentalHealthAlert{
		{ID: "a1", UserID: "s1", AlertType: models.AlertTypeKeywordDetected, Severity: models.AlertSeverityHigh, Status: models.AlertStatusActive, Title: "High-risk keywords detected", RelatedKeywords: models.KeywordSet{"end it all"}, CreatedAt: created},
		{ID: "a2", UserID: "s2", CounselorID: strPtr("cB"), AlertType: models.AlertTypeMoodPattern, Severity: models.AlertSeverityModerate, Status: models.AlertStatusPending, Title: "=cmd|' /C calc'!A0", CreatedAt: created},
		{ID: "a3", UserID: "s1", CounselorID: strPtr("cB"), AlertType: models.AlertTypeSurveyHighDistress, Severity: models.AlertSeverityModerate, Status: models.AlertStatusResolved, Title: "Survey distress", CreatedAt: created},
	}
}

func downloadToken(t *testing.T, resultURL string) string {
	t.Helper()
	parsed, err := url.Parse(resultURL)
	require.NoError(t, err)
	return parsed.Query().Get("token")
}

func TestExportServiceCreateQueuesAndAudits(t *testing.T) {
	svc, repo, queue, dir := newExportFixture(t, staticAlerts{})

	res, err := svc.Create(context.Background(), Actor{UserID: "admin", Role: models.RoleAdmin}, dto.AlertExportRequest{Format: models.ExportFormatCSV, Status: "active"})
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, res.Status)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, res.ID, queue.jobs[0].ID)
	assert.Equal(t, AlertExportJobType, queue.jobs[0].Type)
	require.NotNil(t, repo.jobs[res.ID].StatusFilter)
	assert.Equal(t, "active", *repo.jobs[res.ID].StatusFilter)
	require.Len(t, dir.audits, 1)
	assert.Equal(t, models.AuditActionAlertExport, dir.audits[0].Action)
}

func TestExportServiceCreateRejectsUnknownFormat(t *testing.T) {
	svc, _, queue, _ := newExportFixture(t, staticAlerts{})
	_, err := svc.Create(context.Background(), Actor{UserID: "admin", Role: models.RoleAdmin}, dto.AlertExportRequest{Format: "xlsx"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, queue.jobs)
}

func TestExportServiceCreateMarksFailedWhenQueueDown(t *testing.T) {
	svc, repo, queue, _ := newExportFixture(t, staticAlerts{})
	queue.err = errors.New("queue stopped")

	_, err := svc.Create(context.Background(), Actor{UserID: "admin", Role: models.RoleAdmin}, dto.AlertExportRequest{Format: models.ExportFormatPDF})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}
}

func TestExportServiceHandleRendersAndServesDownload(t *testing.T) {
	svc, repo, _, _ := newExportFixture(t, staticAlerts{alerts: sampleAlerts()})
	ctx := context.Background()
	res, err := svc.Create(ctx, Actor{UserID: "admin", Role: models.RoleAdmin}, dto.AlertExportRequest{Format: models.ExportFormatCSV})
	require.NoError(t, err)

	require.NoError(t, svc.Handle(ctx, jobs.Job{ID: res.ID, MaxRetries: 3}))
	job := repo.jobs[res.ID]
	assert.Equal(t, models.ExportStatusFinished, job.Status)
	require.NotNil(t, job.ResultURL)
	assert.True(t, strings.HasPrefix(*job.ResultURL, "/api/v1/alerts/exports/download?token="))

	download, err := svc.ResolveDownload(ctx, downloadToken(t, *job.ResultURL))
	require.NoError(t, err)
	defer download.File.Close()
	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	content := string(body)
	assert.Contains(t, content, "Alert ID,Student ID,Type")
	assert.Contains(t, content, "end it all")
	assert.Contains(t, content, "'=cmd")
	assert.Equal(t, models.ExportFormatCSV, download.Format)
}

func TestExportServiceCounselorExportIsScoped(t *testing.T) {
	svc, repo, _, _ := newExportFixture(t, staticAlerts{alerts: sampleAlerts()})
	ctx := context.Background()
	res, err := svc.Create(ctx, Actor{UserID: "cA", Role: models.RoleCounselor}, dto.AlertExportRequest{Format: models.ExportFormatCSV})
	require.NoError(t, err)
	require.NoError(t, svc.Handle(ctx, jobs.Job{ID: res.ID}))

	download, err := svc.ResolveDownload(ctx, downloadToken(t, *repo.jobs[res.ID].ResultURL))
	require.NoError(t, err)
	defer download.File.Close()
	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(body), "a1")
	assert.Contains(t, string(body), "a3")
	assert.NotContains(t, string(body), "a2")

	_, err = svc.Status(ctx, Actor{UserID: "cB", Role: models.RoleCounselor}, res.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	status, err := svc.Status(ctx, Actor{UserID: "cA", Role: models.RoleCounselor}, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, status.Status)
}

func TestExportServiceHandleFailureLifecycle(t *testing.T) {
	svc, repo, _, _ := newExportFixture(t, staticAlerts{err: errors.New("db down")})
	ctx := context.Background()
	res, err := svc.Create(ctx, Actor{UserID: "admin", Role: models.RoleAdmin}, dto.AlertExportRequest{Format: models.ExportFormatPDF})
	require.NoError(t, err)

	require.Error(t, svc.Handle(ctx, jobs.Job{ID: res.ID, Attempt: 0, MaxRetries: 2}))
	assert.Equal(t, models.ExportStatusQueued, repo.jobs[res.ID].Status)

	require.Error(t, svc.Handle(ctx, jobs.Job{ID: res.ID, Attempt: 2, MaxRetries: 2}))
	job := repo.jobs[res.ID]
	assert.Equal(t, models.ExportStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "db down")
}

func TestExportServiceRejectsBadTokens(t *testing.T) {
	svc, _, _, _ := newExportFixture(t, staticAlerts{})
	_, err := svc.ResolveDownload(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestExportServiceRecoverPendingRequeues(t *testing.T) {
	svc, repo, queue, _ := newExportFixture(t, staticAlerts{})
	repo.jobs["export-9"] = &models.AlertExport{ID: "export-9", Status: models.ExportStatusQueued}
	repo.jobs["export-8"] = &models.AlertExport{ID: "export-8", Status: models.ExportStatusFinished}

	svc.RecoverPending(context.Background())
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "export-9", queue.jobs[0].ID)
}

func TestExportServiceHandleRejectsUnknownStoredFilter(t *testing.T) {
	svc, repo, _, _ := newExportFixture(t, staticAlerts{alerts: sampleAlerts()})
	filter := "archived"
	repo.jobs["export-7"] = &models.AlertExport{ID: "export-7", Format: models.ExportFormatCSV, Status: models.ExportStatusQueued, StatusFilter: &filter, CreatedBy: "admin"}

	require.Error(t, svc.Handle(context.Background(), jobs.Job{ID: "export-7", Attempt: 1, MaxRetries: 1}))
	job := repo.jobs["export-7"]
	assert.Equal(t, models.ExportStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Contains(t, *job.ErrorMessage, "unknown status filter")
}
