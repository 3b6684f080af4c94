package dto

import (
	"time"

	"github.com/noah-isme/sma-wellness-api/internal/models"
)

// AlertListQuery captures GET /alerts filters.
type AlertListQuery struct {
	Status   string `form:"status" validate:"omitempty,oneof=active pending resolved"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=100"`
}

// AlertResponse is the counselor-facing projection of an alert.
type AlertResponse struct {
	ID              string               `json:"id"`
	UserID          string               `json:"user_id"`
	CounselorID     *string              `json:"counselor_id,omitempty"`
	AlertType       models.AlertType     `json:"alert_type"`
	Severity        models.AlertSeverity `json:"severity"`
	Status          models.AlertStatus   `json:"status"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	RelatedKeywords []string             `json:"related_keywords"`
	RiskScore       int                  `json:"risk_score"`
	CreatedAt       time.Time            `json:"created_at"`
	ResolvedAt      *time.Time           `json:"resolved_at,omitempty"`
	ResolvedBy      *string              `json:"resolved_by,omitempty"`
	ResolutionNotes string               `json:"resolution_notes,omitempty"`
}

// NewAlertResponse projects an alert. The session identifier is withheld so
// counselors cannot join alerts back to anonymized session telemetry.
func NewAlertResponse(a models.MentalHealthAlert) AlertResponse {
	keywords := []string(a.RelatedKeywords)
	if keywords == nil {
		keywords = []string{}
	}
	return AlertResponse{
		ID:              a.ID,
		UserID:          a.UserID,
		CounselorID:     a.CounselorID,
		AlertType:       a.AlertType,
		Severity:        a.Severity,
		Status:          a.Status,
		Title:           a.Title,
		Description:     a.Description,
		RelatedKeywords: keywords,
		RiskScore:       a.RiskScore,
		CreatedAt:       a.CreatedAt,
		ResolvedAt:      a.ResolvedAt,
		ResolvedBy:      a.ResolvedBy,
		ResolutionNotes: a.ResolutionNotes,
	}
}

// ResolveAlertRequest captures POST /alerts/{id}/resolve.
type ResolveAlertRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// AssignAlertRequest captures POST /alerts/{id}/assign. An empty counselor
// assigns the caller.
type AssignAlertRequest struct {
	CounselorID string `json:"counselor_id" validate:"omitempty,max=64"`
}

// ReferralRequest captures POST /alerts/referrals.
type ReferralRequest struct {
	UserID      string               `json:"user_id" validate:"required"`
	Title       string               `json:"title" validate:"required,max=200"`
	Description string               `json:"description" validate:"max=2000"`
	Severity    models.AlertSeverity `json:"severity" validate:"required,oneof=low moderate high"`
}

// RiskScoreResponse exposes a user's bounded risk score.
type RiskScoreResponse struct {
	UserID    string `json:"user_id"`
	RiskScore int    `json:"risk_score"`
}
