package models

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
)

// AlertType enumerates how an alert was raised.
type AlertType string

const (
	AlertTypeKeywordDetected    AlertType = "keyword_detected"
	AlertTypeIntentDetected     AlertType = "bert_intent_detected"
	AlertTypeMoodPattern        AlertType = "mood_pattern"
	AlertTypeManualReferral     AlertType = "manual_referral"
	AlertTypeRiskAssessment     AlertType = "risk_assessment"
	AlertTypeSurveyHighDistress AlertType = "survey_high_distress"
	AlertTypeChatbotKeyword     AlertType = "chatbot_keyword"
)

// KeywordTyped reports whether dedup must also compare keyword sets.
func (t AlertType) KeywordTyped() bool {
	return t == AlertTypeKeywordDetected || t == AlertTypeChatbotKeyword
}

// AlertSeverity grades an alert.
type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "low"
	AlertSeverityModerate AlertSeverity = "moderate"
	AlertSeverityHigh     AlertSeverity = "high"
)

// AlertStatus tracks counselor handling.
type AlertStatus string

const (
	AlertStatusActive   AlertStatus = "active"
	AlertStatusPending  AlertStatus = "pending"
	AlertStatusResolved AlertStatus = "resolved"
)

// Valid reports whether s is a known status.
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertStatusActive, AlertStatusPending, AlertStatusResolved:
		return true
	}
	return false
}

// KeywordSet is a normalised, sorted, duplicate-free keyword list.
type KeywordSet []string

// NewKeywordSet lowercases, trims, dedups and sorts keywords.
func NewKeywordSet(keywords []string) KeywordSet {
	seen := make(map[string]struct{}, len(keywords))
	out := make(KeywordSet, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Signature is the canonical form stored for dedup comparisons.
func (k KeywordSet) Signature() string {
	return strings.Join(NewKeywordSet(k), "|")
}

// Value stores the set as a postgres text[].
func (k KeywordSet) Value() (driver.Value, error) {
	return pq.StringArray(NewKeywordSet(k)).Value()
}

// Scan reads a postgres text[].
func (k *KeywordSet) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return fmt.Errorf("scan keyword set: %w", err)
	}
	*k = NewKeywordSet(arr)
	return nil
}

// MentalHealthAlert is a counselor-visible record raised by the pipeline.
type MentalHealthAlert struct {
	ID              string        `db:"id" json:"id"`
	UserID          string        `db:"user_id" json:"user_id"`
	CounselorID     *string       `db:"counselor_id" json:"counselor_id,omitempty"`
	AlertType       AlertType     `db:"alert_type" json:"alert_type"`
	Severity        AlertSeverity `db:"severity" json:"severity"`
	Status          AlertStatus   `db:"status" json:"status"`
	Title           string        `db:"title" json:"title"`
	Description     string        `db:"description" json:"description"`
	SessionID       *string       `db:"session_id" json:"session_id,omitempty"`
	RelatedKeywords KeywordSet    `db:"related_keywords" json:"related_keywords"`
	DedupKey        string        `db:"dedup_key" json:"-"`
	DedupBucket     *int64        `db:"dedup_bucket" json:"-"`
	RiskScore       int           `db:"risk_score" json:"risk_score"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	ResolvedAt      *time.Time    `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy      *string       `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolutionNotes string        `db:"resolution_notes" json:"resolution_notes"`
}

// AlertFilter narrows alert listings.
type AlertFilter struct {
	Status      *AlertStatus
	CounselorID string
	Page        int
	PageSize    int
}
