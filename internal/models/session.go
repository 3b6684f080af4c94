package models

import "time"

// ConversationType enumerates session purposes.
type ConversationType string

const (
	ConversationMoodCheckin  ConversationType = "mood_checkin"
	ConversationAppointment  ConversationType = "appointment"
	ConversationGeneral      ConversationType = "general"
	ConversationMentalHealth ConversationType = "mental_health"
	ConversationChatWithMe   ConversationType = "chat_with_me"
)

// RiskLevel is the categorical risk stored on session metadata.
type RiskLevel string

const (
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelModerate RiskLevel = "moderate"
	RiskLevelLow      RiskLevel = "low"
	RiskLevelGeneral  RiskLevel = "general"
)

// SessionMetadata is anonymized per-session telemetry. It carries no user
// reference and no message content.
type SessionMetadata struct {
	SessionID             string           `db:"session_id" json:"session_id"`
	ConversationType      ConversationType `db:"conversation_type" json:"conversation_type"`
	RiskLevel             RiskLevel        `db:"risk_level" json:"risk_level"`
	IntentDetectionMethod string           `db:"intent_detection_method" json:"intent_detection_method"`
	ConfidenceScore       float64          `db:"confidence_score" json:"confidence_score"`
	TotalMessages         int              `db:"total_messages" json:"total_messages"`
	ChosenActivity        *string          `db:"chosen_activity" json:"chosen_activity,omitempty"`
	AlertCreated          bool             `db:"alert_created" json:"alert_created"`
	StartedAt             time.Time        `db:"started_at" json:"started_at"`
	EndedAt               *time.Time       `db:"ended_at" json:"ended_at,omitempty"`
	InteractionDate       time.Time        `db:"interaction_date" json:"interaction_date"`
}

// KeywordFlag is an append-only keyword hit tied to a session only.
type KeywordFlag struct {
	ID         string    `db:"id" json:"id"`
	Keyword    string    `db:"keyword" json:"keyword"`
	Category   string    `db:"category" json:"category"`
	SessionID  string    `db:"session_id" json:"session_id"`
	DetectedAt time.Time `db:"detected_at" json:"detected_at"`
}

// Conversation binds an authenticated user to a client session. It is the
// only row that links the two; message text is never stored.
type Conversation struct {
	ID               string           `db:"id" json:"id"`
	UserID           string           `db:"user_id" json:"user_id"`
	SessionID        string           `db:"session_id" json:"session_id"`
	ConversationType ConversationType `db:"conversation_type" json:"conversation_type"`
	IsActive         bool             `db:"is_active" json:"is_active"`
	StartedAt        time.Time        `db:"started_at" json:"started_at"`
	EndedAt          *time.Time       `db:"ended_at" json:"ended_at,omitempty"`
}
