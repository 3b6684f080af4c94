package dto

import (
	"github.com/noah-isme/sma-wellness-api/internal/conversation"
	"github.com/noah-isme/sma-wellness-api/internal/models"
	"github.com/noah-isme/sma-wellness-api/internal/nlp"
)

// StartConversationRequest captures POST /conversations/start.
type StartConversationRequest struct {
	ConversationType models.ConversationType `json:"conversation_type" validate:"required,oneof=mood_checkin appointment general mental_health chat_with_me"`
	SessionID        string                  `json:"session_id" validate:"omitempty,max=128"`
}

// StartConversationResponse returns the conversation bound to the session.
type StartConversationResponse struct {
	ConversationID string `json:"conversation_id"`
	SessionID      string `json:"session_id"`
	Message        string `json:"message"`
}

// LogMessageRequest captures POST /conversations/messages.
type LogMessageRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	Content        string `json:"content" validate:"max=4000"`
	Sender         string `json:"sender" validate:"omitempty,oneof=user bot"`
}

// LogMessageResponse is the result of logging one user message.
type LogMessageResponse struct {
	FlaggedKeywords    []nlp.KeywordMatch `json:"flagged_keywords"`
	ContextualResponse string             `json:"contextual_response"`
	AlertCreated       bool               `json:"alert_created"`
	AlertID            *string            `json:"alert_id,omitempty"`
	RiskScore          int                `json:"risk_score"`
	Detection          nlp.Classification `json:"bert_detection"`
}

// EndConversationRequest captures POST /conversations/end.
type EndConversationRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
}

// MessageResponse is a bare acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// GuidedStepRequest captures POST /conversations/open-up and /conversations/chat-with-me.
type GuidedStepRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	Message        string `json:"message" validate:"max=4000"`
	Step           string `json:"step" validate:"omitempty,max=64"`
}

// OpenUpResponse is the Open-Up projection of a conversation reply.
type OpenUpResponse struct {
	Response  string            `json:"response"`
	NextStep  conversation.Step `json:"next_step"`
	Options   []string          `json:"options,omitempty"`
	Completed bool              `json:"conversation_completed"`
}

// ChatWithMeResponse adds triage fields to the reply.
type ChatWithMeResponse struct {
	Response     string            `json:"response"`
	NextStep     conversation.Step `json:"next_step"`
	Options      []string          `json:"options,omitempty"`
	RiskLevel    models.RiskLevel  `json:"risk_level,omitempty"`
	AlertCreated bool              `json:"alert_created"`
	Completed    bool              `json:"conversation_completed"`
}
