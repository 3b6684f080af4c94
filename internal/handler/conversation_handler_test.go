package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-wellness-api/internal/conversation"
	"github.com/noah-isme/sma-wellness-api/internal/dto"
	appErrors "github.com/noah-isme/sma-wellness-api/pkg/errors"
)

type fakeConversationService struct {
	userID     string
	logReq     dto.LogMessageRequest
	logResp    *dto.LogMessageResponse
	chatResp   *dto.ChatWithMeResponse
	err        error
	endedFor   string
	openUpStep string
}

func (f *fakeConversationService) Start(ctx context.Context, userID string, req dto.StartConversationRequest) (*dto.StartConversationResponse, error) {
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	return &dto.StartConversationResponse{ConversationID: "conv-1", SessionID: "s-1", Message: "Conversation started"}, nil
}

func (f *fakeConversationService) LogMessage(ctx context.Context, userID string, req dto.LogMessageRequest) (*dto.LogMessageResponse, error) {
	f.userID = userID
	f.logReq = req
	return f.logResp, f.err
}

func (f *fakeConversationService) End(ctx context.Context, userID string, req dto.EndConversationRequest) error {
	f.endedFor = req.ConversationID
	return f.err
}

func (f *fakeConversationService) OpenUp(ctx context.Context, userID string, req dto.GuidedStepRequest) (*dto.OpenUpResponse, error) {
	f.openUpStep = req.Step
	if f.err != nil {
		return nil, f.err
	}
	return &dto.OpenUpResponse{Response: "hi", NextStep: conversation.StepWaitingForActivityChoice}, nil
}

func (f *fakeConversationService) ChatWithMe(ctx context.Context, userID string, req dto.GuidedStepRequest) (*dto.ChatWithMeResponse, error) {
	return f.chatResp, f.err
}

func TestConversationHandlerRequiresCaller(t *testing.T) {
	h := NewConversationHandler(&fakeConversationService{})
	c, rec := newTestContext(http.MethodPost, "/conversations/start", map[string]string{"conversation_type": "general"}, nil)

	h.Start(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConversationHandlerStartUsesCaller(t *testing.T) {
	svc := &fakeConversationService{}
	h := NewConversationHandler(svc)
	c, rec := newTestContext(http.MethodPost, "/conversations/start", map[string]string{"conversation_type": "general"}, studentClaims)

	h.Start(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s1", svc.userID)

	var res dto.StartConversationResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &res))
	assert.Equal(t, "conv-1", res.ConversationID)
}

func TestConversationHandlerLogMessage(t *testing.T) {
	alertID := "alert-1"
	svc := &fakeConversationService{logResp: &dto.LogMessageResponse{AlertCreated: true, AlertID: &alertID, RiskScore: 4, ContextualResponse: "You matter."}}
	h := NewConversationHandler(svc)
	c, rec := newTestContext(http.MethodPost, "/conversations/messages", map[string]string{"conversation_id": "conv-1", "content": "hello"}, studentClaims)

	h.LogMessage(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "conv-1", svc.logReq.ConversationID)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &body))
	assert.Equal(t, true, body["alert_created"])
	assert.Equal(t, "alert-1", body["alert_id"])
	assert.EqualValues(t, 4, body["risk_score"])
}

func TestConversationHandlerMapsServiceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", appErrors.Clone(appErrors.ErrNotFound, "conversation not found"), http.StatusNotFound},
		{"forbidden", appErrors.ErrForbidden, http.StatusForbidden},
		{"validation", appErrors.ErrValidation, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewConversationHandler(&fakeConversationService{err: tc.err})
			c, rec := newTestContext(http.MethodPost, "/conversations/end", map[string]string{"conversation_id": "conv-1"}, studentClaims)
			h.End(c)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestConversationHandlerRejectsMalformedJSON(t *testing.T) {
	h := NewConversationHandler(&fakeConversationService{})
	c, rec := newTestContext(http.MethodPost, "/conversations/open-up", "{not json", studentClaims)

	h.OpenUp(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, rec).Error.Code)
}

func TestConversationHandlerChatWithMe(t *testing.T) {
	svc := &fakeConversationService{chatResp: &dto.ChatWithMeResponse{Response: "I'm here.", NextStep: conversation.StepHighRiskEscalation, RiskLevel: "high", AlertCreated: true}}
	h := NewConversationHandler(svc)
	c, rec := newTestContext(http.MethodPost, "/conversations/chat-with-me", map[string]string{"conversation_id": "conv-1", "step": "intent_detection", "message": "..."}, studentClaims)

	h.ChatWithMe(c)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &body))
	assert.Equal(t, "high_risk_escalation", body["next_step"])
	assert.Equal(t, "high", body["risk_level"])
	assert.Equal(t, true, body["alert_created"])
	assert.Equal(t, false, body["conversation_completed"])
}
