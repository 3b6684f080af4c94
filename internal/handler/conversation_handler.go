package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-wellness-api/internal/dto"
	"github.com/noah-isme/sma-wellness-api/internal/middleware"
	"github.com/noah-isme/sma-wellness-api/pkg/response"
)

type conversationService interface {
	Start(ctx context.Context, userID string, req dto.StartConversationRequest) (*dto.StartConversationResponse, error)
	LogMessage(ctx context.Context, userID string, req dto.LogMessageRequest) (*dto.LogMessageResponse, error)
	End(ctx context.Context, userID string, req dto.EndConversationRequest) error
	OpenUp(ctx context.Context, userID string, req dto.GuidedStepRequest) (*dto.OpenUpResponse, error)
	ChatWithMe(ctx context.Context, userID string, req dto.GuidedStepRequest) (*dto.ChatWithMeResponse, error)
}

// ConversationHandler exposes the student-facing conversation endpoints.
type ConversationHandler struct {
	service conversationService
}

// NewConversationHandler constructs the handler.
func NewConversationHandler(svc conversationService) *ConversationHandler {
	return &ConversationHandler{service: svc}
}

// Start godoc
// @Summary Start a conversation
// @Description Bind a session to the caller; an empty session_id gets a server-generated one
// @Tags Conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.StartConversationRequest true "Conversation"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /conversations/start [post]
func (h *ConversationHandler) Start(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid conversation payload"))
		return
	}
	res, err := h.service.Start(c.Request.Context(), actor.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// LogMessage godoc
// @Summary Log a message
// @Description Classify one message, flag keywords and possibly raise an alert. The text is not stored.
// @Tags Conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.LogMessageRequest true "Message"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /conversations/messages [post]
func (h *ConversationHandler) LogMessage(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.LogMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid message payload"))
		return
	}
	res, err := h.service.LogMessage(c.Request.Context(), actor.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil, middleware.ExtractMeta(c))
}

// End godoc
// @Summary End a conversation
// @Tags Conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.EndConversationRequest true "Conversation"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /conversations/end [post]
func (h *ConversationHandler) End(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.EndConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid conversation payload"))
		return
	}
	if err := h.service.End(c.Request.Context(), actor.UserID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.MessageResponse{Message: "Conversation ended"}, nil)
}

// OpenUp godoc
// @Summary Open-Up guided flow
// @Description Advance the mood-driven wellness activity flow by one step
// @Tags Conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GuidedStepRequest true "Step"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /conversations/open-up [post]
func (h *ConversationHandler) OpenUp(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.GuidedStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid conversation step"))
		return
	}
	res, err := h.service.OpenUp(c.Request.Context(), actor.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// ChatWithMe godoc
// @Summary Chat-With-Me guided flow
// @Description Advance the risk-triaged chat flow by one step
// @Tags Conversations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.GuidedStepRequest true "Step"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /conversations/chat-with-me [post]
func (h *ConversationHandler) ChatWithMe(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.GuidedStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid conversation step"))
		return
	}
	res, err := h.service.ChatWithMe(c.Request.Context(), actor.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
