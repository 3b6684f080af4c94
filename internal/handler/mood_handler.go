package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-wellness-api/internal/dto"
	"github.com/noah-isme/sma-wellness-api/internal/models"
	"github.com/noah-isme/sma-wellness-api/pkg/response"
)

type moodService interface {
	Checkin(ctx context.Context, userID string, req dto.MoodCheckinRequest) (*dto.MoodCheckinResponse, error)
	History(ctx context.Context, userID string, query dto.MoodHistoryQuery) ([]models.MoodEntry, error)
	Today(ctx context.Context, userID string) (*models.MoodEntry, error)
}

// MoodHandler exposes daily mood check-ins.
type MoodHandler struct {
	service moodService
}

// NewMoodHandler constructs the handler.
func NewMoodHandler(svc moodService) *MoodHandler {
	return &MoodHandler{service: svc}
}

// Checkin godoc
// @Summary Record today's mood
// @Description Upsert today's check-in; may raise pattern, survey distress or risk alerts
// @Tags Moods
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.MoodCheckinRequest true "Check-in"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /moods [post]
func (h *MoodHandler) Checkin(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.MoodCheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid check-in payload"))
		return
	}
	res, err := h.service.Checkin(c.Request.Context(), actor.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// History godoc
// @Summary Mood history
// @Tags Moods
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max entries (1-90)"
// @Success 200 {object} response.Envelope
// @Router /moods [get]
func (h *MoodHandler) History(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.MoodHistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid query"))
		return
	}
	entries, err := h.service.History(c.Request.Context(), actor.UserID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	if entries == nil {
		entries = []models.MoodEntry{}
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Today godoc
// @Summary Today's check-in
// @Tags Moods
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /moods/today [get]
func (h *MoodHandler) Today(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	entry, err := h.service.Today(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}
