package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-wellness-api/internal/dto"
	"github.com/noah-isme/sma-wellness-api/internal/middleware"
	"github.com/noah-isme/sma-wellness-api/internal/models"
	"github.com/noah-isme/sma-wellness-api/internal/service"
	appErrors "github.com/noah-isme/sma-wellness-api/pkg/errors"
	"github.com/noah-isme/sma-wellness-api/pkg/response"
)

type alertService interface {
	List(ctx context.Context, actor service.Actor, query dto.AlertListQuery) ([]dto.AlertResponse, *models.Pagination, error)
	Get(ctx context.Context, actor service.Actor, id string) (*dto.AlertResponse, error)
	Resolve(ctx context.Context, actor service.Actor, id string, req dto.ResolveAlertRequest) error
	Assign(ctx context.Context, actor service.Actor, id string, req dto.AssignAlertRequest) error
	Refer(ctx context.Context, actor service.Actor, req dto.ReferralRequest) (*dto.AlertResponse, error)
	RiskScore(ctx context.Context, actor service.Actor, userID string) (*dto.RiskScoreResponse, error)
}

// AlertHandler exposes the counselor alert queue.
type AlertHandler struct {
	service alertService
}

// NewAlertHandler constructs the handler.
func NewAlertHandler(svc alertService) *AlertHandler {
	return &AlertHandler{service: svc}
}

// List godoc
// @Summary List alerts
// @Description Counselors see unassigned alerts, their own and their students'; admins see all
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param status query string false "active, pending or resolved"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /alerts [get]
func (h *AlertHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.AlertListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid query"))
		return
	}
	alerts, pagination, err := h.service.List(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alerts, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Alert detail
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /alerts/{id} [get]
func (h *AlertHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	alert, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alert, nil)
}

// Resolve godoc
// @Summary Resolve an alert
// @Description Resolving an already resolved alert is a no-op
// @Tags Alerts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Param payload body dto.ResolveAlertRequest false "Resolution notes"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /alerts/{id}/resolve [post]
func (h *AlertHandler) Resolve(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ResolveAlertRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, bindError(err, "invalid resolve payload"))
		return
	}
	if err := h.service.Resolve(c.Request.Context(), actor, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.MessageResponse{Message: "Alert resolved"}, nil)
}

// Assign godoc
// @Summary Assign an alert
// @Description Assign to a counselor (default: the caller); moves active alerts to pending
// @Tags Alerts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Alert ID"
// @Param payload body dto.AssignAlertRequest false "Assignee"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /alerts/{id}/assign [post]
func (h *AlertHandler) Assign(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.AssignAlertRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, bindError(err, "invalid assign payload"))
		return
	}
	if err := h.service.Assign(c.Request.Context(), actor, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.MessageResponse{Message: "Alert assigned"}, nil)
}

// Referral godoc
// @Summary Manual referral
// @Description Counselor-raised alert; never deduplicated
// @Tags Alerts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ReferralRequest true "Referral"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /alerts/referrals [post]
func (h *AlertHandler) Referral(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid referral payload"))
		return
	}
	alert, err := h.service.Refer(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, alert)
}

// RiskScore godoc
// @Summary Student risk score
// @Tags Alerts
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /alerts/risk/{user_id} [get]
func (h *AlertHandler) RiskScore(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "user_id is required"))
		return
	}
	score, err := h.service.RiskScore(c.Request.Context(), actor, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score, nil)
}

// bindOptionalJSON accepts an empty body as the zero value.
func bindOptionalJSON(c *gin.Context, dest interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(dest)
}
