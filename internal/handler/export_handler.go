package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-wellness-api/internal/dto"
	"github.com/noah-isme/sma-wellness-api/internal/models"
	"github.com/noah-isme/sma-wellness-api/internal/service"
	appErrors "github.com/noah-isme/sma-wellness-api/pkg/errors"
	"github.com/noah-isme/sma-wellness-api/pkg/response"
)

type exportService interface {
	Create(ctx context.Context, actor service.Actor, req dto.AlertExportRequest) (*dto.AlertExportResponse, error)
	Status(ctx context.Context, actor service.Actor, id string) (*dto.AlertExportResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ExportHandler exposes asynchronous alert exports.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler. A nil service answers 503.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Create godoc
// @Summary Queue an alert export
// @Tags Exports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.AlertExportRequest true "Export"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /alerts/exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrServiceDisabled)
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.AlertExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid export payload"))
		return
	}
	res, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, res)
}

// Status godoc
// @Summary Alert export status
// @Tags Exports
// @Produce json
// @Security BearerAuth
// @Param id path string true "Export ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /alerts/exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrServiceDisabled)
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	res, err := h.service.Status(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Download godoc
// @Summary Download a finished alert export
// @Description The signed token is the credential; no bearer token is needed
// @Tags Exports
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /alerts/exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrServiceDisabled)
		return
	}
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	download, err := h.service.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to stat export"))
		return
	}
	contentType := "text/csv"
	if download.Format == models.ExportFormatPDF {
		contentType = "application/pdf"
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.DataFromReader(http.StatusOK, info.Size(), contentType, download.File, nil)
}
