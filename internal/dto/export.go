package dto

import "github.com/noah-isme/sma-wellness-api/internal/models"

// AlertExportRequest captures POST /alerts/exports.
type AlertExportRequest struct {
	Format models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
	Status string              `json:"status" validate:"omitempty,oneof=active pending resolved"`
}

// AlertExportResponse exposes export job progress.
type AlertExportResponse struct {
	ID          string              `json:"id"`
	Status      models.ExportStatus `json:"status"`
	DownloadURL *string             `json:"download_url,omitempty"`
	Error       *string             `json:"error,omitempty"`
}
