package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/healthlens/healthlens/internal/blob"
	"github.com/healthlens/healthlens/internal/pdf"
	"github.com/healthlens/healthlens/internal/service"
	"github.com/healthlens/healthlens/pkg/model"
	"go.uber.org/zap"
)

// ExportHandler serves shareable summaries, PDF reports and stored scan
// images.
type ExportHandler struct {
	app       *service.App
	generator *pdf.Generator
	objects   blob.ObjectStorage
	logger    *zap.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(app *service.App, generator *pdf.Generator, objects blob.ObjectStorage, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{
		app:       app,
		generator: generator,
		objects:   objects,
		logger:    logger,
	}
}

// GetSummary returns the shareable plain-text summary of a saved record.
func (h *ExportHandler) GetSummary(c *gin.Context) {
	rec, ok := h.findRecord(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "Record not found",
		})
		return
	}

	summary := service.FormatSummary(rec)
	if summary == "" {
		c.JSON(http.StatusConflict, ErrorResponse{
			Code:    "NO_MEDICATION",
			Message: "Record has no identified medication to summarize",
		})
		return
	}

	c.String(http.StatusOK, summary)
}

// GetExport renders a saved record as a PDF report. The report is also
// uploaded to object storage so it can be fetched again later; upload
// failure does not fail the download.
func (h *ExportHandler) GetExport(c *gin.Context) {
	rec, ok := h.findRecord(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "Record not found",
		})
		return
	}

	report, err := h.generator.Generate(rec)
	if err != nil {
		h.logger.Error("failed to generate report", zap.Error(err), zap.String("record_id", rec.ID))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to generate report",
			Details: stringPtr(err.Error()),
		})
		return
	}

	name := fmt.Sprintf("report-%s.pdf", rec.ID)
	if url, err := h.objects.UploadPDF(c.Request.Context(), name, report); err != nil {
		h.logger.Warn("failed to store report copy", zap.Error(err), zap.String("record_id", rec.ID))
	} else {
		c.Header("X-Report-URL", url)
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "application/pdf", report)
}

// GetImage streams a stored scan image back to the client. Images live
// under the scans/ prefix in object storage.
func (h *ExportHandler) GetImage(c *gin.Context) {
	data, contentType, err := h.objects.DownloadImage(c.Request.Context(), "scans/"+c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "Image not found",
		})
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, data)
}

func (h *ExportHandler) findRecord(id string) (*model.SavedMedication, bool) {
	for _, r := range h.app.List() {
		if r.ID == id {
			found := r
			return &found, true
		}
	}
	return nil, false
}
