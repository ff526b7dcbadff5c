package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/healthlens/healthlens/internal/service"
	"github.com/healthlens/healthlens/pkg/model"
	"go.uber.org/zap"
)

// maxImageBytes caps uploaded scan images.
const maxImageBytes = 10 << 20

// AppHandler exposes the scan, record and state endpoints.
type AppHandler struct {
	app    *service.App
	logger *zap.Logger
}

// NewAppHandler creates a new AppHandler
func NewAppHandler(app *service.App, logger *zap.Logger) *AppHandler {
	return &AppHandler{
		app:    app,
		logger: logger,
	}
}

// PostScan accepts a captured label image as multipart form data, runs the
// analysis pipeline and returns the resulting state.
func (h *AppHandler) PostScan(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Missing image file",
			Details: stringPtr(err.Error()),
		})
		return
	}
	defer file.Close()

	if header.Size > maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Code:    "IMAGE_TOO_LARGE",
			Message: "Image exceeds the maximum allowed size",
		})
		return
	}

	image, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		h.logger.Error("failed to read uploaded image", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Failed to read image",
		})
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Uploaded file is not an image",
		})
		return
	}

	device := deviceFromUserAgent(c.Request.UserAgent())
	state := h.app.StartScan(c.Request.Context(), image, mimeType, device)

	if state.Status == model.StatusError {
		c.JSON(http.StatusBadGateway, gin.H{"analysis": state})
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": state})
}

// GetState returns the current application state snapshot.
func (h *AppHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.app.Snapshot())
}

// PostReset discards the current analysis and returns home.
func (h *AppHandler) PostReset(c *gin.Context) {
	h.app.Reset()
	c.JSON(http.StatusOK, h.app.Snapshot())
}

// PutView navigates to the requested view.
func (h *AppHandler) PutView(c *gin.Context) {
	var req struct {
		View model.View `json:"view"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}
	if err := h.app.Navigate(req.View); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, h.app.Snapshot())
}

// PostRecord saves the active analysis as a medication record.
func (h *AppHandler) PostRecord(c *gin.Context) {
	rec, duplicate, err := h.app.Save(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNothingToSave) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Code:    "NOTHING_TO_SAVE",
				Message: "No completed analysis to save",
			})
			return
		}
		h.logger.Error("failed to save record", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to save record",
			Details: stringPtr(err.Error()),
		})
		return
	}

	status := http.StatusCreated
	if duplicate {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"record": rec, "duplicate": duplicate})
}

// GetRecords lists saved records, newest first.
func (h *AppHandler) GetRecords(c *gin.Context) {
	records := h.app.List()
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// PostRecordSelect makes a saved record the active context.
func (h *AppHandler) PostRecordSelect(c *gin.Context) {
	rec, err := h.app.SelectSaved(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": rec})
}

// DeleteRecord removes one saved record.
func (h *AppHandler) DeleteRecord(c *gin.Context) {
	if err := h.app.DeleteSaved(c.Request.Context(), c.Param("id")); err != nil {
		h.logger.Error("failed to delete record", zap.Error(err), zap.String("record_id", c.Param("id")))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to delete record",
			Details: stringPtr(err.Error()),
		})
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteAllData erases every saved record locally and remotely. The client
// must pass confirm=true; anything else is rejected before any data moves.
func (h *AppHandler) DeleteAllData(c *gin.Context) {
	confirmed := c.Query("confirm") == "true"
	if err := h.app.ClearAll(c.Request.Context(), confirmed); err != nil {
		if errors.Is(err, service.ErrConfirmationRequired) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "CONFIRMATION_REQUIRED",
				Message: "Pass confirm=true to erase all data",
			})
			return
		}
		h.logger.Error("failed to clear data", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to clear data",
			Details: stringPtr(err.Error()),
		})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetTheme returns the persisted theme preference.
func (h *AppHandler) GetTheme(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"theme": h.app.Theme()})
}

// PutTheme persists the theme preference.
func (h *AppHandler) PutTheme(c *gin.Context) {
	var req struct {
		Theme model.Theme `json:"theme"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}
	if err := h.app.SetTheme(req.Theme); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": req.Theme})
}

// deviceFromUserAgent classifies the scanning device from the request agent.
func deviceFromUserAgent(ua string) model.DeviceType {
	if strings.Contains(ua, "Mobi") || strings.Contains(ua, "Android") || strings.Contains(ua, "iPhone") {
		return model.DeviceMobile
	}
	return model.DeviceWeb
}
