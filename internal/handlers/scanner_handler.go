package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vistacks/kiosk-agent/internal/models"
	"github.com/vistacks/kiosk-agent/internal/services"
)

// ScannerHandler exposes the scan pipeline to the touchscreen front-end.
type ScannerHandler struct {
	scanner *services.ScanService
	logger  *logrus.Logger
}

// NewScannerHandler creates a new scanner handler
func NewScannerHandler(scanner *services.ScanService, logger *logrus.Logger) *ScannerHandler {
	return &ScannerHandler{
		scanner: scanner,
		logger:  logger,
	}
}

// StartScanRequest represents a request to start a scan episode
type StartScanRequest struct {
	Mode models.ScanMode `json:"mode" binding:"required"`
}

// DecodeRequest represents a raw decode event from push-style scanner
// hardware attached to the terminal.
type DecodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// Start handles POST /api/v1/scanner/start
func (h *ScannerHandler) Start(c *gin.Context) {
	var req StartScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	err := h.scanner.Start(req.Mode)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, h.scanner.Snapshot())
	case errors.Is(err, services.ErrInvalidScanMode):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_mode",
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrScanActive):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "scan_in_progress",
			Message: err.Error(),
		})
	default:
		// Device failures land in the snapshot's error state; the screen
		// offers a retry.
		c.JSON(http.StatusOK, h.scanner.Snapshot())
	}
}

// Stop handles POST /api/v1/scanner/stop
func (h *ScannerHandler) Stop(c *gin.Context) {
	h.scanner.Stop()
	c.JSON(http.StatusOK, h.scanner.Snapshot())
}

// Decode handles POST /api/v1/scanner/decode. Accepted is false when the
// event was suppressed by the debounce window or the processing guard.
func (h *ScannerHandler) Decode(c *gin.Context) {
	var req DecodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	accepted := h.scanner.OnDecode(req.Code)
	c.JSON(http.StatusOK, gin.H{
		"accepted": accepted,
		"scanner":  h.scanner.Snapshot(),
	})
}

// State handles GET /api/v1/scanner/state
func (h *ScannerHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.scanner.Snapshot())
}
