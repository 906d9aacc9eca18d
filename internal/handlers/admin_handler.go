package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vistacks/kiosk-agent/internal/services"
	"github.com/vistacks/kiosk-agent/pkg/vms"
)

// AdminHandler handles staff maintenance actions on the terminal. All of its
// routes sit behind the admin PIN middleware.
type AdminHandler struct {
	flow    *services.FlowService
	scanner *services.ScanService
	client  *vms.Client
	logger  *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(flow *services.FlowService, scanner *services.ScanService, client *vms.Client, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		flow:    flow,
		scanner: scanner,
		client:  client,
		logger:  logger,
	}
}

// Reset handles POST /api/v1/admin/reset. It abandons whatever journey is in
// progress and returns the kiosk to the home screen with the scanner idle.
func (h *AdminHandler) Reset(c *gin.Context) {
	h.scanner.Stop()
	h.flow.Complete()

	h.logger.WithField("ip", c.ClientIP()).Info("Terminal reset by staff")

	c.JSON(http.StatusOK, gin.H{
		"message": "Terminal reset",
		"session": h.flow.Snapshot(),
		"scanner": h.scanner.Snapshot(),
	})
}

// Status handles GET /api/v1/admin/status, a staff view of the terminal's
// backend connectivity and current state.
func (h *AdminHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"terminal_id":   h.client.TerminalID(),
		"authenticated": h.client.TokenValid(),
		"session":       h.flow.Snapshot(),
		"scanner":       h.scanner.Snapshot(),
		"timestamp":     time.Now().Unix(),
	})
}
