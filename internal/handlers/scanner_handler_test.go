package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistacks/kiosk-agent/internal/models"
	"github.com/vistacks/kiosk-agent/internal/services"
	"github.com/vistacks/kiosk-agent/pkg/validator"
)

func setupScannerRouter() (*gin.Engine, *services.ScanService, *services.FlowService) {
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	flow := services.NewFlowService(&stubAPI{}, validator.NewContactValidator(), logger, 15)
	scanner := services.NewScanService(nil, nil, &stubAPI{}, flow, logger, 2*time.Second, time.Hour)
	handler := NewScannerHandler(scanner, logger)

	router := gin.New()
	group := router.Group("/api/v1/scanner")
	{
		group.GET("/state", handler.State)
		group.POST("/start", handler.Start)
		group.POST("/stop", handler.Stop)
		group.POST("/decode", handler.Decode)
	}
	return router, scanner, flow
}

func decodeScanSession(t *testing.T, w *httptest.ResponseRecorder) models.ScanSession {
	var snap models.ScanSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	return snap
}

func TestScannerState(t *testing.T) {
	router, _, _ := setupScannerRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scanner/state", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ScanIdle, decodeScanSession(t, w).State)
}

func TestScannerStartSimulated(t *testing.T) {
	router, scanner, _ := setupScannerRouter()
	defer scanner.Stop()

	w := postJSON(t, router, "/api/v1/scanner/start", gin.H{"mode": "face"})
	require.Equal(t, http.StatusOK, w.Code)

	snap := decodeScanSession(t, w)
	assert.Equal(t, models.ScanModeFace, snap.Mode)
	assert.True(t, snap.IsScanning)

	// A second start while the episode runs is a conflict.
	w = postJSON(t, router, "/api/v1/scanner/start", gin.H{"mode": "face"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestScannerStartInvalidMode(t *testing.T) {
	router, _, _ := setupScannerRouter()

	w := postJSON(t, router, "/api/v1/scanner/start", gin.H{"mode": "iris"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScannerStop(t *testing.T) {
	router, _, _ := setupScannerRouter()

	postJSON(t, router, "/api/v1/scanner/start", gin.H{"mode": "fingerprint"})
	w := postJSON(t, router, "/api/v1/scanner/stop", nil)

	require.Equal(t, http.StatusOK, w.Code)
	snap := decodeScanSession(t, w)
	assert.Equal(t, models.ScanIdle, snap.State)
	assert.False(t, snap.IsScanning)
}

func TestScannerDecodeWithoutEpisode(t *testing.T) {
	router, _, _ := setupScannerRouter()

	w := postJSON(t, router, "/api/v1/scanner/decode", gin.H{"code": "QR-TOKEN"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Accepted bool `json:"accepted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Accepted, "no episode is running")
}

func TestScannerDecodeAccepted(t *testing.T) {
	router, scanner, flow := setupScannerRouter()
	flow.SelectOption("scanner")
	require.NoError(t, scanner.Start(models.ScanModeFace))
	defer scanner.Stop()

	w := postJSON(t, router, "/api/v1/scanner/decode", gin.H{"code": "QR-TOKEN"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Accepted bool               `json:"accepted"`
		Scanner  models.ScanSession `json:"scanner"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Accepted)
}
