package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistacks/kiosk-agent/internal/middleware"
	"github.com/vistacks/kiosk-agent/internal/models"
	"github.com/vistacks/kiosk-agent/internal/utils"
	"github.com/vistacks/kiosk-agent/internal/services"
	"github.com/vistacks/kiosk-agent/pkg/validator"
	"github.com/vistacks/kiosk-agent/pkg/vms"
)

// stubAPI stands in for the backend client in handler tests.
type stubAPI struct {
	accessCodeFn func(ctx context.Context, code string) (models.Visitor, error)
	lookupFn     func(ctx context.Context, query string) (models.Visitor, error)
	guestFn      func(ctx context.Context, req vms.GuestCheckinRequest) (models.Visitor, error)
	checkoutFn   func(ctx context.Context, identifier string) (models.Visitor, error)
}

func (s *stubAPI) AccessCodeCheckin(ctx context.Context, code string) (models.Visitor, error) {
	if s.accessCodeFn == nil {
		return models.Visitor{}, nil
	}
	return s.accessCodeFn(ctx, code)
}

func (s *stubAPI) LookupVisitor(ctx context.Context, query string) (models.Visitor, error) {
	if s.lookupFn == nil {
		return models.Visitor{}, nil
	}
	return s.lookupFn(ctx, query)
}

func (s *stubAPI) GuestCheckin(ctx context.Context, req vms.GuestCheckinRequest) (models.Visitor, error) {
	if s.guestFn == nil {
		return models.Visitor{}, nil
	}
	return s.guestFn(ctx, req)
}

func (s *stubAPI) Checkout(ctx context.Context, identifier string) (models.Visitor, error) {
	if s.checkoutFn == nil {
		return models.Visitor{}, nil
	}
	return s.checkoutFn(ctx, identifier)
}

func setupKioskRouter(api services.CheckinAPI) (*gin.Engine, *services.FlowService) {
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	flow := services.NewFlowService(api, validator.NewContactValidator(), logger, 15)
	handler := NewKioskHandler(flow, logger)

	router := gin.New()
	session := router.Group("/api/v1/session")
	{
		session.GET("", handler.GetSession)
		session.POST("/option", handler.SelectOption)
		session.POST("/access-code", handler.SubmitAccessCode)
		session.POST("/lookup", handler.Lookup)
		session.POST("/confirm-profile", handler.ConfirmProfile)
		session.POST("/registration", handler.SubmitRegistration)
		session.POST("/checkout", handler.SubmitCheckout)
		session.POST("/back", handler.Back)
		session.POST("/complete", handler.Complete)
		session.POST("/clear-error", handler.ClearError)
	}
	router.GET("/api/v1/emergency-contacts", handler.EmergencyContacts)

	return router, flow
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) models.Session {
	var snap models.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	return snap
}

func TestGetSession(t *testing.T) {
	router, _ := setupKioskRouter(&stubAPI{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	snap := decodeSession(t, w)
	assert.Equal(t, models.StepHome, snap.Step)
	assert.True(t, snap.Visitor.IsZero())
}

func TestSelectOptionEndpoint(t *testing.T) {
	router, _ := setupKioskRouter(&stubAPI{})

	w := postJSON(t, router, "/api/v1/session/option", gin.H{"option": "access-code"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StepAccessCode, decodeSession(t, w).Step)

	// Missing body field fails binding.
	w = postJSON(t, router, "/api/v1/session/option", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitAccessCodeEndpoint(t *testing.T) {
	api := &stubAPI{
		accessCodeFn: func(ctx context.Context, code string) (models.Visitor, error) {
			return models.Visitor{FirstName: "Jamie", Status: models.StatusCheckedIn}, nil
		},
	}
	router, flow := setupKioskRouter(api)
	flow.SelectOption("access-code")

	w := postJSON(t, router, "/api/v1/session/access-code", gin.H{"access_code": "ABCD1234"})
	require.Equal(t, http.StatusOK, w.Code)

	snap := decodeSession(t, w)
	assert.Equal(t, models.StepConfirmation, snap.Step)
	assert.Equal(t, "Jamie", snap.Visitor.FirstName)
}

func TestSubmitAccessCodeValidation(t *testing.T) {
	router, flow := setupKioskRouter(&stubAPI{})
	flow.SelectOption("access-code")

	w := postJSON(t, router, "/api/v1/session/access-code", gin.H{"access_code": "AB"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp.Error)
}

func TestSubmitAccessCodeWrongStepEndpoint(t *testing.T) {
	router, _ := setupKioskRouter(&stubAPI{})

	// Still on home; the access-code screen is not active.
	w := postJSON(t, router, "/api/v1/session/access-code", gin.H{"access_code": "ABCD1234"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSubmitAccessCodeBackendRejection(t *testing.T) {
	api := &stubAPI{
		accessCodeFn: func(ctx context.Context, code string) (models.Visitor, error) {
			return models.Visitor{}, &vms.APIError{StatusCode: 422, Message: "Invalid access code"}
		},
	}
	router, flow := setupKioskRouter(api)
	flow.SelectOption("access-code")

	w := postJSON(t, router, "/api/v1/session/access-code", gin.H{"access_code": "WRONG123"})

	// A backend rejection is screen content, not a transport error.
	require.Equal(t, http.StatusOK, w.Code)
	snap := decodeSession(t, w)
	assert.Equal(t, models.StepAccessCode, snap.Step)
	assert.Equal(t, "Invalid access code", snap.ErrorMessage)
}

func TestLookupEndpoint(t *testing.T) {
	api := &stubAPI{
		lookupFn: func(ctx context.Context, query string) (models.Visitor, error) {
			return models.Visitor{}, vms.ErrNotFound
		},
	}
	router, flow := setupKioskRouter(api)
	flow.SelectOption("no-access-code")

	w := postJSON(t, router, "/api/v1/session/lookup", gin.H{"query": "new@example.com"})
	require.Equal(t, http.StatusOK, w.Code)

	snap := decodeSession(t, w)
	assert.Equal(t, models.StepRegistration, snap.Step)
	assert.Equal(t, "new@example.com", snap.Visitor.Email)
}

func TestRegistrationEndpointJSON(t *testing.T) {
	api := &stubAPI{
		guestFn: func(ctx context.Context, req vms.GuestCheckinRequest) (models.Visitor, error) {
			return models.Visitor{FirstName: req.FirstName, Status: models.StatusPending}, nil
		},
	}
	router, flow := setupKioskRouter(api)
	flow.SelectOption("no-access-code")
	flow.SubmitEmailOrPhone(context.Background(), "new@example.com")

	w := postJSON(t, router, "/api/v1/session/registration", gin.H{
		"first_name": "Jamie",
		"email":      "new@example.com",
		"purpose":    "meeting",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StepConfirmation, decodeSession(t, w).Step)
}

func TestCheckoutEndpoint(t *testing.T) {
	api := &stubAPI{
		checkoutFn: func(ctx context.Context, identifier string) (models.Visitor, error) {
			return models.Visitor{FirstName: "Jamie", Status: models.StatusCheckedOut}, nil
		},
	}
	router, flow := setupKioskRouter(api)
	flow.SelectOption("checkout")

	w := postJSON(t, router, "/api/v1/session/checkout", gin.H{"identifier": "jamie@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StepCheckoutConfirmation, decodeSession(t, w).Step)
}

func TestBackAndCompleteEndpoints(t *testing.T) {
	router, flow := setupKioskRouter(&stubAPI{})
	flow.SelectOption("access-code")

	w := postJSON(t, router, "/api/v1/session/back", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StepHome, decodeSession(t, w).Step)

	flow.SelectOption("emergency")
	w = postJSON(t, router, "/api/v1/session/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StepHome, decodeSession(t, w).Step)
}

func TestEmergencyContactsEndpoint(t *testing.T) {
	router, _ := setupKioskRouter(&stubAPI{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/emergency-contacts", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Contacts []models.EmergencyContact `json:"contacts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Contacts, 3)
	assert.Equal(t, "911", resp.Contacts[0].Number)
}

func TestAdminResetRequiresPIN(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	flow := services.NewFlowService(&stubAPI{}, validator.NewContactValidator(), logger, 15)
	scanner := services.NewScanService(nil, nil, nil, flow, logger, 0, 0)
	admin := NewAdminHandler(flow, scanner, vms.NewClient(vms.Config{BaseURL: "http://127.0.0.1:1"}, logger), logger)

	hash, err := utils.HashAdminPIN("4321")
	require.NoError(t, err)

	router := gin.New()
	group := router.Group("/api/v1/admin")
	group.Use(middleware.RequireAdminPIN(hash))
	group.POST("/reset", admin.Reset)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reset", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/reset", nil)
	req.Header.Set("X-Admin-Pin", "0000")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/reset", nil)
	req.Header.Set("X-Admin-Pin", "4321")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
