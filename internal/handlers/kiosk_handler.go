package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vistacks/kiosk-agent/internal/models"
	"github.com/vistacks/kiosk-agent/internal/services"
	"github.com/vistacks/kiosk-agent/pkg/validator"
	"github.com/vistacks/kiosk-agent/pkg/vms"
)

// maxAttachmentBytes caps a single uploaded file (photo, document, signature)
const maxAttachmentBytes = 8 << 20

// KioskHandler exposes the flow controller to the touchscreen front-end.
// Every action returns the resulting session snapshot so the UI can render
// without a follow-up request.
type KioskHandler struct {
	flow   *services.FlowService
	logger *logrus.Logger
}

// NewKioskHandler creates a new kiosk handler
func NewKioskHandler(flow *services.FlowService, logger *logrus.Logger) *KioskHandler {
	return &KioskHandler{
		flow:   flow,
		logger: logger,
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SelectOptionRequest represents a home-screen choice
type SelectOptionRequest struct {
	Option string `json:"option" binding:"required"`
}

// AccessCodeRequest represents an access code submission
type AccessCodeRequest struct {
	AccessCode string `json:"access_code" binding:"required"`
}

// LookupRequest represents an email-or-phone lookup submission
type LookupRequest struct {
	Query string `json:"query" binding:"required"`
}

// CheckoutRequest represents a checkout submission
type CheckoutRequest struct {
	Identifier string `json:"identifier" binding:"required"`
}

// GetSession handles GET /api/v1/session
func (h *KioskHandler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.flow.Snapshot())
}

// SelectOption handles POST /api/v1/session/option
func (h *KioskHandler) SelectOption(c *gin.Context) {
	var req SelectOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	h.flow.SelectOption(req.Option)
	c.JSON(http.StatusOK, h.flow.Snapshot())
}

// SubmitAccessCode handles POST /api/v1/session/access-code
func (h *KioskHandler) SubmitAccessCode(c *gin.Context) {
	var req AccessCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	h.respond(c, h.flow.SubmitAccessCode(c.Request.Context(), req.AccessCode))
}

// Lookup handles POST /api/v1/session/lookup
func (h *KioskHandler) Lookup(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	h.respond(c, h.flow.SubmitEmailOrPhone(c.Request.Context(), req.Query))
}

// ConfirmProfile handles POST /api/v1/session/confirm-profile
func (h *KioskHandler) ConfirmProfile(c *gin.Context) {
	h.respond(c, h.flow.ConfirmProfile(c.Request.Context()))
}

// SubmitRegistration handles POST /api/v1/session/registration. The screen
// submits multipart/form-data when the visitor captured a photo or signed;
// plain JSON otherwise.
func (h *KioskHandler) SubmitRegistration(c *gin.Context) {
	var form services.RegistrationForm

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		form.FirstName = c.PostForm("first_name")
		form.LastName = c.PostForm("last_name")
		form.Email = c.PostForm("email")
		form.Phone = c.PostForm("phone")
		form.Purpose = c.PostForm("purpose")
		if hostID := c.PostForm("host_id"); hostID != "" {
			id, err := strconv.Atoi(hostID)
			if err != nil {
				c.JSON(http.StatusBadRequest, ErrorResponse{
					Error:   "validation_error",
					Message: "host_id must be a number",
				})
				return
			}
			form.HostID = id
		}

		for field, dest := range map[string]**vms.Attachment{
			"image":     &form.Image,
			"document":  &form.Document,
			"signature": &form.Signature,
		} {
			att, err := formAttachment(c, field)
			if err != nil {
				c.JSON(http.StatusBadRequest, ErrorResponse{
					Error:   "invalid_attachment",
					Message: err.Error(),
				})
				return
			}
			*dest = att
		}
	} else if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	h.respond(c, h.flow.SubmitRegistration(c.Request.Context(), form))
}

// SubmitCheckout handles POST /api/v1/session/checkout
func (h *KioskHandler) SubmitCheckout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	h.respond(c, h.flow.SubmitCheckout(c.Request.Context(), req.Identifier))
}

// Back handles POST /api/v1/session/back
func (h *KioskHandler) Back(c *gin.Context) {
	h.flow.GoBack()
	c.JSON(http.StatusOK, h.flow.Snapshot())
}

// Complete handles POST /api/v1/session/complete
func (h *KioskHandler) Complete(c *gin.Context) {
	h.flow.Complete()
	c.JSON(http.StatusOK, h.flow.Snapshot())
}

// ClearError handles POST /api/v1/session/clear-error, called when the
// visitor edits an input again after a rejection.
func (h *KioskHandler) ClearError(c *gin.Context) {
	h.flow.ClearError()
	c.JSON(http.StatusOK, h.flow.Snapshot())
}

// EmergencyContacts handles GET /api/v1/emergency-contacts
func (h *KioskHandler) EmergencyContacts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"contacts": models.DefaultEmergencyContacts(),
	})
}

// respond maps a flow-controller error to the HTTP response. Local
// validation fails the request with 400, a concurrency conflict with 409; a
// backend rejection is not an HTTP error here, the snapshot already carries
// the user-facing message for the screen to display.
func (h *KioskHandler) respond(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, h.flow.Snapshot())
	case errors.Is(err, services.ErrBusy):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "request_in_progress",
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrInvalidStep):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "invalid_step",
			Message: err.Error(),
		})
	case isValidationError(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusOK, h.flow.Snapshot())
	}
}

// isValidationError reports whether err is a local input rejection rather
// than a backend or transport failure.
func isValidationError(err error) bool {
	for _, candidate := range []error{
		services.ErrAccessCodeTooShort,
		services.ErrIdentifierTooShort,
		services.ErrNameRequired,
		services.ErrContactRequired,
		validator.ErrEmptyContact,
		validator.ErrInvalidEmail,
		validator.ErrInvalidPhone,
	} {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

// formAttachment reads one optional uploaded file from a multipart form.
func formAttachment(c *gin.Context, field string) (*vms.Attachment, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	if header.Size > maxAttachmentBytes {
		return nil, errors.New(field + " exceeds the maximum upload size")
	}

	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxAttachmentBytes))
	if err != nil {
		return nil, err
	}

	return &vms.Attachment{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}
