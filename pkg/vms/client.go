// Package vms is the HTTP client for the Vistacks visitor-management
// backend. It owns the terminal's bearer token and normalizes the backend's
// wire payloads into models.Visitor before they reach session state.
package vms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/vistacks/kiosk-agent/internal/models"
)

var (
	// ErrNotFound indicates the backend has no record for the query
	ErrNotFound = fmt.Errorf("record not found")

	// ErrSessionExpired indicates the bearer token was rejected (401)
	ErrSessionExpired = fmt.Errorf("terminal session expired")

	// ErrNotAuthenticated indicates no login has succeeded yet
	ErrNotAuthenticated = fmt.Errorf("terminal is not authenticated")
)

// APIError is a rejection returned by the backend with a user-facing
// message. The message is surfaced verbatim on the kiosk screen.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend rejected request (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("backend rejected request (%d): %s", e.StatusCode, e.Message)
}

// Config holds configuration for the backend client
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	TerminalID int
}

// Client talks to the visitor-management backend on behalf of one terminal.
type Client struct {
	baseURL    string
	terminalID int
	client     *http.Client
	logger     *logrus.Logger

	// Token management
	token       string
	tokenMutex  sync.RWMutex
	tokenExpiry time.Time
}

// NewClient creates a new backend client
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		terminalID: cfg.TerminalID,
		logger:     logger,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// TerminalID returns the terminal id this client was configured with.
func (c *Client) TerminalID() int {
	return c.terminalID
}

// loginRequest represents the terminal login request structure
type loginRequest struct {
	TerminalID int    `json:"terminal_id"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

// loginResponse represents the terminal login response structure
type loginResponse struct {
	AccessToken string          `json:"access_token"`
	User        json.RawMessage `json:"user"`
	Message     string          `json:"message"`
}

// Login authenticates the terminal and stores the bearer token for
// subsequent calls. The token's expiry is read from its claims (unverified;
// the backend owns the signature) so the caller can re-login proactively.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(loginRequest{
		TerminalID: c.terminalID,
		Email:      email,
		Password:   password,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal login request: %w", err)
	}

	resp, err := c.doJSON(ctx, http.MethodPost, "/auth/login", body, false)
	if err != nil {
		return err
	}

	var loginResp loginResponse
	if err := json.Unmarshal(resp, &loginResp); err != nil {
		return fmt.Errorf("failed to parse login response: %w", err)
	}
	if loginResp.AccessToken == "" {
		return fmt.Errorf("login response contained no access token")
	}

	expiry := tokenExpiry(loginResp.AccessToken)

	c.tokenMutex.Lock()
	c.token = loginResp.AccessToken
	c.tokenExpiry = expiry
	c.tokenMutex.Unlock()

	c.logger.WithFields(logrus.Fields{
		"terminal_id":  c.terminalID,
		"token_expiry": expiry,
	}).Info("Terminal authenticated with backend")

	return nil
}

// TokenValid reports whether a usable bearer token is held.
func (c *Client) TokenValid() bool {
	c.tokenMutex.RLock()
	defer c.tokenMutex.RUnlock()
	if c.token == "" {
		return false
	}
	if c.tokenExpiry.IsZero() {
		return true
	}
	return time.Now().Before(c.tokenExpiry.Add(-30 * time.Second))
}

// tokenExpiry reads the exp claim from a JWT without verifying the
// signature. A token without a readable expiry yields the zero time.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// VerifyOrganization resolves an organization code. Returns ErrNotFound for
// unknown or expired codes.
func (c *Client) VerifyOrganization(ctx context.Context, code string) (models.Organization, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/organization/verify/"+url.PathEscape(code), nil, false)
	if err != nil {
		return models.Organization{}, err
	}

	// The backend wraps the payload in a data envelope on some versions.
	var envelope struct {
		Data *models.Organization `json:"data"`
	}
	if err := json.Unmarshal(resp, &envelope); err == nil && envelope.Data != nil {
		return *envelope.Data, nil
	}

	var org models.Organization
	if err := json.Unmarshal(resp, &org); err != nil {
		return models.Organization{}, fmt.Errorf("failed to parse organization response: %w", err)
	}
	return org, nil
}

// accessCodeCheckinRequest represents the access code check-in request
type accessCodeCheckinRequest struct {
	AccessCode    string `json:"access_code"`
	CheckinMethod string `json:"checkin_method"`
	TerminalID    int    `json:"terminal_id"`
}

// AccessCodeCheckin checks a visitor in by access code. A backend rejection
// comes back as *APIError carrying the backend's message.
func (c *Client) AccessCodeCheckin(ctx context.Context, code string) (models.Visitor, error) {
	body, err := json.Marshal(accessCodeCheckinRequest{
		AccessCode:    code,
		CheckinMethod: "access_code",
		TerminalID:    c.terminalID,
	})
	if err != nil {
		return models.Visitor{}, fmt.Errorf("failed to marshal check-in request: %w", err)
	}

	resp, err := c.doJSON(ctx, http.MethodPost, "/checkin", body, true)
	if err != nil {
		return models.Visitor{}, err
	}

	return parseCheckinRecord(resp)
}

// LookupVisitor finds a visitor profile by email or phone. Returns
// ErrNotFound when the backend has no matching record.
func (c *Client) LookupVisitor(ctx context.Context, query string) (models.Visitor, error) {
	path := "/visitors/lookup?query=" + url.QueryEscape(query)
	resp, err := c.doJSON(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return models.Visitor{}, err
	}

	var record visitorRecord
	if err := json.Unmarshal(resp, &record); err != nil {
		return models.Visitor{}, fmt.Errorf("failed to parse visitor response: %w", err)
	}
	return record.normalize(), nil
}

// Attachment is an optional file carried with a guest check-in.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// GuestCheckinRequest carries a registration submission.
type GuestCheckinRequest struct {
	AccessCategory int
	Purpose        string
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	HostID         int
	Image          *Attachment
	Document       *Attachment
	Signature      *Attachment
}

// GuestCheckin registers and checks in a new or returning guest. Requests
// with attachments go up as multipart/form-data, matching the backend's
// upload handling; plain submissions are sent the same way for one code
// path.
func (c *Client) GuestCheckin(ctx context.Context, req GuestCheckinRequest) (models.Visitor, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := map[string]string{
		"access_category": strconv.Itoa(req.AccessCategory),
		"checkin_method":  "guest_form",
		"purpose":         req.Purpose,
		"first_name":      req.FirstName,
		"last_name":       req.LastName,
		"email":           req.Email,
		"phone":           req.Phone,
		"terminal_id":     strconv.Itoa(c.terminalID),
	}
	if req.HostID != 0 {
		fields["host_id"] = strconv.Itoa(req.HostID)
	}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return models.Visitor{}, fmt.Errorf("failed to write form field %s: %w", key, err)
		}
	}

	attachments := map[string]*Attachment{
		"image":     req.Image,
		"document":  req.Document,
		"signature": req.Signature,
	}
	for field, att := range attachments {
		if att == nil {
			continue
		}
		part, err := writer.CreateFormFile(field, att.Filename)
		if err != nil {
			return models.Visitor{}, fmt.Errorf("failed to create form file %s: %w", field, err)
		}
		if _, err := part.Write(att.Content); err != nil {
			return models.Visitor{}, fmt.Errorf("failed to write attachment %s: %w", field, err)
		}
	}

	if err := writer.Close(); err != nil {
		return models.Visitor{}, fmt.Errorf("failed to finalize form: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/checkin", &buf, writer.FormDataContentType(), true)
	if err != nil {
		return models.Visitor{}, err
	}

	return parseCheckinRecord(resp)
}

// checkoutRequest represents the checkout request
type checkoutRequest struct {
	Identifier string `json:"identifier"`
	TerminalID int    `json:"terminal_id"`
}

// Checkout completes a visit identified by access code, email, or name.
func (c *Client) Checkout(ctx context.Context, identifier string) (models.Visitor, error) {
	body, err := json.Marshal(checkoutRequest{
		Identifier: identifier,
		TerminalID: c.terminalID,
	})
	if err != nil {
		return models.Visitor{}, fmt.Errorf("failed to marshal checkout request: %w", err)
	}

	resp, err := c.doJSON(ctx, http.MethodPost, "/checkout", body, true)
	if err != nil {
		return models.Visitor{}, err
	}

	return parseCheckinRecord(resp)
}

// doJSON sends a JSON request and returns the raw response body.
func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, authenticated bool) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	return c.do(ctx, method, path, reader, "application/json", authenticated)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, authenticated bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	if authenticated {
		c.tokenMutex.RLock()
		token := c.token
		c.tokenMutex.RUnlock()
		if token == "" {
			return nil, ErrNotAuthenticated
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return respBody, nil
	case resp.StatusCode == http.StatusUnauthorized:
		c.logger.WithField("path", path).Warn("Backend rejected bearer token")
		return nil, ErrSessionExpired
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody),
		}
	}
}

// errorMessage pulls the backend's message field out of an error payload.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return ""
}
