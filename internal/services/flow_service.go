package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vistacks/kiosk-agent/internal/models"
	"github.com/vistacks/kiosk-agent/pkg/validator"
	"github.com/vistacks/kiosk-agent/pkg/vms"
)

const (
	// MinAccessCodeLength is the shortest access code the kiosk will submit
	MinAccessCodeLength = 4

	// MinCheckoutIdentifierLength is the shortest checkout identifier accepted
	MinCheckoutIdentifierLength = 2
)

var (
	// ErrBusy indicates a request for the same logical action is already in flight
	ErrBusy = errors.New("another request is already in progress")

	// ErrInvalidStep indicates the operation does not apply to the current step
	ErrInvalidStep = errors.New("operation is not valid for the current step")

	// ErrAccessCodeTooShort indicates the access code failed local validation
	ErrAccessCodeTooShort = fmt.Errorf("access code must be at least %d characters", MinAccessCodeLength)

	// ErrIdentifierTooShort indicates the checkout identifier failed local validation
	ErrIdentifierTooShort = fmt.Errorf("please enter at least %d characters", MinCheckoutIdentifierLength)

	// ErrNameRequired indicates a registration was submitted without a name
	ErrNameRequired = errors.New("first name is required")

	// ErrContactRequired indicates a registration carried neither email nor phone
	ErrContactRequired = errors.New("an email address or phone number is required")
)

// CheckinAPI is the slice of the backend client the flow controller needs.
type CheckinAPI interface {
	AccessCodeCheckin(ctx context.Context, code string) (models.Visitor, error)
	LookupVisitor(ctx context.Context, query string) (models.Visitor, error)
	GuestCheckin(ctx context.Context, req vms.GuestCheckinRequest) (models.Visitor, error)
	Checkout(ctx context.Context, identifier string) (models.Visitor, error)
}

// homeOptions maps a home-screen choice to its target step. Unrecognized
// options fall back to home.
var homeOptions = map[string]models.Step{
	"access-code":    models.StepAccessCode,
	"no-access-code": models.StepEmailNameInput,
	"scanner":        models.StepScanner,
	"checkout":       models.StepCheckout,
	"emergency":      models.StepEmergency,
}

// backTargets is the reverse-transition table. It is deliberately
// asymmetric: profile-display and registration are second in the
// email-lookup sub-flow and return there, everything else returns home.
var backTargets = map[models.Step]models.Step{
	models.StepAccessCode:           models.StepHome,
	models.StepEmailNameInput:       models.StepHome,
	models.StepScanner:              models.StepHome,
	models.StepEmergency:            models.StepHome,
	models.StepCheckout:             models.StepHome,
	models.StepCheckoutConfirmation: models.StepHome,
	models.StepProfileDisplay:       models.StepEmailNameInput,
	models.StepRegistration:         models.StepEmailNameInput,
}

// RegistrationForm carries the registration screen's submission.
type RegistrationForm struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Purpose   string `json:"purpose"`
	HostID    int    `json:"host_id"`

	Image     *vms.Attachment `json:"-"`
	Document  *vms.Attachment `json:"-"`
	Signature *vms.Attachment `json:"-"`
}

// FlowService is the kiosk flow controller. It owns the current step and
// the accumulated visitor data for one journey and maps user actions to
// transitions. All state lives behind one mutex; a generation counter
// invalidates responses that arrive after the journey they belonged to
// was abandoned or completed.
type FlowService struct {
	api      CheckinAPI
	contacts *validator.ContactValidator
	logger   *logrus.Logger

	mu         sync.Mutex
	sessionID  uuid.UUID
	step       models.Step
	visitor    models.Visitor
	loading    bool
	errMessage string
	notice     string
	generation uint64

	countdownSeconds   int
	countdownRemaining int
	countdownStop      chan struct{}

	// tickInterval is one countdown tick; overridden in tests
	tickInterval time.Duration
}

// NewFlowService creates a new flow controller idle at the home step.
func NewFlowService(api CheckinAPI, contacts *validator.ContactValidator, logger *logrus.Logger, countdownSeconds int) *FlowService {
	return &FlowService{
		api:              api,
		contacts:         contacts,
		logger:           logger,
		sessionID:        uuid.New(),
		step:             models.StepHome,
		countdownSeconds: countdownSeconds,
		tickInterval:     time.Second,
	}
}

// Snapshot returns the current session state for rendering.
func (s *FlowService) Snapshot() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Session{
		ID:                 s.sessionID,
		Step:               s.step,
		Visitor:            s.visitor,
		IsLoading:          s.loading,
		ErrorMessage:       s.errMessage,
		Notice:             s.notice,
		CountdownRemaining: s.countdownRemaining,
	}
}

// SelectOption maps a home-screen choice to a target step. Unrecognized
// input lands back on home. No side effects beyond the transition.
func (s *FlowService) SelectOption(option string) models.Step {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := homeOptions[option]
	if !ok {
		target = models.StepHome
	}
	s.step = target
	s.errMessage = ""
	s.notice = ""
	return target
}

// SubmitAccessCode checks the visitor in by access code. On success the
// authoritative record replaces the session's visitor data and the flow
// advances to confirmation; on failure the access-code screen stays put
// with the backend's message and is re-enterable.
func (s *FlowService) SubmitAccessCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if len(code) < MinAccessCodeLength {
		return ErrAccessCodeTooShort
	}

	gen, err := s.beginRequest(models.StepAccessCode)
	if err != nil {
		return err
	}

	record, err := s.api.AccessCodeCheckin(ctx, code)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		// The journey moved on while the request was in flight.
		return nil
	}
	s.loading = false

	if err != nil {
		s.errMessage = userMessage(err, "Check-in failed")
		s.logger.WithError(err).Warn("Access code check-in failed")
		return err
	}

	s.visitor = record
	s.notice = "Check-in successful"
	s.step = models.StepConfirmation
	s.startCountdownLocked()
	return nil
}

// SubmitEmailOrPhone looks a visitor up by email or phone. A found record
// routes to profile-display for confirmation; an unknown or unreachable
// lookup seeds the registration form with the classified input instead.
func (s *FlowService) SubmitEmailOrPhone(ctx context.Context, input string) error {
	kind, value, err := s.contacts.Validate(input)
	if err != nil {
		return err
	}

	gen, err := s.beginRequest(models.StepEmailNameInput)
	if err != nil {
		return err
	}

	record, err := s.api.LookupVisitor(ctx, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return nil
	}
	s.loading = false

	switch {
	case err == nil:
		s.visitor.Merge(record)
		s.step = models.StepProfileDisplay
	case errors.Is(err, vms.ErrNotFound):
		s.seedContactLocked(kind, value)
		s.step = models.StepRegistration
	default:
		s.seedContactLocked(kind, value)
		s.notice = "We couldn't find your profile. Please register below."
		s.step = models.StepRegistration
		s.logger.WithError(err).Warn("Visitor lookup failed, falling back to registration")
	}
	return nil
}

// seedContactLocked records the raw lookup input under the field its
// classification chose. Caller holds the mutex.
func (s *FlowService) seedContactLocked(kind validator.ContactKind, value string) {
	if kind == validator.KindEmail {
		s.visitor.Email = value
	} else {
		s.visitor.Phone = value
	}
}

// ConfirmProfile checks a returning, already-identified visitor in from the
// profile screen.
func (s *FlowService) ConfirmProfile(ctx context.Context) error {
	gen, err := s.beginRequest(models.StepProfileDisplay)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return nil
	}
	s.loading = false

	now := time.Now()
	s.visitor.CheckInTime = &now
	s.visitor.Status = models.StatusCheckedIn
	s.notice = "Check-in successful"
	s.step = models.StepConfirmation
	s.startCountdownLocked()
	return nil
}

// SubmitRegistration submits the registration form as a guest check-in.
// On failure the screen stays put and the entered values are preserved.
func (s *FlowService) SubmitRegistration(ctx context.Context, form RegistrationForm) error {
	if strings.TrimSpace(form.FirstName) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(form.Email) == "" && strings.TrimSpace(form.Phone) == "" {
		return ErrContactRequired
	}
	if form.Email != "" {
		if err := s.contacts.ValidateEmail(form.Email); err != nil {
			return err
		}
	}

	gen, err := s.beginRequest(models.StepRegistration)
	if err != nil {
		return err
	}

	// Keep the entered values in session state so a failed submission does
	// not lose them.
	s.mu.Lock()
	s.visitor.Merge(models.Visitor{
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
		Phone:     form.Phone,
		Purpose:   form.Purpose,
	})
	s.mu.Unlock()

	record, err := s.api.GuestCheckin(ctx, vms.GuestCheckinRequest{
		Purpose:   form.Purpose,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Email:     form.Email,
		Phone:     form.Phone,
		HostID:    form.HostID,
		Image:     form.Image,
		Document:  form.Document,
		Signature: form.Signature,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return nil
	}
	s.loading = false

	if err != nil {
		s.errMessage = userMessage(err, "Check-in failed")
		s.logger.WithError(err).Warn("Guest check-in failed")
		return err
	}

	s.visitor = record
	if record.Status == models.StatusPending {
		s.notice = "Check-in submitted. Please wait for approval."
	} else {
		s.notice = "Check-in successful"
	}
	s.step = models.StepConfirmation
	s.startCountdownLocked()
	return nil
}

// SubmitCheckout completes a visit by access code, email, or name.
func (s *FlowService) SubmitCheckout(ctx context.Context, identifier string) error {
	identifier = strings.TrimSpace(identifier)
	if len(identifier) < MinCheckoutIdentifierLength {
		return ErrIdentifierTooShort
	}

	gen, err := s.beginRequest(models.StepCheckout)
	if err != nil {
		return err
	}

	record, err := s.api.Checkout(ctx, identifier)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return nil
	}
	s.loading = false

	if err != nil {
		s.errMessage = userMessage(err, "Checkout failed")
		s.logger.WithError(err).Warn("Checkout failed")
		return err
	}

	s.visitor = record
	s.notice = "You have been checked out. Thank you for visiting."
	s.step = models.StepCheckoutConfirmation
	return nil
}

// HandleScanSuccess installs the outcome of an accepted scan episode. QR
// results carry a pre-resolved check-in record from the scan pipeline's own
// network call, so no further request is issued here. Simulated modes get a
// locally synthesized record. A result arriving after the scanner step was
// left is ignored.
func (s *FlowService) HandleScanSuccess(ctx context.Context, result models.ScanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != models.StepScanner {
		s.logger.WithField("mode", result.Mode).Debug("Dropping scan result for inactive scanner step")
		return nil
	}

	if result.Mode == models.ScanModeQR {
		if result.Visitor == nil {
			return fmt.Errorf("qr scan result carried no check-in record")
		}
		s.visitor = *result.Visitor
	} else {
		now := time.Now()
		s.visitor = models.Visitor{
			FirstName:     "Verified",
			LastName:      "Visitor",
			Purpose:       "business",
			HostName:      "Reception",
			BadgeNumber:   result.Value,
			CheckinMethod: string(result.Mode),
			Status:        models.StatusCheckedIn,
			CheckInTime:   &now,
		}
	}

	s.notice = "Check-in successful"
	s.step = models.StepConfirmation
	s.startCountdownLocked()
	return nil
}

// GoBack applies the reverse-transition table. Landing on home aborts the
// journey and clears its accumulated data; an in-flight response for the
// abandoned journey can no longer be applied.
func (s *FlowService) GoBack() models.Step {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := backTargets[s.step]
	if !ok {
		target = models.StepHome
	}

	s.generation++
	s.loading = false
	s.errMessage = ""
	s.notice = ""
	s.stopCountdownLocked()
	s.countdownRemaining = 0

	s.step = target
	if target == models.StepHome {
		s.visitor = models.Visitor{}
		s.sessionID = uuid.New()
	}
	return target
}

// Complete returns the kiosk to idle: home step, empty visitor data, no
// pending countdown. Safe to call any number of times; the countdown firing
// and a manual tap racing both land here.
func (s *FlowService) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completeLocked()
}

// ClearError clears the error attached to the current input screen, called
// when the visitor edits the input again.
func (s *FlowService) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMessage = ""
}

func (s *FlowService) completeLocked() {
	s.generation++
	s.stopCountdownLocked()
	s.step = models.StepHome
	s.visitor = models.Visitor{}
	s.loading = false
	s.errMessage = ""
	s.notice = ""
	s.countdownRemaining = 0
	s.sessionID = uuid.New()
}

// beginRequest flips the loading flag for a network-backed operation,
// enforcing the expected step and at-most-one in-flight request. It
// returns the generation the eventual response must match.
func (s *FlowService) beginRequest(expected models.Step) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.step != expected {
		return 0, ErrInvalidStep
	}
	if s.loading {
		return 0, ErrBusy
	}
	s.loading = true
	s.errMessage = ""
	s.notice = ""
	return s.generation, nil
}

// startCountdownLocked starts the confirmation screen's auto-reset
// countdown, replacing any previous one. Caller holds the mutex.
func (s *FlowService) startCountdownLocked() {
	s.stopCountdownLocked()
	s.countdownRemaining = s.countdownSeconds
	stop := make(chan struct{})
	s.countdownStop = stop
	go s.runCountdown(s.generation, stop)
}

// stopCountdownLocked cancels the running countdown, if any. Caller holds
// the mutex.
func (s *FlowService) stopCountdownLocked() {
	if s.countdownStop != nil {
		close(s.countdownStop)
		s.countdownStop = nil
	}
}

func (s *FlowService) runCountdown(gen uint64, stop chan struct{}) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.generation != gen {
				s.mu.Unlock()
				return
			}
			s.countdownRemaining--
			if s.countdownRemaining <= 0 {
				s.completeLocked()
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
		}
	}
}

// userMessage picks the message shown on the kiosk for a failed backend
// call: the backend's own message when it sent one, the per-action
// fallback otherwise. Transport failures read the same as rejections.
func userMessage(err error, fallback string) string {
	var apiErr *vms.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, vms.ErrSessionExpired) {
		return "This terminal's session has expired. Please ask staff for assistance."
	}
	return fallback
}
