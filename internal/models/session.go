package models

import (
	"github.com/google/uuid"
)

// Step is one named screen of the kiosk flow. Exactly one step is active at
// a time; a fresh session always starts at StepHome.
type Step string

const (
	StepHome                 Step = "home"
	StepAccessCode           Step = "access-code"
	StepEmailNameInput       Step = "email-name-input"
	StepProfileDisplay       Step = "profile-display"
	StepRegistration         Step = "registration"
	StepScanner              Step = "scanner"
	StepCheckout             Step = "checkout"
	StepCheckoutConfirmation Step = "checkout-confirmation"
	StepConfirmation         Step = "confirmation"
	StepEmergency            Step = "emergency"
)

// Steps lists every step of the flow.
func Steps() []Step {
	return []Step{
		StepHome,
		StepAccessCode,
		StepEmailNameInput,
		StepProfileDisplay,
		StepRegistration,
		StepScanner,
		StepCheckout,
		StepCheckoutConfirmation,
		StepConfirmation,
		StepEmergency,
	}
}

// IsValid reports whether s names a known step.
func (s Step) IsValid() bool {
	for _, known := range Steps() {
		if s == known {
			return true
		}
	}
	return false
}

// Session is a read-only snapshot of the flow controller's state for one
// visitor journey, served to the touchscreen front-end.
type Session struct {
	ID                 uuid.UUID `json:"id"`
	Step               Step      `json:"step"`
	Visitor            Visitor   `json:"visitor"`
	IsLoading          bool      `json:"is_loading"`
	ErrorMessage       string    `json:"error_message,omitempty"`
	Notice             string    `json:"notice,omitempty"`
	CountdownRemaining int       `json:"countdown_remaining,omitempty"`
}

// ScanMode selects which capture capability a scan episode uses.
type ScanMode string

const (
	ScanModeQR          ScanMode = "qr"
	ScanModeFace        ScanMode = "face"
	ScanModeFingerprint ScanMode = "fingerprint"
)

// IsValid reports whether m names a known scan mode.
func (m ScanMode) IsValid() bool {
	return m == ScanModeQR || m == ScanModeFace || m == ScanModeFingerprint
}

// ScanState is the scan pipeline's episode state.
type ScanState string

const (
	ScanIdle     ScanState = "idle"
	ScanScanning ScanState = "scanning"
	ScanAccepted ScanState = "accepted"
	ScanError    ScanState = "error"
)

// ScanResult is the outcome of one accepted scan episode, handed from the
// scan pipeline to the flow controller.
type ScanResult struct {
	Mode  ScanMode `json:"mode"`
	Value string   `json:"value"`
	// Visitor is set for QR scans, where the pipeline resolves its own
	// check-in call before handing over; nil for simulated modes.
	Visitor *Visitor `json:"visitor,omitempty"`
}

// ScanSession is a read-only snapshot of the scan pipeline's state.
type ScanSession struct {
	Mode         ScanMode  `json:"mode"`
	State        ScanState `json:"state"`
	IsScanning   bool      `json:"is_scanning"`
	Result       string    `json:"result,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Device       string    `json:"device,omitempty"`
}
