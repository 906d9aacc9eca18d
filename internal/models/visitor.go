package models

import (
	"strings"
	"time"
)

// VisitStatus represents the lifecycle state of a visit as reported by the
// visitor-management backend.
type VisitStatus string

const (
	StatusCheckedIn  VisitStatus = "checked-in"
	StatusCheckedOut VisitStatus = "checked-out"
	StatusPending    VisitStatus = "pending"
	StatusApproved   VisitStatus = "approved"
	StatusExpired    VisitStatus = "expired"
)

// Visitor is the normalized visitor record used throughout the kiosk.
// Backend responses arrive in several historical shapes; pkg/vms normalizes
// them into this struct before they reach session state, so the flow layer
// never sees raw API payloads.
type Visitor struct {
	ID             string      `json:"id,omitempty"`
	FirstName      string      `json:"first_name,omitempty"`
	LastName       string      `json:"last_name,omitempty"`
	Email          string      `json:"email,omitempty"`
	Phone          string      `json:"phone,omitempty"`
	Company        string      `json:"company,omitempty"`
	Purpose        string      `json:"purpose,omitempty"`
	HostName       string      `json:"host_name,omitempty"`
	HostDepartment string      `json:"host_department,omitempty"`
	PersonType     string      `json:"person_type,omitempty"`
	BadgeNumber    string      `json:"badge_number,omitempty"` // visitor tag issued by the backend
	CheckinMethod  string      `json:"checkin_method,omitempty"`
	Status         VisitStatus `json:"status,omitempty"`
	CheckInTime    *time.Time  `json:"checkin_time,omitempty"`
	CheckOutTime   *time.Time  `json:"checkout_time,omitempty"`
	ImageURL       string      `json:"image_url,omitempty"`
	DocumentURL    string      `json:"document_url,omitempty"`
	SignatureURL   string      `json:"signature_url,omitempty"`
}

// FullName returns the visitor's display name.
func (v Visitor) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(v.FirstName) + " " + strings.TrimSpace(v.LastName))
}

// IsZero reports whether no field of the record has been populated.
func (v Visitor) IsZero() bool {
	return v == (Visitor{})
}

// Merge copies every populated field of partial into v, leaving the rest
// untouched. Fields are only ever added or overwritten here; a full-record
// replace from an authoritative API response is done by plain assignment
// instead.
func (v *Visitor) Merge(partial Visitor) {
	if partial.ID != "" {
		v.ID = partial.ID
	}
	if partial.FirstName != "" {
		v.FirstName = partial.FirstName
	}
	if partial.LastName != "" {
		v.LastName = partial.LastName
	}
	if partial.Email != "" {
		v.Email = partial.Email
	}
	if partial.Phone != "" {
		v.Phone = partial.Phone
	}
	if partial.Company != "" {
		v.Company = partial.Company
	}
	if partial.Purpose != "" {
		v.Purpose = partial.Purpose
	}
	if partial.HostName != "" {
		v.HostName = partial.HostName
	}
	if partial.HostDepartment != "" {
		v.HostDepartment = partial.HostDepartment
	}
	if partial.PersonType != "" {
		v.PersonType = partial.PersonType
	}
	if partial.BadgeNumber != "" {
		v.BadgeNumber = partial.BadgeNumber
	}
	if partial.CheckinMethod != "" {
		v.CheckinMethod = partial.CheckinMethod
	}
	if partial.Status != "" {
		v.Status = partial.Status
	}
	if partial.CheckInTime != nil {
		v.CheckInTime = partial.CheckInTime
	}
	if partial.CheckOutTime != nil {
		v.CheckOutTime = partial.CheckOutTime
	}
	if partial.ImageURL != "" {
		v.ImageURL = partial.ImageURL
	}
	if partial.DocumentURL != "" {
		v.DocumentURL = partial.DocumentURL
	}
	if partial.SignatureURL != "" {
		v.SignatureURL = partial.SignatureURL
	}
}

// Organization describes the facility organization this terminal belongs to.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
	Logo string `json:"logo,omitempty"`
}

// EmergencyContact is one entry on the kiosk's emergency contact screen.
type EmergencyContact struct {
	Type        string `json:"type"` // emergency, security, reception
	Number      string `json:"number"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// DefaultEmergencyContacts returns the contact list shown when the facility
// has not configured its own numbers.
func DefaultEmergencyContacts() []EmergencyContact {
	return []EmergencyContact{
		{Type: "emergency", Number: "911", Label: "Emergency Services", Description: "Police, fire, or medical emergency"},
		{Type: "security", Number: "0", Label: "Facility Security", Description: "On-site security desk"},
		{Type: "reception", Number: "100", Label: "Reception", Description: "Front desk assistance"},
	}
}
