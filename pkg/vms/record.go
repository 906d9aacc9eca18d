package vms

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vistacks/kiosk-agent/internal/models"
)

// checkinRecord is the backend's check-in payload. Several historical
// shapes exist; every field the kiosk cares about is normalized into
// models.Visitor and nothing else leaves this package.
type checkinRecord struct {
	ID            json.Number `json:"id"`
	CheckinMethod string      `json:"checkin_method"`
	Status        string      `json:"status"`
	Purpose       string      `json:"purpose"`
	FirstName     string      `json:"first_name"`
	LastName      string      `json:"last_name"`
	Email         string      `json:"email"`
	Phone         string      `json:"phone"`
	PersonType    *string     `json:"person_type"`
	CheckinTime   string      `json:"checkin_time"`
	CheckoutTime  *string     `json:"checkout_time"`
	VisitorTag    string      `json:"visitor_tag"`
	Visitor       *struct {
		ID        json.Number `json:"id"`
		FirstName string      `json:"first_name"`
		LastName  string      `json:"last_name"`
		Email     string      `json:"email"`
		Phone     string      `json:"phone"`
		Company   string      `json:"company"`
	} `json:"visitor"`
	Host *struct {
		FirstName  string `json:"first_name"`
		LastName   string `json:"last_name"`
		Department string `json:"department"`
	} `json:"host"`
	ImageURL     *string `json:"image_url"`
	DocumentURL  *string `json:"document_url"`
	SignatureURL *string `json:"signature_url"`
}

// visitorRecord is the backend's standalone visitor-profile payload,
// returned by lookups.
type visitorRecord struct {
	ID          json.Number `json:"id"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	Company     string      `json:"company"`
	VisitorType string      `json:"visitor_type"`
	Address     string      `json:"address"`
}

func parseCheckinRecord(body []byte) (models.Visitor, error) {
	var record checkinRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return models.Visitor{}, fmt.Errorf("failed to parse check-in response: %w", err)
	}
	return record.normalize(), nil
}

func (r checkinRecord) normalize() models.Visitor {
	v := models.Visitor{
		ID:            r.ID.String(),
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		Phone:         r.Phone,
		Purpose:       r.Purpose,
		BadgeNumber:   r.VisitorTag,
		CheckinMethod: r.CheckinMethod,
		Status:        normalizeStatus(r.Status),
		CheckInTime:   parseTimestamp(r.CheckinTime),
	}
	if r.PersonType != nil {
		v.PersonType = *r.PersonType
	}
	if r.CheckoutTime != nil {
		v.CheckOutTime = parseTimestamp(*r.CheckoutTime)
	}
	if r.Visitor != nil {
		v.Company = r.Visitor.Company
		if v.FirstName == "" {
			v.FirstName = r.Visitor.FirstName
		}
		if v.LastName == "" {
			v.LastName = r.Visitor.LastName
		}
		if v.Email == "" {
			v.Email = r.Visitor.Email
		}
		if v.Phone == "" {
			v.Phone = r.Visitor.Phone
		}
	}
	if r.Host != nil {
		v.HostName = strings.TrimSpace(r.Host.FirstName + " " + r.Host.LastName)
		v.HostDepartment = r.Host.Department
	}
	if r.ImageURL != nil {
		v.ImageURL = *r.ImageURL
	}
	if r.DocumentURL != nil {
		v.DocumentURL = *r.DocumentURL
	}
	if r.SignatureURL != nil {
		v.SignatureURL = *r.SignatureURL
	}
	return v
}

func (r visitorRecord) normalize() models.Visitor {
	return models.Visitor{
		ID:         r.ID.String(),
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Email:      r.Email,
		Phone:      r.Phone,
		Company:    r.Company,
		PersonType: r.VisitorType,
	}
}

// normalizeStatus maps the backend's status spellings onto the kiosk enum.
func normalizeStatus(status string) models.VisitStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "checked-in", "checked_in", "checkedin":
		return models.StatusCheckedIn
	case "checked-out", "checked_out", "checkedout":
		return models.StatusCheckedOut
	case "pending":
		return models.StatusPending
	case "approved":
		return models.StatusApproved
	case "expired":
		return models.StatusExpired
	case "":
		return ""
	default:
		return models.VisitStatus(strings.ToLower(strings.TrimSpace(status)))
	}
}

// timestampLayouts covers the formats the backend has been seen to emit.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseTimestamp(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts
		}
	}
	return nil
}
