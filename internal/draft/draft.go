// Package draft holds the partial state a visitor accumulates while walking
// the booking wizard (agency, appointment type, advisor, chosen time,
// personal details). The draft is an explicit value object keyed by a
// session token and persisted between steps; the availability engine never
// sees it.
package draft

import "time"

type Draft struct {
	Token           string     `json:"token"`
	AgencyID        string     `json:"agency_id,omitempty"`
	AppointmentType string     `json:"appointment_type,omitempty"`
	AdvisorID       string     `json:"advisor_id,omitempty"`
	Start           *time.Time `json:"start,omitempty"`
	End             *time.Time `json:"end,omitempty"`
	CustomerName    string     `json:"customer_name,omitempty"`
	CustomerEmail   string     `json:"customer_email,omitempty"`
	CustomerPhone   string     `json:"customer_phone,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Merge copies the non-empty fields of in onto d, so each wizard step only
// submits what it collected.
func (d *Draft) Merge(in Draft) {
	if in.AgencyID != "" {
		d.AgencyID = in.AgencyID
	}
	if in.AppointmentType != "" {
		d.AppointmentType = in.AppointmentType
	}
	if in.AdvisorID != "" {
		d.AdvisorID = in.AdvisorID
	}
	if in.Start != nil {
		d.Start = in.Start
	}
	if in.End != nil {
		d.End = in.End
	}
	if in.CustomerName != "" {
		d.CustomerName = in.CustomerName
	}
	if in.CustomerEmail != "" {
		d.CustomerEmail = in.CustomerEmail
	}
	if in.CustomerPhone != "" {
		d.CustomerPhone = in.CustomerPhone
	}
}
