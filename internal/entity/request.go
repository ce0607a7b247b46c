package entity

import (
	"time"
)

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusPartial   RequestStatus = "partial"
	RequestStatusFulfilled RequestStatus = "fulfilled"
	// RequestStatusCancelled is reachable only through a manual status
	// update; the dispatch engine never produces it.
	RequestStatusCancelled RequestStatus = "cancelled"
)

type Urgency string

const (
	UrgencyNormal    Urgency = "Normal"
	UrgencyUrgent    Urgency = "Urgent"
	UrgencyEmergency Urgency = "Emergency"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyNormal, UrgencyUrgent, UrgencyEmergency:
		return true
	}
	return false
}

// BloodRequest is the unit of work of the whole system: one need for blood,
// created at intake and mutated by the approval and response workflows.
// Rows are never deleted; history views depend on the audit trail.
type BloodRequest struct {
	ID             int64         `json:"id" db:"id"`
	PatientID      *int64        `json:"patient_id" db:"patient_id"`
	HospitalID     int64         `json:"hospital_id" db:"hospital_id"`
	DonorID        *int64        `json:"donor_id" db:"donor_id"`
	BloodGroup     string        `json:"blood_group" db:"blood_group"`
	Component      string        `json:"component" db:"component"`
	UnitsRequired  int           `json:"units_required" db:"units_required"`
	UnitsFulfilled int           `json:"units_fulfilled" db:"units_fulfilled"`
	Urgency        Urgency       `json:"urgency" db:"urgency"`
	Reason         string        `json:"reason" db:"reason"`
	RequiredBy     *time.Time    `json:"required_by" db:"required_by"`
	RequestCity    string        `json:"request_city" db:"request_city"`
	Latitude       *float64      `json:"request_latitude" db:"request_latitude"`
	Longitude      *float64      `json:"request_longitude" db:"request_longitude"`
	Status         RequestStatus `json:"status" db:"status"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	FulfilledAt    *time.Time    `json:"fulfilled_at" db:"fulfilled_at"`
}

// Remaining returns the units still needed, never below zero.
func (r *BloodRequest) Remaining() int {
	remaining := r.UnitsRequired - r.UnitsFulfilled
	if remaining < 0 {
		return 0
	}
	return remaining
}

var bloodGroups = map[string]struct{}{
	"A+": {}, "A-": {},
	"B+": {}, "B-": {},
	"AB+": {}, "AB-": {},
	"O+": {}, "O-": {},
}

func ValidBloodGroup(group string) bool {
	_, ok := bloodGroups[group]
	return ok
}
