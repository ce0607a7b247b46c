package entity

import (
	"time"
)

type Hospital struct {
	ID            int64    `json:"id" db:"id"`
	Name          string   `json:"name" db:"name"`
	City          string   `json:"city" db:"city"`
	ContactPerson string   `json:"contact_person" db:"contact_person"`
	Phone         string   `json:"phone" db:"phone"`
	Latitude      *float64 `json:"latitude" db:"latitude"`
	Longitude     *float64 `json:"longitude" db:"longitude"`
}

// HospitalCandidate is a hospital returned by a geo query, closest first
// when ranked by distance. DistanceMeters is nil for city-scoped lookups.
type HospitalCandidate struct {
	Hospital
	DistanceMeters *float64 `json:"distance_meters"`
}

type Donor struct {
	ID               int64      `json:"id" db:"id"`
	FullName         string     `json:"full_name" db:"full_name"`
	Email            string     `json:"email" db:"email"`
	Phone            string     `json:"phone" db:"phone"`
	BloodGroup       string     `json:"blood_group" db:"blood_group"`
	City             string     `json:"city" db:"city"`
	Available        bool       `json:"available" db:"available"`
	Latitude         *float64   `json:"latitude" db:"latitude"`
	Longitude        *float64   `json:"longitude" db:"longitude"`
	LastDonationDate *time.Time `json:"last_donation_date" db:"last_donation_date"`
}

// EligibleAt reports whether the donor may donate whole blood at the given
// time: at least 56 days since the last recorded donation.
func (d *Donor) EligibleAt(at time.Time) bool {
	if d.LastDonationDate == nil {
		return true
	}
	return at.Sub(*d.LastDonationDate) >= 56*24*time.Hour
}

type Patient struct {
	ID       int64  `json:"id" db:"id"`
	FullName string `json:"full_name" db:"full_name"`
	Email    string `json:"email" db:"email"`
	Phone    string `json:"phone" db:"phone"`
}

type Donation struct {
	ID           int64     `json:"id" db:"id"`
	DonorID      int64     `json:"donor_id" db:"donor_id"`
	RequestID    *int64    `json:"request_id" db:"request_id"`
	HospitalID   int64     `json:"hospital_id" db:"hospital_id"`
	BloodGroup   string    `json:"blood_group" db:"blood_group"`
	Component    string    `json:"component" db:"component"`
	Units        int       `json:"units" db:"units"`
	DonationDate time.Time `json:"donation_date" db:"donation_date"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
