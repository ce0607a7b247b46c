package entity

import (
	"time"
)

type ResponseValue string

const (
	ResponsePending  ResponseValue = "pending"
	ResponseAccepted ResponseValue = "accepted"
	ResponseDeclined ResponseValue = "declined"
)

func (v ResponseValue) Valid() bool {
	switch v {
	case ResponsePending, ResponseAccepted, ResponseDeclined:
		return true
	}
	return false
}

// DonorResponse is a donor's answer to one blood request. Unique per
// (request_id, donor_id); a resubmission overwrites rather than duplicates.
type DonorResponse struct {
	ID        int64         `json:"id" db:"id"`
	RequestID int64         `json:"request_id" db:"request_id"`
	DonorID   int64         `json:"donor_id" db:"donor_id"`
	Response  ResponseValue `json:"response" db:"response"`
	Notes     *string       `json:"notes" db:"notes"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}
