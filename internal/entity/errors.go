package entity

import "errors"

var (
	// Request errors
	ErrRequestNotFound     = errors.New("blood request not found")
	ErrNoHospitalAvailable = errors.New("no hospital found within 10 km or in the given city")

	// Inventory errors
	ErrInventoryNotFound = errors.New("inventory entry not found")
	ErrInsufficientStock = errors.New("insufficient inventory for request")

	// Actor errors
	ErrHospitalNotFound = errors.New("hospital not found")
	ErrDonorNotFound    = errors.New("donor not found")
	ErrPatientNotFound  = errors.New("patient not found")

	// Notification errors
	ErrNotificationNotFound = errors.New("notification not found")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden operation")
)
