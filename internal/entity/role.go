package entity

import (
	"fmt"
	"strings"
)

// Role is a closed set of recipient kinds. Recipient keys on notifications
// are always built through RecipientKey, never by string concatenation at
// call sites.
type Role string

const (
	RoleDonor    Role = "donor"
	RolePatient  Role = "patient"
	RoleHospital Role = "hospital"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDonor, RolePatient, RoleHospital, RoleAdmin:
		return true
	}
	return false
}

// RecipientKey returns the notification address for one account of this
// role, e.g. "hospital_7".
func (r Role) RecipientKey(id int64) string {
	return fmt.Sprintf("%s_%d", r, id)
}

// ParseRole accepts the role names used by the history API (upper case) as
// well as the lower-case recipient-key prefixes.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.Valid() {
		return "", fmt.Errorf("%w: role must be DONOR, PATIENT, HOSPITAL, or ADMIN", ErrInvalidInput)
	}
	return role, nil
}
