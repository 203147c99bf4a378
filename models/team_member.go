package models

import "strings"

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

type TeamMember struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	Role               string `json:"role"`
	MustChangePassword bool   `json:"mustChangePassword"`
}

// Credential is stored apart from TeamMember so password hashes never travel
// with the team list.
type Credential struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
}

// NormalizeEmail is the case-insensitive key for members and credentials.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeRole maps free text to a known role, defaulting to staff.
func NormalizeRole(raw string) string {
	if strings.ToLower(strings.TrimSpace(raw)) == RoleAdmin {
		return RoleAdmin
	}
	return RoleStaff
}
