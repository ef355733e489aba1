package auth

import "github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/user"

// Identity is the caller described by an access token.
type Identity struct {
	UserID     string
	EmployeeID string
	CompanyID  string
	Role       user.Role
}

// HasEmployee reports whether the caller is linked to an employee record.
func (i Identity) HasEmployee() bool {
	return i.EmployeeID != "" && i.CompanyID != ""
}
