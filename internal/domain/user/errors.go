package user

import "errors"

var (
	ErrOwnerAccessRequired     = errors.New("owner access required")
	ErrManagerAccessRequired   = errors.New("manager access required")
	ErrEmployeeProfileRequired = errors.New("an employee profile is required for this action")
	ErrCompanyRequired         = errors.New("company membership required")
)
