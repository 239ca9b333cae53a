package employee

import "errors"

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrInvalidWageType  = errors.New("wage type must be MONTHLY, DAILY or HOURLY")
	ErrInvalidBaseRate  = errors.New("base rate must be positive")
)
