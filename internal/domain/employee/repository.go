package employee

import "context"

type EmployeeRepository interface {
	// ListWageProfiles returns the active employees of a company ordered by employee code.
	ListWageProfiles(ctx context.Context, companyID string) ([]WageProfile, error)
	GetWageProfile(ctx context.Context, companyID string, employeeID string) (WageProfile, error)
}
