package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/employee"
	"github.com/cc-visionary/payroll-os-sub004/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepository struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepository{db: db}
}

const wageProfileColumns = `
	id, company_id, employee_code, full_name, wage_type, base_rate,
	regularization_date, rest_days, bank_name, bank_account_number
`

func scanWageProfile(row pgx.Row) (employee.WageProfile, error) {
	var p employee.WageProfile
	var restDays []int32
	if err := row.Scan(
		&p.EmployeeID, &p.CompanyID, &p.EmployeeCode, &p.FullName, &p.WageType, &p.BaseRate,
		&p.RegularizationDate, &restDays, &p.BankName, &p.BankAccountNumber,
	); err != nil {
		return employee.WageProfile{}, err
	}
	for _, d := range restDays {
		p.RestDays = append(p.RestDays, time.Weekday(d))
	}
	return p, nil
}

func (r *employeeRepository) ListWageProfiles(ctx context.Context, companyID string) ([]employee.WageProfile, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + wageProfileColumns + `
		FROM employees
		WHERE company_id = $1 AND is_active AND deleted_at IS NULL
		ORDER BY employee_code
	`

	rows, err := q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wage profiles: %w", err)
	}
	defer rows.Close()

	var profiles []employee.WageProfile
	for rows.Next() {
		p, err := scanWageProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wage profile: %w", err)
		}
		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}

func (r *employeeRepository) GetWageProfile(ctx context.Context, companyID string, employeeID string) (employee.WageProfile, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + wageProfileColumns + `
		FROM employees
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL
	`

	p, err := scanWageProfile(q.QueryRow(ctx, query, employeeID, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return employee.WageProfile{}, employee.ErrEmployeeNotFound
		}
		return employee.WageProfile{}, fmt.Errorf("failed to get wage profile: %w", err)
	}

	return p, nil
}
