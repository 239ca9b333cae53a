package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
	"github.com/cc-visionary/payroll-os-sub004/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

// ========== RUNS ==========

const runColumns = `
	id, company_id, period_start, period_end, pay_date, frequency, status,
	rule_set_version, statutory_version, employee_count, computed_count, failed_count,
	created_by, approved_by, approved_at, released_at, created_at, updated_at
`

func scanRun(row pgx.Row) (payroll.PayrollRun, error) {
	var run payroll.PayrollRun
	err := row.Scan(
		&run.ID, &run.CompanyID, &run.Period.Start, &run.Period.End, &run.Period.PayDate, &run.Period.Frequency, &run.Status,
		&run.RuleSetVersion, &run.StatutoryVersion, &run.EmployeeCount, &run.ComputedCount, &run.FailedCount,
		&run.CreatedBy, &run.ApprovedBy, &run.ApprovedAt, &run.ReleasedAt, &run.CreatedAt, &run.UpdatedAt,
	)
	return run, err
}

func (r *payrollRepository) CreateRun(ctx context.Context, run payroll.PayrollRun) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_runs (id, company_id, period_start, period_end, pay_date, frequency, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + runColumns

	created, err := scanRun(q.QueryRow(ctx, query,
		run.ID, run.CompanyID, run.Period.Start, run.Period.End, run.Period.PayDate, run.Period.Frequency, run.Status, run.CreatedBy,
	))
	if err != nil {
		if strings.Contains(err.Error(), "uk_payroll_run_period") {
			return payroll.PayrollRun{}, payroll.ErrRunAlreadyExists
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to create payroll run: %w", err)
	}

	return created, nil
}

func (r *payrollRepository) GetRunByID(ctx context.Context, id string, companyID string) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + runColumns + ` FROM payroll_runs WHERE id = $1 AND company_id = $2`

	run, err := scanRun(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.PayrollRun{}, payroll.ErrRunNotFound
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to get payroll run: %w", err)
	}

	return run, nil
}

func (r *payrollRepository) ListRuns(ctx context.Context, companyID string, filter payroll.RunFilter) ([]payroll.PayrollRun, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := []string{"company_id = $1"}
	args := []interface{}{companyID}
	argIdx := 2

	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.Year != nil {
		where = append(where, fmt.Sprintf("EXTRACT(YEAR FROM pay_date) = $%d", argIdx))
		args = append(args, *filter.Year)
		argIdx++
	}
	whereClause := strings.Join(where, " AND ")

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM payroll_runs WHERE "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll runs: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM payroll_runs WHERE %s ORDER BY period_start DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		runColumns, whereClause, argIdx, argIdx+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll runs: %w", err)
	}
	defer rows.Close()

	var runs []payroll.PayrollRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payroll run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, total, rows.Err()
}

func (r *payrollRepository) TransitionRun(ctx context.Context, id string, companyID string, from, to payroll.RunStatus, actorID *string) (payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_runs SET
			status = $4,
			approved_by = CASE WHEN $4 = 'APPROVED' THEN $5::uuid ELSE approved_by END,
			approved_at = CASE WHEN $4 = 'APPROVED' THEN NOW() ELSE approved_at END,
			released_at = CASE WHEN $4 = 'RELEASED' THEN NOW() ELSE released_at END,
			updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND status = $3
		RETURNING ` + runColumns

	run, err := scanRun(q.QueryRow(ctx, query, id, companyID, from, to, actorID))
	if err != nil {
		if err == pgx.ErrNoRows {
			current, getErr := r.GetRunByID(ctx, id, companyID)
			if getErr != nil {
				return payroll.PayrollRun{}, getErr
			}
			return payroll.PayrollRun{}, fmt.Errorf("%w: run is %s, expected %s", payroll.ErrInvalidRunTransition, current.Status, from)
		}
		return payroll.PayrollRun{}, fmt.Errorf("failed to transition payroll run: %w", err)
	}

	return run, nil
}

func (r *payrollRepository) UpdateRunProgress(ctx context.Context, id string, ruleSetVersion, statutoryVersion string, employeeCount, computedCount, failedCount int) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_runs SET
			rule_set_version = $2, statutory_version = $3,
			employee_count = $4, computed_count = $5, failed_count = $6,
			updated_at = NOW()
		WHERE id = $1
	`

	if _, err := q.Exec(ctx, query, id, ruleSetVersion, statutoryVersion, employeeCount, computedCount, failedCount); err != nil {
		return fmt.Errorf("failed to update payroll run progress: %w", err)
	}
	return nil
}

func (r *payrollRepository) ListRunsInStatusSince(ctx context.Context, status payroll.RunStatus, updatedBefore time.Time) ([]payroll.PayrollRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + runColumns + ` FROM payroll_runs WHERE status = $1 AND updated_at < $2 ORDER BY updated_at`

	rows, err := q.Query(ctx, query, status, updatedBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll runs by status: %w", err)
	}
	defer rows.Close()

	var runs []payroll.PayrollRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// ========== PAYSLIPS ==========

const payslipColumns = `
	id, run_id, company_id, employee_code, full_name, bank_name, bank_account_number,
	result, created_at, updated_at
`

func scanPayslip(row pgx.Row) (payroll.Payslip, error) {
	var p payroll.Payslip
	var raw []byte
	if err := row.Scan(
		&p.ID, &p.RunID, &p.CompanyID, &p.EmployeeCode, &p.FullName, &p.BankName, &p.BankAccountNumber,
		&raw, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return payroll.Payslip{}, err
	}
	if err := json.Unmarshal(raw, &p.Result); err != nil {
		return payroll.Payslip{}, fmt.Errorf("failed to decode payslip result: %w", err)
	}
	return p, nil
}

// lockOpenRun locks the run row in share mode so a concurrent approval waits
// for the payslip write, and refuses runs that are already finalized.
func lockOpenRun(ctx context.Context, q database.Querier, runID string, companyID string) error {
	var status payroll.RunStatus
	err := q.QueryRow(ctx, `SELECT status FROM payroll_runs WHERE id = $1 AND company_id = $2 FOR SHARE`, runID, companyID).Scan(&status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.ErrRunNotFound
		}
		return fmt.Errorf("failed to lock payroll run: %w", err)
	}
	if status.IsLocked() {
		return fmt.Errorf("%w: run %s is %s", payroll.ErrStaleConfiguration, runID, status)
	}
	return nil
}

func (r *payrollRepository) SavePayslip(ctx context.Context, payslip payroll.Payslip) (payroll.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	if err := lockOpenRun(ctx, q, payslip.RunID, payslip.CompanyID); err != nil {
		return payroll.Payslip{}, err
	}

	raw, err := json.Marshal(payslip.Result)
	if err != nil {
		return payroll.Payslip{}, fmt.Errorf("failed to encode payslip result: %w", err)
	}

	res := payslip.Result
	query := `
		INSERT INTO payslips (
			run_id, company_id, employee_id, employee_code, full_name, bank_name, bank_account_number,
			gross_pay, total_deductions, net_pay,
			ytd_year, ytd_gross_pay, ytd_taxable_income, ytd_tax_withheld, result
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (run_id, employee_id) DO UPDATE SET
			employee_code = EXCLUDED.employee_code,
			full_name = EXCLUDED.full_name,
			bank_name = EXCLUDED.bank_name,
			bank_account_number = EXCLUDED.bank_account_number,
			gross_pay = EXCLUDED.gross_pay,
			total_deductions = EXCLUDED.total_deductions,
			net_pay = EXCLUDED.net_pay,
			ytd_year = EXCLUDED.ytd_year,
			ytd_gross_pay = EXCLUDED.ytd_gross_pay,
			ytd_taxable_income = EXCLUDED.ytd_taxable_income,
			ytd_tax_withheld = EXCLUDED.ytd_tax_withheld,
			result = EXCLUDED.result,
			updated_at = NOW()
		RETURNING ` + payslipColumns

	saved, err := scanPayslip(q.QueryRow(ctx, query,
		payslip.RunID, payslip.CompanyID, res.EmployeeID, payslip.EmployeeCode, payslip.FullName, payslip.BankName, payslip.BankAccountNumber,
		res.GrossPay, res.TotalDeductions, res.NetPay,
		res.YTD.Year, res.YTD.GrossPay, res.YTD.TaxableIncome, res.YTD.TaxWithheld, raw,
	))
	if err != nil {
		return payroll.Payslip{}, fmt.Errorf("failed to save payslip: %w", err)
	}

	return saved, nil
}

func (r *payrollRepository) DeletePayslip(ctx context.Context, runID string, employeeID string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	if err := lockOpenRun(ctx, q, runID, companyID); err != nil {
		return err
	}
	if _, err := q.Exec(ctx, `DELETE FROM payslips WHERE run_id = $1 AND employee_id = $2`, runID, employeeID); err != nil {
		return fmt.Errorf("failed to delete payslip: %w", err)
	}
	return nil
}

func (r *payrollRepository) GetPayslip(ctx context.Context, runID string, employeeID string, companyID string) (payroll.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payslipColumns + ` FROM payslips WHERE run_id = $1 AND employee_id = $2 AND company_id = $3`

	p, err := scanPayslip(q.QueryRow(ctx, query, runID, employeeID, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.Payslip{}, payroll.ErrPayslipNotFound
		}
		return payroll.Payslip{}, fmt.Errorf("failed to get payslip: %w", err)
	}

	return p, nil
}

func (r *payrollRepository) ListPayslips(ctx context.Context, runID string, companyID string) ([]payroll.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payslipColumns + ` FROM payslips WHERE run_id = $1 AND company_id = $2 ORDER BY employee_code`

	rows, err := q.Query(ctx, query, runID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payslips: %w", err)
	}
	defer rows.Close()

	var payslips []payroll.Payslip
	for rows.Next() {
		p, err := scanPayslip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payslip: %w", err)
		}
		payslips = append(payslips, p)
	}

	return payslips, rows.Err()
}

func (r *payrollRepository) GetPriorYTD(ctx context.Context, companyID string, employeeID string, year int, before time.Time) (*payroll.YearToDate, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT p.ytd_year, p.ytd_gross_pay, p.ytd_taxable_income, p.ytd_tax_withheld
		FROM payslips p
		JOIN payroll_runs r ON r.id = p.run_id
		WHERE p.company_id = $1 AND p.employee_id = $2 AND p.ytd_year = $3
			AND r.status IN ('APPROVED', 'RELEASED')
			AND r.period_end < $4
		ORDER BY r.period_end DESC
		LIMIT 1
	`

	var ytd payroll.YearToDate
	err := q.QueryRow(ctx, query, companyID, employeeID, year, before).Scan(&ytd.Year, &ytd.GrossPay, &ytd.TaxableIncome, &ytd.TaxWithheld)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get year-to-date totals: %w", err)
	}

	return &ytd, nil
}

// ========== ISSUES ==========

func (r *payrollRepository) ReplaceIssues(ctx context.Context, runID string, employeeID string, issues []payroll.RunIssue) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `DELETE FROM payroll_run_issues WHERE run_id = $1 AND employee_id = $2`, runID, employeeID); err != nil {
		return fmt.Errorf("failed to clear run issues: %w", err)
	}

	query := `
		INSERT INTO payroll_run_issues (run_id, employee_id, issue_date, kind, detail, blocking)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, issue := range issues {
		if _, err := q.Exec(ctx, query, runID, employeeID, issue.Date, issue.Kind, issue.Detail, issue.Blocking); err != nil {
			return fmt.Errorf("failed to insert run issue: %w", err)
		}
	}
	return nil
}

func (r *payrollRepository) ListIssues(ctx context.Context, runID string) ([]payroll.RunIssue, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, run_id, employee_id, issue_date, kind, detail, blocking, created_at
		FROM payroll_run_issues
		WHERE run_id = $1
		ORDER BY blocking DESC, employee_id, issue_date NULLS FIRST
	`

	rows, err := q.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list run issues: %w", err)
	}
	defer rows.Close()

	var issues []payroll.RunIssue
	for rows.Next() {
		var i payroll.RunIssue
		if err := rows.Scan(&i.ID, &i.RunID, &i.EmployeeID, &i.Date, &i.Kind, &i.Detail, &i.Blocking, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run issue: %w", err)
		}
		issues = append(issues, i)
	}

	return issues, rows.Err()
}

func (r *payrollRepository) CountBlockingIssues(ctx context.Context, runID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	var count int
	if err := q.QueryRow(ctx, `SELECT COUNT(DISTINCT employee_id) FROM payroll_run_issues WHERE run_id = $1 AND blocking`, runID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count blocking issues: %w", err)
	}
	return count, nil
}

// ========== ADJUSTMENTS ==========

func (r *payrollRepository) CreateAdjustment(ctx context.Context, adjustment payroll.ManualAdjustment) (payroll.ManualAdjustment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_adjustments (run_id, employee_id, kind, description, amount, taxable)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, run_id, employee_id, kind, description, amount, taxable, created_at
	`

	var a payroll.ManualAdjustment
	err := q.QueryRow(ctx, query,
		adjustment.RunID, adjustment.EmployeeID, adjustment.Kind, adjustment.Description, adjustment.Amount, adjustment.Taxable,
	).Scan(&a.ID, &a.RunID, &a.EmployeeID, &a.Kind, &a.Description, &a.Amount, &a.Taxable, &a.CreatedAt)
	if err != nil {
		return payroll.ManualAdjustment{}, fmt.Errorf("failed to create adjustment: %w", err)
	}

	return a, nil
}

func (r *payrollRepository) ListAdjustments(ctx context.Context, runID string) (map[string][]payroll.ManualAdjustment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, run_id, employee_id, kind, description, amount, taxable, created_at
		FROM payroll_adjustments
		WHERE run_id = $1
		ORDER BY employee_id, created_at, id
	`

	rows, err := q.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list adjustments: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]payroll.ManualAdjustment)
	for rows.Next() {
		var a payroll.ManualAdjustment
		var amount decimal.Decimal
		if err := rows.Scan(&a.ID, &a.RunID, &a.EmployeeID, &a.Kind, &a.Description, &amount, &a.Taxable, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan adjustment: %w", err)
		}
		a.Amount = amount
		result[a.EmployeeID] = append(result[a.EmployeeID], a)
	}

	return result, rows.Err()
}
