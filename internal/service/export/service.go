package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/cc-visionary/payroll-os-sub004/internal/domain/payroll"
	appJWT "github.com/cc-visionary/payroll-os-sub004/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type ExportServiceImpl struct {
	payrollRepo payroll.PayrollRepository
}

func NewExportService(payrollRepo payroll.PayrollRepository) payroll.ExportService {
	return &ExportServiceImpl{payrollRepo: payrollRepo}
}

func getCompanyFromContext(ctx context.Context) (string, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", appJWT.ErrInvalidToken, err)
	}

	companyID, ok := claims["company_id"].(string)
	if !ok || companyID == "" {
		return "", appJWT.ErrMissingCompany
	}
	return companyID, nil
}

// finalizedRun loads a run and refuses anything that is not approved or released.
func (s *ExportServiceImpl) finalizedRun(ctx context.Context, runID string) (payroll.PayrollRun, string, error) {
	companyID, err := getCompanyFromContext(ctx)
	if err != nil {
		return payroll.PayrollRun{}, "", err
	}

	run, err := s.payrollRepo.GetRunByID(ctx, runID, companyID)
	if err != nil {
		return payroll.PayrollRun{}, "", err
	}
	if !run.Status.IsLocked() {
		return payroll.PayrollRun{}, "", fmt.Errorf("%w: run %s is %s", payroll.ErrRunNotFinalized, run.ID, run.Status)
	}
	return run, companyID, nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// ========== BANK FILE ==========

// WriteBankFile writes one disbursement row per payslip with a positive net pay.
func (s *ExportServiceImpl) WriteBankFile(ctx context.Context, runID string, w io.Writer) error {
	run, companyID, err := s.finalizedRun(ctx, runID)
	if err != nil {
		return err
	}

	payslips, err := s.payrollRepo.ListPayslips(ctx, run.ID, companyID)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"employee_code", "full_name", "bank_name", "account_number", "net_pay", "pay_date"}); err != nil {
		return fmt.Errorf("write bank file header: %w", err)
	}
	payDate := run.Period.PayDate.Format("2006-01-02")
	for _, p := range payslips {
		if !p.Result.NetPay.IsPositive() {
			continue
		}
		row := []string{p.EmployeeCode, p.FullName, p.BankName, p.BankAccountNumber, money(p.Result.NetPay), payDate}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write bank file row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ========== CONTRIBUTION REPORT ==========

type contributionSheet struct {
	name    string
	kinds   []payroll.ContributionKind
	headers []string
}

var contributionSheets = []contributionSheet{
	{
		name:    "SSS",
		kinds:   []payroll.ContributionKind{payroll.ContributionSS, payroll.ContributionEC, payroll.ContributionMPF},
		headers: []string{"SS EE", "SS ER", "EC EE", "EC ER", "MPF EE", "MPF ER"},
	},
	{
		name:    "PhilHealth",
		kinds:   []payroll.ContributionKind{payroll.ContributionPhilHealth},
		headers: []string{"EE", "ER"},
	},
	{
		name:    "Pag-IBIG",
		kinds:   []payroll.ContributionKind{payroll.ContributionPagIbig},
		headers: []string{"EE", "ER"},
	},
}

// WriteContributionReport writes an XLSX workbook with one sheet per agency.
func (s *ExportServiceImpl) WriteContributionReport(ctx context.Context, runID string, w io.Writer) error {
	run, companyID, err := s.finalizedRun(ctx, runID)
	if err != nil {
		return err
	}

	payslips, err := s.payrollRepo.ListPayslips(ctx, run.ID, companyID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range contributionSheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet.name); err != nil {
			return err
		}

		header := []interface{}{"Employee Code", "Full Name"}
		for _, h := range sheet.headers {
			header = append(header, h)
		}
		header = append(header, "Total EE", "Total ER")
		if err := f.SetSheetRow(sheet.name, "A1", &header); err != nil {
			return err
		}

		row := 2
		for _, p := range payslips {
			shares := make(map[payroll.ContributionKind]payroll.ContributionComponent, len(p.Result.Contributions))
			for _, c := range p.Result.Contributions {
				shares[c.Kind] = c
			}

			values := []interface{}{p.EmployeeCode, p.FullName}
			totalEE, totalER := decimal.Zero, decimal.Zero
			found := false
			for _, kind := range sheet.kinds {
				c, ok := shares[kind]
				if !ok {
					c = payroll.ContributionComponent{EmployeeShare: decimal.Zero, EmployerShare: decimal.Zero}
				} else {
					found = true
				}
				values = append(values, c.EmployeeShare.InexactFloat64(), c.EmployerShare.InexactFloat64())
				totalEE = totalEE.Add(c.EmployeeShare)
				totalER = totalER.Add(c.EmployerShare)
			}
			if !found {
				continue
			}
			values = append(values, totalEE.InexactFloat64(), totalER.InexactFloat64())

			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet.name, cell, &values); err != nil {
				return err
			}
			row++
		}
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

// ========== PAYSLIP PDF ==========

// WritePayslipPDF renders one employee's finalized payslip.
func (s *ExportServiceImpl) WritePayslipPDF(ctx context.Context, runID string, employeeID string, w io.Writer) error {
	run, companyID, err := s.finalizedRun(ctx, runID)
	if err != nil {
		return err
	}

	p, err := s.payrollRepo.GetPayslip(ctx, run.ID, employeeID, companyID)
	if err != nil {
		return err
	}
	result := p.Result

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Payslip %s %s", p.EmployeeCode, run.Period.PayDate.Format("2006-01-02")), false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Employee: %s (%s)", p.FullName, p.EmployeeCode))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Period: %s to %s", run.Period.Start.Format("2006-01-02"), run.Period.End.Format("2006-01-02")))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Pay date: %s", run.Period.PayDate.Format("2006-01-02")))
	pdf.Ln(10)

	section := func(title string, kind payroll.LineKind) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(100, 7, title, "B", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, "Qty", "B", 0, "R", false, 0, "")
		pdf.CellFormat(20, 7, "x", "B", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, "Amount", "B", 1, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, line := range result.Lines {
			if line.Kind != kind {
				continue
			}
			qty, mult := "", ""
			if line.Quantity != nil {
				qty = line.Quantity.String()
			}
			if line.Multiplier != nil {
				mult = line.Multiplier.String()
			}
			pdf.CellFormat(100, 6, line.Description, "", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, qty, "", 0, "R", false, 0, "")
			pdf.CellFormat(20, 6, mult, "", 0, "R", false, 0, "")
			pdf.CellFormat(40, 6, money(line.Amount), "", 1, "R", false, 0, "")
		}
		pdf.Ln(4)
	}
	section("Earnings", payroll.LineKindEarning)
	section("Deductions", payroll.LineKindDeduction)

	pdf.SetFont("Helvetica", "B", 11)
	totals := [][2]string{
		{"Gross pay", money(result.GrossPay)},
		{"Total deductions", money(result.TotalDeductions)},
		{"Net pay", money(result.NetPay)},
	}
	for _, t := range totals {
		pdf.CellFormat(150, 7, t[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, t[1], "", 1, "R", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 5, fmt.Sprintf("Year to date: gross %s, taxable %s, tax withheld %s",
		money(result.YTD.GrossPay), money(result.YTD.TaxableIncome), money(result.YTD.TaxWithheld)))
	pdf.Ln(5)
	pdf.Cell(0, 5, fmt.Sprintf("Computed with %s and %s", result.RuleSetVersion, result.StatutoryVersion))

	return pdf.Output(w)
}
