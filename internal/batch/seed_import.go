package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"loan-engine/internal/domain/customer"
	"loan-engine/internal/domain/loan"
	"loan-engine/internal/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var (
	customerSeedColumns = []string{"customer_id", "first_name", "last_name", "age", "phone_number", "monthly_salary"}
	loanSeedColumns     = []string{"customer_id", "loan_amount", "tenure", "interest_rate"}

	seedColumnAliases = map[string]string{
		"monthly_payment":   "monthly_installment",
		"monthly_repayment": "monthly_installment",
		"date_of_approval":  "start_date",
		"emis_paid":         "emis_paid_on_time",
	}

	seedDateLayouts = []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		time.RFC3339,
		"01/02/2006",
		"1/2/06",
		"02-01-2006",
	}
)

// SeedFiles names the workbooks read by ImportFiles. Only the first sheet of
// each workbook is used.
type SeedFiles struct {
	Customers string
	Loans     string
}

type SeedResult struct {
	AlreadySeeded     bool
	CustomersImported int
	CustomersSkipped  int
	LoansImported     int
	LoansSkipped      int
}

// SeedImporter loads historical customers and loans into empty storage.
// Rows that fail validation are logged and skipped.
type SeedImporter struct {
	customers customer.CustomerRepository
	loans     loan.Repository
	limits    customer.LimitPolicy
	logger    *slog.Logger
	now       func() time.Time
}

func NewSeedImporter(customers customer.CustomerRepository, loans loan.Repository, limits customer.LimitPolicy, logger *slog.Logger) *SeedImporter {
	if customers == nil || loans == nil || logger == nil {
		panic("SeedImporter dependencies cannot be nil")
	}
	return &SeedImporter{
		customers: customers,
		loans:     loans,
		limits:    limits,
		logger:    logger.With("job", "SeedImport"),
		now:       time.Now,
	}
}

func (s *SeedImporter) ImportFiles(ctx context.Context, files SeedFiles) (*SeedResult, error) {
	customerRows, err := readFirstSheet(files.Customers)
	if err != nil {
		return nil, err
	}
	loanRows, err := readFirstSheet(files.Loans)
	if err != nil {
		return nil, err
	}
	return s.Import(ctx, customerRows, loanRows)
}

func readFirstSheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook %s has no sheets", apperrors.ErrInvalidArgument, path)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheets[0], path, err)
	}
	return rows, nil
}

// Import writes the rows through the repositories. Each table starts with a
// header row. Nothing is written when any customer already exists.
func (s *SeedImporter) Import(ctx context.Context, customerRows, loanRows [][]string) (*SeedResult, error) {
	existing, err := s.customers.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing customers: %w", err)
	}
	if len(existing) > 0 {
		s.logger.InfoContext(ctx, "Storage already holds customers, skipping seed import.", "customers", len(existing))
		return &SeedResult{AlreadySeeded: true}, nil
	}

	customerSheet, err := newSeedSheet("customers", customerRows, customerSeedColumns)
	if err != nil {
		return nil, err
	}
	loanSheet, err := newSeedSheet("loans", loanRows, loanSeedColumns)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	result := &SeedResult{}
	ids := make(map[int64]int64, len(customerSheet.rows))

	for i, row := range customerSheet.rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if isBlankRow(row) {
			continue
		}
		sheetID, cust, err := s.customerFromRow(customerSheet, row)
		if err == nil {
			if _, dup := ids[sheetID]; dup {
				err = fmt.Errorf("%w: customer_id %d appears more than once", apperrors.ErrInvalidArgument, sheetID)
			}
		}
		if err == nil {
			err = s.customers.Save(ctx, cust)
		}
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping customer row", "row", i+2, slog.Any("error", err))
			result.CustomersSkipped++
			continue
		}
		ids[sheetID] = cust.CustomerID
		result.CustomersImported++
	}

	loansByCustomer := make(map[int64][]*loan.Loan)
	for i, row := range loanSheet.rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if isBlankRow(row) {
			continue
		}
		l, err := s.loanFromRow(loanSheet, row, ids)
		if err == nil {
			err = s.loans.Save(ctx, l)
		}
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping loan row", "row", i+2, slog.Any("error", err))
			result.LoansSkipped++
			continue
		}
		loansByCustomer[l.CustomerID] = append(loansByCustomer[l.CustomerID], l)
		result.LoansImported++
	}

	for customerID, loans := range loansByCustomer {
		if err := s.customers.UpdateCurrentDebt(ctx, customerID, loan.CurrentDebt(loans)); err != nil {
			s.logger.ErrorContext(ctx, "Failed to set current debt for seeded customer", "customer_id", customerID, slog.Any("error", err))
		}
	}

	s.logger.InfoContext(ctx, "Seed import finished.",
		slog.Int("customers_imported", result.CustomersImported),
		slog.Int("customers_skipped", result.CustomersSkipped),
		slog.Int("loans_imported", result.LoansImported),
		slog.Int("loans_skipped", result.LoansSkipped),
		slog.Duration("duration", time.Since(startTime)),
	)
	return result, nil
}

func (s *SeedImporter) customerFromRow(sheet *seedSheet, row []string) (int64, *customer.Customer, error) {
	var errs []error
	sheetID, err := seedWholeNumber(sheet.value(row, "customer_id"))
	if err != nil {
		errs = append(errs, apperrors.NewValidationError("customer_id", err.Error()))
	}
	age, err := seedCount(sheet.value(row, "age"))
	if err != nil {
		errs = append(errs, apperrors.NewValidationError("age", err.Error()))
	}
	salary, err := seedWholeNumber(sheet.value(row, "monthly_salary"))
	if err != nil {
		errs = append(errs, apperrors.NewValidationError("monthly_salary", err.Error()))
	}
	if err := apperrors.JoinValidation(errs...); err != nil {
		return 0, nil, err
	}

	reg := customer.Registration{
		FirstName:     sheet.value(row, "first_name"),
		LastName:      sheet.value(row, "last_name"),
		Age:           age,
		MonthlySalary: salary,
		PhoneNumber:   seedPhoneNumber(sheet.value(row, "phone_number")),
	}
	if err := reg.Validate(); err != nil {
		return 0, nil, err
	}
	cust := customer.NewCustomer(reg, s.limits)

	if raw := sheet.value(row, "approved_limit"); raw != "" {
		limit, err := seedWholeNumber(raw)
		if err != nil {
			return 0, nil, apperrors.NewValidationError("approved_limit", err.Error())
		}
		if limit < 0 {
			return 0, nil, apperrors.NewValidationError("approved_limit", "must not be negative")
		}
		cust.ApprovedLimit = limit
	}
	return sheetID, cust, nil
}

func (s *SeedImporter) loanFromRow(sheet *seedSheet, row []string, ids map[int64]int64) (*loan.Loan, error) {
	sheetCustomerID, err := seedWholeNumber(sheet.value(row, "customer_id"))
	if err != nil {
		return nil, apperrors.NewValidationError("customer_id", err.Error())
	}
	customerID, ok := ids[sheetCustomerID]
	if !ok {
		return nil, fmt.Errorf("%w: customer_id %d was not imported", customer.ErrNotFound, sheetCustomerID)
	}

	var errs []error
	amount, err := seedNumber(sheet.value(row, "loan_amount"))
	if err != nil {
		errs = append(errs, apperrors.NewValidationError("loan_amount", err.Error()))
	}
	rate, err := seedNumber(sheet.value(row, "interest_rate"))
	if err != nil {
		errs = append(errs, apperrors.NewValidationError("interest_rate", err.Error()))
	}
	tenure, err := seedCount(sheet.value(row, "tenure"))
	if err != nil {
		errs = append(errs, apperrors.NewValidationError("tenure", err.Error()))
	}
	paidOnTime := 0
	if raw := sheet.value(row, "emis_paid_on_time"); raw != "" {
		paidOnTime, err = seedCount(raw)
		if err == nil && paidOnTime < 0 {
			err = errors.New("must not be negative")
		}
		if err != nil {
			errs = append(errs, apperrors.NewValidationError("emis_paid_on_time", err.Error()))
		}
	}
	if err := apperrors.JoinValidation(errs...); err != nil {
		return nil, err
	}

	app := loan.Application{
		CustomerID:   customerID,
		LoanAmount:   amount.InexactFloat64(),
		InterestRate: rate.InexactFloat64(),
		Tenure:       tenure,
	}
	if err := app.Validate(0, 0, 0); err != nil {
		return nil, err
	}

	var installment float64
	if raw := sheet.value(row, "monthly_installment"); raw != "" {
		v, err := seedNumber(raw)
		if err != nil || !v.IsPositive() {
			return nil, apperrors.NewValidationError("monthly_installment", "must be a positive number")
		}
		installment = v.Round(2).InexactFloat64()
	} else if installment, err = loan.MonthlyInstallment(app.LoanAmount, app.InterestRate, app.Tenure); err != nil {
		return nil, err
	}

	start := s.now()
	if raw := sheet.value(row, "start_date"); raw != "" {
		if start, err = parseSeedDate(raw); err != nil {
			return nil, apperrors.NewValidationError("start_date", err.Error())
		}
	}

	l := loan.NewLoan(app, app.InterestRate, installment, start)
	l.EMIsPaidOnTime = min(paidOnTime, tenure)
	l.RepaymentsLeft = max(0, tenure-paidOnTime)

	if raw := sheet.value(row, "end_date"); raw != "" {
		end, err := parseSeedDate(raw)
		if err != nil {
			return nil, apperrors.NewValidationError("end_date", err.Error())
		}
		end = end.UTC()
		l.EndDate = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	}
	return l, nil
}

type seedSheet struct {
	columns map[string]int
	rows    [][]string
}

func newSeedSheet(name string, rows [][]string, required []string) (*seedSheet, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s sheet has no header row", apperrors.ErrInvalidArgument, name)
	}
	columns := make(map[string]int, len(rows[0]))
	for i, header := range rows[0] {
		key := normalizeSeedHeader(header)
		if alias, ok := seedColumnAliases[key]; ok {
			key = alias
		}
		if _, seen := columns[key]; !seen && key != "" {
			columns[key] = i
		}
	}

	var missing []string
	for _, col := range required {
		if _, ok := columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s sheet is missing columns %s", apperrors.ErrInvalidArgument, name, strings.Join(missing, ", "))
	}
	return &seedSheet{columns: columns, rows: rows[1:]}, nil
}

func (s *seedSheet) value(row []string, column string) string {
	i, ok := s.columns[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// normalizeSeedHeader maps "EMIs paid on Time" to "emis_paid_on_time".
func normalizeSeedHeader(header string) string {
	fields := strings.FieldsFunc(strings.ToLower(header), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '.'
	})
	return strings.Join(fields, "_")
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func seedNumber(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, errors.New("is required")
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return decimal.Zero, errors.New("must be a number")
	}
	return d, nil
}

func seedWholeNumber(raw string) (int64, error) {
	d, err := seedNumber(raw)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, errors.New("must be a whole number")
	}
	if !d.BigInt().IsInt64() {
		return 0, errors.New("is out of range")
	}
	return d.IntPart(), nil
}

func seedCount(raw string) (int, error) {
	n, err := seedWholeNumber(raw)
	if err != nil {
		return 0, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, errors.New("is out of range")
	}
	return int(n), nil
}

// seedPhoneNumber undoes the scientific notation spreadsheets apply to long
// numeric cells. Plain digit strings keep their leading zeros.
func seedPhoneNumber(raw string) string {
	if !strings.ContainsAny(raw, ".eE") {
		return raw
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsInteger() {
		return raw
	}
	return d.String()
}

// parseSeedDate accepts Excel date serials as well as common text layouts.
func parseSeedDate(raw string) (time.Time, error) {
	if d, err := decimal.NewFromString(raw); err == nil {
		t, err := excelize.ExcelDateToTime(d.InexactFloat64(), false)
		if err != nil {
			return time.Time{}, errors.New("is not a valid date")
		}
		return t, nil
	}
	for _, layout := range seedDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("is not a valid date")
}
