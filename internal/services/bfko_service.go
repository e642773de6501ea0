package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/amqp"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/dashboard"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/export"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/importer"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/storage"
)

// AllFilter is the query value meaning "no restriction".
const AllFilter = "all"

// InstallmentStore is the BFKO part of the record store.
type InstallmentStore interface {
	Installments(ctx context.Context, f core.Filter) ([]core.InstallmentPayment, error)
	EmployeeInstallments(ctx context.Context, nip string, year int) ([]core.InstallmentPayment, error)
	InstallmentYears(ctx context.Context) ([]int, error)
	EmployeeYears(ctx context.Context, nip string) ([]int, error)
	CountEmployees(ctx context.Context, year int) (int, error)
	GetInstallment(ctx context.Context, id int64) (core.InstallmentPayment, error)
	CreateInstallment(ctx context.Context, p core.InstallmentPayment) (int64, error)
	UpdateInstallment(ctx context.Context, p core.InstallmentPayment) error
	DeleteInstallment(ctx context.Context, id int64) error
	DeleteEmployee(ctx context.Context, nip string, year int) (int64, error)
	DeleteAllInstallments(ctx context.Context) (int64, error)
	UpsertInstallments(ctx context.Context, rows []core.InstallmentPayment) (storage.UpsertResult, error)
}

// PaymentInput is the BFKO payment form.
type PaymentInput struct {
	NIP            string `json:"nip" validate:"required"`
	Nama           string `json:"nama" validate:"required"`
	Jabatan        string `json:"jabatan" validate:"required"`
	Unit           string `json:"unit"`
	Bulan          string `json:"bulan" validate:"required"`
	Tahun          string `json:"tahun" validate:"required,numeric"`
	NilaiAngsuran  string `json:"nilai_angsuran" validate:"required,numeric"`
	TanggalBayar   string `json:"tanggal_bayar"`
	StatusAngsuran string `json:"status_angsuran"`
}

// PaymentUpdateInput carries the fields an existing payment may change.
type PaymentUpdateInput struct {
	Bulan          string `json:"bulan" validate:"required"`
	Tahun          string `json:"tahun" validate:"required,numeric"`
	NilaiAngsuran  string `json:"nilai_angsuran" validate:"required,numeric"`
	TanggalBayar   string `json:"tanggal_bayar"`
	StatusAngsuran string `json:"status_angsuran"`
}

// BfkoFilters echoes the effective filter back to the page.
type BfkoFilters struct {
	Bulan string `json:"bulan"`
	Tahun string `json:"tahun"`
}

type BfkoSummary struct {
	TotalPayments  decimal.Decimal `json:"totalPayments"`
	TotalRecords   int             `json:"totalRecords"`
	TotalEmployees int             `json:"totalEmployees"`
}

// BfkoOverview is the BFKO monitoring page model.
type BfkoOverview struct {
	Filters      BfkoFilters                 `json:"filters"`
	Years        []int                       `json:"years"`
	Months       []string                    `json:"months"`
	Summary      BfkoSummary                 `json:"summary"`
	MonthlyData  []dashboard.MonthTotal      `json:"monthlyData"`
	TopEmployees []dashboard.EmployeeSummary `json:"topEmployees"`
	AllEmployees []dashboard.EmployeeSummary `json:"allEmployees"`
}

// EmployeeDetail is one employee's payment history.
type EmployeeDetail struct {
	Employee       dashboard.EmployeeSummary `json:"employee"`
	AvailableYears []int                     `json:"availableYears"`
	SelectedYear   string                    `json:"selectedYear"`
}

// ImportSummary reports a finished BFKO import.
type ImportSummary struct {
	Inserted int      `json:"inserted"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Warnings []string `json:"warnings,omitempty"`
	Message  string   `json:"message"`
}

// Download is a generated file ready to send.
type Download struct {
	Filename    string
	ContentType string
	Body        []byte
}

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfContentType  = "application/pdf"
)

type BfkoService struct {
	store  InstallmentStore
	notify changeNotifier
	now    func() time.Time
}

func NewBfkoService(store InstallmentStore, publisher Publisher, cache Invalidator) *BfkoService {
	return &BfkoService{
		store:  store,
		notify: changeNotifier{publisher: publisher, cache: cache},
		now:    time.Now,
	}
}

// parseYear turns a tahun value into a year, 0 meaning all years.
func parseYear(s string) (int, error) {
	year, all, err := core.ParseYearParam(s)
	if err != nil {
		return 0, err
	}
	if all {
		return 0, nil
	}
	return year, nil
}

// Overview builds the BFKO page. bulan defaults to all months; tahun defaults
// to the latest year with data, or the current year when there is none.
func (s *BfkoService) Overview(ctx context.Context, bulan, tahun string) (BfkoOverview, error) {
	years, err := s.store.InstallmentYears(ctx)
	if err != nil {
		return BfkoOverview{}, err
	}

	bulan = strings.TrimSpace(bulan)
	if bulan == "" {
		bulan = AllFilter
	}
	tahun = strings.TrimSpace(tahun)
	if tahun == "" {
		latest := s.now().Year()
		if len(years) > 0 {
			latest = years[0]
		}
		tahun = strconv.Itoa(latest)
	}

	year, err := parseYear(tahun)
	if err != nil {
		return BfkoOverview{}, err
	}
	yearOnly := core.Filter{Year: year}
	filter := yearOnly
	if !strings.EqualFold(bulan, AllFilter) {
		bulan = core.NormalizeMonthName(bulan)
		filter.Month = core.MonthOrdinal(bulan)
	} else {
		bulan = AllFilter
	}
	if year == 0 {
		tahun = AllFilter
	}

	rows, err := s.store.Installments(ctx, filter)
	if err != nil {
		return BfkoOverview{}, err
	}
	yearRows := rows
	if filter.Month != 0 {
		if yearRows, err = s.store.Installments(ctx, yearOnly); err != nil {
			return BfkoOverview{}, err
		}
	}
	employees, err := s.store.CountEmployees(ctx, year)
	if err != nil {
		return BfkoOverview{}, err
	}

	summary := BfkoSummary{TotalRecords: len(rows), TotalEmployees: employees}
	for _, p := range rows {
		summary.TotalPayments = summary.TotalPayments.Add(p.Amount)
	}
	all := dashboard.Employees(rows)

	return BfkoOverview{
		Filters:      BfkoFilters{Bulan: bulan, Tahun: tahun},
		Years:        years,
		Months:       core.MonthNames(),
		Summary:      summary,
		MonthlyData:  dashboard.MonthlyTotals(yearRows),
		TopEmployees: dashboard.TopEmployees(all, dashboard.TopEmployeeLimit),
		AllEmployees: all,
	}, nil
}

// EmployeeDetail returns the payments of nip, optionally for one year.
func (s *BfkoService) EmployeeDetail(ctx context.Context, nip, tahun string) (EmployeeDetail, error) {
	year, err := parseYear(tahun)
	if err != nil {
		return EmployeeDetail{}, err
	}
	rows, err := s.store.EmployeeInstallments(ctx, nip, year)
	if err != nil {
		return EmployeeDetail{}, err
	}
	if len(rows) == 0 {
		return EmployeeDetail{}, core.ErrNotFound
	}
	years, err := s.store.EmployeeYears(ctx, nip)
	if err != nil {
		return EmployeeDetail{}, err
	}

	dashboard.SortByMonth(rows)
	first := rows[0]
	emp := dashboard.EmployeeSummary{
		EmployeeID:   first.EmployeeID,
		EmployeeName: first.EmployeeName,
		Role:         first.Role,
		Unit:         first.Unit,
		Payments:     rows,
	}
	for _, p := range rows {
		emp.Total = emp.Total.Add(p.Amount)
	}

	selected := AllFilter
	if year != 0 {
		selected = strconv.Itoa(year)
	}
	return EmployeeDetail{Employee: emp, AvailableYears: years, SelectedYear: selected}, nil
}

func paymentFields(bulan, tahun, nilai string) (string, int, decimal.Decimal, error) {
	year, err := strconv.Atoi(strings.TrimSpace(tahun))
	if err != nil {
		return "", 0, decimal.Zero, fieldError("tahun", "numeric")
	}
	amount, err := core.ParseAmount(nilai)
	if err != nil {
		return "", 0, decimal.Zero, fieldError("nilai_angsuran", "numeric")
	}
	return core.NormalizeMonthName(bulan), year, amount, nil
}

func (s *BfkoService) CreatePayment(ctx context.Context, in PaymentInput) (int64, error) {
	if err := validateInput(in); err != nil {
		return 0, err
	}
	bulan, year, amount, err := paymentFields(in.Bulan, in.Tahun, in.NilaiAngsuran)
	if err != nil {
		return 0, err
	}
	p := core.InstallmentPayment{
		EmployeeID:   strings.TrimSpace(in.NIP),
		EmployeeName: strings.TrimSpace(in.Nama),
		Role:         strings.TrimSpace(in.Jabatan),
		Unit:         strings.TrimSpace(in.Unit),
		Month:        bulan,
		Year:         year,
		Amount:       amount,
		PaidDate:     strings.TrimSpace(in.TanggalBayar),
		Status:       strings.TrimSpace(in.StatusAngsuran),
	}
	if err := p.Validate(); err != nil {
		return 0, err
	}

	id, err := s.store.CreateInstallment(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("save payment: %w", err)
	}
	s.notify.changed(ctx, amqp.CategoryInstallment, amqp.ActionCreated, 1, year)
	return id, nil
}

func (s *BfkoService) UpdatePayment(ctx context.Context, id int64, in PaymentUpdateInput) error {
	if err := validateInput(in); err != nil {
		return err
	}
	bulan, year, amount, err := paymentFields(in.Bulan, in.Tahun, in.NilaiAngsuran)
	if err != nil {
		return err
	}

	p, err := s.store.GetInstallment(ctx, id)
	if err != nil {
		return err
	}
	p.Month = bulan
	p.Year = year
	p.Amount = amount
	p.PaidDate = strings.TrimSpace(in.TanggalBayar)
	p.Status = strings.TrimSpace(in.StatusAngsuran)
	if err := p.Validate(); err != nil {
		return err
	}

	if err := s.store.UpdateInstallment(ctx, p); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	s.notify.changed(ctx, amqp.CategoryInstallment, amqp.ActionUpdated, 1, year)
	return nil
}

func (s *BfkoService) DeletePayment(ctx context.Context, id int64) error {
	if err := s.store.DeleteInstallment(ctx, id); err != nil {
		return err
	}
	s.notify.changed(ctx, amqp.CategoryInstallment, amqp.ActionDeleted, 1, 0)
	return nil
}

// DeleteEmployee removes an employee's payments, within one year when year
// is given, and returns the confirmation message.
func (s *BfkoService) DeleteEmployee(ctx context.Context, nip, year string) (string, error) {
	rows, err := s.store.EmployeeInstallments(ctx, nip, 0)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", core.ErrNotFound
	}
	name := rows[0].EmployeeName

	y, err := parseYear(year)
	if err != nil {
		return "", err
	}
	n, err := s.store.DeleteEmployee(ctx, nip, y)
	if err != nil {
		return "", err
	}
	s.notify.changed(ctx, amqp.CategoryInstallment, amqp.ActionDeleted, int(n), y)

	if y != 0 {
		return fmt.Sprintf("Data pegawai %s tahun %d berhasil dihapus (%d record)", name, y, n), nil
	}
	return fmt.Sprintf("Semua data pegawai %s berhasil dihapus (%d record)", name, n), nil
}

func (s *BfkoService) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteAllInstallments(ctx)
	if err != nil {
		return 0, err
	}
	s.notify.changed(ctx, amqp.CategoryInstallment, amqp.ActionDeleted, int(n), 0)
	return n, nil
}

// InstallmentImportMessage renders the result line shown after an import.
func InstallmentImportMessage(inserted, updated, warnings int) string {
	msg := fmt.Sprintf("Import berhasil! %d data baru", inserted)
	if updated > 0 {
		msg += fmt.Sprintf(", %d data diupdate", updated)
	}
	if warnings > 0 {
		msg += fmt.Sprintf(". Warning: %d errors occurred.", warnings)
	}
	return msg
}

// Import reads a BFKO CSV and upserts its rows in one transaction.
func (s *BfkoService) Import(ctx context.Context, r io.Reader) (ImportSummary, error) {
	batch, err := importer.ReadInstallments(r)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("read csv: %w", err)
	}

	res, err := s.store.UpsertInstallments(ctx, batch.Rows)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("import installments: %w", err)
	}

	warnings := append(batch.Warnings, res.Warnings...)
	summary := ImportSummary{
		Inserted: res.Inserted,
		Updated:  res.Updated,
		Skipped:  batch.Skipped,
		Warnings: warnings,
		Message:  InstallmentImportMessage(res.Inserted, res.Updated, len(warnings)),
	}
	slog.InfoContext(ctx, "BFKO import finished",
		"inserted", summary.Inserted,
		"updated", summary.Updated,
		"skipped", summary.Skipped,
		"warnings", len(warnings))

	if res.Inserted+res.Updated > 0 {
		s.notify.changed(ctx, amqp.CategoryInstallment, amqp.ActionImported, res.Inserted+res.Updated, 0)
	}
	return summary, nil
}

func (s *BfkoService) exportRows(ctx context.Context, tahun string) ([]core.InstallmentPayment, int, error) {
	year, err := parseYear(tahun)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.store.Installments(ctx, core.Filter{Year: year})
	if err != nil {
		return nil, 0, err
	}
	return rows, year, nil
}

// ExportExcel builds the spreadsheet download for tahun ("all" or a year).
func (s *BfkoService) ExportExcel(ctx context.Context, tahun string) (Download, error) {
	rows, year, err := s.exportRows(ctx, tahun)
	if err != nil {
		return Download{}, err
	}
	var buf bytes.Buffer
	if err := export.WriteExcel(&buf, rows, year); err != nil {
		return Download{}, err
	}
	return Download{
		Filename:    export.ExcelFilename(year, s.now()),
		ContentType: xlsxContentType,
		Body:        buf.Bytes(),
	}, nil
}

// ExportPDF builds the printable report for tahun ("all" or a year).
func (s *BfkoService) ExportPDF(ctx context.Context, tahun string) (Download, error) {
	rows, year, err := s.exportRows(ctx, tahun)
	if err != nil {
		return Download{}, err
	}
	now := s.now()
	var buf bytes.Buffer
	if err := export.WritePDF(&buf, dashboard.BuildReport(rows, export.YearLabel(year)), now); err != nil {
		return Download{}, err
	}
	return Download{
		Filename:    export.PDFFilename(year, now),
		ContentType: pdfContentType,
		Body:        buf.Bytes(),
	}, nil
}
