package dashboard

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
)

// TopEmployeeLimit is the size of the BFKO leaderboard.
const TopEmployeeLimit = 10

// MonthTotal is one bar of the BFKO monthly chart.
type MonthTotal struct {
	Month string          `json:"bulan"`
	Total decimal.Decimal `json:"total"`
}

// EmployeeSummary groups one employee's installments.
type EmployeeSummary struct {
	EmployeeID   string                    `json:"nip"`
	EmployeeName string                    `json:"nama"`
	Role         string                    `json:"jabatan"`
	Unit         string                    `json:"unit"`
	Total        decimal.Decimal           `json:"total"`
	Payments     []core.InstallmentPayment `json:"payments"`
}

// SortByMonth orders payments by calendar month, newest year first within a month.
func SortByMonth(payments []core.InstallmentPayment) {
	sort.SliceStable(payments, func(i, j int) bool {
		mi, mj := core.MonthOrdinal(payments[i].Month), core.MonthOrdinal(payments[j].Month)
		if mi != mj {
			return mi < mj
		}
		return payments[i].Year > payments[j].Year
	})
}

// SortByYearThenMonth orders newest year first, then calendar month.
func SortByYearThenMonth(payments []core.InstallmentPayment) {
	sort.SliceStable(payments, func(i, j int) bool {
		if payments[i].Year != payments[j].Year {
			return payments[i].Year > payments[j].Year
		}
		return core.MonthOrdinal(payments[i].Month) < core.MonthOrdinal(payments[j].Month)
	})
}

// SortForSpreadsheet orders export rows by name, then newest year, then month.
func SortForSpreadsheet(payments []core.InstallmentPayment) {
	sort.SliceStable(payments, func(i, j int) bool {
		a, b := payments[i], payments[j]
		if a.EmployeeName != b.EmployeeName {
			return a.EmployeeName < b.EmployeeName
		}
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		return core.MonthOrdinal(a.Month) < core.MonthOrdinal(b.Month)
	})
}

// MonthlyTotals groups payments by bulan and orders the groups by month,
// with unknown names last in first-seen order.
func MonthlyTotals(payments []core.InstallmentPayment) []MonthTotal {
	index := make(map[string]int)
	var out []MonthTotal
	for _, p := range payments {
		i, ok := index[p.Month]
		if !ok {
			i = len(out)
			index[p.Month] = i
			out = append(out, MonthTotal{Month: p.Month})
		}
		out[i].Total = out[i].Total.Add(p.Amount)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return core.MonthOrdinal(out[i].Month) < core.MonthOrdinal(out[j].Month)
	})
	return out
}

type employeeKey struct {
	nip, nama, jabatan, unit string
}

// Employees groups payments by (nip, nama, jabatan, unit), orders groups by
// total descending and sorts each group's payments by month.
func Employees(payments []core.InstallmentPayment) []EmployeeSummary {
	index := make(map[employeeKey]int)
	var out []EmployeeSummary
	for _, p := range payments {
		k := employeeKey{p.EmployeeID, p.EmployeeName, p.Role, p.Unit}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, EmployeeSummary{
				EmployeeID:   p.EmployeeID,
				EmployeeName: p.EmployeeName,
				Role:         p.Role,
				Unit:         p.Unit,
			})
		}
		out[i].Total = out[i].Total.Add(p.Amount)
		out[i].Payments = append(out[i].Payments, p)
	}
	for i := range out {
		SortByMonth(out[i].Payments)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.GreaterThan(out[j].Total)
	})
	return out
}

// TopEmployees returns at most n leading entries of an Employees result.
func TopEmployees(all []EmployeeSummary, n int) []EmployeeSummary {
	if len(all) > n {
		return all[:n]
	}
	return all
}

// ReportEmployee is an employee block of the printable report.
type ReportEmployee = EmployeeSummary

// Report is the grouped data behind the PDF export.
type Report struct {
	YearLabel string
	Employees []ReportEmployee
	Total     decimal.Decimal
}

// BuildReport groups payments per nip, in order of employee name, for printing.
func BuildReport(payments []core.InstallmentPayment, yearLabel string) Report {
	rows := make([]core.InstallmentPayment, len(payments))
	copy(rows, payments)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].EmployeeName < rows[j].EmployeeName
	})

	report := Report{YearLabel: yearLabel}
	index := make(map[string]int)
	for _, p := range rows {
		i, ok := index[p.EmployeeID]
		if !ok {
			i = len(report.Employees)
			index[p.EmployeeID] = i
			report.Employees = append(report.Employees, ReportEmployee{
				EmployeeID:   p.EmployeeID,
				EmployeeName: p.EmployeeName,
				Role:         p.Role,
				Unit:         p.Unit,
			})
		}
		report.Employees[i].Total = report.Employees[i].Total.Add(p.Amount)
		report.Employees[i].Payments = append(report.Employees[i].Payments, p)
		report.Total = report.Total.Add(p.Amount)
	}
	for i := range report.Employees {
		SortByYearThenMonth(report.Employees[i].Payments)
	}
	return report
}
