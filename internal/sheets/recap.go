// Package sheets turns the dashboard read model into a flat table and defines
// the ports through which that table is mirrored.
package sheets

import (
	"slices"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/dashboard"
)

// RecapTitle heads the first row of every recap.
const RecapTitle = "Dashboard Monitoring"

const generatedLayout = "02-01-2006 15:04:05"

// Recap is the dashboard as spreadsheet rows. Row 0 is the title row with
// the generation time; the rest is data.
type Recap struct {
	Rows [][]string
}

func amount(d decimal.Decimal) string { return d.StringFixed(0) }

func share(p float64) string { return strconv.FormatFloat(p, 'f', 2, 64) }

// BuildRecap lays out the category totals, then a blank row, then the
// twelve month matrix.
func BuildRecap(m dashboard.ReadModel, at time.Time) Recap {
	t := m.Totals
	rows := [][]string{
		{RecapTitle, "Diperbarui", at.Format(generatedLayout)},
		{"Kategori", "Total", "Jumlah", "Persentase"},
		{core.CategoryInstallment, amount(t.Installment.Total), strconv.Itoa(t.Installment.Count), share(m.Shares.Installment)},
		{core.CategoryCard, amount(t.Card.Total), strconv.Itoa(t.Card.Count), share(m.Shares.Card)},
		{core.CategoryServiceFee, amount(t.ServiceFee.Total), strconv.Itoa(t.ServiceFee.Count), share(m.Shares.ServiceFee)},
		{"Total", amount(t.GrandTotal()), strconv.Itoa(t.Installment.Count + t.Card.Count + t.ServiceFee.Count), ""},
		{},
		{"Bulan", core.CategoryInstallment, core.CategoryCard, core.CategoryServiceFee},
	}
	for _, row := range m.Monthly {
		rows = append(rows, []string{row.Month, amount(row.Installment), amount(row.Card), amount(row.ServiceFee)})
	}
	return Recap{Rows: rows}
}

// Empty reports whether the recap holds no rows at all.
func (r Recap) Empty() bool { return len(r.Rows) == 0 }

// SameData compares two recaps ignoring the title row.
func (r Recap) SameData(o Recap) bool {
	if len(r.Rows) != len(o.Rows) || len(r.Rows) == 0 {
		return false
	}
	for i := 1; i < len(r.Rows); i++ {
		if !slices.Equal(trimRow(r.Rows[i]), trimRow(o.Rows[i])) {
			return false
		}
	}
	return true
}

// trimRow drops trailing empty cells, which spreadsheets do not return.
func trimRow(row []string) []string {
	n := len(row)
	for n > 0 && row[n-1] == "" {
		n--
	}
	return row[:n]
}
