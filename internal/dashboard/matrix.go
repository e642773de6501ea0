package dashboard

import (
	"github.com/shopspring/decimal"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
)

// MonthRow holds one calendar month of the trend chart.
type MonthRow struct {
	Month       string          `json:"month"`
	Ordinal     int             `json:"-"`
	Installment decimal.Decimal `json:"bfko"`
	Card        decimal.Decimal `json:"ccCard"`
	ServiceFee  decimal.Decimal `json:"serviceFee"`
}

// MonthlyMatrix sums each category per calendar month, January first.
//
// Rows aggregate every year together: a March 2024 payment and a March 2025
// payment land in the same row. Installments use their bulan name and names
// outside the month table are dropped. Card trips use the departure date, and
// rows whose date does not parse are left out. Service fees use the month of
// the transaction time.
func MonthlyMatrix(snap Snapshot) [12]MonthRow {
	var rows [12]MonthRow
	for i := range rows {
		rows[i] = MonthRow{Month: core.MonthLabel(i + 1), Ordinal: i + 1}
	}

	for _, p := range snap.Installments {
		n := core.MonthOrdinal(p.Month)
		if n == core.UnknownMonthOrdinal {
			continue
		}
		rows[n-1].Installment = rows[n-1].Installment.Add(p.Amount)
	}

	for _, c := range snap.Cards {
		t, ok := core.ParseDepartureDate(c.DepartureDate)
		if !ok {
			continue
		}
		n := int(t.Month())
		rows[n-1].Card = rows[n-1].Card.Add(c.Amount)
	}

	for _, s := range snap.ServiceFees {
		if s.TransactionTime == nil {
			continue
		}
		n := int(s.TransactionTime.Month())
		rows[n-1].ServiceFee = rows[n-1].ServiceFee.Add(s.Amount)
	}

	return rows
}
