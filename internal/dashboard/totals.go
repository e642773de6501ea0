// Package dashboard builds the read model shown on the monitoring home page.
//
// Everything here is a pure function over a Snapshot of the three record
// categories. Callers fetch the snapshot from storage; nothing in this package
// performs I/O or keeps state between calls.
package dashboard

import (
	"github.com/shopspring/decimal"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
)

// Snapshot is the set of rows one aggregation works on.
type Snapshot struct {
	Installments []core.InstallmentPayment
	ServiceFees  []core.ServiceFeeTransaction
	Cards        []core.CardTransaction
}

// InstallmentTotals summarises BFKO rows.
type InstallmentTotals struct {
	Total     decimal.Decimal `json:"total"`
	Count     int             `json:"count"`
	Employees int             `json:"employees"`
}

// ServiceFeeTotals summarises service-fee rows. There is no employee key for
// this category, so hotel and flight counts are reported instead.
type ServiceFeeTotals struct {
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
	Hotel  int             `json:"hotel"`
	Flight int             `json:"flight"`
}

// CardTotals summarises credit card rows.
type CardTotals struct {
	Total     decimal.Decimal `json:"total"`
	Count     int             `json:"count"`
	Employees int             `json:"employees"`
}

// CategoryTotals groups the three summaries.
type CategoryTotals struct {
	Installment InstallmentTotals `json:"bfko"`
	ServiceFee  ServiceFeeTotals  `json:"serviceFee"`
	Card        CardTotals        `json:"ccCard"`
}

// GrandTotal is the sum over all categories.
func (t CategoryTotals) GrandTotal() decimal.Decimal {
	return t.Installment.Total.Add(t.ServiceFee.Total).Add(t.Card.Total)
}

// CategoryShares is each category's percentage of the grand total.
type CategoryShares struct {
	Installment float64 `json:"bfko"`
	ServiceFee  float64 `json:"serviceFee"`
	Card        float64 `json:"ccCard"`
}

// Totals computes per-category sums, counts and distinct subjects. The filter
// is applied to each category with that category's own notion of date.
func Totals(snap Snapshot, f core.Filter) CategoryTotals {
	var out CategoryTotals

	nips := make(map[string]struct{})
	for _, p := range snap.Installments {
		if !f.MatchInstallment(p) {
			continue
		}
		out.Installment.Total = out.Installment.Total.Add(p.Amount)
		out.Installment.Count++
		nips[p.EmployeeID] = struct{}{}
	}
	out.Installment.Employees = len(nips)

	for _, s := range snap.ServiceFees {
		if !f.MatchServiceFee(s) {
			continue
		}
		out.ServiceFee.Total = out.ServiceFee.Total.Add(s.Amount)
		out.ServiceFee.Count++
		switch s.ServiceType {
		case core.ServiceHotel:
			out.ServiceFee.Hotel++
		case core.ServiceFlight:
			out.ServiceFee.Flight++
		}
	}

	personnel := make(map[string]struct{})
	for _, c := range snap.Cards {
		if !f.MatchCard(c) {
			continue
		}
		out.Card.Total = out.Card.Total.Add(c.Amount)
		out.Card.Count++
		personnel[c.EmployeeID] = struct{}{}
	}
	out.Card.Employees = len(personnel)

	return out
}

// Shares converts totals to percentages. An empty grand total gives all zeros.
func Shares(t CategoryTotals) CategoryShares {
	grand := t.GrandTotal()
	return CategoryShares{
		Installment: core.Percentage(t.Installment.Total, grand),
		ServiceFee:  core.Percentage(t.ServiceFee.Total, grand),
		Card:        core.Percentage(t.Card.Total, grand),
	}
}
