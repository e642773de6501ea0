package dashboard

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
)

func TestMonthlyMatrixLayout(t *testing.T) {
	rows := MonthlyMatrix(Snapshot{})
	want := []string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"}
	for i, row := range rows {
		if row.Month != want[i] || row.Ordinal != i+1 {
			t.Fatalf("row %d: expected %s/%d, got %s/%d", i, want[i], i+1, row.Month, row.Ordinal)
		}
		if !row.Installment.IsZero() || !row.Card.IsZero() || !row.ServiceFee.IsZero() {
			t.Fatalf("row %d should be empty, got %+v", i, row)
		}
	}
}

func TestMonthlyMatrixSums(t *testing.T) {
	rows := MonthlyMatrix(sampleSnapshot())

	// Januari 2024 and Januari 2025 share a row.
	if !rows[0].Installment.Equal(amount("3500000")) {
		t.Errorf("jan installment: got %s", rows[0].Installment)
	}
	if !rows[1].Installment.Equal(amount("1500000")) {
		t.Errorf("feb installment: got %s", rows[1].Installment)
	}
	if !rows[0].Card.Equal(amount("3000000")) || !rows[1].Card.Equal(amount("1000000")) {
		t.Errorf("card rows: jan=%s feb=%s", rows[0].Card, rows[1].Card)
	}
	// "2024-03-01" is not month/day/year text and is left out.
	if !rows[2].Card.IsZero() {
		t.Errorf("mar card should be zero, got %s", rows[2].Card)
	}
	if !rows[0].ServiceFee.Equal(amount("50000")) || !rows[2].ServiceFee.Equal(amount("75000")) {
		t.Errorf("service fee rows: jan=%s mar=%s", rows[0].ServiceFee, rows[2].ServiceFee)
	}
}

func TestMonthlyMatrixSkipsUnknownAndUndated(t *testing.T) {
	snap := Snapshot{
		Installments: []core.InstallmentPayment{
			{Month: "januari", Year: 2024, Amount: amount("10")},
			{Month: "Bulan13", Year: 2024, Amount: amount("10")},
		},
		ServiceFees: []core.ServiceFeeTransaction{{Amount: amount("10")}},
		Cards:       []core.CardTransaction{{DepartureDate: "", Amount: amount("10")}},
	}
	var sum decimal.Decimal
	for _, row := range MonthlyMatrix(snap) {
		sum = sum.Add(row.Installment).Add(row.Card).Add(row.ServiceFee)
	}
	if !sum.IsZero() {
		t.Fatalf("expected nothing placed, got %s", sum)
	}
}
