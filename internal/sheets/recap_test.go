package sheets

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/dashboard"
)

func sampleModel() dashboard.ReadModel {
	at := time.Date(2024, 5, 2, 9, 0, 0, 0, time.Local)
	snap := dashboard.Snapshot{
		Installments: []core.InstallmentPayment{
			{EmployeeID: "1", EmployeeName: "Andi", Month: "Januari", Year: 2024, Amount: decimal.NewFromInt(2000000)},
		},
		ServiceFees: []core.ServiceFeeTransaction{
			{EmployeeName: "Budi", ServiceType: core.ServiceHotel, Amount: decimal.NewFromInt(1000000), TransactionTime: &at},
		},
		Cards: []core.CardTransaction{
			{EmployeeName: "Citra", EmployeeID: "P1", DepartureDate: "1/5/2024", Amount: decimal.NewFromInt(1000000)},
		},
	}
	return dashboard.Build(snap, core.Filter{}, at)
}

func TestBuildRecap(t *testing.T) {
	at := time.Date(2024, 5, 2, 14, 5, 9, 0, time.Local)
	r := BuildRecap(sampleModel(), at)

	if len(r.Rows) != 8+12 {
		t.Fatalf("rows = %d, want 20", len(r.Rows))
	}
	if r.Rows[0][0] != RecapTitle || r.Rows[0][2] != "02-05-2024 14:05:09" {
		t.Errorf("title row = %v", r.Rows[0])
	}

	tests := []struct {
		row  int
		want []string
	}{
		{2, []string{"BFKO", "2000000", "1", "50.00"}},
		{3, []string{"CC Card", "1000000", "1", "25.00"}},
		{4, []string{"Service Fee", "1000000", "1", "25.00"}},
		{5, []string{"Total", "4000000", "3", ""}},
		{8, []string{"Jan", "2000000", "1000000", "0"}},
		{12, []string{"Mei", "0", "0", "1000000"}},
	}
	for _, tt := range tests {
		got := r.Rows[tt.row]
		if len(got) != len(tt.want) {
			t.Errorf("row %d = %v, want %v", tt.row, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("row %d = %v, want %v", tt.row, got, tt.want)
				break
			}
		}
	}
}

func TestRecapSameData(t *testing.T) {
	m := sampleModel()
	a := BuildRecap(m, time.Now())
	b := BuildRecap(m, time.Now().Add(time.Hour))
	if !a.SameData(b) {
		t.Error("recaps differing only in the title row should match")
	}

	// Spreadsheets drop trailing blanks.
	trimmed := Recap{Rows: make([][]string, len(a.Rows))}
	for i, row := range a.Rows {
		trimmed.Rows[i] = trimRow(row)
	}
	if !a.SameData(trimmed) {
		t.Error("trailing empty cells should not matter")
	}

	m.Totals.Installment.Count++
	if a.SameData(BuildRecap(m, time.Now())) {
		t.Error("changed count should not match")
	}
	if a.SameData(Recap{}) || (Recap{}).SameData(Recap{}) {
		t.Error("empty recaps never match")
	}
}
