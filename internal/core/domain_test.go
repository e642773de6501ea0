package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestInstallmentValidate(t *testing.T) {
	ok := InstallmentPayment{EmployeeID: "8306", EmployeeName: "Andi", Month: "Maret", Year: 2025, Amount: decimal.NewFromInt(1)}
	cases := []struct {
		name string
		mut  func(p *InstallmentPayment)
		err  error
	}{
		{"valid", func(p *InstallmentPayment) {}, nil},
		{"missing nip", func(p *InstallmentPayment) { p.EmployeeID = " " }, ErrEmptyEmployee},
		{"missing name", func(p *InstallmentPayment) { p.EmployeeName = "" }, ErrEmptyEmployee},
		{"missing month", func(p *InstallmentPayment) { p.Month = "" }, ErrInvalidMonth},
		{"bad year", func(p *InstallmentPayment) { p.Year = 0 }, ErrInvalidYear},
		{"negative", func(p *InstallmentPayment) { p.Amount = decimal.NewFromInt(-5) }, ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := ok
			tc.mut(&p)
			if err := p.Validate(); err != tc.err {
				t.Fatalf("got %v, want %v", err, tc.err)
			}
		})
	}
}

func TestTouchedPrefersUpdatedAt(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(48 * time.Hour)

	p := InstallmentPayment{CreatedAt: &created, UpdatedAt: &updated}
	if got := p.Touched(); got == nil || !got.Equal(updated) {
		t.Fatalf("expected updated_at, got %v", got)
	}
	p.UpdatedAt = nil
	if got := p.Touched(); got == nil || !got.Equal(created) {
		t.Fatalf("expected created_at, got %v", got)
	}
	p.CreatedAt = nil
	if got := p.Touched(); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestUpperFirst(t *testing.T) {
	cases := map[string]string{"": "", "hotel": "Hotel", "Complete": "Complete", "active": "Active"}
	for in, want := range cases {
		if got := UpperFirst(in); got != want {
			t.Errorf("UpperFirst(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSheetFeeTotal(t *testing.T) {
	f := SheetFee{AdminInterest: decimal.NewFromInt(1000), Transfer: decimal.NewFromInt(6500), AnnualFee: decimal.Zero}
	if !f.Total().Equal(decimal.NewFromInt(7500)) {
		t.Fatalf("got %s", f.Total())
	}
}
