package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
)

// stubSource serves fixed rows and counts loads.
type stubSource struct {
	installments []core.InstallmentPayment
	fees         []core.ServiceFeeTransaction
	cards        []core.CardTransaction
	err          error
	loads        int
}

func (s *stubSource) Installments(context.Context, core.Filter) ([]core.InstallmentPayment, error) {
	return s.installments, s.err
}

func (s *stubSource) ServiceFees(context.Context, core.Filter) ([]core.ServiceFeeTransaction, error) {
	return s.fees, nil
}

// Cards is the only counter so concurrent loads do not race on it.
func (s *stubSource) Cards(context.Context, core.Filter) ([]core.CardTransaction, error) {
	s.loads++
	return s.cards, nil
}

func TestDashboardService_ReadModel(t *testing.T) {
	at := time.Date(2024, 3, 10, 8, 0, 0, 0, time.Local)
	src := &stubSource{
		installments: []core.InstallmentPayment{
			{EmployeeName: "Andi", Month: "Maret", Year: 2024, Amount: decimal.NewFromInt(1000)},
		},
		fees: []core.ServiceFeeTransaction{
			{EmployeeName: "Budi", ServiceType: core.ServiceHotel, Amount: decimal.NewFromInt(500), TransactionTime: &at},
		},
		cards: []core.CardTransaction{
			{EmployeeName: "Citra", Type: core.TransactionPayment, DepartureDate: "3/5/2024", Amount: decimal.NewFromInt(250)},
		},
	}
	svc := NewDashboardService(src, time.Minute)
	svc.now = fixedClock(at)
	ctx := context.Background()

	m, err := svc.ReadModel(ctx, core.Filter{Year: 2024})
	if err != nil {
		t.Fatalf("ReadModel() error = %v", err)
	}
	if m.Totals.Installment.Total.String() != "1000" || m.Totals.ServiceFee.Total.String() != "500" || m.Totals.Card.Total.String() != "250" {
		t.Errorf("totals = %+v", m.Totals)
	}
	if m.Monthly[2].Installment.String() != "1000" {
		t.Errorf("march row = %+v", m.Monthly[2])
	}
	if len(m.Recent) != 3 {
		t.Errorf("recent = %d entries, want 3", len(m.Recent))
	}

	if _, err := svc.ReadModel(ctx, core.Filter{Year: 2024}); err != nil {
		t.Fatalf("cached ReadModel() error = %v", err)
	}
	if src.loads != 1 {
		t.Errorf("loads = %d, want 1 (second call cached)", src.loads)
	}

	if _, err := svc.ReadModel(ctx, core.Filter{Year: 2024, Month: 3}); err != nil {
		t.Fatalf("ReadModel(month) error = %v", err)
	}
	if src.loads != 2 {
		t.Errorf("loads = %d, want 2 (different filter)", src.loads)
	}

	svc.Invalidate()
	if _, err := svc.ReadModel(ctx, core.Filter{Year: 2024}); err != nil {
		t.Fatalf("ReadModel() after Invalidate error = %v", err)
	}
	if src.loads != 3 {
		t.Errorf("loads = %d, want 3 (invalidated)", src.loads)
	}
}

func TestDashboardService_SnapshotError(t *testing.T) {
	svc := NewDashboardService(&stubSource{err: errors.New("disk gone")}, time.Minute)
	if _, err := svc.ReadModel(context.Background(), core.Filter{}); err == nil {
		t.Fatal("expected an error")
	}
	if svc.Cache().Size() != 0 {
		t.Error("failed build was cached")
	}
}

func TestDashboardService_NewBadgeDoesNotOutliveTheDay(t *testing.T) {
	created := time.Date(2024, 3, 10, 23, 30, 0, 0, time.Local)
	src := &stubSource{
		installments: []core.InstallmentPayment{
			{EmployeeName: "Andi", Month: "Maret", Year: 2024, Amount: decimal.NewFromInt(1000), CreatedAt: &created},
		},
	}
	svc := NewDashboardService(src, time.Hour)
	ctx := context.Background()

	svc.now = fixedClock(created.Add(20 * time.Minute))
	m, err := svc.ReadModel(ctx, core.Filter{})
	if err != nil {
		t.Fatalf("ReadModel() error = %v", err)
	}
	if len(m.Recent) != 1 || !m.Recent[0].IsNew {
		t.Fatalf("row created today should be new: %+v", m.Recent)
	}

	svc.now = fixedClock(created.Add(40 * time.Minute))
	m, err = svc.ReadModel(ctx, core.Filter{})
	if err != nil {
		t.Fatalf("ReadModel() after midnight error = %v", err)
	}
	if m.Recent[0].IsNew {
		t.Error("row from yesterday is still marked new")
	}
	if src.loads != 2 {
		t.Errorf("loads = %d, want 2 (new day rebuilds)", src.loads)
	}
}
