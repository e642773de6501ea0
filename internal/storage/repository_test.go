package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func payment(nip, nama, bulan string, tahun int, nilai string) core.InstallmentPayment {
	return core.InstallmentPayment{
		EmployeeID: nip, EmployeeName: nama, Role: "Staf", Unit: "UID",
		Month: bulan, Year: tahun, Amount: dec(nilai),
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	first, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Version != 1 || first.Dirty {
		t.Errorf("first run version = %+v, want 1 clean", first)
	}
	second, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second != first {
		t.Errorf("second run version = %+v, want %+v", second, first)
	}
}

func TestUpsertInstallments(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, err := repo.UpsertInstallments(ctx, []core.InstallmentPayment{
		payment("1001", "Andi", "Januari", 2024, "1500000"),
		payment("1001", "Andi", "Februari", 2024, "1500000"),
		payment("1002", "Budi", "Januari", 2023, "2000000"),
	})
	if err != nil {
		t.Fatalf("UpsertInstallments() error = %v", err)
	}
	if first.Inserted != 3 || first.Updated != 0 || len(first.Warnings) != 0 {
		t.Fatalf("unexpected first result %+v", first)
	}

	second, err := repo.UpsertInstallments(ctx, []core.InstallmentPayment{
		payment("1001", "Andi Saputra", "Januari", 2024, "1750000"),
		payment("1003", "Citra", "Maret", 2024, "900000"),
	})
	if err != nil {
		t.Fatalf("UpsertInstallments() error = %v", err)
	}
	if second.Inserted != 1 || second.Updated != 1 {
		t.Fatalf("unexpected second result %+v", second)
	}

	rows, err := repo.EmployeeInstallments(ctx, "1001", 2024)
	if err != nil {
		t.Fatalf("EmployeeInstallments() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	var jan core.InstallmentPayment
	for _, r := range rows {
		if r.Month == "Januari" {
			jan = r
		}
	}
	if jan.EmployeeName != "Andi Saputra" || !jan.Amount.Equal(dec("1750000")) {
		t.Fatalf("row was not updated: %+v", jan)
	}
	if jan.CreatedAt == nil || jan.UpdatedAt == nil {
		t.Fatalf("expected timestamps, got %+v", jan)
	}
}

func TestInstallmentQueries(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.UpsertInstallments(ctx, []core.InstallmentPayment{
		payment("1001", "Andi", "Januari", 2024, "100"),
		payment("1001", "Andi", "Januari", 2023, "100"),
		payment("1002", "Budi", "Maret", 2024, "200"),
		payment("1003", "Citra", "Maret", 2022, "300"),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name   string
		filter core.Filter
		want   int
	}{
		{"no filter", core.Filter{}, 4},
		{"year", core.Filter{Year: 2024}, 2},
		{"month", core.Filter{Month: 3}, 2},
		{"year and month", core.Filter{Year: 2024, Month: 1}, 1},
		{"out of range month", core.Filter{Month: 13}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := repo.Installments(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Installments() error = %v", err)
			}
			if len(rows) != tt.want {
				t.Errorf("Installments(%+v) = %d rows, want %d", tt.filter, len(rows), tt.want)
			}
		})
	}

	years, err := repo.InstallmentYears(ctx)
	if err != nil {
		t.Fatalf("InstallmentYears() error = %v", err)
	}
	if len(years) != 3 || years[0] != 2024 || years[2] != 2022 {
		t.Errorf("InstallmentYears() = %v", years)
	}

	empYears, err := repo.EmployeeYears(ctx, "1001")
	if err != nil || len(empYears) != 2 || empYears[0] != 2024 {
		t.Errorf("EmployeeYears() = %v, %v", empYears, err)
	}

	all, _ := repo.CountEmployees(ctx, 0)
	in2024, _ := repo.CountEmployees(ctx, 2024)
	if all != 3 || in2024 != 2 {
		t.Errorf("CountEmployees() = %d/%d, want 3/2", all, in2024)
	}
}

func TestInstallmentCRUD(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	p := payment("1001", "Andi", "Mei", 2024, "500000")
	p.PaidDate = "2024-05-25"
	id, err := repo.CreateInstallment(ctx, p)
	if err != nil {
		t.Fatalf("CreateInstallment() error = %v", err)
	}

	got, err := repo.GetInstallment(ctx, id)
	if err != nil {
		t.Fatalf("GetInstallment() error = %v", err)
	}
	if got.PaidDate != "2024-05-25" || got.Status != "" {
		t.Fatalf("unexpected row %+v", got)
	}

	got.Amount = dec("650000")
	if err := repo.UpdateInstallment(ctx, got); err != nil {
		t.Fatalf("UpdateInstallment() error = %v", err)
	}
	got, _ = repo.GetInstallment(ctx, id)
	if !got.Amount.Equal(dec("650000")) {
		t.Fatalf("amount not updated: %s", got.Amount)
	}

	if err := repo.DeleteInstallment(ctx, id); err != nil {
		t.Fatalf("DeleteInstallment() error = %v", err)
	}
	if _, err := repo.GetInstallment(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteInstallment(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteEmployeeAndAll(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.UpsertInstallments(ctx, []core.InstallmentPayment{
		payment("1001", "Andi", "Januari", 2024, "100"),
		payment("1001", "Andi", "Februari", 2024, "100"),
		payment("1001", "Andi", "Januari", 2023, "100"),
		payment("1002", "Budi", "Januari", 2024, "100"),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	n, err := repo.DeleteEmployee(ctx, "1001", 2024)
	if err != nil || n != 2 {
		t.Fatalf("DeleteEmployee(2024) = %d, %v", n, err)
	}
	n, err = repo.DeleteEmployee(ctx, "1001", 0)
	if err != nil || n != 1 {
		t.Fatalf("DeleteEmployee(all) = %d, %v", n, err)
	}
	n, err = repo.DeleteAllInstallments(ctx)
	if err != nil || n != 1 {
		t.Fatalf("DeleteAllInstallments() = %d, %v", n, err)
	}
}

func TestServiceFees(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	jan := time.Date(2024, time.January, 15, 9, 30, 0, 0, time.Local)
	mar := time.Date(2024, time.March, 2, 14, 0, 0, 0, time.Local)
	for _, s := range []core.ServiceFeeTransaction{
		{EmployeeName: "Andi", ServiceType: core.ServiceHotel, HotelName: "Hotel A", Amount: dec("50000"), TransactionTime: &jan, Status: "complete"},
		{EmployeeName: "Budi", ServiceType: core.ServiceFlight, Route: "CGK-DPS", Amount: dec("75000"), TransactionTime: &mar},
		{EmployeeName: "Citra", ServiceType: core.ServiceOther, Amount: dec("10000")},
	} {
		if _, err := repo.CreateServiceFee(ctx, s); err != nil {
			t.Fatalf("CreateServiceFee() error = %v", err)
		}
	}

	all, err := repo.ServiceFees(ctx, core.Filter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("ServiceFees(all) = %d, %v", len(all), err)
	}

	march, err := repo.ServiceFees(ctx, core.Filter{Year: 2024, Month: 3})
	if err != nil {
		t.Fatalf("ServiceFees(march) error = %v", err)
	}
	if len(march) != 1 || march[0].Route != "CGK-DPS" {
		t.Fatalf("unexpected march rows %+v", march)
	}
	if !march[0].TransactionTime.Equal(mar) {
		t.Fatalf("transaction time round trip: got %v want %v", march[0].TransactionTime, mar)
	}

	if err := repo.DeleteServiceFee(ctx, march[0].ID); err != nil {
		t.Fatalf("DeleteServiceFee() error = %v", err)
	}
	if err := repo.DeleteServiceFee(ctx, march[0].ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPing(t *testing.T) {
	repo := newTestRepository(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}
