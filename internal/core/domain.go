package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionPayment TransactionType = "payment"
	TransactionRefund  TransactionType = "refund"
)

const (
	ServiceHotel  ServiceType = "hotel"
	ServiceFlight ServiceType = "flight"
	ServiceOther  ServiceType = "other"
)

// Category labels as shown on the dashboard.
const (
	CategoryInstallment = "BFKO"
	CategoryServiceFee  = "Service Fee"
	CategoryCard        = "CC Card"
)

type (
	TransactionType string

	ServiceType string

	// InstallmentPayment is one BFKO installment row.
	InstallmentPayment struct {
		ID           int64           `json:"id"`
		EmployeeID   string          `json:"nip"`
		EmployeeName string          `json:"nama"`
		Role         string          `json:"jabatan"`
		Unit         string          `json:"unit"`
		Month        string          `json:"bulan"` // Indonesian month name
		Year         int             `json:"tahun"`
		Amount       decimal.Decimal `json:"nilai_angsuran"`
		PaidDate     string          `json:"tanggal_bayar,omitempty"` // as stored
		Status       string          `json:"status_angsuran,omitempty"`
		CreatedAt    *time.Time      `json:"created_at,omitempty"`
		UpdatedAt    *time.Time      `json:"updated_at,omitempty"`
	}

	// CardTransaction is one credit card travel booking.
	CardTransaction struct {
		ID                  int64           `json:"id"`
		TransactionNumber   int             `json:"transaction_number"`
		BookingID           string          `json:"booking_id"`
		EmployeeName        string          `json:"employee_name"`
		EmployeeID          string          `json:"personel_number"`
		TripNumber          string          `json:"trip_number"`
		Origin              string          `json:"origin"`
		Destination         string          `json:"destination"`
		TripDestinationFull string          `json:"trip_destination_full"`
		DepartureDate       string          `json:"departure_date"` // n/j/Y text
		ReturnDate          string          `json:"return_date"`
		DurationDays        int             `json:"duration_days"`
		Amount              decimal.Decimal `json:"payment_amount"`
		Type                TransactionType `json:"transaction_type"`
		Sheet               string          `json:"sheet"`
		Status              string          `json:"status"`
		CreatedAt           *time.Time      `json:"created_at,omitempty"`
		UpdatedAt           *time.Time      `json:"updated_at,omitempty"`
	}

	// ServiceFeeTransaction is a travel agent hotel or flight charge.
	ServiceFeeTransaction struct {
		ID              int64           `json:"id"`
		EmployeeName    string          `json:"employee_name"`
		ServiceType     ServiceType     `json:"service_type"`
		HotelName       string          `json:"hotel_name,omitempty"`
		Route           string          `json:"route,omitempty"`
		Amount          decimal.Decimal `json:"transaction_amount"`
		TransactionTime *time.Time      `json:"transaction_time,omitempty"`
		Status          string          `json:"status"`
		CreatedAt       *time.Time      `json:"created_at,omitempty"`
		UpdatedAt       *time.Time      `json:"updated_at,omitempty"`
	}

	// SheetFee holds the per billing sheet additional charges.
	SheetFee struct {
		SheetName     string          `json:"sheet_name"`
		AdminInterest decimal.Decimal `json:"biaya_adm_bunga"`
		Transfer      decimal.Decimal `json:"biaya_transfer"`
		AnnualFee     decimal.Decimal `json:"iuran_tahunan"`
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidYear      = errors.New("invalid year")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyEmployee    = errors.New("empty employee")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidDateRange = errors.New("return date before departure date")
)

// Validate checks the fields the import and the payment form both require.
func (p InstallmentPayment) Validate() error {
	if strings.TrimSpace(p.EmployeeID) == "" || strings.TrimSpace(p.EmployeeName) == "" {
		return ErrEmptyEmployee
	}
	if strings.TrimSpace(p.Month) == "" {
		return ErrInvalidMonth
	}
	if p.Year < 1900 || p.Year > 9999 {
		return ErrInvalidYear
	}
	if p.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (t TransactionType) Valid() bool {
	return t == TransactionPayment || t == TransactionRefund
}

// latest prefers the modification timestamp over the creation one.
func latest(updated, created *time.Time) *time.Time {
	if updated != nil && !updated.IsZero() {
		return updated
	}
	if created != nil && !created.IsZero() {
		return created
	}
	return nil
}

func (p InstallmentPayment) Touched() *time.Time    { return latest(p.UpdatedAt, p.CreatedAt) }
func (c CardTransaction) Touched() *time.Time       { return latest(c.UpdatedAt, c.CreatedAt) }
func (s ServiceFeeTransaction) Touched() *time.Time { return latest(s.UpdatedAt, s.CreatedAt) }

// Total sums the three additional fees of a sheet.
func (f SheetFee) Total() decimal.Decimal {
	return f.AdminInterest.Add(f.Transfer).Add(f.AnnualFee)
}

// UpperFirst mirrors the capitalisation applied to status and type labels.
func UpperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
