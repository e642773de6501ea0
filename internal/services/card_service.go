package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/amqp"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/importer"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/storage"
)

const autocompleteLimit = 10

// CardStore is the card and sheet fee part of the record store.
type CardStore interface {
	Cards(ctx context.Context, f core.Filter) ([]core.CardTransaction, error)
	GetCard(ctx context.Context, id int64) (core.CardTransaction, error)
	MaxTransactionNumber(ctx context.Context) (int, error)
	CreateCard(ctx context.Context, c core.CardTransaction) (int64, error)
	UpdateCard(ctx context.Context, c core.CardTransaction) error
	DeleteCard(ctx context.Context, id int64) error
	AutocompleteEmployees(ctx context.Context, q string, limit int) ([]storage.EmployeeRef, error)
	CardSheets(ctx context.Context) ([]string, error)
	ImportCards(ctx context.Context, rows []core.CardTransaction, opts storage.CardImportOptions) (storage.CardImportResult, error)
	DeleteSheet(ctx context.Context, sheet string) (int64, error)
	SheetFees(ctx context.Context) ([]core.SheetFee, error)
	EnsureSheetFee(ctx context.Context, sheet string) error
	UpsertSheetFees(ctx context.Context, fees []core.SheetFee) error
	DeleteSheetFee(ctx context.Context, sheet string) error
}

// CardInput is the manual transaction form. CCNumber is mandatory on create
// and optional on update.
type CardInput struct {
	EmployeeName   string `json:"employee_name" validate:"required,max=255"`
	PersonelNumber string `json:"personel_number" validate:"required,max=50"`
	TripNumber     string `json:"trip_number" validate:"required,max=50"`
	Origin         string `json:"origin" validate:"required,max=255"`
	Destination    string `json:"destination" validate:"required,max=255"`
	DepartureDate  string `json:"departure_date" validate:"required"`
	ReturnDate     string `json:"return_date" validate:"required"`
	PaymentAmount  string `json:"payment_amount" validate:"required,numeric"`
	Type           string `json:"transaction_type" validate:"required,oneof=payment refund"`
	CustomMonth    string `json:"custom_month" validate:"required"`
	CustomYear     string `json:"custom_year" validate:"required"`
	CCNumber       string `json:"cc_number" validate:"omitempty,max=50"`
}

// Billing cards a new transaction may be charged to.
var cardNumbers = []string{"5657", "9386"}

// Suggestion is one autocomplete entry.
type Suggestion struct {
	EmployeeName   string `json:"employee_name"`
	PersonelNumber string `json:"personel_number"`
	Label          string `json:"label"`
}

// CardImportSummary reports a finished card import.
type CardImportSummary struct {
	Imported int      `json:"imported"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Warnings []string `json:"warnings,omitempty"`
	Message  string   `json:"message"`
}

// CardPage is the card listing with the sheet fee table.
type CardPage struct {
	Transactions []core.CardTransaction `json:"transactions"`
	Sheets       []string               `json:"sheets"`
	Fees         []core.SheetFee        `json:"fees"`
}

type CardService struct {
	store  CardStore
	notify changeNotifier
	now    func() time.Time
	// bookingSuffix returns the four random digits of a generated booking id.
	bookingSuffix func() int
}

func NewCardService(store CardStore, publisher Publisher, cache Invalidator) *CardService {
	return &CardService{
		store:         store,
		notify:        changeNotifier{publisher: publisher, cache: cache},
		now:           time.Now,
		bookingSuffix: func() int { return 1000 + rand.IntN(9000) },
	}
}

// Autocomplete suggests employees whose name contains q.
func (s *CardService) Autocomplete(ctx context.Context, q string) ([]Suggestion, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []Suggestion{}, nil
	}
	refs, err := s.store.AutocompleteEmployees(ctx, q, autocompleteLimit)
	if err != nil {
		return nil, err
	}
	out := make([]Suggestion, len(refs))
	for i, r := range refs {
		out[i] = Suggestion{
			EmployeeName:   r.Name,
			PersonelNumber: r.Number,
			Label:          fmt.Sprintf("%s (%s)", r.Name, r.Number),
		}
	}
	return out, nil
}

// List returns the transactions matching f with every known sheet and its fees.
func (s *CardService) List(ctx context.Context, f core.Filter) (CardPage, error) {
	rows, err := s.store.Cards(ctx, f)
	if err != nil {
		return CardPage{}, err
	}
	sheets, err := s.store.CardSheets(ctx)
	if err != nil {
		return CardPage{}, err
	}
	fees, err := s.store.SheetFees(ctx)
	if err != nil {
		return CardPage{}, err
	}
	return CardPage{Transactions: rows, Sheets: sheets, Fees: fees}, nil
}

func (s *CardService) Get(ctx context.Context, id int64) (core.CardTransaction, error) {
	return s.store.GetCard(ctx, id)
}

// trip holds the derived fields shared by create and update.
type trip struct {
	departure, ret string
	days           int
	full           string
}

func parseTrip(in CardInput) (trip, error) {
	dep, ok := core.ParseLooseDate(in.DepartureDate)
	if !ok {
		return trip{}, fieldError("departure_date", "date")
	}
	ret, ok := core.ParseLooseDate(in.ReturnDate)
	if !ok {
		return trip{}, fieldError("return_date", "date")
	}
	if ret.Before(dep) {
		return trip{}, core.ErrInvalidDateRange
	}
	return trip{
		departure: dep.Format(core.DepartureLayout),
		ret:       ret.Format(core.DepartureLayout),
		days:      daysBetween(dep, ret),
		full:      strings.TrimSpace(in.Origin) + " - " + strings.TrimSpace(in.Destination),
	}, nil
}

// daysBetween counts calendar days, ignoring clock changes.
func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func sheetName(in CardInput) string {
	name := strings.TrimSpace(in.CustomMonth) + " " + strings.TrimSpace(in.CustomYear)
	if cc := strings.TrimSpace(in.CCNumber); cc != "" {
		name += " - CC " + cc
	}
	return name
}

func (in CardInput) apply(c *core.CardTransaction, t trip) error {
	amount, err := core.ParseAmount(in.PaymentAmount)
	if err != nil || amount.IsNegative() {
		return fieldError("payment_amount", "min")
	}
	c.EmployeeName = strings.TrimSpace(in.EmployeeName)
	c.EmployeeID = strings.TrimSpace(in.PersonelNumber)
	c.TripNumber = strings.TrimSpace(in.TripNumber)
	c.Origin = strings.TrimSpace(in.Origin)
	c.Destination = strings.TrimSpace(in.Destination)
	c.TripDestinationFull = t.full
	c.DepartureDate = t.departure
	c.ReturnDate = t.ret
	c.DurationDays = t.days
	c.Amount = amount
	c.Type = core.TransactionType(in.Type)
	c.Sheet = sheetName(in)
	return nil
}

// Create stores a manual transaction under "{month} {year} - CC {cc}" and
// gives it the next transaction number.
func (s *CardService) Create(ctx context.Context, in CardInput) (core.CardTransaction, error) {
	if err := validateInput(in); err != nil {
		return core.CardTransaction{}, err
	}
	if err := validate.Var(in.CCNumber, "required,oneof="+strings.Join(cardNumbers, " ")); err != nil {
		return core.CardTransaction{}, fieldError("cc_number", "oneof")
	}
	t, err := parseTrip(in)
	if err != nil {
		return core.CardTransaction{}, err
	}

	c := core.CardTransaction{Status: "Complete"}
	if err := in.apply(&c, t); err != nil {
		return core.CardTransaction{}, err
	}
	c.BookingID = strconv.FormatInt(s.now().Unix(), 10) + strconv.Itoa(s.bookingSuffix())
	if c.Type == core.TransactionRefund {
		c.BookingID += storage.RefundSuffix
	}

	highest, err := s.store.MaxTransactionNumber(ctx)
	if err != nil {
		return core.CardTransaction{}, err
	}
	c.TransactionNumber = highest + 1

	if c.ID, err = s.store.CreateCard(ctx, c); err != nil {
		return core.CardTransaction{}, fmt.Errorf("save card transaction: %w", err)
	}
	if err := s.store.EnsureSheetFee(ctx, c.Sheet); err != nil {
		return core.CardTransaction{}, err
	}
	s.notify.changed(ctx, amqp.CategoryCard, amqp.ActionCreated, 1, 0)
	return c, nil
}

// Update rewrites a transaction. Switching between payment and refund adds
// or strips the refund marker of the booking id.
func (s *CardService) Update(ctx context.Context, id int64, in CardInput) (core.CardTransaction, error) {
	if err := validateInput(in); err != nil {
		return core.CardTransaction{}, err
	}
	t, err := parseTrip(in)
	if err != nil {
		return core.CardTransaction{}, err
	}

	c, err := s.store.GetCard(ctx, id)
	if err != nil {
		return core.CardTransaction{}, err
	}
	if err := in.apply(&c, t); err != nil {
		return core.CardTransaction{}, err
	}
	refund := strings.Contains(c.BookingID, storage.RefundSuffix)
	switch {
	case c.Type == core.TransactionRefund && !refund:
		c.BookingID += storage.RefundSuffix
	case c.Type == core.TransactionPayment && refund:
		c.BookingID = strings.ReplaceAll(c.BookingID, storage.RefundSuffix, "")
	}

	if err := s.store.UpdateCard(ctx, c); err != nil {
		return core.CardTransaction{}, fmt.Errorf("update card transaction: %w", err)
	}
	s.notify.changed(ctx, amqp.CategoryCard, amqp.ActionUpdated, 1, 0)
	return c, nil
}

func (s *CardService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteCard(ctx, id); err != nil {
		return err
	}
	s.notify.changed(ctx, amqp.CategoryCard, amqp.ActionDeleted, 1, 0)
	return nil
}

// DeleteSheet removes every transaction of a sheet along with its fee row.
func (s *CardService) DeleteSheet(ctx context.Context, sheet string) (int64, error) {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		return 0, fieldError("sheet_name", "required")
	}
	n, err := s.store.DeleteSheet(ctx, sheet)
	if err != nil {
		return 0, err
	}
	s.notify.changed(ctx, amqp.CategoryCard, amqp.ActionDeleted, int(n), 0)
	return n, nil
}

// CardImportMessage renders the result line shown after a card import.
func CardImportMessage(imported, updated, skipped int) string {
	return fmt.Sprintf("Import completed! Imported: %d, Updated: %d, Skipped: %d", imported, updated, skipped)
}

// Import reads a card CSV and stores it in one transaction.
func (s *CardService) Import(ctx context.Context, r io.Reader, opts storage.CardImportOptions) (CardImportSummary, error) {
	batch, err := importer.ReadCards(r)
	if err != nil {
		return CardImportSummary{}, fmt.Errorf("read csv: %w", err)
	}
	opts.OverrideSheet = strings.TrimSpace(opts.OverrideSheet)

	res, err := s.store.ImportCards(ctx, batch.Rows, opts)
	if err != nil {
		return CardImportSummary{}, fmt.Errorf("import card transactions: %w", err)
	}

	summary := CardImportSummary{
		Imported: res.Imported,
		Updated:  res.Updated,
		Skipped:  batch.Skipped + res.Skipped,
		Warnings: append(batch.Warnings, res.Warnings...),
	}
	summary.Message = CardImportMessage(summary.Imported, summary.Updated, summary.Skipped)
	slog.InfoContext(ctx, "Card import finished",
		"imported", summary.Imported,
		"updated", summary.Updated,
		"skipped", summary.Skipped)

	if res.Imported+res.Updated > 0 {
		s.notify.changed(ctx, amqp.CategoryCard, amqp.ActionImported, res.Imported+res.Updated, 0)
	}
	return summary, nil
}

// SheetFeeInput is one row of the fee form. Empty amounts read as zero.
type SheetFeeInput struct {
	SheetName     string `json:"sheet_name" validate:"required"`
	AdminInterest string `json:"biaya_adm_bunga" validate:"omitempty,numeric"`
	Transfer      string `json:"biaya_transfer" validate:"omitempty,numeric"`
	AnnualFee     string `json:"iuran_tahunan" validate:"omitempty,numeric"`
}

func optionalAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return core.ParseAmount(s)
}

func (s *CardService) Fees(ctx context.Context) ([]core.SheetFee, error) {
	return s.store.SheetFees(ctx)
}

// SaveFees upserts a batch of sheet fees in one transaction.
func (s *CardService) SaveFees(ctx context.Context, in []SheetFeeInput) error {
	fees := make([]core.SheetFee, 0, len(in))
	for _, f := range in {
		if err := validateInput(f); err != nil {
			return err
		}
		fee := core.SheetFee{SheetName: strings.TrimSpace(f.SheetName)}
		var err error
		if fee.AdminInterest, err = optionalAmount(f.AdminInterest); err != nil {
			return fieldError("biaya_adm_bunga", "numeric")
		}
		if fee.Transfer, err = optionalAmount(f.Transfer); err != nil {
			return fieldError("biaya_transfer", "numeric")
		}
		if fee.AnnualFee, err = optionalAmount(f.AnnualFee); err != nil {
			return fieldError("iuran_tahunan", "numeric")
		}
		fees = append(fees, fee)
	}
	if err := s.store.UpsertSheetFees(ctx, fees); err != nil {
		return err
	}
	s.notify.changed(ctx, amqp.CategorySheetFee, amqp.ActionUpdated, len(fees), 0)
	return nil
}

func (s *CardService) DeleteFee(ctx context.Context, sheet string) error {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		return fieldError("sheet_name", "required")
	}
	if err := s.store.DeleteSheetFee(ctx, sheet); err != nil {
		return err
	}
	s.notify.changed(ctx, amqp.CategorySheetFee, amqp.ActionDeleted, 1, 0)
	return nil
}
