package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
)

// CardColumns is the minimum width of a card CSV row.
const CardColumns = 14

// CardBatch is the outcome of reading a card CSV.
type CardBatch struct {
	Rows     []core.CardTransaction
	Skipped  int
	Warnings []string
}

// ReadCards parses a card transaction CSV in the billing export layout:
// number, booking id, name, personel number, trip number, origin,
// destination, full destination, departure, return, duration, amount, type
// and sheet. Shorter rows are counted as skipped. Numeric columns that do not
// parse read as zero; an unknown transaction type or a negative amount
// rejects the row.
func ReadCards(r io.Reader) (CardBatch, error) {
	var b CardBatch
	warn := func(msg string) { b.Warnings = append(b.Warnings, msg) }

	err := readRows(r, warn, func(line int, rec []string) {
		if len(rec) < CardColumns {
			b.Skipped++
			return
		}

		kind := core.TransactionType(strings.ToLower(field(rec, 12)))
		if !kind.Valid() {
			b.Skipped++
			warn(fmt.Sprintf("line %d: unknown transaction type %q", line, field(rec, 12)))
			return
		}
		raw := strings.ReplaceAll(field(rec, 11), ",", "")
		amount, err := core.ParseAmount(raw)
		if err != nil {
			if d, derr := decimal.NewFromString(strings.TrimSpace(raw)); derr == nil && d.IsNegative() {
				b.Skipped++
				warn(fmt.Sprintf("line %d: negative payment amount %q", line, field(rec, 11)))
				return
			}
			amount = decimal.Zero
		}
		number, _ := strconv.Atoi(field(rec, 0))
		days, _ := strconv.Atoi(field(rec, 10))

		b.Rows = append(b.Rows, core.CardTransaction{
			TransactionNumber:   number,
			BookingID:           field(rec, 1),
			EmployeeName:        field(rec, 2),
			EmployeeID:          field(rec, 3),
			TripNumber:          field(rec, 4),
			Origin:              field(rec, 5),
			Destination:         field(rec, 6),
			TripDestinationFull: field(rec, 7),
			DepartureDate:       field(rec, 8),
			ReturnDate:          field(rec, 9),
			DurationDays:        days,
			Amount:              amount,
			Type:                kind,
			Sheet:               field(rec, 13),
		})
	})
	return b, err
}
