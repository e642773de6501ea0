package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
)

// RefundSuffix marks the booking id of a refund row.
const RefundSuffix = "-REFUND"

const cardColumns = `id, transaction_number, booking_id, employee_name, personel_number, trip_number,
	origin, destination, trip_destination_full, departure_date, return_date, duration_days,
	payment_amount, transaction_type, sheet, status, created_at, updated_at`

// EmployeeRef is one autocomplete suggestion.
type EmployeeRef struct {
	Name   string `json:"employee_name"`
	Number string `json:"personel_number"`
}

// CardImportOptions control how an import treats existing bookings.
type CardImportOptions struct {
	UpdateExisting bool
	OverrideSheet  string
}

// CardImportResult counts what a card import did.
type CardImportResult struct {
	Imported int
	Updated  int
	Skipped  int
	Warnings []string
}

func scanCard(s scanner) (core.CardTransaction, error) {
	var (
		c                core.CardTransaction
		kind             string
		created, updated sql.NullString
	)
	err := s.Scan(&c.ID, &c.TransactionNumber, &c.BookingID, &c.EmployeeName, &c.EmployeeID, &c.TripNumber,
		&c.Origin, &c.Destination, &c.TripDestinationFull, &c.DepartureDate, &c.ReturnDate, &c.DurationDays,
		&c.Amount, &kind, &c.Sheet, &c.Status, &created, &updated)
	if err != nil {
		return c, err
	}
	c.Type = core.TransactionType(kind)
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	return c, nil
}

// Cards returns card rows matching f. Departure dates are free text, so the
// filter is applied after loading rather than in SQL.
func (r *SQLiteRepository) Cards(ctx context.Context, f core.Filter) ([]core.CardTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+cardColumns+" FROM cc_transactions ORDER BY sheet, transaction_number, id")
	if err != nil {
		return nil, fmt.Errorf("list card transactions: %w", err)
	}
	defer rows.Close()

	var out []core.CardTransaction
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card transaction: %w", err)
		}
		if f.MatchCard(c) {
			out = append(out, c)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate card transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetCard(ctx context.Context, id int64) (core.CardTransaction, error) {
	c, err := scanCard(r.db.QueryRowContext(ctx,
		"SELECT "+cardColumns+" FROM cc_transactions WHERE id = ?", id))
	if isNoRows(err) {
		return c, core.ErrNotFound
	}
	if err != nil {
		return c, fmt.Errorf("get card transaction %d: %w", id, err)
	}
	return c, nil
}

// MaxTransactionNumber returns the highest transaction number, 0 when empty.
func (r *SQLiteRepository) MaxTransactionNumber(ctx context.Context) (int, error) {
	var n sql.NullInt64
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(transaction_number) FROM cc_transactions").Scan(&n); err != nil {
		return 0, fmt.Errorf("max transaction number: %w", err)
	}
	return int(n.Int64), nil
}

func insertCard(ctx context.Context, ex execer, c core.CardTransaction, now string) (int64, error) {
	res, err := ex.ExecContext(ctx, `INSERT INTO cc_transactions
		(transaction_number, booking_id, employee_name, personel_number, trip_number, origin, destination,
		 trip_destination_full, departure_date, return_date, duration_days, payment_amount, transaction_type,
		 sheet, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.TransactionNumber, c.BookingID, c.EmployeeName, c.EmployeeID, c.TripNumber, c.Origin, c.Destination,
		c.TripDestinationFull, c.DepartureDate, c.ReturnDate, c.DurationDays, c.Amount.String(), string(c.Type),
		c.Sheet, c.Status, now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func updateCard(ctx context.Context, ex execer, c core.CardTransaction, now string) (int64, error) {
	res, err := ex.ExecContext(ctx, `UPDATE cc_transactions SET
		transaction_number = ?, booking_id = ?, employee_name = ?, personel_number = ?, trip_number = ?,
		origin = ?, destination = ?, trip_destination_full = ?, departure_date = ?, return_date = ?,
		duration_days = ?, payment_amount = ?, transaction_type = ?, sheet = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		c.TransactionNumber, c.BookingID, c.EmployeeName, c.EmployeeID, c.TripNumber,
		c.Origin, c.Destination, c.TripDestinationFull, c.DepartureDate, c.ReturnDate,
		c.DurationDays, c.Amount.String(), string(c.Type), c.Sheet, c.Status, now, c.ID)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLiteRepository) CreateCard(ctx context.Context, c core.CardTransaction) (int64, error) {
	id, err := insertCard(ctx, r.db, c, r.stamp())
	if err != nil {
		return 0, fmt.Errorf("create card transaction: %w", err)
	}
	slog.InfoContext(ctx, "Card transaction saved", "id", id, "booking_id", c.BookingID, "sheet", c.Sheet)
	return id, nil
}

func (r *SQLiteRepository) UpdateCard(ctx context.Context, c core.CardTransaction) error {
	n, err := updateCard(ctx, r.db, c, r.stamp())
	if err != nil {
		return fmt.Errorf("update card transaction %d: %w", c.ID, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteCard(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cc_transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete card transaction %d: %w", id, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// AutocompleteEmployees finds distinct name/number pairs whose name contains q.
func (r *SQLiteRepository) AutocompleteEmployees(ctx context.Context, q string, limit int) ([]EmployeeRef, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT employee_name, personel_number
		FROM cc_transactions
		WHERE employee_name LIKE ?
		ORDER BY employee_name
		LIMIT ?`, "%"+q+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("autocomplete employees: %w", err)
	}
	defer rows.Close()

	var out []EmployeeRef
	for rows.Next() {
		var e EmployeeRef
		if err := rows.Scan(&e.Name, &e.Number); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CardSheets lists the distinct billing sheet names.
func (r *SQLiteRepository) CardSheets(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT sheet FROM cc_transactions WHERE sheet <> '' ORDER BY sheet")
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan sheet: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// refundBookingID derives the stored booking id of an imported refund: the
// first refund of a booking gets RefundSuffix, later ones RefundSuffix-n.
func refundBookingID(ctx context.Context, ex execer, booking string) (string, error) {
	var existing int
	err := ex.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM cc_transactions WHERE booking_id LIKE ?", booking+RefundSuffix+"%").Scan(&existing)
	if err != nil {
		return "", err
	}
	if existing > 0 {
		return booking + RefundSuffix + "-" + strconv.Itoa(existing+1), nil
	}
	return booking + RefundSuffix, nil
}

// ImportCards writes parsed CSV rows in one transaction. Existing bookings are
// skipped unless opts.UpdateExisting is set. Afterwards every sheet gets a fee
// row.
func (r *SQLiteRepository) ImportCards(ctx context.Context, rows []core.CardTransaction, opts CardImportOptions) (CardImportResult, error) {
	var result CardImportResult
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := r.stamp()
		for i, c := range rows {
			if c.Type == core.TransactionRefund && !strings.Contains(c.BookingID, RefundSuffix) {
				id, err := refundBookingID(ctx, tx, c.BookingID)
				if err != nil {
					return fmt.Errorf("count refunds for %s: %w", c.BookingID, err)
				}
				c.BookingID = id
			}

			var existingID int64
			err := tx.QueryRowContext(ctx, "SELECT id FROM cc_transactions WHERE booking_id = ?", c.BookingID).Scan(&existingID)
			exists := err == nil
			if err != nil && !isNoRows(err) {
				return fmt.Errorf("find booking %s: %w", c.BookingID, err)
			}
			if exists && !opts.UpdateExisting {
				result.Skipped++
				continue
			}

			if opts.OverrideSheet != "" {
				c.Sheet = opts.OverrideSheet
			}
			c.Status = "active"

			if exists {
				c.ID = existingID
				_, err = updateCard(ctx, tx, c, now)
				if err == nil {
					result.Updated++
				}
			} else {
				_, err = insertCard(ctx, tx, c, now)
				if err == nil {
					result.Imported++
				}
			}
			if err != nil {
				result.Skipped++
				result.Warnings = append(result.Warnings, fmt.Sprintf("row %d (%s): %v", i+1, c.BookingID, err))
			}
		}
		return nil
	})
	if err != nil {
		return CardImportResult{}, err
	}

	sheets, err := r.CardSheets(ctx)
	if err != nil {
		return result, err
	}
	for _, s := range sheets {
		if err := r.EnsureSheetFee(ctx, s); err != nil {
			return result, err
		}
	}

	slog.InfoContext(ctx, "Card transactions imported",
		"imported", result.Imported,
		"updated", result.Updated,
		"skipped", result.Skipped)
	return result, nil
}

// DeleteSheet removes a sheet's transactions and its fee row together.
func (r *SQLiteRepository) DeleteSheet(ctx context.Context, sheet string) (int64, error) {
	var n int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM cc_transactions WHERE sheet = ?", sheet)
		if err != nil {
			return fmt.Errorf("delete sheet transactions: %w", err)
		}
		if n, err = rowsAffected(res); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM sheet_additional_fees WHERE sheet_name = ?", sheet); err != nil {
			return fmt.Errorf("delete sheet fee: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Sheet deleted", "sheet", sheet, "transactions", n)
	return n, nil
}
