package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
)

const installmentColumns = `id, nip, nama, jabatan, unit, bulan, tahun, nilai_angsuran,
	tanggal_bayar, status_angsuran, created_at, updated_at`

// UpsertResult reports what a BFKO import batch did.
type UpsertResult struct {
	Inserted int
	Updated  int
	Warnings []string
}

func scanInstallment(s scanner) (core.InstallmentPayment, error) {
	var (
		p                core.InstallmentPayment
		paid, status     sql.NullString
		created, updated sql.NullString
	)
	err := s.Scan(&p.ID, &p.EmployeeID, &p.EmployeeName, &p.Role, &p.Unit, &p.Month, &p.Year,
		&p.Amount, &paid, &status, &created, &updated)
	if err != nil {
		return p, err
	}
	p.PaidDate = paid.String
	p.Status = status.String
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return p, nil
}

func (r *SQLiteRepository) queryInstallments(ctx context.Context, query string, args ...any) ([]core.InstallmentPayment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.InstallmentPayment
	for rows.Next() {
		p, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// installmentWhere renders the tahun/bulan part of a Filter as SQL.
func installmentWhere(f core.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Year != 0 {
		conds = append(conds, "tahun = ?")
		args = append(args, f.Year)
	}
	if f.Month != 0 {
		name, ok := core.MonthName(f.Month)
		if !ok {
			// no row can have an out-of-range month
			conds = append(conds, "0")
		} else {
			conds = append(conds, "bulan = ?")
			args = append(args, name)
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Installments returns BFKO rows matching f.
func (r *SQLiteRepository) Installments(ctx context.Context, f core.Filter) ([]core.InstallmentPayment, error) {
	where, args := installmentWhere(f)
	out, err := r.queryInstallments(ctx,
		"SELECT "+installmentColumns+" FROM bfko_payments"+where+" ORDER BY tahun DESC, id", args...)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	return out, nil
}

// EmployeeInstallments returns one employee's rows, optionally for a single year.
func (r *SQLiteRepository) EmployeeInstallments(ctx context.Context, nip string, year int) ([]core.InstallmentPayment, error) {
	query := "SELECT " + installmentColumns + " FROM bfko_payments WHERE nip = ?"
	args := []any{nip}
	if year != 0 {
		query += " AND tahun = ?"
		args = append(args, year)
	}
	out, err := r.queryInstallments(ctx, query+" ORDER BY tahun DESC, id", args...)
	if err != nil {
		return nil, fmt.Errorf("list installments for %s: %w", nip, err)
	}
	return out, nil
}

func (r *SQLiteRepository) queryInts(ctx context.Context, query string, args ...any) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// InstallmentYears lists the distinct tahun values, newest first.
func (r *SQLiteRepository) InstallmentYears(ctx context.Context) ([]int, error) {
	years, err := r.queryInts(ctx, "SELECT DISTINCT tahun FROM bfko_payments ORDER BY tahun DESC")
	if err != nil {
		return nil, fmt.Errorf("list installment years: %w", err)
	}
	return years, nil
}

// EmployeeYears lists the years an employee has payments in, newest first.
func (r *SQLiteRepository) EmployeeYears(ctx context.Context, nip string) ([]int, error) {
	years, err := r.queryInts(ctx,
		"SELECT DISTINCT tahun FROM bfko_payments WHERE nip = ? ORDER BY tahun DESC", nip)
	if err != nil {
		return nil, fmt.Errorf("list years for %s: %w", nip, err)
	}
	return years, nil
}

// CountEmployees counts distinct nip values, within year when it is non-zero.
func (r *SQLiteRepository) CountEmployees(ctx context.Context, year int) (int, error) {
	query := "SELECT COUNT(DISTINCT nip) FROM bfko_payments"
	var args []any
	if year != 0 {
		query += " WHERE tahun = ?"
		args = append(args, year)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count employees: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) GetInstallment(ctx context.Context, id int64) (core.InstallmentPayment, error) {
	p, err := scanInstallment(r.db.QueryRowContext(ctx,
		"SELECT "+installmentColumns+" FROM bfko_payments WHERE id = ?", id))
	if isNoRows(err) {
		return p, core.ErrNotFound
	}
	if err != nil {
		return p, fmt.Errorf("get installment %d: %w", id, err)
	}
	return p, nil
}

func (r *SQLiteRepository) CreateInstallment(ctx context.Context, p core.InstallmentPayment) (int64, error) {
	now := r.stamp()
	res, err := r.db.ExecContext(ctx, `INSERT INTO bfko_payments
		(nip, nama, jabatan, unit, bulan, tahun, nilai_angsuran, tanggal_bayar, status_angsuran, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.EmployeeID, p.EmployeeName, p.Role, p.Unit, p.Month, p.Year, p.Amount.String(),
		nullString(p.PaidDate), nullString(p.Status), now, now)
	if err != nil {
		return 0, fmt.Errorf("create installment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	slog.InfoContext(ctx, "Installment saved", "id", id, "nip", p.EmployeeID, "bulan", p.Month, "tahun", p.Year)
	return id, nil
}

// UpdateInstallment rewrites every editable column of row p.ID.
func (r *SQLiteRepository) UpdateInstallment(ctx context.Context, p core.InstallmentPayment) error {
	res, err := r.db.ExecContext(ctx, `UPDATE bfko_payments SET
		nip = ?, nama = ?, jabatan = ?, unit = ?, bulan = ?, tahun = ?, nilai_angsuran = ?,
		tanggal_bayar = ?, status_angsuran = ?, updated_at = ?
		WHERE id = ?`,
		p.EmployeeID, p.EmployeeName, p.Role, p.Unit, p.Month, p.Year, p.Amount.String(),
		nullString(p.PaidDate), nullString(p.Status), r.stamp(), p.ID)
	if err != nil {
		return fmt.Errorf("update installment %d: %w", p.ID, err)
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

func (r *SQLiteRepository) DeleteInstallment(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM bfko_payments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete installment %d: %w", id, err)
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

// DeleteEmployee removes an employee's rows, only within year when non-zero.
func (r *SQLiteRepository) DeleteEmployee(ctx context.Context, nip string, year int) (int64, error) {
	query := "DELETE FROM bfko_payments WHERE nip = ?"
	args := []any{nip}
	if year != 0 {
		query += " AND tahun = ?"
		args = append(args, year)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete employee %s: %w", nip, err)
	}
	return rowsAffected(res)
}

// DeleteAllInstallments empties the BFKO table in one transaction.
func (r *SQLiteRepository) DeleteAllInstallments(ctx context.Context) (int64, error) {
	var n int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM bfko_payments")
		if err != nil {
			return fmt.Errorf("delete installments: %w", err)
		}
		n, err = rowsAffected(res)
		return err
	})
	if err != nil {
		return 0, err
	}
	slog.WarnContext(ctx, "All installments deleted", "count", n)
	return n, nil
}

// UpsertInstallments writes a batch keyed on (nip, bulan, tahun) inside one
// transaction. A row that fails is recorded as a warning and the batch goes on;
// only a failure to begin or commit aborts the import.
func (r *SQLiteRepository) UpsertInstallments(ctx context.Context, rows []core.InstallmentPayment) (UpsertResult, error) {
	var result UpsertResult
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		now := r.stamp()
		for i, p := range rows {
			var id int64
			err := tx.QueryRowContext(ctx,
				"SELECT id FROM bfko_payments WHERE nip = ? AND bulan = ? AND tahun = ?",
				p.EmployeeID, p.Month, p.Year).Scan(&id)
			switch {
			case isNoRows(err):
				_, err = tx.ExecContext(ctx, `INSERT INTO bfko_payments
					(nip, nama, jabatan, unit, bulan, tahun, nilai_angsuran, tanggal_bayar, status_angsuran, created_at, updated_at)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					p.EmployeeID, p.EmployeeName, p.Role, p.Unit, p.Month, p.Year, p.Amount.String(),
					nullString(p.PaidDate), nullString(p.Status), now, now)
				if err == nil {
					result.Inserted++
				}
			case err == nil:
				_, err = tx.ExecContext(ctx, `UPDATE bfko_payments SET
					nama = ?, jabatan = ?, unit = ?, nilai_angsuran = ?, tanggal_bayar = ?, status_angsuran = ?, updated_at = ?
					WHERE id = ?`,
					p.EmployeeName, p.Role, p.Unit, p.Amount.String(),
					nullString(p.PaidDate), nullString(p.Status), now, id)
				if err == nil {
					result.Updated++
				}
			}
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("row %d (%s %s %d): %v", i+1, p.EmployeeID, p.Month, p.Year, err))
			}
		}
		return nil
	})
	if err != nil {
		return UpsertResult{}, err
	}

	slog.InfoContext(ctx, "Installments upserted",
		"inserted", result.Inserted,
		"updated", result.Updated,
		"warnings", len(result.Warnings))
	return result, nil
}
