package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
)

const serviceFeeColumns = `id, employee_name, service_type, hotel_name, route, transaction_amount,
	transaction_time, status, created_at, updated_at`

func scanServiceFee(s scanner) (core.ServiceFeeTransaction, error) {
	var (
		f                core.ServiceFeeTransaction
		kind             string
		txTime           sql.NullString
		created, updated sql.NullString
	)
	err := s.Scan(&f.ID, &f.EmployeeName, &kind, &f.HotelName, &f.Route, &f.Amount,
		&txTime, &f.Status, &created, &updated)
	if err != nil {
		return f, err
	}
	f.ServiceType = core.ServiceType(kind)
	f.TransactionTime = parseTime(txTime)
	f.CreatedAt = parseTime(created)
	f.UpdatedAt = parseTime(updated)
	return f, nil
}

// ServiceFees returns rows whose transaction time falls within f.
func (r *SQLiteRepository) ServiceFees(ctx context.Context, f core.Filter) ([]core.ServiceFeeTransaction, error) {
	var (
		conds []string
		args  []any
	)
	if f.Year != 0 {
		conds = append(conds, "CAST(strftime('%Y', transaction_time) AS INTEGER) = ?")
		args = append(args, f.Year)
	}
	if f.Month != 0 {
		conds = append(conds, "CAST(strftime('%m', transaction_time) AS INTEGER) = ?")
		args = append(args, f.Month)
	}
	query := "SELECT " + serviceFeeColumns + " FROM service_fees"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := r.db.QueryContext(ctx, query+" ORDER BY transaction_time DESC, id DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("list service fees: %w", err)
	}
	defer rows.Close()

	var out []core.ServiceFeeTransaction
	for rows.Next() {
		s, err := scanServiceFee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service fee: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateServiceFee(ctx context.Context, s core.ServiceFeeTransaction) (int64, error) {
	now := r.stamp()
	res, err := r.db.ExecContext(ctx, `INSERT INTO service_fees
		(employee_name, service_type, hotel_name, route, transaction_amount, transaction_time, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.EmployeeName, string(s.ServiceType), s.HotelName, s.Route, s.Amount.String(),
		nullTime(s.TransactionTime), s.Status, now, now)
	if err != nil {
		return 0, fmt.Errorf("create service fee: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) DeleteServiceFee(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM service_fees WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete service fee %d: %w", id, err)
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
