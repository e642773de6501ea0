package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
)

func (r *SQLiteRepository) SheetFees(ctx context.Context) ([]core.SheetFee, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT sheet_name, biaya_adm_bunga, biaya_transfer, iuran_tahunan
		FROM sheet_additional_fees ORDER BY sheet_name`)
	if err != nil {
		return nil, fmt.Errorf("list sheet fees: %w", err)
	}
	defer rows.Close()

	var out []core.SheetFee
	for rows.Next() {
		var f core.SheetFee
		if err := rows.Scan(&f.SheetName, &f.AdminInterest, &f.Transfer, &f.AnnualFee); err != nil {
			return nil, fmt.Errorf("scan sheet fee: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// EnsureSheetFee creates a zeroed fee row for sheet if none exists.
func (r *SQLiteRepository) EnsureSheetFee(ctx context.Context, sheet string) error {
	now := r.stamp()
	_, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO sheet_additional_fees
		(sheet_name, biaya_adm_bunga, biaya_transfer, iuran_tahunan, created_at, updated_at)
		VALUES (?, '0', '0', '0', ?, ?)`, sheet, now, now)
	if err != nil {
		return fmt.Errorf("ensure sheet fee %q: %w", sheet, err)
	}
	return nil
}

// UpsertSheetFees stores a batch of fee rows in one transaction.
func (r *SQLiteRepository) UpsertSheetFees(ctx context.Context, fees []core.SheetFee) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		now := r.stamp()
		for _, f := range fees {
			_, err := tx.ExecContext(ctx, `INSERT INTO sheet_additional_fees
				(sheet_name, biaya_adm_bunga, biaya_transfer, iuran_tahunan, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(sheet_name) DO UPDATE SET
					biaya_adm_bunga = excluded.biaya_adm_bunga,
					biaya_transfer = excluded.biaya_transfer,
					iuran_tahunan = excluded.iuran_tahunan,
					updated_at = excluded.updated_at`,
				f.SheetName, f.AdminInterest.String(), f.Transfer.String(), f.AnnualFee.String(), now, now)
			if err != nil {
				return fmt.Errorf("upsert sheet fee %q: %w", f.SheetName, err)
			}
		}
		return nil
	})
}

// DeleteSheetFee removes one fee row; core.ErrNotFound when there was none.
func (r *SQLiteRepository) DeleteSheetFee(ctx context.Context, sheet string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sheet_additional_fees WHERE sheet_name = ?", sheet)
	if err != nil {
		return fmt.Errorf("delete sheet fee %q: %w", sheet, err)
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
