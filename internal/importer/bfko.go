package importer

import (
	"fmt"
	"io"
	"strconv"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
)

// BFKO CSV columns.
const (
	colNIP = iota
	colNama
	colJabatan
	colUnit
	colBulan
	colTahun
	colNilai
	colTanggalBayar
	colStatus
)

// InstallmentBatch is the outcome of reading a BFKO CSV.
type InstallmentBatch struct {
	Rows     []core.InstallmentPayment
	Skipped  int
	Warnings []string
}

// ReadInstallments parses a BFKO CSV. Rows lacking nip, nama, bulan, tahun
// or nilai_angsuran are skipped without a warning; rows whose year or amount
// does not parse are rejected with one.
func ReadInstallments(r io.Reader) (InstallmentBatch, error) {
	var b InstallmentBatch
	warn := func(msg string) { b.Warnings = append(b.Warnings, msg) }

	err := readRows(r, warn, func(line int, rec []string) {
		nip, nama := field(rec, colNIP), field(rec, colNama)
		bulan, tahun, nilai := field(rec, colBulan), field(rec, colTahun), field(rec, colNilai)
		if nip == "" || nama == "" || bulan == "" || tahun == "" || nilai == "" {
			b.Skipped++
			return
		}

		year, err := strconv.Atoi(tahun)
		if err != nil {
			warn(fmt.Sprintf("line %d: invalid tahun %q", line, tahun))
			return
		}
		amount, err := core.ParseAmount(nilai)
		if err != nil {
			warn(fmt.Sprintf("line %d: invalid nilai_angsuran %q", line, nilai))
			return
		}

		p := core.InstallmentPayment{
			EmployeeID:   nip,
			EmployeeName: nama,
			Role:         field(rec, colJabatan),
			Unit:         field(rec, colUnit),
			Month:        core.NormalizeMonthName(bulan),
			Year:         year,
			Amount:       amount,
			PaidDate:     field(rec, colTanggalBayar),
			Status:       field(rec, colStatus),
		}
		if err := p.Validate(); err != nil {
			warn(fmt.Sprintf("line %d: %v", line, err))
			return
		}
		b.Rows = append(b.Rows, p)
	})
	return b, err
}
