package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/dashboard"
)

var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"No", 12, "C"},
	{"Bulan", 40, "L"},
	{"Tahun", 25, "C"},
	{"Nilai Angsuran", 55, "R"},
	{"Tanggal Bayar", 45, "C"},
	{"Status", 45, "C"},
}

// WritePDF renders the grouped report on A4 landscape pages: one block per
// employee with their payments and subtotal, then the grand total.
func WritePDF(w io.Writer, report dashboard.Report, exportedAt time.Time) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Halaman %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, "Laporan Angsuran BFKO", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, report.YearLabel, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, "Dicetak: "+exportedAt.Format("02-01-2006 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	for _, emp := range report.Employees {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("%s - %s", emp.EmployeeID, emp.EmployeeName), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 5, fmt.Sprintf("%s | %s", emp.Role, emp.Unit), "", 1, "L", false, 0, "")

		pdf.SetFillColor(31, 78, 121)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Helvetica", "B", 9)
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, 7, col.title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "", 9)
		for i, p := range emp.Payments {
			cells := []string{
				strconv.Itoa(i + 1),
				p.Month,
				strconv.Itoa(p.Year),
				core.FormatRupiah(p.Amount),
				orDash(p.PaidDate),
				orDash(p.Status),
			}
			for c, col := range pdfColumns {
				pdf.CellFormat(col.width, 6, cells[c], "1", 0, col.align, false, 0, "")
			}
			pdf.Ln(-1)
		}

		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(77, 6, "Subtotal", "1", 0, "R", false, 0, "")
		pdf.CellFormat(55, 6, core.FormatRupiah(emp.Total), "1", 0, "R", false, 0, "")
		pdf.Ln(9)
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(77, 8, "Total Keseluruhan", "1", 0, "R", false, 0, "")
	pdf.CellFormat(55, 8, core.FormatRupiah(report.Total), "1", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
