package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/dashboard"
)

const sheetName = "Data BFKO"

var excelHeaders = []string{
	"No", "NIP", "Nama", "Jabatan", "Unit", "Bulan", "Tahun",
	"Nilai Angsuran", "Tanggal Bayar", "Status Angsuran",
}

// WriteExcel writes one row per payment, ordered by name, newest year and
// month, followed by a total row.
func WriteExcel(w io.Writer, payments []core.InstallmentPayment, year int) error {
	rows := make([]core.InstallmentPayment, len(payments))
	copy(rows, payments)
	dashboard.SortForSpreadsheet(rows)

	f := excelize.NewFile()
	defer f.Close()

	f.SetAppProps(&excelize.AppProperties{Application: "Dashboard Monitoring"})
	f.SetDocProps(&excelize.DocProperties{
		Title:   "BFKO " + YearLabel(year),
		Creator: "Dashboard Monitoring",
	})

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range excelHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, h)
	}

	var total float64
	for i, p := range rows {
		r := i + 2
		amount := p.Amount.InexactFloat64()
		total += amount
		values := []any{i + 1, p.EmployeeID, p.EmployeeName, p.Role, p.Unit, p.Month, p.Year, amount, p.PaidDate, p.Status}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	lastRow := len(rows) + 1
	totalRow := lastRow + 1
	f.SetCellValue(sheetName, fmt.Sprintf("G%d", totalRow), "Total")
	f.SetCellValue(sheetName, fmt.Sprintf("H%d", totalRow), total)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1F4E79"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	f.SetCellStyle(sheetName, "A1", "J1", headerStyle)

	// #,##0
	moneyStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 3})
	f.SetCellStyle(sheetName, "H2", fmt.Sprintf("H%d", totalRow), moneyStyle)

	totalStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 3})
	f.SetCellStyle(sheetName, fmt.Sprintf("G%d", totalRow), fmt.Sprintf("H%d", totalRow), totalStyle)

	widths := map[string]float64{"A": 6, "B": 16, "C": 28, "D": 24, "E": 18, "F": 12, "G": 8, "H": 18, "I": 14, "J": 16}
	for col, w := range widths {
		f.SetColWidth(sheetName, col, col, w)
	}

	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	if len(rows) > 0 {
		f.AutoFilter(sheetName, fmt.Sprintf("A1:J%d", lastRow), []excelize.AutoFilterOptions{})
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
