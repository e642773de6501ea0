// Package export renders BFKO data as downloadable spreadsheets and reports.
package export

import (
	"fmt"
	"time"
)

const timestampLayout = "20060102_150405"

// yearToken is the filename part for a year filter, 0 meaning all years.
func yearToken(year int) string {
	if year == 0 {
		return "All_Years"
	}
	return fmt.Sprint(year)
}

// YearLabel is the heading used on reports: "Semua Tahun" or "Tahun 2024".
func YearLabel(year int) string {
	if year == 0 {
		return "Semua Tahun"
	}
	return fmt.Sprintf("Tahun %d", year)
}

// ExcelFilename names a BFKO workbook download.
func ExcelFilename(year int, at time.Time) string {
	return fmt.Sprintf("BFKO_%s_%s.xlsx", yearToken(year), at.Format(timestampLayout))
}

// PDFFilename names a BFKO report download.
func PDFFilename(year int, at time.Time) string {
	return fmt.Sprintf("BFKO_Report_%s_%s.pdf", yearToken(year), at.Format(timestampLayout))
}
