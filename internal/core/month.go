package core

import "strings"

// UnknownMonthOrdinal is assigned to any month name outside the calendar table
// so that such rows sort after December.
const UnknownMonthOrdinal = 99

var monthNames = [12]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

var monthOrdinals = func() map[string]int {
	m := make(map[string]int, len(monthNames))
	for i, name := range monthNames {
		m[name] = i + 1
	}
	return m
}()

// MonthOrdinal maps an Indonesian month name to 1..12. Matching is exact, like
// the stored bulan values; anything else yields UnknownMonthOrdinal.
func MonthOrdinal(name string) int {
	if n, ok := monthOrdinals[name]; ok {
		return n
	}
	return UnknownMonthOrdinal
}

// MonthName returns the Indonesian name for month n (1..12).
func MonthName(n int) (string, bool) {
	if n < 1 || n > 12 {
		return "", false
	}
	return monthNames[n-1], true
}

// MonthNames returns the twelve month names in calendar order.
func MonthNames() []string {
	out := make([]string, len(monthNames))
	copy(out, monthNames[:])
	return out
}

// MonthLabel is the short chart label: the first three characters of the name.
func MonthLabel(n int) string {
	name, ok := MonthName(n)
	if !ok {
		return ""
	}
	return name[:3]
}

// NormalizeMonthName accepts case-insensitive input and returns the canonical
// spelling, or the trimmed input unchanged when it is not a known month.
func NormalizeMonthName(s string) string {
	s = strings.TrimSpace(s)
	for _, name := range monthNames {
		if strings.EqualFold(name, s) {
			return name
		}
	}
	return s
}
