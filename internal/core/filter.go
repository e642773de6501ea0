package core

import (
	"strconv"
	"strings"
	"time"
)

// DepartureLayout is the non-padded month/day/year text stored for card trips.
const DepartureLayout = "1/2/2006"

// DisplayDateLayout is the day-month-year form shown in lists.
const DisplayDateLayout = "02-01-2006"

// Filter narrows rows by calendar year and month. Zero means "any".
type Filter struct {
	Year  int
	Month int
}

func (f Filter) IsZero() bool { return f.Year == 0 && f.Month == 0 }

func (f Filter) matches(year, month int) bool {
	if f.Year != 0 && f.Year != year {
		return false
	}
	if f.Month != 0 && f.Month != month {
		return false
	}
	return true
}

// MatchInstallment compares against the row's own tahun and bulan fields.
func (f Filter) MatchInstallment(p InstallmentPayment) bool {
	if f.IsZero() {
		return true
	}
	return f.matches(p.Year, MonthOrdinal(p.Month))
}

// MatchServiceFee uses the transaction time; rows without one only match an empty filter.
func (f Filter) MatchServiceFee(s ServiceFeeTransaction) bool {
	if f.IsZero() {
		return true
	}
	if s.TransactionTime == nil {
		return false
	}
	return f.matches(s.TransactionTime.Year(), int(s.TransactionTime.Month()))
}

// MatchCard uses the parsed departure date; unparseable dates only match an empty filter.
func (f Filter) MatchCard(c CardTransaction) bool {
	if f.IsZero() {
		return true
	}
	t, ok := ParseDepartureDate(c.DepartureDate)
	if !ok {
		return false
	}
	return f.matches(t.Year(), int(t.Month()))
}

// ParseDepartureDate parses the strict month/day/year text of a card trip.
func ParseDepartureDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DepartureLayout, s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// looseDateLayouts are tried for free-form stored dates (payment dates, form input).
var looseDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	DisplayDateLayout,
	DepartureLayout,
}

// ParseLooseDate accepts the handful of date spellings found in imported data.
func ParseLooseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range looseDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseYearParam reads a tahun/year query value. "all" and "" mean no filter.
func ParseYearParam(s string) (year int, all bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return 0, true, nil
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < 1900 || y > 9999 {
		return 0, false, ErrInvalidYear
	}
	return y, false, nil
}
