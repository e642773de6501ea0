package dashboard

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
)

// Per-category caps applied before the merge, and the merged limit.
//
// The caps add up to 7, so the feed never reaches DefaultFeedLimit.
const (
	InstallmentFeedCap = 3
	ServiceFeeFeedCap  = 2
	CardFeedCap        = 2
	DefaultFeedLimit   = 8
)

const defaultStatus = "Complete"

// Activity is one line of the recent activity table.
type Activity struct {
	Person      string    `json:"person"`
	Date        string    `json:"date"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Total       string    `json:"total"`
	Status      string    `json:"status"`
	IsNew       bool      `json:"is_new"`
	SortDate    time.Time `json:"-"`
}

// event is a record normalised to what the merge needs.
type event struct {
	at       time.Time
	tiebreak int64
	item     Activity
}

// sentinel is the recency given to rows with no usable date at all.
func sentinel(now time.Time) time.Time {
	return now.AddDate(-100, 0, 0)
}

// resolve walks the recency chain: updated_at, created_at, natural date.
func resolve(touched *time.Time, natural *time.Time, now time.Time) (time.Time, bool) {
	if touched != nil {
		return *touched, true
	}
	if natural != nil && !natural.IsZero() {
		return *natural, true
	}
	return sentinel(now), false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

func installmentEvent(p core.InstallmentPayment, now time.Time) event {
	var natural *time.Time
	if t, ok := core.ParseLooseDate(p.PaidDate); ok {
		natural = &t
	}
	at, ok := resolve(p.Touched(), natural, now)

	date := fmt.Sprintf("%s %d", p.Month, p.Year)
	switch {
	case ok:
		date = at.Format(core.DisplayDateLayout)
	case p.PaidDate != "":
		date = p.PaidDate
	}

	status := p.Status
	if status == "" {
		status = defaultStatus
	}
	person := p.EmployeeName
	if person == "" {
		person = "Unknown"
	}

	return event{
		at:       at,
		tiebreak: int64(p.Year),
		item: Activity{
			Person:      person,
			Date:        date,
			Category:    core.CategoryInstallment,
			Description: "Angsuran BFKO - " + p.Month + " " + strconv.Itoa(p.Year),
			Total:       core.FormatRupiah(p.Amount),
			Status:      status,
			IsNew:       ok && sameDay(now, at),
			SortDate:    at,
		},
	}
}

func serviceFeeEvent(s core.ServiceFeeTransaction, now time.Time) event {
	at, ok := resolve(s.Touched(), s.TransactionTime, now)

	date := "-"
	if ok {
		date = at.Format(core.DisplayDateLayout)
	}

	kind := string(s.ServiceType)
	if kind == "" {
		kind = "Service"
	}
	location := s.HotelName
	if location == "" {
		location = s.Route
	}
	if location == "" {
		location = "Unknown"
	}
	person := s.EmployeeName
	if person == "" {
		person = "Unknown"
	}
	status := s.Status
	if status == "" {
		status = defaultStatus
	}

	return event{
		at:       at,
		tiebreak: s.ID,
		item: Activity{
			Person:      person,
			Date:        date,
			Category:    core.CategoryServiceFee,
			Description: core.UpperFirst(kind) + " - " + location,
			Total:       core.FormatRupiah(s.Amount),
			Status:      core.UpperFirst(status),
			IsNew:       ok && sameDay(now, at),
			SortDate:    at,
		},
	}
}

func cardEvent(c core.CardTransaction, now time.Time) event {
	var natural *time.Time
	if t, ok := core.ParseDepartureDate(c.DepartureDate); ok {
		natural = &t
	}
	at, ok := resolve(c.Touched(), natural, now)

	date := "-"
	switch {
	case ok:
		date = at.Format(core.DisplayDateLayout)
	case c.DepartureDate != "":
		date = c.DepartureDate
	}

	person := c.EmployeeName
	if person == "" {
		person = "Unknown"
	}
	status := c.Status
	if status == "" {
		status = defaultStatus
	}

	return event{
		at:       at,
		tiebreak: c.ID,
		item: Activity{
			Person:      person,
			Date:        date,
			Category:    core.CategoryCard,
			Description: string(c.Type) + " - " + c.TripDestinationFull,
			Total:       core.FormatRupiah(c.Amount),
			Status:      core.UpperFirst(status),
			IsNew:       ok && sameDay(now, at),
			SortDate:    at,
		},
	}
}

// newest orders events by recency, then by the category tie-break, both descending.
func newest(events []event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].at.Equal(events[j].at) {
			return events[i].at.After(events[j].at)
		}
		return events[i].tiebreak > events[j].tiebreak
	})
}

func top(events []event, n int) []event {
	newest(events)
	if len(events) > n {
		events = events[:n]
	}
	return events
}

// RecentActivity merges the newest rows of each category into one feed.
//
// Each category is first cut to its own cap (3 BFKO, 2 service fee, 2 card),
// then the survivors are concatenated, sorted newest first and truncated to
// limit. A limit of zero or less uses DefaultFeedLimit.
func RecentActivity(snap Snapshot, now time.Time, limit int) []Activity {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}

	installments := make([]event, 0, len(snap.Installments))
	for _, p := range snap.Installments {
		installments = append(installments, installmentEvent(p, now))
	}
	fees := make([]event, 0, len(snap.ServiceFees))
	for _, s := range snap.ServiceFees {
		fees = append(fees, serviceFeeEvent(s, now))
	}
	cards := make([]event, 0, len(snap.Cards))
	for _, c := range snap.Cards {
		cards = append(cards, cardEvent(c, now))
	}

	var merged []event
	merged = append(merged, top(installments, InstallmentFeedCap)...)
	merged = append(merged, top(fees, ServiceFeeFeedCap)...)
	merged = append(merged, top(cards, CardFeedCap)...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].at.After(merged[j].at)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	out := make([]Activity, len(merged))
	for i, e := range merged {
		out[i] = e.item
	}
	return out
}
