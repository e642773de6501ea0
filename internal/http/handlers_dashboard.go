package http

import (
	"net/http"
	"time"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/dashboard"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/log"
)

// summaryCard is one of the four figures at the top of the home page.
type summaryCard struct {
	Label   string
	Total   string
	Compact string
	Count   int
	Share   string
}

type dashboardPage struct {
	Model     dashboard.ReadModel
	Cards     []summaryCard
	Years     []int
	Months    []string
	Year      int
	Month     int
	Generated string
}

func summaryCards(m dashboard.ReadModel) []summaryCard {
	t := m.Totals
	grand := t.GrandTotal()
	return []summaryCard{
		{
			Label: core.CategoryInstallment, Total: core.FormatRupiah(t.Installment.Total),
			Compact: core.FormatRupiahCompact(t.Installment.Total), Count: t.Installment.Count,
			Share: formatPercent(m.Shares.Installment),
		},
		{
			Label: core.CategoryCard, Total: core.FormatRupiah(t.Card.Total),
			Compact: core.FormatRupiahCompact(t.Card.Total), Count: t.Card.Count,
			Share: formatPercent(m.Shares.Card),
		},
		{
			Label: core.CategoryServiceFee, Total: core.FormatRupiah(t.ServiceFee.Total),
			Compact: core.FormatRupiahCompact(t.ServiceFee.Total), Count: t.ServiceFee.Count,
			Share: formatPercent(m.Shares.ServiceFee),
		},
		{
			Label: "Total", Total: core.FormatRupiah(grand), Compact: core.FormatRupiahCompact(grand),
			Count: t.Installment.Count + t.Card.Count + t.ServiceFee.Count,
		},
	}
}

// recentYears lists the current year and the four before it for the filter.
func recentYears(now time.Time) []int {
	years := make([]int, 0, 5)
	for y := now.Year(); y > now.Year()-5; y-- {
		years = append(years, y)
	}
	return years
}

func (s *Server) readModel(w http.ResponseWriter, r *http.Request) (dashboard.ReadModel, core.Filter, bool) {
	f, err := ParseFilterParams(r.URL.Query())
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return dashboard.ReadModel{}, f, false
	}
	m, err := s.dashboard.ReadModel(r.Context(), f)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return dashboard.ReadModel{}, f, false
	}
	return m, f, true
}

// handleIndex renders the monitoring home page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	m, f, ok := s.readModel(w, r)
	if !ok {
		return
	}
	now := time.Now()
	s.render(w, r, "dashboard.html", dashboardPage{
		Model:     m,
		Cards:     summaryCards(m),
		Years:     recentYears(now),
		Months:    core.MonthNames(),
		Year:      f.Year,
		Month:     f.Month,
		Generated: now.Format("02-01-2006 15:04"),
	})
}

// handleDashboardAPI returns the read model as JSON.
func (s *Server) handleDashboardAPI(w http.ResponseWriter, r *http.Request) {
	m, _, ok := s.readModel(w, r)
	if !ok {
		return
	}
	NewHTMXResponse().JSON(struct {
		Success bool `json:"success"`
		dashboard.ReadModel
		GrandTotal string `json:"grandTotal"`
	}{
		Success:    true,
		ReadModel:  m,
		GrandTotal: core.FormatRupiah(m.Totals.GrandTotal()),
	}).Write(w)
}
