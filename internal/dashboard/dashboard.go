package dashboard

import (
	"time"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
)

// ReadModel is everything the home page renders.
type ReadModel struct {
	Filter  core.Filter    `json:"filter"`
	Totals  CategoryTotals `json:"summary"`
	Shares  CategoryShares `json:"shares"`
	Monthly [12]MonthRow   `json:"monthlyData"`
	Recent  []Activity     `json:"recentTransactions"`
}

// Build assembles the read model. The filter only narrows the category
// totals; the monthly matrix and the activity feed always cover the whole
// snapshot.
func Build(snap Snapshot, f core.Filter, now time.Time) ReadModel {
	totals := Totals(snap, f)
	return ReadModel{
		Filter:  f,
		Totals:  totals,
		Shares:  Shares(totals),
		Monthly: MonthlyMatrix(snap),
		Recent:  RecentActivity(snap, now, DefaultFeedLimit),
	}
}
