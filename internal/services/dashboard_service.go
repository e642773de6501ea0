package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/cache"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/core"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/dashboard"
)

// SnapshotSource loads each record category.
type SnapshotSource interface {
	Installments(ctx context.Context, f core.Filter) ([]core.InstallmentPayment, error)
	ServiceFees(ctx context.Context, f core.Filter) ([]core.ServiceFeeTransaction, error)
	Cards(ctx context.Context, f core.Filter) ([]core.CardTransaction, error)
}

const dashboardCacheSize = 64

// DashboardService serves the home page read model from a short-lived cache.
type DashboardService struct {
	source SnapshotSource
	cache  *cache.LRUCache[dashboard.ReadModel]
	now    func() time.Time
}

func NewDashboardService(source SnapshotSource, ttl time.Duration) *DashboardService {
	return &DashboardService{
		source: source,
		cache:  cache.NewLRUCache[dashboard.ReadModel](dashboardCacheSize, ttl),
		now:    time.Now,
	}
}

// Cache exposes the read model cache so it can be registered for cleanup.
func (s *DashboardService) Cache() *cache.LRUCache[dashboard.ReadModel] {
	return s.cache
}

// Snapshot loads the three categories concurrently.
func (s *DashboardService) Snapshot(ctx context.Context) (dashboard.Snapshot, error) {
	var snap dashboard.Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := s.source.Installments(gctx, core.Filter{})
		if err != nil {
			return fmt.Errorf("load installments: %w", err)
		}
		snap.Installments = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.source.ServiceFees(gctx, core.Filter{})
		if err != nil {
			return fmt.Errorf("load service fees: %w", err)
		}
		snap.ServiceFees = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.source.Cards(gctx, core.Filter{})
		if err != nil {
			return fmt.Errorf("load card transactions: %w", err)
		}
		snap.Cards = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		return dashboard.Snapshot{}, err
	}
	return snap, nil
}

// ReadModel returns the dashboard for f, building it on a cache miss.
//
// The feed marks rows touched today as new, so the cache key carries the
// calendar day and a model built before midnight is never served after it.
func (s *DashboardService) ReadModel(ctx context.Context, f core.Filter) (dashboard.ReadModel, error) {
	now := s.now()
	key := fmt.Sprintf("%s/%d-%d", now.Format("2006-01-02"), f.Year, f.Month)
	if m, ok := s.cache.Get(key); ok {
		return m, nil
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return dashboard.ReadModel{}, err
	}
	m := dashboard.Build(snap, f, now)
	s.cache.Set(key, m)
	return m, nil
}

// Invalidate drops every cached read model.
func (s *DashboardService) Invalidate() {
	s.cache.Purge()
}
