package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// PipelineEntry aggregates quotes by status.
type PipelineEntry struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
	Total  int64  `json:"total"`
}

// OverdueSummary aggregates invoices currently overdue.
type OverdueSummary struct {
	Count  int64 `json:"count"`
	Amount int64 `json:"amount"`
}

// LowStockEntry reports a material under its minimum.
type LowStockEntry struct {
	MaterialID int64   `json:"material_id"`
	Name       string  `json:"name"`
	Balance    float64 `json:"balance"`
	MinStock   float64 `json:"min_stock"`
}

// Summary is the landing-page aggregate.
type Summary struct {
	Pipeline       []PipelineEntry `json:"pipeline"`
	Overdue        OverdueSummary  `json:"overdue"`
	LowStock       []LowStockEntry `json:"low_stock"`
	ActiveProjects int64           `json:"active_projects"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// Repository defines the aggregate queries behind the dashboard.
type Repository interface {
	QuotePipeline(ctx context.Context) ([]PipelineEntry, error)
	OverdueInvoices(ctx context.Context, asOf time.Time) (OverdueSummary, error)
	LowStockMaterials(ctx context.Context) ([]LowStockEntry, error)
	CountActiveProjects(ctx context.Context) (int64, error)
}

// Service assembles the dashboard summary. The four aggregates are
// independent queries, so they run concurrently.
type Service struct {
	repo  Repository
	cache *Cache
	now   func() time.Time
}

// NewService builds Service instance.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetSummary returns the cached summary, computing it on miss.
func (s *Service) GetSummary(ctx context.Context) (Summary, error) {
	key, err := s.cache.BuildKey(ctx, "dashboard", "summary")
	if err != nil {
		return Summary{}, err
	}
	var summary Summary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
		return s.computeSummary(ctx)
	})
	return summary, err
}

// Invalidate drops cached aggregates. Called after writes that change them.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// Warm recomputes the summary so the next read hits cache.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.GetSummary(ctx)
	return err
}

func (s *Service) computeSummary(ctx context.Context) (Summary, error) {
	summary := Summary{GeneratedAt: s.now()}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pipeline, err := s.repo.QuotePipeline(ctx)
		if err != nil {
			return err
		}
		summary.Pipeline = pipeline
		return nil
	})
	g.Go(func() error {
		overdue, err := s.repo.OverdueInvoices(ctx, summary.GeneratedAt)
		if err != nil {
			return err
		}
		summary.Overdue = overdue
		return nil
	})
	g.Go(func() error {
		lowStock, err := s.repo.LowStockMaterials(ctx)
		if err != nil {
			return err
		}
		summary.LowStock = lowStock
		return nil
	})
	g.Go(func() error {
		count, err := s.repo.CountActiveProjects(ctx)
		if err != nil {
			return err
		}
		summary.ActiveProjects = count
		return nil
	})

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}
