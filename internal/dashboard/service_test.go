package dashboard

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	pipeline      []PipelineEntry
	overdue       OverdueSummary
	lowStock      []LowStockEntry
	projects      int64
	pipelineCalls int
	overdueCalls  int
	lowStockCalls int
	projectCalls  int
}

func (m *mockRepo) QuotePipeline(ctx context.Context) ([]PipelineEntry, error) {
	m.pipelineCalls++
	return m.pipeline, nil
}

func (m *mockRepo) OverdueInvoices(ctx context.Context, asOf time.Time) (OverdueSummary, error) {
	m.overdueCalls++
	return m.overdue, nil
}

func (m *mockRepo) LowStockMaterials(ctx context.Context) ([]LowStockEntry, error) {
	m.lowStockCalls++
	return m.lowStock, nil
}

func (m *mockRepo) CountActiveProjects(ctx context.Context) (int64, error) {
	m.projectCalls++
	return m.projects, nil
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewService(repo, NewCache(client, time.Minute))
}

func TestSummaryAggregates(t *testing.T) {
	repo := &mockRepo{
		pipeline: []PipelineEntry{
			{Status: "draft", Count: 2, Total: 100000},
			{Status: "approved", Count: 1, Total: 450000},
		},
		overdue:  OverdueSummary{Count: 3, Amount: 780000},
		lowStock: []LowStockEntry{{MaterialID: 5, Name: "Vinilo blanco", Balance: 2, MinStock: 10}},
		projects: 4,
	}
	svc := newTestService(t, repo)

	summary, err := svc.GetSummary(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Pipeline, 2)
	require.Equal(t, int64(780000), summary.Overdue.Amount)
	require.Len(t, summary.LowStock, 1)
	require.Equal(t, int64(4), summary.ActiveProjects)
}

func TestSummaryIsCached(t *testing.T) {
	repo := &mockRepo{projects: 1}
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.GetSummary(ctx)
	require.NoError(t, err)
	_, err = svc.GetSummary(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, repo.pipelineCalls)
	require.Equal(t, 1, repo.projectCalls)
}

func TestInvalidateForcesRecompute(t *testing.T) {
	repo := &mockRepo{projects: 1}
	svc := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.GetSummary(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(ctx))

	repo.projects = 7
	summary, err := svc.GetSummary(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(7), summary.ActiveProjects)
	require.Equal(t, 2, repo.pipelineCalls)
}

func TestNilCachePassesThrough(t *testing.T) {
	repo := &mockRepo{projects: 2}
	svc := NewService(repo, nil)

	summary, err := svc.GetSummary(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), summary.ActiveProjects)
}
