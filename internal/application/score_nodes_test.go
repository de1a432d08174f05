package application

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
)

// trackingScorer records how many calls overlap per node.
type trackingScorer struct {
	mu       sync.Mutex
	inFlight map[string]int
	maxSeen  map[string]int
	total    atomic.Int32
	peak     atomic.Int32
}

func newTrackingScorer() *trackingScorer {
	return &trackingScorer{inFlight: map[string]int{}, maxSeen: map[string]int{}}
}

func (s *trackingScorer) Name() string    { return "tracking" }
func (s *trackingScorer) Validate() error { return nil }

func (s *trackingScorer) Score(_ context.Context, batch domain.Batch) ([]float64, error) {
	node := batch.PromptText()

	s.mu.Lock()
	s.inFlight[node]++
	s.maxSeen[node] = max(s.maxSeen[node], s.inFlight[node])
	s.mu.Unlock()

	now := s.total.Add(1)
	for {
		peak := s.peak.Load()
		if now <= peak || s.peak.CompareAndSwap(peak, now) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	s.total.Add(-1)

	s.mu.Lock()
	s.inFlight[node]--
	s.mu.Unlock()

	out := make([]float64, batch.Len())
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out, nil
}

func TestScoreNodes(t *testing.T) {
	scorer := newTrackingScorer()
	keys := []string{"node-a", "node-b", "node-c", "node-d"}
	aggs := make(map[string]*RewardAggregator, len(keys))
	for _, key := range keys {
		aggs[key] = newAggregator(t, newNode(t, key), []ports.Scorer{scorer})
	}

	var jobs []NodeJob
	for round := range 3 {
		for _, key := range keys {
			completions := make([]string, round+1)
			for i := range completions {
				completions[i] = key
			}
			jobs = append(jobs, NodeJob{Aggregator: aggs[key], Batch: domain.NewBatch(key, completions)})
		}
	}

	results, err := ScoreNodes(context.Background(), jobs, 2)
	require.NoError(t, err)
	require.Len(t, results, len(jobs))
	for i, job := range jobs {
		assert.Equal(t, domain.Zeros(job.Batch.Len()), results[i])
	}

	for _, key := range keys {
		assert.Equal(t, 1, scorer.maxSeen[key], "jobs for %s overlapped", key)

		update, ok := aggs[key].node.Latest()
		require.True(t, ok)
		// The last job per node had three completions.
		assert.Equal(t, []float64{1, 2, 3}, update.Rewards)
	}
	assert.LessOrEqual(t, scorer.peak.Load(), int32(2))
}

func TestScoreNodes_Empty(t *testing.T) {
	results, err := ScoreNodes(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestScoreNodes_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := newAggregator(t, newNode(t, "node-a"), []ports.Scorer{fixed("a", 1)})
	results, err := ScoreNodes(ctx, []NodeJob{{Aggregator: agg, Batch: domain.NewBatch("p", []string{"x"})}}, 0)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.Nil(t, results[0])
}
