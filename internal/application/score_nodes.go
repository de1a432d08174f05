package application

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-tally/internal/domain"
)

// NodeJob is one node's batch to score.
type NodeJob struct {
	Aggregator *RewardAggregator
	Batch      domain.Batch
}

// ScoreNodes runs Reward for every job, scoring different nodes in parallel
// with at most limit nodes in flight (limit <= 0 means unbounded). Jobs
// sharing a node run one after another in input order. The result at
// index i belongs to jobs[i]. An error is returned only when ctx ends
// before every job has started; unstarted jobs then hold nil.
func ScoreNodes(ctx context.Context, jobs []NodeJob, limit int) ([][]float64, error) {
	results := make([][]float64, len(jobs))

	byNode := make(map[string][]int)
	order := make([]string, 0)
	for i, job := range jobs {
		key := job.Aggregator.node.Key()
		if _, seen := byNode[key]; !seen {
			order = append(order, key)
		}
		byNode[key] = append(byNode[key], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, key := range order {
		indices := byNode[key]
		g.Go(func() error {
			for _, i := range indices {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = jobs[i].Aggregator.Reward(gctx, jobs[i].Batch)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
