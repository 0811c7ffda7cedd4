package inference

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/brensch/searchtree/mcts/model"
)

// Pool fans a single EvaluateBatch call out across multiple Evaluator
// sessions, one contiguous shard of leaves per session, so a simulation
// round's leaves can be split across several ORT sessions (and GPUs)
// instead of serializing through one.
type Pool struct {
	evaluators []*Evaluator
}

// NewPool opens sessions ONNX Runtime sessions against modelPath, one
// per entry, sharing store across all of them (every session still only
// ever reads/writes the latent belonging to the leaves it was handed).
func NewPool(modelPath string, cfg Config, store LatentStore, sessions int) (*Pool, error) {
	if sessions <= 0 {
		sessions = 1
	}
	evals := make([]*Evaluator, 0, sessions)
	for i := 0; i < sessions; i++ {
		e, err := NewEvaluator(modelPath, cfg, store)
		if err != nil {
			for _, created := range evals {
				_ = created.Close()
			}
			return nil, fmt.Errorf("inference: create evaluator %d/%d: %w", i+1, sessions, err)
		}
		evals = append(evals, e)
	}
	return &Pool{evaluators: evals}, nil
}

// Close releases every session in the pool.
func (p *Pool) Close() error {
	var firstErr error
	for _, e := range p.evaluators {
		if err := e.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// EvaluateBatch implements model.Model by splitting leaves evenly across
// the pool's sessions and running each shard concurrently.
func (p *Pool) EvaluateBatch(ctx context.Context, depth int32, leaves []model.Leaf) ([]float64, []float32, [][]float32, []bool, error) {
	n := len(leaves)
	if n == 0 {
		return nil, nil, nil, nil, nil
	}
	shards := len(p.evaluators)
	if shards > n {
		shards = n
	}

	values := make([]float64, n)
	valuePrefixes := make([]float32, n)
	policyLogits := make([][]float32, n)
	resets := make([]bool, n)

	group, gctx := errgroup.WithContext(ctx)
	chunk := (n + shards - 1) / shards
	for s := 0; s < shards; s++ {
		start := s * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		evaluator := p.evaluators[s]
		group.Go(func() error {
			v, vp, pl, rs, err := evaluator.EvaluateBatch(gctx, depth, leaves[start:end])
			if err != nil {
				return err
			}
			copy(values[start:end], v)
			copy(valuePrefixes[start:end], vp)
			copy(policyLogits[start:end], pl)
			copy(resets[start:end], rs)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, nil, nil, nil, err
	}
	return values, valuePrefixes, policyLogits, resets, nil
}
