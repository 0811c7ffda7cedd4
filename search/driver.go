// Package search wires the mcts core's traverse/backprop operations
// into the batch driver described by the spec: gather a round of leaves,
// hand them to an external model as one batched call, then apply
// expansion+backprop. It does not prepare roots; the caller runs
// Roots.Prepare or Roots.PrepareNoNoise before Driver.Run. It owns no
// tree state itself — that lives entirely in the mcts.Roots it's handed.
package search

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/brensch/searchtree/mcts"
	"github.com/brensch/searchtree/mcts/model"
)

// Params are the PUCT/backprop constants a Driver run holds fixed across
// every simulation in a round.
type Params struct {
	PbCBase float64
	PbCInit float64
	Gamma   float64
	Epsilon float32 // root exploration-noise weight; Run does not read it (noise is mixed in when the caller prepares the roots)
}

// DefaultParams mirrors the constants used throughout spec.md's worked
// examples.
func DefaultParams() Params {
	return Params{PbCBase: 19652, PbCInit: 1.25, Gamma: 0.99, Epsilon: 0.25}
}

// Stats is a running snapshot of one Driver.Run call's progress,
// following the teacher's TreeStats-style atomic counters so a caller
// can poll it safely from another goroutine while a run is in flight.
type Stats struct {
	Simulations atomic.Int64
	Collisions  atomic.Int64 // traversals that reached depth 0 without expanding (root already a leaf)
	RoundNanos  atomic.Int64
}

// SimsPerSecond returns the current throughput estimate.
func (s *Stats) SimsPerSecond() float64 {
	nanos := s.RoundNanos.Load()
	if nanos == 0 {
		return 0
	}
	return float64(s.Simulations.Load()) / (float64(nanos) / 1e9)
}

// Driver runs simulations against a Roots batch, querying m for leaf
// evaluations each round.
type Driver struct {
	Params Params
	Model  model.Model
	Rand   *rand.Rand // nil means wall-clock seeding per BatchTraverse call, per mcts's own default
	Stats  Stats
}

// NewDriver constructs a Driver with the given params and model.
func NewDriver(params Params, m model.Model) *Driver {
	return &Driver{Params: params, Model: m}
}

// Run executes simulations rounds of prepare-already-done traverse →
// infer → expand+backprop against roots, honoring ctx cancellation
// between rounds. toPlayBatch is reused for both virtual_to_play during
// traversal and to_play during backprop, per the single-to_play-per-root
// reading of spec.md §4.6/§6.
func (d *Driver) Run(ctx context.Context, roots *mcts.Roots, simulations int, toPlayBatch []int8, isResetBatch []bool) error {
	n := roots.Len()
	if len(toPlayBatch) != n {
		return fmt.Errorf("search: to_play batch length %d != root count %d", len(toPlayBatch), n)
	}

	minMaxStatsList := mcts.NewMinMaxStatsList(n)

	for sim := 0; sim < simulations; sim++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()

		results := mcts.NewSearchResults(n)
		if err := mcts.BatchTraverse(roots, d.Params.PbCBase, d.Params.PbCInit, d.Params.Gamma, minMaxStatsList, results, toPlayBatch, d.Rand); err != nil {
			return fmt.Errorf("search: traverse: %w", err)
		}

		leaves := make([]model.Leaf, n)
		for i := range leaves {
			leaves[i] = model.Leaf{
				BatchIndex:        results.LatentStateIndexInBatch[i],
				ParentLatentIndex: results.LatentStateIndexInSearchPath[i],
				Action:            results.LastActions[i],
			}
			if len(results.SearchPaths[i]) <= 1 {
				d.Stats.Collisions.Add(1)
			}
		}

		depth := int32(sim + 1)
		values, valuePrefixes, policyLogits, resets, err := d.Model.EvaluateBatch(ctx, depth, leaves)
		if err != nil {
			return fmt.Errorf("search: evaluate batch: %w", err)
		}
		if isResetBatch != nil {
			resets = isResetBatch
		}

		if err := mcts.BatchBackpropagate(roots.Codec, depth, d.Params.Gamma, valuePrefixes, values, policyLogits, minMaxStatsList, results, resets, toPlayBatch); err != nil {
			return fmt.Errorf("search: backpropagate: %w", err)
		}

		d.Stats.Simulations.Add(1)
		d.Stats.RoundNanos.Add(int64(time.Since(start)))
	}
	return nil
}
