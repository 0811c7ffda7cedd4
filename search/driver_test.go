package search

import (
	"context"
	"testing"

	"github.com/brensch/searchtree/mcts"
	"github.com/brensch/searchtree/mcts/model"
)

// fakeModel is a stand-in for an external neural model: fixed value and
// policy regardless of input, mirroring the teacher's MockInferenceClient.
type fakeModel struct {
	policySize int
	calls      int
}

func (f *fakeModel) EvaluateBatch(ctx context.Context, depth int32, leaves []model.Leaf) ([]float64, []float32, [][]float32, []bool, error) {
	f.calls++
	n := len(leaves)
	values := make([]float64, n)
	valuePrefixes := make([]float32, n)
	policyLogits := make([][]float32, n)
	resets := make([]bool, n)
	for i := range leaves {
		values[i] = 0.5
		valuePrefixes[i] = float32(depth)
		policy := make([]float32, f.policySize)
		policyLogits[i] = policy
	}
	return values, valuePrefixes, policyLogits, resets, nil
}

func TestDriverRunsConfiguredSimulations(t *testing.T) {
	roots, err := mcts.NewRoots(2, 1, 3, [][]uint32{{0, 1, 2}, {0, 1, 2}})
	if err != nil {
		t.Fatalf("NewRoots: %v", err)
	}
	if err := roots.PrepareNoNoise(
		[]float32{0, 0},
		[][]float32{{0, 0, 0}, {0, 0, 0}},
		[]int8{-1, -1},
	); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	m := &fakeModel{policySize: 3}
	d := NewDriver(DefaultParams(), m)

	toPlay := []int8{-1, -1}
	isReset := []bool{false, false}
	if err := d.Run(context.Background(), roots, 20, toPlay, isReset); err != nil {
		t.Fatalf("run: %v", err)
	}

	if m.calls != 20 {
		t.Errorf("expected 20 model calls, got %d", m.calls)
	}
	for i, node := range roots.Nodes {
		// prepare's implicit visit (1) + 20 simulations.
		if node.VisitCount != 21 {
			t.Errorf("root %d: expected visit_count 21, got %d", i, node.VisitCount)
		}
	}
	if d.Stats.Simulations.Load() != 20 {
		t.Errorf("expected stats to report 20 simulations, got %d", d.Stats.Simulations.Load())
	}
}

func TestDriverRespectsContextCancellation(t *testing.T) {
	roots, _ := mcts.NewRoots(1, 1, 2, [][]uint32{{0, 1}})
	_ = roots.PrepareNoNoise([]float32{0}, [][]float32{{0, 0}}, []int8{-1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &fakeModel{policySize: 2}
	d := NewDriver(DefaultParams(), m)
	err := d.Run(ctx, roots, 5, []int8{-1}, []bool{false})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	if m.calls != 0 {
		t.Errorf("expected no model calls after cancellation, got %d", m.calls)
	}
}

func TestDriverRejectsMismatchedToPlayBatch(t *testing.T) {
	roots, _ := mcts.NewRoots(2, 1, 2, [][]uint32{{0, 1}, {0, 1}})
	_ = roots.PrepareNoNoise([]float32{0, 0}, [][]float32{{0, 0}, {0, 0}}, []int8{-1, -1})

	m := &fakeModel{policySize: 2}
	d := NewDriver(DefaultParams(), m)
	if err := d.Run(context.Background(), roots, 1, []int8{-1}, []bool{false}); err == nil {
		t.Fatal("expected error for mismatched to_play batch length")
	}
}
