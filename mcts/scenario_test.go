package mcts

import (
	"math"
	"math/rand"
	"testing"
)

const (
	scenarioGamma    = 0.99
	scenarioPbCBase  = 19652.0
	scenarioPbCInit  = 1.25
)

// TestScenarioS1Trivial is spec scenario S1: a single simulation against a
// single-head, two-action root. The one simulation's path is [root, leaf];
// per the leaf-to-root backprop walk, the leaf receives the raw bootstrap
// value (1) and the root receives that value discounted once by gamma
// (0.99*1 = 0.99) -- together the "1 + gamma*1 = 1.99" the scenario
// describes as the total value injected into the tree by this simulation.
func TestScenarioS1Trivial(t *testing.T) {
	roots, err := NewRoots(1, 1, 2, [][]uint32{{0, 1}})
	if err != nil {
		t.Fatalf("NewRoots: %v", err)
	}
	if err := roots.PrepareNoNoise([]float32{0}, [][]float32{{0, 0}}, []int8{-1}); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	for _, c := range roots.Nodes[0].Children {
		if c.Prior != 0.5 {
			t.Errorf("expected prior 0.5, got %v", c.Prior)
		}
	}

	results := NewSearchResults(1)
	rng := rand.New(rand.NewSource(1))
	mm := NewMinMaxStatsList(1)
	if err := BatchTraverse(roots, scenarioPbCBase, scenarioPbCInit, scenarioGamma, mm, results, []int8{-1}, rng); err != nil {
		t.Fatalf("traverse: %v", err)
	}

	if err := BatchBackpropagate(roots.Codec, 1, scenarioGamma,
		[]float32{0}, []float64{1}, [][]float32{{0, 0}}, mm, results, []bool{false}, []int8{-1}); err != nil {
		t.Fatalf("backprop: %v", err)
	}

	root := roots.Nodes[0]
	if root.VisitCount != 2 {
		t.Errorf("expected root visit_count=2, got %d", root.VisitCount)
	}
	leaf := results.Nodes[0]
	if leaf.ValueSum != 1 {
		t.Errorf("expected leaf value_sum=1, got %v", leaf.ValueSum)
	}
	if math.Abs(root.ValueSum-scenarioGamma) > 1e-9 {
		t.Errorf("expected root value_sum=gamma*1=%v, got %v", scenarioGamma, root.ValueSum)
	}
	if math.Abs(leaf.ValueSum+root.ValueSum-1.99) > 1e-9 {
		t.Errorf("expected total injected value 1.99, got %v", leaf.ValueSum+root.ValueSum)
	}
}

// TestScenarioS4TwoPlayerSignFlip is spec scenario S4: a length-3 path
// with alternating to_play (1,2,1), leaf to_play==1, value=+1. The sign
// of value_sum alternates by level (+,-,+); magnitude decays by gamma per
// level since value_prefix is 0 throughout this scenario.
func TestScenarioS4TwoPlayerSignFlip(t *testing.T) {
	codec := NewActionCodec(1, 2)
	root := &Node{ToPlay: 1}
	middle := &Node{ToPlay: 2}
	leaf := NewNode(1)

	results := &SearchResults{
		Nodes:       []*Node{leaf},
		SearchPaths: [][]*Node{{root, middle, leaf}},
		LeafToPlay:  []int8{1},
	}
	mm := NewMinMaxStatsList(1)

	err := BatchBackpropagate(codec, 2, scenarioGamma,
		[]float32{0}, []float64{1}, [][]float32{{0, 0}}, mm, results, []bool{false}, []int8{1})
	if err != nil {
		t.Fatalf("backprop: %v", err)
	}

	if leaf.ValueSum <= 0 {
		t.Errorf("expected leaf value_sum positive, got %v", leaf.ValueSum)
	}
	if middle.ValueSum >= 0 {
		t.Errorf("expected middle value_sum negative, got %v", middle.ValueSum)
	}
	if root.ValueSum <= 0 {
		t.Errorf("expected root value_sum positive, got %v", root.ValueSum)
	}
	if leaf.ValueSum != 1 {
		t.Errorf("expected leaf value_sum==1 exactly, got %v", leaf.ValueSum)
	}
}

// TestScenarioS6BatchedIndependence is spec scenario S6: two roots with
// disjoint data processed in one batched call produce identical results
// to each processed alone, because each root's tree and MinMaxStats are
// private to its batch slot.
func TestScenarioS6BatchedIndependence(t *testing.T) {
	run := func(legal [][]uint32, policy [][]float32, valuePrefix []float32, value []float64, toPlay []int8) *Roots {
		roots, err := NewRoots(len(legal), 1, int32(len(policy[0])), legal)
		if err != nil {
			t.Fatalf("NewRoots: %v", err)
		}
		if err := roots.PrepareNoNoise(valuePrefix, policy, toPlay); err != nil {
			t.Fatalf("prepare: %v", err)
		}
		results := NewSearchResults(len(legal))
		mm := NewMinMaxStatsList(len(legal))
		rng := rand.New(rand.NewSource(7))
		if err := BatchTraverse(roots, scenarioPbCBase, scenarioPbCInit, scenarioGamma, mm, results, toPlay, rng); err != nil {
			t.Fatalf("traverse: %v", err)
		}
		if err := BatchBackpropagate(roots.Codec, 1, scenarioGamma, valuePrefix, value, policy, mm, results, make([]bool, len(legal)), toPlay); err != nil {
			t.Fatalf("backprop: %v", err)
		}
		return roots
	}

	batched := run(
		[][]uint32{{0, 1}, {0, 1, 2}},
		[][]float32{{0, 1}, {2, 0, 1}},
		[]float32{0, 0},
		[]float64{0.5, -0.25},
		[]int8{-1, -1},
	)
	alone0 := run([][]uint32{{0, 1}}, [][]float32{{0, 1}}, []float32{0}, []float64{0.5}, []int8{-1})
	alone1 := run([][]uint32{{0, 1, 2}}, [][]float32{{2, 0, 1}}, []float32{0}, []float64{-0.25}, []int8{-1})

	if batched.Nodes[0].VisitCount != alone0.Nodes[0].VisitCount || batched.Nodes[0].ValueSum != alone0.Nodes[0].ValueSum {
		t.Errorf("root 0 diverged between batched and solo runs")
	}
	if batched.Nodes[1].VisitCount != alone1.Nodes[0].VisitCount || batched.Nodes[1].ValueSum != alone1.Nodes[0].ValueSum {
		t.Errorf("root 1 diverged between batched and solo runs")
	}
}
