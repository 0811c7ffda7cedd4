package mcts

import "testing"

func TestBackpropagateInvalidToPlay(t *testing.T) {
	codec := NewActionCodec(1, 2)
	leaf := NewNode(1)
	results := &SearchResults{
		Nodes:       []*Node{leaf},
		SearchPaths: [][]*Node{{leaf}},
		LeafToPlay:  []int8{-1},
	}
	mm := NewMinMaxStatsList(1)
	err := BatchBackpropagate(codec, 0, 0.99, []float32{0}, []float64{0}, [][]float32{{0, 0}}, mm, results, []bool{false}, []int8{3})
	if err != ErrInvalidToPlay {
		t.Errorf("expected ErrInvalidToPlay, got %v", err)
	}
}

func TestBackpropagateBatchSizeMismatch(t *testing.T) {
	codec := NewActionCodec(1, 2)
	leaf := NewNode(1)
	results := &SearchResults{
		Nodes:       []*Node{leaf},
		SearchPaths: [][]*Node{{leaf}},
		LeafToPlay:  []int8{-1},
	}
	mm := NewMinMaxStatsList(1)
	err := BatchBackpropagate(codec, 0, 0.99, []float32{0, 0}, []float64{0}, [][]float32{{0, 0}}, mm, results, []bool{false}, []int8{-1})
	if err != ErrBatchSizeMismatch {
		t.Errorf("expected ErrBatchSizeMismatch, got %v", err)
	}
}

func TestBackpropagateEmptyPathIsNoOp(t *testing.T) {
	codec := NewActionCodec(1, 2)
	leaf := NewNode(1)
	results := &SearchResults{
		Nodes:       []*Node{leaf},
		SearchPaths: [][]*Node{{}},
		LeafToPlay:  []int8{-1},
	}
	mm := NewMinMaxStatsList(1)
	err := BatchBackpropagate(codec, 0, 0.99, []float32{0}, []float64{5}, [][]float32{{0, 0}}, mm, results, []bool{false}, []int8{-1})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if leaf.VisitCount != 0 || leaf.ValueSum != 0 {
		t.Errorf("expected leaf untouched by empty-path backprop, got visit=%d sum=%v", leaf.VisitCount, leaf.ValueSum)
	}
	if !leaf.Expanded() {
		t.Errorf("expected leaf to still be expanded (Expand runs before the path walk)")
	}
}

func TestSingleSimulationVisitsEachPathNodeExactlyOnce(t *testing.T) {
	roots, _ := NewRoots(1, 1, 2, [][]uint32{{0, 1}})
	_ = roots.PrepareNoNoise([]float32{0}, [][]float32{{0, 0}}, []int8{-1})

	results := NewSearchResults(1)
	mm := NewMinMaxStatsList(1)
	if err := BatchTraverse(roots, scenarioPbCBase, scenarioPbCInit, scenarioGamma, mm, results, []int8{-1}, nil); err != nil {
		t.Fatalf("traverse: %v", err)
	}
	if err := BatchBackpropagate(roots.Codec, 1, scenarioGamma, []float32{0}, []float64{1}, [][]float32{{0, 0}}, mm, results, []bool{false}, []int8{-1}); err != nil {
		t.Fatalf("backprop: %v", err)
	}

	seen := map[*Node]int{}
	for _, n := range results.SearchPaths[0] {
		seen[n]++
	}
	if len(seen) != 2 {
		t.Fatalf("expected a 2-node path (root, leaf), got %d distinct nodes", len(seen))
	}
	for n, c := range seen {
		if c != 1 {
			t.Errorf("node appeared %d times on path, expected exactly 1", c)
		}
		_ = n
	}
	if got := results.SearchPaths[0][0].VisitCount; got != 2 {
		t.Errorf("root visit_count: expected 2 (prepare's 1 + this simulation's 1), got %d", got)
	}
	if got := results.SearchPaths[0][1].VisitCount; got != 1 {
		t.Errorf("leaf visit_count: expected 1, got %d", got)
	}
}
