package mcts

import (
	"math/rand"
	"testing"
)

func TestPUCTScoreMonotoneInPrior(t *testing.T) {
	parent := NewNode(1)
	parent.VisitCount = 10
	mm := NewMinMaxStats()
	mm.Update(0)
	mm.Update(1)

	low := &Node{Prior: 0.1}
	high := &Node{Prior: 0.9}

	sLow := puctScore(parent, low, 0, &mm, 19652, 1.25, 0.99, 1)
	sHigh := puctScore(parent, high, 0, &mm, 19652, 1.25, 0.99, 1)
	if sHigh < sLow {
		t.Errorf("expected score non-decreasing in prior: low=%v high=%v", sLow, sHigh)
	}
}

func TestSelectChildTieBreakIsUniform(t *testing.T) {
	codec := NewActionCodec(1, 2)
	root := NewNode(1)
	root.LegalActions = []uint32{0, 1}
	if err := root.Expand(codec, -1, 0, 0, 0, []float32{0, 0}); err != nil {
		t.Fatalf("expand failed: %v", err)
	}
	root.VisitCount = 1 // prepare's pseudo-visit, which puctScore's N subtracts back out
	mm := NewMinMaxStats()
	rng := rand.New(rand.NewSource(42))

	counts := map[int32]int{}
	const trials = 10000
	for i := 0; i < trials; i++ {
		action, _ := selectChild(root, 0, &mm, 19652, 1.25, 0.99, 1, rng)
		counts[action[0]]++
	}
	// Expected ~5000 each; allow generous slack for a statistical test.
	for head, c := range counts {
		if c < trials/2-300 || c > trials/2+300 {
			t.Errorf("action %d selected %d/%d times, expected close to uniform", head, c, trials)
		}
	}
	if len(counts) != 2 {
		t.Errorf("expected both legal actions to be selected at least once, got %v", counts)
	}
}
