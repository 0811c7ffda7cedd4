package mcts

import "testing"

func TestMinMaxStatsNormalizeUnchangedWhenFlat(t *testing.T) {
	m := NewMinMaxStats()
	m.Update(5)
	if got := m.Normalize(5); got != 5 {
		t.Errorf("expected unchanged 5, got %v", got)
	}
}

func TestMinMaxStatsNormalizeInUnitRange(t *testing.T) {
	m := NewMinMaxStats()
	m.Update(-2)
	m.Update(8)
	for _, q := range []float64{-2, 0, 3, 8} {
		got := m.Normalize(q)
		if got < 0 || got > 1 {
			t.Errorf("normalize(%v) = %v, want in [0,1]", q, got)
		}
	}
	if got := m.Normalize(-2); got != 0 {
		t.Errorf("normalize(min) expected 0, got %v", got)
	}
	if got := m.Normalize(8); got != 1 {
		t.Errorf("normalize(max) expected 1, got %v", got)
	}
}

func TestMinMaxStatsListIndependent(t *testing.T) {
	l := NewMinMaxStatsList(2)
	l[0].Update(1)
	l[0].Update(2)
	l[1].Update(100)
	if l[1].Min != 100 {
		t.Errorf("lists should not share state, got l[1].Min=%v", l[1].Min)
	}
}
