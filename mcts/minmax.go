package mcts

import "math"

// MinMaxStats tracks the running minimum and maximum of Q candidates for
// one root, used to rescale value estimates into [0,1] before combining
// them with the PUCT prior term.
type MinMaxStats struct {
	Min float64
	Max float64
}

// NewMinMaxStats returns a fresh tracker with no observations yet.
func NewMinMaxStats() MinMaxStats {
	return MinMaxStats{Min: math.Inf(1), Max: math.Inf(-1)}
}

// Update folds q into the running extrema.
func (m *MinMaxStats) Update(q float64) {
	if q < m.Min {
		m.Min = q
	}
	if q > m.Max {
		m.Max = q
	}
}

// Normalize rescales q into [0,1] using the observed range, or returns q
// unchanged if no meaningful range has been observed yet.
func (m *MinMaxStats) Normalize(q float64) float64 {
	if m.Max > m.Min {
		return (q - m.Min) / (m.Max - m.Min)
	}
	return q
}

// MinMaxStatsList holds one MinMaxStats per batch element. Roots never
// share stats across batch slots.
type MinMaxStatsList []MinMaxStats

// NewMinMaxStatsList allocates n independent trackers.
func NewMinMaxStatsList(n int) MinMaxStatsList {
	l := make(MinMaxStatsList, n)
	for i := range l {
		l[i] = NewMinMaxStats()
	}
	return l
}
