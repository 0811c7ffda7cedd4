package mcts

// Roots is a fixed-size batch of independent root nodes. Each root owns
// its own subtree; nothing is shared across batch slots except the
// ActionCodec's H/APerHead configuration.
type Roots struct {
	Codec ActionCodec
	Nodes []*Node
}

// NewRoots allocates N fresh, unexpanded roots. legalActionsList may be
// nil (every root defaults its legal actions from policy length at
// expansion) or must have exactly N entries, one per root.
func NewRoots(n int, h, aPerHead int32, legalActionsList [][]uint32) (*Roots, error) {
	if legalActionsList != nil && len(legalActionsList) != n {
		return nil, ErrBatchSizeMismatch
	}
	codec := NewActionCodec(h, aPerHead)
	nodes := make([]*Node, n)
	for i := range nodes {
		nodes[i] = NewNode(h)
		if legalActionsList != nil {
			la := make([]uint32, len(legalActionsList[i]))
			copy(la, legalActionsList[i])
			nodes[i].LegalActions = la
		}
	}
	return &Roots{Codec: codec, Nodes: nodes}, nil
}

// Len reports the number of roots in the batch.
func (r *Roots) Len() int { return len(r.Nodes) }

// Prepare expands every root with its model output, mixes in Dirichlet
// exploration noise, and marks each root visited once.
func (r *Roots) Prepare(epsilon float32, noises [][]float32, valuePrefixes []float32, policies [][]float32, toPlayBatch []int8) error {
	if err := r.checkBatch(len(noises), len(valuePrefixes), len(policies), len(toPlayBatch)); err != nil {
		return err
	}
	for i, node := range r.Nodes {
		if err := node.Expand(r.Codec, toPlayBatch[i], 0, int32(i), valuePrefixes[i], policies[i]); err != nil {
			return err
		}
		node.AddExplorationNoise(r.Codec, epsilon, noises[i])
		node.VisitCount = 1
	}
	return nil
}

// PrepareNoNoise is Prepare without the exploration-noise mixing step.
func (r *Roots) PrepareNoNoise(valuePrefixes []float32, policies [][]float32, toPlayBatch []int8) error {
	if err := r.checkBatch(len(valuePrefixes), len(policies), len(toPlayBatch)); err != nil {
		return err
	}
	for i, node := range r.Nodes {
		if err := node.Expand(r.Codec, toPlayBatch[i], 0, int32(i), valuePrefixes[i], policies[i]); err != nil {
			return err
		}
		node.VisitCount = 1
	}
	return nil
}

func (r *Roots) checkBatch(lens ...int) error {
	n := len(r.Nodes)
	for _, l := range lens {
		if l != n {
			return ErrBatchSizeMismatch
		}
	}
	return nil
}

// GetDistributions returns, per root, the visit counts of each legal
// action.
func (r *Roots) GetDistributions() [][]uint32 {
	out := make([][]uint32, len(r.Nodes))
	for i, node := range r.Nodes {
		out[i] = node.GetChildrenDistribution(r.Codec)
	}
	return out
}

// GetValues returns the root-level value estimate for every root.
func (r *Roots) GetValues() []float64 {
	out := make([]float64, len(r.Nodes))
	for i, node := range r.Nodes {
		out[i] = node.Value()
	}
	return out
}

// GetTrajectories returns, per root, the list of multi-head actions
// taken along its most recently recorded best_action chain.
func (r *Roots) GetTrajectories() [][]Action {
	out := make([][]Action, len(r.Nodes))
	for i, node := range r.Nodes {
		out[i] = node.GetTrajectory(r.Codec)
	}
	return out
}
