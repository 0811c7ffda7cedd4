package mcts

import "math"

// Node is one tree vertex. The zero value is a valid, unexpanded,
// unvisited node — the form a fresh root or freshly created child takes
// before its first expand.
type Node struct {
	Prior       float32
	VisitCount  uint32
	ValueSum    float64
	ValuePrefix float32

	// ParentValuePrefix is cached once per backprop pass from the parent
	// on this node's search path, so the one-step reward can be recovered
	// later without re-walking the path.
	ParentValuePrefix float32
	IsReset           bool

	ToPlay int8

	CurrentLatentStateIndex int32
	BatchIndex              int32

	LegalActions []uint32

	// BestAction is the last multi-head action selected at this node
	// during traversal; sentinel (NoHead in slot 0) until first selected.
	BestAction Action

	// IncomingAction is the action that produced this node from its
	// parent. Root nodes never set it.
	IncomingAction Action

	Children map[ActionKey]*Node
}

// NewNode returns an unexpanded, unvisited node with a sentinel
// best_action of the given width.
func NewNode(h int32) *Node {
	return &Node{BestAction: sentinelAction(h)}
}

func sentinelAction(h int32) Action {
	a := make(Action, h)
	for i := range a {
		a[i] = NoHead
	}
	return a
}

// Value returns value_sum/visit_count, or 0 if unvisited.
func (n *Node) Value() float64 {
	if n.VisitCount == 0 {
		return 0
	}
	return n.ValueSum / float64(n.VisitCount)
}

// Expanded reports whether this node has any children.
func (n *Node) Expanded() bool {
	return len(n.Children) > 0
}

// Expand populates metadata, derives legal actions if unset, softmaxes
// the legal slice of policyLogits, and creates one fresh child per legal
// action keyed through codec.
func (n *Node) Expand(codec ActionCodec, toPlay int8, depth, batchIdx int32, valuePrefix float32, policyLogits []float32) error {
	n.ToPlay = toPlay
	n.CurrentLatentStateIndex = depth
	n.BatchIndex = batchIdx
	n.ValuePrefix = valuePrefix

	if len(n.LegalActions) == 0 {
		n.LegalActions = make([]uint32, len(policyLogits))
		for i := range n.LegalActions {
			n.LegalActions[i] = uint32(i)
		}
	}
	for _, a := range n.LegalActions {
		if int(a) >= len(policyLogits) {
			return ErrLegalActionOutOfRange
		}
	}

	probs := stableSoftmax(policyLogits, n.LegalActions)

	n.Children = make(map[ActionKey]*Node, len(n.LegalActions))
	for i, a := range n.LegalActions {
		action := codec.NewAction(a)
		child := &Node{
			Prior:          probs[i],
			BestAction:     sentinelAction(codec.H),
			IncomingAction: action,
		}
		n.Children[codec.Encode(action)] = child
	}
	return nil
}

func stableSoftmax(logits []float32, legal []uint32) []float32 {
	out := make([]float32, len(legal))
	if len(legal) == 0 {
		return out
	}
	max := logits[legal[0]]
	for _, a := range legal[1:] {
		if logits[a] > max {
			max = logits[a]
		}
	}
	var sum float64
	exps := make([]float64, len(legal))
	for i, a := range legal {
		e := math.Exp(float64(logits[a] - max))
		exps[i] = e
		sum += e
	}
	if sum == 0 {
		// The maximum legal logit contributes exp(0) = 1, so sum is at least
		// 1 for finite logits; this uniform fallback only guards the case
		// where that does not hold.
		u := float32(1) / float32(len(legal))
		for i := range out {
			out[i] = u
		}
		return out
	}
	for i, e := range exps {
		out[i] = float32(e / sum)
	}
	return out
}

// AddExplorationNoise mixes Dirichlet noise into the prior of every child
// reachable from a legal action, in legal_actions order.
func (n *Node) AddExplorationNoise(codec ActionCodec, epsilon float32, noise []float32) {
	for i, a := range n.LegalActions {
		if i >= len(noise) {
			break
		}
		key := codec.Encode(codec.NewAction(a))
		child, ok := n.Children[key]
		if !ok {
			continue
		}
		child.Prior = (1-epsilon)*child.Prior + epsilon*noise[i]
	}
}

// ComputeMeanQ averages qsa = true_reward + γ·child.value() across every
// visited child. At the root this is a pure mean (0 if no child has been
// visited yet); elsewhere parentQ contributes one pseudo-visit.
func (n *Node) ComputeMeanQ(isRoot bool, parentQ, gamma float64) float64 {
	var sum float64
	var count int
	for _, child := range n.Children {
		if child.VisitCount == 0 {
			continue
		}
		sum += trueReward(n, child) + gamma*child.Value()
		count++
	}
	if isRoot {
		if count == 0 {
			return 0
		}
		return sum / float64(count)
	}
	return (parentQ + sum) / float64(count+1)
}

// trueReward recovers the one-step reward a child represents relative to
// its parent: value_prefix - parent.value_prefix, or just value_prefix
// when the parent's reward-accumulator reset at this step.
func trueReward(parent, child *Node) float64 {
	if parent.IsReset {
		return float64(child.ValuePrefix)
	}
	return float64(child.ValuePrefix) - float64(parent.ValuePrefix)
}

// GetTrajectory walks best_action links starting at this node, stopping
// as soon as a sentinel (unset) best_action or a missing child is found.
func (n *Node) GetTrajectory(codec ActionCodec) []Action {
	var traj []Action
	node := n
	for !Sentinel(node.BestAction) {
		action := node.BestAction
		traj = append(traj, action)
		child, ok := node.Children[codec.Encode(action)]
		if !ok {
			break
		}
		node = child
	}
	return traj
}

// GetChildrenDistribution returns visit counts for each legal action, in
// legal_actions order; nil if the node has not been expanded.
func (n *Node) GetChildrenDistribution(codec ActionCodec) []uint32 {
	if !n.Expanded() {
		return nil
	}
	dist := make([]uint32, len(n.LegalActions))
	for i, a := range n.LegalActions {
		key := codec.Encode(codec.NewAction(a))
		if child, ok := n.Children[key]; ok {
			dist[i] = child.VisitCount
		}
	}
	return dist
}

// GetChild resolves the node reached by following action from n. It
// returns nil if action has no corresponding child — an
// UnexpandedChildLookup, which per the error design is a programmer bug
// rather than a recoverable condition and is therefore reported via a nil
// handle, not an error value.
func (n *Node) GetChild(codec ActionCodec, action Action) *Node {
	return n.Children[codec.Encode(action)]
}
