package mcts

import (
	"math/rand"
	"time"
)

// SearchResults holds the per-batch-element output of BatchTraverse: the
// leaf reached by each root's descent, the full path to it, the action
// that produced it, where its parent's latent state lives, and which
// side was to move when the leaf was reached.
type SearchResults struct {
	Nodes       []*Node
	SearchPaths [][]*Node
	LastActions []Action

	LatentStateIndexInSearchPath []int32
	LatentStateIndexInBatch      []int32

	// LeafToPlay is the side to move at the leaf, tracked by flipping the
	// root's virtual_to_play once per descent step in two-player mode.
	// BatchBackpropagate uses it as the to_play argument to Expand.
	LeafToPlay []int8
}

// NewSearchResults allocates empty result slots for n batch elements.
func NewSearchResults(n int) *SearchResults {
	return &SearchResults{
		Nodes:                        make([]*Node, n),
		SearchPaths:                  make([][]*Node, n),
		LastActions:                  make([]Action, n),
		LatentStateIndexInSearchPath: make([]int32, n),
		LatentStateIndexInBatch:      make([]int32, n),
		LeafToPlay:                   make([]int8, n),
	}
}

// otherPlayer flips between the two-player sides 1 and 2.
func otherPlayer(p int8) int8 {
	if p == 1 {
		return 2
	}
	return 1
}

// BatchTraverse descends every root in roots, following PUCT selection
// until an unexpanded node is reached, and records the outcome in
// results. rng may be nil, in which case a wall-clock-seeded source is
// used for this call's tie-breaking.
func BatchTraverse(roots *Roots, pbCBase, pbCInit, gamma float64, minMaxStatsList MinMaxStatsList, results *SearchResults, virtualToPlayBatch []int8, rng *rand.Rand) error {
	n := roots.Len()
	if len(minMaxStatsList) != n || len(virtualToPlayBatch) != n {
		return ErrBatchSizeMismatch
	}
	if len(results.Nodes) != n {
		return ErrBatchSizeMismatch
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	players := 1
	for _, p := range virtualToPlayBatch {
		if p != -1 {
			players = 2
			break
		}
	}

	for i := 0; i < n; i++ {
		node := roots.Nodes[i]
		path := []*Node{node}
		isRoot := true
		parentQ := 0.0
		curToPlay := virtualToPlayBatch[i]

		for node.Expanded() {
			meanQ := node.ComputeMeanQ(isRoot, parentQ, gamma)
			action, child := selectChild(node, meanQ, &minMaxStatsList[i], pbCBase, pbCInit, gamma, players, rng)
			if players == 2 {
				curToPlay = otherPlayer(curToPlay)
			}
			node.BestAction = action
			parentQ = meanQ
			isRoot = false
			node = child
			path = append(path, node)
		}

		parent := path[0]
		if len(path) >= 2 {
			parent = path[len(path)-2]
		}

		results.Nodes[i] = node
		results.SearchPaths[i] = path
		results.LastActions[i] = node.IncomingAction
		results.LatentStateIndexInSearchPath[i] = parent.CurrentLatentStateIndex
		results.LatentStateIndexInBatch[i] = parent.BatchIndex
		results.LeafToPlay[i] = curToPlay
	}
	return nil
}
