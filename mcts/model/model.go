// Package model defines the boundary between the search core and the
// external neural network. The core never implements this interface; it
// only calls it with a batch of leaf requests gathered by one round of
// traversal.
package model

import "context"

// Leaf describes one batch element's evaluation request. BatchIndex
// selects which root's latent-state line this leaf belongs to;
// ParentLatentIndex is the depth of the leaf's parent in that root's
// search path (the key under which the parent's latent vector was
// cached); Action is the multi-head action that produced the leaf from
// that parent.
type Leaf struct {
	BatchIndex        int32
	ParentLatentIndex int32
	Action            []int32
}

// EvaluateBatch runs the external model's recurrent-inference step once
// over every leaf in the batch, unrolling the dynamics function one
// step from each leaf's cached parent latent and running the prediction
// head on the resulting latent. depth is shared by the whole batch (the
// new leaves' common search-path depth) and is used to key where the
// resulting latents are cached for the next round.
//
// The four returned slices are parallel to leaves: Values are scalar
// bootstrap estimates, ValuePrefixes are the model's discounted-reward-
// prefix estimates, PolicyLogits are unnormalized per-leaf action
// logits, and Resets flags whether the model's internal reward
// accumulator was reinitialized producing that leaf.
type Model interface {
	EvaluateBatch(ctx context.Context, depth int32, leaves []Leaf) (values []float64, valuePrefixes []float32, policyLogits [][]float32, resets []bool, err error)
}
