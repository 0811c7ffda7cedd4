package mcts

import "errors"

// Sentinel errors for the precondition violations described by the core's
// error handling design. None of these are recoverable: callers that hit
// one have a data-shape or programming bug upstream, not a transient
// failure to retry.
var (
	// ErrBatchSizeMismatch is returned when an external array's outer
	// length does not match the number of roots in the batch.
	ErrBatchSizeMismatch = errors.New("mcts: batch size mismatch")

	// ErrLegalActionOutOfRange is returned when a legal action index falls
	// outside 0..len(policyLogits) at expansion time.
	ErrLegalActionOutOfRange = errors.New("mcts: legal action index out of range")

	// ErrInvalidToPlay is returned when a to_play value outside {-1, 1, 2}
	// is supplied to backpropagation.
	ErrInvalidToPlay = errors.New("mcts: invalid to_play value")
)
