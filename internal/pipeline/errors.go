package pipeline

import "errors"

// ErrInvariant marks a violated stage-boundary invariant. It means the
// upstream filtering logic is broken, not that the input data is merely
// malformed; callers must halt rather than attempt recovery.
var ErrInvariant = errors.New("pipeline invariant violated")

// ErrInsufficientCandidates is returned when the episodic selector cannot
// supply one control cue per finalized target.
var ErrInsufficientCandidates = errors.New("not enough episodic cue candidates")
