package statemachine

import "errors"

var (
	// ErrLogUnavailable is returned when the durable log rejects or fails
	// an append. It is transient and safe to retry (spec §7 taxonomy 4).
	ErrLogUnavailable = errors.New("log unavailable")

	// ErrReplayInvariant marks a fatal replay-time failure: a corrupt or
	// unrecognized command found in the committed log. The node must
	// halt rather than serve state derived past the violation (spec §7
	// taxonomy 5).
	ErrReplayInvariant = errors.New("replay invariant violation")
)
