package synth

import (
	"errors"
	"fmt"
)

// ErrCancelled marks a session stopped at a chunk boundary on request.
var ErrCancelled = errors.New("synth: cancelled")

// SynthesisError reports which chunk the engine failed on. Chunks
// already delivered before the failure remain valid.
type SynthesisError struct {
	ChunkIndex int
	Err        error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synth: chunk %d failed: %v", e.ChunkIndex, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
