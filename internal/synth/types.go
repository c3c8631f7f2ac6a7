// Package synth drives the external cloning engine and wraps it in the
// text canonicalization, reference preparation, and waveform sanitation
// steps that make its output usable.
package synth

import "context"

// Request is a single engine invocation: one chunk of canonical text
// voiced against a prepared reference recording.
type Request struct {
	Text           string
	ReferencePath  string
	Language       string
	SplitSentences bool
}

// Synthesizer produces a mono waveform for one request. Implementations
// serialize access internally; the engine holds a single model instance.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) ([]float64, int, error)
}
