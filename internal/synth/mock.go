package synth

import (
	"context"
	"math"
)

type mockSynth struct {
	sampleRate int
}

// NewMockSynth produces a short tone per request without an engine.
// Useful for development and for exercising the pipeline in tests.
func NewMockSynth(sampleRate int) Synthesizer {
	return &mockSynth{sampleRate: sampleRate}
}

func (m *mockSynth) Synthesize(ctx context.Context, req Request) ([]float64, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	// Duration tracks text length so longer chunks yield longer audio.
	seconds := 0.2 + 0.02*float64(len([]rune(req.Text)))
	if seconds > 2 {
		seconds = 2
	}
	n := int(seconds * float64(m.sampleRate))
	out := make([]float64, n)
	freq := 160.0
	if req.Language == "en" {
		freq = 220.0
	}
	for i := range out {
		out[i] = 0.4 * math.Sin(2*math.Pi*freq*float64(i)/float64(m.sampleRate))
	}
	return out, m.sampleRate, nil
}
