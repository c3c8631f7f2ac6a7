package audioproc

import (
	"math"
	"path/filepath"
	"testing"
)

func TestPrepareReferenceSilentPassthrough(t *testing.T) {
	in := make([]float64, WorkingSampleRate)
	out := PrepareReference(in, WorkingSampleRate, ReferenceOptions{})
	if len(out) != len(in) {
		t.Fatalf("silent reference changed length: %d -> %d", len(in), len(out))
	}
	for i, v := range out {
		if v != 0 {
			t.Fatalf("silent reference changed at %d: %f", i, v)
		}
	}
}

func TestPrepareReferencePeak(t *testing.T) {
	in := make([]float64, WorkingSampleRate*2)
	for i := range in {
		ts := float64(i) / WorkingSampleRate
		in[i] = 0.3 * math.Sin(2*math.Pi*220*ts)
	}
	out := PrepareReference(in, WorkingSampleRate, ReferenceOptions{})
	peak := 0.0
	for _, v := range out {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if math.Abs(peak-0.8) > 1e-9 {
		t.Fatalf("expected peak 0.8, got %f", peak)
	}
}

func TestPrepareReferenceResamples(t *testing.T) {
	in := make([]float64, 44100)
	for i := range in {
		ts := float64(i) / 44100
		in[i] = 0.5 * math.Sin(2*math.Pi*220*ts)
	}
	out := PrepareReference(in, 44100, ReferenceOptions{BandLimit: true})
	// One second of input should come out near one second at 22050 Hz,
	// less whatever edge silence the trim removes.
	if len(out) < WorkingSampleRate/2 || len(out) > WorkingSampleRate+1 {
		t.Fatalf("unexpected resampled length %d", len(out))
	}
}

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ref.wav")
	in := make([]float64, 4410)
	for i := range in {
		ts := float64(i) / WorkingSampleRate
		in[i] = 0.5 * math.Sin(2*math.Pi*440*ts)
	}
	if err := WriteWAV(path, in, WorkingSampleRate); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	out, rate, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	if rate != WorkingSampleRate {
		t.Fatalf("expected rate %d, got %d", WorkingSampleRate, rate)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(out))
	}
	for i := range out {
		if math.Abs(out[i]-in[i]) > 1.0/16384 {
			t.Fatalf("sample %d drifted: %f vs %f", i, out[i], in[i])
		}
	}
}
