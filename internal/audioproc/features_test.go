package audioproc

import (
	"math"
	"testing"
)

func sine(freq float64, seconds float64, amp float64) []float64 {
	n := int(seconds * WorkingSampleRate)
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / WorkingSampleRate
		out[i] = amp * math.Sin(2*math.Pi*freq*t)
	}
	return out
}

func assertFinite(t *testing.T, fp Fingerprint) {
	t.Helper()
	fields := map[string]float64{
		"pitch_mean":         fp.PitchMean,
		"pitch_std":          fp.PitchStd,
		"spectral_centroid":  fp.SpectralCentroid,
		"spectral_rolloff":   fp.SpectralRolloff,
		"spectral_bandwidth": fp.SpectralBandwidth,
		"zero_crossing_rate": fp.ZeroCrossingRate,
		"rms_energy":         fp.RMSEnergy,
	}
	for name, v := range fields {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("%s is not finite: %f", name, v)
		}
	}
	for i, v := range fp.Cepstrum {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("cepstrum[%d] is not finite: %f", i, v)
		}
	}
}

func TestExtractFingerprintSine(t *testing.T) {
	fp := ExtractFingerprint(sine(180, 1.0, 0.6), WorkingSampleRate)
	assertFinite(t, fp)
	if math.Abs(fp.PitchMean-180) > 10 {
		t.Fatalf("expected pitch near 180 Hz, got %f", fp.PitchMean)
	}
	if fp.RMSEnergy < 0.3 || fp.RMSEnergy > 0.5 {
		t.Fatalf("unexpected rms for 0.6 amplitude sine: %f", fp.RMSEnergy)
	}
	if fp.SpectralCentroid <= 0 {
		t.Fatalf("expected positive centroid, got %f", fp.SpectralCentroid)
	}
}

func TestExtractFingerprintSilenceDefaultsPitch(t *testing.T) {
	fp := ExtractFingerprint(make([]float64, WorkingSampleRate), WorkingSampleRate)
	assertFinite(t, fp)
	if fp.PitchMean != DefaultPitchMean || fp.PitchStd != DefaultPitchStd {
		t.Fatalf("expected neutral pitch defaults, got %f/%f", fp.PitchMean, fp.PitchStd)
	}
	if fp.RMSEnergy != 0 {
		t.Fatalf("expected zero rms for silence, got %f", fp.RMSEnergy)
	}
}

func TestExtractFingerprintEmptyInput(t *testing.T) {
	fp := ExtractFingerprint(nil, WorkingSampleRate)
	assertFinite(t, fp)
	if fp.PitchMean != DefaultPitchMean {
		t.Fatalf("expected neutral pitch, got %f", fp.PitchMean)
	}
}

func TestExtractFingerprintDeterministic(t *testing.T) {
	in := sine(140, 0.5, 0.4)
	a := ExtractFingerprint(in, WorkingSampleRate)
	b := ExtractFingerprint(in, WorkingSampleRate)
	if a.PitchMean != b.PitchMean || a.SpectralCentroid != b.SpectralCentroid || a.RMSEnergy != b.RMSEnergy {
		t.Fatalf("fingerprint not deterministic: %+v vs %+v", a, b)
	}
}

func TestMatchToFingerprintGain(t *testing.T) {
	in := sine(200, 0.5, 0.1)
	fp := Fingerprint{RMSEnergy: 0.2, SpectralCentroid: 2000}
	out := MatchToFingerprint(in, fp)
	got := rms(out)
	if math.Abs(got-0.2) > 0.02 {
		t.Fatalf("expected rms near 0.2 after matching, got %f", got)
	}
	for i, v := range out {
		if math.Abs(v) > 1 {
			t.Fatalf("sample %d outside [-1,1]: %f", i, v)
		}
	}
}
