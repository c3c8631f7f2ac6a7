package voice

import (
	"fmt"
	"math"
	"strings"
)

const (
	minReferenceSeconds = 3.0
	maxReferenceSeconds = 60.0
	minReferenceRMS     = 0.01
	silenceThreshold    = 0.01
	maxSilenceRatio     = 0.7
	issuePenalty        = 25
)

// QualityReport summarizes whether an uploaded recording is usable as a
// cloning reference. Score starts at 100 and drops for each issue found.
type QualityReport struct {
	DurationSeconds float64  `json:"duration_seconds"`
	RMSEnergy       float64  `json:"rms_energy"`
	SilenceRatio    float64  `json:"silence_ratio"`
	Issues          []string `json:"issues,omitempty"`
	Score           int      `json:"score"`
}

// OK reports whether the recording passed every check.
func (r QualityReport) OK() bool { return len(r.Issues) == 0 }

// ValidationError carries the report for a rejected reference.
type ValidationError struct {
	Report QualityReport
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("voice: reference rejected (score %d): %s",
		e.Report.Score, strings.Join(e.Report.Issues, "; "))
}

// ValidateReference checks an uploaded recording before it is accepted
// as a voice reference. It returns the report either way; err is a
// *ValidationError when any check fails.
func ValidateReference(samples []float64, sampleRate int) (QualityReport, error) {
	report := QualityReport{Score: 100}
	if sampleRate <= 0 || len(samples) == 0 {
		report.Issues = append(report.Issues, "recording is empty")
		report.Score = 0
		return report, &ValidationError{Report: report}
	}

	report.DurationSeconds = float64(len(samples)) / float64(sampleRate)

	var sumSq float64
	silent := 0
	for _, v := range samples {
		sumSq += v * v
		if math.Abs(v) < silenceThreshold {
			silent++
		}
	}
	report.RMSEnergy = math.Sqrt(sumSq / float64(len(samples)))
	report.SilenceRatio = float64(silent) / float64(len(samples))

	if report.DurationSeconds < minReferenceSeconds {
		report.Issues = append(report.Issues,
			fmt.Sprintf("too short: %.1fs, need at least %.0fs", report.DurationSeconds, minReferenceSeconds))
	}
	if report.DurationSeconds > maxReferenceSeconds {
		report.Issues = append(report.Issues,
			fmt.Sprintf("too long: %.1fs, limit is %.0fs", report.DurationSeconds, maxReferenceSeconds))
	}
	if report.RMSEnergy < minReferenceRMS {
		report.Issues = append(report.Issues,
			fmt.Sprintf("too quiet: rms %.4f below %.2f", report.RMSEnergy, minReferenceRMS))
	}
	if report.SilenceRatio > maxSilenceRatio {
		report.Issues = append(report.Issues,
			fmt.Sprintf("mostly silence: %.0f%% of samples below threshold", report.SilenceRatio*100))
	}

	report.Score = 100 - issuePenalty*len(report.Issues)
	if report.Score < 0 {
		report.Score = 0
	}
	if len(report.Issues) > 0 {
		return report, &ValidationError{Report: report}
	}
	return report, nil
}
