// Package voice persists cloned voice profiles: a prepared reference
// recording on disk plus the acoustic fingerprint extracted from it.
package voice

import (
	"time"

	"github.com/vaanilabs/vaani-core/internal/audioproc"
)

// Profile is a stored voice identity. ReferencePath points at the
// prepared mono WAV used as the cloning reference.
type Profile struct {
	Name          string                `json:"name"`
	Language      string                `json:"language"`
	ReferencePath string                `json:"reference_path"`
	Fingerprint   audioproc.Fingerprint `json:"fingerprint"`
	Metadata      map[string]string     `json:"metadata,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}
