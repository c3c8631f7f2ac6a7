package protocol

import "time"

// SynthesisRequest asks for cloned-voice speech for a stored voice profile.
type SynthesisRequest struct {
	SessionID    string    `json:"session_id"`
	Voice        string    `json:"voice"`
	Text         string    `json:"text"`
	LanguageHint string    `json:"language_hint,omitempty"`
	Stream       bool      `json:"stream"`
	Timestamp    time.Time `json:"timestamp"`
}

// ProgressEvent reports pipeline stage advancement for one session.
type ProgressEvent struct {
	SessionID string    `json:"session_id"`
	Stage     string    `json:"stage"`
	Percent   int       `json:"percent"`
	Timestamp time.Time `json:"timestamp"`
}

// AudioChunk carries one sanitized PCM chunk in plan order.
type AudioChunk struct {
	SessionID  string `json:"session_id"`
	Sequence   int    `json:"sequence"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Language   string `json:"language"`
	PCM        []byte `json:"pcm"`
	Final      bool   `json:"final"`
}

// CancelRequest stops a running session at its next chunk boundary.
type CancelRequest struct {
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Terminal statuses for SynthesisDone.
const (
	StatusComplete  = "complete"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

// SynthesisDone is the single terminal event for a session.
type SynthesisDone struct {
	SessionID   string    `json:"session_id"`
	Status      string    `json:"status"`
	TotalChunks int       `json:"total_chunks"`
	ChunkIndex  int       `json:"chunk_index,omitempty"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// VoiceAdded announces a newly stored voice profile.
type VoiceAdded struct {
	Voice     string    `json:"voice"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectSynthRequest  = "synth.request"
	SubjectSynthCancel   = "synth.cancel"
	SubjectSynthProgress = "synth.progress"
	SubjectSynthAudio    = "synth.audio"
	SubjectSynthDone     = "synth.done"
	SubjectVoiceAdded    = "voice.added"
)
