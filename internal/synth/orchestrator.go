package synth

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/vaanilabs/vaani-core/internal/audioproc"
	"github.com/vaanilabs/vaani-core/internal/config"
	"github.com/vaanilabs/vaani-core/internal/protocol"
	"github.com/vaanilabs/vaani-core/internal/textproc"
)

// State tracks where a session is in its lifecycle. Transitions are
// strictly forward; every session ends in exactly one terminal state.
type State int

const (
	StateInit State = iota
	StatePlanned
	StateSynthesizing
	StateChunkReady
	StateComplete
	StateError
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StatePlanned:
		return "planned"
	case StateSynthesizing:
		return "synthesizing"
	case StateChunkReady:
		return "chunk_ready"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Job is one synthesis session: text to voice against a raw reference
// recording. Reference samples are prepared and written to a temporary
// WAV for the engine; the file is removed when the session ends.
type Job struct {
	SessionID    string
	Text         string
	Reference    []float64
	SampleRate   int
	Fingerprint  *audioproc.Fingerprint
	LanguageHint string
	Streaming    bool
}

// Delivery is the consumer side of a running session. Chunks arrive in
// plan order. Done carries exactly one terminal event, after which all
// three channels are closed.
type Delivery struct {
	Progress <-chan protocol.ProgressEvent
	Chunks   <-chan protocol.AudioChunk
	Done     <-chan protocol.SynthesisDone
}

// Orchestrator runs synthesis sessions through the full pipeline:
// canonicalize, plan, prepare reference, synthesize chunk by chunk,
// sanitize, deliver.
type Orchestrator struct {
	pipeline config.PipelineConfig
	synth    Synthesizer
	clean    *audioproc.Sanitizer
	stream   *audioproc.Sanitizer
	timeout  time.Duration
	log      *slog.Logger
}

func NewOrchestrator(pipeline config.PipelineConfig, synthCfg config.SynthConfig, s Synthesizer, log *slog.Logger) *Orchestrator {
	rate := synthCfg.SampleRate
	if rate <= 0 {
		rate = audioproc.WorkingSampleRate
	}
	timeout := time.Duration(synthCfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	logger := log.With(slog.String("component", "orchestrator"))
	return &Orchestrator{
		pipeline: pipeline,
		synth:    s,
		clean:    audioproc.NewSanitizer(audioproc.CleanupProfile(pipeline.CleanupProfile), rate, logger),
		stream:   audioproc.NewSanitizer(audioproc.CleanupProfile(pipeline.StreamProfile), rate, logger),
		timeout:  timeout,
		log:      logger,
	}
}

// Run starts a session and returns immediately. Cancelling ctx stops
// the session at the next chunk boundary; a chunk already handed to the
// engine finishes and is delivered before the session reports cancelled.
func (o *Orchestrator) Run(ctx context.Context, job Job) Delivery {
	buffer := o.pipeline.StreamBuffer
	if buffer <= 0 {
		buffer = 1
	}
	progress := make(chan protocol.ProgressEvent, 16)
	chunks := make(chan protocol.AudioChunk, buffer)
	done := make(chan protocol.SynthesisDone, 1)

	go o.run(ctx, job, progress, chunks, done)

	return Delivery{Progress: progress, Chunks: chunks, Done: done}
}

func (o *Orchestrator) run(ctx context.Context, job Job, progress chan protocol.ProgressEvent, chunks chan protocol.AudioChunk, done chan protocol.SynthesisDone) {
	defer close(progress)
	defer close(chunks)
	defer close(done)

	log := o.log.With(slog.String("session", job.SessionID))
	o.emitProgress(progress, job.SessionID, StateInit, 0)

	refPath, cleanup, err := o.prepareReference(job)
	if err != nil {
		log.Error("reference preparation failed", slogError(err))
		done <- terminal(job.SessionID, protocol.StatusError, 0, 0, err.Error())
		return
	}
	defer cleanup()

	var plan textproc.Plan
	if job.Streaming {
		plan = textproc.PlanStream(job.Text)
	} else {
		plan = textproc.PlanSingle(job.Text)
	}
	usable := plan.Chunks[:0:0]
	for _, chunk := range plan.Chunks {
		if strings.TrimSpace(chunk.Text) != "" {
			chunk.Index = len(usable)
			usable = append(usable, chunk)
		}
	}
	plan.Chunks = usable
	if len(plan.Chunks) == 0 {
		done <- terminal(job.SessionID, protocol.StatusError, 0, 0, "no synthesizable text")
		return
	}
	log.Info("session planned",
		slog.Int("chunks", len(plan.Chunks)),
		slog.String("language", plan.Language),
		slog.String("language_hint", job.LanguageHint))
	o.emitProgress(progress, job.SessionID, StatePlanned, 0)

	sanitizer := o.clean
	if job.Streaming {
		sanitizer = o.stream
	}

	delivered := 0
	for i, chunk := range plan.Chunks {
		if ctx.Err() != nil {
			log.Info("session cancelled", slog.Int("delivered", delivered))
			o.emitProgress(progress, job.SessionID, StateCancelled, percent(delivered, len(plan.Chunks)))
			done <- terminal(job.SessionID, protocol.StatusCancelled, delivered, 0, ErrCancelled.Error())
			return
		}

		o.emitProgress(progress, job.SessionID, StateSynthesizing, percent(i, len(plan.Chunks)))

		samples, rate, err := o.synthesizeChunk(ctx, chunk, refPath)
		if err != nil {
			serr := &SynthesisError{ChunkIndex: i, Err: err}
			log.Error("chunk synthesis failed", slog.Int("chunk", i), slogError(err))
			o.emitProgress(progress, job.SessionID, StateError, percent(i, len(plan.Chunks)))
			done <- terminal(job.SessionID, protocol.StatusError, delivered, i, serr.Error())
			return
		}

		cleaned, err := sanitizer.Clean(samples)
		if err != nil {
			// Delivery beats polish: fall back to the raw waveform.
			log.Warn("sanitization failed, delivering raw audio", slog.Int("chunk", i), slogError(err))
			cleaned = samples
		}
		if job.Fingerprint != nil && sanitizer.Profile() == audioproc.CleanupStandard {
			cleaned = audioproc.MatchToFingerprint(cleaned, *job.Fingerprint)
		}

		packet := protocol.AudioChunk{
			SessionID:  job.SessionID,
			Sequence:   i,
			SampleRate: rate,
			Channels:   1,
			Language:   chunk.Lang,
			PCM:        audioproc.FloatsToPCM16(cleaned),
			Final:      i == len(plan.Chunks)-1,
		}
		// A synthesized chunk is always delivered, even when the session
		// was cancelled while the engine was working on it.
		select {
		case chunks <- packet:
		default:
			select {
			case chunks <- packet:
			case <-ctx.Done():
				log.Info("session cancelled during delivery", slog.Int("delivered", delivered))
				done <- terminal(job.SessionID, protocol.StatusCancelled, delivered, 0, ErrCancelled.Error())
				return
			}
		}
		delivered++
		o.emitProgress(progress, job.SessionID, StateChunkReady, percent(delivered, len(plan.Chunks)))

		if job.Streaming && i < len(plan.Chunks)-1 && o.pipeline.ChunkPauseMS > 0 {
			pause := time.Duration(o.pipeline.ChunkPauseMS) * time.Millisecond
			select {
			case <-time.After(pause):
			case <-ctx.Done():
			}
		}
	}

	o.emitProgress(progress, job.SessionID, StateComplete, 100)
	done <- terminal(job.SessionID, protocol.StatusComplete, delivered, 0, "")
}

// synthesizeChunk shields the engine call from caller cancellation so an
// in-flight chunk always finishes; cancellation takes effect at the next
// chunk boundary.
func (o *Orchestrator) synthesizeChunk(ctx context.Context, chunk textproc.Chunk, refPath string) ([]float64, int, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	defer cancel()
	return o.synth.Synthesize(callCtx, Request{
		Text:           chunk.Text,
		ReferencePath:  refPath,
		Language:       chunk.Lang,
		SplitSentences: false,
	})
}

func (o *Orchestrator) prepareReference(job Job) (string, func(), error) {
	if len(job.Reference) == 0 {
		return "", func() {}, nil
	}
	prepared := audioproc.PrepareReference(job.Reference, job.SampleRate, audioproc.ReferenceOptions{
		BandLimit: o.pipeline.BandLimitReference,
	})

	f, err := os.CreateTemp(o.pipeline.TempDir, "vaani-ref-*.wav")
	if err != nil {
		return "", nil, fmt.Errorf("create reference temp file: %w", err)
	}
	path := f.Name()
	f.Close()

	if err := audioproc.WriteWAV(path, prepared, audioproc.WorkingSampleRate); err != nil {
		os.Remove(path)
		return "", nil, fmt.Errorf("write reference wav: %w", err)
	}
	return path, func() { os.Remove(path) }, nil
}

func (o *Orchestrator) emitProgress(progress chan protocol.ProgressEvent, sessionID string, state State, pct int) {
	evt := protocol.ProgressEvent{
		SessionID: sessionID,
		Stage:     state.String(),
		Percent:   pct,
		Timestamp: time.Now().UTC(),
	}
	select {
	case progress <- evt:
	default:
		// Progress is advisory; never block synthesis on a slow reader.
	}
}

func percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return done * 100 / total
}

func terminal(sessionID, status string, totalChunks, chunkIndex int, message string) protocol.SynthesisDone {
	return protocol.SynthesisDone{
		SessionID:   sessionID,
		Status:      status,
		TotalChunks: totalChunks,
		ChunkIndex:  chunkIndex,
		Message:     message,
		Timestamp:   time.Now().UTC(),
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
