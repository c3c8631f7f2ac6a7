package synth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/vaanilabs/vaani-core/internal/audioproc"
	"github.com/vaanilabs/vaani-core/internal/bus"
	"github.com/vaanilabs/vaani-core/internal/protocol"
	"github.com/vaanilabs/vaani-core/internal/voice"
)

// ProfileLookup resolves a stored voice profile by name.
type ProfileLookup interface {
	Get(ctx context.Context, name string) (voice.Profile, error)
}

// publisher is the outbound side of the bus connection.
type publisher interface {
	Publish(subject string, data []byte) error
}

// Service bridges the bus to the orchestrator: it consumes synthesis
// requests, resolves the voice profile, and publishes progress, audio,
// and the terminal event for each session.
type Service struct {
	bus    *bus.Client
	pub    publisher
	voices ProfileLookup
	orch   *Orchestrator
	subs   []*nats.Subscription
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger

	tracer   trace.Tracer
	sessions metric.Int64Counter
	duration metric.Float64Histogram

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

func NewService(parent context.Context, busClient *bus.Client, voices ProfileLookup, orch *Orchestrator, log *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	s := &Service{
		bus:    busClient,
		voices: voices,
		orch:   orch,
		ctx:    ctx,
		cancel: cancel,
		logger: log.With(slog.String("component", "synth-service")),
		tracer: otel.Tracer("github.com/vaanilabs/vaani-core/synth"),
		active: make(map[string]context.CancelFunc),
	}
	if busClient != nil {
		s.pub = busClient.Conn()
	}

	meter := otel.Meter("github.com/vaanilabs/vaani-core/synth")
	var err error
	s.sessions, err = meter.Int64Counter("vaani.synth.sessions",
		metric.WithDescription("Completed synthesis sessions by terminal status"))
	if err != nil {
		s.logger.Warn("failed to initialize session counter", slogError(err))
	}
	s.duration, err = meter.Float64Histogram("vaani.synth.session_seconds",
		metric.WithDescription("Wall time per synthesis session"))
	if err != nil {
		s.logger.Warn("failed to initialize duration histogram", slogError(err))
	}
	return s
}

func (s *Service) Start() error {
	reqSub, err := s.bus.Conn().Subscribe(protocol.SubjectSynthRequest, s.handleRequest)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, reqSub)

	cancelSub, err := s.bus.Conn().Subscribe(protocol.SubjectSynthCancel, s.handleCancel)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, cancelSub)
	return nil
}

func (s *Service) Close() {
	s.cancel()
	for _, sub := range s.subs {
		_ = sub.Drain()
	}
	s.wg.Wait()
}

func (s *Service) Healthy() bool { return len(s.subs) > 0 }

func (s *Service) handleRequest(msg *nats.Msg) {
	var req protocol.SynthesisRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("failed to decode synthesis request", slogError(err))
		return
	}
	if req.Text == "" {
		s.logger.Warn("rejecting request without text")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runSession(req)
	}()
}

func (s *Service) handleCancel(msg *nats.Msg) {
	var req protocol.CancelRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("failed to decode cancel request", slogError(err))
		return
	}
	s.mu.Lock()
	cancel, ok := s.active[req.SessionID]
	s.mu.Unlock()
	if !ok {
		s.logger.Info("cancel for unknown session", slog.String("session", req.SessionID))
		return
	}
	s.logger.Info("cancelling session", slog.String("session", req.SessionID))
	cancel()
}

func (s *Service) runSession(req protocol.SynthesisRequest) {
	started := time.Now()
	ctx, span := s.tracer.Start(s.ctx, "synth.session",
		trace.WithAttributes(
			attribute.String("session.id", req.SessionID),
			attribute.String("voice", req.Voice),
			attribute.Bool("stream", req.Stream),
		))
	defer span.End()

	job := Job{
		SessionID:    req.SessionID,
		Text:         req.Text,
		LanguageHint: req.LanguageHint,
		Streaming:    req.Stream,
	}

	if req.Voice != "" {
		profile, err := s.voices.Get(ctx, req.Voice)
		if err != nil {
			if errors.Is(err, voice.ErrNotFound) {
				s.finishWithError(req.SessionID, "unknown voice: "+req.Voice)
			} else {
				s.logger.Error("voice lookup failed", slogError(err))
				s.finishWithError(req.SessionID, "voice lookup failed")
			}
			s.record(ctx, protocol.StatusError, started)
			return
		}
		samples, rate, err := audioproc.ReadWAV(profile.ReferencePath)
		if err != nil {
			s.logger.Error("failed to read voice reference",
				slog.String("voice", req.Voice), slogError(err))
			s.finishWithError(req.SessionID, "voice reference unavailable")
			s.record(ctx, protocol.StatusError, started)
			return
		}
		job.Reference = samples
		job.SampleRate = rate
		job.Fingerprint = &profile.Fingerprint
	}

	sessionCtx, cancelSession := context.WithCancel(ctx)
	defer cancelSession()
	s.mu.Lock()
	s.active[req.SessionID] = cancelSession
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.active, req.SessionID)
		s.mu.Unlock()
	}()

	delivery := s.orch.Run(sessionCtx, job)
	status := s.forward(delivery)
	s.record(ctx, status, started)
}

// forward drains a delivery onto the bus and returns the terminal status.
// The terminal event is read only after the audio channel has closed, so
// every chunk is published before the done event a consumer may key on.
func (s *Service) forward(delivery Delivery) string {
	progress, chunks := delivery.Progress, delivery.Chunks
	for progress != nil || chunks != nil {
		select {
		case evt, ok := <-progress:
			if !ok {
				progress = nil
				continue
			}
			s.publish(protocol.SubjectSynthProgress, evt)
		case chunk, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			s.publish(protocol.SubjectSynthAudio, chunk)
		}
	}

	status := protocol.StatusError
	for final := range delivery.Done {
		status = final.Status
		s.publish(protocol.SubjectSynthDone, final)
	}
	return status
}

func (s *Service) finishWithError(sessionID, message string) {
	s.publish(protocol.SubjectSynthDone, protocol.SynthesisDone{
		SessionID: sessionID,
		Status:    protocol.StatusError,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Service) publish(subject string, payload any) {
	if s.pub == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal bus message",
			slog.String("subject", subject), slogError(err))
		return
	}
	if err := s.pub.Publish(subject, data); err != nil {
		s.logger.Warn("failed to publish bus message",
			slog.String("subject", subject), slogError(err))
	}
}

func (s *Service) record(ctx context.Context, status string, started time.Time) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	if s.sessions != nil {
		s.sessions.Add(ctx, 1, attrs)
	}
	if s.duration != nil {
		s.duration.Record(ctx, time.Since(started).Seconds(), attrs)
	}
}
