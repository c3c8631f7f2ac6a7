package voice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/vaanilabs/vaani-core/internal/audioproc"
	"github.com/vaanilabs/vaani-core/internal/config"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.VoicesConfig{
		DatabasePath: filepath.Join(t.TempDir(), "voices.db"),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	in := Profile{
		Name:          "priya",
		Language:      "hi",
		ReferencePath: "/data/voices/priya.wav",
		Fingerprint: audioproc.Fingerprint{
			PitchMean: 212.5,
			PitchStd:  31.2,
			RMSEnergy: 0.12,
			Cepstrum:  []float64{1, 2, 3},
		},
		Metadata: map[string]string{"source": "upload"},
	}
	if err := s.Put(ctx, in); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, "priya")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Language != "hi" || got.ReferencePath != in.ReferencePath {
		t.Fatalf("unexpected profile: %+v", got)
	}
	if got.Fingerprint.PitchMean != 212.5 || len(got.Fingerprint.Cepstrum) != 3 {
		t.Fatalf("fingerprint not preserved: %+v", got.Fingerprint)
	}
	if got.Metadata["source"] != "upload" {
		t.Fatalf("metadata not preserved: %+v", got.Metadata)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", got)
	}
}

func TestPutUpsertsExisting(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return base }

	if err := s.Put(ctx, Profile{Name: "arjun", Language: "en", ReferencePath: "a.wav"}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	s.clock = func() time.Time { return base.Add(time.Hour) }
	if err := s.Put(ctx, Profile{Name: "arjun", Language: "hi", ReferencePath: "b.wav"}); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := s.Get(ctx, "arjun")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Language != "hi" || got.ReferencePath != "b.wav" {
		t.Fatalf("upsert did not replace fields: %+v", got)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Fatalf("updated_at should advance: created %v updated %v", got.CreatedAt, got.UpdatedAt)
	}

	profiles, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile after upsert, got %d", len(profiles))
	}
}

func TestGetUnknownProfile(t *testing.T) {
	s := newStore(t)
	if _, err := s.Get(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrdersByName(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	for _, name := range []string{"zeta", "alpha", "mira"} {
		if err := s.Put(ctx, Profile{Name: name, ReferencePath: name + ".wav"}); err != nil {
			t.Fatalf("put %s: %v", name, err)
		}
	}
	profiles, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"alpha", "mira", "zeta"}
	if len(profiles) != len(want) {
		t.Fatalf("expected %d profiles, got %d", len(want), len(profiles))
	}
	for i, name := range want {
		if profiles[i].Name != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, profiles[i].Name)
		}
	}
}

func TestDeleteReturnsReferencePath(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if err := s.Put(ctx, Profile{Name: "kiran", ReferencePath: "/data/voices/kiran.wav"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	path, err := s.Delete(ctx, "kiran")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if path != "/data/voices/kiran.wav" {
		t.Fatalf("unexpected reference path: %s", path)
	}
	if _, err := s.Get(ctx, "kiran"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := s.Delete(ctx, "kiran"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for second delete, got %v", err)
	}
}
