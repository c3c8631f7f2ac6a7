package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/vaanilabs/vaani-core/internal/audioproc"
	"github.com/vaanilabs/vaani-core/internal/config"
	"github.com/vaanilabs/vaani-core/internal/voice"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Voices.DatabasePath = filepath.Join(dir, "voices.db")
	cfg.Voices.AudioDir = filepath.Join(dir, "audio")
	cfg.Pipeline.TempDir = dir

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := voice.Open(context.Background(), cfg.Voices, log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	mux := http.NewServeMux()
	newVoicesAPI(cfg, store, nil, log).register(mux)
	return mux
}

func wavBytes(t *testing.T, seconds float64) []byte {
	t.Helper()
	n := int(seconds * audioproc.WorkingSampleRate)
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*150*float64(i)/audioproc.WorkingSampleRate)
	}
	path := filepath.Join(t.TempDir(), "upload.wav")
	if err := audioproc.WriteWAV(path, samples, audioproc.WorkingSampleRate); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	return data
}

func uploadRequest(t *testing.T, name, language string, wav []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if name != "" {
		if err := writer.WriteField("name", name); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if language != "" {
		if err := writer.WriteField("language", language); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if wav != nil {
		part, err := writer.CreateFormFile("audio", "reference.wav")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(wav); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/voices", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadStoreAndDeleteVoice(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, uploadRequest(t, "asha", "hi", wavBytes(t, 5)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Profile.Name != "asha" || created.Profile.Language != "hi" {
		t.Fatalf("unexpected profile: %+v", created.Profile)
	}
	if created.Quality.Score != 100 {
		t.Fatalf("expected quality 100, got %+v", created.Quality)
	}
	if _, err := os.Stat(created.Profile.ReferencePath); err != nil {
		t.Fatalf("prepared reference missing: %v", err)
	}
	if created.Profile.Fingerprint.PitchMean <= 0 {
		t.Fatalf("fingerprint not extracted: %+v", created.Profile.Fingerprint)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/voices/asha", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/voices", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var profiles []voice.Profile
	if err := json.Unmarshal(rec.Body.Bytes(), &profiles); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles))
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/voices/asha", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	if _, err := os.Stat(created.Profile.ReferencePath); !os.IsNotExist(err) {
		t.Fatalf("reference audio should be removed, stat err: %v", err)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/voices/asha", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rec.Code)
	}
}

func TestUploadRejectsShortRecording(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, uploadRequest(t, "rishi", "", wavBytes(t, 1)))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Quality.Score != 75 || len(resp.Quality.Issues) != 1 {
		t.Fatalf("expected one issue at score 75, got %+v", resp.Quality)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/voices/rishi", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("rejected voice should not be stored, got %d", rec.Code)
	}
}

func TestUploadRequiresNameAndAudio(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, uploadRequest(t, "", "", wavBytes(t, 5)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing name: expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, uploadRequest(t, "asha", "", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing audio: expected 400, got %d", rec.Code)
	}
}
