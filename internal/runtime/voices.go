package runtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/vaanilabs/vaani-core/internal/audioproc"
	"github.com/vaanilabs/vaani-core/internal/bus"
	"github.com/vaanilabs/vaani-core/internal/config"
	"github.com/vaanilabs/vaani-core/internal/protocol"
	"github.com/vaanilabs/vaani-core/internal/voice"
)

const maxUploadBytes = 64 << 20

// voicesAPI serves voice profile management over HTTP. Uploads are
// validated, prepared, fingerprinted, and stored; the bus is notified
// so listeners can refresh their voice lists.
type voicesAPI struct {
	cfg    config.Config
	store  *voice.Store
	bus    *bus.Client
	logger *slog.Logger
}

func newVoicesAPI(cfg config.Config, store *voice.Store, busClient *bus.Client, log *slog.Logger) *voicesAPI {
	return &voicesAPI{
		cfg:    cfg,
		store:  store,
		bus:    busClient,
		logger: log.With(slog.String("component", "voices-api")),
	}
}

func (v *voicesAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /voices", v.handleUpload)
	mux.HandleFunc("GET /voices", v.handleList)
	mux.HandleFunc("GET /voices/{name}", v.handleGet)
	mux.HandleFunc("DELETE /voices/{name}", v.handleDelete)
}

type uploadResponse struct {
	Profile voice.Profile       `json:"profile"`
	Quality voice.QualityReport `json:"quality"`
}

func (v *voicesAPI) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		v.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	name := r.FormValue("name")
	if name == "" {
		v.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		v.writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp(v.cfg.Pipeline.TempDir, "vaani-upload-*.wav")
	if err != nil {
		v.writeError(w, http.StatusInternalServerError, "failed to stage upload")
		return
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.ReadFrom(file); err != nil {
		tmp.Close()
		v.writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	tmp.Close()

	samples, rate, err := audioproc.ReadWAV(tmp.Name())
	if err != nil {
		v.writeError(w, http.StatusBadRequest, "could not decode wav audio")
		return
	}

	report, err := voice.ValidateReference(samples, rate)
	if err != nil {
		var verr *voice.ValidationError
		if errors.As(err, &verr) {
			v.writeJSON(w, http.StatusUnprocessableEntity, uploadResponse{Quality: verr.Report})
			return
		}
		v.writeError(w, http.StatusInternalServerError, "validation failed")
		return
	}

	prepared := audioproc.PrepareReference(samples, rate, audioproc.ReferenceOptions{
		BandLimit: v.cfg.Pipeline.BandLimitReference,
	})
	fingerprint := audioproc.ExtractFingerprint(prepared, audioproc.WorkingSampleRate)

	if err := os.MkdirAll(v.cfg.Voices.AudioDir, 0o755); err != nil {
		v.writeError(w, http.StatusInternalServerError, "failed to store reference")
		return
	}
	refPath := filepath.Join(v.cfg.Voices.AudioDir, uuid.NewString()+".wav")
	if err := audioproc.WriteWAV(refPath, prepared, audioproc.WorkingSampleRate); err != nil {
		v.writeError(w, http.StatusInternalServerError, "failed to store reference")
		return
	}

	profile := voice.Profile{
		Name:          name,
		Language:      r.FormValue("language"),
		ReferencePath: refPath,
		Fingerprint:   fingerprint,
	}
	if err := v.store.Put(r.Context(), profile); err != nil {
		os.Remove(refPath)
		v.logger.Error("failed to store voice profile", slog.String("error", err.Error()))
		v.writeError(w, http.StatusInternalServerError, "failed to store profile")
		return
	}

	v.publishAdded(name)
	v.logger.Info("voice profile stored",
		slog.String("voice", name),
		slog.Int("quality_score", report.Score))
	v.writeJSON(w, http.StatusCreated, uploadResponse{Profile: profile, Quality: report})
}

func (v *voicesAPI) handleList(w http.ResponseWriter, r *http.Request) {
	profiles, err := v.store.List(r.Context())
	if err != nil {
		v.logger.Error("failed to list voices", slog.String("error", err.Error()))
		v.writeError(w, http.StatusInternalServerError, "failed to list voices")
		return
	}
	if profiles == nil {
		profiles = []voice.Profile{}
	}
	v.writeJSON(w, http.StatusOK, profiles)
}

func (v *voicesAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	profile, err := v.store.Get(r.Context(), r.PathValue("name"))
	if err != nil {
		if errors.Is(err, voice.ErrNotFound) {
			v.writeError(w, http.StatusNotFound, "voice not found")
			return
		}
		v.writeError(w, http.StatusInternalServerError, "failed to load voice")
		return
	}
	v.writeJSON(w, http.StatusOK, profile)
}

func (v *voicesAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	refPath, err := v.store.Delete(r.Context(), r.PathValue("name"))
	if err != nil {
		if errors.Is(err, voice.ErrNotFound) {
			v.writeError(w, http.StatusNotFound, "voice not found")
			return
		}
		v.writeError(w, http.StatusInternalServerError, "failed to delete voice")
		return
	}
	if refPath != "" {
		if err := os.Remove(refPath); err != nil && !os.IsNotExist(err) {
			v.logger.Warn("failed to remove reference audio",
				slog.String("path", refPath), slog.String("error", err.Error()))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (v *voicesAPI) publishAdded(name string) {
	if v.bus == nil {
		return
	}
	msg := protocol.VoiceAdded{Voice: name, Timestamp: time.Now().UTC()}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := v.bus.Conn().Publish(protocol.SubjectVoiceAdded, data); err != nil {
		v.logger.Warn("failed to announce voice", slog.String("error", err.Error()))
	}
}

func (v *voicesAPI) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		v.logger.Warn("failed to encode response", slog.String("error", err.Error()))
	}
}

func (v *voicesAPI) writeError(w http.ResponseWriter, status int, message string) {
	v.writeJSON(w, status, map[string]string{"error": message})
}
