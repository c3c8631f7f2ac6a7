package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	ServiceName string          `yaml:"service_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Bus         BusConfig       `yaml:"bus"`
	Voices      VoicesConfig    `yaml:"voices"`
	Synth       SynthConfig     `yaml:"synth"`
	Pipeline    PipelineConfig  `yaml:"pipeline"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

// VoicesConfig controls the voice profile store and where prepared
// reference recordings are kept.
type VoicesConfig struct {
	DatabasePath  string `yaml:"database_path"`
	AudioDir      string `yaml:"audio_dir"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

// SynthConfig selects and configures the external synthesis engine.
type SynthConfig struct {
	Mode       string `yaml:"mode"` // mock, exec
	Command    string `yaml:"command"`
	SampleRate int    `yaml:"sample_rate"`
	TimeoutMS  int    `yaml:"timeout_ms"`
}

// PipelineConfig tunes the pre/post-processing around synthesis calls.
type PipelineConfig struct {
	CleanupProfile     string `yaml:"cleanup_profile"`        // standard, minimal
	StreamProfile      string `yaml:"stream_cleanup_profile"` // cleanup used in streaming mode
	ChunkPauseMS       int    `yaml:"chunk_pause_ms"`
	StreamBuffer       int    `yaml:"stream_buffer"`
	BandLimitReference bool   `yaml:"band_limit_reference"`
	TempDir            string `yaml:"temp_dir"`
}

func Default() Config {
	return Config{
		ServiceName: "vaani-core",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Voices: VoicesConfig{
			DatabasePath: "./data/vaani-voices.db",
			AudioDir:     "./data/voices",
		},
		Synth: SynthConfig{
			Mode:       "mock",
			SampleRate: 22050,
			TimeoutMS:  120000,
		},
		Pipeline: PipelineConfig{
			CleanupProfile:     "standard",
			StreamProfile:      "minimal",
			ChunkPauseMS:       20,
			StreamBuffer:       4,
			BandLimitReference: true,
			TempDir:            "",
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServiceName, "VAANI_SERVICE_NAME")
	overrideString(&cfg.Environment, "VAANI_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "VAANI_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "VAANI_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "VAANI_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "VAANI_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "VAANI_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "VAANI_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Embedded, "VAANI_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "VAANI_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "VAANI_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "VAANI_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "VAANI_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "VAANI_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "VAANI_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "VAANI_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "VAANI_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Voices.DatabasePath, "VAANI_VOICES_DATABASE_PATH")
	overrideString(&cfg.Voices.AudioDir, "VAANI_VOICES_AUDIO_DIR")
	overrideBool(&cfg.Voices.VacuumOnStart, "VAANI_VOICES_VACUUM_ON_START")
	overrideString(&cfg.Synth.Mode, "VAANI_SYNTH_MODE")
	overrideString(&cfg.Synth.Command, "VAANI_SYNTH_COMMAND")
	overrideInt(&cfg.Synth.SampleRate, "VAANI_SYNTH_SAMPLE_RATE")
	overrideInt(&cfg.Synth.TimeoutMS, "VAANI_SYNTH_TIMEOUT_MS")
	overrideString(&cfg.Pipeline.CleanupProfile, "VAANI_PIPELINE_CLEANUP_PROFILE")
	overrideString(&cfg.Pipeline.StreamProfile, "VAANI_PIPELINE_STREAM_CLEANUP_PROFILE")
	overrideInt(&cfg.Pipeline.ChunkPauseMS, "VAANI_PIPELINE_CHUNK_PAUSE_MS")
	overrideInt(&cfg.Pipeline.StreamBuffer, "VAANI_PIPELINE_STREAM_BUFFER")
	overrideBool(&cfg.Pipeline.BandLimitReference, "VAANI_PIPELINE_BAND_LIMIT_REFERENCE")
	overrideString(&cfg.Pipeline.TempDir, "VAANI_PIPELINE_TEMP_DIR")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	if cfg.Voices.DatabasePath == "" {
		return errors.New("voices.database_path must not be empty")
	}
	if cfg.Voices.AudioDir == "" {
		return errors.New("voices.audio_dir must not be empty")
	}
	switch cfg.Synth.Mode {
	case "mock", "exec":
	default:
		return errors.New("synth.mode must be one of mock|exec")
	}
	if cfg.Synth.Mode == "exec" && cfg.Synth.Command == "" {
		return errors.New("synth.command must be set when mode=exec")
	}
	if cfg.Synth.SampleRate <= 0 {
		return errors.New("synth.sample_rate must be positive")
	}
	switch cfg.Pipeline.CleanupProfile {
	case "standard", "minimal":
	default:
		return errors.New("pipeline.cleanup_profile must be one of standard|minimal")
	}
	switch cfg.Pipeline.StreamProfile {
	case "standard", "minimal":
	default:
		return errors.New("pipeline.stream_cleanup_profile must be one of standard|minimal")
	}
	if cfg.Pipeline.ChunkPauseMS < 0 {
		return errors.New("pipeline.chunk_pause_ms must be >= 0")
	}
	if cfg.Pipeline.StreamBuffer <= 0 {
		return errors.New("pipeline.stream_buffer must be >= 1")
	}
	return nil
}
