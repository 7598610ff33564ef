package config

import (
	"os"
	"strconv"
)

type Config struct {
	API       APIConfig
	Limits    LimitsConfig
	Blend     BlendConfig
	Plugin    PluginConfig
	Telemetry TelemetryConfig
	Batch     BatchConfig
}

type APIConfig struct {
	Addr string
}

type LimitsConfig struct {
	MinFiles  int
	MaxFiles  int
	MaxFileMB int
	Workspace string
}

// MaxFileBytes is the per-file upload ceiling in bytes.
func (l LimitsConfig) MaxFileBytes() int64 {
	return int64(l.MaxFileMB) << 20
}

// MaxRequestBytes caps the whole multipart body: every file at the ceiling
// plus slack for part headers and form fields.
func (l LimitsConfig) MaxRequestBytes() int64 {
	return int64(l.MaxFiles)*l.MaxFileBytes() + (1 << 20)
}

type BlendConfig struct {
	Strategy string
}

type PluginConfig struct {
	Command string
}

type TelemetryConfig struct {
	ServiceName  string
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
}

type BatchConfig struct {
	InputDir   string
	OutputFile string
}

func Load() Config {
	return Config{
		API: APIConfig{
			Addr: env("BLENDFLOW_API_ADDR", ":8080"),
		},
		Limits: LimitsConfig{
			MinFiles:  envInt("BLENDFLOW_MIN_FILES", 2),
			MaxFiles:  envInt("BLENDFLOW_MAX_FILES", 15),
			MaxFileMB: envInt("BLENDFLOW_MAX_FILE_MB", 4),
			Workspace: env("BLENDFLOW_WORKSPACE_DIR", os.TempDir()),
		},
		Blend: BlendConfig{
			Strategy: env("BLENDFLOW_BLEND_STRATEGY", "mean"),
		},
		Plugin: PluginConfig{
			Command: env("BLENDFLOW_PLUGIN_CMD", ""),
		},
		Telemetry: TelemetryConfig{
			ServiceName:  env("BLENDFLOW_SERVICE_NAME", "blendflow"),
			Exporter:     env("BLENDFLOW_TRACE_EXPORTER", "none"),
			OTLPEndpoint: env("BLENDFLOW_OTLP_ENDPOINT", ""),
			OTLPInsecure: envBool("BLENDFLOW_OTLP_INSECURE", false),
		},
		Batch: BatchConfig{
			InputDir:   env("BLENDFLOW_BATCH_INPUT_DIR", "images"),
			OutputFile: env("BLENDFLOW_BATCH_OUTPUT", "blended.png"),
		},
	}
}

func env(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
