package config

import (
	"os"
	"strconv"
)

// FromEnv overlays CLEAVE_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("CLEAVE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("CLEAVE_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("CLEAVE_GRPC_ADDR"); v != "" {
		cfg.GRPCAddr = v
	}
	if v := os.Getenv("CLEAVE_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	if v := os.Getenv("CLEAVE_FSYNC_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FsyncIntervalMs = n
		}
	}
	if v := os.Getenv("CLEAVE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CLEAVE_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("CLEAVE_DEFAULT_NAMESPACE"); v != "" {
		cfg.DefaultNamespaceName = v
	}
	if v := os.Getenv("CLEAVE_TEXT_MAX_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RecordDefaults.TextMaxBytes = n
		}
	}
	if v := os.Getenv("CLEAVE_RESULTS_RETAIN_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.RecordDefaults.ResultsRetainMs = n
		}
	}
}
