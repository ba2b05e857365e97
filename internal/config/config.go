package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	DataDir              string         `json:"dataDir" yaml:"dataDir" toml:"dataDir"`
	HTTPAddr             string         `json:"httpAddr" yaml:"httpAddr" toml:"httpAddr"`
	GRPCAddr             string         `json:"grpcAddr" yaml:"grpcAddr" toml:"grpcAddr"`
	Fsync                string         `json:"fsync" yaml:"fsync" toml:"fsync"`
	FsyncIntervalMs      int            `json:"fsyncIntervalMs" yaml:"fsyncIntervalMs" toml:"fsyncIntervalMs"`
	LogLevel             string         `json:"logLevel" yaml:"logLevel" toml:"logLevel"`
	LogFormat            string         `json:"logFormat" yaml:"logFormat" toml:"logFormat"`
	DefaultNamespaceName string         `json:"defaultNamespaceName" yaml:"defaultNamespaceName" toml:"defaultNamespaceName"`
	RecordDefaults       RecordDefaults `json:"recordDefaults" yaml:"recordDefaults" toml:"recordDefaults"`
}

// RecordDefaults captures per-namespace baseline limits.
type RecordDefaults struct {
	TextMaxBytes    int   `json:"textMaxBytes" yaml:"textMaxBytes" toml:"textMaxBytes"`
	ResultsRetainMs int64 `json:"resultsRetainMs" yaml:"resultsRetainMs" toml:"resultsRetainMs"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		HTTPAddr:             ":8080",
		GRPCAddr:             ":50051",
		Fsync:                "always",
		FsyncIntervalMs:      5,
		LogLevel:             "info",
		LogFormat:            "text",
		DefaultNamespaceName: "default",
		RecordDefaults: RecordDefaults{
			TextMaxBytes:    1 << 20,
			ResultsRetainMs: int64(24 * time.Hour / time.Millisecond),
		},
	}
}

// Load reads configuration from a JSON, YAML, or TOML file (by extension).
// If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return cfg, nil
}
