package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/toolcache/cache"
	"github.com/jonwraymond/toolcache/observe"
	"github.com/jonwraymond/toolcache/secret"
)

// Environment overrides applied after the file is decoded.
const (
	EnvStorePath = "TOOLCACHE_STORE_PATH"
	EnvLogLevel  = "TOOLCACHE_LOG_LEVEL"
)

// Store kinds.
const (
	KindUnconstrained = "unconstrained"
	KindSliding       = "sliding"
	KindFile          = "file"
)

// File is the top-level configuration document.
type File struct {
	Store     StoreConfig    `yaml:"store"`
	Log       LogConfig      `yaml:"log"`
	Telemetry observe.Config `yaml:"telemetry"`
}

// StoreConfig selects and sizes a cache store.
type StoreConfig struct {
	// Kind is unconstrained, sliding or file. Default: unconstrained.
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`

	// Size, TTL and CleanupInterval apply to sliding stores, including a
	// sliding file backend.
	Size            int           `yaml:"size"`
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	// Path and Backend apply to file stores. Backend is unconstrained
	// (default) or sliding.
	Path    string `yaml:"path"`
	Backend string `yaml:"backend"`
	Indent  bool   `yaml:"indent"`

	Disabled bool `yaml:"disabled"`
}

// LogConfig configures the zap-backed logger.
type LogConfig struct {
	// Level is debug, info, warn or error. Default: info.
	Level string `yaml:"level"`
}

// Load reads and decodes path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML document. Unknown fields are rejected.
func Parse(data []byte) (*File, error) {
	expanded, err := secret.ExpandEnvStrict(string(data))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	f := Default()
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	f.applyEnv()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Default returns the built-in configuration.
func Default() *File {
	return &File{
		Store: StoreConfig{Kind: KindUnconstrained},
		Log:   LogConfig{Level: "info"},
	}
}

func (f *File) applyEnv() {
	if v, ok := os.LookupEnv(EnvStorePath); ok && v != "" {
		f.Store.Path = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		f.Log.Level = v
	}
}

// Validate checks the store section and, when configured, telemetry.
func (f *File) Validate() error {
	if err := f.Store.Validate(); err != nil {
		return err
	}
	switch strings.ToLower(f.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log level %q", cache.ErrInvalidConfig, f.Log.Level)
	}
	if f.Telemetry.ServiceName != "" {
		if err := f.Telemetry.Validate(); err != nil {
			return fmt.Errorf("config: telemetry: %w", err)
		}
	}
	return nil
}

// Validate checks that the kind is known and its required fields are set.
func (s StoreConfig) Validate() error {
	switch s.kind() {
	case KindUnconstrained:
		return nil
	case KindSliding:
		return s.sliding().Validate()
	case KindFile:
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("%w: file store needs a path", cache.ErrInvalidPath)
		}
		switch s.Backend {
		case "", KindUnconstrained:
			return nil
		case KindSliding:
			return s.sliding().Validate()
		default:
			return fmt.Errorf("%w: unknown file backend %q", cache.ErrInvalidConfig, s.Backend)
		}
	default:
		return fmt.Errorf("%w: unknown store kind %q", cache.ErrInvalidConfig, s.Kind)
	}
}

func (s StoreConfig) kind() string {
	if s.Kind == "" {
		return KindUnconstrained
	}
	return strings.ToLower(s.Kind)
}

func (s StoreConfig) sliding() cache.SlidingConfig {
	return cache.SlidingConfig{Size: s.Size, TTL: s.TTL, CleanupInterval: s.CleanupInterval}
}
