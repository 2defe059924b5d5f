// Package config loads Mentor settings from a YAML file, a .env file and
// MENTOR_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aretw0/mentor/pkg/domain"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces the environment overrides.
// MENTOR_SERVICE_BASE_URL sets service.base_url.
const EnvPrefix = "MENTOR_"

// Config is the full application configuration.
type Config struct {
	Service  ServiceConfig     `mapstructure:"service"`
	Server   ServerConfig      `mapstructure:"server"`
	Log      LogConfig         `mapstructure:"log"`
	Messages map[string]string `mapstructure:"messages"`
}

// ServiceConfig points at the remote learning-analytics service.
type ServiceConfig struct {
	BaseURL   string        `mapstructure:"base_url" validate:"omitempty,url"`
	Token     string        `mapstructure:"token"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gte=0"`
	RateLimit float64       `mapstructure:"rate_limit" validate:"gte=0"`
	Burst     int           `mapstructure:"burst" validate:"gte=0"`
}

// ServerConfig configures `mentor serve`.
type ServerConfig struct {
	Addr        string        `mapstructure:"addr" validate:"required"`
	RedisURL    string        `mapstructure:"redis_url" validate:"omitempty,url"`
	RedisPrefix string        `mapstructure:"redis_prefix"`
	SessionTTL  time.Duration `mapstructure:"session_ttl" validate:"gte=0"`
	LockTTL     time.Duration `mapstructure:"lock_ttl" validate:"gte=0"`
	// SnapshotKeys are base64 AES-256 keys sealing stored snapshots.
	// The first key encrypts; the rest only decrypt.
	SnapshotKeys []string `mapstructure:"snapshot_keys" validate:"dive,base64"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json"`
}

type loader struct {
	envFile string
	environ func() []string
}

// Option configures Load.
type Option func(*loader)

// WithEnvFile reads additional variables from a dotenv file. A missing file is ignored.
func WithEnvFile(path string) Option {
	return func(l *loader) {
		l.envFile = path
	}
}

// WithEnviron replaces os.Environ as the source of environment variables.
func WithEnviron(environ func() []string) Option {
	return func(l *loader) {
		l.environ = environ
	}
}

func defaults() map[string]any {
	return map[string]any{
		"service": map[string]any{
			"timeout": "30s",
		},
		"server": map[string]any{
			"addr":         ":8080",
			"redis_prefix": "mentor:session:",
			"lock_ttl":     "30s",
		},
		"log": map[string]any{
			"level":  "info",
			"format": "text",
		},
	}
}

// Load builds the configuration. An empty path skips the YAML file.
func Load(path string, opts ...Option) (*Config, error) {
	l := &loader{environ: os.Environ}
	for _, opt := range opts {
		opt(l)
	}

	raw := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		var file map[string]any
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		merge(raw, file)
	}

	env, err := l.env()
	if err != nil {
		return nil, err
	}
	merge(raw, env)

	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and the pacing message keys.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.PacingMessages(); err != nil {
		return err
	}
	return nil
}

// PacingMessages returns the closing recommendations keyed by pacing band.
func (c *Config) PacingMessages() (map[domain.PacingBand]string, error) {
	if len(c.Messages) == 0 {
		return nil, nil
	}
	out := make(map[domain.PacingBand]string, len(c.Messages))
	for k, v := range c.Messages {
		band := domain.PacingBand(strings.ToLower(k))
		if domain.ParsePacingBand(k) != band {
			return nil, fmt.Errorf("invalid config: unknown pacing band %q in messages", k)
		}
		out[band] = v
	}
	return out, nil
}

// env collects MENTOR_* variables from the dotenv file and the process.
// Process variables win.
func (l *loader) env() (map[string]any, error) {
	vars := map[string]string{}
	if l.envFile != "" {
		fileVars, err := godotenv.Read(l.envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", l.envFile, err)
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}
	for _, kv := range l.environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}

	out := map[string]any{}
	for k, v := range vars {
		rest, ok := strings.CutPrefix(k, EnvPrefix)
		if !ok {
			continue
		}
		section, key, ok := strings.Cut(strings.ToLower(rest), "_")
		if !ok || key == "" {
			continue
		}
		sub, _ := out[section].(map[string]any)
		if sub == nil {
			sub = map[string]any{}
			out[section] = sub
		}
		sub[key] = v
	}
	return out, nil
}

// merge copies src into dst, descending into nested maps.
func merge(dst, src map[string]any) {
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			merge(dstMap, srcMap)
			continue
		}
		dst[k] = v
	}
}
