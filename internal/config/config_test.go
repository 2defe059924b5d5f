package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/mentor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv() []string { return nil }

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", WithEnviron(noEnv))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Service.Timeout)
	assert.Equal(t, "mentor:session:", cfg.Server.RedisPrefix)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_FileEnvPrecedence(t *testing.T) {
	path := writeFile(t, "mentor.yaml", `
service:
  base_url: https://learn.example.com
  timeout: 5s
  rate_limit: 2
server:
  addr: ":9000"
  session_ttl: 1h
log:
  level: debug
messages:
  speed_up: "Keep going!"
`)
	dotenv := writeFile(t, ".env", "MENTOR_SERVICE_TOKEN=from-dotenv\nMENTOR_LOG_FORMAT=json\n")
	environ := func() []string {
		return []string{"MENTOR_SERVER_ADDR=:7000", "MENTOR_LOG_FORMAT=text", "HOME=/root"}
	}

	cfg, err := Load(path, WithEnvFile(dotenv), WithEnviron(environ))
	require.NoError(t, err)
	assert.Equal(t, "https://learn.example.com", cfg.Service.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Service.Timeout)
	assert.Equal(t, 2.0, cfg.Service.RateLimit)
	assert.Equal(t, "from-dotenv", cfg.Service.Token)
	assert.Equal(t, ":7000", cfg.Server.Addr, "process env wins over the file")
	assert.Equal(t, "text", cfg.Log.Format, "process env wins over dotenv")
	assert.Equal(t, time.Hour, cfg.Server.SessionTTL)
	assert.Equal(t, "debug", cfg.Log.Level)

	msgs, err := cfg.PacingMessages()
	require.NoError(t, err)
	assert.Equal(t, map[domain.PacingBand]string{domain.PacingSpeedUp: "Keep going!"}, msgs)
}

func TestLoad_EnvIsWeaklyTyped(t *testing.T) {
	environ := func() []string {
		return []string{
			"MENTOR_SERVICE_RATE_LIMIT=7.5",
			"MENTOR_SERVICE_BURST=3",
			"MENTOR_SERVER_LOCK_TTL=2s",
			"MENTOR_SERVER_SNAPSHOT_KEYS=c2VjcmV0",
		}
	}
	cfg, err := Load("", WithEnviron(environ))
	require.NoError(t, err)
	assert.Equal(t, []string{"c2VjcmV0"}, cfg.Server.SnapshotKeys)
	assert.Equal(t, 7.5, cfg.Service.RateLimit)
	assert.Equal(t, 3, cfg.Service.Burst)
	assert.Equal(t, 2*time.Second, cfg.Server.LockTTL)
}

func TestLoad_MissingDotEnvIsIgnored(t *testing.T) {
	_, err := Load("", WithEnvFile(filepath.Join(t.TempDir(), "absent.env")), WithEnviron(noEnv))
	assert.NoError(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		environ []string
	}{
		{"bad level", "log:\n  level: loud\n", nil},
		{"bad format", "log:\n  format: xml\n", nil},
		{"bad url", "service:\n  base_url: not a url\n", nil},
		{"negative rate", "", []string{"MENTOR_SERVICE_RATE_LIMIT=-1"}},
		{"bad duration", "service:\n  timeout: soon\n", nil},
		{"unknown band", "messages:\n  warp_speed: hi\n", nil},
		{"empty addr", "", []string{"MENTOR_SERVER_ADDR="}},
		{"broken yaml", "service: [", nil},
		{"bad snapshot key", "server:\n  snapshot_keys: [\"not base64!\"]\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "mentor.yaml", tt.yaml)
			_, err := Load(path, WithEnviron(func() []string { return tt.environ }))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), WithEnviron(noEnv))
	assert.Error(t, err)
}
