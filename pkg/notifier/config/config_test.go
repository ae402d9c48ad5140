package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/strongdm/diag-notifier/pkg/notifier"
	"github.com/strongdm/diag-notifier/pkg/notifier/senders/blocking"
)

const testToken = "ad865e76e7fb496fab096ac07b1dbabb"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notifier.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Notifier.Environment)
	assert.True(t, cfg.Notifier.Batched)
	assert.Equal(t, notifier.DefaultBatchSize, cfg.Notifier.BatchSize)
	assert.Equal(t, "blocking", cfg.Notifier.Handler)
	assert.Equal(t, notifier.DefaultScrubFields, cfg.Notifier.ScrubFields)
	assert.True(t, cfg.Notifier.CaptureErrorBacktraces)
	assert.Equal(t, blocking.DefaultEndpoint, cfg.Blocking.Endpoint)
	assert.Equal(t, blocking.DefaultTimeout, cfg.Blocking.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("TEST_NOTIFIER_TOKEN", testToken)
	path := writeConfig(t, `
notifier:
  access_token: ${TEST_NOTIFIER_TOKEN}
  environment: staging
  root: /srv/app
  branch: main
  batched: false
  batch_size: 10
  scrub_fields:
    - password
    - /token|secret/i
blocking:
  endpoint: https://collector.internal/api/1/
  timeout: 5s
  gzip: true
logging:
  level: debug
  format: console
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, testToken, cfg.Notifier.AccessToken)
	assert.Equal(t, "staging", cfg.Notifier.Environment)
	assert.Equal(t, "/srv/app", cfg.Notifier.Root)
	assert.Equal(t, "main", cfg.Notifier.Branch)
	assert.False(t, cfg.Notifier.Batched)
	assert.Equal(t, 10, cfg.Notifier.BatchSize)
	assert.Equal(t, []string{"password", "/token|secret/i"}, cfg.Notifier.ScrubFields)
	assert.Equal(t, "https://collector.internal/api/1/", cfg.Blocking.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.Blocking.Timeout)
	assert.True(t, cfg.Blocking.Gzip)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_ExpandsOnlyBracedReferences(t *testing.T) {
	t.Setenv("id", "leaked")
	t.Setenv("TEST_NOTIFIER_ENV", "")
	path := writeConfig(t, `
notifier:
  environment: ${TEST_NOTIFIER_ENV:-staging}
  scrub_fields:
    - /^session$id$/
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Notifier.Environment)
	assert.Equal(t, []string{"/^session$id$/"}, cfg.Notifier.ScrubFields)
}

func TestLoad_RequiredReferenceMissing(t *testing.T) {
	t.Setenv("TEST_NOTIFIER_TOKEN", "")
	path := writeConfig(t, "notifier:\n  access_token: ${TEST_NOTIFIER_TOKEN:?token is required}\n")

	_, err := Load(path)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrParsing, cfgErr.Type)
	assert.Contains(t, err.Error(), "token is required")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NOTIFIER_ACCESS_TOKEN", testToken)
	t.Setenv("NOTIFIER_ENVIRONMENT", "qa")
	t.Setenv("NOTIFIER_NOTIFIER_BATCH_SIZE", "7")
	t.Setenv("NOTIFIER_BLOCKING_GZIP", "true")
	path := writeConfig(t, `
notifier:
  environment: staging
  batch_size: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, testToken, cfg.Notifier.AccessToken)
	assert.Equal(t, "qa", cfg.Notifier.Environment)
	assert.Equal(t, 7, cfg.Notifier.BatchSize)
	assert.True(t, cfg.Blocking.Gzip)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantType ConfigErrorType
	}{
		{"malformed yaml", "notifier: [", ErrParsing},
		{"unknown handler", "notifier:\n  handler: carrier-pigeon\n", ErrValidation},
		{"zero batch size", "notifier:\n  batch_size: 0\n", ErrValidation},
		{"bad endpoint", "blocking:\n  endpoint: not a url\n", ErrValidation},
		{"agent without dir", "notifier:\n  handler: agent\n", ErrValidation},
		{"bad log level", "logging:\n  level: loud\n", ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "expected *ConfigError, got %T", err)
			assert.Equal(t, tt.wantType, cfgErr.Type)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrReading, cfgErr.Type)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Type: ErrValidation, Message: "bad"}
	assert.Equal(t, "[VALIDATION_FAILED] bad", err.Error())

	wrapped := &ConfigError{Type: ErrParsing, Message: "bad", Err: errors.New("cause")}
	assert.Equal(t, "[PARSING_FAILED] bad: cause", wrapped.Error())
}

func TestBuild_Agent(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
notifier:
  access_token: `+testToken+`
  handler: agent
  batched: false
agent:
  dir: `+dir+`
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	n, err := Build(cfg, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	id := n.ReportMessage(ctx, "hello", notifier.LevelInfo, nil, nil)
	require.NotEmpty(t, id)
	n.Close(ctx)

	files, err := filepath.Glob(filepath.Join(dir, "*.rollbar"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), id)
}

func TestBuild_Blocking(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Notifier.AccessToken = testToken

	n, err := Build(cfg, nil)
	require.NoError(t, err)
	assert.False(t, n.Disabled())
	assert.Equal(t, "production", n.Environment())
}

func TestBuild_InvalidTokenDisables(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Notifier.AccessToken = "not-a-token"

	n, err := Build(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, n.Disabled())
}

func TestNewSender_AgentDirError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Notifier.Handler = "agent"
	cfg.Agent.Dir = filepath.Join(file, "relay")

	_, err = NewSender(cfg, zap.NewNop())
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrSender, cfgErr.Type)
}

func TestNewSender_Debug(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Debug = true

	sender, err := NewSender(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, sender)
	assert.NoError(t, sender.Close())
}
