package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/robustfetch/pkg/retry"
)

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_FETCH_HOST", "files.example.com")

	path := filepath.Join(t.TempDir(), "jobs.yaml")
	content := `
jobs:
  - name: report
    url: https://${TEST_FETCH_HOST}/report.pdf
    output: report.pdf
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Jobs, 1)
	assert.Equal(t, "https://files.example.com/report.pdf", cfg.Jobs[0].URL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`
jobs:
  - url: http://example.com/
`))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "none", cfg.Retry.Backoff)
	assert.Equal(t, 1, cfg.Batch.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "robustfetch/1.0", cfg.HTTP.UserAgent)
	assert.Nil(t, cfg.Retry.BackoffStrategy())

	job := cfg.Jobs[0]
	assert.Equal(t, "http://example.com/", job.DisplayName())
	assert.Equal(t, 3, job.Budget())
}

func TestParse_FullFile(t *testing.T) {
	cfg, err := Parse([]byte(`
logging:
  level: debug
  format: json
retry:
  backoff: exponential
  initial_delay: 100ms
  multiplier: 3
  max_delay: 2s
batch:
  concurrency: 4
  requests_per_second: 2.5
  burst: 2
http:
  timeout: 5s
  user_agent: test-agent
metrics:
  listen: ":9090"
jobs:
  - name: home
    url: http://example.com/
    retry_budget: 7
`))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, 2.5, cfg.Batch.RequestsPerSecond)
	assert.Equal(t, ":9090", cfg.Metrics.Listen)
	assert.Equal(t, 7, cfg.Jobs[0].Budget())
	assert.Equal(t, "home", cfg.Jobs[0].DisplayName())

	transport := cfg.HTTP.TransportConfig()
	assert.Equal(t, 5*time.Second, transport.Timeout)
	assert.Equal(t, "test-agent", transport.UserAgent)
	assert.True(t, transport.FollowRedirects)

	backoff := cfg.Retry.BackoffStrategy()
	require.IsType(t, &retry.ExponentialBackoff{}, backoff)
	assert.Equal(t, 100*time.Millisecond, backoff.NextDelay(1))
	assert.Equal(t, 300*time.Millisecond, backoff.NextDelay(2))
	assert.Equal(t, 2*time.Second, backoff.NextDelay(10))
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "no jobs",
			content: "logging:\n  level: info\n",
			want:    "Jobs",
		},
		{
			name:    "bad url",
			content: "jobs:\n  - url: not a url\n",
			want:    "Jobs[0].URL must be a valid URL",
		},
		{
			name:    "unknown backoff",
			content: "retry:\n  backoff: random\njobs:\n  - url: http://example.com/\n",
			want:    "Retry.Backoff must be one of",
		},
		{
			name:    "negative budget",
			content: "jobs:\n  - url: http://example.com/\n    retry_budget: -1\n",
			want:    "Jobs[0].RetryBudget must be at least 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			require.Error(t, err)

			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("jobs:\n  - url: http://example.com/\n    retries: 4\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}
