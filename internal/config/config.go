// Package config loads robustfetch job files.
package config

import (
	"time"

	"github.com/jzx17/robustfetch/pkg/fetch"
	"github.com/jzx17/robustfetch/pkg/retry"
)

// JobFile is the top-level structure of a job file
type JobFile struct {
	Logging LoggingConfig `yaml:"logging"`
	Retry   RetryConfig   `yaml:"retry"`
	Batch   BatchConfig   `yaml:"batch"`
	HTTP    HTTPConfig    `yaml:"http"`
	Metrics MetricsConfig `yaml:"metrics"`
	Jobs    []Job         `yaml:"jobs" validate:"required,min=1,dive"`
}

// LoggingConfig selects the log level and format
type LoggingConfig struct {
	Level  string `yaml:"level"  validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// RetryConfig configures the retry driver
type RetryConfig struct {
	Backoff      string        `yaml:"backoff"       validate:"oneof=none fixed exponential linear"`
	InitialDelay time.Duration `yaml:"initial_delay" validate:"gte=0"`
	Increment    time.Duration `yaml:"increment"     validate:"gte=0"` // linear only
	Multiplier   float64       `yaml:"multiplier"    validate:"omitempty,gte=1"`
	MaxDelay     time.Duration `yaml:"max_delay"     validate:"gte=0"`
	Jitter       string        `yaml:"jitter"        validate:"oneof=none full equal"`

	// DisableRepair turns off locator repair after malformed redirects
	DisableRepair bool `yaml:"disable_repair"`
}

// BatchConfig configures the batch runner
type BatchConfig struct {
	Concurrency       int     `yaml:"concurrency"         validate:"gte=1"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst"               validate:"gte=0"`
}

// HTTPConfig configures the HTTP transport
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"    validate:"gt=0"`
	UserAgent string        `yaml:"user_agent" validate:"required"`
}

// MetricsConfig configures the Prometheus endpoint; empty Listen disables it
type MetricsConfig struct {
	Listen string `yaml:"listen" validate:"omitempty,hostname_port"`
}

// Job is one item to fetch. Jobs without an output are fetched as pages.
type Job struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"          validate:"required,url"`
	Output      string `yaml:"output"`
	RetryBudget int    `yaml:"retry_budget" validate:"gte=0"`
}

// DisplayName returns the job name, falling back to its URL
func (j Job) DisplayName() string {
	if j.Name != "" {
		return j.Name
	}
	return j.URL
}

// Budget returns the job's retry budget; zero means the default
func (j Job) Budget() int {
	if j.RetryBudget == 0 {
		return fetch.DefaultRetryBudget
	}
	return j.RetryBudget
}

// BackoffStrategy builds the configured backoff; nil means retry immediately
func (r RetryConfig) BackoffStrategy() retry.BackoffStrategy {
	var opts []retry.BackoffOption
	if r.MaxDelay > 0 {
		opts = append(opts, retry.WithBackoffMaxDelay(r.MaxDelay))
	}
	switch r.Jitter {
	case "full":
		opts = append(opts, retry.WithBackoffJitter(retry.FullJitter))
	case "equal":
		opts = append(opts, retry.WithBackoffJitter(retry.EqualJitter))
	}

	switch r.Backoff {
	case "fixed":
		return retry.NewFixedBackoff(r.InitialDelay, opts...)
	case "exponential":
		if r.Multiplier > 0 {
			opts = append(opts, retry.WithBackoffMultiplier(r.Multiplier))
		}
		return retry.NewExponentialBackoff(r.InitialDelay, opts...)
	case "linear":
		return retry.NewLinearBackoff(r.InitialDelay, r.Increment, opts...)
	default:
		return nil
	}
}

// TransportConfig converts the HTTP section for fetch.NewTransport
func (h HTTPConfig) TransportConfig() *fetch.TransportConfig {
	return &fetch.TransportConfig{
		Timeout:         h.Timeout,
		FollowRedirects: true,
		UserAgent:       h.UserAgent,
	}
}
