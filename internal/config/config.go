package config

import (
	"fmt"
	"time"
)

// StartupPolicy decides what happens when the backend never becomes ready.
type StartupPolicy string

const (
	// StartupPolicyFatal aborts worker initialization.
	StartupPolicyFatal StartupPolicy = "fatal"
	// StartupPolicyDegraded logs a warning and keeps serving; jobs fail individually.
	StartupPolicyDegraded StartupPolicy = "degraded"
)

// Config holds the deployment profile for one worker.
type Config struct {
	Version string        `json:"version"           yaml:"version"`
	Backend string        `json:"backend"           yaml:"backend"`
	Server  ServerConfig  `json:"server"            yaml:"server"`
	Model   ModelConfig   `json:"model"             yaml:"model"`
	Request RequestConfig `json:"request"           yaml:"request"`
	Runtime RuntimeConfig `json:"runtime,omitempty" yaml:"runtime,omitempty"`
}

// ServerConfig describes how the backend server process is launched and probed.
type ServerConfig struct {
	Env                  map[string]string `json:"env,omitempty"                    yaml:"env,omitempty"`
	BinPath              string            `json:"bin_path"                         yaml:"bin_path"`
	Host                 string            `json:"host"                             yaml:"host"`
	HealthPath           string            `json:"health_path"                      yaml:"health_path"`
	LogFile              string            `json:"log_file"                         yaml:"log_file"`
	DType                string            `json:"dtype,omitempty"                  yaml:"dtype,omitempty"`
	StartupPolicy        StartupPolicy     `json:"startup_policy"                   yaml:"startup_policy"`
	ExtraArgs            []string          `json:"extra_args,omitempty"             yaml:"extra_args,omitempty"`
	Port                 int               `json:"port"                             yaml:"port"`
	MaxAttempts          int               `json:"max_attempts"                     yaml:"max_attempts"`
	MaxModelLen          int               `json:"max_model_len,omitempty"          yaml:"max_model_len,omitempty"`
	GPUMemoryUtilization float64           `json:"gpu_memory_utilization,omitempty" yaml:"gpu_memory_utilization,omitempty"`
	PollInterval         time.Duration     `json:"poll_interval"                    yaml:"poll_interval"`
}

// ModelConfig holds the model served by the backend.
type ModelConfig struct {
	Default     string        `json:"default"                yaml:"default"`
	Pull        bool          `json:"pull"                   yaml:"pull"`
	PullTimeout time.Duration `json:"pull_timeout,omitempty" yaml:"pull_timeout,omitempty"`
}

// RequestConfig holds per-job request settings. These are hot-reloadable.
type RequestConfig struct {
	Timeout     time.Duration `json:"timeout"     yaml:"timeout"`
	MaxTokens   int           `json:"max_tokens"  yaml:"max_tokens"`
	Temperature float64       `json:"temperature" yaml:"temperature"`
}

// RuntimeConfig holds settings for the job queue poller.
type RuntimeConfig struct {
	Concurrency  int           `json:"concurrency"   yaml:"concurrency"`
	IdleDelay    time.Duration `json:"idle_delay"    yaml:"idle_delay"`
	PingInterval time.Duration `json:"ping_interval" yaml:"ping_interval"`
}

// BaseURL returns the URL the worker uses to reach the backend.
func (s ServerConfig) BaseURL() string {
	return fmt.Sprintf("http://localhost:%d", s.Port)
}

// HealthURL returns the readiness URL of the backend.
func (s ServerConfig) HealthURL() string {
	return s.BaseURL() + s.HealthPath
}

// Validate checks invariants the schema cannot express.
func (c *Config) Validate() error {
	switch c.Server.StartupPolicy {
	case StartupPolicyFatal, StartupPolicyDegraded:
	default:
		return fmt.Errorf("%w: unknown startup policy %q", ErrInvalidConfig, c.Server.StartupPolicy)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max_attempts must be positive", ErrInvalidConfig)
	}
	if c.Request.Timeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", ErrInvalidConfig)
	}
	if c.Model.Default == "" {
		return fmt.Errorf("%w: no default model", ErrInvalidConfig)
	}

	return nil
}
