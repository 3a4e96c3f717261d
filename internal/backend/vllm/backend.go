package vllm

import (
	"fmt"
	"strconv"

	"github.com/ekisa-team/inferworker/internal/backend"
	"github.com/ekisa-team/inferworker/internal/config"
)

// Backend implements backend.Backend for vLLM's OpenAI-compatible server.
type Backend struct{}

// NewBackend creates a new vLLM backend.
func NewBackend() *Backend {
	return &Backend{}
}

// Provider returns the backend provider.
func (b *Backend) Provider() backend.Provider {
	return backend.ProviderVLLM
}

// Label names the API in error messages.
func (b *Backend) Label() string {
	return "vLLM API"
}

// ServerConfig builds the api_server invocation for the configured model.
func (b *Backend) ServerConfig(cfg *config.Config) backend.ServerConfig {
	return backend.ServerConfig{
		Name:         string(b.Provider()),
		BinPath:      cfg.Server.BinPath,
		Args:         b.buildArgs(cfg),
		Env:          cfg.Server.Env,
		HealthURL:    cfg.Server.HealthURL(),
		LogFile:      cfg.Server.LogFile,
		Policy:       cfg.Server.StartupPolicy,
		MaxAttempts:  cfg.Server.MaxAttempts,
		PollInterval: cfg.Server.PollInterval,
	}
}

// buildArgs builds vLLM command-line arguments.
func (b *Backend) buildArgs(cfg *config.Config) []string {
	s := cfg.Server

	args := []string{
		"-m", "vllm.entrypoints.openai.api_server",
		"--host", s.Host,
		"--port", strconv.Itoa(s.Port),
		"--model", cfg.Model.Default,
	}

	if s.DType != "" {
		args = append(args, "--dtype", s.DType)
	}
	if s.MaxModelLen > 0 {
		args = append(args, "--max-model-len", strconv.Itoa(s.MaxModelLen))
	}
	if s.GPUMemoryUtilization > 0 {
		args = append(args, "--gpu-memory-utilization", fmt.Sprintf("%.2f", s.GPUMemoryUtilization))
	}

	return append(args, s.ExtraArgs...)
}

// CompletionPath returns the OpenAI completions endpoint.
func (b *Backend) CompletionPath() string {
	return "/v1/completions"
}

// ChatPath returns the OpenAI chat completions endpoint.
func (b *Backend) ChatPath() string {
	return "/v1/chat/completions"
}

// SupportsSampling is true: max_tokens and temperature are top-level fields.
func (b *Backend) SupportsSampling() bool {
	return true
}

// PullArgs returns nil; vLLM downloads weights on startup.
func (b *Backend) PullArgs(string) []string {
	return nil
}

// PullEnv returns nil; there is no pull command.
func (b *Backend) PullEnv(*config.Config) map[string]string {
	return nil
}
