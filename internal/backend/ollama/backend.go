package ollama

import (
	"net"
	"strconv"

	"github.com/ekisa-team/inferworker/internal/backend"
	"github.com/ekisa-team/inferworker/internal/config"
)

// Backend implements backend.Backend for Ollama.
type Backend struct{}

// NewBackend creates a new Ollama backend.
func NewBackend() *Backend {
	return &Backend{}
}

// Provider returns the backend provider.
func (b *Backend) Provider() backend.Provider {
	return backend.ProviderOllama
}

// Label names the API in error messages.
func (b *Backend) Label() string {
	return "Ollama API"
}

// ServerConfig builds the `ollama serve` invocation. Ollama takes its bind
// address and tuning knobs from the environment rather than flags.
func (b *Backend) ServerConfig(cfg *config.Config) backend.ServerConfig {
	env := map[string]string{
		"OLLAMA_HOST": net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
	}
	if cfg.Server.MaxModelLen > 0 {
		env["OLLAMA_CONTEXT_LENGTH"] = strconv.Itoa(cfg.Server.MaxModelLen)
	}
	for k, v := range cfg.Server.Env {
		env[k] = v
	}

	args := append([]string{"serve"}, cfg.Server.ExtraArgs...)

	return backend.ServerConfig{
		Name:         string(b.Provider()),
		BinPath:      cfg.Server.BinPath,
		Args:         args,
		Env:          env,
		HealthURL:    cfg.Server.HealthURL(),
		LogFile:      cfg.Server.LogFile,
		Policy:       cfg.Server.StartupPolicy,
		MaxAttempts:  cfg.Server.MaxAttempts,
		PollInterval: cfg.Server.PollInterval,
	}
}

// CompletionPath returns the generate endpoint.
func (b *Backend) CompletionPath() string {
	return "/api/generate"
}

// ChatPath returns the chat endpoint.
func (b *Backend) ChatPath() string {
	return "/api/chat"
}

// SupportsSampling is false: Ollama takes sampling options under "options",
// which jobs do not carry.
func (b *Backend) SupportsSampling() bool {
	return false
}

// PullArgs returns `pull <model>`.
func (b *Backend) PullArgs(model string) []string {
	return []string{"pull", model}
}

// PullEnv points the ollama client at the supervised server. A wildcard bind
// address is dialed on loopback.
func (b *Backend) PullEnv(cfg *config.Config) map[string]string {
	host := cfg.Server.Host
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}

	env := map[string]string{
		"OLLAMA_HOST": net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port)),
	}
	for k, v := range cfg.Server.Env {
		env[k] = v
	}

	return env
}
