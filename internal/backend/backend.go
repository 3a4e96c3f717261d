package backend

import (
	"github.com/ekisa-team/inferworker/internal/config"
)

// Provider is a string identifier for a backend provider.
type Provider string

const (
	ProviderOllama Provider = config.BackendOllama
	ProviderVLLM   Provider = config.BackendVLLM
)

// Backend describes how to launch an inference server and which HTTP API it speaks.
type Backend interface {
	// Provider returns the backend identifier.
	Provider() Provider

	// Label names the backend API in caller-facing error messages, e.g. "Ollama API".
	Label() string

	// ServerConfig builds the launch and readiness settings for the server process.
	ServerConfig(cfg *config.Config) ServerConfig

	// CompletionPath is the raw prompt completion endpoint.
	CompletionPath() string

	// ChatPath is the chat completion endpoint.
	ChatPath() string

	// SupportsSampling reports whether chat requests carry max_tokens and temperature.
	SupportsSampling() bool

	// PullArgs returns the arguments that download model with the server binary,
	// or nil when the backend fetches models itself.
	PullArgs(model string) []string

	// PullEnv returns the environment the pull command needs to reach the server.
	PullEnv(cfg *config.Config) map[string]string
}
