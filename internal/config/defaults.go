package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/ekisa-team/inferworker/internal/envvar"
)

const (
	BackendOllama = "ollama"
	BackendVLLM   = "vllm"
)

// DefaultConfigPath returns the default path for the inferworker config directory.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "inferworker", "config")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "inferworker")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "inferworker")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "inferworker")
		}
		return filepath.Join(home, ".config", "inferworker")
	}
}

// ResolvePath returns path when set, otherwise <DefaultConfigPath>/<backend>.yaml
// if that file exists, otherwise "" (built-in profile only).
func ResolvePath(path, backend string) string {
	if path != "" {
		return path
	}

	candidate := filepath.Join(DefaultConfigPath(), strings.ToLower(backend)+".yaml")
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}

	return ""
}

// Default returns the built-in profile for a backend.
func Default(backend string) (*Config, error) {
	switch strings.ToLower(backend) {
	case BackendOllama:
		return defaultOllama(), nil
	case BackendVLLM:
		return defaultVLLM(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// The Ollama deployment never aborted on a slow start, so it runs degraded.
func defaultOllama() *Config {
	return &Config{
		Version: "1",
		Backend: BackendOllama,
		Server: ServerConfig{
			BinPath:       "/usr/local/bin/ollama",
			Host:          "0.0.0.0",
			Port:          11434,
			HealthPath:    "/api/version",
			LogFile:       filepath.Join(os.TempDir(), "ollama.log"),
			StartupPolicy: StartupPolicyDegraded,
			PollInterval:  1 * time.Second,
			MaxAttempts:   30,
		},
		Model: ModelConfig{
			Default:     "phi3:mini",
			Pull:        true,
			PullTimeout: 30 * time.Minute,
		},
		Request: RequestConfig{
			Timeout:     30 * time.Second,
			MaxTokens:   512,
			Temperature: 0.7,
		},
		Runtime: defaultRuntime(),
	}
}

func defaultVLLM() *Config {
	return &Config{
		Version: "1",
		Backend: BackendVLLM,
		Server: ServerConfig{
			BinPath:              "python3",
			Host:                 "0.0.0.0",
			Port:                 8000,
			HealthPath:           "/health",
			LogFile:              filepath.Join(os.TempDir(), "vllm.log"),
			StartupPolicy:        StartupPolicyFatal,
			DType:                "auto",
			MaxModelLen:          4096,
			GPUMemoryUtilization: 0.9,
			PollInterval:         5 * time.Second,
			MaxAttempts:          120,
		},
		Model: ModelConfig{
			Default: "Qwen/Qwen2.5-7B-Instruct",
		},
		Request: RequestConfig{
			Timeout:     120 * time.Second,
			MaxTokens:   512,
			Temperature: 0.7,
		},
		Runtime: defaultRuntime(),
	}
}

func defaultRuntime() RuntimeConfig {
	return RuntimeConfig{
		Concurrency:  1,
		IdleDelay:    1 * time.Second,
		PingInterval: 10 * time.Second,
	}
}

// ApplyEnv overrides the default model from the environment.
// Precedence:
// 1. OLLAMA_MODEL (Ollama profile only).
// 2. MODEL_NAME.
// 3. The profile value.
func ApplyEnv(cfg *Config) {
	if cfg.Backend == BackendOllama {
		if m := os.Getenv(envvar.OllamaModel); m != "" {
			cfg.Model.Default = m
			return
		}
	}
	if m := os.Getenv(envvar.ModelName); m != "" {
		cfg.Model.Default = m
	}
}
