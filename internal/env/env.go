package env

import (
	"os"
	"strings"

	"github.com/ekisa-team/inferworker/internal/envvar"
)

// Environment is the deployment environment the worker runs in.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// FromEnv reads the environment from INFERWORKER_ENV, defaulting to production.
func FromEnv() Environment {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(envvar.InferworkerEnv))) {
	case "dev", "development", "local":
		return Development
	default:
		return Production
	}
}

// IsDevelopment reports whether e is the development environment.
func (e Environment) IsDevelopment() bool {
	return e == Development
}
