package config

import "errors"

// Error definitions for the config package.
var (
	ErrUnknownBackend = errors.New("unknown backend profile")
	ErrInvalidConfig  = errors.New("invalid config")
)
