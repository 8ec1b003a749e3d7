package config

import "errors"

var (
	// ErrInvalid indicates a configuration that failed validation.
	ErrInvalid = errors.New("invalid configuration")

	// ErrNotFound indicates an explicitly requested config file is missing.
	ErrNotFound = errors.New("config file not found")
)
