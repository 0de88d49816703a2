package config

import "errors"

var (
	// ErrInvalidConfig wraps every value rejected by Validate.
	ErrInvalidConfig = errors.New("invalid gestura config")
	// ErrLoadConfig wraps failures to read or decode the file or environment layers.
	ErrLoadConfig = errors.New("failed to load gestura config")
)
