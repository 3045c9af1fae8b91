package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is the sentinel wrapped by every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// ValidationError describes a single invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// ParseError reports a malformed configuration file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("config: parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
