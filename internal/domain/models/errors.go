package models

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks a run that cannot proceed because input data is missing entirely.
var ErrConfiguration = errors.New("configuration error")

// ErrNotFound is returned by stores and managers for unknown IDs.
var ErrNotFound = errors.New("not found")

// ConfigError carries the reason a run was rejected.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConfiguration.Error(), e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }
