package cli

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/taxsim/pkg/config"
	"mercator-hq/taxsim/pkg/dataset"
	"mercator-hq/taxsim/pkg/engine"
	"mercator-hq/taxsim/pkg/params"
	"mercator-hq/taxsim/pkg/rules"
)

// Process exit codes. An evaluation failure exits with the code of its
// status class so batch pipelines can tell bad input from a broken rule set.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitConfig   = 2
	ExitData     = 3
	ExitRule     = 4
	ExitCanceled = 130
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config error: " + e.Message
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode returns the process exit code for err. Errors that are not
// tied to configuration, input data or a rule exit with ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		cfgErr   *ConfigError
		fieldErr config.ValidationError
		parseErr *dataset.ParseError
		dataErr  *engine.DataError
		ruleErr  *engine.EvaluationError
		timeout  *engine.TimeoutError
		missing  *params.MissingError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ExitCanceled
	case errors.As(err, &dataErr), errors.As(err, &parseErr):
		return ExitData
	case errors.As(err, &ruleErr), errors.As(err, &timeout):
		return ExitRule
	case errors.As(err, &cfgErr), errors.As(err, &fieldErr), errors.As(err, &missing),
		errors.Is(err, rules.ErrConfiguration), errors.Is(err, engine.ErrInvalidConfig):
		return ExitConfig
	default:
		return ExitFailure
	}
}
