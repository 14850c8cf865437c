package openshift

import (
	"fmt"
	"strings"

	"github.com/tapcraft-io/shift/internal/wait"
)

// AuthenticationConfigError is returned when a session is configured with
// neither a bearer token nor a complete username/password pair, or with both
type AuthenticationConfigError struct {
	Reason string
}

func (e *AuthenticationConfigError) Error() string {
	return "invalid authentication configuration: " + e.Reason
}

// UnsupportedResourceKindError is returned when no API group serves a kind
type UnsupportedResourceKindError struct {
	Kind   Kind
	Groups []string
}

func (e *UnsupportedResourceKindError) Error() string {
	return fmt.Sprintf("resource %q not supported by any of [%s]", e.Kind, strings.Join(e.Groups, ", "))
}

// CommandExecutionError is returned when oc exits non-zero or writes to
// stderr. Command has the token redacted.
type CommandExecutionError struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *CommandExecutionError) Error() string {
	return fmt.Sprintf("command %q failed with status %d: %s %s",
		e.Command, e.ExitCode, strings.TrimSpace(e.Stdout), strings.TrimSpace(e.Stderr))
}

func (e *CommandExecutionError) Unwrap() error {
	return e.Err
}

// WaitTimeoutError is returned when a blocking operation does not complete
// within its timeout
type WaitTimeoutError = wait.TimeoutError
