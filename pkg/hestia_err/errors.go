// pkg/hestia_err/errors.go

package hestia_err

import (
	"fmt"
)

// MissingOptionError is returned when an option required by the selected
// install mode was not supplied.
type MissingOptionError struct {
	Option string
}

func (e *MissingOptionError) Error() string {
	return fmt.Sprintf("%q not specified", e.Option)
}

func (e *MissingOptionError) Category() Category { return CategoryOptions }

// OptionsError covers invalid option values, unreadable option sources and
// conflicting option sources.
type OptionsError struct {
	Message string
	Cause   error
}

func (e *OptionsError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *OptionsError) Unwrap() error { return e.Cause }

func (e *OptionsError) Category() Category { return CategoryOptions }

// MissingExecutableError is returned before any process is spawned when the
// referenced binary does not exist.
type MissingExecutableError struct {
	Path string
	// Root is set when the binary was searched for under a directory.
	Root string
}

func (e *MissingExecutableError) Error() string {
	if e.Root != "" {
		return fmt.Sprintf("could not find executable %s under %s", e.Path, e.Root)
	}
	return fmt.Sprintf("the executable file %s does not exist", e.Path)
}

func (e *MissingExecutableError) Category() Category { return CategoryOptions }

// CommandFailedError is returned when an external command exits non-zero.
type CommandFailedError struct {
	Path     string
	ExitCode int
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("%s execution exited with code: %d", e.Path, e.ExitCode)
}

func (e *CommandFailedError) Category() Category { return CategoryCommand }

// ExistingInstallationError is raised by the preflight guard.
type ExistingInstallationError struct {
	Service string
}

func (e *ExistingInstallationError) Error() string {
	return fmt.Sprintf("an existing installation of %s has been found. "+
		"Please uninstall it before updating to the new version. "+
		"Data currently in %s will be preserved during this process", e.Service, e.Service)
}

func (e *ExistingInstallationError) Category() Category { return CategoryExistingInstallation }

// ValidationError reports a malformed or incomplete input file.
type ValidationError struct {
	File   string
	Reason string
	Cause  error
}

func (e *ValidationError) Error() string {
	msg := e.Reason
	if e.File != "" {
		msg = fmt.Sprintf("%s: %s", e.File, e.Reason)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Cause }

func (e *ValidationError) Category() Category { return CategoryValidation }

// NewMissingOption creates a MissingOptionError for the named option
func NewMissingOption(option string) error {
	return &MissingOptionError{Option: option}
}

// NewOptionsError creates an OptionsError with a formatted message
func NewOptionsError(format string, args ...any) error {
	return &OptionsError{Message: fmt.Sprintf(format, args...)}
}

// WrapOptionsError attaches a cause to an OptionsError
func WrapOptionsError(cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &OptionsError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// NewValidationError creates a ValidationError for an input file
func NewValidationError(file, reason string, cause error) error {
	return &ValidationError{File: file, Reason: reason, Cause: cause}
}

// AsValidation re-classifies an options-category input error as a
// ValidationError. The legacy workflow reports input-file problems with a
// dedicated exit code; other categories pass through unchanged.
func AsValidation(err error, file string) error {
	if err == nil {
		return nil
	}
	switch CategoryOf(err) {
	case CategoryOptions, CategoryUnknown:
		return &ValidationError{File: file, Reason: "invalid input file", Cause: err}
	default:
		return err
	}
}
