// pkg/hestia_err/classification.go
//
// Error classification for installer workflows. Every failure that can abort a
// workflow belongs to exactly one Category, and the Category decides the process
// exit code reported to the operator.

package hestia_err

import (
	"errors"
)

// Category classifies errors for exit code selection
type Category int

const (
	// CategoryUnknown - anything not raised by hestia itself (exit 1)
	CategoryUnknown Category = iota
	// CategoryExistingInstallation - preflight found a registered service (exit 2)
	CategoryExistingInstallation
	// CategoryOptions - missing or invalid options, missing executables (exit 3)
	CategoryOptions
	// CategoryCommand - an external command exited non-zero (exit 4)
	CategoryCommand
	// CategoryValidation - malformed or incomplete input files, legacy workflow (exit 5)
	CategoryValidation
)

// Process exit codes returned by the CLI.
const (
	ExitSuccess              = 0
	ExitFailure              = 1
	ExitExistingInstallation = 2
	ExitOptions              = 3
	ExitCommand              = 4
	ExitValidation           = 5
)

func (c Category) String() string {
	switch c {
	case CategoryExistingInstallation:
		return "existing-installation"
	case CategoryOptions:
		return "options"
	case CategoryCommand:
		return "command"
	case CategoryValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// ExitCode returns the process exit code for this category
func (c Category) ExitCode() int {
	switch c {
	case CategoryExistingInstallation:
		return ExitExistingInstallation
	case CategoryOptions:
		return ExitOptions
	case CategoryCommand:
		return ExitCommand
	case CategoryValidation:
		return ExitValidation
	default:
		return ExitFailure
	}
}

// Classified is implemented by every error type in this package.
type Classified interface {
	error
	Category() Category
}

// CategoryOf walks the wrap chain and returns the category of the first
// classified error found, or CategoryUnknown.
func CategoryOf(err error) Category {
	var classified Classified
	if errors.As(err, &classified) {
		return classified.Category()
	}
	return CategoryUnknown
}

// GetExitCode extracts the exit code from any error.
// Returns 0 for nil, the category exit code for classified errors, 1 for others.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return CategoryOf(err).ExitCode()
}
