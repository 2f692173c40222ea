// pkg/orchestrator/errors.go

package orchestrator

import (
	"fmt"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	cerr "github.com/cockroachdb/errors"
)

// stepFailure wraps a failed step with its name and, where one applies, a
// suggested fix the CLI prints after the failure.
func stepFailure(step string, err error) error {
	wrapped := hestia_err.WrapStep(err, step)
	if hint := suggestedRemediation(step, err); hint != "" {
		wrapped = hestia_err.WithRemediation(wrapped, hint)
	}
	return wrapped
}

// suggestedRemediation picks an operator hint from the failure classification.
func suggestedRemediation(step string, err error) string {
	var (
		existing *hestia_err.ExistingInstallationError
		missing  *hestia_err.MissingExecutableError
		failed   *hestia_err.CommandFailedError
		option   *hestia_err.MissingOptionError
	)
	switch {
	case cerr.As(err, &existing):
		return "Uninstall the existing server or run hestia on a clean machine"
	case cerr.As(err, &missing):
		return fmt.Sprintf("Check that %s exists under %s and that installDir points at the installation", missing.Path, missing.Root)
	case cerr.As(err, &option):
		return fmt.Sprintf("Provide the %s option on the command line or in the bootstrap file", option.Option)
	case cerr.As(err, &failed) && (step == stepRunInstaller || step == stepRunWorkerInstaller):
		return "Review the installer log shown above"
	case cerr.As(err, &failed):
		return fmt.Sprintf("Fix the cause reported by %s and rerun hestia", failed.Path)
	default:
		return ""
	}
}
