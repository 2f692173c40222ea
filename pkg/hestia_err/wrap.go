// pkg/hestia_err/wrap.go

package hestia_err

import (
	cerr "github.com/cockroachdb/errors"
)

// WithRemediation attaches an operator hint to err. The hint is shown by the
// CLI when the workflow aborts.
func WithRemediation(err error, hint string) error {
	if err == nil {
		return nil
	}
	return cerr.WithHint(err, hint)
}

// Hints returns every hint attached anywhere in the wrap chain.
func Hints(err error) []string {
	return cerr.GetAllHints(err)
}

// WrapStep wraps a failed workflow step with its name while keeping the
// original classification reachable through errors.As.
func WrapStep(err error, step string) error {
	if err == nil {
		return nil
	}
	return cerr.Wrapf(err, "%s failed", step)
}
