// Package preflight guards against installing over an existing deployment.
package preflight

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ServiceName is the service display name an installation registers.
const ServiceName = "Tableau Server"

// ServiceControlPath returns the path of sc.exe, preferring
// %SystemRoot%\system32 and falling back to PATH.
func ServiceControlPath() string {
	if root := os.Getenv("SystemRoot"); root != "" {
		path := filepath.Join(root, "system32", "sc.exe")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	if path, err := exec.LookPath("sc"); err == nil {
		return path
	}
	return "sc.exe"
}

// Checker queries the service controller.
type Checker struct {
	Runner execute.Runner
	SCPath string
}

// NewChecker returns a Checker using the system sc.exe.
func NewChecker(runner execute.Runner) *Checker {
	return &Checker{Runner: runner, SCPath: ServiceControlPath()}
}

// ServerInstalled reports whether any service mentions ServiceName.
func (c *Checker) ServerInstalled(rc *hestia_io.RuntimeContext) (bool, error) {
	res, err := c.Runner.Run(rc.Ctx, execute.Options{
		Command: c.SCPath,
		Args:    []string{"query", "type=", "service", "state=", "all"},
		Capture: true,
	})
	if err != nil {
		return false, err
	}
	return strings.Contains(res.Stdout, ServiceName), nil
}

// AssertNoExistingInstallation fails with ExistingInstallationError when the
// server is already registered as a service.
func (c *Checker) AssertNoExistingInstallation(rc *hestia_io.RuntimeContext) error {
	logger := otelzap.Ctx(rc.Ctx)
	logger.Info("🔍 Checking for an existing installation", zap.String("service", ServiceName))

	installed, err := c.ServerInstalled(rc)
	if err != nil {
		return err
	}
	if installed {
		return &hestia_err.ExistingInstallationError{Service: ServiceName}
	}
	logger.Info("✓ No existing installation found")
	return nil
}
