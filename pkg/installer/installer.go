// pkg/installer/installer.go

package installer

import (
	"bufio"
	"os"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/options"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/secrets"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// LogTailLines is how much of the installer log is shown after a failure.
const LogTailLines = 5

// ErrVersionUnknown is returned when neither the version file nor the
// registry names the installed version.
var ErrVersionUnknown = cerr.New("installed version could not be determined")

// Run executes the installer described by d. On a non-zero exit the code is
// translated, the tail of the installer log is shown, and the original
// CommandFailedError is returned.
func Run(rc *hestia_io.RuntimeContext, runner execute.Runner, d Driver, opts *options.Options, sec *secrets.Secrets) (*Invocation, error) {
	logger := otelzap.Ctx(rc.Ctx)

	inv, err := d.Prepare(opts, sec)
	if err != nil {
		return nil, err
	}

	logger.Info("terminal prompt: Installer log file at " + inv.LogPath)
	logger.Info("📦 Running installer",
		zap.String("installer", opts.Installer),
		zap.String("driver", d.Name()),
		zap.Strings("args", inv.Args))

	_, err = runner.Run(rc.Ctx, execute.Options{
		Command: opts.Installer,
		Args:    inv.Args,
		Env:     inv.Env,
	})
	if err == nil {
		logger.Info("✅ Installer finished", zap.String("driver", d.Name()))
		return inv, nil
	}

	var failed *hestia_err.CommandFailedError
	if cerr.As(err, &failed) {
		logger.Error("terminal prompt: " + d.DescribeExitCode(failed.ExitCode))
		showLogTail(rc, inv.LogPath)
	}
	return inv, err
}

func showLogTail(rc *hestia_io.RuntimeContext, path string) {
	logger := otelzap.Ctx(rc.Ctx)
	logger.Error("terminal prompt: For more details see log file " + path)

	lines, err := Tail(path, LogTailLines)
	if err != nil {
		logger.Warn("Could not read installer log", zap.String("path", path), zap.Error(err))
		return
	}
	for _, line := range lines {
		logger.Error("terminal prompt: " + line)
	}
}

// Tail returns the last n lines of the file at path.
func Tail(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, strings.TrimRight(scanner.Text(), "\r"))
	}
	return ring, scanner.Err()
}

// DiscoverVersion reads the version the installer reported, falling back to
// the registry on Windows.
func DiscoverVersion(rc *hestia_io.RuntimeContext, inv *Invocation) (string, error) {
	logger := otelzap.Ctx(rc.Ctx)

	if inv != nil && inv.VersionPath != "" {
		data, err := os.ReadFile(inv.VersionPath)
		if err != nil {
			logger.Warn("Could not read installer version file", zap.String("path", inv.VersionPath), zap.Error(err))
		} else if version := strings.TrimSpace(string(data)); version != "" {
			logger.Info("Installer reported version", zap.String("version", version))
			_ = os.Remove(inv.VersionPath)
			return version, nil
		}
	}

	version, err := registryVersion()
	if err != nil {
		logger.Debug("Registry version lookup failed", zap.Error(err))
		return "", ErrVersionUnknown
	}
	logger.Info("Installed version read from registry", zap.String("version", version))
	return version, nil
}
