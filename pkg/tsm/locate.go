// pkg/tsm/locate.go

package tsm

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/hashicorp/go-version"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

type candidate struct {
	dir     string
	raw     string
	version *version.Version
}

// LocateLatest scans installDir/packages for bin.<version> directories and
// returns the newest one that contains tsm, along with its version.
func LocateLatest(rc *hestia_io.RuntimeContext, installDir string) (binDir, ver string, err error) {
	logger := otelzap.Ctx(rc.Ctx)
	packages := filepath.Join(installDir, "packages")

	entries, readErr := os.ReadDir(packages)
	if readErr != nil {
		logger.Warn("Could not read packages directory", zap.String("path", packages), zap.Error(readErr))
	}

	var candidates []candidate
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "bin.") {
			continue
		}
		raw := strings.TrimPrefix(e.Name(), "bin.")
		v, parseErr := version.NewVersion(raw)
		if parseErr != nil {
			logger.Debug("Skipping package directory with unparseable version",
				zap.String("dir", e.Name()), zap.Error(parseErr))
			continue
		}
		candidates = append(candidates, candidate{dir: filepath.Join(packages, e.Name()), raw: raw, version: v})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].version.GreaterThan(candidates[j].version)
	})

	for _, c := range candidates {
		info, statErr := os.Stat(filepath.Join(c.dir, TSMBinary))
		if statErr == nil && !info.IsDir() {
			logger.Info("Found administration tool", zap.String("dir", c.dir), zap.String("version", c.raw))
			return c.dir, c.raw, nil
		}
	}

	return "", "", hestia_err.NewOptionsError(
		"Could not find tsm under directory %s. Please provide correct value in the installDir option", installDir)
}
