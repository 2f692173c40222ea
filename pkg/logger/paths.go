/* pkg/logger/paths.go */

package logger

import (
	"os"
	"path/filepath"
	"runtime"
)

const appID = "Hestia"

// PlatformLogPaths returns candidate log paths in order of priority for the platform.
func PlatformLogPaths() []string {
	switch runtime.GOOS {
	case "windows":
		paths := []string{}
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, appID, "hestia.log"))
		}
		if lad := os.Getenv("LOCALAPPDATA"); lad != "" {
			paths = append(paths, filepath.Join(lad, appID, "hestia.log"))
		}
		return append(paths, filepath.Join(".", "hestia.log"))
	default:
		return []string{
			filepath.Join(os.TempDir(), "hestia", "hestia.log"),
		}
	}
}

// ResolveLogPath attempts to find the best writable log file path.
func ResolveLogPath() string {
	for _, path := range PlatformLogPaths() {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			continue
		}
		file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err == nil {
			_ = file.Close()
			return path
		}
	}
	return ""
}
