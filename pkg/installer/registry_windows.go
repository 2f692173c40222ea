//go:build windows

package installer

import (
	"strings"

	cerr "github.com/cockroachdb/errors"
	"golang.org/x/sys/windows/registry"
)

// RegistryKey is where the server installer records the installed version.
const RegistryKey = `SOFTWARE\Tableau\Tableau Server\Installation`

func registryVersion() (string, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, RegistryKey, registry.QUERY_VALUE)
	if err != nil {
		return "", cerr.Wrapf(err, "open HKLM\\%s", RegistryKey)
	}
	defer func() { _ = key.Close() }()

	version, _, err := key.GetStringValue("Version")
	if err != nil {
		return "", cerr.Wrap(err, "read Version value")
	}
	if version = strings.TrimSpace(version); version == "" {
		return "", cerr.New("empty Version value")
	}
	return version, nil
}
