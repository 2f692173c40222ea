//go:build !windows

package installer

import cerr "github.com/cockroachdb/errors"

func registryVersion() (string, error) {
	return "", cerr.New("registry is only available on windows")
}
