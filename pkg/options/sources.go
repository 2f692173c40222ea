// pkg/options/sources.go

package options

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/cli"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// BootstrapFlag is the flag that switches option input to a bootstrap file.
const BootstrapFlag = "bootstrapFile"

// FromBootstrapFile reads every option from a JSON or YAML bootstrap file.
// The file's "type" key selects the mode and defaults to install.
func FromBootstrapFile(path string) (map[string]any, Mode, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ModeInstall, hestia_err.WrapOptionsError(err, "Could not open json file %q", path)
	}
	data, err := hestia_io.ToUTF8(raw)
	if err != nil {
		return nil, ModeInstall, hestia_err.WrapOptionsError(err, "The json file %q contains malformed json", path)
	}

	v := viper.New()
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if !isSupportedExt(ext) {
		ext = "json"
	}
	v.SetConfigType(ext)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, ModeInstall, hestia_err.WrapOptionsError(err, "The json file %q contains malformed json", path)
	}

	values := v.AllSettings()
	mode := ModeInstall
	if name := v.GetString(KeyType); name != "" {
		m, err := ParseMode(name)
		if err != nil {
			return nil, ModeInstall, err
		}
		mode = m
	}
	return values, mode, nil
}

// FromFlags collects the flags the user set on cmd plus the positional
// installer path, if any. Flags named in skip, such as logging flags, are not
// options and are left out.
func FromFlags(cmd *cobra.Command, args []string, skip ...string) (map[string]any, error) {
	values, err := cli.ChangedFlags(cmd, append([]string{BootstrapFlag}, skip...)...)
	if err != nil {
		return nil, hestia_err.WrapOptionsError(err, "failed to read command line flags")
	}
	if len(args) > 0 {
		values[KeyInstaller] = args[0]
	}
	return values, nil
}

// CheckExclusiveSources rejects a bootstrap file combined with any other
// option on the command line.
func CheckExclusiveSources(bootstrapFile string, flagValues map[string]any, args []string) error {
	if bootstrapFile == "" {
		return nil
	}
	if len(flagValues) > 0 || len(args) > 0 {
		return hestia_err.NewOptionsError("When using the --%s flag, no other flags are allowed", BootstrapFlag)
	}
	return nil
}

func isSupportedExt(ext string) bool {
	for _, supported := range viper.SupportedExts {
		if supported == ext {
			return true
		}
	}
	return false
}
