// pkg/options/options_test.go

package options

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/cli"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullInput() map[string]any {
	return map[string]any{
		KeySecretsFile:           "secrets.json",
		KeyRegistrationFile:      "registration.json",
		KeyConfigFile:            "config.json",
		KeyNodeConfigurationFile: "node.json",
		KeyInstaller:             "setup.exe",
		KeyLicenseKey:            "KEY-1",
	}
}

func TestResolve_RequiredSets(t *testing.T) {
	t.Parallel()

	for mode, keys := range required {
		mode, keys := mode, keys
		t.Run(mode.String(), func(t *testing.T) {
			t.Parallel()

			exact := map[string]any{}
			for _, k := range keys {
				exact[k] = fullInput()[k]
			}
			_, err := Resolve(exact, mode)
			require.NoError(t, err, "exactly the required set must be accepted")

			for _, missing := range keys {
				input := map[string]any{}
				for _, k := range keys {
					if k != missing {
						input[k] = fullInput()[k]
					}
				}
				_, err := Resolve(input, mode)
				require.Error(t, err)

				var missingErr *hestia_err.MissingOptionError
				require.True(t, cerr.As(err, &missingErr))
				assert.Equal(t, missing, missingErr.Option)
				assert.Equal(t, hestia_err.ExitOptions, hestia_err.GetExitCode(err))
			}
		})
	}
}

func TestRequired_ReturnsCopy(t *testing.T) {
	t.Parallel()

	keys := Required(ModeUpdateTopology)
	assert.Equal(t, []string{KeySecretsFile, KeyConfigFile}, keys)
	keys[0] = "changed"
	assert.Equal(t, KeySecretsFile, Required(ModeUpdateTopology)[0])
}

func TestResolve_FirstMissingInTableOrder(t *testing.T) {
	t.Parallel()

	_, err := Resolve(map[string]any{}, ModeInstall)
	require.Error(t, err)
	assert.EqualError(t, err, `"secretsFile" not specified`)

	_, err = Resolve(map[string]any{KeySecretsFile: "s.json", KeyRegistrationFile: ""}, ModeInstall)
	assert.EqualError(t, err, `"registrationFile" not specified`)
}

func TestResolve_Defaults(t *testing.T) {
	t.Parallel()

	opts, err := Resolve(fullInput(), ModeInstall)
	require.NoError(t, err)

	assert.Equal(t, DefaultInstallDir, opts.InstallDir)
	assert.Equal(t, DefaultDataDir, opts.DataDir)
	assert.Equal(t, "8850", opts.ControllerPort)
	assert.Equal(t, "yes", opts.Start)
	assert.Equal(t, "yes", opts.SaveNodeConfiguration)
	assert.Equal(t, "nodeConfiguration.json", filepath.Base(opts.NodeConfigurationDirectory))
	assert.Empty(t, opts.CoordinationServiceClientPort)
	assert.Empty(t, opts.PortRemappingEnabled)
	assert.True(t, opts.Autorun)
	assert.False(t, opts.FirewallPublic)
	assert.True(t, opts.UsesDefaultControllerPort())
}

func TestResolve_CaseInsensitiveKeysAndNumbers(t *testing.T) {
	t.Parallel()

	input := map[string]any{
		"secretsfile":                 "s.json",
		"CONFIGFILE":                  "c.json",
		"controllerport":              float64(9000),
		"portRangeMin":                8000,
		"portremappingenabled":        true,
		"coordinationServicePeerPort": nil,
	}
	opts, err := Resolve(input, ModeUpdateTopology)
	require.NoError(t, err)

	assert.Equal(t, "s.json", opts.SecretsFile)
	assert.Equal(t, "9000", opts.ControllerPort)
	assert.Equal(t, "8000", opts.PortRangeMin)
	assert.Equal(t, "true", opts.PortRemappingEnabled)
	assert.Empty(t, opts.CoordinationServicePeerPort)
	assert.False(t, opts.UsesDefaultControllerPort())
}

func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()

	a, errA := Resolve(fullInput(), ModeInstallWorker)
	b, errB := Resolve(fullInput(), ModeInstallWorker)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
}

func TestResolve_InvalidValues(t *testing.T) {
	t.Parallel()

	tests := map[string]any{
		KeyControllerPort:        "eighty",
		KeyStart:                 "maybe",
		KeySaveNodeConfiguration: "Y",
		KeyPortRangeMax:          "-",
		KeyPortRemappingEnabled:  "sometimes",
		KeyAutorun:               "perhaps",
	}
	for key, value := range tests {
		input := fullInput()
		input[key] = value
		_, err := Resolve(input, ModeInstall)
		require.Error(t, err, key)

		var optErr *hestia_err.OptionsError
		assert.True(t, cerr.As(err, &optErr), key)
		assert.Equal(t, hestia_err.ExitOptions, hestia_err.GetExitCode(err), key)
	}
}

func TestSetInstalledVersion(t *testing.T) {
	t.Parallel()

	opts, err := Resolve(fullInput(), ModeInstall)
	require.NoError(t, err)
	assert.Empty(t, opts.InstalledVersion())

	opts.SetInstalledVersion(" 20231.23.0101.1234\n")
	opts.SetInstalledVersion("other")
	assert.Equal(t, "20231.23.0101.1234", opts.InstalledVersion())
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for mode, name := range modeNames {
		got, err := ParseMode(name)
		require.NoError(t, err)
		assert.Equal(t, mode, got)
	}
	_, err := ParseMode("uninstall")
	assert.Equal(t, hestia_err.ExitOptions, hestia_err.GetExitCode(err))
}

func TestFromBootstrapFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "bootstrap.json")
	content := `{
	"type": "installWorker",
	"secretsFile": "secrets.json",
	"nodeConfigurationFile": "node.json",
	"installer": "worker.exe",
	"controllerPort": 8850
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	values, mode, err := FromBootstrapFile(path)
	require.NoError(t, err)
	assert.Equal(t, ModeInstallWorker, mode)

	opts, err := Resolve(values, mode)
	require.NoError(t, err)
	assert.Equal(t, "node.json", opts.NodeConfigurationFile)
	assert.Equal(t, "worker.exe", opts.Installer)
	assert.Equal(t, "8850", opts.ControllerPort)
}

func TestFromBootstrapFile_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, _, err := FromBootstrapFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Could not open json file")

	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte(`{"type": `), 0600))
	_, _, err = FromBootstrapFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed json")
	assert.Equal(t, hestia_err.ExitOptions, hestia_err.GetExitCode(err))
}

func TestFromFlagsAndExclusivity(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{Use: "install"}
	cli.AddStringFlag(cmd, KeySecretsFile, "", "")
	cli.AddStringFlag(cmd, KeyInstallDir, DefaultInstallDir, "")
	cli.AddStringFlag(cmd, BootstrapFlag, "", "")
	require.NoError(t, cmd.ParseFlags([]string{"--secretsFile=s.json", "--bootstrapFile=b.json"}))

	values, err := FromFlags(cmd, []string{"setup.exe"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{KeySecretsFile: "s.json", KeyInstaller: "setup.exe"}, values)

	err = CheckExclusiveSources("b.json", values, nil)
	assert.Equal(t, hestia_err.ExitOptions, hestia_err.GetExitCode(err))
	assert.NoError(t, CheckExclusiveSources("b.json", map[string]any{}, nil))
	assert.NoError(t, CheckExclusiveSources("", values, nil))
}
