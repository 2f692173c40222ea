// pkg/installer/installer_test.go

package installer

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/options"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/secrets"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/testutil"
	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func resolve(t *testing.T, mode options.Mode, extra map[string]any) *options.Options {
	t.Helper()
	input := map[string]any{
		options.KeySecretsFile:           "secrets.json",
		options.KeyRegistrationFile:      "registration.json",
		options.KeyConfigFile:            "config.json",
		options.KeyNodeConfigurationFile: "node.json",
		options.KeyInstaller:             "setup.exe",
		options.KeyLicenseKey:            "KEY",
	}
	for k, v := range extra {
		input[k] = v
	}
	opts, err := options.Resolve(input, mode)
	require.NoError(t, err)
	return opts
}

func cleanup(t *testing.T, inv *Invocation) {
	t.Cleanup(func() {
		_ = os.Remove(inv.LogPath)
		if inv.VersionPath != "" {
			_ = os.Remove(inv.VersionPath)
		}
	})
}

func TestServerDriver_Args(t *testing.T) {
	t.Parallel()

	opts := resolve(t, options.ModeInstall, map[string]any{
		options.KeyPortRangeMin:         "8000",
		options.KeyPortRemappingEnabled: "true",
	})
	inv, err := ServerDriver{}.Prepare(opts, nil)
	require.NoError(t, err)
	cleanup(t, inv)

	assert.Equal(t, []string{"/VERYSILENT", "/SUPPRESSMSGBOXES", "/ACCEPTEULA"}, inv.Args[:3])
	assert.Equal(t, "/LOG="+inv.LogPath, inv.Args[3])
	assert.Equal(t, []string{
		"/DIR=" + options.DefaultInstallDir,
		"/DATADIR=" + options.DefaultDataDir,
		"/CONTROLLERPORT=8850",
		"/VERSIONFILE=" + inv.VersionPath,
		"/PORTRANGEMIN=8000",
		"/PORTREMAPPINGENABLED=true",
	}, inv.Args[4:])
	assert.Contains(t, inv.LogPath, "TableauServerInstaller_")
	assert.Contains(t, inv.VersionPath, "TableauServerInstallerVersion_")
	assert.Equal(t, options.DefaultDataDir, inv.PostInstallEnv[EnvDataDir])
	assert.Equal(t, options.DefaultInstallDir, inv.PostInstallEnv[EnvInstallDir])
	assert.Empty(t, inv.Env)
}

func TestWorkerDriver_CredentialsInEnvOnly(t *testing.T) {
	t.Parallel()

	opts := resolve(t, options.ModeInstallWorker, nil)
	sec := &secrets.Secrets{LocalAdminUser: "local", LocalAdminPass: "s3cret"}

	inv, err := WorkerDriver{}.Prepare(opts, sec)
	require.NoError(t, err)
	cleanup(t, inv)

	assert.Equal(t, "/BOOTSTRAPFILE=node.json", inv.Args[len(inv.Args)-1])
	assert.Contains(t, inv.LogPath, "TableauWorkerInstaller_")
	assert.Equal(t, map[string]string{EnvWorkerAdminUser: "local", EnvWorkerAdminPassword: "s3cret"}, inv.Env)
	assert.NotContains(t, strings.Join(inv.Args, " "), "s3cret")
	assert.Empty(t, inv.VersionPath)
}

func TestLegacyDriver_Args(t *testing.T) {
	t.Parallel()

	opts := resolve(t, options.ModeLegacyInstall, map[string]any{
		options.KeyInstallerLog: `C:\logs\install.log`,
		options.KeyConfigFile:   "custom.yml",
	})
	inv, err := LegacyDriver{}.Prepare(opts, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/VERYSILENT", "/SUPPRESSMSGBOXES", "/ACCEPTEULA",
		`/LOG=C:\logs\install.log`,
		"/DIR=" + options.DefaultInstallDir,
		"/CUSTOMCONFIG=custom.yml",
	}, inv.Args)
}

func TestDescribeExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Inno Setup: Setup failed to initialize.", ServerDriver{}.DescribeExitCode(1))
	assert.Contains(t, ServerDriver{}.DescribeExitCode(8), "needs to be restarted")
	assert.Equal(t, "Unknown exit code from the Inno Setup installer: 9", ServerDriver{}.DescribeExitCode(9))
	assert.Equal(t, "Worker Setup: Node configuration file provided was invalid", WorkerDriver{}.DescribeExitCode(30))
	assert.Equal(t, "Worker Setup: Admin username or password provided were invalid", WorkerDriver{}.DescribeExitCode(40))
	assert.Equal(t, "Unknown exit code from the Worker Setup installer: 2", WorkerDriver{}.DescribeExitCode(2))
}

func TestRun_FailureReturnsOriginalError(t *testing.T) {
	t.Parallel()

	rc := hestia_io.NewTestContext(context.Background(), zaptest.NewLogger(t))
	runner := testutil.NewFakeRunner(testutil.ExitCode(4, "setup"))
	opts := resolve(t, options.ModeInstall, nil)

	inv, err := Run(rc, runner, ServerDriver{}, opts, nil)
	require.Error(t, err)
	cleanup(t, inv)

	var failed *hestia_err.CommandFailedError
	require.True(t, cerr.As(err, &failed))
	assert.Equal(t, 4, failed.ExitCode)
	assert.Equal(t, hestia_err.ExitCommand, hestia_err.GetExitCode(err))
	assert.Len(t, runner.Calls(), 1)
}

func TestRun_PassesWorkerEnv(t *testing.T) {
	t.Parallel()

	rc := hestia_io.NewTestContext(context.Background(), zaptest.NewLogger(t))
	runner := testutil.NewFakeRunner()
	opts := resolve(t, options.ModeInstallWorker, nil)
	sec := &secrets.Secrets{LocalAdminUser: "local", LocalAdminPass: "pw"}

	inv, err := Run(rc, runner, WorkerDriver{}, opts, sec)
	require.NoError(t, err)
	cleanup(t, inv)

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "setup.exe", calls[0].Command)
	assert.Equal(t, "pw", calls[0].Env[EnvWorkerAdminPassword])
}

func TestTail(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "setup.log", "1\n2\n3\n4\n5\n6\r\n7\n")
	lines, err := Tail(path, LogTailLines)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "4", "5", "6", "7"}, lines)

	short := testutil.WriteFile(t, dir, "short.log", "only")
	lines, err = Tail(short, LogTailLines)
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, lines)

	_, err = Tail(dir+"/missing.log", LogTailLines)
	assert.Error(t, err)
}

func TestDiscoverVersion(t *testing.T) {
	t.Parallel()

	rc := hestia_io.NewTestContext(context.Background(), zaptest.NewLogger(t))
	path := testutil.WriteFile(t, t.TempDir(), "version.txt", "20232.23.1017.0948\r\n")

	version, err := DiscoverVersion(rc, &Invocation{VersionPath: path})
	require.NoError(t, err)
	assert.Equal(t, "20232.23.1017.0948", version)
	assert.NoFileExists(t, path)
}
