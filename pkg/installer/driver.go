// pkg/installer/driver.go

package installer

import (
	"fmt"
	"os"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/options"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/secrets"
	cerr "github.com/cockroachdb/errors"
)

// Environment variables the server installer sets machine-wide. A running
// process does not see them, so they are handed to later admin tool calls.
const (
	EnvDataDir    = "TABLEAU_SERVER_DATA_DIR"
	EnvInstallDir = "TABLEAU_SERVER_INSTALL_DIR"

	EnvWorkerAdminUser     = "TableauAdminUser"
	EnvWorkerAdminPassword = "TableauAdminPassword"
)

// silentArgs are common to every installer flavour.
var silentArgs = []string{"/VERYSILENT", "/SUPPRESSMSGBOXES", "/ACCEPTEULA"}

// Invocation is everything needed to run one installer and diagnose it.
type Invocation struct {
	Args []string
	// Env is passed to the installer process only.
	Env map[string]string
	// LogPath is the installer's own log file.
	LogPath string
	// VersionPath is where the installer writes its version. Empty when the
	// installer does not report one.
	VersionPath string
	// PostInstallEnv is handed to admin tool calls made after the installer.
	PostInstallEnv map[string]string
}

// Driver captures what differs between installer technologies.
type Driver interface {
	Name() string
	Prepare(opts *options.Options, sec *secrets.Secrets) (*Invocation, error)
	DescribeExitCode(code int) string
}

// ServerDriver runs the full server installer.
type ServerDriver struct{}

var serverExitCodes = map[int]string{
	1: "Inno Setup: Setup failed to initialize.",
	2: `Inno Setup: The user clicked Cancel in the wizard before the actual installation started, or chose "No" on the opening "This will install..." message box.`,
	3: "Inno Setup: A fatal error occurred while preparing to move to the next installation phase (for example, from displaying the pre-installation wizard pages to the actual installation process). This should never happen except under the most unusual of circumstances, such as running out of memory or Windows resources.",
	4: "Inno Setup: A fatal error occurred during the actual installation process.",
	5: "Inno Setup: The user clicked Cancel during the actual installation process, or chose Abort at an Abort-Retry-Ignore box.",
	6: "Inno Setup: The Setup process was forcefully terminated by the debugger",
	7: "Inno Setup: The Preparing to Install stage determined that Setup cannot proceed with installation.",
	8: "Inno Setup: The Preparing to Install stage determined that Setup cannot proceed with installation, and that the system needs to be restarted in order to correct the problem.",
}

func (ServerDriver) Name() string { return "Inno Setup" }

func (d ServerDriver) DescribeExitCode(code int) string {
	return describe(serverExitCodes, d.Name(), code)
}

func (ServerDriver) Prepare(opts *options.Options, _ *secrets.Secrets) (*Invocation, error) {
	logPath, err := tempFile("TableauServerInstaller_*.log")
	if err != nil {
		return nil, err
	}
	versionPath, err := tempFile("TableauServerInstallerVersion_*.txt")
	if err != nil {
		return nil, err
	}

	args := append(append([]string(nil), silentArgs...),
		"/LOG="+logPath,
		"/DIR="+opts.InstallDir,
		"/DATADIR="+opts.DataDir,
		"/CONTROLLERPORT="+opts.ControllerPort,
		"/VERSIONFILE="+versionPath,
	)
	optional := []struct {
		flag  string
		value string
	}{
		{"/COORDINATIONSERVICECLIENTPORT=", opts.CoordinationServiceClientPort},
		{"/COORDINATIONSERVICEPEERPORT=", opts.CoordinationServicePeerPort},
		{"/COORDINATIONSERVICELEADERPORT=", opts.CoordinationServiceLeaderPort},
		{"/LICENSESERVICEVENDORDAEMONPORT=", opts.LicenseServiceVendorDaemonPort},
		{"/AGENTFILETRANSFERPORT=", opts.AgentFileTransferPort},
		{"/PORTRANGEMIN=", opts.PortRangeMin},
		{"/PORTRANGEMAX=", opts.PortRangeMax},
		{"/PORTREMAPPINGENABLED=", opts.PortRemappingEnabled},
	}
	for _, o := range optional {
		if o.value != "" {
			args = append(args, o.flag+o.value)
		}
	}

	return &Invocation{
		Args:        args,
		LogPath:     logPath,
		VersionPath: versionPath,
		PostInstallEnv: map[string]string{
			EnvDataDir:    opts.DataDir,
			EnvInstallDir: opts.InstallDir,
		},
	}, nil
}

// WorkerDriver runs the worker node installer. Admin credentials travel in
// the child environment so they never appear on a command line.
type WorkerDriver struct{}

var workerExitCodes = map[int]string{
	1:  "Worker Setup: Setup failed to initialize.",
	30: "Worker Setup: Node configuration file provided was invalid",
	40: "Worker Setup: Admin username or password provided were invalid",
}

func (WorkerDriver) Name() string { return "Worker Setup" }

func (d WorkerDriver) DescribeExitCode(code int) string {
	return describe(workerExitCodes, d.Name(), code)
}

func (WorkerDriver) Prepare(opts *options.Options, sec *secrets.Secrets) (*Invocation, error) {
	if sec == nil {
		return nil, cerr.AssertionFailedf("worker installer requires secrets")
	}
	logPath, err := tempFile("TableauWorkerInstaller_*.log")
	if err != nil {
		return nil, err
	}
	args := append(append([]string(nil), silentArgs...),
		"/LOG="+logPath,
		"/DIR="+opts.InstallDir,
		"/DATADIR="+opts.DataDir,
		"/BOOTSTRAPFILE="+opts.NodeConfigurationFile,
	)
	return &Invocation{
		Args:    args,
		LogPath: logPath,
		Env: map[string]string{
			EnvWorkerAdminUser:     sec.LocalAdminUser,
			EnvWorkerAdminPassword: sec.LocalAdminPass,
		},
	}, nil
}

// LegacyDriver runs the single-node installer used with tabadmin.
type LegacyDriver struct{}

func (LegacyDriver) Name() string { return "Inno Setup" }

func (d LegacyDriver) DescribeExitCode(code int) string {
	return describe(serverExitCodes, d.Name(), code)
}

func (LegacyDriver) Prepare(opts *options.Options, _ *secrets.Secrets) (*Invocation, error) {
	logPath := opts.InstallerLog
	if logPath == "" {
		var err error
		if logPath, err = tempFile("TableauServerInstaller_*.log"); err != nil {
			return nil, err
		}
	}
	args := append(append([]string(nil), silentArgs...),
		"/LOG="+logPath,
		"/DIR="+opts.InstallDir,
	)
	if opts.ConfigFile != "" {
		args = append(args, "/CUSTOMCONFIG="+opts.ConfigFile)
	}
	return &Invocation{Args: args, LogPath: logPath}, nil
}

func describe(codes map[int]string, name string, code int) string {
	if msg, ok := codes[code]; ok {
		return msg
	}
	return fmt.Sprintf("Unknown exit code from the %s installer: %d", name, code)
}

func tempFile(pattern string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", cerr.Wrap(err, "failed to create temporary file")
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		return "", cerr.Wrap(err, "failed to close temporary file")
	}
	return name, nil
}
