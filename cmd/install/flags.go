// cmd/install/flags.go

package install

import (
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/cli"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/options"
	"github.com/spf13/cobra"
)

// Logging flags are persistent on the root command and are not options.
const (
	FlagLogLevel = "log-level"
	FlagLogFile  = "log-file"
)

var nonOptionFlags = []string{FlagLogLevel, FlagLogFile}

type flagSpec struct {
	name string
	help string
	// boolean flags are only used by the legacy workflow.
	boolean bool
}

var (
	flagSecretsFile      = flagSpec{name: options.KeySecretsFile, help: "JSON or YAML file with the administrator credentials and product keys"}
	flagRegistrationFile = flagSpec{name: options.KeyRegistrationFile, help: "Registration file passed to the administration tool"}
	flagConfigFile       = flagSpec{name: options.KeyConfigFile, help: "Server configuration file with settings and topology"}
	flagNodeConfigFile   = flagSpec{name: options.KeyNodeConfigurationFile, help: "Bootstrap file saved by the initial node"}
	flagInstallDir       = flagSpec{name: options.KeyInstallDir, help: "Installation directory (default " + options.DefaultInstallDir + ")"}
	flagDataDir          = flagSpec{name: options.KeyDataDir, help: "Data directory (default " + options.DefaultDataDir + ")"}
	flagControllerPort   = flagSpec{name: options.KeyControllerPort, help: "Controller port (default " + options.DefaultControllerPort + ")"}
)

var serverFlags = []flagSpec{
	flagSecretsFile,
	flagRegistrationFile,
	flagConfigFile,
	flagInstallDir,
	flagDataDir,
	flagControllerPort,
	{name: options.KeyCoordinationServiceClientPort, help: "Coordination service client port"},
	{name: options.KeyCoordinationServicePeerPort, help: "Coordination service peer port"},
	{name: options.KeyCoordinationServiceLeaderPort, help: "Coordination service leader port"},
	{name: options.KeyLicenseServiceVendorDaemonPort, help: "License service vendor daemon port"},
	{name: options.KeyAgentFileTransferPort, help: "Agent file transfer port"},
	{name: options.KeyPortRangeMin, help: "Lowest port of the dynamic port range"},
	{name: options.KeyPortRangeMax, help: "Highest port of the dynamic port range"},
	{name: options.KeyPortRemappingEnabled, help: "Allow the installer to remap ports that are in use"},
	{name: options.KeyStart, help: "Start the server after installation: yes or no (default yes)"},
	{name: options.KeySaveNodeConfiguration, help: "Save the worker bootstrap file: yes or no (default yes)"},
	{name: options.KeyNodeConfigurationDirectory, help: "Where to save the worker bootstrap file (default nodeConfiguration.json next to hestia)"},
}

var workerFlags = []flagSpec{
	flagSecretsFile,
	flagNodeConfigFile,
	flagInstallDir,
	flagDataDir,
}

var topologyFlags = []flagSpec{
	flagSecretsFile,
	flagConfigFile,
	flagInstallDir,
	flagControllerPort,
}

var legacyFlags = []flagSpec{
	flagSecretsFile,
	flagRegistrationFile,
	{name: options.KeyConfigFile, help: "Custom configuration file passed to the installer"},
	{name: options.KeyLicenseKey, help: "Product key to activate"},
	flagInstallDir,
	{name: options.KeyInstallerLog, help: "Installer log file (default a temporary file)"},
	{name: options.KeyAutorun, help: "Start the service automatically at boot (default true)", boolean: true},
	{name: options.KeyFirewallPublic, help: "Also open the gateway on the public firewall profile", boolean: true},
}

// addFlags registers specs on cmd. Defaults are applied by the options
// resolver, so flags carry no cobra default and only explicit values count.
// Options the mode requires are tagged in the help text; cobra cannot enforce
// them because a bootstrap file may supply them instead.
func addFlags(cmd *cobra.Command, mode options.Mode, specs []flagSpec) {
	required := make(map[string]bool)
	for _, key := range options.Required(mode) {
		required[key] = true
	}
	for _, f := range specs {
		help := f.help
		if required[f.name] {
			help += " (required)"
		}
		if f.boolean {
			cli.AddBoolFlag(cmd, f.name, false, help)
			continue
		}
		cli.AddStringFlag(cmd, f.name, "", help)
	}
}
