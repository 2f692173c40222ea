// cmd/install/install.go

// Package install holds the hestia workflow subcommands.
package install

import (
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_cli"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/options"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/orchestrator"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Workflow executes a resolved option set.
type Workflow func(rc *hestia_io.RuntimeContext, opts *options.Options) (*orchestrator.Report, error)

// DefaultWorkflow runs opts against the real machine.
func DefaultWorkflow(rc *hestia_io.RuntimeContext, opts *options.Options) (*orchestrator.Report, error) {
	return orchestrator.New(execute.New()).Run(rc, opts)
}

// NewInstallCmd installs the initial node of a cluster.
func NewInstallCmd(workflow Workflow) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [flags] <installer>",
		Short: "Install and configure the initial server node",
		Long: `Runs the server installer silently, activates licenses, registers the server,
imports the configuration file, initializes and starts the server and creates the
initial administrator. The topology in the configuration file is imported once
every node it names has joined; otherwise rerun updateTopology after installing
the workers.

Example:
  hestia install --secretsFile secrets.json --registrationFile reg.json \
    --configFile config.json TableauServer-64bit.exe`,
		Args: installerArg,
		RunE: hestia_cli.Wrap(runMode(options.ModeInstall, workflow)),
	}
	addFlags(cmd, options.ModeInstall, serverFlags)
	return cmd
}

// NewInstallWorkerCmd installs an additional node.
func NewInstallWorkerCmd(workflow Workflow) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "installWorker [flags] <installer>",
		Aliases: []string{"install-worker"},
		Short:   "Install a worker node using the initial node's bootstrap file",
		Long: `Runs the worker installer silently. The local administrator credentials from the
secrets file are handed to the installer through its environment.

Example:
  hestia installWorker --secretsFile secrets.json \
    --nodeConfigurationFile nodeConfiguration.json TableauServer-64bit.exe`,
		Args: installerArg,
		RunE: hestia_cli.Wrap(runMode(options.ModeInstallWorker, workflow)),
	}
	addFlags(cmd, options.ModeInstallWorker, workerFlags)
	return cmd
}

// NewUpdateTopologyCmd applies the configured topology to a running cluster.
func NewUpdateTopologyCmd(workflow Workflow) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "updateTopology [flags]",
		Aliases: []string{"update-topology"},
		Short:   "Apply the configuration file's topology once all nodes have joined",
		Long: `Locates the newest administration tool under installDir and reconciles the
cluster with the topology in the configuration file. Nodes the configuration no
longer names are removed and the cluster is restarted.`,
		Args: noArgs,
		RunE: hestia_cli.Wrap(runMode(options.ModeUpdateTopology, workflow)),
	}
	addFlags(cmd, options.ModeUpdateTopology, topologyFlags)
	return cmd
}

// NewLegacyCmd runs the single-node tabadmin workflow.
func NewLegacyCmd(workflow Workflow) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "legacy [flags] <installer>",
		Short: "Install a single-node server managed with tabadmin",
		Long: `Runs the legacy installer, configures the service account, installs and
starts the service, activates the product key, creates the initial administrator
and opens the gateway in the Windows firewall when the server asks for it.`,
		Args: installerArg,
		RunE: hestia_cli.Wrap(runMode(options.ModeLegacyInstall, workflow)),
	}
	addFlags(cmd, options.ModeLegacyInstall, legacyFlags)
	return cmd
}

// runMode resolves options for mode and hands them to workflow.
func runMode(mode options.Mode, workflow Workflow) hestia_cli.RunFunc {
	return func(rc *hestia_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		opts, err := ResolveOptions(cmd, args, mode)
		if err != nil {
			return err
		}
		rc.Log.Info("Options resolved",
			zap.String("mode", opts.Mode.String()),
			zap.String("installer", opts.Installer),
			zap.String("install_dir", opts.InstallDir))
		_, err = workflow(rc, opts)
		return err
	}
}

// ResolveOptions builds Options from either the command line or the
// bootstrap file. A bootstrap file excludes every other option; its "type"
// key, when present, overrides the mode of the command it was given to.
func ResolveOptions(cmd *cobra.Command, args []string, mode options.Mode) (*options.Options, error) {
	bootstrap, err := cmd.Flags().GetString(options.BootstrapFlag)
	if err != nil {
		return nil, hestia_err.WrapOptionsError(err, "failed to read --%s", options.BootstrapFlag)
	}

	values, err := options.FromFlags(cmd, args, nonOptionFlags...)
	if err != nil {
		return nil, err
	}
	if err := options.CheckExclusiveSources(bootstrap, values, args); err != nil {
		return nil, err
	}

	if bootstrap != "" {
		fileValues, fileMode, err := options.FromBootstrapFile(bootstrap)
		if err != nil {
			return nil, err
		}
		if _, ok := fileValues[options.KeyType]; ok {
			mode = fileMode
		}
		values = fileValues
	}
	return options.Resolve(values, mode)
}

func installerArg(_ *cobra.Command, args []string) error {
	if len(args) > 1 {
		return hestia_err.NewOptionsError("expected one installer path, got %d arguments", len(args))
	}
	return nil
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return hestia_err.NewOptionsError("%s does not take arguments, got %q", cmd.Name(), args[0])
	}
	return nil
}
