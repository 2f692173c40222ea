/* cmd/root.go */

package cmd

import (
	"io"
	"os"

	"github.com/CodeMonkeyCybersecurity/hestia/cmd/install"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_cli"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/options"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Streams are where the CLI writes operator output and log lines.
type Streams struct {
	Out io.Writer
	Err io.Writer
}

// NewRootCmd builds the hestia command tree around workflow.
func NewRootCmd(streams Streams, workflow install.Workflow) *cobra.Command {
	root := &cobra.Command{
		Use:   "hestia",
		Short: "Unattended server cluster installer",
		Long: `hestia installs and configures a server cluster without prompting.

Options come either from flags or from a single JSON or YAML file given with
--bootstrapFile. A bootstrap file's "type" key selects the workflow (install,
installWorker, updateTopology or legacy), so "hestia --bootstrapFile file.json"
is enough on its own.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if cmd.Flags().Changed(install.FlagLogLevel) || cmd.Flags().Changed(install.FlagLogFile) {
				initLogger(cmd, streams)
			}
		},
		RunE: hestia_cli.Wrap(func(rc *hestia_io.RuntimeContext, cmd *cobra.Command, args []string) error {
			bootstrap, _ := cmd.Flags().GetString(options.BootstrapFlag)
			if bootstrap == "" {
				rc.Log.Info("terminal prompt: No subcommand provided. Try `hestia help`.")
				return cmd.Help()
			}
			opts, err := install.ResolveOptions(cmd, args, options.ModeInstall)
			if err != nil {
				return err
			}
			_, err = workflow(rc, opts)
			return err
		}),
	}

	root.PersistentFlags().String(options.BootstrapFlag, "", "JSON or YAML file holding every option; excludes all other option flags")
	root.PersistentFlags().String(install.FlagLogLevel, "", "Log level: debug, info, warn or error (default $LOG_LEVEL or info)")
	root.PersistentFlags().String(install.FlagLogFile, "", "JSON log file (default $"+logger.EnvLogFile+" or a platform log directory)")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return hestia_err.WrapOptionsError(err, "invalid command line for %s", cmd.Name())
	})
	root.SetOut(streams.Out)
	root.SetErr(streams.Err)

	root.AddCommand(
		install.NewInstallCmd(workflow),
		install.NewInstallWorkerCmd(workflow),
		install.NewUpdateTopologyCmd(workflow),
		install.NewLegacyCmd(workflow),
	)
	return root
}

// initLogger configures logging from the environment, with the logging flags
// taking precedence when cmd is given.
func initLogger(cmd *cobra.Command, streams Streams) {
	level := os.Getenv("LOG_LEVEL")
	file := os.Getenv(logger.EnvLogFile)
	if cmd != nil {
		if v, _ := cmd.Flags().GetString(install.FlagLogLevel); v != "" {
			level = v
		}
		if v, _ := cmd.Flags().GetString(install.FlagLogFile); v != "" {
			file = v
		}
	}
	logger.Initialize(logger.Config{
		Level:    level,
		FilePath: file,
		Console:  streams.Err,
		Terminal: streams.Out,
	})
}

// Execute runs hestia with args and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	return execute(args, Streams{Out: stdout, Err: stderr}, install.DefaultWorkflow)
}

func execute(args []string, streams Streams, workflow install.Workflow) int {
	// Flag and argument errors are reported before any hook runs, so logging
	// is set up from the environment first.
	initLogger(nil, streams)

	root := NewRootCmd(streams, workflow)
	root.SetArgs(args)

	err := root.Execute()
	log := logger.L()
	defer func() { _ = logger.Sync() }()

	if err == nil {
		return hestia_err.ExitSuccess
	}

	code := hestia_err.GetExitCode(err)
	log.Error("terminal prompt: "+err.Error(), zap.Int("exit_code", code))
	for _, hint := range hestia_err.Hints(err) {
		log.Info("terminal prompt: Suggested fix: " + hint)
	}
	return code
}
