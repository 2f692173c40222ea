// pkg/orchestrator/orchestrator.go

// Package orchestrator sequences the installer and the administration tools
// into the install, worker, topology update and legacy workflows.
package orchestrator

import (
	"fmt"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/firewall"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/installer"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/options"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/preflight"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/secrets"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/serverconfig"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/tabadmin"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/topology"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/tsm"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Step names. They appear in logs, spans and wrapped errors.
const (
	stepPreflight          = "PreflightCheck"
	stepRunInstaller       = "RunInstaller"
	stepRunWorkerInstaller = "RunWorkerInstaller"
	stepDiscoverVersion    = "DiscoverInstalledVersion"
	stepActivateLicenses   = "ActivateLicenses"
	stepRegister           = "Register"
	stepSaveNodeBootstrap  = "SaveNodeBootstrap"
	stepImportConfig       = "ImportConfigSettings"
	stepApplyPending       = "ApplyPendingChanges"
	stepInitialize         = "Initialize"
	stepReconcileTopology  = "ReconcileTopology"
	stepStart              = "Start"
	stepCreateInitialAdmin = "CreateInitialAdmin"
	stepLocateAdminTool    = "LocateAdminTool"
	stepLocateBinaries     = "LocateBinaries"
	stepConfigureRunAs     = "ConfigureRunAs"
	stepInstallService     = "InstallService"
	stepActivate           = "Activate"
	stepFirewall           = "Firewall"
)

// Service run-as settings for the legacy workflow.
const (
	keyRunAsUser     = "service.runas.username"
	keyRunAsPassword = "service.runas.password"
)

// Preflight guards against installing over an existing server.
type Preflight interface {
	AssertNoExistingInstallation(rc *hestia_io.RuntimeContext) error
}

// FirewallApplier opens gateway ports according to server configuration.
type FirewallApplier interface {
	Apply(rc *hestia_io.RuntimeContext, cfg firewall.ConfigReader, gatewayPort string) ([]firewall.Rule, error)
}

// Orchestrator runs one workflow per invocation. The function fields locate
// tools on disk and can be replaced in tests.
type Orchestrator struct {
	Runner    execute.Runner
	Preflight Preflight

	LocateAdminTool      func(rc *hestia_io.RuntimeContext, installDir string) (binDir, version string, err error)
	LocateLegacyBinaries func(rc *hestia_io.RuntimeContext, installDir string) (string, error)
	Firewall             func(runner execute.Runner, includePublic bool) FirewallApplier
}

// New returns an Orchestrator that runs every command through runner.
func New(runner execute.Runner) *Orchestrator {
	return &Orchestrator{
		Runner:               runner,
		Preflight:            preflight.NewChecker(runner),
		LocateAdminTool:      tsm.LocateLatest,
		LocateLegacyBinaries: tabadmin.LocateBinaries,
		Firewall: func(r execute.Runner, includePublic bool) FirewallApplier {
			return firewall.NewManager(r, includePublic)
		},
	}
}

// Run loads the secrets file and executes the workflow for opts.Mode. A
// topology that is not ready yet is reported in the Report, not as an error.
func (o *Orchestrator) Run(rc *hestia_io.RuntimeContext, opts *options.Options) (*Report, error) {
	logger := otelzap.Ctx(rc.Ctx)
	rc.Attributes["mode"] = opts.Mode.String()

	sec, err := o.loadInputs(rc, opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("Secrets loaded", zap.Object("secrets", sec))

	report := &Report{Mode: opts.Mode}
	var steps []Step
	switch opts.Mode {
	case options.ModeInstall:
		steps = o.installSteps(&installRun{opts: opts, sec: sec, report: report})
	case options.ModeInstallWorker:
		steps = o.workerSteps(opts, sec)
	case options.ModeUpdateTopology:
		steps = o.updateTopologySteps(&installRun{opts: opts, sec: sec, report: report})
	case options.ModeLegacyInstall:
		steps = o.legacySteps(&legacyRun{opts: opts, sec: sec})
	default:
		return nil, hestia_err.NewOptionsError("unsupported install mode %q", opts.Mode.String())
	}

	if err := runSteps(rc, report, steps); err != nil {
		return report, err
	}
	logger.Info("terminal prompt: " + completionMessage(opts.Mode, report))
	return report, nil
}

// loadInputs reads and checks the files every workflow depends on before any
// command runs. The legacy workflow reports these problems as validation
// errors.
func (o *Orchestrator) loadInputs(rc *hestia_io.RuntimeContext, opts *options.Options) (*secrets.Secrets, error) {
	legacy := opts.Mode == options.ModeLegacyInstall

	sec, err := secrets.Load(rc.Ctx, opts.SecretsFile)
	if err == nil {
		err = sec.Validate(opts.Mode)
	}
	if err != nil {
		if legacy {
			return nil, hestia_err.AsValidation(err, opts.SecretsFile)
		}
		return nil, err
	}

	if legacy {
		var registration map[string]any
		if err := hestia_io.ReadStructuredFile(rc.Ctx, opts.RegistrationFile, &registration); err != nil {
			return nil, hestia_err.AsValidation(err, opts.RegistrationFile)
		}
	}
	return sec, nil
}

func completionMessage(mode options.Mode, report *Report) string {
	switch {
	case report.Topology != nil && *report.Topology == topology.NotReady:
		return "Finished. The topology was not applied because not all nodes are ready."
	case mode == options.ModeUpdateTopology:
		return "Topology update complete"
	default:
		return "Installation complete"
	}
}

// installRun is the state shared by the steps of one TSM based workflow.
type installRun struct {
	opts   *options.Options
	sec    *secrets.Secrets
	report *Report
	inv    *installer.Invocation
	tsm    *tsm.Client
}

func (o *Orchestrator) preflightStep() Step {
	return Step{
		Name: stepPreflight,
		Run:  o.Preflight.AssertNoExistingInstallation,
	}
}

func (o *Orchestrator) installSteps(run *installRun) []Step {
	opts := run.opts
	started := func() bool { return opts.Start == "yes" }

	return []Step{
		o.preflightStep(),
		{
			Name: stepRunInstaller,
			Run: func(rc *hestia_io.RuntimeContext) (err error) {
				run.inv, err = installer.Run(rc, o.Runner, installer.ServerDriver{}, opts, run.sec)
				return err
			},
			Done: "Installer finished",
		},
		{Name: stepDiscoverVersion, Run: func(rc *hestia_io.RuntimeContext) error { return o.discoverVersion(rc, run) }},
		{Name: stepActivateLicenses, Run: func(rc *hestia_io.RuntimeContext) error { return activateLicenses(rc, run.tsm, run.sec) }},
		{
			Name: stepRegister,
			Run:  func(rc *hestia_io.RuntimeContext) error { return run.tsm.Register(rc, opts.RegistrationFile) },
			Done: "Registered server",
		},
		{
			Name: stepSaveNodeBootstrap,
			When: func() bool { return opts.SaveNodeConfiguration == "yes" },
			Run: func(rc *hestia_io.RuntimeContext) error {
				return run.tsm.SaveNodeBootstrap(rc, opts.NodeConfigurationDirectory)
			},
			Done: "Saved node bootstrap file to " + opts.NodeConfigurationDirectory,
		},
		{
			Name: stepImportConfig,
			Run:  func(rc *hestia_io.RuntimeContext) error { return run.tsm.ImportConfig(rc, opts.ConfigFile) },
			Done: "Imported configuration settings",
		},
		{Name: stepApplyPending, Run: func(rc *hestia_io.RuntimeContext) error { return run.tsm.ApplyPendingChanges(rc) }},
		{
			Name: stepInitialize,
			Run:  func(rc *hestia_io.RuntimeContext) error { return run.tsm.Initialize(rc) },
			Done: "Server initialized",
		},
		o.reconcileStep(run, false),
		{Name: stepApplyPending, Run: func(rc *hestia_io.RuntimeContext) error { return run.tsm.ApplyPendingChanges(rc) }},
		{
			Name: stepStart,
			When: started,
			Run:  func(rc *hestia_io.RuntimeContext) error { return run.tsm.Start(rc) },
			Done: "Server started",
		},
		{
			Name: stepCreateInitialAdmin,
			When: started,
			Run: func(rc *hestia_io.RuntimeContext) error {
				port, err := configuredGatewayPort(rc, opts.ConfigFile)
				if err != nil {
					return err
				}
				return run.tsm.CreateInitialUser(rc, port, run.sec.ContentAdminUser, run.sec.ContentAdminPass)
			},
			Done: "Created initial administrator",
		},
	}
}

// discoverVersion asks the installer, then the registry, then the newest
// admin tool on disk which version was installed, and builds the tsm client
// for it.
func (o *Orchestrator) discoverVersion(rc *hestia_io.RuntimeContext, run *installRun) error {
	logger := otelzap.Ctx(rc.Ctx)

	version, err := installer.DiscoverVersion(rc, run.inv)
	binDir := ""
	if err != nil {
		logger.Warn("Installer did not report a version, searching the install directory",
			zap.String("install_dir", run.opts.InstallDir), zap.Error(err))
		binDir, version, err = o.LocateAdminTool(rc, run.opts.InstallDir)
		if err != nil {
			return err
		}
	}
	run.opts.SetInstalledVersion(version)
	if binDir == "" {
		binDir = tsm.BinDir(run.opts.InstallDir, run.opts.InstalledVersion())
	}

	run.tsm = tsm.NewClient(o.Runner, binDir, run.sec, run.opts)
	if run.inv != nil {
		run.tsm.Env = run.inv.PostInstallEnv
	}
	logger.Info("terminal prompt: Installed version "+run.opts.InstalledVersion(),
		zap.String("bin_dir", binDir))
	return nil
}

func activateLicenses(rc *hestia_io.RuntimeContext, client *tsm.Client, sec *secrets.Secrets) error {
	logger := otelzap.Ctx(rc.Ctx)
	licenses := sec.Licenses()

	if !licenses.Trial && len(licenses.Keys) == 0 {
		logger.Info("terminal prompt: No product keys in the secrets file, skipping activation")
		return nil
	}
	if licenses.Trial {
		if err := client.ActivateTrial(rc); err != nil {
			return err
		}
		logger.Info("terminal prompt: Activated trial")
	}
	for i, key := range licenses.Keys {
		if err := client.ActivateLicense(rc, key); err != nil {
			return err
		}
		logger.Info(fmt.Sprintf("terminal prompt: Activated product key %d of %d", i+1, len(licenses.Keys)),
			zap.String("key", maskKey(key)))
	}
	return nil
}

// maskKey keeps the last four characters of a product key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

func (o *Orchestrator) reconcileStep(run *installRun, applyAndRestart bool) Step {
	return Step{
		Name: stepReconcileTopology,
		Run: func(rc *hestia_io.RuntimeContext) error {
			outcome, err := topology.ReconcileFromConfig(rc, run.tsm, run.opts.ConfigFile, applyAndRestart)
			if err != nil {
				return err
			}
			run.report.Topology = &outcome
			return nil
		},
	}
}

// configuredGatewayPort reads the gateway port from the configuration file,
// surfacing any precedence or default warning to the operator.
func configuredGatewayPort(rc *hestia_io.RuntimeContext, configFile string) (string, error) {
	cfg, err := serverconfig.Load(rc.Ctx, configFile)
	if err != nil {
		return "", err
	}
	port, warning := cfg.GatewayPort()
	if warning != "" {
		otelzap.Ctx(rc.Ctx).Warn("terminal prompt: " + warning)
	}
	return port, nil
}

func (o *Orchestrator) workerSteps(opts *options.Options, sec *secrets.Secrets) []Step {
	return []Step{
		o.preflightStep(),
		{
			Name: stepRunWorkerInstaller,
			Run: func(rc *hestia_io.RuntimeContext) error {
				_, err := installer.Run(rc, o.Runner, installer.WorkerDriver{}, opts, sec)
				return err
			},
			Done: "Worker installer finished",
		},
	}
}

func (o *Orchestrator) updateTopologySteps(run *installRun) []Step {
	return []Step{
		{
			Name: stepLocateAdminTool,
			Run: func(rc *hestia_io.RuntimeContext) error {
				binDir, version, err := o.LocateAdminTool(rc, run.opts.InstallDir)
				if err != nil {
					return err
				}
				run.opts.SetInstalledVersion(version)
				run.tsm = tsm.NewClient(o.Runner, binDir, run.sec, run.opts)
				return nil
			},
		},
		o.reconcileStep(run, true),
	}
}

// legacyRun is the state shared by the steps of the tabadmin workflow.
type legacyRun struct {
	opts        *options.Options
	sec         *secrets.Secrets
	admin       *tabadmin.Client
	gatewayPort string
}

func (o *Orchestrator) legacySteps(run *legacyRun) []Step {
	opts := run.opts
	sec := run.sec

	return []Step{
		o.preflightStep(),
		{
			Name: stepRunInstaller,
			Run: func(rc *hestia_io.RuntimeContext) error {
				_, err := installer.Run(rc, o.Runner, installer.LegacyDriver{}, opts, sec)
				return err
			},
			Done: "Installer finished",
		},
		{
			Name: stepLocateBinaries,
			Run: func(rc *hestia_io.RuntimeContext) error {
				binDir, err := o.LocateLegacyBinaries(rc, opts.InstallDir)
				if err != nil {
					return err
				}
				run.admin = tabadmin.NewClient(o.Runner, binDir)
				return nil
			},
		},
		{
			Name: stepConfigureRunAs,
			When: sec.HasRunAs,
			Run: func(rc *hestia_io.RuntimeContext) error {
				if secrets.IsSet(sec.RunAsUser) {
					if err := run.admin.Set(rc, keyRunAsUser, sec.RunAsUser, false); err != nil {
						return err
					}
				}
				if secrets.IsSet(sec.RunAsPass) {
					return run.admin.Set(rc, keyRunAsPassword, sec.RunAsPass, true)
				}
				return nil
			},
			Done: "Configured service run-as account",
		},
		{
			Name: stepInstallService,
			Run:  func(rc *hestia_io.RuntimeContext) error { return run.admin.InstallService(rc, opts.Autorun) },
		},
		{
			Name: stepActivate,
			Run:  func(rc *hestia_io.RuntimeContext) error { return run.admin.Activate(rc, opts.LicenseKey) },
			Done: "Activated product key",
		},
		{
			Name: stepRegister,
			Run:  func(rc *hestia_io.RuntimeContext) error { return run.admin.Register(rc, opts.RegistrationFile) },
			Done: "Registered server",
		},
		{
			Name: stepStart,
			Run:  func(rc *hestia_io.RuntimeContext) error { return run.admin.Start(rc) },
			Done: "Server started",
		},
		{
			Name: stepCreateInitialAdmin,
			Run: func(rc *hestia_io.RuntimeContext) (err error) {
				run.gatewayPort, err = run.admin.GatewayPort(rc)
				if err != nil {
					return err
				}
				return run.admin.CreateInitialUser(rc, run.gatewayPort, sec.ContentAdminUser, sec.ContentAdminPass)
			},
			Done: "Created initial administrator",
		},
		{
			Name: stepFirewall,
			Run: func(rc *hestia_io.RuntimeContext) error {
				_, err := o.Firewall(o.Runner, opts.FirewallPublic).Apply(rc, run.admin, run.gatewayPort)
				return err
			},
		},
	}
}
