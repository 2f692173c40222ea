// pkg/tsm/client.go

package tsm

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/options"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/secrets"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const (
	TSMBinary    = "tsm.cmd"
	TabcmdBinary = "tabcmd.exe"

	// InitializeTimeout and StartTimeout are passed to tsm in seconds.
	InitializeTimeout = 7200
	StartTimeout      = 1800
)

// BinDir is where a given product version keeps its command line tools.
func BinDir(installDir, version string) string {
	return filepath.Join(installDir, "packages", "bin."+version)
}

// Client issues administration tool commands as the local admin user.
type Client struct {
	Runner     execute.Runner
	TSMPath    string
	TabcmdPath string

	User     string
	Password string

	// ControllerPort other than the default adds --server to every call.
	ControllerPort string
	Hostname       string

	// Env is added to every child, e.g. the directories the installer
	// registered machine-wide.
	Env map[string]string
}

// NewClient builds a Client for the tools under binDir.
func NewClient(runner execute.Runner, binDir string, sec *secrets.Secrets, opts *options.Options) *Client {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return &Client{
		Runner:         runner,
		TSMPath:        filepath.Join(binDir, TSMBinary),
		TabcmdPath:     filepath.Join(binDir, TabcmdBinary),
		User:           sec.LocalAdminUser,
		Password:       sec.LocalAdminPass,
		ControllerPort: opts.ControllerPort,
		Hostname:       host,
	}
}

func (c *Client) args(args []string) []string {
	out := append([]string(nil), args...)
	if c.ControllerPort != "" && c.ControllerPort != options.DefaultControllerPort {
		out = append(out, "--server", "https://"+net.JoinHostPort(c.Hostname, c.ControllerPort))
	}
	return append(out, "-u", c.User, "-p", c.Password)
}

func (c *Client) run(rc *hestia_io.RuntimeContext, capture bool, args ...string) (*execute.Result, error) {
	res, err := c.Runner.Run(rc.Ctx, execute.Options{
		Command: c.TSMPath,
		Args:    c.args(args),
		Env:     c.Env,
		Capture: capture,
		Redact:  true,
	})
	if err != nil {
		logFailure(rc, "tsm", err)
		return nil, err
	}
	otelzap.Ctx(rc.Ctx).Debug("tsm command succeeded", zap.Strings("command", verb(args)))
	return res, nil
}

// verb is the leading subcommand of args, up to the first flag. Flag values
// can be product keys or passwords.
func verb(args []string) []string {
	for i, arg := range args {
		if strings.HasPrefix(arg, "-") {
			return args[:i]
		}
	}
	return args
}

func logFailure(rc *hestia_io.RuntimeContext, tool string, err error) {
	var failed *hestia_err.CommandFailedError
	if cerr.As(err, &failed) {
		otelzap.Ctx(rc.Ctx).Error(fmt.Sprintf("terminal prompt: %s exited with code %d", tool, failed.ExitCode))
	}
}

// ActivateTrial activates a trial license.
func (c *Client) ActivateTrial(rc *hestia_io.RuntimeContext) error {
	_, err := c.run(rc, false, "licenses", "activate", "--trial")
	return err
}

// ActivateLicense activates one product key.
func (c *Client) ActivateLicense(rc *hestia_io.RuntimeContext, key string) error {
	_, err := c.run(rc, false, "licenses", "activate", "--license-key", key)
	return err
}

// Register submits the registration file.
func (c *Client) Register(rc *hestia_io.RuntimeContext, registrationFile string) error {
	_, err := c.run(rc, false, "register", "--file", registrationFile)
	return err
}

// SaveNodeBootstrap writes the worker bootstrap file to path.
func (c *Client) SaveNodeBootstrap(rc *hestia_io.RuntimeContext, path string) error {
	_, err := c.run(rc, false, "topology", "nodes", "get-bootstrap-file", "--file", path)
	return err
}

// ImportConfig imports only the configuration half of configFile.
func (c *Client) ImportConfig(rc *hestia_io.RuntimeContext, configFile string) error {
	_, err := c.run(rc, false, "settings", "import", "--config-only", "-f", configFile)
	return err
}

// ImportTopology imports only the topology half of configFile.
func (c *Client) ImportTopology(rc *hestia_io.RuntimeContext, configFile string) error {
	_, err := c.run(rc, false, "settings", "import", "--topology-only", "-f", configFile)
	return err
}

// ApplyPendingChanges commits staged settings without prompting.
func (c *Client) ApplyPendingChanges(rc *hestia_io.RuntimeContext) error {
	_, err := c.run(rc, false, "pending-changes", "apply", "--ignore-prompt", "--ignore-warnings")
	return err
}

// Initialize initializes the server.
func (c *Client) Initialize(rc *hestia_io.RuntimeContext) error {
	_, err := c.run(rc, false, "initialize", "--request-timeout", strconv.Itoa(InitializeTimeout))
	return err
}

// ListNodes returns the node identifiers the cluster reports.
func (c *Client) ListNodes(rc *hestia_io.RuntimeContext) ([]string, error) {
	res, err := c.run(rc, true, "topology", "list-nodes")
	if err != nil {
		return nil, err
	}
	var nodes []string
	for _, line := range res.Lines() {
		if node := strings.TrimSpace(line); node != "" {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

// RemoveNode removes one node from the cluster.
func (c *Client) RemoveNode(rc *hestia_io.RuntimeContext, node string) error {
	_, err := c.run(rc, false, "topology", "remove-nodes", "-n", node)
	return err
}

// Restart restarts the whole cluster.
func (c *Client) Restart(rc *hestia_io.RuntimeContext) error {
	_, err := c.run(rc, false, "restart")
	return err
}

// Start starts the server.
func (c *Client) Start(rc *hestia_io.RuntimeContext) error {
	_, err := c.run(rc, false, "start", "--request-timeout", strconv.Itoa(StartTimeout))
	return err
}

// CreateInitialUser creates the first content administrator with tabcmd.
func (c *Client) CreateInitialUser(rc *hestia_io.RuntimeContext, gatewayPort, user, password string) error {
	_, err := c.Runner.Run(rc.Ctx, execute.Options{
		Command: c.TabcmdPath,
		Args:    []string{"initialuser", "--server", "localhost:" + gatewayPort, "--username", user, "--password", password},
		Env:     c.Env,
		Redact:  true,
	})
	if err != nil {
		logFailure(rc, "tabcmd", err)
	}
	return err
}
