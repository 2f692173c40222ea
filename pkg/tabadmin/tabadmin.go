// Package tabadmin drives the single-node administration tool used by the
// legacy install workflow.
package tabadmin

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const (
	TabadminBinary = "tabadmin.exe"
	TabcmdBinary   = "tabcmd.exe"

	DefaultGatewayPort = "80"
)

// getValue matches the value printed after "is:" by "tabadmin get".
var getValue = regexp.MustCompile(`is:([\s\w]+)`)

// LocateBinaries walks installDir for the directory holding tabadmin.exe.
func LocateBinaries(rc *hestia_io.RuntimeContext, installDir string) (string, error) {
	logger := otelzap.Ctx(rc.Ctx)
	logger.Info("terminal prompt: Getting binaries path")

	var found string
	err := filepath.WalkDir(installDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == installDir {
				return err
			}
			return nil
		}
		if !d.IsDir() && strings.EqualFold(d.Name(), TabadminBinary) {
			found = filepath.Dir(path)
			return fs.SkipAll
		}
		return nil
	})
	if found == "" {
		if err != nil {
			logger.Warn("Could not walk install directory", zap.String("path", installDir), zap.Error(err))
		}
		return "", &hestia_err.MissingExecutableError{Path: TabadminBinary, Root: installDir}
	}
	logger.Info("Found tabadmin", zap.String("dir", found))
	return found, nil
}

// Client runs tabadmin and tabcmd from one binaries directory.
type Client struct {
	Runner     execute.Runner
	Tabadmin   string
	TabcmdPath string
}

// NewClient builds a Client for the tools in binDir.
func NewClient(runner execute.Runner, binDir string) *Client {
	return &Client{
		Runner:     runner,
		Tabadmin:   filepath.Join(binDir, TabadminBinary),
		TabcmdPath: filepath.Join(binDir, TabcmdBinary),
	}
}

func (c *Client) run(rc *hestia_io.RuntimeContext, redact, capture bool, args ...string) (*execute.Result, error) {
	return c.Runner.Run(rc.Ctx, execute.Options{
		Command: c.Tabadmin,
		Args:    args,
		Redact:  redact,
		Capture: capture,
	})
}

// Set stores a configuration value.
func (c *Client) Set(rc *hestia_io.RuntimeContext, key, value string, secret bool) error {
	_, err := c.run(rc, secret, false, "set", key, value)
	return err
}

// Get returns the value tabadmin reports for key, or "" when it prints none.
// tabadmin exits zero whether or not the key is set.
func (c *Client) Get(rc *hestia_io.RuntimeContext, key string) (string, error) {
	res, err := c.run(rc, false, true, "get", key)
	if err != nil {
		return "", err
	}
	return ParseGetOutput(res.Stdout), nil
}

// ParseGetOutput extracts the value from "tabadmin get" output.
func ParseGetOutput(out string) string {
	m := getValue.FindStringSubmatch(out)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// GetOr returns Get's value, or def when the key has no value.
func (c *Client) GetOr(rc *hestia_io.RuntimeContext, key, def string) (string, error) {
	v, err := c.Get(rc, key)
	if err != nil || v != "" {
		return v, err
	}
	return def, nil
}

// InstallService registers the server as a Windows service.
func (c *Client) InstallService(rc *hestia_io.RuntimeContext, autorun bool) error {
	logger := otelzap.Ctx(rc.Ctx)
	args := []string{"install"}
	if autorun {
		args = append(args, "--auto")
		logger.Info("terminal prompt: Installing services with autorun on")
	} else {
		logger.Info("terminal prompt: Installing services with autorun off")
	}
	_, err := c.run(rc, false, false, args...)
	return err
}

// Activate activates a product key.
func (c *Client) Activate(rc *hestia_io.RuntimeContext, key string) error {
	_, err := c.run(rc, true, false, "activate", "--key", key)
	return err
}

// Register submits the registration file.
func (c *Client) Register(rc *hestia_io.RuntimeContext, registrationFile string) error {
	_, err := c.run(rc, false, false, "register", "--file", registrationFile)
	return err
}

// Start starts the server.
func (c *Client) Start(rc *hestia_io.RuntimeContext) error {
	_, err := c.run(rc, false, false, "start")
	return err
}

// GatewayPort reads worker0.gateway.port, defaulting to 80.
func (c *Client) GatewayPort(rc *hestia_io.RuntimeContext) (string, error) {
	return c.GetOr(rc, "worker0.gateway.port", DefaultGatewayPort)
}

// CreateInitialUser creates the first administrator with tabcmd.
func (c *Client) CreateInitialUser(rc *hestia_io.RuntimeContext, gatewayPort, user, password string) error {
	_, err := c.Runner.Run(rc.Ctx, execute.Options{
		Command: c.TabcmdPath,
		Args: []string{"initialuser", "--server", "localhost:" + gatewayPort,
			"--no-certcheck", "--no-prompt", "--username", user, "--password", password},
		Redact: true,
	})
	return err
}
