// pkg/firewall/firewall.go

package firewall

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const (
	RuleName = "Tableau Server"

	ProfilePrivateDomain       = "private,domain"
	ProfilePrivateDomainPublic = "private,domain,public"

	DefaultSSLPort = "443"
)

// Config keys read from the server before touching the firewall.
const (
	KeyGatewayHole = "install.firewall.gatewayhole"
	KeySSLEnabled  = "ssl.enabled"
	KeySSLPort     = "ssl.port"
)

// Rule is one inbound allow rule.
type Rule struct {
	Name     string
	Port     string
	Protocol string
	Profile  string
}

// Args renders the rule as netsh arguments.
func (r Rule) Args() []string {
	return []string{"advfirewall", "firewall", "add", "rule",
		"name=" + r.Name, "dir=in", "action=allow",
		"protocol=" + r.Protocol, "profile=" + r.Profile, "localport=" + r.Port}
}

// ConfigReader answers server configuration queries. A missing value is "".
type ConfigReader interface {
	Get(rc *hestia_io.RuntimeContext, key string) (string, error)
}

// LocateNetsh returns %SystemRoot%\system32\netsh.exe or a
// MissingExecutableError.
func LocateNetsh(systemRoot string) (string, error) {
	if systemRoot == "" {
		systemRoot = os.Getenv("SystemRoot")
	}
	dir := filepath.Join(systemRoot, "system32")
	path := filepath.Join(dir, "netsh.exe")
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return "", &hestia_err.MissingExecutableError{Path: "netsh.exe", Root: dir}
	}
	return path, nil
}

// Manager opens the gateway ports when the server asks for it.
type Manager struct {
	Runner execute.Runner
	// Locate finds netsh. It is only called once a rule is actually needed.
	Locate  func() (string, error)
	Profile string
}

// NewManager returns a Manager for the private and domain profiles, plus
// public when includePublic is set.
func NewManager(runner execute.Runner, includePublic bool) *Manager {
	profile := ProfilePrivateDomain
	if includePublic {
		profile = ProfilePrivateDomainPublic
	}
	return &Manager{
		Runner:  runner,
		Locate:  func() (string, error) { return LocateNetsh("") },
		Profile: profile,
	}
}

// Apply opens gatewayPort when install.firewall.gatewayhole is true, and the
// SSL port as well when ssl.enabled is true. It returns the rules added.
func (m *Manager) Apply(rc *hestia_io.RuntimeContext, cfg ConfigReader, gatewayPort string) ([]Rule, error) {
	logger := otelzap.Ctx(rc.Ctx)

	hole, err := cfg.Get(rc, KeyGatewayHole)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(hole, "true") {
		logger.Info("terminal prompt: Not opening firewall for connections to the gateway")
		return nil, nil
	}

	var added []Rule
	open := func(port string) error {
		rule := Rule{Name: RuleName, Port: port, Protocol: "TCP", Profile: m.Profile}
		logger.Info("terminal prompt: Opening firewall for connections to the gateway", zap.String("port", port))
		if err := m.add(rc, rule); err != nil {
			return err
		}
		added = append(added, rule)
		return nil
	}

	if err := open(gatewayPort); err != nil {
		return added, err
	}

	ssl, err := cfg.Get(rc, KeySSLEnabled)
	if err != nil {
		return added, err
	}
	if !strings.EqualFold(ssl, "true") {
		return added, nil
	}
	sslPort, err := cfg.Get(rc, KeySSLPort)
	if err != nil {
		return added, err
	}
	if sslPort == "" {
		sslPort = DefaultSSLPort
	}
	return added, open(sslPort)
}

func (m *Manager) add(rc *hestia_io.RuntimeContext, rule Rule) error {
	logger := otelzap.Ctx(rc.Ctx)

	netsh, err := m.Locate()
	if err != nil {
		logger.Error("terminal prompt: Could not find executable: " + err.Error())
		return err
	}
	_, err = m.Runner.Run(rc.Ctx, execute.Options{Command: netsh, Args: rule.Args()})
	var failed *hestia_err.CommandFailedError
	if cerr.As(err, &failed) {
		logger.Error("Attempt to modify firewall using advfirewall failed",
			zap.Int("exit_code", failed.ExitCode), zap.String("port", rule.Port))
	}
	return err
}
