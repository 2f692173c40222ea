// pkg/options/options.go

package options

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/go-playground/validator/v10"
)

// Mode selects the workflow and the options it requires.
type Mode int

const (
	ModeInstall Mode = iota
	ModeInstallWorker
	ModeUpdateTopology
	ModeLegacyInstall
)

var modeNames = map[Mode]string{
	ModeInstall:        "install",
	ModeInstallWorker:  "installWorker",
	ModeUpdateTopology: "updateTopology",
	ModeLegacyInstall:  "legacy",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts the bootstrap file "type" values.
func ParseMode(name string) (Mode, error) {
	for mode, n := range modeNames {
		if strings.EqualFold(n, name) {
			return mode, nil
		}
	}
	return ModeInstall, hestia_err.NewOptionsError("unknown installation type %q", name)
}

// Option keys as they appear on the command line and in bootstrap files.
const (
	KeyType                           = "type"
	KeyInstaller                      = "installer"
	KeySecretsFile                    = "secretsFile"
	KeyRegistrationFile               = "registrationFile"
	KeyConfigFile                     = "configFile"
	KeyNodeConfigurationFile          = "nodeConfigurationFile"
	KeyInstallDir                     = "installDir"
	KeyDataDir                        = "dataDir"
	KeyControllerPort                 = "controllerPort"
	KeyCoordinationServiceClientPort  = "coordinationserviceClientPort"
	KeyCoordinationServicePeerPort    = "coordinationservicePeerPort"
	KeyCoordinationServiceLeaderPort  = "coordinationserviceLeaderPort"
	KeyLicenseServiceVendorDaemonPort = "licenseserviceVendorDaemonPort"
	KeyAgentFileTransferPort          = "agentFileTransferPort"
	KeyPortRangeMin                   = "portRangeMin"
	KeyPortRangeMax                   = "portRangeMax"
	KeyPortRemappingEnabled           = "portRemappingEnabled"
	KeyStart                          = "start"
	KeySaveNodeConfiguration          = "saveNodeConfiguration"
	KeyNodeConfigurationDirectory     = "nodeConfigurationDirectory"
	KeyLicenseKey                     = "licenseKey"
	KeyAutorun                        = "autorun"
	KeyInstallerLog                   = "installerLog"
	KeyFirewallPublic                 = "firewallPublic"
)

const (
	DefaultInstallDir     = `C:\Program Files\Tableau\Tableau Server`
	DefaultDataDir        = `C:\ProgramData\Tableau\Tableau Server`
	DefaultControllerPort = "8850"
)

// Defaults returns the documented default for every optional key that has
// one. Optional keys missing here default to absent, which lets the external
// command pick its own value.
func Defaults() map[string]string {
	return map[string]string{
		KeyInstallDir:                 DefaultInstallDir,
		KeyDataDir:                    DefaultDataDir,
		KeyControllerPort:             DefaultControllerPort,
		KeyStart:                      "yes",
		KeySaveNodeConfiguration:      "yes",
		KeyNodeConfigurationDirectory: defaultNodeConfigurationPath(),
		KeyAutorun:                    "true",
		KeyFirewallPublic:             "false",
	}
}

// required lists the mandatory keys per mode, in the order they are checked.
var required = map[Mode][]string{
	ModeInstall:        {KeySecretsFile, KeyRegistrationFile, KeyConfigFile, KeyInstaller},
	ModeInstallWorker:  {KeySecretsFile, KeyNodeConfigurationFile, KeyInstaller},
	ModeUpdateTopology: {KeySecretsFile, KeyConfigFile},
	ModeLegacyInstall:  {KeySecretsFile, KeyRegistrationFile, KeyLicenseKey, KeyInstaller},
}

// Required returns the mandatory keys for mode.
func Required(mode Mode) []string {
	return append([]string(nil), required[mode]...)
}

// Options is the resolved configuration for one run. Empty optional ports
// mean the installer chooses.
type Options struct {
	Mode Mode

	Installer             string
	SecretsFile           string
	RegistrationFile      string
	ConfigFile            string
	NodeConfigurationFile string

	InstallDir     string
	DataDir        string
	ControllerPort string `validate:"required,numeric"`

	CoordinationServiceClientPort  string `validate:"omitempty,numeric"`
	CoordinationServicePeerPort    string `validate:"omitempty,numeric"`
	CoordinationServiceLeaderPort  string `validate:"omitempty,numeric"`
	LicenseServiceVendorDaemonPort string `validate:"omitempty,numeric"`
	AgentFileTransferPort          string `validate:"omitempty,numeric"`
	PortRangeMin                   string `validate:"omitempty,numeric"`
	PortRangeMax                   string `validate:"omitempty,numeric"`
	PortRemappingEnabled           string `validate:"omitempty,oneof=true false True False TRUE FALSE yes no 1 0"`

	Start                      string `validate:"oneof=yes no"`
	SaveNodeConfiguration      string `validate:"oneof=yes no"`
	NodeConfigurationDirectory string

	// Legacy single-node workflow.
	LicenseKey     string
	Autorun        bool
	InstallerLog   string
	FirewallPublic bool

	installedVersion string
}

func (o *Options) stringFields() map[string]*string {
	return map[string]*string{
		KeyInstaller:                      &o.Installer,
		KeySecretsFile:                    &o.SecretsFile,
		KeyRegistrationFile:               &o.RegistrationFile,
		KeyConfigFile:                     &o.ConfigFile,
		KeyNodeConfigurationFile:          &o.NodeConfigurationFile,
		KeyInstallDir:                     &o.InstallDir,
		KeyDataDir:                        &o.DataDir,
		KeyControllerPort:                 &o.ControllerPort,
		KeyCoordinationServiceClientPort:  &o.CoordinationServiceClientPort,
		KeyCoordinationServicePeerPort:    &o.CoordinationServicePeerPort,
		KeyCoordinationServiceLeaderPort:  &o.CoordinationServiceLeaderPort,
		KeyLicenseServiceVendorDaemonPort: &o.LicenseServiceVendorDaemonPort,
		KeyAgentFileTransferPort:          &o.AgentFileTransferPort,
		KeyPortRangeMin:                   &o.PortRangeMin,
		KeyPortRangeMax:                   &o.PortRangeMax,
		KeyPortRemappingEnabled:           &o.PortRemappingEnabled,
		KeyStart:                          &o.Start,
		KeySaveNodeConfiguration:          &o.SaveNodeConfiguration,
		KeyNodeConfigurationDirectory:     &o.NodeConfigurationDirectory,
		KeyLicenseKey:                     &o.LicenseKey,
		KeyInstallerLog:                   &o.InstallerLog,
	}
}

func (o *Options) boolFields() map[string]*bool {
	return map[string]*bool{
		KeyAutorun:        &o.Autorun,
		KeyFirewallPublic: &o.FirewallPublic,
	}
}

var validate = validator.New()

// Resolve builds Options from user supplied keys. Key matching ignores case.
// Defaults fill unspecified optional keys; the first missing required key
// for mode, in table order, is reported as a MissingOptionError. Null or
// empty values count as not supplied.
func Resolve(user map[string]any, mode Mode) (*Options, error) {
	values := make(map[string]string, len(user))
	for key, raw := range user {
		if s, ok := stringify(raw); ok && s != "" {
			values[strings.ToLower(key)] = s
		}
	}

	for _, key := range required[mode] {
		if _, ok := values[strings.ToLower(key)]; !ok {
			return nil, hestia_err.NewMissingOption(key)
		}
	}

	opts := &Options{Mode: mode}
	defaults := Defaults()
	lookup := func(key string) string {
		if v, ok := values[strings.ToLower(key)]; ok {
			return v
		}
		return defaults[key]
	}

	for key, field := range opts.stringFields() {
		*field = lookup(key)
	}
	for key, field := range opts.boolFields() {
		b, err := strconv.ParseBool(lookup(key))
		if err != nil {
			return nil, hestia_err.WrapOptionsError(err, "invalid value for %q", key)
		}
		*field = b
	}

	if err := validate.Struct(opts); err != nil {
		return nil, hestia_err.WrapOptionsError(err, "invalid options")
	}
	return opts, nil
}

// SetInstalledVersion records the product version reported by the installer.
// Only the first non-empty value is kept.
func (o *Options) SetInstalledVersion(version string) {
	if o.installedVersion == "" {
		o.installedVersion = strings.TrimSpace(version)
	}
}

// InstalledVersion returns the version discovered after the installer ran.
func (o *Options) InstalledVersion() string {
	return o.installedVersion
}

// UsesDefaultControllerPort reports whether admin tool calls can rely on
// the tool's own default server address.
func (o *Options) UsesDefaultControllerPort() bool {
	return o.ControllerPort == DefaultControllerPort
}

func stringify(raw any) (string, bool) {
	switch v := raw.(type) {
	case nil:
		return "", false
	case string:
		return strings.TrimSpace(v), true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return fmt.Sprint(v), true
	}
}

func defaultNodeConfigurationPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "nodeConfiguration.json"
	}
	return filepath.Join(filepath.Dir(exe), "nodeConfiguration.json")
}
