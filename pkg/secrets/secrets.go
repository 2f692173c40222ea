// Package secrets loads the administrative credentials and license keys used
// by the install workflows. Values are held in memory only, passed to child
// processes as arguments or scoped environment, and redacted from logs.
package secrets

import (
	"context"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/options"
	"go.uber.org/zap/zapcore"
)

// TrialKey is the reserved product key value that requests a trial activation.
const TrialKey = "trial"

const redacted = "***"

// Secrets mirrors the secrets file.
type Secrets struct {
	ContentAdminUser string   `json:"content_admin_user" yaml:"content_admin_user"`
	ContentAdminPass string   `json:"content_admin_pass" yaml:"content_admin_pass"`
	LocalAdminUser   string   `json:"local_admin_user" yaml:"local_admin_user"`
	LocalAdminPass   string   `json:"local_admin_pass" yaml:"local_admin_pass"`
	ProductKeys      []string `json:"product_keys" yaml:"product_keys"`
	RunAsUser        string   `json:"runas_user" yaml:"runas_user"`
	RunAsPass        string   `json:"runas_pass" yaml:"runas_pass"`
}

// Load reads the secrets file at path.
func Load(ctx context.Context, path string) (*Secrets, error) {
	var s Secrets
	if err := hestia_io.ReadStructuredFile(ctx, path, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that the keys the workflow for mode needs are present.
func (s *Secrets) Validate(mode options.Mode) error {
	check := []struct {
		key   string
		value string
	}{
		{"content_admin_user", s.ContentAdminUser},
		{"content_admin_pass", s.ContentAdminPass},
	}
	switch mode {
	case options.ModeInstall, options.ModeInstallWorker, options.ModeUpdateTopology:
		check = append(check,
			struct{ key, value string }{"local_admin_user", s.LocalAdminUser},
			struct{ key, value string }{"local_admin_pass", s.LocalAdminPass},
		)
	}
	for _, c := range check {
		if !IsSet(c.value) {
			return hestia_err.NewOptionsError("the secrets file does not contain %q", c.key)
		}
	}
	return nil
}

// Licenses is product_keys split into the trial marker and literal keys.
type Licenses struct {
	Trial bool
	// Keys are the non-empty, non-trial keys in file order. Whitespace-only
	// keys are passed through.
	Keys []string
}

// Licenses classifies ProductKeys. The trial marker is matched exactly.
func (s *Secrets) Licenses() Licenses {
	var l Licenses
	for _, key := range s.ProductKeys {
		switch {
		case key == TrialKey:
			l.Trial = true
		case key == "":
		default:
			l.Keys = append(l.Keys, key)
		}
	}
	return l
}

// HasRunAs reports whether either half of the legacy service account is set.
func (s *Secrets) HasRunAs() bool {
	return IsSet(s.RunAsUser) || IsSet(s.RunAsPass)
}

// IsSet reports whether v holds anything besides whitespace.
func IsSet(v string) bool {
	return strings.TrimSpace(v) != ""
}

// MarshalLogObject lets a Secrets value be passed to zap.Object without
// leaking credentials.
func (s *Secrets) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("content_admin_user", s.ContentAdminUser)
	enc.AddString("content_admin_pass", mask(s.ContentAdminPass))
	enc.AddString("local_admin_user", s.LocalAdminUser)
	enc.AddString("local_admin_pass", mask(s.LocalAdminPass))
	enc.AddInt("product_keys", len(s.ProductKeys))
	enc.AddString("runas_user", s.RunAsUser)
	enc.AddString("runas_pass", mask(s.RunAsPass))
	return nil
}

// String keeps credentials out of %v formatting.
func (s *Secrets) String() string {
	return "secrets{content_admin_user=" + s.ContentAdminUser + ", passwords=" + redacted + "}"
}

func mask(v string) string {
	if v == "" {
		return ""
	}
	return redacted
}
