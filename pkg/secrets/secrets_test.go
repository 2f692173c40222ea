package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/options"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLicenses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		keys      []string
		wantTrial bool
		wantKeys  []string
	}{
		{"trial and keys", []string{"trial", "KEY1", "", "KEY2"}, true, []string{"KEY1", "KEY2"}},
		{"no keys", nil, false, nil},
		{"trial is case sensitive", []string{"Trial", "KEY1"}, false, []string{"Trial", "KEY1"}},
		{"trial after keys", []string{"KEY1", "trial"}, true, []string{"KEY1"}},
		{"empty entries skipped", []string{""}, false, nil},
		{"whitespace entries kept", []string{" ", ""}, false, []string{" "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := (&Secrets{ProductKeys: tt.keys}).Licenses()
			assert.Equal(t, tt.wantTrial, got.Trial)
			assert.Equal(t, tt.wantKeys, got.Keys)
		})
	}
}

func TestHasRunAs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sec  Secrets
		want bool
	}{
		{"neither", Secrets{}, false},
		{"whitespace only", Secrets{RunAsUser: " ", RunAsPass: "\t"}, false},
		{"user only", Secrets{RunAsUser: `DOMAIN\svc`}, true},
		{"password only", Secrets{RunAsPass: "svc"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.sec.HasRunAs())
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	content := &Secrets{ContentAdminUser: "admin", ContentAdminPass: "pw"}
	full := &Secrets{ContentAdminUser: "admin", ContentAdminPass: "pw", LocalAdminUser: "local", LocalAdminPass: "lpw"}

	assert.NoError(t, content.Validate(options.ModeLegacyInstall))
	assert.NoError(t, full.Validate(options.ModeInstall))

	for _, mode := range []options.Mode{options.ModeInstall, options.ModeInstallWorker, options.ModeUpdateTopology} {
		err := content.Validate(mode)
		require.Error(t, err, mode.String())
		assert.Contains(t, err.Error(), "local_admin_user")
		assert.Equal(t, hestia_err.ExitOptions, hestia_err.GetExitCode(err))
	}

	err := (&Secrets{ContentAdminUser: "admin"}).Validate(options.ModeLegacyInstall)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content_admin_pass")
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "secrets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"content_admin_user": "admin",
		"content_admin_pass": "pw",
		"product_keys": ["trial", "KEY1"]
	}`), 0600))

	s, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "admin", s.ContentAdminUser)
	assert.Equal(t, []string{"trial", "KEY1"}, s.ProductKeys)

	_, err = Load(context.Background(), filepath.Join(t.TempDir(), "none.json"))
	assert.Equal(t, hestia_err.ExitOptions, hestia_err.GetExitCode(err))
}

func TestSecretsAreRedactedInLogs(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	s := &Secrets{ContentAdminUser: "admin", ContentAdminPass: "hunter2", LocalAdminPass: "p@ss", RunAsPass: "svc"}
	zap.New(core).Info("Loaded secrets", zap.Object("secrets", s), zap.Stringer("summary", s))

	entry := logs.All()[0]
	for _, value := range []string{"hunter2", "p@ss", "svc"} {
		assert.NotContains(t, fmt.Sprint(entry.ContextMap()), value)
	}
	assert.Equal(t, "admin", entry.ContextMap()["secrets"].(map[string]any)["content_admin_user"])
}
