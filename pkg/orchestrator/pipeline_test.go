// pkg/orchestrator/pipeline_test.go

package orchestrator

import (
	"testing"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/options"
	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSteps(t *testing.T) {
	t.Parallel()

	var ran []string
	record := func(name string) func(*hestia_io.RuntimeContext) error {
		return func(*hestia_io.RuntimeContext) error {
			ran = append(ran, name)
			return nil
		}
	}
	report := &Report{Mode: options.ModeInstall}

	err := runSteps(testRC(t), report, []Step{
		{Name: "first", Run: record("first"), Done: "first done"},
		{Name: "gated", When: func() bool { return false }, Run: record("gated")},
		{Name: "second", When: func() bool { return true }, Run: record("second")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, ran)
	assert.Equal(t, []string{"first", "second"}, report.Completed())
	require.Len(t, report.Steps, 3)
	assert.Equal(t, StepSkipped, report.Steps[1].Status)
}

func TestRunSteps_StopsAndWraps(t *testing.T) {
	t.Parallel()

	cause := &hestia_err.MissingExecutableError{Path: "tabadmin.exe", Root: `C:\Tableau`}
	var ran []string
	report := &Report{Mode: options.ModeLegacyInstall}

	err := runSteps(testRC(t), report, []Step{
		{Name: stepLocateBinaries, Run: func(*hestia_io.RuntimeContext) error { return cause }},
		{Name: stepStart, Run: func(*hestia_io.RuntimeContext) error {
			ran = append(ran, stepStart)
			return nil
		}},
	})
	require.Error(t, err)
	assert.Empty(t, ran)
	assert.Contains(t, err.Error(), stepLocateBinaries+" failed")

	var missing *hestia_err.MissingExecutableError
	require.True(t, cerr.As(err, &missing))
	assert.Equal(t, hestia_err.ExitOptions, hestia_err.GetExitCode(err))
	assert.Equal(t, []string{`Check that tabadmin.exe exists under C:\Tableau and that installDir points at the installation`}, hestia_err.Hints(err))

	require.Len(t, report.Steps, 1)
	assert.Equal(t, StepFailed, report.Steps[0].Status)
	assert.Same(t, cause, report.Steps[0].Err)
}

func TestSuggestedRemediation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		step string
		err  error
		want string
	}{
		{"existing", stepPreflight, &hestia_err.ExistingInstallationError{Service: "Tableau Server"}, "Uninstall the existing server or run hestia on a clean machine"},
		{"installer", stepRunInstaller, &hestia_err.CommandFailedError{Path: "setup.exe", ExitCode: 4}, "Review the installer log shown above"},
		{"tool", stepRegister, &hestia_err.CommandFailedError{Path: "tsm.cmd", ExitCode: 1}, "Fix the cause reported by tsm.cmd and rerun hestia"},
		{"option", stepRegister, hestia_err.NewMissingOption("configFile"), "Provide the configFile option on the command line or in the bootstrap file"},
		{"plain", stepRegister, cerr.New("boom"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, suggestedRemediation(tt.step, tt.err))
		})
	}
}
