package hestia_err

import (
	"errors"
	"fmt"
	"testing"

	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitSuccess},
		{name: "plain error", err: errors.New("boom"), want: ExitFailure},
		{name: "existing installation", err: &ExistingInstallationError{Service: "Tableau Server"}, want: ExitExistingInstallation},
		{name: "missing option", err: NewMissingOption("secretsFile"), want: ExitOptions},
		{name: "options error", err: NewOptionsError("bad %s", "value"), want: ExitOptions},
		{name: "missing executable", err: &MissingExecutableError{Path: `C:\x\tsm.cmd`}, want: ExitOptions},
		{name: "command failed", err: &CommandFailedError{Path: "setup.exe", ExitCode: 7}, want: ExitCommand},
		{name: "validation", err: NewValidationError("secrets.json", "malformed", nil), want: ExitValidation},
		{
			name: "command failed behind step and hint wrappers",
			err:  WithRemediation(WrapStep(&CommandFailedError{Path: "tsm.cmd", ExitCode: 1}, "register"), "check credentials"),
			want: ExitCommand,
		},
		{
			name: "fmt wrapped options error",
			err:  fmt.Errorf("resolve: %w", NewMissingOption("installer")),
			want: ExitOptions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestCommandFailedErrorCarriesExitCode(t *testing.T) {
	t.Parallel()

	err := WrapStep(&CommandFailedError{Path: `C:\setup.exe`, ExitCode: 30}, "run worker installer")

	var failed *CommandFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, 30, failed.ExitCode)
	assert.Equal(t, `C:\setup.exe`, failed.Path)
	assert.Contains(t, err.Error(), "run worker installer failed")
}

func TestMissingOptionNamesField(t *testing.T) {
	t.Parallel()

	err := NewMissingOption("nodeConfigurationFile")
	assert.Equal(t, `"nodeConfigurationFile" not specified`, err.Error())
}

func TestAsValidation(t *testing.T) {
	t.Parallel()

	assert.Nil(t, AsValidation(nil, "x"))

	converted := AsValidation(NewOptionsError("could not open json file"), "secrets.json")
	assert.Equal(t, CategoryValidation, CategoryOf(converted))
	assert.Contains(t, converted.Error(), "secrets.json")

	failed := &CommandFailedError{Path: "a", ExitCode: 2}
	assert.Same(t, failed, AsValidation(failed, "secrets.json"))
}

func TestHints(t *testing.T) {
	t.Parallel()

	err := WithRemediation(cerr.New("no admin tool"), "pass --installDir")
	assert.Contains(t, Hints(err), "pass --installDir")
	assert.Nil(t, WithRemediation(nil, "ignored"))
}
