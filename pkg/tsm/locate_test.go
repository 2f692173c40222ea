package tsm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLocateLatest(t *testing.T) {
	t.Parallel()

	rc := hestia_io.NewTestContext(context.Background(), zaptest.NewLogger(t))
	root := t.TempDir()
	testutil.Touch(t, root, "packages", "bin.20231.23.0101.1234", TSMBinary)
	testutil.Touch(t, root, "packages", "bin.20232.23.1017.0948", TSMBinary)
	testutil.Touch(t, root, "packages", "bin.20241.24.0101.0000", "other.exe")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "packages", "bin.notaversion"), 0755))
	testutil.Touch(t, root, "packages", "bin.99999.txt")

	dir, version, err := LocateLatest(rc, root)
	require.NoError(t, err)
	assert.Equal(t, "20232.23.1017.0948", version)
	assert.Equal(t, filepath.Join(root, "packages", "bin.20232.23.1017.0948"), dir)
}

func TestLocateLatest_NumericOrdering(t *testing.T) {
	t.Parallel()

	rc := hestia_io.NewTestContext(context.Background(), zaptest.NewLogger(t))
	root := t.TempDir()
	testutil.Touch(t, root, "packages", "bin.9.3.1", TSMBinary)
	testutil.Touch(t, root, "packages", "bin.10.0.0", TSMBinary)

	_, version, err := LocateLatest(rc, root)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0", version)
}

func TestLocateLatest_NotFound(t *testing.T) {
	t.Parallel()

	rc := hestia_io.NewTestContext(context.Background(), zaptest.NewLogger(t))
	root := t.TempDir()

	_, _, err := LocateLatest(rc, root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Could not find tsm under directory "+root)
	assert.Equal(t, hestia_err.ExitOptions, hestia_err.GetExitCode(err))
}
