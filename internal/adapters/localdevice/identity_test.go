package localdevice

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesIdentityOnFirstLaunch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "device_id")

	ident, err := Load(path)
	require.NoError(t, err)
	require.NotEmpty(t, ident.DeviceStableID())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), ident.DeviceStableID())
}

func TestLoadReturnsSameIdentityAcrossLaunches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_id")

	first, err := Load(path)
	require.NoError(t, err)

	second, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, first.DeviceStableID(), second.DeviceStableID())
}

func TestLoadIgnoresSurroundingWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_id")
	require.NoError(t, os.WriteFile(path, []byte("  abc-123\n"), 0o600))

	ident, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", ident.DeviceStableID())
}

func TestLoadRegeneratesFromEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_id")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o600))

	ident, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, ident.DeviceStableID())
}

func TestLoadRequiresPath(t *testing.T) {
	_, err := Load("  ")
	assert.Error(t, err)
}

func TestStatic(t *testing.T) {
	assert.Equal(t, "fixed-id", Static("fixed-id").DeviceStableID())
}
