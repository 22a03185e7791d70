package rewrite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contracts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("force_debug: true\n"), 0o644))

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, Options{ForceDebug: true}, opts)
}

func TestLoadOptions_MissingFileIsZero(t *testing.T) {
	opts, err := LoadOptions(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Options{}, opts)
}

func TestLoadOptions_RejectsConflicts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contracts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("disable_all: true\nforce_log_only: true\n"), 0o644))

	_, err := LoadOptions(path)
	require.Error(t, err)
}

func TestLoadOptions_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contracts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\t not yaml"), 0o644))

	_, err := LoadOptions(path)
	require.Error(t, err)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, Options{}.Validate())
	assert.NoError(t, Options{DisableAll: true}.Validate())
	assert.NoError(t, Options{ForceDebug: true}.Validate())
	assert.NoError(t, Options{ForceLogOnly: true}.Validate())
	assert.Error(t, Options{DisableAll: true, ForceDebug: true}.Validate())
	assert.Error(t, Options{ForceDebug: true, ForceLogOnly: true}.Validate())
}
