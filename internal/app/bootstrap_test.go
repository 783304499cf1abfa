package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tether/internal/config"
	"tether/pkg/logging"
)

func TestNewApplication_PrepopulatedConfig(t *testing.T) {
	t.Cleanup(logging.Reset)
	tc := testConfig(t)

	cfg := NewConfig(true, true, "")
	cfg.TetherConfig = &tc

	a, err := NewApplication(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Services().Deps)
	assert.Equal(t, config.GraphDriverMemory, a.Config().Graph.Driver)
}

func TestNewApplication_LoadsFromPath(t *testing.T) {
	t.Cleanup(logging.Reset)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
logging:
  format: json
graph:
  driver: memory
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "topology.yaml"), []byte(topology), 0o600))

	a, err := NewApplication(context.Background(), NewConfig(false, true, dir))
	require.NoError(t, err)
	defer a.Close()

	all, err := a.Services().Directory.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestNewApplication_InvalidConfig(t *testing.T) {
	t.Cleanup(logging.Reset)
	tc := testConfig(t)
	tc.Isolation.MaxConcurrency = 0

	cfg := NewConfig(false, true, "")
	cfg.TetherConfig = &tc

	_, err := NewApplication(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "isolation.maxConcurrency")
}

func TestNewApplication_MalformedConfigFile(t *testing.T) {
	t.Cleanup(logging.Reset)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("graph: [\n"), 0o600))

	_, err := NewApplication(context.Background(), NewConfig(false, true, dir))
	assert.Error(t, err)
}
