package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedBuffer lets the test read output while the command is still writing.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchCommand(t *testing.T) {
	dir := writeCLIConfig(t)
	rootConfigPath, rootOwner, rootDebug, rootOutput = "", "", false, "table"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out lockedBuffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"watch", "--debounce", "100ms", "--config-path", dir})

	done := make(chan error, 1)
	go func() { done <- rootCmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "synced 6 instances")
	}, 10*time.Second, 20*time.Millisecond)

	// Drop db from the topology.
	trimmed := strings.Replace(cliTopology, "  - id: db\n    name: db\n", "", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "topology.yaml"), []byte(trimmed), 0o600))

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "synced 5 instances: 0 edges added, 0 removed, 1 nodes deleted")
	}, 10*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
