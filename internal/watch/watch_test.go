package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatch(t *testing.T, root string, opts Options) *atomic.Int32 {
	t.Helper()
	var calls atomic.Int32
	ready := make(chan struct{})
	opts.Ready = ready
	opts.Debounce = 50 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, root, opts, func(context.Context) { calls.Add(1) })
	}()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("watch exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch not ready")
	}
	return &calls
}

func TestRun_TriggersOnPHPChange(t *testing.T) {
	root := t.TempDir()
	calls := startWatch(t, root, Options{})

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "a.php"), []byte("<?php echo 1;"), 0o644))
	}
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)
}

func TestRun_IgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	calls := startWatch(t, root, Options{})

	require.NoError(t, os.WriteFile(filepath.Join(root, ".phpguardcache.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestRun_NewDirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	calls := startWatch(t, root, Options{})

	sub := filepath.Join(root, "includes")
	require.NoError(t, os.Mkdir(sub, 0o755))
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)

	before := calls.Load()
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "b.php"), []byte("<?php"), 0o644))
	assert.Eventually(t, func() bool { return calls.Load() > before }, 5*time.Second, 20*time.Millisecond)
}

func TestRun_SkipDir(t *testing.T) {
	root := t.TempDir()
	skipped := filepath.Join(root, "node_modules")
	require.NoError(t, os.Mkdir(skipped, 0o755))
	calls := startWatch(t, root, Options{SkipDir: func(rel string) bool { return rel == "node_modules" }})

	require.NoError(t, os.WriteFile(filepath.Join(skipped, "x.php"), []byte("<?php"), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}
