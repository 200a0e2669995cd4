package transport

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWatcher_NotifiesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mock.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoints: []\n"), 0o644))

	notifier := &countingNotifier{}
	fw, err := NewFileWatcher(path, notifier)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		fw.Start(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// arquivos vizinhos não disparam reload
	require.NoError(t, os.WriteFile(filepath.Join(dir, "outro.txt"), []byte("x"), 0o644))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, notifier.calls.Load())

	require.NoError(t, os.WriteFile(path, []byte("endpoints: [{}]\n"), 0o644))
	assert.Eventually(t, func() bool { return notifier.calls.Load() > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestFileWatcher_AtomicRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mock.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	notifier := &countingNotifier{}
	fw, err := NewFileWatcher(path, notifier)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fw.Start(ctx)

	tmp := filepath.Join(dir, ".mock.yaml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("b"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	assert.Eventually(t, func() bool { return notifier.calls.Load() > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestNewFileWatcher_MissingDirectory(t *testing.T) {
	_, err := NewFileWatcher(filepath.Join(t.TempDir(), "nao", "existe.yaml"), &countingNotifier{})
	assert.Error(t, err)
}
