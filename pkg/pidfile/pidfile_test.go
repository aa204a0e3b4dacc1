package pidfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deadPID is outside the default pid range on Linux, so no process can
// hold it.
const deadPID = 1 << 23

func TestWriteRecordsCurrentProcess(t *testing.T) {
	path := Path(t.TempDir())
	require.NoError(t, Write(path, 0))

	pid, ok := Read(path)
	require.True(t, ok)
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, Alive(pid))
}

func TestWriteRefusesLiveDaemon(t *testing.T) {
	path := Path(t.TempDir())
	require.NoError(t, Write(path, os.Getpid()))

	err := Write(path, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestWriteReplacesStaleFile(t *testing.T) {
	home := t.TempDir()
	path := Path(home)
	require.NoError(t, os.WriteFile(path, []byte("8388608\n"), 0o600))

	require.NoError(t, Write(path, 0))
	pid, ok := Read(path)
	require.True(t, ok)
	assert.Equal(t, os.Getpid(), pid)
}

func TestReadRemovesMalformedFile(t *testing.T) {
	path := Path(t.TempDir())
	require.NoError(t, os.WriteFile(path, []byte("not a pid"), 0o600))

	_, ok := Read(path)
	assert.False(t, ok)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestReadRemovesStaleFile(t *testing.T) {
	path := Path(t.TempDir())
	require.NoError(t, os.WriteFile(path, []byte("8388608\n"), 0o600))

	_, ok := Read(path)
	assert.False(t, ok)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestReadMissingFile(t *testing.T) {
	_, ok := Read(filepath.Join(t.TempDir(), "daemon.pid"))
	assert.False(t, ok)
}

func TestAliveDeadPid(t *testing.T) {
	assert.False(t, Alive(deadPID))
	assert.False(t, Alive(0))
	assert.False(t, Alive(-1))
}

func TestStopWithoutDaemon(t *testing.T) {
	path := Path(t.TempDir())
	_, ok := Stop(path)
	assert.False(t, ok)

	// Stale file is cleaned up even though nothing was signalled.
	require.NoError(t, os.WriteFile(path, []byte("8388608\n"), 0o600))
	_, ok = Stop(path)
	assert.False(t, ok)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
