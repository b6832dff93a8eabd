package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIDFile_AcquireAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskdesk.pid")
	pf := NewPIDFile(path)

	require.NoError(t, pf.Acquire())

	pid, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestPIDFile_Acquire_HeldByLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskdesk.pid")
	pf := NewPIDFile(path)

	// The current process holds the file, so a second acquire fails.
	require.NoError(t, pf.Acquire())
	err := pf.Acquire()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestPIDFile_Acquire_OverwritesStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskdesk.pid")
	pf := NewPIDFile(path)

	// Garbage content counts as stale.
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid\n"), 0o644))
	require.NoError(t, pf.Acquire())

	pid, err := pf.Read()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestPIDFile_Release(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskdesk.pid")
	pf := NewPIDFile(path)

	require.NoError(t, pf.Acquire())
	require.NoError(t, pf.Release())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Releasing again is a no-op.
	assert.NoError(t, pf.Release())
}

func TestPIDFile_Read_MissingFile(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "nonexistent.pid"))

	_, err := pf.Read()
	assert.Error(t, err)
}
