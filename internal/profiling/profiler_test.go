package profiling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nonEmpty(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestSession_WritesAllProfiles(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		CPU:   filepath.Join(dir, "cpu.prof"),
		Heap:  filepath.Join(dir, "heap.prof"),
		Trace: filepath.Join(dir, "trace.out"),
	}
	require.True(t, opts.Enabled())

	s, err := Start(opts)
	require.NoError(t, err)

	sum := 0
	for i := 0; i < 1000000; i++ {
		sum += i
	}
	_ = sum

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())

	nonEmpty(t, opts.CPU)
	nonEmpty(t, opts.Heap)
	nonEmpty(t, opts.Trace)
}

func TestSession_NothingRequested(t *testing.T) {
	assert.False(t, Options{}.Enabled())

	s, err := Start(Options{})
	require.NoError(t, err)
	assert.NoError(t, s.Stop())

	var nilSession *Session
	assert.NoError(t, nilSession.Stop())
}

func TestStart_BadTracePathStopsCPU(t *testing.T) {
	dir := t.TempDir()
	_, err := Start(Options{
		CPU:   filepath.Join(dir, "cpu.prof"),
		Trace: filepath.Join(dir, "missing", "trace.out"),
	})
	require.Error(t, err)

	// The CPU profiler was released, so a new session can start.
	s, err := Start(Options{CPU: filepath.Join(dir, "cpu2.prof")})
	require.NoError(t, err)
	require.NoError(t, s.Stop())
}

func TestWriteHeap_BadPath(t *testing.T) {
	err := WriteHeap(filepath.Join(t.TempDir(), "missing", "heap.prof"))
	assert.Error(t, err)
}

func TestHeapInUse(t *testing.T) {
	assert.Greater(t, HeapInUse(), uint64(0))
}
