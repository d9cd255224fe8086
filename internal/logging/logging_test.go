package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogPath_UnderFtsyncDir(t *testing.T) {
	path := DefaultLogPath()

	assert.Equal(t, "ftsync.log", filepath.Base(path))
	assert.True(t, strings.HasSuffix(filepath.Dir(path), filepath.Join(".ftsync", "logs")))
}

func TestDebugConfig(t *testing.T) {
	cfg := DebugConfig()

	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, DefaultLogPath(), cfg.FilePath)
	assert.True(t, cfg.WriteToStderr)
}

func TestSetup_WritesJSONToFileAndStderr(t *testing.T) {
	// Given: a file logger that tees to a buffer
	var stderr bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "ftsync.log")
	logger, cleanup, err := Setup(Config{
		Level: "debug", FilePath: path, MaxSizeMB: 1, MaxFiles: 2,
		WriteToStderr: true, Stderr: &stderr,
	})
	require.NoError(t, err)

	// When: logging an event
	logger.Debug("index_commit", slog.String("unit", "Entry"), slog.Int("ops", 2))
	cleanup()

	// Then: both sinks got the JSON line
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &line))
	assert.Equal(t, "index_commit", line["msg"])
	assert.Equal(t, "Entry", line["unit"])
	assert.Equal(t, string(data), stderr.String())
}

func TestSetup_NoFile_TextToStderr(t *testing.T) {
	var stderr bytes.Buffer
	logger, cleanup, err := Setup(Config{Level: "warn", Stderr: &stderr})
	require.NoError(t, err)
	defer cleanup()

	logger.Info("hidden")
	logger.Warn("route_handler_failed", slog.String("unit", "Entry"))

	out := stderr.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "route_handler_failed")
	assert.Contains(t, out, "unit=Entry")
}

func TestLevelFromString(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, LevelFromString(in), in)
	}
}

func TestFindLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.log")

	_, err := FindLogFile(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))
	got, err := FindLogFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestRotatingWriter_RotatesAndCapsFiles(t *testing.T) {
	// Given: a writer with a tiny size limit and two kept files
	path := filepath.Join(t.TempDir(), "rotate.log")
	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer w.Close()
	w.maxSize = 16

	// When: writing more than the limit several times
	for i := 0; i < 5; i++ {
		_, err := w.Write([]byte("0123456789abcdef\n"))
		require.NoError(t, err)
	}

	// Then: the current file and two rotations remain
	assert.FileExists(t, path)
	assert.FileExists(t, path+".1")
	assert.FileExists(t, path+".2")
	assert.NoFileExists(t, path+".3")
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent.log")
	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_, _ = w.Write([]byte("line\n"))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 200, strings.Count(string(data), "line\n"))
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	w, err := NewRotatingWriter(filepath.Join(t.TempDir(), "c.log"), 1, 1)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("x"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

const sampleLog = `{"time":"2026-01-02T03:04:05.000Z","level":"DEBUG","msg":"index_commit","unit":"Entry","ops":2}
not json
{"time":"2026-01-02T03:04:06.000Z","level":"WARN","msg":"route_handler_failed","unit":"User"}
{"time":"2026-01-02T03:04:07.000Z","level":"ERROR","msg":"route_commit_failed","unit":"Entry"}
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ftsync.log")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o644))
	return path
}

func TestViewer_Tail_LastLines(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, nil)

	entries, err := v.Tail(writeSample(t), 2)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "route_handler_failed", entries[0].Msg)
	assert.Equal(t, "route_commit_failed", entries[1].Msg)
}

func TestViewer_Tail_Filters(t *testing.T) {
	path := writeSample(t)

	byLevel, err := NewViewer(ViewerConfig{Level: "warn"}, nil).Tail(path, 10)
	require.NoError(t, err)
	require.Len(t, byLevel, 2)

	byPattern, err := NewViewer(ViewerConfig{Pattern: regexp.MustCompile(`"unit":"Entry"`)}, nil).Tail(path, 10)
	require.NoError(t, err)
	require.Len(t, byPattern, 2)
	assert.Equal(t, "index_commit", byPattern[0].Msg)
}

func TestViewer_Tail_MissingFile(t *testing.T) {
	_, err := NewViewer(ViewerConfig{}, nil).Tail(filepath.Join(t.TempDir(), "none.log"), 5)
	assert.Error(t, err)
}

func TestViewer_FormatEntry(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, nil)

	valid := parseLine(`{"time":"2026-01-02T03:04:05.000Z","level":"debug","msg":"index_commit","ops":2,"unit":"Entry"}`)
	assert.Equal(t, "03:04:05.000 DEBUG index_commit ops=2 unit=Entry", v.FormatEntry(valid))

	invalid := parseLine("plain text")
	assert.False(t, invalid.IsValid)
	assert.Equal(t, "plain text", v.FormatEntry(invalid))
}

func TestViewer_Print(t *testing.T) {
	var out bytes.Buffer
	v := NewViewer(ViewerConfig{NoColor: true}, &out)

	v.Print([]LogEntry{parseLine("a"), parseLine("b")})

	assert.Equal(t, "a\nb\n", out.String())
}

func TestViewer_Follow_SeesAppendedLines(t *testing.T) {
	// Given: a follower on an existing log
	path := writeSample(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	entries := make(chan LogEntry, 4)
	done := make(chan error, 1)
	go func() { done <- NewViewer(ViewerConfig{}, nil).Follow(ctx, path, entries) }()

	// When: a line is appended after following starts
	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"level":"INFO","msg":"reindex_complete"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// Then: only the new line is delivered
	select {
	case e := <-entries:
		assert.Equal(t, "reindex_complete", e.Msg)
	case <-ctx.Done():
		t.Fatal("no entry followed")
	}
	cancel()
	assert.NoError(t, <-done)
}
