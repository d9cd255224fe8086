package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackup_MissingFile_ReturnsEmpty(t *testing.T) {
	path, err := Backup(filepath.Join(t.TempDir(), ProjectFileName))

	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestBackup_KeepsNewest(t *testing.T) {
	// Given: a config file
	path := filepath.Join(t.TempDir(), ProjectFileName)
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0644))

	// When: backing it up more times than are kept
	var last string
	for i := 0; i < MaxBackups+2; i++ {
		b, err := Backup(path)
		require.NoError(t, err)
		last = b
	}

	// Then: only MaxBackups remain, newest first
	backups, err := ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, MaxBackups)
	assert.Equal(t, last, backups[0])
}

func TestRestore_ReplacesAndBacksUpCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), ProjectFileName)
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0644))
	backup, err := Backup(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("version: 2\n"), 0644))

	// When: restoring the backup
	require.NoError(t, Restore(path, backup))

	// Then: the old content is back and the replaced one was saved
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(data))
	backups, err := ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, 2)
}
