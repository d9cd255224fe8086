package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_Messages(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Successf("indexed %d records", 3)
	w.Warning("indexing disabled")
	w.Errorf("unit %s not found", "Entry")
	w.Hint("run 'ftsync reindex'")
	w.Newline()

	assert.Equal(t, "✓ indexed 3 records\n! indexing disabled\n✗ unit Entry not found\n  run 'ftsync reindex'\n\n", buf.String())
}

func TestWriter_Table(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Table([]string{"ID", "TITLE"}, [][]string{
		{"1", "chuck norris"},
		{"12", "ünïcode"},
	})

	assert.Equal(t, "ID  TITLE\n1   chuck norris\n12  ünïcode\n", buf.String())
}
