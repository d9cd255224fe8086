package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderer_NonTTYIsPlain(t *testing.T) {
	var buf bytes.Buffer

	r := NewRenderer(NewConfig(&buf))

	_, ok := r.(*PlainRenderer)
	assert.True(t, ok)
	assert.False(t, IsTTY(&buf))
}

func TestNewTUIRenderer_RejectsNonTTY(t *testing.T) {
	_, err := NewTUIRenderer(NewConfig(&bytes.Buffer{}))
	assert.Error(t, err)
}

func TestPlainRenderer_PrintsBoundariesAndSummary(t *testing.T) {
	// Given: a plain renderer
	var buf bytes.Buffer
	r := NewPlainRenderer(NewConfig(&buf))
	require.NoError(t, r.Start(context.Background()))

	// When: a unit progresses, another fails, and the run completes
	r.UpdateProgress(ProgressEvent{Unit: "Entry", Type: "Entry", Current: 1, Total: 2})
	r.UpdateProgress(ProgressEvent{Unit: "Entry", Type: "Entry", Current: 2, Total: 2})
	r.UpdateProgress(ProgressEvent{Unit: "Entry", Done: true})
	r.AddError(ErrorEvent{Unit: "User", Err: errors.New("boom")})
	r.Complete(CompletionStats{
		Units:    []UnitSummary{{Unit: "Entry", Records: 2, Removed: 1, Duration: 3 * time.Millisecond}},
		Duration: 250 * time.Millisecond,
		Errors:   1,
	})
	require.NoError(t, r.Stop())

	// Then: intermediate counts are skipped
	out := buf.String()
	assert.NotContains(t, out, "1/2")
	assert.Contains(t, out, "[INDEX] Entry/Entry 2/2\n")
	assert.Contains(t, out, "[INDEX] Entry done\n")
	assert.Contains(t, out, "ERROR: User: boom\n")
	assert.Contains(t, out, "Complete: 1 units, 2 records indexed in 300ms (1 errors)\n")
	assert.Contains(t, out, "Entry")
}

func TestProgressTracker_CountsRecordsAcrossTypes(t *testing.T) {
	p := NewProgressTracker()

	p.Update(ProgressEvent{Unit: "EntryUser", Type: "Entry", Current: 1, Total: 3})
	p.Update(ProgressEvent{Unit: "EntryUser", Type: "Entry", Current: 3, Total: 3})
	p.Update(ProgressEvent{Unit: "EntryUser", Type: "User", Current: 2, Total: 2})
	p.Update(ProgressEvent{Unit: "Other", Type: "Other", Current: 0, Total: 0})
	p.AddError(ErrorEvent{Unit: "Other", Err: errors.New("x")})
	p.Update(ProgressEvent{Unit: "EntryUser", Done: true})

	assert.Equal(t, 5, p.Records())
	units := p.Units()
	require.Len(t, units, 2)
	assert.Equal(t, "EntryUser", units[0].Unit)
	assert.True(t, units[0].Done)
	assert.Equal(t, 1.0, units[0].Fraction())
	assert.True(t, units[1].Failed)
	assert.Equal(t, 0.0, units[1].Fraction())
	assert.Len(t, p.Errors(), 1)
}

func TestReindexModel_ViewAndComplete(t *testing.T) {
	// Given: a model with one unit half done
	tracker := NewProgressTracker()
	m := newReindexModel(tracker, "ftsync reindex")
	m.styles = NoColorStyles()
	tracker.Update(ProgressEvent{Unit: "Entry", Type: "Entry", Current: 1, Total: 2})

	// Then: the view lists it
	view := m.View()
	assert.Contains(t, view, "ftsync reindex")
	assert.Contains(t, view, "Entry 1/2")

	// When: completion arrives
	_, cmd := m.Update(completeMsg(CompletionStats{
		Units: []UnitSummary{{Unit: "Entry", Records: 2}},
	}))

	// Then: the program quits and shows the summary
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "Reindex complete")
	assert.Contains(t, m.View(), "2 records")
}

func TestReindexModel_CtrlCQuits(t *testing.T) {
	m := newReindexModel(NewProgressTracker(), "t")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.Equal(t, "Cancelled.\n", m.View())
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		1500 * time.Microsecond: "2ms",
		42 * time.Second:        "42s",
		2 * time.Minute:         "2m",
		125 * time.Second:       "2m 5s",
		90 * time.Minute:        "1h 30m",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatDuration(in), in.String())
	}
}

func TestStatusRenderer(t *testing.T) {
	info := StatusInfo{
		ProjectDir:      "/proj",
		StorePath:       "/proj/records.db",
		IndexingEnabled: true,
		Records:         map[string]int{"Entry": 3},
		Units: []UnitStatus{{
			Name: "Entry", Types: []string{"Entry"}, Path: "/proj/whooshee/entry",
			Documents: 3, Size: 2048, AutoUpdate: false,
		}},
	}

	var text bytes.Buffer
	require.NoError(t, NewStatusRenderer(&text, true).Render(info))
	out := text.String()
	assert.Contains(t, out, "Index:    (memory)")
	assert.Contains(t, out, "Indexing: on")
	assert.Contains(t, out, "2.0 KB")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "auto-update off"))

	var js bytes.Buffer
	require.NoError(t, NewStatusRenderer(&js, true).RenderJSON(info))
	assert.Contains(t, js.String(), `"documents": 3`)
	assert.Contains(t, js.String(), `"indexing_enabled": true`)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 MB", FormatBytes(3*512*1024))
	assert.Equal(t, "2.0 GB", FormatBytes(2*1024*1024*1024))
}
