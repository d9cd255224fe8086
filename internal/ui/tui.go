package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer renders reindex progress with bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *reindexModel
	tracker *ProgressTracker
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer. Fails when output is not a TTY.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	tracker := NewProgressTracker()
	model := newReindexModel(tracker, cfg.Title)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:     cfg,
		tracker: tracker,
		model:   model,
		done:    make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	var opts []tea.ProgramOption
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	ctx, r.cancel = context.WithCancel(ctx)
	opts = append(opts, tea.WithContext(ctx))

	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.Update(event)
	if r.program != nil {
		r.program.Send(progressUpdateMsg(event))
	}
}

// AddError implements Renderer.
func (r *TUIRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.AddError(event)
	if r.program != nil {
		r.program.Send(errorMsg(event))
	}
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program == nil {
		return nil
	}
	// Give the final frame a chance to render before quitting.
	select {
	case <-r.done:
	case <-time.After(200 * time.Millisecond):
		r.program.Quit()
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
		}
	}
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

type progressUpdateMsg ProgressEvent
type errorMsg ErrorEvent
type completeMsg CompletionStats
type tickMsg time.Time

// reindexModel is the bubbletea model for reindex progress.
type reindexModel struct {
	tracker     *ProgressTracker
	title       string
	width       int
	quitting    bool
	complete    bool
	stats       CompletionStats
	spinner     spinner.Model
	progressBar progress.Model
	styles      Styles
}

func newReindexModel(tracker *ProgressTracker, title string) *reindexModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime))

	p := progress.New(
		progress.WithSolidFill(ColorLime),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	return &reindexModel{
		tracker:     tracker,
		title:       title,
		spinner:     s,
		progressBar: p,
		styles:      DefaultStyles(),
		width:       80,
	}
}

// Init implements tea.Model.
func (m *reindexModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *reindexModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progressBar.Width = max(msg.Width-40, 20)

	case progressUpdateMsg, errorMsg:
		// Tracked by the renderer.
		return m, nil

	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit

	case tickMsg:
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *reindexModel) View() string {
	if m.quitting {
		return "Cancelled.\n"
	}
	if m.complete {
		return m.renderComplete()
	}

	var lines []string
	units := m.tracker.Units()
	if len(units) == 0 {
		lines = append(lines, fmt.Sprintf("%s %s", m.spinner.View(), m.styles.Dim.Render("Preparing...")))
	}
	for _, u := range units {
		lines = append(lines, m.renderUnit(u))
	}
	lines = append(lines, "", m.styles.Label.Render(fmt.Sprintf("%d records  •  %.0f/s  •  %s",
		m.tracker.Records(), m.tracker.Rate(), formatDuration(m.tracker.Elapsed()))))

	header := m.styles.Header.Render(m.title)
	panel := m.styles.Panel.Width(max(m.width-4, 40)).Render(strings.Join(lines, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, header, panel) + "\n"
}

func (m *reindexModel) renderUnit(u UnitProgress) string {
	var icon string
	switch {
	case u.Failed:
		icon = m.styles.Error.Render("✗")
	case u.Done:
		icon = m.styles.Success.Render("●")
	default:
		icon = m.spinner.View()
	}

	name := m.styles.Active.Render(fmt.Sprintf("%-16s", truncate(u.Unit, 16)))
	count := m.styles.Label.Render(fmt.Sprintf("%s %d/%d", u.Type, u.Current, u.Total))
	return fmt.Sprintf("%s %s %s  %s", icon, name, m.progressBar.ViewAs(u.Fraction()), count)
}

func (m *reindexModel) renderComplete() string {
	var lines []string
	if m.stats.Errors > 0 {
		lines = append(lines, m.styles.Warning.Render(fmt.Sprintf("Reindex finished with %d errors", m.stats.Errors)))
	} else {
		lines = append(lines, m.styles.Success.Render("✓ Reindex complete"))
	}
	lines = append(lines, "")
	for _, u := range m.stats.Units {
		lines = append(lines, fmt.Sprintf("%s %s  %s",
			m.styles.Label.Render(fmt.Sprintf("%-16s", truncate(u.Unit, 16))),
			m.styles.Active.Render(fmt.Sprintf("%6d records", u.Records)),
			m.styles.Dim.Render(fmt.Sprintf("%d removed, %s", u.Removed, formatDuration(u.Duration)))))
	}
	lines = append(lines, "", m.styles.Label.Render("Duration: "+formatDuration(m.stats.Duration)))

	return m.styles.Panel.Width(max(m.width-4, 40)).Render(strings.Join(lines, "\n")) + "\n"
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Round(time.Second).Seconds()))
	case d < time.Hour:
		d = d.Round(time.Second)
		m, s := int(d.Minutes()), int(d.Seconds())%60
		if s == 0 {
			return fmt.Sprintf("%dm", m)
		}
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

var _ Renderer = (*TUIRenderer)(nil)
