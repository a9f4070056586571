package pages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wrap"

	"github.com/buckleypaul/ardu/internal/app"
	"github.com/buckleypaul/ardu/internal/arduino"
	"github.com/buckleypaul/ardu/internal/ui"
)

// Builder runs builds. *arduino.App implements it.
type Builder interface {
	Build(ctx context.Context, mode arduino.BuildMode, buildDir string) bool
	IsBuilding() bool
}

type buildState int

const (
	buildStateIdle buildState = iota
	buildStateRunning
	buildStateDone
)

// maxOutputLines bounds the output kept in memory.
const maxOutputLines = 5000

type buildFinishedMsg struct {
	mode    arduino.BuildMode
	ok      bool
	elapsed time.Duration
}

var buildKeys = []struct {
	binding key.Binding
	mode    arduino.BuildMode
}{
	{key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "verify")), arduino.Verify},
	{key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "analyze")), arduino.Analyze},
	{key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload")), arduino.Upload},
	{key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "upload (programmer)")), arduino.UploadProgrammer},
	{key.NewBinding(key.WithKeys("U"), key.WithHelp("U", "upload (cli)")), arduino.CliUpload},
	{key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "upload (programmer, cli)")), arduino.CliUploadProgrammer},
}

type BuildPage struct {
	builder  Builder
	ctx      context.Context
	buildDir string

	state    buildState
	mode     arduino.BuildMode
	lines    []string // styled
	raw      []string // plain text for copying
	viewport viewport.Model
	spinner  spinner.Model

	width, height int
	message       string
}

// NewBuildPage creates the build page. ctx bounds every build it starts and
// buildDir, if set, overrides the output directory from arduino.json.
func NewBuildPage(ctx context.Context, b Builder, buildDir string) *BuildPage {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ui.Accent)

	return &BuildPage{
		builder:  b,
		ctx:      ctx,
		buildDir: buildDir,
		viewport: viewport.New(0, 0),
		spinner:  sp,
	}
}

func (p *BuildPage) Init() tea.Cmd { return nil }

func (p *BuildPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case app.ChannelMsg:
		p.appendEntry(msg)
		return p, nil

	case buildFinishedMsg:
		p.state = buildStateDone
		status := "succeeded"
		if !msg.ok {
			status = "failed"
		}
		p.message = fmt.Sprintf("%s %s in %s", msg.mode, status, msg.elapsed.Round(100*time.Millisecond))
		return p, nil

	case spinner.TickMsg:
		if p.state != buildStateRunning {
			return p, nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd

	case tea.KeyMsg:
		return p.handleKey(msg)
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *BuildPage) handleKey(msg tea.KeyMsg) (app.Page, tea.Cmd) {
	if p.state != buildStateRunning {
		for _, bk := range buildKeys {
			if key.Matches(msg, bk.binding) {
				return p, p.startBuild(bk.mode)
			}
		}
		switch msg.String() {
		case "c":
			p.lines, p.raw = nil, nil
			p.message = ""
			p.state = buildStateIdle
			p.updateViewportContent()
			return p, nil
		case "y":
			p.copyOutput()
			return p, nil
		}
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *BuildPage) startBuild(mode arduino.BuildMode) tea.Cmd {
	if p.builder.IsBuilding() {
		p.message = "Another build is running"
		return nil
	}

	p.state = buildStateRunning
	p.mode = mode
	p.message = ""
	b, ctx, dir := p.builder, p.ctx, p.buildDir
	run := func() tea.Msg {
		start := time.Now()
		ok := b.Build(ctx, mode, dir)
		return buildFinishedMsg{mode: mode, ok: ok, elapsed: time.Since(start)}
	}
	return tea.Batch(p.spinner.Tick, run)
}

func (p *BuildPage) appendEntry(msg app.ChannelMsg) {
	atBottom := p.viewport.AtBottom()
	p.lines = append(p.lines, ui.Entry(msg.Entry))
	p.raw = append(p.raw, msg.Entry.String())
	if n := len(p.lines) - maxOutputLines; n > 0 {
		p.lines = p.lines[n:]
		p.raw = p.raw[n:]
	}
	p.updateViewportContent()
	if atBottom {
		p.viewport.GotoBottom()
	}
}

func (p *BuildPage) copyOutput() {
	if len(p.raw) == 0 {
		return
	}
	if err := clipboard.WriteAll(strings.Join(p.raw, "\n")); err != nil {
		p.message = fmt.Sprintf("Failed to copy: %v", err)
		return
	}
	p.message = "Build output copied to clipboard"
}

func (p *BuildPage) View() string {
	var b strings.Builder
	b.WriteString(ui.Title("Build"))
	b.WriteString("\n")

	switch p.state {
	case buildStateRunning:
		b.WriteString(p.spinner.View() + " " + p.mode.String() + "...")
	default:
		help := "v: verify  a: analyze  u: upload  p: programmer  U/P: via cli"
		b.WriteString(ui.DimStyle.Render(help))
	}
	b.WriteString("\n")
	if p.message != "" {
		b.WriteString(p.message)
	}
	b.WriteString("\n")

	header := b.String()
	outputHeight := p.height - lipgloss.Height(header) - 1
	if outputHeight < 5 {
		outputHeight = 5
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, p.viewOutput(p.width, outputHeight))
}

func (p *BuildPage) viewOutput(width int, height int) string {
	// Account for border (2 chars top+bottom) and padding (1 char left)
	contentWidth := width - 3
	contentHeight := height - 2

	if contentWidth < 10 {
		contentWidth = 10
	}
	if contentHeight < 3 {
		contentHeight = 3
	}

	oldWidth := p.viewport.Width
	p.viewport.Width = contentWidth
	p.viewport.Height = contentHeight
	if oldWidth != contentWidth && len(p.lines) > 0 {
		p.updateViewportContent()
	}

	style := lipgloss.NewStyle().
		Width(width).
		Height(height).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderTop(true).
		BorderForeground(ui.Surface).
		PaddingLeft(1).
		PaddingTop(0)

	if len(p.lines) == 0 {
		return style.Render(ui.DimStyle.Render("Build output will appear here..."))
	}
	return style.Render(p.viewport.View())
}

func (p *BuildPage) Name() string { return "Build" }

func (p *BuildPage) ShortHelp() []key.Binding {
	if p.state == buildStateRunning {
		return []key.Binding{
			key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "scroll")),
		}
	}
	bindings := make([]key.Binding, 0, len(buildKeys)+2)
	for _, bk := range buildKeys {
		bindings = append(bindings, bk.binding)
	}
	if len(p.lines) > 0 {
		bindings = append(bindings,
			key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy output")),
			key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		)
	}
	return bindings
}

func (p *BuildPage) SetSize(w, h int) {
	p.width = w
	p.height = h
	// Viewport size will be set dynamically in viewOutput()
}

func (p *BuildPage) updateViewportContent() {
	content := strings.Join(p.lines, "\n")
	if p.viewport.Width <= 0 {
		p.viewport.SetContent(content)
		return
	}

	// Hard wrap handles long compiler command lines without spaces
	wrapped := wrap.String(content, p.viewport.Width)
	lines := strings.Split(wrapped, "\n")
	for i, line := range lines {
		if ansi.PrintableRuneWidth(line) > p.viewport.Width {
			lines[i] = truncate.String(line, uint(p.viewport.Width))
		}
	}
	p.viewport.SetContent(strings.Join(lines, "\n"))
}
