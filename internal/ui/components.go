package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/buckleypaul/ardu/internal/output"
)

// Panel draws content in a rounded box with the title set into the top
// border. width is the outer width; a zero height sizes to the content.
func Panel(title, content string, width, height int, focused bool) string {
	border := Subtle
	if focused {
		border = Primary
	}
	edge := lipgloss.NewStyle().Foreground(border)

	// "╭─ " + title + " " + dashes + "╮"
	dashes := max(width-lipgloss.Width(title)-5, 0)
	top := edge.Render("╭─ ") + title + edge.Render(" "+strings.Repeat("─", dashes)+"╮")

	body := lipgloss.NewStyle().
		Width(max(width-4, 0)).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderLeft(true).
		BorderRight(true).
		BorderBottom(true).
		BorderForeground(border).
		Padding(0, 1)
	if height > 0 {
		body = body.Height(height - 2)
	}
	return top + "\n" + body.Render(content)
}

func Title(text string) string {
	return TitleStyle.Render(text)
}

// StatusKey renders a key hint for the status bar.
func StatusKey(k, desc string) string {
	return StatusBarKeyStyle.Render(k) + StatusBarStyle.Render(":"+desc)
}

// Badge renders text on a colored background.
func Badge(text string, color lipgloss.Color) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("230")).
		Background(color).
		Padding(0, 1).
		Render(text)
}

// ResultBadge summarizes a finished compiler run.
func ResultBadge(success bool, exitCode int) string {
	if success {
		return Badge("ok", Success)
	}
	if exitCode < 0 {
		return Badge("error", Error)
	}
	return Badge(fmt.Sprintf("exit %d", exitCode), Error)
}

// Entry renders an output channel entry with its kind's color.
func Entry(e output.Entry) string {
	switch e.Kind {
	case output.KindStart:
		return StartStyle.Render(e.String())
	case output.KindDone:
		return DoneStyle.Render(e.String())
	case output.KindInfo:
		return InfoStyle.Render(e.String())
	case output.KindWarning:
		return WarningStyle.Render(e.String())
	case output.KindError:
		return ErrorStyle.Render(e.String())
	default:
		return e.Text
	}
}

// Value renders v, or a dim placeholder when it is empty.
func Value(v string) string {
	if v == "" {
		return DimStyle.Render("(not set)")
	}
	return v
}
