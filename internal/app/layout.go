package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/buckleypaul/ardu/internal/analysis"
	"github.com/buckleypaul/ardu/internal/device"
	"github.com/buckleypaul/ardu/internal/ui"
)

const sidebarWidth = 20 // 18 content + 2 border/padding

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func renderDeviceBar(s device.Settings, status Status, message string, width int, sidebarFocused bool) string {
	content := fmt.Sprintf("Sketch: %s  Board: %s  Port: %s", orNone(s.Sketch), orNone(s.Board), orNone(s.Port))

	if status != nil {
		switch {
		case status.IsBuilding():
			content += "  " + ui.AccentStyle.Render("● building")
		case status.AnalysisState() != analysis.Idle:
			content += "  " + ui.DimStyle.Render("analysis: "+status.AnalysisState().String())
		}
	}
	if message != "" {
		content += "  " + ui.WarningStyle.Render(message)
	}
	if sidebarFocused {
		content += ui.DimStyle.Render("  [p] port")
	}
	return ui.StatusBarStyle.Width(width).Render(content)
}

func renderSidebar(pages []PageID, active PageID, pageMap map[PageID]Page, height int, focused bool) string {
	var b strings.Builder
	if focused {
		b.WriteString(ui.BoldStyle.Render("ardu [FOCUSED]"))
	} else {
		b.WriteString(ui.TitleStyle.Render("ardu"))
	}
	b.WriteString("\n\n")

	for _, id := range pages {
		p := pageMap[id]
		if p == nil {
			continue
		}
		if id == active {
			b.WriteString(ui.SidebarActiveStyle.Render("▸ " + p.Name()))
		} else {
			b.WriteString(ui.SidebarItemStyle.Render("  " + p.Name()))
		}
		b.WriteString("\n")
	}

	style := ui.SidebarStyle.Height(height)
	if focused {
		style = style.BorderForeground(ui.Primary)
	}
	return style.Render(b.String())
}

func renderStatusBar(pageHelp []key.Binding, width int, focus FocusArea) string {
	var parts []string

	if focus == FocusSidebar {
		parts = append(parts,
			ui.StatusKey("↑/↓", "navigate"),
			ui.StatusKey("enter", "select"),
			ui.StatusKey("p", "port"),
		)
	} else {
		for _, kb := range pageHelp {
			if kb.Enabled() {
				parts = append(parts, ui.StatusKey(kb.Help().Key, kb.Help().Desc))
			}
		}
	}

	for _, kb := range GlobalKeys.Bindings() {
		if kb.Help().Key == "p" {
			continue
		}
		parts = append(parts, ui.StatusKey(kb.Help().Key, kb.Help().Desc))
	}

	line := strings.Join(parts, "  ")
	return ui.StatusBarStyle.Width(width).Render(line)
}

func renderHelp(pageHelp []key.Binding) string {
	var b strings.Builder
	bindings := append(GlobalKeys.Bindings(), pageHelp...)
	for _, kb := range bindings {
		h := kb.Help()
		b.WriteString(fmt.Sprintf("%-10s %s\n", ui.BoldStyle.Render(h.Key), h.Desc))
	}
	return ui.Panel("Keys", strings.TrimRight(b.String(), "\n"), 40, 0, true)
}

func renderLayout(deviceBar, sidebar, content, statusBar string) string {
	main := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, content)
	return lipgloss.JoinVertical(lipgloss.Left, deviceBar, main, statusBar)
}
