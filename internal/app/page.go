package app

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/ardu/internal/device"
	"github.com/buckleypaul/ardu/internal/output"
	"github.com/buckleypaul/ardu/internal/usb"
)

// PageID identifies each page in the application.
type PageID int

const (
	BuildPage PageID = iota
	DevicePage
	MonitorPage
	HistoryPage
	SettingsPage
)

var PageOrder = []PageID{
	BuildPage,
	DevicePage,
	MonitorPage,
	HistoryPage,
	SettingsPage,
}

// Page is the interface every page in the application implements.
type Page interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Page, tea.Cmd)
	View() string
	Name() string
	ShortHelp() []key.Binding
	SetSize(width, height int)
}

// InputCapturer is an optional interface for pages with text inputs.
// When InputCaptured returns true, the app forwards all keys directly
// to the page instead of processing shortcuts like q, ?, left, etc.
type InputCapturer interface {
	InputCaptured() bool
}

// ChannelMsg carries one output channel entry. Builds started anywhere,
// including background analysis, end up here.
type ChannelMsg struct {
	Entry output.Entry
}

// DeviceChangedMsg is broadcast when a value in arduino.json changes.
type DeviceChangedMsg struct {
	Change device.Change
}

// USBMsg is broadcast when a serial port appears or disappears.
type USBMsg struct {
	Event usb.Event
}

// OpenPickerMsg asks the model to show the picker. The choice is broadcast
// as PickerSelectedMsg or PickerClosedMsg carrying the same ID.
type OpenPickerMsg struct {
	ID      string
	Title   string
	Message string
	Items   []PickerItem
}
