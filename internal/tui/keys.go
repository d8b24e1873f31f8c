package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap defines all key bindings for the application.
type KeyMap struct {
	// Navigation
	Up       Key
	Down     Key
	PageUp   Key
	PageDown Key

	// Actions
	Select Key
	Back   Key
	Quit   Key
	Help   Key
	Reload Key

	// Capacity actions
	Plan           Key
	CycleBucket    Key
	ShiftBack      Key
	ShiftForward   Key
	Export         Key
	DeletePlans    Key
	DeleteLocked   Key
	DeleteResource Key

	// Function keys for module navigation
	F1  Key
	F2  Key
	F3  Key
	F4  Key
	F10 Key
}

// Key represents a key binding.
type Key struct {
	Keys    []string
	Help    string
	Enabled bool
}

func key(help string, keys ...string) Key {
	return Key{Keys: keys, Help: help, Enabled: true}
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key("up", "up", "k"),
		Down:     key("down", "down", "j"),
		PageUp:   key("page up", "pgup", "ctrl+u"),
		PageDown: key("page down", "pgdown", "ctrl+d"),

		Select: key("select", "enter"),
		Back:   key("back", "esc", "backspace"),
		Quit:   key("quit", "q", "ctrl+c"),
		Help:   key("help", "?"),
		Reload: key("reload", "r"),

		Plan:           key("plan", "p"),
		CycleBucket:    key("bucket", "b"),
		ShiftBack:      key("earlier", "["),
		ShiftForward:   key("later", "]"),
		Export:         key("export", "x"),
		DeletePlans:    key("delete plans", "d"),
		DeleteLocked:   key("delete incl. locked", "D"),
		DeleteResource: key("delete resource", "X"),

		F1:  key("Help", "f1"),
		F2:  key("Dashboard", "f2"),
		F3:  key("Resources", "f3"),
		F4:  key("Plan", "f4"),
		F10: key("Quit", "f10"),
	}
}

// Matches checks if a key message matches this key binding.
func (k Key) Matches(msg tea.KeyMsg) bool {
	if !k.Enabled {
		return false
	}

	keyStr := msg.String()
	for _, key := range k.Keys {
		if keyStr == key {
			return true
		}
	}
	return false
}

// MatchesAny checks if a key message matches any of the provided key bindings.
func MatchesAny(msg tea.KeyMsg, keys ...Key) bool {
	for _, k := range keys {
		if k.Matches(msg) {
			return true
		}
	}
	return false
}

// IsQuit checks if the key message is a quit command.
func (km KeyMap) IsQuit(msg tea.KeyMsg) bool {
	return km.Quit.Matches(msg) || km.F10.Matches(msg)
}

// IsFunctionKey checks if the key message is a function key.
func (km KeyMap) IsFunctionKey(msg tea.KeyMsg) bool {
	return MatchesAny(msg, km.F1, km.F2, km.F3, km.F4, km.F10)
}

// GetFunctionKeyModule returns the module for a function key.
func (km KeyMap) GetFunctionKeyModule(msg tea.KeyMsg) Module {
	switch {
	case km.F1.Matches(msg):
		return ModuleHelp
	case km.F2.Matches(msg):
		return ModuleDashboard
	case km.F3.Matches(msg):
		return ModuleResources
	case km.F4.Matches(msg):
		return ModulePlan
	default:
		return ""
	}
}

// StatusBarHelp returns the help text for the status bar. Narrow
// terminals get the short form.
func (km KeyMap) StatusBarHelp(width int) string {
	if GetBreakpoint(width) == BreakpointNarrow {
		return "F1 ? F2 Dash F3 Res F4 Plan F10 Quit"
	}
	return "[F1]Help [F2]Dashboard [F3]Resources [F4]Plan [r]Reload [F10]Quit"
}
