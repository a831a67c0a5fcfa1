package editor

import (
	"unicode"

	"golang.org/x/mobile/event/key"
)

// KeyShortcut describes a keyboard shortcut.
type KeyShortcut struct {
	Rune      rune
	Code      key.Code
	Modifiers key.Modifiers
}

// Editor actions bound to the keyboard.
const (
	ActionDelete    = "delete"
	ActionCancel    = "cancel"
	ActionSave      = "save"
	ActionCopy      = "copy"
	ActionCopyBoxes = "copyboxes"
	ActionClose     = "close"
)

var keyboardAction = map[KeyShortcut]string{
	{Code: key.CodeDeleteForward}:                         ActionDelete,
	{Code: key.CodeDeleteBackspace}:                       ActionDelete,
	{Code: key.CodeEscape}:                                ActionCancel,
	{Rune: 's', Modifiers: key.ModControl}:                ActionSave,
	{Rune: 'c', Modifiers: key.ModControl}:                ActionCopy,
	{Rune: 'c', Modifiers: key.ModControl | key.ModShift}: ActionCopyBoxes,
	{Rune: 'w', Modifiers: key.ModControl}:                ActionClose,
	{Rune: 'q'}:                                           ActionClose,
	{Rune: 'q', Modifiers: key.ModShift}:                  ActionClose,
}

// shortcutHints is the order actions are listed in the status bar.
var shortcutHints = []struct{ keys, label string }{
	{"Ctrl+S", "Save"},
	{"Ctrl+C", "Copy"},
	{"Del", "Delete"},
	{"Esc", "Cancel"},
	{"Q", "Close"},
}

// actionFor maps a key press to an action name. Backspace and Delete carry
// a rune on some drivers so the code is tried on its own as well.
func actionFor(e key.Event) (string, bool) {
	if e.Direction != key.DirPress {
		return "", false
	}
	mods := e.Modifiers &^ (key.ModAlt | key.ModMeta)
	if e.Rune > 0 && !unicode.IsControl(e.Rune) {
		if a, ok := keyboardAction[KeyShortcut{Rune: unicode.ToLower(e.Rune), Modifiers: mods}]; ok {
			return a, true
		}
	}
	// Ctrl+letter arrives as a control character on some drivers.
	if e.Rune > 0 && e.Rune < 0x20 && mods&key.ModControl != 0 {
		if a, ok := keyboardAction[KeyShortcut{Rune: 'a' + e.Rune - 1, Modifiers: mods}]; ok {
			return a, true
		}
	}
	a, ok := keyboardAction[KeyShortcut{Code: e.Code, Modifiers: mods}]
	return a, ok
}
