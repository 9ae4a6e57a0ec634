package coordinator

// Key is one key event the renderer's input surface produces, opaque
// to the coordinator beyond its Rune/Name fields, which are all the
// coordinator needs to translate a keystroke into an Action.
type Key struct {
	Rune rune
	Name string
}

// Renderer is the boundary the coordinator renders through. Rendering
// itself is out of scope; this interface exists so the coordinator has
// something concrete to call without depending on any particular UI
// toolkit, the same way spec.md treats config/theme/keybinding modules
// as collaborators whose boundary is specified but whose internals are
// not.
type Renderer interface {
	// MarkDirty flags account as needing to be redrawn on the next
	// Render call.
	MarkDirty(account string)
	// Render draws every account currently marked dirty and clears
	// their dirty flags.
	Render()
	// PollKey returns the next pending key event, if any, without
	// blocking.
	PollKey() (Key, bool)
}

// NopRenderer discards everything; it exists so the coordinator can be
// constructed and exercised in tests without a real terminal.
type NopRenderer struct{}

func (NopRenderer) MarkDirty(string)         {}
func (NopRenderer) Render()                  {}
func (NopRenderer) PollKey() (Key, bool) { return Key{}, false }
