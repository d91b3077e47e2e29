// Package guard implements the interaction-suppression policy: while a
// typing session is active, copy/paste/cut/drop/context-menu interactions on
// the test surfaces are blocked. The page installs the matching DOM
// listeners; this side records the policy state and counts what was
// suppressed so the two cannot disagree about when the guard applies.
package guard

import "sync"

// EventKind identifies one suppressible interaction
type EventKind string

const (
	EventCopy        EventKind = "copy"
	EventPaste       EventKind = "paste"
	EventCut         EventKind = "cut"
	EventDrop        EventKind = "drop"
	EventContextMenu EventKind = "contextmenu"
	EventShortcut    EventKind = "shortcut"
)

// Known reports whether the event kind is part of the guarded set
func Known(kind EventKind) bool {
	switch kind {
	case EventCopy, EventPaste, EventCut, EventDrop, EventContextMenu, EventShortcut:
		return true
	}
	return false
}

// Guard is a pure event-suppression policy. Its only state is whether it is
// currently installed; it is installed on Idle -> Active and removed on any
// transition away from Active.
type Guard struct {
	mu         sync.Mutex
	installed  bool
	suppressed map[EventKind]int
}

// New creates a guard in the removed state
func New() *Guard {
	return &Guard{
		suppressed: make(map[EventKind]int),
	}
}

// Install activates the policy
func (g *Guard) Install() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.installed = true
}

// Remove deactivates the policy
func (g *Guard) Remove() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.installed = false
}

// Installed reports whether the policy is active
func (g *Guard) Installed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.installed
}

// Blocks reports whether the event must be suppressed and, when it is,
// counts the suppression. Unknown kinds and events seen while the guard is
// not installed pass through.
func (g *Guard) Blocks(kind EventKind) bool {
	if !Known(kind) {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.installed {
		return false
	}
	g.suppressed[kind]++
	return true
}

// Suppressed returns a copy of the per-kind suppression counts
func (g *Guard) Suppressed() map[EventKind]int {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[EventKind]int, len(g.suppressed))
	for k, v := range g.suppressed {
		out[k] = v
	}
	return out
}
