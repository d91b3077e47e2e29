package guard

import "testing"

func TestGuardBlocksOnlyWhileInstalled(t *testing.T) {
	g := New()

	// Not installed: nothing is suppressed
	if g.Blocks(EventPaste) {
		t.Error("guard blocked paste before Install")
	}

	g.Install()
	if !g.Installed() {
		t.Fatal("guard not installed after Install")
	}

	for _, kind := range []EventKind{EventCopy, EventPaste, EventCut, EventDrop, EventContextMenu, EventShortcut} {
		if !g.Blocks(kind) {
			t.Errorf("guard did not block %s while installed", kind)
		}
	}

	g.Remove()
	if g.Blocks(EventCopy) {
		t.Error("guard blocked copy after Remove")
	}

	counts := g.Suppressed()
	if counts[EventPaste] != 1 {
		t.Errorf("paste suppressions = %d, want 1", counts[EventPaste])
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	if total != 6 {
		t.Errorf("total suppressions = %d, want 6 (none outside Active)", total)
	}
}

func TestGuardIgnoresUnknownEvents(t *testing.T) {
	g := New()
	g.Install()

	if g.Blocks(EventKind("scroll")) {
		t.Error("guard blocked an unknown event kind")
	}
	if len(g.Suppressed()) != 0 {
		t.Error("unknown event was counted")
	}
}
