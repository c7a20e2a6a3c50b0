package domain

import (
	"testing"
)

func findItem(t *testing.T, l *SelectionList, optionID int) *Item {
	t.Helper()
	for _, it := range l.Items() {
		if it.OptionID == optionID {
			return it
		}
	}
	t.Fatalf("option %d not found", optionID)
	return nil
}

func TestFilterEquivalence(t *testing.T) {
	c := sampleCatalog(t)
	l := NewSelectionList(c)

	tag := c.FindTag("exhibit", "listen")
	chained := l.FilterByType("listen").Filter(tag)
	direct := l.FilterByCodeAndType("exhibit", "listen")

	if chained.Len() != direct.Len() {
		t.Fatalf("view sizes differ: %d vs %d", chained.Len(), direct.Len())
	}
	for i := range chained.Items() {
		if chained.Items()[i] != direct.Items()[i] {
			t.Fatalf("view item %d differs", i)
		}
	}
}

func TestFilteredViewSharesItems(t *testing.T) {
	c := sampleCatalog(t)
	l := NewSelectionList(c)

	view := l.FilterByCodeAndType("theme", "listen")
	l.Select(view.Items()[0])

	// The mutation must be visible through the unfiltered list.
	if !findItem(t, l, 10).On() {
		t.Fatal("selection through a view not visible in the source list")
	}
}

func TestSingleSelectSwitches(t *testing.T) {
	c := sampleCatalog(t)
	l := NewSelectionList(c)

	deYoung := findItem(t, l, 1)
	legion := findItem(t, l, 2)

	if !l.Select(deYoung) {
		t.Fatal("selecting De Young failed")
	}
	if !l.Select(legion) {
		t.Fatal("selecting Legion failed")
	}

	view := l.FilterByCodeAndType("exhibit", "listen").SelectedItems()
	if view.Len() != 1 {
		t.Fatalf("expected exactly one selected exhibit, got %d", view.Len())
	}
	if view.Items()[0].Text != "Legion" {
		t.Fatalf("expected Legion selected, got %s", view.Items()[0].Text)
	}
}

func TestMultiSelectLeavesSiblingsAlone(t *testing.T) {
	c := sampleCatalog(t)
	l := NewSelectionList(c)

	l.Select(findItem(t, l, 10))
	l.Select(findItem(t, l, 11))

	view := l.FilterByCodeAndType("theme", "listen")
	if view.SelectedCount() != 2 {
		t.Fatalf("expected both theme options selected, got %d", view.SelectedCount())
	}
}

func TestDeselectHonorsMinimum(t *testing.T) {
	c := sampleCatalog(t)
	l := NewSelectionList(c)

	memory := findItem(t, l, 20)
	l.Select(memory)
	if l.Deselect(memory) {
		t.Fatal("deselect below the minimum should be refused")
	}
	if !memory.On() {
		t.Fatal("option must stay selected")
	}
}

func TestReplaceSelection(t *testing.T) {
	c := sampleCatalog(t)
	l := NewSelectionList(c)
	theme := c.FindTag("theme", "listen")
	exhibit := c.FindTag("exhibit", "listen")

	l.ReplaceSelection(theme, []int{10, 11})
	l.ReplaceSelection(exhibit, []int{1})

	// Replacing one tag leaves the others untouched.
	l.ReplaceSelection(theme, []int{11})
	if got := l.FilterByCodeAndType("theme", "listen").SelectedIDs(); len(got) != 1 || got[0] != 11 {
		t.Fatalf("expected theme selection [11], got %v", got)
	}
	if !findItem(t, l, 1).On() {
		t.Fatal("exhibit selection must survive a theme replace")
	}

	// Unknown ids are ignored; for single-select the last valid id wins.
	l.ReplaceSelection(exhibit, []int{99, 1, 2})
	if got := l.FilterByCodeAndType("exhibit", "listen").SelectedIDs(); len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected exhibit selection [2], got %v", got)
	}
}

func TestHasValidSelection(t *testing.T) {
	c := sampleCatalog(t)
	l := NewSelectionList(c)

	if l.HasValidSelection() {
		t.Fatal("empty selection cannot be valid: exhibit and question require one")
	}

	l.Select(findItem(t, l, 1))
	l.Select(findItem(t, l, 20))
	if !l.HasValidSelection() {
		t.Fatal("expected a valid selection")
	}
}

func TestAutoSelectSingles(t *testing.T) {
	c := sampleCatalog(t)
	l := NewSelectionList(c)

	l.AutoSelectSingles()
	if !findItem(t, l, 20).On() {
		t.Fatal("lone question option should be auto-selected")
	}
	if findItem(t, l, 1).On() || findItem(t, l, 2).On() {
		t.Fatal("multi-option tags must not be auto-selected")
	}
}

func TestApplyDefaults(t *testing.T) {
	c := sampleCatalog(t)
	l := NewSelectionList(c)

	l.Select(findItem(t, l, 2))
	l.ApplyDefaults()

	if !findItem(t, l, 1).On() {
		t.Fatal("default option should be selected")
	}
	if findItem(t, l, 2).On() {
		t.Fatal("non-default option should be cleared")
	}
}

func TestPersistRestoreRoundTrip(t *testing.T) {
	c := sampleCatalog(t)
	l := NewSelectionList(c)
	l.Select(findItem(t, l, 2))
	l.Select(findItem(t, l, 10))

	state := l.Serialize()

	fresh := NewSelectionList(c)
	fresh.Restore(state)
	if got, want := fresh.SelectedIDs(), l.SelectedIDs(); len(got) != len(want) {
		t.Fatalf("restored selection %v, want %v", got, want)
	} else {
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("restored selection %v, want %v", got, want)
			}
		}
	}

	// Restoring twice from the same data yields the same selection.
	fresh.Restore(state)
	if got := fresh.SelectedCount(); got != 2 {
		t.Fatalf("restore is not idempotent, %d selected", got)
	}
}

func TestRestoreKeepsUnmentionedOptions(t *testing.T) {
	c := sampleCatalog(t)
	l := NewSelectionList(c)

	l.Restore(map[int]bool{2: true})
	if !findItem(t, l, 2).On() {
		t.Fatal("stored option should be selected")
	}
	if findItem(t, l, 10).On() {
		t.Fatal("option without a stored entry must stay unselected")
	}
}
