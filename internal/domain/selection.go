package domain

import "strings"

// Item is one selectable row in a SelectionList: an option bound to its tag
// plus a mutable on/off state.
type Item struct {
	Tag      *Tag
	OptionID int
	Text     string

	on bool
}

// On reports whether the item is currently selected.
func (it *Item) On() bool { return it.on }

func (it *Item) set(v bool) { it.on = v }

// SelectionList is the live, ordered collection of selectable items built
// from a tag catalog. Filtered views share the same Item pointers, so a
// mutation through any view is visible through every other view.
type SelectionList struct {
	items       []*Item
	minRequired int
	maxAllowed  int
}

// NewSelectionList builds a list with one item per catalog option, in
// catalog order, all unselected.
func NewSelectionList(c *Catalog) *SelectionList {
	l := &SelectionList{}
	if c == nil {
		return l
	}
	for _, tag := range c.Tags() {
		for _, o := range tag.Options {
			l.items = append(l.items, &Item{Tag: tag, OptionID: o.ID, Text: o.Text})
		}
	}
	if len(c.Tags()) == 1 {
		l.minRequired = c.Tags()[0].MinSelected()
		l.maxAllowed = c.Tags()[0].MaxSelected()
	} else {
		l.minRequired = 0
		l.maxAllowed = len(l.items)
	}
	return l
}

// Items returns the underlying items in display order.
func (l *SelectionList) Items() []*Item { return l.items }

// Len returns the number of items in the list.
func (l *SelectionList) Len() int { return len(l.items) }

// MinRequired returns the minimum selection size for a single-tag view.
func (l *SelectionList) MinRequired() int { return l.minRequired }

// MaxAllowed returns the maximum selection size for a single-tag view.
func (l *SelectionList) MaxAllowed() int { return l.maxAllowed }

// Filter returns a view with the items belonging to the given tag. Items
// are shared, not copied.
func (l *SelectionList) Filter(tag *Tag) *SelectionList {
	out := &SelectionList{}
	if tag == nil {
		return out
	}
	for _, it := range l.items {
		if it.Tag == tag {
			out.items = append(out.items, it)
		}
	}
	out.minRequired = tag.MinSelected()
	out.maxAllowed = tag.MaxSelected()
	return out
}

// FilterByType returns a view with the items whose tag has the given type.
func (l *SelectionList) FilterByType(typ string) *SelectionList {
	out := &SelectionList{maxAllowed: l.maxAllowed}
	for _, it := range l.items {
		if strings.EqualFold(it.Tag.Type, typ) {
			out.items = append(out.items, it)
		}
	}
	return out
}

// FilterByCodeAndType returns a view with the items whose tag matches both
// the code and type. Equivalent to FilterByType(typ).Filter(tag) for the
// matching tag.
func (l *SelectionList) FilterByCodeAndType(code, typ string) *SelectionList {
	out := &SelectionList{}
	var tag *Tag
	for _, it := range l.items {
		if strings.EqualFold(it.Tag.Code, code) && strings.EqualFold(it.Tag.Type, typ) {
			out.items = append(out.items, it)
			tag = it.Tag
		}
	}
	if tag != nil {
		out.minRequired = tag.MinSelected()
		out.maxAllowed = tag.MaxSelected()
	}
	return out
}

// Tags returns the distinct tags referenced by the items, in list order.
func (l *SelectionList) Tags() []*Tag {
	var out []*Tag
	seen := make(map[*Tag]bool)
	for _, it := range l.items {
		if !seen[it.Tag] {
			seen[it.Tag] = true
			out = append(out, it.Tag)
		}
	}
	return out
}

// Select marks the item selected if the tag's cardinality rule allows it.
// For a single-select tag the previously selected sibling is switched off
// first. Returns true when the item ends up selected by this call.
func (l *SelectionList) Select(item *Item) bool {
	if item == nil || item.on {
		return false
	}
	tag := item.Tag
	view := l.Filter(tag)
	if view.SelectedCount() >= tag.MaxSelected() {
		if tag.IsSingleSelect() {
			view.deselectFirstSelected()
			item.set(true)
			return true
		}
		return false
	}
	item.set(true)
	return true
}

// Deselect marks the item unselected unless that would break the tag's
// minimum selection requirement.
func (l *SelectionList) Deselect(item *Item) bool {
	if item == nil || !item.on {
		return false
	}
	if l.Filter(item.Tag).SelectedCount() > item.Tag.MinSelected() {
		item.set(false)
		return true
	}
	return false
}

func (l *SelectionList) deselectFirstSelected() {
	for _, it := range l.items {
		if it.on {
			it.set(false)
			return
		}
	}
}

// SelectAll forces every item in the list selected. This may exceed the
// maximum selection rule; callers use it for default-selection setup.
func (l *SelectionList) SelectAll() {
	for _, it := range l.items {
		it.set(true)
	}
}

// ClearSelection unselects every item. The minimum selection rule is not
// enforced here.
func (l *SelectionList) ClearSelection() {
	for _, it := range l.items {
		it.set(false)
	}
}

// ApplyDefaults selects the options the catalog marks as default-selected
// and unselects everything else.
func (l *SelectionList) ApplyDefaults() {
	for _, it := range l.items {
		it.set(false)
		for _, tagOpt := range it.Tag.Options {
			if tagOpt.ID == it.OptionID && tagOpt.DefaultSelected {
				it.set(true)
			}
		}
	}
}

// ReplaceSelection sets the selection of one tag to exactly the given
// option ids, leaving every other tag untouched. Ids not present under the
// tag are ignored. Cardinality is enforced through Select, so for a
// single-select tag the last valid id wins.
func (l *SelectionList) ReplaceSelection(tag *Tag, ids []int) {
	if tag == nil {
		return
	}
	view := l.Filter(tag)
	for _, it := range view.items {
		it.set(false)
	}
	for _, id := range ids {
		for _, it := range view.items {
			if it.OptionID == id {
				l.Select(it)
				break
			}
		}
	}
}

// SelectedCount returns the number of selected items.
func (l *SelectionList) SelectedCount() int {
	n := 0
	for _, it := range l.items {
		if it.on {
			n++
		}
	}
	return n
}

// SelectedItems returns a view containing only the selected items.
func (l *SelectionList) SelectedItems() *SelectionList {
	out := &SelectionList{minRequired: l.minRequired, maxAllowed: l.maxAllowed}
	for _, it := range l.items {
		if it.on {
			out.items = append(out.items, it)
		}
	}
	return out
}

// SelectedIDs returns the option ids of all selected items, in list order.
func (l *SelectionList) SelectedIDs() []int {
	var out []int
	for _, it := range l.items {
		if it.on {
			out = append(out, it.OptionID)
		}
	}
	return out
}

// HasValidSelection reports whether every tag referenced by the list has a
// selected-option count within its minimum/maximum bounds. This gate must
// pass before the stream may be started or modified.
func (l *SelectionList) HasValidSelection() bool {
	for _, tag := range l.Tags() {
		n := l.Filter(tag).SelectedCount()
		if n < tag.MinSelected() || n > tag.MaxSelected() {
			return false
		}
	}
	return true
}

// AutoSelectSingles selects the lone option of any tag that offers exactly
// one choice.
func (l *SelectionList) AutoSelectSingles() {
	for _, tag := range l.Tags() {
		view := l.Filter(tag)
		if len(view.items) == 1 {
			view.items[0].set(true)
		}
	}
}

// Serialize returns the selection state as option id -> selected, used for
// persistence and vote bookkeeping.
func (l *SelectionList) Serialize() map[int]bool {
	out := make(map[int]bool, len(l.items))
	for _, it := range l.items {
		out[it.OptionID] = it.on
	}
	return out
}

// Restore applies a serialized selection. Items without a stored entry keep
// their current state, so restoring a fresh list leaves them unselected.
// Restoring twice from the same data yields the same selection.
func (l *SelectionList) Restore(state map[int]bool) {
	for _, it := range l.items {
		if on, ok := state[it.OptionID]; ok {
			it.set(on)
		}
	}
}
