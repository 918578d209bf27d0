// Package listview manages an ordered, selectable list of entries with a
// scrolling window, independent of how the list is drawn.
package listview

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/AudomaroDuran/Ai27Simulator/internal/event"
)

// SelectionMode controls how many entries can be selected at once.
type SelectionMode int

const (
	SelectNone SelectionMode = iota
	SelectSingle
	SelectMulti
)

func (m SelectionMode) String() string {
	switch m {
	case SelectNone:
		return "none"
	case SelectSingle:
		return "single"
	case SelectMulti:
		return "multi"
	}
	return fmt.Sprintf("SelectionMode(%d)", int(m))
}

// Entry is one row of the list. Tag groups entries for lookup and removal;
// Priority orders them in SortByPriority.
type Entry[T any] struct {
	Value    T
	Tag      string
	Priority int

	selected bool
}

// Selected reports whether the entry is selected.
func (e *Entry[T]) Selected() bool { return e.selected }

// Change is the payload of Added, Removed and Selected.
type Change[T any] struct {
	Entry *Entry[T]
	Index int
}

// SelectionChange carries the new and previous primary selection. Either may
// be nil.
type SelectionChange[T any] struct {
	New, Old *Entry[T]
}

// Manager owns the entries. The zero value is not usable; call New.
type Manager[T any] struct {
	Mode SelectionMode
	// VisibleRows is the height of the scroll window. Zero disables
	// scrolling.
	VisibleRows int
	// Wrap makes SelectNext and SelectPrevious cycle at the ends.
	Wrap                  bool
	AutoScrollToNew       bool
	AutoScrollToSelection bool

	Added            event.Delegate[Change[T]]
	Removed          event.Delegate[Change[T]]
	Selected         event.Delegate[Change[T]]
	SelectionChanged event.Delegate[SelectionChange[T]]
	// Updated carries the entry count after any change to the content.
	Updated event.Delegate[int]

	entries  []*Entry[T]
	current  *Entry[T]
	selected []*Entry[T]
	offset   int
}

// New returns a single-selection manager that wraps and follows the
// selection.
func New[T any](visibleRows int) *Manager[T] {
	return &Manager[T]{
		Mode:                  SelectSingle,
		VisibleRows:           visibleRows,
		Wrap:                  true,
		AutoScrollToSelection: true,
	}
}

// Add appends e and returns its index, or -1 for a nil or already managed
// entry.
func (m *Manager[T]) Add(e *Entry[T]) int { return m.AddAt(e, len(m.entries)) }

// AddValue wraps v in a new entry and appends it.
func (m *Manager[T]) AddValue(v T, tag string) *Entry[T] {
	e := &Entry[T]{Value: v, Tag: tag}
	m.Add(e)
	return e
}

// AddAt inserts e at index, clamped to [0, Len].
func (m *Manager[T]) AddAt(e *Entry[T], index int) int {
	if e == nil || m.Contains(e) {
		return -1
	}
	index = lo.Clamp(index, 0, len(m.entries))
	m.entries = slices.Insert(m.entries, index, e)
	m.Added.Broadcast(Change[T]{Entry: e, Index: index})
	m.Updated.Broadcast(len(m.entries))
	if m.AutoScrollToNew {
		m.ScrollTo(index)
	}
	return index
}

// Remove takes e out of the list, deselecting it first.
func (m *Manager[T]) Remove(e *Entry[T]) bool {
	i := m.Index(e)
	if i < 0 {
		return false
	}
	m.removeAt(i)
	m.Updated.Broadcast(len(m.entries))
	return true
}

// RemoveAt removes and returns the entry at index, or nil when index is out
// of range.
func (m *Manager[T]) RemoveAt(index int) *Entry[T] {
	if index < 0 || index >= len(m.entries) {
		return nil
	}
	e := m.removeAt(index)
	m.Updated.Broadcast(len(m.entries))
	return e
}

func (m *Manager[T]) removeAt(i int) *Entry[T] {
	e := m.entries[i]
	if e.selected {
		m.Deselect(e)
	}
	m.entries = slices.Delete(m.entries, i, i+1)
	m.clampOffset()
	m.Removed.Broadcast(Change[T]{Entry: e, Index: i})
	return e
}

// RemoveWhere removes every entry matching pred and returns how many went.
func (m *Manager[T]) RemoveWhere(pred func(*Entry[T]) bool) int {
	n := 0
	for i := len(m.entries) - 1; i >= 0; i-- {
		if pred(m.entries[i]) {
			m.removeAt(i)
			n++
		}
	}
	if n > 0 {
		m.Updated.Broadcast(len(m.entries))
	}
	return n
}

// RemoveByTag removes every entry tagged tag.
func (m *Manager[T]) RemoveByTag(tag string) int {
	return m.RemoveWhere(func(e *Entry[T]) bool { return e.Tag == tag })
}

// Clear removes every entry and returns how many there were.
func (m *Manager[T]) Clear() int {
	n := len(m.entries)
	m.ClearSelection()
	m.entries = nil
	m.offset = 0
	m.Updated.Broadcast(0)
	return n
}

// Len is the number of entries.
func (m *Manager[T]) Len() int { return len(m.entries) }

// Entries returns the entries in display order.
func (m *Manager[T]) Entries() []*Entry[T] { return slices.Clone(m.entries) }

// At returns the entry at index, or nil.
func (m *Manager[T]) At(index int) *Entry[T] {
	if index < 0 || index >= len(m.entries) {
		return nil
	}
	return m.entries[index]
}

// Index returns the position of e, or -1.
func (m *Manager[T]) Index(e *Entry[T]) int {
	if e == nil {
		return -1
	}
	return lo.IndexOf(m.entries, e)
}

// Contains reports whether e is managed.
func (m *Manager[T]) Contains(e *Entry[T]) bool { return m.Index(e) >= 0 }

// Find returns the first entry matching pred.
func (m *Manager[T]) Find(pred func(*Entry[T]) bool) (*Entry[T], bool) {
	return lo.Find(m.entries, pred)
}

// FindByTag returns every entry tagged tag.
func (m *Manager[T]) FindByTag(tag string) []*Entry[T] {
	return lo.Filter(m.entries, func(e *Entry[T], _ int) bool { return e.Tag == tag })
}

// First returns the first entry, or nil.
func (m *Manager[T]) First() *Entry[T] { return m.At(0) }

// Last returns the last entry, or nil.
func (m *Manager[T]) Last() *Entry[T] { return m.At(len(m.entries) - 1) }

// Update replaces the value of e.
func (m *Manager[T]) Update(e *Entry[T], v T) bool {
	if !m.Contains(e) {
		return false
	}
	e.Value = v
	m.Updated.Broadcast(len(m.entries))
	return true
}

// Select makes e the primary selection. In single mode it replaces the
// previous selection; in multi mode it is added to the set.
func (m *Manager[T]) Select(e *Entry[T]) {
	if m.Mode == SelectNone || !m.Contains(e) {
		return
	}
	old := m.current
	if m.Mode == SelectSingle {
		if old != nil && old != e {
			old.selected = false
		}
		m.selected = []*Entry[T]{e}
	} else if !lo.Contains(m.selected, e) {
		m.selected = append(m.selected, e)
	}
	e.selected = true
	m.current = e

	i := m.Index(e)
	if m.AutoScrollToSelection {
		m.ScrollTo(i)
	}
	m.Selected.Broadcast(Change[T]{Entry: e, Index: i})
	if old != e {
		m.SelectionChanged.Broadcast(SelectionChange[T]{New: e, Old: old})
	}
}

// SelectAt selects the entry at index.
func (m *Manager[T]) SelectAt(index int) { m.Select(m.At(index)) }

// Deselect clears the selection of e.
func (m *Manager[T]) Deselect(e *Entry[T]) {
	if e == nil || !e.selected {
		return
	}
	e.selected = false
	m.selected = lo.Without(m.selected, e)
	if m.current == e {
		m.current = nil
		m.SelectionChanged.Broadcast(SelectionChange[T]{Old: e})
	}
}

// ClearSelection deselects every entry.
func (m *Manager[T]) ClearSelection() {
	old := m.current
	for _, e := range m.selected {
		e.selected = false
	}
	m.selected = nil
	m.current = nil
	if old != nil {
		m.SelectionChanged.Broadcast(SelectionChange[T]{Old: old})
	}
}

// Current returns the primary selection, or nil.
func (m *Manager[T]) Current() *Entry[T] { return m.current }

// SelectedEntries returns every selected entry in selection order.
func (m *Manager[T]) SelectedEntries() []*Entry[T] { return slices.Clone(m.selected) }

// SelectedIndex is the index of the primary selection, or -1.
func (m *Manager[T]) SelectedIndex() int { return m.Index(m.current) }

// SelectNext moves the selection down one row. With nothing selected it
// selects the first entry.
func (m *Manager[T]) SelectNext() {
	n := len(m.entries)
	if n == 0 {
		return
	}
	next := m.SelectedIndex() + 1
	if next >= n {
		next = lo.Ternary(m.Wrap, 0, n-1)
	}
	m.SelectAt(next)
}

// SelectPrevious moves the selection up one row. With nothing selected it
// selects the last entry.
func (m *Manager[T]) SelectPrevious() {
	n := len(m.entries)
	if n == 0 {
		return
	}
	cur := m.SelectedIndex()
	prev := cur - 1
	switch {
	case cur < 0:
		prev = n - 1
	case prev < 0:
		prev = lo.Ternary(m.Wrap, n-1, 0)
	}
	m.SelectAt(prev)
}

// SortByPriority orders the entries by Priority. Equal priorities keep their
// relative order.
func (m *Manager[T]) SortByPriority(ascending bool) {
	m.SortFunc(func(a, b *Entry[T]) int {
		if ascending {
			return cmp.Compare(a.Priority, b.Priority)
		}
		return cmp.Compare(b.Priority, a.Priority)
	})
}

// SortFunc orders the entries with a stable sort using compare.
func (m *Manager[T]) SortFunc(compare func(a, b *Entry[T]) int) {
	slices.SortStableFunc(m.entries, compare)
	m.Updated.Broadcast(len(m.entries))
}

// Move puts e at index, clamped to the list.
func (m *Manager[T]) Move(e *Entry[T], index int) bool {
	i := m.Index(e)
	if i < 0 {
		return false
	}
	m.entries = slices.Delete(m.entries, i, i+1)
	m.entries = slices.Insert(m.entries, lo.Clamp(index, 0, len(m.entries)), e)
	m.Updated.Broadcast(len(m.entries))
	return true
}

// Swap exchanges the entries at i and j.
func (m *Manager[T]) Swap(i, j int) bool {
	if m.At(i) == nil || m.At(j) == nil {
		return false
	}
	m.entries[i], m.entries[j] = m.entries[j], m.entries[i]
	m.Updated.Broadcast(len(m.entries))
	return true
}

// Offset is the index of the first visible row.
func (m *Manager[T]) Offset() int { return m.offset }

// SetOffset scrolls to offset, clamped so the window stays full.
func (m *Manager[T]) SetOffset(offset int) {
	m.offset = offset
	m.clampOffset()
}

// ScrollTo scrolls the minimum amount that brings index into view.
func (m *Manager[T]) ScrollTo(index int) {
	if m.VisibleRows <= 0 {
		return
	}
	switch {
	case index < m.offset:
		m.offset = index
	case index >= m.offset+m.VisibleRows:
		m.offset = index - m.VisibleRows + 1
	}
	m.clampOffset()
}

// Visible returns the entries inside the scroll window.
func (m *Manager[T]) Visible() []*Entry[T] {
	if m.VisibleRows <= 0 {
		return m.Entries()
	}
	end := min(m.offset+m.VisibleRows, len(m.entries))
	return slices.Clone(m.entries[m.offset:end])
}

func (m *Manager[T]) clampOffset() {
	if m.VisibleRows <= 0 {
		m.offset = 0
		return
	}
	m.offset = lo.Clamp(m.offset, 0, max(0, len(m.entries)-m.VisibleRows))
}
