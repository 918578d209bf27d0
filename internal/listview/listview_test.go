package listview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values[T any](es []*Entry[T]) []T {
	out := make([]T, len(es))
	for i, e := range es {
		out[i] = e.Value
	}
	return out
}

func filled(t *testing.T, rows int, vs ...string) *Manager[string] {
	t.Helper()
	m := New[string](rows)
	for _, v := range vs {
		m.AddValue(v, "")
	}
	require.Equal(t, len(vs), m.Len())
	return m
}

func TestAddAndRemove(t *testing.T) {
	t.Parallel()
	m := New[string](0)
	var added []Change[string]
	var counts []int
	m.Added.Add(func(c Change[string]) { added = append(added, c) })
	m.Updated.Add(func(n int) { counts = append(counts, n) })

	a := &Entry[string]{Value: "a", Tag: "car"}
	b := &Entry[string]{Value: "b", Tag: "bus"}
	c := &Entry[string]{Value: "c", Tag: "car"}
	assert.Equal(t, 0, m.Add(a))
	assert.Equal(t, 1, m.Add(b))
	assert.Equal(t, 0, m.AddAt(c, -5), "index is clamped")
	assert.Equal(t, -1, m.Add(a), "already managed")
	assert.Equal(t, -1, m.Add(nil))
	assert.Equal(t, []string{"c", "a", "b"}, values(m.Entries()))
	assert.Equal(t, []int{1, 2, 3}, counts)
	require.Len(t, added, 3)
	assert.Equal(t, Change[string]{Entry: c, Index: 0}, added[2])

	assert.Same(t, c, m.First())
	assert.Same(t, b, m.Last())
	assert.Equal(t, []*Entry[string]{c, a}, m.FindByTag("car"))
	found, ok := m.Find(func(e *Entry[string]) bool { return e.Value == "b" })
	require.True(t, ok)
	assert.Same(t, b, found)

	assert.True(t, m.Remove(a))
	assert.False(t, m.Remove(a))
	assert.Same(t, b, m.RemoveAt(1))
	assert.Nil(t, m.RemoveAt(7))
	assert.Equal(t, []string{"c"}, values(m.Entries()))

	assert.Equal(t, 1, m.Clear())
	assert.Nil(t, m.First())
	assert.Nil(t, m.Last())
}

func TestRemoveWhere(t *testing.T) {
	t.Parallel()
	m := New[int](0)
	var removed []int
	m.Removed.Add(func(c Change[int]) { removed = append(removed, c.Entry.Value) })
	for i := 0; i < 6; i++ {
		tag := "even"
		if i%2 == 1 {
			tag = "odd"
		}
		m.AddValue(i, tag)
	}

	assert.Equal(t, 3, m.RemoveByTag("odd"))
	assert.Equal(t, []int{0, 2, 4}, values(m.Entries()))
	assert.ElementsMatch(t, []int{1, 3, 5}, removed)
	assert.Equal(t, 0, m.RemoveWhere(func(e *Entry[int]) bool { return e.Value > 10 }))
}

func TestSingleSelection(t *testing.T) {
	t.Parallel()
	m := filled(t, 0, "a", "b", "c")
	var changes []SelectionChange[string]
	m.SelectionChanged.Add(func(c SelectionChange[string]) { changes = append(changes, c) })

	a, b := m.At(0), m.At(1)
	m.Select(a)
	m.Select(b)
	assert.False(t, a.Selected())
	assert.True(t, b.Selected())
	assert.Same(t, b, m.Current())
	assert.Equal(t, []*Entry[string]{b}, m.SelectedEntries())
	assert.Equal(t, 1, m.SelectedIndex())

	m.Select(b)
	require.Len(t, changes, 2, "reselecting does not change the selection")
	assert.Equal(t, SelectionChange[string]{New: b, Old: a}, changes[1])

	m.Remove(b)
	assert.Nil(t, m.Current())
	assert.Equal(t, -1, m.SelectedIndex())
	assert.Equal(t, SelectionChange[string]{Old: b}, changes[2])

	m.Select(&Entry[string]{Value: "stranger"})
	assert.Nil(t, m.Current())
}

func TestMultiSelection(t *testing.T) {
	t.Parallel()
	m := filled(t, 0, "a", "b", "c")
	m.Mode = SelectMulti

	m.SelectAt(0)
	m.SelectAt(2)
	m.SelectAt(0)
	assert.Equal(t, []string{"a", "c"}, values(m.SelectedEntries()))
	assert.Equal(t, "a", m.Current().Value)

	m.Deselect(m.At(2))
	assert.Equal(t, []string{"a"}, values(m.SelectedEntries()))

	m.ClearSelection()
	assert.Empty(t, m.SelectedEntries())
	assert.False(t, m.At(0).Selected())
}

func TestSelectionDisabled(t *testing.T) {
	t.Parallel()
	m := filled(t, 0, "a")
	m.Mode = SelectNone
	m.SelectAt(0)
	assert.Nil(t, m.Current())
	assert.Equal(t, "none", m.Mode.String())
}

func TestNavigation(t *testing.T) {
	t.Parallel()
	m := filled(t, 0, "a", "b", "c")

	m.SelectNext()
	assert.Equal(t, 0, m.SelectedIndex(), "first press selects the top")
	m.SelectPrevious()
	assert.Equal(t, 2, m.SelectedIndex(), "wraps to the bottom")
	m.SelectNext()
	assert.Equal(t, 0, m.SelectedIndex(), "wraps to the top")

	m.Wrap = false
	m.SelectPrevious()
	assert.Equal(t, 0, m.SelectedIndex())
	m.SelectAt(2)
	m.SelectNext()
	assert.Equal(t, 2, m.SelectedIndex())

	m.ClearSelection()
	m.SelectPrevious()
	assert.Equal(t, 2, m.SelectedIndex(), "first press selects the bottom")

	empty := New[string](0)
	empty.SelectNext()
	empty.SelectPrevious()
	assert.Nil(t, empty.Current())
}

func TestSort(t *testing.T) {
	t.Parallel()
	m := New[string](0)
	for _, e := range []*Entry[string]{
		{Value: "low", Priority: 1},
		{Value: "high", Priority: 9},
		{Value: "mid-1", Priority: 5},
		{Value: "mid-2", Priority: 5},
	} {
		m.Add(e)
	}

	m.SortByPriority(true)
	assert.Equal(t, []string{"low", "mid-1", "mid-2", "high"}, values(m.Entries()))
	m.SortByPriority(false)
	assert.Equal(t, []string{"high", "mid-1", "mid-2", "low"}, values(m.Entries()))

	assert.True(t, m.Move(m.At(0), 10))
	assert.Equal(t, []string{"mid-1", "mid-2", "low", "high"}, values(m.Entries()))
	assert.True(t, m.Swap(0, 3))
	assert.Equal(t, []string{"high", "mid-2", "low", "mid-1"}, values(m.Entries()))
	assert.False(t, m.Swap(0, 4))
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	m := filled(t, 0, "a")
	var counts []int
	m.Updated.Add(func(n int) { counts = append(counts, n) })

	assert.True(t, m.Update(m.At(0), "A"))
	assert.Equal(t, "A", m.At(0).Value)
	assert.False(t, m.Update(&Entry[string]{}, "x"))
	assert.Equal(t, []int{1}, counts)
}

func TestScrolling(t *testing.T) {
	t.Parallel()
	m := filled(t, 3, "a", "b", "c", "d", "e", "f")
	assert.Equal(t, []string{"a", "b", "c"}, values(m.Visible()))

	m.SelectAt(4)
	assert.Equal(t, 2, m.Offset())
	assert.Equal(t, []string{"c", "d", "e"}, values(m.Visible()))

	m.SelectAt(1)
	assert.Equal(t, 1, m.Offset())

	m.SetOffset(100)
	assert.Equal(t, 3, m.Offset(), "window stays full")
	m.RemoveAt(5)
	m.RemoveAt(4)
	assert.Equal(t, 1, m.Offset())

	m.AutoScrollToNew = true
	m.AddValue("g", "")
	assert.Equal(t, []string{"c", "d", "g"}, values(m.Visible()))

	unbounded := filled(t, 0, "a", "b")
	unbounded.ScrollTo(1)
	assert.Equal(t, 0, unbounded.Offset())
	assert.Len(t, unbounded.Visible(), 2)
}
