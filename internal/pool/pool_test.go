package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type node struct {
	value int
	l     Links
}

func (n *node) Links() *Links { return &n.l }

func collect(t *testing.T, l *List[node], arena *Arena[node]) []int {
	t.Helper()
	var out []int
	l.Each(func(h Handle) { out = append(out, arena.Get(h).value) })
	return out
}

func TestListPushBackFrontOrder(t *testing.T) {
	arena := NewArena[node](4)
	l := NewList(arena)

	a := arena.Alloc(node{value: 1})
	b := arena.Alloc(node{value: 2})
	c := arena.Alloc(node{value: 3})

	l.PushBack(a)
	l.PushBack(b)
	l.PushFront(c)

	require.Equal(t, []int{3, 1, 2}, collect(t, l, arena))
	require.Equal(t, 2, arena.Get(l.Back()).value)
	require.Equal(t, 3, arena.Get(l.Front()).value)
}

func TestListEraseMiddleAndEnds(t *testing.T) {
	arena := NewArena[node](4)
	l := NewList(arena)

	ids := make([]Handle, 5)
	for i := range ids {
		ids[i] = arena.Alloc(node{value: i})
		l.PushBack(ids[i])
	}
	require.Equal(t, []int{0, 1, 2, 3, 4}, collect(t, l, arena))

	l.Erase(ids[2])
	require.Equal(t, []int{0, 1, 3, 4}, collect(t, l, arena))

	l.Erase(ids[0])
	require.Equal(t, []int{1, 3, 4}, collect(t, l, arena))

	l.Erase(ids[4])
	require.Equal(t, []int{1, 3}, collect(t, l, arena))
	require.Equal(t, 3, arena.Get(l.Back()).value)
}

func TestListSpliceToBack(t *testing.T) {
	// Both lists are backed by the same arena, mirroring how the engine
	// moves a BLC slice between two region lists that share one arena.
	arena := NewArena[node](4)
	src := NewList(arena)
	dst := NewList(arena)

	a := arena.Alloc(node{value: 10})
	b := arena.Alloc(node{value: 20})
	src.PushBack(a)
	src.PushBack(b)
	dst.PushBack(arena.Alloc(node{value: 99}))

	dst.SpliceToBack(src, a)

	require.Equal(t, []int{20}, collect(t, src, arena))
	require.Equal(t, []int{99, 10}, collect(t, dst, arena))
}

func TestArenaReusesFreedSlots(t *testing.T) {
	arena := NewArena[node](1)
	a := arena.Alloc(node{value: 1})
	b := arena.Alloc(node{value: 2})
	arena.Free(a)
	c := arena.Alloc(node{value: 3})

	require.Equal(t, a, c, "freed slot should be recycled before growing")
	require.Equal(t, 3, arena.Get(c).value)
	require.Equal(t, 2, arena.Get(b).value)
}
