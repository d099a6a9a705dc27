package pool

// Linked is implemented by arena element types that want to participate in
// an intrusive doubly-linked List. Elements carry their own next/prev
// handles, exactly as simple_list's entry embeds next/prev alongside its
// payload; there is no separate list-node wrapper to allocate. The method
// is exported so element types in other packages (engine's BLC slices, in
// particular) can embed Links and implement it.
type Linked interface {
	Links() *Links
}

// Links holds the next/prev handles an element needs to sit in a List.
// Embed it by value and forward Links() to its address.
type Links struct {
	next, prev Handle
}

// List is a near-circular intrusive doubly-linked list over handles drawn
// from an Arena[T]: the first element's prev points at the last element,
// and the last element's next is NoHandle. That asymmetry is what lets
// Back() run in O(1) without a sentinel node, exactly as in the teacher's
// simple_list. *T must implement Linked (Links is normally declared on the
// pointer receiver); this is checked when a node's links are first used.
type List[T any] struct {
	arena *Arena[T]
	first Handle
}

// NewList creates an empty list backed by arena.
func NewList[T any](arena *Arena[T]) *List[T] {
	return &List[T]{arena: arena, first: NoHandle}
}

func (l *List[T]) Empty() bool { return l.first == NoHandle }

// Front returns the handle of the first element, or NoHandle if empty.
func (l *List[T]) Front() Handle { return l.first }

// Back returns the handle of the last element, or NoHandle if empty.
func (l *List[T]) Back() Handle {
	if l.Empty() {
		return NoHandle
	}
	return l.link(l.first).prev
}

func (l *List[T]) link(h Handle) *Links {
	return any(l.arena.Get(h)).(Linked).Links()
}

// PushBack appends h (already allocated in the arena, not currently linked
// into any list) to the end of the list.
func (l *List[T]) PushBack(h Handle) {
	l.InsertBefore(NoHandle, h)
}

// PushFront prepends h to the beginning of the list.
func (l *List[T]) PushFront(h Handle) {
	if l.Empty() {
		l.PushBack(h)
		return
	}
	l.InsertBefore(l.first, h)
}

// InsertBefore inserts h immediately before pos. pos == NoHandle means
// "insert at the end", mirroring simple_list::emplace(end(), ...).
func (l *List[T]) InsertBefore(pos, h Handle) {
	n := l.link(h)
	if l.Empty() {
		n.next = NoHandle
		n.prev = h
		l.first = h
		return
	}
	if pos == NoHandle {
		last := l.Back()
		l.link(last).next = h
		n.prev = last
		n.next = NoHandle
		l.link(l.first).prev = h
		return
	}
	p := l.link(pos)
	prev := p.prev
	n.next = pos
	n.prev = prev
	if pos == l.first {
		l.first = h
	} else {
		l.link(prev).next = h
	}
	p.prev = h
}

// InsertAfter inserts h immediately after pos. pos == NoHandle means
// "insert at the front".
func (l *List[T]) InsertAfter(pos, h Handle) {
	if pos == NoHandle {
		l.PushFront(h)
		return
	}
	next := l.link(pos).next
	if next == NoHandle {
		l.InsertBefore(NoHandle, h)
		return
	}
	l.InsertBefore(next, h)
}

// Erase removes h from the list. h must currently be linked into l.
func (l *List[T]) Erase(h Handle) {
	n := l.link(h)
	next, prev := n.next, n.prev
	if h == l.first {
		l.first = next
		if next != NoHandle {
			l.link(next).prev = prev
		}
		return
	}
	l.link(prev).next = next
	if next != NoHandle {
		l.link(next).prev = prev
	} else {
		l.link(l.first).prev = prev
	}
}

// SpliceToBack moves h out of src (if non-nil) and appends it to the back
// of l, mirroring simple_list::splice_to_after(end(), ...).
func (l *List[T]) SpliceToBack(src *List[T], h Handle) {
	if src != nil {
		src.Erase(h)
	}
	l.PushBack(h)
}

// Each calls f with every handle in the list, front to back. f must not
// mutate the list's link structure while iterating.
func (l *List[T]) Each(f func(Handle)) {
	for h := l.first; h != NoHandle; {
		next := l.link(h).next
		f(h)
		h = next
	}
}
