// Package list provides the intrusive doubly-linked list used for the
// scheduler's ready/sleep/wait/all-tasks queues (spec.md §3 Task,
// §9 "Intrusive linked lists"). Rather than the source's raw
// list_node_t embedded with back-pointers resolved by pointer
// arithmetic, each Node carries a typed owner pointer: same O(1)
// enqueue/dequeue and zero per-node heap traffic (the Node lives
// embedded in the owner, not separately allocated), without unsafe
// container_of arithmetic. This is the arena-by-reference alternative
// spec.md §9 suggests explicitly.
package list

// Node is one linkage point. A single owner (e.g. a task) embeds one
// Node per list it can simultaneously belong to.
type Node[T any] struct {
	next, prev *Node[T]
	owner      *T
	linked     bool
}

// NewNode returns a Node embedded by owner, not yet linked into any list.
func NewNode[T any](owner *T) Node[T] {
	return Node[T]{owner: owner}
}

// Owner returns the struct this node is embedded in.
func (n *Node[T]) Owner() *T { return n.owner }

// Linked reports whether n is currently a member of some List.
func (n *Node[T]) Linked() bool { return n.linked }

// List is a FIFO-capable doubly linked list of Nodes. Zero value is an
// empty list. Callers serialize access themselves: the scheduler's
// queues are protected by interrupt-disabled regions, not a mutex,
// per spec.md §5 ("interrupt-level data structures ... protected by
// short interrupt-disabled regions rather than mutexes").
type List[T any] struct {
	head, tail *Node[T]
	count      int
}

// Len returns the number of linked nodes.
func (l *List[T]) Len() int { return l.count }

// Empty reports whether the list has no members.
func (l *List[T]) Empty() bool { return l.count == 0 }

// PushBack enqueues n at the tail. n must not already be linked into a
// list (panics on contract breach, mirroring the "freeing an unowned
// slot"-class invariant in spec.md §7 Contract breach, surfaced here as
// a programmer error rather than a silent corruption).
func (l *List[T]) PushBack(n *Node[T]) {
	if n.linked {
		panic("list: PushBack of an already-linked node")
	}
	n.prev = l.tail
	n.next = nil
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
	n.linked = true
	l.count++
}

// PushFront enqueues n at the head.
func (l *List[T]) PushFront(n *Node[T]) {
	if n.linked {
		panic("list: PushFront of an already-linked node")
	}
	n.next = l.head
	n.prev = nil
	if l.head != nil {
		l.head.prev = n
	} else {
		l.tail = n
	}
	l.head = n
	n.linked = true
	l.count++
}

// Front returns the head node, or nil if empty.
func (l *List[T]) Front() *Node[T] { return l.head }

// PopFront removes and returns the head node, or nil if empty. This is
// the scheduler's ready-queue dequeue (spec.md §4.3 "ready queue is
// FIFO").
func (l *List[T]) PopFront() *Node[T] {
	n := l.head
	if n == nil {
		return nil
	}
	l.Remove(n)
	return n
}

// Remove unlinks n from l. No-op if n is not linked; if n is linked
// into a *different* list this silently corrupts that list, same as
// the source's raw pointer surgery — callers are responsible for
// passing the right list, just as in the original.
func (l *List[T]) Remove(n *Node[T]) {
	if !n.linked {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.next, n.prev = nil, nil
	n.linked = false
	l.count--
}

// Each calls fn for every linked node's owner, head to tail. fn must
// not mutate the list.
func (l *List[T]) Each(fn func(*T)) {
	for n := l.head; n != nil; n = n.next {
		fn(n.owner)
	}
}

// Find returns the first owner for which pred returns true, or nil.
func (l *List[T]) Find(pred func(*T) bool) *T {
	for n := l.head; n != nil; n = n.next {
		if pred(n.owner) {
			return n.owner
		}
	}
	return nil
}
