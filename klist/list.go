// Package klist implements a circular, doubly-linked intrusive list with a
// sentinel head node, the same shape as the kernel's internal ready/delay/
// waiter lists.
//
// A Node is meant to be embedded directly in a domain struct (a task
// control block embeds two: one for its state-list membership and one for
// its event-waiter-list membership) so a single struct can sit on two
// independent lists at once without any separate allocation.
package klist

// Node is one link in a list. The zero value is not a usable node; call
// Init before first use.
type Node struct {
	next, prev *Node
	owner      any
}

// Init makes n a standalone, empty node (or sentinel head) pointing to
// itself.
func (n *Node) Init() {
	n.next = n
	n.prev = n
}

// SetOwner records the domain value this node is embedded in, so callers
// walking a list of Nodes can recover the containing struct via Owner.
func (n *Node) SetOwner(v any) { n.owner = v }

// Owner returns the value previously recorded with SetOwner.
func (n *Node) Owner() any { return n.owner }

// Empty reports whether a sentinel head has no entries linked into it.
func (head *Node) Empty() bool { return head.next == head }

// Front returns the first entry after the sentinel head, or nil if empty.
func (head *Node) Front() *Node {
	if head.Empty() {
		return nil
	}
	return head.next
}

// insertBetween splices n between a and b (a.next == b going in).
func insertBetween(n, a, b *Node) {
	n.prev = a
	n.next = b
	a.next = n
	b.prev = n
}

// AddAfter inserts n immediately after at.
func (at *Node) AddAfter(n *Node) { insertBetween(n, at, at.next) }

// AddBefore inserts n immediately before at.
func (at *Node) AddBefore(n *Node) { insertBetween(n, at.prev, at) }

// AddTail inserts n as the last entry of the list whose sentinel is head.
func (head *Node) AddTail(n *Node) { head.AddBefore(n) }

// AddHead inserts n as the first entry of the list whose sentinel is head.
func (head *Node) AddHead(n *Node) { head.AddAfter(n) }

// Delete unlinks n from whatever list it is on and re-initializes it as a
// standalone node. Deleting a node that is not on any list (already
// standalone) is a safe no-op.
func (n *Node) Delete() {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.Init()
}

// RawNext returns n's successor link without regard to sentinel
// boundaries. Callers walking a list manually compare the result against
// the list's sentinel head to detect the end.
func (n *Node) RawNext() *Node { return n.next }

// Linked reports whether n is currently linked into some list (including
// being a non-empty sentinel head).
func (n *Node) Linked() bool { return n.next != n }

// MoveToTail moves n, which must already be linked into the list whose
// sentinel is head, to the tail of that same list.
func (head *Node) MoveToTail(n *Node) {
	n.prev.next = n.next
	n.next.prev = n.prev
	head.AddBefore(n)
}

// Each calls fn for every entry in the list whose sentinel is head, in
// order from front to back. fn must not delete or move nodes other than
// the one it is currently passed.
func (head *Node) Each(fn func(n *Node)) {
	for n := head.next; n != head; n = n.next {
		fn(n)
	}
}
