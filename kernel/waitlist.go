package kernel

import "rtoscore/klist"

// insertWaiterByPriority inserts t onto the waiter list whose sentinel is
// head, keeping the list sorted by ascending numeric priority (so the
// highest-priority waiter — lowest number — sits at the front); ties
// break FIFO by physical insertion position.
func insertWaiterByPriority(head *klist.Node, t *tcb) {
	cur := head.RawNext()
	for cur != head {
		if owner, ok := cur.Owner().(*tcb); ok && owner.priority > t.priority {
			cur.AddBefore(&t.eventNode)
			return
		}
		cur = cur.RawNext()
	}
	head.AddTail(&t.eventNode)
}

// popHighestPriorityWaiter removes and returns the front (highest
// priority) waiter on head, or nil if the list is empty.
func popHighestPriorityWaiter(head *klist.Node) *tcb {
	n := head.Front()
	if n == nil {
		return nil
	}
	n.Delete()
	t, _ := n.Owner().(*tcb)
	return t
}
