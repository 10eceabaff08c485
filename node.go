// SPDX-License-Identifier: Apache-2.0

package talloc

import "unsafe"

// node is the intrusive doubly-linked free-list node written into the
// first two words of a free chunk's payload. The list is circular with a
// sentinel head per bin class, grounded on
// original_source/src/llist.rs's LlistNode: intrusive to avoid a separate
// allocation, circular to avoid branching on list-end, doubly linked so a
// chunk can unlink itself in O(1) without walking the list.
type node struct {
	next uintptr // address of next node's `next` field (i.e. the node itself)
	prev uintptr
}

func nodePtr(addr uintptr) *node {
	return (*node)(unsafe.Pointer(addr))
}

// newSentinel initializes addr as a self-referential singleton list,
// serving as a bin's permanent head.
func newSentinel(addr uintptr) {
	n := nodePtr(addr)
	n.next = addr
	n.prev = addr
}

// insertAfter links a fresh node at nodeAddr immediately after afterAddr
// in afterAddr's list.
func insertAfter(afterAddr, nodeAddr uintptr) {
	after := nodePtr(afterAddr)
	next := after.next
	n := nodePtr(nodeAddr)
	n.prev = afterAddr
	n.next = next
	nodePtr(next).prev = nodeAddr
	after.next = nodeAddr
}

// unlink splices nodeAddr out of whatever list it belongs to. The node's
// own fields are left stale; the caller is about to either discard the
// chunk's free-list area (allocation) or it's the sentinel (never called
// for sentinels).
func unlinkNode(nodeAddr uintptr) {
	n := nodePtr(nodeAddr)
	prev, next := n.prev, n.next
	nodePtr(prev).next = next
	nodePtr(next).prev = prev
}

// isEmptyList reports whether sentinelAddr's list holds no member nodes.
func isEmptyList(sentinelAddr uintptr) bool {
	return nodePtr(sentinelAddr).next == sentinelAddr
}

// headOf returns the address of the first member node in sentinelAddr's
// list. Must not be called on an empty list.
func headOf(sentinelAddr uintptr) uintptr {
	return nodePtr(sentinelAddr).next
}
