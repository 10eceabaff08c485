// SPDX-License-Identifier: Apache-2.0

package talloc

import "unsafe"

// bins holds, per size class, a sentinel node for a circular doubly linked
// free list plus an availability bitmap summarizing which classes are
// non-empty. Grounded on original_source/talc/src/talc/mod.rs's
// avails/free_lists pairing, specialized to this repo's own BinIndex.
type bins struct {
	index     *BinIndex
	sentinels []uintptr // backing store for N sentinel nodes, one per class
	avail     availability
}

func newBins(index *BinIndex) *bins {
	n := index.Count()
	b := &bins{
		index:     index,
		sentinels: make([]uintptr, n*2), // 2 words (node{next,prev}) per sentinel
		avail:     newAvailability(n),
	}
	base := uintptr(unsafe.Pointer(&b.sentinels[0]))
	for i := 0; i < n; i++ {
		addr := base + uintptr(i)*2*wordSize
		newSentinel(addr)
	}
	return b
}

func (b *bins) sentinelAddr(class int) uintptr {
	return uintptr(unsafe.Pointer(&b.sentinels[0])) + uintptr(class)*2*wordSize
}

// insert links a free chunk of the given size at the head of its class's
// list and marks the class non-empty. The chunk's list node occupies the
// two words after its pre-tag.
func (b *bins) insert(chunkBase, size uintptr) {
	class := b.index.ClassOf(size)
	sentinel := b.sentinelAddr(class)
	if isEmptyList(sentinel) {
		b.avail.set(class)
	}
	insertAfter(sentinel, chunkBase+wordSize)
}

// unlink splices a free chunk of the given size out of its class's list,
// clearing the class's availability bit if the list becomes empty.
func (b *bins) unlink(chunkBase, size uintptr) {
	class := b.index.ClassOf(size)
	unlinkNode(chunkBase + wordSize)
	if isEmptyList(b.sentinelAddr(class)) {
		b.avail.clear(class)
	}
}

// findFit locates the first non-empty class >= class_of(size) whose head
// chunk holds at least size bytes, and returns the base address of that
// head and the class's index. Every chunk in a class above class_of(size)
// is larger than size, so such a head always fits. In class_of(size)
// itself only the head is checked; if it is too small the search moves on
// to the next non-empty class, and the other chunks of that first class
// are not examined. Returns found=false if no class qualifies.
func (b *bins) findFit(size uintptr) (chunkBase uintptr, class int, found bool) {
	start := b.index.ClassOf(size)
	c := b.avail.firstSetFrom(start)
	if c == start && chunkTag(headOf(b.sentinelAddr(c))-wordSize).size() < size {
		c = b.avail.firstSetFrom(start + 1)
	}
	if c < 0 {
		return 0, 0, false
	}
	return headOf(b.sentinelAddr(c)) - wordSize, c, true
}

// popHead unlinks and returns the head chunk of class c (caller must have
// already confirmed the class is non-empty, e.g. via findFit).
func (b *bins) popHead(class int) uintptr {
	sentinel := b.sentinelAddr(class)
	head := headOf(sentinel)
	unlinkNode(head)
	if isEmptyList(sentinel) {
		b.avail.clear(class)
	}
	return head - wordSize
}
