// SPDX-License-Identifier: Apache-2.0

package talloc

import "fmt"

// ScanForErrors walks every claimed heap and every bin, asserting the
// invariants this engine depends on for correctness, and returns the
// first violation found (nil if none). It is O(n) in the number of
// chunks plus free-list entries and is meant for tests and debug builds,
// not the allocation hot path. Grounded directly on this allocator
// lineage's own scan_for_errors (original_source/src/utils.rs).
func (e *Engine) ScanForErrors() error {
	free := make(map[uintptr]uintptr) // chunk base -> size, for every chunk currently in a bin

	for class := 0; class < e.bi.Count(); class++ {
		sentinel := e.bn.sentinelAddr(class)
		if isEmptyList(sentinel) {
			if e.bn.avail.isSet(class) {
				return fmt.Errorf("talloc: bin %d marked available but empty", class)
			}
			continue
		}
		if !e.bn.avail.isSet(class) {
			return fmt.Errorf("talloc: bin %d non-empty but not marked available", class)
		}
		for n := headOf(sentinel); n != sentinel; n = nodePtr(n).next {
			addr := n - wordSize // the node sits one word past the chunk base
			t := chunkTag(addr)
			if t.isAllocated() {
				return fmt.Errorf("talloc: chunk %#x in bin %d is tagged allocated", addr, class)
			}
			size := t.size()
			if size < minChunkSize {
				return fmt.Errorf("talloc: chunk %#x size %d below minChunkSize", addr, size)
			}
			postSize := uintptr(readTag(postTagAddr(addr, t)))
			if postSize != size {
				return fmt.Errorf("talloc: chunk %#x pre-tag size %d != post-tag size %d", addr, size, postSize)
			}
			got := e.bi.ClassOf(size)
			if got != class {
				return fmt.Errorf("talloc: chunk %#x of size %d classified %d, found in bin %d", addr, size, got, class)
			}
			if _, dup := free[addr]; dup {
				return fmt.Errorf("talloc: chunk %#x appears twice across bins", addr)
			}
			free[addr] = size
		}
	}

	for _, h := range e.heaps {
		if err := e.scanHeap(h.span, free); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) scanHeap(h Span, free map[uintptr]uintptr) error {
	addr := h.Base
	var prevWasFree bool
	for addr < h.Acme {
		t := chunkTag(addr)
		size := t.size()
		if size == 0 || addr+size > h.Acme {
			return fmt.Errorf("talloc: chunk %#x size %d runs past heap acme %#x", addr, size, h.Acme)
		}
		if t.isPrevFree() != prevWasFree {
			return fmt.Errorf("talloc: chunk %#x prevFree flag %v does not match predecessor", addr, t.isPrevFree())
		}
		if !t.isAllocated() {
			recorded, ok := free[addr]
			if !ok {
				return fmt.Errorf("talloc: free chunk %#x not present in any bin", addr)
			}
			if recorded != size {
				return fmt.Errorf("talloc: free chunk %#x size mismatch: heap says %d, bin says %d", addr, size, recorded)
			}
			delete(free, addr)
		}
		prevWasFree = !t.isAllocated()
		addr += size
	}
	if addr != h.Acme {
		return fmt.Errorf("talloc: heap %#x..%#x does not tile exactly, stopped at %#x", h.Base, h.Acme, addr)
	}
	return nil
}
