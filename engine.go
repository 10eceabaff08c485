// SPDX-License-Identifier: Apache-2.0

package talloc

import "unsafe"

// Engine is the allocator core: a set of bins/bitmap shared across every
// claimed heap, plus the list of heaps themselves. It holds no lock; see
// Guard for a thread-safe wrapper (guard.go), grounded on the teacher's
// concurrent_arena.go.
type Engine struct {
	bi     *BinIndex
	bn     *bins
	heaps  []heapState
	source Source

	counters             *Counters
	disableGrowInPlace   bool
	disableShrinkInPlace bool
	cacheLineAlign       uintptr
}

// EngineOption configures an Engine at construction time, following the
// functional-options idiom of the teacher's monotonic_arena.go
// (MonotonicArenaOption / WithMinBufferSize).
type EngineOption func(*Engine)

// WithSource installs the Source consulted on out-of-memory. The default,
// if none is supplied, is ErrorSource.
func WithSource(s Source) EngineOption {
	return func(e *Engine) { e.source = s }
}

// WithCounters enables the statistics overlay (Engine.Counters).
func WithCounters() EngineOption {
	return func(e *Engine) { e.counters = newCounters() }
}

// WithGrowInPlaceDisabled makes Grow always fall back to malloc+copy+free,
// trading performance for the smaller code size of never exercising the
// in-place path.
func WithGrowInPlaceDisabled() EngineOption {
	return func(e *Engine) { e.disableGrowInPlace = true }
}

// WithShrinkInPlaceDisabled makes Shrink always a no-op.
func WithShrinkInPlaceDisabled() EngineOption {
	return func(e *Engine) { e.disableShrinkInPlace = true }
}

// WithCacheLineAlignment aligns every pointer Malloc returns to a 64-byte
// boundary; chunk sizes are not rounded up to the line size.
func WithCacheLineAlignment() EngineOption {
	return WithCacheLineSize(64)
}

// WithCacheLineSize is WithCacheLineAlignment with an explicit line size.
func WithCacheLineSize(n uintptr) EngineOption {
	return func(e *Engine) { e.cacheLineAlign = n }
}

// NewEngine constructs an empty Engine with no claimed heaps. Call Claim
// (directly, or indirectly via a Source) before allocating.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		bi:     NewBinIndex(),
		source: ErrorSource{},
	}
	e.bn = newBins(e.bi)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Counters returns the statistics overlay, or nil if WithCounters was not
// supplied.
func (e *Engine) Counters() *Counters { return e.counters }

// Heaps returns the effective spans of every currently claimed heap.
func (e *Engine) Heaps() []Span {
	out := make([]Span, len(e.heaps))
	for i, h := range e.heaps {
		out[i] = h.span
	}
	return out
}

func (e *Engine) effectiveAlign(align uintptr) uintptr {
	if align < wordSize {
		align = wordSize
	}
	if e.cacheLineAlign > align {
		align = e.cacheLineAlign
	}
	return align
}

// Malloc services a request for size bytes aligned to align, per §4.4's
// allocation algorithm: bitmap scan for a fit, falling back to the Source
// on miss and retrying.
func (e *Engine) Malloc(size, align uintptr) (unsafe.Pointer, error) {
	align = e.effectiveAlign(align)

	eff := effectiveChunkSize(size, align)
	if eff < size { // overflow of the address-space arithmetic
		return nil, newAllocError(size, align, ErrOutOfMemory)
	}

	for {
		chunkBase, chunkSize, ok := e.popFit(eff)
		if ok {
			return e.allocateFromChunk(chunkBase, chunkSize, size, align)
		}
		if err := e.source.HandleOOM(e, eff, align); err != nil {
			return nil, newAllocError(size, align, err)
		}
	}
}

// popFit is the bitmap-scan-then-pop step (§4.3/§4.4 steps 2-4).
func (e *Engine) popFit(eff uintptr) (base, size uintptr, ok bool) {
	_, class, found := e.bn.findFit(eff)
	if !found {
		return 0, 0, false
	}
	base = e.bn.popHead(class)
	return base, chunkTag(base).size(), true
}

// allocateFromChunk implements §4.4 steps 5-9 against a chunk already
// popped from its bin.
func (e *Engine) allocateFromChunk(chunkBase, chunkSize, requestedSize, align uintptr) (unsafe.Pointer, error) {
	origTag := chunkTag(chunkBase)
	origPrevFree := origTag.isPrevFree()

	req := roundSize(requestedSize)
	userPtr := alignUp(chunkBase+allocOverhead, align)
	allocBase := userPtr - allocOverhead
	prefixFull := allocBase - chunkBase

	chunkEnd := chunkBase + chunkSize
	contentEnd := userPtr + req
	suffixSize := chunkEnd - contentEnd

	splitPrefix := prefixFull >= minChunkSize
	if !splitPrefix {
		// userPtr keeps the already aligned address; only the chunk's
		// allocated base moves down to absorb the gap as waste.
		allocBase = chunkBase
	}
	splitSuffix := suffixSize >= minChunkSize

	var allocSize uintptr
	if splitSuffix {
		allocSize = contentEnd - allocBase
	} else {
		allocSize = chunkEnd - allocBase
	}

	allocPrevFree := origPrevFree
	if splitPrefix {
		allocPrevFree = true
	}
	writeAllocatedChunk(allocBase, allocSize, false, allocPrevFree)
	writeBackOffset(userPtr, userPtr-allocBase)

	if splitPrefix {
		e.publishFreeChunk(chunkBase, prefixFull, origTag.isLowBound(), origPrevFree)
	}
	if splitSuffix {
		e.publishFreeChunk(contentEnd, chunkEnd-contentEnd, false, false)
	} else {
		setPrevFree(chunkEnd, false)
	}

	if e.counters != nil {
		e.counters.onAlloc(allocSize)
	}

	return unsafe.Pointer(userPtr), nil
}

// publishFreeChunk writes a chunk as free, merging it with its immediate
// upward neighbor if that neighbor is also free (maintaining the
// adjacency-closure invariant), inserts it into its bin, and marks the
// chunk above as having a free predecessor.
func (e *Engine) publishFreeChunk(base, size uintptr, lowBound, prevFree bool) {
	nextBase := base + size
	nextTag := chunkTag(nextBase)
	if !nextTag.isAllocated() {
		nextSize := nextTag.size()
		e.bn.unlink(nextBase, nextSize)
		size += nextSize
	}
	writeFreeChunk(base, size, lowBound, prevFree)
	e.bn.insert(base, size)
	setPrevFree(base+size, true)
}

// Free releases a chunk previously returned by Malloc, Grow, or Shrink.
// size and align are accepted for debug-assertion symmetry with a
// standard allocator-trait Deallocate signature; they are not required to
// recover the chunk, which carries its own base pointer (§4.4 step 1 of
// the deallocation algorithm).
func (e *Engine) Free(ptr unsafe.Pointer, size, align uintptr) {
	if ptr == nil {
		return
	}
	userPtr := uintptr(ptr)
	base := chunkBaseFromUserPtr(userPtr)
	t := chunkTag(base)
	ownSize := t.size()
	chunkSize := ownSize

	if t.isPrevFree() {
		prevBase := prevChunkBase(base)
		prevTag := chunkTag(prevBase)
		prevSize := prevTag.size()
		e.bn.unlink(prevBase, prevSize)
		base = prevBase
		chunkSize += prevSize
		t = prevTag
	}

	if e.counters != nil {
		// Only this chunk's own size was ever counted as live; the
		// predecessor merged in here, if any, was already accounted for
		// when it was freed.
		e.counters.onFree(ownSize)
	}

	e.publishFreeChunk(base, chunkSize, t.isLowBound(), t.isPrevFree())
}

// GrowInPlace attempts to extend the allocation at ptr (currently oldSize
// bytes) to newSize bytes without moving it, per §4.4's grow-in-place
// algorithm. It returns ErrNotPossible, never ErrOutOfMemory, on failure.
func (e *Engine) GrowInPlace(ptr unsafe.Pointer, oldSize, newSize, align uintptr) error {
	if e.disableGrowInPlace {
		return ErrNotPossible
	}
	if newSize <= oldSize {
		return nil
	}
	userPtr := uintptr(ptr)
	base := chunkBaseFromUserPtr(userPtr)
	t := chunkTag(base)
	size := t.size()

	nextBase := base + size
	nextTag := chunkTag(nextBase)
	if nextTag.isAllocated() {
		return ErrNotPossible
	}
	nextSize := nextTag.size()
	combinedEnd := nextBase + nextSize
	neededEnd := userPtr + roundSize(newSize)
	if neededEnd > combinedEnd {
		return ErrNotPossible
	}

	e.bn.unlink(nextBase, nextSize)
	residual := combinedEnd - neededEnd
	if residual >= minChunkSize {
		newChunkSize := neededEnd - base
		writeAllocatedChunk(base, newChunkSize, t.isLowBound(), t.isPrevFree())
		e.publishFreeChunk(neededEnd, residual, false, false)
	} else {
		newChunkSize := combinedEnd - base
		writeAllocatedChunk(base, newChunkSize, t.isLowBound(), t.isPrevFree())
		setPrevFree(combinedEnd, false)
	}
	if e.counters != nil {
		e.counters.onGrowInPlace(chunkTag(base).size() - size)
	}
	return nil
}

// Grow returns a pointer to a chunk of at least newSize bytes holding the
// first oldSize bytes of ptr's payload, attempting an in-place grow first
// and falling back to malloc+copy+free (§4.4's Grow section).
func (e *Engine) Grow(ptr unsafe.Pointer, oldSize, newSize, align uintptr) (unsafe.Pointer, error) {
	if err := e.GrowInPlace(ptr, oldSize, newSize, align); err == nil {
		return ptr, nil
	}
	newPtr, err := e.Malloc(newSize, align)
	if err != nil {
		return nil, err
	}
	copy(unsafe.Slice((*byte)(newPtr), oldSize), unsafe.Slice((*byte)(ptr), oldSize))
	e.Free(ptr, oldSize, align)
	return newPtr, nil
}

// Shrink always succeeds in place (§4.4's Shrink section): it never moves
// the payload, splitting off and freeing a residual chunk if one is large
// enough to stand alone.
func (e *Engine) Shrink(ptr unsafe.Pointer, oldSize, newSize, align uintptr) unsafe.Pointer {
	if e.disableShrinkInPlace || newSize >= oldSize {
		return ptr
	}
	userPtr := uintptr(ptr)
	base := chunkBaseFromUserPtr(userPtr)
	t := chunkTag(base)
	size := t.size()
	chunkEnd := base + size

	newContentEnd := userPtr + roundSize(newSize)
	residual := chunkEnd - newContentEnd
	if residual < minChunkSize {
		return ptr
	}

	newChunkSize := newContentEnd - base
	writeAllocatedChunk(base, newChunkSize, t.isLowBound(), t.isPrevFree())
	e.publishFreeChunk(newContentEnd, residual, false, false)

	if e.counters != nil {
		e.counters.onShrink(size - newChunkSize)
	}
	return ptr
}
