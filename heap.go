// SPDX-License-Identifier: Apache-2.0

package talloc

// sentinelSize is the size of the permanent, always-allocated, never-freed
// low sentinel chunk planted at the base of every claimed heap: a single
// pre-tag word with no payload and no post-tag.
const sentinelSize = wordSize

// heapState tracks a claimed heap's effective span alongside the size
// actually given to its high sentinel at claim time. The high sentinel's
// size can exceed minChunkSize when claimCarve absorbs a slack remainder
// into it (see claimCarve); every later Extend/Truncate on that edge must
// use this recorded size rather than assume minChunkSize, or it will
// misidentify where the sentinel starts.
type heapState struct {
	span   Span
	hiSize uintptr
}

// Claim brings span under the Engine's management, carving a low sentinel
// (flagged LB) at the bottom and a high sentinel of at least minChunkSize
// at the top, with a single free interior chunk between them if one fits.
// It returns the effective (possibly shrunken, word-aligned) span actually
// claimed. Grounded on the teacher's buffer.go-style "claim a slab"
// bookkeeping, generalized to this engine's boundary-tag layout.
func (e *Engine) Claim(span Span) (Span, error) {
	aligned := span.AlignInward(wordSize)
	if aligned.Size() < sentinelSize+minChunkSize {
		return Span{}, ErrInvalidSpan
	}
	hiSize := e.claimCarve(aligned)
	e.heaps = append(e.heaps, heapState{span: aligned, hiSize: hiSize})
	return aligned, nil
}

// claimCarve plants fresh sentinels and (if room allows) a single free
// interior chunk across aligned, which must already satisfy the minimum
// size Claim checks. Shared by Claim and Reset, whose per-heap carve is
// otherwise identical. It returns the size actually given to the high
// sentinel, which callers must remember for later Extend/Truncate calls.
func (e *Engine) claimCarve(aligned Span) uintptr {
	total := aligned.Size()
	remainder := total - sentinelSize - minChunkSize

	hiSize := minChunkSize
	var interiorBase, interiorSize uintptr
	hasInterior := false
	switch {
	case remainder == 0:
		// No room for an interior chunk; the high sentinel exactly abuts
		// the low sentinel.
	case remainder < minChunkSize:
		// Too little slack to stand alone as a chunk; absorb it into the
		// high sentinel instead of wasting it unrecoverably.
		hiSize += remainder
	default:
		hasInterior = true
		interiorBase = aligned.Base + sentinelSize
		interiorSize = remainder
	}

	writeAllocatedChunk(aligned.Base, sentinelSize, true, false)
	hiBase := aligned.Acme - hiSize
	if hasInterior {
		hiBase = interiorBase + interiorSize
	}
	writeAllocatedChunk(hiBase, hiSize, false, hasInterior)

	if hasInterior {
		writeFreeChunk(interiorBase, interiorSize, false, false)
		e.bn.insert(interiorBase, interiorSize)
	}
	return hiSize
}

// Reset discards every outstanding allocation across every claimed heap,
// replanting each back to its pristine just-claimed layout, and zeroes
// the statistics overlay's live count and bytes if one is installed
// (PeakBytes is kept). Every pointer previously
// returned by Malloc becomes invalid. Used by EnginePool to recycle an
// Engine between unrelated callers without re-mapping its memory.
func (e *Engine) Reset() {
	e.bn = newBins(e.bi)
	for i, h := range e.heaps {
		e.heaps[i].hiSize = e.claimCarve(h.span)
	}
	if e.counters != nil {
		e.counters.resetLive()
	}
}

func (e *Engine) heapIndex(span Span) int {
	for i, h := range e.heaps {
		if h.span.Base == span.Base && h.span.Acme == span.Acme {
			return i
		}
	}
	return -1
}

// Extend grows a previously claimed heap in place. newSpan must contain
// oldSpan (the effective span last returned for it by Claim or Extend);
// the grown edges are word-aligned outward and absorbed into, or
// coalesced with, the heap's existing sentinels and interior chunks.
func (e *Engine) Extend(oldSpan, newSpan Span) (Span, error) {
	idx := e.heapIndex(oldSpan)
	if idx < 0 {
		return Span{}, ErrInvalidSpan
	}
	if !newSpan.ContainsSpan(oldSpan) {
		return Span{}, ErrInvalidSpan
	}
	grown := newSpan.AlignOutward(wordSize)
	hiSize := e.heaps[idx].hiSize

	if grown.Base < oldSpan.Base {
		if err := e.extendLow(oldSpan.Base, grown.Base); err != nil {
			return Span{}, err
		}
	}
	if grown.Acme > oldSpan.Acme {
		if err := e.extendHigh(oldSpan.Acme, grown.Acme, hiSize); err != nil {
			return Span{}, err
		}
	}

	e.heaps[idx].span = grown
	return grown, nil
}

// extendLow absorbs [newBase, oldBase) below the heap's current low
// sentinel, replanting the sentinel at newBase and folding the freed
// bytes into the first interior chunk. It returns ErrNotPossible, leaving
// memory untouched, when the bytes being added cannot be represented as
// either a merge target or a standalone chunk.
func (e *Engine) extendLow(oldBase, newBase uintptr) error {
	delta := oldBase - newBase
	firstInterior := oldBase + sentinelSize
	t := chunkTag(firstInterior)

	if !t.isAllocated() {
		size := t.size()
		e.bn.unlink(firstInterior, size)
		writeAllocatedChunk(newBase, sentinelSize, true, false)
		e.publishFreeChunk(newBase+sentinelSize, size+delta, false, false)
		return nil
	}

	// The first interior chunk is allocated; the new bytes cannot be
	// merged into it without moving payload, so they must stand alone,
	// which requires at least minChunkSize.
	if delta < minChunkSize {
		return ErrNotPossible
	}
	writeAllocatedChunk(newBase, sentinelSize, true, false)
	e.publishFreeChunk(newBase+sentinelSize, delta, false, false)
	return nil
}

// extendHigh absorbs [oldAcme, newAcme) above the heap's current high
// sentinel, replanting the sentinel at the new top and folding the freed
// bytes into the last interior chunk. hiSize is the size this heap's high
// sentinel was given at claim time (heapState.hiSize), which may exceed
// minChunkSize. It returns ErrNotPossible, leaving memory untouched, when
// the bytes being added cannot be represented as either a merge target or
// a standalone chunk.
func (e *Engine) extendHigh(oldAcme, newAcme, hiSize uintptr) error {
	delta := newAcme - oldAcme
	hiBase := oldAcme - hiSize
	newHiBase := newAcme - hiSize

	if chunkTag(hiBase).isPrevFree() {
		below := prevChunkBase(hiBase)
		belowTag := chunkTag(below)
		size := belowTag.size()
		e.bn.unlink(below, size)
		writeAllocatedChunk(newHiBase, hiSize, false, false)
		e.publishFreeChunk(below, size+delta, belowTag.isLowBound(), belowTag.isPrevFree())
		return nil
	}

	if delta < minChunkSize {
		return ErrNotPossible
	}
	writeAllocatedChunk(newHiBase, hiSize, false, false)
	e.publishFreeChunk(hiBase, delta, false, false)
	return nil
}

// Truncate shrinks a previously claimed heap, removing as much of
// newSpan's complement from oldSpan as can be done without splitting a
// still-live allocation out of the heap. Each edge is truncated only up
// to the nearest safe boundary; the returned span reports the effective
// result actually achieved, which may be less aggressive than requested.
// No error is raised for a partial truncation.
func (e *Engine) Truncate(oldSpan, newSpan Span) (Span, error) {
	idx := e.heapIndex(oldSpan)
	if idx < 0 {
		return Span{}, ErrInvalidSpan
	}
	if !oldSpan.ContainsSpan(newSpan) {
		return Span{}, ErrInvalidSpan
	}
	requested := newSpan.AlignInward(wordSize)
	if requested.Size() < sentinelSize+minChunkSize {
		return Span{}, ErrInvalidSpan
	}

	hiSize := e.heaps[idx].hiSize
	achievedBase := oldSpan.Base
	achievedAcme := oldSpan.Acme

	if requested.Base > oldSpan.Base {
		achievedBase = e.truncateLow(oldSpan.Base, requested.Base)
	}
	if requested.Acme < oldSpan.Acme {
		achievedAcme = e.truncateHigh(oldSpan.Acme, requested.Acme, hiSize)
	}

	achieved := NewSpan(achievedBase, achievedAcme)
	e.heaps[idx].span = achieved
	return achieved, nil
}

// truncateLow moves the heap's low sentinel up from oldBase toward
// newBase, as far as it safely can, and returns the base actually
// achieved (oldBase if no progress was possible). It will not cross into
// an allocated chunk, and will not leave an unrepresentable sliver (one
// smaller than minChunkSize but nonzero) between the new sentinel and the
// next chunk.
func (e *Engine) truncateLow(oldBase, newBase uintptr) uintptr {
	firstInterior := oldBase + sentinelSize
	t := chunkTag(firstInterior)
	if t.isAllocated() {
		return oldBase
	}
	size := t.size()
	acme := firstInterior + size

	safeBase := newBase
	if safeBase > acme-sentinelSize {
		safeBase = acme - sentinelSize
	}
	if safeBase < oldBase {
		safeBase = oldBase
	}
	if remaining := acme - (safeBase + sentinelSize); remaining > 0 && remaining < minChunkSize {
		safeBase = acme - sentinelSize - minChunkSize
		if safeBase < oldBase {
			safeBase = oldBase
		}
	}
	if safeBase <= oldBase {
		return oldBase
	}

	e.bn.unlink(firstInterior, size)
	writeAllocatedChunk(safeBase, sentinelSize, true, false)
	remaining := acme - (safeBase + sentinelSize)
	if remaining > 0 {
		e.publishFreeChunk(safeBase+sentinelSize, remaining, false, false)
	} else {
		setPrevFree(acme, false)
	}
	return safeBase
}

// truncateHigh moves the heap's high sentinel down from oldAcme toward
// newAcme, as far as it safely can, and returns the acme actually
// achieved (oldAcme if no progress was possible). hiSize is the size
// recorded for this heap's high sentinel at claim time. Like
// truncateLow, it will not cross into an allocated chunk nor leave an
// unrepresentable sliver of free space behind.
func (e *Engine) truncateHigh(oldAcme, newAcme, hiSize uintptr) uintptr {
	hiBase := oldAcme - hiSize
	if !chunkTag(hiBase).isPrevFree() {
		return oldAcme
	}
	below := prevChunkBase(hiBase)
	belowTag := chunkTag(below)
	if belowTag.isAllocated() {
		return oldAcme
	}
	size := belowTag.size()

	safeHiBase := newAcme - hiSize
	if safeHiBase < below {
		safeHiBase = below
	}
	if safeHiBase > hiBase {
		safeHiBase = hiBase
	}
	if remaining := safeHiBase - below; remaining > 0 && remaining < minChunkSize {
		safeHiBase = below + minChunkSize
		if safeHiBase > hiBase {
			safeHiBase = hiBase
		}
	}
	if safeHiBase >= hiBase {
		return oldAcme
	}

	e.bn.unlink(below, size)
	writeAllocatedChunk(safeHiBase, hiSize, false, false)
	remaining := safeHiBase - below
	if remaining > 0 {
		e.publishFreeChunk(below, remaining, belowTag.isLowBound(), belowTag.isPrevFree())
	} else {
		setPrevFree(safeHiBase, belowTag.isPrevFree())
	}
	return safeHiBase + hiSize
}
