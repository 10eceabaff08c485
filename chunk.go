// SPDX-License-Identifier: Apache-2.0

package talloc

import "unsafe"

// Every chunk's user-visible overhead is two words: the leading pre-tag
// (present on every chunk, free or allocated) and, for an allocated
// chunk, a trailing "back-offset" word immediately before the returned
// user pointer recording userPtr - chunkBase. The two coincide in
// position only when alignment forces no padding between them, never in
// storage, so neither ever aliases the other. See SPEC_FULL.md §3/§4.4.
const allocOverhead = 2 * wordSize

func chunkTag(base uintptr) tag {
	return readTag(base)
}

// writeFreeChunk stamps base..base+size as a free chunk: a pre-tag, a
// mirrored post-tag, and (since the chunk is about to be inserted into a
// bin) leaves the link words for bins.insert to fill in.
func writeFreeChunk(base, size uintptr, lowBound, prevFree bool) {
	t := makeTag(size, false, lowBound, prevFree)
	writeTag(base, t)
	writeTag(postTagAddr(base, t), tag(size))
}

// writeAllocatedChunk stamps base..base+size as allocated, with no
// post-tag (the bytes after the pre-tag are free for payload/back-offset).
func writeAllocatedChunk(base, size uintptr, lowBound, prevFree bool) {
	writeTag(base, makeTag(size, true, lowBound, prevFree))
}

// setPrevFree updates the prev-free flag on the chunk at base in place,
// without touching its size or A/LB flags.
func setPrevFree(base uintptr, v bool) {
	writeTag(base, readTag(base).withPrevFree(v))
}

func backOffsetAddr(userPtr uintptr) uintptr {
	return userPtr - wordSize
}

func writeBackOffset(userPtr, offset uintptr) {
	*(*uintptr)(unsafe.Pointer(backOffsetAddr(userPtr))) = offset
}

func readBackOffset(userPtr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(backOffsetAddr(userPtr)))
}

// chunkBaseFromUserPtr recovers the chunk base from a pointer previously
// returned to the caller, via the reserved back-offset word.
func chunkBaseFromUserPtr(userPtr uintptr) uintptr {
	return userPtr - readBackOffset(userPtr)
}

// placeUserPtr returns the lowest multiple of align at or above
// base+allocOverhead, per the malloc algorithm step 5. It does not check
// that the result, or any payload after it, lies inside the chunk.
func placeUserPtr(base uintptr, align uintptr) uintptr {
	return alignUp(base+allocOverhead, align)
}

// roundSize rounds a requested byte count up to the engine's word
// granularity, promoting zero-size requests to one word per §4.4. The
// result is never less than minChunkSize-allocOverhead, so that the chunk
// holding the payload is at least minChunkSize and can become a free
// chunk again.
func roundSize(size uintptr) uintptr {
	if size == 0 {
		size = wordSize
	}
	size = alignUp(size, wordSize)
	if size < minChunkSize-allocOverhead {
		size = minChunkSize - allocOverhead
	}
	return size
}

// effectiveChunkSize computes the total chunk size needed to satisfy a
// (size, align) request: header + back-offset words, the requested
// payload, and enough alignment slack to guarantee a suitably aligned
// interior word exists (§4.4 step 1).
func effectiveChunkSize(size, align uintptr) uintptr {
	req := roundSize(size)
	var slack uintptr
	if align > wordSize {
		slack = align - wordSize
	}
	eff := alignUp(allocOverhead+req+slack, wordSize)
	if eff < minChunkSize {
		eff = minChunkSize
	}
	return eff
}
