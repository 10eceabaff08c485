// SPDX-License-Identifier: Apache-2.0

package talloc

import (
	"sync"
	"unsafe"
)

// Guard wraps an Engine with a mutex so it can be shared across
// goroutines, adapted from the teacher's concurrentArena decorator
// (concurrent_arena.go): every method takes the lock, delegates, and
// releases it, with no per-operation fairness or backoff policy.
type Guard struct {
	mtx sync.Mutex
	e   *Engine
}

// NewGuard returns a concurrency-safe wrapper around e.
func NewGuard(e *Engine) *Guard {
	return &Guard{e: e}
}

func (g *Guard) Malloc(size, align uintptr) (unsafe.Pointer, error) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.e.Malloc(size, align)
}

func (g *Guard) Free(ptr unsafe.Pointer, size, align uintptr) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	g.e.Free(ptr, size, align)
}

func (g *Guard) GrowInPlace(ptr unsafe.Pointer, oldSize, newSize, align uintptr) error {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.e.GrowInPlace(ptr, oldSize, newSize, align)
}

func (g *Guard) Grow(ptr unsafe.Pointer, oldSize, newSize, align uintptr) (unsafe.Pointer, error) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.e.Grow(ptr, oldSize, newSize, align)
}

func (g *Guard) Shrink(ptr unsafe.Pointer, oldSize, newSize, align uintptr) unsafe.Pointer {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.e.Shrink(ptr, oldSize, newSize, align)
}

func (g *Guard) Claim(span Span) (Span, error) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.e.Claim(span)
}

func (g *Guard) Extend(oldSpan, newSpan Span) (Span, error) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.e.Extend(oldSpan, newSpan)
}

func (g *Guard) Truncate(oldSpan, newSpan Span) (Span, error) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.e.Truncate(oldSpan, newSpan)
}

// Counters returns the wrapped Engine's statistics overlay, or nil.
func (g *Guard) Counters() *Counters {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.e.counters
}
