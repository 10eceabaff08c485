// SPDX-License-Identifier: Apache-2.0

package talloc

import "unsafe"

// Allocator is the surface Allocate, AllocateSlice, and Buffer need from
// an Engine or Guard: enough to request, grow, and release memory without
// committing to a concrete type. Adapted from the teacher's own Arena
// interface (arena.go), widened to this engine's fallible, free-capable
// API.
type Allocator interface {
	Malloc(size, align uintptr) (unsafe.Pointer, error)
	Free(ptr unsafe.Pointer, size, align uintptr)
	Grow(ptr unsafe.Pointer, oldSize, newSize, align uintptr) (unsafe.Pointer, error)
}

const sliceGrowThreshold = 256

// Allocate returns a pointer to a freshly allocated, zeroed T, following
// the teacher's Allocate[T any](Arena) *T (arena.go) but surfacing Malloc's
// error instead of silently falling back to Go's own allocator.
func Allocate[T any](a Allocator) (*T, error) {
	var x T
	ptr, err := a.Malloc(unsafe.Sizeof(x), unsafe.Alignof(x))
	if err != nil {
		return nil, err
	}
	*(*T)(ptr) = x
	return (*T)(ptr), nil
}

// FreeValue releases a *T previously returned by Allocate.
func FreeValue[T any](a Allocator, p *T) {
	var x T
	a.Free(unsafe.Pointer(p), unsafe.Sizeof(x), unsafe.Alignof(x))
}

// AllocateSlice returns a []T of the given length and capacity backed by
// a, following the teacher's AllocateSlice[T any](Arena, int, int) []T
// (slice.go).
func AllocateSlice[T any](a Allocator, length, capacity int) ([]T, error) {
	if capacity < length {
		capacity = length
	}
	var x T
	elemSize := unsafe.Sizeof(x)
	ptr, err := a.Malloc(uintptr(capacity)*elemSize, unsafe.Alignof(x))
	if err != nil {
		return nil, err
	}
	s := unsafe.Slice((*T)(ptr), capacity)
	for i := range s {
		s[i] = x
	}
	return s[:length], nil
}

// FreeSlice releases a []T previously returned by AllocateSlice (or grown
// out of one by SliceAppend).
func FreeSlice[T any](a Allocator, s []T) {
	if cap(s) == 0 {
		return
	}
	var x T
	ptr := unsafe.Pointer(unsafe.SliceData(s))
	a.Free(ptr, uintptr(cap(s))*unsafe.Sizeof(x), unsafe.Alignof(x))
}

// SliceAppend appends data to s, growing s's backing array via a when
// necessary. Following the teacher's SliceAppend[T any](Arena, []T, ...T)
// []T (slice.go), but fallible: a failed grow returns the original slice
// unchanged alongside the error.
func SliceAppend[T any](a Allocator, s []T, data ...T) ([]T, error) {
	newLen := len(s) + len(data)
	if newLen <= cap(s) {
		return append(s, data...), nil
	}
	grown, err := growSlice(a, s, newLen)
	if err != nil {
		return s, err
	}
	return append(grown, data...), nil
}

func growSlice[T any](a Allocator, s []T, newLen int) ([]T, error) {
	newCap := growCap(cap(s), newLen)
	if cap(s) == 0 {
		fresh, err := AllocateSlice[T](a, len(s), newCap)
		if err != nil {
			return nil, err
		}
		copy(fresh, s)
		return fresh, nil
	}
	var x T
	elemSize := unsafe.Sizeof(x)
	oldPtr := unsafe.Pointer(unsafe.SliceData(s))
	newPtr, err := a.Grow(oldPtr, uintptr(cap(s))*elemSize, uintptr(newCap)*elemSize, unsafe.Alignof(x))
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(newPtr), newCap)[:len(s)], nil
}

func growCap(oldCap, needed int) int {
	newCap := oldCap
	if newCap == 0 {
		return needed
	}
	for newCap < needed {
		if newCap < sliceGrowThreshold {
			newCap *= 2
		} else {
			newCap += newCap / 4
		}
	}
	return newCap
}
