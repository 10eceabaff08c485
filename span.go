// SPDX-License-Identifier: Apache-2.0

package talloc

import "unsafe"

// Span is an ordered pair of byte addresses (Base, Acme) with Base <= Acme,
// describing a contiguous byte range without owning it. A zero-value Span
// (Base == Acme == 0) is the empty span.
type Span struct {
	Base uintptr
	Acme uintptr
}

// NewSpan returns the Span [base, acme). If acme <= base the result is empty.
func NewSpan(base, acme uintptr) Span {
	if acme <= base {
		return Span{}
	}
	return Span{Base: base, Acme: acme}
}

// SpanOfSlice returns the Span covering the backing bytes of b.
func SpanOfSlice(b []byte) Span {
	if len(b) == 0 {
		return Span{}
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	return Span{Base: base, Acme: base + uintptr(len(b))}
}

// IsEmpty reports whether the span covers zero bytes.
func (s Span) IsEmpty() bool {
	return s.Acme <= s.Base
}

// Size returns Acme - Base, or 0 for an empty span.
func (s Span) Size() uintptr {
	if s.IsEmpty() {
		return 0
	}
	return s.Acme - s.Base
}

// Contains reports whether addr lies in [Base, Acme).
func (s Span) Contains(addr uintptr) bool {
	return !s.IsEmpty() && s.Base <= addr && addr < s.Acme
}

// ContainsSpan reports whether s fully contains other. An empty other is
// contained by any span, including an empty one.
func (s Span) ContainsSpan(other Span) bool {
	if other.IsEmpty() {
		return true
	}
	if s.IsEmpty() {
		return false
	}
	return s.Base <= other.Base && other.Acme <= s.Acme
}

// Overlaps reports whether any byte of s is also a byte of other. Empty
// spans never overlap with anything.
func (s Span) Overlaps(other Span) bool {
	if s.IsEmpty() || other.IsEmpty() {
		return false
	}
	return !(other.Base >= s.Acme || s.Base >= other.Acme)
}

// AlignInward raises Base and lowers Acme to the nearest multiple of align,
// shrinking the span. align must be a power of two.
func (s Span) AlignInward(align uintptr) Span {
	if s.IsEmpty() {
		return Span{}
	}
	base := alignUp(s.Base, align)
	acme := alignDown(s.Acme, align)
	return NewSpan(base, acme)
}

// AlignOutward lowers Base and raises Acme to the nearest multiple of align,
// growing the span. align must be a power of two.
func (s Span) AlignOutward(align uintptr) Span {
	if s.IsEmpty() {
		return Span{}
	}
	return Span{Base: alignDown(s.Base, align), Acme: alignUp(s.Acme, align)}
}

// Above raises Base to min if it is smaller, returning the empty span if
// nothing of s remains above min.
func (s Span) Above(min uintptr) Span {
	if s.IsEmpty() || s.Acme <= min {
		return Span{}
	}
	base := s.Base
	if base < min {
		base = min
	}
	return NewSpan(base, s.Acme)
}

// Below lowers Acme to max if it is larger, returning the empty span if
// nothing of s remains below max.
func (s Span) Below(max uintptr) Span {
	if s.IsEmpty() || s.Base >= max {
		return Span{}
	}
	acme := s.Acme
	if acme > max {
		acme = max
	}
	return NewSpan(s.Base, acme)
}

// FitWithin returns the largest sub-span of s that other also contains.
// Returns the empty span if other is empty.
func (s Span) FitWithin(other Span) Span {
	if other.IsEmpty() || s.IsEmpty() {
		return Span{}
	}
	base := s.Base
	if other.Base > base {
		base = other.Base
	}
	acme := s.Acme
	if other.Acme < acme {
		acme = other.Acme
	}
	return NewSpan(base, acme)
}

// FitOver returns the smallest span containing both s and other. If other
// is empty, returns s unchanged, since every span contains any empty span.
func (s Span) FitOver(other Span) Span {
	if other.IsEmpty() {
		return s
	}
	if s.IsEmpty() {
		return other
	}
	base := s.Base
	if other.Base < base {
		base = other.Base
	}
	acme := s.Acme
	if other.Acme > acme {
		acme = other.Acme
	}
	return Span{Base: base, Acme: acme}
}

// Extend lowers Base by low and raises Acme by high. A no-op on an empty
// span.
func (s Span) Extend(low, high uintptr) Span {
	if s.IsEmpty() {
		return s
	}
	return Span{Base: s.Base - low, Acme: s.Acme + high}
}

// Truncate raises Base by low and lowers Acme by high, returning the empty
// span if low+high would consume the entire span.
func (s Span) Truncate(low, high uintptr) Span {
	if s.IsEmpty() {
		return s
	}
	if s.Size() <= low+high {
		return Span{}
	}
	return Span{Base: s.Base + low, Acme: s.Acme - high}
}

func alignUp(addr, align uintptr) uintptr {
	return (addr + align - 1) &^ (align - 1)
}

func alignDown(addr, align uintptr) uintptr {
	return addr &^ (align - 1)
}
