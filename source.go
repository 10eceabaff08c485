// SPDX-License-Identifier: Apache-2.0

package talloc

// Source is consulted by Malloc when no free chunk satisfies a request. It
// is the Go analogue of this allocator lineage's OomHandler trait
// (original_source/talc/src/oom/mod.rs): implementations may claim fresh
// memory on the Engine and return nil to have Malloc retry, or return an
// error to fail the allocation.
type Source interface {
	// HandleOOM is called with the chunk size and alignment that could not
	// be satisfied. A nil return causes Malloc to retry the bitmap scan;
	// any other return is propagated to the caller wrapped in an
	// *AllocError.
	HandleOOM(e *Engine, size, align uintptr) error
}

// ErrorSource always fails, for callers managing their own fixed-size
// heap with no growth path. Grounded on original_source/talc/src/oom/mod.rs's
// ErrOnOom; this is the Engine's default Source.
type ErrorSource struct{}

func (ErrorSource) HandleOOM(_ *Engine, _, _ uintptr) error { return ErrOutOfMemory }

// ClaimOnceSource hands the engine a single fixed span the first time it
// runs out of memory, then behaves like ErrorSource forever after.
// Grounded on original_source/talc/src/oom/claim_on_oom.rs's ClaimOnOom,
// whose Unclaimed/CannotClaim states collapse here to a single bool.
type ClaimOnceSource struct {
	span    Span
	claimed bool
}

// NewClaimOnceSource returns a Source that claims span on the engine's
// first out-of-memory condition.
func NewClaimOnceSource(span Span) *ClaimOnceSource {
	return &ClaimOnceSource{span: span}
}

func (s *ClaimOnceSource) HandleOOM(e *Engine, _, _ uintptr) error {
	if s.claimed {
		return ErrOutOfMemory
	}
	s.claimed = true
	_, err := e.Claim(s.span)
	return err
}
