// SPDX-License-Identifier: Apache-2.0

//go:build unix

package talloc

import "golang.org/x/sys/unix"

// SystemGrowSource satisfies out-of-memory conditions by mapping fresh
// anonymous pages from the operating system, rounding each request up to
// a page multiple and a configurable minimum growth quantum so frequent
// small misses don't each trigger their own syscall. Grounded on the
// unix.Mmap/unix.Munmap usage in joshuapare-hivekit's hive/loader_unix.go
// (there file-backed; here anonymous, per this repo's freestanding scope).
type SystemGrowSource struct {
	minGrowth uintptr
	pageSize  uintptr
	regions   [][]byte
}

// SystemGrowSourceOption configures a SystemGrowSource.
type SystemGrowSourceOption func(*SystemGrowSource)

// WithMinGrowth sets the minimum number of bytes mapped per OOM event,
// regardless of how small the failing request was. Defaults to 1 MiB.
func WithMinGrowth(n uintptr) SystemGrowSourceOption {
	return func(s *SystemGrowSource) { s.minGrowth = n }
}

// NewSystemGrowSource returns a Source backed by the OS page allocator.
func NewSystemGrowSource(opts ...SystemGrowSourceOption) *SystemGrowSource {
	s := &SystemGrowSource{
		minGrowth: 1 << 20,
		pageSize:  uintptr(unix.Getpagesize()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SystemGrowSource) HandleOOM(e *Engine, size, align uintptr) error {
	need := size + align
	if need < s.minGrowth {
		need = s.minGrowth
	}
	need = alignUp(need, s.pageSize)

	data, err := unix.Mmap(-1, 0, int(need), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return err
	}
	s.regions = append(s.regions, data)

	_, err = e.Claim(SpanOfSlice(data))
	if err != nil {
		_ = unix.Munmap(data)
		s.regions = s.regions[:len(s.regions)-1]
		return err
	}
	return nil
}

// Close releases every region this source has ever mapped. The Engine
// must not be used afterward.
func (s *SystemGrowSource) Close() error {
	var firstErr error
	for _, data := range s.regions {
		if err := unix.Munmap(data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.regions = nil
	return firstErr
}
