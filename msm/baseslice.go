package msm

import "github.com/consensys/gnark-gpu/gpuerr"

// BaseSlice is the design-neutral replacement for the `(Arc<Vec<Base>>,
// skip)` pattern used to share one base vector across several batched MSM
// calls (spec §9 "Shared base vectors across calls"): buffer is the full
// vector, and a call reads bases[skip : skip+len]. Go's slice semantics
// already give buffer "longest holder" lifetime for free — as long as any
// BaseSlice (or the backing slice itself) is reachable, the garbage
// collector keeps the whole backing array alive — so no explicit
// ref-counting is needed to model the shared-ownership half of the pattern.
type BaseSlice[A any] struct {
	buffer []A
	skip   int
	len    int
}

// NewBaseSlice wraps buffer as a BaseSlice covering its full extent.
func NewBaseSlice[A any](buffer []A) *BaseSlice[A] {
	return &BaseSlice[A]{buffer: buffer, skip: 0, len: len(buffer)}
}

// Slice returns a new BaseSlice over the same backing buffer, covering
// [skip, skip+n). It fails with Simple if skip+n exceeds the buffer length
// (spec §7 "skip + n <= bases.len()").
func (s *BaseSlice[A]) Slice(skip, n int) (*BaseSlice[A], error) {
	if skip < 0 || n < 0 || skip+n > len(s.buffer) {
		return nil, gpuerr.Simplef("msm: skip %d + n %d exceeds base buffer length %d", skip, n, len(s.buffer))
	}
	return &BaseSlice[A]{buffer: s.buffer, skip: skip, len: n}, nil
}

// Bases returns the [skip, skip+len) window of the backing buffer.
func (s *BaseSlice[A]) Bases() []A { return s.buffer[s.skip : s.skip+s.len] }

// Len returns the number of bases this slice covers.
func (s *BaseSlice[A]) Len() int { return s.len }

// Skip returns the starting offset into the backing buffer.
func (s *BaseSlice[A]) Skip() int { return s.skip }
