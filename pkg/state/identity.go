package state

import "sync/atomic"

// IDAllocator issues session identifiers. Implementations must be safe for
// concurrent use, return strictly increasing values, and never reuse a value
// within the process lifetime, even after the owning session is gone.
type IDAllocator interface {
	Next() int64
}

// Sequence is the production IDAllocator: a process-local atomic counter.
type Sequence struct {
	last atomic.Int64
}

// NewSequence returns an allocator whose first Next is start+1. Tests inject
// a fixed start to get a deterministic identifier sequence.
func NewSequence(start int64) *Sequence {
	s := &Sequence{}
	s.last.Store(start)
	return s
}

func (s *Sequence) Next() int64 {
	return s.last.Add(1)
}
