package eventlog

import "sync/atomic"

// Sequence is the monotonic event id generator.
//
// Every appended event is stamped with a strictly increasing id from this
// sequence. Ids are never handed back: the log has no removal operation.
//
// Thread-safety: Sequence is safe for concurrent use (atomic operations).
// The Log additionally calls Next only while holding its write lock so that
// id allocation and slice append are atomic together.
type Sequence struct {
	n atomic.Int64
}

// NewSequence creates a sequence whose first Next returns 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next id and advances the sequence.
func (s *Sequence) Next() int64 {
	return s.n.Add(1)
}

// Current returns the last id handed out, or 0 if none.
func (s *Sequence) Current() int64 {
	return s.n.Load()
}
