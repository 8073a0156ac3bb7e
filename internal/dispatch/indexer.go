package dispatch

import "sync/atomic"

// IndexGenerator hands out monotonically increasing, run-unique fragment
// indexes. The index becomes a raw-loaded fragment's identity for later
// de-duplication, so it must never repeat within a run.
//
// Thread-safety: safe for concurrent use, although the dispatcher itself
// is single-threaded.
type IndexGenerator struct {
	id atomic.Uint64
}

// NewIndexGenerator creates a generator starting at 0.
func NewIndexGenerator() *IndexGenerator {
	return &IndexGenerator{}
}

// Next returns a new index.
func (g *IndexGenerator) Next() uint64 {
	return g.id.Add(1) - 1
}

// Last returns the most recently generated index.
func (g *IndexGenerator) Last() uint64 {
	return g.id.Load() - 1
}
