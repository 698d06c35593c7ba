package dispatch

import (
	"sync/atomic"
)

// Stats contains per-loop counters. The Prometheus metrics are process-wide;
// Stats lets callers and tests observe a single loop.
type Stats struct {
	Received  atomic.Uint64
	Dropped   atomic.Uint64
	Ignored   atomic.Uint64
	Accepted  atomic.Uint64 // frames handed to the state machine
	Sent      atomic.Uint64
	SendFails atomic.Uint64
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	Received  uint64
	Dropped   uint64
	Ignored   uint64
	Accepted  uint64
	Sent      uint64
	SendFails uint64
}

// Snapshot reads every counter.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Received:  s.Received.Load(),
		Dropped:   s.Dropped.Load(),
		Ignored:   s.Ignored.Load(),
		Accepted:  s.Accepted.Load(),
		Sent:      s.Sent.Load(),
		SendFails: s.SendFails.Load(),
	}
}
