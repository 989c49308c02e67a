package capture

import (
	"sync"
	"sync/atomic"

	"github.com/Brownie44l1/mineral-api/internal/pipeline"
)

// Handoff passes frames from one producer to the continuous worker,
// keeping only the newest. When the worker is still busy with a frame, a
// newer frame replaces the one waiting and the stale one is released.
type Handoff struct {
	ch      chan pipeline.Frame
	dropped atomic.Uint64

	closeOnce sync.Once
}

// NewHandoff returns an empty hand-off.
func NewHandoff() *Handoff {
	return &Handoff{ch: make(chan pipeline.Frame, 1)}
}

// Frames is the channel for pipeline.Run.
func (h *Handoff) Frames() <-chan pipeline.Frame {
	return h.ch
}

// Offer queues f, releasing any frame still waiting. Offer must only be
// called from one goroutine and never after Close.
func (h *Handoff) Offer(f pipeline.Frame) {
	select {
	case stale := <-h.ch:
		stale.Release()
		h.dropped.Add(1)
	default:
	}

	select {
	case h.ch <- f:
	default:
		// Unreachable with a single producer.
		f.Release()
		h.dropped.Add(1)
	}
}

// Dropped returns how many frames were released without reaching the
// worker.
func (h *Handoff) Dropped() uint64 {
	return h.dropped.Load()
}

// Close releases any waiting frame and closes the channel.
func (h *Handoff) Close() {
	h.closeOnce.Do(func() {
		select {
		case f := <-h.ch:
			f.Release()
			h.dropped.Add(1)
		default:
		}
		close(h.ch)
	})
}
