package timeline

// Frame is a pending geometry recomputation.
type Frame struct {
	Generation     uint64
	InitiativeID   string
	ContainerWidth float64
}

// FrameCoalescer collapses bursts of viewport-change notifications into one
// recomputation per frame. Only the newest request survives, and a result
// computed for a superseded generation is discarded on apply.
type FrameCoalescer struct {
	generation uint64
	pending    *Frame
	coalesced  int
	discarded  int
}

// Request records a viewport change and returns its generation. An
// unconsumed earlier request is replaced.
func (f *FrameCoalescer) Request(initiativeID string, containerWidth float64) uint64 {
	f.generation++
	if f.pending != nil {
		f.coalesced++
	}
	f.pending = &Frame{
		Generation:     f.generation,
		InitiativeID:   initiativeID,
		ContainerWidth: containerWidth,
	}
	return f.generation
}

// Take removes and returns the pending frame, if any.
func (f *FrameCoalescer) Take() (Frame, bool) {
	if f.pending == nil {
		return Frame{}, false
	}
	fr := *f.pending
	f.pending = nil
	return fr, true
}

// Pending reports whether a request awaits the next frame.
func (f *FrameCoalescer) Pending() bool { return f.pending != nil }

// Current reports whether gen is still the newest generation. A stale frame
// increments the discard counter.
func (f *FrameCoalescer) Current(gen uint64) bool {
	if gen != f.generation {
		f.discarded++
		return false
	}
	return true
}

// Cancel drops any pending request and invalidates in-flight frames.
func (f *FrameCoalescer) Cancel() {
	f.generation++
	f.pending = nil
}

// Coalesced returns how many requests were replaced before being taken.
func (f *FrameCoalescer) Coalesced() int { return f.coalesced }

// Discarded returns how many frames were rejected as stale.
func (f *FrameCoalescer) Discarded() int { return f.discarded }
