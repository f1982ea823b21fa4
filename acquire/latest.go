/*Package acquire runs the producer side of the viewer: a worker goroutine
polls the camera adapter and hands frames to the display through a
single-slot, latest-frame-wins buffer.

Frames are dropped, never queued.  When the display falls behind, the slot
is overwritten and the stale frame discarded; this is intentional and trades
completeness for display responsiveness.  Drops affect delivery only; frame
sequence numbers are assigned by the adapter and are never renumbered.
*/
package acquire

import (
	"sync"

	"github.com/tomlinsa/andorview/camera"
)

// Latest is the hand-off buffer between the acquisition worker and the
// display surface.  Capacity is exactly one frame; Push overwrites, TryTake
// drains.  Neither side ever blocks.  Safe for one concurrent producer and
// one concurrent consumer (or more; a single mutex guards the slot).
type Latest struct {
	mu    sync.Mutex
	frame *camera.Frame

	pushed  uint64
	dropped uint64
}

// Push deposits f, discarding any undisplayed frame already in the slot.
// It always succeeds.
func (l *Latest) Push(f *camera.Frame) {
	l.mu.Lock()
	if l.frame != nil {
		l.dropped++
	}
	l.frame = f
	l.pushed++
	l.mu.Unlock()
}

// TryTake removes and returns the held frame, or (nil, false) if the slot
// is empty.
func (l *Latest) TryTake() (*camera.Frame, bool) {
	l.mu.Lock()
	f := l.frame
	l.frame = nil
	l.mu.Unlock()
	return f, f != nil
}

// Stats reports how many frames were pushed and how many were overwritten
// before being displayed.
func (l *Latest) Stats() (pushed, dropped uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pushed, l.dropped
}
