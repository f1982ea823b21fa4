package display

import (
	"context"
	"image"
	"sync"

	"golang.org/x/time/rate"

	"github.com/tomlinsa/andorview/acquire"
	"github.com/tomlinsa/andorview/camera"
)

// DefaultRefresh is the render cadence when none is configured.  25 Hz is
// plenty for a focus/alignment view and keeps JPEG encoding cheap.
const DefaultRefresh = 25.0

// Surface is the display side of the pipeline.  Its render loop drains the
// hand-off buffer at a bounded rate, rescales the newest frame, composites
// the overlay and scale bar, and keeps the result for whoever asks
// (HTTP handlers, the websocket feed).
type Surface struct {
	buf     *acquire.Latest
	lim     *rate.Limiter
	Overlay *Overlay

	mu       sync.Mutex
	mode     ScaleMode
	scaleBar int
	frame    *camera.Frame
	rendered *image.Gray
	hist     [256]uint32
	rendern  uint64

	subsMu sync.Mutex
	subs   map[chan *image.Gray]struct{}
}

// NewSurface wires a surface to the hand-off buffer.  refreshHz <= 0
// selects DefaultRefresh.
func NewSurface(buf *acquire.Latest, refreshHz float64) *Surface {
	if refreshHz <= 0 {
		refreshHz = DefaultRefresh
	}
	return &Surface{
		buf:      buf,
		lim:      rate.NewLimiter(rate.Limit(refreshHz), 1),
		Overlay:  NewOverlay(),
		scaleBar: 16,
		subs:     make(map[chan *image.Gray]struct{}),
	}
}

// SetScaleMode switches between per-frame min/max stretch and the fixed
// bit-depth palette
func (s *Surface) SetScaleMode(m ScaleMode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

// SetScaleBar sets the width of the grayscale wedge, 0 to disable
func (s *Surface) SetScaleBar(width int) {
	s.mu.Lock()
	s.scaleBar = width
	s.mu.Unlock()
}

// Run renders until ctx is canceled.  It never calls into camera hardware;
// its only input is the hand-off buffer.
func (s *Surface) Run(ctx context.Context) {
	for {
		if err := s.lim.Wait(ctx); err != nil {
			return
		}
		f, ok := s.buf.TryTake()
		if !ok {
			continue
		}
		s.render(f)
	}
}

// RenderOnce renders a single frame immediately, bypassing the cadence
// limiter.  Used for single exposures, which arrive outside the live loop.
func (s *Surface) RenderOnce(f *camera.Frame) {
	s.render(f)
}

func (s *Surface) render(f *camera.Frame) {
	s.mu.Lock()
	mode, bar := s.mode, s.scaleBar
	s.mu.Unlock()

	img := Rescale(f, mode)
	img = s.Overlay.Blend(img)
	if bar > 0 {
		ScaleBar(img, bar)
	}
	hist := Histogram(f)

	s.mu.Lock()
	s.frame = f
	s.rendered = img
	s.hist = hist
	s.rendern++
	s.mu.Unlock()

	s.subsMu.Lock()
	for ch := range s.subs {
		select {
		case ch <- img:
		default:
			// slow subscriber, skip it this refresh
		}
	}
	s.subsMu.Unlock()
}

// Latest returns the most recently rendered view and the frame behind it.
// Both may be nil before the first frame arrives.  Callers must treat both
// as read-only.
func (s *Surface) Latest() (*image.Gray, *camera.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rendered, s.frame
}

// Histogram returns the 256-bin histogram of the current frame
func (s *Surface) Histogram() [256]uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist
}

// Rendered reports how many frames have been rendered
func (s *Surface) Rendered() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rendern
}

// Subscribe registers a live-view subscriber.  Each rendered view is
// offered without blocking; slow subscribers miss refreshes rather than
// stalling the render loop.  Call the returned cancel func when done.
func (s *Surface) Subscribe() (<-chan *image.Gray, func()) {
	ch := make(chan *image.Gray, 1)
	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()
	cancel := func() {
		s.subsMu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			// sends only happen under subsMu, safe to close here
			close(ch)
		}
		s.subsMu.Unlock()
	}
	return ch, cancel
}
