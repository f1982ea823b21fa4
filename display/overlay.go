package display

import (
	"image"
	"sync"
)

// Overlay holds a captured reference view that can be blended over the live
// image, optionally thresholded to a binary mask first.  All methods are
// concurrent safe; capture happens from HTTP handlers while Blend runs on
// the render loop.
type Overlay struct {
	mu sync.Mutex

	captured *image.Gray

	// Threshold is the binary cutoff, 0..255
	threshold uint8

	// opacity of the overlay in Blend, 0..1
	opacity float64

	thresholdOn bool
	visible     bool
}

// NewOverlay returns an overlay with the conventional defaults: threshold
// 128, half opacity, hidden.
func NewOverlay() *Overlay {
	return &Overlay{threshold: 128, opacity: 0.5}
}

// Capture stores img as the overlay reference.  The caller must not modify
// img afterwards.
func (o *Overlay) Capture(img *image.Gray) {
	o.mu.Lock()
	o.captured = img
	o.mu.Unlock()
}

// Captured reports whether a reference image has been captured
func (o *Overlay) Captured() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.captured != nil
}

// SetVisible shows or hides the overlay
func (o *Overlay) SetVisible(v bool) {
	o.mu.Lock()
	o.visible = v
	o.mu.Unlock()
}

// SetThreshold sets the binary cutoff and turns thresholding on or off
func (o *Overlay) SetThreshold(cutoff uint8, on bool) {
	o.mu.Lock()
	o.threshold = cutoff
	o.thresholdOn = on
	o.mu.Unlock()
}

// SetOpacity sets the blend opacity, clamped to [0, 1]
func (o *Overlay) SetOpacity(opacity float64) {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	o.mu.Lock()
	o.opacity = opacity
	o.mu.Unlock()
}

// Settings reports the current threshold, threshold-enable, opacity and
// visibility, for the status endpoint
func (o *Overlay) Settings() (cutoff uint8, thresholdOn bool, opacity float64, visible bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.threshold, o.thresholdOn, o.opacity, o.visible
}

// Blend composites the overlay onto base in place and returns base.  If the
// overlay is hidden, not captured, or sized differently from base, base is
// returned untouched.
func (o *Overlay) Blend(base *image.Gray) *image.Gray {
	o.mu.Lock()
	ref, visible := o.captured, o.visible
	cutoff, threshOn, opacity := o.threshold, o.thresholdOn, o.opacity
	o.mu.Unlock()
	if !visible || ref == nil || !ref.Bounds().Eq(base.Bounds()) {
		return base
	}
	for i, bv := range base.Pix {
		ov := ref.Pix[i]
		if threshOn {
			if ov >= cutoff {
				ov = 255
			} else {
				// below threshold the overlay is transparent
				continue
			}
		}
		base.Pix[i] = uint8(float64(bv)*(1-opacity) + float64(ov)*opacity)
	}
	return base
}
