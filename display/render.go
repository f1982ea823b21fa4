/*Package display consumes frames from the hand-off buffer and turns them
into 8-bit grayscale views, histograms and overlays.  It is a pure consumer:
nothing in this package ever touches the camera.
*/
package display

import (
	"image"
	"image/color"

	"github.com/tomlinsa/andorview/camera"
)

// ScaleMode selects how 16-bit pixel values map to the 8-bit display range
type ScaleMode int

const (
	// ScaleMinMax stretches each frame's own min..max to 0..255.  The
	// default; matches what operators expect from a live focus view.
	ScaleMinMax ScaleMode = iota

	// ScaleFixed maps 0..2^BitDepth-1 to 0..255 so the palette is
	// consistent across frames of the same bit depth
	ScaleFixed
)

// Rescale maps a frame to an 8-bit grayscale image.  The grayscale palette
// is the identity LUT; the same input value always renders the same gray
// within one scale mode and bit depth.
func Rescale(f *camera.Frame, mode ScaleMode) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
	if len(f.Pix) == 0 {
		return img
	}
	switch mode {
	case ScaleFixed:
		shift := uint(0)
		if f.BitDepth > 8 {
			shift = uint(f.BitDepth - 8)
		}
		for i, v := range f.Pix {
			img.Pix[i] = uint8(v >> shift)
		}
	default:
		lo, hi := f.Pix[0], f.Pix[0]
		for _, v := range f.Pix {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi == lo {
			// flat frame renders mid-gray rather than dividing by zero
			for i := range f.Pix {
				img.Pix[i] = 128
			}
			return img
		}
		span := uint32(hi - lo)
		for i, v := range f.Pix {
			img.Pix[i] = uint8(uint32(v-lo) * 255 / span)
		}
	}
	return img
}

// Histogram bins the frame's pixels into 256 luminance buckets spanning the
// frame's bit depth
func Histogram(f *camera.Frame) [256]uint32 {
	var h [256]uint32
	shift := uint(0)
	if f.BitDepth > 8 {
		shift = uint(f.BitDepth - 8)
	}
	for _, v := range f.Pix {
		b := v >> shift
		if b > 255 {
			b = 255
		}
		h[b]++
	}
	return h
}

// ScaleBar burns a vertical grayscale wedge into the right margin of img,
// darkest at the bottom, so the operator can read the palette off the live
// view.  width is the wedge width in pixels; img is modified in place.
func ScaleBar(img *image.Gray, width int) {
	b := img.Bounds()
	if width <= 0 || width >= b.Dx() {
		return
	}
	h := b.Dy()
	if h < 2 {
		return
	}
	for y := 0; y < h; y++ {
		v := uint8(255 * (h - 1 - y) / (h - 1))
		for x := b.Max.X - width; x < b.Max.X; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
}
