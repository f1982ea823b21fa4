/*Package camera contains the value types shared between the camera adapter,
the acquisition loop and the display surface.

Frames are immutable snapshots; whichever stage currently holds a frame owns
it and nothing mutates a frame after creation.  Config is validated against
the Capabilities reported by the adapter before a session starts and is
frozen for the lifetime of that session.
*/
package camera

import (
	"fmt"
	"image"
	"time"
)

// AOI describes an area of interest on the camera
type AOI struct {
	// Left is the left pixel index.  1-based
	Left int `json:"left" yaml:"Left"`

	// Top is the top pixel index.  1-based
	Top int `json:"top" yaml:"Top"`

	// Width is the width in pixels
	Width int `json:"width" yaml:"Width"`

	// Height is the height in pixels
	Height int `json:"height" yaml:"Height"`
}

// Right returns the right pixel index, 1-based
func (a AOI) Right() int {
	return a.Left + a.Width - 1
}

// Bottom returns the bottom pixel index, 1-based
func (a AOI) Bottom() int {
	return a.Top + a.Height - 1
}

// Binning encapsulates information about pixel addition on camera
type Binning struct {
	// H is the horizontal binning factor
	H int `json:"h" yaml:"H"`

	// V is the vertical binning factor
	V int `json:"v" yaml:"V"`
}

// HxV renders the binning as a string, e.g. "1x1" or "2x2"
func (b Binning) HxV() string {
	return fmt.Sprintf("%dx%d", b.H, b.V)
}

// Frame is a single captured image.  Frames are immutable; Pix must not be
// written to after the frame leaves the adapter.
type Frame struct {
	// Pix is the strided pixel data, row-major
	Pix []uint16

	// Width is the frame width in pixels, after binning
	Width int

	// Height is the frame height in pixels, after binning
	Height int

	// Seq is the sequence number within the session.  Strictly increasing,
	// starting at 1, reset when a new session starts.  Drops in the hand-off
	// buffer affect delivery only, never numbering.
	Seq uint64

	// Stamp is the capture timestamp
	Stamp time.Time

	// BitDepth is the ADC bit depth of the pixel values, e.g. 14 or 16
	BitDepth int
}

// Gray16 converts the frame to a stdlib image.  The pixel data is copied.
func (f *Frame) Gray16() *image.Gray16 {
	buf := make([]byte, 2*len(f.Pix))
	for i, v := range f.Pix {
		// Gray16 is big-endian
		buf[2*i] = byte(v >> 8)
		buf[2*i+1] = byte(v)
	}
	return &image.Gray16{
		Pix:    buf,
		Stride: 2 * f.Width,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// Capabilities is the descriptor negotiated when the adapter opens the
// camera.  It replaces any runtime capability sniffing; consumers branch on
// these fields, never on the camera model.
type Capabilities struct {
	// Model is the camera model string
	Model string `json:"model"`

	// Serial is the camera serial number
	Serial int `json:"serial"`

	// DetectorWidth is the full sensor width in pixels
	DetectorWidth int `json:"detectorWidth"`

	// DetectorHeight is the full sensor height in pixels
	DetectorHeight int `json:"detectorHeight"`

	// BitDepth is the ADC bit depth
	BitDepth int `json:"bitDepth"`

	// MinExposure is the shortest supported exposure time
	MinExposure time.Duration `json:"minExposure"`

	// MaxExposure is the longest supported exposure time
	MaxExposure time.Duration `json:"maxExposure"`

	// MaxBinH is the maximum horizontal binning factor
	MaxBinH int `json:"maxBinH"`

	// MaxBinV is the maximum vertical binning factor
	MaxBinV int `json:"maxBinV"`

	// EMGainMin is the lowest EM gain setting, typically 0
	EMGainMin int `json:"emGainMin"`

	// EMGainMax is the highest EM gain setting
	EMGainMax int `json:"emGainMax"`

	// TriggerModes are the supported trigger mode names
	TriggerModes []string `json:"triggerModes"`
}

// HasTriggerMode returns true if the named trigger mode is supported
func (c Capabilities) HasTriggerMode(mode string) bool {
	for _, m := range c.TriggerModes {
		if m == mode {
			return true
		}
	}
	return false
}
