package display_test

import (
	"context"
	"testing"
	"time"

	"github.com/tomlinsa/andorview/acquire"
	"github.com/tomlinsa/andorview/camera"
	"github.com/tomlinsa/andorview/display"
)

func testFrame(pix []uint16, w, h int) *camera.Frame {
	return &camera.Frame{Pix: pix, Width: w, Height: h, Seq: 1, BitDepth: 14}
}

func TestRescaleMinMax(t *testing.T) {
	f := testFrame([]uint16{100, 100, 100, 1100}, 2, 2)
	img := display.Rescale(f, display.ScaleMinMax)
	if img.Pix[0] != 0 {
		t.Errorf("minimum should map to 0, got %d", img.Pix[0])
	}
	if img.Pix[3] != 255 {
		t.Errorf("maximum should map to 255, got %d", img.Pix[3])
	}
}

func TestRescaleFlatFrame(t *testing.T) {
	f := testFrame([]uint16{700, 700, 700, 700}, 2, 2)
	img := display.Rescale(f, display.ScaleMinMax)
	for i, v := range img.Pix {
		if v != 128 {
			t.Fatalf("flat frame should render mid-gray, pixel %d = %d", i, v)
		}
	}
}

func TestRescaleEmptyFrame(t *testing.T) {
	f := testFrame(nil, 0, 0)
	for _, mode := range []display.ScaleMode{display.ScaleMinMax, display.ScaleFixed} {
		img := display.Rescale(f, mode)
		if img == nil {
			t.Fatalf("mode %d: empty frame should render an empty image, got nil", mode)
		}
		if len(img.Pix) != 0 {
			t.Errorf("mode %d: empty frame rendered %d pixels", mode, len(img.Pix))
		}
	}
}

func TestRescaleFixedPaletteConsistency(t *testing.T) {
	// same input value renders the same gray in different frames
	a := testFrame([]uint16{0, 8191, 16383, 16383}, 2, 2)
	b := testFrame([]uint16{8191, 8191, 8191, 8191}, 2, 2)
	ia := display.Rescale(a, display.ScaleFixed)
	ib := display.Rescale(b, display.ScaleFixed)
	if ia.Pix[1] != ib.Pix[0] {
		t.Errorf("fixed palette must be consistent across frames: %d != %d", ia.Pix[1], ib.Pix[0])
	}
	if ia.Pix[2] != 255 {
		t.Errorf("full scale of a 14-bit frame should map to 255, got %d", ia.Pix[2])
	}
}

func TestHistogramSumsToPixelCount(t *testing.T) {
	pix := make([]uint16, 64*64)
	for i := range pix {
		pix[i] = uint16(i % 16384)
	}
	f := testFrame(pix, 64, 64)
	h := display.Histogram(f)
	var total uint32
	for _, c := range h {
		total += c
	}
	if total != 64*64 {
		t.Errorf("histogram should count every pixel once, got %d", total)
	}
}

func TestOverlayBlendThreshold(t *testing.T) {
	o := display.NewOverlay()
	base := display.Rescale(testFrame([]uint16{0, 0, 0, 0}, 2, 2), display.ScaleFixed)
	ref := display.Rescale(testFrame([]uint16{16383, 16383, 0, 0}, 2, 2), display.ScaleFixed)
	o.Capture(ref)
	o.SetThreshold(128, true)
	o.SetOpacity(1.0)
	o.SetVisible(true)
	out := o.Blend(base)
	if out.Pix[0] != 255 {
		t.Errorf("above-threshold overlay at full opacity should saturate, got %d", out.Pix[0])
	}
	if out.Pix[2] != 0 {
		t.Errorf("below-threshold overlay must be transparent, got %d", out.Pix[2])
	}
}

func TestOverlayHiddenIsNoop(t *testing.T) {
	o := display.NewOverlay()
	base := display.Rescale(testFrame([]uint16{100, 200, 300, 400}, 2, 2), display.ScaleFixed)
	before := make([]uint8, len(base.Pix))
	copy(before, base.Pix)
	o.Capture(display.Rescale(testFrame([]uint16{16383, 16383, 16383, 16383}, 2, 2), display.ScaleFixed))
	out := o.Blend(base)
	for i := range before {
		if out.Pix[i] != before[i] {
			t.Fatalf("hidden overlay must not alter the view, pixel %d changed", i)
		}
	}
}

func TestScaleBarWedge(t *testing.T) {
	pix := make([]uint16, 32*32)
	for i := range pix {
		pix[i] = 8192 // renders as 128 under the fixed 14-bit palette
	}
	f := testFrame(pix, 32, 32)
	img := display.Rescale(f, display.ScaleFixed)
	display.ScaleBar(img, 4)
	if img.GrayAt(31, 0).Y != 255 {
		t.Errorf("top of wedge should be white, got %d", img.GrayAt(31, 0).Y)
	}
	if img.GrayAt(31, 31).Y != 0 {
		t.Errorf("bottom of wedge should be black, got %d", img.GrayAt(31, 31).Y)
	}
	if img.GrayAt(0, 0).Y != 128 {
		t.Errorf("image outside the wedge must be untouched, got %d", img.GrayAt(0, 0).Y)
	}
}

func TestSurfaceRendersFromBuffer(t *testing.T) {
	var buf acquire.Latest
	s := display.NewSurface(&buf, 200)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	buf.Push(testFrame([]uint16{0, 5000, 10000, 16383}, 2, 2))
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if img, f := s.Latest(); img != nil {
			if f.Seq != 1 {
				t.Errorf("expected frame seq 1 behind the view, got %d", f.Seq)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("surface did not render the pushed frame in time")
}

func TestSurfaceSubscribe(t *testing.T) {
	var buf acquire.Latest
	s := display.NewSurface(&buf, 200)
	ch, cancelSub := s.Subscribe()
	defer cancelSub()

	s.RenderOnce(testFrame([]uint16{0, 1, 2, 3}, 2, 2))
	select {
	case img := <-ch:
		if img == nil {
			t.Fatal("subscriber received nil view")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the rendered view")
	}
}
