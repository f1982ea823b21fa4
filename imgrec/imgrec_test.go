package imgrec_test

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tomlinsa/andorview/camera"
	"github.com/tomlinsa/andorview/imgrec"
)

func testFrame() *camera.Frame {
	pix := make([]uint16, 8*4)
	for i := range pix {
		pix[i] = uint16(100 + i)
	}
	return &camera.Frame{
		Pix:      pix,
		Width:    8,
		Height:   4,
		Seq:      7,
		Stamp:    time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
		BitDepth: 14,
	}
}

func testCaps() camera.Capabilities {
	return camera.Capabilities{
		Model:          "iXon Ultra 888",
		Serial:         12345,
		DetectorWidth:  1024,
		DetectorHeight: 1024,
		BitDepth:       14,
		MaxExposure:    10 * time.Second,
		MaxBinH:        8,
		MaxBinV:        8,
		TriggerModes:   []string{camera.TriggerInternal},
	}
}

func TestWriteFITS(t *testing.T) {
	fr := testFrame()
	caps := testCaps()
	cfg := camera.DefaultConfig(caps)
	cards := imgrec.HeaderCards(caps, cfg, fr)
	buf := new(bytes.Buffer)
	if err := imgrec.WriteFITS(buf, fr, cards); err != nil {
		t.Fatalf("WriteFITS: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty FITS output")
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("SIMPLE")) {
		t.Error("output does not start with a FITS primary header")
	}
}

func TestRecorderDatedFolder(t *testing.T) {
	root := t.TempDir()
	rec := &imgrec.Recorder{Root: root, Prefix: "ixon-"}
	fr := testFrame()
	caps := testCaps()
	cfg := camera.DefaultConfig(caps)
	fn, err := rec.SaveFITS(fr, imgrec.HeaderCards(caps, cfg, fr))
	if err != nil {
		t.Fatalf("SaveFITS: %v", err)
	}
	now := time.Now()
	wantDir := filepath.Join(root, now.Format("2006-01-02"))
	if filepath.Dir(fn) != wantDir {
		t.Errorf("saved to %s, want folder %s", fn, wantDir)
	}
	if filepath.Base(fn) != "ixon-000000.fits" {
		t.Errorf("first file named %s, want ixon-000000.fits", filepath.Base(fn))
	}
	if _, err := os.Stat(fn); err != nil {
		t.Errorf("saved file missing: %v", err)
	}
}

func TestRecorderCounterIncrements(t *testing.T) {
	root := t.TempDir()
	rec := &imgrec.Recorder{Root: root, Prefix: "a"}
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	fn1, err := rec.SavePNG(img)
	if err != nil {
		t.Fatalf("SavePNG: %v", err)
	}
	fn2, err := rec.SavePNG(img)
	if err != nil {
		t.Fatalf("SavePNG: %v", err)
	}
	if fn1 == fn2 {
		t.Fatalf("two saves produced the same name %s", fn1)
	}
	if !strings.HasSuffix(fn2, "a000001.png") {
		t.Errorf("second file %s, want suffix a000001.png", fn2)
	}
}

func TestRecorderIncrScansExisting(t *testing.T) {
	root := t.TempDir()
	dated := filepath.Join(root, time.Now().Format("2006-01-02"))
	if err := os.MkdirAll(dated, 0777); err != nil {
		t.Fatal(err)
	}
	for _, fn := range []string{"a000000.fits", "a000003.png", "junk.txt"} {
		if err := os.WriteFile(filepath.Join(dated, fn), []byte("x"), 0666); err != nil {
			t.Fatal(err)
		}
	}
	rec := &imgrec.Recorder{Root: root, Prefix: "a"}
	rec.Incr()
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	fn, err := rec.SavePNG(img)
	if err != nil {
		t.Fatalf("SavePNG: %v", err)
	}
	if !strings.HasSuffix(fn, "a000004.png") {
		t.Errorf("after Incr saved %s, want suffix a000004.png", fn)
	}
}
