package camera_test

import (
	"errors"
	"testing"
	"time"

	"github.com/tomlinsa/andorview/camera"
)

func testCaps() camera.Capabilities {
	return camera.Capabilities{
		Model:          "iXon Ultra 888",
		DetectorWidth:  1024,
		DetectorHeight: 1024,
		BitDepth:       14,
		MinExposure:    10 * time.Microsecond,
		MaxExposure:    10 * time.Second,
		MaxBinH:        8,
		MaxBinV:        8,
		EMGainMin:      0,
		EMGainMax:      300,
		TriggerModes: []string{
			camera.TriggerInternal,
			camera.TriggerExternal,
			camera.TriggerSoftware,
		},
	}
}

func TestValidateAcceptsDefault(t *testing.T) {
	caps := testCaps()
	cfg := camera.DefaultConfig(caps)
	if err := cfg.Validate(caps); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestValidateRejectsExposure(t *testing.T) {
	caps := testCaps()
	cases := []struct {
		name string
		t    time.Duration
	}{
		{"negative", -time.Millisecond},
		{"zero", 0},
		{"above max", time.Minute},
	}
	for _, tc := range cases {
		cfg := camera.DefaultConfig(caps)
		cfg.ExposureTime = tc.t
		err := cfg.Validate(caps)
		if err == nil {
			t.Errorf("%s exposure should be rejected", tc.name)
			continue
		}
		var ice *camera.InvalidConfigurationError
		if !errors.As(err, &ice) {
			t.Errorf("%s: expected InvalidConfigurationError, got %T", tc.name, err)
			continue
		}
		if ice.Field != "ExposureTime" {
			t.Errorf("%s: expected offending field ExposureTime, got %s", tc.name, ice.Field)
		}
	}
}

func TestValidateRejectsAOIOffDetector(t *testing.T) {
	caps := testCaps()
	cfg := camera.DefaultConfig(caps)
	cfg.AOI = camera.AOI{Left: 513, Top: 1, Width: 1024, Height: 1024}
	err := cfg.Validate(caps)
	var ice *camera.InvalidConfigurationError
	if !errors.As(err, &ice) || ice.Field != "AOI" {
		t.Errorf("expected AOI rejection, got %v", err)
	}
}

func TestValidateRejectsBinning(t *testing.T) {
	caps := testCaps()
	cfg := camera.DefaultConfig(caps)
	cfg.Binning = camera.Binning{H: 16, V: 16}
	err := cfg.Validate(caps)
	var ice *camera.InvalidConfigurationError
	if !errors.As(err, &ice) || ice.Field != "Binning" {
		t.Errorf("expected Binning rejection, got %v", err)
	}
}

func TestValidateRejectsUnsupportedTrigger(t *testing.T) {
	caps := testCaps()
	cfg := camera.DefaultConfig(caps)
	cfg.TriggerMode = camera.TriggerExternalExposure
	err := cfg.Validate(caps)
	var ice *camera.InvalidConfigurationError
	if !errors.As(err, &ice) || ice.Field != "TriggerMode" {
		t.Errorf("expected TriggerMode rejection, got %v", err)
	}
}

func TestAOIEdges(t *testing.T) {
	a := camera.AOI{Left: 1, Top: 1, Width: 1024, Height: 512}
	if a.Right() != 1024 {
		t.Errorf("expected right edge 1024, got %d", a.Right())
	}
	if a.Bottom() != 512 {
		t.Errorf("expected bottom edge 512, got %d", a.Bottom())
	}
}

func TestFrameSizeWithBinning(t *testing.T) {
	caps := testCaps()
	cfg := camera.DefaultConfig(caps)
	cfg.Binning = camera.Binning{H: 2, V: 4}
	w, h := cfg.FrameSize()
	if w != 512 || h != 256 {
		t.Errorf("expected 512x256 binned frame, got %dx%d", w, h)
	}
}

func TestFrameGray16RoundTrip(t *testing.T) {
	f := &camera.Frame{
		Pix:    []uint16{0, 256, 16383, 65535},
		Width:  2,
		Height: 2,
	}
	img := f.Gray16()
	if got := img.Gray16At(1, 1).Y; got != 65535 {
		t.Errorf("expected pixel (1,1) = 65535, got %d", got)
	}
	if got := img.Gray16At(0, 1).Y; got != 16383 {
		t.Errorf("expected pixel (0,1) = 16383, got %d", got)
	}
}
