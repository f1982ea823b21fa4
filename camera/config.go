package camera

import (
	"fmt"
	"time"
)

// readout and trigger mode names match the ones used by the SDK wrapper,
// see andor/codes.go
const (
	ReadoutImage               = "Image"
	ReadoutFullVerticalBinning = "FullVerticalBinning"

	TriggerInternal         = "Internal"
	TriggerExternal         = "External"
	TriggerExternalExposure = "ExternalExposure"
	TriggerSoftware         = "Software"
)

// Config holds the acquisition parameters for one session.  It is a value
// object; once a session is started against a Config, the session keeps its
// own copy and later edits have no effect.
type Config struct {
	// ExposureTime is the per-frame exposure time
	ExposureTime time.Duration `json:"exposureTime" yaml:"ExposureTime"`

	// AOI is the sensor region read out per frame
	AOI AOI `json:"aoi" yaml:"AOI"`

	// Binning is the on-sensor pixel binning
	Binning Binning `json:"binning" yaml:"Binning"`

	// ReadoutMode is the sensor readout mode, normally Image
	ReadoutMode string `json:"readoutMode" yaml:"ReadoutMode"`

	// TriggerMode selects what starts each exposure
	TriggerMode string `json:"triggerMode" yaml:"TriggerMode"`

	// EMGain is the electron multiplying gain setting
	EMGain int `json:"emGain" yaml:"EMGain"`
}

// Validate checks every field of the config against the capability ranges
// reported by the camera.  The first offending field is returned as an
// InvalidConfigurationError; a config that does not validate must never be
// programmed into the hardware.
func (c Config) Validate(caps Capabilities) error {
	if c.ExposureTime <= 0 {
		return &InvalidConfigurationError{Field: "ExposureTime", Reason: "must be positive"}
	}
	if c.ExposureTime < caps.MinExposure {
		return &InvalidConfigurationError{Field: "ExposureTime",
			Reason: "below hardware minimum " + caps.MinExposure.String()}
	}
	if caps.MaxExposure > 0 && c.ExposureTime > caps.MaxExposure {
		return &InvalidConfigurationError{Field: "ExposureTime",
			Reason: "above hardware maximum " + caps.MaxExposure.String()}
	}
	a := c.AOI
	if a.Left < 1 || a.Top < 1 {
		return &InvalidConfigurationError{Field: "AOI", Reason: "left and top are 1-based"}
	}
	if a.Width < 1 || a.Height < 1 {
		return &InvalidConfigurationError{Field: "AOI", Reason: "width and height must be at least 1"}
	}
	if a.Right() > caps.DetectorWidth || a.Bottom() > caps.DetectorHeight {
		return &InvalidConfigurationError{Field: "AOI",
			Reason: fmtDetector(caps.DetectorWidth, caps.DetectorHeight)}
	}
	b := c.Binning
	if b.H < 1 || b.V < 1 {
		return &InvalidConfigurationError{Field: "Binning", Reason: "factors must be at least 1"}
	}
	if b.H > caps.MaxBinH || b.V > caps.MaxBinV {
		return &InvalidConfigurationError{Field: "Binning",
			Reason: "exceeds hardware maximum " + Binning{H: caps.MaxBinH, V: caps.MaxBinV}.HxV()}
	}
	if a.Width%b.H != 0 || a.Height%b.V != 0 {
		return &InvalidConfigurationError{Field: "Binning", Reason: "AOI size must be a multiple of the binning factor"}
	}
	switch c.ReadoutMode {
	case ReadoutImage, ReadoutFullVerticalBinning:
	default:
		return &InvalidConfigurationError{Field: "ReadoutMode", Reason: "unknown mode " + c.ReadoutMode}
	}
	if !caps.HasTriggerMode(c.TriggerMode) {
		return &InvalidConfigurationError{Field: "TriggerMode",
			Reason: "mode " + c.TriggerMode + " not supported by this camera"}
	}
	if c.EMGain < caps.EMGainMin || c.EMGain > caps.EMGainMax {
		return &InvalidConfigurationError{Field: "EMGain",
			Reason: fmtRange(caps.EMGainMin, caps.EMGainMax)}
	}
	return nil
}

// FrameSize returns the (W, H) of frames produced under this config
func (c Config) FrameSize() (int, int) {
	return c.AOI.Width / c.Binning.H, c.AOI.Height / c.Binning.V
}

// DefaultConfig returns a full-frame, unbinned, internally triggered config
// for the given capabilities
func DefaultConfig(caps Capabilities) Config {
	return Config{
		ExposureTime: 16 * time.Millisecond,
		AOI:          AOI{Left: 1, Top: 1, Width: caps.DetectorWidth, Height: caps.DetectorHeight},
		Binning:      Binning{H: 1, V: 1},
		ReadoutMode:  ReadoutImage,
		TriggerMode:  TriggerInternal,
		EMGain:       0,
	}
}

func fmtDetector(w, h int) string {
	return fmt.Sprintf("exceeds detector size %dx%d", w, h)
}

func fmtRange(lo, hi int) string {
	return fmt.Sprintf("outside supported range [%d, %d]", lo, hi)
}
