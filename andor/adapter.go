package andor

import (
	"sync"
	"time"

	"github.com/tomlinsa/andorview/camera"
)

// IniPath is the directory the vendor driver loads its detector files from
const IniPath = "/usr/local/etc/andor"

// Camera adapts a Driver to the acquisition pipeline.  It owns capability
// negotiation, configuration validation, the single-armed-session guard and
// frame sequence numbering.  All methods are safe for use from one goroutine
// at a time per the concurrency model; the mutex exists so control calls
// (Stop, Close) from the controlling layer do not race the polling worker.
type Camera struct {
	mu  sync.Mutex
	drv Driver

	caps       camera.Capabilities
	cfg        camera.Config
	configured bool
	running    bool
	closed     bool

	seq     uint64
	scratch []int32
	fw, fh  int
}

// Open initializes the vendor driver and negotiates the capability
// descriptor.  Any failure here is HardwareUnavailable: there is no camera
// to run a session against.
func Open(drv Driver) (*Camera, error) {
	if code := drv.Initialize(IniPath); Error(code) != nil {
		return nil, &camera.HardwareUnavailableError{Cause: DRVError(code)}
	}
	c := &Camera{drv: drv}
	caps := camera.Capabilities{Model: "Andor iXon", TriggerModes: drv.TriggerModes()}
	var code uint
	caps.DetectorWidth, caps.DetectorHeight, code = drv.GetDetector()
	if Error(code) != nil {
		drv.ShutDown()
		return nil, &camera.HardwareUnavailableError{Cause: DRVError(code)}
	}
	caps.Serial, code = drv.GetCameraSerialNumber()
	if Error(code) != nil {
		drv.ShutDown()
		return nil, &camera.HardwareUnavailableError{Cause: DRVError(code)}
	}
	caps.BitDepth, code = drv.GetBitDepth()
	if Error(code) != nil {
		drv.ShutDown()
		return nil, &camera.HardwareUnavailableError{Cause: DRVError(code)}
	}
	maxExp, code := drv.GetMaximumExposure()
	if Error(code) != nil {
		drv.ShutDown()
		return nil, &camera.HardwareUnavailableError{Cause: DRVError(code)}
	}
	caps.MinExposure = 1 * time.Microsecond
	caps.MaxExposure = time.Duration(maxExp * float64(time.Second))
	caps.MaxBinH, caps.MaxBinV, code = drv.GetMaximumBinning()
	if Error(code) != nil {
		drv.ShutDown()
		return nil, &camera.HardwareUnavailableError{Cause: DRVError(code)}
	}
	caps.EMGainMin, caps.EMGainMax, code = drv.GetEMGainRange()
	if Error(code) != nil {
		drv.ShutDown()
		return nil, &camera.HardwareUnavailableError{Cause: DRVError(code)}
	}
	c.caps = caps
	return c, nil
}

// Capabilities returns the descriptor negotiated at Open
func (c *Camera) Capabilities() camera.Capabilities {
	return c.caps
}

// Config returns the last configuration accepted by Configure
func (c *Camera) Config() camera.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Configure validates cfg against the capability descriptor and, only if
// every field passes, programs it into the hardware.  A rejected config
// never touches the sensor.  Fails with ErrAlreadyRunning while a session
// is armed; configuration is immutable for the life of a session.
func (c *Camera) Configure(cfg camera.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return camera.ErrAlreadyRunning
	}
	if err := cfg.Validate(c.caps); err != nil {
		return err
	}
	if err := configError(c.drv.SetReadMode(ReadoutMode[cfg.ReadoutMode]), "ReadoutMode"); err != nil {
		return err
	}
	// live view free-runs; kinetic cycle time 0 lets the camera go as fast
	// as the exposure allows
	if err := Error(c.drv.SetAcquisitionMode(AcquisitionMode["RunUntilAbort"])); err != nil {
		return &camera.DeviceError{Op: "configure acquisition mode", Cause: err}
	}
	if err := configError(c.drv.SetKineticCycleTime(0), "ExposureTime"); err != nil {
		return err
	}
	if err := configError(c.drv.SetTriggerMode(TriggerMode[cfg.TriggerMode]), "TriggerMode"); err != nil {
		return err
	}
	if err := configError(c.drv.SetExposureTime(cfg.ExposureTime.Seconds()), "ExposureTime"); err != nil {
		return err
	}
	a, b := cfg.AOI, cfg.Binning
	if err := setImageError(c.drv.SetImage(b.H, b.V, a.Left, a.Right(), a.Top, a.Bottom())); err != nil {
		return err
	}
	if err := configError(c.drv.SetEMCCDGain(cfg.EMGain), "EMGain"); err != nil {
		return err
	}
	c.cfg = cfg
	c.fw, c.fh = cfg.FrameSize()
	c.scratch = make([]int32, c.fw*c.fh)
	c.configured = true
	return nil
}

// Start arms the sensor.  Fails with ErrAlreadyRunning if a session is
// active; the running session is unaffected.  Resets sequence numbering.
func (c *Camera) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return camera.ErrAlreadyRunning
	}
	if !c.configured {
		return &camera.InvalidConfigurationError{Field: "Config", Reason: "camera not configured"}
	}
	code := c.drv.StartAcquisition()
	if code == DRVAcquiring {
		return camera.ErrAlreadyRunning
	}
	if err := Error(code); err != nil {
		return &camera.DeviceError{Op: "start", Cause: err}
	}
	c.running = true
	c.seq = 0
	return nil
}

// Running reports whether the sensor is armed
func (c *Camera) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// PollFrame returns the next available frame.  If the timeout elapses first
// it returns ErrNoFrame and the caller retries; a DeviceError is terminal
// for the session.  The timeout bounds worst-case stop latency, so keep it
// short (a few ms) in polling loops.
func (c *Camera) PollFrame(timeout time.Duration) (*camera.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil, camera.ErrNotRunning
	}
	if c.cfg.TriggerMode == camera.TriggerSoftware {
		if code := c.drv.SendSoftwareTrigger(); fatal(code) {
			return nil, &camera.DeviceError{Op: "software trigger", Cause: DRVError(code)}
		}
	}
	code := c.drv.WaitForAcquisition(timeout)
	if code == DRVNoNewData {
		return nil, camera.ErrNoFrame
	}
	if err := Error(code); err != nil {
		if fatal(code) {
			return nil, &camera.DeviceError{Op: "wait", Cause: err}
		}
		return nil, camera.ErrNoFrame
	}
	code = c.drv.GetMostRecentImage(c.scratch)
	if code == DRVNoNewData {
		return nil, camera.ErrNoFrame
	}
	if err := Error(code); err != nil {
		return nil, &camera.DeviceError{Op: "readout", Cause: err}
	}
	pix := make([]uint16, len(c.scratch))
	for i, v := range c.scratch {
		pix[i] = uint16(v)
	}
	c.seq++
	return &camera.Frame{
		Pix:      pix,
		Width:    c.fw,
		Height:   c.fh,
		Seq:      c.seq,
		Stamp:    time.Now(),
		BitDepth: c.caps.BitDepth,
	}, nil
}

// Stop disarms the sensor.  Idempotent; stopping an idle camera is a no-op.
func (c *Camera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked()
}

func (c *Camera) stopLocked() error {
	if !c.running {
		return nil
	}
	c.running = false
	code := c.drv.AbortAcquisition()
	if code == DRVIdle {
		return nil
	}
	if err := Error(code); err != nil {
		return &camera.DeviceError{Op: "stop", Cause: err}
	}
	return nil
}

// Close disarms the sensor and releases the driver library.  Safe to call
// multiple times.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	err := c.stopLocked()
	c.drv.ShutDown()
	c.closed = true
	return err
}

// SetTriggerMode changes only the trigger mode, for single-exposure capture
// which briefly switches the trigger source and restores it.  Fails with
// ErrAlreadyRunning while armed.
func (c *Camera) SetTriggerMode(mode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return camera.ErrAlreadyRunning
	}
	if !c.caps.HasTriggerMode(mode) {
		return &camera.InvalidConfigurationError{Field: "TriggerMode",
			Reason: "mode " + mode + " not supported by this camera"}
	}
	if err := configError(c.drv.SetTriggerMode(TriggerMode[mode]), "TriggerMode"); err != nil {
		return err
	}
	c.cfg.TriggerMode = mode
	return nil
}
