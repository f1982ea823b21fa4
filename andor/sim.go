package andor

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/tomlinsa/andorview/camera"
)

// Sim is a software camera implementing Driver.  It produces a noisy
// Gaussian spot at a randomized location on a 1024x1024 14-bit detector,
// one frame per exposure period under internal triggering, one frame per
// SendSoftwareTrigger under software triggering, and one frame per Pulse
// under external triggering.  Useful when no hardware is attached, and the
// backend the tests run against.
type Sim struct {
	mu sync.Mutex

	initialized bool
	armed       bool

	exposure time.Duration
	trigger  int
	hbin, vbin,
	hstart, hend,
	vstart, vend int

	// pending counts triggers received but not yet read out
	pending int

	// lastFrame is when the previous internal-trigger frame was produced
	lastFrame time.Time

	cx, cy float64
	rng    *rand.Rand
}

// NewSim returns a simulated camera with a randomized spot location
func NewSim() *Sim {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Sim{
		exposure: 16 * time.Millisecond,
		hbin:     1, vbin: 1,
		hstart: 1, hend: 1024,
		vstart: 1, vend: 1024,
		cx:  256 + 512*rng.Float64(),
		cy:  256 + 512*rng.Float64(),
		rng: rng,
	}
}

// Pulse simulates an external TTL edge reaching the camera's trigger input.
// Under External or ExternalExposure triggering it queues one frame.
func (s *Sim) Pulse() {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := TriggerMode[camera.TriggerExternal]
	te := TriggerMode[camera.TriggerExternalExposure]
	if s.armed && (s.trigger == t || s.trigger == te) {
		s.pending++
	}
}

func (s *Sim) Initialize(iniPath string) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	return DRVSuccess
}

func (s *Sim) GetDetector() (int, int, uint) {
	return 1024, 1024, DRVSuccess
}

func (s *Sim) GetCameraSerialNumber() (int, uint) {
	return 31337, DRVSuccess
}

func (s *Sim) GetBitDepth() (int, uint) {
	return 14, DRVSuccess
}

func (s *Sim) GetMaximumExposure() (float64, uint) {
	return 10.0, DRVSuccess
}

func (s *Sim) GetMaximumBinning() (int, int, uint) {
	return 8, 8, DRVSuccess
}

func (s *Sim) GetEMGainRange() (int, int, uint) {
	return 0, 300, DRVSuccess
}

func (s *Sim) TriggerModes() []string {
	return []string{
		camera.TriggerInternal,
		camera.TriggerExternal,
		camera.TriggerExternalExposure,
		camera.TriggerSoftware,
	}
}

func (s *Sim) SetImage(hbin, vbin, hstart, hend, vstart, vend int) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hbin < 1 || vbin < 1 {
		return DRVP1Invalid
	}
	if hstart < 1 || hend > 1024 || vstart < 1 || vend > 1024 {
		return DRVP3Invalid
	}
	s.hbin, s.vbin = hbin, vbin
	s.hstart, s.hend = hstart, hend
	s.vstart, s.vend = vstart, vend
	return DRVSuccess
}

func (s *Sim) SetExposureTime(seconds float64) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seconds <= 0 {
		return DRVP1Invalid
	}
	s.exposure = time.Duration(seconds * float64(time.Second))
	return DRVSuccess
}

func (s *Sim) SetReadMode(mode int) uint          { return DRVSuccess }
func (s *Sim) SetAcquisitionMode(mode int) uint   { return DRVSuccess }
func (s *Sim) SetKineticCycleTime(t float64) uint { return DRVSuccess }
func (s *Sim) SetEMCCDGain(gain int) uint         { return DRVSuccess }

func (s *Sim) SetTriggerMode(mode int) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trigger = mode
	return DRVSuccess
}

func (s *Sim) SendSoftwareTrigger() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armed {
		return DRVIdle
	}
	if s.trigger == TriggerMode[camera.TriggerSoftware] {
		s.pending++
	}
	return DRVSuccess
}

func (s *Sim) StartAcquisition() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return DRVNotInitialized
	}
	if s.armed {
		return DRVAcquiring
	}
	s.armed = true
	s.pending = 0
	s.lastFrame = time.Now()
	return DRVSuccess
}

func (s *Sim) AbortAcquisition() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armed {
		return DRVIdle
	}
	s.armed = false
	return DRVSuccess
}

func (s *Sim) WaitForAcquisition(timeout time.Duration) uint {
	deadline := time.Now().Add(timeout)
	for {
		s.mu.Lock()
		if !s.armed {
			s.mu.Unlock()
			return DRVIdle
		}
		if s.pending > 0 {
			s.pending--
			s.mu.Unlock()
			return DRVSuccess
		}
		if s.trigger == TriggerMode[camera.TriggerInternal] &&
			time.Since(s.lastFrame) >= s.exposure {
			s.lastFrame = time.Now()
			s.mu.Unlock()
			return DRVSuccess
		}
		s.mu.Unlock()
		if !time.Now().Before(deadline) {
			return DRVNoNewData
		}
		time.Sleep(time.Millisecond)
	}
}

func (s *Sim) GetMostRecentImage(buf []int32) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := (s.hend - s.hstart + 1) / s.hbin
	h := (s.vend - s.vstart + 1) / s.vbin
	if len(buf) < w*h {
		return DRVP2Invalid
	}
	const sigma = 40.0
	const peak = 12000.0
	const base = 800.0
	for y := 0; y < h; y++ {
		// sensor coordinates of this binned row
		sy := float64(s.vstart) + float64(y*s.vbin)
		for x := 0; x < w; x++ {
			sx := float64(s.hstart) + float64(x*s.hbin)
			dx, dy := sx-s.cx, sy-s.cy
			v := base + peak*math.Exp(-(dx*dx+dy*dy)/(2*sigma*sigma))
			v += s.rng.NormFloat64() * 25
			if v < 0 {
				v = 0
			}
			if v > 16383 {
				v = 16383
			}
			buf[y*w+x] = int32(v)
		}
	}
	return DRVSuccess
}

func (s *Sim) GetStatus() (Status, uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.armed {
		return StatusAcquiring, DRVSuccess
	}
	return StatusIdle, DRVSuccess
}

func (s *Sim) ShutDown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = false
	s.initialized = false
}
