/*Package trigger drives the external TTL trigger line of the camera from a
lab I/O device.

Triggering is additive: when no device is reachable every operation reports
ErrTriggerUnavailable and the camera keeps working under internal or
software triggering.  Two device backends exist: a LabJack-U3-style USB DIO
box (gousb) and a serial pulse generator speaking CRC-checked telegrams
(tarm/serial).
*/
package trigger

import (
	"log"
	"sync"
	"time"

	"github.com/tomlinsa/andorview/camera"
)

// DefaultPulseWidth is the TTL high time used when none is armed.
// External-exposure ("bulb") triggering wants a long pulse; use 200ms for
// that, matching what the bench setup has always used.
const DefaultPulseWidth = 10 * time.Millisecond

// ExposurePulseWidth is the pulse width for external-exposure triggering
const ExposurePulseWidth = 200 * time.Millisecond

// Pulser is a device that can hold the trigger line high for a duration
type Pulser interface {
	// Pulse drives the line high for width, then low.  Blocking.
	Pulse(width time.Duration) error

	// Close releases the device
	Close() error
}

// Controller schedules and fires trigger pulses synchronized with
// acquisition start.  A Controller with no device is valid and degrades to
// camera-only operation.
type Controller struct {
	mu     sync.Mutex
	dev    Pulser
	delay  time.Duration
	width  time.Duration
	armed  bool
	faults int
}

// NewController returns a controller over dev.  dev may be nil when no
// trigger hardware is attached.
func NewController(dev Pulser) *Controller {
	return &Controller{dev: dev, width: DefaultPulseWidth}
}

// Available reports whether a trigger device is attached
func (c *Controller) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dev != nil
}

// Arm schedules the next pulse: Fire will wait delay, then hold the line
// high for pulseWidth.  Fails with ErrTriggerUnavailable when no device is
// attached; the caller proceeds camera-only.
func (c *Controller) Arm(delay, pulseWidth time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev == nil {
		return camera.ErrTriggerUnavailable
	}
	if pulseWidth <= 0 {
		pulseWidth = DefaultPulseWidth
	}
	c.delay = delay
	c.width = pulseWidth
	c.armed = true
	return nil
}

// Armed reports whether Arm has been called since the last Fire
func (c *Controller) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// Fire emits one pulse with the armed timing.  Called synchronized with
// session start.  Blocking for delay+width; callers that need the camera
// armed first should Start the worker, then Fire.
func (c *Controller) Fire() error {
	c.mu.Lock()
	dev := c.dev
	delay, width := c.delay, c.width
	c.armed = false
	c.mu.Unlock()
	if dev == nil {
		return camera.ErrTriggerUnavailable
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if err := dev.Pulse(width); err != nil {
		c.mu.Lock()
		c.faults++
		c.mu.Unlock()
		log.Printf("trigger: pulse failed: %v", err)
		return camera.ErrTriggerUnavailable
	}
	return nil
}

// Faults returns the number of pulse attempts that failed at the device
func (c *Controller) Faults() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.faults
}

// Close releases the device, if any
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev == nil {
		return nil
	}
	err := c.dev.Close()
	c.dev = nil
	return err
}
