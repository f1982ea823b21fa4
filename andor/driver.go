/*Package andor adapts the Andor SDK v2 to the acquisition pipeline.

The vendor library is an external collaborator, never reimplemented here.
Driver is the documented thin-binding contract: a near 1:1 image of the C
calls the viewer needs, speaking the SDK's own status codes.  Camera sits on
top of a Driver and translates those codes into the error taxonomy used by
the rest of the program.

Two drivers exist: the cgo binding to the real library (build tag andorsdk)
and Sim, a software camera used when no hardware is attached and throughout
the tests.
*/
package andor

import "time"

// Driver is the thin-binding contract to the vendor SDK.  Methods return
// raw DRV_* status codes; Camera owns translating them.  Implementations
// are not required to be concurrent safe; the adapter serializes access.
type Driver interface {
	// Initialize loads the driver library.  iniPath is the directory
	// holding the vendor's detector ini files.
	Initialize(iniPath string) uint

	// GetDetector reports the full sensor size in pixels
	GetDetector() (w, h int, code uint)

	// GetCameraSerialNumber reports the camera serial number
	GetCameraSerialNumber() (int, uint)

	// GetBitDepth reports the ADC bit depth of the default channel
	GetBitDepth() (int, uint)

	// GetMaximumExposure reports the longest settable exposure in seconds
	GetMaximumExposure() (float64, uint)

	// GetMaximumBinning reports the largest horizontal and vertical
	// binning factors for image readout
	GetMaximumBinning() (h, v int, code uint)

	// GetEMGainRange reports the settable EM gain range
	GetEMGainRange() (lo, hi int, code uint)

	// TriggerModes reports the trigger modes this camera supports, using
	// the names in the TriggerMode enum
	TriggerModes() []string

	// SetImage programs binning and readout region, all arguments 1-based
	// per the SDK
	SetImage(hbin, vbin, hstart, hend, vstart, vend int) uint

	// SetExposureTime programs the exposure time in seconds
	SetExposureTime(seconds float64) uint

	// SetReadMode programs the readout mode (ReadoutMode enum value)
	SetReadMode(mode int) uint

	// SetAcquisitionMode programs the acquisition mode (AcquisitionMode
	// enum value)
	SetAcquisitionMode(mode int) uint

	// SetKineticCycleTime programs the kinetic cycle time in seconds.
	// Zero means free run for RunUntilAbort acquisitions.
	SetKineticCycleTime(seconds float64) uint

	// SetTriggerMode programs the trigger mode (TriggerMode enum value)
	SetTriggerMode(mode int) uint

	// SetEMCCDGain programs the EM gain
	SetEMCCDGain(gain int) uint

	// SendSoftwareTrigger fires one software trigger
	SendSoftwareTrigger() uint

	// StartAcquisition arms the sensor
	StartAcquisition() uint

	// AbortAcquisition disarms the sensor.  DRV_IDLE if nothing was armed.
	AbortAcquisition() uint

	// WaitForAcquisition blocks until a new frame is ready or the timeout
	// elapses, in which case it returns DRV_NO_NEW_DATA
	WaitForAcquisition(timeout time.Duration) uint

	// GetMostRecentImage copies the newest frame in the driver's circular
	// buffer into buf
	GetMostRecentImage(buf []int32) uint

	// GetStatus reports the acquisition status
	GetStatus() (Status, uint)

	// ShutDown releases the driver library.  The SDK only ever returns
	// DRV_SUCCESS here, so no code is surfaced.
	ShutDown()
}
