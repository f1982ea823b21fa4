//go:build andorsdk

package andor

/*
#cgo CFLAGS: -I/usr/local
#cgo LDFLAGS: -L/usr/local/lib -landor
#include <stdlib.h>
#include <atmcdLXd.h>
*/
import "C"
import (
	"time"
	"unsafe"

	"github.com/tomlinsa/andorview/camera"
)

// SDK2 is the Driver backed by the vendor shared library.  One camera per
// process; the SDK's global handle model does not support more.
type SDK2 struct{}

// NewSDK2 returns the hardware driver
func NewSDK2() *SDK2 { return &SDK2{} }

func (d *SDK2) Initialize(iniPath string) uint {
	cstr := C.CString(iniPath)
	defer C.free(unsafe.Pointer(cstr))
	return uint(C.Initialize(cstr))
}

func (d *SDK2) GetDetector() (int, int, uint) {
	var x, y C.int
	code := uint(C.GetDetector(&x, &y))
	return int(x), int(y), code
}

func (d *SDK2) GetCameraSerialNumber() (int, uint) {
	var i C.int
	code := uint(C.GetCameraSerialNumber(&i))
	return int(i), code
}

func (d *SDK2) GetBitDepth() (int, uint) {
	var depth C.int
	code := uint(C.GetBitDepth(C.int(0), &depth))
	return int(depth), code
}

func (d *SDK2) GetMaximumExposure() (float64, uint) {
	var f C.float
	code := uint(C.GetMaximumExposure(&f))
	return float64(f), code
}

func (d *SDK2) GetMaximumBinning() (int, int, uint) {
	var hbin, vbin C.int
	imageMode := C.int(ReadoutMode[camera.ReadoutImage])
	code := uint(C.GetMaximumBinning(imageMode, C.int(0), &hbin))
	if Error(code) != nil {
		return 0, 0, code
	}
	code = uint(C.GetMaximumBinning(imageMode, C.int(1), &vbin))
	return int(hbin), int(vbin), code
}

func (d *SDK2) GetEMGainRange() (int, int, uint) {
	var low, high C.int
	code := uint(C.GetEMGainRange(&low, &high))
	return int(low), int(high), code
}

// TriggerModes reports the modes implemented for the iXon line.  The SDK's
// GetCapabilities bitmask covers more cameras than this viewer supports.
func (d *SDK2) TriggerModes() []string {
	return []string{
		camera.TriggerInternal,
		camera.TriggerExternal,
		camera.TriggerExternalExposure,
		camera.TriggerSoftware,
	}
}

func (d *SDK2) SetImage(hbin, vbin, hstart, hend, vstart, vend int) uint {
	return uint(C.SetImage(C.int(hbin), C.int(vbin), C.int(hstart), C.int(hend), C.int(vstart), C.int(vend)))
}

func (d *SDK2) SetExposureTime(seconds float64) uint {
	return uint(C.SetExposureTime(C.float(seconds)))
}

func (d *SDK2) SetReadMode(mode int) uint {
	return uint(C.SetReadMode(C.int(mode)))
}

func (d *SDK2) SetAcquisitionMode(mode int) uint {
	return uint(C.SetAcquisitionMode(C.int(mode)))
}

func (d *SDK2) SetKineticCycleTime(seconds float64) uint {
	return uint(C.SetKineticCycleTime(C.float(seconds)))
}

func (d *SDK2) SetTriggerMode(mode int) uint {
	return uint(C.SetTriggerMode(C.int(mode)))
}

func (d *SDK2) SetEMCCDGain(gain int) uint {
	return uint(C.SetEMCCDGain(C.int(gain)))
}

func (d *SDK2) SendSoftwareTrigger() uint {
	return uint(C.SendSoftwareTrigger())
}

func (d *SDK2) StartAcquisition() uint {
	return uint(C.StartAcquisition())
}

func (d *SDK2) AbortAcquisition() uint {
	return uint(C.AbortAcquisition())
}

func (d *SDK2) WaitForAcquisition(timeout time.Duration) uint {
	return uint(C.WaitForAcquisitionTimeOut(C.int(timeout.Milliseconds())))
}

func (d *SDK2) GetMostRecentImage(buf []int32) uint {
	ptr := (*C.at_32)(unsafe.Pointer(&buf[0]))
	return uint(C.GetMostRecentImage(ptr, C.ulong(len(buf))))
}

func (d *SDK2) GetStatus() (Status, uint) {
	var stat C.int
	code := uint(C.GetStatus(&stat))
	return Status(uint(stat)), code
}

func (d *SDK2) ShutDown() {
	C.ShutDown()
}
