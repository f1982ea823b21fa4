//go:build !andorsdk

package andor

import "errors"

// NewHardware reports that this build has no vendor SDK linked in.  Build
// with -tags andorsdk on a machine with the SDK installed to drive real
// hardware.
func NewHardware() (Driver, error) {
	return nil, errors.New("built without the vendor SDK, only the simulated camera is available")
}
