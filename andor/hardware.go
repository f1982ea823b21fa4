//go:build andorsdk

package andor

// NewHardware returns a driver for the physical camera.  Only available in
// builds made with the andorsdk tag on a machine with the vendor SDK
// installed.
func NewHardware() (Driver, error) {
	return NewSDK2(), nil
}
