package andor

import (
	"fmt"

	"github.com/tomlinsa/andorview/camera"
)

// Enum behaves a bit like a C enum
type Enum map[string]int

var (
	// AcquisitionMode maps names to the values used by the SDK
	AcquisitionMode = Enum{
		"SingleScan":    1,
		"Accumulate":    2,
		"Kinetic":       3,
		"FastKinetic":   4,
		"RunUntilAbort": 5,
	}

	// ReadoutMode maps names to the values used by the SDK
	ReadoutMode = Enum{
		camera.ReadoutFullVerticalBinning: 0,
		"MultiTrack":                      1,
		"RandomTrack":                     2,
		"SingleTrack":                     3,
		camera.ReadoutImage:               4,
	}

	// TriggerMode maps names to the values used by the SDK
	TriggerMode = Enum{
		camera.TriggerInternal:         0,
		camera.TriggerExternal:         1,
		"ExternalStart":                6,
		camera.TriggerExternalExposure: 7,
		camera.TriggerSoftware:         10,
	}
)

// codes returned by the vendor driver.  the full table is in the SDK manual;
// this is the subset the viewer can actually encounter.
const (
	DRVSuccess           uint = 20002
	DRVVxdNotInstalled   uint = 20003
	DRVErrorFileload     uint = 20006
	DRVErrorAck          uint = 20013
	DRVAcqBuffer         uint = 20018
	DRVAcqDownfifoFull   uint = 20019
	DRVKineticTimeNotMet uint = 20022
	DRVAccumTimeNotMet   uint = 20023
	DRVNoNewData         uint = 20024
	DRVSpoolError        uint = 20026
	DRVTempOff           uint = 20034
	DRVTempStabilized    uint = 20036
	DRVTempNotReached    uint = 20037
	DRVP1Invalid         uint = 20066
	DRVP2Invalid         uint = 20067
	DRVP3Invalid         uint = 20068
	DRVP4Invalid         uint = 20069
	DRVIniError          uint = 20070
	DRVAcquiring         uint = 20072
	DRVIdle              uint = 20073
	DRVNotInitialized    uint = 20075
	DRVP5Invalid         uint = 20076
	DRVP6Invalid         uint = 20077
	DRVInvalidMode       uint = 20078
	DRVP7Invalid         uint = 20083
	DRVUsbError          uint = 20089
	DRVNotSupported      uint = 20091
	DRVUsbInterruptError uint = 20093
	DRVInvalidTrigger    uint = 20095
	DRVBinningError      uint = 20099
	DRVErrorNoCamera     uint = 20990
)

// ErrCodes is a map of error codes to their string values
var ErrCodes = map[uint]string{
	20001: "DRV_ERROR_CODES",
	20002: "DRV_SUCCESS",
	20003: "DRV_VXD_NOT_INSTALLED",
	20004: "DRV_ERROR_SCAN",
	20005: "DRV_ERROR_CHECKSUM",
	20006: "DRV_ERROR_FILELOAD",
	20007: "DRV_UNKNOWN_FUNCTION",
	20008: "DRV_ERROR_VXD_INIT",
	20013: "DRV_ERROR_ACK",
	20017: "DRV_ACQUISITION_ERRORS",
	20018: "DRV_ACQ_BUFFER",
	20019: "DRV_ACQ_DOWNFIFO_FULL",
	20022: "DRV_KINETIC_TIME_NOT_MET",
	20023: "DRV_ACCUM_TIME_NOT_MET",
	20024: "DRV_NO_NEW_DATA",
	20026: "DRV_SPOOLERROR",
	20034: "DRV_TEMPERATURE_OFF",
	20035: "DRV_TEMPERATURE_NOT_STABILIZED",
	20036: "DRV_TEMPERATURE_STABILIZED",
	20037: "DRV_TEMPERATURE_NOT_REACHED",
	20049: "DRV_GENERAL_ERRORS",
	20064: "DRV_DATATYPE",
	20065: "DRV_DRIVER_ERRORS",
	20066: "DRV_P1INVALID",
	20067: "DRV_P2INVALID",
	20068: "DRV_P3INVALID",
	20069: "DRV_P4INVALID",
	20070: "DRV_INIERROR",
	20071: "DRV_COFERROR",
	20072: "DRV_ACQUIRING",
	20073: "DRV_IDLE",
	20074: "DRV_TEMPCYCLE",
	20075: "DRV_NOT_INITIALIZED",
	20076: "DRV_P5INVALID",
	20077: "DRV_P6INVALID",
	20078: "DRV_INVALID_MODE",
	20079: "DRV_INVALID_FILTER",
	20083: "DRV_P7INVALID",
	20089: "DRV_USBERROR",
	20090: "DRV_IOCERROR",
	20091: "DRV_NOT_SUPPORTED",
	20093: "DRV_USB_INTERRUPT_ENDPOINT_ERROR",
	20095: "DRV_INVALID_TRIGGER_MODE",
	20096: "DRV_LOAD_FIRMWARE_ERROR",
	20099: "DRV_BINNING_ERROR",
	20990: "DRV_ERROR_NOCAMERA",
	20991: "DRV_NOT_SUPPORTED",
	20992: "DRV_NOT_AVAILABLE",
}

// Status is a camera status.  They are also error codes
type Status uint

const (
	// StatusIdle is IDLE waiting on instructions
	StatusIdle Status = 20073

	// StatusAcquiring Acquisition in progress
	StatusAcquiring Status = 20072

	// StatusDriverError unable to communicate with card
	StatusDriverError Status = 20013
)

// DRVError represents a driver error and has nice formatting
type DRVError uint

func (e DRVError) Error() string {
	if s, ok := ErrCodes[uint(e)]; ok {
		return fmt.Sprintf("%d - %s", uint(e), s)
	}
	return fmt.Sprintf("%d - UNKNOWN_ERROR_CODE", uint(e))
}

// Error returns nil if the code is benign, otherwise a DRVError
func Error(code uint) error {
	switch code {
	case DRVSuccess, DRVIdle, DRVTempOff, DRVTempStabilized, DRVTempNotReached:
		return nil
	}
	return DRVError(code)
}

// setImageFields maps PxINVALID codes from SetImage to the config field that
// produced them.  SetImage signature: hbin, vbin, hstart, hend, vstart, vend.
var setImageFields = map[uint]string{
	DRVP1Invalid: "Binning",
	DRVP2Invalid: "Binning",
	DRVP3Invalid: "AOI",
	DRVP4Invalid: "AOI",
	DRVP5Invalid: "AOI",
	DRVP6Invalid: "AOI",
}

// configError maps a code from programming one config field into the
// taxonomy: parameter-invalid codes become InvalidConfigurationError naming
// the field, anything else worse than benign is a DeviceError.
func configError(code uint, field string) error {
	if err := Error(code); err == nil {
		return nil
	}
	switch code {
	case DRVP1Invalid, DRVP2Invalid, DRVP3Invalid, DRVP4Invalid,
		DRVP5Invalid, DRVP6Invalid, DRVP7Invalid,
		DRVInvalidMode, DRVInvalidTrigger, DRVBinningError, DRVNotSupported:
		return &camera.InvalidConfigurationError{Field: field, Reason: DRVError(code).Error()}
	}
	return &camera.DeviceError{Op: "configure " + field, Cause: DRVError(code)}
}

// setImageError is configError specialized to SetImage, whose PxINVALID
// codes identify the offending argument position
func setImageError(code uint) error {
	if err := Error(code); err == nil {
		return nil
	}
	if f, ok := setImageFields[code]; ok {
		return &camera.InvalidConfigurationError{Field: f, Reason: DRVError(code).Error()}
	}
	return configError(code, "AOI")
}

// fatal returns true if the code is terminal for the session
func fatal(code uint) bool {
	switch code {
	case DRVErrorAck, DRVAcqBuffer, DRVAcqDownfifoFull, DRVSpoolError,
		DRVUsbError, DRVUsbInterruptError, DRVNotInitialized, DRVErrorNoCamera:
		return true
	}
	return false
}
