package telegram

import (
	"errors"
	"fmt"
)

// ScanConfiguration is the scan frequency and angular range of the device.
type ScanConfiguration struct {
	// ScanningFrequency in 1/100 Hz.
	ScanningFrequency uint32
	// AngleResolution in 1/10000 degree.
	AngleResolution uint32
	// StartAngle in 1/10000 degree.
	StartAngle int32
	// StopAngle in 1/10000 degree.
	StopAngle int32
}

// ScanOutputRange is the angular range output in scan data telegrams.
type ScanOutputRange struct {
	// AngleResolution in 1/10000 degree.
	AngleResolution uint32
	// StartAngle in 1/10000 degree.
	StartAngle int32
	// StopAngle in 1/10000 degree.
	StopAngle int32
}

// SampleResolution selects the remission sample width.
type SampleResolution uint8

const (
	Resolution8Bit  SampleResolution = 0
	Resolution16Bit SampleResolution = 1
)

func (r SampleResolution) String() string {
	switch r {
	case Resolution8Bit:
		return "8-bit"
	case Resolution16Bit:
		return "16-bit"
	default:
		return fmt.Sprintf("SampleResolution(%d)", uint8(r))
	}
}

// Output interval limits of ScanDataConfiguration.
const (
	MinOutputInterval = 1
	MaxOutputInterval = 50000
)

// ScanDataConfiguration selects the content of scan data telegrams. It is only
// used to build outbound telegrams.
type ScanDataConfiguration struct {
	// OutputChannel is a bit mask of the echo channels to output.
	OutputChannel uint8
	// Remission enables remission (RSSI) values.
	Remission bool
	// Resolution of the remission values.
	Resolution SampleResolution
	// Encoder is a bit mask of the encoder channels to output.
	Encoder uint8
	// Position enables position values.
	Position bool
	// DeviceName enables the device name.
	DeviceName bool
	// Timestamp enables the time stamp.
	Timestamp bool
	// OutputInterval outputs every n-th scan, 1 to 50000.
	OutputInterval uint16
}

// Validate checks field ranges that the wire width alone does not bound.
func (c ScanDataConfiguration) Validate() error {
	if c.OutputInterval < MinOutputInterval || c.OutputInterval > MaxOutputInterval {
		return fmt.Errorf("%w: output interval %d not in [%d, %d]",
			ErrFieldOverflow, c.OutputInterval, MinOutputInterval, MaxOutputInterval)
	}

	if c.Resolution != Resolution8Bit && c.Resolution != Resolution16Bit {
		return fmt.Errorf("%w: invalid sample resolution %d", ErrFieldOverflow, c.Resolution)
	}

	return nil
}

// DeviceStatus is the state reported by the STlms query.
type DeviceStatus int

const (
	StatusUndefined DeviceStatus = iota
	StatusInitialisation
	StatusConfiguration
	StatusIdle
	StatusRotated
	StatusInPreparation
	StatusReady
	StatusReadyForMeasurement
)

var deviceStatusNames = [...]string{
	"undefined",
	"initialisation",
	"configuration",
	"idle",
	"rotated",
	"in_preparation",
	"ready",
	"ready_for_measurement",
}

// DeviceStatusFromCode maps a wire status code; unknown codes map to
// StatusUndefined.
func DeviceStatusFromCode(code int64) DeviceStatus {
	if code < 0 || code > int64(StatusReadyForMeasurement) {
		return StatusUndefined
	}

	return DeviceStatus(code)
}

func (s DeviceStatus) String() string {
	if s < 0 || int(s) >= len(deviceStatusNames) {
		return deviceStatusNames[StatusUndefined]
	}

	return deviceStatusNames[s]
}

// ScanConfigError is returned when the device rejects a scan configuration.
type ScanConfigError struct {
	Code int
}

var scanConfigErrorNames = map[int]string{
	1: "frequency error",
	2: "resolution error",
	3: "resolution and scan area error",
	4: "scan area error",
	5: "other error",
}

func (e *ScanConfigError) Error() string {
	if name, ok := scanConfigErrorNames[e.Code]; ok {
		return fmt.Sprintf("telegram: scan configuration rejected: %s", name)
	}

	return fmt.Sprintf("telegram: scan configuration rejected: code %d", e.Code)
}

// ErrAccessDenied is returned when SetAccessMode is answered with 0.
var ErrAccessDenied = errors.New("telegram: access mode denied")
