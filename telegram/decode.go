package telegram

import (
	"errors"
	"fmt"
	"strconv"
)

// DecodeStatus decodes an STlms answer. Any decimal status code outside the
// known range maps to StatusUndefined rather than an error, however wide or
// negative. Only a missing or non-numeric code is malformed.
func DecodeStatus(raw []byte) (DeviceStatus, error) {
	_, c, err := statusResponse.decode(raw)
	if err != nil {
		return StatusUndefined, err
	}

	tok, err := c.next(statusCodeField)
	if err != nil {
		return StatusUndefined, err
	}

	code, err := strconv.ParseInt(string(tok), 10, 64)
	switch {
	case errors.Is(err, strconv.ErrRange):
		return StatusUndefined, nil
	case err != nil:
		return StatusUndefined, fmt.Errorf("%w: %s: token %d: %q is not a decimal status code",
			ErrMalformedTelegram, CmdStatus, c.index-1, tok)
	}

	return DeviceStatusFromCode(code), nil
}

// DecodeScanConfiguration decodes an LMPscancfg answer.
func DecodeScanConfiguration(raw []byte) (ScanConfiguration, error) {
	values, err := scanConfigResponse.Decode(raw)
	if err != nil {
		return ScanConfiguration{}, err
	}

	// Values are bounded by their field widths.
	return ScanConfiguration{
		ScanningFrequency: uint32(values["frequency"]),  //nolint:gosec
		AngleResolution:   uint32(values["resolution"]), //nolint:gosec
		StartAngle:        int32(values["start_angle"]), //nolint:gosec
		StopAngle:         int32(values["stop_angle"]),  //nolint:gosec
	}, nil
}

// DecodeScanOutputRange decodes an LMPoutputRange answer.
func DecodeScanOutputRange(raw []byte) (ScanOutputRange, error) {
	values, err := outputRangeResponse.Decode(raw)
	if err != nil {
		return ScanOutputRange{}, err
	}

	// Values are bounded by their field widths.
	return ScanOutputRange{
		AngleResolution: uint32(values["resolution"]), //nolint:gosec
		StartAngle:      int32(values["start_angle"]), //nolint:gosec
		StopAngle:       int32(values["stop_angle"]),  //nolint:gosec
	}, nil
}

// DecodeAccessMode decodes a SetAccessMode answer. It returns ErrAccessDenied
// when the device refuses the login.
func DecodeAccessMode(raw []byte) error {
	values, err := loginResponse.Decode(raw)
	if err != nil {
		return err
	}

	if values["result"] != 1 {
		return ErrAccessDenied
	}

	return nil
}

// DecodeSetScanConfig decodes an mLMPsetscancfg answer. A non-zero status code
// is returned as *ScanConfigError.
func DecodeSetScanConfig(raw []byte) error {
	values, err := setScanConfigResponse.Decode(raw)
	if err != nil {
		return err
	}

	if code := values["status_code"]; code != 0 {
		return &ScanConfigError{Code: int(code)}
	}

	return nil
}

// DecodeAck checks that raw answers the request req: the answer method must
// match the request method, e.g. sAN for sMN, and the command keyword must
// match. The answer payload beyond the command keyword is not interpreted.
func DecodeAck(raw []byte, req []byte) error {
	method, command, err := requestHead(req)
	if err != nil {
		return err
	}

	answer, ok := AnswerMethod(method)
	if !ok {
		return fmt.Errorf("%w: %q is not a request method", ErrInvalidToken, method)
	}

	schema := Schema{Name: command, Fields: []Field{KeywordField(answer), KeywordField(command)}}
	_, err = schema.Decode(raw)

	return err
}
