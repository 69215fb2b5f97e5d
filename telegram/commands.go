package telegram

import (
	"bytes"
	"fmt"
)

// Command methods. A request uses the N form, the device answers with the
// matching A form, or with sFA on error. Events push sSN telegrams.
const (
	methodRead        = "sRN"
	methodWrite       = "sWN"
	methodInvoke      = "sMN"
	methodEvent       = "sEN"
	methodError       = "sFA"
	methodReadAnswer  = "sRA"
	methodWriteAnswer = "sWA"
	methodEventAnswer = "sEA"
	methodAnswer      = "sAN"
	methodEventData   = "sSN"
)

// Command keywords.
const (
	CmdSetAccessMode   = "SetAccessMode"
	CmdStartMeasure    = "LMCstartmeas"
	CmdStopMeasure     = "LMCstopmeas"
	CmdStatus          = "STlms"
	CmdScanConfig      = "LMPscancfg"
	CmdSetScanConfig   = "mLMPsetscancfg"
	CmdScanDataConfig  = "LMDscandatacfg"
	CmdOutputRange     = "LMPoutputRange"
	CmdScanData        = "LMDscandata"
	CmdSaveConfig      = "mEEwriteall"
	CmdRun             = "Run"
	defaultSectorCount = "1"
)

// Authorized client login used by the reference driver.
const (
	DefaultUserLevel    uint8  = 0x03
	DefaultPasswordHash uint32 = 0xF4724744
)

var errorCodeField = HexField("error_code", 8)

var statusCodeField = SkipField("status")

// methodField accepts any method. It is used where more than one answer
// method is valid, such as scan data, which arrives polled or as an event.
var methodField = SkipField("method")

// Angle and frequency fields shared by configuration telegrams.
var (
	frequencyField  = HexField("frequency", 32)
	resolutionField = HexField("resolution", 32)
	startAngleField = SignedHexField("start_angle", 32)
	stopAngleField  = SignedHexField("stop_angle", 32)
)

var (
	loginRequest = Schema{Name: CmdSetAccessMode, Fields: []Field{
		KeywordField(methodInvoke),
		KeywordField(CmdSetAccessMode),
		{Name: "user_level", Role: RoleValue, Base: Hex, Bits: 8, Digits: 2},
		{Name: "password", Role: RoleValue, Base: Hex, Bits: 32, Digits: 8},
	}}

	loginResponse = Schema{Name: CmdSetAccessMode, Fields: []Field{
		KeywordField(methodAnswer),
		KeywordField(CmdSetAccessMode),
		DecField("result", 8),
	}}

	// The status code itself is parsed by DecodeStatus, which maps any
	// out-of-range number instead of failing.
	statusResponse = Schema{Name: CmdStatus, Fields: []Field{
		KeywordField(methodReadAnswer),
		KeywordField(CmdStatus),
	}}

	setScanConfigRequest = Schema{Name: CmdSetScanConfig, Fields: []Field{
		KeywordField(methodInvoke),
		KeywordField(CmdSetScanConfig),
		frequencyField,
		KeywordField("+" + defaultSectorCount),
		resolutionField,
		startAngleField,
		stopAngleField,
	}}

	setScanConfigResponse = Schema{Name: CmdSetScanConfig, Fields: []Field{
		KeywordField(methodAnswer),
		KeywordField(CmdSetScanConfig),
		HexField("status_code", 8),
	}}

	scanConfigResponse = Schema{Name: CmdScanConfig, Fields: []Field{
		KeywordField(methodReadAnswer),
		KeywordField(CmdScanConfig),
		frequencyField,
		SkipField("sector_count"),
		resolutionField,
		startAngleField,
		stopAngleField,
	}}

	scanDataConfigRequest = Schema{Name: CmdScanDataConfig, Fields: []Field{
		KeywordField(methodWrite),
		KeywordField(CmdScanDataConfig),
		{Name: "output_channel", Role: RoleValue, Base: Hex, Bits: 8, Digits: 2},
		KeywordField("00"),
		FlagField("remission"),
		FlagField("resolution"),
		KeywordField("0"),
		{Name: "encoder", Role: RoleValue, Base: Hex, Bits: 8, Digits: 2},
		KeywordField("00"),
		FlagField("position"),
		FlagField("device_name"),
		KeywordField("0"),
		FlagField("timestamp"),
		{Name: "output_interval", Role: RoleValue, Base: Decimal, Bits: 16, Plus: true},
	}}

	outputRangeResponse = Schema{Name: CmdOutputRange, Fields: []Field{
		KeywordField(methodReadAnswer),
		KeywordField(CmdOutputRange),
		SkipField("sector_count"),
		resolutionField,
		startAngleField,
		stopAngleField,
	}}

	setOutputRangeRequest = Schema{Name: CmdOutputRange, Fields: []Field{
		KeywordField(methodWrite),
		KeywordField(CmdOutputRange),
		KeywordField(defaultSectorCount),
		resolutionField,
		startAngleField,
		stopAngleField,
	}}

	continuousScanRequest = Schema{Name: CmdScanData, Fields: []Field{
		KeywordField(methodEvent),
		KeywordField(CmdScanData),
		FlagField("enable"),
	}}
)

var answerMethods = map[string]string{
	methodRead:   methodReadAnswer,
	methodWrite:  methodWriteAnswer,
	methodInvoke: methodAnswer,
	methodEvent:  methodEventAnswer,
}

// AnswerMethod returns the method keyword a device uses to answer a request
// method, e.g. sRA for sRN.
func AnswerMethod(method string) (string, bool) {
	answer, ok := answerMethods[method]

	return answer, ok
}

// IsEvent reports whether raw is an event telegram pushed by the device, such
// as a streamed scan, rather than an answer to a request.
func IsEvent(raw []byte) bool {
	payload, err := Payload(raw)
	if err != nil {
		return false
	}

	return bytes.HasPrefix(payload, []byte(methodEventData+" "))
}

// requestHead returns the method and command keywords of a framed request.
func requestHead(req []byte) (method string, command string, err error) {
	payload, err := Payload(req)
	if err != nil {
		return "", "", err
	}

	tokens := bytes.SplitN(payload, []byte{Separator}, 3)
	if len(tokens) < 2 {
		return "", "", fmt.Errorf("%w: request %q has no command keyword", ErrInvalidToken, payload)
	}

	return string(tokens[0]), string(tokens[1]), nil
}

func simpleRequest(method, command string) ([]byte, error) {
	return Build(Keyword(method), Keyword(command))
}

// LoginRequest builds SetAccessMode with the given user level and password hash.
func LoginRequest(userLevel uint8, passwordHash uint32) ([]byte, error) {
	return loginRequest.Build(Values{
		"user_level": int64(userLevel),
		"password":   int64(passwordHash),
	})
}

// StartMeasurementRequest builds LMCstartmeas.
func StartMeasurementRequest() ([]byte, error) {
	return simpleRequest(methodInvoke, CmdStartMeasure)
}

// StopMeasurementRequest builds LMCstopmeas.
func StopMeasurementRequest() ([]byte, error) {
	return simpleRequest(methodInvoke, CmdStopMeasure)
}

// StatusRequest builds the STlms query.
func StatusRequest() ([]byte, error) {
	return simpleRequest(methodRead, CmdStatus)
}

// ScanConfigRequest builds the LMPscancfg query.
func ScanConfigRequest() ([]byte, error) {
	return simpleRequest(methodRead, CmdScanConfig)
}

// SetScanConfigRequest builds mLMPsetscancfg.
func SetScanConfigRequest(cfg ScanConfiguration) ([]byte, error) {
	return setScanConfigRequest.Build(Values{
		"frequency":   int64(cfg.ScanningFrequency),
		"resolution":  int64(cfg.AngleResolution),
		"start_angle": int64(cfg.StartAngle),
		"stop_angle":  int64(cfg.StopAngle),
	})
}

// SetScanDataConfigRequest builds LMDscandatacfg.
func SetScanDataConfigRequest(cfg ScanDataConfiguration) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return scanDataConfigRequest.Build(Values{
		"output_channel":  int64(cfg.OutputChannel),
		"remission":       boolToInt(cfg.Remission),
		"resolution":      int64(cfg.Resolution),
		"encoder":         int64(cfg.Encoder),
		"position":        boolToInt(cfg.Position),
		"device_name":     boolToInt(cfg.DeviceName),
		"timestamp":       boolToInt(cfg.Timestamp),
		"output_interval": int64(cfg.OutputInterval),
	})
}

// ScanOutputRangeRequest builds the LMPoutputRange query.
func ScanOutputRangeRequest() ([]byte, error) {
	return simpleRequest(methodRead, CmdOutputRange)
}

// SetScanOutputRangeRequest writes LMPoutputRange for the single output sector.
func SetScanOutputRangeRequest(r ScanOutputRange) ([]byte, error) {
	return setOutputRangeRequest.Build(Values{
		"resolution":  int64(r.AngleResolution),
		"start_angle": int64(r.StartAngle),
		"stop_angle":  int64(r.StopAngle),
	})
}

// ScanDataRequest polls a single scan.
func ScanDataRequest() ([]byte, error) {
	return simpleRequest(methodRead, CmdScanData)
}

// ContinuousScanRequest starts or stops the scan data event stream.
func ContinuousScanRequest(enable bool) ([]byte, error) {
	return continuousScanRequest.Build(Values{"enable": boolToInt(enable)})
}

// SaveConfigRequest builds mEEwriteall.
func SaveConfigRequest() ([]byte, error) {
	return simpleRequest(methodInvoke, CmdSaveConfig)
}

// RunRequest builds Run, returning the device to measurement mode.
func RunRequest() ([]byte, error) {
	return simpleRequest(methodInvoke, CmdRun)
}
