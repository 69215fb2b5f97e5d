package telegram

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTelegram indicates a framing or field decode failure on a single
	// exchange. It is recoverable, the caller may retry the same request.
	ErrInvalidTelegram = errors.New("telegram: invalid telegram")

	// ErrMalformedTelegram indicates a missing or non-numeric token where a number
	// is expected, a declared count exceeding the remaining tokens, or a count
	// exceeding a fixed capacity. It matches ErrInvalidTelegram.
	ErrMalformedTelegram = fmt.Errorf("%w: malformed", ErrInvalidTelegram)
)

var (
	// ErrFieldOverflow indicates that a numeric value cannot be represented in the
	// wire width of its field.
	ErrFieldOverflow = errors.New("telegram: value does not fit field width")

	// ErrInvalidToken indicates that a token cannot be placed in a telegram, either
	// because it is empty, contains a separator or frame delimiter, or its field
	// role cannot be built.
	ErrInvalidToken = errors.New("telegram: invalid token")

	// ErrMissingValue indicates that a schema value field has no value to build from.
	ErrMissingValue = errors.New("telegram: missing field value")
)

// deviceErrorNames maps the SOPAS error codes carried by an sFA telegram.
var deviceErrorNames = map[int]string{
	1:  "method access denied",
	2:  "unknown method index",
	3:  "unknown variable index",
	4:  "local condition failed",
	5:  "invalid data",
	6:  "unknown error",
	7:  "buffer overflow",
	8:  "buffer underflow",
	9:  "unknown type",
	10: "variable write access denied",
	11: "unknown command for nameserver",
	12: "unknown CoLa command",
	13: "method server busy",
	14: "flex out of bounds",
	15: "unknown event",
	16: "CoLa value underflow",
	17: "invalid CoLa-A character",
	18: "no OSAI message",
	19: "no OSAI answer message",
	20: "internal error",
	21: "hub address corrupted",
	22: "hub address decoding",
	23: "hub address exceeded",
	24: "hub address blank expected",
	25: "asynchronous methods suppressed",
	26: "complex arrays not supported",
}

// DeviceError is returned when the device answers a request with an sFA error
// telegram. It matches ErrInvalidTelegram, the exchange failed but the link is
// healthy.
type DeviceError struct {
	Code int
}

func (e *DeviceError) Error() string {
	if name, ok := deviceErrorNames[e.Code]; ok {
		return fmt.Sprintf("telegram: device error %d (%s)", e.Code, name)
	}

	return fmt.Sprintf("telegram: device error %d", e.Code)
}

func (e *DeviceError) Unwrap() error {
	return ErrInvalidTelegram
}

// malformed builds an ErrMalformedTelegram with context.
func malformed(kind string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedTelegram, kind, fmt.Sprintf(format, args...))
}
