package lms1xx

import (
	"errors"

	"github.com/arloliu/go-lms1xx/telegram"
)

var (
	// ErrTimeout indicates that no complete telegram arrived within the read
	// timeout. The connection has been closed; the caller must reconnect.
	ErrTimeout = errors.New("lms1xx: read timeout")

	// ErrNotConnected is returned by operations issued while disconnected.
	ErrNotConnected = errors.New("lms1xx: not connected")

	// ErrConnClosed indicates that the link failed during an exchange. The
	// connection has been closed.
	ErrConnClosed = errors.New("lms1xx: connection closed")
)

// Protocol errors re-exported from package telegram.
var (
	// ErrInvalidTelegram indicates a garbled, partial or undecodable answer.
	// The connection stays open and the request may be retried.
	ErrInvalidTelegram = telegram.ErrInvalidTelegram

	// ErrAccessDenied is returned by Login when the device refuses the
	// password.
	ErrAccessDenied = telegram.ErrAccessDenied
)

// IsRecoverable reports whether err is a per-exchange protocol failure that
// left the connection usable.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrInvalidTelegram)
}
