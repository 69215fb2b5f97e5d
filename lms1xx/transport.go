package lms1xx

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"go.bug.st/serial"
)

// writeDeadliner is implemented by transports supporting write deadlines,
// such as net.Conn.
type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// dial opens the transport selected by cfg.
func dial(ctx context.Context, cfg *ConnectionConfig) (io.ReadWriteCloser, error) {
	switch {
	case cfg.dial != nil:
		return cfg.dial(ctx)
	case cfg.serialPort != "":
		return openSerial(cfg)
	default:
		return dialTCP(ctx, cfg)
	}
}

func dialTCP(ctx context.Context, cfg *ConnectionConfig) (io.ReadWriteCloser, error) {
	dialer := &net.Dialer{KeepAlive: 30 * time.Second}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.connectTimeout)
	defer cancel()

	conn, err := dialer.DialContext(dialCtx, "tcp", cfg.Addr())
	if err != nil {
		return nil, fmt.Errorf("lms1xx: dial %s: %w", cfg.Addr(), err)
	}

	return conn, nil
}

// openSerial opens the serial transport, 8N1 at the configured baud rate.
// Reads block without timeout; the telegram reader bounds them.
func openSerial(cfg *ConnectionConfig) (io.ReadWriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: cfg.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.serialPort, mode)
	if err != nil {
		return nil, fmt.Errorf("lms1xx: open serial port %s: %w", cfg.serialPort, err)
	}

	if err := port.ResetInputBuffer(); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("lms1xx: reset serial input %s: %w", cfg.serialPort, err)
	}

	return port, nil
}
