package lms1xx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/arloliu/go-lms1xx/logger"
	"github.com/arloliu/go-lms1xx/telegram"
)

// DefaultPort is the CoLa-A TCP port of the device.
const DefaultPort = 2111

// Default values.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultConnectTimeout  = 3 * time.Second
	DefaultWriteTimeout    = 3 * time.Second
	DefaultBaudRate        = 115200
	DefaultMaxTelegramSize = 256 * 1024
)

// Range limits.
const (
	MinReadTimeout = time.Millisecond
	MaxReadTimeout = 10 * time.Minute

	MinTelegramSize = 64
	MaxTelegramSize = 16 * 1024 * 1024
)

// DialFunc opens the byte stream to a device. It replaces the built-in TCP
// and serial transports.
type DialFunc func(ctx context.Context) (io.ReadWriteCloser, error)

// ConnectionConfig holds all configuration for a Device.
type ConnectionConfig struct {
	host string
	port int

	// serialPort selects the serial transport when non-empty.
	serialPort string
	baudRate   int

	readTimeout    time.Duration
	connectTimeout time.Duration
	writeTimeout   time.Duration

	maxTelegramSize int
	eightBitBase    telegram.Base

	userLevel    uint8
	passwordHash uint32

	dial DialFunc

	logger logger.Logger
}

// NewConnectionConfig creates a new device connection configuration.
//
// host is the device address and port its TCP port, usually DefaultPort.
// host may be empty when WithSerialPort or WithDialFunc is given.
// opts are functional options applied in order; see With* functions.
func NewConnectionConfig(host string, port int, opts ...ConnOption) (*ConnectionConfig, error) {
	cfg := &ConnectionConfig{
		baudRate:        DefaultBaudRate,
		readTimeout:     DefaultReadTimeout,
		connectTimeout:  DefaultConnectTimeout,
		writeTimeout:    DefaultWriteTimeout,
		maxTelegramSize: DefaultMaxTelegramSize,
		eightBitBase:    telegram.Hex,
		userLevel:       telegram.DefaultUserLevel,
		passwordHash:    telegram.DefaultPasswordHash,
		logger:          logger.GetLogger(),
	}

	if err := cfg.setPort(port); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	if host == "" && cfg.serialPort == "" && cfg.dial == nil {
		return nil, errors.New("lms1xx: host must not be empty")
	}

	if host != "" {
		if err := cfg.setHost(host); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (cfg *ConnectionConfig) setHost(host string) error {
	if ip := net.ParseIP(host); ip != nil {
		cfg.host = host
		return nil
	}

	host = strings.TrimSuffix(host, ".")
	if _, err := net.LookupHost(host); err == nil {
		cfg.host = host
		return nil
	}

	return fmt.Errorf("lms1xx: invalid host %q", host)
}

func (cfg *ConnectionConfig) setPort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("lms1xx: port %d out of range [0, 65535]", port)
	}
	cfg.port = port

	return nil
}

// --- Getters ---

// Host returns the configured host address.
func (cfg *ConnectionConfig) Host() string { return cfg.host }

// Port returns the configured TCP port.
func (cfg *ConnectionConfig) Port() int { return cfg.port }

// Addr returns "host:port", or the serial device name in serial mode.
func (cfg *ConnectionConfig) Addr() string {
	if cfg.serialPort != "" {
		return cfg.serialPort
	}

	return net.JoinHostPort(cfg.host, strconv.Itoa(cfg.port))
}

// SerialPort returns the serial device name, empty for TCP.
func (cfg *ConnectionConfig) SerialPort() string { return cfg.serialPort }

// BaudRate returns the serial baud rate.
func (cfg *ConnectionConfig) BaudRate() int { return cfg.baudRate }

// ReadTimeout returns the deadline for one telegram read.
func (cfg *ConnectionConfig) ReadTimeout() time.Duration { return cfg.readTimeout }

// ConnectTimeout returns the TCP dial timeout.
func (cfg *ConnectionConfig) ConnectTimeout() time.Duration { return cfg.connectTimeout }

// WriteTimeout returns the write deadline for one telegram.
func (cfg *ConnectionConfig) WriteTimeout() time.Duration { return cfg.writeTimeout }

// MaxTelegramSize returns the largest accepted telegram in bytes.
func (cfg *ConnectionConfig) MaxTelegramSize() int { return cfg.maxTelegramSize }

// EightBitSampleBase returns the numeric base used for 8-bit scan samples.
func (cfg *ConnectionConfig) EightBitSampleBase() telegram.Base { return cfg.eightBitBase }

// AccessMode returns the user level and password hash used by Login.
func (cfg *ConnectionConfig) AccessMode() (uint8, uint32) { return cfg.userLevel, cfg.passwordHash }

// GetLogger returns the configured logger.
func (cfg *ConnectionConfig) GetLogger() logger.Logger { return cfg.logger }

// --- ConnOption ---

// ConnOption is a functional option for configuring a ConnectionConfig.
type ConnOption interface {
	apply(*ConnectionConfig) error
}

type connOptFunc func(*ConnectionConfig) error

func (f connOptFunc) apply(cfg *ConnectionConfig) error { return f(cfg) }

// WithReadTimeout sets the deadline for reading one telegram. A read that
// misses it closes the connection.
func WithReadTimeout(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if d < MinReadTimeout || d > MaxReadTimeout {
			return fmt.Errorf("lms1xx: read timeout %v out of range [%v, %v]", d, MinReadTimeout, MaxReadTimeout)
		}
		cfg.readTimeout = d

		return nil
	})
}

// WithConnectTimeout sets the TCP dial timeout.
func WithConnectTimeout(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if d <= 0 {
			return errors.New("lms1xx: connect timeout must be positive")
		}
		cfg.connectTimeout = d

		return nil
	})
}

// WithWriteTimeout sets the write deadline for one telegram. It applies to
// transports supporting write deadlines.
func WithWriteTimeout(d time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if d <= 0 {
			return errors.New("lms1xx: write timeout must be positive")
		}
		cfg.writeTimeout = d

		return nil
	})
}

// WithSerialPort selects the serial transport on the named device, e.g.
// /dev/ttyUSB0, at the given baud rate. Zero selects DefaultBaudRate.
func WithSerialPort(name string, baud int) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if name == "" {
			return errors.New("lms1xx: serial port name must not be empty")
		}
		if baud < 0 {
			return fmt.Errorf("lms1xx: baud rate %d must not be negative", baud)
		}
		if baud == 0 {
			baud = DefaultBaudRate
		}
		cfg.serialPort = name
		cfg.baudRate = baud

		return nil
	})
}

// WithMaxTelegramSize bounds the size of one received telegram.
func WithMaxTelegramSize(n int) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if n < MinTelegramSize || n > MaxTelegramSize {
			return fmt.Errorf("lms1xx: max telegram size %d out of range [%d, %d]", n, MinTelegramSize, MaxTelegramSize)
		}
		cfg.maxTelegramSize = n

		return nil
	})
}

// WithEightBitSampleBase sets the numeric base of 8-bit scan samples.
// Hexadecimal is the default.
func WithEightBitSampleBase(base telegram.Base) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if base != telegram.Hex && base != telegram.Decimal {
			return fmt.Errorf("lms1xx: unsupported sample base %v", base)
		}
		cfg.eightBitBase = base

		return nil
	})
}

// WithAccessMode sets the user level and password hash used by Login.
func WithAccessMode(userLevel uint8, passwordHash uint32) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		cfg.userLevel = userLevel
		cfg.passwordHash = passwordHash

		return nil
	})
}

// WithDialFunc replaces the built-in transports.
func WithDialFunc(dial DialFunc) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if dial == nil {
			return errors.New("lms1xx: dial func must not be nil")
		}
		cfg.dial = dial

		return nil
	})
}

// WithLogger sets the logger for the device.
func WithLogger(l logger.Logger) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if l == nil {
			return errors.New("lms1xx: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
