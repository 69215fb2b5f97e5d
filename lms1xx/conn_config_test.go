package lms1xx

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/arloliu/go-lms1xx/logger"
	"github.com/arloliu/go-lms1xx/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnectionConfig_Defaults(t *testing.T) {
	cfg, err := NewConnectionConfig("192.168.0.1", DefaultPort)
	require.NoError(t, err)

	assert.Equal(t, "192.168.0.1", cfg.Host())
	assert.Equal(t, DefaultPort, cfg.Port())
	assert.Equal(t, "192.168.0.1:2111", cfg.Addr())
	assert.Empty(t, cfg.SerialPort())
	assert.Equal(t, DefaultBaudRate, cfg.BaudRate())
	assert.Equal(t, DefaultReadTimeout, cfg.ReadTimeout())
	assert.Equal(t, DefaultConnectTimeout, cfg.ConnectTimeout())
	assert.Equal(t, DefaultWriteTimeout, cfg.WriteTimeout())
	assert.Equal(t, DefaultMaxTelegramSize, cfg.MaxTelegramSize())
	assert.Equal(t, telegram.Hex, cfg.EightBitSampleBase())
	assert.NotNil(t, cfg.GetLogger())

	level, hash := cfg.AccessMode()
	assert.Equal(t, telegram.DefaultUserLevel, level)
	assert.Equal(t, telegram.DefaultPasswordHash, hash)
}

func TestNewConnectionConfig_IPv6Addr(t *testing.T) {
	cfg, err := NewConnectionConfig("::1", 2112)
	require.NoError(t, err)
	assert.Equal(t, "[::1]:2112", cfg.Addr())
}

func TestNewConnectionConfig_Options(t *testing.T) {
	l := logger.NewMockLogger()
	dial := func(context.Context) (io.ReadWriteCloser, error) { return nil, io.EOF }

	cfg, err := NewConnectionConfig("127.0.0.1", DefaultPort,
		WithReadTimeout(500*time.Millisecond),
		WithConnectTimeout(time.Second),
		WithWriteTimeout(2*time.Second),
		WithMaxTelegramSize(4096),
		WithEightBitSampleBase(telegram.Decimal),
		WithAccessMode(0x02, 0xB21ACE26),
		WithDialFunc(dial),
		WithLogger(l),
	)
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.ReadTimeout())
	assert.Equal(t, time.Second, cfg.ConnectTimeout())
	assert.Equal(t, 2*time.Second, cfg.WriteTimeout())
	assert.Equal(t, 4096, cfg.MaxTelegramSize())
	assert.Equal(t, telegram.Decimal, cfg.EightBitSampleBase())
	assert.Same(t, l, cfg.GetLogger())

	level, hash := cfg.AccessMode()
	assert.Equal(t, uint8(0x02), level)
	assert.Equal(t, uint32(0xB21ACE26), hash)
}

func TestNewConnectionConfig_Serial(t *testing.T) {
	cfg, err := NewConnectionConfig("", 0, WithSerialPort("/dev/ttyUSB0", 0))
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", cfg.SerialPort())
	assert.Equal(t, "/dev/ttyUSB0", cfg.Addr())
	assert.Equal(t, DefaultBaudRate, cfg.BaudRate())

	cfg, err = NewConnectionConfig("", 0, WithSerialPort("COM3", 57600))
	require.NoError(t, err)
	assert.Equal(t, 57600, cfg.BaudRate())
}

func TestNewConnectionConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		host string
		port int
		opts []ConnOption
	}{
		{"empty host", "", DefaultPort, nil},
		{"port too large", "127.0.0.1", 65536, nil},
		{"negative port", "127.0.0.1", -1, nil},
		{"read timeout too short", "127.0.0.1", DefaultPort, []ConnOption{WithReadTimeout(0)}},
		{"read timeout too long", "127.0.0.1", DefaultPort, []ConnOption{WithReadTimeout(time.Hour)}},
		{"connect timeout", "127.0.0.1", DefaultPort, []ConnOption{WithConnectTimeout(0)}},
		{"write timeout", "127.0.0.1", DefaultPort, []ConnOption{WithWriteTimeout(-time.Second)}},
		{"telegram size too small", "127.0.0.1", DefaultPort, []ConnOption{WithMaxTelegramSize(MinTelegramSize - 1)}},
		{"telegram size too large", "127.0.0.1", DefaultPort, []ConnOption{WithMaxTelegramSize(MaxTelegramSize + 1)}},
		{"sample base", "127.0.0.1", DefaultPort, []ConnOption{WithEightBitSampleBase(telegram.Base(8))}},
		{"serial name", "", 0, []ConnOption{WithSerialPort("", 9600)}},
		{"negative baud", "", 0, []ConnOption{WithSerialPort("/dev/ttyS0", -1)}},
		{"nil dial", "", 0, []ConnOption{WithDialFunc(nil)}},
		{"nil logger", "127.0.0.1", DefaultPort, []ConnOption{WithLogger(nil)}},
		{"unresolvable host", "host.invalid", DefaultPort, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewConnectionConfig(tt.host, tt.port, tt.opts...)
			require.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}
