package lms1xx

import (
	"bufio"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/arloliu/go-lms1xx/internal/simulator"
	"github.com/arloliu/go-lms1xx/logger"
	"github.com/arloliu/go-lms1xx/telegram"
	"github.com/stretchr/testify/require"
)

const testTimeout = 2 * time.Second

func quietLogger() logger.Logger {
	return logger.NewSlogWriter(io.Discard, logger.ErrorLevel, false)
}

// newSimDevice starts a simulator and returns a connected device talking to it.
func newSimDevice(t *testing.T, simOpts []simulator.Option, opts ...ConnOption) (*Device, *simulator.Simulator) {
	t.Helper()

	sim, err := simulator.New(append([]simulator.Option{simulator.WithLogger(quietLogger())}, simOpts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sim.Close() })

	opts = append([]ConnOption{WithReadTimeout(testTimeout), WithLogger(quietLogger())}, opts...)
	cfg, err := NewConnectionConfig(sim.Host(), sim.Port(), opts...)
	require.NoError(t, err)

	dev, err := NewDevice(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dev.Disconnect() })

	require.NoError(t, dev.Connect(context.Background()))

	return dev, sim
}

// pipePeer is the device side of a net.Pipe transport.
type pipePeer struct {
	conn net.Conn
	r    *bufio.Reader
}

// newPipeDevice returns a connected device whose transport is a net.Pipe.
func newPipeDevice(t *testing.T, opts ...ConnOption) (*Device, *pipePeer) {
	t.Helper()

	client, server := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})

	dial := func(context.Context) (io.ReadWriteCloser, error) { return client, nil }
	opts = append([]ConnOption{WithDialFunc(dial), WithReadTimeout(testTimeout), WithLogger(quietLogger())}, opts...)

	cfg, err := NewConnectionConfig("", 0, opts...)
	require.NoError(t, err)

	dev, err := NewDevice(cfg)
	require.NoError(t, err)
	require.NoError(t, dev.Connect(context.Background()))

	return dev, &pipePeer{conn: server, r: bufio.NewReader(server)}
}

// serve reads one request in the background and answers with replies, each
// written as is. The returned channel yields the request payload.
func (p *pipePeer) serve(replies ...[]byte) <-chan string {
	reqs := make(chan string, 1)

	go func() {
		raw, err := p.r.ReadBytes(telegram.FrameEnd)
		if err != nil {
			close(reqs)
			return
		}

		payload, _ := telegram.Payload(raw)
		reqs <- string(payload)

		for _, reply := range replies {
			if _, err := p.conn.Write(reply); err != nil {
				return
			}
		}
	}()

	return reqs
}

func frame(payload string) []byte {
	return append(append([]byte{telegram.FrameStart}, payload...), telegram.FrameEnd)
}
