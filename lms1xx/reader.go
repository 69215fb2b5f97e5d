package lms1xx

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/arloliu/go-lms1xx/internal/pool"
	"github.com/arloliu/go-lms1xx/telegram"
)

// readState is the state of one telegramReader call.
type readState uint8

const (
	readIdle readState = iota
	readAwaitingDelimiter
	readDelivered
	readTimedOut
	readGarbled
)

func (s readState) String() string {
	switch s {
	case readIdle:
		return "Idle"
	case readAwaitingDelimiter:
		return "AwaitingDelimiter"
	case readDelivered:
		return "Delivered"
	case readTimedOut:
		return "TimedOut"
	case readGarbled:
		return "Garbled"
	default:
		return "Unknown"
	}
}

// errTelegramTooLarge is wrapped into ErrInvalidTelegram.
var errTelegramTooLarge = errors.New("telegram too large")

type readResult struct {
	telegram []byte
	err      error
}

// telegramReader reads delimiter-terminated telegrams from one connection.
//
// Each read runs the delimiter search in a goroutine and races it against a
// deadline timer and the caller's context. When the deadline or context wins,
// the caller must close the underlying connection so the pending read returns;
// the reader is bound to that connection and is discarded with it.
//
// This type is NOT goroutine-safe.
type telegramReader struct {
	src     *bufio.Reader
	maxSize int
	buf     []byte
	results chan readResult
	state   readState
}

func newTelegramReader(r io.Reader, maxSize int) *telegramReader {
	return &telegramReader{
		src:     bufio.NewReaderSize(r, 4096),
		maxSize: maxSize,
		results: make(chan readResult, 1),
	}
}

// read returns the next telegram, including both delimiters.
//
// The returned slice is only valid until the next call. A telegram whose first
// byte is not the frame start fails with ErrInvalidTelegram; a deadline expiry
// fails with ErrTimeout; a cancelled ctx fails with ctx.Err(); a failing
// connection fails with an error wrapping ErrConnClosed. After any of the last
// three the reader must not be used again.
func (r *telegramReader) read(ctx context.Context, timeout time.Duration) ([]byte, error) {
	r.state = readAwaitingDelimiter

	go func() {
		r.results <- r.readTelegram()
	}()

	timer := pool.AcquireTimer(timeout)
	defer pool.ReleaseTimer(timer)

	select {
	case res := <-r.results:
		return r.deliver(res)

	case <-timer.C:
		r.state = readTimedOut
		return nil, fmt.Errorf("%w: no frame end within %v", ErrTimeout, timeout)

	case <-ctx.Done():
		r.state = readTimedOut
		return nil, ctx.Err()
	}
}

func (r *telegramReader) deliver(res readResult) ([]byte, error) {
	if res.err != nil {
		if errors.Is(res.err, errTelegramTooLarge) {
			r.state = readGarbled
			return nil, fmt.Errorf("%w: %w", ErrInvalidTelegram, res.err)
		}

		r.state = readIdle
		return nil, fmt.Errorf("%w: %w", ErrConnClosed, res.err)
	}

	if res.telegram[0] != telegram.FrameStart {
		r.state = readGarbled
		return nil, fmt.Errorf("%w: first byte 0x%02X is not frame start", ErrInvalidTelegram, res.telegram[0])
	}

	r.state = readDelivered

	return res.telegram, nil
}

// readTelegram blocks until a frame end byte arrives. The receive buffer is
// reset first. An oversized telegram is consumed up to its frame end and
// reported as errTelegramTooLarge, keeping the stream aligned.
func (r *telegramReader) readTelegram() readResult {
	r.buf = r.buf[:0]
	oversized := false

	for {
		chunk, err := r.src.ReadSlice(telegram.FrameEnd)

		if !oversized {
			if len(r.buf)+len(chunk) > r.maxSize {
				oversized = true
				r.buf = r.buf[:0]
			} else {
				r.buf = append(r.buf, chunk...)
			}
		}

		switch {
		case err == nil && oversized:
			return readResult{err: fmt.Errorf("%w: exceeds %d bytes", errTelegramTooLarge, r.maxSize)}

		case err == nil:
			return readResult{telegram: r.buf}

		case errors.Is(err, bufio.ErrBufferFull):
			continue

		default:
			return readResult{err: err}
		}
	}
}
