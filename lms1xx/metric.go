package lms1xx

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// ConnectionMetrics contains atomic metrics for a Device.
// Metrics can be read from any goroutine, e.g. by a prometheus CounterFunc.
type ConnectionMetrics struct {
	// TelegramSendCount indicates the number of telegrams written.
	TelegramSendCount atomic.Uint64
	// TelegramRecvCount indicates the number of complete telegrams read.
	TelegramRecvCount atomic.Uint64
	// InvalidTelegramCount indicates the number of garbled or undecodable
	// answers, including device error answers.
	InvalidTelegramCount atomic.Uint64
	// TimeoutCount indicates the number of reads that missed their deadline.
	TimeoutCount atomic.Uint64
	// ScanCount indicates the number of scan data telegrams decoded.
	ScanCount atomic.Uint64
	// ConnectCount indicates the number of successful connects.
	ConnectCount atomic.Uint32

	commands *xsync.MapOf[string, *xsync.Counter]
}

func newConnectionMetrics() *ConnectionMetrics {
	return &ConnectionMetrics{
		commands: xsync.NewMapOf[string, *xsync.Counter](),
	}
}

// CommandCount returns the number of exchanges issued for a command keyword,
// e.g. "STlms".
func (m *ConnectionMetrics) CommandCount(command string) int64 {
	c, ok := m.commands.Load(command)
	if !ok {
		return 0
	}

	return c.Value()
}

// CommandCounts returns a snapshot of every command counter.
func (m *ConnectionMetrics) CommandCounts() map[string]int64 {
	out := make(map[string]int64, m.commands.Size())
	m.commands.Range(func(command string, c *xsync.Counter) bool {
		out[command] = c.Value()
		return true
	})

	return out
}

func (m *ConnectionMetrics) incCommandCount(command string) {
	c, _ := m.commands.LoadOrCompute(command, xsync.NewCounter)
	c.Inc()
}

func (m *ConnectionMetrics) incTelegramSendCount() {
	m.TelegramSendCount.Add(1)
}

func (m *ConnectionMetrics) incTelegramRecvCount() {
	m.TelegramRecvCount.Add(1)
}

func (m *ConnectionMetrics) incInvalidTelegramCount() {
	m.InvalidTelegramCount.Add(1)
}

func (m *ConnectionMetrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}

func (m *ConnectionMetrics) incScanCount() {
	m.ScanCount.Add(1)
}

func (m *ConnectionMetrics) incConnectCount() {
	m.ConnectCount.Add(1)
}
