// Package simulator provides an in-process LMS1xx device speaking the CoLa-A
// telegram protocol over TCP, for tests and demos.
package simulator

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-lms1xx/logger"
	"github.com/arloliu/go-lms1xx/telegram"
	"github.com/puzpuzpuz/xsync/v3"
)

// Mode selects how the simulator answers requests.
type Mode uint32

const (
	// ModeNormal answers every request.
	ModeNormal Mode = iota
	// ModeSilent never answers.
	ModeSilent
	// ModePartial sends answers without the frame end.
	ModePartial
	// ModeGarbled sends answers without the frame start.
	ModeGarbled
	// ModeDeviceError answers every request with sFA.
	ModeDeviceError
	// ModeHangUp closes the connection on the next request.
	ModeHangUp
)

// Scan configuration values accepted by mLMPsetscancfg.
var (
	validFrequencies = map[int64]bool{2500: true, 5000: true}
	validResolutions = map[int64]bool{2500: true, 5000: true}
)

var errNotEnoughTokens = errors.New("simulator: not enough tokens")

// Option configures a Simulator.
type Option func(*Simulator)

// WithScan sets the scan sent for polled and streamed scan data.
func WithScan(scan Scan) Option {
	return func(s *Simulator) { s.scan = scan }
}

// WithStatus sets the initial device status.
func WithStatus(status telegram.DeviceStatus) Option {
	return func(s *Simulator) { s.status = status }
}

// WithPasswordHash sets the password hash accepted by SetAccessMode.
func WithPasswordHash(hash uint32) Option {
	return func(s *Simulator) { s.passwordHash = hash }
}

// WithStreamInterval sets the interval between streamed scans.
func WithStreamInterval(d time.Duration) Option {
	return func(s *Simulator) { s.streamInterval = d }
}

// WithLogger sets the simulator logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// Simulator is a fake LMS1xx device listening on a loopback TCP port.
type Simulator struct {
	listener net.Listener
	logger   logger.Logger
	mode     atomic.Uint32
	conns    *xsync.MapOf[net.Conn, struct{}]
	wg       sync.WaitGroup

	streamInterval time.Duration
	passwordHash   uint32

	mu          sync.Mutex
	status      telegram.DeviceStatus
	scanCfg     telegram.ScanConfiguration
	outputRange telegram.ScanOutputRange
	scan        Scan
	loggedIn    bool
	counter     uint32
	requests    []string
}

// New starts a simulator on 127.0.0.1 with a random port.
func New(opts ...Option) (*Simulator, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("simulator: listen: %w", err)
	}

	s := &Simulator{
		listener:       ln,
		logger:         logger.GetLogger(),
		conns:          xsync.NewMapOf[net.Conn, struct{}](),
		streamInterval: 40 * time.Millisecond,
		passwordHash:   telegram.DefaultPasswordHash,
		status:         telegram.StatusIdle,
		scanCfg: telegram.ScanConfiguration{
			ScanningFrequency: 5000,
			AngleResolution:   5000,
			StartAngle:        -450000,
			StopAngle:         2250000,
		},
		outputRange: telegram.ScanOutputRange{
			AngleResolution: 5000,
			StartAngle:      -450000,
			StopAngle:       2250000,
		},
		scan: DefaultScan(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.acceptLoop()

	return s, nil
}

// Host returns the listening IP address.
func (s *Simulator) Host() string {
	addr, _ := s.listener.Addr().(*net.TCPAddr)
	return addr.IP.String()
}

// Port returns the listening port.
func (s *Simulator) Port() int {
	addr, _ := s.listener.Addr().(*net.TCPAddr)
	return addr.Port
}

// SetMode changes how subsequent requests are answered.
func (s *Simulator) SetMode(m Mode) {
	s.mode.Store(uint32(m))
}

// SetStatus changes the reported device status.
func (s *Simulator) SetStatus(status telegram.DeviceStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status
}

// ScanConfiguration returns the stored scan configuration.
func (s *Simulator) ScanConfiguration() telegram.ScanConfiguration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.scanCfg
}

// Requests returns the payloads of every request received so far.
func (s *Simulator) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.requests...)
}

// Close stops the listener, closes every connection and waits for the
// handlers to exit.
func (s *Simulator) Close() error {
	err := s.listener.Close()

	s.conns.Range(func(c net.Conn, _ struct{}) bool {
		_ = c.Close()
		return true
	})
	s.wg.Wait()

	return err
}

func (s *Simulator) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.conns.Store(conn, struct{}{})
		s.wg.Add(1)
		go s.serve(conn)
	}
}

// session is the per-connection state.
type session struct {
	conn    net.Conn
	writeMu sync.Mutex
	stop    chan struct{}
}

func (s *Simulator) serve(conn net.Conn) {
	defer s.wg.Done()

	sess := &session{conn: conn}
	defer func() {
		sess.stopStream()
		s.conns.Delete(conn)
		_ = conn.Close()
	}()

	s.logger.Debug("simulator: client connected", "remote", conn.RemoteAddr().String())

	r := bufio.NewReader(conn)
	for {
		raw, err := r.ReadBytes(telegram.FrameEnd)
		if err != nil {
			return
		}

		if !s.handle(sess, raw) {
			return
		}
	}
}

// handle answers one request and reports whether to keep the connection.
func (s *Simulator) handle(sess *session, raw []byte) bool {
	payload, err := telegram.Payload(raw)
	if err != nil {
		s.logger.Debug("simulator: invalid request", "error", err)
		return true
	}

	s.mu.Lock()
	s.requests = append(s.requests, string(payload))
	s.mu.Unlock()

	mode := Mode(s.mode.Load())

	var answer []byte
	switch mode {
	case ModeSilent:
		return true
	case ModeHangUp:
		return false
	case ModeDeviceError:
		answer = frame("sFA 5")
	default:
		answer = s.answer(sess, strings.Split(string(payload), " "))
	}

	switch mode {
	case ModePartial:
		answer = answer[:len(answer)-1]
	case ModeGarbled:
		answer = answer[1:]
	}

	return sess.write(answer) == nil
}

func (s *Simulator) answer(sess *session, tokens []string) []byte {
	if len(tokens) < 2 {
		return frame("sFA 2")
	}

	method, command, args := tokens[0], tokens[1], tokens[2:]

	s.mu.Lock()
	defer s.mu.Unlock()

	switch method + " " + command {
	case "sMN " + telegram.CmdSetAccessMode:
		granted := len(args) == 2 && strings.EqualFold(args[1], fmt.Sprintf("%08X", s.passwordHash))
		s.loggedIn = granted

		return frame("sAN SetAccessMode " + boolDigit(granted))

	case "sMN " + telegram.CmdStartMeasure:
		s.status = telegram.StatusReadyForMeasurement
		return frame("sAN LMCstartmeas 0")

	case "sMN " + telegram.CmdStopMeasure:
		s.status = telegram.StatusIdle
		return frame("sAN LMCstopmeas 0")

	case "sRN " + telegram.CmdStatus:
		return frame(fmt.Sprintf("sRA STlms %d 0 8 16:28:26 8 24.03.2021 0 0 0", s.status))

	case "sRN " + telegram.CmdScanConfig:
		return frame(fmt.Sprintf("sRA LMPscancfg %X 1 %X %s %s",
			s.scanCfg.ScanningFrequency, s.scanCfg.AngleResolution,
			angle(s.scanCfg.StartAngle), angle(s.scanCfg.StopAngle)))

	case "sMN " + telegram.CmdSetScanConfig:
		return s.setScanConfig(args)

	case "sWN " + telegram.CmdScanDataConfig:
		if !s.loggedIn {
			return frame("sFA A")
		}
		return frame("sWA LMDscandatacfg")

	case "sRN " + telegram.CmdOutputRange:
		return frame(fmt.Sprintf("sRA LMPoutputRange 1 %X %s %s",
			s.outputRange.AngleResolution, angle(s.outputRange.StartAngle), angle(s.outputRange.StopAngle)))

	case "sWN " + telegram.CmdOutputRange:
		return s.setOutputRange(args)

	case "sRN " + telegram.CmdScanData:
		s.counter++
		raw, err := EncodeScan("sRA", s.counter, s.scan)
		if err != nil {
			return frame("sFA 14")
		}
		return raw

	case "sEN " + telegram.CmdScanData:
		enable := len(args) == 1 && args[0] == "1"
		if enable {
			sess.startStream(s)
		} else {
			sess.stopStream()
		}
		return frame("sEA LMDscandata " + boolDigit(enable))

	case "sMN " + telegram.CmdSaveConfig:
		return frame("sAN mEEwriteall 1")

	case "sMN " + telegram.CmdRun:
		s.loggedIn = false
		return frame("sAN Run 1")

	default:
		return frame("sFA 2")
	}
}

// setScanConfig handles mLMPsetscancfg. s.mu is held.
func (s *Simulator) setScanConfig(args []string) []byte {
	if !s.loggedIn {
		return frame("sFA 1")
	}

	vals, err := parseHex(args, 0, 2, 3, 4)
	if err != nil {
		return frame("sFA 5")
	}

	code := 0
	switch {
	case !validFrequencies[vals[0]]:
		code = 1
	case !validResolutions[vals[1]]:
		code = 2
	case vals[2] >= vals[3]:
		code = 4
	}

	if code == 0 {
		s.scanCfg = telegram.ScanConfiguration{
			ScanningFrequency: uint32(vals[0]), //nolint:gosec // parsed as 32-bit
			AngleResolution:   uint32(vals[1]), //nolint:gosec // parsed as 32-bit
			StartAngle:        int32(vals[2]),  //nolint:gosec // parsed as 32-bit
			StopAngle:         int32(vals[3]),  //nolint:gosec // parsed as 32-bit
		}
	}

	return frame(fmt.Sprintf("sAN mLMPsetscancfg %d %X 1 %X %s %s", code,
		s.scanCfg.ScanningFrequency, s.scanCfg.AngleResolution,
		angle(s.scanCfg.StartAngle), angle(s.scanCfg.StopAngle)))
}

// setOutputRange handles writing LMPoutputRange. s.mu is held.
func (s *Simulator) setOutputRange(args []string) []byte {
	if !s.loggedIn {
		return frame("sFA A")
	}

	vals, err := parseHex(args, 1, 2, 3)
	if err != nil {
		return frame("sFA 5")
	}

	s.outputRange = telegram.ScanOutputRange{
		AngleResolution: uint32(vals[0]), //nolint:gosec // parsed as 32-bit
		StartAngle:      int32(vals[1]),  //nolint:gosec // parsed as 32-bit
		StopAngle:       int32(vals[2]),  //nolint:gosec // parsed as 32-bit
	}

	return frame("sWA LMPoutputRange")
}

func (s *Simulator) nextStreamScan() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++

	return EncodeScan("sSN", s.counter, s.scan)
}

func (sess *session) write(b []byte) error {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()

	_, err := sess.conn.Write(b)

	return err
}

// startStream pushes scans until stopStream. It is called with s.mu held.
func (sess *session) startStream(s *Simulator) {
	if sess.stop != nil {
		return
	}

	stop := make(chan struct{})
	sess.stop = stop

	go func() {
		ticker := time.NewTicker(s.streamInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}

			raw, err := s.nextStreamScan()
			if err != nil || sess.write(raw) != nil {
				return
			}
		}
	}()
}

func (sess *session) stopStream() {
	if sess.stop != nil {
		close(sess.stop)
		sess.stop = nil
	}
}

func frame(payload string) []byte {
	return append(append([]byte{telegram.FrameStart}, payload...), telegram.FrameEnd)
}

func boolDigit(v bool) string {
	if v {
		return "1"
	}

	return "0"
}

// angle renders a signed angle as 32-bit two's complement hex.
func angle(v int32) string {
	return fmt.Sprintf("%X", uint32(v)) //nolint:gosec // two's complement
}

// parseHex parses args at the given indexes as 32-bit two's complement hex.
func parseHex(args []string, idx ...int) ([]int64, error) {
	out := make([]int64, len(idx))

	for i, j := range idx {
		if j >= len(args) {
			return nil, errNotEnoughTokens
		}

		u, err := strconv.ParseUint(args[j], 16, 32)
		if err != nil {
			return nil, err
		}
		out[i] = int64(int32(uint32(u))) //nolint:gosec // two's complement
	}

	return out, nil
}
