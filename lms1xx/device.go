package lms1xx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/arloliu/go-lms1xx/internal/pool"
	"github.com/arloliu/go-lms1xx/logger"
	"github.com/arloliu/go-lms1xx/telegram"
)

// maxEventSkip bounds the number of streamed event telegrams discarded while
// waiting for the answer to a request.
const maxEventSkip = 64

// Device is a client for one LMS1xx device.
//
// Every command writes one request telegram and blocks until the answer is
// read and decoded, the read timeout expires or ctx is done. A timeout or a
// cancelled ctx closes the connection, since the answer may still arrive and
// would desynchronize the next exchange.
//
// Device is NOT goroutine-safe, except for IsConnected, State and Metrics.
type Device struct {
	cfg        *ConnectionConfig
	logger     logger.Logger
	decodeOpts []telegram.DecodeOption

	state  atomicConnState
	conn   io.ReadWriteCloser
	reader *telegramReader

	metrics *ConnectionMetrics
}

// NewDevice creates a disconnected Device.
func NewDevice(cfg *ConnectionConfig) (*Device, error) {
	if cfg == nil {
		return nil, errors.New("lms1xx: connection config is nil")
	}

	return &Device{
		cfg:        cfg,
		logger:     cfg.logger.With("device", cfg.Addr()),
		decodeOpts: []telegram.DecodeOption{telegram.WithEightBitSampleBase(cfg.eightBitBase)},
		metrics:    newConnectionMetrics(),
	}, nil
}

// Config returns the device configuration.
func (d *Device) Config() *ConnectionConfig { return d.cfg }

// Metrics returns the device metrics.
func (d *Device) Metrics() *ConnectionMetrics { return d.metrics }

// State returns the link state.
func (d *Device) State() ConnState { return d.state.Get() }

// IsConnected reports whether the link is up.
func (d *Device) IsConnected() bool { return d.state.IsConnected() }

// Connect opens the link. It does nothing if the device is already connected.
func (d *Device) Connect(ctx context.Context) error {
	if d.state.IsConnected() {
		return nil
	}

	if !d.state.ToConnecting() {
		return fmt.Errorf("lms1xx: cannot connect in state %s", d.state.Get())
	}

	conn, err := dial(ctx, d.cfg)
	if err != nil {
		d.state.ToDisconnected()
		d.logger.Debug("lms1xx: connect failed", "error", err)

		return err
	}

	d.conn = conn
	d.reader = newTelegramReader(conn, d.cfg.maxTelegramSize)
	d.state.ToConnected()
	d.metrics.incConnectCount()
	d.logger.Info("lms1xx: connected")

	return nil
}

// Disconnect closes the link. It does nothing if the device is not connected.
func (d *Device) Disconnect() error {
	if !d.state.ToDisconnected() {
		return nil
	}

	err := d.release()
	d.logger.Info("lms1xx: disconnected")

	return err
}

func (d *Device) release() error {
	var err error
	if d.conn != nil {
		err = d.conn.Close()
	}
	d.conn = nil
	d.reader = nil

	return err
}

// drop closes a link that failed mid-exchange.
func (d *Device) drop(cause error) {
	if !d.state.ToDisconnected() {
		return
	}

	_ = d.release()
	d.logger.Error("lms1xx: connection dropped", "error", cause)
}

// --- Commands ---

// Login raises the access level with the configured user level and password
// hash, allowing configuration changes. It fails with ErrAccessDenied when
// the device refuses.
func (d *Device) Login(ctx context.Context) error {
	level, hash := d.cfg.AccessMode()
	req, err := telegram.LoginRequest(level, hash)
	if err != nil {
		return err
	}

	raw, err := d.exchange(ctx, telegram.CmdSetAccessMode, req)
	if err != nil {
		return err
	}

	return d.checkDecode(telegram.CmdSetAccessMode, telegram.DecodeAccessMode(raw))
}

// StartMeasurements starts the laser and measuring.
func (d *Device) StartMeasurements(ctx context.Context) error {
	return d.simpleCommand(ctx, telegram.CmdStartMeasure, telegram.StartMeasurementRequest)
}

// StopMeasurements stops the laser and measuring.
func (d *Device) StopMeasurements(ctx context.Context) error {
	return d.simpleCommand(ctx, telegram.CmdStopMeasure, telegram.StopMeasurementRequest)
}

// SaveConfiguration stores the parameters permanently in the device EEPROM.
func (d *Device) SaveConfiguration(ctx context.Context) error {
	return d.simpleCommand(ctx, telegram.CmdSaveConfig, telegram.SaveConfigRequest)
}

// StartDevice returns the device to measurement mode after configuration.
func (d *Device) StartDevice(ctx context.Context) error {
	return d.simpleCommand(ctx, telegram.CmdRun, telegram.RunRequest)
}

// Status queries the device state.
func (d *Device) Status(ctx context.Context) (telegram.DeviceStatus, error) {
	req, err := telegram.StatusRequest()
	if err != nil {
		return telegram.StatusUndefined, err
	}

	raw, err := d.exchange(ctx, telegram.CmdStatus, req)
	if err != nil {
		return telegram.StatusUndefined, err
	}

	status, err := telegram.DecodeStatus(raw)

	return status, d.checkDecode(telegram.CmdStatus, err)
}

// WaitForStatus polls Status every interval until the device reports want.
// Recoverable protocol errors are logged and polling continues.
func (d *Device) WaitForStatus(ctx context.Context, want telegram.DeviceStatus, interval time.Duration) error {
	for {
		status, err := d.Status(ctx)
		switch {
		case err == nil && status == want:
			return nil
		case err != nil && !IsRecoverable(err):
			return err
		}

		d.logger.Debug("lms1xx: waiting for status", "want", want, "status", status)

		timer := pool.AcquireTimer(interval)
		select {
		case <-ctx.Done():
			pool.ReleaseTimer(timer)
			return ctx.Err()
		case <-timer.C:
			pool.ReleaseTimer(timer)
		}
	}
}

// ScanConfiguration reads the scanning frequency, angular resolution and
// scan area.
func (d *Device) ScanConfiguration(ctx context.Context) (telegram.ScanConfiguration, error) {
	req, err := telegram.ScanConfigRequest()
	if err != nil {
		return telegram.ScanConfiguration{}, err
	}

	raw, err := d.exchange(ctx, telegram.CmdScanConfig, req)
	if err != nil {
		return telegram.ScanConfiguration{}, err
	}

	cfg, err := telegram.DecodeScanConfiguration(raw)

	return cfg, d.checkDecode(telegram.CmdScanConfig, err)
}

// SetScanConfiguration writes the scanning frequency, angular resolution and
// scan area. A rejected configuration fails with *telegram.ScanConfigError.
// Requires Login.
func (d *Device) SetScanConfiguration(ctx context.Context, cfg telegram.ScanConfiguration) error {
	req, err := telegram.SetScanConfigRequest(cfg)
	if err != nil {
		return err
	}

	raw, err := d.exchange(ctx, telegram.CmdSetScanConfig, req)
	if err != nil {
		return err
	}

	return d.checkDecode(telegram.CmdSetScanConfig, telegram.DecodeSetScanConfig(raw))
}

// SetScanDataConfiguration selects the content of scan data telegrams.
// Requires Login.
func (d *Device) SetScanDataConfiguration(ctx context.Context, cfg telegram.ScanDataConfiguration) error {
	return d.simpleCommand(ctx, telegram.CmdScanDataConfig, func() ([]byte, error) {
		return telegram.SetScanDataConfigRequest(cfg)
	})
}

// ScanOutputRange reads the angular range output in scan data telegrams.
func (d *Device) ScanOutputRange(ctx context.Context) (telegram.ScanOutputRange, error) {
	req, err := telegram.ScanOutputRangeRequest()
	if err != nil {
		return telegram.ScanOutputRange{}, err
	}

	raw, err := d.exchange(ctx, telegram.CmdOutputRange, req)
	if err != nil {
		return telegram.ScanOutputRange{}, err
	}

	r, err := telegram.DecodeScanOutputRange(raw)

	return r, d.checkDecode(telegram.CmdOutputRange, err)
}

// SetScanOutputRange writes the angular range output in scan data telegrams.
// Requires Login.
func (d *Device) SetScanOutputRange(ctx context.Context, r telegram.ScanOutputRange) error {
	return d.simpleCommand(ctx, telegram.CmdOutputRange, func() ([]byte, error) {
		return telegram.SetScanOutputRangeRequest(r)
	})
}

// ScanContinuous starts or stops the scan data stream. While started, read
// scans with ReadScanData or GetData.
func (d *Device) ScanContinuous(ctx context.Context, enable bool) error {
	return d.simpleCommand(ctx, telegram.CmdScanData, func() ([]byte, error) {
		return telegram.ContinuousScanRequest(enable)
	})
}

// ReadScanData reads the next streamed scan into dst. dst is reset first and
// holds no samples on error.
func (d *Device) ReadScanData(ctx context.Context, dst *telegram.ScanData) error {
	raw, err := d.receive(ctx)
	if err != nil {
		dst.Reset()
		return err
	}

	return d.decodeScan(raw, dst)
}

// GetData reads the next streamed scan into a new ScanData.
func (d *Device) GetData(ctx context.Context) (*telegram.ScanData, error) {
	data := &telegram.ScanData{}
	if err := d.ReadScanData(ctx, data); err != nil {
		return nil, err
	}

	return data, nil
}

// PollScanData requests a single scan and decodes it into dst. dst is reset
// first and holds no samples on error.
func (d *Device) PollScanData(ctx context.Context, dst *telegram.ScanData) error {
	req, err := telegram.ScanDataRequest()
	if err != nil {
		return err
	}

	raw, err := d.exchange(ctx, telegram.CmdScanData, req)
	if err != nil {
		dst.Reset()
		return err
	}

	return d.decodeScan(raw, dst)
}

func (d *Device) decodeScan(raw []byte, dst *telegram.ScanData) error {
	if err := telegram.DecodeScanData(raw, dst, d.decodeOpts...); err != nil {
		return d.checkDecode(telegram.CmdScanData, err)
	}

	d.metrics.incScanCount()

	return nil
}

// --- Exchange ---

func (d *Device) simpleCommand(ctx context.Context, command string, build func() ([]byte, error)) error {
	req, err := build()
	if err != nil {
		return err
	}

	raw, err := d.exchange(ctx, command, req)
	if err != nil {
		return err
	}

	return d.checkDecode(command, telegram.DecodeAck(raw, req))
}

// exchange writes req and returns the answer. Event telegrams arriving in
// between, such as streamed scans, are discarded.
func (d *Device) exchange(ctx context.Context, command string, req []byte) ([]byte, error) {
	if err := d.send(command, req); err != nil {
		return nil, err
	}

	for skipped := 0; ; skipped++ {
		raw, err := d.receive(ctx)
		if err != nil {
			return nil, err
		}

		if !telegram.IsEvent(raw) {
			return raw, nil
		}

		if skipped == maxEventSkip {
			d.metrics.incInvalidTelegramCount()
			return nil, fmt.Errorf("%w: no answer to %s after %d event telegrams", ErrInvalidTelegram, command, skipped)
		}

		d.logger.Debug("lms1xx: event telegram skipped", "command", command)
	}
}

func (d *Device) send(command string, req []byte) error {
	if !d.state.IsConnected() {
		return ErrNotConnected
	}

	if wd, ok := d.conn.(writeDeadliner); ok {
		_ = wd.SetWriteDeadline(time.Now().Add(d.cfg.writeTimeout))
	}

	if _, err := d.conn.Write(req); err != nil {
		d.drop(err)
		return fmt.Errorf("%w: write %s: %w", ErrConnClosed, command, err)
	}

	d.metrics.incTelegramSendCount()
	d.metrics.incCommandCount(command)
	d.logger.Debug("lms1xx: telegram sent", "command", command, "bytes", len(req))

	return nil
}

// receive reads one telegram. The returned slice is valid until the next
// receive.
func (d *Device) receive(ctx context.Context) ([]byte, error) {
	if !d.state.IsConnected() {
		return nil, ErrNotConnected
	}

	raw, err := d.reader.read(ctx, d.cfg.readTimeout)
	switch {
	case err == nil:
		d.metrics.incTelegramRecvCount()
		d.logger.Debug("lms1xx: telegram received", "bytes", len(raw))

		return raw, nil

	case errors.Is(err, ErrInvalidTelegram):
		d.metrics.incInvalidTelegramCount()
		d.logger.Warn("lms1xx: invalid telegram", "error", err)

		return nil, err

	case errors.Is(err, ErrTimeout):
		d.metrics.incTimeoutCount()
	}

	d.drop(err)

	return nil, err
}

// checkDecode records a failed decode of a complete answer.
func (d *Device) checkDecode(command string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrInvalidTelegram) {
		d.metrics.incInvalidTelegramCount()
		d.logger.Warn("lms1xx: undecodable answer", "command", command, "error", err)
	}

	return err
}
