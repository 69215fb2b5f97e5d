// Package lms1xx implements a client for SICK LMS1xx laser rangefinders over
// their CoLa-A ASCII telegram protocol.
//
// A Device sequences every command as build, write, read and decode. The read
// step is bounded by a deadline: a device that does not finish a telegram in
// time is considered dead, the connection is closed and ErrTimeout returned.
// A garbled or undecodable answer returns an error matching ErrInvalidTelegram
// and leaves the connection open, so the caller may retry.
//
// The protocol is half-duplex. A Device must be driven from a single goroutine;
// callers needing concurrency must serialize access themselves.
//
// Basic usage:
//
//	cfg, err := lms1xx.NewConnectionConfig("192.168.0.1", lms1xx.DefaultPort,
//		lms1xx.WithReadTimeout(5*time.Second))
//	if err != nil {
//		// handle error
//	}
//
//	dev, err := lms1xx.NewDevice(cfg)
//	if err != nil {
//		// handle error
//	}
//
//	if err := dev.Connect(ctx); err != nil {
//		// handle error
//	}
//	defer dev.Disconnect()
//
//	var scan telegram.ScanData
//	if err := dev.PollScanData(ctx, &scan); err != nil {
//		// handle error
//	}
package lms1xx
