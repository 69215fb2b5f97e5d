// Package telegram implements the ASCII telegram protocol spoken by LMS1xx laser
// rangefinders.
//
// A telegram is framed as
//
//	0x02 <payload> 0x03
//
// where the payload is a list of tokens separated by a single ASCII space. There
// is no escaping: a token never contains a space or a frame delimiter. The
// numeric base of a token depends on its position inside the telegram, counts and
// status codes are decimal while angles, frequencies, resolutions and samples are
// uppercase hexadecimal without prefix.
//
// # Schemas
//
// Every telegram kind is described by a [Schema], an ordered table of [Field]
// entries. A field names its numeric base, its width in bits and its role
// (keyword, skipped or value). The same table drives both directions:
//
//	raw, err := telegram.SetScanConfigRequest(cfg)   // build
//	cfg, err := telegram.DecodeScanConfiguration(raw) // decode
//
// Numeric values are validated against their field width when a telegram is
// built, so an out-of-range value fails with [ErrFieldOverflow] instead of being
// truncated on the wire.
//
// # Scan data
//
// [DecodeScanData] walks the self-describing LMDscandata record and fills a
// fixed-capacity [ScanData]. The record is reset before decoding, so a channel
// absent from the telegram reads as empty. Declared counts are checked against
// both the remaining tokens and [MaxSamples] before any sample is written.
//
// All decode failures are reported as errors matching [ErrInvalidTelegram].
package telegram
