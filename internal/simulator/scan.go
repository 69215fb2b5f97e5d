package simulator

import (
	"github.com/arloliu/go-lms1xx/telegram"
)

// Block is one channel block of a scan data telegram.
type Block struct {
	Tag     string
	Samples []uint16
}

// Scan is the content of a simulated scan data telegram.
type Scan struct {
	// Encoders is the number of encoder entries sent before the channels.
	Encoders int
	Blocks16 []Block
	Blocks8  []Block
	// EightBitBase is the base 8-bit samples are written in. Zero means hex.
	EightBitBase telegram.Base
}

// DefaultScan returns a scan with 541 distance and remission samples, the
// beam count of a 270° scan at 0.5° resolution.
func DefaultScan() Scan {
	dist := make([]uint16, 541)
	rssi := make([]uint16, 541)
	for i := range dist {
		dist[i] = uint16(1000 + i) //nolint:gosec // bounded by len
		rssi[i] = uint16(i % 256)  //nolint:gosec // bounded by modulus
	}

	return Scan{
		Blocks16: []Block{{Tag: "DIST1", Samples: dist}},
		Blocks8:  []Block{{Tag: "RSSI1", Samples: rssi}},
	}
}

var (
	decField        = telegram.DecField("value", 32)
	hexField        = telegram.HexField("value", 32)
	sampleField     = telegram.HexField("sample", 16)
	startAngleField = telegram.SignedHexField("start_angle", 32)
)

// EncodeScan renders scan as a scan data telegram with the given method, sRA
// for a polled scan or sSN for a streamed one. counter fills the message and
// scan counters.
func EncodeScan(method string, counter uint32, scan Scan) ([]byte, error) {
	// Version, device number, serial number, device status (2 tokens),
	// telegram and scan counters, time since start-up, time of transmission,
	// input status (2), output status (2), reserved, scanning frequency and
	// measurement frequency, then the encoder count.
	tokens := []telegram.Token{
		telegram.Keyword(method),
		telegram.Keyword(telegram.CmdScanData),
		telegram.Number(decField, 1),
		telegram.Number(decField, 1),
		telegram.Number(hexField, 0x89A27F),
		telegram.Number(decField, 0),
		telegram.Number(decField, 0),
		telegram.Number(hexField, int64(counter)),
		telegram.Number(hexField, int64(counter)),
		telegram.Number(hexField, 0x2C1F3A),
		telegram.Number(hexField, 0x2C2104),
		telegram.Number(decField, 0),
		telegram.Number(decField, 0),
		telegram.Number(decField, 0),
		telegram.Number(decField, 0),
		telegram.Number(decField, 0),
		telegram.Number(hexField, 5000),
		telegram.Number(hexField, 0x168),
		telegram.Number(decField, int64(scan.Encoders)),
	}

	for i := 0; i < scan.Encoders; i++ {
		tokens = append(tokens, telegram.Number(hexField, 0), telegram.Number(hexField, 0))
	}

	tokens = appendBlocks(tokens, scan.Blocks16, sampleField)

	base8 := scan.EightBitBase
	if base8 == 0 {
		base8 = telegram.Hex
	}
	tokens = appendBlocks(tokens, scan.Blocks8, telegram.Field{Name: "sample8", Role: telegram.RoleValue, Base: base8, Bits: 8})

	return telegram.Build(tokens...)
}

func appendBlocks(tokens []telegram.Token, blocks []Block, sample telegram.Field) []telegram.Token {
	tokens = append(tokens, telegram.Number(decField, int64(len(blocks))))

	for _, b := range blocks {
		// Scaling factor 1.0, scaling offset, start angle, angular step.
		tokens = append(tokens,
			telegram.Keyword(b.Tag),
			telegram.Number(hexField, 0x3F800000),
			telegram.Number(hexField, 0),
			telegram.Number(startAngleField, -450000),
			telegram.Number(hexField, 5000),
			telegram.Number(hexField, int64(len(b.Samples))),
		)

		for _, s := range b.Samples {
			tokens = append(tokens, telegram.Number(sample, int64(s)))
		}
	}

	return tokens
}
