package telegram

import "fmt"

// MaxSamples is the capacity of every scan data channel, the historical maximum
// beam count of the device family.
const MaxSamples = 1082

const maxSampleBits = 16

// Channel names one of the sample streams of a scan data telegram.
type Channel int

const (
	Dist1 Channel = iota
	Dist2
	RSSI1
	RSSI2
)

var channelLabels = [...]string{"DIST1", "DIST2", "RSSI1", "RSSI2"}

func (ch Channel) String() string {
	if ch < 0 || int(ch) >= len(channelLabels) {
		return "UNKNOWN"
	}

	return channelLabels[ch]
}

// ParseChannel maps a channel tag to its Channel.
func ParseChannel(label string) (Channel, bool) {
	for i, l := range channelLabels {
		if l == label {
			return Channel(i), true
		}
	}

	return 0, false
}

// Samples is a fixed-capacity sample array with its valid length.
type Samples struct {
	Len  int
	Data [MaxSamples]uint16
}

// Values returns the valid samples.
func (s *Samples) Values() []uint16 {
	return s.Data[:s.Len]
}

// ScanData holds the channels of one decoded scan. Samples are raw integers;
// conversion to physical units is left to the caller.
type ScanData struct {
	Dist1 Samples
	Dist2 Samples
	RSSI1 Samples
	RSSI2 Samples
}

// Reset zeroes every channel.
func (d *ScanData) Reset() {
	*d = ScanData{}
}

// Channel returns the samples of ch, or nil for an unknown channel.
func (d *ScanData) Channel(ch Channel) *Samples {
	switch ch {
	case Dist1:
		return &d.Dist1
	case Dist2:
		return &d.Dist2
	case RSSI1:
		return &d.RSSI1
	case RSSI2:
		return &d.RSSI2
	default:
		return nil
	}
}

// ChannelBlock is the layout of one group of channel blocks in a scan data
// telegram: a block count followed by that many blocks of
//
//	<tag> <meta...> <sample count> <sample...>
type ChannelBlock struct {
	Count       Field
	Tag         Field
	Meta        []Field
	SampleCount Field
	Sample      Field
}

func (b ChannelBlock) minTokens() int {
	return 2 + len(b.Meta)
}

// ScanDataLayout is the schema of an LMDscandata telegram.
type ScanDataLayout struct {
	// Header is every fixed field before the encoder count, including the
	// method and command keywords.
	Header       []Field
	EncoderCount Field
	Encoder      []Field
	Blocks16     ChannelBlock
	Blocks8      ChannelBlock
}

var scanDataHeader = []Field{
	methodField,
	KeywordField(CmdScanData),
	SkipField("version_number"),
	SkipField("device_number"),
	SkipField("serial_number"),
	SkipField("device_status"),
	SkipField("device_status_reserved"),
	SkipField("message_counter"),
	SkipField("scan_counter"),
	SkipField("power_up_duration"),
	SkipField("transmission_duration"),
	SkipField("input_status"),
	SkipField("input_status_reserved"),
	SkipField("output_status"),
	SkipField("output_status_reserved"),
	SkipField("reserved_byte_a"),
	SkipField("scanning_frequency"),
	SkipField("measurement_frequency"),
}

var channelMeta = []Field{
	SkipField("scaling_factor"),
	SkipField("scaling_offset"),
	SkipField("starting_angle"),
	SkipField("angular_step"),
}

// DefaultScanDataLayout returns the layout observed on every known protocol
// revision. 8-bit samples are hexadecimal there as well.
func DefaultScanDataLayout() ScanDataLayout {
	return ScanDataLayout{
		Header:       scanDataHeader,
		EncoderCount: DecField("encoder_count", 16),
		Encoder:      []Field{SkipField("encoder_position"), SkipField("encoder_speed")},
		Blocks16: ChannelBlock{
			Count:       DecField("channel16_count", 16),
			Tag:         Field{Name: "channel16_content", Role: RoleLabel},
			Meta:        channelMeta,
			SampleCount: HexField("channel16_sample_count", 16),
			Sample:      HexField("channel16_sample", 16),
		},
		// 8-bit names the device resolution. Samples share the uint16 arrays
		// of 16-bit blocks and are read with the same width.
		Blocks8: ChannelBlock{
			Count:       DecField("channel8_count", 16),
			Tag:         Field{Name: "channel8_content", Role: RoleLabel},
			Meta:        channelMeta,
			SampleCount: HexField("channel8_sample_count", 16),
			Sample:      HexField("channel8_sample", 16),
		},
	}
}

// DecodeOption adjusts the scan data layout of one decode call.
type DecodeOption func(*ScanDataLayout)

// WithEightBitSampleBase sets the numeric base of 8-bit channel samples.
//
// Observed devices send hexadecimal; decimal is supported for revisions that
// differ.
func WithEightBitSampleBase(base Base) DecodeOption {
	return func(l *ScanDataLayout) {
		l.Blocks8.Sample.Base = base
	}
}

// WithLayout replaces the whole layout.
func WithLayout(layout ScanDataLayout) DecodeOption {
	return func(l *ScanDataLayout) {
		*l = layout
	}
}

// DecodeScanData decodes an LMDscandata telegram into dst.
//
// dst is reset first, so a channel absent from raw reads as length zero. On
// error dst is reset again and holds no samples. A tag other than DIST1, DIST2,
// RSSI1 or RSSI2 has its samples consumed and discarded. A 16-bit and an 8-bit
// block sharing a tag write into the same channel, the later block wins.
func DecodeScanData(raw []byte, dst *ScanData, opts ...DecodeOption) error {
	dst.Reset()

	layout := DefaultScanDataLayout()
	for _, opt := range opts {
		opt(&layout)
	}

	if layout.Blocks16.Sample.bits() > maxSampleBits || layout.Blocks8.Sample.bits() > maxSampleBits {
		return fmt.Errorf("%w: sample fields wider than %d bits", ErrInvalidToken, maxSampleBits)
	}

	if err := decodeScanData(raw, dst, &layout); err != nil {
		dst.Reset()
		return err
	}

	return nil
}

func decodeScanData(raw []byte, dst *ScanData, layout *ScanDataLayout) error {
	c, err := newCursor(CmdScanData, raw)
	if err != nil {
		return err
	}

	if err := c.deviceError(); err != nil {
		return err
	}

	for _, f := range layout.Header {
		if err := c.consume(f); err != nil {
			return err
		}
	}

	encoders, err := c.count(layout.EncoderCount, len(layout.Encoder), 0)
	if err != nil {
		return err
	}

	for i := 0; i < encoders; i++ {
		for _, f := range layout.Encoder {
			if err := c.consume(f); err != nil {
				return err
			}
		}
	}

	if err := decodeChannelBlocks(c, &layout.Blocks16, dst); err != nil {
		return err
	}

	return decodeChannelBlocks(c, &layout.Blocks8, dst)
}

func decodeChannelBlocks(c *cursor, blk *ChannelBlock, dst *ScanData) error {
	blocks, err := c.count(blk.Count, blk.minTokens(), 0)
	if err != nil {
		return err
	}

	for i := 0; i < blocks; i++ {
		tag, err := c.next(blk.Tag)
		if err != nil {
			return err
		}

		var samples *Samples
		if ch, ok := ParseChannel(string(tag)); ok {
			samples = dst.Channel(ch)
		}

		for _, f := range blk.Meta {
			if err := c.consume(f); err != nil {
				return err
			}
		}

		n, err := c.count(blk.SampleCount, 1, MaxSamples)
		if err != nil {
			return err
		}

		for j := 0; j < n; j++ {
			v, err := c.number(blk.Sample)
			if err != nil {
				return err
			}

			if samples != nil {
				samples.Data[j] = uint16(v) //nolint:gosec // sample fields are at most 16 bits
			}
		}

		if samples != nil {
			if samples.Len > n {
				clear(samples.Data[n:samples.Len])
			}
			samples.Len = n
		}
	}

	return nil
}
