package telegram

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeScanData_Channels(t *testing.T) {
	dist1 := []uint16{0x0A, 0x1F4, 0xFFFF, 0}
	rssi1 := []uint16{0x80, 0x81, 0x82, 0x83}
	rssi2 := []uint16{0x10, 0xFF}

	raw := scanTelegram(t, 0,
		[]testBlock{{"DIST1", dist1}, {"RSSI1", rssi1}},
		[]testBlock{{"RSSI2", rssi2}},
		16)

	var d ScanData
	require.NoError(t, DecodeScanData(raw, &d))

	assert.Empty(t, cmp.Diff(dist1, d.Dist1.Values()))
	assert.Empty(t, cmp.Diff(rssi1, d.RSSI1.Values()))
	assert.Empty(t, cmp.Diff(rssi2, d.RSSI2.Values()))
	assert.Zero(t, d.Dist2.Len)
}

func TestDecodeScanData_CapturedTelegram(t *testing.T) {
	raw := frame("sRA LMDscandata " + scanHeader + " 0 1 DIST1 " + channelMetaTokens + " 5 1F4 1F5 1F6 1F7 1F8 0")

	var d ScanData
	require.NoError(t, DecodeScanData(raw, &d))
	assert.Empty(t, cmp.Diff([]uint16{500, 501, 502, 503, 504}, d.Dist1.Values()))
}

func TestDecodeScanData_SkipsEncoders(t *testing.T) {
	dist1 := ramp(10, 100)
	raw := scanTelegram(t, 2, []testBlock{{"DIST1", dist1}}, nil, 16)

	var d ScanData
	require.NoError(t, DecodeScanData(raw, &d))
	assert.Empty(t, cmp.Diff(dist1, d.Dist1.Values()))
}

func TestDecodeScanData_AllChannelsFull(t *testing.T) {
	var blocks []testBlock
	for _, tag := range []string{"DIST1", "DIST2", "RSSI1", "RSSI2"} {
		blocks = append(blocks, testBlock{tag, ramp(MaxSamples, 1)})
	}

	var d ScanData
	require.NoError(t, DecodeScanData(scanTelegram(t, 0, blocks, nil, 16), &d))

	for ch := Dist1; ch <= RSSI2; ch++ {
		samples := d.Channel(ch)
		require.Equal(t, MaxSamples, samples.Len, ch.String())
		assert.Equal(t, uint16(1), samples.Data[0])
		assert.Equal(t, uint16(MaxSamples), samples.Data[MaxSamples-1])
	}
}

// --- Capacity ---

func TestDecodeScanData_CountAtCapacity(t *testing.T) {
	samples := ramp(MaxSamples, 0)
	raw := scanTelegram(t, 0, []testBlock{{"DIST1", samples}}, nil, 16)

	var d ScanData
	require.NoError(t, DecodeScanData(raw, &d))
	assert.Equal(t, MaxSamples, d.Dist1.Len)
	assert.Empty(t, cmp.Diff(samples, d.Dist1.Values()))
}

func TestDecodeScanData_CountAboveCapacity(t *testing.T) {
	raw := scanTelegram(t, 0, []testBlock{{"DIST1", ramp(MaxSamples+1, 0)}}, nil, 16)

	var d ScanData
	err := DecodeScanData(raw, &d)
	require.ErrorIs(t, err, ErrMalformedTelegram)
	require.ErrorIs(t, err, ErrInvalidTelegram)
	assert.Zero(t, d.Dist1.Len)
}

func TestDecodeScanData_CountAboveCapacity8Bit(t *testing.T) {
	raw := scanTelegram(t, 0, nil, []testBlock{{"RSSI1", make([]uint16, MaxSamples+1)}}, 16)

	var d ScanData
	require.ErrorIs(t, DecodeScanData(raw, &d), ErrMalformedTelegram)
}

func TestDecodeScanData_CountExceedsRemainingTokens(t *testing.T) {
	// Declares 5 samples, carries 2 and the 8-bit block count.
	raw := frame("sRA LMDscandata " + scanHeader + " 0 1 DIST1 " + channelMetaTokens + " 5 1 2 0")

	var d ScanData
	require.ErrorIs(t, DecodeScanData(raw, &d), ErrMalformedTelegram)
}

func TestDecodeScanData_BlockCountExceedsRemainingTokens(t *testing.T) {
	raw := frame("sRA LMDscandata " + scanHeader + " 0 4 DIST1 " + channelMetaTokens + " 1 1 0")

	var d ScanData
	require.ErrorIs(t, DecodeScanData(raw, &d), ErrMalformedTelegram)
}

func TestDecodeScanData_EncoderCountExceedsRemainingTokens(t *testing.T) {
	raw := frame("sRA LMDscandata " + scanHeader + " 100 0 0")

	var d ScanData
	require.ErrorIs(t, DecodeScanData(raw, &d), ErrMalformedTelegram)
}

// --- Isolation ---

func TestDecodeScanData_Isolation(t *testing.T) {
	first := scanTelegram(t, 0,
		[]testBlock{{"DIST1", ramp(20, 1000)}, {"RSSI1", ramp(20, 50)}},
		[]testBlock{{"RSSI2", ramp(20, 5)}},
		16)
	second := scanTelegram(t, 0, []testBlock{{"DIST1", ramp(3, 7)}}, nil, 16)

	var d ScanData
	require.NoError(t, DecodeScanData(first, &d))
	require.Equal(t, 20, d.RSSI1.Len)

	require.NoError(t, DecodeScanData(second, &d))
	assert.Empty(t, cmp.Diff([]uint16{7, 8, 9}, d.Dist1.Values()))
	assert.Zero(t, d.RSSI1.Len)
	assert.Zero(t, d.RSSI2.Len)

	// Nothing from the first telegram survives past the new valid length.
	for _, v := range d.Dist1.Data[3:] {
		require.Zero(t, v)
	}

	var fresh ScanData
	require.NoError(t, DecodeScanData(second, &fresh))
	assert.Equal(t, fresh, d)
}

func TestDecodeScanData_ErrorResetsRecord(t *testing.T) {
	var d ScanData
	require.NoError(t, DecodeScanData(scanTelegram(t, 0, []testBlock{{"DIST1", ramp(8, 1)}}, nil, 16), &d))

	// Valid DIST1 block followed by a broken DIST2 block.
	broken := frame("sRA LMDscandata " + scanHeader + " 0 2 DIST1 " + channelMetaTokens +
		" 2 1 2 DIST2 " + channelMetaTokens + " 2 1 ZZ 0")
	require.ErrorIs(t, DecodeScanData(broken, &d), ErrMalformedTelegram)
	assert.Equal(t, ScanData{}, d)
}

// --- Tags ---

func TestDecodeScanData_UnknownTagConsumed(t *testing.T) {
	dist2 := ramp(4, 40)
	raw := scanTelegram(t, 0,
		[]testBlock{{"ANGL1", ramp(6, 1)}, {"DIST2", dist2}},
		[]testBlock{{"XYZ", ramp(2, 1)}},
		16)

	var d ScanData
	require.NoError(t, DecodeScanData(raw, &d))
	assert.Empty(t, cmp.Diff(dist2, d.Dist2.Values()))
	assert.Zero(t, d.Dist1.Len)
}

func TestDecodeScanData_SharedTagLaterBlockWins(t *testing.T) {
	raw := scanTelegram(t, 0,
		[]testBlock{{"RSSI1", []uint16{0x100, 0x200, 0x300}}},
		[]testBlock{{"RSSI1", []uint16{0x11, 0x22}}},
		16)

	var d ScanData
	require.NoError(t, DecodeScanData(raw, &d))
	assert.Empty(t, cmp.Diff([]uint16{0x11, 0x22}, d.RSSI1.Values()))
	assert.Zero(t, d.RSSI1.Data[2])
}

// --- 8-bit sample base ---

func TestDecodeScanData_EightBitHex(t *testing.T) {
	want := []uint16{10, 200, 255}
	raw := scanTelegram(t, 0, nil, []testBlock{{"RSSI1", want}}, 16)
	require.Contains(t, string(raw), "A C8 FF")

	var d ScanData
	require.NoError(t, DecodeScanData(raw, &d))
	assert.Empty(t, cmp.Diff(want, d.RSSI1.Values()))

	require.NoError(t, DecodeScanData(raw, &d, WithEightBitSampleBase(Hex)))
	assert.Empty(t, cmp.Diff(want, d.RSSI1.Values()))
}

func TestDecodeScanData_EightBitDecimal(t *testing.T) {
	want := []uint16{10, 200, 255}
	raw := scanTelegram(t, 0, nil, []testBlock{{"RSSI1", want}}, 10)
	require.Contains(t, string(raw), "10 200 255")

	var d ScanData
	require.NoError(t, DecodeScanData(raw, &d, WithEightBitSampleBase(Decimal)))
	assert.Empty(t, cmp.Diff(want, d.RSSI1.Values()))

	// Read as hexadecimal the same tokens give different samples.
	require.NoError(t, DecodeScanData(raw, &d))
	assert.Equal(t, []uint16{0x10, 0x200, 0x255}, d.RSSI1.Values())
}

func TestDecodeScanData_EightBitBaseLeaves16BitHex(t *testing.T) {
	dist1 := []uint16{0x1F4}
	raw := scanTelegram(t, 0, []testBlock{{"DIST1", dist1}}, []testBlock{{"RSSI1", []uint16{99}}}, 10)

	var d ScanData
	require.NoError(t, DecodeScanData(raw, &d, WithEightBitSampleBase(Decimal)))
	assert.Equal(t, uint16(500), d.Dist1.Data[0])
	assert.Equal(t, uint16(99), d.RSSI1.Data[0])
}

func TestDecodeScanData_EightBitSampleAboveByte(t *testing.T) {
	raw := scanTelegram(t, 0, nil, []testBlock{{"RSSI1", []uint16{0x100, 0xFFFF}}}, 16)

	var d ScanData
	require.NoError(t, DecodeScanData(raw, &d))
	assert.Equal(t, []uint16{0x100, 0xFFFF}, d.RSSI1.Values())
}

func TestDecodeScanData_EightBitSampleTooWide(t *testing.T) {
	raw := frame("sRA LMDscandata " + scanHeader + " 0 0 1 RSSI1 " + channelMetaTokens + " 1 10000")

	var d ScanData
	require.ErrorIs(t, DecodeScanData(raw, &d), ErrMalformedTelegram)
	assert.Zero(t, d.RSSI1.Len)
}

// --- Layout ---

func TestDecodeScanData_WideSampleLayoutRejected(t *testing.T) {
	layout := DefaultScanDataLayout()
	layout.Blocks16.Sample = HexField("sample", 32)

	var d ScanData
	err := DecodeScanData(scanTelegram(t, 0, nil, nil, 16), &d, WithLayout(layout))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestDefaultScanDataLayout_HeaderLength(t *testing.T) {
	layout := DefaultScanDataLayout()

	// Method token followed by 17 metadata fields, the first being the
	// command keyword.
	assert.Len(t, layout.Header, 18)
	assert.Equal(t, Hex, layout.Blocks8.Sample.Base)
	assert.Equal(t, Decimal, layout.Blocks16.Count.Base)
	assert.Equal(t, Hex, layout.Blocks16.SampleCount.Base)
}

// --- Malformed telegrams ---

func TestDecodeScanData_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty", frame("")},
		{"wrong command", frame("sRA LMDscandatacfg " + scanHeader + " 0 0 0")},
		{"truncated header", frame("sRA LMDscandata 1 1 89A27F")},
		{"missing encoder count", frame("sRA LMDscandata " + scanHeader)},
		{"hex encoder count", frame("sRA LMDscandata " + scanHeader + " A 0 0")},
		{"missing 8-bit count", frame("sRA LMDscandata " + scanHeader + " 0 0")},
		{"negative sample count", frame("sRA LMDscandata " + scanHeader + " 0 1 DIST1 " + channelMetaTokens + " -1 0")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d ScanData
			err := DecodeScanData(tt.raw, &d)
			require.ErrorIs(t, err, ErrMalformedTelegram)
			assert.Equal(t, ScanData{}, d)
		})
	}
}

func TestDecodeScanData_NotFramed(t *testing.T) {
	raw := scanTelegram(t, 0, nil, nil, 16)

	var d ScanData
	err := DecodeScanData(raw[1:], &d)
	require.ErrorIs(t, err, ErrInvalidTelegram)
	assert.NotErrorIs(t, err, ErrMalformedTelegram)
}

func TestDecodeScanData_DeviceError(t *testing.T) {
	var d ScanData
	err := DecodeScanData(frame("sFA 2"), &d)

	var devErr *DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, 2, devErr.Code)
}

// --- Channels ---

func TestParseChannel(t *testing.T) {
	for ch := Dist1; ch <= RSSI2; ch++ {
		got, ok := ParseChannel(ch.String())
		require.True(t, ok)
		assert.Equal(t, ch, got)
	}

	_, ok := ParseChannel(strings.ToLower("DIST1"))
	assert.False(t, ok)
	assert.Equal(t, "UNKNOWN", Channel(9).String())
	assert.Nil(t, (&ScanData{}).Channel(Channel(9)))
}
