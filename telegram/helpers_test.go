package telegram

import (
	"strconv"
	"strings"
	"testing"
)

// testBlock is one channel block of a synthetic scan data telegram.
type testBlock struct {
	tag     string
	samples []uint16
}

// scanHeader is the 16 metadata tokens following "sRA LMDscandata" in a
// captured telegram.
const scanHeader = "1 1 89A27F 0 0 1A2B 1A2D 2C1F3A 2C2104 0 0 0 0 0 1388 168"

const channelMetaTokens = "3F800000 00000000 FFF92230 1388"

// frame wraps payload with the frame delimiters.
func frame(payload string) []byte {
	return append(append([]byte{FrameStart}, payload...), FrameEnd)
}

// scanTelegram renders a scan data telegram with the given encoder count and
// channel blocks. 8-bit samples are written in base8.
func scanTelegram(t *testing.T, encoders int, blocks16, blocks8 []testBlock, base8 int) []byte {
	t.Helper()

	parts := []string{"sRA", CmdScanData, scanHeader, strconv.Itoa(encoders)}
	for i := 0; i < encoders; i++ {
		parts = append(parts, "0", "0")
	}

	parts = appendBlocks(parts, blocks16, 16)
	parts = appendBlocks(parts, blocks8, base8)

	return frame(strings.Join(parts, " "))
}

func appendBlocks(parts []string, blocks []testBlock, base int) []string {
	parts = append(parts, strconv.Itoa(len(blocks)))
	for _, b := range blocks {
		parts = append(parts, b.tag, channelMetaTokens, strings.ToUpper(strconv.FormatInt(int64(len(b.samples)), 16)))
		for _, s := range b.samples {
			parts = append(parts, strings.ToUpper(strconv.FormatUint(uint64(s), base)))
		}
	}

	return parts
}

// ramp returns n samples counting up from start.
func ramp(n int, start uint16) []uint16 {
	out := make([]uint16, n)
	for i := range out {
		out[i] = start + uint16(i) //nolint:gosec // test data
	}

	return out
}

// answer rewrites the first two tokens of a request into method and command,
// producing a synthetic response sharing the request's field layout.
func answer(t *testing.T, req []byte, method, command string) []byte {
	t.Helper()

	payload, err := Payload(req)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	tokens := strings.Split(string(payload), " ")
	if len(tokens) < 2 {
		t.Fatalf("answer: request %q has fewer than two tokens", payload)
	}
	tokens[0], tokens[1] = method, command

	return frame(strings.Join(tokens, " "))
}
