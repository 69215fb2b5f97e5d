package telegram

import (
	"bytes"
	"fmt"
)

// Frame delimiters and token separator.
const (
	FrameStart byte = 0x02
	FrameEnd   byte = 0x03
	Separator  byte = ' '
)

// Token is one element of an outbound telegram: either a literal keyword or a
// numeric value formatted by its field.
type Token struct {
	field Field
	text  string
	value int64
}

// Keyword returns a literal token.
func Keyword(text string) Token {
	return Token{field: KeywordField(text), text: text}
}

// Number returns a numeric token formatted by f.
func Number(f Field, v int64) Token {
	return Token{field: f, value: v}
}

// Flag returns a 0/1 token.
func Flag(name string, v bool) Token {
	return Number(FlagField(name), boolToInt(v))
}

func (t Token) render() (string, error) {
	switch t.field.Role {
	case RoleKeyword:
		if err := checkLiteral(t.text); err != nil {
			return "", err
		}

		return t.text, nil

	case RoleValue:
		return t.field.Format(t.value)

	default:
		return "", fmt.Errorf("%w: field %q cannot be built", ErrInvalidToken, t.field.Name)
	}
}

// Build frames the tokens into a telegram, joined by single spaces.
//
// Every numeric token is validated against its field width first; nothing is
// truncated. Build has no side effects.
func Build(tokens ...Token) ([]byte, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty telegram", ErrInvalidToken)
	}

	var buf bytes.Buffer
	buf.Grow(64)
	buf.WriteByte(FrameStart)

	for i, tok := range tokens {
		s, err := tok.render()
		if err != nil {
			return nil, err
		}

		if i > 0 {
			buf.WriteByte(Separator)
		}
		buf.WriteString(s)
	}

	buf.WriteByte(FrameEnd)

	return buf.Bytes(), nil
}

// Payload returns the payload of a framed telegram.
//
// It fails with ErrInvalidTelegram when raw is not framed by FrameStart and
// FrameEnd or the payload contains a delimiter.
func Payload(raw []byte) ([]byte, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("%w: telegram too short (%d bytes)", ErrInvalidTelegram, len(raw))
	}

	if raw[0] != FrameStart {
		return nil, fmt.Errorf("%w: first byte 0x%02X is not frame start", ErrInvalidTelegram, raw[0])
	}

	if raw[len(raw)-1] != FrameEnd {
		return nil, fmt.Errorf("%w: last byte 0x%02X is not frame end", ErrInvalidTelegram, raw[len(raw)-1])
	}

	payload := raw[1 : len(raw)-1]
	if i := bytes.IndexAny(payload, "\x02\x03"); i >= 0 {
		return nil, fmt.Errorf("%w: delimiter 0x%02X inside payload at offset %d", ErrInvalidTelegram, payload[i], i+1)
	}

	return payload, nil
}

func checkLiteral(s string) error {
	if s == "" {
		return fmt.Errorf("%w: empty keyword", ErrInvalidToken)
	}

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case Separator, FrameStart, FrameEnd:
			return fmt.Errorf("%w: keyword %q contains byte 0x%02X", ErrInvalidToken, s, s[i])
		}
	}

	return nil
}

func boolToInt(v bool) int64 {
	if v {
		return 1
	}

	return 0
}
