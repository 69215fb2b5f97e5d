package telegram

import (
	"fmt"
	"strconv"
	"strings"
)

// Base is the numeric base of a telegram field.
type Base int

const (
	// Decimal fields carry counts and status codes.
	Decimal Base = 10
	// Hex fields carry angles, frequencies, resolutions and samples, uppercase
	// without prefix.
	Hex Base = 16
)

func (b Base) String() string {
	switch b {
	case Decimal:
		return "decimal"
	case Hex:
		return "hexadecimal"
	default:
		return "base(" + strconv.Itoa(int(b)) + ")"
	}
}

// Role tells how a field takes part in building and decoding.
type Role uint8

const (
	// RoleKeyword is a literal token. It is written verbatim when building and
	// must match exactly when decoding.
	RoleKeyword Role = iota
	// RoleSkip is consumed when decoding to keep the cursor aligned but is never
	// interpreted. It cannot be built.
	RoleSkip
	// RoleValue is a numeric token.
	RoleValue
	// RoleLabel is a textual token whose value selects a destination, such as a
	// channel tag.
	RoleLabel
)

const maxFieldBits = 32

// Field describes one wire token.
type Field struct {
	// Name identifies the field in errors and in Values.
	Name string
	Role Role
	// Expect is the literal text of a RoleKeyword field.
	Expect string

	Base Base
	// Bits is the wire width, 1 to 32. Zero means 32.
	Bits int
	// Signed fields use two's complement within Bits.
	Signed bool
	// Digits is the minimum number of digits written, zero padded.
	Digits int
	// Plus prefixes the value with '+'.
	Plus bool
}

// KeywordField returns a RoleKeyword field for the literal text.
func KeywordField(text string) Field {
	return Field{Name: text, Role: RoleKeyword, Expect: text}
}

// SkipField returns a RoleSkip field.
func SkipField(name string) Field {
	return Field{Name: name, Role: RoleSkip}
}

// DecField returns an unsigned decimal value field.
func DecField(name string, bits int) Field {
	return Field{Name: name, Role: RoleValue, Base: Decimal, Bits: bits}
}

// HexField returns an unsigned hexadecimal value field.
func HexField(name string, bits int) Field {
	return Field{Name: name, Role: RoleValue, Base: Hex, Bits: bits}
}

// SignedHexField returns a two's complement hexadecimal value field.
func SignedHexField(name string, bits int) Field {
	return Field{Name: name, Role: RoleValue, Base: Hex, Bits: bits, Signed: true}
}

// FlagField returns a single-bit decimal field written as 0 or 1.
func FlagField(name string) Field {
	return DecField(name, 1)
}

func (f Field) bits() int {
	if f.Bits <= 0 || f.Bits > maxFieldBits {
		return maxFieldBits
	}

	return f.Bits
}

// Bounds returns the inclusive range of values representable by the field.
func (f Field) Bounds() (lo int64, hi int64) {
	bits := f.bits()
	if f.Signed {
		return -(int64(1) << (bits - 1)), int64(1)<<(bits-1) - 1
	}

	return 0, int64(1)<<bits - 1
}

// Format renders v as the field's wire token.
//
// It fails with ErrFieldOverflow if v is outside Bounds.
func (f Field) Format(v int64) (string, error) {
	if f.Role != RoleValue {
		return "", fmt.Errorf("%w: field %q is not a value field", ErrInvalidToken, f.Name)
	}

	lo, hi := f.Bounds()
	if v < lo || v > hi {
		return "", fmt.Errorf("%w: %s=%d not in [%d, %d]", ErrFieldOverflow, f.Name, v, lo, hi)
	}

	var s string
	switch f.Base {
	case Hex:
		mask := uint64(1)<<f.bits() - 1
		s = strings.ToUpper(strconv.FormatUint(uint64(v)&mask, 16)) //nolint:gosec // two's complement within field width
	default:
		s = strconv.FormatInt(v, 10)
	}

	if pad := f.Digits - len(s); pad > 0 && v >= 0 {
		s = strings.Repeat("0", pad) + s
	}

	if f.Plus && v >= 0 {
		s = "+" + s
	}

	return s, nil
}

// Parse decodes a wire token according to the field's base and width.
//
// Failures are reported as ErrMalformedTelegram.
func (f Field) Parse(tok []byte) (int64, error) {
	s := string(tok)
	if f.Plus {
		s = strings.TrimPrefix(s, "+")
	}

	if s == "" {
		return 0, fmt.Errorf("%w: field %q is empty", ErrMalformedTelegram, f.Name)
	}

	bits := f.bits()

	switch f.Base {
	case Hex:
		u, err := strconv.ParseUint(s, 16, bits)
		if err != nil {
			return 0, fmt.Errorf("%w: field %q: %q is not a %d-bit hexadecimal number", ErrMalformedTelegram, f.Name, s, bits)
		}

		if f.Signed && u >= uint64(1)<<(bits-1) {
			return int64(u) - int64(1)<<bits, nil //nolint:gosec // u < 2^32
		}

		return int64(u), nil //nolint:gosec // u < 2^32

	default:
		if f.Signed {
			v, err := strconv.ParseInt(s, 10, bits)
			if err != nil {
				return 0, fmt.Errorf("%w: field %q: %q is not a %d-bit decimal number", ErrMalformedTelegram, f.Name, s, bits)
			}

			return v, nil
		}

		u, err := strconv.ParseUint(s, 10, bits)
		if err != nil {
			return 0, fmt.Errorf("%w: field %q: %q is not a %d-bit decimal number", ErrMalformedTelegram, f.Name, s, bits)
		}

		return int64(u), nil //nolint:gosec // u < 2^32
	}
}
