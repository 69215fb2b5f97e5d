package telegram

import (
	"fmt"
)

// Values holds the value fields of a schema, keyed by field name.
type Values map[string]int64

// Schema is the ordered field table of one telegram kind.
//
// Decoding stops after the last field; trailing tokens are ignored since the
// device appends optional data this package does not interpret.
type Schema struct {
	// Name is the command keyword, used to label errors.
	Name   string
	Fields []Field
}

// Build renders the schema as a framed telegram using values for every
// RoleValue field.
func (s Schema) Build(values Values) ([]byte, error) {
	tokens := make([]Token, 0, len(s.Fields))

	for _, f := range s.Fields {
		switch f.Role {
		case RoleKeyword:
			tokens = append(tokens, Keyword(f.Expect))

		case RoleValue:
			v, ok := values[f.Name]
			if !ok {
				return nil, fmt.Errorf("%w: %s: %q", ErrMissingValue, s.Name, f.Name)
			}
			tokens = append(tokens, Number(f, v))

		default:
			return nil, fmt.Errorf("%w: %s: field %q cannot be built", ErrInvalidToken, s.Name, f.Name)
		}
	}

	return Build(tokens...)
}

// Decode walks raw with the schema and returns its value fields.
//
// An sFA answer is returned as *DeviceError. Any other mismatch is reported as
// ErrMalformedTelegram, and framing errors as ErrInvalidTelegram.
func (s Schema) Decode(raw []byte) (Values, error) {
	values, _, err := s.decode(raw)

	return values, err
}

// decode is Decode that also returns the cursor positioned after the last
// field.
func (s Schema) decode(raw []byte) (Values, *cursor, error) {
	c, err := newCursor(s.Name, raw)
	if err != nil {
		return nil, nil, err
	}

	if err := c.deviceError(); err != nil {
		return nil, nil, err
	}

	values := make(Values)

	for _, f := range s.Fields {
		if f.Role != RoleValue {
			if err := c.consume(f); err != nil {
				return nil, nil, err
			}

			continue
		}

		v, err := c.number(f)
		if err != nil {
			return nil, nil, err
		}
		values[f.Name] = v
	}

	return values, c, nil
}

// Field returns the schema field with the given name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}

	return Field{}, false
}
