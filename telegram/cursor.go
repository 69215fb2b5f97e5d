package telegram

import (
	"bytes"
	"fmt"
)

// cursor walks the tokens of a telegram payload in declared order.
//
// Tokens are split on single spaces; two adjacent spaces yield an empty token.
// The remaining token count is known up front so declared counts can be checked
// before any iteration.
type cursor struct {
	kind      string
	payload   []byte
	pos       int
	index     int
	remaining int
}

func newCursor(kind string, raw []byte) (*cursor, error) {
	payload, err := Payload(raw)
	if err != nil {
		return nil, err
	}

	c := &cursor{kind: kind, payload: payload}
	if len(payload) > 0 {
		c.remaining = bytes.Count(payload, []byte{Separator}) + 1
	}

	return c, nil
}

// Remaining returns the number of tokens not consumed yet.
func (c *cursor) Remaining() int {
	return c.remaining
}

// peek returns the next token without consuming it.
func (c *cursor) peek() []byte {
	if c.remaining == 0 {
		return nil
	}

	rest := c.payload[c.pos:]
	if end := bytes.IndexByte(rest, Separator); end >= 0 {
		return rest[:end]
	}

	return rest
}

// next consumes the token for f.
func (c *cursor) next(f Field) ([]byte, error) {
	if c.remaining == 0 {
		return nil, malformed(c.kind, "missing field %q at token %d", f.Name, c.index)
	}

	tok := c.peek()
	c.pos += len(tok) + 1
	c.index++
	c.remaining--

	return tok, nil
}

// consume reads one field, checking keywords and validating values.
func (c *cursor) consume(f Field) error {
	switch f.Role {
	case RoleValue:
		_, err := c.number(f)
		return err

	case RoleKeyword:
		return c.keyword(f)

	default:
		_, err := c.next(f)
		return err
	}
}

func (c *cursor) keyword(f Field) error {
	tok, err := c.next(f)
	if err != nil {
		return err
	}

	if string(tok) != f.Expect {
		return malformed(c.kind, "token %d: expected %q, got %q", c.index-1, f.Expect, tok)
	}

	return nil
}

// number consumes and parses a numeric field.
func (c *cursor) number(f Field) (int64, error) {
	tok, err := c.next(f)
	if err != nil {
		return 0, err
	}

	v, err := f.Parse(tok)
	if err != nil {
		return 0, fmt.Errorf("%s: token %d: %w", c.kind, c.index-1, err)
	}

	return v, nil
}

// count consumes a repetition count and checks that count items of perItem
// tokens fit in the remaining payload and that count does not exceed limit.
// A limit of zero means no capacity bound.
func (c *cursor) count(f Field, perItem int, limit int) (int, error) {
	v, err := c.number(f)
	if err != nil {
		return 0, err
	}

	n := int(v)
	if limit > 0 && n > limit {
		return 0, malformed(c.kind, "%s %d exceeds capacity %d", f.Name, n, limit)
	}

	if perItem > 0 && n > c.remaining/perItem {
		return 0, malformed(c.kind, "%s %d needs %d tokens, %d remaining", f.Name, n, n*perItem, c.remaining)
	}

	return n, nil
}

// deviceError returns a *DeviceError if the telegram is an sFA error answer.
func (c *cursor) deviceError() error {
	if string(c.peek()) != methodError {
		return nil
	}

	if _, err := c.next(SkipField("method")); err != nil {
		return err
	}

	code, err := c.number(errorCodeField)
	if err != nil {
		return err
	}

	return &DeviceError{Code: int(code)}
}
