// Package layout reads and writes the fixed little-endian binary layout used
// by program account data.
package layout

import (
	"bytes"
	"encoding/binary"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/sagestream/sagestream/account"
)

// Cursor reads fields from a byte slice. Every read goes through Take, which
// refuses to read past the end.
//
// The first error is sticky: once a read fails, all later reads return zero
// values and Err returns that first error. This allows record decoders to read
// all fields and check the error once.
type Cursor struct {
	data []byte
	pos  int
	err  error
}

func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Pos returns the current read offset
func (c *Cursor) Pos() int {
	return c.pos
}

// Remaining returns the number of unread bytes
func (c *Cursor) Remaining() int {
	return len(c.data) - c.pos
}

// Err returns the first error encountered, if any
func (c *Cursor) Err() error {
	return c.err
}

// Take returns the next n bytes and advances the cursor. The returned slice
// aliases the input.
func (c *Cursor) Take(n int) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	if n < 0 || n > c.Remaining() {
		c.err = errors.Wrapf(ErrTruncatedInput, "need %d bytes at offset %d, have %d",
			n, c.pos, c.Remaining())
		return nil, c.err
	}
	b := c.data[c.pos : c.pos+n : c.pos+n]
	c.pos += n
	return b, nil
}

// Finish checks that all input was consumed
func (c *Cursor) Finish() error {
	if c.err != nil {
		return c.err
	}
	if r := c.Remaining(); r > 0 {
		c.err = TrailingBytesError{Remaining: r}
	}
	return c.err
}

func (c *Cursor) U8() uint8 {
	b, err := c.Take(1)
	if err != nil {
		return 0
	}
	return b[0]
}

func (c *Cursor) U16() uint16 {
	b, err := c.Take(2)
	if err != nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (c *Cursor) U32() uint32 {
	b, err := c.Take(4)
	if err != nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (c *Cursor) U64() uint64 {
	b, err := c.Take(8)
	if err != nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (c *Cursor) I64() int64 {
	return int64(c.U64())
}

// I64Pair reads an [i64; 2], as used for sector coordinates
func (c *Cursor) I64Pair() [2]int64 {
	return [2]int64{c.I64(), c.I64()}
}

func (c *Cursor) Bool() bool {
	offset := c.pos
	v := c.U8()
	if c.err != nil {
		return false
	}
	switch v {
	case 0:
		return false
	case 1:
		return true
	}
	c.err = InvalidBoolError{Offset: offset, Value: v}
	return false
}

func (c *Cursor) Pubkey() account.Pubkey {
	var p account.Pubkey
	b, err := c.Take(account.PubkeySize)
	if err != nil {
		return p
	}
	copy(p[:], b)
	return p
}

// Text reads a NUL padded text field of n bytes. The text ends at the first
// NUL. Each maximal ill-formed subsequence of the UTF-8 is replaced with one
// U+FFFD, so "\xff\xfe" gives two and a truncated "\xe2\x82" gives one.
func (c *Cursor) Text(n int) string {
	b, err := c.Take(n)
	if err != nil {
		return ""
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b) + 8)
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			sb.WriteRune(utf8.RuneError)
			b = b[illFormedLen(b):]
			continue
		}
		sb.Write(b[:size])
		b = b[size:]
	}
	return sb.String()
}

// illFormedLen returns the length of the maximal prefix of b that starts a
// well-formed sequence without completing it. It is at least 1.
func illFormedLen(b []byte) int {
	lo, hi := byte(0x80), byte(0xbf)
	var need int
	switch lead := b[0]; {
	case lead >= 0xc2 && lead <= 0xdf:
		need = 1
	case lead == 0xe0:
		need, lo = 2, 0xa0
	case lead == 0xed:
		need, hi = 2, 0x9f
	case lead >= 0xe1 && lead <= 0xef:
		need = 2
	case lead == 0xf0:
		need, lo = 3, 0x90
	case lead == 0xf4:
		need, hi = 3, 0x8f
	case lead >= 0xf1 && lead <= 0xf3:
		need = 3
	default:
		return 1
	}
	n := 1
	for ; n <= need && n < len(b); n++ {
		if b[n] < lo || b[n] > hi {
			break
		}
		lo, hi = 0x80, 0xbf
	}
	return n
}
