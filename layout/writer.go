package layout

import (
	"encoding/binary"

	"github.com/sagestream/sagestream/account"
)

// Writer is the inverse of Cursor
type Writer struct {
	buf []byte
}

func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, 0, size)}
}

// Bytes returns the written data
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) U16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) U32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) U64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) I64(v int64) {
	w.U64(uint64(v))
}

func (w *Writer) I64Pair(v [2]int64) {
	w.I64(v[0])
	w.I64(v[1])
}

func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
	} else {
		w.U8(0)
	}
}

func (w *Writer) Pubkey(p account.Pubkey) {
	w.buf = append(w.buf, p[:]...)
}

// Text writes s into an n byte field padded with NULs. Longer text is
// truncated.
func (w *Writer) Text(s string, n int) {
	b := make([]byte, n)
	copy(b, s)
	w.buf = append(w.buf, b...)
}
