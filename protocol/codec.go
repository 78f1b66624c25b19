package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the fixed frame header length: type (1 byte) + payload
// length (4 bytes, big-endian).
const HeaderSize = 5

// MaxPayload caps the declared payload length; anything larger than a UDP
// datagram can carry is rejected outright.
const MaxPayload = 64 * 1024

// ErrFrame is returned for malformed or truncated frames. Callers drop the
// datagram without responding.
var ErrFrame = errors.New("protocol: malformed frame")

// EncodeFrame builds a complete frame: header followed by payload.
func EncodeFrame(t MsgType, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	buf[0] = byte(t)
	binary.BigEndian.PutUint32(buf[1:HeaderSize], uint32(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf
}

// DecodeFrame recovers (type, payload) from raw bytes. The declared length
// must match the remaining bytes exactly.
func DecodeFrame(raw []byte) (MsgType, []byte, error) {
	if len(raw) < HeaderSize {
		return 0, nil, fmt.Errorf("%w: %d bytes, want at least %d", ErrFrame, len(raw), HeaderSize)
	}
	t := MsgType(raw[0])
	n := binary.BigEndian.Uint32(raw[1:HeaderSize])
	if n > MaxPayload {
		return 0, nil, fmt.Errorf("%w: declared payload %d exceeds limit", ErrFrame, n)
	}
	if int(n) != len(raw)-HeaderSize {
		return 0, nil, fmt.Errorf("%w: declared payload %d, got %d", ErrFrame, n, len(raw)-HeaderSize)
	}
	return t, raw[HeaderSize:], nil
}

// Writer builds payloads field by field. All integers are big-endian;
// strings are NUL-terminated.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty payload writer.
func NewWriter() *Writer { return &Writer{} }

// Uint32 appends a big-endian uint32.
func (w *Writer) Uint32(v uint32) *Writer {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
	return w
}

// Byte appends a single byte.
func (w *Writer) Byte(v byte) *Writer {
	w.buf.WriteByte(v)
	return w
}

// Bool appends 1 or 0.
func (w *Writer) Bool(v bool) *Writer {
	if v {
		return w.Byte(1)
	}
	return w.Byte(0)
}

// CString appends a NUL-terminated string. Embedded NULs are not allowed by
// the wire format and are truncated at the first NUL on read.
func (w *Writer) CString(s string) *Writer {
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
	return w
}

// Tail appends raw bytes occupying the remainder of the payload. Must be the
// final field.
func (w *Writer) Tail(b []byte) *Writer {
	w.buf.Write(b)
	return w
}

// Bytes returns the accumulated payload.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Reader consumes a payload field by field. The first malformed field poisons
// the reader; Err reports it after all reads.
type Reader struct {
	rest []byte
	err  error
}

// NewReader wraps a payload for field-wise reading.
func NewReader(payload []byte) *Reader { return &Reader{rest: payload} }

// Uint32 consumes a big-endian uint32.
func (r *Reader) Uint32() uint32 {
	if r.err != nil {
		return 0
	}
	if len(r.rest) < 4 {
		r.err = fmt.Errorf("%w: truncated uint32", ErrFrame)
		return 0
	}
	v := binary.BigEndian.Uint32(r.rest[:4])
	r.rest = r.rest[4:]
	return v
}

// Byte consumes a single byte.
func (r *Reader) Byte() byte {
	if r.err != nil {
		return 0
	}
	if len(r.rest) < 1 {
		r.err = fmt.Errorf("%w: truncated byte", ErrFrame)
		return 0
	}
	v := r.rest[0]
	r.rest = r.rest[1:]
	return v
}

// Bool consumes a flag byte; any non-zero value is true.
func (r *Reader) Bool() bool { return r.Byte() != 0 }

// CString consumes a NUL-terminated string.
func (r *Reader) CString() string {
	if r.err != nil {
		return ""
	}
	i := bytes.IndexByte(r.rest, 0)
	if i < 0 {
		r.err = fmt.Errorf("%w: unterminated string", ErrFrame)
		return ""
	}
	s := string(r.rest[:i])
	r.rest = r.rest[i+1:]
	return s
}

// Tail consumes the remainder of the payload.
func (r *Reader) Tail() []byte {
	if r.err != nil {
		return nil
	}
	b := r.rest
	r.rest = nil
	return b
}

// Remaining reports how many unread bytes are left.
func (r *Reader) Remaining() int { return len(r.rest) }

// Err returns the first decode error, if any.
func (r *Reader) Err() error { return r.err }
