// Package bits extracts integer fields from navigation-message bitstreams.
//
// Navigation messages are specified MSB-first: bit 0 is the most significant
// bit of the first byte. All readers and free functions follow that
// convention. Formats that interleave their words (BeiDou) are
// de-interleaved by the checksum layer before field extraction.
package bits

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is returned when a requested field exceeds the bits available.
var ErrOutOfRange = errors.New("bits: field out of range")

// Uint extracts an unsigned integer of length n starting at bit position pos.
// The caller must ensure pos+n does not exceed the buffer.
func Uint(buf []byte, pos, n uint) uint64 {
	var v uint64
	for i := pos; i < pos+n; i++ {
		v = (v << 1) | uint64(buf[i/8]>>(7-i%8)&1)
	}
	return v
}

// Int extracts a two's-complement signed integer of length n at bit position pos.
func Int(buf []byte, pos, n uint) int64 {
	v := Uint(buf, pos, n)
	if n == 0 || n >= 64 || v&(1<<(n-1)) == 0 {
		return int64(v)
	}
	return int64(v | ^uint64(0)<<n)
}

// SignMag extracts a sign-magnitude integer of length n at bit position pos:
// the first bit is the sign, the remaining n-1 bits the magnitude. GLONASS
// broadcasts its signed words this way.
func SignMag(buf []byte, pos, n uint) int64 {
	v := int64(Uint(buf, pos+1, n-1))
	if Uint(buf, pos, 1) == 1 {
		return -v
	}
	return v
}

// MergeU concatenates two unsigned fields, b being n bits wide.
func MergeU(a, b uint64, n uint) uint64 {
	return a<<n | b
}

// MergeS concatenates a signed MSB part with an unsigned n-bit LSB part.
func MergeS(a int64, b uint64, n uint) int64 {
	return a<<n | int64(b)
}

// P2 returns the power-of-two scale factor 2^exp.
func P2(exp int) float64 {
	return math.Ldexp(1, exp)
}

// ScaleUint applies a power-of-two scale factor to a raw unsigned field.
func ScaleUint(v uint64, exp int) float64 {
	return float64(v) * P2(exp)
}

// ScaleInt applies a power-of-two scale factor to a raw signed field.
func ScaleInt(v int64, exp int) float64 {
	return float64(v) * P2(exp)
}

// A Reader walks a bitstream with a cursor. Extraction methods advance the
// cursor by the field length. The first failed extraction latches an
// ErrOutOfRange and all later reads return zero; decoders check Err once at
// the end, like a bufio.Scanner.
type Reader struct {
	buf  []byte
	size uint // stream length in bits, may be shorter than len(buf)*8
	pos  uint
	err  error
}

// NewReader returns a Reader over the first size bits of buf.
func NewReader(buf []byte, size uint) *Reader {
	if max := uint(len(buf)) * 8; size > max {
		size = max
	}
	return &Reader{buf: buf, size: size}
}

// Len returns the stream length in bits.
func (r *Reader) Len() uint { return r.size }

// Pos returns the current cursor position.
func (r *Reader) Pos() uint { return r.pos }

// Err returns the first extraction error, if any.
func (r *Reader) Err() error { return r.err }

// Seek moves the cursor to an absolute bit position.
func (r *Reader) Seek(pos uint) {
	if pos > r.size {
		r.setErr(pos)
		return
	}
	r.pos = pos
}

// Skip advances the cursor by n bits without extracting anything. Unlike
// the extraction methods, n is not capped at 64.
func (r *Reader) Skip(n uint) {
	if r.err != nil {
		return
	}
	if r.pos+n > r.size {
		r.setErr(r.pos + n)
		return
	}
	r.pos += n
}

// Uint extracts an unsigned integer of n bits, 1 <= n <= 64.
func (r *Reader) Uint(n uint) uint64 {
	if !r.ensure(n) {
		return 0
	}
	v := Uint(r.buf, r.pos, n)
	r.pos += n
	return v
}

// Int extracts a two's-complement signed integer of n bits.
func (r *Reader) Int(n uint) int64 {
	if !r.ensure(n) {
		return 0
	}
	v := Int(r.buf, r.pos, n)
	r.pos += n
	return v
}

// SignMag extracts a sign-magnitude signed integer of n bits.
func (r *Reader) SignMag(n uint) int64 {
	if !r.ensure(n) {
		return 0
	}
	v := SignMag(r.buf, r.pos, n)
	r.pos += n
	return v
}

func (r *Reader) ensure(n uint) bool {
	if r.err != nil {
		return false
	}
	if n > 64 || r.pos+n > r.size {
		r.setErr(r.pos + n)
		return false
	}
	return true
}

func (r *Reader) setErr(end uint) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: need bit %d of %d", ErrOutOfRange, end, r.size)
	}
}
