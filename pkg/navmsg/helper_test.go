package navmsg

import (
	"github.com/gnsskit/gonav/pkg/gnss"
	"github.com/gnsskit/gonav/pkg/navmsg/bits"
	"github.com/gnsskit/gonav/pkg/navmsg/parity"
)

// frameBuilder writes MSB-first bit fields into a fixed-size buffer.
type frameBuilder struct {
	buf []byte
	pos uint
}

func newFrame(nbits uint) *frameBuilder {
	return &frameBuilder{buf: make([]byte, (nbits+7)/8)}
}

func (b *frameBuilder) putAt(pos uint, v uint64, n uint) {
	for i := uint(0); i < n; i++ {
		p := pos + i
		mask := byte(1 << (7 - p%8))
		if v>>(n-1-i)&1 == 1 {
			b.buf[p/8] |= mask
		} else {
			b.buf[p/8] &^= mask
		}
	}
}

func (b *frameBuilder) put(v uint64, n uint) {
	b.putAt(b.pos, v, n)
	b.pos += n
}

func (b *frameBuilder) putInt(v int64, n uint) {
	b.put(uint64(v)&(1<<n-1), n)
}

func (b *frameBuilder) putIntAt(pos uint, v int64, n uint) {
	b.putAt(pos, uint64(v)&(1<<n-1), n)
}

// putU2 and putS2 write a value split into two bit ranges, matching the
// BeiDou split-field layout.
func (b *frameBuilder) putU2(v uint64, p1, n1, p2, n2 uint) {
	b.putAt(p1, v>>n2, n1)
	b.putAt(p2, v&(1<<n2-1), n2)
}

func (b *frameBuilder) putS2(v int64, p1, n1, p2, n2 uint) {
	b.putU2(uint64(v)&(1<<(n1+n2)-1), p1, n1, p2, n2)
}

func (b *frameBuilder) putU3(v uint64, p1, n1, p2, n2, p3, n3 uint) {
	b.putU2(v>>n3, p1, n1, p2, n2)
	b.putAt(p3, v&(1<<n3-1), n3)
}

func (b *frameBuilder) putS3(v int64, p1, n1, p2, n2, p3, n3 uint) {
	b.putU3(uint64(v)&(1<<(n1+n2+n3)-1), p1, n1, p2, n2, p3, n3)
}

// putSignMag writes a sign-magnitude field as used by the GLONASS strings.
func (b *frameBuilder) putSignMag(v int64, n uint) {
	var sign uint64
	if v < 0 {
		sign = 1
		v = -v
	}
	b.put(sign<<(n-1)|uint64(v), n)
}

// lnavFrame encodes 240 data bits into a 300-bit subframe with word
// parities.
func lnavFrame(data []byte) []byte {
	var words [10]uint32
	for w := uint(0); w < 10; w++ {
		words[w] = uint32(bits.Uint(data, 24*w, 24))
	}
	return parity.EncodeLNAVFrame(words)
}

// lnavHeader fills the telemetry and handover words.
func lnavHeader(b *frameBuilder, tow uint64, id uint64) {
	b.putAt(0, 0x8B, 8)
	b.putAt(24, tow, 17)
	b.putAt(43, id, 3)
}

// inavFrame packs a 128-bit word into a nominal page pair with CRC.
func inavFrame(word []byte) []byte {
	b := newFrame(220)
	b.putAt(114, 1, 1) // odd part marker
	for i := uint(0); i < 112; i++ {
		b.putAt(2+i, bits.Uint(word, i, 1), 1)
	}
	b.putAt(116, bits.Uint(word, 112, 16), 16)
	parity.AppendCRC24(b.buf, 220)
	return b.buf
}

// bdsFrame encodes a 300-bit plain subframe layout into its broadcast
// form with BCH checksums and interleaving.
func bdsFrame(plain []byte) []byte {
	head15 := uint32(bits.Uint(plain, 0, 15))
	info11 := uint32(bits.Uint(plain, 15, 11))
	var words [9]uint32
	for w := uint(1); w < 10; w++ {
		words[w-1] = uint32(bits.Uint(plain, 30*w, 22))
	}
	return parity.EncodeBDSFrame(head15, info11, words)
}

func mustPRN(s string) gnss.PRN {
	prn, err := gnss.ParsePRN(s)
	if err != nil {
		panic(err)
	}
	return prn
}
