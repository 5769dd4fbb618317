// Package parity verifies the per-format checksums of GNSS navigation frames.
//
// Each constellation protects its broadcast differently: GPS LNAV and the
// BeiDou D1/D2 signals checksum every 30-bit word (Hamming-style parity and
// BCH(15,11,1) respectively), GLONASS protects the whole 85-bit string with a
// Hamming code, and Galileo I/NAV, F/NAV as well as GPS CNAV/CNAV2 append a
// CRC-24Q. Checks never modify their input; where the interface control
// document mandates it (GPS LNAV), a single flipped bit is corrected in the
// returned copy.
package parity

import (
	"fmt"

	"github.com/gnsskit/gonav/pkg/navmsg/bits"
	"github.com/goblimey/go-crc24q/crc24q"
)

// Error reports a failed checksum. Word is the zero-based index of the
// failing word or coding block within the frame.
type Error struct {
	Word int
}

func (e *Error) Error() string {
	return fmt.Sprintf("checksum mismatch in word %d", e.Word)
}

// GPS LNAV parity coefficients for D25..D30 over (D29*, D30*, d1..d24),
// IS-GPS-200 table 20-XIV. Bit 31 is D29*, bit 30 is D30*, bits 29..6 the
// source data bits.
var lnavParity = [6]uint32{
	0xBB1F3480, 0x5D8F9A40, 0xAEC7CD00, 0x5763E680, 0x6BB1F340, 0x8B7A89C0,
}

func xorBits32(v uint32) uint32 {
	v ^= v >> 16
	v ^= v >> 8
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return v & 1
}

// lnavWordOK verifies one 30-bit word against the parity bits it carries.
// The word is given as (D29*, D30*, D1..D30) in the low 32 bits. The data
// bits are complemented on air when D30* is set; the parity equations hold
// over the source bits, so the inversion is undone before checking.
func lnavWordOK(full uint32) bool {
	if full&0x40000000 != 0 {
		full ^= 0x3FFFFFC0
	}
	var parity uint32
	for _, mask := range lnavParity {
		parity = parity<<1 | xorBits32(full&mask&^0x3F)
	}
	return parity == full&0x3F
}

// CheckLNAV verifies the ten 30-bit words of a 300-bit GPS LNAV subframe and
// returns the 240 source data bits with parity stripped and the D30*
// inversion undone. A word with a single flipped bit is corrected as
// IS-GPS-200 permits; two or more flipped bits in one word yield an *Error
// with that word's index.
func CheckLNAV(frame []byte) ([]byte, error) {
	if len(frame) < 38 {
		return nil, fmt.Errorf("LNAV subframe too short: %d bytes", len(frame))
	}
	data := make([]byte, 30)
	var d29, d30 uint32
	for w := 0; w < 10; w++ {
		word := uint32(bits.Uint(frame, uint(w)*30, 30))
		full := d29<<31 | d30<<30 | word
		if !lnavWordOK(full) {
			var ok bool
			if full, ok = correctLNAVWord(full); !ok {
				return nil, &Error{Word: w}
			}
		}
		norm := full
		if norm&0x40000000 != 0 {
			norm ^= 0x3FFFFFC0
		}
		src := norm >> 6 & 0xFFFFFF
		data[w*3] = byte(src >> 16)
		data[w*3+1] = byte(src >> 8)
		data[w*3+2] = byte(src)
		d29 = full >> 1 & 1
		d30 = full & 1
	}
	return data, nil
}

// correctLNAVWord flips each of the 32 bits in turn and returns the first
// variant that passes parity. The code distance rules out a false correction
// for double-bit errors.
func correctLNAVWord(full uint32) (uint32, bool) {
	for i := 0; i < 32; i++ {
		try := full ^ 1<<i
		if lnavWordOK(try) {
			return try, true
		}
	}
	return 0, false
}

// CheckCRC24 verifies a trailing CRC-24Q over the first nbits-24 bits of the
// frame. Galileo I/NAV (196+24 bits), F/NAV (214+24), GPS CNAV (276+24) and
// CNAV2 (576+24) all use this code. Returns an *Error with word index 0 on
// mismatch.
func CheckCRC24(frame []byte, nbits uint) error {
	if nbits < 24 || uint(len(frame))*8 < nbits {
		return fmt.Errorf("CRC-24Q frame too short: %d bytes for %d bits", len(frame), nbits)
	}
	dataBits := nbits - 24
	block := packRightAligned(frame, dataBits)
	want := uint32(bits.Uint(frame, dataBits, 24))
	if crc24q.Hash(block) != want {
		return &Error{Word: 0}
	}
	return nil
}

// packRightAligned packs the first n bits of frame into a byte slice padded
// with leading zero bits to a byte boundary. CRC-24Q starts from a zero
// register, so leading zero bits do not alter the checksum.
func packRightAligned(frame []byte, n uint) []byte {
	nbytes := (n + 7) / 8
	pad := nbytes*8 - n
	out := make([]byte, nbytes)
	for i := uint(0); i < n; i++ {
		if bits.Uint(frame, i, 1) == 1 {
			idx := pad + i
			out[idx/8] |= 1 << (7 - idx%8)
		}
	}
	return out
}

// GLONASS Hamming code checks, adapted from the KX algorithm of the GLONASS
// ICD. Rows 0..6 are the seven code checksums, row 7 the overall parity.
// Check bits live at string positions 77..84 (ICD bits 8..1).
var gloMasks = [8][11]byte{
	{0x55, 0x55, 0x5A, 0xAA, 0xAA, 0xAA, 0xB5, 0x55, 0x6A, 0xD8, 0x08},
	{0x66, 0x66, 0x6C, 0xCC, 0xCC, 0xCC, 0xD9, 0x99, 0xB3, 0x68, 0x10},
	{0x87, 0x87, 0x8F, 0x0F, 0x0F, 0x0F, 0x1E, 0x1E, 0x3C, 0x70, 0x20},
	{0x07, 0xF8, 0x0F, 0xF0, 0x0F, 0xF0, 0x1F, 0xE0, 0x3F, 0x80, 0x40},
	{0xF8, 0x00, 0x0F, 0xFF, 0xF0, 0x00, 0x1F, 0xFF, 0xC0, 0x00, 0x80},
	{0x00, 0x00, 0x0F, 0xFF, 0xFF, 0xFF, 0xE0, 0x00, 0x00, 0x01, 0x00},
	{0xFF, 0xFF, 0xF0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 0x00},
	{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xF8},
}

func xorBits8(v byte) byte {
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return v & 1
}

// CheckGlonass verifies the Hamming code of an 85-bit GLONASS string held in
// the first 11 bytes of frame.
func CheckGlonass(frame []byte) error {
	if len(frame) < 11 {
		return fmt.Errorf("GLONASS string too short: %d bytes", len(frame))
	}
	for row := 0; row < 8; row++ {
		var cs byte
		for j := 0; j < 11; j++ {
			cs ^= xorBits8(frame[j] & gloMasks[row][j])
		}
		if cs != 0 {
			return &Error{Word: 0}
		}
	}
	return nil
}

// BeiDou BCH(15,11,1) with generator x^4 + x + 1. Each 30-bit word of a D1/D2
// subframe carries two interleaved 15-bit code blocks, except the first word
// whose leading 15 bits (preamble and reserved) are sent uncoded.

// bchSyndrome divides the 15-bit block by the generator and returns the
// 4-bit remainder; zero means the block is consistent.
func bchSyndrome(block uint32) uint32 {
	reg := block
	for i := 14; i >= 4; i-- {
		if reg&(1<<i) != 0 {
			reg ^= 0x13 << (i - 4) // x^4 + x + 1
		}
	}
	return reg & 0xF
}

// bchEncode appends the 4 parity bits to an 11-bit information block.
func bchEncode(info uint32) uint32 {
	block := info << 4
	return block | bchSyndrome(block)
}

// deinterleave splits a 30-bit word read MSB-first into its two 15-bit
// blocks. Bits alternate between the blocks on air.
func deinterleave(word uint32) (a, b uint32) {
	for i := 29; i >= 0; i-- {
		bit := word >> i & 1
		if i%2 == 1 {
			a = a<<1 | bit
		} else {
			b = b<<1 | bit
		}
	}
	return a, b
}

func interleave(a, b uint32) uint32 {
	var word uint32
	for i := 14; i >= 0; i-- {
		word = word<<2 | (a>>i&1)<<1 | b>>i&1
	}
	return word
}

// CheckBDS verifies the BCH blocks of a 300-bit BeiDou D1/D2 subframe as
// broadcast (words 2..10 interleaved) and returns the subframe with all
// words de-interleaved, in the layout the frame decoders expect:
// word 1 unchanged, words 2..10 as 22 information bits followed by the two
// 4-bit parity fields.
func CheckBDS(frame []byte) ([]byte, error) {
	if len(frame) < 38 {
		return nil, fmt.Errorf("BDS subframe too short: %d bytes", len(frame))
	}
	out := make([]byte, 38)
	copy(out, frame[:38])

	// Word 1: leading 15 bits uncoded, trailing 15 bits one BCH block.
	w1 := uint32(bits.Uint(frame, 0, 30))
	if bchSyndrome(w1&0x7FFF) != 0 {
		return nil, &Error{Word: 0}
	}
	for w := 1; w < 10; w++ {
		word := uint32(bits.Uint(frame, uint(w)*30, 30))
		a, b := deinterleave(word)
		if bchSyndrome(a) != 0 || bchSyndrome(b) != 0 {
			return nil, &Error{Word: w}
		}
		// 22 info bits, then parity of both blocks.
		plain := a>>4<<19 | b>>4<<8 | (a&0xF)<<4 | b&0xF
		putWord30(out, uint(w)*30, plain)
	}
	return out, nil
}

func putWord30(buf []byte, pos uint, word uint32) {
	for i := uint(0); i < 30; i++ {
		idx := pos + i
		if word>>(29-i)&1 == 1 {
			buf[idx/8] |= 1 << (7 - idx%8)
		} else {
			buf[idx/8] &^= 1 << (7 - idx%8)
		}
	}
}
