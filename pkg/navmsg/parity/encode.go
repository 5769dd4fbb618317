package parity

import (
	"github.com/gnsskit/gonav/pkg/navmsg/bits"
	"github.com/goblimey/go-crc24q/crc24q"
)

// Encoders for the per-format checksums. The decoder core never encodes;
// these exist for building reference bitstreams in tests and simulators.

// EncodeLNAVWord computes the transmitted 30-bit word for 24 source data
// bits given the last two parity bits of the preceding word. The data bits
// are complemented on air when prevD30 is set, as IS-GPS-200 specifies.
func EncodeLNAVWord(src uint32, prevD29, prevD30 uint32) uint32 {
	d := src & 0xFFFFFF
	word := prevD29<<31 | prevD30<<30 | d<<6
	var par uint32
	for _, mask := range lnavParity {
		par = par<<1 | xorBits32(word&mask&^0x3F)
	}
	if prevD30 == 1 {
		d ^= 0xFFFFFF
	}
	return d<<6 | par
}

// EncodeLNAVFrame packs ten 24-bit source words into a parity-protected
// 300-bit LNAV subframe. The parity feedback bits are threaded through the
// words starting from zero.
func EncodeLNAVFrame(src [10]uint32) []byte {
	frame := make([]byte, 38)
	var d29, d30 uint32
	for w, s := range src {
		word := EncodeLNAVWord(s, d29, d30)
		for i := uint(0); i < 30; i++ {
			idx := uint(w)*30 + i
			if word>>(29-i)&1 == 1 {
				frame[idx/8] |= 1 << (7 - idx%8)
			}
		}
		d29 = word >> 1 & 1
		d30 = word & 1
	}
	return frame
}

// AppendCRC24 writes the CRC-24Q over the first nbits-24 bits of the frame
// into its trailing 24 bits.
func AppendCRC24(frame []byte, nbits uint) {
	dataBits := nbits - 24
	crc := crc24q.Hash(packRightAligned(frame, dataBits))
	for i := uint(0); i < 24; i++ {
		idx := dataBits + i
		if crc>>(23-i)&1 == 1 {
			frame[idx/8] |= 1 << (7 - idx%8)
		} else {
			frame[idx/8] &^= 1 << (7 - idx%8)
		}
	}
}

// EncodeGlonassString fills in the eight Hamming check bits (string
// positions 77..84) over the 77 data bits already present in the frame.
func EncodeGlonassString(frame []byte) {
	// Clear the check-bit positions first.
	for i := uint(77); i < 85; i++ {
		frame[i/8] &^= 1 << (7 - i%8)
	}
	// Rows 0..6 each own one check bit at positions 84 down to 78.
	for row := 0; row < 7; row++ {
		var cs byte
		for j := 0; j < 11; j++ {
			cs ^= xorBits8(frame[j] & gloMasks[row][j])
		}
		if cs == 1 {
			pos := uint(84 - row)
			frame[pos/8] |= 1 << (7 - pos%8)
		}
	}
	// Row 7 is the overall parity, balanced by position 77.
	var cs byte
	for j := 0; j < 11; j++ {
		cs ^= xorBits8(frame[j] & gloMasks[7][j])
	}
	if cs == 1 {
		frame[77/8] |= 1 << (7 - 77%8)
	}
}

// EncodeBDSWord interleaves 22 information bits into a BCH-protected 30-bit
// word as broadcast for subframe words 2..10.
func EncodeBDSWord(info uint32) uint32 {
	a := bchEncode(info >> 11 & 0x7FF)
	b := bchEncode(info & 0x7FF)
	return interleave(a, b)
}

// EncodeBDSWord1 protects the trailing 11 information bits of the first
// word; the leading 15 bits pass through uncoded.
func EncodeBDSWord1(head15, info11 uint32) uint32 {
	return head15<<15 | bchEncode(info11&0x7FF)
}

// EncodeBDSFrame assembles a 300-bit D1/D2 subframe from the word-1 parts
// and nine 22-bit information words, applying BCH coding and interleaving.
func EncodeBDSFrame(head15, info11 uint32, words [9]uint32) []byte {
	frame := make([]byte, 38)
	putWord30(frame, 0, EncodeBDSWord1(head15, info11))
	for w, info := range words {
		putWord30(frame, uint(w+1)*30, EncodeBDSWord(info))
	}
	return frame
}

// ExtractBDSInfo returns the 22 information bits of a de-interleaved word as
// produced by CheckBDS.
func ExtractBDSInfo(frame []byte, word uint) uint32 {
	return uint32(bits.Uint(frame, word*30, 22))
}
