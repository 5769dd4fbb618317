package parity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lnavTestFrame() []byte {
	// Preamble 0x8B in word 1, arbitrary but fixed payload elsewhere.
	var src [10]uint32
	src[0] = 0x8B0000 | 0x1234
	src[1] = 0x2AAAAA
	for i := 2; i < 10; i++ {
		src[i] = uint32(i) * 0x012345 % 0xFFFFFF
	}
	return EncodeLNAVFrame(src)
}

func TestCheckLNAV(t *testing.T) {
	frame := lnavTestFrame()

	data, err := CheckLNAV(frame)
	require.NoError(t, err)
	require.Len(t, data, 30)
	assert.Equal(t, byte(0x8B), data[0], "preamble survives parity stripping")
	assert.Equal(t, byte(0x2A), data[3], "word 2 data")
}

func TestCheckLNAV_SingleBitCorrected(t *testing.T) {
	frame := lnavTestFrame()
	want, err := CheckLNAV(frame)
	require.NoError(t, err)

	// Flip one data bit in word 4.
	frame[12] ^= 0x10
	got, err := CheckLNAV(frame)
	require.NoError(t, err, "single flipped bit must be corrected")
	assert.Equal(t, want, got, "corrected frame matches the original")
}

func TestCheckLNAV_DoubleBitFails(t *testing.T) {
	frame := lnavTestFrame()
	// Two flipped bits in the same word.
	frame[12] ^= 0x10
	frame[13] ^= 0x02

	_, err := CheckLNAV(frame)
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Word)
}

func TestCheckLNAV_InvertedWords(t *testing.T) {
	// Force D30 of word 1 to one so that word 2 is transmitted inverted,
	// then make sure the source bits come back uninverted.
	for probe := uint32(0); probe < 64; probe++ {
		var src [10]uint32
		src[0] = 0x8B0000 | probe
		src[1] = 0x00F00F
		frame := EncodeLNAVFrame(src)
		data, err := CheckLNAV(frame)
		require.NoError(t, err)
		assert.Equal(t, byte(0x00), data[3])
		assert.Equal(t, byte(0xF0), data[4])
		assert.Equal(t, byte(0x0F), data[5])
	}
}

func TestCheckCRC24(t *testing.T) {
	// Galileo I/NAV geometry: 196 data bits + 24 CRC bits.
	frame := make([]byte, 28)
	for i := range frame[:24] {
		frame[i] = byte(i * 37)
	}
	AppendCRC24(frame, 220)

	assert.NoError(t, CheckCRC24(frame, 220))

	frame[5] ^= 0x40
	err := CheckCRC24(frame, 220)
	require.Error(t, err)
	var perr *Error
	assert.ErrorAs(t, err, &perr)
}

func TestCheckCRC24_ByteAligned(t *testing.T) {
	// CNAV2 subframe 2: 576 data bits + 24 CRC bits.
	frame := make([]byte, 75)
	for i := range frame[:72] {
		frame[i] = byte(255 - i)
	}
	AppendCRC24(frame, 600)
	assert.NoError(t, CheckCRC24(frame, 600))
}

func TestCheckGlonass(t *testing.T) {
	frame := make([]byte, 11)
	// String number 1, some payload.
	frame[0] = 0x08 // idle 0, m=0001
	frame[2] = 0xDE
	frame[6] = 0x77
	EncodeGlonassString(frame)

	assert.NoError(t, CheckGlonass(frame))

	bad := make([]byte, 11)
	copy(bad, frame)
	bad[4] ^= 0x20
	assert.Error(t, CheckGlonass(bad))
}

func TestCheckBDS(t *testing.T) {
	var words [9]uint32
	for i := range words {
		words[i] = uint32(i+1) * 0x03579B % 0x3FFFFF
	}
	frame := EncodeBDSFrame(0x712, 0x4D2, words)

	plain, err := CheckBDS(frame)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x712), uint32(plain[0])<<7|uint32(plain[1])>>1, "word 1 head passes through")
	for i, want := range words {
		assert.Equal(t, want, ExtractBDSInfo(plain, uint(i+1)), "word %d info", i+2)
	}
}

func TestCheckBDS_CorruptWord(t *testing.T) {
	var words [9]uint32
	frame := EncodeBDSFrame(0x712, 0, words)
	frame[9] ^= 0x01 // inside word 3

	_, err := CheckBDS(frame)
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Word)
}

func TestBCHRoundTrip(t *testing.T) {
	for info := uint32(0); info < 1<<11; info++ {
		block := bchEncode(info)
		assert.Equal(t, uint32(0), bchSyndrome(block))

		// Any single-bit error must be detected.
		if info%97 == 0 {
			for b := 0; b < 15; b++ {
				assert.NotEqual(t, uint32(0), bchSyndrome(block^1<<b))
			}
		}
	}
}

func TestInterleaveRoundTrip(t *testing.T) {
	a, b := uint32(0x5ACE), uint32(0x2731)
	word := interleave(a&0x7FFF, b&0x7FFF)
	gotA, gotB := deinterleave(word)
	assert.Equal(t, a&0x7FFF, gotA)
	assert.Equal(t, b&0x7FFF, gotB)
}
