package navmsg

import (
	"math"
	"testing"
	"time"

	"github.com/gnsskit/gonav/pkg/navmsg/parity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gloString(fill func(b *frameBuilder)) []byte {
	b := newFrame(85)
	fill(b)
	parity.EncodeGlonassString(b.buf)
	return b.buf
}

func gloString1() []byte {
	return gloString(func(b *frameBuilder) {
		b.put(0, 1) // idle chip
		b.put(1, 4)
		b.put(0, 2)
		b.put(0, 2) // P1
		b.put(7, 5) // tk hours
		b.put(0, 6)
		b.put(0, 1)
		b.putSignMag(-524288, 24)  // vx, -500 m/s
		b.putSignMag(0, 5)         // ax
		b.putSignMag(24576000, 27) // x, 12000 km
	})
}

func gloString2() []byte {
	return gloString(func(b *frameBuilder) {
		b.put(0, 1)
		b.put(2, 4)
		b.put(0, 3)  // Bn
		b.put(0, 1)  // P2
		b.put(42, 7) // tb
		b.put(0, 5)
		b.putSignMag(262144, 24)    // vy, 250 m/s
		b.putSignMag(0, 5)          // ay
		b.putSignMag(-20480000, 27) // y, -10000 km
	})
}

func gloString3() []byte {
	return gloString(func(b *frameBuilder) {
		b.put(0, 1)
		b.put(3, 4)
		b.put(1, 1)         // P3
		b.putSignMag(5, 11) // gamma
		b.put(0, 1)
		b.put(0, 2) // P
		b.put(0, 1) // ln
		b.putSignMag(0, 24)       // vz
		b.putSignMag(0, 5)        // az
		b.putSignMag(2048000, 27) // z, 1000 km
	})
}

func gloString4() []byte {
	return gloString(func(b *frameBuilder) {
		b.put(0, 1)
		b.put(4, 4)
		b.putSignMag(-(1 << 19), 22) // tau
		b.putSignMag(3, 5)           // delta tau
		b.put(1, 5)                  // En
		b.put(0, 14)
		b.put(1, 1) // P4
		b.put(2, 4) // FT
		b.put(0, 3)
		b.put(500, 11) // NT
		b.put(5, 5)    // slot
		b.put(1, 2)    // M
	})
}

var gloRecv = time.Date(2026, 8, 29, 7, 30, 0, 0, time.UTC)

func TestDecoder_Glonass(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dec := NewDecoder()
	prn := mustPRN("R05")

	strings := [][]byte{gloString1(), gloString2(), gloString3(), gloString4()}
	var eph Ephemeris
	for i, str := range strings {
		var err error
		eph, err = dec.Submit(RawFrame{SigGLO, prn, gloRecv.Add(time.Duration(i) * 2 * time.Second), str})
		require.NoError(err)
		if i < len(strings)-1 {
			require.Nil(eph)
		}
	}
	require.NotNil(eph)

	glo, ok := eph.(*EphGlonass)
	assert.True(ok)
	assert.Equal(prn, glo.PRN)
	assert.Equal(42, glo.Tb)
	assert.Equal(42, glo.GetIOD())
	assert.Equal(gloRecv, glo.TOC)

	assert.Equal(12000e3, glo.X)
	assert.Equal(-10000e3, glo.Y)
	assert.Equal(1000e3, glo.Z)
	assert.Equal(-500.0, glo.VX)
	assert.Equal(250.0, glo.VY)
	assert.Equal(0.0, glo.VZ)

	assert.Equal(-math.Ldexp(1, -11), glo.TauN)
	assert.Equal(5*math.Ldexp(1, -40), glo.GammaN)
	assert.Equal(3*math.Ldexp(1, -30), glo.DeltaTau)
	assert.Equal(0, glo.Health)
	assert.Equal(1, glo.Age)
	assert.Equal(5, glo.Slot)
	assert.False(glo.Suspect)

	start, end := glo.ValidityWindow()
	assert.Equal(gloRecv.Add(-15*time.Minute), start)
	assert.Equal(gloRecv.Add(15*time.Minute), end)
}

func TestDecoder_GlonassString1Restarts(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dec := NewDecoder()
	prn := mustPRN("R12")

	_, err := dec.Submit(RawFrame{SigGLO, prn, gloRecv, gloString1()})
	require.NoError(err)
	_, err = dec.Submit(RawFrame{SigGLO, prn, gloRecv, gloString2()})
	require.NoError(err)
	_, err = dec.Submit(RawFrame{SigGLO, prn, gloRecv, gloString3()})
	require.NoError(err)
	assert.Equal(3, dec.Pending(SigGLO, prn))

	// a new string 1 marks the next frame and restarts collection
	_, err = dec.Submit(RawFrame{SigGLO, prn, gloRecv.Add(30 * time.Second), gloString1()})
	require.NoError(err)
	assert.Equal(1, dec.Pending(SigGLO, prn))

	for _, str := range [][]byte{gloString2(), gloString3()} {
		_, err = dec.Submit(RawFrame{SigGLO, prn, gloRecv.Add(32 * time.Second), str})
		require.NoError(err)
	}
	eph, err := dec.Submit(RawFrame{SigGLO, prn, gloRecv.Add(36 * time.Second), gloString4()})
	require.NoError(err)
	assert.NotNil(eph)
}

func TestDecoder_GlonassChecksum(t *testing.T) {
	assert := assert.New(t)

	dec := NewDecoder()
	str := gloString1()
	str[3] ^= 0x10
	_, err := dec.Submit(RawFrame{SigGLO, mustPRN("R05"), gloRecv, str})
	assert.ErrorIs(err, ErrChecksumMismatch)
}
