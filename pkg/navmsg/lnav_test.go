package navmsg

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lnavSubframe1 returns a 300-bit subframe 1 for IODC 0x123.
func lnavSubframe1(tow uint64) []byte {
	b := newFrame(240)
	lnavHeader(b, tow, 1)
	b.putAt(48, 290, 10) // week
	b.putAt(58, 1, 2)    // codes on L2
	b.putAt(60, 2, 4)    // URA
	b.putAt(64, 0, 6)    // health
	b.putAt(70, 1, 2) // IODC high bits
	b.putIntAt(160, -10, 8)
	b.putAt(168, 0x23, 8)  // IODC low bits
	b.putAt(176, 5400, 16) // toc
	b.putAt(192, 0, 8)
	b.putIntAt(200, -2, 16)
	b.putAt(216, 1<<20, 22)
	return lnavFrame(b.buf)
}

func lnavSubframe2(tow uint64) []byte {
	b := newFrame(240)
	lnavHeader(b, tow, 2)
	b.putAt(48, 0x23, 8) // IODE
	b.putAt(56, 160, 16) // crs
	b.putAt(72, 1<<13, 16)
	b.putAt(88, 1<<29, 32) // m0
	b.putIntAt(120, -1024, 16)
	b.putAt(136, 1<<26, 32) // e
	b.putAt(168, 1<<10, 16) // cus
	b.putAt(184, 5153<<19, 32)
	b.putAt(216, 5400, 16) // toe
	return lnavFrame(b.buf)
}

func lnavSubframe3(tow uint64) []byte {
	b := newFrame(240)
	lnavHeader(b, tow, 3)
	b.putIntAt(64, -(1 << 29), 32) // omega0
	b.putAt(96, 1<<9, 16)          // cis
	b.putAt(112, 644245094, 32)    // i0
	b.putAt(144, 320, 16)          // crc
	b.putAt(160, 1<<28, 32)        // omega
	b.putIntAt(192, -4096, 24)     // omegadot
	b.putAt(216, 0x23, 8)          // IODE
	b.putAt(224, 8, 14)            // idot
	return lnavFrame(b.buf)
}

// lnavRecv is a receipt time consistent with broadcast week 290 of the
// third rollover cycle.
var lnavRecv = gpsTime(2338, 86400)

func submitLNAVSet(t *testing.T, dec *Decoder, prn string, recv time.Time) Ephemeris {
	t.Helper()
	require := require.New(t)

	eph, err := dec.Submit(RawFrame{SigLNAV, mustPRN(prn), recv, lnavSubframe1(14400)})
	require.NoError(err)
	require.Nil(eph)
	eph, err = dec.Submit(RawFrame{SigLNAV, mustPRN(prn), recv.Add(6 * time.Second), lnavSubframe2(14401)})
	require.NoError(err)
	require.Nil(eph)
	eph, err = dec.Submit(RawFrame{SigLNAV, mustPRN(prn), recv.Add(12 * time.Second), lnavSubframe3(14402)})
	require.NoError(err)
	require.NotNil(eph)
	return eph
}

func TestDecoder_LNAV(t *testing.T) {
	assert := assert.New(t)

	dec := NewDecoder()
	eph := submitLNAVSet(t, dec, "G05", lnavRecv)

	kep, ok := eph.(*EphKepler)
	assert.True(ok)
	assert.Equal(mustPRN("G05"), kep.PRN)
	assert.Equal(SigLNAV, kep.Sig)
	assert.Equal(0x23, kep.IOD)
	assert.Equal(0x123, kep.IODC)

	assert.Equal(2338, kep.ToeWeek)
	assert.Equal(86400.0, kep.Toe)
	assert.Equal(gpsTime(2338, 86400), kep.TOC)
	assert.Equal(math.Ldexp(1, -11), kep.ClockBias)
	assert.Equal(-math.Ldexp(1, -42), kep.ClockDrift)
	assert.Equal(-10*math.Ldexp(1, -31), kep.TGD)

	assert.Equal(5.0, kep.Crs)
	assert.Equal(10.0, kep.Crc)
	assert.Equal(math.Pi*math.Ldexp(1, -30), kep.DeltaN)
	assert.Equal(math.Pi/4, kep.M0)
	assert.Equal(-math.Ldexp(1, -19), kep.Cuc)
	assert.Equal(math.Ldexp(1, -19), kep.Cus)
	assert.Equal(math.Ldexp(1, -7), kep.Ecc)
	assert.Equal(5153.0, kep.SqrtA)
	assert.Equal(-math.Pi/4, kep.Omega0)
	assert.Equal(math.Pi/8, kep.Omega)
	assert.InDelta(0.3*math.Pi, kep.I0, 1e-6)
	assert.Equal(math.Ldexp(1, -20), kep.Cis)
	assert.Equal(0.0, kep.Cic)

	assert.Equal(2, kep.URA)
	assert.Equal(uint64(0), kep.Health)
	assert.Equal(4.0, kep.FitInterval)
	assert.False(kep.Suspect)

	start, end := kep.ValidityWindow()
	assert.Equal(gpsTime(2338, 86400-7200), start)
	assert.Equal(gpsTime(2338, 86400+7200), end)
}

func TestDecoder_LNAVDuplicateSubframe(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dec := NewDecoder()
	prn := mustPRN("G07")

	_, err := dec.Submit(RawFrame{SigLNAV, prn, lnavRecv, lnavSubframe1(14400)})
	require.NoError(err)
	eph, err := dec.Submit(RawFrame{SigLNAV, prn, lnavRecv, lnavSubframe2(14401)})
	require.NoError(err)
	assert.Nil(eph)

	// a repeated subframe 2 must not complete the set
	eph, err = dec.Submit(RawFrame{SigLNAV, prn, lnavRecv, lnavSubframe2(14401)})
	require.NoError(err)
	assert.Nil(eph)
	assert.Equal(2, dec.Pending(SigLNAV, prn))

	eph, err = dec.Submit(RawFrame{SigLNAV, prn, lnavRecv, lnavSubframe3(14402)})
	require.NoError(err)
	assert.NotNil(eph)
	assert.Equal(0, dec.Pending(SigLNAV, prn))
}

func TestDecoder_LNAVRepeatedSetEmitsOnce(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dec := NewDecoder()
	prn := mustPRN("G09")

	eph := submitLNAVSet(t, dec, "G09", lnavRecv)
	assert.NotNil(eph)

	// the same broadcast set 30 seconds later must not emit again
	recv := lnavRecv.Add(30 * time.Second)
	_, err := dec.Submit(RawFrame{SigLNAV, prn, recv, lnavSubframe1(14405)})
	require.NoError(err)
	_, err = dec.Submit(RawFrame{SigLNAV, prn, recv.Add(6 * time.Second), lnavSubframe2(14406)})
	require.NoError(err)
	eph, err = dec.Submit(RawFrame{SigLNAV, prn, recv.Add(12 * time.Second), lnavSubframe3(14407)})
	require.NoError(err)
	assert.Nil(eph)
}

func TestDecoder_LNAVChecksumMismatch(t *testing.T) {
	assert := assert.New(t)

	var events []Event
	dec := NewDecoder(WithObserver(ObserverFunc(func(ev Event) {
		events = append(events, ev)
	})))
	prn := mustPRN("G11")

	frame := lnavSubframe1(14400)
	frame[12] ^= 0x01
	frame[13] ^= 0x80
	eph, err := dec.Submit(RawFrame{SigLNAV, prn, lnavRecv, frame})
	assert.Nil(eph)
	assert.ErrorIs(err, ErrChecksumMismatch)

	if assert.Len(events, 1) {
		assert.Equal(EventChecksumMismatch, events[0].Type)
		assert.Equal(SigLNAV, events[0].Signal)
		assert.Equal(prn, events[0].PRN)
		assert.Equal(3, events[0].Word)
	}

	// the failed frame must not have entered assembly
	assert.Equal(0, dec.Pending(SigLNAV, prn))
}

func TestDecoder_LNAVStalenessReset(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var events []Event
	dec := NewDecoder(WithObserver(ObserverFunc(func(ev Event) {
		events = append(events, ev)
	})))
	prn := mustPRN("G13")

	_, err := dec.Submit(RawFrame{SigLNAV, prn, lnavRecv, lnavSubframe1(14400)})
	require.NoError(err)
	_, err = dec.Submit(RawFrame{SigLNAV, prn, lnavRecv, lnavSubframe2(14401)})
	require.NoError(err)
	assert.Equal(2, dec.Pending(SigLNAV, prn))

	// after a silent gap the partial set is discarded; the late subframe 3
	// alone completes nothing
	late := lnavRecv.Add(3 * time.Hour)
	eph, err := dec.Submit(RawFrame{SigLNAV, prn, late, lnavSubframe3(14402)})
	require.NoError(err)
	assert.Nil(eph)
	assert.Equal(1, dec.Pending(SigLNAV, prn))

	if assert.Len(events, 1) {
		assert.Equal(EventStalenessReset, events[0].Type)
		assert.Equal(prn, events[0].PRN)
	}

	// the remaining subframes of the same issue of data recover the set
	_, err = dec.Submit(RawFrame{SigLNAV, prn, late.Add(6 * time.Second), lnavSubframe1(14400)})
	require.NoError(err)
	eph, err = dec.Submit(RawFrame{SigLNAV, prn, late.Add(12 * time.Second), lnavSubframe2(14401)})
	require.NoError(err)
	assert.NotNil(eph)
}

func TestDecoder_LNAVIODChange(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dec := NewDecoder()
	prn := mustPRN("G15")

	_, err := dec.Submit(RawFrame{SigLNAV, prn, lnavRecv, lnavSubframe1(14400)})
	require.NoError(err)
	_, err = dec.Submit(RawFrame{SigLNAV, prn, lnavRecv, lnavSubframe2(14401)})
	require.NoError(err)

	// a subframe with a different IODE abandons the collected parts
	b := newFrame(240)
	lnavHeader(b, 14402, 3)
	b.putAt(112, 644245094, 32)
	b.putAt(216, 0x24, 8)
	b.putAt(224, 8, 14)
	eph, err := dec.Submit(RawFrame{SigLNAV, prn, lnavRecv, lnavFrame(b.buf)})
	require.NoError(err)
	assert.Nil(eph)
	assert.Equal(1, dec.Pending(SigLNAV, prn))
}
