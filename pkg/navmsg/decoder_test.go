package navmsg

import (
	"testing"
	"time"

	"github.com/gnsskit/gonav/pkg/gnss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignal_Tables(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(gnss.SysGPS, SigLNAV.System())
	assert.Equal(gnss.SysGPS, SigCNAV2.System())
	assert.Equal(gnss.SysGAL, SigFNAV.System())
	assert.Equal(gnss.SysGAL, SigINAV.System())
	assert.Equal(gnss.SysGLO, SigGLO.System())
	assert.Equal(gnss.SysBDS, SigD2.System())

	assert.Equal(uint(300), SigLNAV.FrameLen())
	assert.Equal(uint(600), SigCNAV2.FrameLen())
	assert.Equal(uint(238), SigFNAV.FrameLen())
	assert.Equal(uint(220), SigINAV.FrameLen())
	assert.Equal(uint(85), SigGLO.FrameLen())
	assert.Equal(uint(300), SigD1.FrameLen())

	for sig := SigLNAV; sig <= SigD2; sig++ {
		parsed, err := ParseSignal(sig.String())
		assert.NoError(err)
		assert.Equal(sig, parsed)
	}
	_, err := ParseSignal("P3")
	assert.Error(err)

	// Out-of-enum tags must stringify, they reach observers via events.
	assert.Equal("Signal(42)", Signal(42).String())
	assert.Equal("Signal(-1)", Signal(-1).String())
	assert.Equal("EventType(0)", EventType(0).String())
}

func TestDecoder_UnsupportedFormat(t *testing.T) {
	assert := assert.New(t)

	var events []Event
	dec := NewDecoder(
		WithSignals(SigLNAV),
		WithObserver(ObserverFunc(func(ev Event) { events = append(events, ev) })),
	)
	assert.Equal([]Signal{SigLNAV}, dec.Signals())

	eph, err := dec.Submit(RawFrame{SigGLO, mustPRN("R05"), gloRecv, gloString1()})
	assert.Nil(eph)
	assert.ErrorIs(err, ErrUnsupportedFormat)
	if assert.Len(events, 1) {
		assert.Equal(EventUnsupportedFormat, events[0].Type)
	}

	// decoding on the registered signal is unaffected
	_, err = dec.Submit(RawFrame{SigLNAV, mustPRN("G05"), lnavRecv, lnavSubframe1(14400)})
	assert.NoError(err)
}

func TestDecoder_RejectsForeignPRN(t *testing.T) {
	assert := assert.New(t)

	dec := NewDecoder()
	_, err := dec.Submit(RawFrame{SigLNAV, mustPRN("R05"), lnavRecv, lnavSubframe1(14400)})
	assert.ErrorIs(err, ErrBadFrame)
}

func TestDecoder_RejectsShortFrame(t *testing.T) {
	assert := assert.New(t)

	dec := NewDecoder()
	_, err := dec.Submit(RawFrame{SigLNAV, mustPRN("G05"), lnavRecv, make([]byte, 10)})
	assert.ErrorIs(err, ErrBadFrame)
}

func TestDecoder_Reset(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dec := NewDecoder()
	prn := mustPRN("G05")

	_, err := dec.Submit(RawFrame{SigLNAV, prn, lnavRecv, lnavSubframe1(14400)})
	require.NoError(err)
	assert.Equal(1, dec.Pending(SigLNAV, prn))

	dec.Reset()
	assert.Equal(0, dec.Pending(SigLNAV, prn))
}

func TestDecoder_StalenessOverride(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var events []Event
	dec := NewDecoder(
		WithStaleness(SigLNAV, time.Minute),
		WithObserver(ObserverFunc(func(ev Event) { events = append(events, ev) })),
	)
	prn := mustPRN("G05")

	_, err := dec.Submit(RawFrame{SigLNAV, prn, lnavRecv, lnavSubframe1(14400)})
	require.NoError(err)
	_, err = dec.Submit(RawFrame{SigLNAV, prn, lnavRecv.Add(2 * time.Minute), lnavSubframe2(14401)})
	require.NoError(err)

	assert.Equal(1, dec.Pending(SigLNAV, prn))
	if assert.Len(events, 1) {
		assert.Equal(EventStalenessReset, events[0].Type)
	}
}

func TestDecoder_SuspectRecordEmitted(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var events []Event
	dec := NewDecoder(WithObserver(ObserverFunc(func(ev Event) { events = append(events, ev) })))
	prn := mustPRN("G21")

	// a subframe 2 with an implausible orbit radius
	b := newFrame(240)
	lnavHeader(b, 14401, 2)
	b.putAt(48, 0x23, 8)
	b.putAt(136, 1<<26, 32)
	b.putAt(216, 5400, 16)

	_, err := dec.Submit(RawFrame{SigLNAV, prn, lnavRecv, lnavSubframe1(14400)})
	require.NoError(err)
	_, err = dec.Submit(RawFrame{SigLNAV, prn, lnavRecv, lnavFrame(b.buf)})
	require.NoError(err)
	eph, err := dec.Submit(RawFrame{SigLNAV, prn, lnavRecv, lnavSubframe3(14402)})
	require.NoError(err)

	// the record is still emitted, flagged
	require.NotNil(eph)
	assert.True(eph.IsSuspect())
	if assert.Len(events, 1) {
		assert.Equal(EventSuspectRecord, events[0].Type)
		assert.Equal(prn, events[0].PRN)
	}
}

func TestDecoder_SatellitesIndependent(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dec := NewDecoder()

	// interleaved subframes of two satellites assemble separately
	_, err := dec.Submit(RawFrame{SigLNAV, mustPRN("G05"), lnavRecv, lnavSubframe1(14400)})
	require.NoError(err)
	_, err = dec.Submit(RawFrame{SigLNAV, mustPRN("G06"), lnavRecv, lnavSubframe1(14400)})
	require.NoError(err)
	_, err = dec.Submit(RawFrame{SigLNAV, mustPRN("G05"), lnavRecv, lnavSubframe2(14401)})
	require.NoError(err)
	// a truncated frame for the second satellite is rejected without
	// touching either satellite's state
	_, err = dec.Submit(RawFrame{SigLNAV, mustPRN("G06"), lnavRecv, nil})
	require.Error(err)

	eph, err := dec.Submit(RawFrame{SigLNAV, mustPRN("G05"), lnavRecv, lnavSubframe3(14402)})
	require.NoError(err)
	assert.NotNil(eph)
	assert.Equal(1, dec.Pending(SigLNAV, mustPRN("G06")))
}
