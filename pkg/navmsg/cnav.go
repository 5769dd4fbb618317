package navmsg

import (
	"fmt"
	"math"
	"time"

	"github.com/gnsskit/gonav/pkg/gnss"
	"github.com/gnsskit/gonav/pkg/navmsg/bits"
	"github.com/gnsskit/gonav/pkg/navmsg/parity"
)

// CNAV slot numbers. All clock messages (types 30 to 37) fill the same
// assembly slot since any one of them completes a data set.
const (
	cnavSlotEph1  = 10
	cnavSlotEph2  = 11
	cnavSlotClock = 30
)

// CNAVMessage is one decoded GPS civil navigation message. Message types
// 10 and 11 carry the split ephemeris, types 30 to 37 share a common clock
// block and differ only in their payload tail, which is not decoded here.
type CNAVMessage struct {
	MsgType int
	PRN     int // as broadcast in the message
	TOW     float64
	Alert   bool

	Eph1  *CNAVEph1  // type 10
	Eph2  *CNAVEph2  // type 11
	Clock *CNAVClock // types 30..37
}

// CNAVEph1 holds the message type 10 fields.
type CNAVEph1 struct {
	Week      int // 13-bit broadcast week
	Health    int
	Top       float64 // sec of week, data predict time
	URAed     int
	Toe       float64 // sec of week
	DeltaA    float64 // m, against the reference semi-major axis
	ADot      float64 // m/sec
	DeltaN    float64 // rad/sec
	DeltaNDot float64 // rad/sec2
	M0        float64 // rad
	Ecc       float64
	Omega     float64 // rad
}

// CNAVEph2 holds the message type 11 fields.
type CNAVEph2 struct {
	Toe         float64 // sec of week
	Omega0      float64 // rad
	I0          float64 // rad
	DeltaOmegaD float64 // rad/sec, against the reference rate
	IDOT        float64 // rad/sec
	Cis         float64
	Cic         float64
	Crs         float64
	Crc         float64
	Cus         float64
	Cuc         float64
}

// CNAVClock holds the clock block common to message types 30 to 37.
type CNAVClock struct {
	Top    float64
	URAned int
	Toc    float64 // sec of week
	Af0    float64
	Af1    float64
	Af2    float64
	TGD    float64
	ISCL1  float64
	ISCL2  float64
	ISCL5I float64
	ISCL5Q float64
}

// Signal implements Subframe.
func (m *CNAVMessage) Signal() Signal { return SigCNAV }

// Slot implements Subframe. Clock messages share one slot.
func (m *CNAVMessage) Slot() int {
	if m.MsgType >= 30 && m.MsgType <= 37 {
		return cnavSlotClock
	}
	return m.MsgType
}

// IssueOfData returns the broadcast Toe in units of 300 seconds. CNAV has
// no issue-of-data counter; matched message sets share the same Toe and
// Toc, which identifies the curve fit epoch.
func (m *CNAVMessage) IssueOfData() int {
	switch {
	case m.Eph1 != nil:
		return int(m.Eph1.Toe / 300)
	case m.Eph2 != nil:
		return int(m.Eph2.Toe / 300)
	case m.Clock != nil:
		return int(m.Clock.Toc / 300)
	}
	return -1
}

// decodeCNAV checks the trailing CRC of a 300-bit message and decodes it.
func decodeCNAV(frame *RawFrame) (Subframe, error) {
	if err := parity.CheckCRC24(frame.Bits, 300); err != nil {
		return nil, err
	}

	r := bits.NewReader(frame.Bits, 300)
	if pre := r.Uint(8); pre != lnavPreamble {
		return nil, fmt.Errorf("%w: bad preamble %#02x", ErrBadFrame, pre)
	}
	m := &CNAVMessage{}
	m.PRN = int(r.Uint(6))
	m.MsgType = int(r.Uint(6))
	m.TOW = float64(r.Uint(17)) * 6.0
	m.Alert = r.Uint(1) == 1

	switch {
	case m.MsgType == 10:
		m.Eph1 = decodeCNAVEph1(r)
	case m.MsgType == 11:
		m.Eph2 = decodeCNAVEph2(r)
	case m.MsgType >= 30 && m.MsgType <= 37:
		m.Clock = decodeCNAVClock(r)
	default:
		return nil, fmt.Errorf("%w: message type %d", ErrBadFrame, m.MsgType)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeCNAVEph1(r *bits.Reader) *CNAVEph1 {
	e := &CNAVEph1{}
	e.Week = int(r.Uint(13))
	e.Health = int(r.Uint(3))
	e.Top = float64(r.Uint(11)) * 300.0
	e.URAed = int(r.Int(5))
	e.Toe = float64(r.Uint(11)) * 300.0
	e.DeltaA = float64(r.Int(26)) * bits.P2(-9)
	e.ADot = float64(r.Int(25)) * bits.P2(-21)
	e.DeltaN = float64(r.Int(17)) * bits.P2(-44) * SC2RAD
	e.DeltaNDot = float64(r.Int(23)) * bits.P2(-57) * SC2RAD
	e.M0 = float64(r.Int(33)) * bits.P2(-32) * SC2RAD
	e.Ecc = float64(r.Uint(33)) * bits.P2(-34)
	e.Omega = float64(r.Int(33)) * bits.P2(-32) * SC2RAD
	return e
}

func decodeCNAVEph2(r *bits.Reader) *CNAVEph2 {
	e := &CNAVEph2{}
	e.Toe = float64(r.Uint(11)) * 300.0
	e.Omega0 = float64(r.Int(33)) * bits.P2(-32) * SC2RAD
	e.I0 = float64(r.Int(33)) * bits.P2(-32) * SC2RAD
	e.DeltaOmegaD = float64(r.Int(17)) * bits.P2(-44) * SC2RAD
	e.IDOT = float64(r.Int(15)) * bits.P2(-44) * SC2RAD
	e.Cis = float64(r.Int(16)) * bits.P2(-30)
	e.Cic = float64(r.Int(16)) * bits.P2(-30)
	e.Crs = float64(r.Int(24)) * bits.P2(-8)
	e.Crc = float64(r.Int(24)) * bits.P2(-8)
	e.Cus = float64(r.Int(21)) * bits.P2(-30)
	e.Cuc = float64(r.Int(21)) * bits.P2(-30)
	return e
}

func decodeCNAVClock(r *bits.Reader) *CNAVClock {
	c := &CNAVClock{}
	c.Top = float64(r.Uint(11)) * 300.0
	c.URAned = int(r.Int(5))
	r.Skip(6) // NED accuracy change indices
	c.Toc = float64(r.Uint(11)) * 300.0
	c.Af0 = float64(r.Int(26)) * bits.P2(-35)
	c.Af1 = float64(r.Int(20)) * bits.P2(-48)
	c.Af2 = float64(r.Int(10)) * bits.P2(-60)
	c.TGD = float64(r.Int(13)) * bits.P2(-35)
	c.ISCL1 = float64(r.Int(13)) * bits.P2(-35)
	c.ISCL2 = float64(r.Int(13)) * bits.P2(-35)
	c.ISCL5I = float64(r.Int(13)) * bits.P2(-35)
	c.ISCL5Q = float64(r.Int(13)) * bits.P2(-35)
	return c
}

// Reference values for the CNAV delta parameters.
const (
	// OmegaDotRef is the nominal rate of right ascension, rad/sec.
	omegaDotRef = -2.6e-9 * SC2RAD
)

// buildCNAV assembles an ephemeris from message types 10, 11 and one clock
// message sharing a curve fit epoch.
func buildCNAV(prn gnss.PRN, recv time.Time, parts map[int]Subframe) (Ephemeris, error) {
	e1 := parts[cnavSlotEph1].(*CNAVMessage).Eph1
	e2 := parts[cnavSlotEph2].(*CNAVMessage).Eph2
	ck := parts[cnavSlotClock].(*CNAVMessage).Clock

	if e1.Toe != e2.Toe {
		return nil, fmt.Errorf("%w: toe mismatch between message types 10 and 11", ErrBadFrame)
	}

	week := resolveWeek(e1.Week, 13, gpsT0, recv)
	axis := refAxisGPS + e1.DeltaA

	eph := &EphKepler{
		PRN: prn,
		Sig: SigCNAV,
		IOD: int(e1.Toe / 300),

		TOC:            gpsTime(week, ck.Toc),
		ClockBias:      ck.Af0,
		ClockDrift:     ck.Af1,
		ClockDriftRate: ck.Af2,

		Crs:    e2.Crs,
		DeltaN: e1.DeltaN,
		M0:     e1.M0,
		Cuc:    e2.Cuc,
		Ecc:    e1.Ecc,
		Cus:    e2.Cus,
		SqrtA:  math.Sqrt(axis),

		Toe:     e1.Toe,
		ToeWeek: week,
		Cic:     e2.Cic,
		Omega0:  e2.Omega0,
		Cis:     e2.Cis,
		I0:      e2.I0,
		Crc:     e2.Crc,
		Omega:   e1.Omega,
		OmegaD:  omegaDotRef + e2.DeltaOmegaD,
		IDOT:    e2.IDOT,

		ADot:      e1.ADot,
		DeltaNDot: e1.DeltaNDot,

		URA:    e1.URAed,
		Health: uint64(e1.Health),
		TGD:    ck.TGD,

		Tom: recv,
	}
	return eph, nil
}
