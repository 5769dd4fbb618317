package navmsg

import (
	"fmt"
	"time"

	"github.com/gnsskit/gonav/pkg/gnss"
	"github.com/gnsskit/gonav/pkg/navmsg/bits"
	"github.com/gnsskit/gonav/pkg/navmsg/parity"
)

const lnavPreamble = 0x8B

// LNAVSubframe is one decoded GPS legacy navigation subframe. Exactly one
// of the payload fields is set, matching the subframe id.
type LNAVSubframe struct {
	ID    int     // 1..5
	TOW   float64 // sec of week at the start of the next subframe
	Alert bool
	AS    bool

	Clock  *LNAVClock  // subframe 1
	Orbit2 *LNAVOrbit2 // subframe 2
	Orbit3 *LNAVOrbit3 // subframe 3

	// Subframes 4 and 5 carry almanac and system pages which do not enter
	// ephemeris assembly; only the page identification survives.
	DataID int
	SVID   int
}

// LNAVClock holds the subframe 1 clock and status fields.
type LNAVClock struct {
	Week    int // 10-bit broadcast week
	CodesL2 int
	URA     int
	Health  int
	IODC    int
	FlagL2P bool
	TGD     float64 // sec
	Toc     float64 // sec of week
	Af2     float64
	Af1     float64
	Af0     float64
}

// LNAVOrbit2 holds the subframe 2 orbit fields.
type LNAVOrbit2 struct {
	IODE    int
	Crs     float64
	DeltaN  float64 // rad/sec
	M0      float64 // rad
	Cuc     float64
	Ecc     float64
	Cus     float64
	SqrtA   float64
	Toe     float64 // sec of week
	FitFlag bool
	AODO    int
}

// LNAVOrbit3 holds the subframe 3 orbit fields.
type LNAVOrbit3 struct {
	Cic    float64
	Omega0 float64 // rad
	Cis    float64
	I0     float64 // rad
	Crc    float64
	Omega  float64 // rad
	OmegaD float64 // rad/sec
	IODE   int
	IDOT   float64 // rad/sec
}

// Signal implements Subframe.
func (sf *LNAVSubframe) Signal() Signal { return SigLNAV }

// Slot implements Subframe.
func (sf *LNAVSubframe) Slot() int { return sf.ID }

// IssueOfData returns the IODE of orbit subframes and the eight low bits of
// the IODC for subframe 1, which match the IODE while the broadcast set is
// consistent.
func (sf *LNAVSubframe) IssueOfData() int {
	switch sf.ID {
	case 1:
		return sf.Clock.IODC & 0xFF
	case 2:
		return sf.Orbit2.IODE
	case 3:
		return sf.Orbit3.IODE
	}
	return -1
}

// decodeLNAV checks the word parities of a 300-bit subframe, strips them
// and decodes the remaining 240 data bits.
func decodeLNAV(frame *RawFrame) (Subframe, error) {
	data, err := parity.CheckLNAV(frame.Bits)
	if err != nil {
		return nil, err
	}
	if data[0] != lnavPreamble {
		return nil, fmt.Errorf("%w: bad preamble %#02x", ErrBadFrame, data[0])
	}

	r := bits.NewReader(data, 240)
	r.Skip(24) // TLM word
	tow := float64(r.Uint(17)) * 6.0
	alert := r.Uint(1) == 1
	as := r.Uint(1) == 1
	id := int(r.Uint(3))
	r.Skip(2)

	sf := &LNAVSubframe{ID: id, TOW: tow, Alert: alert, AS: as}
	switch id {
	case 1:
		sf.Clock = decodeLNAVClock(r)
	case 2:
		sf.Orbit2 = decodeLNAVOrbit2(r)
	case 3:
		sf.Orbit3 = decodeLNAVOrbit3(r)
	case 4, 5:
		sf.DataID = int(r.Uint(2))
		sf.SVID = int(r.Uint(6))
	default:
		return nil, fmt.Errorf("%w: subframe id %d", ErrBadFrame, id)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return sf, nil
}

func decodeLNAVClock(r *bits.Reader) *LNAVClock {
	c := &LNAVClock{}
	c.Week = int(r.Uint(10))
	c.CodesL2 = int(r.Uint(2))
	c.URA = int(r.Uint(4))
	c.Health = int(r.Uint(6))
	iodcMSB := int(r.Uint(2))
	c.FlagL2P = r.Uint(1) == 1
	r.Skip(87)
	c.TGD = float64(r.Int(8)) * bits.P2(-31)
	c.IODC = iodcMSB<<8 | int(r.Uint(8))
	c.Toc = float64(r.Uint(16)) * 16.0
	c.Af2 = float64(r.Int(8)) * bits.P2(-55)
	c.Af1 = float64(r.Int(16)) * bits.P2(-43)
	c.Af0 = float64(r.Int(22)) * bits.P2(-31)
	return c
}

func decodeLNAVOrbit2(r *bits.Reader) *LNAVOrbit2 {
	o := &LNAVOrbit2{}
	o.IODE = int(r.Uint(8))
	o.Crs = float64(r.Int(16)) * bits.P2(-5)
	o.DeltaN = float64(r.Int(16)) * bits.P2(-43) * SC2RAD
	o.M0 = float64(r.Int(32)) * bits.P2(-31) * SC2RAD
	o.Cuc = float64(r.Int(16)) * bits.P2(-29)
	o.Ecc = float64(r.Uint(32)) * bits.P2(-33)
	o.Cus = float64(r.Int(16)) * bits.P2(-29)
	o.SqrtA = float64(r.Uint(32)) * bits.P2(-19)
	o.Toe = float64(r.Uint(16)) * 16.0
	o.FitFlag = r.Uint(1) == 1
	o.AODO = int(r.Uint(5))
	return o
}

func decodeLNAVOrbit3(r *bits.Reader) *LNAVOrbit3 {
	o := &LNAVOrbit3{}
	o.Cic = float64(r.Int(16)) * bits.P2(-29)
	o.Omega0 = float64(r.Int(32)) * bits.P2(-31) * SC2RAD
	o.Cis = float64(r.Int(16)) * bits.P2(-29)
	o.I0 = float64(r.Int(32)) * bits.P2(-31) * SC2RAD
	o.Crc = float64(r.Int(16)) * bits.P2(-5)
	o.Omega = float64(r.Int(32)) * bits.P2(-31) * SC2RAD
	o.OmegaD = float64(r.Int(24)) * bits.P2(-43) * SC2RAD
	o.IODE = int(r.Uint(8))
	o.IDOT = float64(r.Int(14)) * bits.P2(-43) * SC2RAD
	return o
}

// buildLNAV assembles an ephemeris from subframes 1 to 3 of one issue of
// data.
func buildLNAV(prn gnss.PRN, recv time.Time, parts map[int]Subframe) (Ephemeris, error) {
	sf1 := parts[1].(*LNAVSubframe)
	sf2 := parts[2].(*LNAVSubframe)
	sf3 := parts[3].(*LNAVSubframe)

	c, o2, o3 := sf1.Clock, sf2.Orbit2, sf3.Orbit3
	if o2.IODE != o3.IODE || o2.IODE != c.IODC&0xFF {
		return nil, fmt.Errorf("%w: issue of data mismatch", ErrBadFrame)
	}

	week := resolveWeek(c.Week, 10, gpsT0, recv)
	toeWeek, toe := adjSOW(week, o2.Toe, sf2.TOW)
	tocWeek, toc := adjSOW(week, c.Toc, sf1.TOW)

	fit := 4.0
	if o2.FitFlag {
		fit = 6
	}

	eph := &EphKepler{
		PRN: prn,
		Sig: SigLNAV,
		IOD: o2.IODE,

		TOC:            gpsTime(tocWeek, toc),
		ClockBias:      c.Af0,
		ClockDrift:     c.Af1,
		ClockDriftRate: c.Af2,

		Crs:    o2.Crs,
		DeltaN: o2.DeltaN,
		M0:     o2.M0,
		Cuc:    o2.Cuc,
		Ecc:    o2.Ecc,
		Cus:    o2.Cus,
		SqrtA:  o2.SqrtA,

		Toe:     toe,
		ToeWeek: toeWeek,
		Cic:     o3.Cic,
		Omega0:  o3.Omega0,
		Cis:     o3.Cis,
		I0:      o3.I0,
		Crc:     o3.Crc,
		Omega:   o3.Omega,
		OmegaD:  o3.OmegaD,
		IDOT:    o3.IDOT,

		URA:    c.URA,
		Health: uint64(c.Health),
		TGD:    c.TGD,
		IODC:   c.IODC,

		CodesL2: c.CodesL2,
		FlagL2P: c.FlagL2P,

		Tom:         recv,
		FitInterval: fit,
	}
	return eph, nil
}
