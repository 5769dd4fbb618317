package navmsg

import (
	"fmt"
	"time"

	"github.com/gnsskit/gonav/pkg/gnss"
	"github.com/gnsskit/gonav/pkg/navmsg/bits"
	"github.com/gnsskit/gonav/pkg/navmsg/parity"
)

// FNAVPage is one decoded Galileo F/NAV page. Page types 1 to 4 carry the
// ephemeris spread over four pages; types 5 and 6 carry almanac and are
// identified but not decoded.
type FNAVPage struct {
	Type   int
	IODnav int
	Week   int     // GST week as broadcast, pages 1 to 3
	TOW    float64 // pages 1 to 3

	Clock  *FNAVClock  // page 1
	Orbit2 *FNAVOrbit2 // page 2
	Orbit3 *FNAVOrbit3 // page 3
	Orbit4 *FNAVOrbit4 // page 4
}

// FNAVClock holds the page 1 clock, accuracy and health fields.
type FNAVClock struct {
	SVID   int
	Toc    float64
	Af0    float64
	Af1    float64
	Af2    float64
	SISA   int
	BGD    float64 // E5a/E1 group delay
	E5aHS  int
	E5aDVS int
}

// FNAVOrbit2 holds the page 2 orbit fields.
type FNAVOrbit2 struct {
	M0     float64
	OmegaD float64
	Ecc    float64
	SqrtA  float64
	Omega0 float64
	IDOT   float64
}

// FNAVOrbit3 holds the page 3 orbit fields.
type FNAVOrbit3 struct {
	I0     float64
	Omega  float64
	DeltaN float64
	Cuc    float64
	Cus    float64
	Crc    float64
	Crs    float64
	Toe    float64
}

// FNAVOrbit4 holds the page 4 harmonic fields.
type FNAVOrbit4 struct {
	Cic float64
	Cis float64
}

// Signal implements Subframe.
func (p *FNAVPage) Signal() Signal { return SigFNAV }

// Slot implements Subframe.
func (p *FNAVPage) Slot() int { return p.Type }

// IssueOfData returns the IODnav for ephemeris pages.
func (p *FNAVPage) IssueOfData() int {
	if p.Type >= 1 && p.Type <= 4 {
		return p.IODnav
	}
	return -1
}

// decodeFNAV checks the trailing CRC of a 238-bit page and decodes it.
func decodeFNAV(frame *RawFrame) (Subframe, error) {
	if err := parity.CheckCRC24(frame.Bits, 238); err != nil {
		return nil, err
	}

	r := bits.NewReader(frame.Bits, 238)
	p := &FNAVPage{}
	p.Type = int(r.Uint(6))

	switch p.Type {
	case 1:
		c := &FNAVClock{}
		c.SVID = int(r.Uint(6))
		p.IODnav = int(r.Uint(10))
		c.Toc = float64(r.Uint(14)) * 60.0
		c.Af0 = float64(r.Int(31)) * bits.P2(-34)
		c.Af1 = float64(r.Int(21)) * bits.P2(-46)
		c.Af2 = float64(r.Int(6)) * bits.P2(-59)
		c.SISA = int(r.Uint(8))
		r.Skip(11 + 11 + 14 + 5) // ionospheric correction
		c.BGD = float64(r.Int(10)) * bits.P2(-32)
		c.E5aHS = int(r.Uint(2))
		p.Week = int(r.Uint(12))
		p.TOW = float64(r.Uint(20))
		c.E5aDVS = int(r.Uint(1))
		p.Clock = c
	case 2:
		o := &FNAVOrbit2{}
		p.IODnav = int(r.Uint(10))
		o.M0 = float64(r.Int(32)) * bits.P2(-31) * SC2RAD
		o.OmegaD = float64(r.Int(24)) * bits.P2(-43) * SC2RAD
		o.Ecc = float64(r.Uint(32)) * bits.P2(-33)
		o.SqrtA = float64(r.Uint(32)) * bits.P2(-19)
		o.Omega0 = float64(r.Int(32)) * bits.P2(-31) * SC2RAD
		o.IDOT = float64(r.Int(14)) * bits.P2(-43) * SC2RAD
		p.Week = int(r.Uint(12))
		p.TOW = float64(r.Uint(20))
		p.Orbit2 = o
	case 3:
		o := &FNAVOrbit3{}
		p.IODnav = int(r.Uint(10))
		o.I0 = float64(r.Int(32)) * bits.P2(-31) * SC2RAD
		o.Omega = float64(r.Int(32)) * bits.P2(-31) * SC2RAD
		o.DeltaN = float64(r.Int(16)) * bits.P2(-43) * SC2RAD
		o.Cuc = float64(r.Int(16)) * bits.P2(-29)
		o.Cus = float64(r.Int(16)) * bits.P2(-29)
		o.Crc = float64(r.Int(16)) * bits.P2(-5)
		o.Crs = float64(r.Int(16)) * bits.P2(-5)
		o.Toe = float64(r.Uint(14)) * 60.0
		p.Week = int(r.Uint(12))
		p.TOW = float64(r.Uint(20))
		p.Orbit3 = o
	case 4:
		o := &FNAVOrbit4{}
		p.IODnav = int(r.Uint(10))
		o.Cic = float64(r.Int(16)) * bits.P2(-29)
		o.Cis = float64(r.Int(16)) * bits.P2(-29)
		p.Orbit4 = o
	case 5, 6:
		// almanac pages
	default:
		return nil, fmt.Errorf("%w: page type %d", ErrBadFrame, p.Type)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// buildFNAV assembles an ephemeris from pages 1 to 4 of one IODnav.
func buildFNAV(prn gnss.PRN, recv time.Time, parts map[int]Subframe) (Ephemeris, error) {
	p1 := parts[1].(*FNAVPage)
	p2 := parts[2].(*FNAVPage)
	p3 := parts[3].(*FNAVPage)
	p4 := parts[4].(*FNAVPage)

	c, o2, o3, o4 := p1.Clock, p2.Orbit2, p3.Orbit3, p4.Orbit4

	toeWeek, toe := adjSOW(p3.Week, o3.Toe, p3.TOW)
	tocWeek, toc := adjSOW(p1.Week, c.Toc, p1.TOW)

	eph := &EphKepler{
		PRN: prn,
		Sig: SigFNAV,
		IOD: p1.IODnav,

		TOC:            gstTime(tocWeek, toc),
		ClockBias:      c.Af0,
		ClockDrift:     c.Af1,
		ClockDriftRate: c.Af2,

		Crs:    o3.Crs,
		DeltaN: o3.DeltaN,
		M0:     o2.M0,
		Cuc:    o3.Cuc,
		Ecc:    o2.Ecc,
		Cus:    o3.Cus,
		SqrtA:  o2.SqrtA,

		Toe:     toe,
		ToeWeek: toeWeek + gstWeekOffset,
		Cic:     o4.Cic,
		Omega0:  o2.Omega0,
		Cis:     o4.Cis,
		I0:      o3.I0,
		Crc:     o3.Crc,
		Omega:   o3.Omega,
		OmegaD:  o2.OmegaD,
		IDOT:    o2.IDOT,

		URA:    c.SISA,
		Health: uint64(c.E5aHS)<<4 | uint64(c.E5aDVS)<<3,
		TGD:    c.BGD,

		Tom: recv,
	}
	return eph, nil
}
