package navmsg

import (
	"fmt"
	"time"

	"github.com/gnsskit/gonav/pkg/gnss"
	"github.com/gnsskit/gonav/pkg/navmsg/bits"
	"github.com/gnsskit/gonav/pkg/navmsg/parity"
)

// INAVWord is one decoded Galileo I/NAV word, reassembled from the even
// and odd page parts of a nominal page pair. Word types 1 to 4 carry the
// ephemeris, word type 5 the health, group delays and time reference.
type INAVWord struct {
	Type   int
	IODnav int

	Orbit1 *INAVOrbit1 // word 1
	Orbit2 *INAVOrbit2 // word 2
	Orbit3 *INAVOrbit3 // word 3
	Clock  *INAVClock  // word 4
	Status *INAVStatus // word 5
}

// INAVOrbit1 holds the word 1 fields.
type INAVOrbit1 struct {
	Toe   float64
	M0    float64
	Ecc   float64
	SqrtA float64
}

// INAVOrbit2 holds the word 2 fields.
type INAVOrbit2 struct {
	Omega0 float64
	I0     float64
	Omega  float64
	IDOT   float64
}

// INAVOrbit3 holds the word 3 fields.
type INAVOrbit3 struct {
	OmegaD float64
	DeltaN float64
	Cuc    float64
	Cus    float64
	Crc    float64
	Crs    float64
	SISA   int
}

// INAVClock holds the word 4 fields.
type INAVClock struct {
	SVID int
	Cic  float64
	Cis  float64
	Toc  float64
	Af0  float64
	Af1  float64
	Af2  float64
}

// INAVStatus holds the word 5 group delay, health and time fields.
type INAVStatus struct {
	BGDE5aE1 float64
	BGDE5bE1 float64
	E5bHS    int
	E1bHS    int
	E5bDVS   int
	E1bDVS   int
	Week     int // GST week as broadcast
	TOW      float64
}

// Signal implements Subframe.
func (w *INAVWord) Signal() Signal { return SigINAV }

// Slot implements Subframe.
func (w *INAVWord) Slot() int { return w.Type }

// IssueOfData returns the IODnav for ephemeris words. Word 5 carries no
// issue of data and joins whichever epoch is being collected.
func (w *INAVWord) IssueOfData() int {
	if w.Type >= 1 && w.Type <= 4 {
		return w.IODnav
	}
	return -1
}

// decodeINAV checks the CRC of a nominal page pair and decodes the word
// spread over its even and odd parts.
func decodeINAV(frame *RawFrame) (Subframe, error) {
	if err := parity.CheckCRC24(frame.Bits, 220); err != nil {
		return nil, err
	}

	// Even part at bit 0, odd part at bit 114; the page type bit must be
	// zero for nominal pages on both.
	if bits.Uint(frame.Bits, 0, 1) != 0 || bits.Uint(frame.Bits, 114, 1) != 1 {
		return nil, fmt.Errorf("%w: page pair order", ErrBadFrame)
	}
	if bits.Uint(frame.Bits, 1, 1) != 0 || bits.Uint(frame.Bits, 115, 1) != 0 {
		return nil, fmt.Errorf("%w: alert page", ErrBadFrame)
	}

	word := make([]byte, 16)
	for i := uint(0); i < 14; i++ {
		word[i] = byte(bits.Uint(frame.Bits, 2+8*i, 8))
	}
	d2 := bits.Uint(frame.Bits, 116, 16)
	word[14] = byte(d2 >> 8)
	word[15] = byte(d2)

	r := bits.NewReader(word, 128)
	w := &INAVWord{}
	w.Type = int(r.Uint(6))

	switch w.Type {
	case 1:
		o := &INAVOrbit1{}
		w.IODnav = int(r.Uint(10))
		o.Toe = float64(r.Uint(14)) * 60.0
		o.M0 = float64(r.Int(32)) * bits.P2(-31) * SC2RAD
		o.Ecc = float64(r.Uint(32)) * bits.P2(-33)
		o.SqrtA = float64(r.Uint(32)) * bits.P2(-19)
		w.Orbit1 = o
	case 2:
		o := &INAVOrbit2{}
		w.IODnav = int(r.Uint(10))
		o.Omega0 = float64(r.Int(32)) * bits.P2(-31) * SC2RAD
		o.I0 = float64(r.Int(32)) * bits.P2(-31) * SC2RAD
		o.Omega = float64(r.Int(32)) * bits.P2(-31) * SC2RAD
		o.IDOT = float64(r.Int(14)) * bits.P2(-43) * SC2RAD
		w.Orbit2 = o
	case 3:
		o := &INAVOrbit3{}
		w.IODnav = int(r.Uint(10))
		o.OmegaD = float64(r.Int(24)) * bits.P2(-43) * SC2RAD
		o.DeltaN = float64(r.Int(16)) * bits.P2(-43) * SC2RAD
		o.Cuc = float64(r.Int(16)) * bits.P2(-29)
		o.Cus = float64(r.Int(16)) * bits.P2(-29)
		o.Crc = float64(r.Int(16)) * bits.P2(-5)
		o.Crs = float64(r.Int(16)) * bits.P2(-5)
		o.SISA = int(r.Uint(8))
		w.Orbit3 = o
	case 4:
		c := &INAVClock{}
		w.IODnav = int(r.Uint(10))
		c.SVID = int(r.Uint(6))
		c.Cic = float64(r.Int(16)) * bits.P2(-29)
		c.Cis = float64(r.Int(16)) * bits.P2(-29)
		c.Toc = float64(r.Uint(14)) * 60.0
		c.Af0 = float64(r.Int(31)) * bits.P2(-34)
		c.Af1 = float64(r.Int(21)) * bits.P2(-46)
		c.Af2 = float64(r.Int(6)) * bits.P2(-59)
		w.Clock = c
	case 5:
		s := &INAVStatus{}
		r.Skip(11 + 11 + 14 + 5) // ionospheric correction
		s.BGDE5aE1 = float64(r.Int(10)) * bits.P2(-32)
		s.BGDE5bE1 = float64(r.Int(10)) * bits.P2(-32)
		s.E5bHS = int(r.Uint(2))
		s.E1bHS = int(r.Uint(2))
		s.E5bDVS = int(r.Uint(1))
		s.E1bDVS = int(r.Uint(1))
		s.Week = int(r.Uint(12))
		s.TOW = float64(r.Uint(20))
		w.Status = s
	default:
		// words 0 and 6 upward carry time, almanac and reserved data
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return w, nil
}

// buildINAV assembles an ephemeris from words 1 to 4 of one IODnav plus a
// word 5.
func buildINAV(prn gnss.PRN, recv time.Time, parts map[int]Subframe) (Ephemeris, error) {
	o1 := parts[1].(*INAVWord).Orbit1
	o2 := parts[2].(*INAVWord).Orbit2
	o3 := parts[3].(*INAVWord).Orbit3
	c := parts[4].(*INAVWord).Clock
	s := parts[5].(*INAVWord).Status

	toeWeek, toe := adjSOW(s.Week, o1.Toe, s.TOW)
	tocWeek, toc := adjSOW(s.Week, c.Toc, s.TOW)

	eph := &EphKepler{
		PRN: prn,
		Sig: SigINAV,
		IOD: parts[1].(*INAVWord).IODnav,

		TOC:            gstTime(tocWeek, toc),
		ClockBias:      c.Af0,
		ClockDrift:     c.Af1,
		ClockDriftRate: c.Af2,

		Crs:    o3.Crs,
		DeltaN: o3.DeltaN,
		M0:     o1.M0,
		Cuc:    o3.Cuc,
		Ecc:    o1.Ecc,
		Cus:    o3.Cus,
		SqrtA:  o1.SqrtA,

		Toe:     toe,
		ToeWeek: toeWeek + gstWeekOffset,
		Cic:     c.Cic,
		Omega0:  o2.Omega0,
		Cis:     c.Cis,
		I0:      o2.I0,
		Crc:     o3.Crc,
		Omega:   o2.Omega,
		OmegaD:  o3.OmegaD,
		IDOT:    o2.IDOT,

		URA: o3.SISA,
		Health: uint64(s.E5bHS)<<7 | uint64(s.E5bDVS)<<6 |
			uint64(s.E1bHS)<<1 | uint64(s.E1bDVS),
		TGD:  s.BGDE5aE1,
		TGD2: s.BGDE5bE1,

		Tom: recv,
	}
	return eph, nil
}
