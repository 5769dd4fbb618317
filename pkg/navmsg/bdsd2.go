package navmsg

import (
	"fmt"
	"time"

	"github.com/gnsskit/gonav/pkg/gnss"
	"github.com/gnsskit/gonav/pkg/navmsg/bits"
	"github.com/gnsskit/gonav/pkg/navmsg/parity"
)

// BDSD2Page is one decoded page of BeiDou D2 subframe 1. The GEO
// satellites spread the ephemeris over ten pages; most parameters are
// split across page boundaries and stay raw here until assembly merges
// them. Page 2 carries ionospheric corrections only; subframes 2 to 5
// carry integrity and almanac data and keep only their frame id.
type BDSD2Page struct {
	FraID int
	Pnum  int
	SOW   float64

	// page 1
	SatH1 int
	AODC  int
	URAI  int
	Week  int
	Toc   float64
	TGD1  float64
	TGD2  float64

	// page 3
	Af0    float64
	Af1MSB int64 // 4 bits signed

	// page 4
	Af1LSB uint64 // 18 bits
	Af2    float64
	AODE   int
	DeltaN float64
	CucMSB int64 // 14 bits signed

	// page 5
	CucLSB uint64 // 4 bits
	M0     float64
	Cus    float64
	EccMSB uint64 // 10 bits

	// page 6
	EccLSB uint64 // 22 bits
	SqrtA  float64
	CicMSB int64 // 10 bits signed

	// page 7
	CicLSB uint64 // 8 bits
	Cis    float64
	Toe    float64
	I0MSB  int64 // 21 bits signed

	// page 8
	I0LSB     uint64 // 11 bits
	Crc       float64
	Crs       float64
	OmegaDMSB int64 // 19 bits signed

	// page 9
	OmegaDLSB uint64 // 5 bits
	Omega0    float64
	OmegaMSB  int64 // 27 bits signed

	// page 10
	OmegaLSB uint64 // 5 bits
	IDOT     float64
}

// Signal implements Subframe.
func (p *BDSD2Page) Signal() Signal { return SigD2 }

// Slot implements Subframe.
func (p *BDSD2Page) Slot() int { return p.Pnum }

// IssueOfData returns the seconds of week at the page 1 epoch. D2 pages
// are three seconds apart, so the common start time groups the pages of
// one broadcast set.
func (p *BDSD2Page) IssueOfData() int {
	if p.FraID != 1 {
		return -1
	}
	return int(p.SOW) - 3*(p.Pnum-1)
}

// decodeBDSD2 checks the word checksums of a 300-bit subframe 1 page and
// decodes it.
func decodeBDSD2(frame *RawFrame) (Subframe, error) {
	b, err := parity.CheckBDS(frame.Bits)
	if err != nil {
		return nil, err
	}
	if bits.Uint(b, 0, 11) != bdsPreamble {
		return nil, fmt.Errorf("%w: bad preamble", ErrBadFrame)
	}
	id := int(bits.Uint(b, 15, 3))
	if id < 1 || id > 5 {
		return nil, fmt.Errorf("%w: subframe id %d", ErrBadFrame, id)
	}

	p := &BDSD2Page{FraID: id}
	p.SOW = float64(bdsU2(b, 18, 8, 30, 12))
	if id != 1 {
		// integrity and almanac subframes
		return p, nil
	}
	p.Pnum = int(bits.Uint(b, 42, 4))

	switch p.Pnum {
	case 1:
		p.SatH1 = int(bits.Uint(b, 46, 1))
		p.AODC = int(bits.Uint(b, 47, 5))
		p.URAI = int(bits.Uint(b, 60, 4))
		p.Week = int(bits.Uint(b, 64, 13))
		p.Toc = float64(bdsU2(b, 77, 5, 90, 12)) * 8.0
		p.TGD1 = float64(bits.Int(b, 102, 10)) * bdsTGDScale
		p.TGD2 = float64(bits.Int(b, 120, 10)) * bdsTGDScale
	case 2:
		// ionospheric page
	case 3:
		p.Af0 = float64(bdsS2(b, 100, 12, 120, 12)) * bits.P2(-33)
		p.Af1MSB = bits.Int(b, 132, 4)
	case 4:
		p.Af1LSB = bdsU2(b, 46, 6, 60, 12)
		p.Af2 = float64(bdsS2(b, 72, 10, 90, 1)) * bits.P2(-66)
		p.AODE = int(bits.Uint(b, 91, 5))
		p.DeltaN = float64(bits.Int(b, 96, 16)) * bits.P2(-43) * SC2RAD
		p.CucMSB = bits.Int(b, 120, 14)
	case 5:
		p.CucLSB = bits.Uint(b, 46, 4)
		p.M0 = float64(bdsS3(b, 50, 2, 60, 22, 90, 8)) * bits.P2(-31) * SC2RAD
		p.Cus = float64(bdsS2(b, 98, 14, 120, 4)) * bits.P2(-31)
		p.EccMSB = bits.Uint(b, 124, 10)
	case 6:
		p.EccLSB = bdsU2(b, 46, 6, 60, 16)
		p.SqrtA = float64(bdsU3(b, 76, 6, 90, 22, 120, 4)) * bits.P2(-19)
		p.CicMSB = bits.Int(b, 124, 10)
	case 7:
		p.CicLSB = bdsU2(b, 46, 6, 60, 2)
		p.Cis = float64(bits.Int(b, 62, 18)) * bits.P2(-31)
		p.Toe = float64(bdsU2(b, 80, 2, 90, 15)) * 8.0
		p.I0MSB = bdsS2(b, 105, 7, 120, 14)
	case 8:
		p.I0LSB = bdsU2(b, 46, 6, 60, 5)
		p.Crc = float64(bdsS2(b, 65, 17, 90, 1)) * bits.P2(-6)
		p.Crs = float64(bits.Int(b, 91, 18)) * bits.P2(-6)
		p.OmegaDMSB = bdsS2(b, 109, 3, 120, 16)
	case 9:
		p.OmegaDLSB = bits.Uint(b, 46, 5)
		p.Omega0 = float64(bdsS3(b, 51, 1, 60, 22, 90, 9)) * bits.P2(-31) * SC2RAD
		p.OmegaMSB = bdsS2(b, 99, 13, 120, 14)
	case 10:
		p.OmegaLSB = bits.Uint(b, 46, 5)
		p.IDOT = float64(bdsS2(b, 51, 1, 60, 13)) * bits.P2(-43) * SC2RAD
	default:
		return nil, fmt.Errorf("%w: page number %d", ErrBadFrame, p.Pnum)
	}
	return p, nil
}

// buildBDSD2 assembles an ephemeris from pages 1 and 3 to 10 of one
// broadcast set, merging the parameters split across page boundaries.
func buildBDSD2(prn gnss.PRN, recv time.Time, parts map[int]Subframe) (Ephemeris, error) {
	pg := func(n int) *BDSD2Page { return parts[n].(*BDSD2Page) }
	p1, p3, p4, p5 := pg(1), pg(3), pg(4), pg(5)
	p6, p7, p8, p9, p10 := pg(6), pg(7), pg(8), pg(9), pg(10)

	toe := p7.Toe
	if toe != p1.Toc {
		return nil, fmt.Errorf("%w: toe and toc mismatch", ErrBadFrame)
	}

	week := resolveWeek(p1.Week, 13, bdtT0, recv)
	toeWeek, toe := adjSOW(week, toe, p1.SOW)

	eph := &EphKepler{
		PRN: prn,
		Sig: SigD2,
		IOD: p4.AODE,

		TOC:            bdtTime(toeWeek, p1.Toc),
		ClockBias:      p3.Af0,
		ClockDrift:     float64(bits.MergeS(p3.Af1MSB, p4.Af1LSB, 18)) * bits.P2(-50),
		ClockDriftRate: p4.Af2,

		Crs:    p8.Crs,
		DeltaN: p4.DeltaN,
		M0:     p5.M0,
		Cuc:    float64(bits.MergeS(p4.CucMSB, p5.CucLSB, 4)) * bits.P2(-31),
		Ecc:    float64(bits.MergeU(p5.EccMSB, p6.EccLSB, 22)) * bits.P2(-33),
		Cus:    p5.Cus,
		SqrtA:  p6.SqrtA,

		Toe:     toe,
		ToeWeek: toeWeek,
		Cic:     float64(bits.MergeS(p6.CicMSB, p7.CicLSB, 8)) * bits.P2(-31),
		Omega0:  p9.Omega0,
		Cis:     p7.Cis,
		I0:      float64(bits.MergeS(p7.I0MSB, p8.I0LSB, 11)) * bits.P2(-31) * SC2RAD,
		Crc:     p8.Crc,
		Omega:   float64(bits.MergeS(p9.OmegaMSB, p10.OmegaLSB, 5)) * bits.P2(-31) * SC2RAD,
		OmegaD:  float64(bits.MergeS(p8.OmegaDMSB, p9.OmegaDLSB, 5)) * bits.P2(-43) * SC2RAD,
		IDOT:    p10.IDOT,

		URA:    p1.URAI,
		Health: uint64(p1.SatH1),
		TGD:    p1.TGD1,
		TGD2:   p1.TGD2,
		IODC:   p1.AODC,

		Tom: recv,
	}
	return eph, nil
}
