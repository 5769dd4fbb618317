package navmsg

import (
	"fmt"
	"time"

	"github.com/gnsskit/gonav/pkg/gnss"
	"github.com/gnsskit/gonav/pkg/navmsg/bits"
	"github.com/gnsskit/gonav/pkg/navmsg/parity"
)

// Many BeiDou fields straddle word boundaries and are interrupted by the
// in-word parity bits; they are read in two or three pieces.
func bdsU2(b []byte, p1, n1, p2, n2 uint) uint64 {
	return bits.MergeU(bits.Uint(b, p1, n1), bits.Uint(b, p2, n2), n2)
}

func bdsS2(b []byte, p1, n1, p2, n2 uint) int64 {
	return bits.MergeS(bits.Int(b, p1, n1), bits.Uint(b, p2, n2), n2)
}

func bdsU3(b []byte, p1, n1, p2, n2, p3, n3 uint) uint64 {
	return bits.MergeU(bdsU2(b, p1, n1, p2, n2), bits.Uint(b, p3, n3), n3)
}

func bdsS3(b []byte, p1, n1, p2, n2, p3, n3 uint) int64 {
	return bits.MergeS(bdsS2(b, p1, n1, p2, n2), bits.Uint(b, p3, n3), n3)
}

const (
	// bdsPreamble is the 11-bit frame synchronisation pattern.
	bdsPreamble = 0x712

	// bdsTGDScale converts the broadcast group delay unit of 0.1
	// nanoseconds.
	bdsTGDScale = 1e-10
)

// BDSD1Subframe is one decoded BeiDou D1 subframe. Subframes 1 to 3 carry
// the ephemeris; subframes 4 and 5 carry almanac pages and keep only their
// identification.
type BDSD1Subframe struct {
	FraID int
	SOW   float64

	Clock  *BDSClock    // subframe 1
	Orbit2 *BDSD1Orbit2 // subframe 2
	Orbit3 *BDSD1Orbit3 // subframe 3
	Pnum   int          // subframes 4 and 5
}

// BDSClock holds the D1 subframe 1 clock and status fields. D2 reuses the
// type for its page 1.
type BDSClock struct {
	SatH1 int
	AODC  int
	URAI  int
	Week  int // 13-bit BDT week
	Toc   float64
	TGD1  float64
	TGD2  float64
	Af0   float64
	Af1   float64
	Af2   float64
	AODE  int
}

// BDSD1Orbit2 holds the subframe 2 orbit fields.
type BDSD1Orbit2 struct {
	DeltaN float64
	Cuc    float64
	M0     float64
	Ecc    float64
	Cus    float64
	Crc    float64
	Crs    float64
	SqrtA  float64
	ToeMSB uint64 // two high bits, completed by subframe 3
}

// BDSD1Orbit3 holds the subframe 3 orbit fields.
type BDSD1Orbit3 struct {
	ToeLSB uint64 // fifteen low bits
	I0     float64
	Cic    float64
	OmegaD float64
	Cis    float64
	IDOT   float64
	Omega0 float64
	Omega  float64
}

// Signal implements Subframe.
func (sf *BDSD1Subframe) Signal() Signal { return SigD1 }

// Slot implements Subframe.
func (sf *BDSD1Subframe) Slot() int { return sf.FraID }

// IssueOfData returns the seconds of week at the frame start. D1 carries
// no issue-of-data counter in its orbit subframes; the three ephemeris
// subframes of one frame are six seconds apart, so the frame start time
// groups them.
func (sf *BDSD1Subframe) IssueOfData() int {
	if sf.FraID >= 1 && sf.FraID <= 3 {
		return int(sf.SOW) - 6*(sf.FraID-1)
	}
	return -1
}

// decodeBDSD1 checks the word checksums of a 300-bit subframe and decodes
// it.
func decodeBDSD1(frame *RawFrame) (Subframe, error) {
	b, err := parity.CheckBDS(frame.Bits)
	if err != nil {
		return nil, err
	}
	if bits.Uint(b, 0, 11) != bdsPreamble {
		return nil, fmt.Errorf("%w: bad preamble", ErrBadFrame)
	}

	sf := &BDSD1Subframe{}
	sf.FraID = int(bits.Uint(b, 15, 3))
	sf.SOW = float64(bdsU2(b, 18, 8, 30, 12))

	switch sf.FraID {
	case 1:
		c := &BDSClock{}
		c.SatH1 = int(bits.Uint(b, 42, 1))
		c.AODC = int(bits.Uint(b, 43, 5))
		c.URAI = int(bits.Uint(b, 48, 4))
		c.Week = int(bits.Uint(b, 60, 13))
		c.Toc = float64(bdsU2(b, 73, 9, 90, 8)) * 8.0
		c.TGD1 = float64(bits.Int(b, 98, 10)) * bdsTGDScale
		c.TGD2 = float64(bdsS2(b, 108, 4, 120, 6)) * bdsTGDScale
		c.Af2 = float64(bits.Int(b, 214, 11)) * bits.P2(-66)
		c.Af0 = float64(bdsS2(b, 225, 7, 240, 17)) * bits.P2(-33)
		c.Af1 = float64(bdsS2(b, 257, 5, 270, 17)) * bits.P2(-50)
		c.AODE = int(bits.Uint(b, 287, 5))
		sf.Clock = c
	case 2:
		o := &BDSD1Orbit2{}
		o.DeltaN = float64(bdsS2(b, 42, 10, 60, 6)) * bits.P2(-43) * SC2RAD
		o.Cuc = float64(bdsS2(b, 66, 16, 90, 2)) * bits.P2(-31)
		o.M0 = float64(bdsS2(b, 92, 20, 120, 12)) * bits.P2(-31) * SC2RAD
		o.Ecc = float64(bdsU2(b, 132, 10, 150, 22)) * bits.P2(-33)
		o.Cus = float64(bits.Int(b, 180, 18)) * bits.P2(-31)
		o.Crc = float64(bdsS2(b, 198, 4, 210, 14)) * bits.P2(-6)
		o.Crs = float64(bdsS2(b, 224, 8, 240, 10)) * bits.P2(-6)
		o.SqrtA = float64(bdsU2(b, 250, 12, 270, 20)) * bits.P2(-19)
		o.ToeMSB = bits.Uint(b, 290, 2)
		sf.Orbit2 = o
	case 3:
		o := &BDSD1Orbit3{}
		o.ToeLSB = bdsU2(b, 42, 10, 60, 5)
		o.I0 = float64(bdsS2(b, 65, 17, 90, 15)) * bits.P2(-31) * SC2RAD
		o.Cic = float64(bdsS2(b, 105, 7, 120, 11)) * bits.P2(-31)
		o.OmegaD = float64(bdsS2(b, 131, 11, 150, 13)) * bits.P2(-43) * SC2RAD
		o.Cis = float64(bdsS2(b, 163, 9, 180, 9)) * bits.P2(-31)
		o.IDOT = float64(bdsS2(b, 189, 13, 210, 1)) * bits.P2(-43) * SC2RAD
		o.Omega0 = float64(bdsS2(b, 211, 21, 240, 11)) * bits.P2(-31) * SC2RAD
		o.Omega = float64(bdsS2(b, 251, 11, 270, 21)) * bits.P2(-31) * SC2RAD
		sf.Orbit3 = o
	case 4, 5:
		sf.Pnum = int(bits.Uint(b, 43, 7))
	default:
		return nil, fmt.Errorf("%w: subframe id %d", ErrBadFrame, sf.FraID)
	}
	return sf, nil
}

// buildBDSD1 assembles an ephemeris from subframes 1 to 3 of one frame.
// The clock and ephemeris reference times must agree; mismatched sets are
// dropped.
func buildBDSD1(prn gnss.PRN, recv time.Time, parts map[int]Subframe) (Ephemeris, error) {
	sf1 := parts[1].(*BDSD1Subframe)
	sf2 := parts[2].(*BDSD1Subframe)
	sf3 := parts[3].(*BDSD1Subframe)

	c, o2, o3 := sf1.Clock, sf2.Orbit2, sf3.Orbit3
	toe := float64(bits.MergeU(o2.ToeMSB, o3.ToeLSB, 15)) * 8.0
	if toe != c.Toc {
		return nil, fmt.Errorf("%w: toe and toc mismatch", ErrBadFrame)
	}

	week := resolveWeek(c.Week, 13, bdtT0, recv)
	toeWeek, toe := adjSOW(week, toe, sf1.SOW)

	eph := &EphKepler{
		PRN: prn,
		Sig: SigD1,
		IOD: c.AODE,

		TOC:            bdtTime(toeWeek, c.Toc),
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
		Crc:     o2.Crc,
		Omega:   o3.Omega,
		OmegaD:  o3.OmegaD,
		IDOT:    o3.IDOT,

		URA:    c.URAI,
		Health: uint64(c.SatH1),
		TGD:    c.TGD1,
		TGD2:   c.TGD2,
		IODC:   c.AODC,

		Tom: recv,
	}
	return eph, nil
}
