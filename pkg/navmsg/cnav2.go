package navmsg

import (
	"math"
	"time"

	"github.com/gnsskit/gonav/pkg/gnss"
	"github.com/gnsskit/gonav/pkg/navmsg/bits"
	"github.com/gnsskit/gonav/pkg/navmsg/parity"
)

// CNAV2Subframe is the decoded second subframe of the GPS L1C message. It
// is self-contained: one subframe carries the complete ephemeris and clock
// set, so assembly completes on a single frame.
type CNAV2Subframe struct {
	Week   int // 13-bit broadcast week
	ITOW   int // two-hour interval count into the week
	Top    float64
	Health int
	URAed  int

	Toe         float64
	DeltaA      float64
	ADot        float64
	DeltaN      float64
	DeltaNDot   float64
	M0          float64
	Ecc         float64
	Omega       float64
	Omega0      float64
	I0          float64
	DeltaOmegaD float64
	IDOT        float64
	Cis         float64
	Cic         float64
	Crs         float64
	Crc         float64
	Cus         float64
	Cuc         float64

	URAned  int
	Af0     float64
	Af1     float64
	Af2     float64
	TGD     float64
	ISCL1CP float64
	ISCL1CD float64
}

// Signal implements Subframe.
func (sf *CNAV2Subframe) Signal() Signal { return SigCNAV2 }

// Slot implements Subframe.
func (sf *CNAV2Subframe) Slot() int { return 2 }

// IssueOfData returns the broadcast Toe in units of 300 seconds, matching
// the CNAV epoch identification.
func (sf *CNAV2Subframe) IssueOfData() int { return int(sf.Toe / 300) }

// decodeCNAV2 checks the trailing CRC of a 600-bit subframe 2 and decodes
// it.
func decodeCNAV2(frame *RawFrame) (Subframe, error) {
	if err := parity.CheckCRC24(frame.Bits, 600); err != nil {
		return nil, err
	}

	r := bits.NewReader(frame.Bits, 600)
	sf := &CNAV2Subframe{}
	sf.Week = int(r.Uint(13))
	sf.ITOW = int(r.Uint(8))
	sf.Top = float64(r.Uint(11)) * 300.0
	sf.Health = int(r.Uint(1))
	sf.URAed = int(r.Int(5))
	sf.Toe = float64(r.Uint(11)) * 300.0
	sf.DeltaA = float64(r.Int(26)) * bits.P2(-9)
	sf.ADot = float64(r.Int(25)) * bits.P2(-21)
	sf.DeltaN = float64(r.Int(17)) * bits.P2(-44) * SC2RAD
	sf.DeltaNDot = float64(r.Int(23)) * bits.P2(-57) * SC2RAD
	sf.M0 = float64(r.Int(33)) * bits.P2(-32) * SC2RAD
	sf.Ecc = float64(r.Uint(33)) * bits.P2(-34)
	sf.Omega = float64(r.Int(33)) * bits.P2(-32) * SC2RAD
	sf.Omega0 = float64(r.Int(33)) * bits.P2(-32) * SC2RAD
	sf.I0 = float64(r.Int(33)) * bits.P2(-32) * SC2RAD
	sf.DeltaOmegaD = float64(r.Int(17)) * bits.P2(-44) * SC2RAD
	sf.IDOT = float64(r.Int(15)) * bits.P2(-44) * SC2RAD
	sf.Cis = float64(r.Int(16)) * bits.P2(-30)
	sf.Cic = float64(r.Int(16)) * bits.P2(-30)
	sf.Crs = float64(r.Int(24)) * bits.P2(-8)
	sf.Crc = float64(r.Int(24)) * bits.P2(-8)
	sf.Cus = float64(r.Int(21)) * bits.P2(-30)
	sf.Cuc = float64(r.Int(21)) * bits.P2(-30)
	sf.URAned = int(r.Int(5))
	r.Skip(6) // NED accuracy change indices
	sf.Af0 = float64(r.Int(26)) * bits.P2(-35)
	sf.Af1 = float64(r.Int(20)) * bits.P2(-48)
	sf.Af2 = float64(r.Int(10)) * bits.P2(-60)
	sf.TGD = float64(r.Int(13)) * bits.P2(-35)
	sf.ISCL1CP = float64(r.Int(13)) * bits.P2(-35)
	sf.ISCL1CD = float64(r.Int(13)) * bits.P2(-35)
	if err := r.Err(); err != nil {
		return nil, err
	}
	return sf, nil
}

// buildCNAV2 turns a single subframe 2 into an ephemeris. The L1C clock
// reference equals the time of ephemeris.
func buildCNAV2(prn gnss.PRN, recv time.Time, parts map[int]Subframe) (Ephemeris, error) {
	sf := parts[2].(*CNAV2Subframe)

	week := resolveWeek(sf.Week, 13, gpsT0, recv)
	axis := refAxisGPS + sf.DeltaA

	eph := &EphKepler{
		PRN: prn,
		Sig: SigCNAV2,
		IOD: int(sf.Toe / 300),

		TOC:            gpsTime(week, sf.Toe),
		ClockBias:      sf.Af0,
		ClockDrift:     sf.Af1,
		ClockDriftRate: sf.Af2,

		Crs:    sf.Crs,
		DeltaN: sf.DeltaN,
		M0:     sf.M0,
		Cuc:    sf.Cuc,
		Ecc:    sf.Ecc,
		Cus:    sf.Cus,
		SqrtA:  math.Sqrt(axis),

		Toe:     sf.Toe,
		ToeWeek: week,
		Cic:     sf.Cic,
		Omega0:  sf.Omega0,
		Cis:     sf.Cis,
		I0:      sf.I0,
		Crc:     sf.Crc,
		Omega:   sf.Omega,
		OmegaD:  omegaDotRef + sf.DeltaOmegaD,
		IDOT:    sf.IDOT,

		ADot:      sf.ADot,
		DeltaNDot: sf.DeltaNDot,

		URA:    sf.URAed,
		Health: uint64(sf.Health),
		TGD:    sf.TGD,

		Tom: recv,
	}
	return eph, nil
}
