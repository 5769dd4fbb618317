package navmsg

import (
	"fmt"
	"math"
	"time"

	"github.com/gnsskit/gonav/pkg/gnss"
	"github.com/go-playground/validator/v10"
)

// SC2RAD converts semicircles to radians.
const SC2RAD = math.Pi

// Reference semi-major axes for the messages that broadcast a delta
// against a nominal orbit.
const (
	refAxisGPS = 26559710.0 // m, CNAV/CNAV2 reference
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// An Ephemeris is a completed broadcast orbit and clock parameter set for
// one satellite and one issue-of-data epoch.
type Ephemeris interface {
	// Validate runs broadcast-range sanity checks on the record.
	Validate() error

	// GetPRN returns the satellite the record belongs to.
	GetPRN() gnss.PRN

	// GetTime returns the record's clock reference time.
	GetTime() time.Time

	// GetIOD returns the issue-of-data epoch the record was assembled
	// from, or -1 if the format has none.
	GetIOD() int

	// ValidityWindow returns the time span the record should be used for.
	ValidityWindow() (start, end time.Time)

	// IsSuspect reports whether the record failed sanity validation. A
	// suspect record is still emitted, flagged for the consumer.
	IsSuspect() bool
}

// EphKepler is a Keplerian broadcast ephemeris as used by GPS, Galileo and
// BeiDou. Angles are in radians, times in the satellite system timescale.
type EphKepler struct {
	PRN gnss.PRN
	Sig Signal
	IOD int // IODE, IODnav or AODE depending on the message

	TOC            time.Time
	ClockBias      float64 `validate:"gte=-0.1,lte=0.1"` // sec
	ClockDrift     float64 // sec/sec
	ClockDriftRate float64 // sec/sec2

	Crs    float64 // m
	DeltaN float64 // rad/sec
	M0     float64 // rad
	Cuc    float64 // rad
	Ecc    float64 `validate:"gte=0,lt=1"` // dimensionless
	Cus    float64 // rad
	SqrtA  float64 `validate:"gte=4000,lte=8500"` // sqrt(m)

	Toe     float64 // sec of week
	ToeWeek int     // full system week of Toe
	Cic     float64 // rad
	Omega0  float64 // rad
	Cis     float64 // rad
	I0      float64 `validate:"gte=-4,lte=4"` // rad
	Crc     float64 // m
	Omega   float64 // rad
	OmegaD  float64 // rad/sec
	IDOT    float64 // rad/sec

	// Rates of the orbit radius and mean motion, broadcast by CNAV and
	// CNAV2 only.
	ADot      float64 // m/sec
	DeltaNDot float64 // rad/sec2

	URA    int
	Health uint64
	TGD    float64 // sec; BGD E5a/E1 for F/NAV, TGD1 for BeiDou
	TGD2   float64 // sec; BGD E5b/E1 for I/NAV, TGD2 for BeiDou
	IODC   int

	// GPS LNAV only.
	CodesL2 int
	FlagL2P bool

	Tom         time.Time // transmission time (receipt)
	FitInterval float64   // hours, 0 means the signal default

	Suspect bool
}

// Validate checks the record against broadcast sanity ranges.
func (eph *EphKepler) Validate() error {
	if err := validate.Struct(eph); err != nil {
		return fmt.Errorf("ephemeris %s: %w", eph.PRN, err)
	}
	return nil
}

// GetPRN returns the satellite number.
func (eph *EphKepler) GetPRN() gnss.PRN { return eph.PRN }

// GetTime returns the clock reference time.
func (eph *EphKepler) GetTime() time.Time { return eph.TOC }

// GetIOD returns the issue of data.
func (eph *EphKepler) GetIOD() int { return eph.IOD }

// IsSuspect reports whether sanity validation failed.
func (eph *EphKepler) IsSuspect() bool { return eph.Suspect }

// ToeTime returns the time of ephemeris as a timestamp.
func (eph *EphKepler) ToeTime() time.Time {
	switch eph.Sig {
	case SigFNAV, SigINAV:
		return gpsTime(eph.ToeWeek, eph.Toe)
	case SigD1, SigD2:
		return bdtTime(eph.ToeWeek, eph.Toe)
	}
	return gpsTime(eph.ToeWeek, eph.Toe)
}

// ValidityWindow returns the span centred on Toe the record should be used
// for, derived from the fit interval or the signal default.
func (eph *EphKepler) ValidityWindow() (time.Time, time.Time) {
	fit := eph.FitInterval
	if fit == 0 {
		switch eph.Sig {
		case SigCNAV, SigCNAV2:
			fit = 3
		default:
			fit = 4
		}
	}
	toe := eph.ToeTime()
	half := time.Duration(fit * float64(time.Hour) / 2)
	return toe.Add(-half), toe.Add(half)
}

// EphGlonass is a GLONASS broadcast ephemeris: an earth-fixed state vector
// with clock parameters, valid around the epoch Tb.
type EphGlonass struct {
	PRN gnss.PRN
	Tb  int // epoch index within the day, the record's issue of data

	TOC time.Time // epoch time derived from Tb

	X, Y, Z    float64 `validate:"gte=-4.5e7,lte=4.5e7"` // m
	VX, VY, VZ float64 `validate:"gte=-1e4,lte=1e4"`     // m/sec
	AX, AY, AZ float64 // m/sec2, lunisolar terms

	TauN     float64 // sec, clock offset
	GammaN   float64 // relative frequency offset
	DeltaTau float64 // sec, L1/L2 delay difference

	Health   int // Bn flag, non-zero means unhealthy
	Age      int // days since upload (En)
	Slot     int // orbital slot from string 4
	FreqSlot int // frequency channel, set by the caller when known

	Tom     time.Time
	Suspect bool
}

// Validate checks the state vector against sanity ranges.
func (eph *EphGlonass) Validate() error {
	if err := validate.Struct(eph); err != nil {
		return fmt.Errorf("ephemeris %s: %w", eph.PRN, err)
	}
	return nil
}

// GetPRN returns the satellite number.
func (eph *EphGlonass) GetPRN() gnss.PRN { return eph.PRN }

// GetTime returns the epoch time.
func (eph *EphGlonass) GetTime() time.Time { return eph.TOC }

// GetIOD returns the epoch index Tb.
func (eph *EphGlonass) GetIOD() int { return eph.Tb }

// IsSuspect reports whether sanity validation failed.
func (eph *EphGlonass) IsSuspect() bool { return eph.Suspect }

// ValidityWindow returns the span around Tb the state vector should be
// integrated from. GLONASS ephemerides are updated every half hour.
func (eph *EphGlonass) ValidityWindow() (time.Time, time.Time) {
	return eph.TOC.Add(-15 * time.Minute), eph.TOC.Add(15 * time.Minute)
}

// markSuspect runs validation and sets the suspect flag on failure. The
// record is emitted either way.
func markSuspect(eph Ephemeris) bool {
	switch e := eph.(type) {
	case *EphKepler:
		e.Suspect = e.Validate() != nil
		return e.Suspect
	case *EphGlonass:
		e.Suspect = e.Validate() != nil
		return e.Suspect
	}
	return false
}
