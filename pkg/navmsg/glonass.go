package navmsg

import (
	"fmt"
	"time"

	"github.com/gnsskit/gonav/pkg/gnss"
	"github.com/gnsskit/gonav/pkg/navmsg/bits"
	"github.com/gnsskit/gonav/pkg/navmsg/parity"
)

// GlonassString is one decoded GLONASS navigation string. Strings 1 to 4
// carry the ephemeris, string 5 the time scale parameters; strings 6 to 15
// carry almanac and are identified only.
type GlonassString struct {
	Number int // string number m

	State1 *GlonassState // string 1, x axis
	State2 *GlonassState // string 2, y axis
	State3 *GlonassState // string 3, z axis
	Extra4 *GlonassExtra // string 4
	Time5  *GlonassTime  // string 5
}

// GlonassState holds one earth-fixed axis of the state vector together
// with the fields sharing its string.
type GlonassState struct {
	Pos float64 // m
	Vel float64 // m/sec
	Acc float64 // m/sec2

	// string 1
	P1 int
	Tk float64 // sec into the day, message time

	// string 2
	Bn int // health flags
	P2 int
	Tb int // epoch index, 15 minute units

	// string 3
	P3     int
	GammaN float64
	P      int
	Ln     int
}

// GlonassExtra holds the string 4 clock and identification fields.
type GlonassExtra struct {
	TauN     float64
	DeltaTau float64
	En       int // age of data, days
	P4       int
	FT       int // user range accuracy index
	NT       int // calendar day within the four year cycle
	Slot     int
	M        int // satellite type
}

// GlonassTime holds the string 5 time scale fields.
type GlonassTime struct {
	NA   int
	TauC float64
	N4   int
	Ln   int
}

// Signal implements Subframe.
func (s *GlonassString) Signal() Signal { return SigGLO }

// Slot implements Subframe.
func (s *GlonassString) Slot() int { return s.Number }

// IssueOfData returns the epoch index tb for string 2. The other strings
// carry no epoch tag and are grouped positionally within a frame.
func (s *GlonassString) IssueOfData() int {
	if s.Number == 2 {
		return s.State2.Tb
	}
	return -1
}

// decodeGlonass checks the Hamming code of an 85-bit string and decodes
// it.
func decodeGlonass(frame *RawFrame) (Subframe, error) {
	if err := parity.CheckGlonass(frame.Bits); err != nil {
		return nil, err
	}
	if bits.Uint(frame.Bits, 0, 1) != 0 {
		return nil, fmt.Errorf("%w: idle chip set", ErrBadFrame)
	}

	r := bits.NewReader(frame.Bits, 85)
	r.Skip(1)
	s := &GlonassString{Number: int(r.Uint(4))}

	switch s.Number {
	case 1:
		st := &GlonassState{}
		r.Skip(2)
		st.P1 = int(r.Uint(2))
		st.Tk = float64(r.Uint(5))*3600 + float64(r.Uint(6))*60 + float64(r.Uint(1))*30
		st.Vel = float64(r.SignMag(24)) * bits.P2(-20) * 1e3
		st.Acc = float64(r.SignMag(5)) * bits.P2(-30) * 1e3
		st.Pos = float64(r.SignMag(27)) * bits.P2(-11) * 1e3
		s.State1 = st
	case 2:
		st := &GlonassState{}
		st.Bn = int(r.Uint(3))
		st.P2 = int(r.Uint(1))
		st.Tb = int(r.Uint(7))
		r.Skip(5)
		st.Vel = float64(r.SignMag(24)) * bits.P2(-20) * 1e3
		st.Acc = float64(r.SignMag(5)) * bits.P2(-30) * 1e3
		st.Pos = float64(r.SignMag(27)) * bits.P2(-11) * 1e3
		s.State2 = st
	case 3:
		st := &GlonassState{}
		st.P3 = int(r.Uint(1))
		st.GammaN = float64(r.SignMag(11)) * bits.P2(-40)
		r.Skip(1)
		st.P = int(r.Uint(2))
		st.Ln = int(r.Uint(1))
		st.Vel = float64(r.SignMag(24)) * bits.P2(-20) * 1e3
		st.Acc = float64(r.SignMag(5)) * bits.P2(-30) * 1e3
		st.Pos = float64(r.SignMag(27)) * bits.P2(-11) * 1e3
		s.State3 = st
	case 4:
		x := &GlonassExtra{}
		x.TauN = float64(r.SignMag(22)) * bits.P2(-30)
		x.DeltaTau = float64(r.SignMag(5)) * bits.P2(-30)
		x.En = int(r.Uint(5))
		r.Skip(14)
		x.P4 = int(r.Uint(1))
		x.FT = int(r.Uint(4))
		r.Skip(3)
		x.NT = int(r.Uint(11))
		x.Slot = int(r.Uint(5))
		x.M = int(r.Uint(2))
		s.Extra4 = x
	case 5:
		t := &GlonassTime{}
		t.NA = int(r.Uint(11))
		t.TauC = float64(r.SignMag(32)) * bits.P2(-31)
		r.Skip(1)
		t.N4 = int(r.Uint(5))
		r.Skip(22)
		t.Ln = int(r.Uint(1))
		s.Time5 = t
	default:
		if s.Number < 1 || s.Number > 15 {
			return nil, fmt.Errorf("%w: string number %d", ErrBadFrame, s.Number)
		}
		// almanac strings
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// buildGlonass assembles a state-vector ephemeris from strings 1 to 4 of
// one frame.
func buildGlonass(prn gnss.PRN, recv time.Time, parts map[int]Subframe) (Ephemeris, error) {
	s1 := parts[1].(*GlonassString).State1
	s2 := parts[2].(*GlonassString).State2
	s3 := parts[3].(*GlonassString).State3
	x4 := parts[4].(*GlonassString).Extra4

	toc := glonassTime(float64(s2.Tb)*900, recv)

	eph := &EphGlonass{
		PRN: prn,
		Tb:  s2.Tb,
		TOC: toc,

		X: s1.Pos, Y: s2.Pos, Z: s3.Pos,
		VX: s1.Vel, VY: s2.Vel, VZ: s3.Vel,
		AX: s1.Acc, AY: s2.Acc, AZ: s3.Acc,

		TauN:     x4.TauN,
		GammaN:   s3.GammaN,
		DeltaTau: x4.DeltaTau,

		Health: s2.Bn >> 2,
		Age:    x4.En,
		Slot:   x4.Slot,

		Tom: recv,
	}
	return eph, nil
}
