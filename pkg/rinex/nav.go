package rinex

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/gnsskit/gonav/pkg/gnss"
	"github.com/gnsskit/gonav/pkg/navmsg"
)

const (
	// TimeOfClockFormat is the time format within RINEX3 Nav records.
	TimeOfClockFormat string = "2006 01 02 15 04 05"

	// HeaderDateFormat is the time format of the file creation date in the
	// PGM / RUN BY / DATE header line.
	HeaderDateFormat string = "20060102 150405"
)

// A NavHeader contains the RINEX Navigation Header information.
type NavHeader struct {
	RINEXVersion float32     // RINEX Format version
	RINEXType    string      // RINEX File type. N for Nav
	SatSystem    gnss.System // Satellite System. System is "Mixed" if more than one.

	Pgm   string // name of program creating this file
	RunBy string // name of agency creating this file
	Date  time.Time

	Comments []string // * comment lines
}

// A NavWriter writes broadcast ephemerides as a RINEX Version 3.04
// navigation file. The header is written in front of the first record;
// records should be fed in time order.
type NavWriter struct {
	Header NavHeader

	w           *bufio.Writer
	wroteHeader bool
	err         error
}

// NewNavWriter returns a writer emitting a mixed navigation file to w.
func NewNavWriter(w io.Writer, hdr NavHeader) *NavWriter {
	if hdr.RINEXVersion == 0 {
		hdr.RINEXVersion = 3.04
	}
	if hdr.RINEXType == "" {
		hdr.RINEXType = "N"
	}
	if hdr.SatSystem == 0 {
		hdr.SatSystem = gnss.SysMIXED
	}
	if hdr.Date.IsZero() {
		hdr.Date = time.Now().UTC()
	}
	return &NavWriter{Header: hdr, w: bufio.NewWriter(w)}
}

// WriteEphemeris appends one ephemeris record.
func (nw *NavWriter) WriteEphemeris(eph navmsg.Ephemeris) error {
	if nw.err != nil {
		return nw.err
	}
	if !nw.wroteHeader {
		nw.writeHeader()
		nw.wroteHeader = true
	}
	switch e := eph.(type) {
	case *navmsg.EphKepler:
		nw.writeKepler(e)
	case *navmsg.EphGlonass:
		nw.writeGlonass(e)
	default:
		return fmt.Errorf("rinex: unsupported ephemeris type %T", eph)
	}
	return nw.err
}

// Flush writes buffered records to the underlying writer. When no record
// was written, Flush emits the bare header.
func (nw *NavWriter) Flush() error {
	if nw.err != nil {
		return nw.err
	}
	if !nw.wroteHeader {
		nw.writeHeader()
		nw.wroteHeader = true
	}
	if err := nw.w.Flush(); err != nil {
		nw.setErr(err)
	}
	return nw.err
}

func (nw *NavWriter) setErr(err error) {
	if nw.err == nil {
		nw.err = err
	}
}

func (nw *NavWriter) printf(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(nw.w, format, args...); err != nil {
		nw.setErr(err)
	}
}

func (nw *NavWriter) headerLine(body, label string) {
	nw.printf("%-60s%-20s\n", body, label)
}

func (nw *NavWriter) writeHeader() {
	hdr := &nw.Header
	nw.headerLine(
		fmt.Sprintf("%9.2f%11s%-20s%s: %s", hdr.RINEXVersion, "", hdr.RINEXType+": GNSS NAV DATA",
			hdr.SatSystem.Abbr(), hdr.SatSystem),
		"RINEX VERSION / TYPE",
	)
	nw.headerLine(
		fmt.Sprintf("%-20.20s%-20.20s%-20.20s", hdr.Pgm, hdr.RunBy, hdr.Date.Format(HeaderDateFormat)+" UTC"),
		"PGM / RUN BY / DATE",
	)
	for _, c := range hdr.Comments {
		nw.headerLine(fmt.Sprintf("%-60.60s", c), "COMMENT")
	}
	nw.headerLine("", "END OF HEADER")
}

// epochLine writes the record's first line: satellite, time of clock and
// the three clock polynomial terms.
func (nw *NavWriter) epochLine(prn gnss.PRN, toc time.Time, a0, a1, a2 float64) {
	nw.printf("%s %s%s%s%s\n", prn, toc.Format(TimeOfClockFormat),
		navFloat(a0), navFloat(a1), navFloat(a2))
}

// orbitLine writes a broadcast orbit continuation line, 4X,4D19.12.
func (nw *NavWriter) orbitLine(fields ...float64) {
	nw.printf("    ")
	for _, f := range fields {
		nw.printf("%s", navFloat(f))
	}
	nw.printf("\n")
}

func (nw *NavWriter) writeKepler(eph *navmsg.EphKepler) {
	nw.epochLine(eph.PRN, eph.TOC, eph.ClockBias, eph.ClockDrift, eph.ClockDriftRate)
	nw.orbitLine(float64(eph.IOD), eph.Crs, eph.DeltaN, eph.M0)
	nw.orbitLine(eph.Cuc, eph.Ecc, eph.Cus, eph.SqrtA)
	nw.orbitLine(eph.Toe, eph.Cic, eph.Omega0, eph.Cis)
	nw.orbitLine(eph.I0, eph.Crc, eph.Omega, eph.OmegaD)

	switch eph.PRN.Sys {
	case gnss.SysGAL:
		nw.orbitLine(eph.IDOT, float64(galDataSource(eph.Sig)), float64(eph.ToeWeek))
		nw.orbitLine(float64(eph.URA), float64(eph.Health), eph.TGD, eph.TGD2)
		nw.orbitLine(gpsSOW(eph.Tom))
	case gnss.SysBDS:
		nw.orbitLine(eph.IDOT, 0, float64(eph.ToeWeek))
		nw.orbitLine(uraMeters(eph.URA), float64(eph.Health), eph.TGD, eph.TGD2)
		nw.orbitLine(bdsSOW(eph.Tom), float64(eph.IODC))
	default:
		var codes, flag float64
		if eph.CodesL2 > 0 {
			codes = float64(eph.CodesL2)
		}
		if eph.FlagL2P {
			flag = 1
		}
		nw.orbitLine(eph.IDOT, codes, float64(eph.ToeWeek), flag)
		nw.orbitLine(uraMeters(eph.URA), float64(eph.Health), eph.TGD, float64(eph.IODC))
		nw.orbitLine(gpsSOW(eph.Tom), eph.FitInterval)
	}
}

func (nw *NavWriter) writeGlonass(eph *navmsg.EphGlonass) {
	nw.epochLine(eph.PRN, eph.TOC, -eph.TauN, eph.GammaN, secOfDay(eph.Tom))
	nw.orbitLine(eph.X/1e3, eph.VX/1e3, eph.AX/1e3, float64(eph.Health))
	nw.orbitLine(eph.Y/1e3, eph.VY/1e3, eph.AY/1e3, float64(eph.FreqSlot))
	nw.orbitLine(eph.Z/1e3, eph.VZ/1e3, eph.AZ/1e3, float64(eph.Age))
}

// navFloat renders a value in the D19.12 field format.
func navFloat(v float64) string {
	return fmt.Sprintf("%19.12E", v)
}

var (
	gpsEpoch = time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC)
	bdtEpoch = time.Date(2006, 1, 1, 0, 0, 0, 0, time.UTC)
)

func gpsSOW(t time.Time) float64 { return sow(t, gpsEpoch) }
func bdsSOW(t time.Time) float64 { return sow(t, bdtEpoch) }

func sow(t, t0 time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return math.Mod(t.Sub(t0).Seconds(), 604800)
}

func secOfDay(t time.Time) float64 {
	h, m, s := t.Clock()
	return float64(h*3600 + m*60 + s)
}

// uraMeters converts a GPS or BeiDou accuracy index to meters.
func uraMeters(idx int) float64 {
	ura := [...]float64{
		2.4, 3.4, 4.85, 6.85, 9.65, 13.65, 24, 48,
		96, 192, 384, 768, 1536, 3072, 6144,
	}
	if idx < 0 || idx >= len(ura) {
		return 9999
	}
	return ura[idx]
}

// galDataSource returns the data source flags for a Galileo record.
func galDataSource(sig navmsg.Signal) int {
	if sig == navmsg.SigFNAV {
		return 0x102 // F/NAV E5a-I
	}
	return 0x205 // I/NAV E1-B / E5b-I
}
