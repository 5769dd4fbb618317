// Package navmsg decodes GNSS navigation messages at bit level and
// assembles broadcast ephemerides from them.
//
// The package handles the GPS LNAV, CNAV and CNAV2 messages, Galileo F/NAV
// and I/NAV, the GLONASS NAV strings and BeiDou D1/D2. Raw frames enter
// through a Decoder which validates the per-format checksum, decodes the
// typed subframe and feeds a per-satellite assembler; once a satellite has
// broadcast a complete and consistent parameter set, an Ephemeris record is
// returned.
package navmsg

import (
	"errors"
	"fmt"
	"time"

	"github.com/gnsskit/gonav/pkg/gnss"
)

// errors
var (
	// ErrChecksumMismatch is returned when a frame fails its CRC or parity
	// check. The frame is dropped.
	ErrChecksumMismatch = errors.New("navmsg: checksum mismatch")

	// ErrUnsupportedFormat is returned when no decoder is registered for a
	// frame's signal.
	ErrUnsupportedFormat = errors.New("navmsg: unsupported format")

	// ErrBadFrame is returned for frames whose preamble, length or
	// identification fields do not match the format.
	ErrBadFrame = errors.New("navmsg: malformed frame")
)

// Signal identifies a navigation-message format. Every signal belongs to
// exactly one satellite system.
type Signal int

// The supported navigation messages.
const (
	SigLNAV  Signal = iota + 1 // GPS L1 C/A legacy message
	SigCNAV                    // GPS L2C/L5 civil message
	SigCNAV2                   // GPS L1C civil message
	SigFNAV                    // Galileo E5a free message
	SigINAV                    // Galileo E1B/E5b integrity message
	SigGLO                     // GLONASS L1/L2 SP strings
	SigD1                      // BeiDou B1I MEO/IGSO message
	SigD2                      // BeiDou B1I GEO message
)

func (sig Signal) String() string {
	names := [...]string{"", "LNAV", "CNAV", "CNAV2", "FNAV", "INAV", "NAV", "D1", "D2"}
	if sig < 1 || int(sig) >= len(names) {
		return fmt.Sprintf("Signal(%d)", int(sig))
	}
	return names[sig]
}

// System returns the satellite system broadcasting the signal.
func (sig Signal) System() gnss.System {
	switch sig {
	case SigLNAV, SigCNAV, SigCNAV2:
		return gnss.SysGPS
	case SigFNAV, SigINAV:
		return gnss.SysGAL
	case SigGLO:
		return gnss.SysGLO
	case SigD1, SigD2:
		return gnss.SysBDS
	}
	return 0
}

// FrameLen returns the fixed frame length of the signal in bits.
func (sig Signal) FrameLen() uint {
	switch sig {
	case SigLNAV, SigCNAV, SigD1, SigD2:
		return 300
	case SigCNAV2:
		return 600
	case SigFNAV:
		return 238
	case SigINAV:
		return 220
	case SigGLO:
		return 85
	}
	return 0
}

// ParseSignal parses a signal name as used in capture files, e.g. "LNAV".
func ParseSignal(s string) (Signal, error) {
	for sig := SigLNAV; sig <= SigD2; sig++ {
		if sig.String() == s {
			return sig, nil
		}
	}
	return 0, ErrUnsupportedFormat
}

// A RawFrame is one navigation subframe, page or string as delivered by a
// receiver, tagged with its origin. Frames are treated as immutable once
// constructed.
type RawFrame struct {
	Signal Signal
	PRN    gnss.PRN
	Time   time.Time // time of receipt
	Bits   []byte    // MSB-first, Signal.FrameLen() bits
}

// A Subframe is one decoded navigation-message unit: a GPS subframe or
// message, a Galileo page or word, a GLONASS string or a BeiDou page.
type Subframe interface {
	// Signal returns the format the subframe was decoded from.
	Signal() Signal

	// Slot identifies the subframe within its format's frame structure:
	// the subframe id, page number, word type or string number. Assembly
	// completeness is defined over slots.
	Slot() int

	// IssueOfData returns the broadcast issue-of-data the subframe belongs
	// to, or -1 if the format does not tag this unit with one.
	IssueOfData() int
}

// EventType tags an observability event.
type EventType int

// Events delivered to an Observer.
const (
	EventChecksumMismatch EventType = iota + 1
	EventUnsupportedFormat
	EventStalenessReset
	EventSuspectRecord
)

func (t EventType) String() string {
	names := [...]string{"", "checksum_mismatch", "unsupported_format", "staleness_reset", "suspect_record"}
	if t < 1 || int(t) >= len(names) {
		return fmt.Sprintf("EventType(%d)", int(t))
	}
	return names[t]
}

// An Event describes a noteworthy condition during decoding. Events carry
// enough satellite context for logging and metrics; they never carry the
// frame payload.
type Event struct {
	Type   EventType
	Signal Signal
	PRN    gnss.PRN
	Time   time.Time // receipt time of the triggering frame
	Word   int       // failing word index for checksum events
}

// An Observer receives decoder events. Implementations must not block; they
// are called synchronously from Submit.
type Observer interface {
	Notify(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Notify implements Observer.
func (f ObserverFunc) Notify(ev Event) { f(ev) }
