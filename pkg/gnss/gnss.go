// Package gnss contains common constants and type definitions.
package gnss

import (
	"fmt"
	"strconv"
	"strings"
)

// System is a satellite system.
type System int

// Available satellite systems.
const (
	SysGPS System = iota + 1
	SysGLO
	SysGAL
	SysQZSS
	SysBDS
	SysNavIC
	SysSBAS
	SysMIXED
)

func (sys System) String() string {
	return [...]string{"", "GPS", "GLO", "GAL", "QZSS", "BDS", "NavIC", "SBAS", "MIXED"}[sys]
}

// Abbr returns the systems' abbreviation used in RINEX.
func (sys System) Abbr() string {
	return [...]string{"", "G", "R", "E", "J", "C", "I", "S", "M"}[sys]
}

// MarshalJSON encodes the system as its RINEX abbreviation.
func (sys System) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(sys.Abbr())), nil
}

var sysPerAbbr = map[string]System{
	"G": SysGPS,
	"R": SysGLO,
	"E": SysGAL,
	"J": SysQZSS,
	"C": SysBDS,
	"I": SysNavIC,
	"S": SysSBAS,
	"M": SysMIXED,
}

// Systems specifies a list of satellite systems.
type Systems []System

// String returns the contained systems joined as GPS+GLO+...
func (syss Systems) String() string {
	str := make([]string, 0, len(syss))
	for _, sys := range syss {
		str = append(str, sys.String())
	}
	return strings.Join(str, "+")
}

// PRN specifies a GNSS satellite.
type PRN struct {
	Sys System // The satellite system.
	Num int8   // The satellite number.
}

// NewPRN returns a new PRN for the given system and satellite number.
func NewPRN(sys System, num int8) (PRN, error) {
	if num < 1 {
		return PRN{}, fmt.Errorf("check satellite number '%v%d'", sys, num)
	}
	return PRN{Sys: sys, Num: num}, nil
}

// ParsePRN parses a satellite identifier given in RINEX manner, e.g. G12.
func ParsePRN(prn string) (PRN, error) {
	if len(prn) < 3 {
		return PRN{}, fmt.Errorf("invalid satellite: %q", prn)
	}
	sys, ok := sysPerAbbr[prn[:1]]
	if !ok {
		return PRN{}, fmt.Errorf("invalid satellite system: %q", prn)
	}
	snum, err := strconv.Atoi(strings.TrimSpace(prn[1:3]))
	if err != nil {
		return PRN{}, fmt.Errorf("parse sat num: %q: %v", prn, err)
	}
	return NewPRN(sys, int8(snum))
}

// String is a PRN Stringer.
func (prn PRN) String() string {
	return fmt.Sprintf("%s%02d", prn.Sys.Abbr(), prn.Num)
}

// ByPRN implements sort.Interface based on the PRN.
type ByPRN []PRN

func (p ByPRN) Len() int {
	return len(p)
}
func (p ByPRN) Swap(i, j int) {
	p[i], p[j] = p[j], p[i]
}
func (p ByPRN) Less(i, j int) bool {
	return p[i].String() < p[j].String()
}
