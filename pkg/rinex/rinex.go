// Package rinex writes decoded broadcast ephemerides as RINEX Version 3
// navigation files.
package rinex

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gnsskit/gonav/pkg/gnss"
	"github.com/mholt/archiver/v3"
)

// Rnx3NavFileNamePattern is the regex for RINEX3 navigation filenames.
var Rnx3NavFileNamePattern = regexp.MustCompile(`(([A-Z0-9]{4})(\d)(\d)([A-Z]{3})_([RSU])_((\d{4})(\d{3})(\d{2})(\d{2}))_(\d{2}[A-Z])_([GREJCSM]N)\.rnx)\.?([a-zA-Z0-9]+)?`)

// A NavFile describes a navigation file on disk.
type NavFile struct {
	Path string

	FourCharID     string
	MonumentNumber int
	ReceiverNumber int
	CountryCode    string // ISO 3char
	StartTime      time.Time
	DataSource     string // [RSU]
	FilePeriod     string // 15M, 01D
	SatSystem      gnss.System
	Compression    string // gz, ...
}

// SetStationName sets the station or project name. IGS users should follow
// the XXXXMRCCC (9 char) site and station naming convention.
func (f *NavFile) SetStationName(name string) error {
	switch len(name) {
	case 4:
		f.FourCharID = strings.ToUpper(name)
	case 9:
		f.FourCharID = strings.ToUpper(name[:4])
		f.MonumentNumber, _ = strconv.Atoi(name[4:5])
		f.ReceiverNumber, _ = strconv.Atoi(name[5:6])
		f.CountryCode = strings.ToUpper(name[6:])
	default:
		return fmt.Errorf("weird station identifier %s", name)
	}
	return nil
}

// Rnx3Filename returns the filename following the RINEX3 convention.
func (f *NavFile) Rnx3Filename() (string, error) {
	if len(f.FourCharID) != 4 {
		return "", fmt.Errorf("FourCharID: %s", f.FourCharID)
	}
	if len(f.CountryCode) != 3 {
		return "", fmt.Errorf("CountryCode: %s", f.CountryCode)
	}

	var fn strings.Builder
	fn.WriteString(f.FourCharID)
	fn.WriteString(strconv.Itoa(f.MonumentNumber))
	fn.WriteString(strconv.Itoa(f.ReceiverNumber))
	fn.WriteString(f.CountryCode)

	fn.WriteString("_")
	if f.DataSource == "" {
		fn.WriteString("U")
	} else {
		fn.WriteString(f.DataSource)
	}
	fn.WriteString("_")

	fn.WriteString(strconv.Itoa(f.StartTime.Year()))
	fn.WriteString(fmt.Sprintf("%03d", f.StartTime.YearDay()))
	fn.WriteString(fmt.Sprintf("%02d", f.StartTime.Hour()))
	fn.WriteString(fmt.Sprintf("%02d", f.StartTime.Minute()))
	fn.WriteString("_")

	if f.FilePeriod == "" {
		fn.WriteString("01D")
	} else {
		fn.WriteString(f.FilePeriod)
	}
	fn.WriteString("_")

	sys := f.SatSystem
	if sys == 0 {
		sys = gnss.SysMIXED
	}
	fn.WriteString(sys.Abbr() + "N")
	fn.WriteString(".rnx")

	return fn.String(), nil
}

// Compress gzips the file. The source file is removed if the compression
// finishes without errors.
func (f *NavFile) Compress() error {
	if IsCompressed(f.Path) {
		return nil
	}

	err := archiver.CompressFile(f.Path, f.Path+".gz")
	if err != nil {
		return err
	}
	os.Remove(f.Path)
	f.Path = f.Path + ".gz"
	f.Compression = "gz"
	return nil
}

// IsCompressed reports whether the path looks like a compressed file.
func IsCompressed(path string) bool {
	switch strings.TrimPrefix(filepath.Ext(path), ".") {
	case "gz", "bz2", "z", "zip":
		return true
	}
	return false
}
