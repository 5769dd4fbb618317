// Command-line tool for decoding captured GNSS navigation frames and writing
// the assembled ephemerides as a RINEX navigation file.
//
// The input is line oriented, one frame per line:
//
//	<signal> <prn> <time> <hexbits>
//
// e.g.
//
//	LNAV G12 2020-06-17T02:00:06Z 8b02c6...
//
// with the time of receipt in RFC3339 and the frame bits hex encoded, most
// significant bit first. Blank lines and lines starting with # are skipped.
package main

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gnsskit/gonav/pkg/gnss"
	"github.com/gnsskit/gonav/pkg/navmsg"
	"github.com/gnsskit/gonav/pkg/navmsg/navmetrics"
	"github.com/gnsskit/gonav/pkg/rinex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

const version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "navdump",
		Usage:   "decode broadcast navigation messages into RINEX",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load settings from `FILE`"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write the navigation file to `PATH` instead of stdout; a directory derives the RINEX3 filename from the configured station"},
			&cli.BoolFlag{Name: "gzip", Usage: "compress the output file"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "serve Prometheus metrics on `ADDR` while decoding"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log decoder events and rejected frames"},
		},
		ArgsUsage: "[capture files, stdin when none]",
		Action:    run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	verbose := c.Bool("verbose")
	reg := prometheus.NewRegistry()
	metrics := navmetrics.New(reg)
	obs := navmsg.ObserverFunc(func(ev navmsg.Event) {
		metrics.Notify(ev)
		if verbose {
			log.Printf("W! %s: %s %v", ev.Type, ev.PRN, ev.Signal)
		}
	})

	if addr := c.String("metrics-addr"); addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			log.Printf("E! metrics endpoint: %v", http.ListenAndServe(addr, mux))
		}()
	}

	opts, err := cfg.decoderOptions(obs)
	if err != nil {
		return err
	}

	hdr := rinex.NavHeader{Pgm: cfg.Pgm, RunBy: cfg.RunBy, Comments: cfg.Comments}
	if hdr.Pgm == "" {
		hdr.Pgm = "navdump v" + version
	}

	var buf bytes.Buffer
	cap := &capture{
		dec:     navmsg.NewDecoder(opts...),
		w:       rinex.NewNavWriter(&buf, hdr),
		verbose: verbose,
	}

	if c.NArg() == 0 {
		if err := cap.process(os.Stdin, "stdin"); err != nil {
			return err
		}
	}
	for _, path := range c.Args().Slice() {
		if err := cap.processFile(path); err != nil {
			return err
		}
	}

	if err := cap.w.Flush(); err != nil {
		return err
	}

	outPath := c.String("out")
	if outPath == "" {
		if _, err := os.Stdout.Write(buf.Bytes()); err != nil {
			return err
		}
	} else {
		outPath, err = resolveOutPath(outPath, cfg, cap.start)
		if err != nil {
			return err
		}
		if err := os.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
			return err
		}
		if c.Bool("gzip") {
			fil := &rinex.NavFile{Path: outPath}
			if err := fil.Compress(); err != nil {
				return err
			}
		}
	}

	log.Printf("decoded %d ephemerides from %d frames", cap.records, cap.frames)
	return nil
}

// resolveOutPath turns a directory target into a full RINEX3 path named
// after the configured station and the first frame's receipt time.
func resolveOutPath(outPath string, cfg *Config, start time.Time) (string, error) {
	fi, err := os.Stat(outPath)
	if err != nil || !fi.IsDir() {
		return outPath, nil
	}

	fil := &rinex.NavFile{StartTime: start.UTC(), DataSource: "R", FilePeriod: "01D"}
	if err := fil.SetStationName(cfg.Station); err != nil {
		return "", fmt.Errorf("writing into a directory needs the station config: %w", err)
	}
	fn, err := fil.Rnx3Filename()
	if err != nil {
		return "", err
	}
	return filepath.Join(outPath, fn), nil
}

// capture feeds frame records into the decoder and collects the emitted
// ephemerides in the navigation writer.
type capture struct {
	dec     *navmsg.Decoder
	w       *rinex.NavWriter
	verbose bool

	frames  int
	records int
	start   time.Time // receipt time of the first frame
}

func (cap *capture) processFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	return cap.process(r, path)
}

func (cap *capture) process(r io.Reader, name string) error {
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		frame, err := parseFrameLine(line)
		if err != nil {
			return fmt.Errorf("%s line %d: %w", name, lineNo, err)
		}
		cap.frames++
		if cap.start.IsZero() {
			cap.start = frame.Time
		}

		eph, err := cap.dec.Submit(frame)
		if err != nil {
			if cap.verbose {
				log.Printf("W! %s line %d: %v", name, lineNo, err)
			}
			continue
		}
		if eph == nil {
			continue
		}
		if err := cap.w.WriteEphemeris(eph); err != nil {
			return err
		}
		cap.records++
	}
	return sc.Err()
}

func parseFrameLine(line string) (navmsg.RawFrame, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return navmsg.RawFrame{}, fmt.Errorf("want <signal> <prn> <time> <hexbits>, got %d fields", len(fields))
	}

	sig, err := navmsg.ParseSignal(fields[0])
	if err != nil {
		return navmsg.RawFrame{}, err
	}
	prn, err := gnss.ParsePRN(fields[1])
	if err != nil {
		return navmsg.RawFrame{}, err
	}
	t, err := time.Parse(time.RFC3339, fields[2])
	if err != nil {
		return navmsg.RawFrame{}, fmt.Errorf("time %q: %w", fields[2], err)
	}
	bits, err := hex.DecodeString(fields[3])
	if err != nil {
		return navmsg.RawFrame{}, fmt.Errorf("frame bits: %w", err)
	}

	return navmsg.RawFrame{Signal: sig, PRN: prn, Time: t, Bits: bits}, nil
}
