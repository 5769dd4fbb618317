package navmsg

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gnsskit/gonav/pkg/gnss"
	"github.com/gnsskit/gonav/pkg/navmsg/parity"
)

// A Decoder validates raw navigation frames, decodes them and assembles
// broadcast ephemerides per satellite. The set of handled formats is fixed
// at construction. A Decoder is safe for concurrent use.
type Decoder struct {
	mu      sync.Mutex
	formats map[Signal]*format
	asm     *assembler
	obs     Observer
}

// An Option configures a Decoder.
type Option func(*Decoder)

// WithObserver installs an event observer. Events are delivered
// synchronously from Submit.
func WithObserver(obs Observer) Option {
	return func(d *Decoder) {
		d.obs = obs
		d.asm.obs = obs
	}
}

// WithSignals restricts the decoder to the given formats. Frames of other
// signals are rejected as unsupported.
func WithSignals(sigs ...Signal) Option {
	return func(d *Decoder) {
		keep := make(map[Signal]*format, len(sigs))
		for _, sig := range sigs {
			if f, ok := d.formats[sig]; ok {
				keep[sig] = f
			}
		}
		d.formats = keep
	}
}

// WithStaleness overrides the silence threshold after which a satellite's
// partial state is discarded.
func WithStaleness(sig Signal, after time.Duration) Option {
	return func(d *Decoder) {
		if f, ok := d.formats[sig]; ok {
			f.staleAfter = after
		}
	}
}

// NewDecoder returns a Decoder handling all supported formats.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		formats: newFormats(),
		asm:     newAssembler(nil),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Signals returns the formats the decoder handles.
func (d *Decoder) Signals() []Signal {
	var sigs []Signal
	for sig := SigLNAV; sig <= SigD2; sig++ {
		if _, ok := d.formats[sig]; ok {
			sigs = append(sigs, sig)
		}
	}
	return sigs
}

// Submit decodes one raw frame. It returns a completed ephemeris when the
// frame closes a satellite's data set, nil while data is still being
// collected, and an error when the frame is rejected. A rejected frame
// never disturbs the state of other satellites; decoding continues with
// the next frame.
func (d *Decoder) Submit(frame RawFrame) (Ephemeris, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, ok := d.formats[frame.Signal]
	if !ok {
		d.notify(Event{Type: EventUnsupportedFormat, Signal: frame.Signal, PRN: frame.PRN, Time: frame.Time})
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, frame.Signal)
	}
	if want := frame.Signal.System(); frame.PRN.Sys != want {
		return nil, fmt.Errorf("%w: %s carries no %v", ErrBadFrame, frame.PRN, frame.Signal)
	}
	if n := uint(len(frame.Bits)) * 8; n < frame.Signal.FrameLen() {
		return nil, fmt.Errorf("%w: %d bits, want %d", ErrBadFrame, n, frame.Signal.FrameLen())
	}

	sf, err := f.decode(&frame)
	if err != nil {
		var perr *parity.Error
		if errors.As(err, &perr) {
			d.notify(Event{
				Type:   EventChecksumMismatch,
				Signal: frame.Signal,
				PRN:    frame.PRN,
				Time:   frame.Time,
				Word:   perr.Word,
			})
			return nil, fmt.Errorf("%s %v: %w: %v", frame.PRN, frame.Signal, ErrChecksumMismatch, err)
		}
		return nil, fmt.Errorf("%s %v: %w", frame.PRN, frame.Signal, err)
	}
	return d.asm.add(f, &frame, sf)
}

// Pending returns how many subframes are collected for a satellite but not
// yet closed into a record.
func (d *Decoder) Pending(sig Signal, prn gnss.PRN) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.asm.pending(sig, prn)
}

// Reset drops all per-satellite collection state.
func (d *Decoder) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.asm.reset()
}

func (d *Decoder) notify(ev Event) {
	if d.obs != nil {
		d.obs.Notify(ev)
	}
}
