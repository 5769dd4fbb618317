package navmsg

import (
	"time"

	"github.com/gnsskit/gonav/pkg/gnss"
)

// A format bundles the decode and assembly rules of one navigation
// message. The required slots define completeness; a satellite's record is
// built once every required slot holds a subframe of the current issue of
// data.
type format struct {
	decode   func(*RawFrame) (Subframe, error)
	build    func(gnss.PRN, time.Time, map[int]Subframe) (Ephemeris, error)
	required []int

	// restart marks a slot that opens a new frame; collecting starts over
	// when it arrives. Zero means no positional framing.
	restart int

	// staleAfter is the silence after which a satellite's partial state is
	// discarded.
	staleAfter time.Duration
}

// newFormats returns the format table. GLONASS strings carry no issue of
// data outside string 2 and are framed positionally on string 1.
func newFormats() map[Signal]*format {
	return map[Signal]*format{
		SigLNAV:  {decodeLNAV, buildLNAV, []int{1, 2, 3}, 0, 2 * time.Hour},
		SigCNAV:  {decodeCNAV, buildCNAV, []int{cnavSlotEph1, cnavSlotEph2, cnavSlotClock}, 0, 2 * time.Hour},
		SigCNAV2: {decodeCNAV2, buildCNAV2, []int{2}, 0, 2 * time.Hour},
		SigFNAV:  {decodeFNAV, buildFNAV, []int{1, 2, 3, 4}, 0, time.Hour},
		SigINAV:  {decodeINAV, buildINAV, []int{1, 2, 3, 4, 5}, 0, time.Hour},
		SigGLO:   {decodeGlonass, buildGlonass, []int{1, 2, 3, 4}, 1, 30 * time.Minute},
		SigD1:    {decodeBDSD1, buildBDSD1, []int{1, 2, 3}, 0, time.Hour},
		SigD2:    {decodeBDSD2, buildBDSD2, []int{1, 3, 4, 5, 6, 7, 8, 9, 10}, 0, time.Hour},
	}
}

type stateKey struct {
	sig Signal
	prn gnss.PRN
}

// assembly is the collection state of one satellite on one signal.
type assembly struct {
	iod      int // issue of data being collected, -1 while unknown
	parts    map[int]Subframe
	lastSeen time.Time

	// identification of the last emitted record, so a repeated broadcast
	// of the same data set does not emit again
	emitted    bool
	emittedIOD int
	emittedTOC time.Time
}

func newAssembly() *assembly {
	return &assembly{iod: -1, parts: make(map[int]Subframe)}
}

func (st *assembly) clear() {
	st.iod = -1
	st.parts = make(map[int]Subframe)
}

// assembler tracks collection state per satellite and signal. Satellites
// never share state; an error on one never disturbs another.
type assembler struct {
	states map[stateKey]*assembly
	obs    Observer
}

func newAssembler(obs Observer) *assembler {
	return &assembler{states: make(map[stateKey]*assembly), obs: obs}
}

func (a *assembler) notify(ev Event) {
	if a.obs != nil {
		a.obs.Notify(ev)
	}
}

// add feeds one decoded subframe into its satellite's state and returns a
// completed ephemeris when the data set closes, or nil while collecting.
func (a *assembler) add(f *format, frame *RawFrame, sf Subframe) (Ephemeris, error) {
	key := stateKey{frame.Signal, frame.PRN}
	st := a.states[key]
	if st == nil {
		st = newAssembly()
		a.states[key] = st
	}

	// A long silent gap invalidates partial state and the duplicate
	// suppression: the satellite may have been through an upload.
	if !st.lastSeen.IsZero() && frame.Time.Sub(st.lastSeen) > f.staleAfter {
		st.clear()
		st.emitted = false
		a.notify(Event{Type: EventStalenessReset, Signal: frame.Signal, PRN: frame.PRN, Time: frame.Time})
	}
	st.lastSeen = frame.Time

	if f.restart != 0 && sf.Slot() == f.restart && len(st.parts) > 0 {
		st.clear()
	}

	// An issue-of-data change abandons the old epoch's parts.
	if iod := sf.IssueOfData(); iod >= 0 {
		if st.iod >= 0 && iod != st.iod {
			st.clear()
		}
		st.iod = iod
	}
	st.parts[sf.Slot()] = sf

	for _, slot := range f.required {
		if _, ok := st.parts[slot]; !ok {
			return nil, nil
		}
	}

	eph, err := f.build(frame.PRN, frame.Time, st.parts)
	st.clear()
	if err != nil {
		return nil, err
	}

	if st.emitted && eph.GetIOD() == st.emittedIOD && eph.GetTime().Equal(st.emittedTOC) {
		return nil, nil
	}
	st.emitted = true
	st.emittedIOD = eph.GetIOD()
	st.emittedTOC = eph.GetTime()

	if markSuspect(eph) {
		a.notify(Event{Type: EventSuspectRecord, Signal: frame.Signal, PRN: frame.PRN, Time: frame.Time})
	}
	return eph, nil
}

// reset drops all collection state.
func (a *assembler) reset() {
	a.states = make(map[stateKey]*assembly)
}

// pending returns the number of subframes collected for a satellite.
func (a *assembler) pending(sig Signal, prn gnss.PRN) int {
	if st := a.states[stateKey{sig, prn}]; st != nil {
		return len(st.parts)
	}
	return 0
}
