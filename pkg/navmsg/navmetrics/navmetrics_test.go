package navmetrics

import (
	"testing"
	"time"

	"github.com/gnsskit/gonav/pkg/gnss"
	"github.com/gnsskit/gonav/pkg/navmsg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserver_Notify(t *testing.T) {
	assert := assert.New(t)

	reg := prometheus.NewRegistry()
	obs := New(reg)

	obs.Notify(navmsg.Event{Type: navmsg.EventChecksumMismatch, Signal: navmsg.SigLNAV})
	obs.Notify(navmsg.Event{Type: navmsg.EventChecksumMismatch, Signal: navmsg.SigLNAV})
	obs.Notify(navmsg.Event{Type: navmsg.EventStalenessReset, Signal: navmsg.SigGLO})

	assert.Equal(2.0, testutil.ToFloat64(obs.events.WithLabelValues("checksum_mismatch", "LNAV")))
	assert.Equal(1.0, testutil.ToFloat64(obs.events.WithLabelValues("staleness_reset", "NAV")))
	assert.Equal(0.0, testutil.ToFloat64(obs.events.WithLabelValues("suspect_record", "D1")))
}

func TestObserver_UnknownSignalTag(t *testing.T) {
	assert := assert.New(t)

	reg := prometheus.NewRegistry()
	obs := New(reg)

	// A receiver may deliver frames with a signal tag outside the known
	// formats; the unsupported-format event must still count.
	dec := navmsg.NewDecoder(navmsg.WithObserver(obs))
	prn := gnss.PRN{Sys: gnss.SysGPS, Num: 5}
	eph, err := dec.Submit(navmsg.RawFrame{Signal: navmsg.Signal(42), PRN: prn, Time: time.Now()})

	assert.Nil(eph)
	assert.ErrorIs(err, navmsg.ErrUnsupportedFormat)
	assert.Equal(1.0, testutil.ToFloat64(obs.events.WithLabelValues("unsupported_format", "Signal(42)")))
}
