package navmsg

import "time"

// System time origins.
var (
	gpsT0 = time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC)
	bdtT0 = time.Date(2006, 1, 1, 0, 0, 0, 0, time.UTC)
)

const (
	secPerWeek = 604800.0
	secPerDay  = 86400.0

	// Galileo system time counts weeks from the GPS origin but the
	// broadcast week number rolled over at GST start.
	gstWeekOffset = 1024
)

// gpsTime converts a full GPS week number and seconds of week to a
// timestamp. Leap seconds are not applied; all record times stay in the
// continuous system timescale mapped onto UTC labels, which is what RINEX
// navigation files expect.
func gpsTime(week int, sow float64) time.Time {
	return gpsT0.Add(time.Duration((float64(week)*secPerWeek + sow) * float64(time.Second)))
}

// bdtTime converts a BeiDou week number and seconds of week to a timestamp.
func bdtTime(week int, sow float64) time.Time {
	return bdtT0.Add(time.Duration((float64(week)*secPerWeek + sow) * float64(time.Second)))
}

// gstTime converts a broadcast Galileo week number and seconds of week to a
// timestamp. The GST week counter is aligned with GPS week 1024.
func gstTime(week int, sow float64) time.Time {
	return gpsTime(week+gstWeekOffset, sow)
}

// resolveWeek expands a truncated broadcast week number to the full week
// count closest to a reference time. nbits is the width of the broadcast
// counter, t0 the system time origin.
func resolveWeek(week, nbits int, t0, ref time.Time) int {
	cycle := 1 << nbits
	refWeek := int(ref.Sub(t0) / (7 * 24 * time.Hour))
	week += (refWeek - week + cycle/2) / cycle * cycle
	if week < 0 {
		week += cycle
	}
	return week
}

// adjSOW moves sow into the half-week window around ref, adjusting week in
// place. Broadcast times of applicability can fall on either side of a week
// rollover relative to the receipt time.
func adjSOW(week int, sow, refSOW float64) (int, float64) {
	switch {
	case sow < refSOW-secPerWeek/2:
		week++
	case sow > refSOW+secPerWeek/2:
		week--
	}
	return week, sow
}

// glonassTime converts a GLONASS time-of-day in seconds (Moscow time) to a
// UTC timestamp on the day of ref. The Moscow offset is three hours; the
// result is shifted into the half-day window around ref.
func glonassTime(tod float64, ref time.Time) time.Time {
	tod -= 3 * 3600 // MSK to UTC
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	refTod := ref.Sub(day).Seconds()
	switch {
	case tod < refTod-secPerDay/2:
		tod += secPerDay
	case tod > refTod+secPerDay/2:
		tod -= secPerDay
	}
	return day.Add(time.Duration(tod * float64(time.Second)))
}

// timeSOW returns the GPS week and seconds of week of t.
func timeSOW(t time.Time, t0 time.Time) (int, float64) {
	d := t.Sub(t0)
	week := int(d / (7 * 24 * time.Hour))
	return week, d.Seconds() - float64(week)*secPerWeek
}
