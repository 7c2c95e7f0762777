// Package availability computes, for one day of a court's schedule, which
// hour slots are bookable and how long a booking starting at a given hour may
// run. It is a pure computation over caller-supplied data: the day's
// operating window comes from the schedule model and the booked intervals
// from whatever system committed the reservations.
//
// Operating windows whose closing hour is numerically below the opening hour
// cross midnight (e.g. 20:00-02:00). All interval math happens on a virtual
// 0-47h timeline where such windows and the bookings inside them are shifted
// past 24; hours are reduced mod 24 only when rendering labels.
package availability

import (
	"fmt"

	"github.com/arenalivre/courtbook/internal/schedule"
)

// BookedInterval is an already-reserved span on the day being checked, in
// whole hours of the day, end exclusive.
type BookedInterval struct {
	StartHour int
	EndHour   int
}

// Slot is one hour of the operating window with its occupancy flag.
type Slot struct {
	Label     string `json:"label"`
	Available bool   `json:"is_available"`
}

type hourSpan struct {
	start int
	end   int
}

// window returns the day's operating window on the virtual timeline.
// ok is false for closed days and for zero-width windows (opening hour equal
// to closing hour means zero open hours, not a 24h day).
func window(day schedule.DaySchedule) (open, close int, ok bool) {
	if !day.Open {
		return 0, 0, false
	}
	open = day.OpensAt.Hour
	close = day.ClosesAt.Hour
	if close == open {
		return 0, 0, false
	}
	if close < open {
		close += 24
	}
	return open, close, true
}

func occupied(h int, spans []hourSpan) bool {
	for _, s := range spans {
		if h >= s.start && h < s.end {
			return true
		}
	}
	return false
}

// SlotGrid returns one labelled slot per hour of the day's operating window,
// in chronological order from the opening hour, flagged unavailable where a
// booked interval covers the hour. A closed day yields an empty grid.
func SlotGrid(day schedule.DaySchedule, booked []BookedInterval) []Slot {
	open, close, ok := window(day)
	if !ok {
		return nil
	}

	crossing := close > 24
	spans := intervalsFor(open, crossing, booked)
	slots := make([]Slot, 0, close-open)
	for h := open; h < close; h++ {
		slots = append(slots, Slot{
			Label:     fmt.Sprintf("%02d:00 - %02d:00", h%24, (h+1)%24),
			Available: !occupied(h, spans),
		})
	}
	return slots
}

// MaxDuration returns the number of contiguous free hours from startHour up
// to the first occupied hour or the closing hour, whichever comes first. It
// is 0 when the day is closed, when startHour is outside the operating
// window (the closing hour itself is not a valid start), or when startHour
// is already occupied. On a midnight-crossing window a start hour below the
// opening hour refers to the post-midnight part of the window.
func MaxDuration(day schedule.DaySchedule, startHour int, booked []BookedInterval) int {
	open, close, ok := window(day)
	if !ok {
		return 0
	}

	crossing := close > 24
	if crossing && startHour < open {
		startHour += 24
	}
	if startHour < open || startHour >= close {
		return 0
	}

	spans := intervalsFor(open, crossing, booked)
	hours := 0
	for h := startHour; h < close; h++ {
		if occupied(h, spans) {
			break
		}
		hours++
	}
	return hours
}

// intervalsFor shifts booked intervals onto the window's virtual timeline.
// Zero-length intervals are malformed input and are dropped; they block
// nothing. On a non-crossing window intervals are kept as-is apart from
// unwrapping ends that wrap past midnight.
func intervalsFor(open int, crossing bool, booked []BookedInterval) []hourSpan {
	spans := make([]hourSpan, 0, len(booked))
	for _, b := range booked {
		s, e := b.StartHour, b.EndHour
		if s == e {
			continue
		}
		if e < s {
			e += 24
		}
		if crossing && s < open {
			s += 24
			e += 24
		}
		spans = append(spans, hourSpan{start: s, end: e})
	}
	return spans
}
